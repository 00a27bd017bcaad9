package handler

import (
	"net/http"

	"github.com/sysu-ecnc-dev/task-manager/backend/internal/domain"
)

func (h *Handler) GetMyProfile(w http.ResponseWriter, r *http.Request) {
	user := r.Context().Value(CurrentUserCtx).(*domain.User)
	h.successResponse(w, r, http.StatusOK, "获取个人信息成功", user)
}

func (h *Handler) GetTeamMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.repository.GetUsersByRole(domain.RoleTeam)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, http.StatusOK, "获取团队成员列表成功", members)
}
