package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/utils"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/workflow"
)

func (h *Handler) CreateParent(kind domain.ParentKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name    string `json:"name" validate:"required,max=100"`
			Details string `json:"details"`
		}

		if err := h.readJSON(r, &req); err != nil {
			h.badRequest(w, r, err)
			return
		}
		if err := h.validate.Struct(req); err != nil {
			h.badRequest(w, r, err)
			return
		}

		// 名称在同类实体中必须唯一
		isExists, err := h.repository.CheckParentNameIfExists(kind, req.Name)
		if err != nil {
			h.internalServerError(w, r, err)
			return
		}
		if isExists {
			h.errorResponse(w, r, http.StatusConflict, "名称已存在")
			return
		}

		currentUser := r.Context().Value(CurrentUserCtx).(*domain.User)

		parent := &domain.Parent{
			Kind:     kind,
			Name:     req.Name,
			Details:  req.Details,
			AuthorID: currentUser.ID,
		}

		if err := h.repository.CreateParent(parent); err != nil {
			h.internalServerError(w, r, err)
			return
		}

		h.successResponse(w, r, http.StatusCreated, "创建成功", parent)
	}
}

type parentWithAssignees struct {
	*domain.Parent
	AssigneeIDs []int64 `json:"assigneeIDs"`
}

func (h *Handler) GetAllParents(kind domain.ParentKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := r.Context().Value(CurrentUserCtx).(*domain.User)

		// 管理员能看到全部实体和各自的被分配人，团队成员只能看到分配给自己的
		if currentUser.Role != domain.RoleAdmin {
			views, err := h.repository.GetAssignmentViewsByUser(kind, currentUser.ID)
			if err != nil {
				h.internalServerError(w, r, err)
				return
			}
			h.successResponse(w, r, http.StatusOK, "获取列表成功", views)
			return
		}

		parents, err := h.repository.GetAllParents(kind)
		if err != nil {
			h.internalServerError(w, r, err)
			return
		}

		assignees, err := h.repository.GetParentAssigneeIDs(kind)
		if err != nil {
			h.internalServerError(w, r, err)
			return
		}

		result := make([]parentWithAssignees, 0, len(parents))
		for _, parent := range parents {
			ids := assignees[parent.ID]
			if ids == nil {
				ids = []int64{}
			}
			result = append(result, parentWithAssignees{
				Parent:      parent,
				AssigneeIDs: ids,
			})
		}

		h.successResponse(w, r, http.StatusOK, "获取列表成功", result)
	}
}

func (h *Handler) UpdateParent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    *string `json:"name" validate:"omitempty,max=100"`
		Details *string `json:"details"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	parent := r.Context().Value(ParentCtx).(*domain.Parent)

	if req.Name != nil {
		parent.Name = *req.Name
	}
	if req.Details != nil {
		parent.Details = *req.Details
	}

	if err := h.repository.UpdateParent(parent); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr) && pgErr.ConstraintName != "":
			h.errorResponse(w, r, http.StatusConflict, "名称已存在")
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, http.StatusConflict, "更新失败，请重试")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, http.StatusOK, "更新成功", parent)
}

func (h *Handler) DeleteParent(w http.ResponseWriter, r *http.Request) {
	parent := r.Context().Value(ParentCtx).(*domain.Parent)

	if err := h.repository.DeleteParent(parent.Kind, parent.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, http.StatusOK, "删除成功", nil)
}

func (h *Handler) AssignParent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserIDs  []int64   `json:"userIDs" validate:"required"`
		Deadline time.Time `json:"deadline" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := utils.ValidateAssignees(req.UserIDs); err != nil {
		h.errorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := utils.ValidateDeadline(req.Deadline); err != nil {
		h.errorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	parent := r.Context().Value(ParentCtx).(*domain.Parent)
	currentUser := r.Context().Value(CurrentUserCtx).(*domain.User)

	affected, err := h.workflow.ReconcileAssignment(parent.Kind, parent.ID, req.UserIDs, req.Deadline, currentUser)
	if err != nil {
		switch {
		case errors.Is(err, workflow.ErrParentNotFound):
			h.errorResponse(w, r, http.StatusNotFound, err.Error())
		case errors.Is(err, workflow.ErrNoValidAssignees):
			h.errorResponse(w, r, http.StatusBadRequest, err.Error())
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, http.StatusOK, "分配成功", map[string]any{
		"affected": affected,
	})
}

func (h *Handler) CompleteParent(w http.ResponseWriter, r *http.Request) {
	parent := r.Context().Value(ParentCtx).(*domain.Parent)
	currentUser := r.Context().Value(CurrentUserCtx).(*domain.User)

	if err := h.workflow.CompleteAssignment(parent.Kind, parent.ID, currentUser); err != nil {
		switch {
		case errors.Is(err, workflow.ErrNotAssigned):
			h.errorResponse(w, r, http.StatusNotFound, err.Error())
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, http.StatusOK, "已标记完成", nil)
}
