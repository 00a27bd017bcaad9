package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/config"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/domain"
)

func requestWithUser(role domain.Role) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	user := &domain.User{ID: 1, Username: "tester", Role: role}
	return req.WithContext(context.WithValue(req.Context(), CurrentUserCtx, user))
}

func TestRequiredRole(t *testing.T) {
	h := &Handler{}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name     string
		roles    []domain.Role
		role     domain.Role
		expected int
	}{
		{"管理员访问管理员接口", []domain.Role{domain.RoleAdmin}, domain.RoleAdmin, http.StatusOK},
		{"团队成员访问管理员接口", []domain.Role{domain.RoleAdmin}, domain.RoleTeam, http.StatusForbidden},
		{"管理员访问团队接口", []domain.Role{domain.RoleTeam}, domain.RoleAdmin, http.StatusForbidden},
		{"空角色集合一律拒绝", []domain.Role{}, domain.RoleAdmin, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			h.RequiredRole(tt.roles)(next).ServeHTTP(recorder, requestWithUser(tt.role))
			assert.Equal(t, tt.expected, recorder.Code)
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	h := &Handler{config: &config.Config{FrontendURL: "http://localhost:5173"}}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("预检请求不应该到达业务处理器")
	})

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/projects", nil)
	h.cors(next).ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "http://localhost:5173", recorder.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, recorder.Header().Get("Access-Control-Expose-Headers"), "Authorization")
}

func TestAuthRejectsMissingToken(t *testing.T) {
	h := &Handler{config: &config.Config{}}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("未携带令牌的请求不应该到达业务处理器")
	})

	for _, header := range []string{"", "Basic abc", "Bearer"} {
		recorder := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		h.auth(next).ServeHTTP(recorder, req)
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	}
}
