package handler

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/config"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/notifier"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/repository"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/workflow"
)

type Handler struct {
	validate    *validator.Validate
	config      *config.Config
	repository  *repository.Repository
	translator  ut.Translator
	workflow    *workflow.Service
	notifier    *notifier.Notifier
	hub         *notifier.Hub
	redisClient *redis.Client

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, repo *repository.Repository, wf *workflow.Service, ntf *notifier.Notifier, hub *notifier.Hub, rdb *redis.Client) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	return &Handler{
		validate:    validate,
		config:      cfg,
		repository:  repo,
		translator:  trans,
		workflow:    wf,
		notifier:    ntf,
		hub:         hub,
		redisClient: rdb,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)
	h.Mux.Use(h.cors)

	// 认证相关
	h.Mux.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Route("/reset-password", func(r chi.Router) {
			r.Post("/require", h.RequireResetPassword)
			r.Post("/confirm", h.ConfirmResetPassword)
		})
	})

	// 以下 API 必须要在登录后才允许调用
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)

		r.Route("/users", func(r chi.Router) {
			r.Get("/me", h.GetMyProfile)
			r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Get("/team-members", h.GetTeamMembers)
		})

		r.Route("/projects", h.parentRoutes(domain.ParentProject))
		r.Route("/tasks", h.parentRoutes(domain.ParentTask))

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", h.GetMyNotifications)
			r.Patch("/{id}/read", h.MarkNotificationRead)
		})

		r.Get("/ws", h.WebSocket)
	})
}

func (h *Handler) parentRoutes(kind domain.ParentKind) func(chi.Router) {
	adminOnly := h.RequiredRole([]domain.Role{domain.RoleAdmin})

	return func(r chi.Router) {
		r.With(adminOnly).Post("/", h.CreateParent(kind))
		r.Get("/", h.GetAllParents(kind))
		r.Route("/{id}", func(r chi.Router) {
			r.Use(h.parentInfo(kind))
			r.With(adminOnly).Put("/", h.UpdateParent)
			r.With(adminOnly).Delete("/", h.DeleteParent)
			r.With(adminOnly).Post("/assign", h.AssignParent)
			r.Post("/complete", h.CompleteParent)
		})
	}
}
