package handler

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/shelf-allocator/backend/internal/config"
	"github.com/sysu-ecnc-dev/shelf-allocator/backend/internal/progress"
	"github.com/sysu-ecnc-dev/shelf-allocator/backend/internal/repository"
)

type Handler struct {
	validate      *validator.Validate
	config        *config.Config
	repository    *repository.Repository
	translator    ut.Translator
	channel       *amqp.Channel
	progressStore *progress.Store

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, repo *repository.Repository, ch *amqp.Channel, store *progress.Store) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	return &Handler{
		validate:      validate,
		config:        cfg,
		repository:    repo,
		translator:    trans,
		channel:       ch,
		progressStore: store,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	h.Mux.Handle("/metrics", promhttp.Handler())

	// 认证相关
	h.Mux.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
	})

	// 以下 API 必须要在登录后才允许调用
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/", h.GetCatalog)
			r.Put("/", h.ReplaceCatalog)
		})

		r.Route("/allocations", func(r chi.Router) {
			r.Post("/evaluate", h.EvaluateAllocation)
			r.Post("/", h.CreateAllocationRun)
			r.Get("/", h.GetAllAllocationRuns)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.allocationRun)
				r.Get("/", h.GetAllocationRun)
				r.Delete("/", h.DeleteAllocationRun)
				r.Get("/placements", h.GetAllocationPlacements)
				r.Get("/progress", h.GetAllocationProgress)
				r.With(h.requireFinishedRun).Get("/report.xlsx", h.GetAllocationReport)
				r.With(h.requireFinishedRun).Get("/convergence", h.GetAllocationConvergence)
			})
		})
	})
}
