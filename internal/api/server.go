// Package api exposes the Borg workflow engine over HTTP: workflow CRUD,
// execution with SSE progress streaming, schedules, inbound webhooks, and
// the supporting settings endpoints.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/borgframework/borg/internal/config"
	"github.com/borgframework/borg/internal/db"
	"github.com/borgframework/borg/internal/notify"
	"github.com/borgframework/borg/internal/provider"
	"github.com/borgframework/borg/internal/repository"
	"github.com/borgframework/borg/internal/services"
	"github.com/borgframework/borg/internal/storage"
)

type Server struct {
	workflows       repository.WorkflowRepository
	triggerRepo     repository.TriggerRepository
	runSvc          *services.RunService
	schedulerSvc    *services.SchedulerService
	limiter         *services.ConcurrencyLimiter
	runManager      *services.RunManager
	retryExecutor   *services.RetryExecutor
	trendingSvc     *services.TrendingService
	mailer          *notify.Mailer
	storage         storage.Storage
	registry        *provider.Registry
	providerConfigs map[string]config.ProviderConfig
	database        *db.DB
	authSecret      string
}

func NewServer(workflows repository.WorkflowRepository, runSvc *services.RunService, manager *services.RunManager) *Server {
	return &Server{
		workflows:  workflows,
		runSvc:     runSvc,
		runManager: manager,
	}
}

// SetSchedulerService configures the scheduler service.
func (s *Server) SetSchedulerService(svc *services.SchedulerService) {
	s.schedulerSvc = svc
}

// SetConcurrencyLimiter configures the concurrency limiter for stats.
func (s *Server) SetConcurrencyLimiter(limiter *services.ConcurrencyLimiter) {
	s.limiter = limiter
}

// SetTriggerRepository configures the webhook trigger repository.
func (s *Server) SetTriggerRepository(repo repository.TriggerRepository) {
	s.triggerRepo = repo
}

// SetRetryExecutor configures retrying execution for webhook-triggered runs.
func (s *Server) SetRetryExecutor(executor *services.RetryExecutor) {
	s.retryExecutor = executor
}

// SetTrendingService configures the GitHub trending endpoint.
func (s *Server) SetTrendingService(svc *services.TrendingService) {
	s.trendingSvc = svc
}

// SetMailer configures the email settings and test endpoints.
func (s *Server) SetMailer(m *notify.Mailer) {
	s.mailer = m
}

// SetStorage configures the file upload backend.
func (s *Server) SetStorage(store storage.Storage) {
	s.storage = store
}

// SetProviderRegistry configures model discovery.
func (s *Server) SetProviderRegistry(reg *provider.Registry, configs map[string]config.ProviderConfig) {
	s.registry = reg
	s.providerConfigs = configs
}

// SetDatabase configures the database handle for health reporting.
func (s *Server) SetDatabase(database *db.DB) {
	s.database = database
}

// SetAuthSecret enables JWT bearer authentication on /api routes.
func (s *Server) SetAuthSecret(secret string) {
	s.authSecret = secret
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "Last-Event-ID"},
		AllowCredentials: true,
	}))
	r.Route("/api", func(r chi.Router) {
		// Inbound webhooks authenticate with their own HMAC secret, and
		// health must stay probeable, so both sit outside bearer auth.
		r.Post("/hooks/{path}", s.handleWebhook)
		r.Get("/health", s.getHealth)

		r.Group(func(r chi.Router) {
			if s.authSecret != "" {
				r.Use(s.requireAuth)
			}

			r.Route("/workflows", func(r chi.Router) {
				r.Post("/", s.createWorkflow)
				r.Get("/", s.listWorkflows)
				r.Post("/validate", s.validateWorkflow)
				r.Get("/{id}", s.getWorkflow)
				r.Put("/{id}", s.updateWorkflow)
				r.Delete("/{id}", s.deleteWorkflow)
				r.Patch("/{id}/status", s.updateWorkflowStatus)
				r.Post("/{id}/execute", s.executeWorkflow)
				r.Get("/{id}/runs", s.listWorkflowRuns)
				r.Get("/{id}/triggers", s.listTriggers)
			})
			r.Route("/runs", func(r chi.Router) {
				r.Get("/", s.listRuns)
				r.Get("/{id}", s.getRun)
				r.Get("/{id}/events", s.streamRunEvents)
				r.Post("/{id}/cancel", s.cancelRun)
			})
			r.Route("/schedules", func(r chi.Router) {
				r.Post("/", s.createSchedule)
				r.Get("/", s.listSchedules)
				r.Get("/{id}", s.getSchedule)
				r.Put("/{id}", s.updateSchedule)
				r.Delete("/{id}", s.deleteSchedule)
				r.Post("/{id}/pause", s.pauseSchedule)
				r.Post("/{id}/resume", s.resumeSchedule)
				r.Post("/{id}/trigger", s.triggerSchedule)
			})
			r.Get("/scheduler/stats", s.getSchedulerStats)
			r.Route("/triggers", func(r chi.Router) {
				r.Post("/", s.createTrigger)
				r.Delete("/{id}", s.deleteTrigger)
			})
			r.Get("/trending", s.getTrending)
			r.Route("/email", func(r chi.Router) {
				r.Get("/settings", s.getEmailSettings)
				r.Put("/settings", s.updateEmailSettings)
				r.Post("/test", s.sendTestEmail)
			})
			r.Post("/upload", s.uploadFile)
			r.Get("/files", s.listFiles)
			r.Get("/models", s.listModels)
		})
	})

	return r
}

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error body.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// listModels returns the models configured per provider, flattened to
// "provider/model" identifiers where the config names them, plus the
// bare provider list.
func (s *Server) listModels(w http.ResponseWriter, r *http.Request) {
	type providerInfo struct {
		Name string `json:"name"`
		Type string `json:"type"`
		URL  string `json:"url,omitempty"`
	}

	providers := []providerInfo{}
	if s.registry != nil {
		for _, name := range s.registry.Names() {
			info := providerInfo{Name: name}
			if cfg, ok := s.providerConfigs[name]; ok {
				info.Type = cfg.Type
				info.URL = cfg.URL
			}
			providers = append(providers, info)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"providers": providers})
}
