package httpserver

import (
	"context"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ec2keeper/ec2keeper/internal/infra/shutdown"
)

const defaultPort = "8080"

// Server exposes the instance control and alert config API.
type Server struct {
	lifecycle

	appState   appstater
	controller controller
	alerter    alerter
}

// New creates a new HTTP server instance
func New(
	logger *slog.Logger,
	appState appstater,
	controller controller,
	alerter alerter,
	port string,
) *Server {
	if port == "" {
		port = defaultPort
	}

	return &Server{
		lifecycle:  newLifecycle(logger, "http-server", port),
		appState:   appState,
		controller: controller,
		alerter:    alerter,
	}
}

var _ shutdown.Shutdowner = (*Server)(nil)

// Start binds the listener and serves the API in a goroutine.
func (s *Server) Start(ctx context.Context) error {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Get("/-/healthz", s.handleHealthz)
	router.Get("/-/readyz", s.handleReadyz)
	router.Get("/-/status", s.handleStatus)

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/instances", s.handleListInstances)
		r.Get("/instances/{instanceID}", s.handleGetInstance)
		r.Post("/instances/{instanceID}/start", s.handleStartInstance)
		r.Post("/instances/{instanceID}/stop", s.handleStopInstance)
		r.Post("/instances/{instanceID}/reboot", s.handleRebootInstance)
		r.Get("/instances/{instanceID}/uptime/daily", s.handleDailyUptime)
		r.Get("/instances/{instanceID}/uptime/monthly", s.handleMonthlyUptime)

		r.Get("/alerts/configs", s.handleListAlertConfigs)
		r.Post("/alerts/configs", s.handleCreateAlertConfig)
		r.Patch("/alerts/configs/{configID}", s.handlePatchAlertConfig)

		r.Get("/cache/stats", s.handleCacheStats)
	})

	return s.serve(ctx, router)
}
