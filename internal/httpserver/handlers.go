package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ec2keeper/ec2keeper/internal/infra/retry"
	"github.com/ec2keeper/ec2keeper/internal/logic/alerting"
	"github.com/ec2keeper/ec2keeper/internal/logic/control"
)

const (
	actorHeader  = "X-Actor"
	defaultActor = "api"

	dateLayout = "2006-01-02"
)

type statusResponse struct {
	State      string           `json:"state"`
	Uptime     string           `json:"uptime"`
	StartTime  time.Time        `json:"startTime"`
	UptimeSec  float64          `json:"uptimeSeconds"`
	Components []map[string]any `json:"components"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	if !s.appState.IsHealthy() {
		w.WriteHeader(http.StatusServiceUnavailable)

		return
	}

	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if !s.appState.IsReady(r.Context()) {
		w.WriteHeader(http.StatusServiceUnavailable)

		return
	}

	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	uptime := s.appState.Uptime()

	components := make([]map[string]any, 0)

	for _, probe := range s.appState.Probe(r.Context()) {
		component := map[string]any{
			"component": probe.Component,
			"healthy":   probe.Healthy,
		}

		if probe.Error != "" {
			component["error"] = probe.Error
		}

		components = append(components, component)
	}

	response := statusResponse{
		State:      string(s.appState.State()),
		Uptime:     uptime.String(),
		StartTime:  s.appState.StartTime(),
		UptimeSec:  uptime.Seconds(),
		Components: components,
	}

	s.writeJSON(w, r, http.StatusOK, response)
}

func (s *Server) handleListInstances(w http.ResponseWriter, r *http.Request) {
	instances, err := s.controller.ListManagedQuery(r.Context())
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	s.writeJSON(w, r, http.StatusOK, instances)
}

func (s *Server) handleGetInstance(w http.ResponseWriter, r *http.Request) {
	instanceID := chi.URLParam(r, "instanceID")

	instance, err := s.controller.GetStateQuery(r.Context(), instanceID)
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	s.writeJSON(w, r, http.StatusOK, instance)
}

func (s *Server) handleStartInstance(w http.ResponseWriter, r *http.Request) {
	instanceID := chi.URLParam(r, "instanceID")

	change, err := s.controller.StartCommand(r.Context(), actor(r), instanceID)
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	s.writeJSON(w, r, http.StatusOK, change)
}

func (s *Server) handleStopInstance(w http.ResponseWriter, r *http.Request) {
	instanceID := chi.URLParam(r, "instanceID")

	result, err := s.controller.StopCommand(r.Context(), actor(r), instanceID)
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	s.writeJSON(w, r, http.StatusOK, result)
}

func (s *Server) handleRebootInstance(w http.ResponseWriter, r *http.Request) {
	instanceID := chi.URLParam(r, "instanceID")

	if err := s.controller.RebootCommand(r.Context(), actor(r), instanceID); err != nil {
		s.writeError(w, r, err)

		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleDailyUptime(w http.ResponseWriter, r *http.Request) {
	instanceID := chi.URLParam(r, "instanceID")

	day := time.Now().UTC()

	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			s.writeBadRequest(w, r, "date must be formatted as YYYY-MM-DD")

			return
		}

		day = parsed
	}

	report, err := s.controller.DailyReportQuery(r.Context(), instanceID, day)
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	s.writeJSON(w, r, http.StatusOK, report)
}

func (s *Server) handleMonthlyUptime(w http.ResponseWriter, r *http.Request) {
	instanceID := chi.URLParam(r, "instanceID")

	now := time.Now().UTC()
	year, month := now.Year(), int(now.Month())

	query := r.URL.Query()

	if raw := query.Get("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			s.writeBadRequest(w, r, "year must be an integer")

			return
		}

		year = parsed
	}

	if raw := query.Get("month"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 12 {
			s.writeBadRequest(w, r, "month must be an integer between 1 and 12")

			return
		}

		month = parsed
	}

	report, err := s.controller.MonthlyReportQuery(r.Context(), instanceID, year, month)
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	s.writeJSON(w, r, http.StatusOK, report)
}

func (s *Server) handleListAlertConfigs(w http.ResponseWriter, r *http.Request) {
	enabledOnly := r.URL.Query().Get("enabled") == "true"

	configs, err := s.alerter.ConfigsQuery(r.Context(), enabledOnly)
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	s.writeJSON(w, r, http.StatusOK, configs)
}

func (s *Server) handleCreateAlertConfig(w http.ResponseWriter, r *http.Request) {
	var cfg alerting.AlertConfig

	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		s.writeBadRequest(w, r, "invalid request body")

		return
	}

	if cfg.Name == "" {
		s.writeBadRequest(w, r, "name is required")

		return
	}

	if cfg.ThresholdHours <= 0 {
		s.writeBadRequest(w, r, "thresholdHours must be positive")

		return
	}

	if cfg.ReminderIntervalHours < 0 {
		s.writeBadRequest(w, r, "reminderIntervalHours must not be negative")

		return
	}

	id, err := s.alerter.CreateConfigCommand(r.Context(), cfg)
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	cfg.ID = id

	s.writeJSON(w, r, http.StatusCreated, cfg)
}

func (s *Server) handlePatchAlertConfig(w http.ResponseWriter, r *http.Request) {
	configID, err := strconv.ParseInt(chi.URLParam(r, "configID"), 10, 64)
	if err != nil {
		s.writeBadRequest(w, r, "config id must be an integer")

		return
	}

	var patch alerting.ConfigPatch

	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		s.writeBadRequest(w, r, "invalid request body")

		return
	}

	if patch.ThresholdHours != nil && *patch.ThresholdHours <= 0 {
		s.writeBadRequest(w, r, "thresholdHours must be positive")

		return
	}

	updated, err := s.alerter.UpdateConfigCommand(r.Context(), configID, patch)
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	if !updated {
		s.writeJSON(w, r, http.StatusNotFound, errorResponse{Error: "alert config not found"})

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, s.controller.CacheStatsQuery())
}

func actor(r *http.Request) string {
	if v := r.Header.Get(actorHeader); v != "" {
		return v
	}

	return defaultActor
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.ErrorContext(r.Context(), "failed to encode response",
			"error", err,
		)
	}
}

func (s *Server) writeBadRequest(w http.ResponseWriter, r *http.Request, msg string) {
	s.writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: msg})
}

// writeError maps domain errors onto the API contract: unknown instance is
// the caller's problem, an exhausted control plane is upstream's.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, control.ErrInstanceNotFound):
		status = http.StatusNotFound
	case errors.Is(err, retry.ErrExhaustedRetries):
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed",
			"path", r.URL.Path,
			"reason", err,
		)
	}

	s.writeJSON(w, r, status, errorResponse{Error: err.Error()})
}
