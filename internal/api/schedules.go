package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/borgframework/borg/internal/borg"
	"github.com/borgframework/borg/internal/repository"
)

// createSchedule registers a new cron schedule for a workflow.
// POST /api/schedules
func (s *Server) createSchedule(w http.ResponseWriter, r *http.Request) {
	if s.schedulerSvc == nil {
		writeError(w, http.StatusServiceUnavailable, "scheduler not available")
		return
	}

	var schedule borg.Schedule
	if err := json.NewDecoder(r.Body).Decode(&schedule); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if schedule.WorkflowID == "" {
		writeError(w, http.StatusBadRequest, "workflow_id is required")
		return
	}
	if schedule.CronExpr == "" {
		writeError(w, http.StatusBadRequest, "cron_expr is required")
		return
	}
	if _, err := s.workflows.Get(r.Context(), schedule.WorkflowID); err != nil {
		writeError(w, http.StatusNotFound, "workflow not found")
		return
	}

	schedule.Enabled = true
	if err := s.schedulerSvc.AddSchedule(r.Context(), &schedule); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, &schedule)
}

// listSchedules returns schedules, optionally filtered by workflow.
// GET /api/schedules?workflow_id=
func (s *Server) listSchedules(w http.ResponseWriter, r *http.Request) {
	if s.schedulerSvc == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}

	schedules, err := s.schedulerSvc.ListSchedules(r.Context(), r.URL.Query().Get("workflow_id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if schedules == nil {
		schedules = []*borg.Schedule{}
	}
	writeJSON(w, http.StatusOK, schedules)
}

// getSchedule returns one schedule.
// GET /api/schedules/{id}
func (s *Server) getSchedule(w http.ResponseWriter, r *http.Request) {
	if s.schedulerSvc == nil {
		writeError(w, http.StatusServiceUnavailable, "scheduler not available")
		return
	}

	schedule, err := s.schedulerSvc.GetSchedule(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "schedule not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, schedule)
}

// updateSchedule replaces a schedule's cron expression and settings.
// PUT /api/schedules/{id}
func (s *Server) updateSchedule(w http.ResponseWriter, r *http.Request) {
	if s.schedulerSvc == nil {
		writeError(w, http.StatusServiceUnavailable, "scheduler not available")
		return
	}
	id := chi.URLParam(r, "id")

	existing, err := s.schedulerSvc.GetSchedule(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "schedule not found")
		return
	}

	var schedule borg.Schedule
	if err := json.NewDecoder(r.Body).Decode(&schedule); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	schedule.ID = existing.ID
	schedule.WorkflowID = existing.WorkflowID
	schedule.CreatedAt = existing.CreatedAt

	if err := s.schedulerSvc.UpdateSchedule(r.Context(), &schedule); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, &schedule)
}

// deleteSchedule removes a schedule and its cron job.
// DELETE /api/schedules/{id}
func (s *Server) deleteSchedule(w http.ResponseWriter, r *http.Request) {
	if s.schedulerSvc == nil {
		writeError(w, http.StatusServiceUnavailable, "scheduler not available")
		return
	}
	if err := s.schedulerSvc.RemoveSchedule(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// pauseSchedule disables a schedule without deleting it.
// POST /api/schedules/{id}/pause
func (s *Server) pauseSchedule(w http.ResponseWriter, r *http.Request) {
	if s.schedulerSvc == nil {
		writeError(w, http.StatusServiceUnavailable, "scheduler not available")
		return
	}
	if err := s.schedulerSvc.PauseSchedule(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "schedule not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "paused"})
}

// resumeSchedule re-enables a paused schedule.
// POST /api/schedules/{id}/resume
func (s *Server) resumeSchedule(w http.ResponseWriter, r *http.Request) {
	if s.schedulerSvc == nil {
		writeError(w, http.StatusServiceUnavailable, "scheduler not available")
		return
	}
	if err := s.schedulerSvc.ResumeSchedule(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "schedule not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "active"})
}

// triggerSchedule fires a schedule immediately through the same path a
// cron firing takes.
// POST /api/schedules/{id}/trigger
func (s *Server) triggerSchedule(w http.ResponseWriter, r *http.Request) {
	if s.schedulerSvc == nil {
		writeError(w, http.StatusServiceUnavailable, "scheduler not available")
		return
	}
	if err := s.schedulerSvc.TriggerNow(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "schedule not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "triggered"})
}

// getSchedulerStats reports active run counts against the limits.
// GET /api/scheduler/stats
func (s *Server) getSchedulerStats(w http.ResponseWriter, r *http.Request) {
	if s.limiter == nil {
		writeError(w, http.StatusServiceUnavailable, "scheduler not available")
		return
	}
	writeJSON(w, http.StatusOK, s.limiter.Stats())
}
