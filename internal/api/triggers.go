package api

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/borgframework/borg/internal/borg"
	"github.com/borgframework/borg/internal/repository"
)

// createTrigger registers a new inbound webhook binding for a workflow.
// POST /api/triggers
func (s *Server) createTrigger(w http.ResponseWriter, r *http.Request) {
	if s.triggerRepo == nil {
		writeError(w, http.StatusServiceUnavailable, "triggers not available")
		return
	}

	var trigger borg.TriggerBinding
	if err := json.NewDecoder(r.Body).Decode(&trigger); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if trigger.WorkflowID == "" {
		writeError(w, http.StatusBadRequest, "workflow_id is required")
		return
	}
	if _, err := s.workflows.Get(r.Context(), trigger.WorkflowID); err != nil {
		writeError(w, http.StatusNotFound, "workflow not found")
		return
	}

	trigger.ID = borg.GenerateID("trig")
	if trigger.Type == "" {
		trigger.Type = borg.TriggerWebhook
	}
	if trigger.Path == "" {
		trigger.Path = uuid.NewString()
	}
	if trigger.Secret == "" {
		b := make([]byte, 32)
		rand.Read(b)
		trigger.Secret = "whsec_" + hex.EncodeToString(b)
	}
	trigger.Enabled = true
	trigger.CreatedAt = time.Now()

	if err := s.triggerRepo.Save(r.Context(), &trigger); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"trigger":     trigger,
		"webhook_url": "/api/hooks/" + trigger.Path,
	})
}

// listTriggers returns trigger bindings for a workflow.
// GET /api/workflows/{id}/triggers
func (s *Server) listTriggers(w http.ResponseWriter, r *http.Request) {
	if s.triggerRepo == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}

	triggers, err := s.triggerRepo.List(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if triggers == nil {
		triggers = []*borg.TriggerBinding{}
	}
	writeJSON(w, http.StatusOK, triggers)
}

// deleteTrigger removes a trigger binding.
// DELETE /api/triggers/{id}
func (s *Server) deleteTrigger(w http.ResponseWriter, r *http.Request) {
	if s.triggerRepo == nil {
		writeError(w, http.StatusServiceUnavailable, "triggers not available")
		return
	}
	if err := s.triggerRepo.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "trigger not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
