package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/borgframework/borg/internal/borg"
	"github.com/borgframework/borg/internal/graph"
	"github.com/borgframework/borg/internal/repository"
)

// createWorkflow stores a new workflow document. New workflows start as
// drafts unless the body says otherwise.
// POST /api/workflows
func (s *Server) createWorkflow(w http.ResponseWriter, r *http.Request) {
	var wf borg.Workflow
	if err := json.NewDecoder(r.Body).Decode(&wf); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if wf.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	wf.ID = borg.GenerateID("wf")
	if wf.Status == "" {
		wf.Status = borg.WorkflowDraft
	}
	now := time.Now()
	wf.CreatedAt = now
	wf.UpdatedAt = now

	if err := s.workflows.Save(r.Context(), &wf); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, &wf)
}

// listWorkflows returns all workflows, most recently updated first.
// GET /api/workflows
func (s *Server) listWorkflows(w http.ResponseWriter, r *http.Request) {
	workflows, err := s.workflows.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if workflows == nil {
		workflows = []*borg.Workflow{}
	}
	writeJSON(w, http.StatusOK, workflows)
}

// getWorkflow returns one workflow document.
// GET /api/workflows/{id}
func (s *Server) getWorkflow(w http.ResponseWriter, r *http.Request) {
	wf, err := s.workflows.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "workflow not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, wf)
}

// updateWorkflow replaces a workflow's document, keeping its identity
// and creation time.
// PUT /api/workflows/{id}
func (s *Server) updateWorkflow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	existing, err := s.workflows.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "workflow not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var wf borg.Workflow
	if err := json.NewDecoder(r.Body).Decode(&wf); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	wf.ID = existing.ID
	wf.CreatedAt = existing.CreatedAt
	wf.UpdatedAt = time.Now()
	if wf.Status == "" {
		wf.Status = existing.Status
	}

	if err := s.workflows.Save(r.Context(), &wf); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, &wf)
}

// deleteWorkflow removes a workflow document.
// DELETE /api/workflows/{id}
func (s *Server) deleteWorkflow(w http.ResponseWriter, r *http.Request) {
	if err := s.workflows.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "workflow not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// updateWorkflowStatus transitions a workflow between draft, active, and
// paused. Activation requires the document to pass validation.
// PATCH /api/workflows/{id}/status
func (s *Server) updateWorkflowStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Status borg.WorkflowStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	switch req.Status {
	case borg.WorkflowDraft, borg.WorkflowActive, borg.WorkflowPaused:
	default:
		writeError(w, http.StatusBadRequest, "status must be draft, active, or paused")
		return
	}

	wf, err := s.workflows.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "workflow not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if req.Status == borg.WorkflowActive {
		if problems := graph.Validate(wf); problems.HasErrors() {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":  "workflow fails validation",
				"issues": problems,
			})
			return
		}
	}

	wf.Status = req.Status
	wf.UpdatedAt = time.Now()
	if err := s.workflows.Save(r.Context(), wf); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, wf)
}

// validateWorkflow runs full validation on a workflow document supplied
// in the body and returns every problem found.
// POST /api/workflows/validate
func (s *Server) validateWorkflow(w http.ResponseWriter, r *http.Request) {
	var wf borg.Workflow
	if err := json.NewDecoder(r.Body).Decode(&wf); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	problems := graph.Validate(&wf)
	issues := []borg.ValidationError(problems)
	if issues == nil {
		issues = []borg.ValidationError{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"valid":  !problems.HasErrors(),
		"issues": issues,
	})
}
