package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/borgframework/borg/internal/borg"
	"github.com/borgframework/borg/internal/engine"
	"github.com/borgframework/borg/internal/repository"
	"github.com/borgframework/borg/internal/services"
)

// ExecuteRequest is the JSON body for manual workflow execution.
type ExecuteRequest struct {
	NodeID  string         `json:"node_id,omitempty"` // trigger node to start from
	Payload map[string]any `json:"payload,omitempty"`
}

// executeWorkflow launches a workflow run in the background and returns
// its id immediately. Clients stream progress from
// GET /api/runs/{id}/events.
// POST /api/workflows/{id}/execute
func (s *Server) executeWorkflow(w http.ResponseWriter, r *http.Request) {
	workflowID := chi.URLParam(r, "id")

	var req ExecuteRequest
	if r.Body != nil {
		// An empty or malformed body means an empty payload.
		json.NewDecoder(r.Body).Decode(&req)
	}

	runID, err := s.runSvc.Start(workflowID, engine.TriggerEvent{
		NodeID:  req.NodeID,
		Type:    borg.TriggerManual,
		Payload: req.Payload,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "workflow not found")
			return
		}
		var verrs borg.ValidationErrors
		if errors.As(err, &verrs) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":  "workflow fails validation",
				"issues": verrs,
			})
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"run_id": runID})
}

// listRuns returns run records newest first.
// GET /api/runs?workflow_id=&status=&limit=&offset=
func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	runs, total, err := s.runSvc.List(r.Context(), q.Get("workflow_id"), q.Get("status"), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []*borg.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"runs":  runs,
		"total": total,
	})
}

// listWorkflowRuns returns runs for one workflow.
// GET /api/workflows/{id}/runs
func (s *Server) listWorkflowRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	runs, total, err := s.runSvc.List(r.Context(), chi.URLParam(r, "id"), q.Get("status"), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []*borg.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"runs":  runs,
		"total": total,
	})
}

// getRun returns one run record including its node result log.
// GET /api/runs/{id}
func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.runSvc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// cancelRun requests cancellation of an in-flight run.
// POST /api/runs/{id}/cancel
func (s *Server) cancelRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.runSvc.Cancel(id) {
		writeError(w, http.StatusNotFound, "run is not active")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"run_id": id, "status": "cancelling"})
}

// streamRunEvents streams execution events for a run via SSE. Initial
// connections replay all buffered events; reconnections replay from
// Last-Event-ID onward. The run continues in the background regardless
// of client connection state.
// GET /api/runs/{id}/events
func (s *Server) streamRunEvents(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")

	lastSeq := -1
	if idStr := r.Header.Get("Last-Event-ID"); idStr != "" {
		if n, err := strconv.Atoi(idStr); err == nil {
			lastSeq = n
		}
	}
	startSeq := lastSeq + 1

	events, notify, done, donePayload, found := s.runManager.Subscribe(runID, startSeq)
	if !found {
		// The buffer may have been GC'd for an old run; synthesize a
		// done event from the persisted record.
		if record, err := s.runSvc.Get(r.Context(), runID); err == nil {
			s.sendSyntheticDone(w, record)
			return
		}
		writeError(w, http.StatusNotFound, "run not found")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for _, ev := range events {
		writeSSEEvent(w, ev)
	}
	flusher.Flush()

	if done {
		writeDoneEvent(w, donePayload)
		flusher.Flush()
		return
	}

	for {
		select {
		case <-r.Context().Done():
			// Client disconnected; the run continues in the background.
			return
		case <-notify:
			nextSeq := startSeq + len(events)
			events, notify, done, donePayload, found = s.runManager.Subscribe(runID, nextSeq)
			if !found {
				return
			}
			startSeq = nextSeq

			for _, ev := range events {
				writeSSEEvent(w, ev)
			}
			flusher.Flush()

			if done {
				writeDoneEvent(w, donePayload)
				flusher.Flush()
				return
			}
		}
	}
}

// writeSSEEvent writes a single event as an SSE frame with the seq as the id.
func writeSSEEvent(w http.ResponseWriter, ev services.EventRecord) {
	payload := ev.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	if ev.NodeID != "" {
		payload["node_id"] = ev.NodeID
	}
	data, _ := json.Marshal(payload)
	fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", ev.Seq, ev.Type, data)
}

// writeDoneEvent writes the final "done" SSE event.
func writeDoneEvent(w http.ResponseWriter, payload map[string]any) {
	data, _ := json.Marshal(payload)
	fmt.Fprintf(w, "event: done\ndata: %s\n\n", data)
}

// sendSyntheticDone sends a minimal SSE stream with a done event built
// from a completed run record.
func (s *Server) sendSyntheticDone(w http.ResponseWriter, run *borg.Run) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	payload := map[string]any{
		"run_id": run.ID,
		"status": string(run.Status),
	}
	if run.Error != nil {
		payload["error"] = *run.Error
	}
	writeDoneEvent(w, payload)
	flusher.Flush()
}
