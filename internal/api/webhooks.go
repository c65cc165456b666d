package api

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/borgframework/borg/internal/borg"
	"github.com/borgframework/borg/internal/engine"
)

// handleWebhook receives an external HTTP POST and fires the bound
// workflow. Execution is asynchronous; the caller gets 202 immediately.
// POST /api/hooks/{path}
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "path")

	if s.triggerRepo == nil {
		writeError(w, http.StatusServiceUnavailable, "triggers not available")
		return
	}

	trigger, err := s.triggerRepo.GetByPath(r.Context(), path)
	if err != nil {
		writeError(w, http.StatusNotFound, "trigger not found")
		return
	}
	if !trigger.Enabled {
		writeError(w, http.StatusForbidden, "trigger is disabled")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	if trigger.Secret != "" {
		signature := r.Header.Get("X-Webhook-Signature")
		if !verifyHMAC(body, trigger.Secret, signature) {
			writeError(w, http.StatusUnauthorized, "invalid signature")
			return
		}
	}

	var payload map[string]any
	if len(body) > 0 {
		json.Unmarshal(body, &payload)
	}
	payload = mapInputs(payload, trigger.InputMapping)

	wf, err := s.workflows.Get(r.Context(), trigger.WorkflowID)
	if err != nil {
		writeError(w, http.StatusNotFound, "workflow not found")
		return
	}
	if wf.Status != borg.WorkflowActive {
		writeError(w, http.StatusConflict, "workflow is not active")
		return
	}

	triggerID := trigger.ID
	ev := engine.TriggerEvent{
		NodeID:  trigger.NodeID,
		Type:    borg.TriggerWebhook,
		Ref:     triggerID,
		Payload: payload,
	}

	go func() {
		// Detached from the request context; webhook runs outlive the
		// HTTP exchange.
		ctx := context.Background()
		if s.retryExecutor != nil {
			run, err := s.retryExecutor.ExecuteWithRetry(ctx, wf, ev, borg.DefaultRetryPolicy())
			if err != nil {
				slog.Error("webhook: execution failed", "trigger", triggerID, "err", err)
				return
			}
			slog.Info("webhook: run completed", "trigger", triggerID, "run", run.ID, "status", run.Status)
			return
		}
		if _, err := s.runSvc.Execute(ctx, wf.ID, ev); err != nil {
			slog.Error("webhook: execution failed", "trigger", triggerID, "err", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":  "accepted",
		"trigger": triggerID,
	})
}

// verifyHMAC checks the HMAC-SHA256 signature of a payload.
func verifyHMAC(payload []byte, secret, signature string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// mapInputs extracts trigger payload fields using the binding's input
// mapping. With no mapping, the whole payload passes through as-is.
func mapInputs(payload map[string]any, mapping map[string]string) map[string]any {
	if len(mapping) == 0 {
		return payload
	}

	inputs := make(map[string]any)
	for payloadKey, inputKey := range mapping {
		if val, ok := payload[payloadKey]; ok {
			inputs[inputKey] = val
		}
	}
	return inputs
}
