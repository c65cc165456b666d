package borg

// Event is a domain event emitted during workflow execution. It decouples
// the engine from transport concerns (SSE, logs).
type Event struct {
	Type    string         `json:"type"`
	RunID   string         `json:"run_id,omitempty"`
	NodeID  string         `json:"node_id,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Event type constants.
const (
	EventRunStarted    = "run_started"
	EventRunFinished   = "run_finished"
	EventNodeStarted   = "node_started"
	EventNodeCompleted = "node_completed"
	EventNodeFailed    = "node_failed"
	EventNodeSkipped   = "node_skipped"
	EventError         = "error"
)
