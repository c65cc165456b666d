package engine

import (
	"context"

	"github.com/borgframework/borg/internal/borg"
)

// AgentCaller sends a prompt to a language-model backend and returns the
// generated text. Failures are reported as *borg.AdapterError so the
// engine can classify fatal vs. retryable conditions.
type AgentCaller interface {
	Call(ctx context.Context, systemPrompt, userPrompt, model string, temperature float64) (string, error)
}

// ActionDispatcher performs an external side effect keyed by action type
// (email, webhook, database, drive, twitter) and returns an
// acknowledgment value.
type ActionDispatcher interface {
	Dispatch(ctx context.Context, actionType string, params map[string]any, input any) (any, error)
}

// DataReader reads or writes a structured external data source keyed by
// source name (supabase, sheets, airtable, csv, rss).
type DataReader interface {
	Read(ctx context.Context, source, query string, input any) (any, error)
}

// Adapters bundles the external collaborators the engine dispatches to.
// None of them are implemented by the engine itself.
type Adapters struct {
	Agent   AgentCaller
	Actions ActionDispatcher
	Data    DataReader
}

// TriggerEvent is one inbound firing: which trigger node fired, how, and
// with what payload.
type TriggerEvent struct {
	NodeID  string // firing trigger node; empty selects the workflow's first trigger
	Type    borg.TriggerType
	Ref     string // schedule or trigger binding ID, for provenance
	RunID   string // pre-assigned run id; empty lets the engine generate one
	Payload map[string]any
}

// Observer receives engine events as nodes progress, for live reporting.
// Implementations must be safe for concurrent use.
type Observer interface {
	OnEvent(ev borg.Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ev borg.Event)

func (f ObserverFunc) OnEvent(ev borg.Event) { f(ev) }
