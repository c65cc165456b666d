// Package actions performs the external side effects action nodes ask
// for. Each action type registers one handler; the dispatcher routes by
// the node's action_type.
package actions

import (
	"context"
	"fmt"
	"sync"

	"github.com/borgframework/borg/internal/borg"
)

// Action performs one kind of external side effect.
type Action interface {
	Type() string
	Execute(ctx context.Context, params map[string]any, input any) (any, error)
}

// Dispatcher routes action nodes to their registered handler.
type Dispatcher struct {
	mu      sync.RWMutex
	actions map[string]Action
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{actions: make(map[string]Action)}
}

func (d *Dispatcher) Register(a Action) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.actions[a.Type()] = a
}

// Types returns the registered action types, for capability reporting.
func (d *Dispatcher) Types() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.actions))
	for t := range d.actions {
		out = append(out, t)
	}
	return out
}

func (d *Dispatcher) Dispatch(ctx context.Context, actionType string, params map[string]any, input any) (any, error) {
	d.mu.RLock()
	a, ok := d.actions[actionType]
	d.mu.RUnlock()
	if !ok {
		return nil, borg.NewAdapterError(borg.ErrInvalidConfiguration,
			fmt.Sprintf("no handler registered for action type %q", actionType), nil)
	}
	return a.Execute(ctx, params, input)
}

// paramString reads a string parameter, tolerating absence.
func paramString(params map[string]any, key string) string {
	if params == nil {
		return ""
	}
	s, _ := params[key].(string)
	return s
}
