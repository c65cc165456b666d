// Package data reads structured external sources for data nodes. Each
// source registers one handler; the reader routes by the node's source
// name.
package data

import (
	"context"
	"fmt"
	"sync"

	"github.com/borgframework/borg/internal/borg"
)

// Source reads one kind of external data store.
type Source interface {
	Name() string
	Read(ctx context.Context, query string, input any) (any, error)
}

// Reader routes data nodes to their registered source handler.
type Reader struct {
	mu      sync.RWMutex
	sources map[string]Source
}

func NewReader() *Reader {
	return &Reader{sources: make(map[string]Source)}
}

func (r *Reader) Register(s Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[s.Name()] = s
}

// Sources returns the registered source names, for capability reporting.
func (r *Reader) Sources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.sources))
	for name := range r.sources {
		out = append(out, name)
	}
	return out
}

func (r *Reader) Read(ctx context.Context, source, query string, input any) (any, error) {
	r.mu.RLock()
	s, ok := r.sources[source]
	r.mu.RUnlock()
	if !ok {
		return nil, borg.NewAdapterError(borg.ErrInvalidConfiguration,
			fmt.Sprintf("no handler registered for data source %q", source), nil)
	}
	return s.Read(ctx, query, input)
}
