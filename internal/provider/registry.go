package provider

import (
	"fmt"
	"sort"
	"sync"

	"github.com/borgframework/borg/internal/borg"
)

type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

func (r *Registry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// Names returns the registered provider names sorted alphabetically.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve maps a "provider/model" identifier to a registered backend
// and the backend-local model name.
func (r *Registry) Resolve(modelID string) (Provider, string, error) {
	providerName, modelName, err := ParseModelID(modelID)
	if err != nil {
		return nil, "", err
	}
	p, ok := r.Get(providerName)
	if !ok {
		return nil, "", borg.NewAdapterError(borg.ErrInvalidConfiguration,
			fmt.Sprintf("unknown provider %q", providerName), nil)
	}
	return p, modelName, nil
}
