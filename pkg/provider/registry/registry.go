package registry

import (
	"fmt"

	"ai-chatwidget-be/pkg/provider"
)

// Registry maps provider ids to implementations. Built once at startup;
// unknown ids are a configuration error, never a silent default.
type Registry struct {
	providers map[string]provider.Provider
}

func New() *Registry {
	return &Registry{
		providers: make(map[string]provider.Provider),
	}
}

func (r *Registry) Register(p provider.Provider) error {
	id := p.ID()
	if id == "" {
		return fmt.Errorf("provider with empty id")
	}
	if _, exists := r.providers[id]; exists {
		return fmt.Errorf("provider %q already registered", id)
	}
	r.providers[id] = p
	return nil
}

func (r *Registry) Resolve(id string) (provider.Provider, error) {
	p, ok := r.providers[id]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %q", id)
	}
	return p, nil
}

func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	return ids
}
