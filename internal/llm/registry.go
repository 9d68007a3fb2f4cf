package llm

import (
	"fmt"

	"codeberg.org/docuchat/server/internal/domain"
)

// configured backends; read-only once built
type Registry struct {
	backends map[Name]Backend
	order    []Name
}

func NewRegistry(backends ...Backend) *Registry {
	r := &Registry{backends: make(map[Name]Backend, len(backends))}

	for _, b := range backends {
		r.backends[b.Name()] = b
	}

	// known variants in priority order, then anything else in registration order
	for _, name := range Priority {
		if _, ok := r.backends[name]; ok {
			r.order = append(r.order, name)
		}
	}

	for _, b := range backends {
		if !isPriority(b.Name()) && !containsName(r.order, b.Name()) {
			r.order = append(r.order, b.Name())
		}
	}

	return r
}

func (r *Registry) Get(name string) (Backend, error) {
	if name == "" {
		name = string(r.Default())
	}

	b, ok := r.backends[Name(name)]
	if !ok {
		return nil, fmt.Errorf("%w: llm_model %q", domain.ErrUnknownBackend, name)
	}

	return b, nil
}

func (r *Registry) Has(name string) bool {
	_, ok := r.backends[Name(name)]
	return ok
}

// first available backend in priority order
func (r *Registry) Default() Name {
	if len(r.order) == 0 {
		return ""
	}

	return r.order[0]
}

func (r *Registry) Available() []Name {
	return append([]Name(nil), r.order...)
}

// every other available backend, in priority order
func (r *Registry) Fallbacks(name Name) []Backend {
	var out []Backend

	for _, n := range r.order {
		if n != name {
			out = append(out, r.backends[n])
		}
	}

	return out
}

func isPriority(name Name) bool {
	return containsName(Priority, name)
}

func containsName(names []Name, name Name) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}

	return false
}
