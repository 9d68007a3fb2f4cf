package embedder

import (
	"fmt"
	"sync"

	"codeberg.org/docuchat/server/internal/domain"
)

// embedders keyed by model name; collections record the model they were created with
type Registry struct {
	mu           sync.RWMutex
	byModel      map[string]*Embedder
	order        []string
	defaultModel string
}

func NewRegistry(defaultModel string) *Registry {
	return &Registry{
		byModel:      make(map[string]*Embedder),
		defaultModel: defaultModel,
	}
}

func (r *Registry) Register(e *Embedder) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byModel[e.Model()]; !ok {
		r.order = append(r.order, e.Model())
	}

	r.byModel[e.Model()] = e
}

func (r *Registry) Get(model string) (*Embedder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if model == "" {
		model = r.defaultLocked()
	}

	e, ok := r.byModel[model]
	if !ok {
		return nil, fmt.Errorf("%w: embedding model %q", domain.ErrUnknownBackend, model)
	}

	return e, nil
}

// configured default, or the first registered model
func (r *Registry) Default() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.defaultLocked()
}

func (r *Registry) defaultLocked() string {
	if _, ok := r.byModel[r.defaultModel]; ok {
		return r.defaultModel
	}

	if len(r.order) > 0 {
		return r.order[0]
	}

	return ""
}

func (r *Registry) Models() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]string(nil), r.order...)
}
