package fetcher

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-ispider/ispider/internal/types"
)

// Engine is the interface for a single HTTP fetch adapter. The engine
// scheduler falls back across Engines in configuration order when a
// request's response status is in CodesToRetry or StatusTransportFailure.
type Engine interface {
	// Fetch retrieves the content at the given request's URL.
	Fetch(ctx context.Context, req *types.Request) (*types.Response, error)

	// Close releases any resources held by the engine.
	Close() error

	// Name returns the engine identifier used in configuration and requeue decisions.
	Name() string
}

// Registry resolves engine identifiers (e.g. "primary", "fallback") to Engine
// implementations, mirroring the teacher's fetcher type-string dispatch.
type Registry struct {
	mu      sync.RWMutex
	engines map[string]Engine
	order   []string
}

// NewRegistry creates an empty engine registry.
func NewRegistry() *Registry {
	return &Registry{engines: make(map[string]Engine)}
}

// Register adds an engine under its name. Later registrations with the same
// name replace earlier ones without changing fallback order.
func (r *Registry) Register(e Engine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.engines[e.Name()]; !exists {
		r.order = append(r.order, e.Name())
	}
	r.engines[e.Name()] = e
}

// Get resolves an engine by name.
func (r *Registry) Get(name string) (Engine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.engines[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrNoEngine, name)
	}
	return e, nil
}

// Next returns the engine identifier that follows the given one in the
// registered fallback order, or ok=false if current is the last engine.
func (r *Registry) Next(current string) (name string, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i, n := range r.order {
		if n == current && i+1 < len(r.order) {
			return r.order[i+1], true
		}
	}
	return "", false
}

// First returns the first engine in fallback order.
func (r *Registry) First() (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.order) == 0 {
		return "", false
	}
	return r.order[0], true
}

// CloseAll closes every registered engine, collecting errors.
func (r *Registry) CloseAll() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var firstErr error
	for _, name := range r.order {
		if err := r.engines[name].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
