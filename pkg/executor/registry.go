package executor

import (
	"fmt"
	"sort"
	"sync"

	"github.com/kleon1024/mini-feeds/pkg/models"
)

// Registry is a thread-safe type registry mapping a symbolic node type
// string to its Executor, adapted verbatim from the teacher's
// pkg/executor/registry.go.
type Registry struct {
	mu        sync.RWMutex
	executors map[string]Executor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{executors: make(map[string]Executor)}
}

// Register adds or replaces the executor for typeName.
func (r *Registry) Register(typeName string, ex Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executors[typeName] = ex
}

// Get resolves typeName to its executor.
func (r *Registry) Get(typeName string) (Executor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ex, ok := r.executors[typeName]
	if !ok {
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownNodeType, typeName)
	}
	return ex, nil
}

// Has reports whether typeName is registered.
func (r *Registry) Has(typeName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.executors[typeName]
	return ok
}

// List returns every registered type name, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.executors))
	for name := range r.executors {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Unregister removes typeName, if present.
func (r *Registry) Unregister(typeName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.executors, typeName)
}
