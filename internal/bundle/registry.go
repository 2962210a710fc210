package bundle

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// TransformRegistry resolves transform names used in configuration to
// transforms.
type TransformRegistry struct {
	transforms map[string]Transform
	mutex      sync.RWMutex
}

// NewTransformRegistry creates a registry holding the builtin transforms.
func NewTransformRegistry() *TransformRegistry {
	r := &TransformRegistry{transforms: make(map[string]Transform)}
	r.Register(Identity())
	return r
}

// Register adds or replaces a transform.
func (r *TransformRegistry) Register(t Transform) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.transforms[t.Name] = t
}

// RegisterCommand registers an external command transform under name.
func (r *TransformRegistry) RegisterCommand(name, command string, args ...string) error {
	t, err := CommandTransform(name, command, args...)
	if err != nil {
		return err
	}
	r.Register(t)
	return nil
}

// Get returns the named transform.
func (r *TransformRegistry) Get(name string) (Transform, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	t, ok := r.transforms[name]
	return t, ok
}

// Resolve maps names to transforms, preserving order.
func (r *TransformRegistry) Resolve(names []string) ([]Transform, error) {
	out := make([]Transform, 0, len(names))
	for _, name := range names {
		t, ok := r.Get(name)
		if !ok {
			return nil, fmt.Errorf("unknown transform %q (known: %v)", name, r.Names())
		}
		out = append(out, t)
	}
	return out, nil
}

// Names lists registered transforms in sorted order.
func (r *TransformRegistry) Names() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	names := make([]string, 0, len(r.transforms))
	for name := range r.transforms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Identity returns content unchanged.
func Identity() Transform {
	return Transform{
		Name: "identity",
		Fn: func(_ context.Context, content []byte) ([]byte, error) {
			return content, nil
		},
	}
}
