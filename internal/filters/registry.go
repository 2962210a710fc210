// Package filters holds the named functions exposed to page templates.
//
// Registration happens once, while configuration loads. Freeze is called
// before the first render; after that the registry is read-only and safe for
// concurrent lookups. Lookups of unregistered names fail at the first render
// that uses them, not at startup, mirroring how templates are evaluated.
package filters

import (
	"context"
	"fmt"
	"html/template"
	"sort"
	"sync"

	siteerrors "github.com/conneroisu/siteforge/internal/errors"
	"github.com/conneroisu/siteforge/internal/logging"
)

// Func is a filter. It is called synchronously from the template.
type Func func(args ...any) (any, error)

// Entry is a name bound to a filter.
type Entry struct {
	Name string
	Fn   Func
}

// Registry maps filter names to functions.
type Registry struct {
	entries map[string]Func
	// strict rejects duplicate registrations instead of overwriting.
	strict bool
	frozen bool
	logger logging.Logger
	mutex  sync.RWMutex
}

// Option configures a Registry.
type Option func(*Registry)

// WithStrict makes duplicate registration an error.
func WithStrict(strict bool) Option {
	return func(r *Registry) { r.strict = strict }
}

// WithLogger sets the logger used for overwrite warnings.
func WithLogger(logger logging.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger.WithComponent("filters")
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		entries: make(map[string]Func),
		logger:  logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register binds name to fn. A duplicate name overwrites the earlier
// registration with a warning, or fails in strict mode.
func (r *Registry) Register(name string, fn Func) error {
	if name == "" {
		return siteerrors.NewConfigError(siteerrors.ErrCodeInvalidRule, "filter name cannot be empty")
	}
	if fn == nil {
		return siteerrors.NewConfigError(siteerrors.ErrCodeInvalidRule, fmt.Sprintf("filter %q has no function", name))
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.frozen {
		return siteerrors.NewConfigError(siteerrors.ErrCodeRegistryFrozen,
			fmt.Sprintf("cannot register filter %q after rendering started", name))
	}

	if _, exists := r.entries[name]; exists {
		if r.strict {
			return siteerrors.NewConfigError(siteerrors.ErrCodeDuplicateFilter,
				fmt.Sprintf("filter %q registered twice", name))
		}
		r.logger.Warn(context.Background(), nil, "Filter registered twice, last registration wins", "filter", name)
	}

	r.entries[name] = fn
	return nil
}

// Lookup returns the filter registered under name.
func (r *Registry) Lookup(name string) (Func, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	fn, ok := r.entries[name]
	if !ok {
		return nil, siteerrors.NewUnknownFilterError(name)
	}
	return fn, nil
}

// Invoke looks up name and calls it with args.
func (r *Registry) Invoke(name string, args ...any) (any, error) {
	fn, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	return fn(args...)
}

// Freeze forbids further registration.
func (r *Registry) Freeze() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.frozen = true
}

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.frozen
}

// Names lists registered filters in sorted order.
func (r *Registry) Names() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FuncMap adapts the registry for html/template. Each template function
// dispatches through Invoke, so it sees exactly what the registry holds.
func (r *Registry) FuncMap() template.FuncMap {
	names := r.Names()
	fm := make(template.FuncMap, len(names))
	for _, name := range names {
		name := name
		fm[name] = func(args ...any) (any, error) {
			return r.Invoke(name, args...)
		}
	}
	return fm
}
