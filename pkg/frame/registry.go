package frame

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrDuplicateType is returned when a type name is registered twice.
	ErrDuplicateType = errors.New("frame: type already registered")

	// ErrUnknownType is returned when creating an unregistered type.
	ErrUnknownType = errors.New("frame: unknown type")
)

// Factory creates an empty frame of one concrete type.
type Factory func() Frame

// Registry maps frame type names to factories so that persistence code can
// rebuild frames from a stored type name. Populate it during startup; after
// that it is read-mostly and safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under name.
func (r *Registry) Register(name string, f Factory) error {
	if name == "" || f == nil {
		return fmt.Errorf("frame: invalid registration for %q", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateType, name)
	}
	r.factories[name] = f
	return nil
}

// MustRegister is Register for startup code; it panics on error.
func (r *Registry) MustRegister(name string, f Factory) {
	if err := r.Register(name, f); err != nil {
		panic(err)
	}
}

// Create returns a new empty frame of the named type.
func (r *Registry) Create(name string) (Frame, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, name)
	}
	fr := f()
	if fr.TypeName() != name {
		return nil, fmt.Errorf("frame: factory for %s built %s", name, fr.TypeName())
	}
	return fr, nil
}

// Names returns the registered type names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// RegisterValue registers ValueFrame[T] under its type name.
func RegisterValue[T any](r *Registry) error {
	var zero ValueFrame[T]
	return r.Register(zero.TypeName(), func() Frame { return &ValueFrame[T]{} })
}

// RegisterBuiltins registers the frame types defined in this package.
func RegisterBuiltins(r *Registry) {
	r.MustRegister("DataFrame", func() Frame { return &DataFrame{} })
	r.MustRegister("VideoFrame", func() Frame { return &VideoFrame{} })
	for _, err := range []error{
		RegisterValue[int64](r),
		RegisterValue[float64](r),
		RegisterValue[bool](r),
		RegisterValue[string](r),
	} {
		if err != nil {
			panic(err)
		}
	}
}
