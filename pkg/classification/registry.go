package classification

import (
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Identity keys are supplied at runtime and never read from configuration.
const (
	typeNameKey = "type_name"
	uidKey      = "uuid"
)

// Constructor builds a backend from its configuration
type Constructor func(cfg map[string]any) (Backend, error)

type registration struct {
	defaults  map[string]any
	ctor      Constructor
	perResult bool
}

// RegisterOption adjusts how an implementation is registered
type RegisterOption func(*registration)

// PerResult marks an implementation whose backends hold the state of a single
// result. A factory constructs one backend per result for it instead of
// sharing the backend it validated its configuration with.
func PerResult() RegisterOption {
	return func(r *registration) {
		r.perResult = true
	}
}

var (
	registryLock sync.RWMutex
	registry     = make(map[string]registration)
)

// Register makes a backend implementation available under name
func Register(name string, defaults map[string]any, ctor Constructor, opts ...RegisterOption) error {
	if name == "" {
		return fmt.Errorf("implementation name is required")
	}
	if ctor == nil {
		return fmt.Errorf("constructor is nil for implementation %q", name)
	}

	registryLock.Lock()
	defer registryLock.Unlock()

	if _, exists := registry[name]; exists {
		return fmt.Errorf("implementation %q already registered", name)
	}
	reg := registration{defaults: withoutIdentity(defaults), ctor: ctor}
	for _, opt := range opts {
		opt(&reg)
	}
	registry[name] = reg
	return nil
}

// MustRegister is Register for package init functions
func MustRegister(name string, defaults map[string]any, ctor Constructor, opts ...RegisterOption) {
	if err := Register(name, defaults, ctor, opts...); err != nil {
		panic(err)
	}
}

// Implementations returns the registered implementation names, sorted
func Implementations() []string {
	registryLock.RLock()
	defer registryLock.RUnlock()

	return slices.Sorted(maps.Keys(registry))
}

// DefaultConfig returns the default configuration of an implementation. It
// never contains the runtime identity parameters.
func DefaultConfig(name string) (map[string]any, error) {
	reg, err := lookup(name)
	if err != nil {
		return nil, err
	}
	return maps.Clone(reg.defaults), nil
}

// FromConfig constructs a result of implementation name bound to typeName and
// uid. Identity keys present in cfg are ignored.
func FromConfig(name string, cfg map[string]any, typeName, uid string, mergeDefault bool) (*Result, error) {
	backend, _, err := newBackend(name, cfg, mergeDefault)
	if err != nil {
		return nil, err
	}
	return NewResult(typeName, uid, backend), nil
}

// newBackend constructs a backend of implementation name. The returned
// registration tells the caller whether the backend may be shared.
func newBackend(name string, cfg map[string]any, mergeDefault bool) (Backend, registration, error) {
	reg, err := lookup(name)
	if err != nil {
		return nil, reg, err
	}

	params := withoutIdentity(cfg)
	if mergeDefault {
		merged := maps.Clone(reg.defaults)
		if merged == nil {
			merged = make(map[string]any)
		}
		maps.Copy(merged, params)
		params = merged
	}

	backend, err := reg.ctor(params)
	if err != nil {
		return nil, reg, fmt.Errorf("failed to construct %q backend: %w", name, err)
	}
	return backend, reg, nil
}

func lookup(name string) (registration, error) {
	registryLock.RLock()
	defer registryLock.RUnlock()

	reg, ok := registry[name]
	if !ok {
		return registration{}, fmt.Errorf("%w: %q", ErrUnknownImplementation, name)
	}
	return reg, nil
}

func withoutIdentity(cfg map[string]any) map[string]any {
	out := make(map[string]any, len(cfg))
	for k, v := range cfg {
		if k == typeNameKey || k == uidKey {
			continue
		}
		out[k] = v
	}
	return out
}
