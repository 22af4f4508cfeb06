package classification

import (
	"fmt"
	"maps"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// FactoryConfig selects a backend implementation and its parameters
type FactoryConfig struct {
	Type   string         `yaml:"type" json:"type" validate:"required"`
	Config map[string]any `yaml:"config,omitempty" json:"config,omitempty"`
}

// Factory creates results of one implementation with a fixed configuration.
// Results of a shared implementation are all bound to the one backend built
// when the factory was created.
type Factory struct {
	impl    string
	config  map[string]any
	backend Backend
}

// NewFactory creates a factory for implementation impl. The configuration is
// checked by constructing one backend up front.
func NewFactory(impl string, cfg map[string]any) (*Factory, error) {
	backend, reg, err := newBackend(impl, cfg, true)
	if err != nil {
		return nil, err
	}

	f := &Factory{impl: impl, config: withoutIdentity(cfg)}
	if !reg.perResult {
		f.backend = backend
	}
	return f, nil
}

// FactoryFromConfig creates a factory from a FactoryConfig
func FactoryFromConfig(cfg FactoryConfig) (*Factory, error) {
	if err := validatorInstance().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid factory config: %w", err)
	}
	return NewFactory(cfg.Type, cfg.Config)
}

// DefaultFactory creates in-memory results
func DefaultFactory() *Factory {
	return &Factory{impl: MemoryImpl, config: map[string]any{}}
}

// Implementation returns the implementation name
func (f *Factory) Implementation() string {
	return f.impl
}

// Config returns the factory configuration
func (f *Factory) Config() FactoryConfig {
	return FactoryConfig{Type: f.impl, Config: maps.Clone(f.config)}
}

// NewClassification returns a new result bound to (typeName, uid)
func (f *Factory) NewClassification(typeName, uid string) (Element, error) {
	if f.backend != nil {
		return NewResult(typeName, uid, f.backend), nil
	}
	return FromConfig(f.impl, f.config, typeName, uid, true)
}

// Delete removes the classification stored for (typeName, uid). Deleting a
// classification that was never stored is not an error.
func (f *Factory) Delete(typeName, uid string) error {
	d, ok := f.backend.(Deleter)
	if !ok {
		return fmt.Errorf("%w: %q backend cannot delete", ErrUnsupported, f.impl)
	}
	return d.Delete(Identity{TypeName: typeName, UID: uid})
}

// Count returns the number of classifications in the factory's backend
func (f *Factory) Count() (int, error) {
	c, ok := f.backend.(Counter)
	if !ok {
		return 0, fmt.Errorf("%w: %q backend cannot count", ErrUnsupported, f.impl)
	}
	return c.Count()
}

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		validateInst = validator.New()
	})
	return validateInst
}

// DecodeConfig decodes a generic configuration map into the struct pointed to
// by out and validates its `validate` tags.
func DecodeConfig(cfg map[string]any, out any) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	if err := validatorInstance().Struct(out); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
