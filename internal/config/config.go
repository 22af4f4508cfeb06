// Package config loads the application configuration for the command line tools.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/FrenchMajesty/descriptor-classifier/pkg/classification"
)

// Environment variables overlaid on top of the file configuration
const (
	EnvLogLevel  = "CLASSIFIER_LOG_LEVEL"
	EnvStore     = "CLASSIFIER_STORE"
	EnvBatchSize = "CLASSIFIER_BATCH_SIZE"
)

// Config is the application configuration
type Config struct {
	Log            LogConfig                    `yaml:"log"`
	Classification classification.FactoryConfig `yaml:"classification"`
	Pinecone       PineconeConfig               `yaml:"pinecone"`
	BatchSize      int                          `yaml:"batch_size" validate:"gte=0"`
}

// LogConfig configures the application logger
type LogConfig struct {
	Level         string `yaml:"level" validate:"omitempty,oneof=trace debug info warn error"`
	HumanReadable bool   `yaml:"human_readable"`
}

// PineconeConfig locates the descriptor vector index. Empty credentials fall
// back to PINECONE_API_KEY and PINECONE_HOST.
type PineconeConfig struct {
	APIKey    string `yaml:"api_key"`
	Host      string `yaml:"host"`
	Namespace string `yaml:"namespace"`
	TypeName  string `yaml:"type_name"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Log:            LogConfig{Level: "info"},
		Classification: classification.FactoryConfig{Type: "file"},
	}
}

// Load reads the configuration at path, overlays the environment and
// validates the result. An empty path loads the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open config: %w", err)
		}
		defer f.Close()

		if cfg, err = Parse(f); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML on top of the defaults. Unknown fields are rejected.
func Parse(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks the `validate` tags of the configuration
func (c *Config) Validate() error {
	if err := validatorInstance().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvStore); v != "" && v != c.Classification.Type {
		// A different implementation does not share the file's parameters
		c.Classification = classification.FactoryConfig{Type: v}
	}
	if v := os.Getenv(EnvBatchSize); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvBatchSize, err)
		}
		c.BatchSize = n
	}
	return nil
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
