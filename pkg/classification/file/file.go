// Package file stores classification maps as JSON documents on disk, one
// document per (type name, uid) pair.
package file

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/FrenchMajesty/descriptor-classifier/pkg/classification"
)

// Impl is the registered implementation name
const Impl = "file"

// DefaultDir is the default storage directory
const DefaultDir = "./classifications"

// Config configures the file backend
type Config struct {
	// Dir is the root directory documents are written under
	Dir string `yaml:"dir" validate:"required"`

	// SubdirSplit nests documents under this many two-character prefix
	// directories of their key, keeping directory sizes bounded
	SubdirSplit int `yaml:"subdir_split" validate:"gte=0,lte=16"`
}

// Backend implements classification.Backend on the filesystem
type Backend struct {
	dir         string
	subdirSplit int
}

// New creates a file backend
func New(cfg Config) *Backend {
	return &Backend{dir: cfg.Dir, subdirSplit: cfg.SubdirSplit}
}

type document struct {
	TypeName       string              `json:"type_name"`
	UID            string              `json:"uuid"`
	Classification *classification.Map `json:"classification"`
}

// path returns the document path for an identity
func (b *Backend) path(id classification.Identity) string {
	sum := sha256.Sum256([]byte(id.TypeName + "\x00" + id.UID))
	key := hex.EncodeToString(sum[:])

	parts := []string{b.dir}
	for i := 0; i < b.subdirSplit; i++ {
		parts = append(parts, key[i*2:i*2+2])
	}
	parts = append(parts, key+".json")
	return filepath.Join(parts...)
}

// Get implements classification.Backend
func (b *Backend) Get(id classification.Identity) (*classification.Map, error) {
	p := b.path(id)

	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, classification.ErrNoClassification
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read classification from file %s: %w", p, err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal classification from file %s: %w", p, err)
	}
	if doc.Classification.Len() == 0 {
		return nil, classification.ErrNoClassification
	}

	return doc.Classification, nil
}

// Set implements classification.Backend
func (b *Backend) Set(id classification.Identity, m *classification.Map) error {
	if m.Len() == 0 {
		return classification.ErrNoLabels
	}

	data, err := json.Marshal(document{TypeName: id.TypeName, UID: id.UID, Classification: m})
	if err != nil {
		return fmt.Errorf("failed to marshal classification: %w", err)
	}

	p := b.path(id)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", p, err)
	}

	// Write then rename so readers never observe a partial document
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write classification to file %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		return fmt.Errorf("failed to move classification into place at %s: %w", p, err)
	}

	return nil
}

// Has implements classification.Backend
func (b *Backend) Has(id classification.Identity) (bool, error) {
	_, err := b.Get(id)
	if errors.Is(err, classification.ErrNoClassification) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes the document for id, if any
func (b *Backend) Delete(id classification.Identity) error {
	p := b.path(id)
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove classification file %s: %w", p, err)
	}
	return nil
}

var _ classification.Deleter = (*Backend)(nil)

func init() {
	classification.MustRegister(Impl, map[string]any{
		"dir":          DefaultDir,
		"subdir_split": 0,
	}, func(params map[string]any) (classification.Backend, error) {
		var cfg Config
		if err := classification.DecodeConfig(params, &cfg); err != nil {
			return nil, err
		}
		return New(cfg), nil
	})
}
