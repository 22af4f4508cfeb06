// Package sqlite stores classification maps in a SQLite database.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/FrenchMajesty/descriptor-classifier/pkg/classification"
)

// Impl is the registered implementation name
const Impl = "sqlite"

const (
	// DefaultPath is the default database file
	DefaultPath = "./classifications.db"

	// DefaultTable is the default table name
	DefaultTable = "classifications"
)

var tablePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config configures the SQLite backend
type Config struct {
	Path  string `yaml:"path" validate:"required"`
	Table string `yaml:"table" validate:"required"`
}

// Backend implements classification.Backend on a SQLite table
type Backend struct {
	db    *sql.DB
	table string
}

var (
	dbLock sync.Mutex
	dbs    = make(map[string]*sql.DB)
)

// open returns the shared handle for path, opening it on first use
func open(path string) (*sql.DB, error) {
	dbLock.Lock()
	defer dbLock.Unlock()

	if db, ok := dbs[path]; ok {
		return db, nil
	}

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	dbs[path] = db
	return db, nil
}

// New opens (or reuses) the database at cfg.Path and ensures the table exists
func New(cfg Config) (*Backend, error) {
	if !tablePattern.MatchString(cfg.Table) {
		return nil, fmt.Errorf("invalid table name %q", cfg.Table)
	}

	db, err := open(cfg.Path)
	if err != nil {
		return nil, err
	}

	schema := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		type_name TEXT NOT NULL,
		uid TEXT NOT NULL,
		classification TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (type_name, uid)
	)`, cfg.Table)
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("creating table %s: %w", cfg.Table, err)
	}

	return &Backend{db: db, table: cfg.Table}, nil
}

// Get implements classification.Backend
func (b *Backend) Get(id classification.Identity) (*classification.Map, error) {
	var raw string
	err := b.db.QueryRow(
		fmt.Sprintf(`SELECT classification FROM %s WHERE type_name = ? AND uid = ?`, b.table),
		id.TypeName, id.UID,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, classification.ErrNoClassification
	}
	if err != nil {
		return nil, fmt.Errorf("querying classification: %w", err)
	}

	m := classification.NewMap()
	if err := json.Unmarshal([]byte(raw), m); err != nil {
		return nil, fmt.Errorf("decoding classification: %w", err)
	}
	if m.Len() == 0 {
		return nil, classification.ErrNoClassification
	}
	return m, nil
}

// Set implements classification.Backend
func (b *Backend) Set(id classification.Identity, m *classification.Map) error {
	if m.Len() == 0 {
		return classification.ErrNoLabels
	}

	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding classification: %w", err)
	}

	_, err = b.db.Exec(
		fmt.Sprintf(`INSERT INTO %s (type_name, uid, classification, updated_at)
			VALUES (?, ?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT (type_name, uid) DO UPDATE SET
				classification = excluded.classification,
				updated_at = excluded.updated_at`, b.table),
		id.TypeName, id.UID, string(raw),
	)
	if err != nil {
		return fmt.Errorf("storing classification: %w", err)
	}
	return nil
}

// Has implements classification.Backend
func (b *Backend) Has(id classification.Identity) (bool, error) {
	var n int
	err := b.db.QueryRow(
		fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE type_name = ? AND uid = ?`, b.table),
		id.TypeName, id.UID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking classification: %w", err)
	}
	return n > 0, nil
}

// Delete removes the stored classification for id, if any
func (b *Backend) Delete(id classification.Identity) error {
	_, err := b.db.Exec(
		fmt.Sprintf(`DELETE FROM %s WHERE type_name = ? AND uid = ?`, b.table),
		id.TypeName, id.UID,
	)
	if err != nil {
		return fmt.Errorf("deleting classification: %w", err)
	}
	return nil
}

// Count returns the number of stored classifications
func (b *Backend) Count() (int, error) {
	var n int
	if err := b.db.QueryRow(fmt.Sprintf(`SELECT COUNT(*) FROM %s`, b.table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting classifications: %w", err)
	}
	return n, nil
}

var (
	_ classification.Deleter = (*Backend)(nil)
	_ classification.Counter = (*Backend)(nil)
)

func init() {
	classification.MustRegister(Impl, map[string]any{
		"path":  DefaultPath,
		"table": DefaultTable,
	}, func(params map[string]any) (classification.Backend, error) {
		var cfg Config
		if err := classification.DecodeConfig(params, &cfg); err != nil {
			return nil, err
		}
		return New(cfg)
	})
}
