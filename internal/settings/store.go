package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements Store as a key/value table in SQLite. Values are
// JSON-encoded so the layout mirrors a synced key/value store.
type SQLiteStore struct {
	db *sql.DB

	getValues *sql.Stmt
	putValue  *sql.Stmt
	seedValue *sql.Stmt
}

// Open opens (creating if needed) the SQLite database at path, applies
// migrations and returns a ready store. The store owns the database handle.
func Open(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serialises
	// writers.
	db.SetMaxOpenConns(1)

	if err := NewMigrationRunner(db).Run(); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	store, err := NewSQLiteStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLiteStore creates a store from an already-opened and migrated database.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.prepareStatements(); err != nil {
		return nil, fmt.Errorf("prepare statements: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.getValues, err = s.db.Prepare(`SELECT key, value FROM settings WHERE key IN (?, ?)`)
	if err != nil {
		return err
	}

	s.putValue, err = s.db.Prepare(`
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return err
	}

	s.seedValue, err = s.db.Prepare(`INSERT OR IGNORE INTO settings (key, value) VALUES (?, ?)`)
	return err
}

// Load reads both settings keys. A missing domains key yields an empty list
// and a missing skip key yields true.
func (s *SQLiteStore) Load(ctx context.Context) (Settings, error) {
	out := Defaults()

	rows, err := s.getValues.QueryContext(ctx, KeyDomains, KeySkipHomepageRedirect)
	if err != nil {
		return Settings{}, fmt.Errorf("query settings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return Settings{}, fmt.Errorf("scan setting: %w", err)
		}
		switch key {
		case KeyDomains:
			var domains []string
			if err := json.Unmarshal([]byte(value), &domains); err != nil {
				return Settings{}, fmt.Errorf("decode %s: %w", key, err)
			}
			if domains != nil {
				out.Domains = domains
			}
		case KeySkipHomepageRedirect:
			if err := json.Unmarshal([]byte(value), &out.SkipHomepageRedirect); err != nil {
				return Settings{}, fmt.Errorf("decode %s: %w", key, err)
			}
		}
	}
	if err := rows.Err(); err != nil {
		return Settings{}, fmt.Errorf("iterate settings: %w", err)
	}
	return out, nil
}

// SaveDomains replaces the stored domain list.
func (s *SQLiteStore) SaveDomains(ctx context.Context, domains []string) error {
	if domains == nil {
		domains = []string{}
	}
	return s.put(ctx, KeyDomains, domains)
}

// SaveSkipHomepage stores the homepage-skip toggle.
func (s *SQLiteStore) SaveSkipHomepage(ctx context.Context, enabled bool) error {
	return s.put(ctx, KeySkipHomepageRedirect, enabled)
}

func (s *SQLiteStore) put(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if _, err := s.putValue.ExecContext(ctx, key, string(data)); err != nil {
		return fmt.Errorf("store %s: %w", key, err)
	}
	return nil
}

// SeedDefaults inserts default values only for keys that do not exist yet.
func (s *SQLiteStore) SeedDefaults(ctx context.Context) ([]string, error) {
	defaults := []struct {
		key   string
		value string
	}{
		{KeyDomains, "[]"},
		{KeySkipHomepageRedirect, "true"},
	}

	var seeded []string
	for _, d := range defaults {
		res, err := s.seedValue.ExecContext(ctx, d.key, d.value)
		if err != nil {
			return seeded, fmt.Errorf("seed %s: %w", d.key, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return seeded, fmt.Errorf("seed %s: %w", d.key, err)
		}
		if n > 0 {
			seeded = append(seeded, d.key)
		}
	}
	return seeded, nil
}

// Close releases prepared statements and the database handle.
func (s *SQLiteStore) Close() error {
	for _, stmt := range []*sql.Stmt{s.getValues, s.putValue, s.seedValue} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return s.db.Close()
}
