// Package sqlite implements the store driver backed by SQLite.
//
// SQLite is supported on a best-effort basis for development and testing.
// Vector search is a brute-force cosine scan in Go rather than an index
// lookup, which is fine for the rule-corpus sizes this service handles.
package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	// Import the SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/hrygo/nutriscreen/internal/profile"
	"github.com/hrygo/nutriscreen/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a SQLite database specified by the profile DSN.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	// Notes:
	// - When using the `modernc.org/sqlite` driver, each pragma must be prefixed
	//   with `_pragma=`.
	// - WAL journal mode prevents locking issues for the read-mostly workload.
	sqliteDB, err := sql.Open("sqlite", profile.DSN+"&_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	// SQLite: single connection is optimal with WAL.
	sqliteDB.SetMaxOpenConns(1)
	sqliteDB.SetMaxIdleConns(1)
	sqliteDB.SetConnMaxLifetime(0)

	driver := DB{db: sqliteDB, profile: profile}

	return &driver, nil
}

func (d *DB) GetDB() any {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

// Migrate creates the corpus schema. Embeddings are stored as little-endian
// float32 BLOBs keyed by (document_id, model).
func (d *DB) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS document (
			id TEXT PRIMARY KEY,
			file_id TEXT NOT NULL,
			file_name TEXT NOT NULL DEFAULT '',
			chunk_id TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL,
			created_ts INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_document_file_id ON document (file_id)`,
		`CREATE TABLE IF NOT EXISTS document_embedding (
			document_id TEXT NOT NULL REFERENCES document (id) ON DELETE CASCADE,
			model TEXT NOT NULL,
			embedding BLOB NOT NULL,
			created_ts INTEGER NOT NULL,
			PRIMARY KEY (document_id, model)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "failed to migrate schema")
		}
	}
	return nil
}
