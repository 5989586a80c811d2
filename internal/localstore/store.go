// Package localstore is the on-device cache of categories, items and recipes
// together with the durable queue of mutations made while offline.
//
// Records are kept as JSON bodies keyed by id, one SQLite table per kind.
// Every call commits before it returns, so a crash never loses an
// acknowledged write.
package localstore

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/rs/zerolog"

	"github.com/erauner12/groceries/internal/model"
)

// FileName is the database file created inside the data directory.
const FileName = "groceries.db"

//go:embed schema.sql
var schemaSQL string

// ErrUnknownKind is returned for a kind outside the closed set of tables.
var ErrUnknownKind = errors.New("unknown record kind")

// PersistenceError reports a failed read or write of the local database.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("local store %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsPersistence reports whether err came from the local store.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

func fail(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}

// Store is the SQLite-backed local cache.
type Store struct {
	db     *sql.DB
	path   string
	logger zerolog.Logger
}

// OpenDir opens (creating if needed) the store file inside dir.
func OpenDir(dir string, logger zerolog.Logger) (*Store, error) {
	return Open(filepath.Join(dir, FileName), logger)
}

// Open opens the database at path and applies the schema.
func Open(path string, logger zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fail("open", fmt.Errorf("create data directory: %w", err))
	}

	db, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fail("open", err)
	}
	// One connection keeps pragmas consistent and serializes writers.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fail("open", fmt.Errorf("%s: %w", pragma, err))
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fail("open", fmt.Errorf("apply schema: %w", err))
	}

	logger.Debug().Str("path", path).Msg("local store opened")
	return &Store{db: db, path: path, logger: logger}, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close checkpoints the WAL and closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		s.logger.Warn().Err(err).Msg("wal checkpoint failed")
	}
	err := s.db.Close()
	s.db = nil
	return fail("close", err)
}

func table(kind model.Kind) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return string(kind), nil
}
