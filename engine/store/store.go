// Package store implements the embedded relational component catalog: an
// on-disk SQLite database reachable only through this package, migrated on
// open and queried through plain database/sql.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Store owns the component catalog's database connection. Open creates it
// and Shutdown closes it; there is no package-level instance, so each
// caller opens its own Store and passes it on explicitly.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at path and runs
// any pending migrations. The directory is created with 0700 permissions;
// the database file itself is chmod'd 0600 after first creation.
func Open(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, &StoreError{Kind: Io, Detail: fmt.Sprintf("mkdir %s: %v", dir, err)}
		}
		_, statErr := os.Stat(path)
		isNew := os.IsNotExist(statErr)

		dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
		db, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, &StoreError{Kind: Io, Detail: err.Error()}
		}
		s := &Store{db: db}
		if err := s.migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		// sql.Open does not touch the file; migrate is the first use that
		// creates it, so the chmod comes after.
		if isNew {
			_ = os.Chmod(path, 0o600)
		}
		return s, nil
	}

	db, err := sql.Open("sqlite", "file::memory:?cache=shared")
	if err != nil {
		return nil, &StoreError{Kind: Io, Detail: err.Error()}
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Shutdown closes the underlying connection.
func (s *Store) Shutdown() error {
	return s.db.Close()
}
