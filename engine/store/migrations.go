package store

import (
	"context"
	"fmt"
)

type migration struct {
	version int
	sql     string
}

// migrations is applied in order inside its own transaction; a failure
// aborts the transaction and is fatal at startup.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version    INTEGER PRIMARY KEY,
	applied_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS components (
	id             TEXT PRIMARY KEY,
	part_number    TEXT NOT NULL,
	manufacturer   TEXT NOT NULL,
	category       TEXT NOT NULL,
	description    TEXT NOT NULL DEFAULT '',
	datasheet_url  TEXT NOT NULL DEFAULT '',
	specifications TEXT NOT NULL DEFAULT '{}',
	footprint      TEXT NOT NULL DEFAULT '',
	price_info     TEXT NOT NULL DEFAULT '{}',
	availability   TEXT NOT NULL DEFAULT '{}',
	created_at     TEXT NOT NULL,
	updated_at     TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_components_part_number ON components(part_number);
CREATE INDEX IF NOT EXISTS idx_components_category ON components(category);

CREATE TABLE IF NOT EXISTS component_vectors (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	component_id    TEXT NOT NULL REFERENCES components(id) ON DELETE CASCADE,
	vector          BLOB NOT NULL,
	embedding_model TEXT NOT NULL,
	created_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_component_vectors_component_id ON component_vectors(component_id);

CREATE TABLE IF NOT EXISTS component_categories (
	category TEXT PRIMARY KEY,
	label    TEXT NOT NULL
);
`,
	},
}

// migrate applies every migration whose version hasn't been recorded yet,
// in ascending order, each inside its own transaction.
func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY, applied_at TEXT NOT NULL);`); err != nil {
		return &StoreError{Kind: MigrationFailed, Detail: err.Error()}
	}

	applied := make(map[int]bool)
	rows, err := s.db.QueryContext(ctx, `SELECT version FROM schema_version`)
	if err == nil {
		for rows.Next() {
			var v int
			if rows.Scan(&v) == nil {
				applied[v] = true
			}
		}
		rows.Close()
	}

	for _, m := range migrations {
		if applied[m.version] {
			continue
		}
		if err := s.applyMigration(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) applyMigration(ctx context.Context, m migration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &StoreError{Kind: MigrationFailed, Detail: err.Error()}
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.sql); err != nil {
		return &StoreError{Kind: MigrationFailed, Detail: fmt.Sprintf("version %d: %v", m.version, err)}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_version(version, applied_at) VALUES (?, datetime('now'))`, m.version); err != nil {
		return &StoreError{Kind: MigrationFailed, Detail: err.Error()}
	}
	return tx.Commit()
}
