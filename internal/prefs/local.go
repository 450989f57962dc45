package prefs

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Schema for the local fallback tier. Keys are stored namespaced so the
// table can be shared with other agents pointing at the same database.
const localSchema = `
CREATE TABLE IF NOT EXISTS preferences (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);
`

// DefaultNamespace prefixes every key written by the local tier.
const DefaultNamespace = "domtuner."

// Local is the SQLite fallback tier. It stores serialised text values
// under namespaced copies of the shared key names.
type Local struct {
	db        *sql.DB
	namespace string
}

// NewLocal creates the local tier over an open database and applies the
// schema.
func NewLocal(db *sql.DB) (*Local, error) {
	if db == nil {
		return nil, fmt.Errorf("prefs: local tier requires a database")
	}
	if _, err := db.Exec(localSchema); err != nil {
		return nil, fmt.Errorf("prefs: local schema: %w", err)
	}
	return &Local{db: db, namespace: DefaultNamespace}, nil
}

func (l *Local) Name() string { return "local" }

// Available probes the database connection.
func (l *Local) Available(ctx context.Context) bool {
	return l.db != nil && l.db.PingContext(ctx) == nil
}

// Read returns every namespaced key with the namespace stripped.
func (l *Local) Read(ctx context.Context) (Record, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT key, value FROM preferences WHERE key LIKE ? || '%'`, l.namespace)
	if err != nil {
		return nil, fmt.Errorf("prefs: local read: %w", err)
	}
	defer rows.Close()

	rec := make(Record)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("prefs: local scan: %w", err)
		}
		rec[strings.TrimPrefix(key, l.namespace)] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("prefs: local rows: %w", err)
	}
	return rec, nil
}

// Write upserts each entry. Entries persist across restarts and are never
// explicitly deleted.
func (l *Local) Write(ctx context.Context, rec Record) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("prefs: local begin: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	for key, value := range rec {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO preferences (key, value, updated_at) VALUES (?,?,?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			l.namespace+key, value, now)
		if err != nil {
			return fmt.Errorf("prefs: local upsert %s: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("prefs: local commit: %w", err)
	}
	return nil
}
