package patchstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/holocron/internal/apperr"
	"github.com/starford/holocron/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS patches (
	id            TEXT PRIMARY KEY,
	data          TEXT NOT NULL DEFAULT '{}',
	last_modified DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_patches_last_modified ON patches(last_modified);
`

// SQLite is a Backend storing one row per patched record.
type SQLite struct {
	conn *sql.DB
}

var _ Backend = (*SQLite)(nil)

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(path string) (*SQLite, error) {
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("patchstore: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("patchstore: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("patchstore: apply schema: %w", err)
	}
	return &SQLite{conn: conn}, nil
}

// NewSQLite wraps an already opened connection whose schema is in place.
func NewSQLite(conn *sql.DB) *SQLite {
	return &SQLite{conn: conn}
}

// Get loads the patch row for id.
func (s *SQLite) Get(ctx context.Context, id string) (*models.LocalPatch, error) {
	var (
		raw string
		ts  time.Time
	)
	err := s.conn.QueryRowContext(ctx,
		`SELECT data, last_modified FROM patches WHERE id = ?`, id,
	).Scan(&raw, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select patch: %w", err)
	}

	p := &models.LocalPatch{ID: id, LastModified: ts.UTC()}
	if err := json.Unmarshal([]byte(raw), &p.Data); err != nil {
		return nil, fmt.Errorf("decode patch %s: %w", id, err)
	}
	return p, nil
}

// Put upserts the patch row.
func (s *SQLite) Put(ctx context.Context, p *models.LocalPatch) error {
	data, err := json.Marshal(p.Data)
	if err != nil {
		return fmt.Errorf("encode patch %s: %w", p.ID, err)
	}
	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO patches (id, data, last_modified)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			data          = excluded.data,
			last_modified = excluded.last_modified
	`, p.ID, string(data), p.LastModified.UTC())
	if err != nil {
		return fmt.Errorf("upsert patch: %w", err)
	}
	return nil
}

// Delete removes the row for id if present.
func (s *SQLite) Delete(ctx context.Context, id string) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM patches WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete patch: %w", err)
	}
	return nil
}

// List returns all rows ordered by id.
func (s *SQLite) List(ctx context.Context) ([]models.LocalPatch, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT id, data, last_modified FROM patches ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list patches: %w", err)
	}
	defer rows.Close()

	var out []models.LocalPatch
	for rows.Next() {
		var (
			p   models.LocalPatch
			raw string
		)
		if err := rows.Scan(&p.ID, &raw, &p.LastModified); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(raw), &p.Data); err != nil {
			return nil, fmt.Errorf("decode patch %s: %w", p.ID, err)
		}
		p.LastModified = p.LastModified.UTC()
		out = append(out, p)
	}
	return out, rows.Err()
}

// Close closes the underlying connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}
