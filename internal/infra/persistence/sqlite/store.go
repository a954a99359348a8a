// Package sqlite persists documents to an embedded SQLite file using the pure
// Go modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"carveout/pkg/domain"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

var _ domain.DocumentStore = (*Store)(nil)

// Store keeps one row per document, content and protocol stored as JSON blobs.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (creating when needed) the database at path. An empty path
// defaults to carveout.db in the working directory.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "carveout.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS documents (
		name TEXT PRIMARY KEY,
		version INTEGER NOT NULL,
		content BLOB NOT NULL,
		protocol BLOB NOT NULL,
		updated_at TEXT NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create documents table: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Save upserts rec.
func (s *Store) Save(ctx context.Context, rec domain.DocumentRecord) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO documents(name,version,content,protocol,updated_at) VALUES(?,?,?,?,?)
		ON CONFLICT(name) DO UPDATE SET version=excluded.version, content=excluded.content,
		protocol=excluded.protocol, updated_at=excluded.updated_at`,
		rec.Name, rec.Version, []byte(rec.Content), []byte(rec.Protocol), rec.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("upsert %s: %w", rec.Name, err)
	}
	return nil
}

// Load returns the named document.
func (s *Store) Load(ctx context.Context, name string) (domain.DocumentRecord, error) {
	var (
		rec     domain.DocumentRecord
		content []byte
		proto   []byte
		updated string
	)
	err := s.db.QueryRowContext(ctx, `SELECT name, version, content, protocol, updated_at FROM documents WHERE name = ?`, name).
		Scan(&rec.Name, &rec.Version, &content, &proto, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DocumentRecord{}, domain.ErrDocumentNotFound
	}
	if err != nil {
		return domain.DocumentRecord{}, fmt.Errorf("select %s: %w", name, err)
	}
	rec.Content, rec.Protocol = content, proto
	if rec.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return domain.DocumentRecord{}, fmt.Errorf("decode updated_at of %s: %w", name, err)
	}
	return rec, nil
}

// List returns document summaries ordered by name.
func (s *Store) List(ctx context.Context) ([]domain.DocumentInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, version, length(content) + length(protocol), updated_at FROM documents ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.DocumentInfo
	for rows.Next() {
		var (
			info    domain.DocumentInfo
			updated string
		)
		if err := rows.Scan(&info.Name, &info.Version, &info.Size, &updated); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if info.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
			return nil, fmt.Errorf("decode updated_at of %s: %w", info.Name, err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// Delete removes the named document.
func (s *Store) Delete(ctx context.Context, name string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE name = ?`, name)
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
