// Package postgres provides a Postgres-backed DocumentStore using the pgx
// database/sql driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"carveout/pkg/domain"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

var _ domain.DocumentStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/carveout?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store keeps one row per document with JSONB payload columns.
type Store struct {
	db *sql.DB
}

// NewStore opens the database at dsn (falling back to a local default),
// pings it and ensures the documents table exists.
func NewStore(dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensureDocumentsTable(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func ensureDocumentsTable(ctx context.Context, db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS documents (
		name TEXT PRIMARY KEY,
		version INTEGER NOT NULL,
		content JSONB NOT NULL,
		protocol JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure documents table: %w", err)
	}
	return nil
}

// Save upserts rec inside a transaction.
func (s *Store) Save(ctx context.Context, rec domain.DocumentRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, `INSERT INTO documents(name,version,content,protocol,updated_at) VALUES($1,$2,$3,$4,$5)
		ON CONFLICT(name) DO UPDATE SET version=EXCLUDED.version, content=EXCLUDED.content,
		protocol=EXCLUDED.protocol, updated_at=EXCLUDED.updated_at`,
		rec.Name, rec.Version, string(rec.Content), string(rec.Protocol), rec.UpdatedAt.UTC()); err != nil {
		return fmt.Errorf("upsert %s: %w", rec.Name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// Load returns the named document.
func (s *Store) Load(ctx context.Context, name string) (domain.DocumentRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, version, content, protocol, updated_at FROM documents WHERE name = $1`, name)
	if err != nil {
		return domain.DocumentRecord{}, fmt.Errorf("select %s: %w", name, err)
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return domain.DocumentRecord{}, fmt.Errorf("select %s: %w", name, err)
		}
		return domain.DocumentRecord{}, domain.ErrDocumentNotFound
	}
	return scanRecord(rows)
}

func scanRecord(rows *sql.Rows) (domain.DocumentRecord, error) {
	var (
		rec     domain.DocumentRecord
		content []byte
		proto   []byte
		updated time.Time
	)
	if err := rows.Scan(&rec.Name, &rec.Version, &content, &proto, &updated); err != nil {
		return domain.DocumentRecord{}, fmt.Errorf("scan document: %w", err)
	}
	rec.Content, rec.Protocol, rec.UpdatedAt = content, proto, updated.UTC()
	return rec, nil
}

// List returns document summaries ordered by name.
func (s *Store) List(ctx context.Context) ([]domain.DocumentInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, version, content, protocol, updated_at FROM documents ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.DocumentInfo
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.DocumentInfo{
			Name:      rec.Name,
			Version:   rec.Version,
			Size:      int64(len(rec.Content) + len(rec.Protocol)),
			UpdatedAt: rec.UpdatedAt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	slices.SortFunc(out, func(a, b domain.DocumentInfo) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

// Delete removes the named document.
func (s *Store) Delete(ctx context.Context, name string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE name=$1`, name)
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Join(fmt.Errorf("delete %s", name), err)
	}
	return n > 0, nil
}

// Close closes the pool.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
