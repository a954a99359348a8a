// Package memory provides an in-memory DocumentStore for tests and ephemeral sessions.
package memory

import (
	"bytes"
	"context"
	"slices"
	"strings"
	"sync"

	"carveout/pkg/domain"
)

var _ domain.DocumentStore = (*Store)(nil)

// Store keeps documents in a map guarded by a RWMutex.
type Store struct {
	mu   sync.RWMutex
	docs map[string]domain.DocumentRecord
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{docs: make(map[string]domain.DocumentRecord)}
}

func cloneRecord(rec domain.DocumentRecord) domain.DocumentRecord {
	rec.Content = bytes.Clone(rec.Content)
	rec.Protocol = bytes.Clone(rec.Protocol)
	return rec
}

// Save stores a copy of rec.
func (s *Store) Save(_ context.Context, rec domain.DocumentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[rec.Name] = cloneRecord(rec)
	return nil
}

// Load returns a copy of the named document.
func (s *Store) Load(_ context.Context, name string) (domain.DocumentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.docs[name]
	if !ok {
		return domain.DocumentRecord{}, domain.ErrDocumentNotFound
	}
	return cloneRecord(rec), nil
}

// List returns every document ordered by name.
func (s *Store) List(_ context.Context) ([]domain.DocumentInfo, error) {
	s.mu.RLock()
	out := make([]domain.DocumentInfo, 0, len(s.docs))
	for _, rec := range s.docs {
		out = append(out, domain.DocumentInfo{
			Name:      rec.Name,
			Version:   rec.Version,
			Size:      int64(len(rec.Content) + len(rec.Protocol)),
			UpdatedAt: rec.UpdatedAt,
		})
	}
	s.mu.RUnlock()
	slices.SortFunc(out, func(a, b domain.DocumentInfo) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

// Delete removes the named document.
func (s *Store) Delete(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.docs[name]
	delete(s.docs, name)
	return ok, nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }
