package domain

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrDocumentNotFound is returned by a DocumentStore when no document has the requested name.
var ErrDocumentNotFound = errors.New("document not found")

// DocumentRecord is the persisted form of a document: the encoded content
// arena and the encoded protocol tree, stored side by side so that a load
// restores the full undo history.
type DocumentRecord struct {
	Name      string          `json:"name"`
	Version   int             `json:"version"`
	Content   json.RawMessage `json:"content"`
	Protocol  json.RawMessage `json:"protocol"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// DocumentInfo summarizes a stored document without its payload.
type DocumentInfo struct {
	Name      string    `json:"name"`
	Version   int       `json:"version"`
	Size      int64     `json:"size_bytes"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DocumentStore is a minimal abstraction over durable document backends.
type DocumentStore interface {
	// Save writes rec under rec.Name, replacing any previous version.
	Save(ctx context.Context, rec DocumentRecord) error
	// Load returns the document stored under name or ErrDocumentNotFound.
	Load(ctx context.Context, name string) (DocumentRecord, error)
	// List returns stored documents ordered by name.
	List(ctx context.Context) ([]DocumentInfo, error)
	// Delete removes a document, reporting whether it existed.
	Delete(ctx context.Context, name string) (bool, error)
	// Close releases backend resources.
	Close() error
}
