// Package savefile reads and writes whole documents as `.co` blobs.
package savefile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"carveout/internal/blob"
	"carveout/internal/core"
	"carveout/pkg/domain"
)

// Extension is appended to every save file key.
const Extension = ".co"

// Format tags the envelope so foreign JSON is rejected early.
const Format = "carveout"

// ErrNotSaveFile is returned when a blob is not a carveout envelope.
var ErrNotSaveFile = errors.New("savefile: not a carveout save file")

type envelope struct {
	Format   string          `json:"format"`
	Version  int             `json:"version"`
	Content  json.RawMessage `json:"content"`
	Protocol json.RawMessage `json:"protocol"`
}

// Key returns the blob key for name, adding the extension when missing.
func Key(name string) string {
	if strings.HasSuffix(name, Extension) {
		return name
	}
	return name + Extension
}

// Encode writes m's content and undo tree as an envelope to w.
func Encode(w io.Writer, m *core.ContentManager) error {
	rec, err := m.Document("")
	if err != nil {
		return err
	}
	return json.NewEncoder(w).Encode(envelope{
		Format:   Format,
		Version:  rec.Version,
		Content:  rec.Content,
		Protocol: rec.Protocol,
	})
}

// Decode reads an envelope from r and replaces m's document with it. m is
// left untouched on error.
func Decode(r io.Reader, name string, m *core.ContentManager) error {
	var env envelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return fmt.Errorf("%w: %w", ErrNotSaveFile, err)
	}
	if env.Format != Format {
		return fmt.Errorf("%w: format %q", ErrNotSaveFile, env.Format)
	}
	return m.LoadDocument(domain.DocumentRecord{
		Name:     name,
		Version:  env.Version,
		Content:  env.Content,
		Protocol: env.Protocol,
	})
}

// Save writes m to store under Key(name), replacing any previous save.
func Save(ctx context.Context, store blob.Store, name string, m *core.ContentManager) (blob.Info, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, m); err != nil {
		return blob.Info{}, err
	}
	info, err := store.Put(ctx, Key(name), bytes.NewReader(buf.Bytes()), blob.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"format": Format, "version": strconv.Itoa(core.DocumentVersion)},
	})
	if err != nil {
		return blob.Info{}, fmt.Errorf("save %s: %w", Key(name), err)
	}
	return info, nil
}

// Load reads Key(name) from store into m.
func Load(ctx context.Context, store blob.Store, name string, m *core.ContentManager) error {
	_, rc, err := store.Get(ctx, Key(name))
	if err != nil {
		return fmt.Errorf("load %s: %w", Key(name), err)
	}
	defer func() { _ = rc.Close() }()
	if err := Decode(rc, strings.TrimSuffix(name, Extension), m); err != nil {
		return fmt.Errorf("load %s: %w", Key(name), err)
	}
	return nil
}

// List returns the names of the save files under prefix, without extension.
func List(ctx context.Context, store blob.Store, prefix string) ([]string, error) {
	infos, err := store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, info := range infos {
		if name, ok := strings.CutSuffix(info.Key, Extension); ok {
			names = append(names, name)
		}
	}
	return names, nil
}
