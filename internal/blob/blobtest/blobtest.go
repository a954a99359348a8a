// Package blobtest holds the behavioural contract every blob.Store backend
// must satisfy.
package blobtest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"carveout/internal/blob/core"
)

// Run exercises open's store against the shared contract. Each subtest gets
// a fresh store.
func Run(t *testing.T, open func(t *testing.T) core.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing", func(t *testing.T) {
		s := open(t)
		if _, err := s.Head(ctx, "nope.co"); !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("head: expected ErrNotFound, got %v", err)
		}
		if _, _, err := s.Get(ctx, "nope.co"); !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("get: expected ErrNotFound, got %v", err)
		}
		if ok, err := s.Delete(ctx, "nope.co"); err != nil || ok {
			t.Fatalf("delete missing: ok=%v err=%v", ok, err)
		}
	})

	t.Run("put get overwrite", func(t *testing.T) {
		s := open(t)
		opts := core.PutOptions{ContentType: "application/json", Metadata: map[string]string{"format": "carveout"}}
		info, err := s.Put(ctx, "docs/a.co", bytes.NewReader([]byte("first")), opts)
		if err != nil {
			t.Fatalf("put: %v", err)
		}
		if info.Key != "docs/a.co" || info.Size != 5 {
			t.Fatalf("unexpected info %+v", info)
		}
		if _, err := s.Put(ctx, "docs/a.co", bytes.NewReader([]byte("second!")), opts); err != nil {
			t.Fatalf("overwrite: %v", err)
		}
		got, rc, err := s.Get(ctx, "docs/a.co")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		data, _ := io.ReadAll(rc)
		_ = rc.Close()
		if string(data) != "second!" || got.Size != 7 {
			t.Fatalf("expected overwritten body, got %q (%d)", data, got.Size)
		}
		if got.ContentType != "application/json" {
			t.Fatalf("content type lost: %+v", got)
		}
		head, err := s.Head(ctx, "docs/a.co")
		if err != nil || head.Size != 7 {
			t.Fatalf("head: %+v %v", head, err)
		}
	})

	t.Run("list and delete", func(t *testing.T) {
		s := open(t)
		for _, k := range []string{"docs/b.co", "docs/a.co", "other.co"} {
			if _, err := s.Put(ctx, k, bytes.NewReader([]byte(k)), core.PutOptions{}); err != nil {
				t.Fatalf("put %s: %v", k, err)
			}
		}
		list, err := s.List(ctx, "docs/")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(list) != 2 || list[0].Key != "docs/a.co" || list[1].Key != "docs/b.co" {
			t.Fatalf("unexpected listing %+v", list)
		}
		all, _ := s.List(ctx, "")
		if len(all) != 3 {
			t.Fatalf("expected three blobs, got %d", len(all))
		}
		if ok, err := s.Delete(ctx, "docs/a.co"); err != nil || !ok {
			t.Fatalf("delete: ok=%v err=%v", ok, err)
		}
		if _, err := s.Head(ctx, "docs/a.co"); !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("expected deleted blob gone, got %v", err)
		}
	})
}
