// Package storetest holds the behavioural contract every DocumentStore backend
// must satisfy. Backend packages call Run from their own tests.
package storetest

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"carveout/pkg/domain"
)

// Run exercises save, load, list, overwrite and delete against a fresh store.
func Run(t *testing.T, open func(t *testing.T) domain.DocumentStore) {
	t.Helper()
	ctx := context.Background()
	store := open(t)
	t.Cleanup(func() { _ = store.Close() })

	if _, err := store.Load(ctx, "missing"); !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	stamp := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	b := domain.DocumentRecord{
		Name:      "b",
		Version:   1,
		Content:   json.RawMessage(`{"strokes":{"generation":0,"entries":[]}}`),
		Protocol:  json.RawMessage(`{"head":0,"nodes":[]}`),
		UpdatedAt: stamp,
	}
	a := b
	a.Name = "a"
	for _, rec := range []domain.DocumentRecord{b, a} {
		if err := store.Save(ctx, rec); err != nil {
			t.Fatalf("save %s: %v", rec.Name, err)
		}
	}
	got, err := store.Load(ctx, "b")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Name != "b" || got.Version != 1 || !got.UpdatedAt.Equal(stamp) {
		t.Fatalf("unexpected record %+v", got)
	}
	if !jsonEqual(got.Content, b.Content) || !jsonEqual(got.Protocol, b.Protocol) {
		t.Fatalf("payload mismatch: %s / %s", got.Content, got.Protocol)
	}

	b.Protocol = json.RawMessage(`{"head":1,"nodes":[]}`)
	if err := store.Save(ctx, b); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err = store.Load(ctx, "b")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !jsonEqual(got.Protocol, b.Protocol) {
		t.Fatalf("overwrite not visible: %s", got.Protocol)
	}

	infos, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 || infos[0].Name != "a" || infos[1].Name != "b" {
		t.Fatalf("unexpected listing %+v", infos)
	}
	if infos[0].Size == 0 {
		t.Fatalf("expected non-zero size")
	}

	existed, err := store.Delete(ctx, "a")
	if err != nil || !existed {
		t.Fatalf("delete a: existed=%v err=%v", existed, err)
	}
	existed, err = store.Delete(ctx, "a")
	if err != nil || existed {
		t.Fatalf("second delete: existed=%v err=%v", existed, err)
	}
	if _, err := store.Load(ctx, "a"); !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected deleted document to be gone, got %v", err)
	}
}

func jsonEqual(a, b []byte) bool {
	var va, vb any
	if json.Unmarshal(a, &va) != nil || json.Unmarshal(b, &vb) != nil {
		return false
	}
	ja, _ := json.Marshal(va)
	jb, _ := json.Marshal(vb)
	return string(ja) == string(jb)
}
