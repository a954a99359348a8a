package hittest

import (
	"slices"
	"testing"

	"carveout/internal/core"
	"carveout/pkg/domain"
)

func hline(t *testing.T, y float32, x0, x1 float32) domain.Stroke {
	t.Helper()
	s, err := domain.NewStroke([]domain.Point{{X: x0, Y: y}, {X: x1, Y: y}}, domain.White, 2)
	if err != nil {
		t.Fatalf("stroke: %v", err)
	}
	return s
}

func add(t *testing.T, m *core.ContentManager, s domain.Stroke) domain.StrokeID {
	t.Helper()
	cmd := core.NewAddStroke(s)
	if err := m.RunCmd(cmd); err != nil {
		t.Fatalf("run: %v", err)
	}
	id, _ := cmd.ID()
	return id
}

func sync(x *Index, m *core.ContentManager) {
	x.Sync(m.Access(), m.Delta())
	m.ResetDelta()
}

func TestSyncFollowsDelta(t *testing.T) {
	m := core.NewContentManager()
	x := New()
	a := add(t, m, hline(t, 0, 0, 10))
	b := add(t, m, hline(t, 20, 0, 10))
	sync(x, m)
	if x.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", x.Len())
	}
	if got := x.At(domain.Point{X: 5, Y: 20.5}, 0); !slices.Equal(got, []domain.StrokeID{b}) {
		t.Fatalf("expected hit on b, got %v", got)
	}

	tr, _ := core.NewTransformStrokes([]domain.StrokeID{a}, domain.Translate(0, 100))
	if err := m.RunCmd(tr); err != nil {
		t.Fatalf("transform: %v", err)
	}
	sync(x, m)
	if got := x.At(domain.Point{X: 5, Y: 0}, 0.5); len(got) != 0 {
		t.Fatalf("moved stroke still hit at old place: %v", got)
	}
	if got := x.At(domain.Point{X: 5, Y: 100}, 0); !slices.Equal(got, []domain.StrokeID{a}) {
		t.Fatalf("expected hit on moved a, got %v", got)
	}

	if err := m.RunCmd(core.NewRemoveStroke(b)); err != nil {
		t.Fatalf("remove: %v", err)
	}
	m.UndoCmd()
	m.UndoCmd()
	// b was removed and restored within one delta; a moved back.
	sync(x, m)
	if got := x.At(domain.Point{X: 5, Y: 20}, 0); !slices.Equal(got, []domain.StrokeID{b}) {
		t.Fatalf("restored b missing: %v", got)
	}
	if got := x.At(domain.Point{X: 5, Y: 0}, 0); !slices.Equal(got, []domain.StrokeID{a}) {
		t.Fatalf("a should be back at y=0: %v", got)
	}
}

func TestSyncIsIdempotent(t *testing.T) {
	m := core.NewContentManager()
	x := New()
	add(t, m, hline(t, 0, 0, 10))
	d := m.Delta()
	x.Sync(m.Access(), d)
	x.Sync(m.Access(), d)
	if x.Len() != 1 {
		t.Fatalf("replaying a delta must not duplicate entries")
	}
}

func TestRebuildAfterReplace(t *testing.T) {
	m := core.NewContentManager()
	x := New()
	add(t, m, hline(t, 0, 0, 10))
	sync(x, m)
	other := core.NewContentManager()
	add(t, other, hline(t, 5, 0, 10))
	add(t, other, hline(t, 6, 0, 10))
	m.Replace(other.Snapshot())
	sync(x, m)
	if x.Len() != 2 {
		t.Fatalf("expected replace delta to leave exactly the new strokes, got %d", x.Len())
	}
	x.Reset()
	if x.Len() != 0 {
		t.Fatalf("reset should empty the index")
	}
	x.Rebuild(m.Access())
	if x.Len() != 2 {
		t.Fatalf("rebuild should see every stroke")
	}
}

func TestAtRespectsWidthAndRadius(t *testing.T) {
	m := core.NewContentManager()
	x := New()
	id := add(t, m, hline(t, 0, 0, 10))
	sync(x, m)
	cases := []struct {
		p      domain.Point
		radius float32
		hit    bool
	}{
		{domain.Point{X: 5, Y: 0.9}, 0, true},
		{domain.Point{X: 5, Y: 1.5}, 0, false},
		{domain.Point{X: 5, Y: 1.5}, 1, true},
		{domain.Point{X: 12, Y: 0}, 0.5, false},
		{domain.Point{X: 11.5, Y: 0}, 0.6, true},
	}
	for _, tc := range cases {
		got := x.At(tc.p, tc.radius)
		if tc.hit != slices.Contains(got, id) {
			t.Fatalf("At(%+v, %v) = %v, want hit=%v", tc.p, tc.radius, got, tc.hit)
		}
	}
}

func TestInPolygon(t *testing.T) {
	m := core.NewContentManager()
	x := New()
	inside := add(t, m, hline(t, 5, 2, 4))
	crossing := add(t, m, hline(t, 8, -5, 5))
	add(t, m, hline(t, 50, 0, 10))
	sync(x, m)
	square := []domain.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}}
	if got := x.InPolygon(square); !slices.Equal(got, []domain.StrokeID{inside, crossing}) {
		t.Fatalf("unexpected selection %v", got)
	}
	if got := x.InPolygon(square[:2]); got != nil {
		t.Fatalf("degenerate polygon should select nothing, got %v", got)
	}
	spanning := add(t, m, hline(t, 3, -20, 20))
	sync(x, m)
	if got := x.InPolygon(square); !slices.Contains(got, spanning) {
		t.Fatalf("stroke crossing the whole loop should be selected, got %v", got)
	}
}

func TestRebuildOwnsItsGeometry(t *testing.T) {
	m := core.NewContentManager()
	a := add(t, m, hline(t, 0, 0, 10))
	x := New()
	x.Rebuild(m.Access())
	m.ResetDelta()

	tr, _ := core.NewTransformStrokes([]domain.StrokeID{a}, domain.Translate(0, 50))
	if err := m.RunCmd(tr); err != nil {
		t.Fatalf("transform: %v", err)
	}
	// Transforms edit points in place; the cache keeps the old geometry until synced.
	if got := x.At(domain.Point{X: 5, Y: 0}, 0); !slices.Equal(got, []domain.StrokeID{a}) {
		t.Fatalf("cache followed an unsynced edit: %v", got)
	}
	sync(x, m)
	if got := x.At(domain.Point{X: 5, Y: 50}, 0); !slices.Equal(got, []domain.StrokeID{a}) {
		t.Fatalf("expected hit after sync, got %v", got)
	}
}
