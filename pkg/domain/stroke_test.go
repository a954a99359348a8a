package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"carveout/pkg/arena"
)

func TestNewStrokeRequiresTwoPoints(t *testing.T) {
	if _, err := NewStroke([]Point{{X: 1}}, White, 1); !errors.Is(err, ErrTooFewPoints) {
		t.Fatalf("expected ErrTooFewPoints, got %v", err)
	}
	pts := []Point{{X: 0, Y: 0}, {X: 2, Y: 3}}
	s, err := NewStroke(pts, White, 2)
	if err != nil {
		t.Fatalf("NewStroke: %v", err)
	}
	pts[0].X = 42
	if s.Points[0].X != 0 {
		t.Fatalf("stroke must not alias caller points")
	}
}

func TestStrokeBoundsCloneEqual(t *testing.T) {
	s, _ := NewStroke([]Point{{X: -1, Y: 4}, {X: 3, Y: -2}}, White, 1)
	b := s.Bounds()
	if b.Min != (Point{X: -1, Y: -2}) || b.Max != (Point{X: 3, Y: 4}) {
		t.Fatalf("unexpected bounds %+v", b)
	}
	c := s.Clone()
	if !c.Equal(s) {
		t.Fatalf("clone should equal original")
	}
	c.AddPoint(Point{X: 9, Y: 9})
	if c.Equal(s) || len(s.Points) != 2 {
		t.Fatalf("clone mutation leaked into original")
	}
	if !b.Contains(Point{X: 0, Y: 0}) || b.Contains(Point{X: 5, Y: 0}) {
		t.Fatalf("contains misbehaves")
	}
	if !b.Intersects(b.Inflate(1)) || b.Intersects(Rect{Min: Point{X: 10, Y: 10}, Max: Point{X: 11, Y: 11}}) {
		t.Fatalf("intersects misbehaves")
	}
	if BoundsOf(nil) != (Rect{}) {
		t.Fatalf("empty bounds should be zero")
	}
}

func TestStrokeIDJSONShape(t *testing.T) {
	id := NewStrokeID(arena.Index{Slot: 3, Generation: 7})
	data, err := json.Marshal(id)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"slot":3,"generation":7}` {
		t.Fatalf("unexpected encoding %s", data)
	}
	if id.String() != "3:7" {
		t.Fatalf("unexpected string %q", id.String())
	}
	if CompareStrokeIDs(id, NewStrokeID(arena.Index{Slot: 4})) >= 0 {
		t.Fatalf("expected ordering by slot")
	}
}

func TestDeltaClearKeepsLists(t *testing.T) {
	var d ContentDelta
	if !d.IsEmpty() {
		t.Fatalf("zero delta should be empty")
	}
	a := NewStrokeID(arena.Index{Slot: 1})
	b := NewStrokeID(arena.Index{Slot: 2})
	d.Strokes.Added = append(d.Strokes.Added, a)
	d.Strokes.Modified = append(d.Strokes.Modified, b, b)
	touched := d.Strokes.Touched()
	if len(touched) != 3 || touched[0] != a {
		t.Fatalf("unexpected touched %v", touched)
	}
	d.Clear()
	if !d.IsEmpty() {
		t.Fatalf("expected empty after clear")
	}
}
