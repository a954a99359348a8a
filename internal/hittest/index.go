// Package hittest keeps a geometry cache of a document's strokes in step with
// the content manager's delta and answers point and lasso queries against it.
package hittest

import (
	"slices"

	"carveout/internal/core"
	"carveout/pkg/domain"
)

type entry struct {
	bounds domain.Rect
	points []domain.Point
	radius float32
}

// Index caches stroke geometry by id. The zero value is not usable; call New.
type Index struct {
	entries map[domain.StrokeID]entry
}

// New returns an empty index.
func New() *Index {
	return &Index{entries: make(map[domain.StrokeID]entry)}
}

// Len returns the number of cached strokes.
func (x *Index) Len() int { return len(x.entries) }

// Reset drops every cached stroke.
func (x *Index) Reset() { clear(x.entries) }

// Rebuild resets the index and caches every stroke in access.
func (x *Index) Rebuild(access core.ContentAccess) {
	x.Reset()
	for id, s := range access.Strokes() {
		x.put(id, s.Clone())
	}
}

// Sync brings the index up to date with delta. Every id the delta names is
// re-read from access, so duplicates and ids that were removed and restored
// within one delta resolve to the current content.
func (x *Index) Sync(access core.ContentAccess, delta domain.ContentDelta) {
	for _, list := range [][]domain.StrokeID{delta.Strokes.Removed, delta.Strokes.Added, delta.Strokes.Modified} {
		for _, id := range list {
			if s, ok := access.Stroke(id); ok {
				x.put(id, s)
			} else {
				delete(x.entries, id)
			}
		}
	}
}

func (x *Index) put(id domain.StrokeID, s domain.Stroke) {
	r := s.Width / 2
	x.entries[id] = entry{bounds: s.Bounds().Inflate(r), points: s.Points, radius: r}
}

// At returns the strokes passing within radius of p, ordered by id.
func (x *Index) At(p domain.Point, radius float32) []domain.StrokeID {
	var hits []domain.StrokeID
	for id, e := range x.entries {
		if !e.bounds.Inflate(radius).Contains(p) {
			continue
		}
		reach := radius + e.radius
		for i := range e.points {
			a, b := e.points[i], e.points[min(i+1, len(e.points)-1)]
			if segmentDist2(p, a, b) <= reach*reach {
				hits = append(hits, id)
				break
			}
		}
	}
	slices.SortFunc(hits, domain.CompareStrokeIDs)
	return hits
}

// InPolygon returns the strokes with a point inside poly or a segment
// crossing its outline, ordered by id. Polygons with fewer than three
// vertices select nothing.
func (x *Index) InPolygon(poly []domain.Point) []domain.StrokeID {
	if len(poly) < 3 {
		return nil
	}
	box := domain.BoundsOf(poly)
	var hits []domain.StrokeID
	for id, e := range x.entries {
		if !box.Intersects(e.bounds) {
			continue
		}
		if strokeInPolygon(e.points, poly) {
			hits = append(hits, id)
		}
	}
	slices.SortFunc(hits, domain.CompareStrokeIDs)
	return hits
}

func strokeInPolygon(pts, poly []domain.Point) bool {
	for _, p := range pts {
		if containsPoint(poly, p) {
			return true
		}
	}
	for i := 0; i+1 < len(pts); i++ {
		for j := range poly {
			if segmentsCross(pts[i], pts[i+1], poly[j], poly[(j+1)%len(poly)]) {
				return true
			}
		}
	}
	return false
}

// containsPoint is the even-odd rule.
func containsPoint(poly []domain.Point, p domain.Point) bool {
	inside := false
	for i, j := 0, len(poly)-1; i < len(poly); j, i = i, i+1 {
		a, b := poly[i], poly[j]
		if (a.Y > p.Y) != (b.Y > p.Y) && p.X < (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y)+a.X {
			inside = !inside
		}
	}
	return inside
}

func cross(o, a, b domain.Point) float32 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

func segmentsCross(p1, p2, q1, q2 domain.Point) bool {
	d1, d2 := cross(q1, q2, p1), cross(q1, q2, p2)
	d3, d4 := cross(p1, p2, q1), cross(p1, p2, q2)
	return ((d1 > 0) != (d2 > 0)) && ((d3 > 0) != (d4 > 0)) && d1 != 0 && d2 != 0 && d3 != 0 && d4 != 0
}

func segmentDist2(p, a, b domain.Point) float32 {
	ab := b.Sub(a)
	l2 := ab.X*ab.X + ab.Y*ab.Y
	if l2 == 0 {
		return p.Dist2(a)
	}
	ap := p.Sub(a)
	t := min(max((ap.X*ab.X+ap.Y*ab.Y)/l2, 0), 1)
	return p.Dist2(domain.Point{X: a.X + t*ab.X, Y: a.Y + t*ab.Y})
}
