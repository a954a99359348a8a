// Package domain defines the drawable entities of a carveout document and the
// contracts shared between the document engine and its consumers.
package domain

import (
	"errors"
	"math"
	"slices"

	"carveout/pkg/arena"
)

// ErrTooFewPoints is returned when a stroke would be built from fewer than two points.
var ErrTooFewPoints = errors.New("stroke needs at least two points")

// Point is a position in canvas space.
type Point struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Dist2 returns the squared distance between p and q.
func (p Point) Dist2(q Point) float32 {
	d := p.Sub(q)
	return d.X*d.X + d.Y*d.Y
}

// Rect is an axis-aligned bounding box in canvas space.
type Rect struct {
	Min Point `json:"min"`
	Max Point `json:"max"`
}

// Inflate grows r by d on every side.
func (r Rect) Inflate(d float32) Rect {
	return Rect{Min: Point{X: r.Min.X - d, Y: r.Min.Y - d}, Max: Point{X: r.Max.X + d, Y: r.Max.Y + d}}
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X && p.Y >= r.Min.Y && p.Y <= r.Max.Y
}

// Intersects reports whether r and o overlap.
func (r Rect) Intersects(o Rect) bool {
	return r.Min.X <= o.Max.X && o.Min.X <= r.Max.X && r.Min.Y <= o.Max.Y && o.Min.Y <= r.Max.Y
}

// BoundsOf returns the bounding box of pts. An empty slice yields the zero Rect.
func BoundsOf(pts []Point) Rect {
	if len(pts) == 0 {
		return Rect{}
	}
	r := Rect{
		Min: Point{X: math.MaxFloat32, Y: math.MaxFloat32},
		Max: Point{X: -math.MaxFloat32, Y: -math.MaxFloat32},
	}
	for _, p := range pts {
		r.Min.X = min(r.Min.X, p.X)
		r.Min.Y = min(r.Min.Y, p.Y)
		r.Max.X = max(r.Max.X, p.X)
		r.Max.Y = max(r.Max.Y, p.Y)
	}
	return r
}

// Color is a linear sRGB color.
type Color struct {
	R float32 `json:"r"`
	G float32 `json:"g"`
	B float32 `json:"b"`
}

// White is the default pen color.
var White = Color{R: 1, G: 1, B: 1}

// Stroke is a polyline drawn with a pen.
type Stroke struct {
	Points []Point `json:"points"`
	Color  Color   `json:"color"`
	Width  float32 `json:"width_multiplier"`
}

// NewStroke builds a stroke from at least two points.
func NewStroke(points []Point, color Color, width float32) (Stroke, error) {
	if len(points) < 2 {
		return Stroke{}, ErrTooFewPoints
	}
	return Stroke{Points: slices.Clone(points), Color: color, Width: width}, nil
}

// AddPoint appends p to the stroke.
func (s *Stroke) AddPoint(p Point) {
	s.Points = append(s.Points, p)
}

// Bounds returns the bounding box of the stroke's centre line.
func (s Stroke) Bounds() Rect { return BoundsOf(s.Points) }

// Clone returns a deep copy of s.
func (s Stroke) Clone() Stroke {
	s.Points = slices.Clone(s.Points)
	return s
}

// Equal reports whether s and o have the same points, color and width.
func (s Stroke) Equal(o Stroke) bool {
	return s.Color == o.Color && s.Width == o.Width && slices.Equal(s.Points, o.Points)
}

// StrokeID is the externally visible handle of a stroke.
type StrokeID struct {
	arena.Index
}

// NewStrokeID wraps an arena index.
func NewStrokeID(idx arena.Index) StrokeID { return StrokeID{Index: idx} }

// CompareStrokeIDs orders stroke ids by slot then generation.
func CompareStrokeIDs(a, b StrokeID) int { return a.Compare(b.Index) }
