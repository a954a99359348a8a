package domain

import "math"

// Transform is a 2D affine map stored as the first two rows of a 3×3 matrix:
//
//	x' = A*x + C*y + E
//	y' = B*x + D*y + F
type Transform struct {
	A float32 `json:"a"`
	B float32 `json:"b"`
	C float32 `json:"c"`
	D float32 `json:"d"`
	E float32 `json:"e"`
	F float32 `json:"f"`
}

// Identity is the transform that leaves points unchanged.
var Identity = Transform{A: 1, D: 1}

// Translate returns a translation by (dx, dy).
func Translate(dx, dy float32) Transform {
	return Transform{A: 1, D: 1, E: dx, F: dy}
}

// Scale returns a scale about origin.
func Scale(sx, sy float32, origin Point) Transform {
	return Translate(-origin.X, -origin.Y).
		Then(Transform{A: sx, D: sy}).
		Then(Translate(origin.X, origin.Y))
}

// Rotate returns a counter-clockwise rotation by angle radians about origin.
func Rotate(angle float64, origin Point) Transform {
	sin, cos := math.Sincos(angle)
	r := Transform{A: float32(cos), B: float32(sin), C: float32(-sin), D: float32(cos)}
	return Translate(-origin.X, -origin.Y).Then(r).Then(Translate(origin.X, origin.Y))
}

// Then returns the transform applying t first and o second.
func (t Transform) Then(o Transform) Transform {
	return Transform{
		A: o.A*t.A + o.C*t.B,
		B: o.B*t.A + o.D*t.B,
		C: o.A*t.C + o.C*t.D,
		D: o.B*t.C + o.D*t.D,
		E: o.A*t.E + o.C*t.F + o.E,
		F: o.B*t.E + o.D*t.F + o.F,
	}
}

// Apply maps p through t.
func (t Transform) Apply(p Point) Point {
	return Point{
		X: t.A*p.X + t.C*p.Y + t.E,
		Y: t.B*p.X + t.D*p.Y + t.F,
	}
}

// IsIdentity reports whether t leaves every point in place.
func (t Transform) IsIdentity() bool { return t == Identity }
