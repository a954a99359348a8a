package tools

import (
	"carveout/internal/core"
	"carveout/pkg/domain"
)

// Selection is a set of strokes edited together by the transform and style tools.
type Selection []domain.StrokeID

// Bounds returns the union of the live strokes' bounds. ok is false when no
// selected stroke is live.
func (s Selection) Bounds(access core.ContentAccess) (domain.Rect, bool) {
	var pts []domain.Point
	for _, id := range s {
		if st, ok := access.Stroke(id); ok {
			b := st.Bounds()
			pts = append(pts, b.Min, b.Max)
		}
	}
	if len(pts) == 0 {
		return domain.Rect{}, false
	}
	return domain.BoundsOf(pts), true
}

// Center returns the middle of the selection's bounds.
func (s Selection) Center(access core.ContentAccess) (domain.Point, bool) {
	b, ok := s.Bounds(access)
	if !ok {
		return domain.Point{}, false
	}
	return domain.Point{X: (b.Min.X + b.Max.X) / 2, Y: (b.Min.Y + b.Max.Y) / 2}, true
}

// Transform applies t to the selection as one command.
func (s Selection) Transform(m *core.ContentManager, t domain.Transform) error {
	cmd, err := core.NewTransformStrokes(s, t)
	if err != nil {
		return err
	}
	return m.RunCmd(cmd)
}

// Translate moves the selection by (dx, dy).
func (s Selection) Translate(m *core.ContentManager, dx, dy float32) error {
	return s.Transform(m, domain.Translate(dx, dy))
}

// Rotate turns the selection by angle radians about its center.
func (s Selection) Rotate(m *core.ContentManager, angle float64) error {
	c, ok := s.Center(m.Access())
	if !ok {
		return core.ErrEmptySelection
	}
	return s.Transform(m, domain.Rotate(angle, c))
}

// Scale scales the selection about its center.
func (s Selection) Scale(m *core.ContentManager, sx, sy float32) error {
	c, ok := s.Center(m.Access())
	if !ok {
		return core.ErrEmptySelection
	}
	return s.Transform(m, domain.Scale(sx, sy, c))
}

// Restyle sets color and width of the selection as one command.
func (s Selection) Restyle(m *core.ContentManager, style core.Style) error {
	cmd, err := core.NewRecolorStrokes(s, style)
	if err != nil {
		return err
	}
	return m.RunCmd(cmd)
}
