// Package tools turns pointer input into document commands.
package tools

import (
	"carveout/internal/core"
	"carveout/pkg/domain"
)

// SampleTolerance is the minimum distance between recorded pen samples.
const SampleTolerance float32 = 1.0

// PenConfig is the stroke style the pen draws with.
type PenConfig struct {
	Color domain.Color
	Width float32
}

// DefaultPenConfig draws white strokes of width 1.
var DefaultPenConfig = PenConfig{Color: domain.White, Width: 1}

// Pen draws one stroke per press. The first sample far enough from the press
// point adds the stroke as a command; later samples extend it in place so the
// whole drag undoes as one step.
type Pen struct {
	Config PenConfig

	prev   *domain.Point
	stroke domain.StrokeID
	active bool
}

// NewPen returns a pen drawing with cfg.
func NewPen(cfg PenConfig) *Pen { return &Pen{Config: cfg} }

// Begin starts a stroke at p.
func (p *Pen) Begin(at domain.Point) {
	p.prev = &at
	p.active = false
}

// Sample records a pointer position. Samples closer than SampleTolerance to
// the previous one are dropped.
func (p *Pen) Sample(m *core.ContentManager, at domain.Point) error {
	if p.prev == nil {
		p.Begin(at)
		return nil
	}
	if at.Dist2(*p.prev) <= SampleTolerance*SampleTolerance {
		return nil
	}
	if !p.active {
		s, err := domain.NewStroke([]domain.Point{*p.prev, at}, p.Config.Color, p.Config.Width)
		if err != nil {
			return err
		}
		cmd := core.NewAddStroke(s)
		if err := m.RunCmd(cmd); err != nil {
			return err
		}
		p.stroke, _ = cmd.ID()
		p.active = true
	} else if s, ok := m.AccessMut().ModifyStroke(p.stroke); ok {
		s.AddPoint(at)
	} else {
		// The stroke vanished mid-drag, e.g. an undo; start over from here.
		p.active = false
	}
	p.prev = &at
	return nil
}

// End finishes the current stroke and returns its id, if one was drawn.
func (p *Pen) End() (domain.StrokeID, bool) {
	id, ok := p.stroke, p.active
	p.prev = nil
	p.active = false
	return id, ok
}
