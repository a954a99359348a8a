package tools

import (
	"carveout/internal/core"
	"carveout/internal/hittest"
	"carveout/pkg/domain"
)

// LoopSelect collects a lasso and removes everything inside it as a single
// undo step.
type LoopSelect struct {
	points    []domain.Point
	selecting bool
}

// Begin starts a new loop at p, discarding any unfinished one.
func (l *LoopSelect) Begin(p domain.Point) {
	l.points = append(l.points[:0], p)
	l.selecting = true
}

// Add extends the loop. It is ignored when no loop is in progress.
func (l *LoopSelect) Add(p domain.Point) {
	if l.selecting {
		l.points = append(l.points, p)
	}
}

// Selecting reports whether a loop is in progress.
func (l *LoopSelect) Selecting() bool { return l.selecting }

// Points returns the loop outline so far.
func (l *LoopSelect) Points() []domain.Point { return l.points }

// Finish closes the loop and removes the selected strokes with one command.
// An empty selection runs nothing and returns nil.
func (l *LoopSelect) Finish(m *core.ContentManager, idx *hittest.Index) ([]domain.StrokeID, error) {
	if !l.selecting {
		return nil, nil
	}
	l.selecting = false
	selected := idx.InPolygon(l.points)
	l.points = l.points[:0]
	if len(selected) == 0 {
		return nil, nil
	}
	cmd, err := core.NewRemoveStrokes(selected)
	if err != nil {
		return nil, err
	}
	if err := m.RunCmd(cmd); err != nil {
		return nil, err
	}
	return selected, nil
}
