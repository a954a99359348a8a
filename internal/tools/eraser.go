package tools

import (
	"errors"

	"carveout/internal/core"
	"carveout/internal/hittest"
	"carveout/pkg/domain"
)

// Eraser removes every stroke under the pointer, one command per stroke.
type Eraser struct {
	Radius float32
}

// Apply erases the strokes idx reports at p and returns their ids. idx must
// be synced with m's delta.
func (e Eraser) Apply(m *core.ContentManager, idx *hittest.Index, p domain.Point) ([]domain.StrokeID, error) {
	var (
		erased []domain.StrokeID
		errs   []error
	)
	for _, id := range idx.At(p, e.Radius) {
		if err := m.RunCmd(core.NewRemoveStroke(id)); err != nil {
			errs = append(errs, err)
			continue
		}
		erased = append(erased, id)
	}
	return erased, errors.Join(errs...)
}
