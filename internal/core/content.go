package core

import (
	"encoding/json"
	"fmt"
	"iter"

	"carveout/pkg/arena"
	"carveout/pkg/domain"
)

// Content is the document state. It owns every drawable entity and is only
// mutated through a ContentAccessMut.
type Content struct {
	strokes arena.Arena[domain.Stroke]
}

// NewContent returns an empty document.
func NewContent() *Content {
	return &Content{}
}

// Clone returns a deep copy, stroke ids included.
func (c *Content) Clone() *Content {
	return &Content{strokes: *c.strokes.Clone(domain.Stroke.Clone)}
}

// Access returns a read-only view.
func (c *Content) Access() ContentAccess {
	return ContentAccess{content: c}
}

type wireContent struct {
	Strokes *arena.Arena[domain.Stroke] `json:"strokes"`
}

// MarshalJSON encodes the stroke arena including its free list, so ids
// survive a save/load cycle.
func (c *Content) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireContent{Strokes: &c.strokes})
}

// UnmarshalJSON decodes and validates a content document.
func (c *Content) UnmarshalJSON(data []byte) error {
	var wire wireContent
	wire.Strokes = &arena.Arena[domain.Stroke]{}
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("decode content: %w", err)
	}
	if wire.Strokes == nil {
		wire.Strokes = &arena.Arena[domain.Stroke]{}
	}
	for id, s := range wire.Strokes.All() {
		if len(s.Points) < 2 {
			return fmt.Errorf("decode content: stroke %s: %w", id, domain.ErrTooFewPoints)
		}
	}
	c.strokes = *wire.Strokes
	return nil
}

// ContentAccess is a read-only view over Content.
type ContentAccess struct {
	content *Content
}

// Stroke returns a copy of the stroke with id.
func (a ContentAccess) Stroke(id domain.StrokeID) (domain.Stroke, bool) {
	s, ok := a.content.strokes.Get(id.Index)
	if !ok {
		return domain.Stroke{}, false
	}
	return s.Clone(), true
}

// Strokes yields every live stroke in ascending slot order. Callers must not
// retain or mutate the yielded pointers.
func (a ContentAccess) Strokes() iter.Seq2[domain.StrokeID, *domain.Stroke] {
	return func(yield func(domain.StrokeID, *domain.Stroke) bool) {
		for idx, s := range a.content.strokes.All() {
			if !yield(domain.NewStrokeID(idx), s) {
				return
			}
		}
	}
}

// StrokeIDs returns every live id in ascending slot order.
func (a ContentAccess) StrokeIDs() []domain.StrokeID {
	out := make([]domain.StrokeID, 0, a.content.strokes.Len())
	for idx := range a.content.strokes.Indices() {
		out = append(out, domain.NewStrokeID(idx))
	}
	return out
}

// Contains reports whether id is live.
func (a ContentAccess) Contains(id domain.StrokeID) bool {
	return a.content.strokes.Contains(id.Index)
}

// Len returns the number of live strokes.
func (a ContentAccess) Len() int {
	return a.content.strokes.Len()
}

// ContentAccessMut is the only mutator of Content. Every mutation is logged
// into the delta it was built with.
type ContentAccessMut struct {
	content *Content
	delta   *domain.ContentDelta
}

func newAccessMut(c *Content, d *domain.ContentDelta) *ContentAccessMut {
	return &ContentAccessMut{content: c, delta: d}
}

// Access returns a read-only view of the same content.
func (m *ContentAccessMut) Access() ContentAccess {
	return m.content.Access()
}

// ModifyStroke returns the stroke for in-place edits. The id is logged as
// modified on every call, found or not.
func (m *ContentAccessMut) ModifyStroke(id domain.StrokeID) (*domain.Stroke, bool) {
	m.delta.Strokes.Modified = append(m.delta.Strokes.Modified, id)
	return m.content.strokes.Get(id.Index)
}

func (m *ContentAccessMut) addStroke(s domain.Stroke) domain.StrokeID {
	id := domain.NewStrokeID(m.content.strokes.Insert(s))
	m.delta.Strokes.Added = append(m.delta.Strokes.Added, id)
	return id
}

// restoreStroke puts s back under id when that slot is free and falls back to
// a fresh id otherwise. The id actually used is returned.
func (m *ContentAccessMut) restoreStroke(id domain.StrokeID, s domain.Stroke) domain.StrokeID {
	if id.Index != arena.InvalidIndex && m.content.strokes.Restore(id.Index, s) {
		m.delta.Strokes.Added = append(m.delta.Strokes.Added, id)
		return id
	}
	return m.addStroke(s)
}

// resolveStroke maps id to the live id occupying its slot.
func (m *ContentAccessMut) resolveStroke(id domain.StrokeID) (domain.StrokeID, bool) {
	if m.content.strokes.Contains(id.Index) {
		return id, true
	}
	_, live, ok := m.content.strokes.GetUnknownGen(id.Slot)
	if !ok {
		return id, false
	}
	return domain.NewStrokeID(live), true
}

// removeStroke removes the stroke behind id, falling back to the live stroke in
// the same slot when id is stale. The id actually removed is returned.
func (m *ContentAccessMut) removeStroke(id domain.StrokeID) (domain.StrokeID, domain.Stroke, error) {
	live, ok := m.resolveStroke(id)
	if !ok {
		return id, domain.Stroke{}, StaleStrokeError{ID: id}
	}
	s, _ := m.content.strokes.Remove(live.Index)
	m.delta.Strokes.Removed = append(m.delta.Strokes.Removed, live)
	return live, s, nil
}
