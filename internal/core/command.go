package core

import (
	"fmt"
	"slices"

	"carveout/pkg/arena"
	"carveout/pkg/domain"
)

// CommandKind tags the concrete command type. The wire tags returned by
// String are persisted and must never be renamed or reused.
type CommandKind uint8

const (
	KindSentinel CommandKind = iota
	KindAddStroke
	KindRemoveStrokes
	KindExtendStroke
	KindTransformStrokes
	KindRecolorStrokes
)

var kindTags = [...]string{
	KindSentinel:         "sentinel",
	KindAddStroke:        "add_stroke",
	KindRemoveStrokes:    "remove_strokes",
	KindExtendStroke:     "extend_stroke",
	KindTransformStrokes: "transform_strokes",
	KindRecolorStrokes:   "recolor_strokes",
}

func (k CommandKind) String() string {
	if int(k) < len(kindTags) {
		return kindTags[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

func kindFromTag(tag string) (CommandKind, bool) {
	for k, t := range kindTags {
		if t == tag {
			return CommandKind(k), true
		}
	}
	return 0, false
}

// CommandState is the position of a command in its before/after state machine.
type CommandState uint8

const (
	// StateBefore holds what is needed to apply the command.
	StateBefore CommandState = iota
	// StateAfter holds what is needed to undo it.
	StateAfter
	// StateInvalid is only seen while a transition is in progress or after it panicked.
	StateInvalid
)

func (s CommandState) String() string {
	switch s {
	case StateBefore:
		return "before"
	case StateAfter:
		return "after"
	default:
		return "invalid"
	}
}

// Command is a reversible unit of change. The set of implementations is
// closed: every command type lives in this package.
type Command interface {
	Kind() CommandKind
	State() CommandState
	// Execute applies the command. A command that cannot be applied returns an
	// error and leaves both content and its own state untouched.
	Execute(m *ContentAccessMut) error
	// Rollback reverts a previous Execute.
	Rollback(m *ContentAccessMut)
	// Describe returns a short human readable summary.
	Describe() string

	sealed()
}

func mustBe(kind CommandKind, op string, got, want CommandState) {
	if got != want {
		panic(fmt.Sprintf("core: %s %s in state %s", kind, op, got))
	}
}

// Sentinel is the no-op command held by the protocol root.
type Sentinel struct{}

func (*Sentinel) Kind() CommandKind { return KindSentinel }
func (*Sentinel) State() CommandState { return StateAfter }
func (*Sentinel) Execute(*ContentAccessMut) error { return nil }
func (*Sentinel) Rollback(*ContentAccessMut) {}
func (*Sentinel) Describe() string { return "root" }
func (*Sentinel) sealed() {}

// AddStroke inserts one stroke.
type AddStroke struct {
	state  CommandState
	stroke domain.Stroke
	// id is the assigned id after execution and the id to restore before it.
	id domain.StrokeID
}

// NewAddStroke returns a command inserting a copy of s.
func NewAddStroke(s domain.Stroke) *AddStroke {
	return &AddStroke{state: StateBefore, stroke: s.Clone(), id: domain.NewStrokeID(arena.InvalidIndex)}
}

func (c *AddStroke) Kind() CommandKind { return KindAddStroke }
func (c *AddStroke) State() CommandState { return c.state }
func (c *AddStroke) sealed() {}

// ID returns the assigned stroke id once the command has executed.
func (c *AddStroke) ID() (domain.StrokeID, bool) {
	return c.id, c.state == StateAfter
}

func (c *AddStroke) Execute(m *ContentAccessMut) error {
	mustBe(c.Kind(), "execute", c.state, StateBefore)
	c.state = StateInvalid
	c.id = m.restoreStroke(c.id, c.stroke)
	c.stroke = domain.Stroke{}
	c.state = StateAfter
	return nil
}

func (c *AddStroke) Rollback(m *ContentAccessMut) {
	mustBe(c.Kind(), "rollback", c.state, StateAfter)
	c.state = StateInvalid
	id, s, err := m.removeStroke(c.id)
	if err != nil {
		panic(fmt.Sprintf("core: add_stroke rollback: %v", err))
	}
	c.id, c.stroke = id, s
	c.state = StateBefore
}

func (c *AddStroke) Describe() string {
	if c.state == StateAfter {
		return fmt.Sprintf("add stroke %s", c.id)
	}
	return fmt.Sprintf("add stroke (%d points)", len(c.stroke.Points))
}

// RemovedStroke pairs a removed stroke with the id it had.
type RemovedStroke struct {
	ID     domain.StrokeID `json:"id"`
	Stroke domain.Stroke   `json:"stroke"`
}

// RemoveStrokes removes one or more strokes.
type RemoveStrokes struct {
	state   CommandState
	ids     []domain.StrokeID
	removed []RemovedStroke
}

// NewRemoveStroke returns a command removing a single stroke.
func NewRemoveStroke(id domain.StrokeID) *RemoveStrokes {
	return &RemoveStrokes{state: StateBefore, ids: []domain.StrokeID{id}}
}

// NewRemoveStrokes returns a command removing every stroke in ids. Duplicates
// are dropped.
func NewRemoveStrokes(ids []domain.StrokeID) (*RemoveStrokes, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return nil, ErrEmptySelection
	}
	return &RemoveStrokes{state: StateBefore, ids: ids}, nil
}

func (c *RemoveStrokes) Kind() CommandKind { return KindRemoveStrokes }
func (c *RemoveStrokes) State() CommandState { return c.state }
func (c *RemoveStrokes) sealed() {}

// IDs returns the target ids before execution or the removed ids after it.
func (c *RemoveStrokes) IDs() []domain.StrokeID {
	if c.state == StateAfter {
		out := make([]domain.StrokeID, len(c.removed))
		for i, r := range c.removed {
			out[i] = r.ID
		}
		return out
	}
	return slices.Clone(c.ids)
}

func (c *RemoveStrokes) Execute(m *ContentAccessMut) error {
	mustBe(c.Kind(), "execute", c.state, StateBefore)
	slots := make(map[uint32]struct{}, len(c.ids))
	for _, id := range c.ids {
		live, ok := m.resolveStroke(id)
		if !ok {
			return StaleStrokeError{ID: id}
		}
		if _, dup := slots[live.Slot]; dup {
			return StaleStrokeError{ID: id}
		}
		slots[live.Slot] = struct{}{}
	}
	c.state = StateInvalid
	removed := make([]RemovedStroke, 0, len(c.ids))
	for _, id := range c.ids {
		live, s, err := m.removeStroke(id)
		if err != nil {
			panic(fmt.Sprintf("core: remove_strokes after validation: %v", err))
		}
		removed = append(removed, RemovedStroke{ID: live, Stroke: s})
	}
	c.ids, c.removed = nil, removed
	c.state = StateAfter
	return nil
}

func (c *RemoveStrokes) Rollback(m *ContentAccessMut) {
	mustBe(c.Kind(), "rollback", c.state, StateAfter)
	c.state = StateInvalid
	ids := make([]domain.StrokeID, len(c.removed))
	for i := len(c.removed) - 1; i >= 0; i-- {
		r := c.removed[i]
		ids[i] = m.restoreStroke(r.ID, r.Stroke)
	}
	c.ids, c.removed = ids, nil
	c.state = StateBefore
}

func (c *RemoveStrokes) Describe() string {
	n := len(c.ids)
	if c.state == StateAfter {
		n = len(c.removed)
	}
	if n == 1 {
		return fmt.Sprintf("remove stroke %s", c.IDs()[0])
	}
	return fmt.Sprintf("remove %d strokes", n)
}

// ExtendStroke appends points to an existing stroke.
type ExtendStroke struct {
	state  CommandState
	id     domain.StrokeID
	points []domain.Point
	// count is the number of points appended by the last execution.
	count int
}

// NewExtendStroke returns a command appending points to the stroke with id.
func NewExtendStroke(id domain.StrokeID, points []domain.Point) (*ExtendStroke, error) {
	if len(points) == 0 {
		return nil, ErrEmptySelection
	}
	return &ExtendStroke{state: StateBefore, id: id, points: slices.Clone(points)}, nil
}

func (c *ExtendStroke) Kind() CommandKind { return KindExtendStroke }
func (c *ExtendStroke) State() CommandState { return c.state }
func (c *ExtendStroke) sealed() {}

// ID returns the extended stroke.
func (c *ExtendStroke) ID() domain.StrokeID { return c.id }

func (c *ExtendStroke) Execute(m *ContentAccessMut) error {
	mustBe(c.Kind(), "execute", c.state, StateBefore)
	if !m.Access().Contains(c.id) {
		return StaleStrokeError{ID: c.id}
	}
	c.state = StateInvalid
	s, _ := m.ModifyStroke(c.id)
	s.Points = append(s.Points, c.points...)
	c.count, c.points = len(c.points), nil
	c.state = StateAfter
	return nil
}

func (c *ExtendStroke) Rollback(m *ContentAccessMut) {
	mustBe(c.Kind(), "rollback", c.state, StateAfter)
	c.state = StateInvalid
	s, ok := m.ModifyStroke(c.id)
	if !ok || len(s.Points) < c.count {
		panic(fmt.Sprintf("core: extend_stroke rollback: stroke %s missing or shorter than %d", c.id, c.count))
	}
	cut := len(s.Points) - c.count
	c.points = slices.Clone(s.Points[cut:])
	s.Points = slices.Clip(s.Points[:cut])
	c.count = 0
	c.state = StateBefore
}

func (c *ExtendStroke) Describe() string {
	n := len(c.points)
	if c.state == StateAfter {
		n = c.count
	}
	return fmt.Sprintf("extend stroke %s by %d points", c.id, n)
}

// TransformStrokes applies an affine transform to the points of strokes.
type TransformStrokes struct {
	state     CommandState
	ids       []domain.StrokeID
	transform domain.Transform
	// original holds each stroke's points before the transform, parallel to ids.
	original [][]domain.Point
}

// NewTransformStrokes returns a command applying t to every stroke in ids.
func NewTransformStrokes(ids []domain.StrokeID, t domain.Transform) (*TransformStrokes, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return nil, ErrEmptySelection
	}
	return &TransformStrokes{state: StateBefore, ids: ids, transform: t}, nil
}

func (c *TransformStrokes) Kind() CommandKind { return KindTransformStrokes }
func (c *TransformStrokes) State() CommandState { return c.state }
func (c *TransformStrokes) sealed() {}

// IDs returns the transformed strokes.
func (c *TransformStrokes) IDs() []domain.StrokeID { return slices.Clone(c.ids) }

// Transform returns the applied transform.
func (c *TransformStrokes) Transform() domain.Transform { return c.transform }

func (c *TransformStrokes) Execute(m *ContentAccessMut) error {
	mustBe(c.Kind(), "execute", c.state, StateBefore)
	if err := requireLive(m.Access(), c.ids); err != nil {
		return err
	}
	c.state = StateInvalid
	original := make([][]domain.Point, len(c.ids))
	for i, id := range c.ids {
		s, _ := m.ModifyStroke(id)
		original[i] = slices.Clone(s.Points)
		for j, p := range s.Points {
			s.Points[j] = c.transform.Apply(p)
		}
	}
	c.original = original
	c.state = StateAfter
	return nil
}

func (c *TransformStrokes) Rollback(m *ContentAccessMut) {
	mustBe(c.Kind(), "rollback", c.state, StateAfter)
	c.state = StateInvalid
	for i, id := range c.ids {
		s, ok := m.ModifyStroke(id)
		if !ok {
			panic(fmt.Sprintf("core: transform_strokes rollback: stroke %s missing", id))
		}
		s.Points = c.original[i]
	}
	c.original = nil
	c.state = StateBefore
}

func (c *TransformStrokes) Describe() string {
	return fmt.Sprintf("transform %d strokes", len(c.ids))
}

// Style is the color and width of a stroke.
type Style struct {
	Color domain.Color `json:"color"`
	Width float32      `json:"width_multiplier"`
}

// RecolorStrokes sets the color and width of strokes.
type RecolorStrokes struct {
	state    CommandState
	ids      []domain.StrokeID
	style    Style
	previous []Style
}

// NewRecolorStrokes returns a command applying style to every stroke in ids.
func NewRecolorStrokes(ids []domain.StrokeID, style Style) (*RecolorStrokes, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return nil, ErrEmptySelection
	}
	return &RecolorStrokes{state: StateBefore, ids: ids, style: style}, nil
}

func (c *RecolorStrokes) Kind() CommandKind { return KindRecolorStrokes }
func (c *RecolorStrokes) State() CommandState { return c.state }
func (c *RecolorStrokes) sealed() {}

func (c *RecolorStrokes) Execute(m *ContentAccessMut) error {
	mustBe(c.Kind(), "execute", c.state, StateBefore)
	if err := requireLive(m.Access(), c.ids); err != nil {
		return err
	}
	c.state = StateInvalid
	previous := make([]Style, len(c.ids))
	for i, id := range c.ids {
		s, _ := m.ModifyStroke(id)
		previous[i] = Style{Color: s.Color, Width: s.Width}
		s.Color, s.Width = c.style.Color, c.style.Width
	}
	c.previous = previous
	c.state = StateAfter
	return nil
}

func (c *RecolorStrokes) Rollback(m *ContentAccessMut) {
	mustBe(c.Kind(), "rollback", c.state, StateAfter)
	c.state = StateInvalid
	for i, id := range c.ids {
		s, ok := m.ModifyStroke(id)
		if !ok {
			panic(fmt.Sprintf("core: recolor_strokes rollback: stroke %s missing", id))
		}
		s.Color, s.Width = c.previous[i].Color, c.previous[i].Width
	}
	c.previous = nil
	c.state = StateBefore
}

func (c *RecolorStrokes) Describe() string {
	return fmt.Sprintf("restyle %d strokes", len(c.ids))
}

func requireLive(access ContentAccess, ids []domain.StrokeID) error {
	for _, id := range ids {
		if !access.Contains(id) {
			return StaleStrokeError{ID: id}
		}
	}
	return nil
}

func dedupe(ids []domain.StrokeID) []domain.StrokeID {
	out := slices.Clone(ids)
	slices.SortFunc(out, domain.CompareStrokeIDs)
	return slices.Compact(out)
}
