package core

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"carveout/pkg/arena"
	"carveout/pkg/domain"
)

type captureLogger struct{ calls []string }

func (c *captureLogger) Debug(msg string, _ ...any) { c.calls = append(c.calls, "d:"+msg) }
func (c *captureLogger) Info(msg string, _ ...any)  { c.calls = append(c.calls, "i:"+msg) }
func (c *captureLogger) Warn(msg string, _ ...any)  { c.calls = append(c.calls, "w:"+msg) }
func (c *captureLogger) Error(msg string, _ ...any) { c.calls = append(c.calls, "e:"+msg) }

type metricsCall struct {
	op      string
	success bool
}

type captureMetricsRecorder struct{ calls []metricsCall }

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	c.calls = append(c.calls, metricsCall{op: op, success: success})
}

func (c *captureMetricsRecorder) has(op string, success bool) bool {
	return slices.Contains(c.calls, metricsCall{op: op, success: success})
}

func run(t *testing.T, m *ContentManager, cmd Command) {
	t.Helper()
	if err := m.RunCmd(cmd); err != nil {
		t.Fatalf("run %s: %v", cmd.Kind(), err)
	}
}

func addedID(t *testing.T, cmd *AddStroke) domain.StrokeID {
	t.Helper()
	id, ok := cmd.ID()
	if !ok {
		t.Fatalf("add_stroke has not executed")
	}
	return id
}

func TestUndoRedoRoundTrip(t *testing.T) {
	m := NewContentManager()
	empty := strokesOf(m.Access())
	a := NewAddStroke(line(2, 0))
	run(t, m, a)
	run(t, m, NewRemoveStroke(addedID(t, a)))
	if m.Access().Len() != 0 {
		t.Fatalf("expected stroke removed")
	}
	if !m.UndoCmd() || !m.UndoCmd() {
		t.Fatalf("expected two undos")
	}
	sameStrokes(t, strokesOf(m.Access()), empty)
	if m.Undoable() {
		t.Fatalf("expected nothing left to undo")
	}
	if m.UndoCmd() {
		t.Fatalf("undo at root must be a no-op")
	}
	if !m.Redoable() {
		t.Fatalf("expected redo available")
	}
	for range 2 {
		if ok, err := m.RedoCmd(); !ok || err != nil {
			t.Fatalf("redo: ok=%v err=%v", ok, err)
		}
	}
	if m.Redoable() {
		t.Fatalf("expected redo exhausted")
	}
	if ok, err := m.RedoCmd(); ok || err != nil {
		t.Fatalf("redo at leaf must be a no-op, got ok=%v err=%v", ok, err)
	}
}

func TestRedoRestoresSameStrokeID(t *testing.T) {
	m := NewContentManager()
	a := NewAddStroke(line(2, 0))
	run(t, m, a)
	id := addedID(t, a)
	m.UndoCmd()
	if _, err := m.RedoCmd(); err != nil {
		t.Fatalf("redo: %v", err)
	}
	if got := addedID(t, a); got != id || !m.Access().Contains(id) {
		t.Fatalf("redo reassigned %s to %s", id, got)
	}
}

func TestBranchSelection(t *testing.T) {
	m := NewContentManager()
	a := NewAddStroke(line(2, 0))
	run(t, m, a)
	m.UndoCmd()
	b := NewAddStroke(line(5, 9))
	run(t, m, b)
	m.UndoCmd()
	m.SwitchProtocolBranch(0)
	if ok, err := m.RedoCmd(); !ok || err != nil {
		t.Fatalf("redo: ok=%v err=%v", ok, err)
	}
	if m.Access().Len() != 1 {
		t.Fatalf("expected exactly one stroke, got %d", m.Access().Len())
	}
	s, ok := m.Access().Stroke(addedID(t, a))
	if !ok || len(s.Points) != 2 {
		t.Fatalf("expected branch A's stroke, got %+v", s)
	}
	if b.State() != StateBefore {
		t.Fatalf("branch B must stay rolled back")
	}
	root, _ := m.Protocol().Node(RootID)
	if len(root.Children) != 2 || root.Selected != 0 {
		t.Fatalf("unexpected root %+v", root)
	}
}

func TestNewestChildIsSelectedByDefault(t *testing.T) {
	m := NewContentManager()
	run(t, m, NewAddStroke(line(2, 0)))
	m.UndoCmd()
	b := NewAddStroke(line(4, 0))
	run(t, m, b)
	m.UndoCmd()
	if _, err := m.RedoCmd(); err != nil {
		t.Fatalf("redo: %v", err)
	}
	if b.State() != StateAfter {
		t.Fatalf("redo should follow the most recent branch")
	}
}

func TestSelectBranchValidation(t *testing.T) {
	m := NewContentManager()
	if err := m.SelectBranch(0); !errors.Is(err, ErrNoSuchBranch) {
		t.Fatalf("expected ErrNoSuchBranch, got %v", err)
	}
	mustPanic(t, "switch out of range", func() { m.SwitchProtocolBranch(3) })
}

// A document holding one stroke is loaded, then the stroke is extended by one
// point. Undo reverts the extension and leaves nothing to undo; redo
// reapplies it.
func TestStrokeExtendScenario(t *testing.T) {
	seed := NewContent()
	s1 := newAccessMut(seed, &domain.ContentDelta{}).addStroke(line(2, 0))

	m := NewContentManager()
	m.Replace(seed, NewProtocol(time.Now()))
	if d := m.Delta(); !slices.Equal(d.Strokes.Added, []domain.StrokeID{s1}) {
		t.Fatalf("expected added=[S1], got %v", d.Strokes.Added)
	}
	if m.Undoable() {
		t.Fatalf("a freshly loaded document has no history")
	}
	m.ResetDelta()

	run(t, m, extend(t, s1, []domain.Point{{X: 7, Y: 7}}))
	if d := m.Delta(); !slices.Equal(d.Strokes.Modified, []domain.StrokeID{s1}) {
		t.Fatalf("expected modified=[S1], got %v", d.Strokes.Modified)
	}
	m.ResetDelta()

	if !m.UndoCmd() {
		t.Fatalf("undo failed")
	}
	if s, _ := m.Access().Stroke(s1); len(s.Points) != 2 {
		t.Fatalf("expected 2 points after undo, got %d", len(s.Points))
	}
	if m.Undoable() {
		t.Fatalf("nothing should be undoable at the root")
	}
	if ok, err := m.RedoCmd(); !ok || err != nil {
		t.Fatalf("redo: ok=%v err=%v", ok, err)
	}
	if s, _ := m.Access().Stroke(s1); len(s.Points) != 3 {
		t.Fatalf("expected 3 points after redo, got %d", len(s.Points))
	}
}

func TestDeltaCoversEveryChangedStroke(t *testing.T) {
	m := NewContentManager()
	var ids []domain.StrokeID
	for i := range 3 {
		a := NewAddStroke(line(2, float32(i)))
		run(t, m, a)
		ids = append(ids, addedID(t, a))
	}
	m.ResetDelta()
	tr, _ := NewTransformStrokes(ids[:2], domain.Translate(3, 0))
	run(t, m, tr)
	rm, _ := NewRemoveStrokes(ids[1:])
	run(t, m, rm)
	d := m.Delta()
	for _, id := range ids[:2] {
		if !slices.Contains(d.Strokes.Modified, id) {
			t.Fatalf("transformed %s missing from modified", id)
		}
	}
	for _, id := range ids[1:] {
		if !slices.Contains(d.Strokes.Removed, id) {
			t.Fatalf("removed %s missing from removed", id)
		}
	}
	m.ResetDelta()
	m.UndoCmd()
	d = m.Delta()
	for _, id := range ids[1:] {
		if !slices.Contains(d.Strokes.Added, id) {
			t.Fatalf("restored %s missing from added", id)
		}
	}
}

func TestRunFailureLeavesTreeUntouched(t *testing.T) {
	m := NewContentManager()
	a := NewAddStroke(line(2, 0))
	run(t, m, a)
	id := addedID(t, a)
	run(t, m, NewRemoveStroke(id))
	head := m.Head().ID
	length := m.Protocol().Len()
	err := m.RunCmd(NewRemoveStroke(id))
	if !errors.Is(err, ErrStaleStroke) {
		t.Fatalf("expected ErrStaleStroke, got %v", err)
	}
	if m.Head().ID != head || m.Protocol().Len() != length {
		t.Fatalf("failed command must not extend the tree")
	}
	mustPanic(t, "nil command", func() { _ = m.RunCmd(nil) })
}

func TestRedoFailureKeepsHead(t *testing.T) {
	m := NewContentManager()
	a := NewAddStroke(line(2, 0))
	run(t, m, a)
	id := addedID(t, a)
	run(t, m, extend(t, id, []domain.Point{{X: 1, Y: 1}}))
	m.UndoCmd()
	// A live edit outside the tree removes the stroke the redo needs.
	if _, _, err := m.AccessMut().removeStroke(id); err != nil {
		t.Fatalf("remove: %v", err)
	}
	head := m.Head().ID
	ok, err := m.RedoCmd()
	if ok || !errors.Is(err, ErrStaleStroke) {
		t.Fatalf("expected stale redo failure, got ok=%v err=%v", ok, err)
	}
	if m.Head().ID != head {
		t.Fatalf("head moved on failed redo")
	}
}

func TestQueuedCommandsApplyInOrder(t *testing.T) {
	m := NewContentManager()
	a := NewAddStroke(line(2, 0))
	m.ScheduleCmd(a)
	m.ScheduleCmd(NewAddStroke(line(3, 0)))
	m.ScheduleUndo()
	m.ScheduleRedo()
	if m.Access().Len() != 0 || m.Pending() != 4 {
		t.Fatalf("scheduling must not apply anything")
	}
	if errs := m.Update(); len(errs) != 0 {
		t.Fatalf("unexpected errors %v", errs)
	}
	if m.Pending() != 0 || m.Access().Len() != 2 || m.Protocol().Len() != 3 {
		t.Fatalf("unexpected state after update: pending=%d strokes=%d nodes=%d", m.Pending(), m.Access().Len(), m.Protocol().Len())
	}
	m.ScheduleCmd(NewRemoveStroke(addedID(t, a)))
	m.ScheduleCmd(NewRemoveStroke(addedID(t, a)))
	errs := m.Update()
	if len(errs) != 1 || !errors.Is(errs[0], ErrStaleStroke) {
		t.Fatalf("expected one stale failure, got %v", errs)
	}
}

func TestReplaceSynthesizesFullDelta(t *testing.T) {
	m := NewContentManager()
	a := NewAddStroke(line(2, 0))
	run(t, m, a)
	old := addedID(t, a)
	m.ResetDelta()

	other := NewContentManager()
	b := NewAddStroke(line(3, 0))
	c := NewAddStroke(line(4, 0))
	run(t, other, b)
	run(t, other, c)
	content, protocol := other.Snapshot()
	m.ScheduleUndo()
	m.Replace(content, protocol)

	d := m.Delta()
	if !slices.Equal(d.Strokes.Removed, []domain.StrokeID{old}) {
		t.Fatalf("expected old id removed, got %v", d.Strokes.Removed)
	}
	if !slices.Equal(d.Strokes.Added, []domain.StrokeID{addedID(t, b), addedID(t, c)}) {
		t.Fatalf("expected new ids added, got %v", d.Strokes.Added)
	}
	if m.Pending() != 0 {
		t.Fatalf("replace must drop queued operations")
	}
	if m.Protocol().Len() != 3 || !m.Undoable() {
		t.Fatalf("history should come along with the content")
	}
	m.UndoCmd()
	if m.Access().Len() != 1 || other.Access().Len() != 2 {
		t.Fatalf("snapshot must be independent of its source")
	}
}

func TestCheckoutWalksAcrossBranches(t *testing.T) {
	m := NewContentManager()
	a := NewAddStroke(line(2, 0))
	run(t, m, a)
	aNode := m.Head().ID
	run(t, m, extend(t, addedID(t, a), []domain.Point{{X: 9, Y: 9}}))
	m.UndoCmd()
	m.UndoCmd()
	b := NewAddStroke(line(6, 0))
	run(t, m, b)
	bNode := m.Head().ID

	if err := m.Checkout(aNode + 1); err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if b.State() != StateBefore || m.Access().Len() != 1 {
		t.Fatalf("expected only branch A applied")
	}
	if s, _ := m.Access().Stroke(addedID(t, a)); len(s.Points) != 3 {
		t.Fatalf("expected extension applied, got %d points", len(s.Points))
	}
	if err := m.Checkout(bNode); err != nil {
		t.Fatalf("checkout back: %v", err)
	}
	if a.State() != StateBefore || b.State() != StateAfter {
		t.Fatalf("expected only branch B applied")
	}
	if err := m.Checkout(RootID); err != nil || m.Undoable() {
		t.Fatalf("checkout root: %v", err)
	}
	if err := m.Checkout(77); !errors.Is(err, ErrNoSuchBranch) {
		t.Fatalf("expected ErrNoSuchBranch, got %v", err)
	}
}

func TestManagerOptionsAreUsed(t *testing.T) {
	fixed := time.Unix(123, 0).UTC()
	log := &captureLogger{}
	metrics := &captureMetricsRecorder{}
	tracer := NewJSONTracer(nil)
	m := NewContentManager(
		WithClock(ClockFunc(func() time.Time { return fixed })),
		WithLogger(log),
		WithMetricsRecorder(metrics),
		WithTracer(tracer),
		WithLogger(nil),
	)
	run(t, m, NewAddStroke(line(2, 0)))
	_ = m.RunCmd(NewRemoveStroke(domain.NewStrokeID(arena.Index{Slot: 40})))
	m.UndoCmd()
	if !m.Head().CreatedAt.Equal(fixed) {
		t.Fatalf("expected clock override on the root")
	}
	if !metrics.has("run_cmd", true) || !metrics.has("run_cmd", false) || !metrics.has("undo_cmd", true) {
		t.Fatalf("unexpected metrics %+v", metrics.calls)
	}
	if !slices.Contains(log.calls, "w:content manager operation failed") {
		t.Fatalf("expected failure to be logged, got %v", log.calls)
	}
	entries := tracer.Entries()
	if len(entries) != 3 || entries[1].Status != "error" {
		t.Fatalf("unexpected spans %+v", entries)
	}
}

func TestDefaultOptions(t *testing.T) {
	opts := defaultManagerOptions()
	if opts.clock == nil || opts.logger == nil || opts.metrics == nil || opts.tracer == nil {
		t.Fatalf("expected defaults populated")
	}
	_ = opts.clock.Now()
	opts.metrics.Observe(context.Background(), "noop", true, 0)
	_, span := opts.tracer.Start(context.Background(), "noop")
	span.End(nil)
	var l noopLogger
	l.Debug("d", "k", 1)
	l.Info("i")
	l.Warn("w")
	l.Error("e")
	if ClockFunc(nil).Now().IsZero() {
		t.Fatalf("nil ClockFunc should fall back to wall time")
	}
	if NewSlogLogger(nil) == nil {
		t.Fatalf("expected slog default")
	}
}
