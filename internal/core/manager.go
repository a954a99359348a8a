package core

import (
	"context"
	"fmt"
	"time"

	"carveout/pkg/domain"
)

// ContentManager owns one open document: its content, its undo tree and the
// delta consumers drain once per frame. It is not safe for concurrent use.
type ContentManager struct {
	content  *Content
	protocol *Protocol
	delta    domain.ContentDelta
	queue    []queuedOp
	opts     managerOptions
}

type queuedKind uint8

const (
	queuedRun queuedKind = iota
	queuedUndo
	queuedRedo
)

type queuedOp struct {
	kind queuedKind
	cmd  Command
}

// NewContentManager returns a manager for an empty document.
func NewContentManager(opts ...Option) *ContentManager {
	o := defaultManagerOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &ContentManager{
		content:  NewContent(),
		protocol: NewProtocol(o.clock.Now()),
		opts:     o,
	}
}

func (m *ContentManager) instrument(op string, fn func() error) error {
	start := time.Now()
	ctx, span := m.opts.tracer.Start(context.Background(), op)
	err := fn()
	span.End(err)
	m.opts.metrics.Observe(ctx, op, err == nil, time.Since(start))
	if err != nil {
		m.opts.logger.Warn("content manager operation failed", "op", op, "error", err)
	} else {
		m.opts.logger.Debug("content manager operation", "op", op, "head", m.protocol.head)
	}
	return err
}

func (m *ContentManager) accessMut() *ContentAccessMut {
	return newAccessMut(m.content, &m.delta)
}

// RunCmd executes cmd and records it as the new head. When execution fails
// the tree and head are left unchanged and the error is returned.
func (m *ContentManager) RunCmd(cmd Command) error {
	if cmd == nil {
		panic("core: RunCmd with nil command")
	}
	return m.instrument("run_cmd", func() error {
		if err := cmd.Execute(m.accessMut()); err != nil {
			return fmt.Errorf("run %s: %w", cmd.Kind(), err)
		}
		m.protocol.append(cmd, m.opts.clock.Now())
		return nil
	})
}

// UndoCmd rolls back the head command and moves head to its parent. It
// reports false at the root.
func (m *ContentManager) UndoCmd() bool {
	undone := false
	_ = m.instrument("undo_cmd", func() error {
		head := m.protocol.head
		if head == RootID {
			return nil
		}
		node := m.protocol.node(head)
		node.Command.Rollback(m.accessMut())
		m.protocol.head = node.Parent
		undone = true
		return nil
	})
	return undone
}

// RedoCmd re-executes the selected child of head and moves head to it. It
// reports false when head has no selected child. A failed execution returns
// the error and leaves head in place.
func (m *ContentManager) RedoCmd() (bool, error) {
	redone := false
	err := m.instrument("redo_cmd", func() error {
		child, ok := m.protocol.node(m.protocol.head).SelectedChild()
		if !ok {
			return nil
		}
		cmd := m.protocol.node(child).Command
		if err := cmd.Execute(m.accessMut()); err != nil {
			return fmt.Errorf("redo %s: %w", cmd.Kind(), err)
		}
		m.protocol.head = child
		redone = true
		return nil
	})
	return redone, err
}

// SwitchProtocolBranch selects which child of head the next redo follows.
// An out of range index panics; see SelectBranch for untrusted input.
func (m *ContentManager) SwitchProtocolBranch(i int) {
	if err := m.SelectBranch(i); err != nil {
		panic(fmt.Sprintf("core: %v", err))
	}
}

// SelectBranch is SwitchProtocolBranch returning ErrNoSuchBranch instead of panicking.
func (m *ContentManager) SelectBranch(i int) error {
	head := m.protocol.node(m.protocol.head)
	if i < 0 || i >= len(head.Children) {
		return fmt.Errorf("branch %d of %d: %w", i, len(head.Children), ErrNoSuchBranch)
	}
	head.Selected = i
	return nil
}

// Checkout moves head to target by undoing to the common ancestor and redoing
// along target's branch. Branch selections along the way are updated.
func (m *ContentManager) Checkout(target NodeID) error {
	if int(target) >= m.protocol.Len() {
		return fmt.Errorf("node %d: %w", target, ErrNoSuchBranch)
	}
	onPath := make(map[NodeID]int)
	var path []NodeID
	for id := target; ; id = m.protocol.node(id).Parent {
		path = append(path, id)
		if id == RootID {
			break
		}
	}
	for i, id := range path {
		onPath[id] = i
	}
	for {
		if _, ok := onPath[m.protocol.head]; ok {
			break
		}
		m.UndoCmd()
	}
	for i := onPath[m.protocol.head] - 1; i >= 0; i-- {
		next := path[i]
		parent := m.protocol.node(m.protocol.head)
		for pos, c := range parent.Children {
			if c == next {
				parent.Selected = pos
			}
		}
		if _, err := m.RedoCmd(); err != nil {
			return err
		}
	}
	return nil
}

// Undoable reports whether head is not the root.
func (m *ContentManager) Undoable() bool { return m.protocol.head != RootID }

// Redoable reports whether head has a selected child.
func (m *ContentManager) Redoable() bool {
	_, ok := m.protocol.node(m.protocol.head).SelectedChild()
	return ok
}

// Head returns a view of the current node.
func (m *ContentManager) Head() NodeView {
	v, _ := m.protocol.Node(m.protocol.head)
	return v
}

// Protocol returns the undo tree. Callers must treat it as read-only.
func (m *ContentManager) Protocol() *Protocol { return m.protocol }

// Access returns a read-only view of the content.
func (m *ContentManager) Access() ContentAccess { return m.content.Access() }

// AccessMut returns a mutator for live tool edits that are not commands, such
// as a pen extending the stroke it is drawing. Edits still reach the delta.
func (m *ContentManager) AccessMut() *ContentAccessMut { return m.accessMut() }

// Delta returns the changes logged since the last ResetDelta. The lists are
// only valid until the next mutation.
func (m *ContentManager) Delta() domain.ContentDelta { return m.delta }

// ResetDelta clears the delta after consumers have drained it.
func (m *ContentManager) ResetDelta() { m.delta.Clear() }

// Replace swaps in a loaded document. Every old id is logged as removed and
// every new id as added, so consumers rebuild their caches from scratch.
// Queued operations target the old document and are dropped.
func (m *ContentManager) Replace(content *Content, protocol *Protocol) {
	for id := range m.content.Access().Strokes() {
		m.delta.Strokes.Removed = append(m.delta.Strokes.Removed, id)
	}
	for id := range content.Access().Strokes() {
		m.delta.Strokes.Added = append(m.delta.Strokes.Added, id)
	}
	m.content, m.protocol = content, protocol
	m.queue = nil
	m.opts.logger.Info("document replaced", "strokes", content.Access().Len(), "nodes", protocol.Len())
}

// Snapshot deep-copies the content and the undo tree.
func (m *ContentManager) Snapshot() (*Content, *Protocol) {
	return m.content.Clone(), m.protocol.Clone()
}

// ScheduleCmd queues cmd for the next Update.
func (m *ContentManager) ScheduleCmd(cmd Command) {
	m.queue = append(m.queue, queuedOp{kind: queuedRun, cmd: cmd})
}

// ScheduleUndo queues an undo for the next Update.
func (m *ContentManager) ScheduleUndo() { m.queue = append(m.queue, queuedOp{kind: queuedUndo}) }

// ScheduleRedo queues a redo for the next Update.
func (m *ContentManager) ScheduleRedo() { m.queue = append(m.queue, queuedOp{kind: queuedRedo}) }

// Pending returns the number of queued operations.
func (m *ContentManager) Pending() int { return len(m.queue) }

// Update applies queued operations in FIFO order and returns the errors of
// the ones that failed. A failure does not stop later operations.
func (m *ContentManager) Update() []error {
	queue := m.queue
	m.queue = nil
	var errs []error
	for _, op := range queue {
		var err error
		switch op.kind {
		case queuedRun:
			err = m.RunCmd(op.cmd)
		case queuedUndo:
			m.UndoCmd()
		case queuedRedo:
			_, err = m.RedoCmd()
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
