package core

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"carveout/pkg/arena"
	"carveout/pkg/domain"
)

// DocumentVersion is the format version written by EncodeDocument.
const DocumentVersion = 1

// EncodeDocument serializes content and protocol into a record named name.
func EncodeDocument(name string, content *Content, protocol *Protocol, clock Clock) (domain.DocumentRecord, error) {
	c, err := json.Marshal(content)
	if err != nil {
		return domain.DocumentRecord{}, fmt.Errorf("encode content: %w", err)
	}
	p, err := json.Marshal(protocol)
	if err != nil {
		return domain.DocumentRecord{}, fmt.Errorf("encode protocol: %w", err)
	}
	if clock == nil {
		clock = ClockFunc(nil)
	}
	return domain.DocumentRecord{
		Name:      name,
		Version:   DocumentVersion,
		Content:   c,
		Protocol:  p,
		UpdatedAt: clock.Now(),
	}, nil
}

// DecodeDocument fully decodes and validates both halves of rec. Nothing is
// returned unless both succeed.
func DecodeDocument(rec domain.DocumentRecord) (*Content, *Protocol, error) {
	if rec.Version != DocumentVersion {
		return nil, nil, fmt.Errorf("document %q version %d: %w", rec.Name, rec.Version, ErrUnsupportedVersion)
	}
	content := NewContent()
	if err := json.Unmarshal(rec.Content, content); err != nil {
		return nil, nil, fmt.Errorf("document %q: %w", rec.Name, err)
	}
	protocol := &Protocol{}
	if err := json.Unmarshal(rec.Protocol, protocol); err != nil {
		return nil, nil, fmt.Errorf("document %q: %w", rec.Name, err)
	}
	if err := checkHistory(content, protocol); err != nil {
		return nil, nil, fmt.Errorf("document %q: %w", rec.Name, err)
	}
	return content, protocol, nil
}

// checkHistory verifies that protocol could have produced content: every
// applied command can be rolled back on it in order, and no command names a
// slot the arena could never have held.
func checkHistory(content *Content, protocol *Protocol) error {
	applied := make([]bool, protocol.Len())
	path := protocol.PathToHead()
	for _, id := range path {
		applied[id] = true
	}

	limit := content.strokes.Cap()
	restorable := 0
	for i := 1; i < protocol.Len(); i++ {
		restorable += len(commandIDs(protocol.nodes[i].Command))
	}
	for i := 1; i < protocol.Len(); i++ {
		bound := limit
		if !applied[i] {
			bound += restorable
		}
		for _, id := range commandIDs(protocol.nodes[i].Command) {
			if id.Index != arena.InvalidIndex && int(id.Slot) >= bound {
				return fmt.Errorf("%w: node %d names slot %d of %d", ErrCorruptProtocol, i, id.Slot, bound)
			}
		}
	}

	scratch := content.Clone()
	mut := newAccessMut(scratch, &domain.ContentDelta{})
	for i := len(path) - 1; i > 0; i-- {
		cmd := cloneCommand(protocol.nodes[path[i]].Command)
		if err := canRollback(cmd, scratch.Access()); err != nil {
			return fmt.Errorf("%w: node %d: %w", ErrCorruptProtocol, path[i], err)
		}
		cmd.Rollback(mut)
	}
	return nil
}

// commandIDs returns every stroke id a command holds in its current state.
func commandIDs(c Command) []domain.StrokeID {
	switch c := c.(type) {
	case *AddStroke:
		return []domain.StrokeID{c.id}
	case *RemoveStrokes:
		ids := slices.Clone(c.ids)
		for _, r := range c.removed {
			ids = append(ids, r.ID)
		}
		return ids
	case *ExtendStroke:
		return []domain.StrokeID{c.id}
	case *TransformStrokes:
		return c.ids
	case *RecolorStrokes:
		return c.ids
	}
	return nil
}

// canRollback reports why an applied command could not be undone on access.
func canRollback(c Command, access ContentAccess) error {
	switch c := c.(type) {
	case *AddStroke:
		if !access.Contains(c.id) {
			return StaleStrokeError{ID: c.id}
		}
	case *RemoveStrokes:
		slots := make(map[uint32]struct{}, len(c.removed))
		for _, r := range c.removed {
			if _, dup := slots[r.ID.Slot]; dup {
				return fmt.Errorf("slot %d removed twice", r.ID.Slot)
			}
			slots[r.ID.Slot] = struct{}{}
			if _, _, taken := access.content.strokes.GetUnknownGen(r.ID.Slot); taken {
				return fmt.Errorf("slot %d of removed stroke %s is occupied", r.ID.Slot, r.ID)
			}
		}
	case *ExtendStroke:
		s, ok := access.content.strokes.Get(c.id.Index)
		if !ok {
			return StaleStrokeError{ID: c.id}
		}
		if len(s.Points) < c.count {
			return fmt.Errorf("stroke %s has %d points, cannot drop %d", c.id, len(s.Points), c.count)
		}
	case *TransformStrokes:
		return requireLive(access, c.ids)
	case *RecolorStrokes:
		return requireLive(access, c.ids)
	}
	return nil
}

// Document encodes the manager's current state.
func (m *ContentManager) Document(name string) (domain.DocumentRecord, error) {
	return EncodeDocument(name, m.content, m.protocol, m.opts.clock)
}

// LoadDocument decodes rec and replaces the manager's state with it. On
// error the manager is left untouched.
func (m *ContentManager) LoadDocument(rec domain.DocumentRecord) error {
	content, protocol, err := DecodeDocument(rec)
	if err != nil {
		return err
	}
	m.Replace(content, protocol)
	return nil
}

// SaveTo writes the manager's state to store under name.
func (m *ContentManager) SaveTo(ctx context.Context, store domain.DocumentStore, name string) error {
	rec, err := m.Document(name)
	if err != nil {
		return err
	}
	if err := store.Save(ctx, rec); err != nil {
		return fmt.Errorf("save %q: %w", name, err)
	}
	m.opts.logger.Info("document saved", "name", name, "bytes", len(rec.Content)+len(rec.Protocol))
	return nil
}

// LoadFrom replaces the manager's state with the document stored under name.
func (m *ContentManager) LoadFrom(ctx context.Context, store domain.DocumentStore, name string) error {
	rec, err := store.Load(ctx, name)
	if err != nil {
		return fmt.Errorf("load %q: %w", name, err)
	}
	return m.LoadDocument(rec)
}
