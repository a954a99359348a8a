package core

import (
	"encoding/json"
	"errors"
	"fmt"

	"carveout/pkg/arena"
	"carveout/pkg/domain"
)

type wireCommand struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

type wireAddStroke struct {
	State  string           `json:"state"`
	Stroke *domain.Stroke   `json:"stroke,omitempty"`
	ID     *domain.StrokeID `json:"id,omitempty"`
}

type wireRemoveStrokes struct {
	State   string            `json:"state"`
	IDs     []domain.StrokeID `json:"ids,omitempty"`
	Removed []RemovedStroke   `json:"removed,omitempty"`
}

type wireExtendStroke struct {
	State  string          `json:"state"`
	ID     domain.StrokeID `json:"id"`
	Points []domain.Point  `json:"points,omitempty"`
	Count  int             `json:"count,omitempty"`
}

type wireTransformStrokes struct {
	State     string            `json:"state"`
	IDs       []domain.StrokeID `json:"ids"`
	Transform domain.Transform  `json:"transform"`
	Original  [][]domain.Point  `json:"original,omitempty"`
}

type wireRecolorStrokes struct {
	State    string            `json:"state"`
	IDs      []domain.StrokeID `json:"ids"`
	Style    Style             `json:"style"`
	Previous []Style           `json:"previous,omitempty"`
}

var errMalformedCommand = errors.New("malformed command")

// MarshalCommand encodes c as {"type": tag, "value": payload}. Commands caught
// mid-transition cannot be encoded.
func MarshalCommand(c Command) ([]byte, error) {
	if c.State() == StateInvalid {
		return nil, fmt.Errorf("encode %s: command in invalid state", c.Kind())
	}
	var value any
	switch c := c.(type) {
	case *Sentinel:
		value = struct{}{}
	case *AddStroke:
		w := wireAddStroke{State: c.state.String()}
		if c.state == StateBefore {
			w.Stroke = &c.stroke
		}
		if c.id.Index != arena.InvalidIndex {
			w.ID = &c.id
		}
		value = w
	case *RemoveStrokes:
		value = wireRemoveStrokes{State: c.state.String(), IDs: c.ids, Removed: c.removed}
	case *ExtendStroke:
		value = wireExtendStroke{State: c.state.String(), ID: c.id, Points: c.points, Count: c.count}
	case *TransformStrokes:
		value = wireTransformStrokes{State: c.state.String(), IDs: c.ids, Transform: c.transform, Original: c.original}
	case *RecolorStrokes:
		value = wireRecolorStrokes{State: c.state.String(), IDs: c.ids, Style: c.style, Previous: c.previous}
	default:
		return nil, fmt.Errorf("encode %T: %w", c, ErrUnknownCommand)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", c.Kind(), err)
	}
	return json.Marshal(wireCommand{Type: c.Kind().String(), Value: raw})
}

// UnmarshalCommand decodes a command encoded by MarshalCommand. Unknown tags
// yield ErrUnknownCommand.
func UnmarshalCommand(data []byte) (Command, error) {
	var w wireCommand
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode command: %w", err)
	}
	kind, ok := kindFromTag(w.Type)
	if !ok {
		return nil, fmt.Errorf("decode command %q: %w", w.Type, ErrUnknownCommand)
	}
	cmd, err := decodeCommandValue(kind, w.Value)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, err)
	}
	return cmd, nil
}

func decodeCommandValue(kind CommandKind, raw json.RawMessage) (Command, error) {
	switch kind {
	case KindSentinel:
		return &Sentinel{}, nil
	case KindAddStroke:
		var w wireAddStroke
		state, err := decodeWire(raw, &w, func() string { return w.State })
		if err != nil {
			return nil, err
		}
		c := &AddStroke{state: state, id: domain.NewStrokeID(arena.InvalidIndex)}
		if w.ID != nil {
			c.id = *w.ID
		}
		switch state {
		case StateBefore:
			if w.Stroke == nil || len(w.Stroke.Points) < 2 {
				return nil, fmt.Errorf("%w: before state needs a stroke with two points", errMalformedCommand)
			}
			c.stroke = *w.Stroke
		case StateAfter:
			if w.ID == nil {
				return nil, fmt.Errorf("%w: after state needs an id", errMalformedCommand)
			}
		}
		return c, nil
	case KindRemoveStrokes:
		var w wireRemoveStrokes
		state, err := decodeWire(raw, &w, func() string { return w.State })
		if err != nil {
			return nil, err
		}
		if state == StateBefore && len(w.IDs) == 0 || state == StateAfter && len(w.Removed) == 0 {
			return nil, ErrEmptySelection
		}
		return &RemoveStrokes{state: state, ids: w.IDs, removed: w.Removed}, nil
	case KindExtendStroke:
		var w wireExtendStroke
		state, err := decodeWire(raw, &w, func() string { return w.State })
		if err != nil {
			return nil, err
		}
		if w.Count < 0 {
			return nil, fmt.Errorf("%w: negative count", errMalformedCommand)
		}
		if state == StateBefore && len(w.Points) == 0 || state == StateAfter && w.Count == 0 {
			return nil, ErrEmptySelection
		}
		return &ExtendStroke{state: state, id: w.ID, points: w.Points, count: w.Count}, nil
	case KindTransformStrokes:
		var w wireTransformStrokes
		state, err := decodeWire(raw, &w, func() string { return w.State })
		if err != nil {
			return nil, err
		}
		if len(w.IDs) == 0 {
			return nil, ErrEmptySelection
		}
		if state == StateAfter && len(w.Original) != len(w.IDs) {
			return nil, fmt.Errorf("%w: %d originals for %d ids", errMalformedCommand, len(w.Original), len(w.IDs))
		}
		return &TransformStrokes{state: state, ids: w.IDs, transform: w.Transform, original: w.Original}, nil
	case KindRecolorStrokes:
		var w wireRecolorStrokes
		state, err := decodeWire(raw, &w, func() string { return w.State })
		if err != nil {
			return nil, err
		}
		if len(w.IDs) == 0 {
			return nil, ErrEmptySelection
		}
		if state == StateAfter && len(w.Previous) != len(w.IDs) {
			return nil, fmt.Errorf("%w: %d previous styles for %d ids", errMalformedCommand, len(w.Previous), len(w.IDs))
		}
		return &RecolorStrokes{state: state, ids: w.IDs, style: w.Style, previous: w.Previous}, nil
	}
	return nil, ErrUnknownCommand
}

func decodeWire(raw json.RawMessage, into any, state func() string) (CommandState, error) {
	if err := json.Unmarshal(raw, into); err != nil {
		return StateInvalid, err
	}
	switch s := state(); s {
	case "before":
		return StateBefore, nil
	case "after":
		return StateAfter, nil
	default:
		return StateInvalid, fmt.Errorf("%w: state %q", errMalformedCommand, s)
	}
}
