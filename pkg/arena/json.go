package arena

import (
	"encoding/json"
	"fmt"
)

type wireArena[T any] struct {
	Generation uint32         `json:"generation"`
	FreeHead   *uint32        `json:"free_head,omitempty"`
	Entries    []wireEntry[T] `json:"entries"`
}

type wireEntry[T any] struct {
	Free       bool    `json:"free,omitempty"`
	Next       *uint32 `json:"next,omitempty"`
	Generation uint32  `json:"generation,omitempty"`
	Value      *T      `json:"value,omitempty"`
}

func slotRef(link uint32) *uint32 {
	if link == 0 {
		return nil
	}
	slot := link - 1
	return &slot
}

// MarshalJSON encodes the arena including its free list, so that decoded
// arenas hand out the same indices as the original.
func (a *Arena[T]) MarshalJSON() ([]byte, error) {
	w := wireArena[T]{
		Generation: a.generation,
		FreeHead:   slotRef(a.head),
		Entries:    make([]wireEntry[T], len(a.entries)),
	}
	for i := range a.entries {
		e := &a.entries[i]
		if !e.occupied {
			w.Entries[i] = wireEntry[T]{Free: true, Next: slotRef(e.next)}
			continue
		}
		w.Entries[i] = wireEntry[T]{Generation: e.generation, Value: &e.value}
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes an arena and validates its free list. On error the
// receiver is left unchanged.
func (a *Arena[T]) UnmarshalJSON(data []byte) error {
	var w wireArena[T]
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	decoded := Arena[T]{
		entries:    make([]entry[T], len(w.Entries)),
		generation: w.Generation,
	}
	if w.FreeHead != nil {
		decoded.head = *w.FreeHead + 1
	}
	for i, we := range w.Entries {
		if we.Free {
			if we.Next != nil {
				decoded.entries[i].next = *we.Next + 1
			}
			continue
		}
		if we.Value == nil {
			return fmt.Errorf("%w: occupied slot %d has no value", ErrCorrupt, i)
		}
		if we.Generation > w.Generation {
			return fmt.Errorf("%w: slot %d generation %d ahead of arena generation %d", ErrCorrupt, i, we.Generation, w.Generation)
		}
		decoded.entries[i] = entry[T]{occupied: true, generation: we.Generation, value: *we.Value}
		decoded.length++
	}
	if err := decoded.Validate(); err != nil {
		return err
	}
	*a = decoded
	return nil
}
