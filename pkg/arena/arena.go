// Package arena provides a slot-based container addressed by generational
// indices. Freed slots are reused, but an Index issued for an earlier
// occupant of a slot never resolves to a later one: lookups through a stale
// Index fail instead of aliasing.
//
// Iteration visits slots in ascending slot order, not insertion order.
package arena

import (
	"errors"
	"fmt"
	"iter"
	"math"
)

const defaultCapacity = 4

// ErrCorrupt reports an arena whose free list or occupancy bookkeeping is
// inconsistent, typically after decoding foreign data.
var ErrCorrupt = errors.New("arena: corrupt free list")

// Index identifies a slot together with the generation it was issued for.
type Index struct {
	Slot       uint32 `json:"slot"`
	Generation uint32 `json:"generation"`
}

// InvalidIndex never resolves in any arena.
var InvalidIndex = Index{Slot: math.MaxUint32, Generation: math.MaxUint32}

func (i Index) String() string {
	return fmt.Sprintf("%d:%d", i.Slot, i.Generation)
}

// Compare orders indices by slot, then generation.
func (i Index) Compare(o Index) int {
	switch {
	case i.Slot < o.Slot:
		return -1
	case i.Slot > o.Slot:
		return 1
	case i.Generation < o.Generation:
		return -1
	case i.Generation > o.Generation:
		return 1
	}
	return 0
}

// entry links free slots through next, stored as slot+1 so the zero value
// means "end of list".
type entry[T any] struct {
	occupied   bool
	next       uint32
	generation uint32
	value      T
}

// Arena stores values of type T in reusable slots. The zero value is an empty
// arena ready for use.
type Arena[T any] struct {
	entries    []entry[T]
	generation uint32
	head       uint32 // first free slot + 1, 0 when the free list is empty
	length     int
}

// New returns an arena with the default capacity.
func New[T any]() *Arena[T] {
	return WithCapacity[T](defaultCapacity)
}

// WithCapacity returns an arena with room for n values before growing.
func WithCapacity[T any](n int) *Arena[T] {
	a := &Arena[T]{}
	a.Reserve(max(n, 1))
	return a
}

// Len returns the number of occupied slots.
func (a *Arena[T]) Len() int { return a.length }

// IsEmpty reports whether the arena holds no values.
func (a *Arena[T]) IsEmpty() bool { return a.length == 0 }

// Cap returns the number of slots, free or occupied.
func (a *Arena[T]) Cap() int { return len(a.entries) }

// Reserve appends n free slots. New slots are handed out before older free
// slots.
func (a *Arena[T]) Reserve(n int) {
	if n <= 0 {
		return
	}
	start := len(a.entries)
	end := start + n
	if uint64(end) > math.MaxUint32 {
		panic("arena: capacity exceeds uint32 slot space")
	}
	oldHead := a.head
	a.entries = append(a.entries, make([]entry[T], n)...)
	for i := start; i < end; i++ {
		if i == end-1 {
			a.entries[i].next = oldHead
		} else {
			a.entries[i].next = uint32(i) + 2
		}
	}
	a.head = uint32(start) + 1
}

// TryInsert stores v without growing. It reports false when no slot is free.
func (a *Arena[T]) TryInsert(v T) (Index, bool) {
	idx, ok := a.allocate()
	if !ok {
		return InvalidIndex, false
	}
	a.entries[idx.Slot] = entry[T]{occupied: true, generation: idx.Generation, value: v}
	return idx, true
}

// Insert stores v and returns its index, doubling the backing store when the
// free list is exhausted.
func (a *Arena[T]) Insert(v T) Index {
	if idx, ok := a.TryInsert(v); ok {
		return idx
	}
	a.Reserve(max(len(a.entries), 1))
	idx, ok := a.TryInsert(v)
	if !ok {
		panic("arena: insert failed after reserving space")
	}
	return idx
}

// InsertWith stores the value produced by create, which receives the index
// the value will occupy.
func (a *Arena[T]) InsertWith(create func(Index) T) Index {
	if a.head == 0 {
		a.Reserve(max(len(a.entries), 1))
	}
	idx, _ := a.allocate()
	a.entries[idx.Slot] = entry[T]{occupied: true, generation: idx.Generation, value: create(idx)}
	return idx
}

func (a *Arena[T]) allocate() (Index, bool) {
	if a.head == 0 {
		return InvalidIndex, false
	}
	slot := a.head - 1
	e := &a.entries[slot]
	if e.occupied {
		panic("arena: corrupt free list")
	}
	a.head = e.next
	a.length++
	return Index{Slot: slot, Generation: a.generation}, true
}

// Restore re-occupies exactly idx with v. It reports false when the slot is
// already occupied. Slots beyond the current capacity are reserved first.
// Restoring an index that was previously removed makes handles issued for it
// valid again, which is what undo needs to keep identities stable.
func (a *Arena[T]) Restore(idx Index, v T) bool {
	if idx.Slot == math.MaxUint32 {
		return false
	}
	if int(idx.Slot) >= len(a.entries) {
		a.Reserve(int(idx.Slot) + 1 - len(a.entries))
	}
	e := &a.entries[idx.Slot]
	if e.occupied {
		return false
	}
	a.unlinkFree(idx.Slot)
	*e = entry[T]{occupied: true, generation: idx.Generation, value: v}
	a.length++
	// Keep later insertions from ever reissuing this generation.
	if idx.Generation >= a.generation {
		a.generation = idx.Generation + 1
	}
	return true
}

func (a *Arena[T]) unlinkFree(slot uint32) {
	target := slot + 1
	if a.head == target {
		a.head = a.entries[slot].next
		return
	}
	for cur := a.head; cur != 0; cur = a.entries[cur-1].next {
		if a.entries[cur-1].next == target {
			a.entries[cur-1].next = a.entries[slot].next
			return
		}
	}
	panic("arena: free slot missing from free list")
}

// Remove frees the slot addressed by idx and returns its value. Out of range,
// free and stale indices report false and leave the arena untouched.
func (a *Arena[T]) Remove(idx Index) (T, bool) {
	var zero T
	if int(idx.Slot) >= len(a.entries) {
		return zero, false
	}
	e := &a.entries[idx.Slot]
	if !e.occupied || e.generation != idx.Generation {
		return zero, false
	}
	v := e.value
	*e = entry[T]{next: a.head}
	a.generation++
	a.head = idx.Slot + 1
	a.length--
	return v, true
}

// Contains reports whether idx resolves to a live value.
func (a *Arena[T]) Contains(idx Index) bool {
	_, ok := a.Get(idx)
	return ok
}

// Get returns a pointer to the value at idx. The pointer stays valid until
// the next insertion that grows the arena.
func (a *Arena[T]) Get(idx Index) (*T, bool) {
	if int(idx.Slot) >= len(a.entries) {
		return nil, false
	}
	e := &a.entries[idx.Slot]
	if !e.occupied || e.generation != idx.Generation {
		return nil, false
	}
	return &e.value, true
}

// Get2 returns pointers for two indices at once. Indices sharing a slot must
// differ in generation, so at most one of them is live.
func (a *Arena[T]) Get2(i1, i2 Index) (*T, *T) {
	if i1 == i2 {
		panic("arena: Get2 called with identical indices")
	}
	v1, _ := a.Get(i1)
	v2, _ := a.Get(i2)
	return v1, v2
}

// GetUnknownGen returns the live value in slot whatever its generation.
func (a *Arena[T]) GetUnknownGen(slot uint32) (*T, Index, bool) {
	if int(slot) >= len(a.entries) {
		return nil, InvalidIndex, false
	}
	e := &a.entries[slot]
	if !e.occupied {
		return nil, InvalidIndex, false
	}
	return &e.value, Index{Slot: slot, Generation: e.generation}, true
}

// Retain removes every value for which keep returns false. Slots are walked
// by raw index so removals never disturb slots not yet visited.
func (a *Arena[T]) Retain(keep func(Index, *T) bool) {
	for i := range a.entries {
		e := &a.entries[i]
		if !e.occupied {
			continue
		}
		idx := Index{Slot: uint32(i), Generation: e.generation}
		if !keep(idx, &e.value) {
			a.Remove(idx)
		}
	}
}

// All yields every live value with its index in ascending slot order. The
// arena must not be modified during iteration.
func (a *Arena[T]) All() iter.Seq2[Index, *T] {
	return func(yield func(Index, *T) bool) {
		for i := range a.entries {
			e := &a.entries[i]
			if !e.occupied {
				continue
			}
			if !yield(Index{Slot: uint32(i), Generation: e.generation}, &e.value) {
				return
			}
		}
	}
}

// Indices yields the index of every live value in ascending slot order.
func (a *Arena[T]) Indices() iter.Seq[Index] {
	return func(yield func(Index) bool) {
		for idx := range a.All() {
			if !yield(idx) {
				return
			}
		}
	}
}

// Values yields every live value in ascending slot order.
func (a *Arena[T]) Values() iter.Seq[*T] {
	return func(yield func(*T) bool) {
		for _, v := range a.All() {
			if !yield(v) {
				return
			}
		}
	}
}

// Drain empties the arena and yields the values it held. The arena keeps its
// generation counter, so indices issued before the drain stay stale.
func (a *Arena[T]) Drain() iter.Seq2[Index, T] {
	entries := a.entries
	if a.length > 0 {
		a.generation++
	}
	a.entries = nil
	a.head = 0
	a.length = 0
	return func(yield func(Index, T) bool) {
		for i, e := range entries {
			if !e.occupied {
				continue
			}
			if !yield(Index{Slot: uint32(i), Generation: e.generation}, e.value) {
				return
			}
		}
	}
}

// Clear frees every slot while keeping capacity.
func (a *Arena[T]) Clear() {
	if a.length > 0 {
		a.generation++
	}
	n := len(a.entries)
	a.entries = a.entries[:0]
	a.head = 0
	a.length = 0
	a.Reserve(n)
}

// Clone returns a copy of the arena using cloneValue for each live value.
// A nil cloneValue copies values shallowly.
func (a *Arena[T]) Clone(cloneValue func(T) T) *Arena[T] {
	out := &Arena[T]{
		entries:    make([]entry[T], len(a.entries)),
		generation: a.generation,
		head:       a.head,
		length:     a.length,
	}
	copy(out.entries, a.entries)
	if cloneValue != nil {
		for i := range out.entries {
			if out.entries[i].occupied {
				out.entries[i].value = cloneValue(out.entries[i].value)
			}
		}
	}
	return out
}

// Validate checks the free-list and length invariants: every free slot is
// reachable from the head exactly once and the length matches the number of
// occupied slots.
func (a *Arena[T]) Validate() error {
	occupied := 0
	free := 0
	for i := range a.entries {
		if a.entries[i].occupied {
			occupied++
		} else {
			free++
		}
	}
	if occupied != a.length {
		return fmt.Errorf("%w: length %d but %d occupied slots", ErrCorrupt, a.length, occupied)
	}
	seen := make([]bool, len(a.entries))
	reached := 0
	for cur := a.head; cur != 0; cur = a.entries[cur-1].next {
		slot := int(cur - 1)
		if slot >= len(a.entries) {
			return fmt.Errorf("%w: free link to slot %d out of range", ErrCorrupt, slot)
		}
		if a.entries[slot].occupied {
			return fmt.Errorf("%w: occupied slot %d on free list", ErrCorrupt, slot)
		}
		if seen[slot] {
			return fmt.Errorf("%w: cycle at slot %d", ErrCorrupt, slot)
		}
		seen[slot] = true
		reached++
	}
	if reached != free {
		return fmt.Errorf("%w: %d free slots but %d reachable", ErrCorrupt, free, reached)
	}
	return nil
}
