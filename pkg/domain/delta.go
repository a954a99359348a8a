package domain

// StrokeDelta is a write log of stroke ids touched since it was last cleared.
// It is not a diff: an id may appear several times, in several lists, and
// consumers must treat re-processing an id as idempotent.
type StrokeDelta struct {
	Added    []StrokeID `json:"added"`
	Modified []StrokeID `json:"modified"`
	Removed  []StrokeID `json:"removed"`
}

// Clear empties all three lists, keeping their storage.
func (d *StrokeDelta) Clear() {
	d.Added = d.Added[:0]
	d.Modified = d.Modified[:0]
	d.Removed = d.Removed[:0]
}

// IsEmpty reports whether nothing was recorded.
func (d StrokeDelta) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Modified) == 0 && len(d.Removed) == 0
}

// Touched returns added followed by modified ids, the set a consumer has to
// re-derive.
func (d StrokeDelta) Touched() []StrokeID {
	out := make([]StrokeID, 0, len(d.Added)+len(d.Modified))
	out = append(out, d.Added...)
	return append(out, d.Modified...)
}

// ContentDelta groups the per-entity deltas of a document.
type ContentDelta struct {
	Strokes StrokeDelta `json:"strokes"`
}

// Clear empties every entity delta.
func (d *ContentDelta) Clear() {
	d.Strokes.Clear()
}

// IsEmpty reports whether no entity delta holds an entry.
func (d ContentDelta) IsEmpty() bool {
	return d.Strokes.IsEmpty()
}
