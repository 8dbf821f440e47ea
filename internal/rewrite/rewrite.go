// Package rewrite applies a set of byte-range Transformations to a source
// buffer as a single atomic edit, enforcing the non-overlap invariant every
// rule producing a fix must respect.
package rewrite

import (
	"fmt"
	"sort"

	"github.com/capl-tools/capllint/internal/model"
)

// Builder accumulates Transformations from one or more rules before they
// are applied together. Overlap is checked by Apply, not as each one is
// added.
type Builder struct {
	transformations []model.Transformation
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Add appends t to the builder. It does not check overlap eagerly against
// every prior entry (that check happens once, cheaply, at Apply time) so
// rules can add transformations in any order.
func (b *Builder) Add(t model.Transformation) {
	b.transformations = append(b.transformations, t)
}

// Delete records the removal of [start, end).
func (b *Builder) Delete(start, end int, rule string) {
	b.Add(model.Transformation{StartByte: start, EndByte: end, Replacement: nil, OriginatingRule: rule})
}

// Insert records inserting replacement at offset (a zero-length range).
func (b *Builder) Insert(offset int, replacement []byte, rule string) {
	b.Add(model.Transformation{StartByte: offset, EndByte: offset, Replacement: replacement, OriginatingRule: rule})
}

// Replace records replacing [start, end) with replacement.
func (b *Builder) Replace(start, end int, replacement []byte, rule string) {
	b.Add(model.Transformation{StartByte: start, EndByte: end, Replacement: replacement, OriginatingRule: rule})
}

// Len reports how many transformations have been added.
func (b *Builder) Len() int { return len(b.transformations) }

// Transformations returns the accumulated set without applying it.
func (b *Builder) Transformations() []model.Transformation {
	return append([]model.Transformation{}, b.transformations...)
}

// OverlapError reports two transformations whose byte ranges intersect.
type OverlapError struct {
	A, B model.Transformation
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("overlapping transformations from %s [%d,%d) and %s [%d,%d)",
		e.A.OriginatingRule, e.A.StartByte, e.A.EndByte,
		e.B.OriginatingRule, e.B.StartByte, e.B.EndByte)
}

// Apply sorts transformations by (start byte, priority) and rewrites source
// into a new buffer. At the same start byte a pure insert sorts ahead of a
// deletion or replacement, so text can be inserted exactly where a removed
// range begins. Zero-length ranges at the same offset (pure inserts)
// are allowed to abut; any two ranges that share a byte are a hard error,
// since resolving them silently would hide a rule authoring bug.
func Apply(source []byte, transformations []model.Transformation) ([]byte, error) {
	if len(transformations) == 0 {
		out := make([]byte, len(source))
		copy(out, source)
		return out, nil
	}

	sorted := append([]model.Transformation{}, transformations...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].StartByte != sorted[j].StartByte {
			return sorted[i].StartByte < sorted[j].StartByte
		}
		iInsert := sorted[i].StartByte == sorted[i].EndByte
		jInsert := sorted[j].StartByte == sorted[j].EndByte
		if iInsert != jInsert {
			return iInsert
		}
		return sorted[i].Priority < sorted[j].Priority
	})

	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if rangesOverlap(prev, cur) {
			return nil, &OverlapError{A: prev, B: cur}
		}
	}

	var out []byte
	cursor := 0
	for _, t := range sorted {
		if t.StartByte > len(source) || t.EndByte > len(source) || t.StartByte > t.EndByte {
			return nil, fmt.Errorf("transformation from %s out of bounds: [%d,%d) over %d bytes",
				t.OriginatingRule, t.StartByte, t.EndByte, len(source))
		}
		if t.StartByte < cursor {
			return nil, fmt.Errorf("transformation from %s starts before cursor: start=%d cursor=%d",
				t.OriginatingRule, t.StartByte, cursor)
		}
		out = append(out, source[cursor:t.StartByte]...)
		out = append(out, t.Replacement...)
		cursor = t.EndByte
	}
	out = append(out, source[cursor:]...)
	return out, nil
}

// rangesOverlap treats two zero-length ranges at the same offset as
// non-overlapping (both are pure inserts at the same point; they are
// ordered by priority and stack in that order) but any true interval
// intersection, or a zero-length range landing strictly inside another
// transformation's span, as an overlap.
func rangesOverlap(a, b model.Transformation) bool {
	if a.StartByte == a.EndByte && b.StartByte == b.EndByte && a.StartByte == b.StartByte {
		return false
	}
	aRange := model.Range{StartByte: a.StartByte, EndByte: a.EndByte}
	bRange := model.Range{StartByte: b.StartByte, EndByte: b.EndByte}
	if aRange.Len() == 0 {
		return b.StartByte < a.StartByte && a.StartByte < b.EndByte
	}
	if bRange.Len() == 0 {
		return a.StartByte < b.StartByte && b.StartByte < a.EndByte
	}
	return aRange.Overlaps(bRange)
}

// CollectRemoveInsert implements the mandatory pattern for rules that move
// code (E003/E006/E007): items are deleted from their original positions
// and their concatenated text, in original relative order, is inserted once
// at target, each with a trailing newline.
func CollectRemoveInsert(b *Builder, items []model.Range, source []byte, target int, rule string) {
	if len(items) == 0 {
		return
	}
	sorted := append([]model.Range{}, items...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].StartByte < sorted[j].StartByte })

	var moved []byte
	for _, r := range sorted {
		moved = append(moved, source[r.StartByte:r.EndByte]...)
		if len(moved) == 0 || moved[len(moved)-1] != '\n' {
			moved = append(moved, '\n')
		}
		b.Delete(r.StartByte, r.EndByte, rule)
	}
	b.Insert(target, moved, rule)
}
