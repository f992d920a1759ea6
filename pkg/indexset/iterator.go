package indexset

import (
	"iter"
	"sort"
)

// Iterators cache positions into the range list of their set. Any mutation
// of the set, including the implicit compression that follows one,
// invalidates every live iterator; using an iterator after that is
// undefined.

const endRange = -1

// ElementIterator walks the members of a set in ascending order.
type ElementIterator struct {
	set      *IndexSet
	rangeIdx int
	idx      Index
}

// Begin returns an iterator at the smallest member of s, or End() if s is
// empty.
func (s *IndexSet) Begin() ElementIterator {
	s.Compress()
	if len(s.ranges) == 0 {
		return s.End()
	}
	return ElementIterator{set: s, rangeIdx: 0, idx: s.ranges[0].begin}
}

// At returns an iterator at the smallest member that is >= i, or End() if
// there is none.
func (s *IndexSet) At(i Index) ElementIterator {
	s.Compress()
	j := sort.Search(len(s.ranges), func(j int) bool { return s.ranges[j].end > i })
	if j == len(s.ranges) {
		return s.End()
	}
	return ElementIterator{set: s, rangeIdx: j, idx: max(i, s.ranges[j].begin)}
}

// End returns the past-the-end iterator of s.
func (s *IndexSet) End() ElementIterator {
	return ElementIterator{set: s, rangeIdx: endRange}
}

// Valid reports whether it points at a member.
func (it ElementIterator) Valid() bool {
	return it.set != nil && it.rangeIdx >= 0 && it.rangeIdx < len(it.set.ranges)
}

// Index returns the member it points at.
func (it ElementIterator) Index() Index {
	if !it.Valid() {
		violate("ElementIterator.Index", ErrInvalidIterator, "dereferencing end iterator")
	}
	return it.idx
}

// Next advances it to the next member and reports whether it is still
// valid.
func (it *ElementIterator) Next() bool {
	if !it.Valid() {
		violate("ElementIterator.Next", ErrInvalidIterator, "advancing end iterator")
	}
	it.idx++
	if it.idx == it.set.ranges[it.rangeIdx].end {
		it.rangeIdx++
		if it.rangeIdx < len(it.set.ranges) {
			it.idx = it.set.ranges[it.rangeIdx].begin
		} else {
			it.rangeIdx, it.idx = endRange, 0
		}
	}
	return it.rangeIdx != endRange
}

// Equal reports whether it and other point at the same position.
func (it ElementIterator) Equal(other ElementIterator) bool {
	it.sameSet("ElementIterator.Equal", other.set)
	if it.rangeIdx != other.rangeIdx {
		return false
	}
	return it.rangeIdx == endRange || it.idx == other.idx
}

// Less reports whether it comes before other. End() comes after every valid
// iterator.
func (it ElementIterator) Less(other ElementIterator) bool {
	it.sameSet("ElementIterator.Less", other.set)
	if !it.Valid() {
		return false
	}
	if !other.Valid() {
		return true
	}
	if it.rangeIdx != other.rangeIdx {
		return it.rangeIdx < other.rangeIdx
	}
	return it.idx < other.idx
}

// Distance returns how many times other must be advanced to reach it. The
// result is negative when it comes before other.
func (it ElementIterator) Distance(other ElementIterator) int64 {
	it.sameSet("ElementIterator.Distance", other.set)
	if it.Equal(other) {
		return 0
	}
	if !it.Less(other) {
		return -other.Distance(it)
	}

	rr := it.set.ranges
	// finish the current range, then whole ranges up to other's range
	c := int64(rr[it.rangeIdx].end - it.idx)
	for r := it.rangeIdx + 1; r < len(rr) && (other.rangeIdx == endRange || r <= other.rangeIdx); r++ {
		c += int64(rr[r].len())
	}
	// back off the part of other's range that lies behind other
	if other.rangeIdx != endRange {
		c -= int64(rr[other.rangeIdx].end - other.idx)
	}
	return -c
}

func (it ElementIterator) sameSet(op string, other *IndexSet) {
	if it.set != other {
		violate(op, ErrInvalidIterator, "iterators belong to different sets")
	}
}

// IntervalIterator walks the maximal ranges of a set in ascending order.
type IntervalIterator struct {
	set      *IndexSet
	rangeIdx int
}

// BeginIntervals returns an iterator at the first range of s.
func (s *IndexSet) BeginIntervals() IntervalIterator {
	s.Compress()
	if len(s.ranges) == 0 {
		return s.EndIntervals()
	}
	return IntervalIterator{set: s, rangeIdx: 0}
}

// EndIntervals returns the past-the-end interval iterator of s.
func (s *IndexSet) EndIntervals() IntervalIterator {
	return IntervalIterator{set: s, rangeIdx: endRange}
}

// Valid reports whether it points at a range.
func (it IntervalIterator) Valid() bool {
	return it.set != nil && it.rangeIdx >= 0 && it.rangeIdx < len(it.set.ranges)
}

// Next advances it to the next range and reports whether it is still valid.
func (it *IntervalIterator) Next() bool {
	if !it.Valid() {
		violate("IntervalIterator.Next", ErrInvalidIterator, "advancing end iterator")
	}
	it.rangeIdx++
	if it.rangeIdx >= len(it.set.ranges) {
		it.rangeIdx = endRange
	}
	return it.rangeIdx != endRange
}

func (it IntervalIterator) current(op string) span {
	if !it.Valid() {
		violate(op, ErrInvalidIterator, "dereferencing end iterator")
	}
	return it.set.ranges[it.rangeIdx]
}

// Range returns the range it points at.
func (it IntervalIterator) Range() Range {
	return it.current("IntervalIterator.Range").toRange()
}

// NElements returns the number of members in the current range.
func (it IntervalIterator) NElements() Index {
	return it.current("IntervalIterator.NElements").len()
}

// First returns the first member of the current range.
func (it IntervalIterator) First() Index {
	return it.current("IntervalIterator.First").begin
}

// Last returns the last member of the current range.
func (it IntervalIterator) Last() Index {
	return it.current("IntervalIterator.Last").end - 1
}

// Begin returns an element iterator at the first member of the current
// range.
func (it IntervalIterator) Begin() ElementIterator {
	r := it.current("IntervalIterator.Begin")
	return ElementIterator{set: it.set, rangeIdx: it.rangeIdx, idx: r.begin}
}

// End returns the element iterator just past the current range: the first
// member of the next range, or End() of the set.
func (it IntervalIterator) End() ElementIterator {
	it.current("IntervalIterator.End")
	if next := it.rangeIdx + 1; next < len(it.set.ranges) {
		return ElementIterator{set: it.set, rangeIdx: next, idx: it.set.ranges[next].begin}
	}
	return it.set.End()
}

// Equal reports whether it and other point at the same range.
func (it IntervalIterator) Equal(other IntervalIterator) bool {
	it.sameSet("IntervalIterator.Equal", other.set)
	return it.rangeIdx == other.rangeIdx
}

// Less reports whether it comes before other.
func (it IntervalIterator) Less(other IntervalIterator) bool {
	it.sameSet("IntervalIterator.Less", other.set)
	return it.position() < other.position()
}

// Distance returns how many times other must be advanced to reach it.
func (it IntervalIterator) Distance(other IntervalIterator) int {
	it.sameSet("IntervalIterator.Distance", other.set)
	return it.position() - other.position()
}

func (it IntervalIterator) position() int {
	if it.rangeIdx == endRange {
		return len(it.set.ranges)
	}
	return it.rangeIdx
}

func (it IntervalIterator) sameSet(op string, other *IndexSet) {
	if it.set != other {
		violate(op, ErrInvalidIterator, "iterators belong to different sets")
	}
}

// All yields every member of s in ascending order.
func (s *IndexSet) All() iter.Seq[Index] {
	return func(yield func(Index) bool) {
		s.Compress()
		for _, r := range s.ranges {
			for i := r.begin; i < r.end; i++ {
				if !yield(i) {
					return
				}
			}
		}
	}
}

// Intervals yields every maximal range of s in ascending order.
func (s *IndexSet) Intervals() iter.Seq[Range] {
	return func(yield func(Range) bool) {
		s.Compress()
		for _, r := range s.ranges {
			if !yield(r.toRange()) {
				return
			}
		}
	}
}
