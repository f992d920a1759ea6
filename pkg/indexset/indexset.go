// Package indexset implements a compressed subset of the integers [0, N).
//
// An IndexSet stores its members as a sorted list of disjoint half-open
// ranges. Mutators leave the set in a dirty state; the first query after a
// mutation canonicalizes it (merges ranges, recomputes the per-range rank
// and the largest-range cache). Canonicalization is guarded by a lock owned
// by the set, so a set that is built once and then shared read-only between
// goroutines is safe to query concurrently. Mutators are not synchronized.
//
// Precondition violations panic with a *ContractError.
package indexset

import (
	"iter"
	"math"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
)

// Index is a member of the universe [0, Size()).
type Index = uint64

// InvalidIndex is returned by lookups for an index that is not a member.
const InvalidIndex Index = math.MaxUint64

// IndexSet is a subset of [0, Size()). The zero value is an empty set over
// an empty universe. An IndexSet must not be copied after first use; use
// Clone.
type IndexSet struct {
	// ranges is always sorted by begin. While dirty is set the ranks and
	// largest are stale and neighbouring ranges may touch.
	ranges  []span
	size    Index
	largest int

	dirty atomic.Bool
	mu    sync.Mutex
}

// New returns an empty set over the universe [0, size).
func New(size Index) *IndexSet {
	return &IndexSet{size: size}
}

// Complete returns the set holding every index of [0, size).
func Complete(size Index) *IndexSet {
	s := New(size)
	s.AddRange(0, size)
	s.Compress()
	return s
}

// FromRanges returns a set over [0, size) holding the union of rr.
func FromRanges(size Index, rr ...Range) *IndexSet {
	s := New(size)
	for _, r := range rr {
		s.AddRange(r.Begin, r.End)
	}
	return s
}

// Clone returns a deep copy of s.
func (s *IndexSet) Clone() *IndexSet {
	s.Compress()
	return &IndexSet{
		ranges:  slices.Clone(s.ranges),
		size:    s.size,
		largest: s.largest,
	}
}

// Size returns the size of the universe.
func (s *IndexSet) Size() Index {
	return s.size
}

// SetSize changes the universe size. The set must be empty.
func (s *IndexSet) SetSize(size Index) {
	if len(s.ranges) > 0 {
		violate("SetSize", ErrNotEmpty, "cannot resize a set holding %d ranges", len(s.ranges))
	}
	s.size = size
	s.dirty.Store(false)
}

// Clear removes every member. The universe size is retained.
func (s *IndexSet) Clear() {
	s.ranges = s.ranges[:0]
	s.largest = 0
	s.dirty.Store(false)
}

// AddIndex adds a single index.
func (s *IndexSet) AddIndex(i Index) {
	checkRange("AddIndex", i, s.size)
	s.AddRange(i, i+1)
}

// AddRange adds every index of [begin, end). begin == end is a no-op.
func (s *IndexSet) AddRange(begin, end Index) {
	if begin > end || end > s.size {
		violate("AddRange", ErrIndexRange, "range [%d, %d) is not within [0, %d)", begin, end, s.size)
	}
	if begin == end {
		return
	}
	n := len(s.ranges)
	switch {
	case n == 0 || begin > s.ranges[n-1].end:
		s.ranges = append(s.ranges, span{begin: begin, end: end})
	case begin == s.ranges[n-1].end:
		s.ranges[n-1].end = end
	default:
		s.addRangeLowerBound(begin, end)
	}
	s.dirty.Store(true)
}

// addRangeLowerBound inserts [begin, end) at its sorted position and merges
// it with every range it overlaps or touches.
func (s *IndexSet) addRangeLowerBound(begin, end Index) {
	rr := s.ranges
	i := sort.Search(len(rr), func(i int) bool { return rr[i].begin > begin }) - 1
	j := sort.Search(len(rr), func(i int) bool { return rr[i].end > end })
	if i == j {
		// already covered by rr[i]
		return
	}

	var r span
	if i >= 0 && begin <= rr[i].end {
		r.begin = rr[i].begin
	} else {
		r.begin = begin
		i++
	}
	if j < len(rr) && rr[j].begin <= end {
		r.end = rr[j].end
		j++
	} else {
		r.end = end
	}

	if i < j {
		rr[i] = r
	} else {
		rr = append(rr, span{})
		copy(rr[i+1:], rr[i:])
		rr[i] = r
	}
	i++

	if i < j {
		rr = append(rr[:i], rr[j:]...)
	}
	s.ranges = rr
}

// AddIndices adds every index in indices, in any order, duplicates allowed.
func (s *IndexSet) AddIndices(indices []Index) {
	s.AddIndexSeq(slices.Values(indices))
}

// AddIndexSeq adds every index yielded by seq. Consecutive values are
// collapsed into runs first; runs that arrive in ascending order are
// appended and merged in one pass, otherwise each run is inserted on its own.
func (s *IndexSet) AddIndexSeq(seq iter.Seq[Index]) {
	var (
		runs   []span
		cur    span
		open   bool
		sorted = true
	)
	for v := range seq {
		checkRange("AddIndices", v, s.size)
		switch {
		case !open:
			cur, open = span{begin: v, end: v + 1}, true
		case v == cur.end-1:
			// duplicate of the last value
		case v == cur.end:
			cur.end++
		default:
			runs = append(runs, cur)
			if v < cur.end {
				sorted = false
			}
			cur = span{begin: v, end: v + 1}
		}
	}
	if !open {
		return
	}
	runs = append(runs, cur)

	if sorted {
		s.ranges = append(s.ranges, runs...)
		s.dirty.Store(true)
		s.Compress()
		return
	}
	for _, r := range runs {
		s.AddRange(r.begin, r.end)
	}
}

// AddIndexSet adds every member x of other as x+offset.
func (s *IndexSet) AddIndexSet(other *IndexSet, offset Index) {
	if other == s {
		other = s.Clone()
	}
	other.Compress()
	if n := len(other.ranges); n > 0 {
		if last := other.ranges[n-1].end; last+offset > s.size || last+offset < last {
			violate("AddIndexSet", ErrIndexRange, "shifted index %d exceeds universe size %d", last-1+offset, s.size)
		}
	}
	for _, r := range other.ranges {
		s.AddRange(r.begin+offset, r.end+offset)
	}
}

// SubtractSet removes every member of other from s.
func (s *IndexSet) SubtractSet(other *IndexSet) {
	if other == s {
		s.Clear()
		return
	}
	s.Compress()
	other.Compress()
	if len(other.ranges) == 0 {
		return
	}
	if other.size != s.size {
		violate("SubtractSet", ErrSizeMismatch, "%d != %d", s.size, other.size)
	}

	in, out := s.ranges, other.ranges
	res := make([]span, 0, len(in))
	for len(in) > 0 && len(out) > 0 {
		rin, rout := in[0], out[0]

		switch {
		case rout.end <= rin.begin:
			// "out" is entirely before "in".
			//
			//    out         in
			// b-------e   b-------e
			out = out[1:]
		case rin.end <= rout.begin:
			// "in" is entirely before "out".
			//
			//    in         out
			// b------e   b-------e
			res = append(res, rin)
			in = in[1:]
		case rout.begin <= rin.begin && rin.end <= rout.end:
			// "out" entirely covers "in".
			//
			//       out
			// b-------------e
			//    b------e
			//       in
			in = in[1:]
		case rin.begin < rout.begin && rout.end < rin.end:
			// "in" entirely covers "out".
			//
			//       in
			// b-------------e
			//    b------e
			//       out
			res = append(res, span{begin: rin.begin, end: rout.begin})
			// keep the tail of in[0] for the next out
			in[0].begin = rout.end
			out = out[1:]
		case rout.begin <= rin.begin:
			// "out" overlaps the start of "in".
			//
			//   out
			// b------e
			//    b------e
			//       in
			in[0].begin = rout.end
			out = out[1:]
		default:
			// "out" overlaps the end of "in".
			//
			//           out
			//        b------e
			//    b------e
			//       in
			res = append(res, span{begin: rin.begin, end: rout.begin})
			in = in[1:]
		}
	}
	res = append(res, in...)

	s.ranges = res
	s.dirty.Store(true)
}

// PopBack removes and returns the largest member.
func (s *IndexSet) PopBack() Index {
	s.Compress()
	n := len(s.ranges)
	if n == 0 {
		violate("PopBack", ErrEmptySet, "no member to remove")
	}
	last := &s.ranges[n-1]
	last.end--
	v := last.end
	if last.end == last.begin {
		s.ranges = s.ranges[:n-1]
	}
	s.dirty.Store(true)
	return v
}

// PopFront removes and returns the smallest member.
func (s *IndexSet) PopFront() Index {
	s.Compress()
	if len(s.ranges) == 0 {
		violate("PopFront", ErrEmptySet, "no member to remove")
	}
	first := &s.ranges[0]
	v := first.begin
	first.begin++
	if first.begin == first.end {
		s.ranges = s.ranges[1:]
	}
	s.dirty.Store(true)
	return v
}

// Compress canonicalizes s. It is a no-op on a canonical set and safe to call
// from several goroutines at once.
func (s *IndexSet) Compress() {
	if !s.dirty.Load() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty.Load() {
		return
	}
	s.doCompress()
	s.dirty.Store(false)
}

func (s *IndexSet) doCompress() {
	rr := s.ranges
	sort.Slice(rr, func(i, j int) bool { return rr[i].less(rr[j]) })

	n := 0
	for _, r := range rr {
		if n > 0 && r.begin <= rr[n-1].end {
			// overlapping or touching
			if r.end > rr[n-1].end {
				rr[n-1].end = r.end
			}
			continue
		}
		rr[n] = r
		n++
	}
	rr = rr[:n]

	var rank Index
	s.largest = 0
	for i := range rr {
		rr[i].rank = rank
		rank += rr[i].len()
		if rr[i].len() > rr[s.largest].len() {
			s.largest = i
		}
	}
	s.ranges = rr
}

// IsCompressed reports whether s is in canonical form.
func (s *IndexSet) IsCompressed() bool {
	return !s.dirty.Load()
}
