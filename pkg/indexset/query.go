package indexset

import (
	"fmt"
	"sort"
	"strings"
)

// IsElement reports whether i is a member of s.
func (s *IndexSet) IsElement(i Index) bool {
	s.Compress()
	if len(s.ranges) == 0 {
		return false
	}
	if r := s.ranges[s.largest]; i >= r.begin && i < r.end {
		return true
	}
	if len(s.ranges) > 1 {
		return s.isElementBinarySearch(i)
	}
	return false
}

func (s *IndexSet) isElementBinarySearch(i Index) bool {
	j := sort.Search(len(s.ranges), func(j int) bool { return s.ranges[j].end > i })
	return j < len(s.ranges) && s.ranges[j].begin <= i
}

// NthIndexInSet returns the k-th smallest member of s. k must be less than
// NElements().
func (s *IndexSet) NthIndexInSet(k Index) Index {
	if n := s.NElements(); k >= n {
		violate("NthIndexInSet", ErrIndexRange, "rank %d is not in [0, %d)", k, n)
	}
	if r := s.ranges[s.largest]; k >= r.rank && k < r.rank+r.len() {
		return r.begin + (k - r.rank)
	}
	return s.nthIndexInSetBinarySearch(k)
}

func (s *IndexSet) nthIndexInSetBinarySearch(k Index) Index {
	j := sort.Search(len(s.ranges), func(j int) bool {
		return s.ranges[j].rank+s.ranges[j].len() > k
	})
	r := s.ranges[j]
	return r.begin + (k - r.rank)
}

// IndexWithinSet returns the rank of i among the members of s, or
// InvalidIndex when i is not a member.
//
// IndexWithinSet never compresses, so it is safe to call concurrently
// without touching the lock. s must already be compressed.
func (s *IndexSet) IndexWithinSet(i Index) Index {
	if s.dirty.Load() {
		violate("IndexWithinSet", ErrNotCompressed, "call Compress first")
	}
	checkRange("IndexWithinSet", i, s.size)
	if len(s.ranges) == 0 {
		return InvalidIndex
	}
	if r := s.ranges[s.largest]; i >= r.begin && i < r.end {
		return r.rank + (i - r.begin)
	}
	if len(s.ranges) > 1 {
		return s.indexWithinSetBinarySearch(i)
	}
	return InvalidIndex
}

func (s *IndexSet) indexWithinSetBinarySearch(i Index) Index {
	j := sort.Search(len(s.ranges), func(j int) bool { return s.ranges[j].end > i })
	if j == len(s.ranges) || s.ranges[j].begin > i {
		return InvalidIndex
	}
	return s.ranges[j].rank + (i - s.ranges[j].begin)
}

// NIntervals returns the number of maximal ranges in s.
func (s *IndexSet) NIntervals() int {
	s.Compress()
	return len(s.ranges)
}

// NElements returns the number of members of s.
func (s *IndexSet) NElements() Index {
	s.Compress()
	if len(s.ranges) == 0 {
		return 0
	}
	last := s.ranges[len(s.ranges)-1]
	return last.rank + last.len()
}

// IsEmpty reports whether s has no members.
func (s *IndexSet) IsEmpty() bool {
	s.Compress()
	return len(s.ranges) == 0
}

// IsContiguous reports whether s consists of at most one range.
func (s *IndexSet) IsContiguous() bool {
	s.Compress()
	return len(s.ranges) <= 1
}

// LargestRangeStartingIndex returns the rank of the first member of the
// largest range. s must not be empty.
func (s *IndexSet) LargestRangeStartingIndex() Index {
	s.Compress()
	if len(s.ranges) == 0 {
		violate("LargestRangeStartingIndex", ErrEmptySet, "no largest range")
	}
	return s.ranges[s.largest].rank
}

// LargestRange returns the largest range of s, the first one on ties.
// ok is false when s is empty.
func (s *IndexSet) LargestRange() (Range, bool) {
	s.Compress()
	if len(s.ranges) == 0 {
		return Range{}, false
	}
	return s.ranges[s.largest].toRange(), true
}

// Ranges returns a copy of the canonical ranges of s in ascending order.
func (s *IndexSet) Ranges() []Range {
	s.Compress()
	out := make([]Range, 0, len(s.ranges))
	for _, r := range s.ranges {
		out = append(out, r.toRange())
	}
	return out
}

// IndexVector returns every member of s in ascending order.
func (s *IndexSet) IndexVector() []Index {
	out := make([]Index, 0, s.NElements())
	for _, r := range s.ranges {
		for i := r.begin; i < r.end; i++ {
			out = append(out, i)
		}
	}
	return out
}

// IsSubsetOf reports whether every member of s is a member of other.
func (s *IndexSet) IsSubsetOf(other *IndexSet) bool {
	if s.IsEmpty() {
		return true
	}
	if other.size != s.size {
		violate("IsSubsetOf", ErrSizeMismatch, "%d != %d", s.size, other.size)
	}
	other.Compress()
	rr := other.ranges
	for _, r := range s.ranges {
		j := sort.Search(len(rr), func(j int) bool { return rr[j].end > r.begin })
		if j == len(rr) || rr[j].begin > r.begin || rr[j].end < r.end {
			return false
		}
	}
	return true
}

// Equal reports whether s and other hold the same members. Sets over
// different universes may only be compared when one of them has no members,
// in which case they are equal only if both have none.
func (s *IndexSet) Equal(other *IndexSet) bool {
	s.Compress()
	other.Compress()
	if s.size != other.size {
		if len(s.ranges) > 0 && len(other.ranges) > 0 {
			violate("Equal", ErrSizeMismatch, "%d != %d", s.size, other.size)
		}
		return len(s.ranges) == 0 && len(other.ranges) == 0
	}
	if len(s.ranges) != len(other.ranges) {
		return false
	}
	for i := range s.ranges {
		if s.ranges[i].begin != other.ranges[i].begin || s.ranges[i].end != other.ranges[i].end {
			return false
		}
	}
	return true
}

// String returns the members of s as "{0, [2,5], 9}".
func (s *IndexSet) String() string {
	s.Compress()
	var sb strings.Builder
	sb.WriteByte('{')
	for i, r := range s.ranges {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(r.toRange().String())
	}
	sb.WriteByte('}')
	return sb.String()
}

// GoString includes the universe size, for test failure output.
func (s *IndexSet) GoString() string {
	return fmt.Sprintf("indexset.IndexSet{size: %d, members: %s}", s.size, s.String())
}
