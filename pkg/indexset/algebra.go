package indexset

import (
	"math/bits"
	"sort"
)

// Intersect returns the members common to s and other. The universes must
// agree unless one of the sets is empty.
func (s *IndexSet) Intersect(other *IndexSet) *IndexSet {
	s.Compress()
	other.Compress()
	if s.size != other.size && len(s.ranges) > 0 && len(other.ranges) > 0 {
		violate("Intersect", ErrSizeMismatch, "%d != %d", s.size, other.size)
	}

	res := New(s.size)
	a, b := s.ranges, other.ranges
	for len(a) > 0 && len(b) > 0 {
		ra, rb := a[0], b[0]
		begin, end := max(ra.begin, rb.begin), min(ra.end, rb.end)
		if begin < end {
			res.ranges = append(res.ranges, span{begin: begin, end: end})
		}
		// drop whichever range ends first; the other may still overlap
		// the next range of the opposite list
		if ra.end < rb.end {
			a = a[1:]
		} else {
			b = b[1:]
		}
	}
	res.dirty.Store(len(res.ranges) > 0)
	return res
}

// Union returns the members of s or other, over the universe of s.
func (s *IndexSet) Union(other *IndexSet) *IndexSet {
	res := s.Clone()
	res.AddIndexSet(other, 0)
	return res
}

// View returns the members of s within [begin, end), shifted down by begin,
// as a set over [0, end-begin).
func (s *IndexSet) View(begin, end Index) *IndexSet {
	if begin > end || end > s.size {
		violate("View", ErrIndexRange, "window [%d, %d) is not within [0, %d)", begin, end, s.size)
	}
	s.Compress()

	res := New(end - begin)
	j := sort.Search(len(s.ranges), func(j int) bool { return s.ranges[j].end > begin })
	for _, r := range s.ranges[j:] {
		if r.begin >= end {
			break
		}
		res.AddRange(max(r.begin, begin)-begin, min(r.end, end)-begin)
	}
	return res
}

// ViewMask returns, for every member x of s that is also a member of mask,
// the rank of x within mask, as a set over [0, mask.NElements()). Members of
// s outside mask are dropped.
func (s *IndexSet) ViewMask(mask *IndexSet) *IndexSet {
	if s.size != mask.size {
		violate("ViewMask", ErrSizeMismatch, "%d != %d", s.size, mask.size)
	}
	s.Compress()
	mask.Compress()

	res := New(mask.NElements())
	a, m := s.ranges, mask.ranges
	for len(a) > 0 && len(m) > 0 {
		ra, rm := a[0], m[0]
		begin, end := max(ra.begin, rm.begin), min(ra.end, rm.end)
		if begin < end {
			// the overlap lies inside one mask range, so its ranks are
			// contiguous
			first := rm.rank + (begin - rm.begin)
			res.AddRange(first, first+(end-begin))
		}
		if ra.end < rm.end {
			a = a[1:]
		} else {
			m = m[1:]
		}
	}
	return res
}

// TensorProduct returns the set over [0, s.Size()*other.Size()) holding
// a*other.Size()+b for every member a of s and every member b of other.
func (s *IndexSet) TensorProduct(other *IndexSet) *IndexSet {
	s.Compress()
	other.Compress()

	stride := other.size
	hi, total := bits.Mul64(s.size, stride)
	if hi != 0 {
		violate("TensorProduct", ErrIndexRange, "universe %d*%d overflows", s.size, stride)
	}
	res := New(total)
	for _, ra := range s.ranges {
		for a := ra.begin; a < ra.end; a++ {
			for _, rb := range other.ranges {
				res.AddRange(a*stride+rb.begin, a*stride+rb.end)
			}
		}
	}
	return res
}

// SplitByBlock cuts [0, Size()) into consecutive blocks of the given sizes
// and returns, per block, its members of s re-based to the block start.
// The sizes must sum to Size().
func (s *IndexSet) SplitByBlock(sizes []Index) []*IndexSet {
	var total, carry Index
	for _, n := range sizes {
		if total, carry = bits.Add64(total, n, 0); carry != 0 {
			violate("SplitByBlock", ErrIndexRange, "block sizes overflow")
		}
	}
	if total != s.size {
		violate("SplitByBlock", ErrIndexRange, "block sizes sum to %d, universe size is %d", total, s.size)
	}

	out := make([]*IndexSet, 0, len(sizes))
	var start Index
	for _, n := range sizes {
		out = append(out, s.View(start, start+n))
		start += n
	}
	return out
}
