package indexset

import (
	"fmt"
	"strconv"
	"strings"
)

// Range is the half-open interval [Begin, End).
type Range struct {
	Begin Index
	End   Index
}

// RangeFrom returns the half-open range [begin, end).
func RangeFrom(begin, end Index) Range {
	return Range{Begin: begin, End: end}
}

// ParseRange parses "a-b" (inclusive on both ends) or a single index "n".
func ParseRange(s string) (Range, error) {
	var r Range
	h := strings.IndexByte(s, '-')
	if h == -1 {
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return r, fmt.Errorf("invalid index %q", s)
		}
		return Range{Begin: n, End: n + 1}, nil
	}
	from, to := s[:h], s[h+1:]
	fromIdx, err := strconv.ParseUint(from, 10, 64)
	if err != nil {
		return r, fmt.Errorf("invalid from index %q in range %q", from, s)
	}
	toIdx, err := strconv.ParseUint(to, 10, 64)
	if err != nil {
		return r, fmt.Errorf("invalid to index %q in range %q", to, s)
	}
	if toIdx < fromIdx {
		return r, fmt.Errorf("range %q is descending", s)
	}
	return Range{Begin: fromIdx, End: toIdx + 1}, nil
}

// Len returns the number of indices in r.
func (r Range) Len() Index { return r.End - r.Begin }

// IsEmpty reports whether r holds no index.
func (r Range) IsEmpty() bool { return r.End <= r.Begin }

// Contains reports whether i lies in r.
func (r Range) Contains(i Index) bool { return r.Begin <= i && i < r.End }

// String formats r the way the text codec does: "n" or "[first,last]".
func (r Range) String() string {
	if r.Len() == 1 {
		return strconv.FormatUint(r.Begin, 10)
	}
	return fmt.Sprintf("[%d,%d]", r.Begin, r.End-1)
}

// span is a stored range. rank is the number of members before begin and
// is only meaningful while the owning set is compressed.
type span struct {
	begin Index
	end   Index
	rank  Index
}

func (s span) len() Index { return s.end - s.begin }

func (s span) less(other span) bool {
	if s.begin != other.begin {
		return s.begin < other.begin
	}
	return s.end < other.end
}

func (s span) toRange() Range { return Range{Begin: s.begin, End: s.end} }
