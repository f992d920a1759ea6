package indexset

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"golang.org/x/sync/errgroup"
	"k8s.io/apimachinery/pkg/util/sets"
)

// assertViolation runs fn and checks it panics with a contract error
// wrapping target.
func assertViolation(t *testing.T, target error, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		err, ok := r.(error)
		if !ok {
			t.Fatalf("expected a contract violation, got %v", r)
		}
		var ce *ContractError
		assert.True(t, errors.As(err, &ce))
		assert.ErrorIs(t, err, target)
	}()
	fn()
}

// checkCanonical verifies the invariants of a compressed set.
func checkCanonical(t *testing.T, s *IndexSet) {
	t.Helper()
	s.Compress()
	assert.True(t, s.IsCompressed())
	var rank Index
	for i, r := range s.ranges {
		if r.begin >= r.end {
			t.Errorf("range %d is empty: [%d, %d)", i, r.begin, r.end)
		}
		if r.end > s.size {
			t.Errorf("range %d [%d, %d) exceeds universe %d", i, r.begin, r.end, s.size)
		}
		if i > 0 && s.ranges[i-1].end >= r.begin {
			t.Errorf("ranges %d and %d overlap or touch", i-1, i)
		}
		if r.rank != rank {
			t.Errorf("range %d: -want rank %d, +got %d", i, rank, r.rank)
		}
		rank += r.len()
		if r.len() > s.ranges[s.largest].len() || (r.len() == s.ranges[s.largest].len() && i < s.largest) {
			t.Errorf("largest range %d is not the first longest, range %d is", s.largest, i)
		}
	}
}

func TestAddRange(t *testing.T) {
	cases := map[string]struct {
		size     Index
		ranges   []Range
		expected []Range
	}{
		"Empty": {
			size:     10,
			expected: []Range{},
		},
		"NoOp": {
			size:     10,
			ranges:   []Range{{3, 3}, {10, 10}},
			expected: []Range{},
		},
		"Append": {
			size:     10,
			ranges:   []Range{{2, 5}, {7, 9}},
			expected: []Range{{2, 5}, {7, 9}},
		},
		"AppendTouching": {
			size:     10,
			ranges:   []Range{{2, 5}, {5, 9}},
			expected: []Range{{2, 9}},
		},
		"InsertBefore": {
			size:     20,
			ranges:   []Range{{10, 12}, {2, 4}},
			expected: []Range{{2, 4}, {10, 12}},
		},
		"InsertBridging": {
			size:     20,
			ranges:   []Range{{2, 4}, {10, 12}, {15, 16}, {4, 10}},
			expected: []Range{{2, 12}, {15, 16}},
		},
		"InsertCovered": {
			size:     20,
			ranges:   []Range{{2, 12}, {15, 16}, {3, 5}},
			expected: []Range{{2, 12}, {15, 16}},
		},
		"InsertSwallowing": {
			size:     20,
			ranges:   []Range{{3, 4}, {6, 7}, {9, 10}, {12, 13}, {0, 11}},
			expected: []Range{{0, 11}, {12, 13}},
		},
		"Full": {
			size:     5,
			ranges:   []Range{{0, 5}},
			expected: []Range{{0, 5}},
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			s := FromRanges(tc.size, tc.ranges...)
			checkCanonical(t, s)
			if diff := cmp.Diff(tc.expected, s.Ranges()); diff != "" {
				t.Errorf("%s: -want, +got:\n%s", name, diff)
			}
		})
	}
}

func TestAddRangeViolations(t *testing.T) {
	s := New(10)
	assertViolation(t, ErrIndexRange, func() { s.AddRange(5, 4) })
	assertViolation(t, ErrIndexRange, func() { s.AddRange(5, 11) })
	assertViolation(t, ErrIndexRange, func() { s.AddIndex(10) })
	assertViolation(t, ErrIndexRange, func() { s.AddIndices([]Index{1, 2, 10}) })
}

func TestAddIndices(t *testing.T) {
	cases := map[string]struct {
		size     Index
		initial  []Range
		indices  []Index
		expected []Range
	}{
		"Sorted": {
			size:     20,
			indices:  []Index{1, 2, 3, 7, 8, 12},
			expected: []Range{{1, 4}, {7, 9}, {12, 13}},
		},
		"SortedWithDuplicates": {
			size:     20,
			indices:  []Index{1, 1, 2, 2, 2, 3, 7, 7},
			expected: []Range{{1, 4}, {7, 8}},
		},
		"Unsorted": {
			size:     20,
			indices:  []Index{5, 3, 4, 4, 9, 1, 2},
			expected: []Range{{1, 6}, {9, 10}},
		},
		"SortedBeforeExisting": {
			size:     20,
			initial:  []Range{{10, 15}},
			indices:  []Index{1, 2, 9},
			expected: []Range{{1, 3}, {9, 15}},
		},
		"UnsortedIntoExisting": {
			size:     20,
			initial:  []Range{{4, 6}, {10, 15}},
			indices:  []Index{16, 3, 6},
			expected: []Range{{3, 7}, {10, 15}, {16, 17}},
		},
		"None": {
			size:     20,
			initial:  []Range{{4, 6}},
			expected: []Range{{4, 6}},
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			s := FromRanges(tc.size, tc.initial...)
			s.AddIndices(tc.indices)
			checkCanonical(t, s)
			if diff := cmp.Diff(tc.expected, s.Ranges()); diff != "" {
				t.Errorf("%s: -want, +got:\n%s", name, diff)
			}
		})
	}
}

func TestAddIndexSet(t *testing.T) {
	s := FromRanges(20, Range{0, 2})
	other := FromRanges(10, Range{1, 3}, Range{8, 10})
	s.AddIndexSet(other, 5)
	assert.Equal(t, []Range{{0, 2}, {6, 8}, {13, 15}}, s.Ranges())

	assertViolation(t, ErrIndexRange, func() { s.AddIndexSet(other, 11) })

	s.AddIndexSet(s, 0)
	assert.Equal(t, []Range{{0, 2}, {6, 8}, {13, 15}}, s.Ranges())
}

func TestSubtractSet(t *testing.T) {
	cases := map[string]struct {
		in       []Range
		out      []Range
		expected []Range
	}{
		"Disjoint": {
			in:       []Range{{0, 3}},
			out:      []Range{{5, 8}},
			expected: []Range{{0, 3}},
		},
		"Middle": {
			in:       []Range{{0, 10}},
			out:      []Range{{2, 4}, {6, 7}},
			expected: []Range{{0, 2}, {4, 6}, {7, 10}},
		},
		"OverlapStart": {
			in:       []Range{{3, 8}},
			out:      []Range{{0, 5}},
			expected: []Range{{5, 8}},
		},
		"OverlapEnd": {
			in:       []Range{{3, 8}},
			out:      []Range{{6, 12}},
			expected: []Range{{3, 6}},
		},
		"Covered": {
			in:       []Range{{3, 8}, {10, 12}},
			out:      []Range{{2, 9}},
			expected: []Range{{10, 12}},
		},
		"SpanningSeveral": {
			in:       []Range{{0, 2}, {4, 6}, {8, 10}, {12, 14}},
			out:      []Range{{1, 9}, {13, 14}},
			expected: []Range{{0, 1}, {9, 10}, {12, 13}},
		},
		"Everything": {
			in:       []Range{{0, 2}, {4, 6}},
			out:      []Range{{0, 16}},
			expected: []Range{},
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			s := FromRanges(16, tc.in...)
			s.SubtractSet(FromRanges(16, tc.out...))
			checkCanonical(t, s)
			if diff := cmp.Diff(tc.expected, s.Ranges()); diff != "" {
				t.Errorf("%s: -want, +got:\n%s", name, diff)
			}
		})
	}

	t.Run("Self", func(t *testing.T) {
		s := FromRanges(16, Range{1, 5})
		s.SubtractSet(s)
		assert.True(t, s.IsEmpty())
	})
	t.Run("SizeMismatch", func(t *testing.T) {
		s := FromRanges(16, Range{1, 5})
		assertViolation(t, ErrSizeMismatch, func() { s.SubtractSet(FromRanges(8, Range{1, 2})) })
		// an empty operand never conflicts
		s.SubtractSet(New(8))
		assert.Equal(t, Index(4), s.NElements())
	})
}

func TestLifecycle(t *testing.T) {
	var zero IndexSet
	assert.True(t, zero.IsCompressed())
	assert.True(t, zero.IsEmpty())
	assert.Equal(t, Index(0), zero.NElements())
	assert.Equal(t, Index(0), zero.Size())

	s := New(10)
	s.AddRange(2, 5)
	assert.False(t, s.IsCompressed())
	assertViolation(t, ErrNotEmpty, func() { s.SetSize(20) })

	s.Clear()
	assert.True(t, s.IsCompressed())
	assert.True(t, s.IsEmpty())
	assert.Equal(t, Index(10), s.Size())
	s.SetSize(20)
	assert.Equal(t, Index(20), s.Size())

	c := Complete(7)
	assert.Equal(t, []Range{{0, 7}}, c.Ranges())

	clone := c.Clone()
	clone.PopBack()
	assert.Equal(t, Index(7), c.NElements())
	assert.Equal(t, Index(6), clone.NElements())
}

func TestPop(t *testing.T) {
	s := FromRanges(10, Range{2, 3}, Range{5, 7})
	assert.Equal(t, Index(6), s.PopBack())
	assert.Equal(t, Index(2), s.PopFront())
	assert.Equal(t, []Range{{5, 6}}, s.Ranges())
	checkCanonical(t, s)
	assert.Equal(t, Index(5), s.PopFront())
	assert.True(t, s.IsEmpty())
	assertViolation(t, ErrEmptySet, func() { s.PopBack() })
	assertViolation(t, ErrEmptySet, func() { s.PopFront() })
}

func TestCompressIdempotent(t *testing.T) {
	s := FromRanges(100, Range{50, 60}, Range{10, 20}, Range{20, 21})
	s.Compress()
	first := s.Ranges()
	largest := s.largest
	s.Compress()
	assert.Equal(t, first, s.Ranges())
	assert.Equal(t, largest, s.largest)
	checkCanonical(t, s)
}

func TestCompressMergesRawRanges(t *testing.T) {
	s := New(30)
	s.ranges = []span{{begin: 20, end: 25}, {begin: 1, end: 3}, {begin: 2, end: 6}, {begin: 6, end: 7}, {begin: 22, end: 30}}
	s.dirty.Store(true)
	checkCanonical(t, s)
	assert.Equal(t, []Range{{1, 7}, {20, 30}}, s.Ranges())
	assert.Equal(t, 1, s.largest)
}

func TestConcurrentCompress(t *testing.T) {
	const n = Index(1 << 16)
	s := New(n)
	for i := Index(0); i < n; i += 3 {
		s.AddIndex(i)
	}
	assert.False(t, s.IsCompressed())

	g, _ := errgroup.WithContext(context.Background())
	for w := 0; w < 16; w++ {
		g.Go(func() error {
			if !s.IsElement(n - 1) {
				return errors.New("missing last index")
			}
			if s.NElements() != (n+2)/3 {
				return errors.New("wrong element count")
			}
			if s.IndexWithinSet(n-1) != s.NElements()-1 {
				return errors.New("wrong rank")
			}
			return nil
		})
	}
	assert.NoError(t, g.Wait())
	checkCanonical(t, s)
}

// TestRandomOperations cross-checks random mutation sequences against a
// plain set.
func TestRandomOperations(t *testing.T) {
	const size = 300
	rng := rand.New(rand.NewPCG(7, 11))

	for round := 0; round < 50; round++ {
		s := New(size)
		oracle := sets.New[Index]()

		for op := 0; op < 40; op++ {
			switch rng.IntN(4) {
			case 0:
				b := Index(rng.IntN(size))
				e := b + Index(rng.IntN(size-int(b)+1))
				s.AddRange(b, e)
				for i := b; i < e; i++ {
					oracle.Insert(i)
				}
			case 1:
				i := Index(rng.IntN(size))
				s.AddIndex(i)
				oracle.Insert(i)
			case 2:
				idx := make([]Index, rng.IntN(20))
				for k := range idx {
					idx[k] = Index(rng.IntN(size))
				}
				if rng.IntN(2) == 0 {
					slices.Sort(idx)
				}
				s.AddIndices(idx)
				oracle.Insert(idx...)
			case 3:
				b := Index(rng.IntN(size))
				e := b + Index(rng.IntN(min(40, size-int(b))+1))
				s.SubtractSet(FromRanges(size, Range{b, e}))
				for i := b; i < e; i++ {
					oracle.Delete(i)
				}
			}
		}

		checkCanonical(t, s)
		assert.Equal(t, Index(oracle.Len()), s.NElements())
		assert.Equal(t, sets.List(oracle), nonNil(s.IndexVector()))

		var count Index
		for i := Index(0); i < size; i++ {
			if s.IsElement(i) != oracle.Has(i) {
				t.Fatalf("round %d: IsElement(%d) = %v", round, i, s.IsElement(i))
			}
			if s.IsElement(i) {
				count++
				assert.Equal(t, i, s.NthIndexInSet(s.IndexWithinSet(i)))
			} else {
				assert.Equal(t, InvalidIndex, s.IndexWithinSet(i))
			}
		}
		assert.Equal(t, s.NElements(), count)
		for k := Index(0); k < s.NElements(); k++ {
			assert.Equal(t, k, s.IndexWithinSet(s.NthIndexInSet(k)))
		}
	}
}

func nonNil(v []Index) []Index {
	if v == nil {
		return []Index{}
	}
	return v
}
