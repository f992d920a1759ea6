package indexset

import "golang.org/x/exp/constraints"

// Number is any value FillBinary can write a zero or a one into.
type Number interface {
	constraints.Integer | constraints.Float
}

// Setter is any indexable container with bounds-checked assignment.
type Setter[T Number] interface {
	Len() int
	Set(i int, v T)
}

// Slice adapts a plain slice to Setter.
type Slice[T Number] []T

func (s Slice[T]) Len() int       { return len(s) }
func (s Slice[T]) Set(i int, v T) { s[i] = v }

// FillBinary writes 1 into dst at every member of s and 0 everywhere else.
// dst must have exactly s.Size() elements.
func FillBinary[T Number](s *IndexSet, dst Setter[T]) {
	if Index(dst.Len()) != s.Size() {
		violate("FillBinary", ErrSizeMismatch, "container length %d != universe size %d", dst.Len(), s.Size())
	}
	for i := 0; i < dst.Len(); i++ {
		dst.Set(i, 0)
	}
	for r := range s.Intervals() {
		for i := r.Begin; i < r.End; i++ {
			dst.Set(int(i), 1)
		}
	}
}

// FillBinarySlice is FillBinary for a plain slice.
func FillBinarySlice[T Number](s *IndexSet, dst []T) {
	FillBinary[T](s, Slice[T](dst))
}
