// Package bitmap converts index sets to and from 32-bit roaring bitmaps.
package bitmap

import (
	"errors"
	"fmt"
	"iter"
	"math"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/henderiw/indexset/pkg/indexset"
)

// ErrUniverseTooLarge is returned for sets a 32-bit bitmap cannot address.
var ErrUniverseTooLarge = errors.New("universe does not fit a 32-bit bitmap")

// ToRoaring returns a bitmap holding the members of s. The universe of s
// must not exceed 2^32.
func ToRoaring(s *indexset.IndexSet) (*roaring.Bitmap, error) {
	if s.Size() > math.MaxUint32+1 {
		return nil, fmt.Errorf("%w: size %d", ErrUniverseTooLarge, s.Size())
	}
	bm := roaring.New()
	for r := range s.Intervals() {
		bm.AddRange(r.Begin, r.End)
	}
	bm.RunOptimize()
	return bm, nil
}

// FromRoaring returns the set over [0, size) holding the values of bm.
func FromRoaring(bm *roaring.Bitmap, size indexset.Index) (*indexset.IndexSet, error) {
	if !bm.IsEmpty() && indexset.Index(bm.Maximum()) >= size {
		return nil, fmt.Errorf("bitmap value %d does not fit universe size %d", bm.Maximum(), size)
	}
	s := indexset.New(size)
	s.AddIndexSeq(values(bm))
	return s, nil
}

// values yields the content of bm in ascending order.
func values(bm *roaring.Bitmap) iter.Seq[indexset.Index] {
	return func(yield func(indexset.Index) bool) {
		it := bm.Iterator()
		for it.HasNext() {
			if !yield(indexset.Index(it.Next())) {
				return
			}
		}
	}
}
