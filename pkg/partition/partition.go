// Package partition checks whether index sets owned by a group of peers tile
// their common universe in rank order.
package partition

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/henderiw/indexset/pkg/indexset"
	"golang.org/x/sync/errgroup"
)

// IsAscendingAndOneToOne reports whether the sets owned by the peers of ex
// partition [0, s.Size()) into contiguous pieces ordered by rank. Peers that
// own nothing are skipped. Every peer must call it with its own set and gets
// the same answer.
func IsAscendingAndOneToOne(ctx context.Context, s *indexset.IndexSet, ex Exchanger) (bool, error) {
	log := logr.FromContextOrDiscard(ctx).WithValues("rank", ex.Rank(), "peers", ex.Peers())

	contiguous := s.IsContiguous()
	all, err := ex.AllGather(ctx, BoundsOf(s))
	if err != nil {
		return false, fmt.Errorf("gather bounds: %w", err)
	}
	if len(all) != ex.Peers() {
		return false, fmt.Errorf("gathered %d bounds from %d peers", len(all), ex.Peers())
	}
	local := contiguous && tiles(all, s.Size())

	agreed, err := ex.AllReduceAnd(ctx, local)
	if err != nil {
		return false, fmt.Errorf("reduce: %w", err)
	}
	log.V(1).Info("partition predicate", "contiguous", contiguous, "local", local, "agreed", agreed)
	return agreed, nil
}

// tiles reports whether the non-empty bounds, in order, cover [0, size)
// without gaps or overlap.
func tiles(all []Bounds, size indexset.Index) bool {
	var next indexset.Index
	owned := false
	for _, b := range all {
		if b.Empty {
			continue
		}
		if b.First != next {
			return false
		}
		next = b.Last + 1
		owned = true
	}
	if !owned {
		return size == 0
	}
	return next == size
}

// Run evaluates IsAscendingAndOneToOne for one in-process peer per set and
// returns the agreed answer.
func Run(ctx context.Context, sets []*indexset.IndexSet) (bool, error) {
	if len(sets) == 0 {
		return false, errors.New("no peers")
	}
	group := NewLocalGroup(len(sets))
	answers := make([]bool, len(sets))

	g, ctx := errgroup.WithContext(ctx)
	for i, s := range sets {
		g.Go(func() error {
			ok, err := IsAscendingAndOneToOne(ctx, s, group[i])
			if err != nil {
				return fmt.Errorf("peer %d: %w", i, err)
			}
			answers[i] = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return false, err
	}
	for i, ok := range answers {
		if ok != answers[0] {
			return false, fmt.Errorf("peer %d disagrees: %t != %t", i, ok, answers[0])
		}
	}
	return answers[0], nil
}

// Descriptor is the ownership of one peer as a partitioning library would
// consume it.
type Descriptor struct {
	Size      indexset.Index
	NElements indexset.Index
	Ranges    []indexset.Range
}

// Describe returns the descriptor of the indices s owns.
func Describe(s *indexset.IndexSet) Descriptor {
	return Descriptor{
		Size:      s.Size(),
		NElements: s.NElements(),
		Ranges:    s.Ranges(),
	}
}
