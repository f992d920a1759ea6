package partition

import (
	"context"
	"errors"
	"sync"

	"github.com/henderiw/indexset/pkg/indexset"
)

// Bounds is the first and last owned index of one peer. Empty peers own
// nothing and First/Last are meaningless.
type Bounds struct {
	First indexset.Index
	Last  indexset.Index
	Empty bool
}

// BoundsOf returns the outermost members of s.
func BoundsOf(s *indexset.IndexSet) Bounds {
	if s.IsEmpty() {
		return Bounds{Empty: true}
	}
	rr := s.Ranges()
	return Bounds{First: rr[0].Begin, Last: rr[len(rr)-1].End - 1}
}

// Exchanger is the collective communication a peer group offers. Every peer
// of the group must issue the same sequence of calls.
type Exchanger interface {
	// Rank is the position of this peer in the group.
	Rank() int
	// Peers is the size of the group.
	Peers() int
	// AllGather returns the contribution of every peer in rank order.
	AllGather(ctx context.Context, b Bounds) ([]Bounds, error)
	// AllReduceAnd returns the logical AND of every peer's contribution.
	AllReduceAnd(ctx context.Context, v bool) (bool, error)
}

// Solo returns the exchanger of a group with a single peer.
func Solo() Exchanger {
	return solo{}
}

type solo struct{}

func (solo) Rank() int  { return 0 }
func (solo) Peers() int { return 1 }

func (solo) AllGather(ctx context.Context, b Bounds) ([]Bounds, error) {
	return []Bounds{b}, ctx.Err()
}

func (solo) AllReduceAnd(ctx context.Context, v bool) (bool, error) {
	return v, ctx.Err()
}

// ErrGroupClosed is returned by every collective call of a local group
// after one of its peers gave up on a round.
var ErrGroupClosed = errors.New("exchanger group closed")

// NewLocalGroup returns n exchangers that talk to each other in-process,
// one per rank. A collective call blocks until every peer has made it, or
// until its context is done. A peer leaving a round that has not completed
// closes the group: the peers waiting on that round and all later calls
// fail with ErrGroupClosed.
func NewLocalGroup(n int) []Exchanger {
	g := &group{n: n}
	out := make([]Exchanger, n)
	for i := range out {
		out[i] = &peer{g: g, rank: i}
	}
	return out
}

type group struct {
	m   sync.Mutex
	n   int
	// cur is the round still collecting contributions. A peer can only
	// start the next round after cur completes, so rounds never overlap.
	cur *round
	// closed is set once a peer left an unfinished round.
	closed bool
}

type round struct {
	bounds  []Bounds
	flags   []bool
	arrived int
	done    chan struct{}
	// aborted is written before done is closed.
	aborted bool
}

type peer struct {
	g    *group
	rank int
}

func (p *peer) Rank() int  { return p.rank }
func (p *peer) Peers() int { return p.g.n }

func (p *peer) AllGather(ctx context.Context, b Bounds) ([]Bounds, error) {
	r, err := p.g.enter(ctx, func(r *round) { r.bounds[p.rank] = b })
	if err != nil {
		return nil, err
	}
	out := make([]Bounds, len(r.bounds))
	copy(out, r.bounds)
	return out, nil
}

func (p *peer) AllReduceAnd(ctx context.Context, v bool) (bool, error) {
	r, err := p.g.enter(ctx, func(r *round) { r.flags[p.rank] = v })
	if err != nil {
		return false, err
	}
	for _, f := range r.flags {
		if !f {
			return false, nil
		}
	}
	return true, nil
}

// enter contributes to the current round and waits for it to complete.
func (g *group) enter(ctx context.Context, contribute func(*round)) (*round, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.m.Lock()
	if g.closed {
		g.m.Unlock()
		return nil, ErrGroupClosed
	}
	if g.cur == nil {
		g.cur = &round{
			bounds: make([]Bounds, g.n),
			flags:  make([]bool, g.n),
			done:   make(chan struct{}),
		}
	}
	r := g.cur
	contribute(r)
	r.arrived++
	if r.arrived == g.n {
		close(r.done)
		g.cur = nil
	}
	g.m.Unlock()

	select {
	case <-r.done:
		if r.aborted {
			return nil, ErrGroupClosed
		}
		return r, nil
	case <-ctx.Done():
	}

	g.m.Lock()
	defer g.m.Unlock()
	if g.cur != r {
		// the round completed or was aborted while ctx fired
		if r.aborted {
			return nil, ErrGroupClosed
		}
		return r, nil
	}
	r.aborted = true
	g.closed = true
	g.cur = nil
	close(r.done)
	return nil, ctx.Err()
}
