// Package blocks lays out a universe as named, labelled blocks of
// consecutive indices, so index sets can be split and masked per block.
package blocks

import (
	"errors"
	"fmt"

	"github.com/henderiw/indexset/pkg/indexset"
	"k8s.io/apimachinery/pkg/labels"
)

// Block is a named run of Size consecutive indices.
type Block struct {
	Name   string
	Size   indexset.Index
	Labels labels.Set
}

// Layout is an ordered list of blocks. Block i starts where block i-1 ends.
type Layout interface {
	Size() indexset.Index
	Sizes() []indexset.Index
	Blocks() []Block
	Offset(name string) (indexset.Index, error)

	// Split cuts s into one set per block, keyed by block name.
	Split(s *indexset.IndexSet) (map[string]*indexset.IndexSet, error)
	// Join is the inverse of Split. Missing blocks contribute nothing.
	Join(parts map[string]*indexset.IndexSet) (*indexset.IndexSet, error)

	// Mask returns every index of the blocks matching selector.
	Mask(selector labels.Selector) *indexset.IndexSet
	// Select returns the members of s inside the blocks matching selector,
	// renumbered consecutively over those blocks.
	Select(s *indexset.IndexSet, selector labels.Selector) (*indexset.IndexSet, error)
}

func NewLayout(blocks ...Block) (Layout, error) {
	var errm error
	l := &layout{
		blocks:  make([]Block, 0, len(blocks)),
		offsets: make([]indexset.Index, 0, len(blocks)),
		byName:  make(map[string]int, len(blocks)),
	}
	for _, b := range blocks {
		if b.Name == "" {
			errm = errors.Join(errm, fmt.Errorf("block at offset %d has no name", l.size))
			continue
		}
		if _, ok := l.byName[b.Name]; ok {
			errm = errors.Join(errm, fmt.Errorf("duplicate block %q", b.Name))
			continue
		}
		if l.size+b.Size < l.size {
			return nil, fmt.Errorf("block %q overflows the universe", b.Name)
		}
		l.byName[b.Name] = len(l.blocks)
		l.offsets = append(l.offsets, l.size)
		l.blocks = append(l.blocks, b)
		l.size += b.Size
	}
	if errm != nil {
		return nil, errm
	}
	return l, nil
}

type layout struct {
	blocks  []Block
	offsets []indexset.Index
	byName  map[string]int
	size    indexset.Index
}

func (l *layout) Size() indexset.Index { return l.size }

func (l *layout) Sizes() []indexset.Index {
	sizes := make([]indexset.Index, 0, len(l.blocks))
	for _, b := range l.blocks {
		sizes = append(sizes, b.Size)
	}
	return sizes
}

func (l *layout) Blocks() []Block {
	return append([]Block(nil), l.blocks...)
}

func (l *layout) Offset(name string) (indexset.Index, error) {
	i, ok := l.byName[name]
	if !ok {
		return 0, fmt.Errorf("block %q not found", name)
	}
	return l.offsets[i], nil
}

func (l *layout) Split(s *indexset.IndexSet) (map[string]*indexset.IndexSet, error) {
	if err := l.validate(s); err != nil {
		return nil, err
	}
	parts := s.SplitByBlock(l.Sizes())
	out := make(map[string]*indexset.IndexSet, len(parts))
	for i, p := range parts {
		out[l.blocks[i].Name] = p
	}
	return out, nil
}

func (l *layout) Join(parts map[string]*indexset.IndexSet) (*indexset.IndexSet, error) {
	res := indexset.New(l.size)
	for name, p := range parts {
		i, ok := l.byName[name]
		if !ok {
			return nil, fmt.Errorf("block %q not found", name)
		}
		if p.Size() != l.blocks[i].Size {
			return nil, fmt.Errorf("block %q: set size %d, block size %d", name, p.Size(), l.blocks[i].Size)
		}
		res.AddIndexSet(p, l.offsets[i])
	}
	return res, nil
}

func (l *layout) Mask(selector labels.Selector) *indexset.IndexSet {
	mask := indexset.New(l.size)
	for i, b := range l.blocks {
		if selector.Matches(b.Labels) {
			mask.AddRange(l.offsets[i], l.offsets[i]+b.Size)
		}
	}
	return mask
}

func (l *layout) Select(s *indexset.IndexSet, selector labels.Selector) (*indexset.IndexSet, error) {
	if err := l.validate(s); err != nil {
		return nil, err
	}
	return s.ViewMask(l.Mask(selector)), nil
}

func (l *layout) validate(s *indexset.IndexSet) error {
	if s.Size() != l.size {
		return fmt.Errorf("set size %d does not match layout size %d", s.Size(), l.size)
	}
	return nil
}
