package main

import (
	"errors"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/henderiw/indexset/pkg/indexset"
	"github.com/henderiw/indexset/pkg/partition"
	"github.com/spf13/cobra"
)

func (a *app) newBuildCmd() *cobra.Command {
	var (
		size uint64
		out  string
	)
	cmd := &cobra.Command{
		Use:   "build --size N [RANGE...]",
		Short: "Build a set from ranges such as 3, 5-9",
		Example: `  indexset build --size 10 2-5 7 8 --out set.txt
  INDEXSET_FORMAT=binary indexset build --size 100 0-49 --out set.bin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := indexset.New(size)
			var errm error
			for _, arg := range args {
				r, err := indexset.ParseRange(arg)
				if err != nil {
					errm = errors.Join(errm, err)
					continue
				}
				if r.IsEmpty() || r.End > size {
					errm = errors.Join(errm, fmt.Errorf("range %s does not fit universe size %d", arg, size))
					continue
				}
				s.AddRange(r.Begin, r.End)
			}
			if errm != nil {
				return errm
			}
			return a.save(cmd, out, s)
		},
	}
	cmd.Flags().Uint64Var(&size, "size", 0, "universe size")
	cmd.Flags().StringVarP(&out, "out", "o", stdio, "output file, - for stdout")
	_ = cmd.MarkFlagRequired("size")
	return cmd
}

func (a *app) newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats FILE",
		Short: "Print the shape of a set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.load(cmd, args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "size:       %d\n", s.Size())
			fmt.Fprintf(w, "elements:   %d\n", s.NElements())
			fmt.Fprintf(w, "intervals:  %d\n", s.NIntervals())
			fmt.Fprintf(w, "contiguous: %t\n", s.IsContiguous())
			if largest, ok := s.LargestRange(); ok {
				fmt.Fprintf(w, "largest:    %s (rank %d)\n", largest, s.LargestRangeStartingIndex())
			}
			return nil
		},
	}
}

func (a *app) newConvertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "convert IN OUT",
		Short: "Re-encode a set, e.g. text to compressed binary",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.load(cmd, args[0])
			if err != nil {
				return err
			}
			return a.save(cmd, args[1], s)
		},
	}
}

type binaryOp func(x, y *indexset.IndexSet) (*indexset.IndexSet, error)

func intersect(x, y *indexset.IndexSet) (*indexset.IndexSet, error) {
	if err := sameUniverse(x, y); err != nil {
		return nil, err
	}
	return x.Intersect(y), nil
}

func subtract(x, y *indexset.IndexSet) (*indexset.IndexSet, error) {
	if err := sameUniverse(x, y); err != nil {
		return nil, err
	}
	res := x.Clone()
	res.SubtractSet(y)
	return res, nil
}

func union(x, y *indexset.IndexSet) (*indexset.IndexSet, error) {
	if err := sameUniverse(x, y); err != nil {
		return nil, err
	}
	return x.Union(y), nil
}

// sameUniverse turns the size contract of the set algebra into an error
// for file input.
func sameUniverse(x, y *indexset.IndexSet) error {
	if x.Size() != y.Size() {
		return fmt.Errorf("%w: %d != %d", indexset.ErrSizeMismatch, x.Size(), y.Size())
	}
	return nil
}

func (a *app) newBinaryOpCmd(name, short string, op binaryOp) *cobra.Command {
	return &cobra.Command{
		Use:   name + " A B OUT",
		Short: short,
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			x, err := a.load(cmd, args[0])
			if err != nil {
				return err
			}
			y, err := a.load(cmd, args[1])
			if err != nil {
				return err
			}
			res, err := op(x, y)
			if err != nil {
				return err
			}
			logr.FromContextOrDiscard(commandContext(cmd)).V(1).Info(name, "a", x.NElements(), "b", y.NElements(), "result", res.NElements())
			return a.save(cmd, args[2], res)
		},
	}
}

func (a *app) newViewCmd() *cobra.Command {
	var begin, end uint64
	cmd := &cobra.Command{
		Use:   "view --begin B --end E IN OUT",
		Short: "Write the members in [B, E) shifted down by B",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.load(cmd, args[0])
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("end") {
				end = s.Size()
			}
			if begin > end || end > s.Size() {
				return fmt.Errorf("%w: window [%d, %d) is not within [0, %d)", indexset.ErrIndexRange, begin, end, s.Size())
			}
			return a.save(cmd, args[1], s.View(begin, end))
		},
	}
	cmd.Flags().Uint64Var(&begin, "begin", 0, "first index of the window")
	cmd.Flags().Uint64Var(&end, "end", 0, "end of the window, defaults to the universe size")
	return cmd
}

func (a *app) newPartitionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "partition FILE...",
		Short: "Check that the sets, one per peer in order, tile their universe",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sets := make([]*indexset.IndexSet, 0, len(args))
			for _, path := range args {
				s, err := a.load(cmd, path)
				if err != nil {
					return err
				}
				if len(sets) > 0 && s.Size() != sets[0].Size() {
					return fmt.Errorf("%s: %w: %d != %d", path, indexset.ErrSizeMismatch, s.Size(), sets[0].Size())
				}
				sets = append(sets, s)
			}
			ok, err := partition.Run(commandContext(cmd), sets)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ok)
			return nil
		},
	}
}
