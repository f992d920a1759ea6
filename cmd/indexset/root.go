package main

import (
	"context"
	"flag"
	"strconv"
	"strings"

	"github.com/henderiw/indexset/pkg/indexset"
	"github.com/henderiw/indexset/pkg/setfile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"k8s.io/klog/v2"
)

const envPrefix = "INDEXSET"

// stdio is the file name that means stdin or stdout.
const stdio = "-"

type app struct {
	v *viper.Viper
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	klogFlags := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(klogFlags)

	root := &cobra.Command{
		Use:           "indexset",
		Short:         "Build, inspect and combine compressed index sets",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return klogFlags.Set("v", strconv.Itoa(a.v.GetInt("verbosity")))
		},
	}

	pf := root.PersistentFlags()
	pf.String("format", string(setfile.FormatAuto), "encoding of written sets: auto, text or binary")
	pf.Bool("compress", false, "wrap written sets in a zstd frame")
	pf.IntP("verbosity", "v", 0, "log verbosity")
	for _, name := range []string{"format", "compress", "verbosity"} {
		// the flags are defined above, so binding cannot fail
		_ = a.v.BindPFlag(name, pf.Lookup(name))
	}

	root.AddCommand(
		a.newBuildCmd(),
		a.newStatsCmd(),
		a.newConvertCmd(),
		a.newBinaryOpCmd("intersect", "Write the members common to A and B", intersect),
		a.newBinaryOpCmd("subtract", "Write the members of A that are not in B", subtract),
		a.newBinaryOpCmd("union", "Write the members of A or B", union),
		a.newViewCmd(),
		a.newPartitionCmd(),
	)
	return root
}

func (a *app) options() (setfile.Options, error) {
	f, err := setfile.ParseFormat(a.v.GetString("format"))
	if err != nil {
		return setfile.Options{}, err
	}
	return setfile.Options{Format: f, Compress: a.v.GetBool("compress")}, nil
}

func (a *app) load(cmd *cobra.Command, path string) (*indexset.IndexSet, error) {
	if path == stdio {
		return setfile.Decode(cmd.InOrStdin(), setfile.Options{Format: setfile.FormatAuto})
	}
	return setfile.Load(commandContext(cmd), path, setfile.Options{Format: setfile.FormatAuto})
}

func (a *app) save(cmd *cobra.Command, path string, s *indexset.IndexSet) error {
	opts, err := a.options()
	if err != nil {
		return err
	}
	if path == stdio {
		// stdout defaults to the readable encoding
		if opts.Format == setfile.FormatAuto {
			opts.Format = setfile.FormatText
		}
		return setfile.Encode(cmd.OutOrStdout(), s, opts)
	}
	return setfile.Save(commandContext(cmd), path, s, opts)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
