package main

import (
	"fmt"
	"math"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/ucsd-galaxy-lab/gizio/array"
)

type statFlags struct {
	min, max  float64
	unit      string
	component int
}

// summary holds the statistics stat prints.
type summary struct {
	N                 int
	Min, Max          float64
	Mean, Median, Std float64
}

func summarize(xs []float64) summary {
	if len(xs) == 0 {
		return summary{}
	}
	s := summary{
		N:    len(xs),
		Min:  floats.Min(xs),
		Max:  floats.Max(xs),
		Mean: stat.Mean(xs, nil),
	}
	s.Median = stat.Quantile(0.5, stat.Empirical, array.Sorted(xs), nil)
	if len(xs) > 1 {
		s.Std = stat.StdDev(xs, nil)
	}
	return s
}

func (a *app) statCmd() *cobra.Command {
	f := &statFlags{}
	cmd := &cobra.Command{
		Use:   "stat <prefix> <ptype> <field>",
		Short: "Summarize one field of one particle type",
		Long: "stat prints the count, range, mean, median and standard " +
			"deviation of a field, optionally restricted to values in " +
			"[min, max) and converted to another unit.",
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.load(args[0])
			if err != nil {
				return err
			}
			sel, err := s.PT.Lookup(args[1])
			if err != nil {
				return err
			}
			arr, err := sel.Get(args[2])
			if err != nil {
				return err
			}

			if arr.Width > 1 {
				if arr, err = arr.Component(f.component); err != nil {
					return err
				}
			}
			expr := f.unit
			if expr == "" {
				expr = arr.Units()
			}
			xs, err := arr.In(expr)
			if err != nil {
				return err
			}
			xs = array.Cut(xs, array.Between(xs, f.min, f.max))

			sum := summarize(xs)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s/%s [%s]\n", args[1], args[2], expr)
			fmt.Fprintf(out, "count  %d\n", sum.N)
			if sum.N > 0 {
				fmt.Fprintf(out, "min    %g\nmax    %g\nmean   %g\nmedian %g\nstd    %g\n",
					sum.Min, sum.Max, sum.Mean, sum.Median, sum.Std)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.Float64Var(&f.min, "min", math.Inf(-1), "lower bound (inclusive)")
	flags.Float64Var(&f.max, "max", math.Inf(+1), "upper bound (exclusive)")
	flags.StringVar(&f.unit, "unit", "", "unit to report values in")
	flags.IntVar(&f.component, "component", 0, "component of multi-column fields")
	return cmd
}
