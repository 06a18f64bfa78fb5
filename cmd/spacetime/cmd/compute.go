package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	spacetime "github.com/lcarter9000/spacetimeengine"
	"github.com/lcarter9000/spacetimeengine/render"
	"github.com/lcarter9000/spacetimeengine/symbolic"
)

// printed when no tensors are named on the command line
var defaultTargets = []spacetime.Kind{
	spacetime.KindChristoffel,
	spacetime.KindRiemann,
	spacetime.KindRicci,
	spacetime.KindRicciScalar,
	spacetime.KindEinstein,
}

// newComputeCmd creates the compute command.
func newComputeCmd(a *app) *cobra.Command {
	var (
		metric string
		format string
		all    bool
		lambda string
	)

	cmd := &cobra.Command{
		Use:   "compute [kind[:config]...]",
		Short: "Compute and print tensors of a metric",
		Long: `Compute prints the components of the named tensors, e.g.

  spacetime compute --metric schwarzschild christoffel riemann:dddd ricci_scalar

Without arguments the whole pipeline is computed eagerly and the Christoffel
symbols, Riemann, Ricci and Einstein tensors and the scalar curvature are
printed. Components that vanish are hidden unless --all is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := a.spacetime(metric)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("lambda") {
				l, err := symbolic.Parse(lambda)
				if err != nil {
					return fmt.Errorf("--lambda: %w", err)
				}
				st.SetCosmologicalConstant(l)
			}

			f := a.cfg.Output.Format
			if cmd.Flags().Changed("format") {
				f = format
			}
			outFormat, err := render.ParseFormat(f)
			if err != nil {
				return err
			}

			type target struct {
				kind spacetime.Kind
				cfg  spacetime.IndexConfig
			}
			var targets []target
			for _, arg := range args {
				k, c, err := parseTarget(arg)
				if err != nil {
					return err
				}
				targets = append(targets, target{k, c})
			}
			if len(targets) == 0 {
				if err := st.Compute(ctx); err != nil {
					return err
				}
				for _, k := range defaultTargets {
					targets = append(targets, target{k, k.DefaultConfig()})
				}
			}

			var entries []render.Entry
			for _, t := range targets {
				e, err := render.TensorEntries(ctx, st, t.kind, t.cfg)
				if err != nil {
					return err
				}
				entries = append(entries, e...)
			}
			if a.cfg.Output.NonZeroOnly && !all {
				entries = render.NonZeroOnly(entries)
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 && outFormat == render.FormatText {
				_, err := fmt.Fprintln(out, "all components vanish")
				return err
			}
			return render.Write(out, outFormat, entries)
		},
	}

	cmd.Flags().StringVar(&metric, "metric", "", "Catalog metric (default from configuration)")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, latex or json")
	cmd.Flags().BoolVar(&all, "all", false, "Print vanishing components too")
	cmd.Flags().StringVar(&lambda, "lambda", "0", "Cosmological constant, e.g. Lambda or 1/l^2")

	return cmd
}
