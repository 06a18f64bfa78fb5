package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/lcarter9000/spacetimeengine/render"
	"github.com/lcarter9000/spacetimeengine/sampling"
	"github.com/lcarter9000/spacetimeengine/symbolic"
)

// newSampleCmd creates the sample command.
func newSampleCmd(a *app) *cobra.Command {
	var (
		metric      string
		x, y        string
		xRange      []float64
		yRange      []float64
		n           int
		set         map[string]string
		determinant bool
		format      string
	)

	cmd := &cobra.Command{
		Use:   "sample [kind[:config] index...]",
		Short: "Evaluate a tensor component on a grid of two coordinates",
		Long: `Sample evaluates one component over a rectangular grid, e.g.

  spacetime sample ricci_scalar --metric two_sphere --x theta --y phi --set a=2
  spacetime sample metric:dd 1 1 --x r --y theta --set M=1 --x-range 1,10

Every symbol other than the two axes needs a value from --set. With
--determinant the metric determinant is sampled instead, which marks
where the coordinates degenerate. Points that cannot be evaluated are NaN
(null in JSON).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fixed := make(map[string]float64, len(set))
			for name, raw := range set {
				v, err := strconv.ParseFloat(raw, 64)
				if err != nil {
					return fmt.Errorf("--set %s: %w", name, err)
				}
				fixed[name] = v
			}
			if len(xRange) != 2 || len(yRange) != 2 {
				return fmt.Errorf("%w: ranges take exactly two values, min,max", sampling.ErrInvalidGrid)
			}
			spec := sampling.Spec{
				X: x, Y: y,
				XRange: sampling.Range{Min: xRange[0], Max: xRange[1]},
				YRange: sampling.Range{Min: yRange[0], Max: yRange[1]},
				N:      n,
				Fixed:  fixed,
			}

			st, err := a.spacetime(metric)
			if err != nil {
				return err
			}

			var grid *mat.Dense
			title := "det g"
			if determinant {
				if len(args) > 0 {
					return fmt.Errorf("--determinant takes no arguments")
				}
				grid, err = sampling.Determinant(st.Metric(), spec)
			} else {
				if len(args) == 0 {
					return fmt.Errorf("name a tensor, e.g. ricci_scalar or metric:dd 0 0")
				}
				kind, cfg, perr := parseTarget(args[0])
				if perr != nil {
					return perr
				}
				idx := make([]int, 0, len(args)-1)
				for _, s := range args[1:] {
					i, perr := strconv.Atoi(s)
					if perr != nil {
						return fmt.Errorf("index %q: %w", s, perr)
					}
					idx = append(idx, i)
				}
				var e symbolic.Expr
				e, _, err = st.Expression(cmd.Context(), kind, cfg, idx...)
				if err != nil {
					return err
				}
				title = kind.Label(cfg, idx)
				grid, err = sampling.Grid(e, spec)
			}
			if err != nil {
				return err
			}

			f, err := render.ParseFormat(format)
			if err != nil {
				return err
			}
			xs, err := sampling.Axis(spec.XRange, n)
			if err != nil {
				return err
			}
			ys, err := sampling.Axis(spec.YRange, n)
			if err != nil {
				return err
			}
			if f == render.FormatJSON {
				return writeGridJSON(cmd.OutOrStdout(), title, x, y, xs, ys, grid)
			}
			return writeGridText(cmd.OutOrStdout(), title, x, y, xs, ys, grid)
		},
	}

	cmd.Flags().StringVar(&metric, "metric", "", "Catalog metric (default from configuration)")
	cmd.Flags().StringVar(&x, "x", "", "Coordinate swept along columns")
	cmd.Flags().StringVar(&y, "y", "", "Coordinate swept along rows")
	cmd.Flags().Float64SliceVar(&xRange, "x-range", []float64{0, 1}, "min,max of the x axis")
	cmd.Flags().Float64SliceVar(&yRange, "y-range", []float64{0, 1}, "min,max of the y axis")
	cmd.Flags().IntVar(&n, "n", 11, "Points per axis")
	cmd.Flags().StringToStringVar(&set, "set", nil, "Values of the remaining symbols, e.g. M=1,t=0")
	cmd.Flags().BoolVar(&determinant, "determinant", false, "Sample det g instead of a component")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")
	_ = cmd.MarkFlagRequired("x")
	_ = cmd.MarkFlagRequired("y")

	return cmd
}

func writeGridText(w io.Writer, title, x, y string, xs, ys []float64, g *mat.Dense) error {
	if _, err := fmt.Fprintf(w, "# %s over %s (columns) and %s (rows)\n", title, x, y); err != nil {
		return err
	}
	fmt.Fprintf(w, "%12s", y+`\`+x)
	for _, v := range xs {
		fmt.Fprintf(w, " %12.6g", v)
	}
	fmt.Fprintln(w)
	for row, yv := range ys {
		fmt.Fprintf(w, "%12.6g", yv)
		for col := range xs {
			fmt.Fprintf(w, " %12.6g", g.At(row, col))
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}

func writeGridJSON(w io.Writer, title, x, y string, xs, ys []float64, g *mat.Dense) error {
	values := make([][]*float64, len(ys))
	for row := range ys {
		values[row] = make([]*float64, len(xs))
		for col := range xs {
			if v := g.At(row, col); !math.IsNaN(v) && !math.IsInf(v, 0) {
				values[row][col] = &v
			}
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]interface{}{
		"component": title,
		"x":         map[string]interface{}{"name": x, "values": xs},
		"y":         map[string]interface{}{"name": y, "values": ys},
		"values":    values,
	})
}
