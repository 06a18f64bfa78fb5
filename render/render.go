// Package render prints labelled tensor components as plain text, LaTeX or
// JSON.
package render

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	spacetime "github.com/lcarter9000/spacetimeengine"
	"github.com/lcarter9000/spacetimeengine/symbolic"
)

// Entry is one labelled expression, e.g. {"Γ^{0}_{12}", expr}.
type Entry struct {
	Label string
	Expr  symbolic.Expr
}

// Format selects a writer.
type Format string

const (
	FormatText  Format = "text"
	FormatLaTeX Format = "latex"
	FormatJSON  Format = "json"
)

// ParseFormat accepts text, latex and json.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatLaTeX, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("render: unknown format %q", s)
}

// NonZeroOnly drops entries whose expression is the number 0.
func NonZeroOnly(entries []Entry) []Entry {
	out := entries[:0:0]
	for _, e := range entries {
		if !symbolic.IsZero(e.Expr) {
			out = append(out, e)
		}
	}
	return out
}

// Entries labels every component of a tensor.
func Entries(t *spacetime.Tensor) []Entry {
	comps := t.Components()
	out := make([]Entry, len(comps))
	for i, c := range comps {
		out[i] = Entry{Label: t.Kind().Label(t.Config(), c.Indices), Expr: c.Expr}
	}
	return out
}

// TensorEntries computes (kind, cfg) on st and labels its components.
func TensorEntries(ctx context.Context, st *spacetime.Spacetime, kind spacetime.Kind, cfg spacetime.IndexConfig) ([]Entry, error) {
	t, err := st.Tensor(ctx, kind, cfg)
	if err != nil {
		return nil, err
	}
	return Entries(t), nil
}

// Write renders entries in format f.
func Write(w io.Writer, f Format, entries []Entry) error {
	switch f {
	case FormatText:
		return Text(w, entries)
	case FormatLaTeX:
		return LaTeX(w, entries)
	case FormatJSON:
		return JSON(w, entries)
	}
	return fmt.Errorf("render: unknown format %q", string(f))
}

// Text writes "label = expr" lines.
func Text(w io.Writer, entries []Entry) error {
	for _, e := range entries {
		if _, err := fmt.Fprintf(w, "%s = %s\n", e.Label, e.Expr.String()); err != nil {
			return err
		}
	}
	return nil
}

// LaTeX writes an align* environment with one component per line.
func LaTeX(w io.Writer, entries []Entry) error {
	var sb strings.Builder
	sb.WriteString("\\begin{align*}\n")
	for i, e := range entries {
		sb.WriteString(latexLabel(e.Label))
		sb.WriteString(" &= ")
		sb.WriteString(e.Expr.LaTeX())
		if i < len(entries)-1 {
			sb.WriteString(" \\\\")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\\end{align*}\n")
	_, err := io.WriteString(w, sb.String())
	return err
}

var greek = strings.NewReplacer("Γ", "\\Gamma", "ẍ", "\\ddot{x}", "ξ", "\\xi")

func latexLabel(label string) string { return greek.Replace(label) }

type jsonEntry struct {
	Label string                 `json:"label"`
	Expr  string                 `json:"expr"`
	LaTeX string                 `json:"latex"`
	Tree  map[string]interface{} `json:"tree"`
}

// JSON writes an array of {label, expr, latex, tree} objects; tree is the
// expression in the form symbolic.FromJSON reads back.
func JSON(w io.Writer, entries []Entry) error {
	out := make([]jsonEntry, len(entries))
	for i, e := range entries {
		out[i] = jsonEntry{
			Label: e.Label,
			Expr:  e.Expr.String(),
			LaTeX: e.Expr.LaTeX(),
			Tree:  symbolic.ToJSONValue(e.Expr),
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
