// Package catalog provides named metrics: a built-in set of textbook
// spacetimes plus any defined in YAML files.
package catalog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"

	spacetime "github.com/lcarter9000/spacetimeengine"
	"github.com/lcarter9000/spacetimeengine/symbolic"
)

var (
	ErrUnknownMetric = errors.New("catalog: unknown metric")
	ErrDuplicate     = errors.New("catalog: metric already defined")
	ErrInvalidSpec   = errors.New("catalog: invalid metric definition")
)

// Definition is the textual form of a metric, as written in YAML. Either
// Diagonal or Components is set; entries are expressions in the syntax
// accepted by symbolic.Parse.
type Definition struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Coordinates []string   `yaml:"coordinates"`
	Config      string     `yaml:"config"`
	Diagonal    []string   `yaml:"diagonal,omitempty"`
	Components  [][]string `yaml:"components,omitempty"`
}

// Metric is a parsed definition ready to build a spacetime from.
type Metric struct {
	Name        string
	Description string
	Frame       *spacetime.Frame
	Components  *symbolic.Matrix
	Config      spacetime.IndexConfig
}

// Spacetime builds a new spacetime for m.
func (m *Metric) Spacetime(opts ...spacetime.Option) (*spacetime.Spacetime, error) {
	return spacetime.New(m.Frame, m.Components.Clone(), m.Config, opts...)
}

// Build parses d into a Metric.
func (d Definition) Build() (*Metric, error) {
	if d.Name == "" {
		return nil, fmt.Errorf("%w: missing name", ErrInvalidSpec)
	}
	frame, err := spacetime.NewFrame(d.Coordinates...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidSpec, d.Name, err)
	}
	cfg := spacetime.DD
	if d.Config != "" {
		cfg = spacetime.ParseIndexConfig(d.Config)
	}
	if cfg != spacetime.DD && cfg != spacetime.UU {
		return nil, fmt.Errorf("%w: %s: config must be dd or uu, got %q", ErrInvalidSpec, d.Name, d.Config)
	}
	n := frame.Dim()
	var m *symbolic.Matrix
	switch {
	case len(d.Diagonal) > 0 && len(d.Components) > 0:
		return nil, fmt.Errorf("%w: %s: set diagonal or components, not both", ErrInvalidSpec, d.Name)
	case len(d.Diagonal) > 0:
		if len(d.Diagonal) != n {
			return nil, fmt.Errorf("%w: %s: %d diagonal entries for %d coordinates", ErrInvalidSpec, d.Name, len(d.Diagonal), n)
		}
		entries := make([]symbolic.Expr, n)
		for i, s := range d.Diagonal {
			if entries[i], err = parseEntry(d.Name, s, i, i); err != nil {
				return nil, err
			}
		}
		m = symbolic.Diagonal(entries...)
	case len(d.Components) > 0:
		if len(d.Components) != n {
			return nil, fmt.Errorf("%w: %s: %d rows for %d coordinates", ErrInvalidSpec, d.Name, len(d.Components), n)
		}
		rows := make([][]symbolic.Expr, n)
		for i, row := range d.Components {
			rows[i] = make([]symbolic.Expr, len(row))
			for j, s := range row {
				if rows[i][j], err = parseEntry(d.Name, s, i, j); err != nil {
					return nil, err
				}
			}
		}
		if m, err = symbolic.MatrixFromRows(rows); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidSpec, d.Name, err)
		}
	default:
		return nil, fmt.Errorf("%w: %s: no components", ErrInvalidSpec, d.Name)
	}
	return &Metric{Name: d.Name, Description: d.Description, Frame: frame, Components: m, Config: cfg}, nil
}

func parseEntry(name, s string, i, j int) (symbolic.Expr, error) {
	e, err := symbolic.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s[%d][%d]: %w", ErrInvalidSpec, name, i, j, err)
	}
	return e, nil
}

// Catalog is a concurrency-safe set of named metrics.
type Catalog struct {
	mu   sync.RWMutex
	defs map[string]Definition
}

// New returns a catalog holding the built-in metrics.
func New() *Catalog {
	c := &Catalog{defs: map[string]Definition{}}
	for _, d := range builtins {
		c.defs[d.Name] = d
	}
	return c
}

// Names lists every metric, sorted.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.defs))
	for name := range c.defs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Definition returns the textual form of a metric.
func (c *Catalog) Definition(name string) (Definition, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.defs[name]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %q", ErrUnknownMetric, name)
	}
	return d, nil
}

// Get parses a metric by name.
func (c *Catalog) Get(name string) (*Metric, error) {
	d, err := c.Definition(name)
	if err != nil {
		return nil, err
	}
	return d.Build()
}

// Register validates d and adds it; names must be unique.
func (c *Catalog) Register(d Definition) error {
	if _, err := d.Build(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.defs[d.Name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicate, d.Name)
	}
	c.defs[d.Name] = d
	return nil
}

type file struct {
	Metrics []Definition `yaml:"metrics"`
}

// Load registers every metric in a YAML document of the form
//
//	metrics:
//	  - name: de_sitter_static
//	    coordinates: [t, r, theta, phi]
//	    diagonal: ["-(1 - r^2/l^2)", "1/(1 - r^2/l^2)", "r^2", "r^2*sin(theta)^2"]
func (c *Catalog) Load(r io.Reader) error {
	var f file
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("catalog: parse: %w", err)
	}
	for _, d := range f.Metrics {
		if err := c.Register(d); err != nil {
			return err
		}
	}
	return nil
}

// LoadFile is Load on the named file.
func (c *Catalog) LoadFile(path string) error {
	fh, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	defer fh.Close()
	if err := c.Load(fh); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// Minkowski returns flat space in n dimensions with signature (−,+,…,+)
// and coordinates t, x1, …, x(n−1).
func Minkowski(n int) (*Metric, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: minkowski needs at least one dimension", ErrInvalidSpec)
	}
	d := Definition{
		Name:        "minkowski_" + strconv.Itoa(n),
		Description: "flat spacetime in " + strconv.Itoa(n) + " dimensions",
		Coordinates: []string{"t"},
		Diagonal:    []string{"-1"},
	}
	for i := 1; i < n; i++ {
		d.Coordinates = append(d.Coordinates, "x"+strconv.Itoa(i))
		d.Diagonal = append(d.Diagonal, "1")
	}
	return d.Build()
}
