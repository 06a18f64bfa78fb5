// Package tools exposes the tensor engine as JSON tool calls: a request names
// a tool and carries loosely typed params, the response carries a JSON result
// plus plain-text and LaTeX renderings.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	spacetime "github.com/lcarter9000/spacetimeengine"
	"github.com/lcarter9000/spacetimeengine/catalog"
	"github.com/lcarter9000/spacetimeengine/internal/metrics"
	"github.com/lcarter9000/spacetimeengine/render"
	"github.com/lcarter9000/spacetimeengine/symbolic"
)

// ErrBadParam marks a request whose params are missing or mistyped.
var ErrBadParam = errors.New("tools: bad param")

type Request struct {
	Tool   string                 `json:"tool"`
	Params map[string]interface{} `json:"params"`
}

type Response struct {
	Result interface{} `json:"result,omitempty"`
	LaTeX  string      `json:"latex,omitempty"`
	String string      `json:"string,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// Server answers tool calls against a metric catalog. Spacetimes are built
// lazily, one per metric name, and shared across calls so their memoized
// tensors are reused.
type Server struct {
	catalog  *catalog.Catalog
	algebra  spacetime.Algebra
	recorder *metrics.Recorder
	logger   *slog.Logger
	stOpts   []spacetime.Option

	mu         sync.Mutex
	spacetimes map[string]*spacetime.Spacetime
}

// Option configures a Server.
type Option func(*Server)

// WithRecorder counts tool calls and forwards engine telemetry to r.
func WithRecorder(r *metrics.Recorder) Option { return func(s *Server) { s.recorder = r } }

// WithLogger sets the logger for the server and the spacetimes it builds.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithAlgebra replaces the default symbolic kernel.
func WithAlgebra(a spacetime.Algebra) Option { return func(s *Server) { s.algebra = a } }

// WithSpacetimeOptions appends options applied to every spacetime built.
func WithSpacetimeOptions(opts ...spacetime.Option) Option {
	return func(s *Server) { s.stOpts = append(s.stOpts, opts...) }
}

// NewServer returns a server over c. One algebra is shared by every
// spacetime so simplifications are cached across metrics.
func NewServer(c *catalog.Catalog, opts ...Option) (*Server, error) {
	s := &Server{
		catalog:    c,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		spacetimes: make(map[string]*spacetime.Spacetime),
	}
	for _, o := range opts {
		o(s)
	}
	if s.algebra == nil {
		k, err := symbolic.NewKernel(symbolic.DefaultCacheSize)
		if err != nil {
			return nil, err
		}
		s.algebra = k
	}
	return s, nil
}

func (s *Server) spacetimeFor(name string) (*spacetime.Spacetime, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.spacetimes[name]; ok {
		return st, nil
	}
	m, err := s.catalog.Get(name)
	if err != nil {
		return nil, err
	}
	opts := []spacetime.Option{spacetime.WithAlgebra(s.algebra), spacetime.WithLogger(s.logger)}
	if s.recorder != nil {
		opts = append(opts, spacetime.WithObserver(s.recorder))
	}
	st, err := m.Spacetime(append(opts, s.stOpts...)...)
	if err != nil {
		return nil, err
	}
	s.spacetimes[name] = st
	return st, nil
}

// Handle dispatches one call. Failures are reported in Response.Error.
func (s *Server) Handle(ctx context.Context, req Request) Response {
	start := time.Now()
	resp := s.dispatch(ctx, req)
	status := "ok"
	if resp.Error != "" {
		status = "error"
	}
	if s.recorder != nil {
		tool := req.Tool
		if !knownTools[tool] {
			tool = "unknown"
		}
		s.recorder.ToolCall(tool, status)
	}
	s.logger.LogAttrs(ctx, slog.LevelDebug, "tool call",
		slog.String("tool", req.Tool),
		slog.String("status", status),
		slog.Duration("elapsed", time.Since(start)))
	return resp
}

var knownTools = map[string]bool{
	"list_metrics": true, "tensor": true, "component": true, "nonzero": true,
	"ricci_scalar": true, "simplify": true, "tool_spec": true,
}

func fail(err error) Response { return Response{Error: err.Error()} }

func (s *Server) dispatch(ctx context.Context, req Request) Response {
	p := params(req.Params)

	switch req.Tool {
	case "list_metrics":
		var out []map[string]interface{}
		for _, name := range s.catalog.Names() {
			d, err := s.catalog.Definition(name)
			if err != nil {
				return fail(err)
			}
			out = append(out, map[string]interface{}{
				"name":        d.Name,
				"description": d.Description,
				"coordinates": d.Coordinates,
			})
		}
		return Response{Result: out, String: strings.Join(s.catalog.Names(), ", ")}

	case "tensor", "nonzero":
		st, kind, cfg, err := s.target(p)
		if err != nil {
			return fail(err)
		}
		entries, err := render.TensorEntries(ctx, st, kind, cfg)
		if err != nil {
			return fail(err)
		}
		nonZeroOnly, err := p.optBool("nonzero_only")
		if err != nil {
			return fail(err)
		}
		if req.Tool == "nonzero" || nonZeroOnly {
			entries = render.NonZeroOnly(entries)
		}
		return respondEntries(entries)

	case "component":
		st, kind, cfg, err := s.target(p)
		if err != nil {
			return fail(err)
		}
		idx, err := p.ints("indices")
		if err != nil {
			return fail(err)
		}
		e, err := st.Component(ctx, kind, cfg, idx...)
		if err != nil {
			return fail(err)
		}
		return respond(e)

	case "ricci_scalar":
		name, err := p.str("metric")
		if err != nil {
			return fail(err)
		}
		st, err := s.spacetimeFor(name)
		if err != nil {
			return fail(err)
		}
		e, err := st.RicciScalar(ctx)
		if err != nil {
			return fail(err)
		}
		return respond(e)

	case "simplify":
		e, err := p.expr("expr")
		if err != nil {
			return fail(err)
		}
		out, err := s.algebra.Simplify(e)
		if err != nil {
			return fail(err)
		}
		return respond(out)

	case "tool_spec":
		return Response{Result: Spec(), String: "tool specification"}
	}

	return Response{Error: fmt.Sprintf("unknown tool: %s", req.Tool)}
}

// target resolves the metric, kind and config params shared by the tensor
// tools. config defaults to the kind's conventional configuration.
func (s *Server) target(p params) (*spacetime.Spacetime, spacetime.Kind, spacetime.IndexConfig, error) {
	name, err := p.str("metric")
	if err != nil {
		return nil, 0, "", err
	}
	kindName, err := p.str("kind")
	if err != nil {
		return nil, 0, "", err
	}
	kind, err := spacetime.ParseKind(kindName)
	if err != nil {
		return nil, 0, "", err
	}
	cfg := kind.DefaultConfig()
	if _, ok := p["config"]; ok {
		raw, err := p.str("config")
		if err != nil {
			return nil, 0, "", err
		}
		cfg = spacetime.ParseIndexConfig(raw)
	}
	st, err := s.spacetimeFor(name)
	if err != nil {
		return nil, 0, "", err
	}
	return st, kind, cfg, nil
}

func respond(e symbolic.Expr) Response {
	return Response{Result: symbolic.ToJSONValue(e), LaTeX: e.LaTeX(), String: e.String()}
}

func respondEntries(entries []render.Entry) Response {
	result := make([]map[string]interface{}, len(entries))
	for i, e := range entries {
		result[i] = map[string]interface{}{
			"label":  e.Label,
			"expr":   symbolic.ToJSONValue(e.Expr),
			"string": e.Expr.String(),
		}
	}
	var text, latex strings.Builder
	// Writers into a strings.Builder cannot fail.
	_ = render.Text(&text, entries)
	_ = render.LaTeX(&latex, entries)
	return Response{Result: result, String: text.String(), LaTeX: latex.String()}
}

// params reads JSON-decoded values: numbers arrive as float64 and arrays as
// []interface{}.
type params map[string]interface{}

func (p params) str(key string) (string, error) {
	v, ok := p[key]
	if !ok {
		return "", fmt.Errorf("%w: missing param: %s", ErrBadParam, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: param %s must be a string", ErrBadParam, key)
	}
	return s, nil
}

func (p params) optBool(key string) (bool, error) {
	v, ok := p[key]
	if !ok {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: param %s must be a boolean", ErrBadParam, key)
	}
	return b, nil
}

func (p params) ints(key string) ([]int, error) {
	v, ok := p[key]
	if !ok {
		return nil, fmt.Errorf("%w: missing param: %s", ErrBadParam, key)
	}
	raw, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: param %s must be array", ErrBadParam, key)
	}
	out := make([]int, len(raw))
	for i, r := range raw {
		f, ok := r.(float64)
		if !ok || f != float64(int(f)) {
			return nil, fmt.Errorf("%w: param %s[%d] must be an integer", ErrBadParam, key, i)
		}
		out[i] = int(f)
	}
	return out, nil
}

// expr accepts an expression object, the same object encoded as a JSON
// string, or infix text.
func (p params) expr(key string) (symbolic.Expr, error) {
	v, ok := p[key]
	if !ok {
		return nil, fmt.Errorf("%w: missing param: %s", ErrBadParam, key)
	}
	switch val := v.(type) {
	case map[string]interface{}:
		return symbolic.FromJSON(val)
	case string:
		if strings.HasPrefix(strings.TrimSpace(val), "{") {
			return symbolic.ParseJSON(val)
		}
		return symbolic.Parse(val)
	}
	return nil, fmt.Errorf("%w: invalid type for param %s", ErrBadParam, key)
}

// Spec returns the JSON schema of every tool.
func Spec() string {
	metric := map[string]string{"metric": "string"}
	target := map[string]string{"metric": "string", "kind": "string", "config": "string"}
	tools := []map[string]interface{}{
		ts("list_metrics", "List the metrics in the catalog with their coordinates", []string{}, map[string]string{}),
		ts("tensor", "Every component of a tensor. kind e.g. christoffel, riemann, ricci; config e.g. udd, dd. Optional nonzero_only (boolean)",
			[]string{"metric", "kind"}, map[string]string{"metric": "string", "kind": "string", "config": "string", "nonzero_only": "boolean"}),
		ts("component", "One tensor component. indices is an integer array, one per slot; config defaults to the kind's usual one",
			[]string{"metric", "kind", "indices"}, map[string]string{"metric": "string", "kind": "string", "config": "string", "indices": "array"}),
		ts("nonzero", "Non-vanishing components of a tensor", []string{"metric", "kind"}, target),
		ts("ricci_scalar", "Scalar curvature R", []string{"metric"}, metric),
		ts("simplify", "Canonical form of an expression given as an object or infix text", []string{"expr"}, map[string]string{"expr": "object"}),
		ts("tool_spec", "Return this tool schema", []string{}, map[string]string{}),
	}
	spec := map[string]interface{}{"tools": tools}
	b, _ := json.MarshalIndent(spec, "", "  ")
	return string(b)
}

func ts(name, description string, required []string, props map[string]string) map[string]interface{} {
	properties := map[string]interface{}{}
	for k, typ := range props {
		properties[k] = map[string]interface{}{"type": typ}
	}
	return map[string]interface{}{
		"name":        name,
		"description": description,
		"inputSchema": map[string]interface{}{
			"type":       "object",
			"properties": properties,
			"required":   required,
		},
	}
}
