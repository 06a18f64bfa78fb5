package tools_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcarter9000/spacetimeengine/catalog"
	"github.com/lcarter9000/spacetimeengine/internal/metrics"
	"github.com/lcarter9000/spacetimeengine/symbolic"
	"github.com/lcarter9000/spacetimeengine/tools"
)

func newServer(t *testing.T, opts ...tools.Option) *tools.Server {
	t.Helper()
	s, err := tools.NewServer(catalog.New(), opts...)
	require.NoError(t, err)
	return s
}

// call round-trips the request through JSON so params carry the types a
// decoded HTTP body would.
func call(t *testing.T, s *tools.Server, body string) tools.Response {
	t.Helper()
	var req tools.Request
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	return s.Handle(t.Context(), req)
}

func resultExpr(t *testing.T, resp tools.Response) symbolic.Expr {
	t.Helper()
	require.Empty(t, resp.Error)
	m, ok := resp.Result.(map[string]interface{})
	require.True(t, ok, "result is an expression object")
	e, err := symbolic.FromJSON(m)
	require.NoError(t, err)
	return e
}

func assertEquivalent(t *testing.T, want string, got symbolic.Expr) {
	t.Helper()
	ok, err := symbolic.Equivalent(symbolic.MustParse(want), got)
	require.NoError(t, err)
	assert.Truef(t, ok, "want %s, got %s", want, got)
}

// ============================================================
// Tensor tools
// ============================================================

func TestListMetrics(t *testing.T) {
	resp := call(t, newServer(t), `{"tool": "list_metrics"}`)
	require.Empty(t, resp.Error)
	assert.Contains(t, resp.String, "schwarzschild")
	list, ok := resp.Result.([]map[string]interface{})
	require.True(t, ok)
	assert.Len(t, list, len(catalog.New().Names()))
}

func TestComponent(t *testing.T) {
	resp := call(t, newServer(t), `{"tool": "component", "params": {"metric": "polar", "kind": "christoffel", "config": "udd", "indices": [0, 1, 1]}}`)
	assertEquivalent(t, "-r", resultExpr(t, resp))
	assert.NotEmpty(t, resp.LaTeX)
}

func TestComponent_DefaultConfig(t *testing.T) {
	resp := call(t, newServer(t), `{"tool": "component", "params": {"metric": "polar", "kind": "christoffel", "indices": [0, 1, 1]}}`)
	require.Empty(t, resp.Error)
	assertEquivalent(t, "-r", resultExpr(t, resp))
}

func TestRicciScalar(t *testing.T) {
	resp := call(t, newServer(t), `{"tool": "ricci_scalar", "params": {"metric": "two_sphere"}}`)
	assertEquivalent(t, "2/a^2", resultExpr(t, resp))
}

func TestTensorAndNonZero(t *testing.T) {
	s := newServer(t)

	all := call(t, s, `{"tool": "tensor", "params": {"metric": "polar", "kind": "christoffel", "config": "udd"}}`)
	require.Empty(t, all.Error)
	entries, ok := all.Result.([]map[string]interface{})
	require.True(t, ok)
	assert.Len(t, entries, 8)

	nz := call(t, s, `{"tool": "nonzero", "params": {"metric": "polar", "kind": "christoffel", "config": "udd"}}`)
	require.Empty(t, nz.Error)
	entries = nz.Result.([]map[string]interface{})
	require.Len(t, entries, 3)
	assert.Equal(t, "Γ^{0}_{11}", entries[0]["label"])
	assert.Equal(t, 3, strings.Count(nz.String, "\n"))
	assert.Contains(t, nz.LaTeX, "\\begin{align*}")

	filtered := call(t, s, `{"tool": "tensor", "params": {"metric": "polar", "kind": "christoffel", "config": "udd", "nonzero_only": true}}`)
	assert.Equal(t, nz.Result, filtered.Result)
}

func TestTensor_DefaultConfig(t *testing.T) {
	resp := call(t, newServer(t), `{"tool": "tensor", "params": {"metric": "two_sphere", "kind": "ricci_scalar"}}`)
	require.Empty(t, resp.Error)
	entries := resp.Result.([]map[string]interface{})
	require.Len(t, entries, 1)
	assert.Equal(t, "R", entries[0]["label"])
}

// ============================================================
// Simplify
// ============================================================

func TestSimplify(t *testing.T) {
	s := newServer(t)
	resp := call(t, s, `{"tool": "simplify", "params": {"expr": "sin(x)^2 + cos(x)^2"}}`)
	assert.Equal(t, "1", resultExpr(t, resp).String())

	obj, err := symbolic.ToJSON(symbolic.MustParse("(x^2 - 1)/(x - 1)"))
	require.NoError(t, err)
	resp = call(t, s, `{"tool": "simplify", "params": {"expr": `+obj+`}}`)
	assertEquivalent(t, "x + 1", resultExpr(t, resp))
}

func TestSimplify_EncodedObject(t *testing.T) {
	s := newServer(t)
	obj, err := symbolic.ToJSON(symbolic.MustParse("(x^2 - 1)/(x - 1)"))
	require.NoError(t, err)
	quoted, err := json.Marshal(obj)
	require.NoError(t, err)

	resp := call(t, s, `{"tool": "simplify", "params": {"expr": `+string(quoted)+`}}`)
	assertEquivalent(t, "x + 1", resultExpr(t, resp))

	resp = call(t, s, `{"tool": "simplify", "params": {"expr": "{\"type\": \"bogus\"}"}}`)
	assert.NotEmpty(t, resp.Error)
}

// ============================================================
// Errors, schema and metrics
// ============================================================

func TestErrors(t *testing.T) {
	s := newServer(t)
	cases := map[string]string{
		"unknown tool":   `{"tool": "integrate"}`,
		"missing metric": `{"tool": "ricci_scalar", "params": {}}`,
		"unknown metric": `{"tool": "ricci_scalar", "params": {"metric": "kerr"}}`,
		"unknown kind":   `{"tool": "tensor", "params": {"metric": "polar", "kind": "torsion"}}`,
		"bad config":     `{"tool": "tensor", "params": {"metric": "polar", "kind": "ricci", "config": "udd"}}`,
		"bad indices":    `{"tool": "component", "params": {"metric": "polar", "kind": "ricci", "config": "dd", "indices": [0, 0.5]}}`,
		"out of range":   `{"tool": "component", "params": {"metric": "polar", "kind": "ricci", "config": "dd", "indices": [0, 7]}}`,
		"bad expr":       `{"tool": "simplify", "params": {"expr": "1 +"}}`,
		"division":       `{"tool": "simplify", "params": {"expr": "1/(x - x)"}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			assert.NotEmpty(t, call(t, s, body).Error)
		})
	}
	assert.Equal(t, "unknown tool: integrate", call(t, s, cases["unknown tool"]).Error)
	assert.Contains(t, call(t, s, cases["missing metric"]).Error, "missing param: metric")
}

func TestSpec_ListsEveryTool(t *testing.T) {
	var spec struct {
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal([]byte(tools.Spec()), &spec))
	var names []string
	for _, tool := range spec.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"list_metrics", "tensor", "component", "nonzero", "ricci_scalar", "simplify", "tool_spec"}, names)

	resp := call(t, newServer(t), `{"tool": "tool_spec"}`)
	assert.Equal(t, tools.Spec(), resp.Result)
}

func TestSpec_ConfigIsOptional(t *testing.T) {
	var spec struct {
		Tools []struct {
			Name        string `json:"name"`
			InputSchema struct {
				Required   []string               `json:"required"`
				Properties map[string]interface{} `json:"properties"`
			} `json:"inputSchema"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal([]byte(tools.Spec()), &spec))
	for _, tool := range spec.Tools {
		if _, ok := tool.InputSchema.Properties["config"]; ok {
			assert.NotContains(t, tool.InputSchema.Required, "config", tool.Name)
		}
	}
}

func TestRecorder(t *testing.T) {
	rec := metrics.NewRecorder(nil)
	s := newServer(t, tools.WithRecorder(rec))
	call(t, s, `{"tool": "ricci_scalar", "params": {"metric": "two_sphere"}}`)
	call(t, s, `{"tool": "ricci_scalar", "params": {"metric": "two_sphere"}}`)
	call(t, s, `{"tool": "nope"}`)

	n, err := testutil.GatherAndCount(rec.Registry(), "spacetime_tools_calls_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "ok and error series")

	n, err = testutil.GatherAndCount(rec.Registry(), "spacetime_engine_cache_hits_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "second call is served from the store")
}
