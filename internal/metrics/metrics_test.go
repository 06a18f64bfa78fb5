package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	spacetime "github.com/lcarter9000/spacetimeengine"
	"github.com/lcarter9000/spacetimeengine/internal/metrics"
	"github.com/lcarter9000/spacetimeengine/symbolic"
)

var _ spacetime.Observer = (*metrics.Recorder)(nil)

// counter sums every series of the named counter.
func counter(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	total := 0.0
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func TestRecorder_Counts(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := metrics.NewRecorder(reg)
	rec.TensorComputed("ricci", "dd", 16, 20*time.Millisecond)
	rec.TensorComputed("christoffel", "udd", 64, time.Millisecond)
	rec.CacheHit("ricci", "dd")
	rec.ToolCall("tensor", "ok")

	assert.Equal(t, 2.0, counter(t, reg, "spacetime_engine_tensors_computed_total"))
	assert.Equal(t, 80.0, counter(t, reg, "spacetime_engine_components_computed_total"))
	assert.Equal(t, 1.0, counter(t, reg, "spacetime_engine_cache_hits_total"))
	assert.Equal(t, 1.0, counter(t, reg, "spacetime_tools_calls_total"))
}

func TestRecorder_WiredIntoEngine(t *testing.T) {
	rec := metrics.NewRecorder(nil)
	frame, err := spacetime.NewFrame("theta", "phi")
	require.NoError(t, err)
	sin2 := symbolic.PowOf(symbolic.SinOf(symbolic.S("theta")), symbolic.N(2))
	st, err := spacetime.New(frame, symbolic.Diagonal(symbolic.N(1), sin2), spacetime.DD, spacetime.WithObserver(rec))
	require.NoError(t, err)

	_, err = st.RicciScalar(t.Context())
	require.NoError(t, err)
	_, err = st.RicciScalar(t.Context())
	require.NoError(t, err)

	// christoffel, riemann, ricci, ricci scalar
	assert.Equal(t, 4.0, counter(t, rec.Registry(), "spacetime_engine_tensors_computed_total"))
	assert.Equal(t, 1.0, counter(t, rec.Registry(), "spacetime_engine_cache_hits_total"))
}
