// Package metrics records tensor-engine telemetry in Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "spacetime"

// Recorder implements spacetime.Observer on a dedicated registry.
type Recorder struct {
	registry   *prometheus.Registry
	tensors    *prometheus.CounterVec
	components *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	cacheHits  *prometheus.CounterVec
	toolCalls  *prometheus.CounterVec
}

// NewRecorder registers the engine metrics on reg; nil means a fresh
// registry.
func NewRecorder(reg *prometheus.Registry) *Recorder {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Recorder{
		registry: reg,
		tensors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "tensors_computed_total",
			Help:      "Tensors computed and committed, by kind and index configuration",
		}, []string{"kind", "config"}),
		components: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "components_computed_total",
			Help:      "Tensor components computed, by kind",
		}, []string{"kind"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "tensor_duration_seconds",
			Help:      "Wall time to compute every component of a tensor",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		}, []string{"kind"}),
		cacheHits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "cache_hits_total",
			Help:      "Tensor requests served from the memo store",
		}, []string{"kind", "config"}),
		toolCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tools",
			Name:      "calls_total",
			Help:      "Tool server calls, by tool and status",
		}, []string{"tool", "status"}),
	}
}

// Registry returns the registry the metrics live on, for promhttp.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

func (r *Recorder) TensorComputed(kind, config string, components int, elapsed time.Duration) {
	r.tensors.WithLabelValues(kind, config).Inc()
	r.components.WithLabelValues(kind).Add(float64(components))
	r.duration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

func (r *Recorder) CacheHit(kind, config string) {
	r.cacheHits.WithLabelValues(kind, config).Inc()
}

// ToolCall counts one tool server request; status is "ok" or "error".
func (r *Recorder) ToolCall(tool, status string) {
	r.toolCalls.WithLabelValues(tool, status).Inc()
}
