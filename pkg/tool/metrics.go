package tool

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for the invocation counter.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeInvalid = "invalid"
)

// Metrics reports tool executions to Prometheus. A nil *Metrics is a no-op.
type Metrics struct {
	invocations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewMetrics registers the tool collectors with reg, reusing collectors that
// are already registered under the same names.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	invocations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "toolsdk",
			Subsystem: "tool",
			Name:      "invocations_total",
			Help:      "Tool invocations by tool and outcome.",
		},
		[]string{"tool", "outcome"},
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "toolsdk",
			Subsystem: "tool",
			Name:      "execution_duration_seconds",
			Help:      "Time spent in tool Execute.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"tool"},
	)

	if err := reg.Register(invocations); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return nil, err
		}
		invocations = already.ExistingCollector.(*prometheus.CounterVec)
	}
	if err := reg.Register(duration); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return nil, err
		}
		duration = already.ExistingCollector.(*prometheus.HistogramVec)
	}
	return &Metrics{invocations: invocations, duration: duration}, nil
}

func (m *Metrics) observe(tool, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.invocations.WithLabelValues(tool, outcome).Inc()
	if outcome != OutcomeInvalid {
		m.duration.WithLabelValues(tool).Observe(elapsed.Seconds())
	}
}
