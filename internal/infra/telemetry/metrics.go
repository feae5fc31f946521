package telemetry

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsOptions configures the core service collectors.
type MetricsOptions struct {
	Registerer prometheus.Registerer
	Namespace  string
}

// Metrics exposes Prometheus collectors for the core workflows.
type Metrics struct {
	Rotations           *prometheus.CounterVec
	LevelChanges        prometheus.Counter
	SessionsInvalidated prometheus.Counter
}

// NewMetrics constructs and registers the collectors with the provided registerer.
func NewMetrics(opts MetricsOptions) (*Metrics, error) {
	namespace := opts.Namespace
	if namespace == "" {
		namespace = "tracker"
	}

	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	rotations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "credential_rotations_total",
		Help:      "Total credential rotation attempts partitioned by outcome.",
	}, []string{"outcome"})

	levelChanges := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "level_changes_total",
		Help:      "Total user level changes persisted after point awards.",
	})

	sessionsInvalidated := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_invalidated_total",
		Help:      "Total sessions deactivated by credential rotation sweeps.",
	})

	collectors := []prometheus.Collector{rotations, levelChanges, sessionsInvalidated}
	for i, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			already, ok := err.(prometheus.AlreadyRegisteredError)
			if !ok {
				return nil, fmt.Errorf("register collector: %w", err)
			}
			collectors[i] = already.ExistingCollector
		}
	}

	metrics := &Metrics{}
	var ok bool
	if metrics.Rotations, ok = collectors[0].(*prometheus.CounterVec); !ok {
		return nil, fmt.Errorf("existing rotations collector has unexpected type %T", collectors[0])
	}
	if metrics.LevelChanges, ok = collectors[1].(prometheus.Counter); !ok {
		return nil, fmt.Errorf("existing level changes collector has unexpected type %T", collectors[1])
	}
	if metrics.SessionsInvalidated, ok = collectors[2].(prometheus.Counter); !ok {
		return nil, fmt.Errorf("existing sessions collector has unexpected type %T", collectors[2])
	}

	return metrics, nil
}

// ObserveRotation increments the rotation counter for the given outcome.
// Safe to call on a nil receiver so services can treat metrics as optional.
func (m *Metrics) ObserveRotation(outcome string) {
	if m == nil || m.Rotations == nil {
		return
	}
	m.Rotations.WithLabelValues(outcome).Inc()
}

// ObserveLevelChange increments the level change counter.
func (m *Metrics) ObserveLevelChange() {
	if m == nil || m.LevelChanges == nil {
		return
	}
	m.LevelChanges.Inc()
}

// ObserveSessionsInvalidated adds the invalidated session count.
func (m *Metrics) ObserveSessionsInvalidated(count int) {
	if m == nil || m.SessionsInvalidated == nil || count <= 0 {
		return
	}
	m.SessionsInvalidated.Add(float64(count))
}
