// Package metrics exports engine outcomes as Prometheus counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"metaprops/internal/core/apperror"
	"metaprops/internal/domain"
	"metaprops/internal/metadata"
)

const namespace = "metaprops"

var _ domain.Recorder = (*Metrics)(nil)

// Metrics implements domain.Recorder. A nil *Metrics records nothing.
type Metrics struct {
	compilations *prometheus.CounterVec // By pattern_type and result
	validations  *prometheus.CounterVec // By data_type and result
	searches     *prometheus.CounterVec // By result
	matched      prometheus.Histogram
}

// New creates engine metrics and registers them with reg. A nil reg
// disables metrics.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		return nil, nil
	}

	m := &Metrics{
		compilations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "constraint_compilations_total",
			Help:      "Constraint compilations by pattern type and result",
		}, []string{"pattern_type", "result"}),

		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "value_validations_total",
			Help:      "Property value validations by data type and result",
		}, []string{"data_type", "result"}),

		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_evaluations_total",
			Help:      "Search evaluations by result",
		}, []string{"result"}),

		matched: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_matched_entities",
			Help:      "Number of entities returned by a search",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
	}

	for _, c := range []prometheus.Collector{m.compilations, m.validations, m.searches, m.matched} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ConstraintCompiled implements domain.Recorder.
func (m *Metrics) ConstraintCompiled(patternType metadata.PatternType, err error) {
	if m == nil {
		return
	}
	pt := string(patternType)
	if pt == "" {
		pt = "NONE"
	}
	m.compilations.WithLabelValues(pt, result(err)).Inc()
}

// ValueValidated implements domain.Recorder.
func (m *Metrics) ValueValidated(dataType metadata.DataType, err error) {
	if m == nil {
		return
	}
	m.validations.WithLabelValues(string(dataType), result(err)).Inc()
}

// SearchEvaluated implements domain.Recorder.
func (m *Metrics) SearchEvaluated(matched int, err error) {
	if m == nil {
		return
	}
	m.searches.WithLabelValues(result(err)).Inc()
	if err == nil {
		m.matched.Observe(float64(matched))
	}
}

// result labels an outcome: "ok", the AppError code, or INTERNAL_ERROR.
func result(err error) string {
	if err == nil {
		return "ok"
	}
	if appErr, ok := apperror.AsAppError(err); ok {
		return appErr.Code
	}
	return apperror.CodeInternal
}
