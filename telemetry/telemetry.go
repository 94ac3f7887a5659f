// Package telemetry collects Prometheus metrics for executed statements.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/satishbabariya/sqlbuilder/query"
	"github.com/satishbabariya/sqlbuilder/query/executor"
)

// QueryInfo contains information about an executed statement
type QueryInfo struct {
	// Kind is the statement kind (select, insert, update, ...)
	Kind query.Kind

	// Duration is how long the statement took
	Duration time.Duration

	// Err is the error the statement failed with, if any
	Err error

	// RowsAffected is the number of rows read or written
	RowsAffected int64
}

// Config holds telemetry configuration
type Config struct {
	// Namespace prefixes every metric name
	Namespace string

	// Buckets are the duration histogram buckets in seconds
	Buckets []float64

	// Registerer receives the collectors. A private registry is created when
	// nil.
	Registerer prometheus.Registerer
}

// Metrics records statement metrics
type Metrics struct {
	registry prometheus.Gatherer

	queries  *prometheus.CounterVec
	duration *prometheus.HistogramVec
	rows     *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors
func NewMetrics(config *Config) (*Metrics, error) {
	if config == nil {
		config = &Config{}
	}
	namespace := config.Namespace
	if namespace == "" {
		namespace = "sqlbuilder"
	}
	buckets := config.Buckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	m := &Metrics{
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Statements executed, by kind and outcome.",
		}, []string{"kind", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Statement latency in seconds.",
			Buckets:   buckets,
		}, []string{"kind"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_total",
			Help:      "Rows returned by reads and affected by writes.",
		}, []string{"kind"}),
	}

	reg := config.Registerer
	if reg == nil {
		r := prometheus.NewRegistry()
		reg = r
		m.registry = r
	} else if g, ok := reg.(prometheus.Gatherer); ok {
		m.registry = g
	}

	var err error
	if m.queries, err = register(reg, m.queries); err != nil {
		return nil, err
	}
	if m.duration, err = register(reg, m.duration); err != nil {
		return nil, err
	}
	if m.rows, err = register(reg, m.rows); err != nil {
		return nil, err
	}
	return m, nil
}

// register adds c to reg, reusing the collector already registered under the
// same descriptor
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(T); ok {
			return existing, nil
		}
	}
	return c, err
}

// RecordQuery records one statement
func (m *Metrics) RecordQuery(info QueryInfo) {
	kind := info.Kind.String()
	m.queries.WithLabelValues(kind, status(info.Err)).Inc()
	m.duration.WithLabelValues(kind).Observe(info.Duration.Seconds())
	if info.Err == nil && info.RowsAffected > 0 {
		m.rows.WithLabelValues(kind).Add(float64(info.RowsAffected))
	}
}

// Middleware returns an executor middleware feeding RecordQuery
func (m *Metrics) Middleware() executor.Middleware {
	return func(ctx context.Context, event *executor.QueryEvent, next func() error) error {
		err := next()
		m.RecordQuery(QueryInfo{
			Kind:         event.Kind,
			Duration:     event.Duration,
			Err:          err,
			RowsAffected: event.RowsAffected,
		})
		return err
	}
}

// Gatherer returns the registry holding the collectors, or nil when the
// configured Registerer cannot gather
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

func status(err error) string {
	switch {
	case err == nil:
		return "success"
	case query.IsDriverError(err):
		return "driver_error"
	default:
		return "error"
	}
}

// Sample is one series of a gathered metric
type Sample struct {
	Name   string
	Labels map[string]string
	// Value is the counter value, or the observation count for histograms
	Value float64
}

// Snapshot returns the current value of every series, ordered by metric name
// then label values
func (m *Metrics) Snapshot() ([]Sample, error) {
	if m.registry == nil {
		return nil, fmt.Errorf("metrics registerer cannot be gathered")
	}
	families, err := m.registry.Gather()
	if err != nil {
		return nil, err
	}

	var samples []Sample
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			s := Sample{Name: mf.GetName(), Labels: make(map[string]string, len(metric.GetLabel()))}
			for _, lp := range metric.GetLabel() {
				s.Labels[lp.GetName()] = lp.GetValue()
			}
			switch {
			case metric.GetCounter() != nil:
				s.Value = metric.GetCounter().GetValue()
			case metric.GetHistogram() != nil:
				s.Value = float64(metric.GetHistogram().GetSampleCount())
			default:
				continue
			}
			samples = append(samples, s)
		}
	}
	return samples, nil
}
