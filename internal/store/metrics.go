package store

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts store traffic per table and operation.
type Metrics struct {
	ops     *prometheus.CounterVec
	rows    *prometheus.CounterVec
	latency *prometheus.HistogramVec
	retries *prometheus.CounterVec
}

// NewMetrics registers the store collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "planrollup",
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Store operations by table, operation and outcome.",
		}, []string{"table", "op", "outcome"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "planrollup",
			Subsystem: "store",
			Name:      "rows_total",
			Help:      "Rows returned or affected by store operations.",
		}, []string{"table", "op"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "planrollup",
			Subsystem: "store",
			Name:      "operation_seconds",
			Help:      "Store operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"table", "op"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "planrollup",
			Subsystem: "store",
			Name:      "retries_total",
			Help:      "Request attempts repeated after a transient failure.",
		}, []string{"table", "op"}),
	}
	reg.MustRegister(m.ops, m.rows, m.latency, m.retries)
	return m
}

// Retry counts one repeated attempt. Backends with retry loops call it.
func (m *Metrics) Retry(table, op string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(table, op).Inc()
}

func (m *Metrics) observe(table, op string, start time.Time, n int, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.ops.WithLabelValues(table, op, outcome).Inc()
	m.rows.WithLabelValues(table, op).Add(float64(n))
	m.latency.WithLabelValues(table, op).Observe(time.Since(start).Seconds())
}

// Instrument wraps s so every call is counted in m.
func Instrument(s Store, m *Metrics) Store {
	if m == nil {
		return s
	}
	return &instrumented{next: s, m: m}
}

type instrumented struct {
	next Store
	m    *Metrics
}

func (i *instrumented) Insert(ctx context.Context, table string, rows []Row) ([]Row, error) {
	start := time.Now()
	out, err := i.next.Insert(ctx, table, rows)
	i.m.observe(table, "insert", start, len(out), err)
	return out, err
}

func (i *instrumented) Select(ctx context.Context, table string, q Query) ([]Row, error) {
	start := time.Now()
	out, err := i.next.Select(ctx, table, q)
	i.m.observe(table, "select", start, len(out), err)
	return out, err
}

func (i *instrumented) Update(ctx context.Context, table string, filters []Filter, patch Row) (int, error) {
	start := time.Now()
	n, err := i.next.Update(ctx, table, filters, patch)
	i.m.observe(table, "update", start, n, err)
	return n, err
}

func (i *instrumented) Delete(ctx context.Context, table string, filters []Filter) (int, error) {
	start := time.Now()
	n, err := i.next.Delete(ctx, table, filters)
	i.m.observe(table, "delete", start, n, err)
	return n, err
}
