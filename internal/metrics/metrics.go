// Package metrics holds the pipeline's Prometheus collectors.
package metrics

import (
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// Skip reasons for the rows_skipped counter.
const (
	ReasonBlank       = "blank"
	ReasonUnparseable = "unparseable"
)

// Run statuses.
const (
	StatusOK      = "ok"
	StatusPartial = "partial"
	StatusError   = "error"
)

// Metrics owns a private registry so several processors can coexist in one
// process, as they do in tests.
type Metrics struct {
	Registry *prometheus.Registry

	tables         prometheus.Counter
	transactions   prometheus.Counter
	rowsSkipped    *prometheus.CounterVec
	ledgerFailures prometheus.Counter
	runs           *prometheus.CounterVec
	runDuration    prometheus.Histogram
}

// New creates the registry and registers all collectors in it.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		tables: factory.NewCounter(prometheus.CounterOpts{
			Name: "stmtqbo_tables_total",
			Help: "Tables assembled from analysis blocks.",
		}),
		transactions: factory.NewCounter(prometheus.CounterOpts{
			Name: "stmtqbo_transactions_total",
			Help: "Transactions extracted from tables.",
		}),
		rowsSkipped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stmtqbo_rows_skipped_total",
				Help: "Table rows that produced no transaction.",
			},
			[]string{"reason"},
		),
		ledgerFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "stmtqbo_ledger_failures_total",
			Help: "Ledgers that could not be rendered or stored.",
		}),
		runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stmtqbo_runs_total",
				Help: "Jobs processed, by outcome.",
			},
			[]string{"status"},
		),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "stmtqbo_run_duration_seconds",
			Help:    "Wall time of a job run.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) AddTables(n int) { m.tables.Add(float64(n)) }
func (m *Metrics) AddTransactions(n int) { m.transactions.Add(float64(n)) }
func (m *Metrics) IncLedgerFailure() { m.ledgerFailures.Inc() }

// AddSkipped counts n rows skipped for reason.
func (m *Metrics) AddSkipped(reason string, n int) {
	if n > 0 {
		m.rowsSkipped.WithLabelValues(reason).Add(float64(n))
	}
}

// ObserveRun records one job's outcome and duration.
func (m *Metrics) ObserveRun(status string, d time.Duration) {
	m.runs.WithLabelValues(status).Inc()
	m.runDuration.Observe(d.Seconds())
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Tables         float64
	Transactions   float64
	Blank          float64
	Unparseable    float64
	LedgerFailures float64
}

// Snapshot reads the current counter values.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		Tables:         counterValue(m.tables),
		Transactions:   counterValue(m.transactions),
		Blank:          counterValue(m.rowsSkipped.WithLabelValues(ReasonBlank)),
		Unparseable:    counterValue(m.rowsSkipped.WithLabelValues(ReasonUnparseable)),
		LedgerFailures: counterValue(m.ledgerFailures),
	}
}

// Runs returns how many runs ended with status.
func (m *Metrics) Runs(status string) float64 {
	return counterValue(m.runs.WithLabelValues(status))
}

// WriteText writes every registered metric in the Prometheus text format.
func (m *Metrics) WriteText(w io.Writer) error {
	families, err := m.Registry.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("writing %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

func counterValue(c prometheus.Counter) float64 {
	var pb dto.Metric
	if err := c.Write(&pb); err != nil {
		return 0
	}
	return pb.GetCounter().GetValue()
}
