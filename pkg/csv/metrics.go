package csv

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/shapestone/shape-csvreader/internal/parser"
)

// Read outcomes reported in the result label.
const (
	resultOK      = "ok"
	resultError   = "error"
	resultStopped = "stopped"
)

// Metrics exposes Prometheus counters for reads. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	bytes prometheus.Counter
	lines *prometheus.CounterVec
	rows  prometheus.Counter
	reads *prometheus.CounterVec
}

// NewMetrics creates the reader counters and registers them with reg. A nil
// reg leaves them unregistered. Counters already registered by an earlier
// call are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "csvreader_bytes_scanned_total",
			Help: "Input bytes accepted by the scanner.",
		}),
		lines: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "csvreader_lines_total",
			Help: "Completed lines, by kind (physical or logical).",
		}, []string{"kind"}),
		rows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "csvreader_rows_emitted_total",
			Help: "Data rows emitted to callers.",
		}),
		reads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "csvreader_reads_total",
			Help: "Finished reads, by result (ok, error or stopped).",
		}, []string{"result"}),
	}
	if reg == nil {
		return m, nil
	}

	var err error
	if m.bytes, err = register(reg, m.bytes); err != nil {
		return nil, err
	}
	if m.lines, err = register(reg, m.lines); err != nil {
		return nil, err
	}
	if m.rows, err = register(reg, m.rows); err != nil {
		return nil, err
	}
	if m.reads, err = register(reg, m.reads); err != nil {
		return nil, err
	}
	return m, nil
}

// register registers c, returning the existing collector if an identical
// one is already registered.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// observe records the outcome of one read.
func (m *Metrics) observe(st parser.Stats, result string) {
	if m == nil {
		return
	}
	m.bytes.Add(float64(st.Bytes))
	m.lines.WithLabelValues("physical").Add(float64(st.Physical))
	m.lines.WithLabelValues("logical").Add(float64(st.Logical))
	m.rows.Add(float64(st.Rows))
	m.reads.WithLabelValues(result).Inc()
}
