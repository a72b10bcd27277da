package fstore

import (
	"fmt"
	"io"

	"github.com/VictoriaMetrics/metrics"
)

// Modes of an operation as used in the mode label of fkv_ops_total
const (
	modeAsync = "async"
	modeSync  = "sync"
	modeCache = "cache"
)

// storeMetrics holds the metrics of a single store. Every store has its own metrics.Set,
// so several stores in one process never share counters.
type storeMetrics struct {
	set *metrics.Set

	queueErrors     *metrics.Counter
	refreshTotal    *metrics.Counter
	refreshErrors   *metrics.Counter
	refreshDuration *metrics.Histogram
}

func newStoreMetrics(pending func() int) *storeMetrics {
	set := metrics.NewSet()
	m := &storeMetrics{
		set:             set,
		queueErrors:     set.NewCounter("fkv_queue_errors_total"),
		refreshTotal:    set.NewCounter("fkv_refresh_total"),
		refreshErrors:   set.NewCounter("fkv_refresh_errors_total"),
		refreshDuration: set.NewHistogram("fkv_refresh_duration_seconds"),
	}
	set.NewGauge("fkv_queue_pending", func() float64 {
		return float64(pending())
	})
	return m
}

// op counts a store call
func (m *storeMetrics) op(op, mode string) {
	m.set.GetOrCreateCounter(fmt.Sprintf(`fkv_ops_total{op=%q,mode=%q}`, op, mode)).Inc()
}

// discarded counts a queued mutation whose error was dropped
func (m *storeMetrics) discarded(reason string) {
	m.set.GetOrCreateCounter(fmt.Sprintf(`fkv_queue_discarded_total{reason=%q}`, reason)).Inc()
}

func (m *storeMetrics) write(w io.Writer) {
	m.set.WritePrometheus(w)
}
