package stats

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// RunCounters are live whole-run counters, updated by the dispatch path and
// safe to read from a metrics scraper goroutine. Only these cross the
// single-threaded core boundary; the detailed per-thread stats stay private
// to their contexts until shutdown.
type RunCounters struct {
	Primitives atomic.Uint64
	CompEvents atomic.Uint64
	CommEvents atomic.Uint64
	SyncEvents atomic.Uint64
	Markers    atomic.Uint64
}

var (
	descPrimitives = prometheus.NewDesc(
		"stgen_primitives_total",
		"Frontend primitives dispatched",
		nil, nil,
	)
	descEvents = prometheus.NewDesc(
		"stgen_events_total",
		"SynchroTrace events emitted, by kind",
		[]string{"kind"}, nil,
	)
)

// Collector exposes RunCounters as prometheus metrics. Register it with a
// registry and serve that registry while a run is in flight.
type Collector struct {
	counters *RunCounters
}

// NewCollector returns a collector reading from counters.
func NewCollector(counters *RunCounters) *Collector {
	return &Collector{counters: counters}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- descPrimitives
	ch <- descEvents
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(descPrimitives, prometheus.CounterValue,
		float64(c.counters.Primitives.Load()))
	ch <- prometheus.MustNewConstMetric(descEvents, prometheus.CounterValue,
		float64(c.counters.CompEvents.Load()), "comp")
	ch <- prometheus.MustNewConstMetric(descEvents, prometheus.CounterValue,
		float64(c.counters.CommEvents.Load()), "comm")
	ch <- prometheus.MustNewConstMetric(descEvents, prometheus.CounterValue,
		float64(c.counters.SyncEvents.Load()), "sync")
	ch <- prometheus.MustNewConstMetric(descEvents, prometheus.CounterValue,
		float64(c.counters.Markers.Load()), "marker")
}
