package daemon

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	registry *prometheus.Registry
	syncs    *prometheus.CounterVec
	passes   prometheus.Counter
	mutated  prometheus.Counter
	writes   prometheus.Counter
	gaps     *prometheus.GaugeVec
	duration prometheus.Histogram
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		syncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "moneyshape",
			Name:      "board_syncs_total",
			Help:      "Board syncs by result.",
		}, []string{"result"}),
		passes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "moneyshape",
			Name:      "engine_passes_total",
			Help:      "Engine passes run across all boards.",
		}),
		mutated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "moneyshape",
			Name:      "engine_mutations_total",
			Help:      "Creates, updates and deletes made by engine passes.",
		}),
		writes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "moneyshape",
			Name:      "board_writes_total",
			Help:      "Board files rewritten after a sync.",
		}),
		gaps: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "moneyshape",
			Name:      "allocation_gaps",
			Help:      "Unresolved or over-allocated items per board.",
		}, []string{"board"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "moneyshape",
			Name:      "board_sync_seconds",
			Help:      "Time to load, settle and save a board.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
	}
	m.registry.MustRegister(m.syncs, m.passes, m.mutated, m.writes, m.gaps, m.duration)
	return m
}

func (m *metrics) observe(b Board, took time.Duration) {
	result := "ok"
	if b.Error != "" {
		result = "error"
	}
	m.syncs.WithLabelValues(result).Inc()
	m.passes.Add(float64(b.Passes))
	m.mutated.Add(float64(b.Mutations))
	if b.Written {
		m.writes.Inc()
	}
	m.gaps.WithLabelValues(b.Name).Set(float64(len(b.Gaps)))
	m.duration.Observe(took.Seconds())
}
