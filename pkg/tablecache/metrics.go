package tablecache

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/grafana/retrace/pkg/util"
)

const (
	resultHit  = "hit"
	resultMiss = "miss"

	statusSuccess = "success"
	statusError   = "error"
)

type metrics struct {
	lookups       *prometheus.CounterVec
	buildDuration *prometheus.HistogramVec
	evictions     prometheus.Counter
	entries       prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	return &metrics{
		lookups: util.RegisterOrGet(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "retrace_table_cache_lookups_total",
			Help: "Total number of mapping table cache lookups by result.",
		}, []string{"result"})),
		buildDuration: util.RegisterOrGet(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "retrace_table_build_duration_seconds",
			Help:    "Time spent loading and parsing mapping tables by status.",
			Buckets: []float64{.01, .05, .1, .5, 1, 2.5, 5, 10, 30},
		}, []string{"status"})),
		evictions: util.RegisterOrGet(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "retrace_table_cache_evictions_total",
			Help: "Total number of mapping tables evicted from the cache.",
		})),
		entries: util.RegisterOrGet(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "retrace_table_cache_entries",
			Help: "Number of mapping tables currently held in the cache.",
		})),
	}
}
