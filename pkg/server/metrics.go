package server

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/grafana/retrace/pkg/util"
)

type metrics struct {
	connections     prometheus.Counter
	openConnections prometheus.Gauge
	linesTooLong    prometheus.Counter
	httpRequests    *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	return &metrics{
		connections: util.RegisterOrGet(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "retrace_server_connections_total",
			Help: "Total number of accepted client connections.",
		})),
		openConnections: util.RegisterOrGet(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "retrace_server_open_connections",
			Help: "Number of currently connected clients.",
		})),
		linesTooLong: util.RegisterOrGet(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "retrace_server_lines_too_long_total",
			Help: "Total number of connections closed because of an over-long request line.",
		})),
		httpRequests: util.RegisterOrGet(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "retrace_http_requests_total",
			Help: "Total number of HTTP requests by route and status code.",
		}, []string{"route", "code", "method"})),
	}
}
