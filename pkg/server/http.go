package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type route struct {
	pattern string
	handler http.Handler
}

func newRouter(m *metrics, gatherer prometheus.Gatherer) *mux.Router {
	router := mux.NewRouter()
	addRoutes(router, m, []route{
		{"/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})},
		{"/buildinfo", http.HandlerFunc(buildHandler)},
	})
	return router
}

// AddRoute registers handler on the HTTP listener. It must be called
// before the server is started.
func (s *Server) AddRoute(pattern string, handler http.Handler) {
	addRoutes(s.HTTP, s.metrics, []route{{pattern, handler}})
}

func addRoutes(router *mux.Router, m *metrics, routes []route) {
	for _, r := range routes {
		router.Handle(r.pattern, trackMetrics(m, r.pattern)(r.handler)).Methods(http.MethodGet)
	}
}

func trackMetrics(m *metrics, route string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return promhttp.InstrumentHandlerCounter(m.httpRequests.MustCurryWith(prometheus.Labels{"route": route}), next)
	}
}
