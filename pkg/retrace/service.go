package retrace

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/grafana/regexp"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/grafana/retrace/pkg/mapping"
	"github.com/grafana/retrace/pkg/source"
	"github.com/grafana/retrace/pkg/symtab"
	"github.com/grafana/retrace/pkg/tablecache"
	"github.com/grafana/retrace/pkg/util"
)

// Versions name a file inside the mapping directory, so path separators
// are not allowed.
var validVersion = regexp.MustCompile(`^[a-zA-Z0-9._+-]+$`)

// Query is a single resolution request. Method is empty when only the
// class is to be resolved; Line is symtab.NoLine when unknown.
type Query struct {
	Version string
	Class   string
	Method  string
	Line    int
}

// Service resolves obfuscated names using the mapping table of the
// requested version, loading tables into the cache on demand.
type Service struct {
	logger  log.Logger
	source  source.Source
	cache   *tablecache.Cache
	metrics *metrics
}

func NewService(logger log.Logger, src source.Source, cache *tablecache.Cache, reg prometheus.Registerer) *Service {
	return &Service{
		logger:  logger,
		source:  src,
		cache:   cache,
		metrics: newMetrics(reg),
	}
}

// Handle resolves q. Failures are returned as *Error; names missing from
// the mapping table are not failures and come back unchanged.
func (s *Service) Handle(ctx context.Context, q Query) (symtab.Result, error) {
	start := time.Now()
	res, err := s.handle(ctx, q)
	outcome := "ok"
	if err != nil {
		outcome = KindOf(err).String()
	}
	s.metrics.requests.WithLabelValues(outcome).Inc()
	s.metrics.duration.Observe(time.Since(start).Seconds())
	return res, err
}

func (s *Service) handle(ctx context.Context, q Query) (symtab.Result, error) {
	if err := validate(q); err != nil {
		return symtab.Result{}, err
	}
	table, err := s.cache.GetOrCreate(ctx, q.Version, s.load)
	if err != nil {
		kind := classify(err)
		level.Warn(s.logger).Log("msg", "failed to load mapping table", "version", q.Version, "kind", kind, "err", err)
		return symtab.Result{}, &Error{Kind: kind, Version: q.Version, Err: err}
	}
	return table.Resolve(q.Class, q.Method, q.Line), nil
}

func validate(q Query) error {
	if !validVersion.MatchString(q.Version) {
		return Malformed("invalid version %q", q.Version)
	}
	if q.Class == "" {
		return Malformed("missing class name")
	}
	return nil
}

func (s *Service) load(ctx context.Context, version string) (*symtab.Table, error) {
	start := time.Now()
	rc, err := s.source.Open(ctx, version)
	if err != nil {
		return nil, err
	}
	r, err := source.Decompress(rc)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	t, err := symtab.BuildFromReader(r)
	if err != nil {
		return nil, err
	}
	stats := t.Stats()
	level.Info(s.logger).Log(
		"msg", "loaded mapping table",
		"version", version,
		"classes", stats.Classes,
		"methods", stats.Methods,
		"bytes", stats.SourceBytes,
		"checksum", fmt.Sprintf("%016x", stats.Checksum),
		"duration", time.Since(start),
	)
	s.metrics.tableBytes.Observe(float64(stats.SourceBytes))
	return t, nil
}

func classify(err error) ErrorKind {
	var (
		syntaxErr      *mapping.SyntaxError
		compressionErr *source.CompressionError
	)
	switch {
	case errors.As(err, &syntaxErr), errors.As(err, &compressionErr):
		return KindMappingCorrupt
	default:
		// Missing and unreadable sources alike.
		return KindMappingUnavailable
	}
}

type metrics struct {
	requests   *prometheus.CounterVec
	duration   prometheus.Histogram
	tableBytes prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) *metrics {
	return &metrics{
		requests: util.RegisterOrGet(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "retrace_requests_total",
			Help: "Total number of resolution requests by outcome.",
		}, []string{"outcome"})),
		duration: util.RegisterOrGet(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "retrace_request_duration_seconds",
			Help:    "Time spent handling resolution requests, including mapping table loads.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		})),
		tableBytes: util.RegisterOrGet(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "retrace_mapping_table_size_bytes",
			Help: "Size of loaded mapping tables.",
			// 64KB to 1GB
			Buckets: prometheus.ExponentialBuckets(64*1024, 4, 8),
		})),
	}
}
