// Package app wires the mapping source, the table cache, the resolution
// service and the server into a runnable process.
package app

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/grafana/dskit/services"
	"github.com/prometheus/client_golang/prometheus"
	versioncollector "github.com/prometheus/client_golang/prometheus/collectors/version"
	"github.com/prometheus/common/version"

	"github.com/grafana/retrace/pkg/retrace"
	"github.com/grafana/retrace/pkg/server"
	"github.com/grafana/retrace/pkg/source"
	"github.com/grafana/retrace/pkg/tablecache"
	"github.com/grafana/retrace/pkg/util"
)

type Retrace struct {
	Cfg    Config
	logger log.Logger
	reg    prometheus.Registerer

	Cache   *tablecache.Cache
	Service *retrace.Service
	Server  *server.Server
}

func New(cfg Config) (*Retrace, error) {
	return newRetrace(cfg, os.Stderr, prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}

func newRetrace(cfg Config, logOutput io.Writer, reg prometheus.Registerer, gatherer prometheus.Gatherer) (*Retrace, error) {
	cfg.ApplyVerbose()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := util.NewLogger(cfg.Log, logOutput)
	util.Register(reg, versioncollector.NewCollector("retrace"))

	src, err := source.New(cfg.Source)
	if err != nil {
		return nil, err
	}
	cache, err := tablecache.New(log.With(logger, "component", "cache"), cfg.Cache, reg)
	if err != nil {
		return nil, err
	}
	svc := retrace.NewService(logger, src, cache, reg)
	srv, err := server.New(cfg.Server, log.With(logger, "component", "server"), svc, reg, gatherer)
	if err != nil {
		return nil, err
	}

	return &Retrace{
		Cfg:     cfg,
		logger:  logger,
		reg:     reg,
		Cache:   cache,
		Service: svc,
		Server:  srv,
	}, nil
}

// Run serves until SIGINT or SIGTERM is received or the server fails.
func (r *Retrace) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return r.run(ctx)
}

func (r *Retrace) run(ctx context.Context) error {
	sm, err := services.NewManager(r.Server)
	if err != nil {
		return err
	}
	r.Server.AddRoute("/ready", server.ReadyHandler(sm))
	r.Server.AddRoute("/config", http.HandlerFunc(r.configHandler))
	r.Server.AddRoute("/cache", http.HandlerFunc(r.cacheHandler))

	healthy := func() {
		level.Info(r.logger).Log("msg", "retrace started", "version", version.Info(), "addr", r.Server.Addr())
	}
	serviceFailed := func(service services.Service) {
		// if any service fails, stop everything
		sm.StopAsync()
		level.Error(r.logger).Log("msg", "service failed", "err", service.FailureCase())
	}
	sm.AddListener(services.NewManagerListener(healthy, r.stopped, serviceFailed))

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			level.Info(r.logger).Log("msg", "received stop signal, shutting down")
			sm.StopAsync()
		case <-done:
		}
	}()

	// Start all services. This can really only fail if some service is already
	// in other state than New, which should not be the case.
	err = sm.StartAsync(context.Background())
	if err == nil {
		err = sm.AwaitStopped(context.Background())
	}
	if err == nil {
		if failed := sm.ServicesByState()[services.Failed]; len(failed) > 0 {
			// Details were reported via failure listener before
			err = errors.New("failed services")
		}
	}
	return err
}

func (r *Retrace) configHandler(w http.ResponseWriter, _ *http.Request) {
	util.WriteYAMLResponse(w, r.Cfg)
}

type cacheResponse struct {
	Size     int      `json:"size"`
	Versions []string `json:"versions"`
}

// cacheHandler lists the cached versions, oldest first.
func (r *Retrace) cacheHandler(w http.ResponseWriter, _ *http.Request) {
	util.WriteJSONResponse(w, cacheResponse{
		Size:     r.Cfg.Cache.Size,
		Versions: r.Cache.Versions(),
	})
}

func (r *Retrace) stopped() {
	level.Info(r.logger).Log("msg", "retrace stopped", "cached_tables", r.Cache.Len())
}
