// Package server exposes the resolution service over a newline framed TCP
// protocol. Each connection is served by its own goroutine and its
// requests are answered in order.
package server

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/gorilla/mux"
	"github.com/grafana/dskit/services"
	"github.com/hashicorp/go-multierror"
	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/grafana/retrace/pkg/retrace"
	"github.com/grafana/retrace/pkg/symtab"
	"github.com/grafana/retrace/pkg/util"
)

const httpShutdownTimeout = 5 * time.Second

// Handler resolves parsed requests.
type Handler interface {
	Handle(ctx context.Context, q retrace.Query) (symtab.Result, error)
}

type Server struct {
	services.Service

	// HTTP is the router of the HTTP listener. Routes may be added until
	// the server is started.
	HTTP *mux.Router

	cfg     Config
	logger  log.Logger
	handler Handler
	metrics *metrics

	listener     net.Listener
	httpServer   *http.Server
	httpListener net.Listener

	connsMu sync.Mutex
	conns   map[net.Conn]struct{}
	connsWg sync.WaitGroup

	openConns atomic.Int64
}

func New(cfg Config, logger log.Logger, handler Handler, reg prometheus.Registerer, gatherer prometheus.Gatherer) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Server{
		cfg:     cfg,
		logger:  logger,
		handler: handler,
		metrics: newMetrics(reg),
		conns:   make(map[net.Conn]struct{}),
	}
	s.HTTP = newRouter(s.metrics, gatherer)
	s.Service = services.NewBasicService(s.starting, s.running, s.stopping)
	return s, nil
}

// Addr returns the address of the resolution listener once the server is
// running.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// HTTPAddr returns the address of the HTTP listener, or nil if it is
// disabled.
func (s *Server) HTTPAddr() net.Addr {
	if s.httpListener == nil {
		return nil
	}
	return s.httpListener.Addr()
}

// OpenConnections returns the number of connected clients.
func (s *Server) OpenConnections() int64 {
	return s.openConns.Load()
}

func (s *Server) starting(_ context.Context) error {
	var err error
	if s.listener, err = net.Listen("tcp", s.cfg.Addr()); err != nil {
		return err
	}
	level.Info(s.logger).Log("msg", "resolution server listening", "addr", s.listener.Addr())

	if s.cfg.HTTPListenAddress == "" {
		return nil
	}
	if s.httpListener, err = net.Listen("tcp", s.cfg.HTTPListenAddress); err != nil {
		_ = s.listener.Close()
		return err
	}
	s.httpServer = &http.Server{
		Handler:           s.HTTP,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}
	level.Info(s.logger).Log("msg", "http server listening", "addr", s.httpListener.Addr())
	return nil
}

func (s *Server) running(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.serve(ctx)
	})
	if s.httpServer != nil {
		g.Go(func() error {
			if err := s.httpServer.Serve(s.httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		return s.closeListeners()
	})
	return g.Wait()
}

func (s *Server) stopping(_ error) error {
	s.connsMu.Lock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.connsMu.Unlock()
	s.connsWg.Wait()
	level.Info(s.logger).Log("msg", "resolution server stopped")
	return nil
}

func (s *Server) closeListeners() error {
	var errs error
	if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		errs = multierror.Append(errs, err)
	}
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs
}

func (s *Server) serve(ctx context.Context) error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		s.track(conn)
		go s.handleConn(ctx, conn)
	}
}

func (s *Server) track(conn net.Conn) {
	s.connsMu.Lock()
	s.conns[conn] = struct{}{}
	s.connsMu.Unlock()
	s.connsWg.Add(1)
	s.openConns.Inc()
	s.metrics.connections.Inc()
	s.metrics.openConnections.Inc()
}

func (s *Server) untrack(conn net.Conn) {
	s.connsMu.Lock()
	delete(s.conns, conn)
	s.connsMu.Unlock()
	s.openConns.Dec()
	s.metrics.openConnections.Dec()
	s.connsWg.Done()
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer s.untrack(conn)
	defer conn.Close()

	logger := util.LoggerWithConnID(ulid.Make().String(), conn.RemoteAddr().String(), s.logger)
	level.Debug(logger).Log("msg", "client connected")
	defer level.Debug(logger).Log("msg", "client disconnected")

	// Room for the line terminator, so that a line of exactly
	// MaxLineLength bytes is accepted.
	bufSize := s.cfg.MaxLineLength + 2
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, bufSize), bufSize)
	w := bufio.NewWriter(conn)

	for scanner.Scan() {
		line := scanner.Text()
		if len(line) > s.cfg.MaxLineLength {
			s.rejectLongLine(logger, w)
			return
		}
		resp := s.respond(ctx, logger, line)
		if _, err := w.WriteString(resp + "\n"); err != nil {
			return
		}
		if err := w.Flush(); err != nil {
			level.Debug(logger).Log("msg", "failed to write response", "err", err)
			return
		}
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			s.rejectLongLine(logger, w)
			return
		}
		if ctx.Err() == nil {
			level.Debug(logger).Log("msg", "failed to read request", "err", err)
		}
	}
}

func (s *Server) rejectLongLine(logger log.Logger, w *bufio.Writer) {
	level.Warn(logger).Log("msg", "closing connection", "err", errLineTooLong, "limit", s.cfg.MaxLineLength)
	s.metrics.linesTooLong.Inc()
	_, _ = w.WriteString(errorPrefix + errLineTooLong + "\n")
	_ = w.Flush()
}

func (s *Server) respond(ctx context.Context, logger log.Logger, line string) string {
	var res symtab.Result
	err := util.RecoverPanic(func() error {
		q, err := ParseRequest(line)
		if err != nil {
			return err
		}
		res, err = s.handler.Handle(ctx, q)
		return err
	})()

	var resp string
	if err != nil {
		resp = FormatError(err)
		level.Warn(logger).Log("msg", "request failed", "request", line, "err", err)
	} else {
		resp = FormatResult(res)
	}
	if s.cfg.LogRequests {
		level.Debug(logger).Log("C", line, "S", resp)
	}
	return resp
}
