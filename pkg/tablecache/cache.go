// Package tablecache keeps a bounded number of built symbol tables in
// memory, keyed by application version.
//
// Entries are evicted in insertion order: once the cache is full, adding a
// version drops the version that was added first, no matter how often it
// has been read since. Reads never refresh an entry.
package tablecache

import (
	"context"
	"flag"
	"fmt"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"

	"github.com/grafana/retrace/pkg/symtab"
)

const (
	// BuildModeSerial holds one lock across lookups and builds: while a
	// table is being built, no other lookup can proceed.
	BuildModeSerial = "serial"
	// BuildModeSingleFlight builds different versions concurrently and
	// shares one build between concurrent misses of the same version.
	BuildModeSingleFlight = "single-flight"
)

type Config struct {
	Size      int    `yaml:"size"`
	BuildMode string `yaml:"build_mode" category:"experimental"`
}

func (cfg *Config) RegisterFlags(f *flag.FlagSet) {
	f.IntVar(&cfg.Size, "cache.size", 100, "Maximum number of mapping tables kept in memory.")
	f.StringVar(&cfg.BuildMode, "cache.build-mode", BuildModeSerial, "How cache misses are built. Valid modes: [serial, single-flight]. With serial, building a table blocks every other lookup.")
}

func (cfg *Config) Validate() error {
	if cfg.Size < 1 {
		return fmt.Errorf("invalid cache size %d, must be positive", cfg.Size)
	}
	switch cfg.BuildMode {
	case BuildModeSerial, BuildModeSingleFlight:
	default:
		return fmt.Errorf("invalid cache build mode %q", cfg.BuildMode)
	}
	return nil
}

// BuildFunc builds the table of a version on a cache miss.
type BuildFunc func(ctx context.Context, version string) (*symtab.Table, error)

type Cache struct {
	logger  log.Logger
	cfg     Config
	metrics *metrics

	mu      sync.Mutex
	entries *simplelru.LRU[string, *symtab.Table]
	group   singleflight.Group
}

func New(logger log.Logger, cfg Config, reg prometheus.Registerer) (*Cache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	entries, err := simplelru.NewLRU[string, *symtab.Table](cfg.Size, nil)
	if err != nil {
		return nil, err
	}
	return &Cache{
		logger:  logger,
		cfg:     cfg,
		metrics: newMetrics(reg),
		entries: entries,
	}, nil
}

// GetOrCreate returns the table of version, building it with build on a
// miss. A failed build leaves the cache untouched, so the next call
// retries.
func (c *Cache) GetOrCreate(ctx context.Context, version string, build BuildFunc) (*symtab.Table, error) {
	if c.cfg.BuildMode == BuildModeSingleFlight {
		return c.getOrCreateShared(ctx, version, build)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.entries.Peek(version); ok {
		c.metrics.lookups.WithLabelValues(resultHit).Inc()
		return t, nil
	}
	c.metrics.lookups.WithLabelValues(resultMiss).Inc()
	t, err := c.build(ctx, version, build)
	if err != nil {
		return nil, err
	}
	c.insert(version, t)
	return t, nil
}

func (c *Cache) getOrCreateShared(ctx context.Context, version string, build BuildFunc) (*symtab.Table, error) {
	if t, ok := c.peek(version); ok {
		c.metrics.lookups.WithLabelValues(resultHit).Inc()
		return t, nil
	}
	c.metrics.lookups.WithLabelValues(resultMiss).Inc()

	v, err, _ := c.group.Do(version, func() (interface{}, error) {
		// The previous flight may have completed after our lookup.
		if t, ok := c.peek(version); ok {
			return t, nil
		}
		// Shared by every waiter, so it must outlive the caller that started it.
		t, err := c.build(context.WithoutCancel(ctx), version, build)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.insert(version, t)
		c.mu.Unlock()
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*symtab.Table), nil
}

func (c *Cache) peek(version string) (*symtab.Table, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Peek(version)
}

func (c *Cache) build(ctx context.Context, version string, build BuildFunc) (*symtab.Table, error) {
	start := time.Now()
	t, err := build(ctx, version)
	status := statusSuccess
	if err != nil {
		status = statusError
	}
	c.metrics.buildDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	return t, err
}

// insert adds a new entry. c.mu must be held. Adding a key that is
// already present would move it to the back of the eviction queue, so
// existing entries are left alone.
func (c *Cache) insert(version string, t *symtab.Table) {
	if c.entries.Contains(version) {
		return
	}
	if oldest, _, ok := c.entries.GetOldest(); ok && c.entries.Len() >= c.cfg.Size {
		level.Debug(c.logger).Log("msg", "evicting mapping table", "version", oldest)
	}
	if evicted := c.entries.Add(version, t); evicted {
		c.metrics.evictions.Inc()
	}
	c.metrics.entries.Set(float64(c.entries.Len()))
}

// Len returns the number of resident tables.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

// Versions returns the resident versions, oldest first.
func (c *Cache) Versions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Keys()
}
