// Package source locates the mapping table of an application version.
package source

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/thanos-io/objstore/providers/filesystem"
)

const (
	BackendFilesystem = "filesystem"
	BackendBucket     = "bucket"

	// VersionPlaceholder is replaced by the version in Config.Pattern.
	VersionPlaceholder = "{version}"
)

// ErrNotFound is returned when no mapping table exists for a version.
var ErrNotFound = errors.New("mapping table not found")

// IsNotFound reports whether err means that the mapping table does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Source opens the mapping table of a version. The caller closes the
// returned reader.
type Source interface {
	Open(ctx context.Context, version string) (io.ReadCloser, error)
}

type Config struct {
	Backend string `yaml:"backend"`
	Dir     string `yaml:"dir"`
	Pattern string `yaml:"pattern"`
}

func (cfg *Config) RegisterFlags(f *flag.FlagSet) {
	f.StringVar(&cfg.Backend, "source.backend", BackendFilesystem, "Where mapping tables are read from. Valid backends: [filesystem, bucket]")
	f.StringVar(&cfg.Dir, "source.dir", "/maps", "Directory holding the mapping tables. Used as the bucket root with the bucket backend.")
	f.StringVar(&cfg.Pattern, "source.pattern", "aerofs-"+VersionPlaceholder+"-public.map", "Name of a mapping table relative to the directory. "+VersionPlaceholder+" is replaced by the requested version.")
}

func (cfg *Config) Validate() error {
	switch cfg.Backend {
	case BackendFilesystem, BackendBucket:
	default:
		return fmt.Errorf("invalid source backend %q", cfg.Backend)
	}
	if cfg.Dir == "" {
		return errors.New("source directory must not be empty")
	}
	if !strings.Contains(cfg.Pattern, VersionPlaceholder) {
		return fmt.Errorf("source pattern %q must contain %s", cfg.Pattern, VersionPlaceholder)
	}
	return nil
}

// Name returns the file or object name of the mapping table of version.
func (cfg *Config) Name(version string) string {
	return strings.ReplaceAll(cfg.Pattern, VersionPlaceholder, version)
}

// New creates the Source selected by cfg.
func New(cfg Config) (Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case BackendBucket:
		bkt, err := filesystem.NewBucket(cfg.Dir)
		if err != nil {
			return nil, errors.Wrap(err, "create mapping bucket")
		}
		return NewBucketSource(bkt, cfg.Pattern), nil
	default:
		return NewFSSource(afero.NewBasePathFs(afero.NewOsFs(), cfg.Dir), cfg.Pattern), nil
	}
}
