package util

import (
	"flag"
	"fmt"
	"io"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (cfg *LogConfig) RegisterFlags(f *flag.FlagSet) {
	f.StringVar(&cfg.Level, "log.level", "info", "Only log messages with the given severity or above. Valid levels: [debug, info, warn, error]")
	f.StringVar(&cfg.Format, "log.format", "logfmt", "Output log messages in the given format. Valid formats: [logfmt, json]")
}

func (cfg *LogConfig) Validate() error {
	switch cfg.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", cfg.Level)
	}
	switch cfg.Format {
	case "logfmt", "json":
	default:
		return fmt.Errorf("invalid log format %q", cfg.Format)
	}
	return nil
}

// NewLogger creates a leveled logger writing to w.
func NewLogger(cfg LogConfig, w io.Writer) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(w))
	if cfg.Format == "json" {
		logger = log.NewJSONLogger(log.NewSyncWriter(w))
	}
	logger = level.NewFilter(logger, LevelFilter(cfg.Level))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)
	return logger
}

func LevelFilter(l string) level.Option {
	switch l {
	case "debug":
		return level.AllowDebug()
	case "info":
		return level.AllowInfo()
	case "warn":
		return level.AllowWarn()
	case "error":
		return level.AllowError()
	default:
		return level.AllowAll()
	}
}

// LoggerWithConnID returns a Logger that has information about the client
// connection in its details.
func LoggerWithConnID(connID, remote string, l log.Logger) log.Logger {
	return log.With(l, "conn", connID, "remote", remote)
}
