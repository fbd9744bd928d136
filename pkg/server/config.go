package server

import (
	"flag"
	"fmt"
	"net"
	"strconv"
)

type Config struct {
	Host              string `yaml:"host"`
	Port              int    `yaml:"port"`
	MaxLineLength     int    `yaml:"max_line_length"`
	HTTPListenAddress string `yaml:"http_listen_address"`
	LogRequests       bool   `yaml:"log_requests"`
}

func (cfg *Config) RegisterFlags(f *flag.FlagSet) {
	f.StringVar(&cfg.Host, "server.host", "127.0.0.1", "Address the resolution server listens on.")
	f.IntVar(&cfg.Port, "server.port", 50123, "Port the resolution server listens on.")
	f.IntVar(&cfg.MaxLineLength, "server.max-line-length", 1024, "Maximum length of a request line in bytes, excluding the line terminator. Clients sending longer lines are disconnected.")
	f.StringVar(&cfg.HTTPListenAddress, "server.http-listen-address", "127.0.0.1:50124", "Address serving /metrics and /ready. Empty disables the HTTP listener.")
	f.BoolVar(&cfg.LogRequests, "server.log-requests", false, "Log every request and response at debug level.")
}

func (cfg *Config) Validate() error {
	if cfg.Port < 0 || cfg.Port > 65535 {
		return fmt.Errorf("invalid server port %d", cfg.Port)
	}
	if cfg.MaxLineLength < 1 {
		return fmt.Errorf("invalid max line length %d, must be positive", cfg.MaxLineLength)
	}
	return nil
}

// Addr is the address of the resolution listener.
func (cfg *Config) Addr() string {
	return net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
}
