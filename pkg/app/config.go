package app

import (
	"flag"

	"github.com/grafana/dskit/flagext"

	"github.com/grafana/retrace/pkg/server"
	"github.com/grafana/retrace/pkg/source"
	"github.com/grafana/retrace/pkg/tablecache"
	"github.com/grafana/retrace/pkg/util"
)

type Config struct {
	Server server.Config     `yaml:"server"`
	Cache  tablecache.Config `yaml:"cache"`
	Source source.Config     `yaml:"source"`
	Log    util.LogConfig    `yaml:"log"`

	Verbose         bool   `yaml:"-"`
	ConfigFile      string `yaml:"-"`
	ConfigExpandEnv bool   `yaml:"-"`
	ShowVersion     bool   `yaml:"-"`
}

func (c *Config) RegisterFlags(f *flag.FlagSet) {
	f.StringVar(&c.ConfigFile, "config.file", "", "yaml file to load")
	f.BoolVar(&c.ConfigExpandEnv, "config.expand-env", false, "Expands ${var} in config according to the values of the environment variables.")
	f.BoolVar(&c.ShowVersion, "version", false, "Show the version of retrace and exit")
	f.BoolVar(&c.Verbose, "v", false, "Log every request and response. Implies -log.level=debug.")

	c.Server.RegisterFlags(f)
	f.IntVar(&c.Server.Port, "p", c.Server.Port, "Alias for -server.port.")
	c.Cache.RegisterFlags(f)
	c.Source.RegisterFlags(f)
	c.Log.RegisterFlags(f)
}

func (c *Config) Clone() flagext.Registerer {
	return func(c Config) *Config {
		return &c
	}(*c)
}

// ApplyVerbose turns on request logging at debug level when -v is set.
func (c *Config) ApplyVerbose() {
	if !c.Verbose {
		return
	}
	c.Log.Level = "debug"
	c.Server.LogRequests = true
}

func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	if err := c.Source.Validate(); err != nil {
		return err
	}
	return c.Log.Validate()
}
