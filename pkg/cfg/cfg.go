// Package cfg loads configuration from defaults, an optional YAML file and
// command line flags, in that order of precedence.
package cfg

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/drone/envsubst"
	"github.com/grafana/dskit/flagext"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	ConfigFileFlag      = "config.file"
	ConfigExpandEnvFlag = "config.expand-env"
)

// Cloneable is a configuration that can register its flags on a copy of
// itself, leaving the original untouched.
type Cloneable interface {
	flagext.Registerer
	Clone() flagext.Registerer
}

// Source applies one layer of configuration to dst.
type Source func(dst Cloneable) error

// Unmarshal applies sources to dst in order, later sources overriding
// earlier ones.
func Unmarshal(dst Cloneable, sources ...Source) error {
	for _, source := range sources {
		if err := source(dst); err != nil {
			return err
		}
	}
	return nil
}

// Load fills dst with flag defaults, then the file named by -config.file,
// then the flags present in args.
func Load(dst Cloneable, args []string, fs *flag.FlagSet) error {
	return Unmarshal(dst,
		Defaults(fs),
		YAMLFlag(args, ConfigFileFlag),
		Flags(args, fs),
	)
}

// Defaults registers the flags of dst on fs, which sets every field to its
// default value.
func Defaults(fs *flag.FlagSet) Source {
	return func(dst Cloneable) error {
		dst.RegisterFlags(fs)
		return nil
	}
}

// Flags parses args into the flags previously registered on fs.
func Flags(args []string, fs *flag.FlagSet) Source {
	return func(dst Cloneable) error {
		return fs.Parse(args)
	}
}

// YAMLFlag reads the file named by the flag name in args, if any. The
// environment is expanded into the file when -config.expand-env is set.
func YAMLFlag(args []string, name string) Source {
	return func(dst Cloneable) error {
		freshFlags := flag.NewFlagSet("config-file-loader", flag.ContinueOnError)
		freshFlags.SetOutput(io.Discard)
		dst.Clone().RegisterFlags(freshFlags)
		// Errors are reported by the final flag parse.
		_ = freshFlags.Parse(args)

		file := freshFlags.Lookup(name)
		if file == nil || file.Value.String() == "" {
			return nil
		}
		expandEnv := false
		if f := freshFlags.Lookup(ConfigExpandEnvFlag); f != nil {
			expandEnv = f.Value.String() == "true"
		}
		return YAML(file.Value.String(), expandEnv)(dst)
	}
}

// YAML reads the file at path into dst. Unknown fields are rejected.
func YAML(path string, expandEnv bool) Source {
	return func(dst Cloneable) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrap(err, "read config file")
		}
		return dYAML(data, expandEnv)(dst)
	}
}

func dYAML(data []byte, expandEnv bool) Source {
	return func(dst Cloneable) error {
		if expandEnv {
			s, err := envsubst.EvalEnv(string(data))
			if err != nil {
				return errors.Wrap(err, "expand environment in config file")
			}
			data = []byte(s)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("parse config file: %w", err)
		}
		return nil
	}
}
