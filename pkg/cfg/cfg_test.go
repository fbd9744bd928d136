package cfg

import (
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/grafana/dskit/flagext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Name  string `yaml:"name"`
	Count int    `yaml:"count"`

	ConfigFile      string `yaml:"-"`
	ConfigExpandEnv bool   `yaml:"-"`
}

func (c *testConfig) RegisterFlags(f *flag.FlagSet) {
	f.StringVar(&c.Name, "name", "default", "")
	f.IntVar(&c.Count, "count", 1, "")
	f.StringVar(&c.ConfigFile, ConfigFileFlag, "", "")
	f.BoolVar(&c.ConfigExpandEnv, ConfigExpandEnvFlag, false, "")
}

func (c *testConfig) Clone() flagext.Registerer {
	return func(c testConfig) *testConfig {
		return &c
	}(*c)
}

func load(t *testing.T, args ...string) (*testConfig, error) {
	t.Helper()
	var c testConfig
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return &c, Load(&c, args, fs)
}

func writeFile(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestLoad_Precedence(t *testing.T) {
	c, err := load(t)
	require.NoError(t, err)
	assert.Equal(t, testConfig{Name: "default", Count: 1}, *c)

	path := writeFile(t, "name: file\ncount: 3\n")
	c, err = load(t, "-config.file", path)
	require.NoError(t, err)
	assert.Equal(t, "file", c.Name)
	assert.Equal(t, 3, c.Count)

	c, err = load(t, "-config.file", path, "-count", "7")
	require.NoError(t, err)
	assert.Equal(t, "file", c.Name)
	assert.Equal(t, 7, c.Count)
}

func TestLoad_ExpandEnv(t *testing.T) {
	t.Setenv("CFG_TEST_NAME", "from-env")
	path := writeFile(t, "name: ${CFG_TEST_NAME}\n")

	c, err := load(t, "-config.file", path, "-config.expand-env")
	require.NoError(t, err)
	assert.Equal(t, "from-env", c.Name)

	c, err = load(t, "-config.file", path)
	require.NoError(t, err)
	assert.Equal(t, "${CFG_TEST_NAME}", c.Name)
}

func TestLoad_Errors(t *testing.T) {
	_, err := load(t, "-config.file", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = load(t, "-config.file", writeFile(t, "unknown: 1\n"))
	require.Error(t, err)

	_, err = load(t, "-config.file", writeFile(t, "count: [\n"))
	require.Error(t, err)

	_, err = load(t, "-no-such-flag")
	require.Error(t, err)

	c, err := load(t, "-config.file", writeFile(t, ""))
	require.NoError(t, err)
	assert.Equal(t, "default", c.Name)
}
