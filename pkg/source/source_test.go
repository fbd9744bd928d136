package source

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thanos-io/objstore"
)

const (
	testPattern = "aerofs-{version}-public.map"
	testTable   = "com.foo.Bar -> a:\n    void doWork():10:20 -> b\n"
)

func readString(t *testing.T, rc io.ReadCloser) string {
	t.Helper()
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}

func TestFSSource(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "aerofs-1.2.3-public.map", []byte(testTable), 0o644))
	require.NoError(t, fs.Mkdir("aerofs-dir-public.map", 0o755))
	src := NewFSSource(fs, testPattern)

	rc, err := src.Open(context.Background(), "1.2.3")
	require.NoError(t, err)
	assert.Equal(t, testTable, readString(t, rc))

	_, err = src.Open(context.Background(), "9.9.9")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "aerofs-9.9.9-public.map")

	_, err = src.Open(context.Background(), "dir")
	assert.True(t, IsNotFound(err))
}

func TestBucketSource(t *testing.T) {
	bkt := objstore.NewInMemBucket()
	require.NoError(t, bkt.Upload(context.Background(), "aerofs-1.2.3-public.map", strings.NewReader(testTable)))
	src := NewBucketSource(bkt, testPattern)

	rc, err := src.Open(context.Background(), "1.2.3")
	require.NoError(t, err)
	assert.Equal(t, testTable, readString(t, rc))

	_, err = src.Open(context.Background(), "9.9.9")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestNew(t *testing.T) {
	dir := t.TempDir()
	for _, backend := range []string{BackendFilesystem, BackendBucket} {
		t.Run(backend, func(t *testing.T) {
			src, err := New(Config{Backend: backend, Dir: dir, Pattern: testPattern})
			require.NoError(t, err)
			_, err = src.Open(context.Background(), "missing")
			assert.True(t, IsNotFound(err), "%v", err)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	for _, tc := range []struct {
		name  string
		cfg   Config
		valid bool
	}{
		{name: "valid", cfg: Config{Backend: BackendFilesystem, Dir: "/maps", Pattern: testPattern}, valid: true},
		{name: "unknown backend", cfg: Config{Backend: "s3", Dir: "/maps", Pattern: testPattern}},
		{name: "empty dir", cfg: Config{Backend: BackendBucket, Pattern: testPattern}},
		{name: "no placeholder", cfg: Config{Backend: BackendFilesystem, Dir: "/maps", Pattern: "mapping.txt"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.valid {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
	assert.Equal(t, "v/1.0/mapping.txt", (&Config{Pattern: "v/{version}/mapping.txt"}).Name("1.0"))
}

func TestDecompress(t *testing.T) {
	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	_, err := gw.Write([]byte(testTable))
	require.NoError(t, err)
	require.NoError(t, gw.Close())

	var zs bytes.Buffer
	zw, err := zstd.NewWriter(&zs)
	require.NoError(t, err)
	_, err = zw.Write([]byte(testTable))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	for _, tc := range []struct {
		name string
		data []byte
	}{
		{name: "plain", data: []byte(testTable)},
		{name: "gzip", data: gz.Bytes()},
		{name: "zstd", data: zs.Bytes()},
		{name: "empty", data: nil},
		{name: "short", data: []byte("x")},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rc, err := Decompress(io.NopCloser(bytes.NewReader(tc.data)))
			require.NoError(t, err)
			expected := testTable
			if tc.name == "empty" {
				expected = ""
			} else if tc.name == "short" {
				expected = "x"
			}
			assert.Equal(t, expected, readString(t, rc))
		})
	}
}

func TestDecompress_Corrupt(t *testing.T) {
	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	_, err := gw.Write([]byte(strings.Repeat(testTable, 100)))
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	data := gz.Bytes()[:gz.Len()/2]

	rc, err := Decompress(io.NopCloser(bytes.NewReader(data)))
	if err == nil {
		_, err = io.ReadAll(rc)
		_ = rc.Close()
	}
	var compressionErr *CompressionError
	require.ErrorAs(t, err, &compressionErr)
}

type closeRecorder struct {
	io.Reader
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func TestDecompress_ClosesSource(t *testing.T) {
	rec := &closeRecorder{Reader: strings.NewReader(testTable)}
	rc, err := Decompress(rec)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.True(t, rec.closed)
}
