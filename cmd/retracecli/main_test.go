package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/grafana/dskit/services"
	"github.com/klauspost/compress/gzip"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/grafana/retrace/pkg/retrace"
	"github.com/grafana/retrace/pkg/server"
	"github.com/grafana/retrace/pkg/symtab"
)

const testTable = "com.foo.Bar -> a:\n    int count -> c\n    void doWork():10:20 -> b\ncom.foo.Baz -> d:\n"

func writeTable(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestResolve(t *testing.T) {
	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	_, err := gw.Write([]byte(testTable))
	require.NoError(t, err)
	require.NoError(t, gw.Close())

	for _, file := range []string{
		writeTable(t, "plain.map", []byte(testTable)),
		writeTable(t, "compressed.map.gz", gz.Bytes()),
	} {
		var out bytes.Buffer
		ctx := withOutput(context.Background(), &out)
		require.NoError(t, resolve(ctx, &resolveParams{file: file, class: "a", method: "b", line: 15}))
		require.NoError(t, resolve(ctx, &resolveParams{file: file, class: "d", line: symtab.NoLine}))
		assert.Equal(t, "OK: com.foo.Bar doWork\nOK: com.foo.Baz \n", out.String())
	}

	err = resolve(context.Background(), &resolveParams{file: writeTable(t, "bad.map", []byte("garbage\n")), class: "a", line: symtab.NoLine})
	require.Error(t, err)
}

func TestResolve_Candidates(t *testing.T) {
	file := writeTable(t, "candidates.map", []byte("com.foo.Bar -> a:\n    void doWork():10:20 -> b\n    void helper() -> b\n"))
	var out bytes.Buffer
	ctx := withOutput(context.Background(), &out)
	require.NoError(t, resolve(ctx, &resolveParams{file: file, class: "a", method: "b", line: 25, candidates: true}))

	lines := strings.Split(out.String(), "\n")
	assert.Equal(t, "OK: com.foo.Bar helper", lines[0])
	rows := map[string]string{}
	for _, l := range lines[1:] {
		for _, name := range []string{"doWork", "helper"} {
			if strings.Contains(l, name) {
				rows[name] = l
			}
		}
	}
	require.Len(t, rows, 2)
	assert.Contains(t, rows["doWork"], "false")
	assert.Contains(t, rows["helper"], "true")
}

func TestInspect(t *testing.T) {
	first := writeTable(t, "first.map", []byte(testTable))
	second := writeTable(t, "second.map", []byte(testTable))

	var out bytes.Buffer
	require.NoError(t, inspect(withOutput(context.Background(), &out), []string{first, second}))
	assert.Contains(t, out.String(), "CLASSES")
	assert.Contains(t, out.String(), "TOTAL")
	var rows int
	for _, l := range strings.Split(out.String(), "\n") {
		if strings.Contains(l, ".map") {
			rows++
		}
	}
	assert.Equal(t, 2, rows)
}

type handlerFunc func(ctx context.Context, q retrace.Query) (symtab.Result, error)

func (f handlerFunc) Handle(ctx context.Context, q retrace.Query) (symtab.Result, error) {
	return f(ctx, q)
}

func TestQuery(t *testing.T) {
	reg := prometheus.NewRegistry()
	s, err := server.New(server.Config{Host: "127.0.0.1", MaxLineLength: 1024}, log.NewNopLogger(), handlerFunc(func(_ context.Context, q retrace.Query) (symtab.Result, error) {
		return symtab.Result{ClassName: strings.ToUpper(q.Class), MethodNames: []string{q.Method}}, nil
	}), reg, reg)
	require.NoError(t, err)
	require.NoError(t, services.StartAndAwaitRunning(context.Background(), s))
	defer func() {
		require.NoError(t, services.StopAndAwaitTerminated(context.Background(), s))
	}()

	var out bytes.Buffer
	ctx := withOutput(context.Background(), &out)
	params := &queryParams{addr: s.Addr().String(), timeout: 10 * time.Second, request: []string{"1.0", "abc", "m", "3"}}
	require.NoError(t, query(ctx, params, strings.NewReader("")))
	assert.Equal(t, "OK: ABC m\n", out.String())

	out.Reset()
	params.request = nil
	require.NoError(t, query(ctx, params, strings.NewReader("1.0 x y\n\n1.0\n")))
	assert.Equal(t, "OK: X y\nERROR: malformed request: expected <version> <class> [<method> [<line>]], got 1 tokens\n", out.String())
}

func TestReady(t *testing.T) {
	status := atomic.NewInt64(http.StatusServiceUnavailable)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ready", r.URL.Path)
		http.Error(w, "not yet", int(status.Load()))
	}))
	defer srv.Close()

	assert.Equal(t, errNotReady, ready(context.Background(), &readyParams{url: srv.URL + "/"}))
	status.Store(http.StatusOK)
	assert.NoError(t, ready(context.Background(), &readyParams{url: srv.URL}))
}
