package util

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriteTextResponse(t *testing.T) {
	w := httptest.NewRecorder()

	WriteTextResponse(w, "hello world")

	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "hello world", w.Body.String())
	assert.Equal(t, "text/plain", w.Header().Get("Content-Type"))
}

func TestWriteJSONResponse(t *testing.T) {
	w := httptest.NewRecorder()

	WriteJSONResponse(w, map[string][]string{"versions": {"1.0", "1.1"}})

	assert.Equal(t, 200, w.Code)
	assert.JSONEq(t, `{"versions":["1.0","1.1"]}`, w.Body.String())
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}

func TestWriteYAMLResponse(t *testing.T) {
	w := httptest.NewRecorder()

	WriteYAMLResponse(w, struct {
		Size int `yaml:"size"`
	}{Size: 100})

	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "size: 100\n", w.Body.String())
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
}
