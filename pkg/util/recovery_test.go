package util

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecoverPanic(t *testing.T) {
	before := testutil.ToFloat64(panicTotal)

	err := RecoverPanic(func() error {
		var m map[string]int
		m["boom"]++
		return nil
	})()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil map")
	assert.Equal(t, before+1, testutil.ToFloat64(panicTotal))

	expected := errors.New("plain failure")
	assert.Equal(t, expected, RecoverPanic(func() error { return expected })())
	assert.Equal(t, before+1, testutil.ToFloat64(panicTotal))
}
