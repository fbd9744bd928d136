package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRun_ExitsEarly(t *testing.T) {
	for name, tc := range map[string]struct {
		arguments     []string
		code          int
		stdoutMessage string
		stderrMessage string
	}{
		"version": {
			arguments:     []string{"-version"},
			stdoutMessage: "retrace, version",
		},
		"help": {
			arguments:     []string{"-h"},
			stderrMessage: "-server.max-line-length",
		},
		"unknown flag": {
			arguments:     []string{"-no-such-flag"},
			code:          2,
			stderrMessage: "failed parsing config",
		},
		"invalid config": {
			arguments:     []string{"-cache.size", "0"},
			code:          1,
			stderrMessage: "invalid cache size 0",
		},
		"invalid source": {
			arguments:     []string{"-source.pattern", "mapping.txt"},
			code:          1,
			stderrMessage: "must contain {version}",
		},
	} {
		t.Run(name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := run(tc.arguments, &stdout, &stderr)
			assert.Equal(t, tc.code, code, stderr.String())
			assert.Contains(t, stdout.String(), tc.stdoutMessage)
			assert.Contains(t, stderr.String(), tc.stderrMessage)
		})
	}
}
