package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestLevelFromString(t *testing.T) {
	t.Parallel()

	cases := map[string]zapcore.Level{
		"error":   zapcore.ErrorLevel,
		" WARN ":  zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"info":    zapcore.InfoLevel,
		"debug":   zapcore.DebugLevel,
		"":        zapcore.DebugLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, levelFromString(in), "input %q", in)
	}
}

func TestNewRespectsLevel(t *testing.T) {
	t.Parallel()

	logger := New("warn", "json")
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.ErrorLevel))
}
