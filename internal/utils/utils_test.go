package utils

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"":        slog.LevelInfo,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for name, want := range cases {
		got, ok := ParseLevel(name)
		assert.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}
	got, ok := ParseLevel("verbose")
	assert.False(t, ok)
	assert.Equal(t, slog.LevelInfo, got)
}

func TestNewLoggerWritesToGivenWriter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn", true)
	logger.Info("hidden")
	logger.Warn("shown", slog.String("metric", "cpu"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"metric":"cpu"`)
}

func TestAppError(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("evaluate: %w", NewAppError("accessor.New", "row 2", cause))

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "accessor.New", ErrorOp(err))
	assert.True(t, strings.HasSuffix(err.Error(), "accessor.New: row 2: boom"))
	assert.Equal(t, "", ErrorOp(cause))

	assert.Equal(t, "op: detail", NewAppError("op", "detail", nil).Error())
	assert.Equal(t, "op: boom", NewAppError("op", "", cause).Error())
}
