package logging

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerWithPath(t *testing.T) {
	t.Run("LevelParsing", func(t *testing.T) {
		assert.Equal(t, zerolog.DebugLevel, NewLogger(Config{Level: "DEBUG"}).GetLevel())
		assert.Equal(t, zerolog.InfoLevel, NewLogger(Config{Level: "bogus"}).GetLevel())
		assert.Equal(t, zerolog.InfoLevel, NewLogger(Config{}).GetLevel())
	})

	t.Run("FileOutput", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "pricehound.log")
		result := NewLoggerWithPath(Config{Level: "info", Output: OutputFile, File: path})
		require.True(t, result.UsingFile)
		assert.False(t, result.FallbackUsed)

		result.Logger.Info().Msg("hello")
		require.NoError(t, result.Close())
		require.NoError(t, result.Close(), "close is idempotent")

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"message":"hello"`)
	})

	t.Run("FileFallback", func(t *testing.T) {
		result := NewLoggerWithPath(Config{Output: OutputFile})
		assert.False(t, result.UsingFile)
		assert.True(t, result.FallbackUsed)
		assert.NotEmpty(t, result.FallbackReason)
	})
}

func TestTraceID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, TraceIDFromContext(ctx))

	generated := GetOrGenerateTraceID(ctx)
	assert.Len(t, generated, 26)

	ctx = ContextWithTraceID(ctx, "trace-1")
	assert.Equal(t, "trace-1", GetOrGenerateTraceID(ctx))

	t.Run("HookAddsTraceID", func(t *testing.T) {
		var buf bytes.Buffer
		l := zerolog.New(&buf).Hook(TraceHook{})
		l.Info().Ctx(ctx).Msg("traced")
		assert.Contains(t, buf.String(), `"trace_id":"trace-1"`)
	})
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	l := ComponentLogger(zerolog.New(&buf), "engine")
	ctx := l.WithContext(context.Background())

	FromContext(ctx).Info().Msg("from ctx")
	assert.Contains(t, buf.String(), `"component":"engine"`)

	// No logger in context: must not panic.
	FromContext(context.Background()).Info().Msg("dropped")
}

func TestPrintMessages(t *testing.T) {
	var buf bytes.Buffer
	PrintLogPathMessage(&buf, "/tmp/x.log")
	PrintFallbackWarning(&buf, "denied")
	assert.Contains(t, buf.String(), "Logging to /tmp/x.log")
	assert.Contains(t, buf.String(), "denied")
}
