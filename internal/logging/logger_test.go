package logging

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesDateNamedFile(t *testing.T) {
	dir := t.TempDir()
	l, err := New(&Config{LogDir: dir, Level: LevelDebug, MaxHistory: 10})
	require.NoError(t, err)

	l.Info("engine", "utterance started", map[string]interface{}{"units": 5})
	require.NoError(t, l.Close())

	path := l.GetLogPath()
	assert.True(t, strings.HasPrefix(path, dir))
	assert.Contains(t, path, "cortexlipsync_")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"component":"engine"`)
	assert.Contains(t, string(data), `"units":5`)
}

func TestNew_ConsoleOnlyWithoutDir(t *testing.T) {
	l, err := New(&Config{Level: LevelInfo})
	require.NoError(t, err)
	assert.Empty(t, l.GetLogPath())
	assert.NoError(t, l.Close())
}

func TestHistory_BoundedAndFiltered(t *testing.T) {
	l, err := New(&Config{Level: LevelInfo, MaxHistory: 3})
	require.NoError(t, err)

	l.Debug("x", "dropped", nil)
	for _, msg := range []string{"a", "b", "c", "d"} {
		l.Info("x", msg, nil)
	}
	l.Error("feed", "write failed", errors.New("broken pipe"), map[string]interface{}{"client": 2})

	h := l.GetHistory(0)
	require.Len(t, h, 3)
	assert.Equal(t, "c", h[0].Message)
	assert.Equal(t, "error", h[2].Level)
	assert.Equal(t, "client=2 error=broken pipe", h[2].Data)

	assert.Len(t, l.GetHistory(1), 1)
}

func TestParseLevel(t *testing.T) {
	tests := map[LogLevel]zerolog.Level{
		"debug": zerolog.DebugLevel,
		"WARN":  zerolog.WarnLevel,
		"error": zerolog.ErrorLevel,
		"":      zerolog.InfoLevel,
		"loud":  zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Info("x", "ignored", nil)
	assert.Empty(t, l.GetHistory(0))
	assert.NoError(t, l.Close())
}

func TestComponent_RecordsHistory(t *testing.T) {
	l, err := New(&Config{Level: LevelInfo, MaxHistory: 10})
	require.NoError(t, err)

	got := make(chan LogEntry, 1)
	l.SetOnLog(func(e LogEntry) { got <- e })

	engine := l.Component("engine")
	engine.Debug().Msg("below level")
	engine.Warn().Str("from", "live-audio").Msg("timing source changed")

	h := l.GetHistory(0)
	require.Len(t, h, 1)
	assert.Equal(t, "engine", h[0].Component)
	assert.Equal(t, "warn", h[0].Level)
	assert.Equal(t, "timing source changed", h[0].Message)
	assert.Equal(t, "timing source changed", (<-got).Message)
}
