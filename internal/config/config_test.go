package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/cortexlipsync/internal/bus"
	"github.com/normanking/cortexlipsync/internal/lipsync"
)

const sample = `
engine:
  live_alpha: 0.5
  decay_window: 400ms
timing:
  english:
    ceiling: 600ms
feed:
  fps: 30
log:
  level: debug
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad_OverridesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)

	assert.Equal(t, 0.5, cfg.Engine.LiveAlpha)
	assert.Equal(t, 400*time.Millisecond, cfg.Engine.DecayWindow)
	assert.Equal(t, 600*time.Millisecond, cfg.Timing.English.Ceiling)
	assert.Equal(t, 30, cfg.Feed.FPS)

	// Untouched keys keep their defaults.
	def := DefaultConfig()
	assert.Equal(t, def.Engine.EstimatedAlpha, cfg.Engine.EstimatedAlpha)
	assert.Equal(t, def.Timing.Japanese, cfg.Timing.Japanese)
	assert.Equal(t, def.Analyzer, cfg.Analyzer)
	assert.Equal(t, def.Feed.Addr, cfg.Feed.Addr)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("CORTEXLIPSYNC_FEED_ADDR", "0.0.0.0:9000")

	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", cfg.Feed.Addr)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_WritesDefaultsWhenAbsent(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Engine, cfg.Engine)
	assert.FileExists(t, filepath.Join(home, ".cortexlipsync", "config.yaml"))
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	want := DefaultConfig()
	want.Feed.FPS = 24
	want.Timing.Japanese.Floor = 90 * time.Millisecond

	require.NoError(t, Save(want, path))
	got, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, want, got)
}

func TestLipsync_CarriesAnalyzer(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Analyzer.Ceiling = 200

	lc := cfg.Lipsync()
	assert.Equal(t, 200.0, lc.Analyzer.Ceiling)
	assert.Equal(t, lipsync.DefaultConfig().LiveAlpha, lc.LiveAlpha)
}

func TestWatch_PublishesReload(t *testing.T) {
	path := writeConfig(t, sample)
	m := NewManager(path, zerolog.Nop())
	_, err := m.Load()
	require.NoError(t, err)

	b := bus.NewEventBus()
	events := make(chan bus.Event, 16)
	b.Subscribe(bus.EventTypeConfigReloaded, func(e bus.Event) { events <- e })

	reloaded := make(chan *Config, 16)
	m.Watch(b, func(c *Config) { reloaded <- c })

	tmp := path + ".tmp"
	require.NoError(t, os.WriteFile(tmp, []byte("feed:\n  fps: 12\n"), 0644))
	require.NoError(t, os.Rename(tmp, path))

	deadline := time.After(5 * time.Second)
	for done := false; !done; {
		select {
		case c := <-reloaded:
			done = c.Feed.FPS == 12
		case <-deadline:
			t.Fatal("no reload after the file changed")
		}
	}
	select {
	case <-events:
	case <-time.After(5 * time.Second):
		t.Fatal("config.reloaded was not published")
	}
	assert.Equal(t, 12, m.Current().Feed.FPS)
}
