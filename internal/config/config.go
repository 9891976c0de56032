// Package config provides configuration management for cortexlipsync
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/normanking/cortexlipsync/internal/audio"
	"github.com/normanking/cortexlipsync/internal/bus"
	"github.com/normanking/cortexlipsync/internal/lipsync"
	"github.com/normanking/cortexlipsync/internal/logging"
	"github.com/normanking/cortexlipsync/internal/timing"
)

// Config holds all application configuration
type Config struct {
	Engine   EngineConfig         `mapstructure:"engine" yaml:"engine"`
	Analyzer audio.AnalyzerConfig `mapstructure:"analyzer" yaml:"analyzer"`
	Timing   timing.Config        `mapstructure:"timing" yaml:"timing"`
	Audio    AudioConfig          `mapstructure:"audio" yaml:"audio"`
	Feed     FeedConfig           `mapstructure:"feed" yaml:"feed"`
	Log      logging.Config       `mapstructure:"log" yaml:"log"`
}

// EngineConfig holds the smoothing and fallback constants.
type EngineConfig struct {
	LiveAlpha       float64       `mapstructure:"live_alpha" yaml:"live_alpha"`
	EstimatedAlpha  float64       `mapstructure:"estimated_alpha" yaml:"estimated_alpha"`
	JitterAmplitude float64       `mapstructure:"jitter_amplitude" yaml:"jitter_amplitude"`
	DecayWindow     time.Duration `mapstructure:"decay_window" yaml:"decay_window"`
	DecayFloor      float64       `mapstructure:"decay_floor" yaml:"decay_floor"`
	FinishGrace     time.Duration `mapstructure:"finish_grace" yaml:"finish_grace"`
}

// AudioConfig configures clip decoding
type AudioConfig struct {
	ClipCacheSize int `mapstructure:"clip_cache_size" yaml:"clip_cache_size"`
}

// FeedConfig configures the frame feed server
type FeedConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
	FPS  int    `mapstructure:"fps" yaml:"fps"`
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() *Config {
	engine := lipsync.DefaultConfig()
	return &Config{
		Engine: EngineConfig{
			LiveAlpha:       engine.LiveAlpha,
			EstimatedAlpha:  engine.EstimatedAlpha,
			JitterAmplitude: engine.JitterAmplitude,
			DecayWindow:     engine.DecayWindow,
			DecayFloor:      engine.DecayFloor,
			FinishGrace:     engine.FinishGrace,
		},
		Analyzer: audio.DefaultAnalyzerConfig(),
		Timing:   timing.DefaultConfig(),
		Audio: AudioConfig{
			ClipCacheSize: audio.DefaultCacheSize,
		},
		Feed: FeedConfig{
			Addr: "127.0.0.1:8765",
			FPS:  60,
		},
		Log: *logging.DefaultConfig(),
	}
}

// Lipsync assembles the engine configuration, analyzer included.
func (c *Config) Lipsync() lipsync.Config {
	return lipsync.Config{
		LiveAlpha:       c.Engine.LiveAlpha,
		EstimatedAlpha:  c.Engine.EstimatedAlpha,
		JitterAmplitude: c.Engine.JitterAmplitude,
		DecayWindow:     c.Engine.DecayWindow,
		DecayFloor:      c.Engine.DecayFloor,
		FinishGrace:     c.Engine.FinishGrace,
		Analyzer:        c.Analyzer,
	}
}

// Manager owns a viper instance for one config file and tracks the most
// recently loaded Config.
type Manager struct {
	v      *viper.Viper
	path   string
	logger zerolog.Logger

	mu      sync.RWMutex
	current *Config
}

// NewManager creates a Manager for path. An empty path searches
// ~/.cortexlipsync and the working directory for config.yaml.
func NewManager(path string, logger zerolog.Logger) *Manager {
	return &Manager{v: viper.New(), path: path, logger: logger}
}

// Load reads configuration from file and environment. When no path was
// given and no file exists, the defaults are written to the config
// directory.
func (m *Manager) Load() (*Config, error) {
	cfg := DefaultConfig()
	v := m.v

	if m.path != "" {
		v.SetConfigFile(m.path)
	} else {
		configDir, err := GetConfigDir()
		if err != nil {
			return cfg, err
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(configDir)
		v.AddConfigPath(".")
	}

	// Environment variable overrides, e.g. CORTEXLIPSYNC_FEED_ADDR
	v.SetEnvPrefix("CORTEXLIPSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("feed.addr", cfg.Feed.Addr)
	v.SetDefault("feed.fps", cfg.Feed.FPS)
	v.SetDefault("log.level", string(cfg.Log.Level))
	v.SetDefault("log.dir", cfg.Log.LogDir)
	v.SetDefault("audio.clip_cache_size", cfg.Audio.ClipCacheSize)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if m.path != "" || !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		configDir, dirErr := GetConfigDir()
		if dirErr != nil {
			return cfg, dirErr
		}
		if err := Save(cfg, filepath.Join(configDir, "config.yaml")); err != nil {
			return cfg, err
		}
		m.logger.Info().Str("dir", configDir).Msg("wrote default config")
	}

	if err := v.Unmarshal(cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}

	m.mu.Lock()
	m.current = cfg
	m.mu.Unlock()
	return cfg, nil
}

// Current returns the last successfully loaded Config.
func (m *Manager) Current() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Watch reloads the file whenever it changes, calls onChange with the new
// Config and publishes config.reloaded on b. A file that fails to parse
// keeps the previous Config.
func (m *Manager) Watch(b *bus.EventBus, onChange func(*Config)) {
	m.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := m.reload()
		if err != nil {
			m.logger.Warn().Err(err).Str("file", e.Name).Msg("config reload failed")
			return
		}
		m.logger.Info().Str("file", e.Name).Msg("config reloaded")
		if onChange != nil {
			onChange(cfg)
		}
		b.Publish(bus.Event{Type: bus.EventTypeConfigReloaded, Data: map[string]any{
			"file": e.Name,
		}})
	})
	m.v.WatchConfig()
}

func (m *Manager) reload() (*Config, error) {
	cfg := DefaultConfig()
	if err := m.v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.current = cfg
	m.mu.Unlock()
	return cfg, nil
}

// Load reads the configuration at path, or the default location when path
// is empty.
func Load(path string) (*Config, error) {
	return NewManager(path, zerolog.Nop()).Load()
}

// Save writes the configuration to path as YAML
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".cortexlipsync"), nil
}
