package lipsync

import (
	"time"

	"github.com/normanking/cortexlipsync/internal/audio"
)

// Config holds the engine's smoothing and fallback constants.
type Config struct {
	LiveAlpha       float64       `mapstructure:"live_alpha" yaml:"live_alpha"`             // blend factor while live audio drives
	EstimatedAlpha  float64       `mapstructure:"estimated_alpha" yaml:"estimated_alpha"`   // blend factor on estimated timing
	JitterAmplitude float64       `mapstructure:"jitter_amplitude" yaml:"jitter_amplitude"` // estimated-mode perturbation
	DecayWindow     time.Duration `mapstructure:"decay_window" yaml:"decay_window"`         // drain to neutral after stop
	DecayFloor      float64       `mapstructure:"decay_floor" yaml:"decay_floor"`           // fraction left at the end of the window
	FinishGrace     time.Duration `mapstructure:"finish_grace" yaml:"finish_grace"`         // wait for the host end signal past the estimate

	Analyzer audio.AnalyzerConfig `mapstructure:"analyzer" yaml:"analyzer"`
}

// DefaultConfig returns the stock engine constants.
func DefaultConfig() Config {
	return Config{
		LiveAlpha:       0.3,
		EstimatedAlpha:  0.12,
		JitterAmplitude: 0.05,
		DecayWindow:     250 * time.Millisecond,
		DecayFloor:      0.01,
		FinishGrace:     2 * time.Second,
		Analyzer:        audio.DefaultAnalyzerConfig(),
	}
}

func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.LiveAlpha <= 0 || c.LiveAlpha > 1 {
		c.LiveAlpha = d.LiveAlpha
	}
	if c.EstimatedAlpha <= 0 || c.EstimatedAlpha > 1 {
		c.EstimatedAlpha = d.EstimatedAlpha
	}
	if c.JitterAmplitude < 0 {
		c.JitterAmplitude = 0
	}
	if c.DecayWindow <= 0 {
		c.DecayWindow = d.DecayWindow
	}
	if c.DecayFloor <= 0 || c.DecayFloor >= 1 {
		c.DecayFloor = d.DecayFloor
	}
	if c.FinishGrace < 0 {
		c.FinishGrace = 0
	}
	if c.Analyzer.FFTSize == 0 {
		c.Analyzer = d.Analyzer
	}
	return c
}
