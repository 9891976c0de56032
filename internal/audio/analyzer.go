package audio

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"
)

// Band weights a frequency range in the loudness average.
type Band struct {
	LowHz  float64 `mapstructure:"low_hz" yaml:"low_hz"`
	HighHz float64 `mapstructure:"high_hz" yaml:"high_hz"`
	Weight float64 `mapstructure:"weight" yaml:"weight"`
}

// AnalyzerConfig configures the loudness envelope. The spectrum follows the
// Web Audio AnalyserNode byte scale so Ceiling is expressed in byte units.
type AnalyzerConfig struct {
	FFTSize               int     `mapstructure:"fft_size" yaml:"fft_size"`
	SmoothingTimeConstant float64 `mapstructure:"smoothing_time_constant" yaml:"smoothing_time_constant"`
	MinDecibels           float64 `mapstructure:"min_decibels" yaml:"min_decibels"`
	MaxDecibels           float64 `mapstructure:"max_decibels" yaml:"max_decibels"`
	Ceiling               float64 `mapstructure:"ceiling" yaml:"ceiling"`
	OtherWeight           float64 `mapstructure:"other_weight" yaml:"other_weight"`
	Bands                 []Band  `mapstructure:"bands" yaml:"bands"`
}

// DefaultAnalyzerConfig emphasizes the voice fundamental and first formants.
func DefaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{
		FFTSize:               256,
		SmoothingTimeConstant: 0.8,
		MinDecibels:           -100,
		MaxDecibels:           -30,
		Ceiling:               180,
		OtherWeight:           0.5,
		Bands: []Band{
			{LowHz: 80, HighHz: 250, Weight: 2.0},
			{LowHz: 250, HighHz: 1000, Weight: 1.5},
			{LowHz: 1000, HighHz: 3000, Weight: 1.2},
			{LowHz: 3000, HighHz: 4000, Weight: 1.0},
		},
	}
}

// Analyzer turns the spectrum of a live Signal into a loudness in [0,1].
// It is polled once per frame and never blocks or panics; on any failure it
// reports 0 and marks itself unavailable for the rest of the utterance.
type Analyzer struct {
	cfg    AnalyzerConfig
	signal Signal
	logger zerolog.Logger

	fft      *fftWorkspace
	window   []float64
	frame    []float64
	raw      []float64
	smoothed []float64

	available bool
	err       error
}

// NewAnalyzer taps sig.
func NewAnalyzer(sig Signal, cfg AnalyzerConfig, logger zerolog.Logger) *Analyzer {
	if !isPowerOfTwo(cfg.FFTSize) {
		logger.Warn().Int("fftSize", cfg.FFTSize).Msg("FFT size is not a power of two, using 256")
		cfg.FFTSize = 256
	}
	if cfg.Ceiling <= 0 {
		cfg.Ceiling = DefaultAnalyzerConfig().Ceiling
	}
	if cfg.MaxDecibels <= cfg.MinDecibels {
		cfg.MinDecibels, cfg.MaxDecibels = -100, -30
	}
	n := cfg.FFTSize
	a := &Analyzer{
		cfg:       cfg,
		signal:    sig,
		logger:    logger,
		fft:       newFFTWorkspace(n),
		window:    blackman(n),
		frame:     make([]float64, n),
		raw:       make([]float64, n/2),
		smoothed:  make([]float64, n/2),
		available: sig != nil,
	}
	if sig == nil {
		a.err = ErrNotStarted
	}
	return a
}

// Available reports whether the signal is still usable.
func (a *Analyzer) Available() bool {
	return a != nil && a.available
}

// Err returns why the analyzer became unavailable.
func (a *Analyzer) Err() error {
	return a.err
}

// Sample reads the current window and returns the weighted loudness.
func (a *Analyzer) Sample() (level float64) {
	if !a.Available() {
		return 0
	}
	defer func() {
		if r := recover(); r != nil {
			a.fail(fmt.Errorf("audio: signal panicked: %v", r))
			level = 0
		}
	}()

	rate, err := a.signal.Window(a.frame)
	if err != nil {
		a.fail(err)
		return 0
	}
	if rate <= 0 {
		a.fail(fmt.Errorf("audio: invalid sample rate %d", rate))
		return 0
	}
	return a.level(rate)
}

func (a *Analyzer) fail(err error) {
	a.available = false
	a.err = err
	if errors.Is(err, ErrEndOfStream) {
		a.logger.Debug().Msg("live audio reached end of stream")
		return
	}
	a.logger.Warn().Err(err).Msg("live audio source unavailable")
}

func (a *Analyzer) level(rate int) float64 {
	for i, s := range a.frame {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			s = 0
		}
		a.frame[i] = s * a.window[i]
	}
	a.fft.magnitudes(a.frame, a.raw)

	tau := clampUnit(a.cfg.SmoothingTimeConstant)
	binHz := float64(rate) / float64(a.cfg.FFTSize)
	var weighted float64
	for k, m := range a.raw {
		s := tau*a.smoothed[k] + (1-tau)*m
		if math.IsNaN(s) || math.IsInf(s, 0) {
			s = 0
		}
		a.smoothed[k] = s
		weighted += a.byteValue(s) * a.weight(float64(k)*binHz)
	}

	avg := weighted / float64(len(a.raw))
	return clampUnit(avg / a.cfg.Ceiling)
}

// byteValue maps a linear magnitude to the 0-255 analyser byte scale.
func (a *Analyzer) byteValue(mag float64) float64 {
	if mag <= 0 {
		return 0
	}
	db := 20 * math.Log10(mag)
	v := 255 * (db - a.cfg.MinDecibels) / (a.cfg.MaxDecibels - a.cfg.MinDecibels)
	return math.Floor(math.Max(0, math.Min(255, v)))
}

func (a *Analyzer) weight(hz float64) float64 {
	for _, b := range a.cfg.Bands {
		if hz >= b.LowHz && hz < b.HighHz {
			return b.Weight
		}
	}
	return a.cfg.OtherWeight
}

func blackman(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		x := 2 * math.Pi * float64(i) / float64(n)
		w[i] = 0.42 - 0.5*math.Cos(x) + 0.08*math.Cos(2*x)
	}
	return w
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
