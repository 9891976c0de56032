package timing

import (
	"math"
	"time"

	"github.com/normanking/cortexlipsync/internal/viseme"
)

// Epsilon is the length of the single neutral unit produced for empty or
// zero-length utterances.
const Epsilon = time.Millisecond

// Profile holds per-language duration rules.
type Profile struct {
	Floor          time.Duration `mapstructure:"floor" yaml:"floor"`                     // shortest unit before rescaling
	Ceiling        time.Duration `mapstructure:"ceiling" yaml:"ceiling"`                 // longest unit before rescaling
	CharDuration   time.Duration `mapstructure:"char_duration" yaml:"char_duration"`     // nominal time per unit of weight
	PauseWeight    float64       `mapstructure:"pause_weight" yaml:"pause_weight"`       // weight of a punctuation unit
	VowelWeight    float64       `mapstructure:"vowel_weight" yaml:"vowel_weight"`       // vowel-only morae
	NasalWeight    float64       `mapstructure:"nasal_weight" yaml:"nasal_weight"`       // ん
	GeminateWeight float64       `mapstructure:"geminate_weight" yaml:"geminate_weight"` // っ
}

// Config holds the estimator profiles.
type Config struct {
	Japanese Profile `mapstructure:"japanese" yaml:"japanese"`
	English  Profile `mapstructure:"english" yaml:"english"`
}

// DefaultConfig returns the stock profiles: Japanese morae between 80 and
// 200 ms, English words between 80 and 800 ms at about 15 letters a second.
func DefaultConfig() Config {
	return Config{
		Japanese: Profile{
			Floor:          80 * time.Millisecond,
			Ceiling:        200 * time.Millisecond,
			CharDuration:   140 * time.Millisecond,
			PauseWeight:    1.0,
			VowelWeight:    1.2,
			NasalWeight:    1.2,
			GeminateWeight: 0.5,
		},
		English: Profile{
			Floor:          80 * time.Millisecond,
			Ceiling:        800 * time.Millisecond,
			CharDuration:   65 * time.Millisecond,
			PauseWeight:    1.5,
			VowelWeight:    1.0,
			NasalWeight:    1.0,
			GeminateWeight: 1.0,
		},
	}
}

// Estimator distributes an utterance's duration across its units.
type Estimator struct {
	cfg   Config
	table *viseme.Table
}

// NewEstimator creates an estimator over the given viseme table.
func NewEstimator(table *viseme.Table, cfg Config) *Estimator {
	if table == nil {
		table = viseme.NewTable()
	}
	return &Estimator{cfg: cfg, table: table}
}

func (e *Estimator) profile(lang viseme.Language) Profile {
	if lang == viseme.English {
		return e.cfg.English
	}
	return e.cfg.Japanese
}

// weight is the relative length of a unit. Japanese units count as one mora
// scaled by kind; English words count their letters.
func (p Profile) weight(u Unit, lang viseme.Language) float64 {
	switch u.Kind {
	case viseme.KindPause:
		return p.PauseWeight
	case viseme.KindVowel:
		return p.VowelWeight
	case viseme.KindNasal:
		return p.NasalWeight
	case viseme.KindGeminate:
		return p.GeminateWeight
	}
	if lang == viseme.English {
		n := 0
		for range u.Lookup {
			n++
		}
		return math.Max(1, float64(n))
	}
	return 1
}

func (p Profile) clampDuration(d float64) float64 {
	if p.Floor > 0 && d < float64(p.Floor) {
		d = float64(p.Floor)
	}
	if p.Ceiling > 0 && d > float64(p.Ceiling) {
		d = float64(p.Ceiling)
	}
	return d
}

// Nominal returns the natural speaking time of units when the real
// duration is unknown.
func (e *Estimator) Nominal(units []Unit, lang viseme.Language) time.Duration {
	p := e.profile(lang)
	var total float64
	for _, u := range units {
		total += p.clampDuration(p.weight(u, lang) * float64(p.CharDuration))
	}
	return time.Duration(math.Round(total))
}

// Estimate assigns contiguous windows to units so that they exactly cover
// [0, total). Each unit's share is proportional to its weight, clamped to the
// profile bounds, then rescaled so the windows sum to total. The result is a
// pure function of its inputs. An empty unit list or a non-positive total
// yields a single neutral unit spanning [0, Epsilon).
func (e *Estimator) Estimate(units []Unit, lang viseme.Language, total time.Duration) *Table {
	if len(units) == 0 || total <= 0 {
		return e.neutral(lang)
	}
	p := e.profile(lang)

	weights := make([]float64, len(units))
	var sum float64
	for i, u := range units {
		weights[i] = p.weight(u, lang)
		sum += weights[i]
	}

	clamped := make([]float64, len(units))
	var clampedSum float64
	for i, w := range weights {
		clamped[i] = p.clampDuration(float64(total) * w / sum)
		clampedSum += clamped[i]
	}

	t := &Table{Language: lang, Entries: make([]Entry, len(units)), Total: total}
	var (
		cum   float64
		start time.Duration
	)
	for i, u := range units {
		cum += clamped[i]
		end := time.Duration(math.Round(float64(total) * cum / clampedSum))
		if i == len(units)-1 || end > total {
			end = total
		}
		if end < start {
			end = start
		}
		u.Index = i
		u.Start, u.End = start, end
		t.Entries[i] = e.entry(u, lang)
		start = end
	}
	return t
}

func (e *Estimator) entry(u Unit, lang viseme.Language) Entry {
	shape := e.table.ShapeFor(u.Lookup, lang)
	return Entry{
		Unit:      u,
		Shape:     shape,
		Class:     e.table.Classify(u.Lookup, lang),
		Intensity: Intensity(u, shape),
	}
}

func (e *Estimator) neutral(lang viseme.Language) *Table {
	u := Unit{Kind: viseme.KindPause, End: Epsilon}
	return &Table{
		Language: lang,
		Entries: []Entry{{
			Unit:  u,
			Shape: viseme.Neutral(lang),
			Class: viseme.ClassPause,
		}},
		Total: Epsilon,
	}
}

// Intensity is the target loudness of a unit in estimated mode. Pauses are
// silent; spoken units scale with how far the shape opens the jaw.
func Intensity(u Unit, shape viseme.Shape) float64 {
	if u.Pause() {
		return 0
	}
	return math.Min(1, math.Max(0, 0.35+0.6*shape.JawOpen))
}
