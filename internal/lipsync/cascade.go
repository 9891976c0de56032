package lipsync

import (
	"github.com/normanking/cortexlipsync/internal/audio"
	"github.com/normanking/cortexlipsync/internal/timing"
)

// Cascade picks exactly one authoritative source per frame: live audio when
// it is attached and healthy, else the estimated table, else idle.
type Cascade struct {
	analyzer  *audio.Analyzer
	table     *timing.Table
	textLen   int
	amplitude float64
}

// NewCascade builds a cascade for one utterance. analyzer may be nil.
func NewCascade(analyzer *audio.Analyzer, table *timing.Table, textLen int, jitterAmplitude float64) *Cascade {
	return &Cascade{analyzer: analyzer, table: table, textLen: textLen, amplitude: jitterAmplitude}
}

// Attach installs a live analyzer mid-utterance.
func (c *Cascade) Attach(a *audio.Analyzer) {
	c.analyzer = a
}

// Live reports whether a healthy live source is attached.
func (c *Cascade) Live() bool {
	return c.analyzer.Available()
}

// Estimated reports whether the table can drive the mouth.
func (c *Cascade) Estimated() bool {
	return c.textLen > 0 && c.table.Len() > 0 && c.table.Total > 0
}

// Resolve returns the source for this frame and its target loudness. index
// is the active table entry or -1. A live source that fails while being
// sampled hands over to the next level within the same call.
func (c *Cascade) Resolve(index int) (SourceMode, float64) {
	if c.Live() {
		level := c.analyzer.Sample()
		if c.analyzer.Available() {
			return SourceLive, level
		}
	}
	if c.Estimated() {
		return SourceEstimated, c.estimate(index)
	}
	return SourceIdle, 0
}

func (c *Cascade) estimate(index int) float64 {
	if index < 0 || index >= c.table.Len() {
		return 0
	}
	e := c.table.Entries[index]
	if e.Intensity == 0 {
		return 0
	}
	return clamp01(e.Intensity + Perturbation(c.textLen, index, c.amplitude))
}

func clamp01(v float64) float64 {
	if v != v || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
