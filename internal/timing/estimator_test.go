package timing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/cortexlipsync/internal/viseme"
)

func newTestEstimator() (*Estimator, *viseme.Table) {
	vt := viseme.NewTable()
	return NewEstimator(vt, DefaultConfig()), vt
}

func TestEstimate_JapaneseGreeting(t *testing.T) {
	est, vt := newTestEstimator()

	table := est.Estimate(Units(vt, "こんにちは", viseme.Japanese), viseme.Japanese, time.Second)

	require.NoError(t, table.Validate())
	require.Len(t, table.Entries, 5)
	for i, e := range table.Entries {
		assert.InDelta(t, float64(200*time.Millisecond), float64(e.Unit.Duration()), float64(15*time.Millisecond), "unit %d", i)
		assert.Greater(t, e.Intensity, 0.0, "unit %d", i)
	}
	nasal := table.Entries[1]
	assert.Equal(t, "ん", nasal.Unit.Text)
	assert.Greater(t, nasal.Unit.Duration(), table.Entries[0].Unit.Duration(), "ん is held slightly longer")
	assert.Equal(t, time.Second, table.Entries[4].Unit.End)
}

func TestEstimate_EnglishPunctuation(t *testing.T) {
	est, vt := newTestEstimator()

	table := est.Estimate(Units(vt, "Hello world.", viseme.English), viseme.English, 1200*time.Millisecond)

	require.NoError(t, table.Validate())
	require.Len(t, table.Entries, 3)
	stop := table.Entries[2]
	assert.True(t, stop.Unit.Pause())
	assert.Equal(t, 0.0, stop.Intensity)
	assert.Equal(t, viseme.ClassPause, stop.Class)
	for _, e := range table.Entries[:2] {
		assert.Less(t, stop.Unit.Duration(), e.Unit.Duration())
	}
}

func TestEstimate_ContiguityProperty(t *testing.T) {
	est, vt := newTestEstimator()

	texts := []struct {
		text string
		lang viseme.Language
	}{
		{"こんにちは", viseme.Japanese},
		{"きょうは、いい天気ですね。", viseme.Japanese},
		{"ｷﾞｬﾗﾘｰっ！", viseme.Japanese},
		{"a", viseme.English},
		{"The quick brown fox jumps over the lazy dog.", viseme.English},
		{`"Well," she said... "no."`, viseme.English},
	}
	totals := []time.Duration{
		1, 7, time.Millisecond, 333 * time.Millisecond, time.Second, 7919 * time.Millisecond, time.Minute,
	}
	for _, tt := range texts {
		units := Units(vt, tt.text, tt.lang)
		for _, total := range totals {
			table := est.Estimate(units, tt.lang, total)
			if err := table.Validate(); err != nil {
				t.Errorf("Estimate(%q, %v): %v", tt.text, total, err)
				continue
			}
			if table.Entries[0].Unit.Start != 0 {
				t.Errorf("Estimate(%q, %v): first start %v", tt.text, total, table.Entries[0].Unit.Start)
			}
			if got := table.Entries[len(table.Entries)-1].Unit.End; got != total {
				t.Errorf("Estimate(%q, %v): last end %v", tt.text, total, got)
			}
		}
	}
}

func TestEstimate_Idempotent(t *testing.T) {
	est, vt := newTestEstimator()
	units := Units(vt, "The rain in Spain stays mainly in the plain.", viseme.English)

	a := est.Estimate(units, viseme.English, 3*time.Second)
	b := est.Estimate(units, viseme.English, 3*time.Second)

	assert.Equal(t, a, b)
}

func TestEstimate_DoesNotMutateUnits(t *testing.T) {
	est, vt := newTestEstimator()
	units := Units(vt, "こんにちは", viseme.Japanese)
	before := append([]Unit(nil), units...)

	est.Estimate(units, viseme.Japanese, time.Second)

	assert.Equal(t, before, units)
}

func TestEstimate_DegenerateInput(t *testing.T) {
	est, vt := newTestEstimator()

	tests := []struct {
		name  string
		units []Unit
		total time.Duration
	}{
		{"no units", nil, time.Second},
		{"zero duration", Units(vt, "こんにちは", viseme.Japanese), 0},
		{"negative duration", Units(vt, "hello", viseme.English), -time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := est.Estimate(tt.units, viseme.Japanese, tt.total)
			require.Len(t, table.Entries, 1)
			e := table.Entries[0]
			assert.Equal(t, time.Duration(0), e.Unit.Start)
			assert.Equal(t, Epsilon, e.Unit.End)
			assert.Equal(t, viseme.Neutral(viseme.Japanese), e.Shape)
			assert.Equal(t, 0.0, e.Intensity)
			assert.NoError(t, table.Validate())
		})
	}
}

func TestEstimate_ClampLimitsRatio(t *testing.T) {
	est, vt := newTestEstimator()

	// One very long word next to a one-letter word: the ceiling stops the
	// long word from swallowing the utterance.
	units := Units(vt, "a incomprehensibilities", viseme.English)
	table := est.Estimate(units, viseme.English, 2*time.Second)

	short, long := table.Entries[0].Unit.Duration(), table.Entries[1].Unit.Duration()
	ratio := float64(long) / float64(short)
	assert.LessOrEqual(t, ratio, float64(800)/float64(80)+0.01)
}

func TestNominal(t *testing.T) {
	est, vt := newTestEstimator()

	assert.Equal(t, time.Duration(0), est.Nominal(nil, viseme.English))

	ja := est.Nominal(Units(vt, "こんにちは", viseme.Japanese), viseme.Japanese)
	assert.Greater(t, ja, 500*time.Millisecond)
	assert.Less(t, ja, time.Second)

	en := est.Nominal(Units(vt, "Hello world.", viseme.English), viseme.English)
	assert.Equal(t, 5*65*time.Millisecond*2+65*time.Millisecond*3/2, en)
}

func TestTable_IndexAt(t *testing.T) {
	est, vt := newTestEstimator()
	table := est.Estimate(Units(vt, "Hello world.", viseme.English), viseme.English, time.Second)

	assert.Equal(t, -1, table.IndexAt(-time.Millisecond))
	assert.Equal(t, 0, table.IndexAt(0))
	for i, e := range table.Entries {
		assert.Equal(t, i, table.IndexAt(e.Unit.Start))
		if e.Unit.End > e.Unit.Start {
			assert.Equal(t, i, table.IndexAt(e.Unit.End-1))
		}
	}
	assert.Equal(t, -1, table.IndexAt(time.Second))
}

func TestTable_IndexForChar(t *testing.T) {
	est, vt := newTestEstimator()
	table := est.Estimate(Units(vt, "Hello world.", viseme.English), viseme.English, time.Second)

	assert.Equal(t, 0, table.IndexForChar(0))
	assert.Equal(t, 1, table.IndexForChar(5), "the space belongs to the next word")
	assert.Equal(t, 1, table.IndexForChar(6))
	assert.Equal(t, 2, table.IndexForChar(11))
	assert.Equal(t, -1, table.IndexForChar(12))
	assert.Equal(t, -1, table.IndexForChar(-1))
	assert.Equal(t, -1, table.IndexForChar(-5))
}

func TestTable_ValidateDetectsGaps(t *testing.T) {
	table := &Table{
		Entries: []Entry{
			{Unit: Unit{Start: 0, End: 10}},
			{Unit: Unit{Start: 12, End: 20}},
		},
		Total: 20,
	}
	assert.ErrorIs(t, table.Validate(), ErrNonContiguous)
}
