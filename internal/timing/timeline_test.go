package timing

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/cortexlipsync/internal/viseme"
)

func TestBuildTimeline(t *testing.T) {
	est, vt := newTestEstimator()
	table := est.Estimate(Units(vt, "Hello world.", viseme.English), viseme.English, time.Second)

	tl := BuildTimeline(vt, table)

	require.Len(t, tl.Events, 3)
	assert.Equal(t, viseme.OculusAA, tl.Events[0].VisemeID, "h maps to an open mouth")
	assert.Equal(t, 0.0, tl.Events[0].Time)
	assert.Equal(t, viseme.OculusOU, tl.Events[1].VisemeID)
	assert.Equal(t, viseme.OculusSil, tl.Events[2].VisemeID)
	assert.Equal(t, 1.0, tl.Events[2].Weight)
	assert.Equal(t, 1000.0, tl.Duration)
}

func TestBuildTimeline_MergesRepeats(t *testing.T) {
	est, vt := newTestEstimator()
	table := est.Estimate(Units(vt, "かか", viseme.Japanese), viseme.Japanese, 400*time.Millisecond)

	tl := BuildTimeline(vt, table)

	require.Len(t, tl.Events, 2)
	assert.Equal(t, viseme.OculusAA, tl.Events[0].VisemeID)
	assert.Equal(t, viseme.OculusSil, tl.Events[1].VisemeID)
	assert.Equal(t, 400.0, tl.Events[1].Time)
}

func TestBuildTimeline_JSONShape(t *testing.T) {
	tl := BuildTimeline(viseme.NewTable(), &Table{})

	data, err := json.Marshal(tl)
	require.NoError(t, err)
	assert.JSONEq(t, `{"events":[{"visemeId":0,"time":0,"weight":1}],"duration":0}`, string(data))
}
