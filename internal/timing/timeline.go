package timing

import (
	"time"

	"github.com/normanking/cortexlipsync/internal/viseme"
)

// VisemeEvent is a single Oculus viseme keyframe for frontend playback.
type VisemeEvent struct {
	VisemeID viseme.Oculus `json:"visemeId" yaml:"visemeId"`
	Time     float64       `json:"time" yaml:"time"`     // ms from start
	Weight   float64       `json:"weight" yaml:"weight"` // 0-1
}

// VisemeTimeline is a complete keyframe track in the format expected by
// TalkingHead-style controllers.
type VisemeTimeline struct {
	Events   []VisemeEvent `json:"events" yaml:"events"`
	Duration float64       `json:"duration" yaml:"duration"` // ms
}

// BuildTimeline converts an estimated table to Oculus keyframes. Repeated
// visemes are merged and the track closes on silence.
func BuildTimeline(vt *viseme.Table, t *Table) *VisemeTimeline {
	if t.Len() == 0 {
		return &VisemeTimeline{
			Events: []VisemeEvent{{VisemeID: viseme.OculusSil, Time: 0, Weight: 1.0}},
		}
	}

	events := make([]VisemeEvent, 0, len(t.Entries)+1)
	for _, e := range t.Entries {
		id := vt.Oculus(e.Unit.Lookup, t.Language)
		weight := e.Intensity
		if id == viseme.OculusSil {
			weight = 1.0
		}
		if n := len(events); n > 0 && events[n-1].VisemeID == id {
			continue
		}
		events = append(events, VisemeEvent{
			VisemeID: id,
			Time:     ms(e.Unit.Start),
			Weight:   weight,
		})
	}

	total := ms(t.Total)
	if events[len(events)-1].VisemeID != viseme.OculusSil {
		events = append(events, VisemeEvent{VisemeID: viseme.OculusSil, Time: total, Weight: 1.0})
	}
	return &VisemeTimeline{Events: events, Duration: total}
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
