// Package lipsync drives a mouth from speech: each host frame it picks the
// best available timing source and emits a smoothed loudness and shape.
package lipsync

import (
	"time"

	"github.com/normanking/cortexlipsync/internal/viseme"
)

// State is the engine lifecycle state.
type State string

const (
	StateIdle     State = "idle"
	StateDriving  State = "driving"
	StateDraining State = "draining"
)

func (s State) gauge() float64 {
	switch s {
	case StateDriving:
		return 1
	case StateDraining:
		return 2
	}
	return 0
}

// SourceMode names the timing source that produced a frame.
type SourceMode string

const (
	SourceLive      SourceMode = "live-audio"
	SourceEstimated SourceMode = "estimated-timing"
	SourceIdle      SourceMode = "idle"
)

// Frame is the engine output for one host frame.
type Frame struct {
	Loudness       float64         `json:"loudness"`
	ActiveUnitText string          `json:"activeUnitText"`
	Shape          viseme.Shape    `json:"shape"`
	SourceMode     SourceMode      `json:"sourceMode"`
	State          State           `json:"state"`
	UnitIndex      int             `json:"unitIndex"`
	Class          viseme.Class    `json:"class,omitempty"`
	Viseme         viseme.Oculus   `json:"viseme"`
	UtteranceID    string          `json:"utteranceId,omitempty"`
	Language       viseme.Language `json:"language,omitempty"`
	Position       time.Duration   `json:"position"`
}

// SmoothingState carries the blended output between frames of a single
// utterance.
type SmoothingState struct {
	Loudness float64
	Shape    viseme.Shape
}

func restingState(lang viseme.Language) SmoothingState {
	return SmoothingState{Shape: viseme.Neutral(lang)}
}
