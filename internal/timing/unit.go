// Package timing estimates per-unit playback windows for an utterance when
// no external timing source is available.
package timing

import (
	"time"

	"github.com/normanking/cortexlipsync/internal/viseme"
)

// Unit is one mora or word of an utterance. Start and End are filled by the
// estimator; units are not modified after that.
type Unit struct {
	Index     int              `json:"index" yaml:"index"`
	Text      string           `json:"text" yaml:"text"`
	Lookup    string           `json:"lookup" yaml:"lookup"`
	Kind      viseme.TokenKind `json:"kind" yaml:"kind"`
	Word      int              `json:"word" yaml:"word"`
	CharStart int              `json:"charStart" yaml:"charStart"`
	CharEnd   int              `json:"charEnd" yaml:"charEnd"`
	Start     time.Duration    `json:"start" yaml:"start"`
	End       time.Duration    `json:"end" yaml:"end"`
}

// Pause reports whether the unit is silent punctuation.
func (u Unit) Pause() bool {
	return u.Kind == viseme.KindPause
}

// Duration is the length of the unit's window.
func (u Unit) Duration() time.Duration {
	return u.End - u.Start
}

// Units derives the ordered unit list of text.
func Units(table *viseme.Table, text string, lang viseme.Language) []Unit {
	tokens := table.Segment(text, lang)
	units := make([]Unit, len(tokens))
	for i, tok := range tokens {
		units[i] = Unit{
			Index:     i,
			Text:      tok.Text,
			Lookup:    tok.Lookup,
			Kind:      tok.Kind,
			Word:      tok.Word,
			CharStart: tok.CharStart,
			CharEnd:   tok.CharEnd,
		}
	}
	return units
}
