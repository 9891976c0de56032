// Package audio decodes speech audio and measures its loudness frame by
// frame for lip-sync.
package audio

import (
	"errors"
	"time"
)

// Common errors
var (
	ErrUnsupportedFormat = errors.New("audio: unsupported format")
	ErrEmptyClip         = errors.New("audio: clip has no samples")
	ErrEndOfStream       = errors.New("audio: end of stream")
	ErrNotStarted        = errors.New("audio: playback not started")
)

// Format identifies an audio encoding.
type Format string

const (
	FormatUnknown Format = ""
	FormatWAV     Format = "wav"
	FormatMP3     Format = "mp3"
	FormatPCM     Format = "pcm"
)

// PCMFormat describes headerless little-endian mono PCM as streamed by some
// TTS providers. The zero value means the bytes carry their own container.
type PCMFormat struct {
	SampleRate int
	BitDepth   int
}

// Raw reports whether the format describes headerless PCM.
func (p PCMFormat) Raw() bool {
	return p.SampleRate > 0
}

// Signal is a playing audio source the analyzer can tap. Window fills dst
// with the most recent samples at the playhead (oldest first) and returns
// the sample rate. It must not block.
type Signal interface {
	Window(dst []float64) (sampleRate int, err error)
	Duration() time.Duration
}

// Clip is decoded mono audio with samples in [-1, 1].
type Clip struct {
	Samples    []float64
	SampleRate int
	Format     Format
}

// Duration returns the playback length of the clip.
func (c *Clip) Duration() time.Duration {
	if c == nil || c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(c.Samples)) * time.Second / time.Duration(c.SampleRate)
}
