package audio

import (
	"time"
)

// ClipSignal plays a decoded clip against a clock. It produces no sound; the
// host plays the same bytes and ClipSignal mirrors its playhead.
type ClipSignal struct {
	clip    *Clip
	now     func() time.Time
	start   time.Time
	started bool
}

// NewClipSignal creates a signal over clip using now as its time source.
func NewClipSignal(clip *Clip, now func() time.Time) *ClipSignal {
	if now == nil {
		now = time.Now
	}
	return &ClipSignal{clip: clip, now: now}
}

// Start anchors the playhead at t.
func (s *ClipSignal) Start(t time.Time) {
	s.start = t
	s.started = true
}

// Position returns the playhead offset.
func (s *ClipSignal) Position() time.Duration {
	if !s.started {
		return 0
	}
	pos := s.now().Sub(s.start)
	if pos < 0 {
		return 0
	}
	return pos
}

// Duration returns the clip length.
func (s *ClipSignal) Duration() time.Duration {
	return s.clip.Duration()
}

// Window copies the len(dst) samples ending at the playhead. Samples before
// the clip start are zero.
func (s *ClipSignal) Window(dst []float64) (int, error) {
	if !s.started {
		return 0, ErrNotStarted
	}
	if s.clip == nil || len(s.clip.Samples) == 0 {
		return 0, ErrEmptyClip
	}
	rate := s.clip.SampleRate
	end := int(int64(s.Position()) * int64(rate) / int64(time.Second))
	if end >= len(s.clip.Samples) {
		return rate, ErrEndOfStream
	}
	begin := end - len(dst)
	for i := range dst {
		j := begin + i
		if j < 0 {
			dst[i] = 0
			continue
		}
		dst[i] = s.clip.Samples[j]
	}
	return rate, nil
}
