package audio

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
)

// DefaultCacheSize is the number of decoded clips kept by default.
const DefaultCacheSize = 32

// ClipCache keeps recently decoded clips keyed by a hash of their encoded
// bytes, so replaying the same utterance skips decoding.
type ClipCache struct {
	clips *lru.Cache[uint64, *Clip]
}

// NewClipCache creates a cache holding at most size clips.
func NewClipCache(size int) (*ClipCache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	clips, err := lru.New[uint64, *Clip](size)
	if err != nil {
		return nil, fmt.Errorf("create clip cache: %w", err)
	}
	return &ClipCache{clips: clips}, nil
}

// Get returns the decoded clip for data if present.
func (c *ClipCache) Get(data []byte, pcm PCMFormat) (*Clip, bool) {
	return c.clips.Get(clipKey(data, pcm))
}

// Add stores a decoded clip.
func (c *ClipCache) Add(data []byte, pcm PCMFormat, clip *Clip) {
	c.clips.Add(clipKey(data, pcm), clip)
}

// Len returns the number of cached clips.
func (c *ClipCache) Len() int {
	return c.clips.Len()
}

// Resize changes the capacity, evicting the oldest clips when it shrinks.
// A non-positive size restores DefaultCacheSize.
func (c *ClipCache) Resize(size int) (evicted int) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return c.clips.Resize(size)
}

// clipKey hashes the encoded bytes together with the raw PCM layout, so the
// same bytes read at another rate are a different clip.
func clipKey(data []byte, pcm PCMFormat) uint64 {
	d := xxhash.New()
	d.Write(data)
	if pcm.Raw() {
		fmt.Fprintf(d, "|pcm/%d/%d", pcm.SampleRate, pcm.BitDepth)
	}
	return d.Sum64()
}

// Loader decodes clips through an optional cache.
type Loader struct {
	cache  *ClipCache
	logger zerolog.Logger
}

// NewLoader creates a loader. A nil cache disables caching.
func NewLoader(cache *ClipCache, logger zerolog.Logger) *Loader {
	return &Loader{cache: cache, logger: logger}
}

// Load returns the decoded clip for data. pcm describes headerless PCM and
// is the zero value for WAV or MP3 input.
func (l *Loader) Load(data []byte, pcm PCMFormat) (*Clip, error) {
	if l.cache != nil {
		if clip, ok := l.cache.Get(data, pcm); ok {
			l.logger.Debug().Int("bytes", len(data)).Msg("clip cache hit")
			return clip, nil
		}
	}
	clip, err := DecodeAs(data, pcm)
	if err != nil {
		return nil, err
	}
	if l.cache != nil {
		l.cache.Add(data, pcm, clip)
	}
	l.logger.Debug().
		Str("format", string(clip.Format)).
		Int("sampleRate", clip.SampleRate).
		Dur("duration", clip.Duration()).
		Msg("clip decoded")
	return clip, nil
}
