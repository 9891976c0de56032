package lipsync

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Perturbation returns a small offset in [-amplitude, amplitude] that keeps
// estimated loudness from looking mechanical. It is a pure function of the
// utterance length and unit index, so replays are identical.
func Perturbation(utteranceLength, unitIndex int, amplitude float64) float64 {
	if amplitude <= 0 {
		return 0
	}
	var key [16]byte
	binary.LittleEndian.PutUint64(key[:8], uint64(utteranceLength))
	binary.LittleEndian.PutUint64(key[8:], uint64(unitIndex))
	h := xxhash.Sum64(key[:])
	u := float64(h>>11) / float64(uint64(1)<<53)
	return (2*u - 1) * amplitude
}
