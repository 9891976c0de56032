package timing

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/normanking/cortexlipsync/internal/viseme"
)

// ErrNonContiguous is returned by Validate when windows leave gaps, overlap,
// or do not end at the table total.
var ErrNonContiguous = errors.New("timing: table windows are not contiguous")

// Entry pairs a unit with its target shape and intensity.
type Entry struct {
	Unit      Unit         `json:"unit" yaml:"unit"`
	Shape     viseme.Shape `json:"shape" yaml:"shape"`
	Class     viseme.Class `json:"class" yaml:"class"`
	Intensity float64      `json:"intensity" yaml:"intensity"`
}

// Table is the estimated schedule of an utterance. Windows are contiguous
// half-open intervals covering [0, Total).
type Table struct {
	Language viseme.Language `json:"language" yaml:"language"`
	Entries  []Entry         `json:"entries" yaml:"entries"`
	Total    time.Duration   `json:"total" yaml:"total"`
}

// Len returns the number of entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Entries)
}

// IndexAt returns the entry whose window contains pos, or -1 when pos is
// outside [0, Total).
func (t *Table) IndexAt(pos time.Duration) int {
	if t.Len() == 0 || pos < 0 || pos >= t.Total {
		return -1
	}
	i := sort.Search(len(t.Entries), func(i int) bool {
		return t.Entries[i].Unit.End > pos
	})
	if i >= len(t.Entries) {
		return -1
	}
	return i
}

// IndexForChar returns the entry covering a rune offset of the source text,
// or the first entry starting after it. It returns -1 for negative offsets
// and past the last entry.
func (t *Table) IndexForChar(charIndex int) int {
	if charIndex < 0 {
		return -1
	}
	for i, e := range t.Entries {
		if charIndex < e.Unit.CharEnd {
			return i
		}
	}
	return -1
}

// Validate checks the contiguity invariant.
func (t *Table) Validate() error {
	if t.Len() == 0 {
		return fmt.Errorf("%w: empty table", ErrNonContiguous)
	}
	var prev time.Duration
	for i, e := range t.Entries {
		if e.Unit.Start != prev {
			return fmt.Errorf("%w: entry %d starts at %v, previous ended at %v", ErrNonContiguous, i, e.Unit.Start, prev)
		}
		if e.Unit.End < e.Unit.Start {
			return fmt.Errorf("%w: entry %d ends before it starts", ErrNonContiguous, i)
		}
		prev = e.Unit.End
	}
	if prev != t.Total {
		return fmt.Errorf("%w: last entry ends at %v, total is %v", ErrNonContiguous, prev, t.Total)
	}
	return nil
}
