// Package trim applies LLM trim suggestions to clip boundaries, snapping the
// moved edges to transcript segment boundaries.
package trim

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/killallgit/sermon-clips/internal/suggest"
)

var (
	// ErrTrimInvalid means the trimmed clip would fall outside the allowed
	// duration or the offsets are malformed. The clip is left unchanged.
	ErrTrimInvalid = errors.New("trim invalid")
	// ErrNoTrim means there is no trim suggestion to apply.
	ErrNoTrim = errors.New("no trim suggestion")
)

// Clip is the part of a suggestion the applier reads and writes.
type Clip struct {
	StartMs int64
	EndMs   int64
	Trim    *suggest.TrimSuggestion
	Applied bool
}

// Bounds are the allowed clip durations after trimming.
type Bounds struct {
	MinMs int64
	MaxMs int64
}

func DefaultBounds() Bounds {
	return Bounds{MinMs: suggest.MinClipMs, MaxMs: suggest.MaxClipMs}
}

// Apply returns the trimmed clip. Applying to an already trimmed clip returns
// it unchanged. On error the returned clip equals the input.
func Apply(c Clip, segments []suggest.Segment, b Bounds) (Clip, error) {
	if c.Applied {
		return c, nil
	}
	if c.Trim == nil {
		return c, ErrNoTrim
	}
	t := *c.Trim
	if !validOffset(t.StartOffsetSec) || !validOffset(t.EndOffsetSec) {
		return c, fmt.Errorf("%w: bad offsets %.2fs/%.2fs", ErrTrimInvalid, t.StartOffsetSec, t.EndOffsetSec)
	}

	segs := append([]suggest.Segment(nil), segments...)
	sort.SliceStable(segs, func(i, j int) bool { return segs[i].StartMs < segs[j].StartMs })

	start, end := c.StartMs, c.EndMs
	if t.StartOffsetSec > 0 {
		start += secToMs(t.StartOffsetSec)
		if len(segs) > 0 {
			start = suggest.NearestStart(segs, start, true)
		}
	}
	if t.EndOffsetSec > 0 {
		end -= secToMs(t.EndOffsetSec)
		if len(segs) > 0 {
			end = suggest.NearestEnd(segs, end, true)
		}
	}

	if err := Validate(start, end, b); err != nil {
		return c, err
	}

	out := c
	out.StartMs, out.EndMs = start, end
	out.Applied = true
	return out, nil
}

// Validate checks a clip range against the duration bounds.
func Validate(startMs, endMs int64, b Bounds) error {
	if startMs < 0 || endMs <= startMs {
		return fmt.Errorf("%w: empty range %d-%d", ErrTrimInvalid, startMs, endMs)
	}
	d := endMs - startMs
	if d < b.MinMs || d > b.MaxMs {
		return fmt.Errorf("%w: duration %dms outside [%d, %d]", ErrTrimInvalid, d, b.MinMs, b.MaxMs)
	}
	return nil
}

func validOffset(v float64) bool {
	return v >= 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

func secToMs(sec float64) int64 {
	return int64(math.Round(sec * 1000))
}
