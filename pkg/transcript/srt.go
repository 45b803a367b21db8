package transcript

import (
	"fmt"
	"strings"
	"time"
)

// ClipCues returns the cues overlapping [start, end), shifted so the clip
// starts at zero and clamped to the clip bounds.
func ClipCues(cues []Cue, start, end time.Duration) []Cue {
	var out []Cue
	for _, c := range cues {
		if c.End <= start || c.Start >= end || c.Text == "" {
			continue
		}
		out = append(out, Cue{
			Start: max(c.Start, start) - start,
			End:   min(c.End, end) - start,
			Text:  c.Text,
		})
	}
	return out
}

// WriteSRT renders cues as a SubRip document.
func WriteSRT(cues []Cue) string {
	var b strings.Builder
	for i, c := range cues {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", i+1, srtTimestamp(c.Start), srtTimestamp(c.End), c.Text)
	}
	return b.String()
}

func srtTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	return fmt.Sprintf("%02d:%02d:%02d,%03d", ms/3_600_000, ms/60_000%60, ms/1000%60, ms%1000)
}
