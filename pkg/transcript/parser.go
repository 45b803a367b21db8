package transcript

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Format is the encoding of a transcript document
type Format string

const (
	FormatVTT  Format = "vtt"
	FormatSRT  Format = "srt"
	FormatJSON Format = "json"
)

// ErrNoCues is returned when a document parses but holds no timed text.
var ErrNoCues = errors.New("transcript has no timed cues")

// ErrUnsupportedFormat is returned for formats other than SRT, VTT and JSON
var ErrUnsupportedFormat = errors.New("unsupported transcript format")

// ParseFormat validates a format name, accepting common aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(s, "."))) {
	case "vtt", "webvtt", "text/vtt":
		return FormatVTT, nil
	case "srt", "subrip", "application/x-subrip":
		return FormatSRT, nil
	case "json", "application/json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w %q", ErrUnsupportedFormat, s)
	}
}

// Cue is one timed line of transcript text
type Cue struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

func (c Cue) StartMs() int64 { return c.Start.Milliseconds() }
func (c Cue) EndMs() int64   { return c.End.Milliseconds() }

// Transcript is a parsed document
type Transcript struct {
	Format   Format
	Cues     []Cue
	Duration time.Duration
}

// PlainText joins the cue texts with single spaces.
func (t *Transcript) PlainText() string {
	parts := make([]string, 0, len(t.Cues))
	for _, c := range t.Cues {
		if c.Text != "" {
			parts = append(parts, c.Text)
		}
	}
	return strings.Join(parts, " ")
}

// Parse decodes content in the given format. Cues with an end at or before
// their start are dropped; cues are returned in start order as written.
func Parse(content string, format Format) (*Transcript, error) {
	var (
		cues []Cue
		err  error
	)
	switch format {
	case FormatVTT, FormatSRT:
		cues = parseCueBlocks(content)
	case FormatJSON:
		cues, err = parseJSON(content)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}

	kept := cues[:0]
	for _, c := range cues {
		if c.End > c.Start {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		return nil, ErrNoCues
	}

	t := &Transcript{Format: format, Cues: kept}
	for _, c := range kept {
		t.Duration = max(t.Duration, c.End)
	}
	return t, nil
}

// Matches "00:01:02.500 --> 00:01:04,000" and the hour-less VTT form
// "01:02.500 --> 01:04.000". Cue settings after the end time are ignored.
var timingLine = regexp.MustCompile(`^((?:\d+:)?\d{1,2}:\d{2}[.,]\d{1,3})\s*-->\s*((?:\d+:)?\d{1,2}:\d{2}[.,]\d{1,3})`)

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// parseCueBlocks reads SRT and WebVTT alike: a timing line opens a cue and
// the following non-blank lines are its text.
func parseCueBlocks(content string) []Cue {
	var (
		cues []Cue
		cur  *Cue
		text []string
	)
	flush := func() {
		if cur != nil {
			cur.Text = normalizeText(strings.Join(text, " "))
			cues = append(cues, *cur)
		}
		cur, text = nil, nil
	}

	scanner := bufio.NewScanner(strings.NewReader(strings.ReplaceAll(content, "\r\n", "\n")))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff"))
		if line == "" {
			flush()
			continue
		}
		if m := timingLine.FindStringSubmatch(line); m != nil {
			flush()
			start, err1 := parseTimestamp(m[1])
			end, err2 := parseTimestamp(m[2])
			if err1 != nil || err2 != nil {
				continue
			}
			cur = &Cue{Start: start, End: end}
			continue
		}
		if cur != nil {
			text = append(text, line)
		}
	}
	flush()
	return cues
}

func normalizeText(s string) string {
	s = tagPattern.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}

// parseTimestamp accepts HH:MM:SS.mmm, MM:SS.mmm and the SRT comma form.
func parseTimestamp(ts string) (time.Duration, error) {
	ts = strings.Replace(ts, ",", ".", 1)
	parts := strings.Split(ts, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid timestamp: %s", ts)
	}

	var hours, minutes int
	var err error
	if len(parts) == 3 {
		if hours, err = strconv.Atoi(parts[0]); err != nil {
			return 0, fmt.Errorf("invalid timestamp: %s", ts)
		}
		parts = parts[1:]
	}
	if minutes, err = strconv.Atoi(parts[0]); err != nil {
		return 0, fmt.Errorf("invalid timestamp: %s", ts)
	}

	sec, frac, _ := strings.Cut(parts[1], ".")
	seconds, err := strconv.Atoi(sec)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp: %s", ts)
	}
	var ms int
	if frac != "" {
		// "5" means 500ms, "05" means 50ms
		for len(frac) < 3 {
			frac += "0"
		}
		if ms, err = strconv.Atoi(frac[:3]); err != nil {
			return 0, fmt.Errorf("invalid timestamp: %s", ts)
		}
	}

	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(ms)*time.Millisecond, nil
}

// jsonCue covers the field spellings seen in speech-to-text output:
// seconds as start/end, startTime/endTime or start_time/end_time, and
// milliseconds as start_ms/end_ms.
type jsonCue struct {
	Start     *float64 `json:"start"`
	End       *float64 `json:"end"`
	StartTime *float64 `json:"startTime"`
	EndTime   *float64 `json:"endTime"`
	StartSec  *float64 `json:"start_time"`
	EndSec    *float64 `json:"end_time"`
	StartMs   *int64   `json:"start_ms"`
	EndMs     *int64   `json:"end_ms"`
	Text      string   `json:"text"`
	Body      string   `json:"body"`
}

func (j jsonCue) bounds() (time.Duration, time.Duration, bool) {
	if j.StartMs != nil && j.EndMs != nil {
		return time.Duration(*j.StartMs) * time.Millisecond, time.Duration(*j.EndMs) * time.Millisecond, true
	}
	for _, pair := range [][2]*float64{{j.Start, j.End}, {j.StartTime, j.EndTime}, {j.StartSec, j.EndSec}} {
		if pair[0] != nil && pair[1] != nil {
			return fromSeconds(*pair[0]), fromSeconds(*pair[1]), true
		}
	}
	return 0, 0, false
}

func fromSeconds(f float64) time.Duration {
	return time.Duration(f*1000+0.5) * time.Millisecond
}

func parseJSON(content string) ([]Cue, error) {
	var raw []jsonCue
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		var wrapped struct {
			Segments []jsonCue `json:"segments"`
		}
		if err := json.Unmarshal([]byte(content), &wrapped); err != nil {
			return nil, fmt.Errorf("failed to parse JSON transcript: %w", err)
		}
		raw = wrapped.Segments
	}

	cues := make([]Cue, 0, len(raw))
	for _, r := range raw {
		start, end, ok := r.bounds()
		if !ok {
			continue
		}
		text := r.Text
		if text == "" {
			text = r.Body
		}
		cues = append(cues, Cue{Start: start, End: end, Text: normalizeText(text)})
	}
	return cues, nil
}
