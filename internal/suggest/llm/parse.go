package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/killallgit/sermon-clips/internal/suggest"
)

// Item is one clip, score or selection returned by a model. Fields a prompt
// did not ask for stay zero.
type Item struct {
	ID       string
	Score    *float64
	Reason   string
	Theme    string
	StartSec *float64
	EndSec   *float64
	Trim     *suggest.TrimSuggestion
}

type rawItem struct {
	ID         flexString `json:"id"`
	WindowID   flexString `json:"window_id"`
	ClipID     flexString `json:"clip_id"`
	Score      *flexFloat `json:"score"`
	Reason     string     `json:"reason"`
	Rationale  string     `json:"rationale"`
	Theme      string     `json:"theme"`
	StartSec   *flexFloat `json:"start_sec"`
	EndSec     *flexFloat `json:"end_sec"`
	Trim       *rawTrim   `json:"trim_suggestion"`
	TimingTrim *rawTrim   `json:"timing_adjustment"`
}

type rawTrim struct {
	StartOffsetSec flexFloat `json:"start_offset_sec"`
	EndOffsetSec   flexFloat `json:"end_offset_sec"`
	Confidence     flexFloat `json:"confidence"`
}

// listKeys are the object keys a model may wrap its array in.
var listKeys = []string{"clips", "results", "items", "selections", "scores", "windows"}

// ExtractJSON pulls the JSON payload out of model content, stripping code
// fences and surrounding prose.
func ExtractJSON(content string) (string, error) {
	t := strings.TrimSpace(content)
	if t == "" {
		return "", errors.New("empty content")
	}
	if strings.HasPrefix(t, "```") {
		if i := strings.Index(t, "\n"); i >= 0 {
			t = t[i+1:]
		}
		if j := strings.LastIndex(t, "```"); j >= 0 {
			t = t[:j]
		}
		t = strings.TrimSpace(t)
	}
	if json.Valid([]byte(t)) {
		return t, nil
	}

	objStart, objEnd := strings.Index(t, "{"), strings.LastIndex(t, "}")
	arrStart, arrEnd := strings.Index(t, "["), strings.LastIndex(t, "]")
	if arrStart >= 0 && arrEnd > arrStart && (objStart < 0 || arrStart < objStart) {
		if s := t[arrStart : arrEnd+1]; json.Valid([]byte(s)) {
			return s, nil
		}
	}
	if objStart >= 0 && objEnd > objStart {
		if s := t[objStart : objEnd+1]; json.Valid([]byte(s)) {
			return s, nil
		}
	}
	return "", fmt.Errorf("no JSON found in %q", truncate(t, 200))
}

// ParseItems decodes model content into items. A bare array, an object
// wrapping an array under a known key, or a single item object are accepted.
// An empty result is an error.
func ParseItems(content string) ([]Item, error) {
	payload, err := ExtractJSON(content)
	if err != nil {
		return nil, err
	}

	var raws []rawItem
	trimmed := bytes.TrimSpace([]byte(payload))
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &raws); err != nil {
			return nil, fmt.Errorf("decoding item array: %w", err)
		}
	case '{':
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return nil, fmt.Errorf("decoding object: %w", err)
		}
		found := false
		for _, key := range listKeys {
			if arr, ok := wrapper[key]; ok {
				if err := json.Unmarshal(arr, &raws); err != nil {
					return nil, fmt.Errorf("decoding %q: %w", key, err)
				}
				found = true
				break
			}
		}
		if !found {
			var single rawItem
			if err := json.Unmarshal(trimmed, &single); err != nil {
				return nil, fmt.Errorf("decoding item: %w", err)
			}
			raws = []rawItem{single}
		}
	default:
		return nil, errors.New("payload is neither an object nor an array")
	}

	items := make([]Item, 0, len(raws))
	for _, r := range raws {
		it := Item{
			ID:     firstNonEmpty(string(r.ID), string(r.WindowID), string(r.ClipID)),
			Reason: firstNonEmpty(r.Reason, r.Rationale),
			Theme:  r.Theme,
		}
		if r.Score != nil {
			v := float64(*r.Score)
			it.Score = &v
		}
		if r.StartSec != nil {
			v := float64(*r.StartSec)
			it.StartSec = &v
		}
		if r.EndSec != nil {
			v := float64(*r.EndSec)
			it.EndSec = &v
		}
		if t := r.Trim; t != nil || r.TimingTrim != nil {
			if t == nil {
				t = r.TimingTrim
			}
			it.Trim = &suggest.TrimSuggestion{
				StartOffsetSec: float64(t.StartOffsetSec),
				EndOffsetSec:   float64(t.EndOffsetSec),
				Confidence:     float64(t.Confidence),
			}
		}
		if it.ID == "" && it.StartSec == nil && it.Score == nil {
			continue
		}
		items = append(items, it)
	}
	if len(items) == 0 {
		return nil, errors.New("no items in response")
	}
	return items, nil
}

// ScoreOr clamps the item score to [0, 100], or returns fallback when the
// model omitted it.
func (it Item) ScoreOr(fallback float64) float64 {
	if it.Score == nil {
		return clamp(fallback, 0, 100)
	}
	return clamp(*it.Score, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}

// flexString accepts JSON strings and numbers.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
		return nil
	}
	*f = flexString(string(b))
	return nil
}

// flexFloat accepts JSON numbers and numeric strings.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return err
		}
		*f = flexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
