package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/killallgit/sermon-clips/internal/suggest"
)

const (
	scoringTextChars   = 1500
	selectionTextChars = 2200
)

// PromptCandidate is how a candidate is shown to a model.
type PromptCandidate struct {
	ID             string   `json:"id"`
	StartSec       float64  `json:"start_sec"`
	EndSec         float64  `json:"end_sec"`
	DurationSec    float64  `json:"approx_duration_sec"`
	Type           string   `json:"type_hint"`
	Hooks          []string `json:"hook_hints,omitempty"`
	HeuristicScore float64  `json:"heuristic_score"`
	Text           string   `json:"text"`
}

// SermonInfo is the metadata included in whole-transcript prompts.
type SermonInfo struct {
	Title       string
	Preacher    string
	DurationSec float64
}

const systemPrompt = "You are a social media editor who cuts short vertical clips from church sermons. " +
	"You pick moments that stand on their own, open with a strong hook and end on a complete thought. " +
	"Reply with JSON only."

const trimInstructions = `If a clip would be stronger slightly shorter, add "trim_suggestion": ` +
	`{"start_offset_sec": <seconds to cut from the start, >= 0>, "end_offset_sec": <seconds to cut from the end, >= 0>, "confidence": <0..1>}. ` +
	`Omit it otherwise.`

// NewPromptCandidate renders c with its text truncated to maxChars.
func NewPromptCandidate(id string, c suggest.Candidate, text string, maxChars int) PromptCandidate {
	hooks := make([]string, 0, len(c.Hooks))
	for _, h := range c.Hooks {
		hooks = append(hooks, string(h))
	}
	return PromptCandidate{
		ID:             id,
		StartSec:       msToSec(c.StartMs),
		EndSec:         msToSec(c.EndMs),
		DurationSec:    msToSec(c.DurationMs()),
		Type:           string(c.SegmentType),
		Hooks:          hooks,
		HeuristicScore: roundTo(c.HeuristicScore, 3),
		Text:           truncate(text, maxChars),
	}
}

// ScoringPrompt asks for a 0-100 score per candidate.
func ScoringPrompt(cands []PromptCandidate) Request {
	for i := range cands {
		cands[i].Text = truncate(cands[i].Text, scoringTextChars)
	}
	payload, _ := json.Marshal(map[string]any{"candidates": cands})

	user := "Score each candidate clip from 0 to 100 for how well it works as a standalone short video.\n" +
		"Consider the opening hook, emotional weight, clarity without context and whether it ends cleanly.\n" +
		"Return every id exactly once and do not invent ids.\n" +
		trimInstructions + "\n\n" +
		`Output: {"results":[{"id":"...","score":0,"reason":"one sentence"}]}` + "\n\n" +
		"Candidates:\n" + string(payload)
	return Request{System: systemPrompt, User: user}
}

// SelectionPrompt asks the model to choose the best candidates inside one
// transcript window.
func SelectionPrompt(windowText string, cands []PromptCandidate, target int) Request {
	for i := range cands {
		cands[i].Text = truncate(cands[i].Text, selectionTextChars)
	}
	payload, _ := json.Marshal(map[string]any{"candidates": cands})

	user := fmt.Sprintf("Below is part of a sermon transcript and the candidate clips that fall inside it.\n"+
		"Select up to %d candidates that make the best standalone short videos. Skip weak ones.\n"+
		"Give each selected clip a score from 0 to 100, a one sentence reason and a short theme.\n", target) +
		trimInstructions + "\n\n" +
		`Output: {"selections":[{"id":"...","score":0,"reason":"...","theme":"..."}]}` + "\n\n" +
		"Transcript context:\n" + truncate(windowText, 2000) + "\n\n" +
		"Candidates:\n" + string(payload)
	return Request{System: systemPrompt, User: user}
}

// GenerationPrompt asks the model to propose clips from a timestamped chunk.
func GenerationPrompt(info SermonInfo, transcript string, chunk, chunks, want int) Request {
	user := fmt.Sprintf("Propose up to %d short clips from this sermon transcript (part %d of %d).\n"+
		"Each clip must be between 30 and 120 seconds and use the timestamps shown.\n"+
		"Give each clip a score from 0 to 100, a one sentence reason and a short theme.\n", want, chunk, chunks) +
		trimInstructions + "\n\n" +
		`Output: {"clips":[{"start_sec":0,"end_sec":0,"score":0,"reason":"...","theme":"..."}]}` + "\n\n" +
		sermonHeader(info) +
		"Transcript (lines are [start-end] seconds):\n" + transcript
	return Request{System: systemPrompt, User: user}
}

// FullContextPrompt asks for the sermon's best clips in a single pass.
func FullContextPrompt(info SermonInfo, transcript string, minClips, maxClips int) Request {
	user := fmt.Sprintf("Read the whole sermon below and choose the %d to %d best short clips.\n"+
		"Each clip must be between 30 and 120 seconds, use the timestamps shown and not overlap another clip.\n"+
		"Prefer moments that make sense to someone who has not heard the rest of the sermon.\n"+
		"Give each clip a score from 0 to 100, a one sentence reason and a short theme.\n", minClips, maxClips) +
		trimInstructions + "\n\n" +
		`Output: {"clips":[{"start_sec":0,"end_sec":0,"score":0,"reason":"...","theme":"..."}]}` + "\n\n" +
		sermonHeader(info) +
		"Transcript (lines are [start-end] seconds):\n" + transcript
	return Request{System: systemPrompt, User: user}
}

func sermonHeader(info SermonInfo) string {
	var b strings.Builder
	if info.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", info.Title)
	}
	if info.Preacher != "" {
		fmt.Fprintf(&b, "Preacher: %s\n", info.Preacher)
	}
	if info.DurationSec > 0 {
		fmt.Fprintf(&b, "Duration: %.0f seconds\n", info.DurationSec)
	}
	if b.Len() > 0 {
		b.WriteByte('\n')
	}
	return b.String()
}

// Timestamped renders segments one per line as "[start-end] text".
func Timestamped(segs []suggest.Segment) string {
	var b strings.Builder
	for _, s := range segs {
		t := strings.TrimSpace(s.Text)
		if t == "" {
			continue
		}
		fmt.Fprintf(&b, "[%.1f-%.1f] %s\n", msToSec(s.StartMs), msToSec(s.EndMs), t)
	}
	return b.String()
}

// TruncateMiddle keeps the head and tail of s within maxChars, marking the cut.
func TruncateMiddle(s string, maxChars int) string {
	r := []rune(s)
	if maxChars <= 0 || len(r) <= maxChars {
		return s
	}
	const marker = "\n[... transcript truncated ...]\n"
	keep := maxChars - len([]rune(marker))
	if keep <= 0 {
		return string(r[:maxChars])
	}
	head := keep / 2
	tail := keep - head
	return string(r[:head]) + marker + string(r[len(r)-tail:])
}

func msToSec(ms int64) float64 {
	return roundTo(float64(ms)/1000, 2)
}

func roundTo(v float64, places int) float64 {
	p := 1.0
	for i := 0; i < places; i++ {
		p *= 10
	}
	return float64(int64(v*p+0.5)) / p
}
