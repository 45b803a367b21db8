// Package suggest holds the types shared by the clip suggestion pipeline:
// transcript segments, scored candidates, LLM methods and token usage.
package suggest

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// Duration bounds in milliseconds.
const (
	MinCandidateMs int64 = 30_000
	MaxCandidateMs int64 = 120_000
	MinClipMs      int64 = 10_000
	MaxClipMs      int64 = 120_000
)

// Segment is one timestamped piece of transcript text.
type Segment struct {
	ID      uint   `json:"id"`
	StartMs int64  `json:"start_ms"`
	EndMs   int64  `json:"end_ms"`
	Text    string `json:"text"`
}

func (s Segment) DurationMs() int64 {
	return s.EndMs - s.StartMs
}

// HookKind is a lexical pattern that makes the opening of a clip engaging.
type HookKind string

const (
	HookQuestion   HookKind = "question"
	HookImperative HookKind = "imperative"
	HookStatistic  HookKind = "statistic"
)

// SegmentType is the rhetorical type of a window of text.
type SegmentType string

const (
	TypeStory        SegmentType = "story"
	TypeTeaching     SegmentType = "teaching"
	TypeCallToAction SegmentType = "call_to_action"
	TypeTestimony    SegmentType = "testimony"
	TypePrayer       SegmentType = "prayer"
	TypeNone         SegmentType = "none"
)

// Method selects how the LLM participates in a suggestion run.
type Method string

const (
	MethodScoring     Method = "scoring"
	MethodSelection   Method = "selection"
	MethodGeneration  Method = "generation"
	MethodFullContext Method = "full-context"
)

// Methods lists the LLM methods in display order.
var Methods = []Method{MethodScoring, MethodSelection, MethodGeneration, MethodFullContext}

var (
	ErrUnknownMethod   = errors.New("unknown llm method")
	ErrUnknownProvider = errors.New("unknown llm provider")
)

// ParseMethod validates a method name. The empty string maps to scoring.
func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return MethodScoring, nil
	case MethodScoring, MethodSelection, MethodGeneration, MethodFullContext:
		return m, nil
	case "full_context", "fullcontext":
		return MethodFullContext, nil
	default:
		return "", fmt.Errorf("%w %q", ErrUnknownMethod, s)
	}
}

// Provider names an OpenAI-compatible chat completion provider.
type Provider string

const (
	ProviderDeepSeek Provider = "deepseek"
	ProviderOpenAI   Provider = "openai"
)

// ParseProvider validates a provider name. The empty string maps to deepseek.
func ParseProvider(s string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return ProviderDeepSeek, nil
	case ProviderDeepSeek, ProviderOpenAI:
		return p, nil
	default:
		return "", fmt.Errorf("%w %q", ErrUnknownProvider, s)
	}
}

// TrimSuggestion shortens a clip. Positive offsets move the edges inward.
type TrimSuggestion struct {
	StartOffsetSec float64 `json:"start_offset_sec"`
	EndOffsetSec   float64 `json:"end_offset_sec"`
	Confidence     float64 `json:"confidence,omitempty"`
}

// IsZero reports whether the trim would leave the clip unchanged.
func (t TrimSuggestion) IsZero() bool {
	return t.StartOffsetSec == 0 && t.EndOffsetSec == 0
}

// Candidate is a scored clip-length window. Heuristic candidates carry only
// HeuristicScore; strategies fill in Score and the LLM fields.
type Candidate struct {
	StartMs        int64           `json:"start_ms"`
	EndMs          int64           `json:"end_ms"`
	SegmentIDs     []uint          `json:"segment_ids"`
	HeuristicScore float64         `json:"heuristic_score"`
	Score          float64         `json:"score"`
	LLMScore       *float64        `json:"llm_score,omitempty"`
	SegmentType    SegmentType     `json:"segment_type"`
	Hooks          []HookKind      `json:"hooks"`
	Rationale      string          `json:"rationale"`
	Theme          string          `json:"theme,omitempty"`
	UseLLM         bool            `json:"use_llm"`
	Method         Method          `json:"llm_method,omitempty"`
	Provider       Provider        `json:"llm_provider,omitempty"`
	Trim           *TrimSuggestion `json:"trim_suggestion,omitempty"`
	TrimApplied    bool            `json:"trim_applied,omitempty"`
}

func (c Candidate) DurationMs() int64 {
	return c.EndMs - c.StartMs
}

// HasHook reports whether the candidate carries the given hook.
func (c Candidate) HasHook(kind HookKind) bool {
	for _, h := range c.Hooks {
		if h == kind {
			return true
		}
	}
	return false
}

// Usage counts tokens and estimated cost for one or more LLM calls.
type Usage struct {
	PromptTokens     int64   `json:"prompt_tokens"`
	CompletionTokens int64   `json:"completion_tokens"`
	CacheHitTokens   int64   `json:"cache_hit_tokens"`
	CacheMissTokens  int64   `json:"cache_miss_tokens"`
	TotalTokens      int64   `json:"total_tokens"`
	CostUSD          float64 `json:"estimated_cost_usd"`
}

// Add accumulates o into u.
func (u *Usage) Add(o Usage) {
	u.PromptTokens += o.PromptTokens
	u.CompletionTokens += o.CompletionTokens
	u.CacheHitTokens += o.CacheHitTokens
	u.CacheMissTokens += o.CacheMissTokens
	u.TotalTokens += o.TotalTokens
	u.CostUSD += o.CostUSD
}

func (u Usage) IsZero() bool {
	return u.PromptTokens == 0 && u.CompletionTokens == 0 && u.TotalTokens == 0
}

// IoU is the overlapping duration of two ranges divided by their union.
func IoU(aStart, aEnd, bStart, bEnd int64) float64 {
	inter := min(aEnd, bEnd) - max(aStart, bStart)
	if inter <= 0 {
		return 0
	}
	union := max(aEnd, bEnd) - min(aStart, bStart)
	if union <= 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// Cosine returns the cosine similarity of two vectors, or 0 when they differ
// in length or either is zero.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// MeanVector averages the embeddings of the given segments. Segments without
// an embedding are skipped; nil is returned when none have one.
func MeanVector(ids []uint, embeddings map[uint][]float32) []float32 {
	var sum []float32
	n := 0
	for _, id := range ids {
		v, ok := embeddings[id]
		if !ok || len(v) == 0 {
			continue
		}
		if sum == nil {
			sum = make([]float32, len(v))
		}
		if len(v) != len(sum) {
			continue
		}
		for i := range v {
			sum[i] += v[i]
		}
		n++
	}
	if n == 0 {
		return nil
	}
	for i := range sum {
		sum[i] /= float32(n)
	}
	return sum
}

// SortByScore orders candidates by Score descending, earlier start first on ties.
func SortByScore(cands []Candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].Score != cands[j].Score {
			return cands[i].Score > cands[j].Score
		}
		if cands[i].StartMs != cands[j].StartMs {
			return cands[i].StartMs < cands[j].StartMs
		}
		return cands[i].EndMs < cands[j].EndMs
	})
}

// SegmentsIn returns the segments overlapping [startMs, endMs).
func SegmentsIn(segments []Segment, startMs, endMs int64) []Segment {
	var out []Segment
	for _, s := range segments {
		if s.EndMs > startMs && s.StartMs < endMs {
			out = append(out, s)
		}
	}
	return out
}

// SegmentIDs collects the ids of segs in order.
func SegmentIDs(segs []Segment) []uint {
	ids := make([]uint, 0, len(segs))
	for _, s := range segs {
		ids = append(ids, s.ID)
	}
	return ids
}

// JoinText concatenates segment texts with single spaces.
func JoinText(segs []Segment) string {
	var b strings.Builder
	for _, s := range segs {
		t := strings.TrimSpace(s.Text)
		if t == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(t)
	}
	return b.String()
}

// SnapRange moves startMs to the nearest segment start and endMs to the
// nearest segment end, and returns the segments inside the snapped range.
// Segments must be sorted by start time.
func SnapRange(segments []Segment, startMs, endMs int64) (int64, int64, []Segment) {
	if len(segments) == 0 {
		return startMs, endMs, nil
	}
	start := NearestStart(segments, startMs, false)
	end := NearestEnd(segments, endMs, false)
	var inside []Segment
	for _, s := range segments {
		if s.StartMs >= start && s.EndMs <= end {
			inside = append(inside, s)
		}
	}
	return start, end, inside
}

// NearestStart returns the segment start closest to ms. On a tie the later
// boundary wins when preferLater is set, the earlier one otherwise.
func NearestStart(segments []Segment, ms int64, preferLater bool) int64 {
	best, bestDist := segments[0].StartMs, absInt(segments[0].StartMs-ms)
	for _, s := range segments[1:] {
		d := absInt(s.StartMs - ms)
		if d < bestDist || (d == bestDist && preferLater && s.StartMs > best) {
			best, bestDist = s.StartMs, d
		}
	}
	return best
}

// NearestEnd returns the segment end closest to ms. On a tie the earlier
// boundary wins when preferEarlier is set, the later one otherwise.
func NearestEnd(segments []Segment, ms int64, preferEarlier bool) int64 {
	best, bestDist := segments[0].EndMs, absInt(segments[0].EndMs-ms)
	for _, s := range segments[1:] {
		d := absInt(s.EndMs - ms)
		if d < bestDist || (d == bestDist && !preferEarlier && s.EndMs > best) {
			best, bestDist = s.EndMs, d
		}
	}
	return best
}

func absInt(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
