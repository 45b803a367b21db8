// Package heuristic builds clip-length windows over a transcript and scores
// them with deterministic rules.
package heuristic

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/killallgit/sermon-clips/internal/suggest"
	"github.com/killallgit/sermon-clips/internal/suggest/classify"
)

// Score component weights. They sum to 1.0.
const (
	weightStartClean = 0.15
	weightEndClean   = 0.20
	weightDuration   = 0.20
	weightHook       = 0.25
	weightType       = 0.20
)

var typeWeights = map[suggest.SegmentType]float64{
	suggest.TypeTestimony:    1.0,
	suggest.TypeCallToAction: 0.95,
	suggest.TypeStory:        0.85,
	suggest.TypeTeaching:     0.6,
	suggest.TypePrayer:       0.5,
	suggest.TypeNone:         0.4,
}

// Config tunes window building and scoring.
type Config struct {
	MinDurationMs int64
	MaxDurationMs int64

	// Gaps longer than LongGapMs split the transcript into ranges and count
	// as internal silence inside a window.
	LongGapMs  int64
	StartGapMs int64
	EndGapMs   int64

	// Adjacent segments whose embeddings are less similar than this start a
	// new range.
	BreakpointSimilarity float64

	HookMinStrength float64

	SilencePenalty    float64
	SilencePenaltyCap float64

	VarietyWindowMs   int64
	VarietyPenalty    float64
	VarietyPenaltyCap float64

	// MaxCandidates caps the output; zero keeps everything.
	MaxCandidates int
}

// DefaultConfig returns the production tuning.
func DefaultConfig() Config {
	return Config{
		MinDurationMs:        suggest.MinCandidateMs,
		MaxDurationMs:        suggest.MaxCandidateMs,
		LongGapMs:            1500,
		StartGapMs:           500,
		EndGapMs:             700,
		BreakpointSimilarity: 0.5,
		HookMinStrength:      0.30,
		SilencePenalty:       0.05,
		SilencePenaltyCap:    0.10,
		VarietyWindowMs:      5000,
		VarietyPenalty:       0.05,
		VarietyPenaltyCap:    0.25,
		MaxCandidates:        200,
	}
}

// Generator produces heuristic candidates.
type Generator struct {
	cfg        Config
	classifier *classify.Classifier
}

func NewGenerator(cfg Config, classifier *classify.Classifier) *Generator {
	if classifier == nil {
		classifier = classify.Default()
	}
	return &Generator{cfg: cfg, classifier: classifier}
}

// pass is one attempt at building windows. Later passes loosen the rules.
type pass struct {
	strictEnd   bool
	breakpoints bool
}

var passes = []pass{
	{strictEnd: true, breakpoints: true},
	{strictEnd: false, breakpoints: true},
	{strictEnd: true, breakpoints: false},
	{strictEnd: false, breakpoints: false},
}

// Generate returns scored candidates sorted by score descending, earlier
// start first on ties. Embeddings are optional and keyed by segment id.
// An empty result means no admissible window exists.
func (g *Generator) Generate(segments []suggest.Segment, embeddings map[uint][]float32) []suggest.Candidate {
	segs := usable(segments)
	if len(segs) == 0 {
		return nil
	}

	st := g.prepare(segs, embeddings)
	for _, p := range passes {
		raw := g.windows(st, p)
		if len(raw) > 0 {
			return g.rank(st, raw)
		}
	}
	return nil
}

// usable drops empty-text segments and sorts the rest by start time.
func usable(segments []suggest.Segment) []suggest.Segment {
	out := make([]suggest.Segment, 0, len(segments))
	for _, s := range segments {
		if s.EndMs <= s.StartMs || normalizeText(s.Text) == "" {
			continue
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartMs < out[j].StartMs })
	return out
}

type state struct {
	segs      []suggest.Segment
	cues      []map[suggest.SegmentType]int
	startOK   []bool
	endOK     []bool
	breakAt   []bool
	headHooks map[int]hookInfo
}

type hookInfo struct {
	hooks    []suggest.HookKind
	strength float64
}

func (g *Generator) prepare(segs []suggest.Segment, embeddings map[uint][]float32) *state {
	n := len(segs)
	st := &state{
		segs:      segs,
		cues:      make([]map[suggest.SegmentType]int, n),
		startOK:   make([]bool, n),
		endOK:     make([]bool, n),
		breakAt:   make([]bool, n),
		headHooks: make(map[int]hookInfo),
	}

	for i, s := range segs {
		st.cues[i] = g.classifier.CountCues(s.Text)
		st.startOK[i] = g.cleanStart(segs, i)
		st.endOK[i] = g.cleanEnd(segs, i)
		if i == 0 {
			continue
		}
		if s.StartMs-segs[i-1].EndMs > g.cfg.LongGapMs {
			st.breakAt[i] = true
			continue
		}
		a, okA := embeddings[segs[i-1].ID]
		b, okB := embeddings[s.ID]
		if okA && okB && suggest.Cosine(a, b) < g.cfg.BreakpointSimilarity {
			st.breakAt[i] = true
		}
	}
	return st
}

func (g *Generator) cleanStart(segs []suggest.Segment, i int) bool {
	if i == 0 {
		return true
	}
	if segs[i].StartMs-segs[i-1].EndMs >= g.cfg.StartGapMs {
		return true
	}
	if endsSentence(segs[i-1].Text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(strings.TrimSpace(segs[i].Text))
	return unicode.IsUpper(r) || unicode.IsDigit(r)
}

func (g *Generator) cleanEnd(segs []suggest.Segment, i int) bool {
	if endsSentence(segs[i].Text) {
		return true
	}
	if i == len(segs)-1 {
		return true
	}
	return segs[i+1].StartMs-segs[i].EndMs >= g.cfg.EndGapMs
}

func endsSentence(text string) bool {
	t := strings.TrimRight(strings.TrimSpace(text), `"')]»”’`)
	return strings.HasSuffix(t, ".") || strings.HasSuffix(t, "?") || strings.HasSuffix(t, "!")
}

type window struct {
	first, last int
	startClean  bool
	endClean    bool
	silenceGaps int
	hooks       hookInfo
	segType     suggest.SegmentType
	raw         float64
}

func (g *Generator) windows(st *state, p pass) []window {
	var out []window
	n := len(st.segs)
	for i := 0; i < n; i++ {
		counts := make(map[suggest.SegmentType]int)
		gaps := 0
		textLen := 0
		for j := i; j < n; j++ {
			if j > i && p.breakpoints && st.breakAt[j] {
				break
			}
			if j > i && st.segs[j].StartMs-st.segs[j-1].EndMs > g.cfg.LongGapMs {
				gaps++
			}
			for t, c := range st.cues[j] {
				counts[t] += c
			}
			textLen += len(st.segs[j].Text)

			dur := st.segs[j].EndMs - st.segs[i].StartMs
			if dur > g.cfg.MaxDurationMs {
				break
			}
			if dur < g.cfg.MinDurationMs {
				continue
			}
			if p.strictEnd && !st.endOK[j] {
				continue
			}

			w := window{
				first:       i,
				last:        j,
				startClean:  st.startOK[i],
				endClean:    st.endOK[j],
				silenceGaps: gaps,
				hooks:       g.hooksFor(st, i, j, textLen),
				segType:     classify.PickType(counts),
			}
			w.raw = g.rawScore(st, w)
			out = append(out, w)
		}
	}
	return out
}

// hooksFor inspects the opening of a window. Windows sharing a first segment
// share an opening unless the window text is shorter than the inspected head.
func (g *Generator) hooksFor(st *state, i, j, textLen int) hookInfo {
	if textLen < classify.HeadChars {
		hooks, strength := g.classifier.Hooks(suggest.JoinText(st.segs[i : j+1]))
		return hookInfo{hooks: hooks, strength: strength}
	}
	if h, ok := st.headHooks[i]; ok {
		return h
	}
	var b strings.Builder
	for k := i; k < len(st.segs) && b.Len() < classify.HeadChars*4; k++ {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strings.TrimSpace(st.segs[k].Text))
	}
	hooks, strength := g.classifier.Hooks(classify.Head(b.String(), classify.HeadChars))
	h := hookInfo{hooks: hooks, strength: strength}
	st.headHooks[i] = h
	return h
}

func (g *Generator) rawScore(st *state, w window) float64 {
	dur := st.segs[w.last].EndMs - st.segs[w.first].StartMs

	score := weightDuration * DurationFit(dur)
	if w.startClean {
		score += weightStartClean
	}
	if w.endClean {
		score += weightEndClean
	}
	if w.hooks.strength >= g.cfg.HookMinStrength {
		score += weightHook * w.hooks.strength
	}
	score += weightType * typeWeights[w.segType]
	score -= min(g.cfg.SilencePenaltyCap, g.cfg.SilencePenalty*float64(w.silenceGaps))
	return clamp01(score)
}

// DurationFit is a triangular preference: 1.0 from 45s to 60s, 0.5 at 30s,
// falling to 0.2 at 120s.
func DurationFit(durMs int64) float64 {
	sec := float64(durMs) / 1000
	switch {
	case sec < 30:
		return 0
	case sec < 45:
		return 0.5 + 0.5*(sec-30)/15
	case sec <= 60:
		return 1
	case sec <= 120:
		return 1 - 0.8*(sec-60)/60
	default:
		return 0
	}
}

// rank applies the variety penalty in raw score order and builds the final
// candidates.
func (g *Generator) rank(st *state, ws []window) []suggest.Candidate {
	sort.SliceStable(ws, func(a, b int) bool {
		if ws[a].raw != ws[b].raw {
			return ws[a].raw > ws[b].raw
		}
		if ws[a].first != ws[b].first {
			return ws[a].first < ws[b].first
		}
		return ws[a].last < ws[b].last
	})

	kept := make(map[int64][]int64)
	cands := make([]suggest.Candidate, 0, len(ws))
	for _, w := range ws {
		start := st.segs[w.first].StartMs
		penalty := 0.0
		if g.cfg.VarietyPenalty > 0 {
			penalty = min(g.cfg.VarietyPenaltyCap, g.cfg.VarietyPenalty*float64(g.nearbyStarts(kept, start)))
		}

		c := suggest.Candidate{
			StartMs:        start,
			EndMs:          st.segs[w.last].EndMs,
			SegmentIDs:     suggest.SegmentIDs(st.segs[w.first : w.last+1]),
			HeuristicScore: clamp01(w.raw - penalty),
			SegmentType:    w.segType,
			Hooks:          w.hooks.hooks,
		}
		c.Score = c.HeuristicScore
		c.Rationale = rationale(c, w, penalty)
		cands = append(cands, c)

		if g.cfg.VarietyWindowMs > 0 {
			b := start / g.cfg.VarietyWindowMs
			kept[b] = append(kept[b], start)
		}
	}

	suggest.SortByScore(cands)
	if g.cfg.MaxCandidates > 0 && len(cands) > g.cfg.MaxCandidates {
		cands = cands[:g.cfg.MaxCandidates]
	}
	return cands
}

// nearbyStarts counts already ranked candidates starting within the variety
// window of start. Counting stops once the penalty cap is reached.
func (g *Generator) nearbyStarts(kept map[int64][]int64, start int64) int {
	if g.cfg.VarietyWindowMs <= 0 {
		return 0
	}
	limit := int(math.Ceil(g.cfg.VarietyPenaltyCap / g.cfg.VarietyPenalty))
	b := start / g.cfg.VarietyWindowMs
	count := 0
	for _, k := range []int64{b, b - 1, b + 1} {
		for _, s := range kept[k] {
			d := s - start
			if d < 0 {
				d = -d
			}
			if d <= g.cfg.VarietyWindowMs {
				count++
				if count >= limit {
					return count
				}
			}
		}
	}
	return count
}

func clamp01(v float64) float64 {
	return max(0, min(1, v))
}

// normalizeText collapses whitespace and strips leading and trailing
// punctuation.
func normalizeText(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	return strings.TrimFunc(text, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsSpace(r)
	})
}

func rationale(c suggest.Candidate, w window, variety float64) string {
	hooks := make([]string, 0, len(c.Hooks))
	for _, h := range c.Hooks {
		hooks = append(hooks, string(h))
	}
	if len(hooks) == 0 {
		hooks = append(hooks, "none")
	}
	return fmt.Sprintf("type=%s hooks=%s hook_strength=%.2f start_clean=%t end_clean=%t duration=%.1fs silences=%d variety_penalty=%.2f",
		c.SegmentType, strings.Join(hooks, ","), w.hooks.strength, w.startClean, w.endClean,
		float64(c.DurationMs())/1000, w.silenceGaps, variety)
}
