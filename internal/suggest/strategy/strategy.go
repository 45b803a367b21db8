// Package strategy dispatches a suggestion run to one of the LLM methods and
// falls back to the heuristic candidates when the LLM cannot be used.
package strategy

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/killallgit/sermon-clips/internal/suggest"
	"github.com/killallgit/sermon-clips/internal/suggest/classify"
	"github.com/killallgit/sermon-clips/internal/suggest/llm"
	"github.com/killallgit/sermon-clips/internal/suggest/usage"
)

// Settings tune the LLM methods. They are read from config once per run.
type Settings struct {
	MaxCandidates       int
	ScoringBatchSize    int
	Parallelism         int
	HeuristicWeight     float64
	SelectionTarget     int
	WindowWords         int
	WindowOverlapWords  int
	CandidatesPerWindow int
	ChunkWords          int
	ClipsPerChunk       int
	FullContextChars    int
	FullContextMinClips int
	FullContextMaxClips int
}

func DefaultSettings() Settings {
	return Settings{
		MaxCandidates:       15,
		ScoringBatchSize:    5,
		Parallelism:         4,
		HeuristicWeight:     0.3,
		SelectionTarget:     10,
		WindowWords:         3000,
		WindowOverlapWords:  300,
		CandidatesPerWindow: 20,
		ChunkWords:          6000,
		ClipsPerChunk:       8,
		FullContextChars:    240_000,
		FullContextMinClips: 5,
		FullContextMaxClips: 15,
	}
}

func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.MaxCandidates <= 0 {
		s.MaxCandidates = d.MaxCandidates
	}
	if s.ScoringBatchSize <= 0 {
		s.ScoringBatchSize = d.ScoringBatchSize
	}
	if s.Parallelism <= 0 {
		s.Parallelism = d.Parallelism
	}
	if s.HeuristicWeight < 0 || s.HeuristicWeight > 1 {
		s.HeuristicWeight = d.HeuristicWeight
	}
	if s.SelectionTarget <= 0 {
		s.SelectionTarget = d.SelectionTarget
	}
	if s.WindowWords <= 0 {
		s.WindowWords = d.WindowWords
	}
	if s.WindowOverlapWords < 0 || s.WindowOverlapWords >= s.WindowWords {
		s.WindowOverlapWords = min(d.WindowOverlapWords, s.WindowWords/2)
	}
	if s.CandidatesPerWindow <= 0 {
		s.CandidatesPerWindow = d.CandidatesPerWindow
	}
	if s.ChunkWords <= 0 {
		s.ChunkWords = d.ChunkWords
	}
	if s.ClipsPerChunk <= 0 {
		s.ClipsPerChunk = d.ClipsPerChunk
	}
	if s.FullContextChars <= 0 {
		s.FullContextChars = d.FullContextChars
	}
	if s.FullContextMinClips <= 0 {
		s.FullContextMinClips = d.FullContextMinClips
	}
	if s.FullContextMaxClips < s.FullContextMinClips {
		s.FullContextMaxClips = max(s.FullContextMinClips, d.FullContextMaxClips)
	}
	return s
}

// Input is everything a strategy needs for one run. Candidates are the
// heuristic output, best first.
type Input struct {
	Sermon     llm.SermonInfo
	Segments   []suggest.Segment
	Candidates []suggest.Candidate
	UseLLM     bool
	Method     suggest.Method
	Provider   llm.ProviderConfig
	Pricing    usage.PricingTable

	// Client is set by the router before a strategy runs.
	Client llm.ChatClient
}

// Output is the result of a run. Method and Provider are the effective
// values: empty when the heuristic set was returned.
type Output struct {
	Candidates     []suggest.Candidate
	Usage          suggest.Usage
	Method         suggest.Method
	Provider       suggest.Provider
	UsedLLM        bool
	Partial        bool
	FallbackReason string
	Duration       time.Duration
}

// Strategy is one LLM method.
type Strategy interface {
	Method() suggest.Method
	Suggest(ctx context.Context, in Input) (Output, error)
}

// ClientFactory builds a chat client for a provider config.
type ClientFactory func(cfg llm.ProviderConfig) (llm.ChatClient, error)

// NewOpenAIClient is the default factory.
func NewOpenAIClient(cfg llm.ProviderConfig) (llm.ChatClient, error) {
	return llm.NewClient(cfg)
}

// Router picks the strategy for a run. It holds no provider state; every
// run brings its own ProviderConfig.
type Router struct {
	newClient  ClientFactory
	strategies map[suggest.Method]Strategy
}

func NewRouter(settings Settings, classifier *classify.Classifier, factory ClientFactory) *Router {
	settings = settings.withDefaults()
	if classifier == nil {
		classifier = classify.Default()
	}
	if factory == nil {
		factory = NewOpenAIClient
	}
	r := &Router{newClient: factory, strategies: make(map[suggest.Method]Strategy)}
	for _, s := range []Strategy{
		&scoring{settings: settings},
		&selection{settings: settings},
		&generation{settings: settings, classifier: classifier},
		&fullContext{settings: settings, classifier: classifier},
	} {
		r.strategies[s.Method()] = s
	}
	return r
}

// Route runs in.Method and never fails: any provider problem yields the
// heuristic candidates with the reason recorded in FallbackReason.
func (r *Router) Route(ctx context.Context, in Input) Output {
	started := time.Now()
	out := r.route(ctx, in)
	out.Duration = time.Since(started)
	return out
}

func (r *Router) route(ctx context.Context, in Input) Output {
	if !in.UseLLM {
		return heuristicOutput(in.Candidates, "")
	}

	s, ok := r.strategies[in.Method]
	if !ok {
		return heuristicOutput(in.Candidates, fmt.Sprintf("unknown llm method %q", in.Method))
	}

	client, err := r.newClient(in.Provider)
	if err != nil {
		reason := llm.Redact(err.Error(), in.Provider.APIKey)
		if llm.KindOf(err) == llm.KindUnavailable {
			log.Printf("[INFO] LLM provider %s unavailable, using heuristic suggestions: %s", in.Provider.Provider, reason)
		} else {
			log.Printf("[WARN] Failed to create %s client, using heuristic suggestions: %s", in.Provider.Provider, reason)
		}
		return heuristicOutput(in.Candidates, reason)
	}
	in.Client = client

	out, err := s.Suggest(ctx, in)
	spent := out.Usage
	spent.CostUSD = in.Pricing.Cost(in.Provider.Provider, in.Method, spent)
	if err != nil {
		reason := llm.Redact(err.Error(), in.Provider.APIKey)
		log.Printf("[WARN] LLM %s via %s failed, using heuristic suggestions: %s", in.Method, in.Provider.Provider, reason)
		fb := heuristicOutput(in.Candidates, reason)
		fb.Usage = spent
		return fb
	}

	if spent.IsZero() && !anyLLM(out.Candidates) {
		// nothing reached the provider
		return heuristicOutput(in.Candidates, "")
	}

	out.Usage = spent
	out.Method = in.Method
	out.Provider = in.Provider.Provider
	out.UsedLLM = true
	for i := range out.Candidates {
		if out.Candidates[i].UseLLM {
			out.Candidates[i].Method = in.Method
			out.Candidates[i].Provider = in.Provider.Provider
		}
	}
	suggest.SortByScore(out.Candidates)
	return out
}

func anyLLM(cands []suggest.Candidate) bool {
	for _, c := range cands {
		if c.UseLLM {
			return true
		}
	}
	return false
}

// heuristicOutput returns copies of cands scored by heuristics alone.
func heuristicOutput(cands []suggest.Candidate, reason string) Output {
	out := Output{Candidates: make([]suggest.Candidate, 0, len(cands)), FallbackReason: reason}
	for _, c := range cands {
		out.Candidates = append(out.Candidates, asHeuristic(c))
	}
	suggest.SortByScore(out.Candidates)
	return out
}

func asHeuristic(c suggest.Candidate) suggest.Candidate {
	c.Score = c.HeuristicScore
	c.LLMScore = nil
	c.UseLLM = false
	c.Method = ""
	c.Provider = ""
	c.Trim = nil
	c.Theme = ""
	return c
}

// blend combines a heuristic score in [0,1] with an LLM score in [0,100].
func blend(heuristicWeight, heuristic, llmScore float64) (final, normalized float64) {
	normalized = max(0, min(100, llmScore)) / 100
	return heuristicWeight*heuristic + (1-heuristicWeight)*normalized, normalized
}

// candidateID is the id a candidate is shown to the model under.
func candidateID(i int) string {
	return fmt.Sprintf("c%d", i)
}
