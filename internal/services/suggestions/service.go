// Package suggestions runs the clip suggestion pipeline for a sermon and
// persists the result as the sermon's suggestion set.
package suggestions

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/killallgit/sermon-clips/internal/lifecycle"
	"github.com/killallgit/sermon-clips/internal/models"
	"github.com/killallgit/sermon-clips/internal/services/jobs"
	"github.com/killallgit/sermon-clips/internal/services/sermons"
	"github.com/killallgit/sermon-clips/internal/suggest"
	"github.com/killallgit/sermon-clips/internal/suggest/classify"
	"github.com/killallgit/sermon-clips/internal/suggest/dedupe"
	"github.com/killallgit/sermon-clips/internal/suggest/heuristic"
	"github.com/killallgit/sermon-clips/internal/suggest/llm"
	"github.com/killallgit/sermon-clips/internal/suggest/strategy"
	"github.com/killallgit/sermon-clips/internal/suggest/trim"
	"github.com/killallgit/sermon-clips/internal/suggest/usage"
)

type service struct {
	repo       Repository
	sermons    sermons.Service
	jobs       jobs.Service
	classifier *classify.Classifier
	base       pipeline
	source     SettingsSource
	now        func() time.Time

	inflight sync.Map // sermon id -> struct{}
}

// pipeline is the tuning one run works with
type pipeline struct {
	settings  Settings
	generator *heuristic.Generator
	router    *strategy.Router
}

// SettingsSource loads fresh settings for a run. The router is rebuilt
// from the returned strategy settings with the default client factory.
type SettingsSource func() (Settings, strategy.Settings, error)

// Option configures the service
type Option func(*service)

// WithSettingsSource makes every run read its settings from src. When src
// fails the settings given to NewService are used.
func WithSettingsSource(src SettingsSource) Option {
	return func(s *service) { s.source = src }
}

func NewService(
	repo Repository,
	sermonService sermons.Service,
	jobService jobs.Service,
	classifier *classify.Classifier,
	router *strategy.Router,
	settings Settings,
	opts ...Option,
) Service {
	if classifier == nil {
		classifier = classify.Default()
	}
	if router == nil {
		router = strategy.NewRouter(strategy.DefaultSettings(), classifier, nil)
	}
	s := &service{
		repo:       repo,
		sermons:    sermonService,
		jobs:       jobService,
		classifier: classifier,
		now:        func() time.Time { return time.Now().UTC() },
	}
	s.base = s.build(settings, router)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) build(settings Settings, router *strategy.Router) pipeline {
	if settings.Pricing == nil {
		settings.Pricing = usage.DefaultPricing()
	}
	return pipeline{
		settings:  settings,
		generator: heuristic.NewGenerator(settings.Heuristic, s.classifier),
		router:    router,
	}
}

// current returns the pipeline for a new run
func (s *service) current() pipeline {
	if s.source == nil {
		return s.base
	}
	settings, routing, err := s.source()
	if err != nil {
		log.Printf("[WARN] Failed to load suggestion settings, using startup values: %v", err)
		return s.base
	}
	return s.build(settings, strategy.NewRouter(routing, s.classifier, nil))
}

// Enqueue queues a suggestion job. At most one may be active per sermon.
func (s *service) Enqueue(ctx context.Context, sermonID uint, opts RunOptions) (*models.Job, error) {
	if _, err := suggest.ParseMethod(opts.Method); err != nil {
		return nil, err
	}
	if _, err := suggest.ParseProvider(opts.Provider); err != nil {
		return nil, err
	}
	sermon, err := s.sermons.Get(ctx, sermonID)
	if err != nil {
		return nil, err
	}
	if !lifecycle.CanSetFlags(sermon) {
		return nil, fmt.Errorf("%w: sermon %d is %s, not transcribed", lifecycle.ErrInvalidTransition, sermonID, sermon.Status)
	}

	key := models.EntityKey(models.JobTypeSuggestion, "sermon", sermonID)
	return s.jobs.EnqueueUniqueJob(ctx, models.JobTypeSuggestion, key, opts.Payload(sermonID), jobs.WithCreatedBy("suggestions"))
}

type resolved struct {
	useLLM   bool
	method   suggest.Method
	provider suggest.Provider
}

func resolve(sermon *models.Sermon, opts RunOptions, settings Settings) (resolved, error) {
	r := resolved{useLLM: sermon.UseLLM || settings.UseLLM}
	if opts.UseLLM != nil {
		r.useLLM = *opts.UseLLM
	}

	method := firstNonEmpty(opts.Method, sermon.LLMMethod, string(settings.DefaultMethod))
	m, err := suggest.ParseMethod(method)
	if err != nil {
		return r, err
	}
	provider := firstNonEmpty(opts.Provider, sermon.LLMProvider, string(settings.DefaultProvider))
	p, err := suggest.ParseProvider(provider)
	if err != nil {
		return r, err
	}
	r.method, r.provider = m, p
	return r, nil
}

// Run generates, ranks and stores a new suggestion set. LLM failures never
// fail the run; they are recorded on the run's audit row.
func (s *service) Run(ctx context.Context, sermonID uint, opts RunOptions) (*RunResult, error) {
	if _, busy := s.inflight.LoadOrStore(sermonID, struct{}{}); busy {
		return nil, ErrRunInProgress
	}
	defer s.inflight.Delete(sermonID)

	sermon, err := s.sermons.Get(ctx, sermonID)
	if err != nil {
		return nil, err
	}
	if !lifecycle.CanSetFlags(sermon) {
		return nil, fmt.Errorf("%w: sermon %d is %s, not transcribed", lifecycle.ErrInvalidTransition, sermonID, sermon.Status)
	}
	p := s.current()
	choice, err := resolve(sermon, opts, p.settings)
	if err != nil {
		return nil, err
	}

	rows, err := s.sermons.Segments(ctx, sermonID)
	if err != nil {
		return nil, err
	}
	embeddings, err := s.sermons.Embeddings(ctx, sermonID)
	if err != nil {
		return nil, err
	}
	segs := models.SegmentsToSuggest(rows)

	started := s.now()
	candidates := p.generator.Generate(segs, embeddings)
	log.Printf("[DEBUG] Sermon %d: %d heuristic candidates from %d segments", sermonID, len(candidates), len(segs))

	provider := p.settings.Providers[choice.provider]
	provider.Provider = choice.provider

	out := p.router.Route(ctx, strategy.Input{
		Sermon: llm.SermonInfo{
			Title:       sermon.Title,
			Preacher:    sermon.Preacher,
			DurationSec: float64(sermon.DurationMs) / 1000,
		},
		Segments:   segs,
		Candidates: candidates,
		UseLLM:     choice.useLLM,
		Method:     choice.method,
		Provider:   provider,
		Pricing:    p.settings.Pricing,
	})

	kept := finalize(out.Candidates, segs, embeddings, p.settings)

	clips := make([]models.Clip, 0, len(kept))
	for _, c := range kept {
		clips = append(clips, models.ClipFromCandidate(sermonID, "", c))
	}
	attributeUsage(clips, out.Usage)

	finished := s.now()
	run := &models.SuggestionRun{
		SermonID:          sermonID,
		RequestedMethod:   string(choice.method),
		RequestedProvider: string(choice.provider),
		Method:            string(out.Method),
		Provider:          string(out.Provider),
		UseLLM:            choice.useLLM,
		UsedLLM:           out.UsedLLM,
		Partial:           out.Partial,
		FallbackReason:    out.FallbackReason,
		CandidateCount:    len(candidates),
		SuggestionCount:   len(clips),
		StartedAt:         started,
		FinishedAt:        &finished,
	}
	run.SetUsage(out.Usage)

	if err := s.repo.ReplaceSuggestions(ctx, sermonID, run, clips); err != nil {
		return nil, err
	}
	if err := s.sermons.SetSuggested(ctx, sermonID); err != nil {
		return nil, err
	}

	result := &RunResult{Run: *run, Suggestions: clips}
	if len(clips) < p.settings.MinSuggestions {
		result.Warning = fmt.Sprintf("only %d suggestions produced (minimum %d)", len(clips), p.settings.MinSuggestions)
		log.Printf("[WARN] Sermon %d: %s", sermonID, result.Warning)
	}

	log.Printf("[INFO] Sermon %d: stored %d suggestions (run %s, method=%s, llm=%t, tokens=%d, cost=$%.4f) in %s",
		sermonID, len(clips), run.ID, displayMethod(out), out.UsedLLM, out.Usage.TotalTokens, out.Usage.CostUSD, out.Duration)
	return result, nil
}

// finalize applies confident trims and then dedupes, so overlap is judged
// on the ranges that will be stored.
func finalize(cands []suggest.Candidate, segs []suggest.Segment, embeddings map[uint][]float32, settings Settings) []suggest.Candidate {
	trimmed := make([]suggest.Candidate, 0, len(cands))
	for _, c := range cands {
		c = autoTrim(c, segs, settings.AutoTrimConfidence)
		if c.DurationMs() < suggest.MinClipMs || c.DurationMs() > suggest.MaxClipMs {
			continue
		}
		trimmed = append(trimmed, c)
	}
	return dedupe.Dedupe(trimmed, embeddings, settings.Dedupe)
}

// autoTrim applies a confident LLM trim. A trim that fails validation is
// left unapplied on the candidate.
func autoTrim(c suggest.Candidate, segs []suggest.Segment, minConfidence float64) suggest.Candidate {
	if c.Trim == nil || c.Trim.IsZero() || c.Trim.Confidence < minConfidence || c.TrimApplied {
		return c
	}
	out, err := trim.Apply(trim.Clip{StartMs: c.StartMs, EndMs: c.EndMs, Trim: c.Trim}, segs, trim.DefaultBounds())
	if err != nil {
		log.Printf("[DEBUG] Auto-trim skipped for %d-%dms: %v", c.StartMs, c.EndMs, err)
		return c
	}
	c.StartMs, c.EndMs = out.StartMs, out.EndMs
	c.TrimApplied = true
	if covered := suggest.SegmentsIn(segs, c.StartMs, c.EndMs); len(covered) > 0 {
		c.SegmentIDs = suggest.SegmentIDs(covered)
	}
	return c
}

// attributeUsage spreads a run's usage over its LLM-derived suggestions so
// per-clip sums equal the run totals.
func attributeUsage(clips []models.Clip, total suggest.Usage) {
	var idx []int
	for i := range clips {
		if clips[i].UseLLM {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return
	}
	shares := usage.Split(total, len(idx))
	for n, i := range idx {
		clips[i].SetUsage(shares[n])
	}
}

func displayMethod(out strategy.Output) string {
	if out.Method == "" {
		return "heuristic"
	}
	return string(out.Method)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
