package strategy

import (
	"context"
	"errors"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/killallgit/sermon-clips/internal/suggest"
	"github.com/killallgit/sermon-clips/internal/suggest/llm"
)

const promptTextChars = 2000

// scoring rescores the top heuristic candidates in parallel batches.
type scoring struct {
	settings Settings
}

func (s *scoring) Method() suggest.Method { return suggest.MethodScoring }

type batchResult struct {
	items map[string]llm.Item
	order map[string]int
	usage suggest.Usage
	err   error
}

func (s *scoring) Suggest(ctx context.Context, in Input) (Output, error) {
	n := min(len(in.Candidates), s.settings.MaxCandidates)
	if n == 0 {
		return Output{}, nil
	}

	var batches [][]int
	for start := 0; start < n; start += s.settings.ScoringBatchSize {
		end := min(start+s.settings.ScoringBatchSize, n)
		idx := make([]int, 0, end-start)
		for i := start; i < end; i++ {
			idx = append(idx, i)
		}
		batches = append(batches, idx)
	}

	results := make([]batchResult, len(batches))
	var g errgroup.Group
	g.SetLimit(s.settings.Parallelism)
	for b, idx := range batches {
		g.Go(func() error {
			results[b] = s.scoreBatch(ctx, in, idx)
			return nil
		})
	}
	_ = g.Wait()

	var out Output
	var failures []error
	scored := make(map[int]llm.Item)
	order := make(map[int]int)
	for b, r := range results {
		out.Usage.Add(r.usage)
		if r.err != nil {
			log.Printf("[WARN] Scoring batch %d/%d failed: %v", b+1, len(batches), r.err)
			failures = append(failures, r.err)
			continue
		}
		for _, i := range batches[b] {
			if it, ok := r.items[candidateID(i)]; ok {
				scored[i] = it
				order[i] = r.order[candidateID(i)]
			}
		}
	}
	if len(failures) == len(batches) {
		return out, fmt.Errorf("all %d scoring batches failed: %w", len(batches), errors.Join(failures...))
	}
	out.Partial = len(failures) > 0

	out.Candidates = make([]suggest.Candidate, 0, len(in.Candidates))
	for i, c := range in.Candidates {
		it, ok := scored[i]
		if !ok {
			out.Candidates = append(out.Candidates, asHeuristic(c))
			continue
		}
		final, normalized := blend(s.settings.HeuristicWeight, c.HeuristicScore, it.ScoreOr(float64(100-order[i])))
		c.Score = final
		c.LLMScore = &normalized
		c.UseLLM = true
		c.Trim = it.Trim
		c.Theme = it.Theme
		if it.Reason != "" {
			c.Rationale = it.Reason
		}
		out.Candidates = append(out.Candidates, c)
	}
	return out, nil
}

func (s *scoring) scoreBatch(ctx context.Context, in Input, idx []int) batchResult {
	prompt := make([]llm.PromptCandidate, 0, len(idx))
	for _, i := range idx {
		c := in.Candidates[i]
		text := suggest.JoinText(suggest.SegmentsIn(in.Segments, c.StartMs, c.EndMs))
		prompt = append(prompt, llm.NewPromptCandidate(candidateID(i), c, text, promptTextChars))
	}

	resp, err := in.Client.Complete(ctx, llm.ScoringPrompt(prompt))
	if err != nil {
		return batchResult{err: err}
	}
	items, err := llm.ParseItems(resp.Content)
	if err != nil {
		return batchResult{usage: resp.Usage, err: fmt.Errorf("parsing scores: %w", err)}
	}

	r := batchResult{items: make(map[string]llm.Item), order: make(map[string]int), usage: resp.Usage}
	for pos, it := range items {
		if it.ID == "" {
			continue
		}
		if _, dup := r.items[it.ID]; dup {
			continue
		}
		r.items[it.ID] = it
		r.order[it.ID] = pos
	}
	if len(r.items) == 0 {
		r.err = errors.New("no candidate ids in scoring response")
	}
	return r
}
