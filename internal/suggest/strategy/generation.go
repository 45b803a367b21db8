package strategy

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/killallgit/sermon-clips/internal/suggest"
	"github.com/killallgit/sermon-clips/internal/suggest/classify"
	"github.com/killallgit/sermon-clips/internal/suggest/llm"
)

// generation asks the model to propose clip ranges chunk by chunk. It does
// not look at the heuristic candidates.
type generation struct {
	settings   Settings
	classifier *classify.Classifier
}

func (s *generation) Method() suggest.Method { return suggest.MethodGeneration }

type chunkResult struct {
	items []llm.Item
	usage suggest.Usage
	err   error
}

func (s *generation) Suggest(ctx context.Context, in Input) (Output, error) {
	chunks := wordWindows(in.Segments, s.settings.ChunkWords, 0)
	if len(chunks) == 0 {
		return Output{}, errors.New("transcript has no segments")
	}

	results := make([]chunkResult, len(chunks))
	var g errgroup.Group
	g.SetLimit(s.settings.Parallelism)
	for c, sp := range chunks {
		g.Go(func() error {
			req := llm.GenerationPrompt(in.Sermon, llm.Timestamped(in.Segments[sp.first:sp.end]),
				c+1, len(chunks), s.settings.ClipsPerChunk)
			resp, err := in.Client.Complete(ctx, req)
			if err != nil {
				results[c] = chunkResult{err: err}
				return nil
			}
			items, err := llm.ParseItems(resp.Content)
			if err != nil {
				results[c] = chunkResult{usage: resp.Usage, err: fmt.Errorf("parsing generated clips: %w", err)}
				return nil
			}
			results[c] = chunkResult{items: items, usage: resp.Usage}
			return nil
		})
	}
	_ = g.Wait()

	var out Output
	var items []llm.Item
	for c, r := range results {
		out.Usage.Add(r.usage)
		if r.err != nil {
			return out, fmt.Errorf("generation chunk %d/%d: %w", c+1, len(chunks), r.err)
		}
		items = append(items, r.items...)
	}

	out.Candidates = clipsFromItems(items, in.Segments, s.classifier)
	if len(out.Candidates) == 0 {
		return out, errors.New("generation produced no clips within duration bounds")
	}
	return out, nil
}

// fullContext sends the whole transcript in one call with a doubled timeout.
type fullContext struct {
	settings   Settings
	classifier *classify.Classifier
}

func (s *fullContext) Method() suggest.Method { return suggest.MethodFullContext }

func (s *fullContext) Suggest(ctx context.Context, in Input) (Output, error) {
	if len(in.Segments) == 0 {
		return Output{}, errors.New("transcript has no segments")
	}

	transcript := llm.TruncateMiddle(llm.Timestamped(in.Segments), s.settings.FullContextChars)
	req := llm.FullContextPrompt(in.Sermon, transcript, s.settings.FullContextMinClips, s.settings.FullContextMaxClips)
	timeout := in.Provider.Timeout
	if timeout <= 0 {
		timeout = llm.DefaultTimeout
	}
	req.Timeout = 2 * timeout

	var out Output
	resp, err := in.Client.Complete(ctx, req)
	if err != nil {
		return out, err
	}
	out.Usage = resp.Usage

	items, err := llm.ParseItems(resp.Content)
	if err != nil {
		return out, fmt.Errorf("parsing full-context clips: %w", err)
	}
	out.Candidates = clipsFromItems(items, in.Segments, s.classifier)
	if len(out.Candidates) == 0 {
		return out, errors.New("full-context produced no clips within duration bounds")
	}
	return out, nil
}

// clipsFromItems snaps model ranges to segment boundaries and keeps those
// within the candidate duration bounds that carry some spoken text. Exact
// duplicates are dropped.
func clipsFromItems(items []llm.Item, segments []suggest.Segment, classifier *classify.Classifier) []suggest.Candidate {
	seen := make(map[[2]int64]bool)
	var cands []suggest.Candidate
	for pos, it := range items {
		if it.StartSec == nil || it.EndSec == nil || *it.EndSec <= *it.StartSec {
			continue
		}
		start, end, inside := suggest.SnapRange(segments, secToMs(*it.StartSec), secToMs(*it.EndSec))
		if len(inside) == 0 || end <= start {
			continue
		}
		if d := end - start; d < suggest.MinCandidateMs || d > suggest.MaxCandidateMs {
			continue
		}
		key := [2]int64{start, end}
		if seen[key] {
			continue
		}

		text := suggest.JoinText(inside)
		if classify.Normalize(text) == "" {
			continue
		}
		seen[key] = true
		res := classifier.Classify(text)
		score := it.ScoreOr(float64(100 - pos))
		normalized := score / 100
		c := suggest.Candidate{
			StartMs:     start,
			EndMs:       end,
			SegmentIDs:  suggest.SegmentIDs(inside),
			Score:       normalized,
			LLMScore:    &normalized,
			SegmentType: res.Type,
			Hooks:       res.Hooks,
			Rationale:   it.Reason,
			Theme:       it.Theme,
			UseLLM:      true,
			Trim:        it.Trim,
		}
		cands = append(cands, c)
	}
	return cands
}

func secToMs(sec float64) int64 {
	return int64(sec*1000 + 0.5)
}
