package strategy

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/killallgit/sermon-clips/internal/suggest"
	"github.com/killallgit/sermon-clips/internal/suggest/llm"
)

// selection lets the model pick the best candidates inside overlapping
// transcript windows, then backfills from the heuristic ranking.
type selection struct {
	settings Settings
}

func (s *selection) Method() suggest.Method { return suggest.MethodSelection }

// span is a half-open range of segment indexes.
type span struct {
	first, end int
}

// wordWindows groups segments into spans of about size words, each starting
// overlap words before the previous one ended.
func wordWindows(segs []suggest.Segment, size, overlap int) []span {
	if len(segs) == 0 || size <= 0 {
		return nil
	}
	words := make([]int, len(segs))
	for i, seg := range segs {
		words[i] = len(strings.Fields(seg.Text))
	}

	var spans []span
	first := 0
	for first < len(segs) {
		end, count := first, 0
		for end < len(segs) && (count == 0 || count+words[end] <= size) {
			count += words[end]
			end++
		}
		spans = append(spans, span{first: first, end: end})
		if end >= len(segs) {
			break
		}

		next, back := end, 0
		for next-1 > first && back+words[next-1] <= overlap {
			next--
			back += words[next]
		}
		first = next
	}
	return spans
}

type windowResult struct {
	picks []llm.Item
	usage suggest.Usage
	err   error
}

func (s *selection) Suggest(ctx context.Context, in Input) (Output, error) {
	if len(in.Candidates) == 0 {
		return Output{}, nil
	}

	type window struct {
		text  string
		cands []int
	}
	var windows []window
	for _, sp := range wordWindows(in.Segments, s.settings.WindowWords, s.settings.WindowOverlapWords) {
		startMs, endMs := in.Segments[sp.first].StartMs, in.Segments[sp.end-1].EndMs
		var inside []int
		for i, c := range in.Candidates {
			if c.StartMs >= startMs && c.EndMs <= endMs {
				inside = append(inside, i)
				if len(inside) == s.settings.CandidatesPerWindow {
					break
				}
			}
		}
		if len(inside) == 0 {
			continue
		}
		windows = append(windows, window{text: suggest.JoinText(in.Segments[sp.first:sp.end]), cands: inside})
	}
	if len(windows) == 0 {
		return Output{}, errors.New("no transcript window contains a candidate")
	}

	results := make([]windowResult, len(windows))
	var g errgroup.Group
	g.SetLimit(s.settings.Parallelism)
	for w, win := range windows {
		g.Go(func() error {
			prompt := make([]llm.PromptCandidate, 0, len(win.cands))
			for _, i := range win.cands {
				c := in.Candidates[i]
				text := suggest.JoinText(suggest.SegmentsIn(in.Segments, c.StartMs, c.EndMs))
				prompt = append(prompt, llm.NewPromptCandidate(candidateID(i), c, text, promptTextChars))
			}
			resp, err := in.Client.Complete(ctx, llm.SelectionPrompt(win.text, prompt, s.settings.SelectionTarget))
			if err != nil {
				results[w] = windowResult{err: err}
				return nil
			}
			items, err := llm.ParseItems(resp.Content)
			if err != nil {
				results[w] = windowResult{usage: resp.Usage, err: fmt.Errorf("parsing selections: %w", err)}
				return nil
			}
			results[w] = windowResult{picks: items, usage: resp.Usage}
			return nil
		})
	}
	_ = g.Wait()

	var out Output
	var failures []error
	picked := make(map[int]llm.Item)
	for w, r := range results {
		out.Usage.Add(r.usage)
		if r.err != nil {
			log.Printf("[WARN] Selection window %d/%d failed: %v", w+1, len(windows), r.err)
			failures = append(failures, r.err)
			continue
		}
		valid := make(map[string]int, len(windows[w].cands))
		for _, i := range windows[w].cands {
			valid[candidateID(i)] = i
		}
		for pos, it := range r.picks {
			i, ok := valid[it.ID]
			if !ok {
				continue
			}
			score := it.ScoreOr(float64(100 - pos))
			it.Score = &score
			if prev, seen := picked[i]; !seen || *prev.Score < score {
				picked[i] = it
			}
		}
	}
	if len(failures) == len(windows) {
		return out, fmt.Errorf("all %d selection windows failed: %w", len(windows), errors.Join(failures...))
	}
	if len(picked) == 0 {
		return out, errors.New("selection returned no known candidate ids")
	}
	out.Partial = len(failures) > 0

	for i, c := range in.Candidates {
		it, ok := picked[i]
		if !ok {
			continue
		}
		final, normalized := blend(s.settings.HeuristicWeight, c.HeuristicScore, *it.Score)
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

	for i, c := range in.Candidates {
		if len(out.Candidates) >= s.settings.SelectionTarget {
			break
		}
		if _, ok := picked[i]; ok {
			continue
		}
		out.Candidates = append(out.Candidates, asHeuristic(c))
	}
	return out, nil
}
