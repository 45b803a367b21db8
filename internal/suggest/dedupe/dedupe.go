// Package dedupe removes overlapping and semantically redundant candidates.
package dedupe

import (
	"github.com/killallgit/sermon-clips/internal/suggest"
)

// Config holds the dedup thresholds.
type Config struct {
	// Candidates whose temporal IoU with a kept candidate exceeds this are dropped.
	OverlapThreshold float64
	// Candidates whose mean embedding is more similar than this to a kept
	// candidate are dropped.
	SemanticThreshold float64
	// Only the first MaxSemanticCandidates are compared semantically.
	MaxSemanticCandidates int
	// MaxResults truncates the output; zero keeps everything.
	MaxResults int
}

func DefaultConfig() Config {
	return Config{
		OverlapThreshold:      0.60,
		SemanticThreshold:     0.86,
		MaxSemanticCandidates: 200,
		MaxResults:            15,
	}
}

// Dedupe runs the temporal pass, then the semantic pass when embeddings are
// present, and truncates to cfg.MaxResults. The input is not modified.
func Dedupe(cands []suggest.Candidate, embeddings map[uint][]float32, cfg Config) []suggest.Candidate {
	out := Temporal(cands, cfg.OverlapThreshold)
	if len(embeddings) > 0 {
		out = Semantic(out, embeddings, cfg.SemanticThreshold, cfg.MaxSemanticCandidates)
	}
	if cfg.MaxResults > 0 && len(out) > cfg.MaxResults {
		out = out[:cfg.MaxResults]
	}
	return out
}

// Temporal keeps the best candidate of every group whose pairwise IoU exceeds
// threshold. Ties keep the earlier start.
func Temporal(cands []suggest.Candidate, threshold float64) []suggest.Candidate {
	ordered := append([]suggest.Candidate(nil), cands...)
	suggest.SortByScore(ordered)

	kept := make([]suggest.Candidate, 0, len(ordered))
	for _, c := range ordered {
		overlaps := false
		for _, k := range kept {
			if suggest.IoU(c.StartMs, c.EndMs, k.StartMs, k.EndMs) > threshold {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, c)
		}
	}
	return kept
}

// Semantic drops candidates whose mean segment embedding is too close to a
// higher scored survivor. Candidates without any embedded segment pass.
func Semantic(cands []suggest.Candidate, embeddings map[uint][]float32, threshold float64, maxCompared int) []suggest.Candidate {
	ordered := append([]suggest.Candidate(nil), cands...)
	suggest.SortByScore(ordered)

	kept := make([]suggest.Candidate, 0, len(ordered))
	var keptVecs [][]float32
	for i, c := range ordered {
		if maxCompared > 0 && i >= maxCompared {
			kept = append(kept, c)
			continue
		}
		vec := suggest.MeanVector(c.SegmentIDs, embeddings)
		if vec == nil {
			kept = append(kept, c)
			continue
		}
		duplicate := false
		for _, kv := range keptVecs {
			if suggest.Cosine(vec, kv) > threshold {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		kept = append(kept, c)
		keptVecs = append(keptVecs, vec)
	}
	return kept
}
