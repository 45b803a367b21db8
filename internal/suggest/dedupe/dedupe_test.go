package dedupe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/killallgit/sermon-clips/internal/suggest"
)

func cand(start, end int64, score float64, ids ...uint) suggest.Candidate {
	return suggest.Candidate{StartMs: start, EndMs: end, Score: score, HeuristicScore: score, SegmentIDs: ids}
}

func TestTemporalOverlapKeepsHigherScore(t *testing.T) {
	a := cand(0, 60000, 0.6)
	b := cand(10000, 70000, 0.8)

	out := Temporal([]suggest.Candidate{a, b}, 0.6)
	require.Len(t, out, 1)
	assert.Equal(t, int64(10000), out[0].StartMs)
}

func TestTemporalTieKeepsEarlierStart(t *testing.T) {
	a := cand(10000, 70000, 0.7)
	b := cand(0, 60000, 0.7)

	out := Temporal([]suggest.Candidate{a, b}, 0.6)
	require.Len(t, out, 1)
	assert.Equal(t, int64(0), out[0].StartMs)
}

func TestTemporalBelowThresholdKeepsBoth(t *testing.T) {
	a := cand(0, 60000, 0.6)
	b := cand(20000, 80000, 0.8)

	out := Temporal([]suggest.Candidate{a, b}, 0.6)
	assert.Len(t, out, 2)
	assert.Equal(t, 0.8, out[0].Score)
}

func TestTemporalNoSurvivingPairOverlaps(t *testing.T) {
	var cands []suggest.Candidate
	for i := int64(0); i < 60; i++ {
		start := i * 4000
		cands = append(cands, cand(start, start+30000+(i%5)*15000, float64((i*37)%100)/100))
	}

	out := Temporal(cands, 0.6)
	require.NotEmpty(t, out)
	for i := range out {
		for j := i + 1; j < len(out); j++ {
			iou := suggest.IoU(out[i].StartMs, out[i].EndMs, out[j].StartMs, out[j].EndMs)
			assert.LessOrEqual(t, iou, 0.6)
		}
	}
}

func TestSemantic(t *testing.T) {
	emb := map[uint][]float32{
		1: {1, 0, 0},
		2: {0.98, 0.05, 0},
		3: {0, 1, 0},
	}
	cands := []suggest.Candidate{
		cand(0, 40000, 0.9, 1),
		cand(200000, 240000, 0.8, 2),
		cand(400000, 440000, 0.7, 3),
		cand(600000, 640000, 0.6, 9),
	}

	out := Semantic(cands, emb, 0.86, 200)
	require.Len(t, out, 3)
	assert.Equal(t, int64(0), out[0].StartMs)
	assert.Equal(t, int64(400000), out[1].StartMs)
	assert.Equal(t, int64(600000), out[2].StartMs, "candidates without vectors pass through")
}

func TestSemanticComparisonCap(t *testing.T) {
	emb := map[uint][]float32{1: {1, 0}, 2: {1, 0}}
	cands := []suggest.Candidate{
		cand(0, 40000, 0.9, 1),
		cand(200000, 240000, 0.8, 2),
	}

	assert.Len(t, Semantic(cands, emb, 0.86, 200), 1)
	assert.Len(t, Semantic(cands, emb, 0.86, 1), 2)
}

func TestDedupe(t *testing.T) {
	var cands []suggest.Candidate
	for i := int64(0); i < 30; i++ {
		start := i * 100000
		cands = append(cands, cand(start, start+45000, 1-float64(i)/100, uint(i+1)))
	}
	cands = append(cands, cand(5000, 50000, 0.1, 1))

	out := Dedupe(cands, nil, DefaultConfig())
	assert.Len(t, out, 15)
	assert.Equal(t, int64(0), out[0].StartMs)

	cfg := DefaultConfig()
	cfg.MaxResults = 0
	assert.Len(t, Dedupe(cands, nil, cfg), 30)
}

func TestDedupeDoesNotMutateInput(t *testing.T) {
	cands := []suggest.Candidate{cand(10000, 70000, 0.5), cand(0, 60000, 0.9)}
	_ = Dedupe(cands, nil, DefaultConfig())
	assert.Equal(t, int64(10000), cands[0].StartMs)
}
