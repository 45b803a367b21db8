package usage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/killallgit/sermon-clips/internal/suggest"
)

func TestPricingLookup(t *testing.T) {
	table := PricingTable{
		"deepseek":              {PromptPerMillion: 1, CompletionPerMillion: 2},
		"deepseek/full-context": {PromptPerMillion: 3, CompletionPerMillion: 4},
	}

	p, ok := table.Lookup(suggest.ProviderDeepSeek, suggest.MethodFullContext)
	require.True(t, ok)
	assert.Equal(t, 3.0, p.PromptPerMillion)

	p, ok = table.Lookup(suggest.ProviderDeepSeek, suggest.MethodScoring)
	require.True(t, ok)
	assert.Equal(t, 1.0, p.PromptPerMillion)

	_, ok = table.Lookup(suggest.ProviderOpenAI, suggest.MethodScoring)
	assert.False(t, ok)
}

func TestCost(t *testing.T) {
	table := PricingTable{
		"deepseek": {PromptPerMillion: 0.14, CompletionPerMillion: 0.28, CacheHitPerMillion: 0.014},
		"openai":   {PromptPerMillion: 1.0, CompletionPerMillion: 2.0},
	}

	u := suggest.Usage{PromptTokens: 1_000_000, CompletionTokens: 500_000, CacheHitTokens: 400_000}
	assert.InDelta(t, 0.6*0.14+0.4*0.014+0.5*0.28, table.Cost(suggest.ProviderDeepSeek, suggest.MethodScoring, u), 1e-12)

	// Without a cache price, hits are billed as prompt tokens.
	assert.InDelta(t, 1.0+1.0, table.Cost(suggest.ProviderOpenAI, suggest.MethodScoring, u), 1e-12)

	assert.Equal(t, 0.0, PricingTable{}.Cost(suggest.ProviderOpenAI, suggest.MethodScoring, u))
}

func TestSplit(t *testing.T) {
	total := suggest.Usage{
		PromptTokens:     1001,
		CompletionTokens: 302,
		CacheHitTokens:   7,
		CacheMissTokens:  994,
		TotalTokens:      1303,
		CostUSD:          0.01,
	}

	parts := Split(total, 3)
	require.Len(t, parts, 3)

	var sum suggest.Usage
	for _, p := range parts {
		assert.Equal(t, p.PromptTokens+p.CompletionTokens, p.TotalTokens)
		assert.GreaterOrEqual(t, p.CacheHitTokens, int64(0))
		sum.Add(p)
	}
	assert.Equal(t, total.PromptTokens, sum.PromptTokens)
	assert.Equal(t, total.CompletionTokens, sum.CompletionTokens)
	assert.Equal(t, total.CacheHitTokens, sum.CacheHitTokens)
	assert.Equal(t, total.CacheMissTokens, sum.CacheMissTokens)
	assert.Equal(t, total.TotalTokens, sum.TotalTokens)
	assert.InDelta(t, total.CostUSD, sum.CostUSD, 1e-15)

	assert.Equal(t, int64(334), parts[0].PromptTokens)
	assert.Equal(t, int64(333), parts[2].PromptTokens)

	assert.Nil(t, Split(total, 0))
}

func TestLedgerTotalsAndCompare(t *testing.T) {
	l := NewLedger()
	l.Add("selection", suggest.Usage{PromptTokens: 800, CompletionTokens: 200, TotalTokens: 1000, CostUSD: 0.001})
	l.Add("selection", suggest.Usage{PromptTokens: 800, CompletionTokens: 200, TotalTokens: 1000, CostUSD: 0.001})
	l.Add("full-context", suggest.Usage{PromptTokens: 4000, CompletionTokens: 1000, TotalTokens: 5000, CostUSD: 0.005})

	totals := l.Totals()
	require.Len(t, totals, 2)
	assert.Equal(t, "full-context", totals[0].Method)
	assert.Equal(t, 2, totals[1].Clips)
	assert.Equal(t, int64(2000), totals[1].TotalTokens)
	assert.Equal(t, int64(400), totals[1].OutputTokens)

	base, compare, ok := l.DefaultPair()
	require.True(t, ok)
	assert.Equal(t, "selection", base)
	assert.Equal(t, "full-context", compare)

	cmp, err := l.Compare(base, compare)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), cmp.TokenDelta)
	require.NotNil(t, cmp.TokenPctIncrease)
	assert.InDelta(t, 150.0, *cmp.TokenPctIncrease, 1e-9)
	assert.InDelta(t, 0.003, cmp.CostDeltaUSD, 1e-12)
}

func TestLedgerCompareZeroBase(t *testing.T) {
	l := NewLedger()
	l.Add("scoring", suggest.Usage{})
	l.Add("generation", suggest.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15})

	cmp, err := l.Compare("scoring", "generation")
	require.NoError(t, err)
	assert.Equal(t, int64(15), cmp.TokenDelta)
	assert.Nil(t, cmp.TokenPctIncrease)

	_, err = l.Compare("scoring", "selection")
	assert.ErrorIs(t, err, ErrMethodNotFound)
}

func TestDefaultPairPrecedence(t *testing.T) {
	tests := []struct {
		name        string
		methods     []string
		wantBase    string
		wantCompare string
		wantOK      bool
	}{
		{"none", nil, "", "", false},
		{"single", []string{"scoring"}, "", "", false},
		{"generation and full", []string{"generation", "full-context"}, "generation", "full-context", true},
		{"scoring and selection", []string{"selection", "scoring"}, "scoring", "selection", true},
		{"all", []string{"scoring", "selection", "generation", "full-context"}, "selection", "full-context", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLedger()
			for _, m := range tt.methods {
				l.Add(m, suggest.Usage{})
			}
			base, compare, ok := l.DefaultPair()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantBase, base)
			assert.Equal(t, tt.wantCompare, compare)
		})
	}
}
