// Package usage prices LLM token usage and aggregates it per suggestion
// method for comparison.
package usage

import (
	"errors"
	"fmt"
	"sort"

	"github.com/killallgit/sermon-clips/internal/suggest"
)

var ErrMethodNotFound = errors.New("no usage recorded for method")

// Price is USD per million tokens. A zero CacheHitPerMillion bills cache hits
// at the prompt price.
type Price struct {
	PromptPerMillion     float64 `mapstructure:"prompt_per_million" json:"prompt_per_million"`
	CompletionPerMillion float64 `mapstructure:"completion_per_million" json:"completion_per_million"`
	CacheHitPerMillion   float64 `mapstructure:"cache_hit_per_million" json:"cache_hit_per_million"`
}

// PricingTable is keyed by "provider/method" or "provider".
type PricingTable map[string]Price

// DefaultPricing returns the documented defaults.
func DefaultPricing() PricingTable {
	return PricingTable{
		"deepseek": {PromptPerMillion: 0.14, CompletionPerMillion: 0.28, CacheHitPerMillion: 0.014},
		"openai":   {PromptPerMillion: 0.15, CompletionPerMillion: 0.60, CacheHitPerMillion: 0.075},
	}
}

// Lookup finds the most specific price for provider and method.
func (p PricingTable) Lookup(provider suggest.Provider, method suggest.Method) (Price, bool) {
	if price, ok := p[string(provider)+"/"+string(method)]; ok {
		return price, true
	}
	price, ok := p[string(provider)]
	return price, ok
}

// Cost estimates the USD cost of u. Cache hits are billed at the cache price
// and the rest of the prompt at the prompt price.
func (p PricingTable) Cost(provider suggest.Provider, method suggest.Method, u suggest.Usage) float64 {
	price, ok := p.Lookup(provider, method)
	if !ok {
		return 0
	}
	hitPrice := price.CacheHitPerMillion
	if hitPrice == 0 {
		hitPrice = price.PromptPerMillion
	}
	hits := min(u.CacheHitTokens, u.PromptTokens)
	uncached := u.PromptTokens - hits
	return (float64(uncached)*price.PromptPerMillion +
		float64(hits)*hitPrice +
		float64(u.CompletionTokens)*price.CompletionPerMillion) / 1_000_000
}

// Split divides a run's usage over n suggestions. Token remainders go to the
// first rows so the parts sum exactly to the total, and every part keeps
// total == prompt + completion.
func Split(total suggest.Usage, n int) []suggest.Usage {
	if n <= 0 {
		return nil
	}
	prompt := splitInt(total.PromptTokens, n)
	completion := splitInt(total.CompletionTokens, n)
	hits := splitInt(total.CacheHitTokens, n)
	misses := splitInt(total.CacheMissTokens, n)

	parts := make([]suggest.Usage, n)
	var costSoFar float64
	for i := range parts {
		parts[i] = suggest.Usage{
			PromptTokens:     prompt[i],
			CompletionTokens: completion[i],
			CacheHitTokens:   hits[i],
			CacheMissTokens:  misses[i],
			TotalTokens:      prompt[i] + completion[i],
		}
		if i == n-1 {
			parts[i].CostUSD = total.CostUSD - costSoFar
		} else {
			parts[i].CostUSD = total.CostUSD / float64(n)
			costSoFar += parts[i].CostUSD
		}
	}
	return parts
}

func splitInt(v int64, n int) []int64 {
	out := make([]int64, n)
	base, rem := v/int64(n), v%int64(n)
	for i := range out {
		out[i] = base
		if int64(i) < rem {
			out[i]++
		}
	}
	return out
}

// MethodTotals is the aggregate usage of one method.
type MethodTotals struct {
	Method           string  `json:"method"`
	Clips            int     `json:"clips"`
	PromptTokens     int64   `json:"prompt_tokens"`
	CompletionTokens int64   `json:"completion_tokens"`
	OutputTokens     int64   `json:"output_tokens"`
	CacheHitTokens   int64   `json:"cache_hit_tokens"`
	CacheMissTokens  int64   `json:"cache_miss_tokens"`
	TotalTokens      int64   `json:"total_tokens"`
	CostUSD          float64 `json:"estimated_cost_usd"`
}

// Comparison is compare minus base.
type Comparison struct {
	Base             string   `json:"base"`
	Compare          string   `json:"compare"`
	TokenDelta       int64    `json:"token_delta"`
	TokenPctIncrease *float64 `json:"token_pct_increase"`
	CostDeltaUSD     float64  `json:"cost_delta_usd"`
}

// defaultPairs is the order in which a comparison is chosen when the caller
// names none.
var defaultPairs = [][2]suggest.Method{
	{suggest.MethodSelection, suggest.MethodFullContext},
	{suggest.MethodGeneration, suggest.MethodFullContext},
	{suggest.MethodScoring, suggest.MethodFullContext},
	{suggest.MethodSelection, suggest.MethodGeneration},
	{suggest.MethodScoring, suggest.MethodSelection},
	{suggest.MethodScoring, suggest.MethodGeneration},
}

// Ledger accumulates per-method usage. It is not safe for concurrent use.
type Ledger struct {
	totals map[string]*MethodTotals
}

func NewLedger() *Ledger {
	return &Ledger{totals: make(map[string]*MethodTotals)}
}

// Add records one suggestion's usage under method.
func (l *Ledger) Add(method string, u suggest.Usage) {
	t, ok := l.totals[method]
	if !ok {
		t = &MethodTotals{Method: method}
		l.totals[method] = t
	}
	t.Clips++
	t.PromptTokens += u.PromptTokens
	t.CompletionTokens += u.CompletionTokens
	t.OutputTokens += u.CompletionTokens
	t.CacheHitTokens += u.CacheHitTokens
	t.CacheMissTokens += u.CacheMissTokens
	t.TotalTokens += u.TotalTokens
	t.CostUSD += u.CostUSD
}

// Totals returns every method's totals ordered by method name.
func (l *Ledger) Totals() []MethodTotals {
	out := make([]MethodTotals, 0, len(l.totals))
	for _, t := range l.totals {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Method < out[j].Method })
	return out
}

// Compare diffs two methods. The percentage is nil when the base used no tokens.
func (l *Ledger) Compare(base, compare string) (Comparison, error) {
	b, ok := l.totals[base]
	if !ok {
		return Comparison{}, fmt.Errorf("%w: %s", ErrMethodNotFound, base)
	}
	c, ok := l.totals[compare]
	if !ok {
		return Comparison{}, fmt.Errorf("%w: %s", ErrMethodNotFound, compare)
	}

	cmp := Comparison{
		Base:         base,
		Compare:      compare,
		TokenDelta:   c.TotalTokens - b.TotalTokens,
		CostDeltaUSD: c.CostUSD - b.CostUSD,
	}
	if b.TotalTokens != 0 {
		pct := float64(cmp.TokenDelta) / float64(b.TotalTokens) * 100
		cmp.TokenPctIncrease = &pct
	}
	return cmp, nil
}

// DefaultPair returns the first preset pair with both methods present.
func (l *Ledger) DefaultPair() (string, string, bool) {
	for _, p := range defaultPairs {
		_, okBase := l.totals[string(p[0])]
		_, okCompare := l.totals[string(p[1])]
		if okBase && okCompare {
			return string(p[0]), string(p[1]), true
		}
	}
	return "", "", false
}
