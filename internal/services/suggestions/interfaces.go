package suggestions

import (
	"context"
	"errors"

	"github.com/killallgit/sermon-clips/internal/models"
	"github.com/killallgit/sermon-clips/internal/suggest"
	"github.com/killallgit/sermon-clips/internal/suggest/dedupe"
	"github.com/killallgit/sermon-clips/internal/suggest/heuristic"
	"github.com/killallgit/sermon-clips/internal/suggest/llm"
	"github.com/killallgit/sermon-clips/internal/suggest/usage"
)

var (
	ErrSuggestionNotFound = errors.New("suggestion not found")
	// ErrRunInProgress is returned when a synchronous run is already active
	// for the sermon.
	ErrRunInProgress      = errors.New("suggestion run already in progress")
	ErrAlreadyReviewed    = errors.New("suggestion already reviewed")
	ErrInvalidComparison  = errors.New("token comparison needs both base and compare")
)

// Settings configure suggestion runs
type Settings struct {
	Heuristic          heuristic.Config
	Dedupe             dedupe.Config
	MinSuggestions     int
	AutoTrimConfidence float64

	// Defaults for sermons that do not name their own
	UseLLM          bool
	DefaultMethod   suggest.Method
	DefaultProvider suggest.Provider

	Providers map[suggest.Provider]llm.ProviderConfig
	Pricing   usage.PricingTable
}

func DefaultSettings() Settings {
	return Settings{
		Heuristic:          heuristic.DefaultConfig(),
		Dedupe:             dedupe.DefaultConfig(),
		MinSuggestions:     5,
		AutoTrimConfidence: 0.8,
		DefaultMethod:      suggest.MethodScoring,
		DefaultProvider:    suggest.ProviderDeepSeek,
		Providers:          map[suggest.Provider]llm.ProviderConfig{},
		Pricing:            usage.DefaultPricing(),
	}
}

// RunOptions override the sermon's LLM defaults for one run. Empty values
// fall back to the sermon, then to Settings.
type RunOptions struct {
	UseLLM   *bool
	Method   string
	Provider string
}

// Payload encodes the options for a suggestion job
func (o RunOptions) Payload(sermonID uint) map[string]any {
	p := map[string]any{"sermon_id": sermonID}
	if o.UseLLM != nil {
		p["use_llm"] = *o.UseLLM
	}
	if o.Method != "" {
		p["llm_method"] = o.Method
	}
	if o.Provider != "" {
		p["llm_provider"] = o.Provider
	}
	return p
}

// RunOptionsFromJob decodes the options written by Payload
func RunOptionsFromJob(job *models.Job) RunOptions {
	var o RunOptions
	if b, ok := job.PayloadBool("use_llm"); ok {
		o.UseLLM = &b
	}
	o.Method, _ = job.PayloadString("llm_method")
	o.Provider, _ = job.PayloadString("llm_provider")
	return o
}

// RunResult is the outcome of one run
type RunResult struct {
	Run         models.SuggestionRun `json:"run"`
	Suggestions []models.Clip        `json:"suggestions"`
	Warning     string               `json:"warning,omitempty"`
}

// TokenStats is the per-method usage of a sermon's live suggestions
type TokenStats struct {
	SermonID   uint                 `json:"sermon_id"`
	Methods    []usage.MethodTotals `json:"methods"`
	Comparison *usage.Comparison    `json:"comparison,omitempty"`
}

// Repository persists suggestions, feedback and run audits
type Repository interface {
	ReplaceSuggestions(ctx context.Context, sermonID uint, run *models.SuggestionRun, clips []models.Clip) error
	DeleteSuggestions(ctx context.Context, sermonID uint) (int64, error)
	ListSuggestions(ctx context.Context, sermonID uint) ([]models.Clip, error)
	GetSuggestion(ctx context.Context, id uint) (*models.Clip, error)
	SaveSuggestion(ctx context.Context, clip *models.Clip) error
	Accept(ctx context.Context, suggestion *models.Clip, manual *models.Clip, feedback *models.ClipFeedback) error
	Reject(ctx context.Context, suggestion *models.Clip, feedback *models.ClipFeedback) error
	ListRuns(ctx context.Context, sermonID uint, limit int) ([]models.SuggestionRun, error)
}

// Service runs the suggestion pipeline and handles review actions
type Service interface {
	Enqueue(ctx context.Context, sermonID uint, opts RunOptions) (*models.Job, error)
	Run(ctx context.Context, sermonID uint, opts RunOptions) (*RunResult, error)

	List(ctx context.Context, sermonID uint) ([]models.Clip, error)
	Get(ctx context.Context, id uint) (*models.Clip, error)
	DeleteAll(ctx context.Context, sermonID uint) (int64, error)
	Runs(ctx context.Context, sermonID uint, limit int) ([]models.SuggestionRun, error)

	Accept(ctx context.Context, id uint, userID string) (*models.Clip, error)
	Reject(ctx context.Context, id uint, userID string) error
	ApplyTrim(ctx context.Context, id uint) (*models.Clip, error)
	TokenStats(ctx context.Context, sermonID uint, base, compare string) (*TokenStats, error)
}
