package workers

import (
	"context"
	"fmt"

	"github.com/killallgit/sermon-clips/internal/models"
	"github.com/killallgit/sermon-clips/internal/services/suggestions"
)

// SuggestionProcessor runs a suggestion job. LLM trouble never fails the
// job; only storage and lifecycle errors do.
type SuggestionProcessor struct {
	suggestionService suggestions.Service
}

func NewSuggestionProcessor(suggestionService suggestions.Service) *SuggestionProcessor {
	return &SuggestionProcessor{suggestionService: suggestionService}
}

func (p *SuggestionProcessor) CanProcess(jobType models.JobType) bool {
	return jobType == models.JobTypeSuggestion
}

func (p *SuggestionProcessor) ProcessJob(ctx context.Context, job *models.Job) error {
	if !p.CanProcess(job.Type) {
		return fmt.Errorf("unsupported job type: %s", job.Type)
	}
	sermonID, ok := job.PayloadUint("sermon_id")
	if !ok {
		return invalidPayload("sermon_id")
	}

	result, err := p.suggestionService.Run(ctx, sermonID, suggestions.RunOptionsFromJob(job))
	if err != nil {
		return classify(err, models.ErrorTypeProcessing)
	}

	job.SetResult("sermon_id", sermonID)
	job.SetResult("run_id", result.Run.ID)
	job.SetResult("suggestions", len(result.Suggestions))
	job.SetResult("used_llm", result.Run.UsedLLM)
	job.SetResult("total_tokens", result.Run.TotalTokens)
	if result.Run.FallbackReason != "" {
		job.SetResult("fallback_reason", result.Run.FallbackReason)
	}
	if result.Warning != "" {
		job.SetResult("warning", result.Warning)
	}
	return nil
}
