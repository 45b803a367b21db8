package workers

import (
	"context"
	"fmt"

	"github.com/killallgit/sermon-clips/internal/models"
	"github.com/killallgit/sermon-clips/internal/services/embeddings"
)

// EmbeddingProcessor embeds a sermon's segments. Failures never change the
// sermon's status.
type EmbeddingProcessor struct {
	embeddingService embeddings.Service
}

func NewEmbeddingProcessor(embeddingService embeddings.Service) *EmbeddingProcessor {
	return &EmbeddingProcessor{embeddingService: embeddingService}
}

func (p *EmbeddingProcessor) CanProcess(jobType models.JobType) bool {
	return jobType == models.JobTypeEmbedding
}

func (p *EmbeddingProcessor) ProcessJob(ctx context.Context, job *models.Job) error {
	if !p.CanProcess(job.Type) {
		return fmt.Errorf("unsupported job type: %s", job.Type)
	}
	sermonID, ok := job.PayloadUint("sermon_id")
	if !ok {
		return invalidPayload("sermon_id")
	}

	n, err := p.embeddingService.EmbedSermon(ctx, sermonID)
	if err != nil {
		return classify(err, models.ErrorTypeProvider)
	}
	job.SetResult("sermon_id", sermonID)
	job.SetResult("embedded", n)
	return nil
}
