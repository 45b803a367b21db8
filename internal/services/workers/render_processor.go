package workers

import (
	"context"
	"fmt"
	"log"

	"github.com/killallgit/sermon-clips/internal/models"
	"github.com/killallgit/sermon-clips/internal/services/clips"
)

// RenderProcessor renders a manual clip for both render queues
type RenderProcessor struct {
	clipService clips.Service
}

func NewRenderProcessor(clipService clips.Service) *RenderProcessor {
	return &RenderProcessor{clipService: clipService}
}

func (p *RenderProcessor) CanProcess(jobType models.JobType) bool {
	return jobType == models.JobTypeRender
}

func (p *RenderProcessor) ProcessJob(ctx context.Context, job *models.Job) error {
	if !p.CanProcess(job.Type) {
		return fmt.Errorf("unsupported job type: %s", job.Type)
	}
	clipID, ok := job.PayloadUint("clip_id")
	if !ok {
		return invalidPayload("clip_id")
	}
	renderType, _ := job.PayloadString("render_type")

	clip, err := p.clipService.RenderClip(ctx, clipID, renderType)
	if err != nil {
		jobErr := classify(err, models.ErrorTypeProcessing)
		if finalAttempt(job, jobErr) {
			if failErr := p.clipService.Fail(ctx, clipID, jobErr.Message); failErr != nil {
				log.Printf("[WARN] Failed to mark clip %d as error: %v", clipID, failErr)
			}
		}
		return jobErr
	}

	job.SetResult("clip_id", clip.ID)
	job.SetResult("render_type", clip.RenderType)
	job.SetResult("output_url", clip.OutputURL)
	return nil
}
