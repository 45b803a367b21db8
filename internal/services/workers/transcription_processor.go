package workers

import (
	"context"
	"fmt"
	"log"

	"github.com/killallgit/sermon-clips/internal/models"
	"github.com/killallgit/sermon-clips/internal/services/jobs"
	"github.com/killallgit/sermon-clips/internal/services/sermons"
)

// TranscriptionProcessor fetches and stores a sermon's transcript
type TranscriptionProcessor struct {
	jobService    jobs.Service
	sermonService sermons.Service
}

func NewTranscriptionProcessor(jobService jobs.Service, sermonService sermons.Service) *TranscriptionProcessor {
	return &TranscriptionProcessor{jobService: jobService, sermonService: sermonService}
}

// CanProcess returns true if this processor can handle the job type
func (p *TranscriptionProcessor) CanProcess(jobType models.JobType) bool {
	return jobType == models.JobTypeTranscription
}

// ProcessJob transcribes the sermon. On the last attempt the sermon is
// moved to error.
func (p *TranscriptionProcessor) ProcessJob(ctx context.Context, job *models.Job) error {
	if !p.CanProcess(job.Type) {
		return fmt.Errorf("unsupported job type: %s", job.Type)
	}
	sermonID, ok := job.PayloadUint("sermon_id")
	if !ok {
		return invalidPayload("sermon_id")
	}

	log.Printf("[DEBUG] Processing transcription job %d for sermon %d", job.ID, sermonID)
	if err := p.jobService.UpdateProgress(ctx, job.ID, 10); err != nil {
		log.Printf("[WARN] Failed to update job progress: %v", err)
	}

	n, err := p.sermonService.Transcribe(ctx, sermonID)
	if err != nil {
		jobErr := classify(err, models.ErrorTypeDownload)
		if finalAttempt(job, jobErr) {
			if failErr := p.sermonService.Fail(ctx, sermonID, jobErr.Message); failErr != nil {
				log.Printf("[ERROR] Failed to mark sermon %d as error: %v", sermonID, failErr)
			}
		}
		return jobErr
	}

	job.SetResult("sermon_id", sermonID)
	job.SetResult("segments", n)
	return nil
}
