package types

import (
	"time"

	"github.com/killallgit/sermon-clips/internal/models"
)

// JobSummary is the short job reference returned when work is queued
type JobSummary struct {
	ID       uint   `json:"id"`
	Type     string `json:"type"`
	Queue    string `json:"queue"`
	Status   string `json:"status"`
	Priority int    `json:"priority"`
}

// NewJobSummary returns nil for a nil job
func NewJobSummary(job *models.Job) *JobSummary {
	if job == nil {
		return nil
	}
	return &JobSummary{
		ID:       job.ID,
		Type:     string(job.Type),
		Queue:    job.Queue,
		Status:   string(job.Status),
		Priority: job.Priority,
	}
}

// JobStatusResponse represents job status information
type JobStatusResponse struct {
	JobID        uint           `json:"job_id"`
	Type         string         `json:"type"`
	Queue        string         `json:"queue"`
	EntityKey    string         `json:"entity_key,omitempty"`
	Status       string         `json:"status"`                  // pending, processing, completed, failed, permanently_failed, cancelled
	Progress     int            `json:"progress"`                // 0-100
	Result       map[string]any `json:"result,omitempty"`        // Processor output, e.g. run_id or output_url
	Error        string         `json:"error,omitempty"`         // Error message (only for failed status)
	ErrorType    string         `json:"error_type,omitempty"`    // download, processing, provider, system, not_found
	ErrorCode    string         `json:"error_code,omitempty"`    // e.g. "source_fetch_failed", "empty_transcript"
	ErrorDetails string         `json:"error_details,omitempty"` // Technical error details for debugging
	RetryCount   int            `json:"retry_count"`
	MaxRetries   int            `json:"max_retries"`
	RetryAfter   float64        `json:"retry_after,omitempty"` // Seconds until the next attempt
	CreatedAt    time.Time      `json:"created_at"`
	StartedAt    *time.Time     `json:"started_at,omitempty"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
}

// NewJobStatusResponse builds the status view of a job at now
func NewJobStatusResponse(job *models.Job, now time.Time) JobStatusResponse {
	resp := JobStatusResponse{
		JobID:        job.ID,
		Type:         string(job.Type),
		Queue:        job.Queue,
		EntityKey:    job.EntityKey,
		Status:       string(job.Status),
		Progress:     job.Progress,
		Result:       job.Result,
		Error:        job.Error,
		ErrorType:    job.ErrorType,
		ErrorCode:    job.ErrorCode,
		ErrorDetails: job.ErrorDetails,
		RetryCount:   job.RetryCount,
		MaxRetries:   job.MaxRetries,
		CreatedAt:    job.CreatedAt,
		StartedAt:    job.StartedAt,
		CompletedAt:  job.CompletedAt,
	}
	if job.Status == models.JobStatusFailed && job.NextRunAt != nil {
		if wait := job.NextRunAt.Sub(now); wait > 0 {
			resp.RetryAfter = wait.Seconds()
		}
	}
	return resp
}
