package types

import "github.com/killallgit/sermon-clips/internal/models"

// Status constants for API responses
const (
	StatusOK     = "ok"
	StatusError  = "error"
	StatusQueued = "queued"
)

// BaseResponse contains fields common to all API responses
type BaseResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse for detailed error information
type ErrorResponse struct {
	Status  string         `json:"status"`
	Code    string         `json:"code,omitempty"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// SermonResponse wraps a single sermon
type SermonResponse struct {
	BaseResponse
	Sermon *models.Sermon `json:"sermon"`
	Job    *JobSummary    `json:"job,omitempty"`
}

// SermonsResponse is one page of sermons
type SermonsResponse struct {
	BaseResponse
	Sermons []models.Sermon `json:"sermons"`
	Total   int64           `json:"total"`
	Page    int             `json:"page"`
	Limit   int             `json:"limit"`
}

// SegmentsResponse lists a sermon's transcript segments
type SegmentsResponse struct {
	BaseResponse
	SermonID uint                       `json:"sermon_id"`
	Segments []models.TranscriptSegment `json:"segments"`
	Count    int                        `json:"count"`
}

// ClipResponse wraps a single clip or suggestion
type ClipResponse struct {
	BaseResponse
	Clip *models.Clip `json:"clip"`
	Job  *JobSummary  `json:"job,omitempty"`
}

// ClipsResponse lists clips or suggestions
type ClipsResponse struct {
	BaseResponse
	Clips []models.Clip `json:"clips"`
	Count int           `json:"count"`
}

// RunsResponse lists suggestion run audits, newest first
type RunsResponse struct {
	BaseResponse
	Runs []models.SuggestionRun `json:"runs"`
}

// JobAcceptedResponse is returned with 202 when work was queued
type JobAcceptedResponse struct {
	BaseResponse
	Job JobSummary `json:"job"`
}
