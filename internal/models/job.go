package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// JobStatus represents the status of a job in the queue
type JobStatus string

const (
	JobStatusPending           JobStatus = "pending"
	JobStatusProcessing        JobStatus = "processing"
	JobStatusCompleted         JobStatus = "completed"
	JobStatusFailed            JobStatus = "failed"
	JobStatusPermanentlyFailed JobStatus = "permanently_failed"
	JobStatusCancelled         JobStatus = "cancelled"
)

// JobType represents the type of job to be processed
type JobType string

const (
	JobTypeTranscription JobType = "transcription"
	JobTypeEmbedding     JobType = "embedding"
	JobTypeSuggestion    JobType = "suggestion"
	JobTypeRender        JobType = "render"
)

// Queue names. Each queue has its own worker pool.
const (
	QueueTranscription = "transcription"
	QueueSuggestion    = "suggestion"
	QueueEmbedding     = "embedding"
	QueueRenderPreview = "render_preview"
	QueueRenderFinal   = "render_final"
	QueueDefault       = "default"
)

// Queues lists every queue in the order pools are started.
var Queues = []string{
	QueueTranscription, QueueSuggestion, QueueEmbedding,
	QueueRenderPreview, QueueRenderFinal, QueueDefault,
}

// QueuePriority is the default priority (0-9) of jobs on each queue.
var QueuePriority = map[string]int{
	QueueTranscription: 7,
	QueueSuggestion:    5,
	QueueEmbedding:     3,
	QueueRenderPreview: 8,
	QueueRenderFinal:   4,
	QueueDefault:       5,
}

// QueueFor routes a job type to its queue. renderType only matters for
// render jobs.
func QueueFor(jobType JobType, renderType string) string {
	switch jobType {
	case JobTypeTranscription:
		return QueueTranscription
	case JobTypeSuggestion:
		return QueueSuggestion
	case JobTypeEmbedding:
		return QueueEmbedding
	case JobTypeRender:
		if renderType == RenderTypeFinal {
			return QueueRenderFinal
		}
		return QueueRenderPreview
	default:
		return QueueDefault
	}
}

// EntityKey identifies the entity a job works on, e.g. "suggestion:sermon:12".
func EntityKey(jobType JobType, entity string, id uint) string {
	return fmt.Sprintf("%s:%s:%d", jobType, entity, id)
}

// JobErrorType represents the category of error that occurred
type JobErrorType string

const (
	ErrorTypeDownload   JobErrorType = "download"   // Source media or transcript fetch failed
	ErrorTypeProcessing JobErrorType = "processing" // Parsing, rendering or pipeline failure
	ErrorTypeProvider   JobErrorType = "provider"   // Embedding or transcription provider failure
	ErrorTypeSystem     JobErrorType = "system"     // Database, worker, or other system error
	ErrorTypeNotFound   JobErrorType = "not_found"  // Entity gone; never retried
)

// StructuredJobError represents a structured error with classification information
type StructuredJobError struct {
	Type     JobErrorType
	Code     string
	Message  string
	Details  string
	Original error
}

func (e *StructuredJobError) Error() string {
	return e.Message
}

func (e *StructuredJobError) Unwrap() error {
	return e.Original
}

// Permanent reports whether retrying cannot help.
func (e *StructuredJobError) Permanent() bool {
	return e.Type == ErrorTypeNotFound
}

// NewJobError builds a classified job error. Details default to the
// original error text.
func NewJobError(errorType JobErrorType, code, message string, originalErr error) *StructuredJobError {
	details := ""
	if originalErr != nil {
		details = originalErr.Error()
	}
	return &StructuredJobError{
		Type:     errorType,
		Code:     code,
		Message:  message,
		Details:  details,
		Original: originalErr,
	}
}

// NewNotFoundError creates a not-found error that should result in permanent failure
func NewNotFoundError(code, message string) *StructuredJobError {
	return &StructuredJobError{Type: ErrorTypeNotFound, Code: code, Message: message}
}

// Job represents a background job in the queue
type Job struct {
	gorm.Model
	Type         JobType           `json:"type" gorm:"not null;index:idx_jobs_type_status"`
	Queue        string            `json:"queue" gorm:"size:30;default:'default';index:idx_jobs_queue_status"`
	Status       JobStatus         `json:"status" gorm:"default:'pending';index:idx_jobs_type_status;index:idx_jobs_queue_status"`
	EntityKey    string            `json:"entity_key,omitempty" gorm:"size:100;index"`
	Payload      datatypes.JSONMap `json:"payload"`
	Priority     int               `json:"priority" gorm:"default:5"`
	MaxRetries   int               `json:"max_retries" gorm:"default:3"`
	RetryCount   int               `json:"retry_count" gorm:"default:0"`
	Progress     int               `json:"progress" gorm:"default:0"` // 0-100
	NextRunAt    *time.Time        `json:"next_run_at,omitempty" gorm:"index"`
	StartedAt    *time.Time        `json:"started_at"`
	CompletedAt  *time.Time        `json:"completed_at"`
	LastFailedAt *time.Time        `json:"last_failed_at"`
	Error        string            `json:"error,omitempty"`
	Result       datatypes.JSONMap `json:"result,omitempty"`
	WorkerID     string            `json:"worker_id,omitempty"`

	// Error classification fields
	ErrorType    string `json:"error_type,omitempty"`
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorDetails string `json:"error_details,omitempty"`

	CreatedBy string `json:"created_by,omitempty"`
}

// IsRetryable returns true if the job can be retried
func (j *Job) IsRetryable() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// IsTerminal returns true if the job is in a terminal state
func (j *Job) IsTerminal() bool {
	return j.Status == JobStatusCompleted ||
		j.Status == JobStatusCancelled ||
		j.Status == JobStatusPermanentlyFailed ||
		(j.Status == JobStatusFailed && !j.IsRetryable())
}

// PayloadUint reads a numeric payload value. Payloads loaded from the
// database hold json.Number; freshly built ones hold Go integers.
func (j *Job) PayloadUint(key string) (uint, bool) {
	if j.Payload == nil {
		return 0, false
	}
	switch v := j.Payload[key].(type) {
	case json.Number:
		n, err := v.Int64()
		if err != nil || n < 0 {
			return 0, false
		}
		return uint(n), true
	case float64:
		if v < 0 {
			return 0, false
		}
		return uint(v), true
	case int:
		return uint(v), v >= 0
	case int64:
		return uint(v), v >= 0
	case uint:
		return v, true
	default:
		return 0, false
	}
}

// PayloadString reads a string payload value.
func (j *Job) PayloadString(key string) (string, bool) {
	if j.Payload == nil {
		return "", false
	}
	s, ok := j.Payload[key].(string)
	return s, ok
}

// PayloadBool reads a boolean payload value.
func (j *Job) PayloadBool(key string) (bool, bool) {
	if j.Payload == nil {
		return false, false
	}
	b, ok := j.Payload[key].(bool)
	return b, ok
}

// SetResult sets a result value
func (j *Job) SetResult(key string, value any) {
	if j.Result == nil {
		j.Result = make(datatypes.JSONMap)
	}
	j.Result[key] = value
}

// TableName specifies the table name for GORM
func (Job) TableName() string {
	return "jobs"
}
