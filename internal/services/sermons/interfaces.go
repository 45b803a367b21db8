package sermons

import (
	"context"
	"errors"

	"github.com/killallgit/sermon-clips/internal/models"
	"github.com/killallgit/sermon-clips/internal/suggest"
)

var (
	ErrSermonNotFound = errors.New("sermon not found")
	// ErrNoTranscriptSource means a sermon has neither a transcript URL nor
	// imported segments, so transcription can never succeed.
	ErrNoTranscriptSource = errors.New("sermon has no transcript source")
	ErrEmptyTranscript    = errors.New("transcript has no usable segments")
	ErrInvalidSermon      = errors.New("invalid sermon")
)

// Repository is the data access layer for sermons and their segments
type Repository interface {
	Create(ctx context.Context, sermon *models.Sermon) error
	Get(ctx context.Context, id uint) (*models.Sermon, error)
	List(ctx context.Context, page, limit int) ([]models.Sermon, int64, error)
	Save(ctx context.Context, sermon *models.Sermon) error
	// Delete removes the sermon with its clips, feedback, segments and
	// embeddings in one transaction.
	Delete(ctx context.Context, id uint) error

	// Segment store
	Segments(ctx context.Context, sermonID uint) ([]models.TranscriptSegment, error)
	SegmentCount(ctx context.Context, sermonID uint) (int64, error)
	// StoreTranscript replaces the sermon's segments and saves the sermon in
	// one transaction.
	StoreTranscript(ctx context.Context, sermon *models.Sermon, segments []models.TranscriptSegment) error
	// ResetDerived deletes segments, embeddings and auto suggestions and
	// saves the sermon in one transaction.
	ResetDerived(ctx context.Context, sermon *models.Sermon) error

	Embeddings(ctx context.Context, sermonID uint) ([]models.SegmentEmbedding, error)
}

// Transcriber produces timestamped segments for a sermon
type Transcriber interface {
	Transcribe(ctx context.Context, sermon *models.Sermon) ([]suggest.Segment, error)
}

// CreateRequest holds the fields accepted when registering a sermon
type CreateRequest struct {
	Title            string `json:"title" binding:"required"`
	Preacher         string `json:"preacher"`
	SourceURL        string `json:"source_url"`
	TranscriptURL    string `json:"transcript_url"`
	TranscriptFormat string `json:"transcript_format"`
	DurationMs       int64  `json:"duration_ms"`
	UseLLM           bool   `json:"use_llm"`
	LLMMethod        string `json:"llm_method"`
	LLMProvider      string `json:"llm_provider"`
}

// UpdateRequest holds the editable fields. Nil fields are left alone.
type UpdateRequest struct {
	Title            *string `json:"title"`
	Preacher         *string `json:"preacher"`
	SourceURL        *string `json:"source_url"`
	TranscriptURL    *string `json:"transcript_url"`
	TranscriptFormat *string `json:"transcript_format"`
	DurationMs       *int64  `json:"duration_ms"`
	UseLLM           *bool   `json:"use_llm"`
	LLMMethod        *string `json:"llm_method"`
	LLMProvider      *string `json:"llm_provider"`
}

// Service is the sermon lifecycle and segment store
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*models.Sermon, error)
	Get(ctx context.Context, id uint) (*models.Sermon, error)
	List(ctx context.Context, page, limit int) ([]models.Sermon, int64, error)
	Update(ctx context.Context, id uint, req UpdateRequest) (*models.Sermon, error)
	Delete(ctx context.Context, id uint) error

	// Lifecycle
	UploadComplete(ctx context.Context, id uint) (*models.Sermon, *models.Job, error)
	Retry(ctx context.Context, id uint) (*models.Sermon, *models.Job, error)
	ImportTranscript(ctx context.Context, id uint, content string, format string) (*models.Sermon, int, error)
	Transcribe(ctx context.Context, id uint) (int, error)
	Fail(ctx context.Context, id uint, message string) error
	SetSuggested(ctx context.Context, id uint) error
	SetEmbedded(ctx context.Context, id uint) error

	// Segment store
	Segments(ctx context.Context, id uint) ([]models.TranscriptSegment, error)
	Embeddings(ctx context.Context, id uint) (map[uint][]float32, error)
}
