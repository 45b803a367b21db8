package clips

import (
	"context"
	"errors"

	"github.com/killallgit/sermon-clips/internal/models"
	"github.com/killallgit/sermon-clips/pkg/ffmpeg"
)

var (
	ErrClipNotFound      = errors.New("clip not found")
	ErrInvalidRange      = errors.New("invalid clip range")
	ErrInvalidRenderType = errors.New("invalid render type")
	// ErrNoSource means the sermon has no media to cut the clip from.
	ErrNoSource = errors.New("sermon has no source media")
	// ErrClipBusy means a render is writing the clip right now.
	ErrClipBusy = errors.New("clip is rendering")
)

// Renderer produces the video file for one clip
type Renderer interface {
	Render(ctx context.Context, req ffmpeg.RenderRequest) (ffmpeg.RenderResult, error)
}

// CreateRequest holds the fields accepted when creating a manual clip
type CreateRequest struct {
	SermonID   uint   `json:"sermon_id" binding:"required"`
	StartMs    int64  `json:"start_ms"`
	EndMs      int64  `json:"end_ms" binding:"required"`
	RenderType string `json:"render_type"`
}

// UpdateRequest holds the editable fields of a clip. Nil fields are left
// alone.
type UpdateRequest struct {
	StartMs    *int64  `json:"start_ms"`
	EndMs      *int64  `json:"end_ms"`
	RenderType *string `json:"render_type"`
}

// Repository persists manual clips
type Repository interface {
	Create(ctx context.Context, clip *models.Clip) error
	Get(ctx context.Context, id uint) (*models.Clip, error)
	List(ctx context.Context, sermonID uint) ([]models.Clip, error)
	Save(ctx context.Context, clip *models.Clip) error
	Delete(ctx context.Context, id uint) error
	// IDsForSermon lists the sermon's manual clip IDs, deleted ones included
	IDsForSermon(ctx context.Context, sermonID uint) ([]uint, error)
}

// Service manages manual clips and their renders
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*models.Clip, *models.Job, error)
	Get(ctx context.Context, id uint) (*models.Clip, error)
	List(ctx context.Context, sermonID uint) ([]models.Clip, error)
	// Update edits the range or render type. Moving a clip that has
	// already rendered queues a fresh render.
	Update(ctx context.Context, id uint, req UpdateRequest) (*models.Clip, *models.Job, error)
	Delete(ctx context.Context, id uint) error
	// PurgeRenders removes the render files of every clip the sermon had.
	PurgeRenders(ctx context.Context, sermonID uint) error

	// Render queues a render of the clip. An empty renderType keeps the
	// clip's current one.
	Render(ctx context.Context, id uint, renderType string) (*models.Job, error)
	// RenderClip runs a render synchronously. It is what render jobs call.
	RenderClip(ctx context.Context, id uint, renderType string) (*models.Clip, error)
	// Fail moves the clip to error, e.g. when its job gives up.
	Fail(ctx context.Context, id uint, message string) error
}
