// Package embeddings computes and stores per-segment vectors used for
// breakpoint detection and semantic dedupe.
package embeddings

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/killallgit/sermon-clips/internal/lifecycle"
	"github.com/killallgit/sermon-clips/internal/models"
	"github.com/killallgit/sermon-clips/internal/services/jobs"
	"github.com/killallgit/sermon-clips/internal/services/sermons"
)

const DefaultBatchSize = 64

// ErrEmbedderUnavailable means no embedding provider is configured
var ErrEmbedderUnavailable = errors.New("embedding provider unavailable")

// Service computes embeddings for a sermon's segments
type Service interface {
	Enqueue(ctx context.Context, sermonID uint) (*models.Job, error)
	EmbedSermon(ctx context.Context, sermonID uint) (int, error)
}

type service struct {
	db        *gorm.DB
	sermons   sermons.Service
	jobs      jobs.Service
	embedder  Embedder
	batchSize int
}

// NewService creates the embeddings service. embedder may be nil, in which
// case every embedding job fails with ErrEmbedderUnavailable.
func NewService(db *gorm.DB, sermonService sermons.Service, jobService jobs.Service, embedder Embedder, batchSize int) Service {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &service{db: db, sermons: sermonService, jobs: jobService, embedder: embedder, batchSize: batchSize}
}

func (s *service) Enqueue(ctx context.Context, sermonID uint) (*models.Job, error) {
	sermon, err := s.sermons.Get(ctx, sermonID)
	if err != nil {
		return nil, err
	}
	if !lifecycle.CanSetFlags(sermon) {
		return nil, fmt.Errorf("%w: sermon %d is %s, not transcribed", lifecycle.ErrInvalidTransition, sermonID, sermon.Status)
	}
	key := models.EntityKey(models.JobTypeEmbedding, "sermon", sermonID)
	return s.jobs.EnqueueUniqueJob(ctx, models.JobTypeEmbedding, key,
		map[string]any{"sermon_id": sermonID}, jobs.WithCreatedBy("embeddings"))
}

// EmbedSermon replaces the sermon's embeddings and sets its embedded flag
func (s *service) EmbedSermon(ctx context.Context, sermonID uint) (int, error) {
	if s.embedder == nil {
		return 0, ErrEmbedderUnavailable
	}

	segs, err := s.sermons.Segments(ctx, sermonID)
	if err != nil {
		return 0, err
	}

	var texts []string
	var targets []models.TranscriptSegment
	for _, seg := range segs {
		if seg.Text == "" {
			continue
		}
		texts = append(texts, seg.Text)
		targets = append(targets, seg)
	}

	rows := make([]models.SegmentEmbedding, 0, len(targets))
	for start := 0; start < len(texts); start += s.batchSize {
		end := min(start+s.batchSize, len(texts))
		vectors, err := s.embedder.Embed(ctx, texts[start:end])
		if err != nil {
			return 0, err
		}
		if len(vectors) != end-start {
			return 0, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), end-start)
		}
		for i, vec := range vectors {
			seg := targets[start+i]
			rows = append(rows, models.SegmentEmbedding{
				SegmentID: seg.ID,
				SermonID:  sermonID,
				Model:     s.embedder.Model(),
				Vector:    vec,
			})
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("sermon_id = ?", sermonID).Delete(&models.SegmentEmbedding{}).Error; err != nil {
			return fmt.Errorf("clearing embeddings: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(rows, 200).Error; err != nil {
			return fmt.Errorf("storing embeddings: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if err := s.sermons.SetEmbedded(ctx, sermonID); err != nil {
		return 0, err
	}
	log.Printf("[INFO] Stored %d embeddings for sermon %d (model %s)", len(rows), sermonID, s.embedder.Model())
	return len(rows), nil
}
