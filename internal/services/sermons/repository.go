package sermons

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/killallgit/sermon-clips/internal/models"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, sermon *models.Sermon) error {
	if err := r.db.WithContext(ctx).Create(sermon).Error; err != nil {
		return fmt.Errorf("creating sermon: %w", err)
	}
	return nil
}

func (r *repository) Get(ctx context.Context, id uint) (*models.Sermon, error) {
	var sermon models.Sermon
	if err := r.db.WithContext(ctx).First(&sermon, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSermonNotFound
		}
		return nil, fmt.Errorf("getting sermon: %w", err)
	}
	return &sermon, nil
}

// List returns a page of sermons, newest first
func (r *repository) List(ctx context.Context, page, limit int) ([]models.Sermon, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Sermon{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting sermons: %w", err)
	}

	var sermons []models.Sermon
	err := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&sermons).Error
	if err != nil {
		return nil, 0, fmt.Errorf("listing sermons: %w", err)
	}
	return sermons, total, nil
}

func (r *repository) Save(ctx context.Context, sermon *models.Sermon) error {
	if err := r.db.WithContext(ctx).Save(sermon).Error; err != nil {
		return fmt.Errorf("saving sermon: %w", err)
	}
	return nil
}

func (r *repository) Segments(ctx context.Context, sermonID uint) ([]models.TranscriptSegment, error) {
	var segs []models.TranscriptSegment
	err := r.db.WithContext(ctx).
		Where("sermon_id = ?", sermonID).
		Order(`"index" ASC`).
		Find(&segs).Error
	if err != nil {
		return nil, fmt.Errorf("loading segments: %w", err)
	}
	return segs, nil
}

func (r *repository) SegmentCount(ctx context.Context, sermonID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.TranscriptSegment{}).Where("sermon_id = ?", sermonID).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("counting segments: %w", err)
	}
	return n, nil
}

func (r *repository) StoreTranscript(ctx context.Context, sermon *models.Sermon, segments []models.TranscriptSegment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteDerived(tx, sermon.ID); err != nil {
			return err
		}
		for i := range segments {
			segments[i].SermonID = sermon.ID
		}
		if len(segments) > 0 {
			if err := tx.CreateInBatches(segments, 200).Error; err != nil {
				return fmt.Errorf("inserting segments: %w", err)
			}
		}
		if err := tx.Save(sermon).Error; err != nil {
			return fmt.Errorf("saving sermon: %w", err)
		}
		return nil
	})
}

func (r *repository) ResetDerived(ctx context.Context, sermon *models.Sermon) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteDerived(tx, sermon.ID); err != nil {
			return err
		}
		if err := tx.Save(sermon).Error; err != nil {
			return fmt.Errorf("saving sermon: %w", err)
		}
		return nil
	})
}

func (r *repository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sermon models.Sermon
		if err := tx.First(&sermon, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSermonNotFound
			}
			return fmt.Errorf("getting sermon: %w", err)
		}
		if err := deleteDerived(tx, id); err != nil {
			return err
		}
		if err := deleteClips(tx, id, models.ClipSourceManual); err != nil {
			return err
		}
		if err := tx.Delete(&sermon).Error; err != nil {
			return fmt.Errorf("deleting sermon: %w", err)
		}
		return nil
	})
}

// deleteDerived drops everything computed from the current transcript
func deleteDerived(tx *gorm.DB, sermonID uint) error {
	if err := deleteClips(tx, sermonID, models.ClipSourceAuto); err != nil {
		return err
	}
	if err := tx.Where("sermon_id = ?", sermonID).Delete(&models.SegmentEmbedding{}).Error; err != nil {
		return fmt.Errorf("deleting embeddings: %w", err)
	}
	if err := tx.Where("sermon_id = ?", sermonID).Delete(&models.TranscriptSegment{}).Error; err != nil {
		return fmt.Errorf("deleting segments: %w", err)
	}
	return nil
}

// deleteClips soft-deletes the sermon's clips from the given sources along
// with their feedback.
func deleteClips(tx *gorm.DB, sermonID uint, sources ...string) error {
	var ids []uint
	err := tx.Model(&models.Clip{}).
		Where("sermon_id = ? AND source IN ?", sermonID, sources).
		Pluck("id", &ids).Error
	if err != nil {
		return fmt.Errorf("finding clips: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Where("clip_id IN ?", ids).Delete(&models.ClipFeedback{}).Error; err != nil {
		return fmt.Errorf("deleting feedback: %w", err)
	}
	if err := tx.Where("id IN ?", ids).Delete(&models.Clip{}).Error; err != nil {
		return fmt.Errorf("deleting clips: %w", err)
	}
	return nil
}

func (r *repository) Embeddings(ctx context.Context, sermonID uint) ([]models.SegmentEmbedding, error) {
	var rows []models.SegmentEmbedding
	if err := r.db.WithContext(ctx).Where("sermon_id = ?", sermonID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("loading embeddings: %w", err)
	}
	return rows, nil
}
