package suggestions

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

// ReplaceSuggestions soft-deletes the sermon's current suggestions and their
// feedback, then stores the run and its suggestions.
func (r *repository) ReplaceSuggestions(ctx context.Context, sermonID uint, run *models.SuggestionRun, clips []models.Clip) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := deleteSuggestions(tx, sermonID); err != nil {
			return err
		}
		if err := tx.Create(run).Error; err != nil {
			return fmt.Errorf("creating suggestion run: %w", err)
		}
		for i := range clips {
			clips[i].RunID = run.ID
		}
		if len(clips) > 0 {
			if err := tx.Create(&clips).Error; err != nil {
				return fmt.Errorf("creating suggestions: %w", err)
			}
		}
		return nil
	})
}

func (r *repository) DeleteSuggestions(ctx context.Context, sermonID uint) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := deleteSuggestions(tx, sermonID)
		deleted = n
		return err
	})
	return deleted, err
}

func deleteSuggestions(tx *gorm.DB, sermonID uint) (int64, error) {
	var ids []uint
	err := tx.Model(&models.Clip{}).
		Where("sermon_id = ? AND source = ?", sermonID, models.ClipSourceAuto).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, fmt.Errorf("finding suggestions: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := tx.Where("clip_id IN ?", ids).Delete(&models.ClipFeedback{}).Error; err != nil {
		return 0, fmt.Errorf("deleting feedback: %w", err)
	}
	result := tx.Where("id IN ?", ids).Delete(&models.Clip{})
	if result.Error != nil {
		return 0, fmt.Errorf("deleting suggestions: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *repository) ListSuggestions(ctx context.Context, sermonID uint) ([]models.Clip, error) {
	var clips []models.Clip
	err := r.db.WithContext(ctx).
		Where("sermon_id = ? AND source = ?", sermonID, models.ClipSourceAuto).
		Order("score DESC, start_ms ASC").
		Find(&clips).Error
	if err != nil {
		return nil, fmt.Errorf("listing suggestions: %w", err)
	}
	return clips, nil
}

func (r *repository) GetSuggestion(ctx context.Context, id uint) (*models.Clip, error) {
	var clip models.Clip
	err := r.db.WithContext(ctx).
		Where("source = ?", models.ClipSourceAuto).
		First(&clip, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSuggestionNotFound
		}
		return nil, fmt.Errorf("getting suggestion: %w", err)
	}
	return &clip, nil
}

func (r *repository) SaveSuggestion(ctx context.Context, clip *models.Clip) error {
	if err := r.db.WithContext(ctx).Save(clip).Error; err != nil {
		return fmt.Errorf("saving suggestion: %w", err)
	}
	return nil
}

func (r *repository) Accept(ctx context.Context, suggestion *models.Clip, manual *models.Clip, feedback *models.ClipFeedback) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(feedback).Error; err != nil {
			return fmt.Errorf("creating feedback: %w", err)
		}
		if err := tx.Create(manual).Error; err != nil {
			return fmt.Errorf("creating clip: %w", err)
		}
		if err := tx.Save(suggestion).Error; err != nil {
			return fmt.Errorf("saving suggestion: %w", err)
		}
		return nil
	})
}

// Reject records the feedback and soft-deletes it together with the suggestion
func (r *repository) Reject(ctx context.Context, suggestion *models.Clip, feedback *models.ClipFeedback) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(feedback).Error; err != nil {
			return fmt.Errorf("creating feedback: %w", err)
		}
		if err := tx.Where("clip_id = ?", suggestion.ID).Delete(&models.ClipFeedback{}).Error; err != nil {
			return fmt.Errorf("deleting feedback: %w", err)
		}
		if err := tx.Delete(suggestion).Error; err != nil {
			return fmt.Errorf("deleting suggestion: %w", err)
		}
		return nil
	})
}

func (r *repository) ListRuns(ctx context.Context, sermonID uint, limit int) ([]models.SuggestionRun, error) {
	var runs []models.SuggestionRun
	err := r.db.WithContext(ctx).
		Where("sermon_id = ?", sermonID).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}
