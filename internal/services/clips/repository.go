package clips

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

func (r *repository) Create(ctx context.Context, clip *models.Clip) error {
	if err := r.db.WithContext(ctx).Create(clip).Error; err != nil {
		return fmt.Errorf("failed to create clip: %w", err)
	}
	return nil
}

// Get returns a manual clip. Suggestions are served by the suggestions service.
func (r *repository) Get(ctx context.Context, id uint) (*models.Clip, error) {
	var clip models.Clip
	err := r.db.WithContext(ctx).
		Where("source = ?", models.ClipSourceManual).
		First(&clip, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClipNotFound
		}
		return nil, fmt.Errorf("failed to get clip: %w", err)
	}
	return &clip, nil
}

func (r *repository) List(ctx context.Context, sermonID uint) ([]models.Clip, error) {
	query := r.db.WithContext(ctx).Where("source = ?", models.ClipSourceManual)
	if sermonID != 0 {
		query = query.Where("sermon_id = ?", sermonID)
	}

	var clips []models.Clip
	if err := query.Order("created_at DESC").Find(&clips).Error; err != nil {
		return nil, fmt.Errorf("failed to list clips: %w", err)
	}
	return clips, nil
}

func (r *repository) Save(ctx context.Context, clip *models.Clip) error {
	if err := r.db.WithContext(ctx).Save(clip).Error; err != nil {
		return fmt.Errorf("failed to update clip: %w", err)
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).
		Where("source = ?", models.ClipSourceManual).
		Delete(&models.Clip{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete clip: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrClipNotFound
	}
	return nil
}

func (r *repository) IDsForSermon(ctx context.Context, sermonID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Unscoped().
		Model(&models.Clip{}).
		Where("sermon_id = ? AND source = ?", sermonID, models.ClipSourceManual).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list clip ids: %w", err)
	}
	return ids, nil
}
