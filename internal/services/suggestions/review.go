package suggestions

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"gorm.io/datatypes"

	"github.com/killallgit/sermon-clips/internal/models"
	"github.com/killallgit/sermon-clips/internal/suggest"
	"github.com/killallgit/sermon-clips/internal/suggest/trim"
	"github.com/killallgit/sermon-clips/internal/suggest/usage"
)

const defaultRunLimit = 20

func (s *service) List(ctx context.Context, sermonID uint) ([]models.Clip, error) {
	if _, err := s.sermons.Get(ctx, sermonID); err != nil {
		return nil, err
	}
	return s.repo.ListSuggestions(ctx, sermonID)
}

func (s *service) Get(ctx context.Context, id uint) (*models.Clip, error) {
	return s.repo.GetSuggestion(ctx, id)
}

// DeleteAll soft-deletes every suggestion of the sermon. Manual clips are kept.
func (s *service) DeleteAll(ctx context.Context, sermonID uint) (int64, error) {
	if _, err := s.sermons.Get(ctx, sermonID); err != nil {
		return 0, err
	}
	n, err := s.repo.DeleteSuggestions(ctx, sermonID)
	if err != nil {
		return 0, err
	}
	log.Printf("[INFO] Sermon %d: deleted %d suggestions", sermonID, n)
	return n, nil
}

func (s *service) Runs(ctx context.Context, sermonID uint, limit int) ([]models.SuggestionRun, error) {
	if limit <= 0 || limit > 100 {
		limit = defaultRunLimit
	}
	return s.repo.ListRuns(ctx, sermonID, limit)
}

// Accept copies the suggestion into a manual clip ready to render and marks
// the suggestion accepted.
func (s *service) Accept(ctx context.Context, id uint, userID string) (*models.Clip, error) {
	suggestion, err := s.repo.GetSuggestion(ctx, id)
	if err != nil {
		return nil, err
	}
	if suggestion.Status != models.ClipStatusSuggested {
		return nil, fmt.Errorf("%w: suggestion %d is %s", ErrAlreadyReviewed, id, suggestion.Status)
	}

	origin := suggestion.ID
	manual := &models.Clip{
		SermonID:     suggestion.SermonID,
		Source:       models.ClipSourceManual,
		StartMs:      suggestion.StartMs,
		EndMs:        suggestion.EndMs,
		SegmentIDs:   suggestion.SegmentIDs,
		Score:        suggestion.Score,
		SegmentType:  suggestion.SegmentType,
		Theme:        suggestion.Theme,
		Status:       models.ClipStatusPending,
		RenderType:   models.RenderTypePreview,
		OriginClipID: &origin,
	}
	feedback := &models.ClipFeedback{ClipID: suggestion.ID, Accepted: true, UserID: userID}
	suggestion.Status = models.ClipStatusAccepted

	if err := s.repo.Accept(ctx, suggestion, manual, feedback); err != nil {
		return nil, err
	}
	log.Printf("[INFO] Suggestion %d accepted as clip %d", suggestion.ID, manual.ID)
	return manual, nil
}

// Reject records the decision and removes the suggestion from the set
func (s *service) Reject(ctx context.Context, id uint, userID string) error {
	suggestion, err := s.repo.GetSuggestion(ctx, id)
	if err != nil {
		return err
	}
	if suggestion.Status != models.ClipStatusSuggested {
		return fmt.Errorf("%w: suggestion %d is %s", ErrAlreadyReviewed, id, suggestion.Status)
	}
	feedback := &models.ClipFeedback{ClipID: suggestion.ID, Accepted: false, UserID: userID}
	if err := s.repo.Reject(ctx, suggestion, feedback); err != nil {
		return err
	}
	log.Printf("[INFO] Suggestion %d rejected", suggestion.ID)
	return nil
}

// ApplyTrim applies the stored trim suggestion. Applying twice is a no-op.
func (s *service) ApplyTrim(ctx context.Context, id uint) (*models.Clip, error) {
	suggestion, err := s.repo.GetSuggestion(ctx, id)
	if err != nil {
		return nil, err
	}
	if suggestion.TrimApplied {
		return suggestion, nil
	}
	rows, err := s.sermons.Segments(ctx, suggestion.SermonID)
	if err != nil {
		return nil, err
	}
	if err := applyTrim(suggestion, models.SegmentsToSuggest(rows)); err != nil {
		return nil, err
	}
	if err := s.repo.SaveSuggestion(ctx, suggestion); err != nil {
		return nil, err
	}
	return suggestion, nil
}

// TokenStats aggregates usage of the sermon's live LLM suggestions by method.
// With no methods named the first preset pair present is compared.
func (s *service) TokenStats(ctx context.Context, sermonID uint, base, compare string) (*TokenStats, error) {
	if (base == "") != (compare == "") {
		return nil, ErrInvalidComparison
	}
	clips, err := s.List(ctx, sermonID)
	if err != nil {
		return nil, err
	}

	ledger := usage.NewLedger()
	for i := range clips {
		if clips[i].LLMMethod == nil {
			continue
		}
		ledger.Add(*clips[i].LLMMethod, clips[i].Usage())
	}

	stats := &TokenStats{SermonID: sermonID, Methods: ledger.Totals()}
	if base == "" {
		var ok bool
		if base, compare, ok = ledger.DefaultPair(); !ok {
			return stats, nil
		}
	}
	cmp, err := ledger.Compare(base, compare)
	if err != nil {
		return nil, err
	}
	stats.Comparison = &cmp
	return stats, nil
}

// applyTrim moves the clip edges per its trim suggestion and refreshes the
// covered segment ids. The clip is untouched on error.
func applyTrim(clip *models.Clip, segs []suggest.Segment) error {
	out, err := trim.Apply(trim.Clip{
		StartMs: clip.StartMs,
		EndMs:   clip.EndMs,
		Trim:    clip.Trim(),
		Applied: clip.TrimApplied,
	}, segs, trim.DefaultBounds())
	if err != nil {
		return err
	}
	if out.StartMs == clip.StartMs && out.EndMs == clip.EndMs && clip.TrimApplied {
		return nil
	}

	clip.StartMs, clip.EndMs = out.StartMs, out.EndMs
	clip.TrimApplied = true
	if covered := suggest.SegmentsIn(segs, clip.StartMs, clip.EndMs); len(covered) > 0 {
		ids, err := json.Marshal(suggest.SegmentIDs(covered))
		if err != nil {
			return err
		}
		clip.SegmentIDs = datatypes.JSON(ids)
	}
	return nil
}
