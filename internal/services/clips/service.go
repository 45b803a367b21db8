// Package clips manages user clips cut from a sermon and renders them to
// vertical video.
package clips

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/killallgit/sermon-clips/internal/lifecycle"
	"github.com/killallgit/sermon-clips/internal/models"
	"github.com/killallgit/sermon-clips/internal/services/jobs"
	"github.com/killallgit/sermon-clips/internal/services/sermons"
	"github.com/killallgit/sermon-clips/internal/suggest"
	"github.com/killallgit/sermon-clips/pkg/ffmpeg"
	"github.com/killallgit/sermon-clips/pkg/transcript"
)

type service struct {
	repo     Repository
	sermons  sermons.Service
	jobs     jobs.Service
	renderer Renderer
	storage  OutputStorage
}

func NewService(repo Repository, sermonService sermons.Service, jobService jobs.Service, renderer Renderer, storage OutputStorage) Service {
	return &service{
		repo:     repo,
		sermons:  sermonService,
		jobs:     jobService,
		renderer: renderer,
		storage:  storage,
	}
}

func parseRenderType(s string) (string, error) {
	switch s {
	case "", models.RenderTypePreview:
		return models.RenderTypePreview, nil
	case models.RenderTypeFinal:
		return models.RenderTypeFinal, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRenderType, s)
	}
}

func validateRange(startMs, endMs, sermonDurationMs int64) error {
	if startMs < 0 || endMs <= startMs {
		return fmt.Errorf("%w: %d-%dms", ErrInvalidRange, startMs, endMs)
	}
	d := endMs - startMs
	if d < suggest.MinClipMs || d > suggest.MaxClipMs {
		return fmt.Errorf("%w: duration %dms outside [%d, %d]", ErrInvalidRange, d, suggest.MinClipMs, suggest.MaxClipMs)
	}
	if sermonDurationMs > 0 && endMs > sermonDurationMs {
		return fmt.Errorf("%w: ends at %dms after sermon end %dms", ErrInvalidRange, endMs, sermonDurationMs)
	}
	return nil
}

// Create stores a manual clip and queues its first render
func (s *service) Create(ctx context.Context, req CreateRequest) (*models.Clip, *models.Job, error) {
	renderType, err := parseRenderType(req.RenderType)
	if err != nil {
		return nil, nil, err
	}
	sermon, err := s.sermons.Get(ctx, req.SermonID)
	if err != nil {
		return nil, nil, err
	}
	if err := validateRange(req.StartMs, req.EndMs, sermon.DurationMs); err != nil {
		return nil, nil, err
	}
	if sermon.SourceURL == "" {
		return nil, nil, fmt.Errorf("%w: sermon %d", ErrNoSource, sermon.ID)
	}

	clip := &models.Clip{
		SermonID:   sermon.ID,
		Source:     models.ClipSourceManual,
		StartMs:    req.StartMs,
		EndMs:      req.EndMs,
		Status:     models.ClipStatusPending,
		RenderType: renderType,
	}
	if err := s.repo.Create(ctx, clip); err != nil {
		return nil, nil, err
	}

	job, err := s.enqueue(ctx, clip, sermon)
	if err != nil {
		// Mark the clip failed; nothing will render it
		_ = lifecycle.TransitionClip(clip, models.ClipStatusError, fmt.Sprintf("failed to enqueue render: %v", err))
		if saveErr := s.repo.Save(ctx, clip); saveErr != nil {
			log.Printf("[ERROR] Failed to mark clip %d as error: %v", clip.ID, saveErr)
		}
		return nil, nil, fmt.Errorf("failed to enqueue render job: %w", err)
	}
	return clip, job, nil
}

func (s *service) Get(ctx context.Context, id uint) (*models.Clip, error) {
	return s.repo.Get(ctx, id)
}

func (s *service) List(ctx context.Context, sermonID uint) ([]models.Clip, error) {
	if sermonID != 0 {
		if _, err := s.sermons.Get(ctx, sermonID); err != nil {
			return nil, err
		}
	}
	return s.repo.List(ctx, sermonID)
}

func (s *service) Update(ctx context.Context, id uint, req UpdateRequest) (*models.Clip, *models.Job, error) {
	clip, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if clip.Status == models.ClipStatusProcessing {
		return nil, nil, fmt.Errorf("%w: clip %d", ErrClipBusy, id)
	}

	start, end, renderType := clip.StartMs, clip.EndMs, clip.RenderType
	if req.StartMs != nil {
		start = *req.StartMs
	}
	if req.EndMs != nil {
		end = *req.EndMs
	}
	if req.RenderType != nil {
		if renderType, err = parseRenderType(*req.RenderType); err != nil {
			return nil, nil, err
		}
	}
	sermon, err := s.sermons.Get(ctx, clip.SermonID)
	if err != nil {
		return nil, nil, err
	}
	if err := validateRange(start, end, sermon.DurationMs); err != nil {
		return nil, nil, err
	}

	// A pending clip's queued job reads the new range when it runs
	rerender := (start != clip.StartMs || end != clip.EndMs) && clip.Status != models.ClipStatusPending
	if rerender && sermon.SourceURL == "" {
		return nil, nil, fmt.Errorf("%w: sermon %d", ErrNoSource, sermon.ID)
	}

	clip.StartMs, clip.EndMs, clip.RenderType = start, end, renderType
	if err := s.repo.Save(ctx, clip); err != nil {
		return nil, nil, err
	}
	log.Printf("[INFO] Updated clip %d to %d-%dms (%s)", clip.ID, start, end, renderType)
	if !rerender {
		return clip, nil, nil
	}

	job, err := s.enqueue(ctx, clip, sermon)
	if errors.Is(err, jobs.ErrJobInFlight) {
		return clip, nil, nil
	}
	if err != nil {
		return clip, nil, err
	}
	return clip, job, nil
}

// Delete soft-deletes the clip and removes its render files. A clip being
// rendered is refused; a queued render finds it gone and fails.
func (s *service) Delete(ctx context.Context, id uint) error {
	clip, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if clip.Status == models.ClipStatusProcessing {
		return fmt.Errorf("%w: clip %d", ErrClipBusy, id)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.removeRenders(id)
	log.Printf("[INFO] Deleted clip %d", id)
	return nil
}

func (s *service) PurgeRenders(ctx context.Context, sermonID uint) error {
	ids, err := s.repo.IDsForSermon(ctx, sermonID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		s.removeRenders(id)
	}
	return nil
}

func (s *service) removeRenders(clipID uint) {
	if s.storage == nil {
		return
	}
	if err := s.storage.Prune(clipID, ""); err != nil {
		log.Printf("[WARN] Failed to remove renders of clip %d: %v", clipID, err)
	}
}

func (s *service) Render(ctx context.Context, id uint, renderType string) (*models.Job, error) {
	clip, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if renderType == "" {
		renderType = clip.RenderType
	}
	if clip.RenderType, err = parseRenderType(renderType); err != nil {
		return nil, err
	}
	sermon, err := s.sermons.Get(ctx, clip.SermonID)
	if err != nil {
		return nil, err
	}

	job, err := s.enqueue(ctx, clip, sermon)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, clip); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *service) enqueue(ctx context.Context, clip *models.Clip, sermon *models.Sermon) (*models.Job, error) {
	if sermon.SourceURL == "" {
		return nil, fmt.Errorf("%w: sermon %d", ErrNoSource, sermon.ID)
	}
	payload := map[string]any{
		"clip_id":     clip.ID,
		"sermon_id":   clip.SermonID,
		"start_ms":    clip.StartMs,
		"end_ms":      clip.EndMs,
		"render_type": clip.RenderType,
		"source_url":  sermon.SourceURL,
	}
	key := models.EntityKey(models.JobTypeRender, "clip", clip.ID)
	return s.jobs.EnqueueUniqueJob(ctx, models.JobTypeRender, key, payload,
		jobs.WithRenderType(clip.RenderType), jobs.WithCreatedBy("clips"))
}

// RenderClip renders the clip and records the output. A clip already in
// processing is picked up again so a retried job can finish it.
func (s *service) RenderClip(ctx context.Context, id uint, renderType string) (*models.Clip, error) {
	if s.renderer == nil || s.storage == nil {
		return nil, fmt.Errorf("rendering is not configured")
	}
	clip, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if renderType == "" {
		renderType = clip.RenderType
	}
	if renderType, err = parseRenderType(renderType); err != nil {
		return nil, err
	}
	sermon, err := s.sermons.Get(ctx, clip.SermonID)
	if err != nil {
		return nil, err
	}
	if sermon.SourceURL == "" {
		return nil, fmt.Errorf("%w: sermon %d", ErrNoSource, sermon.ID)
	}

	if clip.Status != models.ClipStatusProcessing {
		if err := lifecycle.TransitionClip(clip, models.ClipStatusProcessing, ""); err != nil {
			return nil, err
		}
	}
	clip.RenderType = renderType
	if err := s.repo.Save(ctx, clip); err != nil {
		return nil, err
	}

	captions, err := s.captions(ctx, clip)
	if err != nil {
		return nil, s.fail(ctx, clip, err)
	}

	started := time.Now()
	output := s.storage.NewPath(clip.ID)
	result, err := s.renderer.Render(ctx, ffmpeg.RenderRequest{
		ClipID:     clip.ID,
		SourceURL:  sermon.SourceURL,
		OutputPath: output,
		StartMs:    clip.StartMs,
		EndMs:      clip.EndMs,
		Captions:   captions,
		Type:       ffmpeg.RenderType(renderType),
	})
	if err != nil {
		return nil, s.fail(ctx, clip, err)
	}

	if result.OutputPath != "" {
		output = result.OutputPath
	}
	clip.OutputURL = output
	if err := lifecycle.TransitionClip(clip, models.ClipStatusDone, ""); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, clip); err != nil {
		return nil, err
	}
	if err := s.storage.Prune(clip.ID, output); err != nil {
		log.Printf("[WARN] Failed to prune old renders of clip %d: %v", clip.ID, err)
	}

	log.Printf("[INFO] Rendered clip %d (%s, %dms, %d bytes) in %s",
		clip.ID, renderType, result.DurationMs, result.SizeBytes, time.Since(started).Round(time.Millisecond))
	return clip, nil
}

// captions builds clip-relative SRT from the segments overlapping the clip
func (s *service) captions(ctx context.Context, clip *models.Clip) (string, error) {
	rows, err := s.sermons.Segments(ctx, clip.SermonID)
	if err != nil {
		return "", err
	}
	cues := make([]transcript.Cue, 0, len(rows))
	for _, r := range rows {
		cues = append(cues, transcript.Cue{
			Start: time.Duration(r.StartMs) * time.Millisecond,
			End:   time.Duration(r.EndMs) * time.Millisecond,
			Text:  r.Text,
		})
	}
	clipped := transcript.ClipCues(cues,
		time.Duration(clip.StartMs)*time.Millisecond,
		time.Duration(clip.EndMs)*time.Millisecond)
	return transcript.WriteSRT(clipped), nil
}

func (s *service) fail(ctx context.Context, clip *models.Clip, cause error) error {
	if err := lifecycle.TransitionClip(clip, models.ClipStatusError, cause.Error()); err != nil {
		return err
	}
	if err := s.repo.Save(ctx, clip); err != nil {
		log.Printf("[ERROR] Failed to mark clip %d as error: %v", clip.ID, err)
	}
	return cause
}

func (s *service) Fail(ctx context.Context, id uint, message string) error {
	clip, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if clip.Status == models.ClipStatusError || clip.Status == models.ClipStatusDone {
		return nil
	}
	if err := lifecycle.TransitionClip(clip, models.ClipStatusError, message); err != nil {
		return err
	}
	return s.repo.Save(ctx, clip)
}
