package sermons

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/killallgit/sermon-clips/internal/lifecycle"
	"github.com/killallgit/sermon-clips/internal/models"
	"github.com/killallgit/sermon-clips/internal/services/jobs"
	"github.com/killallgit/sermon-clips/internal/suggest"
	"github.com/killallgit/sermon-clips/pkg/transcript"
)

type service struct {
	repo        Repository
	jobs        jobs.Service
	transcriber Transcriber
	now         func() time.Time
}

// NewService creates the sermon service. transcriber may be nil, in which
// case only imported transcripts are supported.
func NewService(repo Repository, jobService jobs.Service, transcriber Transcriber) Service {
	return &service{
		repo:        repo,
		jobs:        jobService,
		transcriber: transcriber,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*models.Sermon, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidSermon)
	}
	if req.DurationMs < 0 {
		return nil, fmt.Errorf("%w: duration_ms must not be negative", ErrInvalidSermon)
	}
	if req.TranscriptFormat != "" {
		if _, err := transcript.ParseFormat(req.TranscriptFormat); err != nil {
			return nil, err
		}
	}
	method, err := suggest.ParseMethod(req.LLMMethod)
	if err != nil {
		return nil, err
	}
	provider, err := suggest.ParseProvider(req.LLMProvider)
	if err != nil {
		return nil, err
	}

	sermon := &models.Sermon{
		Title:            title,
		Preacher:         strings.TrimSpace(req.Preacher),
		SourceURL:        strings.TrimSpace(req.SourceURL),
		TranscriptURL:    strings.TrimSpace(req.TranscriptURL),
		TranscriptFormat: strings.ToLower(req.TranscriptFormat),
		DurationMs:       req.DurationMs,
		Status:           models.SermonStatusPending,
		UseLLM:           req.UseLLM,
		LLMMethod:        string(method),
		LLMProvider:      string(provider),
	}
	if err := s.repo.Create(ctx, sermon); err != nil {
		return nil, err
	}

	log.Printf("[INFO] Created sermon %d %q", sermon.ID, sermon.Title)
	return sermon, nil
}

func (s *service) Get(ctx context.Context, id uint) (*models.Sermon, error) {
	return s.repo.Get(ctx, id)
}

func (s *service) List(ctx context.Context, page, limit int) ([]models.Sermon, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.repo.List(ctx, page, limit)
}

// Update applies the non-nil fields of req. Status is not editable; it only
// moves through the lifecycle operations.
func (s *service) Update(ctx context.Context, id uint, req UpdateRequest) (*models.Sermon, error) {
	sermon, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title is required", ErrInvalidSermon)
		}
		sermon.Title = title
	}
	if req.DurationMs != nil {
		if *req.DurationMs < 0 {
			return nil, fmt.Errorf("%w: duration_ms must not be negative", ErrInvalidSermon)
		}
		sermon.DurationMs = *req.DurationMs
	}
	if req.TranscriptFormat != nil {
		format := strings.ToLower(strings.TrimSpace(*req.TranscriptFormat))
		if format != "" {
			if _, err := transcript.ParseFormat(format); err != nil {
				return nil, err
			}
		}
		sermon.TranscriptFormat = format
	}
	if req.LLMMethod != nil {
		method, err := suggest.ParseMethod(*req.LLMMethod)
		if err != nil {
			return nil, err
		}
		sermon.LLMMethod = string(method)
	}
	if req.LLMProvider != nil {
		provider, err := suggest.ParseProvider(*req.LLMProvider)
		if err != nil {
			return nil, err
		}
		sermon.LLMProvider = string(provider)
	}
	if req.Preacher != nil {
		sermon.Preacher = strings.TrimSpace(*req.Preacher)
	}
	if req.SourceURL != nil {
		sermon.SourceURL = strings.TrimSpace(*req.SourceURL)
	}
	if req.TranscriptURL != nil {
		sermon.TranscriptURL = strings.TrimSpace(*req.TranscriptURL)
	}
	if req.UseLLM != nil {
		sermon.UseLLM = *req.UseLLM
	}

	if err := s.repo.Save(ctx, sermon); err != nil {
		return nil, err
	}
	log.Printf("[INFO] Updated sermon %d", sermon.ID)
	return sermon, nil
}

// Delete removes the sermon and everything hanging off it. Jobs still
// queued for it fail permanently once they find it gone.
func (s *service) Delete(ctx context.Context, id uint) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	log.Printf("[INFO] Deleted sermon %d", id)
	return nil
}

// UploadComplete marks the media as uploaded and queues transcription
func (s *service) UploadComplete(ctx context.Context, id uint) (*models.Sermon, *models.Job, error) {
	sermon, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if err := lifecycle.TransitionSermon(sermon, models.SermonStatusUploaded, ""); err != nil {
		return nil, nil, err
	}
	if err := s.repo.Save(ctx, sermon); err != nil {
		return nil, nil, err
	}

	job, err := s.enqueueTranscription(ctx, sermon)
	if err != nil {
		return sermon, nil, err
	}
	return sermon, job, nil
}

// Retry moves a failed sermon back to processing, dropping the segments,
// embeddings and suggestions of the previous attempt.
func (s *service) Retry(ctx context.Context, id uint) (*models.Sermon, *models.Job, error) {
	sermon, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if err := lifecycle.TransitionSermon(sermon, models.SermonStatusProcessing, ""); err != nil {
		return nil, nil, err
	}
	sermon.Suggested, sermon.SuggestedAt = false, nil
	sermon.Embedded, sermon.EmbeddedAt = false, nil

	if err := s.repo.ResetDerived(ctx, sermon); err != nil {
		return nil, nil, err
	}
	log.Printf("[INFO] Sermon %d reset for retry", sermon.ID)

	if sermon.TranscriptURL == "" {
		// Nothing to fetch; the caller is expected to import a transcript.
		return sermon, nil, nil
	}
	job, err := s.enqueueTranscription(ctx, sermon)
	if err != nil {
		return sermon, nil, err
	}
	return sermon, job, nil
}

func (s *service) enqueueTranscription(ctx context.Context, sermon *models.Sermon) (*models.Job, error) {
	key := models.EntityKey(models.JobTypeTranscription, "sermon", sermon.ID)
	return s.jobs.EnqueueUniqueJob(ctx, models.JobTypeTranscription, key,
		map[string]any{"sermon_id": sermon.ID}, jobs.WithCreatedBy("sermons"))
}

// ImportTranscript stores a caller-supplied transcript and marks the sermon
// transcribed.
func (s *service) ImportTranscript(ctx context.Context, id uint, content string, format string) (*models.Sermon, int, error) {
	var f transcript.Format
	if format == "" {
		f = transcript.DetectFormat("", "", content)
	} else {
		var err error
		if f, err = transcript.ParseFormat(format); err != nil {
			return nil, 0, err
		}
	}

	parsed, err := transcript.Parse(content, f)
	if err != nil {
		return nil, 0, err
	}

	sermon, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	sermon.TranscriptFormat = string(f)

	n, err := s.storeSegments(ctx, sermon, segmentsFromCues(parsed.Cues))
	if err != nil {
		return nil, 0, err
	}
	return sermon, n, nil
}

// Transcribe runs the transcriber for a sermon. A sermon that is already
// transcribed is left alone.
func (s *service) Transcribe(ctx context.Context, id uint) (int, error) {
	sermon, err := s.repo.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	if sermon.Status == models.SermonStatusTranscribed {
		n, err := s.repo.SegmentCount(ctx, id)
		log.Printf("[INFO] Sermon %d already transcribed, skipping", id)
		return int(n), err
	}
	if s.transcriber == nil {
		return 0, ErrNoTranscriptSource
	}

	if sermon.Status != models.SermonStatusProcessing {
		if err := lifecycle.TransitionSermon(sermon, models.SermonStatusProcessing, ""); err != nil {
			return 0, err
		}
		if err := s.repo.Save(ctx, sermon); err != nil {
			return 0, err
		}
	}

	segs, err := s.transcriber.Transcribe(ctx, sermon)
	if err != nil {
		return 0, err
	}
	return s.storeSegments(ctx, sermon, segs)
}

// storeSegments writes segments and the transcribed status atomically
func (s *service) storeSegments(ctx context.Context, sermon *models.Sermon, segs []suggest.Segment) (int, error) {
	rows := segmentRows(segs)
	if len(rows) == 0 {
		return 0, ErrEmptyTranscript
	}

	if sermon.Status != models.SermonStatusProcessing {
		if err := lifecycle.TransitionSermon(sermon, models.SermonStatusProcessing, ""); err != nil {
			return 0, err
		}
	}
	if err := lifecycle.TransitionSermon(sermon, models.SermonStatusTranscribed, ""); err != nil {
		return 0, err
	}
	// Embeddings are dropped with the old segments
	sermon.Suggested, sermon.SuggestedAt = false, nil
	sermon.Embedded, sermon.EmbeddedAt = false, nil
	if last := rows[len(rows)-1].EndMs; sermon.DurationMs < last {
		sermon.DurationMs = last
	}

	if err := s.repo.StoreTranscript(ctx, sermon, rows); err != nil {
		return 0, err
	}
	log.Printf("[INFO] Stored %d segments for sermon %d", len(rows), sermon.ID)
	return len(rows), nil
}

func (s *service) Fail(ctx context.Context, id uint, message string) error {
	sermon, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if sermon.Status == models.SermonStatusError {
		sermon.ErrorMessage = message
	} else if err := lifecycle.TransitionSermon(sermon, models.SermonStatusError, message); err != nil {
		return err
	}
	log.Printf("[ERROR] Sermon %d failed: %s", id, message)
	return s.repo.Save(ctx, sermon)
}

func (s *service) SetSuggested(ctx context.Context, id uint) error {
	return s.setFlag(ctx, id, func(sermon *models.Sermon, now time.Time) {
		sermon.Suggested, sermon.SuggestedAt = true, &now
	})
}

func (s *service) SetEmbedded(ctx context.Context, id uint) error {
	return s.setFlag(ctx, id, func(sermon *models.Sermon, now time.Time) {
		sermon.Embedded, sermon.EmbeddedAt = true, &now
	})
}

func (s *service) setFlag(ctx context.Context, id uint, set func(*models.Sermon, time.Time)) error {
	sermon, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !lifecycle.CanSetFlags(sermon) {
		return fmt.Errorf("%w: sermon %d is %s, not transcribed", lifecycle.ErrInvalidTransition, id, sermon.Status)
	}
	set(sermon, s.now())
	return s.repo.Save(ctx, sermon)
}

func (s *service) Segments(ctx context.Context, id uint) ([]models.TranscriptSegment, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.Segments(ctx, id)
}

func (s *service) Embeddings(ctx context.Context, id uint) (map[uint][]float32, error) {
	rows, err := s.repo.Embeddings(ctx, id)
	if err != nil {
		return nil, err
	}
	return models.EmbeddingMap(rows), nil
}

// segmentRows orders segments by start and drops zero-length ones
func segmentRows(segs []suggest.Segment) []models.TranscriptSegment {
	sorted := append([]suggest.Segment(nil), segs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].StartMs < sorted[j].StartMs })

	rows := make([]models.TranscriptSegment, 0, len(sorted))
	for _, seg := range sorted {
		if seg.StartMs < 0 || seg.EndMs <= seg.StartMs {
			continue
		}
		rows = append(rows, models.TranscriptSegment{
			Index:   len(rows),
			StartMs: seg.StartMs,
			EndMs:   seg.EndMs,
			Text:    strings.TrimSpace(seg.Text),
		})
	}
	return rows
}

func segmentsFromCues(cues []transcript.Cue) []suggest.Segment {
	out := make([]suggest.Segment, 0, len(cues))
	for _, c := range cues {
		out = append(out, suggest.Segment{StartMs: c.StartMs(), EndMs: c.EndMs(), Text: c.Text})
	}
	return out
}
