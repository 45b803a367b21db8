package workers

import (
	"errors"

	"github.com/killallgit/sermon-clips/internal/lifecycle"
	"github.com/killallgit/sermon-clips/internal/models"
	"github.com/killallgit/sermon-clips/internal/services/clips"
	"github.com/killallgit/sermon-clips/internal/services/embeddings"
	"github.com/killallgit/sermon-clips/internal/services/sermons"
	"github.com/killallgit/sermon-clips/internal/services/suggestions"
	"github.com/killallgit/sermon-clips/pkg/download"
	"github.com/killallgit/sermon-clips/pkg/ffmpeg"
	"github.com/killallgit/sermon-clips/pkg/transcript"
)

// permanentErrors fail a job without further attempts
var permanentErrors = []struct {
	err  error
	code string
}{
	{sermons.ErrSermonNotFound, "sermon_not_found"},
	{sermons.ErrNoTranscriptSource, "no_transcript_source"},
	{sermons.ErrEmptyTranscript, "empty_transcript"},
	{transcript.ErrNoCues, "empty_transcript"},
	{clips.ErrClipNotFound, "clip_not_found"},
	{suggestions.ErrSuggestionNotFound, "suggestion_not_found"},
	{clips.ErrNoSource, "no_source_media"},
	{clips.ErrInvalidRenderType, "invalid_render_type"},
	{embeddings.ErrEmbedderUnavailable, "embedder_unavailable"},
	{lifecycle.ErrInvalidTransition, "invalid_transition"},
	{ffmpeg.ErrInvalidMedia, "invalid_media"},
	{ffmpeg.ErrInvalidRange, "source_too_short"},
	{ffmpeg.ErrFFmpegNotFound, "ffmpeg_not_found"},
}

// temporary is implemented by the HTTP status errors of the fetchers
type temporary interface {
	Temporary() bool
}

// classify turns a service error into a StructuredJobError. fallback is the
// error type used for anything not recognized.
func classify(err error, fallback models.JobErrorType) *models.StructuredJobError {
	var jobErr *models.StructuredJobError
	if errors.As(err, &jobErr) {
		return jobErr
	}

	for _, p := range permanentErrors {
		if errors.Is(err, p.err) {
			return &models.StructuredJobError{
				Type:     models.ErrorTypeNotFound,
				Code:     p.code,
				Message:  err.Error(),
				Original: err,
			}
		}
	}

	var downloadStatus *download.StatusError
	var transcriptStatus *transcript.StatusError
	var tmp temporary
	switch {
	case errors.As(err, &downloadStatus), errors.As(err, &transcriptStatus):
		if errors.As(err, &tmp) && !tmp.Temporary() {
			return &models.StructuredJobError{Type: models.ErrorTypeNotFound, Code: "source_unavailable", Message: err.Error(), Original: err}
		}
		return models.NewJobError(models.ErrorTypeDownload, "source_fetch_failed", err.Error(), err)
	}

	var procErr *ffmpeg.ProcessingError
	if errors.As(err, &procErr) {
		return models.NewJobError(models.ErrorTypeProcessing, "ffmpeg_"+procErr.Operation, err.Error(), err)
	}
	return models.NewJobError(fallback, "unclassified", err.Error(), err)
}

// finalAttempt reports whether the job will not run again after failing
// with jobErr.
func finalAttempt(job *models.Job, jobErr *models.StructuredJobError) bool {
	return jobErr.Permanent() || job.RetryCount+1 >= job.MaxRetries
}

func invalidPayload(key string) *models.StructuredJobError {
	return models.NewNotFoundError("invalid_payload", "job payload is missing "+key)
}
