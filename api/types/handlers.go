package types

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/killallgit/sermon-clips/internal/lifecycle"
	"github.com/killallgit/sermon-clips/internal/models"
	"github.com/killallgit/sermon-clips/internal/services/clips"
	"github.com/killallgit/sermon-clips/internal/services/embeddings"
	"github.com/killallgit/sermon-clips/internal/services/jobs"
	"github.com/killallgit/sermon-clips/internal/services/sermons"
	"github.com/killallgit/sermon-clips/internal/services/suggestions"
	"github.com/killallgit/sermon-clips/internal/suggest"
	"github.com/killallgit/sermon-clips/internal/suggest/trim"
	"github.com/killallgit/sermon-clips/internal/suggest/usage"
	apperrors "github.com/killallgit/sermon-clips/pkg/errors"
	"github.com/killallgit/sermon-clips/pkg/transcript"
)

// Handler utility functions to reduce duplication across handlers

// ParseUintParam extracts and parses a URL parameter as uint
// Returns the parsed value and sends error response if parsing fails
func ParseUintParam(c *gin.Context, paramName string) (uint, bool) {
	value, err := strconv.ParseUint(c.Param(paramName), 10, 32)
	if err != nil || value == 0 {
		SendError(c, apperrors.InvalidParam(paramName, c.Param(paramName)))
		return 0, false
	}
	return uint(value), true
}

// ParseOptionalBool reads a boolean query parameter. A missing parameter
// yields nil.
func ParseOptionalBool(c *gin.Context, key string) (*bool, bool) {
	raw, present := c.GetQuery(key)
	if !present || raw == "" {
		return nil, true
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		SendError(c, apperrors.InvalidParam(key, raw))
		return nil, false
	}
	return &b, true
}

// BindJSONOrError attempts to bind JSON request body to target struct
// Returns false and sends error response if binding fails
func BindJSONOrError(c *gin.Context, target any) bool {
	if err := c.ShouldBindJSON(target); err != nil {
		SendError(c, apperrors.InvalidBody(err))
		return false
	}
	return true
}

// errorMappings turns service errors into API errors. Order matters: the
// first match wins.
var errorMappings = []struct {
	err   error
	toApp func(error) *apperrors.AppError
}{
	{sermons.ErrSermonNotFound, notFound("sermon")},
	{suggestions.ErrSuggestionNotFound, notFound("suggestion")},
	{clips.ErrClipNotFound, notFound("clip")},
	{jobs.ErrJobNotFound, notFound("job")},
	{usage.ErrMethodNotFound, notFound("method")},

	{jobs.ErrJobInFlight, apperrors.Conflict},
	{suggestions.ErrRunInProgress, apperrors.Conflict},
	{suggestions.ErrAlreadyReviewed, apperrors.Conflict},
	{lifecycle.ErrInvalidTransition, apperrors.InvalidState},
	{sermons.ErrNoTranscriptSource, apperrors.InvalidState},
	{clips.ErrNoSource, apperrors.InvalidState},
	{clips.ErrClipBusy, apperrors.InvalidState},
	{trim.ErrNoTrim, apperrors.InvalidState},

	{trim.ErrTrimInvalid, apperrors.TrimInvalid},

	{clips.ErrInvalidRange, apperrors.Validation},
	{clips.ErrInvalidRenderType, apperrors.Validation},
	{sermons.ErrInvalidSermon, apperrors.Validation},
	{suggestions.ErrInvalidComparison, apperrors.Validation},
	{suggest.ErrUnknownMethod, apperrors.Validation},
	{suggest.ErrUnknownProvider, apperrors.Validation},
	{sermons.ErrEmptyTranscript, apperrors.Validation},
	{transcript.ErrNoCues, apperrors.Validation},
	{transcript.ErrUnsupportedFormat, apperrors.Validation},

	{embeddings.ErrEmbedderUnavailable, apperrors.ServiceDown},
}

func notFound(resource string) func(error) *apperrors.AppError {
	return func(err error) *apperrors.AppError { return apperrors.NotFound(resource, err) }
}

// ToAppError classifies err for an HTTP response. Unknown errors become
// INTERNAL.
func ToAppError(err error) *apperrors.AppError {
	if appErr, ok := apperrors.As(err); ok {
		return appErr
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.toApp(err)
		}
	}
	return apperrors.Internal(err)
}

// SendError writes err as an ErrorResponse with the status of its code
func SendError(c *gin.Context, err error) {
	appErr := ToAppError(err)
	if appErr.Code == apperrors.ErrCodeInternal {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(appErr.HTTPStatus(), ErrorResponse{
		Status:  StatusError,
		Code:    string(appErr.Code),
		Message: appErr.Message,
		Details: appErr.Details,
	})
}

// SendSuccess sends a standardized success response with data
func SendSuccess(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// SendCreated sends a standardized created response with data
func SendCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// SendAccepted reports queued work
func SendAccepted(c *gin.Context, message string, job *models.Job) {
	c.JSON(http.StatusAccepted, JobAcceptedResponse{
		BaseResponse: BaseResponse{Status: StatusQueued, Message: message},
		Job:          *NewJobSummary(job),
	})
}
