package sermons

import (
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/killallgit/sermon-clips/api/types"
	"github.com/killallgit/sermon-clips/internal/services/sermons"
	apperrors "github.com/killallgit/sermon-clips/pkg/errors"
)

// TranscriptRequest carries an uploaded transcript
// @Description Transcript text in SRT, VTT or JSON. Format is detected when omitted.
type TranscriptRequest struct {
	Content string `json:"content" binding:"required"`
	Format  string `json:"format,omitempty" example:"vtt"`
}

// Create registers a sermon
// @Summary Create a sermon
// @Description Registers a sermon with its media and optional transcript URL. The sermon starts in pending.
// @Tags sermons
// @Accept json
// @Produce json
// @Param request body sermons.CreateRequest true "Sermon metadata"
// @Success 201 {object} types.SermonResponse
// @Failure 400 {object} types.ErrorResponse
// @Router /api/v1/sermons [post]
func Create(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req sermons.CreateRequest
		if !types.BindJSONOrError(c, &req) {
			return
		}
		sermon, err := deps.SermonService.Create(c.Request.Context(), req)
		if err != nil {
			types.SendError(c, err)
			return
		}
		types.SendCreated(c, types.SermonResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			Sermon:       sermon,
		})
	}
}

// List returns a page of sermons, newest first
// @Summary List sermons
// @Tags sermons
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size (max 100)" default(20)
// @Success 200 {object} types.SermonsResponse
// @Router /api/v1/sermons [get]
func List(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		if page < 1 {
			page = 1
		}
		if limit < 1 || limit > 100 {
			limit = 20
		}

		list, total, err := deps.SermonService.List(c.Request.Context(), page, limit)
		if err != nil {
			types.SendError(c, err)
			return
		}
		types.SendSuccess(c, types.SermonsResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			Sermons:      list,
			Total:        total,
			Page:         page,
			Limit:        limit,
		})
	}
}

// Get returns one sermon
// @Summary Get a sermon
// @Tags sermons
// @Produce json
// @Param id path int true "Sermon ID"
// @Success 200 {object} types.SermonResponse
// @Failure 404 {object} types.ErrorResponse
// @Router /api/v1/sermons/{id} [get]
func Get(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := types.ParseUintParam(c, "id")
		if !ok {
			return
		}
		sermon, err := deps.SermonService.Get(c.Request.Context(), id)
		if err != nil {
			types.SendError(c, err)
			return
		}
		types.SendSuccess(c, types.SermonResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			Sermon:       sermon,
		})
	}
}

// Update edits a sermon's metadata
// @Summary Update a sermon
// @Description Applies the fields present in the body. Status only changes through the lifecycle endpoints.
// @Tags sermons
// @Accept json
// @Produce json
// @Param id path int true "Sermon ID"
// @Param request body sermons.UpdateRequest true "Fields to change"
// @Success 200 {object} types.SermonResponse
// @Failure 400 {object} types.ErrorResponse
// @Failure 404 {object} types.ErrorResponse
// @Router /api/v1/sermons/{id} [patch]
func Update(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := types.ParseUintParam(c, "id")
		if !ok {
			return
		}
		var req sermons.UpdateRequest
		if !types.BindJSONOrError(c, &req) {
			return
		}
		sermon, err := deps.SermonService.Update(c.Request.Context(), id, req)
		if err != nil {
			types.SendError(c, err)
			return
		}
		types.SendSuccess(c, types.SermonResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			Sermon:       sermon,
		})
	}
}

// Delete removes a sermon with its clips, suggestions and transcript
// @Summary Delete a sermon
// @Description Deletes the sermon, its segments, embeddings, suggestions, clips and their rendered files.
// @Tags sermons
// @Param id path int true "Sermon ID"
// @Success 204
// @Failure 404 {object} types.ErrorResponse
// @Router /api/v1/sermons/{id} [delete]
func Delete(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := types.ParseUintParam(c, "id")
		if !ok {
			return
		}
		ctx := c.Request.Context()
		if err := deps.SermonService.Delete(ctx, id); err != nil {
			types.SendError(c, err)
			return
		}
		if err := deps.ClipService.PurgeRenders(ctx, id); err != nil {
			log.Printf("[WARN] Failed to purge renders of sermon %d: %v", id, err)
		}
		c.Status(http.StatusNoContent)
	}
}

// UploadComplete marks the media uploaded and queues transcription
// @Summary Finish a sermon upload
// @Description Moves the sermon to uploaded and queues a transcription job.
// @Tags sermons
// @Produce json
// @Param id path int true "Sermon ID"
// @Success 202 {object} types.SermonResponse
// @Failure 404 {object} types.ErrorResponse
// @Failure 409 {object} types.ErrorResponse "Not pending, or a job is already in flight"
// @Router /api/v1/sermons/{id}/upload-complete [post]
func UploadComplete(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := types.ParseUintParam(c, "id")
		if !ok {
			return
		}
		sermon, job, err := deps.SermonService.UploadComplete(c.Request.Context(), id)
		if err != nil {
			types.SendError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, types.SermonResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusQueued, Message: "Transcription queued"},
			Sermon:       sermon,
			Job:          types.NewJobSummary(job),
		})
	}
}

// Retry re-queues transcription of a sermon in error
// @Summary Retry a failed sermon
// @Tags sermons
// @Produce json
// @Param id path int true "Sermon ID"
// @Success 200 {object} types.SermonResponse "Reset without a transcript URL"
// @Success 202 {object} types.SermonResponse
// @Failure 409 {object} types.ErrorResponse "Sermon is not in error"
// @Router /api/v1/sermons/{id}/retry [post]
func Retry(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := types.ParseUintParam(c, "id")
		if !ok {
			return
		}
		sermon, job, err := deps.SermonService.Retry(c.Request.Context(), id)
		if err != nil {
			types.SendError(c, err)
			return
		}
		resp := types.SermonResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			Sermon:       sermon,
			Job:          types.NewJobSummary(job),
		}
		if job == nil {
			// No transcript URL; waits for an uploaded transcript
			resp.Message = "Sermon reset; upload a transcript to continue"
			types.SendSuccess(c, resp)
			return
		}
		resp.Status, resp.Message = types.StatusQueued, "Transcription queued"
		c.JSON(http.StatusAccepted, resp)
	}
}

// ImportTranscript stores an uploaded transcript
// @Summary Upload a transcript
// @Description Accepts JSON {content, format} or the raw transcript body with an optional format query parameter.
// @Description Segments and the transcribed status are committed together.
// @Tags sermons
// @Accept json,plain
// @Produce json
// @Param id path int true "Sermon ID"
// @Param format query string false "srt, vtt or json"
// @Param request body TranscriptRequest false "Transcript"
// @Success 200 {object} types.SermonResponse
// @Failure 400 {object} types.ErrorResponse "Unparseable or empty transcript"
// @Failure 409 {object} types.ErrorResponse
// @Router /api/v1/sermons/{id}/transcript [put]
func ImportTranscript(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := types.ParseUintParam(c, "id")
		if !ok {
			return
		}

		var req TranscriptRequest
		if strings.HasPrefix(c.ContentType(), "application/json") {
			if !types.BindJSONOrError(c, &req) {
				return
			}
		} else {
			body, err := io.ReadAll(c.Request.Body)
			if err != nil {
				types.SendError(c, apperrors.InvalidBody(err))
				return
			}
			req.Content = string(body)
			req.Format = c.Query("format")
		}
		if strings.TrimSpace(req.Content) == "" {
			types.SendError(c, apperrors.MissingField("content"))
			return
		}

		sermon, n, err := deps.SermonService.ImportTranscript(c.Request.Context(), id, req.Content, req.Format)
		if err != nil {
			types.SendError(c, err)
			return
		}
		types.SendSuccess(c, types.SermonResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK, Message: strconv.Itoa(n) + " segments imported"},
			Sermon:       sermon,
		})
	}
}

// Segments lists the transcript segments in order
// @Summary List transcript segments
// @Tags sermons
// @Produce json
// @Param id path int true "Sermon ID"
// @Success 200 {object} types.SegmentsResponse
// @Failure 404 {object} types.ErrorResponse
// @Router /api/v1/sermons/{id}/segments [get]
func Segments(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := types.ParseUintParam(c, "id")
		if !ok {
			return
		}
		if _, err := deps.SermonService.Get(c.Request.Context(), id); err != nil {
			types.SendError(c, err)
			return
		}
		segs, err := deps.SermonService.Segments(c.Request.Context(), id)
		if err != nil {
			types.SendError(c, err)
			return
		}
		types.SendSuccess(c, types.SegmentsResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			SermonID:     id,
			Segments:     segs,
			Count:        len(segs),
		})
	}
}

// Embed queues segment embedding
// @Summary Embed a sermon's segments
// @Description Queues an embedding job. Prior embeddings are replaced when it runs.
// @Tags sermons
// @Produce json
// @Param id path int true "Sermon ID"
// @Success 202 {object} types.JobAcceptedResponse
// @Failure 409 {object} types.ErrorResponse "Not transcribed, or a job is already in flight"
// @Router /api/v1/sermons/{id}/embed [post]
func Embed(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := types.ParseUintParam(c, "id")
		if !ok {
			return
		}
		job, err := deps.EmbeddingService.Enqueue(c.Request.Context(), id)
		if err != nil {
			types.SendError(c, err)
			return
		}
		types.SendAccepted(c, "Embedding queued", job)
	}
}
