package clips

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/killallgit/sermon-clips/api/types"
	"github.com/killallgit/sermon-clips/internal/services/clips"
	apperrors "github.com/killallgit/sermon-clips/pkg/errors"
)

// CreateClipRequest represents the request to create a clip
// @Description A clip range in milliseconds. Duration must be between 10 and 120 seconds.
type CreateClipRequest struct {
	SermonID   uint   `json:"sermon_id" binding:"required,min=1" example:"12"`
	StartMs    int64  `json:"start_ms" binding:"min=0" example:"360000"`
	EndMs      int64  `json:"end_ms" binding:"required,gt=0" example:"420000"`
	RenderType string `json:"render_type,omitempty" example:"preview" enums:"preview,final"`
}

// RenderRequest optionally switches the render type
type RenderRequest struct {
	RenderType string `json:"render_type,omitempty" example:"final" enums:"preview,final"`
}

// Create stores a manual clip and queues its render
// @Summary Create a clip
// @Description Creates a manual clip and queues a render. Preview renders are 540x960, final renders 1080x1920.
// @Tags clips
// @Accept json
// @Produce json
// @Param request body CreateClipRequest true "Clip range"
// @Success 202 {object} types.ClipResponse "Clip created and render queued"
// @Failure 400 {object} types.ErrorResponse "Invalid range or render type"
// @Failure 404 {object} types.ErrorResponse "Sermon not found"
// @Failure 409 {object} types.ErrorResponse "Sermon has no source media"
// @Router /api/v1/clips [post]
func Create(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateClipRequest
		if !types.BindJSONOrError(c, &req) {
			return
		}
		clip, job, err := deps.ClipService.Create(c.Request.Context(), clips.CreateRequest{
			SermonID:   req.SermonID,
			StartMs:    req.StartMs,
			EndMs:      req.EndMs,
			RenderType: req.RenderType,
		})
		if err != nil {
			types.SendError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, types.ClipResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusQueued, Message: "Render queued"},
			Clip:         clip,
			Job:          types.NewJobSummary(job),
		})
	}
}

// List returns manual clips, optionally for one sermon
// @Summary List clips
// @Tags clips
// @Produce json
// @Param sermon_id query int false "Only clips of this sermon"
// @Success 200 {object} types.ClipsResponse
// @Failure 404 {object} types.ErrorResponse "Sermon not found"
// @Router /api/v1/clips [get]
func List(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var sermonID uint
		if raw := c.Query("sermon_id"); raw != "" {
			v, err := strconv.ParseUint(raw, 10, 32)
			if err != nil {
				types.SendError(c, apperrors.InvalidParam("sermon_id", raw))
				return
			}
			sermonID = uint(v)
		}
		list, err := deps.ClipService.List(c.Request.Context(), sermonID)
		if err != nil {
			types.SendError(c, err)
			return
		}
		types.SendSuccess(c, types.ClipsResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			Clips:        list,
			Count:        len(list),
		})
	}
}

// Get returns one manual clip
// @Summary Get a clip
// @Tags clips
// @Produce json
// @Param id path int true "Clip ID"
// @Success 200 {object} types.ClipResponse
// @Failure 404 {object} types.ErrorResponse
// @Router /api/v1/clips/{id} [get]
func Get(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := types.ParseUintParam(c, "id")
		if !ok {
			return
		}
		clip, err := deps.ClipService.Get(c.Request.Context(), id)
		if err != nil {
			types.SendError(c, err)
			return
		}
		types.SendSuccess(c, types.ClipResponse{BaseResponse: types.BaseResponse{Status: types.StatusOK}, Clip: clip})
	}
}

// Update moves a clip or switches its render type
// @Summary Update a clip
// @Description Applies the fields present in the body. Moving a clip that has already rendered queues a new render.
// @Tags clips
// @Accept json
// @Produce json
// @Param id path int true "Clip ID"
// @Param request body clips.UpdateRequest true "Fields to change"
// @Success 200 {object} types.ClipResponse
// @Failure 400 {object} types.ErrorResponse "Invalid range or render type"
// @Failure 404 {object} types.ErrorResponse
// @Failure 409 {object} types.ErrorResponse "Clip is rendering"
// @Router /api/v1/clips/{id} [patch]
func Update(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := types.ParseUintParam(c, "id")
		if !ok {
			return
		}
		var req clips.UpdateRequest
		if !types.BindJSONOrError(c, &req) {
			return
		}
		clip, job, err := deps.ClipService.Update(c.Request.Context(), id, req)
		if err != nil {
			types.SendError(c, err)
			return
		}
		types.SendSuccess(c, types.ClipResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			Clip:         clip,
			Job:          types.NewJobSummary(job),
		})
	}
}

// Delete removes a clip and its rendered files
// @Summary Delete a clip
// @Tags clips
// @Param id path int true "Clip ID"
// @Success 204
// @Failure 404 {object} types.ErrorResponse
// @Failure 409 {object} types.ErrorResponse "Clip is rendering"
// @Router /api/v1/clips/{id} [delete]
func Delete(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := types.ParseUintParam(c, "id")
		if !ok {
			return
		}
		if err := deps.ClipService.Delete(c.Request.Context(), id); err != nil {
			types.SendError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// Render queues a (re-)render of a clip
// @Summary Render a clip
// @Description Queues a render. The body may switch the render type; otherwise the clip's current type is kept.
// @Tags clips
// @Accept json
// @Produce json
// @Param id path int true "Clip ID"
// @Param request body RenderRequest false "Render options"
// @Success 202 {object} types.JobAcceptedResponse
// @Failure 404 {object} types.ErrorResponse
// @Failure 409 {object} types.ErrorResponse "A render is already in flight"
// @Router /api/v1/clips/{id}/render [post]
func Render(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := types.ParseUintParam(c, "id")
		if !ok {
			return
		}
		var req RenderRequest
		if c.Request.ContentLength > 0 && !types.BindJSONOrError(c, &req) {
			return
		}
		job, err := deps.ClipService.Render(c.Request.Context(), id, req.RenderType)
		if err != nil {
			types.SendError(c, err)
			return
		}
		types.SendAccepted(c, "Render queued", job)
	}
}
