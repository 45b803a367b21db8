package suggestions

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/killallgit/sermon-clips/api/types"
	"github.com/killallgit/sermon-clips/internal/services/suggestions"
)

// userHeader names the reviewer recorded on feedback rows
const userHeader = "X-User-ID"

// TokenStatsResponse wraps per-method usage for a sermon
type TokenStatsResponse struct {
	types.BaseResponse
	*suggestions.TokenStats
}

// DeleteResponse reports how many suggestions were removed
type DeleteResponse struct {
	types.BaseResponse
	Deleted int64 `json:"deleted"`
}

// Suggest queues a suggestion run
// @Summary Generate clip suggestions
// @Description Queues a suggestion run for a transcribed sermon. Query parameters override the sermon's LLM defaults for this run.
// @Description LLM failures never fail the run; it falls back to heuristic ranking.
// @Tags suggestions
// @Produce json
// @Param id path int true "Sermon ID"
// @Param use_llm query bool false "Use an LLM strategy"
// @Param llm_method query string false "scoring, selection, generation or full-context"
// @Param llm_provider query string false "deepseek or openai"
// @Success 202 {object} types.JobAcceptedResponse
// @Failure 400 {object} types.ErrorResponse "Unknown method or provider"
// @Failure 409 {object} types.ErrorResponse "Not transcribed, or a run is already queued"
// @Router /api/v1/sermons/{id}/suggest [post]
func Suggest(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := types.ParseUintParam(c, "id")
		if !ok {
			return
		}
		useLLM, ok := types.ParseOptionalBool(c, "use_llm")
		if !ok {
			return
		}
		job, err := deps.SuggestionService.Enqueue(c.Request.Context(), id, suggestions.RunOptions{
			UseLLM:   useLLM,
			Method:   c.Query("llm_method"),
			Provider: c.Query("llm_provider"),
		})
		if err != nil {
			types.SendError(c, err)
			return
		}
		types.SendAccepted(c, "Suggestion run queued", job)
	}
}

// List returns the sermon's live suggestions by score
// @Summary List suggestions
// @Tags suggestions
// @Produce json
// @Param id path int true "Sermon ID"
// @Success 200 {object} types.ClipsResponse
// @Failure 404 {object} types.ErrorResponse
// @Router /api/v1/sermons/{id}/suggestions [get]
func List(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := types.ParseUintParam(c, "id")
		if !ok {
			return
		}
		list, err := deps.SuggestionService.List(c.Request.Context(), id)
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

// DeleteAll removes the sermon's suggestions
// @Summary Delete all suggestions
// @Description Soft-deletes every suggestion of the sermon. Manual clips are kept.
// @Tags suggestions
// @Produce json
// @Param id path int true "Sermon ID"
// @Success 200 {object} DeleteResponse
// @Failure 404 {object} types.ErrorResponse
// @Router /api/v1/sermons/{id}/suggestions [delete]
func DeleteAll(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := types.ParseUintParam(c, "id")
		if !ok {
			return
		}
		n, err := deps.SuggestionService.DeleteAll(c.Request.Context(), id)
		if err != nil {
			types.SendError(c, err)
			return
		}
		types.SendSuccess(c, DeleteResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			Deleted:      n,
		})
	}
}

// TokenStats compares LLM usage by method
// @Summary Token usage by LLM method
// @Description Totals the token usage of the sermon's live suggestions per method. With neither base nor compare the first preset pair present is compared.
// @Tags suggestions
// @Produce json
// @Param id path int true "Sermon ID"
// @Param base query string false "Baseline method"
// @Param compare query string false "Method compared against the baseline"
// @Success 200 {object} TokenStatsResponse
// @Failure 400 {object} types.ErrorResponse "Only one of base and compare given"
// @Failure 404 {object} types.ErrorResponse "Sermon or method not found"
// @Router /api/v1/sermons/{id}/token-stats [get]
func TokenStats(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := types.ParseUintParam(c, "id")
		if !ok {
			return
		}
		stats, err := deps.SuggestionService.TokenStats(c.Request.Context(), id, c.Query("base"), c.Query("compare"))
		if err != nil {
			types.SendError(c, err)
			return
		}
		types.SendSuccess(c, TokenStatsResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			TokenStats:   stats,
		})
	}
}

// Runs lists suggestion run audits
// @Summary List suggestion runs
// @Tags suggestions
// @Produce json
// @Param id path int true "Sermon ID"
// @Param limit query int false "Max runs (max 100)" default(20)
// @Success 200 {object} types.RunsResponse
// @Router /api/v1/sermons/{id}/runs [get]
func Runs(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := types.ParseUintParam(c, "id")
		if !ok {
			return
		}
		limit, _ := strconv.Atoi(c.Query("limit"))
		runs, err := deps.SuggestionService.Runs(c.Request.Context(), id, limit)
		if err != nil {
			types.SendError(c, err)
			return
		}
		types.SendSuccess(c, types.RunsResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			Runs:         runs,
		})
	}
}

// Get returns one live suggestion
// @Summary Get a suggestion
// @Tags suggestions
// @Produce json
// @Param id path int true "Suggestion ID"
// @Success 200 {object} types.ClipResponse
// @Failure 404 {object} types.ErrorResponse
// @Router /api/v1/suggestions/{id} [get]
func Get(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := types.ParseUintParam(c, "id")
		if !ok {
			return
		}
		clip, err := deps.SuggestionService.Get(c.Request.Context(), id)
		if err != nil {
			types.SendError(c, err)
			return
		}
		types.SendSuccess(c, types.ClipResponse{BaseResponse: types.BaseResponse{Status: types.StatusOK}, Clip: clip})
	}
}

// Accept turns a suggestion into a manual clip
// @Summary Accept a suggestion
// @Description Records positive feedback and creates a manual clip with the suggestion's range. Render it with POST /clips/{id}/render.
// @Tags suggestions
// @Produce json
// @Param id path int true "Suggestion ID"
// @Param X-User-ID header string false "Reviewer"
// @Success 201 {object} types.ClipResponse
// @Failure 404 {object} types.ErrorResponse
// @Failure 409 {object} types.ErrorResponse "Already reviewed"
// @Router /api/v1/suggestions/{id}/accept [post]
func Accept(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := types.ParseUintParam(c, "id")
		if !ok {
			return
		}
		clip, err := deps.SuggestionService.Accept(c.Request.Context(), id, c.GetHeader(userHeader))
		if err != nil {
			types.SendError(c, err)
			return
		}
		types.SendCreated(c, types.ClipResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK, Message: fmt.Sprintf("Suggestion %d accepted", id)},
			Clip:         clip,
		})
	}
}

// Reject records negative feedback and removes the suggestion
// @Summary Reject a suggestion
// @Tags suggestions
// @Produce json
// @Param id path int true "Suggestion ID"
// @Param X-User-ID header string false "Reviewer"
// @Success 200 {object} types.BaseResponse
// @Failure 404 {object} types.ErrorResponse
// @Failure 409 {object} types.ErrorResponse "Already reviewed"
// @Router /api/v1/suggestions/{id}/reject [post]
func Reject(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := types.ParseUintParam(c, "id")
		if !ok {
			return
		}
		if err := deps.SuggestionService.Reject(c.Request.Context(), id, c.GetHeader(userHeader)); err != nil {
			types.SendError(c, err)
			return
		}
		types.SendSuccess(c, types.BaseResponse{Status: types.StatusOK, Message: fmt.Sprintf("Suggestion %d rejected", id)})
	}
}

// ApplyTrim applies the stored trim suggestion
// @Summary Apply a trim suggestion
// @Description Moves the suggestion's edges by its trim offsets, snapped to segment boundaries. Applying twice is a no-op.
// @Tags suggestions
// @Produce json
// @Param id path int true "Suggestion ID"
// @Success 200 {object} types.ClipResponse
// @Failure 404 {object} types.ErrorResponse
// @Failure 409 {object} types.ErrorResponse "No trim suggestion stored"
// @Failure 422 {object} types.ErrorResponse "Trimmed clip would leave the 10-120s bounds"
// @Router /api/v1/suggestions/{id}/apply-trim [post]
func ApplyTrim(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := types.ParseUintParam(c, "id")
		if !ok {
			return
		}
		clip, err := deps.SuggestionService.ApplyTrim(c.Request.Context(), id)
		if err != nil {
			types.SendError(c, err)
			return
		}
		types.SendSuccess(c, types.ClipResponse{BaseResponse: types.BaseResponse{Status: types.StatusOK}, Clip: clip})
	}
}
