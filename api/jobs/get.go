package jobs

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/killallgit/sermon-clips/api/types"
)

// Get returns the status of a background job
// @Summary Get job status
// @Description Status, progress, result and classified error of a transcription, embedding, suggestion or render job.
// @Tags jobs
// @Produce json
// @Param id path int true "Job ID"
// @Success 200 {object} types.JobStatusResponse
// @Failure 404 {object} types.ErrorResponse
// @Router /api/v1/jobs/{id} [get]
func Get(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := types.ParseUintParam(c, "id")
		if !ok {
			return
		}
		job, err := deps.JobService.GetJob(c.Request.Context(), id)
		if err != nil {
			types.SendError(c, err)
			return
		}
		types.SendSuccess(c, types.NewJobStatusResponse(job, time.Now().UTC()))
	}
}
