package sermons

import (
	"github.com/gin-gonic/gin"

	"github.com/killallgit/sermon-clips/api/types"
)

// RegisterRoutes registers sermon lifecycle routes
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies) {
	router.POST("", Create(deps))
	router.GET("", List(deps))
	router.GET("/:id", Get(deps))
	router.PATCH("/:id", Update(deps))
	router.DELETE("/:id", Delete(deps))
	router.POST("/:id/upload-complete", UploadComplete(deps))
	router.POST("/:id/retry", Retry(deps))
	router.PUT("/:id/transcript", ImportTranscript(deps))
	router.GET("/:id/segments", Segments(deps))
	router.POST("/:id/embed", Embed(deps))
}
