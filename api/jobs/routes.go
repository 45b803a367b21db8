package jobs

import (
	"github.com/gin-gonic/gin"

	"github.com/killallgit/sermon-clips/api/types"
)

// RegisterRoutes registers job status routes
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies) {
	router.GET("/:id", Get(deps))
}
