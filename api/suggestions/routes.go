package suggestions

import (
	"github.com/gin-gonic/gin"

	"github.com/killallgit/sermon-clips/api/types"
)

// RegisterSermonRoutes registers the suggestion routes nested under a sermon
func RegisterSermonRoutes(router *gin.RouterGroup, deps *types.Dependencies) {
	router.POST("/:id/suggest", Suggest(deps))
	router.GET("/:id/suggestions", List(deps))
	router.DELETE("/:id/suggestions", DeleteAll(deps))
	router.GET("/:id/token-stats", TokenStats(deps))
	router.GET("/:id/runs", Runs(deps))
}

// RegisterRoutes registers review routes for single suggestions
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies) {
	router.GET("/:id", Get(deps))
	router.POST("/:id/accept", Accept(deps))
	router.POST("/:id/reject", Reject(deps))
	router.POST("/:id/apply-trim", ApplyTrim(deps))
}
