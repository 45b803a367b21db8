package clips

import (
	"github.com/gin-gonic/gin"

	"github.com/killallgit/sermon-clips/api/types"
)

// RegisterRoutes registers manual clip routes
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies) {
	router.POST("", Create(deps))
	router.GET("", List(deps))
	router.GET("/:id", Get(deps))
	router.PATCH("/:id", Update(deps))
	router.DELETE("/:id", Delete(deps))
	router.POST("/:id/render", Render(deps))
}
