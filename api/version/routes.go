package version

import (
	"github.com/gin-gonic/gin"

	"github.com/killallgit/sermon-clips/api/types"
)

// RegisterRoutes registers version routes
func RegisterRoutes(engine *gin.Engine, deps *types.Dependencies) {
	var v string
	if deps != nil {
		v = deps.Version
	}
	engine.GET("/", Get(v))
	engine.GET("/version", Get(v))
}
