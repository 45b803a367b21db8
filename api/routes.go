package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/killallgit/sermon-clips/api/clips"
	"github.com/killallgit/sermon-clips/api/health"
	"github.com/killallgit/sermon-clips/api/jobs"
	"github.com/killallgit/sermon-clips/api/sermons"
	"github.com/killallgit/sermon-clips/api/suggestions"
	"github.com/killallgit/sermon-clips/api/types"
	"github.com/killallgit/sermon-clips/api/version"
	_ "github.com/killallgit/sermon-clips/docs/swagger"
	apperrors "github.com/killallgit/sermon-clips/pkg/errors"
)

// RegisterRoutes registers all API routes. rateLimit guards /api/v1 when
// non-nil.
func RegisterRoutes(engine *gin.Engine, deps *types.Dependencies, rateLimit gin.HandlerFunc) error {
	if deps == nil {
		return errors.New("handler dependencies are not set")
	}
	if deps.SermonService == nil || deps.SuggestionService == nil || deps.ClipService == nil ||
		deps.EmbeddingService == nil || deps.JobService == nil {
		return errors.New("handler dependencies are incomplete")
	}

	// Public routes (no rate limiting)
	health.RegisterRoutes(engine, deps)
	version.RegisterRoutes(engine, deps)

	engine.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/docs/index.html")
	})
	engine.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	engine.NoRoute(NotFoundHandler())

	v1 := engine.Group("/api/v1")
	if rateLimit != nil {
		v1.Use(rateLimit)
	}

	sermonGroup := v1.Group("/sermons")
	sermons.RegisterRoutes(sermonGroup, deps)
	suggestions.RegisterSermonRoutes(sermonGroup, deps)

	suggestions.RegisterRoutes(v1.Group("/suggestions"), deps)
	clips.RegisterRoutes(v1.Group("/clips"), deps)
	jobs.RegisterRoutes(v1.Group("/jobs"), deps)

	return nil
}

// NotFoundHandler handles 404 errors
func NotFoundHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		types.SendError(c, apperrors.NotFound("endpoint", nil).WithDetail("path", c.Request.URL.Path))
	}
}
