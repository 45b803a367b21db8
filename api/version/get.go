package version

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Get handles version requests
// @Summary Service version
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /version [get]
func Get(version string) gin.HandlerFunc {
	if version == "" {
		version = "dev"
	}
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"name":        "Sermon Clips API",
			"version":     version,
			"description": "Clip suggestions and vertical renders for recorded sermons",
			"status":      "running",
		})
	}
}
