package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/arcade/internal/guide"
)

var startTime = time.Now()

const version = "1.0.0"

// HealthCheck reports server health along with the preset version in use and
// which optional backends are connected. The server stays healthy without
// them; shots and caching are simply off.
func HealthCheck(svc *guide.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		st := svc.Status()
		c.JSON(http.StatusOK, gin.H{
			"status":         "ok",
			"service":        "arcade-aim-api",
			"version":        version,
			"uptime":         time.Since(startTime).String(),
			"preset_version": st.PresetVersion,
			"shot_storage":   st.ShotStorage,
			"guide_cache":    st.GuideCache,
		})
	}
}
