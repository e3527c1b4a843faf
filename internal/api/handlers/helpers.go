package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/arcade/internal/guide"
	"github.com/playmatatu/arcade/internal/logger"
	"github.com/playmatatu/arcade/internal/shots"
	"go.uber.org/zap"
)

// respondError maps service errors onto status codes. Anything unexpected is
// logged and hidden behind a generic 500.
func respondError(c *gin.Context, err error) {
	switch {
	case guide.IsCallerError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, shots.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "shot not found"})
	case errors.Is(err, guide.ErrStorageUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "shot storage unavailable"})
	default:
		logger.Named("api").Error("request failed",
			zap.String("route", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// queryInt reads an integer query parameter clamped to [min, max].
func queryInt(c *gin.Context, key string, def, min, max int) int {
	v, err := strconv.Atoi(c.DefaultQuery(key, strconv.Itoa(def)))
	if err != nil {
		return def
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
