package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/playmatatu/arcade/internal/guide"
)

const defaultReplaySpeed = 0.25

// CommitShot records the caller's current aim as a shot.
func CommitShot(svc *guide.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req guide.CommitRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}

		shot, err := svc.Commit(c.Request.Context(), c.GetString(sessionIDKey), req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, shot)
	}
}

// GetShot returns one of the session's shots.
func GetShot(svc *guide.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid shot id"})
			return
		}

		shot, err := svc.Shot(c.Request.Context(), c.GetString(sessionIDKey), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, shot)
	}
}

// ReplayShot returns the per-tick frames of a stored shot.
func ReplayShot(svc *guide.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid shot id"})
			return
		}

		speed := defaultReplaySpeed
		if raw := c.Query("speed"); raw != "" {
			speed, err = strconv.ParseFloat(raw, 64)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid speed"})
				return
			}
		}

		shot, frames, err := svc.Replay(c.Request.Context(), c.GetString(sessionIDKey), id, speed)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"shot_id": shot.ID, "speed": speed, "frames": frames})
	}
}

// ListSessionShots lists the session's most recent shots.
func ListSessionShots(svc *guide.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := queryInt(c, "limit", 50, 1, 200)

		list, err := svc.SessionShots(c.Request.Context(), c.GetString(sessionIDKey), limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"shots": list, "limit": limit})
	}
}
