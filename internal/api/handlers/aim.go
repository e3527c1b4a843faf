package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/arcade/internal/guide"
	"github.com/playmatatu/arcade/internal/overlay"
)

// SimulateTrajectory exposes the raw simulator.
func SimulateTrajectory(svc *guide.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req guide.SimulateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}

		res, err := svc.Simulate(req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// AimSnooker returns the billiards aim guide and the overlay to draw for it.
func AimSnooker(svc *guide.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req guide.SnookerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}

		resp, err := svc.Snooker(c.Request.Context(), req, overlay.New())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// AimBubble returns the bubble-shooter aim guide and its overlay.
func AimBubble(svc *guide.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req guide.BubbleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}

		resp, err := svc.Bubble(c.Request.Context(), req, overlay.New())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}
