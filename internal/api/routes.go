package api

import (
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/arcade/internal/api/handlers"
	"github.com/playmatatu/arcade/internal/config"
	"github.com/playmatatu/arcade/internal/guide"
	"github.com/playmatatu/arcade/internal/logger"
	"github.com/playmatatu/arcade/internal/middleware"
	"github.com/playmatatu/arcade/internal/preset"
	"github.com/playmatatu/arcade/internal/ws"
)

// SetupRoutes configures all API routes. db may be nil, in which case shot
// and admin routes answer 503.
func SetupRoutes(router *gin.Engine, db *sqlx.DB, svc *guide.Service, hub *ws.Hub, cfg *config.Config) {
	router.Use(middleware.CORSMiddleware(cfg))

	// No-cache headers in development so the frontend always sees fresh guides
	if !cfg.IsProduction() {
		router.Use(func(c *gin.Context) {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
			c.Next()
		})
		logger.Named("api").Debug("no-cache headers enabled")
	}

	auth := handlers.AuthMiddleware(cfg)

	// API v1 group
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck(svc))

		v1.POST("/trajectory/simulate", handlers.SimulateTrajectory(svc))

		aim := v1.Group("/aim")
		{
			aim.POST("/snooker", handlers.AimSnooker(svc))
			aim.POST("/bubble", handlers.AimBubble(svc))
			aim.GET("/ws", middleware.WebSocketCORSCheck(cfg), handlers.HandleAimWebSocket(hub, cfg))
		}

		v1.POST("/sessions", handlers.CreateSession(cfg))
		v1.GET("/sessions/shots", auth, handlers.ListSessionShots(svc))

		shotsGroup := v1.Group("/shots", auth)
		{
			shotsGroup.POST("", handlers.CommitShot(svc))
			shotsGroup.GET("/:id", handlers.GetShot(svc))
			shotsGroup.GET("/:id/replay", handlers.ReplayShot(svc))
		}

		adminGroup := v1.Group("/admin", handlers.AdminAuthMiddleware(db, handlers.RolePresets))
		{
			var store *preset.Store
			if db != nil {
				store = preset.NewStore(db)
			}
			adminGroup.GET("/presets", handlers.GetAdminPresets(svc.Presets()))
			adminGroup.PUT("/presets/:name", handlers.UpdateAdminPreset(db, svc.Presets(), store))
			adminGroup.GET("/audit", handlers.GetAdminAuditLogs(db))
		}
	}
}
