package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/arcade/internal/config"
	"github.com/playmatatu/arcade/internal/ws"
)

// HandleAimWebSocket streams aim guides over a WebSocket. Browsers cannot set
// headers on the upgrade, so the session token comes in the query string.
func HandleAimWebSocket(hub *ws.Hub, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "token required"})
			return
		}

		sessionID, err := ParseSessionToken(cfg.JWTSecret, token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		hub.Serve(c.Writer, c.Request, sessionID)
	}
}
