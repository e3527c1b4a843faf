package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/arcade/internal/config"
	"github.com/stretchr/testify/assert"
)

func upgradeRouter(cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(WebSocketCORSCheck(cfg))
	r.GET("/ws", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func upgradeRequest(origin string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Connection", "keep-alive, Upgrade")
	req.Header.Set("Upgrade", "websocket")
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	return req
}

func TestWebSocketCORSCheck(t *testing.T) {
	prod := &config.Config{Environment: "production", FrontendURL: "https://games.example.com"}
	dev := &config.Config{Environment: "development"}

	cases := []struct {
		name   string
		cfg    *config.Config
		origin string
		want   int
	}{
		{"dev localhost", dev, "http://localhost:3000", http.StatusNoContent},
		{"dev foreign", dev, "https://evil.example.com", http.StatusForbidden},
		{"prod frontend", prod, "https://games.example.com", http.StatusNoContent},
		{"prod default", prod, "https://arcade.playmatatu.com", http.StatusNoContent},
		{"prod localhost", prod, "http://localhost:5173", http.StatusForbidden},
		{"missing origin", prod, "", http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			upgradeRouter(tc.cfg).ServeHTTP(w, upgradeRequest(tc.origin))
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestWebSocketCORSCheckIgnoresPlainRequests(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Origin", "https://evil.example.com")

	upgradeRouter(&config.Config{Environment: "production"}).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}
