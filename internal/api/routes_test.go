package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/playmatatu/arcade/internal/cache"
	"github.com/playmatatu/arcade/internal/config"
	"github.com/playmatatu/arcade/internal/guide"
	"github.com/playmatatu/arcade/internal/preset"
	"github.com/playmatatu/arcade/internal/ws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	p, err := preset.Defaults()
	require.NoError(t, err)
	svc := guide.NewService(preset.NewRegistry(p), cache.NewGuideCache(nil, 0), nil, nil, guide.Limits{MaxSimSteps: 2000, MaxObstacles: 32})
	cfg := &config.Config{Environment: "development", JWTSecret: "test-secret", SessionTimeoutMin: 30}

	r := gin.New()
	SetupRoutes(r, nil, svc, ws.NewHub(svc, "test"), cfg)
	return r
}

func do(t *testing.T, r http.Handler, method, path, token, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w, out
}

func sessionToken(t *testing.T, r http.Handler) string {
	t.Helper()
	w, out := do(t, r, http.MethodPost, "/api/v1/sessions", "", "")
	require.Equal(t, http.StatusCreated, w.Code)
	token, ok := out["token"].(string)
	require.True(t, ok)
	return token
}

func TestHealth(t *testing.T) {
	w, out := do(t, newTestRouter(t), http.MethodGet, "/api/v1/health", "", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", out["status"])
	assert.Equal(t, false, out["shot_storage"])
	assert.Equal(t, false, out["guide_cache"])
	assert.Equal(t, float64(0), out["preset_version"])
	assert.Equal(t, "no-store, no-cache, must-revalidate, max-age=0", w.Header().Get("Cache-Control"))
}

func TestSimulateEndpoint(t *testing.T) {
	r := newTestRouter(t)

	body := `{
		"start": {"x": 0.5, "y": 0},
		"velocity": {"x": 1, "y": 0},
		"radius": 0.5,
		"bounds": {"x_min": -10, "x_max": 10, "y_min": -10, "y_max": 10},
		"obstacles": [{"position": {"x": 5, "y": 0}, "radius": 0.5, "tag": "goal"}]
	}`
	w, out := do(t, r, http.MethodPost, "/api/v1/trajectory/simulate", "", body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "obstacle", out["reason"])
	hit := out["hit"].(map[string]any)
	assert.Equal(t, "goal", hit["obstacle"].(map[string]any)["tag"])

	for name, bad := range map[string]string{
		"zero radius":   `{"radius": 0, "bounds": {"x_min": -1, "x_max": 1, "y_min": -1, "y_max": 1}}`,
		"empty bounds":  `{"radius": 1, "bounds": {}}`,
		"step limit":    `{"radius": 1, "bounds": {"x_min": -1, "x_max": 1, "y_min": -1, "y_max": 1}, "max_steps": 2001}`,
		"variant":       `{"radius": 1, "bounds": {"x_min": -1, "x_max": 1, "y_min": -1, "y_max": 1}, "variant": "magnetic"}`,
		"malformed":     `{"radius": `,
		"wrong type":    `{"radius": "big"}`,
		"zero hitscale": `{"radius": 1, "bounds": {"x_min": -1, "x_max": 1, "y_min": -1, "y_max": 1}, "hit_radius_scale": 0}`,
	} {
		w, out := do(t, r, http.MethodPost, "/api/v1/trajectory/simulate", "", bad)
		assert.Equal(t, http.StatusBadRequest, w.Code, name)
		assert.NotEmpty(t, out["error"], name)
	}
}

func TestAimEndpoints(t *testing.T) {
	r := newTestRouter(t)

	snooker := `{
		"cue": {"id": "cue", "position": {"x": 3, "y": 8}},
		"balls": [{"id": "black", "position": {"x": 5, "y": 10}}],
		"angle": 0.7853981633974483,
		"power": 0.5
	}`
	w, out := do(t, r, http.MethodPost, "/api/v1/aim/snooker", "", snooker)
	require.Equal(t, http.StatusOK, w.Code)
	g := out["guide"].(map[string]any)
	assert.Equal(t, "black", g["hit_ball_id"])
	assert.Equal(t, []any{float64(5)}, g["pockets"])
	assert.Equal(t, false, out["cached"])
	highlights := out["overlay"].(map[string]any)["highlights"].([]any)
	require.Len(t, highlights, 1)
	assert.Equal(t, "pocket-5", highlights[0].(map[string]any)["id"])

	w, _ = do(t, r, http.MethodPost, "/api/v1/aim/snooker", "", `{"cue": {"id": "cue"}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, out = do(t, r, http.MethodPost, "/api/v1/aim/bubble", "", `{"cells": [{"x": 5, "y": 14}], "aim": {"x": 5, "y": 10}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, out["guide"].(map[string]any)["ghost"])

	w, out = do(t, r, http.MethodPost, "/api/v1/aim/bubble", "", `{"aim": {"x": 5, "y": -50}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, out["guide"])

	w, _ = do(t, r, http.MethodPost, "/api/v1/aim/bubble", "", `{"cells": [{"x": 50, "y": 0}], "aim": {"x": 5, "y": 10}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestShotRoutesRequireSession(t *testing.T) {
	r := newTestRouter(t)

	w, _ := do(t, r, http.MethodPost, "/api/v1/shots", "", `{}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = do(t, r, http.MethodGet, "/api/v1/sessions/shots", "not-a-jwt", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestShotRoutesWithoutStorage(t *testing.T) {
	r := newTestRouter(t)
	token := sessionToken(t, r)

	commit := `{"game": "bubble", "bubble": {"cells": [{"x": 5, "y": 14}], "aim": {"x": 5, "y": 10}}}`
	w, _ := do(t, r, http.MethodPost, "/api/v1/shots", token, commit)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	// Validation happens before storage is needed.
	w, _ = do(t, r, http.MethodPost, "/api/v1/shots", token, `{"game": "pinball"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, r, http.MethodGet, "/api/v1/shots/not-a-uuid", token, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	id := uuid.NewString()
	w, _ = do(t, r, http.MethodGet, "/api/v1/shots/"+id, token, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w, _ = do(t, r, http.MethodGet, "/api/v1/shots/"+id+"/replay?speed=fast", token, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, r, http.MethodGet, "/api/v1/shots/"+id+"/replay?speed=0", token, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, r, http.MethodGet, "/api/v1/shots/"+id+"/replay?speed=1e-9", token, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, r, http.MethodGet, "/api/v1/sessions/shots", token, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAdminRoutesWithoutDatabase(t *testing.T) {
	w, _ := do(t, newTestRouter(t), http.MethodGet, "/api/v1/admin/presets", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAimWebSocketRequiresToken(t *testing.T) {
	r := newTestRouter(t)

	w, _ := do(t, r, http.MethodGet, "/api/v1/aim/ws", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, r, http.MethodGet, "/api/v1/aim/ws?token=bogus", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
