package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/arcade/internal/admin"
	"github.com/playmatatu/arcade/internal/logger"
	"github.com/playmatatu/arcade/internal/preset"
	"go.uber.org/zap"
)

const (
	adminPhoneHeader = "X-Admin-Phone"
	adminTokenHeader = "X-Admin-Token"
	adminPhoneKey    = "admin_phone"

	// RolePresets may read and change game presets.
	RolePresets = "presets"
)

// AdminAuthMiddleware checks the admin phone and token headers against
// admin_accounts and requires role.
func AdminAuthMiddleware(db *sqlx.DB, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db == nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "admin unavailable"})
			return
		}

		phone := strings.TrimSpace(c.GetHeader(adminPhoneHeader))
		token := strings.TrimSpace(c.GetHeader(adminTokenHeader))
		if phone == "" || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}

		acc, err := admin.ValidateAdminPhoneAndToken(c.Request.Context(), db, phone, token)
		if err != nil {
			admin.LogAdminAction(c.Request.Context(), db, phone, c.ClientIP(), c.FullPath(), "auth", nil, false)
			if errors.Is(err, admin.ErrAccountNotFound) || errors.Is(err, admin.ErrInvalidToken) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		if !acc.IPAllowed(c.ClientIP()) || !acc.HasRole(role) {
			logger.Named("admin").Warn("admin forbidden",
				zap.String("phone", phone),
				zap.String("ip", c.ClientIP()),
				zap.String("role", role),
			)
			admin.LogAdminAction(c.Request.Context(), db, phone, c.ClientIP(), c.FullPath(), "forbidden", map[string]any{"role": role}, false)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}

		c.Set(adminPhoneKey, acc.Phone)
		c.Next()
	}
}

// GetAdminPresets returns the live presets and their version.
func GetAdminPresets(reg *preset.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"presets": reg.Snapshot(),
			"version": reg.Version(),
			"names":   preset.Names(),
		})
	}
}

// UpdateAdminPreset layers a YAML (or JSON) document over one preset, makes
// it live and persists it so restarts keep it.
func UpdateAdminPreset(db *sqlx.DB, reg *preset.Registry, store *preset.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		phone := c.GetString(adminPhoneKey)
		name := c.Param("name")
		route := "/api/v1/admin/presets/" + name

		body, err := c.GetRawData()
		if err != nil || len(strings.TrimSpace(string(body))) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Preset body is required"})
			return
		}

		if err := reg.Apply(name, body); err != nil {
			admin.LogAdminAction(ctx, db, phone, c.ClientIP(), route, "update_preset", map[string]any{"name": name, "error": err.Error()}, false)
			if errors.Is(err, preset.ErrUnknownPreset) {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if err := store.Save(ctx, name, string(body), phone); err != nil {
			logger.Named("admin").Error("preset applied but not persisted", zap.String("name", name), zap.Error(err))
			admin.LogAdminAction(ctx, db, phone, c.ClientIP(), route, "update_preset", map[string]any{"name": name, "persisted": false}, false)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Preset applied but not persisted"})
			return
		}

		admin.LogAdminAction(ctx, db, phone, c.ClientIP(), route, "update_preset", map[string]any{"name": name}, true)
		current, _ := reg.Get(name)
		c.JSON(http.StatusOK, gin.H{"ok": true, "version": reg.Version(), "preset": current})
	}
}
