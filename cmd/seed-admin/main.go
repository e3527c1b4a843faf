package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/playmatatu/arcade/internal/admin"
	"github.com/playmatatu/arcade/internal/config"
	"github.com/playmatatu/arcade/internal/database"
	"github.com/playmatatu/arcade/internal/logger"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	zl, err := logger.New(cfg.Environment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer zl.Sync()
	logger.Set(zl)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		zl.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	phone := os.Getenv("ADMIN_PHONE")
	if phone == "" {
		phone = "256700000000"
		zl.Info("using default admin phone", zap.String("phone", phone))
	}

	adminToken := os.Getenv("ADMIN_TOKEN")
	if adminToken == "" {
		adminToken = "change-me-in-production"
		zl.Warn("using default admin token; set ADMIN_TOKEN in production")
	}

	displayName := "Admin"
	roles := []string{"superadmin"}
	if raw := os.Getenv("ADMIN_ROLES"); raw != "" {
		roles = strings.Split(raw, ",")
	}
	allowedIPs := []string{} // Empty = allow from any IP
	if raw := os.Getenv("ADMIN_ALLOWED_IPS"); raw != "" {
		allowedIPs = strings.Split(raw, ",")
	}

	if err := admin.CreateAdminAccount(ctx, db, phone, displayName, adminToken, roles, allowedIPs); err != nil {
		zl.Fatal("failed to create admin account", zap.Error(err))
	}

	zl.Info("admin account created/updated",
		zap.String("phone", phone),
		zap.String("display_name", displayName),
		zap.Strings("roles", roles),
		zap.Strings("allowed_ips", allowedIPs),
	)
	fmt.Printf("Send X-Admin-Phone: %s and X-Admin-Token: <ADMIN_TOKEN> to /api/v1/admin\n", phone)
}
