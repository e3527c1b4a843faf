package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/playmatatu/arcade/internal/api"
	"github.com/playmatatu/arcade/internal/cache"
	"github.com/playmatatu/arcade/internal/config"
	"github.com/playmatatu/arcade/internal/database"
	"github.com/playmatatu/arcade/internal/guide"
	"github.com/playmatatu/arcade/internal/logger"
	"github.com/playmatatu/arcade/internal/migrations"
	"github.com/playmatatu/arcade/internal/preset"
	"github.com/playmatatu/arcade/internal/redis"
	"github.com/playmatatu/arcade/internal/shots"
	"github.com/playmatatu/arcade/internal/ws"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()

	zl, err := logger.New(cfg.Environment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer zl.Sync()
	logger.Set(zl)

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	presets, err := loadPresets(cfg)
	if err != nil {
		return err
	}
	registry := preset.NewRegistry(presets)

	db, err := connectDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		if err := registry.Hydrate(ctx, preset.NewStore(db)); err != nil {
			return fmt.Errorf("hydrate presets: %w", err)
		}
		log.Info("presets hydrated", zap.Uint64("version", registry.Version()))
	}

	rdb, err := connectRedis(ctx, cfg)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	source := instanceID()
	var store guide.ShotStore
	if db != nil {
		store = shots.NewRepository(db)
	}
	svc := guide.NewService(
		registry,
		cache.NewGuideCache(rdb, time.Duration(cfg.GuideCacheTTLSecs)*time.Second),
		store,
		shots.NewPublisher(rdb, source),
		guide.Limits{MaxSimSteps: cfg.MaxSimSteps, MaxObstacles: cfg.MaxObstacles},
	)
	hub := ws.NewHub(svc, source)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log.Named("http")))
	api.SetupRoutes(router, db, svc, hub, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return hub.Run(gctx)
	})
	g.Go(func() error {
		return hub.SubscribeShotEvents(gctx, rdb)
	})
	g.Go(func() error {
		log.Info("starting arcade aim server", zap.String("port", cfg.Port), zap.String("instance", source))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func loadPresets(cfg *config.Config) (*preset.Presets, error) {
	if cfg.PresetsFile == "" {
		return preset.Defaults()
	}
	p, err := preset.LoadFile(cfg.PresetsFile)
	if err != nil {
		return nil, fmt.Errorf("load presets %s: %w", cfg.PresetsFile, err)
	}
	return p, nil
}

// connectDatabase opens Postgres and applies migrations. Outside production
// the server keeps running without shot storage when Postgres is down.
func connectDatabase(ctx context.Context, cfg *config.Config) (*sqlx.DB, error) {
	log := logger.Named("db")

	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		if cfg.IsProduction() {
			return nil, err
		}
		log.Warn("database unavailable; shots and admin disabled", zap.Error(err))
		return nil, nil
	}

	if cfg.MigrateOnStart {
		log.Info("running migrations on startup")
		if err := migrations.RunMigrations(cfg.DatabaseURL, "migrations"); err != nil {
			db.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	return db, nil
}

// connectRedis connects the guide cache and shot events. Like the database
// it is optional outside production.
func connectRedis(ctx context.Context, cfg *config.Config) (*goredis.Client, error) {
	rdb, err := redis.Connect(ctx, cfg.RedisURL)
	if err != nil {
		if cfg.IsProduction() {
			return nil, err
		}
		logger.Named("redis").Warn("redis unavailable; guide cache and shot events disabled", zap.Error(err))
		return nil, nil
	}
	return rdb, nil
}

func instanceID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "arcade"
	}
	return host + "-" + uuid.NewString()[:8]
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)
	}
}
