package redis

import (
	"context"
	"fmt"

	"github.com/playmatatu/arcade/internal/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Connect establishes a connection to Redis
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opt)

	// Verify connection
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	logger.Named("redis").Info("connected", zap.String("addr", opt.Addr), zap.Int("db", opt.DB))
	return client, nil
}
