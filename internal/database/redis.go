package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"prolar/internal/config"
)

// ConnectRedis returns nil without error when no address is configured; the
// listing cache is then disabled.
func ConnectRedis(cfg config.Redis, log *zap.Logger) (*redis.Client, error) {
	if cfg.Address == "" {
		log.Info("redis address not set, listing cache disabled")
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", cfg.Address, err)
	}

	log.Info("connected to redis", zap.String("address", cfg.Address))
	return rdb, nil
}

// RedisHealth adapts a client to the health check.
type RedisHealth struct {
	Client *redis.Client
}

func (r RedisHealth) HealthCheck(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}
