package cache

import (
	"context"
	"fmt"
	"time"
	"scholarstream/internal/platform/config"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Connect creates the Redis client and checks it is reachable.
func Connect(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("could not connect to Redis at %s: %w", cfg.RedisAddr, err)
	}

	log.WithField("addr", cfg.RedisAddr).Info("connected to Redis")
	return rdb, nil
}

func Close(rdb *redis.Client, log logrus.FieldLogger) {
	if rdb == nil {
		return
	}
	if err := rdb.Close(); err != nil {
		log.WithError(err).Warn("closing Redis")
		return
	}
	log.Info("Redis connection closed")
}
