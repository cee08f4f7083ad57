package config

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// ConnectRedis returns nil when no address is configured; the caller then
// falls back to not publishing events.
func ConnectRedis(s Settings) (*redis.Client, error) {
	if s.RedisAddr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     s.RedisAddr,
		Password: s.RedisPass,
		DB:       s.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
