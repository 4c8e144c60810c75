package sink

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/PratikDhanave/pixel-analytics-bridge/internal/models"
)

// DefaultRedisListKey matches the name of the browser-side data layer.
const DefaultRedisListKey = "dataLayer"

// Redis appends records as JSON to a Redis list, one RPUSH per record.
type Redis struct {
	client *redis.Client
	key    string
}

// NewRedisClient parses url and verifies the server answers PING.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

func NewRedis(client *redis.Client, key string) *Redis {
	if key == "" {
		key = DefaultRedisListKey
	}
	return &Redis{client: client, key: key}
}

func (s *Redis) Emit(ctx context.Context, r models.Record) error {
	b, err := encode(r)
	if err != nil {
		return err
	}
	if err := s.client.RPush(ctx, s.key, b).Err(); err != nil {
		return fmt.Errorf("redis rpush %s: %w", s.key, err)
	}
	return nil
}

func (s *Redis) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Redis) Close() error {
	return s.client.Close()
}
