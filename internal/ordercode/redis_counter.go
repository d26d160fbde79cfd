package ordercode

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const redisKeyPrefix = "order_code:seq:"

// redisCounter keeps one INCR key per day. Keys expire after ttl so old days do not accumulate.
type redisCounter struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient parses url and verifies the connection.
func NewRedisClient(ctx context.Context, url string, logger zerolog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed connecting to redis: %w", err)
	}

	logger.Info().Str("addr", opts.Addr).Msg("redis connected")

	return client, nil
}

// NewRedisCounter creates a Counter backed by Redis INCR.
func NewRedisCounter(client *redis.Client, ttl time.Duration) Counter {
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}
	return &redisCounter{client: client, ttl: ttl}
}

// Next increments and reads the day's counter in one MULTI/EXEC round trip.
func (c *redisCounter) Next(ctx context.Context, day string) (int64, error) {
	key := redisKeyPrefix + day

	var incr *redis.IntCmd
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, c.ttl)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to increment order code counter: %w", err)
	}

	return incr.Val(), nil
}
