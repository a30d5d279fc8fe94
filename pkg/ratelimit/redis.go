package ratelimit

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// RedisWindow shares one fixed window across orchestrator instances. Keys
// are bucketed by window index so expired windows clean themselves up.
type RedisWindow struct {
	client redis.UniversalClient
	limit  int
	period time.Duration
}

func NewRedisWindow(client redis.UniversalClient, limit int, period time.Duration) *RedisWindow {
	return &RedisWindow{
		client: client,
		limit:  limit,
		period: period,
	}
}

func (w *RedisWindow) Allow(ctx context.Context, key string) (bool, error) {
	bucket := time.Now().UnixNano() / int64(w.period)
	redisKey := fmt.Sprintf("zigral:ratelimit:%s:%d", key, bucket)

	pipe := w.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, w.period)

	_, err := pipe.Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}

	return incr.Val() <= int64(w.limit), nil
}
