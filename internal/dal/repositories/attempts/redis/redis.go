package redisrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisAttemptRepository counts failed verification attempts per order.
// Counters expire ttl after the first failure.
type RedisAttemptRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisAttemptRepository(client *redis.Client, ttl time.Duration) *RedisAttemptRepository {
	return &RedisAttemptRepository{
		client: client,
		ttl:    ttl,
	}
}

// Count returns the number of failed attempts recorded for the order.
func (r *RedisAttemptRepository) Count(ctx context.Context, orderID string) (int64, error) {
	n, err := r.client.Get(ctx, attemptsKey(orderID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get failed: %w", err)
	}

	return n, nil
}

// Increment records a failed attempt and returns the new count.
// INCR and EXPIRE NX run in one MULTI so a counter is never left without a TTL.
func (r *RedisAttemptRepository) Increment(ctx context.Context, orderID string) (int64, error) {
	key := attemptsKey(orderID)

	var incr *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, r.ttl)

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("redis incr failed: %w", err)
	}

	return incr.Val(), nil
}

// Reset forgets the attempts recorded for the order.
func (r *RedisAttemptRepository) Reset(ctx context.Context, orderID string) error {
	if err := r.client.Del(ctx, attemptsKey(orderID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}

	return nil
}

func attemptsKey(orderID string) string {
	return fmt.Sprintf("verify_attempts:%s", orderID)
}
