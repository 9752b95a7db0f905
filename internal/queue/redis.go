package queue

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

const defaultRedisKey = "discovery:audits"

// RedisQueue is the multi-process backend: LPUSH on submit, BRPOP on the
// workers, so a pending id survives a process restart.
type RedisQueue struct {
	client *redis.Client
	key    string
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(ctx context.Context, url, key string) (*RedisQueue, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, eris.Wrap(err, "queue: parse redis url")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, eris.Wrap(err, "queue: redis ping")
	}
	if key == "" {
		key = defaultRedisKey
	}
	return &RedisQueue{client: client, key: key}, nil
}

// NewRedisFromClient wraps an existing client; used by tests with miniredis.
func NewRedisFromClient(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = defaultRedisKey
	}
	return &RedisQueue{client: client, key: key}
}

func (q *RedisQueue) Enqueue(ctx context.Context, auditID string) error {
	if err := q.client.LPush(ctx, q.key, auditID).Err(); err != nil {
		return eris.Wrap(err, "queue: lpush")
	}
	return nil
}

func (q *RedisQueue) Dequeue(ctx context.Context) (string, error) {
	for {
		res, err := q.client.BRPop(ctx, time.Second, q.key).Result()
		if errors.Is(err, redis.Nil) {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			if errors.Is(err, redis.ErrClosed) {
				return "", ErrClosed
			}
			return "", eris.Wrap(err, "queue: brpop")
		}
		// BRPOP returns [key, value].
		return res[1], nil
	}
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}
