package inbox

import (
	"context"
	"errors"
	"time"

	"fitnexo/internal/gateway"
	"fitnexo/internal/logger"

	"github.com/redis/go-redis/v9"
)

const (
	redisQueueKey      = "inbox:notifications"
	redisProcessingKey = "inbox:processing"
	redisFailedKey     = "inbox:failed"
	redisPollTimeout   = 2 * time.Second
)

// Redis is a list-backed inbox. Received notifications sit in a processing
// list until acknowledged.
type Redis struct {
	rdb         *redis.Client
	pollTimeout time.Duration
}

func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb, pollTimeout: redisPollTimeout}
}

func (r *Redis) Publish(ctx context.Context, n gateway.Notification) error {
	data, err := encode(n)
	if err != nil {
		return err
	}
	return r.rdb.LPush(ctx, redisQueueKey, data).Err()
}

func (r *Redis) Receive(ctx context.Context) (Delivery, error) {
	raw, err := r.rdb.BRPopLPush(ctx, redisQueueKey, redisProcessingKey, r.pollTimeout).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	n, err := decode([]byte(raw))
	if err != nil {
		logger.WithError(err).Error("inbox: dropping unreadable message", "raw", raw)
		r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.LRem(ctx, redisProcessingKey, 1, raw)
			pipe.LPush(ctx, redisFailedKey, raw)
			return nil
		})
		return nil, nil
	}

	return &redisDelivery{rdb: r.rdb, raw: raw, n: n}, nil
}

// Recover moves notifications left in the processing list by a crashed worker
// back to the queue. It returns how many were moved.
func (r *Redis) Recover(ctx context.Context) (int, error) {
	moved := 0
	for {
		err := r.rdb.RPopLPush(ctx, redisProcessingKey, redisQueueKey).Err()
		if errors.Is(err, redis.Nil) {
			return moved, nil
		}
		if err != nil {
			return moved, err
		}
		moved++
	}
}

func (r *Redis) Len(ctx context.Context) int64 {
	n, err := r.rdb.LLen(ctx, redisQueueKey).Result()
	if err != nil {
		return 0
	}
	return n
}

func (r *Redis) FailedLen(ctx context.Context) int64 {
	n, err := r.rdb.LLen(ctx, redisFailedKey).Result()
	if err != nil {
		return 0
	}
	return n
}

type redisDelivery struct {
	rdb *redis.Client
	raw string
	n   gateway.Notification
}

func (d *redisDelivery) Notification() gateway.Notification {
	return d.n
}

func (d *redisDelivery) Ack(ctx context.Context) error {
	return d.rdb.LRem(ctx, redisProcessingKey, 1, d.raw).Err()
}

func (d *redisDelivery) Nack(ctx context.Context, requeue bool) error {
	target := redisFailedKey
	payload := d.raw
	if requeue {
		n := d.n
		n.Tries++
		data, err := encode(n)
		if err != nil {
			return err
		}
		target = redisQueueKey
		payload = string(data)
	}

	_, err := d.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, redisProcessingKey, 1, d.raw)
		pipe.LPush(ctx, target, payload)
		return nil
	})
	return err
}
