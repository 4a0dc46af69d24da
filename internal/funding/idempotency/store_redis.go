package idempotency

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"incorp/pkg/platform/sentinel"
)

const (
	fundingKeyPrefix = "funding:idem:"

	markerInFlight  = "in_flight"
	markerCompleted = "completed"
)

// Redis is the production idempotency store. SET NX makes reservation
// acquisition atomic across nodes.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Begin(ctx context.Context, key string) error {
	acquired, err := r.client.SetNX(ctx, fundingKeyPrefix+key, markerInFlight, InFlightTTL).Result()
	if err != nil {
		return fmt.Errorf("reserve funding key: %w", err)
	}
	if acquired {
		return nil
	}

	val, err := r.client.Get(ctx, fundingKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		// The holder expired between SETNX and GET; treat as contended and
		// let the caller retry.
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("inspect funding key: %w", err)
	}
	if val == markerCompleted {
		return sentinel.ErrAlreadyExists
	}
	return sentinel.ErrConflict
}

func (r *Redis) Complete(ctx context.Context, key string) error {
	return r.client.Set(ctx, fundingKeyPrefix+key, markerCompleted, CompletedTTL).Err()
}

func (r *Redis) Fail(ctx context.Context, key string) error {
	return r.client.Del(ctx, fundingKeyPrefix+key).Err()
}
