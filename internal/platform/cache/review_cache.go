package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
	"scholarstream/internal/domain/model"

	"github.com/redis/go-redis/v9"
)

const (
	// PublicReviewsKey holds the JSON-encoded public recent-reviews listing.
	PublicReviewsKey = "cache:reviews:public"
	// PublicReviewsGenKey is bumped on every invalidation.
	PublicReviewsGenKey = "cache:reviews:public:gen"
)

// ErrStale is returned by SetPublic when the listing was invalidated after
// the caller read its generation. Nothing is stored.
var ErrStale = errors.New("review cache generation changed")

// ReviewCache is a read-through cache for the public review projection. It is
// never authoritative: a miss or a Redis failure falls back to storage.
//
// GetPublic reports the generation current at read time. A listing loaded
// from storage after a miss is only stored if SetPublic is given that same
// generation, so a write that invalidated in between is never masked.
type ReviewCache interface {
	GetPublic(ctx context.Context) (reviews []model.PublicReview, gen int64, hit bool, err error)
	SetPublic(ctx context.Context, gen int64, reviews []model.PublicReview) error
	Invalidate(ctx context.Context) error
}

type RedisReviewCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisReviewCache(rdb *redis.Client, ttl time.Duration) *RedisReviewCache {
	return &RedisReviewCache{rdb: rdb, ttl: ttl}
}

func (c *RedisReviewCache) GetPublic(ctx context.Context) ([]model.PublicReview, int64, bool, error) {
	vals, err := c.rdb.MGet(ctx, PublicReviewsGenKey, PublicReviewsKey).Result()
	if err != nil {
		return nil, 0, false, fmt.Errorf("reading review cache: %w", err)
	}

	gen, err := parseGeneration(vals[0])
	if err != nil {
		return nil, 0, false, err
	}
	data, ok := vals[1].(string)
	if !ok {
		return nil, gen, false, nil
	}

	var reviews []model.PublicReview
	if err := json.Unmarshal([]byte(data), &reviews); err != nil {
		return nil, gen, false, fmt.Errorf("decoding review cache: %w", err)
	}
	return reviews, gen, true, nil
}

// SetPublic stores the listing if the generation still equals gen. The
// generation key is watched, so an Invalidate racing with the write aborts it.
func (c *RedisReviewCache) SetPublic(ctx context.Context, gen int64, reviews []model.PublicReview) error {
	if reviews == nil {
		reviews = []model.PublicReview{}
	}
	data, err := json.Marshal(reviews)
	if err != nil {
		return fmt.Errorf("encoding review cache: %w", err)
	}

	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, PublicReviewsGenKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return ErrStale
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, PublicReviewsKey, data, c.ttl)
			return nil
		})
		return err
	}, PublicReviewsGenKey)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrStale), errors.Is(err, redis.TxFailedErr):
		return ErrStale
	default:
		return fmt.Errorf("writing review cache: %w", err)
	}
}

// Invalidate drops the listing and bumps the generation in one transaction.
func (c *RedisReviewCache) Invalidate(ctx context.Context) error {
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, PublicReviewsGenKey)
		pipe.Del(ctx, PublicReviewsKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidating review cache: %w", err)
	}
	return nil
}

func parseGeneration(v interface{}) (int64, error) {
	s, ok := v.(string)
	if !ok {
		return 0, nil
	}
	gen, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("decoding review cache generation: %w", err)
	}
	return gen, nil
}

// NopReviewCache always misses. Used when no Redis is configured.
type NopReviewCache struct{}

func (NopReviewCache) GetPublic(context.Context) ([]model.PublicReview, int64, bool, error) {
	return nil, 0, false, nil
}
func (NopReviewCache) SetPublic(context.Context, int64, []model.PublicReview) error { return nil }
func (NopReviewCache) Invalidate(context.Context) error                            { return nil }
