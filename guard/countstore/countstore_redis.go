package countstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisCountPrefix string = "count/"

type RedisCountStore struct {
	Client *redis.Client
}

var _ CountStore = (*RedisCountStore)(nil)

func NewRedisCountStore(redisURL string) (*RedisCountStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	_, err = rdb.Ping(context.TODO()).Result()
	if err != nil {
		return nil, err
	}
	return &RedisCountStore{Client: rdb}, nil
}

func (s *RedisCountStore) GetCount(ctx context.Context, name, val, period string) (int, error) {
	key := redisCountPrefix + periodBucket(name, val, period, time.Now())
	c, err := s.Client.Get(ctx, key).Int()
	if err == redis.Nil {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	return c, nil
}

func (s *RedisCountStore) Increment(ctx context.Context, name, val string) error {

	// increment multiple buckets in a single redis round-trip
	multi := s.Client.Pipeline()
	now := time.Now()
	for _, period := range []string{PeriodTotal, PeriodDay, PeriodHour} {
		key := redisCountPrefix + periodBucket(name, val, period, now)
		multi.Incr(ctx, key)
		if ttl := periodTTL(period); ttl > 0 {
			multi.Expire(ctx, key, ttl)
		}
	}
	_, err := multi.Exec(ctx)
	return err
}

func (s *RedisCountStore) IncrementForPeriod(ctx context.Context, name, val, period string) (int, error) {
	key := redisCountPrefix + periodBucket(name, val, period, time.Now())

	// INCR+EXPIRE in one round-trip; INCR returns the post-increment value,
	// so concurrent callers each observe a distinct count
	multi := s.Client.Pipeline()
	incr := multi.Incr(ctx, key)
	if ttl := periodTTL(period); ttl > 0 {
		multi.Expire(ctx, key, ttl)
	}
	if _, err := multi.Exec(ctx); err != nil {
		return 0, err
	}
	return int(incr.Val()), nil
}
