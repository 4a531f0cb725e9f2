package liststore

import (
	"context"
	"sort"

	"github.com/redis/go-redis/v9"
)

var redisListPrefix string = "blocklist/"

type RedisListStore struct {
	Client *redis.Client
}

var _ ListStore = (*RedisListStore)(nil)

func NewRedisListStore(redisURL string) (*RedisListStore, error) {
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
	return &RedisListStore{Client: rdb}, nil
}

func (s *RedisListStore) Get(ctx context.Context, key string) ([]string, error) {
	terms, err := s.Client.SMembers(ctx, redisListPrefix+key).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(terms)
	return terms, nil
}

func (s *RedisListStore) Add(ctx context.Context, key string, terms []string) error {
	if len(terms) == 0 {
		return nil
	}
	vals := make([]any, len(terms))
	for i, t := range terms {
		vals[i] = t
	}
	return s.Client.SAdd(ctx, redisListPrefix+key, vals...).Err()
}

func (s *RedisListStore) Remove(ctx context.Context, key string, terms []string) error {
	if len(terms) == 0 {
		return nil
	}
	vals := make([]any, len(terms))
	for i, t := range terms {
		vals[i] = t
	}
	return s.Client.SRem(ctx, redisListPrefix+key, vals...).Err()
}
