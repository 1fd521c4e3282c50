package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisListCacheSetScript writes the entry only while the namespace generation
// still equals the one the caller loaded under.
var redisListCacheSetScript = redis.NewScript(`
local current = redis.call("GET", KEYS[1]) or "0"
if current ~= ARGV[1] then
  return 0
end
redis.call("SET", KEYS[2], ARGV[2], "PX", ARGV[3])
redis.call("SADD", KEYS[3], KEYS[2])
redis.call("PEXPIRE", KEYS[3], ARGV[4])
return 1
`)

// RedisListCacheStore shares list pages across API replicas. Each namespace
// keeps a set of its live keys so invalidation does not need SCAN. Keys of one
// namespace share a hash tag so the set script stays within one cluster slot.
type RedisListCacheStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisListCacheStore(client redis.UniversalClient, prefix string) *RedisListCacheStore {
	if prefix == "" {
		prefix = "nanotrace:list_cache"
	}
	return &RedisListCacheStore{client: client, prefix: prefix}
}

func (s *RedisListCacheStore) Generation(ctx context.Context, namespace string) (uint64, error) {
	gen, err := s.client.Get(ctx, s.generationKey(namespace)).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (s *RedisListCacheStore) Get(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	value, err := s.client.Get(ctx, s.dataKey(namespace, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (s *RedisListCacheStore) Set(ctx context.Context, namespace, key string, generation uint64, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	keys := []string{s.generationKey(namespace), s.dataKey(namespace, key), s.indexKey(namespace)}
	return redisListCacheSetScript.Run(ctx, s.client, keys,
		strconv.FormatUint(generation, 10),
		value,
		ttl.Milliseconds(),
		(ttl + time.Minute).Milliseconds(),
	).Err()
}

// InvalidateNamespace bumps the generation before dropping entries so that a
// Set racing with it is refused.
func (s *RedisListCacheStore) InvalidateNamespace(ctx context.Context, namespace string) error {
	if err := s.client.Incr(ctx, s.generationKey(namespace)).Err(); err != nil {
		return err
	}
	index := s.indexKey(namespace)
	keys, err := s.client.SMembers(ctx, index).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	pipe := s.client.TxPipeline()
	if len(keys) > 0 {
		pipe.Del(ctx, keys...)
	}
	pipe.Del(ctx, index)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisListCacheStore) dataKey(namespace, key string) string {
	return fmt.Sprintf("%s:{%s}:data:%s", s.prefix, namespace, hashKey(key))
}

func (s *RedisListCacheStore) indexKey(namespace string) string {
	return fmt.Sprintf("%s:{%s}:index", s.prefix, namespace)
}

func (s *RedisListCacheStore) generationKey(namespace string) string {
	return fmt.Sprintf("%s:{%s}:gen", s.prefix, namespace)
}

func hashKey(v string) string {
	sum := sha256.Sum256([]byte(v))
	return hex.EncodeToString(sum[:])
}
