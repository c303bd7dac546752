package coord

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	negInf = math.Inf(-1)
	posInf = math.Inf(1)
)

// releaseScript deletes key only if its value still equals owner,
// preventing a prolonged/expired lock from being released by a holder
// that has since lost it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`)

// prolongScript extends key's TTL only if its value still equals owner.
var prolongScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
else
	return 0
end
`)

// RedisStore implements Store against Valkey/Redis with lock CAS
// scripts, sorted sets, and pub/sub.
type RedisStore struct {
	client *redis.Client
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return val, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

func (s *RedisStore) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, key, value, ttl).Result()
}

func (s *RedisStore) AcquireLock(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, key, owner, ttl).Result()
}

func (s *RedisStore) ProlongLock(ctx context.Context, key, owner string, ttl time.Duration) error {
	n, err := prolongScript.Run(ctx, s.client, []string{key}, owner, ttl.Milliseconds()).Int()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}

func (s *RedisStore) ReleaseLock(ctx context.Context, key, owner string) error {
	n, err := releaseScript.Run(ctx, s.client, []string{key}, owner).Int()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}

func (s *RedisStore) ZAdd(ctx context.Context, setKey, member string, score float64) error {
	return s.client.ZAdd(ctx, setKey, redis.Z{Score: score, Member: member}).Err()
}

func (s *RedisStore) ZRangeByScore(ctx context.Context, setKey string, min, max float64, limit int64) ([]string, error) {
	opts := &redis.ZRangeBy{
		Min: formatScore(min),
		Max: formatScore(max),
	}
	if limit > 0 {
		opts.Count = limit
	}
	return s.client.ZRangeByScore(ctx, setKey, opts).Result()
}

func (s *RedisStore) ZRem(ctx context.Context, setKey, member string) error {
	return s.client.ZRem(ctx, setKey, member).Err()
}

func (s *RedisStore) ZCard(ctx context.Context, setKey string) (int64, error) {
	return s.client.ZCard(ctx, setKey).Result()
}

func (s *RedisStore) LPush(ctx context.Context, listKey string, value []byte) error {
	return s.client.LPush(ctx, listKey, value).Err()
}

func (s *RedisStore) LTrim(ctx context.Context, listKey string, start, stop int64) error {
	return s.client.LTrim(ctx, listKey, start, stop).Err()
}

func (s *RedisStore) LRange(ctx context.Context, listKey string, start, stop int64) ([][]byte, error) {
	vals, err := s.client.LRange(ctx, listKey, start, stop).Result()
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(vals))
	for i, v := range vals {
		out[i] = []byte(v)
	}
	return out, nil
}

func (s *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return s.client.Expire(ctx, key, ttl).Err()
}

func (s *RedisStore) Publish(ctx context.Context, channel string, payload []byte) error {
	return s.client.Publish(ctx, channel, payload).Err()
}

func (s *RedisStore) Subscribe(ctx context.Context, channel string) Subscription {
	pubsub := s.client.Subscribe(ctx, channel)
	return &redisSubscription{pubsub: pubsub, ch: make(chan []byte, 64)}
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

var _ Store = (*RedisStore)(nil)

func formatScore(f float64) string {
	if f == negInf {
		return "-inf"
	}
	if f == posInf {
		return "+inf"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
