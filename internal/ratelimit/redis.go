package ratelimit

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// RedisStore keeps fixed-window counters in Redis so several instances can
// share limiter state. One counter key per (client key, policy window); the
// expiry is set on the first increment of a window and left untouched after.
//
// Unlike MemoryStore, over-limit attempts still increment the counter (INCR
// runs before the comparison). The admit/reject boundary is unchanged: the
// first Limit requests of a window are admitted, everything after is rejected
// until the key expires.
type RedisStore struct {
	client   *redis.Client
	policies []Policy
	prefix   string
}

var _ RateStore = (*RedisStore)(nil)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func NewRedisStore(cfg RedisConfig, policies []Policy) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisStore{
		client:   client,
		policies: policies,
		prefix:   "ratelimit",
	}, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Admit implements RateStore. Counter updates ride on Redis INCR, which is
// atomic, so concurrent requests for the same key cannot over-admit.
func (s *RedisStore) Admit(ctx context.Context, key string) (Decision, error) {
	now := time.Now()

	pipe := s.client.TxPipeline()
	counts := make([]*redis.IntCmd, len(s.policies))
	ttls := make([]*redis.DurationCmd, len(s.policies))
	for i, p := range s.policies {
		k := fmt.Sprintf("%s:%s:%s", s.prefix, key, p.Window)
		counts[i] = pipe.Incr(ctx, k)
		pipe.ExpireNX(ctx, k, p.Window)
		ttls[i] = pipe.PTTL(ctx, k)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, fmt.Errorf("redis admit failed: %w", err)
	}

	var admitted Decision
	for i, p := range s.policies {
		count := counts[i].Val()
		ttl := ttls[i].Val()
		if ttl < 0 {
			ttl = p.Window
		}

		d := Decision{
			Allowed:   count <= int64(p.Limit),
			Limit:     p.Limit,
			Remaining: int(int64(p.Limit) - count),
			ResetAt:   now.Add(ttl),
		}
		if d.Remaining < 0 {
			d.Remaining = 0
		}
		if !d.Allowed {
			return d, nil
		}
		if i == 0 || d.Remaining < admitted.Remaining {
			admitted = d
		}
	}
	return admitted, nil
}
