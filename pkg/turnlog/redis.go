package turnlog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/renandav/livia/pkg/errorsx"
)

// RedisConfig locates the Redis deployment and names the list the turns are
// appended to.
type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	Key        string
	MaxEntries int
	TTL        time.Duration
}

// RedisStore appends turns to a capped Redis list so several backend replicas
// can share one audit trail.
type RedisStore struct {
	rdb        *redis.Client
	key        string
	maxEntries int64
	ttl        time.Duration
}

// OpenRedisStore connects and pings before returning a usable store.
func OpenRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errorsx.Wrap(err, errorsx.ReasonTurnlogOpen)
	}
	key := cfg.Key
	if key == "" {
		key = "livia:turns"
	}
	maxEntries := int64(cfg.MaxEntries)
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	return &RedisStore{rdb: rdb, key: key, maxEntries: maxEntries, ttl: cfg.TTL}, nil
}

func (s *RedisStore) AddTurn(ctx context.Context, t Turn) error {
	if t.At.IsZero() {
		t.At = time.Now()
	}
	b, err := json.Marshal(t)
	if err != nil {
		return errorsx.Wrap(err, errorsx.ReasonTurnlogAppend)
	}
	pipe := s.rdb.TxPipeline()
	pipe.RPush(ctx, s.key, b)
	pipe.LTrim(ctx, s.key, -s.maxEntries, -1)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return errorsx.Wrap(err, errorsx.ReasonTurnlogAppend)
	}
	return nil
}

func (s *RedisStore) Recent(ctx context.Context, limit int) ([]Turn, error) {
	start := int64(0)
	if limit > 0 {
		start = -int64(limit)
	}
	vals, err := s.rdb.LRange(ctx, s.key, start, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Turn, 0, len(vals))
	for _, v := range vals {
		var t Turn
		if err := json.Unmarshal([]byte(v), &t); err != nil {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *RedisStore) Close() error { return s.rdb.Close() }

var _ Store = (*RedisStore)(nil)
