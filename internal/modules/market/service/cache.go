package service

import (
	"context"
	"fmt"
	"time"

	"signal_bot/internal/models"
	"signal_bot/pkg/logger"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

// BytesStore — минимальный KV для кэша свечей.
type BytesStore interface {
	GetBytes(ctx context.Context, key string) ([]byte, bool, error)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RedisStore struct {
	cli *redis.Client
}

func NewRedisStore(cfg RedisConfig) *RedisStore {
	return &RedisStore{cli: redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})}
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.cli.Ping(ctx).Err()
}

func (r *RedisStore) GetBytes(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := r.cli.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

func (r *RedisStore) SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.cli.Set(ctx, key, value, ttl).Err()
}

func (r *RedisStore) Close() error {
	return r.cli.Close()
}

// Cached держит свечи в KV на короткий TTL. Ошибки кэша не мешают запросу.
type Cached struct {
	next  Fetcher
	store BytesStore
	ttl   time.Duration
}

var _ Fetcher = (*Cached)(nil)

func NewCached(next Fetcher, store BytesStore, ttl time.Duration) *Cached {
	return &Cached{next: next, store: store, ttl: ttl}
}

func cacheKey(symbol string, tf models.Timeframe, bars int) string {
	return fmt.Sprintf("ohlc:%s:%s:%d", symbol, tf, bars)
}

func (c *Cached) Fetch(ctx context.Context, symbol string, tf models.Timeframe, bars int) (models.Series, error) {
	key := cacheKey(symbol, tf, bars)

	b, ok, err := c.store.GetBytes(ctx, key)
	switch {
	case err != nil:
		logger.Warn("market cache get %s: %v", key, err)
	case ok:
		var s models.Series
		if err := sonic.Unmarshal(b, &s); err == nil && s.Len() > 0 {
			return s, nil
		}
		logger.Warn("market cache: corrupt entry %s", key)
	}

	s, err := c.next.Fetch(ctx, symbol, tf, bars)
	if err != nil {
		return models.Series{}, err
	}

	if b, err := sonic.Marshal(s); err == nil {
		if err := c.store.SetBytes(ctx, key, b, c.ttl); err != nil {
			logger.Warn("market cache set %s: %v", key, err)
		}
	}
	return s, nil
}
