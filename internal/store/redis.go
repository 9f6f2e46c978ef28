package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/enrich-cli/internal/model"
)

const resultKeyPrefix = "enrich:result:"

// CachedStore puts a Redis read-through cache in front of another Store.
// Redis failures are logged and fall through to the backing store.
type CachedStore struct {
	Store
	rdb *redis.Client
	ttl time.Duration
}

// NewCachedStore wraps backing with a Redis hot cache.
func NewCachedStore(backing Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CachedStore{Store: backing, rdb: rdb, ttl: ttl}
}

// NewRedisClient opens a client and verifies connectivity.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close() //nolint:errcheck
		return nil, eris.Wrapf(err, "redis: ping %s", addr)
	}
	return rdb, nil
}

// GetResult checks Redis first, then the backing store, filling Redis on a
// backing hit.
func (c *CachedStore) GetResult(ctx context.Context, domain string) (*model.Result, error) {
	raw, err := c.rdb.Get(ctx, resultKeyPrefix+domain).Bytes()
	switch {
	case err == nil:
		var res model.Result
		if uerr := json.Unmarshal(raw, &res); uerr == nil {
			return &res, nil
		}
		zap.L().Warn("redis: discarding undecodable cached result", zap.String("domain", domain))
	case !errors.Is(err, redis.Nil):
		zap.L().Warn("redis: get failed, using backing store", zap.String("domain", domain), zap.Error(err))
	}

	res, err := c.Store.GetResult(ctx, domain)
	if err != nil || res == nil {
		return res, err
	}
	c.set(ctx, res)
	return res, nil
}

// UpsertResult writes through to the backing store, then refreshes Redis.
func (c *CachedStore) UpsertResult(ctx context.Context, res *model.Result) error {
	if err := c.Store.UpsertResult(ctx, res); err != nil {
		return err
	}
	c.set(ctx, res)
	return nil
}

// Close closes the Redis client and the backing store.
func (c *CachedStore) Close() error {
	rerr := c.rdb.Close()
	if err := c.Store.Close(); err != nil {
		return err
	}
	return eris.Wrap(rerr, "redis: close")
}

func (c *CachedStore) set(ctx context.Context, res *model.Result) {
	body, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, resultKeyPrefix+res.Record.Domain, body, c.ttl).Err(); err != nil {
		zap.L().Warn("redis: set failed", zap.String("domain", res.Record.Domain), zap.Error(err))
	}
}
