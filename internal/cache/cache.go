// internal/cache/cache.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/tradebook/tradebook-backend/internal/config"
)

const versionKey = "tradebook:cache:version"

// Cache is a versioned JSON cache on redis. A nil *Cache is valid and caches nothing,
// so callers never branch on whether redis is configured.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Connect dials redis from config. It returns nil (no caching) when redis is not
// configured or unreachable.
func Connect(ctx context.Context, cfg config.RedisConfig) *Cache {
	if !cfg.Enabled() {
		logrus.Info("Redis not configured, dashboard caching disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logrus.WithError(err).WithField("addr", cfg.Addr()).Warn("Redis unreachable, dashboard caching disabled")
		_ = client.Close()
		return nil
	}

	logrus.WithField("addr", cfg.Addr()).Info("Connected to redis")
	return New(client, time.Duration(cfg.SummaryTTL)*time.Second)
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil
}

// Version returns the current generation, starting at 1.
func (c *Cache) Version(ctx context.Context) (int64, error) {
	if !c.enabled() {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, versionKey).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.SetNX(ctx, versionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	return ver, err
}

// Key joins parts and appends the current version.
func (c *Cache) Key(ctx context.Context, parts ...string) (string, error) {
	joined := strings.Join(parts, ":")
	if !c.enabled() {
		return joined, nil
	}
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:v%d", joined, ver), nil
}

// FetchJSON decodes the cached value at key into dest, or calls loader and stores its result.
func (c *Cache) FetchJSON(ctx context.Context, key string, dest interface{}, loader func(context.Context) (interface{}, error)) error {
	if loader == nil {
		return errors.New("cache: loader required")
	}

	if c.enabled() {
		payload, err := c.client.Get(ctx, key).Bytes()
		if err == nil {
			return json.Unmarshal(payload, dest)
		}
		if !errors.Is(err, redis.Nil) {
			logrus.WithError(err).WithField("key", key).Warn("Cache read failed, loading from source")
		}
	}

	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}

	if c.enabled() {
		if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			logrus.WithError(err).WithField("key", key).Warn("Cache write failed")
		}
	}
	return json.Unmarshal(raw, dest)
}

// Invalidate bumps the version so every key built before the call goes stale.
func (c *Cache) Invalidate(ctx context.Context) {
	if !c.enabled() {
		return
	}
	if err := c.client.Incr(ctx, versionKey).Err(); err != nil {
		logrus.WithError(err).Warn("Failed to bump cache version")
	}
}

func (c *Cache) Close() error {
	if !c.enabled() {
		return nil
	}
	return c.client.Close()
}
