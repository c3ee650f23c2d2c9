package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/R3E-Network/video_portal/internal/app/metrics"
	"github.com/R3E-Network/video_portal/pkg/logger"
)

// CacheConfig configures the two-tier response cache.
type CacheConfig struct {
	// RedisURL enables the L2 tier when set.
	RedisURL        string
	TTL             time.Duration
	MaxEntries      int
	CleanupInterval time.Duration
}

// Cache is an L1 in-process map backed by an optional L2 Redis. L1 is lost on
// restart; L2 is shared between replicas.
type Cache struct {
	l1              sync.Map // key -> *cacheEntry
	rdb             *redis.Client
	ttl             time.Duration
	maxEntries      int
	cleanupInterval time.Duration
	log             *logger.Logger

	stop chan struct{}
	once sync.Once
	now  func() time.Time
}

type cacheEntry struct {
	data      []byte
	expiresAt time.Time
}

// NewCache builds a cache. An unreachable Redis disables L2 instead of failing.
func NewCache(ctx context.Context, cfg CacheConfig, log *logger.Logger) *Cache {
	if log == nil {
		log = logger.NewDefault("catalog-cache")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 15 * time.Minute
	}
	c := &Cache{
		ttl:             cfg.TTL,
		maxEntries:      cfg.MaxEntries,
		cleanupInterval: cfg.CleanupInterval,
		log:             log,
		stop:            make(chan struct{}),
		now:             time.Now,
	}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.WithError(err).Warn("invalid redis URL, L2 disabled")
		} else {
			rdb := redis.NewClient(opts)
			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()
			if err := rdb.Ping(pingCtx).Err(); err != nil {
				log.WithError(err).Warn("redis unreachable, L2 disabled")
				_ = rdb.Close()
			} else {
				c.rdb = rdb
				log.WithField("addr", opts.Addr).Info("L2 redis connected")
			}
		}
	}
	return c
}

// NewCacheWithRedis builds a cache over an existing Redis client.
func NewCacheWithRedis(rdb *redis.Client, ttl time.Duration, maxEntries int) *Cache {
	c := NewCache(context.Background(), CacheConfig{TTL: ttl, MaxEntries: maxEntries}, nil)
	c.rdb = rdb
	return c
}

// CacheKey builds a deterministic cache key from parts.
func CacheKey(parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return fmt.Sprintf("vp:%x", hash[:12])
}

// Get loads key into dst. It tries L1, then L2, and refills L1 on an L2 hit.
func (c *Cache) Get(ctx context.Context, key string, dst any) bool {
	if c == nil {
		return false
	}

	if val, ok := c.l1.Load(key); ok {
		entry := val.(*cacheEntry)
		if c.now().Before(entry.expiresAt) && json.Unmarshal(entry.data, dst) == nil {
			metrics.RecordCacheLookup("l1", true)
			return true
		}
		c.l1.Delete(key)
	}
	metrics.RecordCacheLookup("l1", false)

	if c.rdb == nil {
		return false
	}
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.WithError(err).Debug("L2 get failed")
		}
		metrics.RecordCacheLookup("l2", false)
		return false
	}
	if json.Unmarshal(data, dst) != nil {
		metrics.RecordCacheLookup("l2", false)
		return false
	}
	metrics.RecordCacheLookup("l2", true)
	c.l1.Store(key, &cacheEntry{data: data, expiresAt: c.now().Add(c.ttl)})
	return true
}

// Set stores value in both tiers.
func (c *Cache) Set(ctx context.Context, key string, value any) {
	if c == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}

	c.evictIfNeeded()
	c.l1.Store(key, &cacheEntry{data: data, expiresAt: c.now().Add(c.ttl)})

	if c.rdb != nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.log.WithError(err).Debug("L2 set failed")
		}
	}
}

// Delete drops key from both tiers.
func (c *Cache) Delete(ctx context.Context, key string) {
	if c == nil {
		return
	}
	c.l1.Delete(key)
	if c.rdb != nil {
		_ = c.rdb.Del(ctx, key).Err()
	}
}

// Len reports the number of L1 entries.
func (c *Cache) Len() int {
	n := 0
	c.l1.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// evictIfNeeded drops expired entries first, then the ones closest to
// expiry, until L1 is under maxEntries.
func (c *Cache) evictIfNeeded() {
	if c.maxEntries <= 0 {
		return
	}
	count := c.Len()
	if count < c.maxEntries {
		return
	}

	now := c.now()
	c.l1.Range(func(key, val any) bool {
		if entry, ok := val.(*cacheEntry); ok && now.After(entry.expiresAt) {
			c.l1.Delete(key)
			count--
		}
		return count >= c.maxEntries
	})

	for count >= c.maxEntries {
		var oldestKey any
		oldestAt := now.Add(c.ttl + time.Hour)
		c.l1.Range(func(key, val any) bool {
			if entry, ok := val.(*cacheEntry); ok && entry.expiresAt.Before(oldestAt) {
				oldestKey = key
				oldestAt = entry.expiresAt
			}
			return true
		})
		if oldestKey == nil {
			break
		}
		c.l1.Delete(oldestKey)
		count--
	}
}

// Name implements system.Service.
func (c *Cache) Name() string { return "catalog-cache" }

// Start runs the L1 cleanup loop until Stop.
func (c *Cache) Start(ctx context.Context) error {
	interval := c.cleanupInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.stop:
				return
			case <-ticker.C:
				c.purgeExpired()
			}
		}
	}()
	return nil
}

// Stop ends the cleanup loop and closes Redis.
func (c *Cache) Stop(ctx context.Context) error {
	c.once.Do(func() { close(c.stop) })
	if c.rdb != nil {
		return c.rdb.Close()
	}
	return nil
}

func (c *Cache) purgeExpired() {
	now := c.now()
	c.l1.Range(func(key, val any) bool {
		if entry, ok := val.(*cacheEntry); ok && now.After(entry.expiresAt) {
			c.l1.Delete(key)
		}
		return true
	})
}
