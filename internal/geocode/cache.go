package geocode

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"earthtour/internal/geo"
	"earthtour/internal/pkg/logger"
)

// DefaultCacheTTL is how long a resolved coordinate stays in Redis. Place
// names move slowly.
const DefaultCacheTTL = 30 * 24 * time.Hour

// CachedResolver memoizes successful lookups. Results are kept in an
// in-process map and, when a Redis client is provided, shared across
// restarts through Redis. Failed lookups are never cached.
type CachedResolver struct {
	next Resolver
	rdb  *redis.Client
	ttl  time.Duration
	log  *logger.Logger

	mu  sync.RWMutex
	mem map[string]geo.Point
}

// NewCachedResolver wraps next with caching. rdb may be nil, in which case
// only the in-process cache is used.
func NewCachedResolver(next Resolver, rdb *redis.Client, ttl time.Duration, log *logger.Logger) *CachedResolver {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if log == nil {
		log = logger.NewDefault()
	}
	return &CachedResolver{
		next: next,
		rdb:  rdb,
		ttl:  ttl,
		log:  log.WithComponent("geocode-cache"),
		mem:  make(map[string]geo.Point),
	}
}

// Resolve returns a cached coordinate when available, otherwise delegates to
// the wrapped resolver. Redis failures degrade to a plain lookup; the cache
// must never make geocoding less available.
func (c *CachedResolver) Resolve(ctx context.Context, name string) (geo.Point, error) {
	key := cacheKey(name)

	c.mu.RLock()
	pt, hit := c.mem[key]
	c.mu.RUnlock()
	if hit {
		return pt, nil
	}

	if c.rdb != nil {
		if val, err := c.rdb.Get(ctx, key).Result(); err == nil {
			if pt, ok := decodePoint(val); ok {
				c.remember(key, pt)
				return pt, nil
			}
		} else if err != redis.Nil {
			c.log.FromContext(ctx).Warn("redis cache read failed", "error", err.Error())
		}
	}

	pt, err := c.next.Resolve(ctx, name)
	if err != nil {
		return geo.Point{}, err
	}

	c.remember(key, pt)
	if c.rdb != nil {
		if err := c.rdb.Set(ctx, key, encodePoint(pt), c.ttl).Err(); err != nil {
			c.log.FromContext(ctx).Warn("redis cache write failed", "error", err.Error())
		}
	}

	return pt, nil
}

func (c *CachedResolver) remember(key string, pt geo.Point) {
	c.mu.Lock()
	c.mem[key] = pt
	c.mu.Unlock()
}

func cacheKey(name string) string {
	return "earthtour:geocode:" + strings.ToLower(strings.TrimSpace(name))
}

func encodePoint(pt geo.Point) string {
	return fmt.Sprintf("%.7f,%.7f", pt.Lat, pt.Lon)
}

func decodePoint(s string) (geo.Point, bool) {
	var pt geo.Point
	if _, err := fmt.Sscanf(s, "%f,%f", &pt.Lat, &pt.Lon); err != nil {
		return geo.Point{}, false
	}
	return pt, true
}
