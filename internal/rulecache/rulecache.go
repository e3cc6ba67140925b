// Package rulecache layers a Redis read-through cache over quota rule
// resolution. Rules are read on every scan but change rarely, so short TTL
// caching keeps rule queries off the database during station peaks.
package rulecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/fuelguard-dz/fuelguard/internal/models"
	"github.com/fuelguard-dz/fuelguard/internal/quota"
)

const (
	keyPrefix  = "fuelguard:rules:"
	defaultTTL = 5 * time.Minute
	opTimeout  = 500 * time.Millisecond
)

// Cache wraps a RuleResolver with Redis. Cache failures degrade to direct
// resolution and are logged, never surfaced.
type Cache struct {
	rdb   *redis.Client
	inner quota.RuleResolver
	ttl   time.Duration
}

// New returns a caching resolver over inner. When addr is empty no Redis
// client is created and inner is returned unchanged.
func New(addr, password string, dbNum int, inner quota.RuleResolver) quota.RuleResolver {
	if addr == "" {
		return inner
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       dbNum,
	})
	return &Cache{rdb: rdb, inner: inner, ttl: defaultTTL}
}

func (c *Cache) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), opTimeout)
}

func cacheGet[T any](c *Cache, key string) (*T, bool) {
	ctx, cancel := c.ctx()
	defer cancel()
	raw, errGet := c.rdb.Get(ctx, key).Bytes()
	if errGet != nil {
		if !errors.Is(errGet, redis.Nil) {
			log.WithError(errGet).Debug("rulecache: get failed")
		}
		return nil, false
	}
	var value T
	if errUnmarshal := json.Unmarshal(raw, &value); errUnmarshal != nil {
		log.WithError(errUnmarshal).Debug("rulecache: stale payload")
		return nil, false
	}
	return &value, true
}

func cacheSet[T any](c *Cache, key string, value *T) {
	raw, errMarshal := json.Marshal(value)
	if errMarshal != nil {
		return
	}
	ctx, cancel := c.ctx()
	defer cancel()
	if errSet := c.rdb.Set(ctx, key, raw, c.ttl).Err(); errSet != nil {
		log.WithError(errSet).Debug("rulecache: set failed")
	}
}

// FuelRule resolves through the cache. Only positive lookups are cached so
// a newly created rule takes effect immediately.
func (c *Cache) FuelRule(vehicleType, stationWilaya string) (*models.FuelRule, error) {
	key := fmt.Sprintf("%sfuel:%s:%s", keyPrefix, vehicleType, stationWilaya)
	if rule, ok := cacheGet[models.FuelRule](c, key); ok {
		return rule, nil
	}
	rule, errResolve := c.inner.FuelRule(vehicleType, stationWilaya)
	if errResolve != nil || rule == nil {
		return rule, errResolve
	}
	cacheSet(c, key, rule)
	return rule, nil
}

// GasBottleRule resolves through the cache keyed on member count.
func (c *Cache) GasBottleRule(memberCount int) (*models.GasBottleRule, error) {
	key := fmt.Sprintf("%sgas:%d", keyPrefix, memberCount)
	if rule, ok := cacheGet[models.GasBottleRule](c, key); ok {
		return rule, nil
	}
	rule, errResolve := c.inner.GasBottleRule(memberCount)
	if errResolve != nil || rule == nil {
		return rule, errResolve
	}
	cacheSet(c, key, rule)
	return rule, nil
}

// Invalidate drops every cached rule. Called after administrators change
// rule tables.
func (c *Cache) Invalidate() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	iter := c.rdb.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if errIter := iter.Err(); errIter != nil {
		log.WithError(errIter).Warn("rulecache: invalidate scan failed")
		return
	}
	if len(keys) == 0 {
		return
	}
	if errDel := c.rdb.Del(ctx, keys...).Err(); errDel != nil {
		log.WithError(errDel).Warn("rulecache: invalidate delete failed")
	}
}

// Invalidator is implemented by resolvers that cache rule lookups.
type Invalidator interface {
	Invalidate()
}

// InvalidateIfCached invalidates r when it is a caching resolver.
func InvalidateIfCached(r quota.RuleResolver) {
	if inv, ok := r.(Invalidator); ok {
		inv.Invalidate()
	}
}
