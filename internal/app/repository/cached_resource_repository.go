package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sifan077/ResourceHub/internal/app/model"
	"go.uber.org/zap"
)

const (
	cacheKeyPrefix  = "resourcehub:resources"
	cacheVersionKey = cacheKeyPrefix + ":version"
)

// Cache is the part of the go-redis client the read-through cache relies on.
type Cache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
}

type cachedResourceRepository struct {
	next   ResourceRepository
	cache  Cache
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewCachedResourceRepository wraps next with a Redis read-through cache. Every
// Put bumps a version counter so cached reads never outlive a write. Redis
// failures are logged and the call falls through to next.
func NewCachedResourceRepository(next ResourceRepository, cache Cache, ttl time.Duration, logger *zap.Logger) ResourceRepository {
	return &cachedResourceRepository{
		next:   next,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

func (r *cachedResourceRepository) Put(ctx context.Context, resource *model.Resource) error {
	if err := r.next.Put(ctx, resource); err != nil {
		return err
	}
	if err := r.cache.Incr(ctx, cacheVersionKey).Err(); err != nil {
		r.logger.Warn("failed to invalidate resource cache", zap.Error(err))
	}
	return nil
}

func (r *cachedResourceRepository) Get(ctx context.Context, id, location string) (*model.Resource, error) {
	version, ok := r.version(ctx)
	key := cacheKey(version, "get", id, location)

	if ok {
		var cached model.Resource
		if r.load(ctx, key, &cached) && !cached.Expired(r.now()) {
			return &cached, nil
		}
	}

	resource, err := r.next.Get(ctx, id, location)
	if err != nil {
		return nil, err
	}
	if ok {
		r.store(ctx, key, resource)
	}
	return resource, nil
}

func (r *cachedResourceRepository) QueryByType(ctx context.Context, resourceType, locationPrefix string) ([]model.Resource, error) {
	return r.list(ctx, []string{"query", resourceType, locationPrefix}, func() ([]model.Resource, error) {
		return r.next.QueryByType(ctx, resourceType, locationPrefix)
	})
}

func (r *cachedResourceRepository) ScanByLocationPrefix(ctx context.Context, locationPrefix string) ([]model.Resource, error) {
	return r.list(ctx, []string{"scan", locationPrefix}, func() ([]model.Resource, error) {
		return r.next.ScanByLocationPrefix(ctx, locationPrefix)
	})
}

func (r *cachedResourceRepository) list(ctx context.Context, parts []string, fetch func() ([]model.Resource, error)) ([]model.Resource, error) {
	version, ok := r.version(ctx)
	key := cacheKey(version, parts[0], parts[1:]...)

	if ok {
		var cached []model.Resource
		if r.load(ctx, key, &cached) {
			now := r.now()
			live := make([]model.Resource, 0, len(cached))
			for i := range cached {
				if !cached[i].Expired(now) {
					live = append(live, cached[i])
				}
			}
			return live, nil
		}
	}

	result, err := fetch()
	if err != nil {
		return nil, err
	}
	if ok {
		r.store(ctx, key, result)
	}
	return result, nil
}

// cacheKey query-escapes each part so values containing ':' cannot collide.
func cacheKey(version int64, op string, parts ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s:v%d:%s", cacheKeyPrefix, version, op)
	for _, p := range parts {
		b.WriteByte(':')
		b.WriteString(url.QueryEscape(p))
	}
	return b.String()
}

// version returns the current cache generation; ok is false when Redis is unusable.
func (r *cachedResourceRepository) version(ctx context.Context) (int64, bool) {
	v, err := r.cache.Get(ctx, cacheVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, true
	}
	if err != nil {
		r.logger.Warn("resource cache unavailable", zap.Error(err))
		return 0, false
	}
	return v, true
}

func (r *cachedResourceRepository) load(ctx context.Context, key string, dst interface{}) bool {
	data, err := r.cache.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("failed to read resource cache", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		r.logger.Warn("discarding malformed cache entry", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (r *cachedResourceRepository) store(ctx context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, key, data, r.ttl).Err(); err != nil {
		r.logger.Warn("failed to write resource cache", zap.String("key", key), zap.Error(err))
	}
}
