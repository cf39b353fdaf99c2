package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"threadline/internal/models"
	"threadline/internal/observability"
	"threadline/internal/repository"

	"github.com/redis/go-redis/v9"
)

// ProfileCache resolves author profiles for feed pages. Hits come from
// Redis; misses are loaded from the store in one query and written back.
// With a nil client every lookup goes to the store.
type ProfileCache struct {
	rdb   *redis.Client
	store repository.Store[models.Profile]
	ttl   time.Duration
}

// NewProfileCache builds a cache in front of store. ttl <= 0 uses ProfileTTL.
func NewProfileCache(rdb *redis.Client, store repository.Store[models.Profile], ttl time.Duration) *ProfileCache {
	if ttl <= 0 {
		ttl = ProfileTTL
	}
	return &ProfileCache{rdb: rdb, store: store, ttl: ttl}
}

// GetMany returns the profiles for ids keyed by id. Unknown ids are absent
// from the result; duplicates are looked up once.
func (c *ProfileCache) GetMany(ctx context.Context, ids []string) (map[string]*models.Profile, error) {
	out := make(map[string]*models.Profile, len(ids))
	unique := dedupe(ids)
	if len(unique) == 0 {
		return out, nil
	}

	misses := unique
	if c.rdb != nil {
		misses = c.readThrough(ctx, unique, out)
	}
	if len(misses) == 0 {
		return out, nil
	}

	loaded, err := c.store.List(ctx, repository.Query{
		Filters: []repository.Filter{repository.In("id", misses)},
	})
	if err != nil {
		return nil, err
	}
	for _, p := range loaded {
		out[p.ID] = p
	}
	if c.rdb != nil && len(loaded) > 0 {
		c.writeBack(ctx, loaded)
	}
	return out, nil
}

// readThrough fills out from Redis and returns the ids it could not serve.
// Redis failures degrade to a full miss.
func (c *ProfileCache) readThrough(ctx context.Context, ids []string, out map[string]*models.Profile) []string {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = ProfileKey(id)
	}

	vals, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		observability.Logger.WarnContext(ctx, "Profile cache read failed", slog.String("error", err.Error()))
		return ids
	}

	var misses []string
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			misses = append(misses, ids[i])
			continue
		}
		var p models.Profile
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			misses = append(misses, ids[i])
			continue
		}
		out[ids[i]] = &p
	}
	return misses
}

func (c *ProfileCache) writeBack(ctx context.Context, profiles []*models.Profile) {
	pipe := c.rdb.Pipeline()
	for _, p := range profiles {
		data, err := json.Marshal(p)
		if err != nil {
			continue
		}
		pipe.Set(ctx, ProfileKey(p.ID), data, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		observability.Logger.WarnContext(ctx, "Profile cache write failed", slog.String("error", err.Error()))
	}
}

// Invalidate drops the cached profile for userID.
func (c *ProfileCache) Invalidate(ctx context.Context, userID string) {
	if c.rdb != nil {
		c.rdb.Del(ctx, ProfileKey(userID))
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
