package rubric

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedStore decorates a Store with a redis read-through cache for Get.
// Only approved rubrics are cached: they are immutable, so entries never go
// stale. Writes pass through and invalidate the id's latest-version entry.
type CachedStore struct {
	inner  Store
	client *redis.Client
	ttl    time.Duration
}

func NewCachedStore(inner Store, client *redis.Client, ttl time.Duration) *CachedStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CachedStore{inner: inner, client: client, ttl: ttl}
}

func cacheKey(rubricID, version string) string {
	if version == "" {
		return "rubric:" + rubricID + ":latest"
	}
	return "rubric:" + rubricID + ":" + version
}

func (c *CachedStore) Get(ctx context.Context, rubricID, version string) (*Rubric, error) {
	key := cacheKey(rubricID, version)
	// A cache miss or outage degrades to the inner store, never to a failure.
	if data, err := c.client.Get(ctx, key).Result(); err == nil {
		var rb Rubric
		if json.Unmarshal([]byte(data), &rb) == nil {
			return &rb, nil
		}
	}

	rb, err := c.inner.Get(ctx, rubricID, version)
	if err != nil {
		return nil, err
	}
	if rb.Status == StatusApproved {
		if data, merr := json.Marshal(rb); merr == nil {
			_ = c.client.Set(ctx, key, data, c.ttl).Err()
		}
	}
	return rb, nil
}

func (c *CachedStore) Create(ctx context.Context, rb *Rubric) error {
	return c.inner.Create(ctx, rb)
}

func (c *CachedStore) ListVersions(ctx context.Context, rubricID string) ([]VersionInfo, error) {
	return c.inner.ListVersions(ctx, rubricID)
}

func (c *CachedStore) Update(ctx context.Context, rb *Rubric) (*Rubric, error) {
	return c.inner.Update(ctx, rb)
}

func (c *CachedStore) Approve(ctx context.Context, rubricID, version string) (*Rubric, error) {
	rb, err := c.inner.Approve(ctx, rubricID, version)
	if err != nil {
		return nil, err
	}
	// A newly approved version may supersede the cached latest.
	_ = c.client.Del(ctx, cacheKey(rubricID, "")).Err()
	return rb, nil
}

func (c *CachedStore) Delete(ctx context.Context, rubricID, version string) error {
	if err := c.inner.Delete(ctx, rubricID, version); err != nil {
		return err
	}
	_ = c.client.Del(ctx, cacheKey(rubricID, version)).Err()
	return nil
}
