package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alem-hub/progression-engine/internal/domain/progress"
	"github.com/alem-hub/progression-engine/internal/domain/shared"
	"github.com/alem-hub/progression-engine/internal/infrastructure/persistence/document"
)

// SnapshotCache implements progress.SnapshotCache on top of Cache.
type SnapshotCache struct {
	cache *Cache
}

// NewSnapshotCache creates a new SnapshotCache.
func NewSnapshotCache(cache *Cache) *SnapshotCache {
	return &SnapshotCache{cache: cache}
}

// Get returns the cached snapshot, or an error of kind shared.ErrNotFound on a miss.
func (s *SnapshotCache) Get(ctx context.Context, userID shared.UserID) (*progress.Snapshot, error) {
	data, err := s.cache.GetRaw(ctx, SnapshotKey(string(userID)))
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, shared.ErrSnapshotNotFound
		}
		return nil, shared.NewPersistenceError("redis.Get", err)
	}

	snap, err := document.Unmarshal(data)
	if err != nil {
		return nil, shared.NewPersistenceError("redis.Get", fmt.Errorf("%w: %v", ErrCacheSerialization, err))
	}
	return snap, nil
}

// Set caches the snapshot. A non-positive ttl falls back to TTLSnapshotCache.
func (s *SnapshotCache) Set(ctx context.Context, snap *progress.Snapshot, ttl time.Duration) error {
	if snap == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = TTLSnapshotCache
	}

	data, err := document.Marshal(snap)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}
	return s.cache.SetRaw(ctx, SnapshotKey(string(snap.UserID)), data, ttl)
}

// Delete removes the cached snapshot.
func (s *SnapshotCache) Delete(ctx context.Context, userID shared.UserID) error {
	return s.cache.Delete(ctx, SnapshotKey(string(userID)))
}
