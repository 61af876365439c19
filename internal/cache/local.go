package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// LocalCache is an in-process cache for single instance deployments
type LocalCache struct {
	items *gocache.Cache
}

// NewLocalCache creates a local cache that purges expired items every cleanupInterval
func NewLocalCache(cleanupInterval time.Duration) *LocalCache {
	return &LocalCache{
		items: gocache.New(gocache.NoExpiration, cleanupInterval),
	}
}

func (l *LocalCache) Get(_ context.Context, shortCode string) (string, bool, error) {
	val, ok := l.items.Get(Key(shortCode))
	if !ok {
		return "", false, nil
	}
	return val.(string), true, nil
}

func (l *LocalCache) SetWithTTL(_ context.Context, shortCode, originalURL string, ttl time.Duration) error {
	l.items.Set(Key(shortCode), originalURL, ttl)
	return nil
}

func (l *LocalCache) Delete(_ context.Context, shortCode string) error {
	l.items.Delete(Key(shortCode))
	return nil
}

func (l *LocalCache) Ping(context.Context) error {
	return nil
}

func (l *LocalCache) Close() error {
	l.items.Flush()
	return nil
}
