// Package cache holds the small in-process caches used in front of the
// account store.
package cache

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// Cache is a keyed cache with expiry.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	// Purge drops every entry.
	Purge()
	Size() int
}

// Loading wraps a Cache so concurrent misses on the same key share one load.
type Loading[T any] struct {
	cache Cache[T]
	group singleflight.Group
	load  func(ctx context.Context, key string) (T, error)
}

func NewLoading[T any](c Cache[T], load func(ctx context.Context, key string) (T, error)) *Loading[T] {
	return &Loading[T]{cache: c, load: load}
}

// Get returns the cached value or loads, stores and returns it. Load errors
// are not cached.
func (l *Loading[T]) Get(ctx context.Context, key string) (T, error) {
	if v, ok := l.cache.Get(key); ok {
		return v, nil
	}
	v, err, _ := l.group.Do(key, func() (any, error) {
		v, err := l.load(ctx, key)
		if err != nil {
			return v, err
		}
		l.cache.Set(key, v)
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Invalidate forgets key so the next Get reloads it.
func (l *Loading[T]) Invalidate(key string) {
	l.group.Forget(key)
	l.cache.Delete(key)
}
