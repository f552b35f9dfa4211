package cache

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// Loader reads through a Cache. Concurrent misses on the same key share one
// fetch.
type Loader[T any] struct {
	cache Cache[T]
	group singleflight.Group
}

func NewLoader[T any](c Cache[T]) *Loader[T] {
	return &Loader[T]{cache: c}
}

// Get returns the cached value for key or calls fetch and stores its result.
// Errors are not cached.
func (l *Loader[T]) Get(ctx context.Context, key string, fetch func(context.Context) (T, error)) (T, error) {
	if v, ok := l.cache.Get(key); ok {
		return v, nil
	}
	v, err, _ := l.group.Do(key, func() (any, error) {
		v, err := fetch(ctx)
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

// Invalidate drops the cached value for key.
func (l *Loader[T]) Invalidate(key string) {
	l.cache.Delete(key)
	l.group.Forget(key)
}
