// Package cache memoises speech-to-text and OCR results per media file.
package cache

import (
	"context"

	"github.com/HDumarBalmaceda/proyecto-informe/internal/logging"
	"github.com/HDumarBalmaceda/proyecto-informe/internal/media"
)

// ComputeFunc extracts text from the media file at path.
type ComputeFunc func(ctx context.Context, path string) (string, error)

// Cache fronts a Store. Entries are never invalidated; media content does not
// change once captured.
type Cache struct {
	store  Store
	logger logging.Logger
	hits   int
	misses int
}

type Option func(*Cache)

func WithLogger(l logging.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

func New(s Store, opts ...Option) *Cache {
	c := &Cache{store: s, logger: logging.NewNopLogger()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrCompute returns the cached text for path's media identity, calling fn
// only on a miss. Errors from fn are returned and nothing is stored, so a
// later run retries the file. An unreadable store counts as a miss.
func (c *Cache) GetOrCompute(ctx context.Context, path, kind string, fn ComputeFunc) (string, error) {
	key := media.Identity(path)

	text, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("cache read failed", logging.F("key", key), logging.Err(err))
	}
	if ok {
		c.hits++
		return text, nil
	}

	c.misses++
	text, err = fn(ctx, path)
	if err != nil {
		return "", err
	}

	if err := c.store.Put(ctx, key, kind, text); err != nil {
		c.logger.Warn("cache write failed", logging.F("key", key), logging.Err(err))
	}
	return text, nil
}

func (c *Cache) Hits() int   { return c.hits }
func (c *Cache) Misses() int { return c.misses }
