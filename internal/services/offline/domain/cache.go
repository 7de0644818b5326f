package domain

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/louisbranch/location-tracker/internal/services/offline/storage"
)

// Cache is a handle to one named cache store.
//
// Creating a handle does no I/O; Open creates the cache on first use.
type Cache struct {
	name  string
	store storage.Store
	now   func() time.Time
}

// NewCache returns a handle for the cache called name inside store.
func NewCache(store storage.Store, name string) (*Cache, error) {
	if store == nil {
		return nil, fmt.Errorf("cache store is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("cache name is required")
	}
	return &Cache{name: name, store: store, now: time.Now}, nil
}

// Name returns the cache version tag.
func (c *Cache) Name() string {
	if c == nil {
		return ""
	}
	return c.name
}

// Open opens the named cache, creating it when missing.
func (c *Cache) Open(ctx context.Context) error {
	if c == nil {
		return fmt.Errorf("cache is not configured")
	}
	if err := c.store.OpenCache(ctx, c.name); err != nil {
		return fmt.Errorf("open cache %s: %w", c.name, err)
	}
	return nil
}

// AddAll fetches every path and stores the responses as one batch.
//
// Fetches run in order. The first transport error or non-2xx status stops
// the batch and nothing is written.
func (c *Cache) AddAll(ctx context.Context, fetcher Fetcher, paths []string) error {
	if c == nil {
		return fmt.Errorf("cache is not configured")
	}
	if fetcher == nil {
		return fmt.Errorf("fetcher is required")
	}

	entries := make([]storage.Entry, 0, len(paths))
	for _, path := range paths {
		req, err := NewGetRequest(ctx, path)
		if err != nil {
			return &PreloadError{Path: path, Err: err}
		}
		resp, err := fetcher.Fetch(ctx, req)
		if err != nil {
			return &PreloadError{Path: path, Err: err}
		}
		if !resp.Ok() {
			return &PreloadError{Path: path, Status: resp.Status}
		}
		entries = append(entries, storage.Entry{
			CacheName:  c.name,
			RequestKey: RequestKey(req.URL),
			Method:     http.MethodGet,
			URL:        path,
			Status:     resp.Status,
			Header:     resp.Header,
			Body:       resp.Body,
			StoredAt:   c.now().UTC(),
		})
	}

	if err := c.store.PutEntries(ctx, c.name, entries); err != nil {
		return fmt.Errorf("store cache %s: %w", c.name, err)
	}
	return nil
}

// Match returns the stored response for req. Only GET requests can match.
func (c *Cache) Match(ctx context.Context, req *http.Request) (Response, bool, error) {
	if c == nil {
		return Response{}, false, fmt.Errorf("cache is not configured")
	}
	if req == nil || req.Method != http.MethodGet {
		return Response{}, false, nil
	}
	entry, found, err := c.store.GetEntry(ctx, c.name, RequestKey(req.URL))
	if err != nil {
		return Response{}, false, fmt.Errorf("match %s in cache %s: %w", RequestKey(req.URL), c.name, err)
	}
	if !found {
		return Response{}, false, nil
	}
	return responseFromEntry(entry), true, nil
}

// Exists reports whether the named cache has been created.
func (c *Cache) Exists(ctx context.Context) (bool, error) {
	if c == nil {
		return false, fmt.Errorf("cache is not configured")
	}
	ok, err := c.store.HasCache(ctx, c.name)
	if err != nil {
		return false, fmt.Errorf("check cache %s: %w", c.name, err)
	}
	return ok, nil
}

// Generations lists every cache name in the store, including stale ones.
func (c *Cache) Generations(ctx context.Context) ([]string, error) {
	if c == nil {
		return nil, fmt.Errorf("cache is not configured")
	}
	names, err := c.store.ListCaches(ctx)
	if err != nil {
		return nil, fmt.Errorf("list caches: %w", err)
	}
	return names, nil
}

// Keys lists the request keys currently stored in the cache.
func (c *Cache) Keys(ctx context.Context) ([]string, error) {
	if c == nil {
		return nil, fmt.Errorf("cache is not configured")
	}
	keys, err := c.store.ListEntryKeys(ctx, c.name)
	if err != nil {
		return nil, fmt.Errorf("list cache %s: %w", c.name, err)
	}
	return keys, nil
}
