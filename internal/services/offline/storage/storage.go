package storage

import (
	"context"
	"net/http"
	"time"
)

// Entry is one stored response inside a named cache.
type Entry struct {
	CacheName  string
	RequestKey string
	Method     string
	URL        string
	Status     int
	Header     http.Header
	Body       []byte
	StoredAt   time.Time
}

// Store is the cache storage contract the offline shim runs against.
//
// PutEntries is atomic: either every entry in the batch is persisted or none
// is.
type Store interface {
	Close() error
	OpenCache(ctx context.Context, name string) error
	HasCache(ctx context.Context, name string) (bool, error)
	ListCaches(ctx context.Context) ([]string, error)
	PutEntries(ctx context.Context, cacheName string, entries []Entry) error
	GetEntry(ctx context.Context, cacheName, requestKey string) (Entry, bool, error)
	ListEntryKeys(ctx context.Context, cacheName string) ([]string, error)
}
