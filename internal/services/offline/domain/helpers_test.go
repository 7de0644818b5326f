package domain

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"sync"
	"testing"

	"github.com/louisbranch/location-tracker/internal/services/offline/storage"
	offlinesqlite "github.com/louisbranch/location-tracker/internal/services/offline/storage/sqlite"
)

var errNetworkDown = errors.New("dial tcp: connection refused")

type fakeFetcher struct {
	mu        sync.Mutex
	responses map[string]Response
	failures  map[string]error
	offline   bool
	calls     map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		responses: map[string]Response{},
		failures:  map[string]error{},
		calls:     map[string]int{},
	}
}

func (f *fakeFetcher) Fetch(_ context.Context, req *http.Request) (Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := RequestKey(req.URL)
	f.calls[key]++
	if f.offline {
		return Response{}, errNetworkDown
	}
	if err, ok := f.failures[key]; ok {
		return Response{}, err
	}
	resp, ok := f.responses[key]
	if !ok {
		return Response{Status: http.StatusNotFound, Header: http.Header{}, Body: []byte("not found")}, nil
	}
	return resp, nil
}

func (f *fakeFetcher) callCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *fakeFetcher) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

func originAssets() *fakeFetcher {
	fetcher := newFakeFetcher()
	fetcher.responses["/"] = Response{
		Status: http.StatusOK,
		Header: http.Header{"Content-Type": {"text/html; charset=utf-8"}},
		Body:   []byte("<html>tracker</html>"),
	}
	fetcher.responses["/static/styles.css"] = Response{
		Status: http.StatusOK,
		Header: http.Header{"Content-Type": {"text/css"}},
		Body:   []byte("body{margin:0}"),
	}
	fetcher.responses["/manifest.json"] = Response{
		Status: http.StatusOK,
		Header: http.Header{"Content-Type": {"application/json"}},
		Body:   []byte(`{"name":"Location Tracker"}`),
	}
	return fetcher
}

func openTempStore(t *testing.T) *offlinesqlite.Store {
	t.Helper()
	store, err := offlinesqlite.Open(filepath.Join(t.TempDir(), "offline.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}

func newTestCache(t *testing.T, store storage.Store) *Cache {
	t.Helper()
	cache, err := NewCache(store, CacheName)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	return cache
}

// failingStore fails every read so cache lookup errors can be observed.
type failingStore struct {
	storage.Store
}

func (failingStore) GetEntry(context.Context, string, string) (storage.Entry, bool, error) {
	return storage.Entry{}, false, errors.New("disk I/O error")
}
