package app

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/louisbranch/location-tracker/internal/services/offline/domain"
)

type fakeDispatcher struct {
	mu       sync.Mutex
	fired    []string
	failures map[string]error
	known    map[string]bool
	// during runs inside Sync, before the result is returned.
	during func(tag string)
}

func (d *fakeDispatcher) Sync(_ context.Context, tag string) (bool, error) {
	if d.during != nil {
		d.during(tag)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fired = append(d.fired, tag)
	if err := d.failures[tag]; err != nil {
		return true, err
	}
	return d.known[tag], nil
}

func (d *fakeDispatcher) firedTags() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string{}, d.fired...)
}

type switchProbe struct {
	mu  sync.Mutex
	err error
}

func (p *switchProbe) set(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func (p *switchProbe) probe(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func newTestSyncManager(t *testing.T, dispatcher SyncDispatcher, probe ProbeFunc) *SyncManager {
	t.Helper()
	manager, err := NewSyncManager(SyncManagerConfig{
		Dispatcher: dispatcher,
		Probe:      probe,
		Logf:       func(string, ...any) {},
	})
	if err != nil {
		t.Fatalf("NewSyncManager() error = %v", err)
	}
	return manager
}

func TestNewSyncManagerValidatesConfig(t *testing.T) {
	if _, err := NewSyncManager(SyncManagerConfig{Probe: func(context.Context) error { return nil }}); err == nil {
		t.Fatal("expected error for missing dispatcher")
	}
	if _, err := NewSyncManager(SyncManagerConfig{Dispatcher: &fakeDispatcher{}}); err == nil {
		t.Fatal("expected error for missing probe")
	}
}

func TestSyncManagerRegisterDeduplicates(t *testing.T) {
	manager := newTestSyncManager(t, &fakeDispatcher{}, func(context.Context) error { return nil })

	for _, tag := range []string{"location-sync", " location-sync ", "other"} {
		if err := manager.Register(tag); err != nil {
			t.Fatalf("Register(%q) error = %v", tag, err)
		}
	}
	if err := manager.Register("  "); err == nil {
		t.Fatal("expected error for blank tag")
	}
	got := manager.Pending()
	if len(got) != 2 || got[0] != "location-sync" || got[1] != "other" {
		t.Fatalf("Pending() = %v, want [location-sync other]", got)
	}
}

func TestSyncManagerWaitsForConnectivity(t *testing.T) {
	dispatcher := &fakeDispatcher{known: map[string]bool{"location-sync": true}}
	probe := &switchProbe{err: errors.New("connection refused")}
	var statuses []bool
	manager, err := NewSyncManager(SyncManagerConfig{
		Dispatcher: dispatcher,
		Probe:      probe.probe,
		OnStatus:   func(online bool) { statuses = append(statuses, online) },
		Logf:       func(string, ...any) {},
	})
	if err != nil {
		t.Fatalf("NewSyncManager() error = %v", err)
	}
	if err := manager.Register("location-sync"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	manager.Tick(context.Background())
	if manager.Online() {
		t.Fatal("Online() = true while probe fails")
	}
	if fired := dispatcher.firedTags(); len(fired) != 0 {
		t.Fatalf("fired = %v while offline, want none", fired)
	}

	probe.set(nil)
	manager.Tick(context.Background())
	if !manager.Online() {
		t.Fatal("Online() = false after probe succeeds")
	}
	if fired := dispatcher.firedTags(); len(fired) != 1 || fired[0] != "location-sync" {
		t.Fatalf("fired = %v, want [location-sync]", fired)
	}
	if pending := manager.Pending(); len(pending) != 0 {
		t.Fatalf("Pending() = %v, want empty", pending)
	}

	manager.Tick(context.Background())
	if fired := dispatcher.firedTags(); len(fired) != 1 {
		t.Fatalf("tag fired again: %v", fired)
	}
	if len(statuses) != 3 || statuses[0] || !statuses[1] || !statuses[2] {
		t.Fatalf("statuses = %v, want [false true true]", statuses)
	}
}

func TestSyncManagerKeepsFailedTagsPending(t *testing.T) {
	dispatcher := &fakeDispatcher{
		failures: map[string]error{"flaky": errors.New("upload failed")},
		known:    map[string]bool{"flaky": true},
	}
	manager := newTestSyncManager(t, dispatcher, func(context.Context) error { return nil })
	for _, tag := range []string{"flaky", "unknown"} {
		if err := manager.Register(tag); err != nil {
			t.Fatalf("Register(%q) error = %v", tag, err)
		}
	}

	manager.Tick(context.Background())
	pending := manager.Pending()
	if len(pending) != 1 || pending[0] != "flaky" {
		t.Fatalf("Pending() = %v, want [flaky]", pending)
	}

	delete(dispatcher.failures, "flaky")
	manager.Tick(context.Background())
	if pending := manager.Pending(); len(pending) != 0 {
		t.Fatalf("Pending() = %v, want empty", pending)
	}
}

func TestSyncManagerKeepsTagRegisteredDuringDispatch(t *testing.T) {
	dispatcher := &fakeDispatcher{known: map[string]bool{"location-sync": true}}
	manager := newTestSyncManager(t, dispatcher, func(context.Context) error { return nil })
	registeredAgain := false
	dispatcher.during = func(tag string) {
		if registeredAgain {
			return
		}
		registeredAgain = true
		if err := manager.Register(tag); err != nil {
			t.Errorf("Register(%q) error = %v", tag, err)
		}
	}
	if err := manager.Register("location-sync"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	manager.Tick(context.Background())
	pending := manager.Pending()
	if len(pending) != 1 || pending[0] != "location-sync" {
		t.Fatalf("Pending() = %v, want [location-sync]", pending)
	}

	manager.Tick(context.Background())
	if pending := manager.Pending(); len(pending) != 0 {
		t.Fatalf("Pending() = %v, want empty", pending)
	}
	if fired := dispatcher.firedTags(); len(fired) != 2 {
		t.Fatalf("fired = %v, want two deliveries", fired)
	}
}

func TestSyncManagerRunStopsOnCancel(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	ticks := make(chan struct{}, 8)
	manager, err := NewSyncManager(SyncManagerConfig{
		Dispatcher: dispatcher,
		Probe: func(context.Context) error {
			select {
			case ticks <- struct{}{}:
			default:
			}
			return nil
		},
		Interval: 5 * time.Millisecond,
		Logf:     func(string, ...any) {},
	})
	if err != nil {
		t.Fatalf("NewSyncManager() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- manager.Run(ctx) }()

	for i := 0; i < 2; i++ {
		select {
		case <-ticks:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for probe tick")
		}
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not stop after cancel")
	}
}

func TestOriginProbe(t *testing.T) {
	methods := make(chan string, 1)
	origin := newOrigin(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods <- r.Method
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	fetcher, err := domain.NewNetworkFetcher(origin.URL, origin.Client())
	if err != nil {
		t.Fatalf("NewNetworkFetcher() error = %v", err)
	}
	probe := OriginProbe(fetcher)

	if err := probe(context.Background()); err != nil {
		t.Fatalf("probe() error = %v, want nil for any HTTP answer", err)
	}
	if method := <-methods; method != http.MethodHead {
		t.Fatalf("probe method = %q, want HEAD", method)
	}

	origin.Close()
	if err := probe(context.Background()); err == nil {
		t.Fatal("probe() error = nil with origin down")
	}
	if err := OriginProbe(nil)(context.Background()); err == nil {
		t.Fatal("probe() error = nil without fetcher")
	}
}
