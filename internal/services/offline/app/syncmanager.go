package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/louisbranch/location-tracker/internal/platform/timeouts"
	"github.com/louisbranch/location-tracker/internal/services/offline/domain"
)

const defaultProbeInterval = 15 * time.Second

// SyncDispatcher delivers a sync tag to the worker.
type SyncDispatcher interface {
	Sync(ctx context.Context, tag string) (bool, error)
}

// ProbeFunc returns nil when the origin is reachable.
type ProbeFunc func(ctx context.Context) error

// SyncManagerConfig wires a SyncManager.
type SyncManagerConfig struct {
	Dispatcher SyncDispatcher
	Probe      ProbeFunc
	Interval   time.Duration
	// OnStatus observes every probe result.
	OnStatus func(online bool)
	Logf     func(string, ...any)
}

// SyncManager plays the host side of background sync: it remembers
// registered tags and fires each one once the origin is reachable.
//
// Pending tags live in memory only.
type SyncManager struct {
	mu      sync.Mutex
	pending []string
	online  bool

	dispatcher SyncDispatcher
	probe      ProbeFunc
	interval   time.Duration
	onStatus   func(bool)
	logf       func(string, ...any)
}

// NewSyncManager validates cfg and builds a manager.
func NewSyncManager(cfg SyncManagerConfig) (*SyncManager, error) {
	if cfg.Dispatcher == nil {
		return nil, fmt.Errorf("sync dispatcher is required")
	}
	if cfg.Probe == nil {
		return nil, fmt.Errorf("connectivity probe is required")
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultProbeInterval
	}
	logf := cfg.Logf
	if logf == nil {
		logf = log.Printf
	}
	return &SyncManager{
		dispatcher: cfg.Dispatcher,
		probe:      cfg.Probe,
		interval:   interval,
		onStatus:   cfg.OnStatus,
		logf:       logf,
	}, nil
}

// Register queues tag for the next time the origin is reachable. A tag that
// is already pending is not queued twice.
func (m *SyncManager) Register(tag string) error {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return fmt.Errorf("sync tag is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, pending := range m.pending {
		if pending == tag {
			return nil
		}
	}
	m.pending = append(m.pending, tag)
	return nil
}

// Pending returns the queued tags in registration order.
func (m *SyncManager) Pending() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.pending...)
}

// Online reports the result of the last probe.
func (m *SyncManager) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Tick probes the origin once and, when it is reachable, fires every pending
// tag. Tags whose handler fails stay queued for a later tick.
func (m *SyncManager) Tick(ctx context.Context) {
	err := m.probe(ctx)
	online := err == nil

	m.mu.Lock()
	changed := online != m.online
	m.online = online
	m.mu.Unlock()

	if changed {
		if online {
			m.logf("origin reachable")
		} else {
			m.logf("origin unreachable: %v", err)
		}
	}
	if m.onStatus != nil {
		m.onStatus(online)
	}
	if !online {
		return
	}

	for _, tag := range m.Pending() {
		// Dequeue before firing so a registration made while the handler
		// runs queues the tag again.
		m.remove(tag)
		handled, err := m.dispatcher.Sync(ctx, tag)
		if err != nil {
			m.logf("sync tag=%s failed: %v", tag, err)
			_ = m.Register(tag)
			continue
		}
		if !handled {
			m.logf("sync tag=%s has no handler", tag)
		}
	}
}

// Run ticks immediately and then every interval until ctx is done.
func (m *SyncManager) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		m.Tick(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (m *SyncManager) remove(tag string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for idx, pending := range m.pending {
		if pending == tag {
			m.pending = append(m.pending[:idx], m.pending[idx+1:]...)
			return
		}
	}
}

// OriginProbe checks reachability with a HEAD request through fetcher. Any
// HTTP answer counts as reachable.
func OriginProbe(fetcher domain.Fetcher) ProbeFunc {
	return func(ctx context.Context) error {
		if fetcher == nil {
			return fmt.Errorf("fetcher is not configured")
		}
		ctx, cancel := context.WithTimeout(ctx, timeouts.Probe)
		defer cancel()
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, "/", nil)
		if err != nil {
			return err
		}
		_, err = fetcher.Fetch(ctx, req)
		return err
	}
}
