package domain

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
)

// SyncHandler runs when a background sync tag fires.
type SyncHandler func(ctx context.Context) error

// SyncRegistry maps sync tags to handlers.
type SyncRegistry struct {
	mu       sync.RWMutex
	handlers map[string]SyncHandler
}

// NewSyncRegistry returns an empty registry.
func NewSyncRegistry() *SyncRegistry {
	return &SyncRegistry{handlers: map[string]SyncHandler{}}
}

// DefaultSyncRegistry registers the location upload tag. Nil logf uses
// log.Printf.
func DefaultSyncRegistry(logf func(string, ...any)) *SyncRegistry {
	registry := NewSyncRegistry()
	_ = registry.Register(SyncTagLocations, SyncLocations(logf))
	return registry
}

// Register binds handler to tag, replacing any earlier binding.
func (r *SyncRegistry) Register(tag string, handler SyncHandler) error {
	if r == nil {
		return fmt.Errorf("sync registry is not configured")
	}
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return fmt.Errorf("sync tag is required")
	}
	if handler == nil {
		return fmt.Errorf("sync handler is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[tag] = handler
	return nil
}

// Tags lists registered tags in sorted order.
func (r *SyncRegistry) Tags() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.handlers))
	for tag := range r.handlers {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Dispatch runs the handler bound to tag. Tags must match exactly; unknown
// tags run nothing and report handled=false.
func (r *SyncRegistry) Dispatch(ctx context.Context, tag string) (bool, error) {
	if r == nil {
		return false, nil
	}
	r.mu.RLock()
	handler, ok := r.handlers[tag]
	r.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := handler(ctx); err != nil {
		return true, fmt.Errorf("sync %s: %w", tag, err)
	}
	return true, nil
}

// SyncLocations acknowledges a location sync. It does not read, upload, or
// delete any pending locations.
func SyncLocations(logf func(string, ...any)) SyncHandler {
	if logf == nil {
		logf = log.Printf
	}
	return func(context.Context) error {
		logf("Background sync attempted")
		return nil
	}
}
