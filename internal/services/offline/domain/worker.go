package domain

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
)

// EventKind names a lifecycle trigger.
type EventKind string

const (
	EventInstall EventKind = "install"
	EventFetch   EventKind = "fetch"
	EventSync    EventKind = "sync"
)

// Event is one lifecycle trigger delivered to the worker. Request is set for
// fetch events and Tag for sync events.
type Event struct {
	Kind    EventKind
	Request *http.Request
	Tag     string
}

// Outcome is what a listener produced for an event.
type Outcome struct {
	Handled  bool
	Response Response
	Source   Source
}

// Listener handles one event kind.
type Listener func(ctx context.Context, event Event) (Outcome, error)

// WorkerConfig wires the collaborators of a Worker.
type WorkerConfig struct {
	Cache   *Cache
	Fetcher Fetcher
	Syncs   *SyncRegistry
	Logf    func(string, ...any)
}

// Worker dispatches lifecycle events to listeners keyed by kind.
type Worker struct {
	mu        sync.RWMutex
	listeners map[EventKind]Listener
	cache     *Cache
	syncs     *SyncRegistry
}

// NewWorker registers the install, fetch and sync listeners.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	if cfg.Cache == nil {
		return nil, fmt.Errorf("cache is required")
	}
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	logf := cfg.Logf
	if logf == nil {
		logf = log.Printf
	}
	syncs := cfg.Syncs
	if syncs == nil {
		syncs = DefaultSyncRegistry(logf)
	}

	preloader := NewPreloader(cfg.Cache, cfg.Fetcher, PrecacheURLs, logf)
	responder := NewResponder(cfg.Cache, cfg.Fetcher, logf)

	w := &Worker{cache: cfg.Cache, syncs: syncs, listeners: map[EventKind]Listener{}}
	w.On(EventInstall, func(ctx context.Context, _ Event) (Outcome, error) {
		if err := preloader.Install(ctx); err != nil {
			return Outcome{Handled: true}, err
		}
		return Outcome{Handled: true}, nil
	})
	w.On(EventFetch, func(ctx context.Context, event Event) (Outcome, error) {
		resp, source, err := responder.Respond(ctx, event.Request)
		if err != nil {
			return Outcome{Handled: true}, err
		}
		return Outcome{Handled: true, Response: resp, Source: source}, nil
	})
	w.On(EventSync, func(ctx context.Context, event Event) (Outcome, error) {
		handled, err := syncs.Dispatch(ctx, event.Tag)
		return Outcome{Handled: handled}, err
	})
	return w, nil
}

// On binds listener to kind, replacing any earlier listener. A nil listener
// removes the binding.
func (w *Worker) On(kind EventKind, listener Listener) {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if listener == nil {
		delete(w.listeners, kind)
		return
	}
	w.listeners[kind] = listener
}

// Cache returns the cache handle the worker serves from.
func (w *Worker) Cache() *Cache {
	if w == nil {
		return nil
	}
	return w.cache
}

// SyncTags lists the tags that have a sync handler.
func (w *Worker) SyncTags() []string {
	if w == nil {
		return nil
	}
	return w.syncs.Tags()
}

// Dispatch delivers event to its listener. Events without a listener are
// ignored.
func (w *Worker) Dispatch(ctx context.Context, event Event) (Outcome, error) {
	if w == nil {
		return Outcome{}, fmt.Errorf("worker is not configured")
	}
	w.mu.RLock()
	listener, ok := w.listeners[event.Kind]
	w.mu.RUnlock()
	if !ok {
		return Outcome{}, nil
	}
	return listener(ctx, event)
}

// Install dispatches an install event.
func (w *Worker) Install(ctx context.Context) error {
	_, err := w.Dispatch(ctx, Event{Kind: EventInstall})
	if err != nil {
		return fmt.Errorf("install: %w", err)
	}
	return nil
}

// Fetch dispatches a fetch event for req.
func (w *Worker) Fetch(ctx context.Context, req *http.Request) (Outcome, error) {
	return w.Dispatch(ctx, Event{Kind: EventFetch, Request: req})
}

// Sync dispatches a sync event for tag and reports whether a handler ran.
func (w *Worker) Sync(ctx context.Context, tag string) (bool, error) {
	outcome, err := w.Dispatch(ctx, Event{Kind: EventSync, Tag: tag})
	return outcome.Handled, err
}
