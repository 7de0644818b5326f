package domain

import (
	"context"
	"fmt"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/louisbranch/location-tracker/internal/services/offline/domain"

// PreloadError reports the asset that made an install fail.
type PreloadError struct {
	Path   string
	Status int
	Err    error
}

func (e *PreloadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("preload %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("preload %s: unexpected status %d", e.Path, e.Status)
}

func (e *PreloadError) Unwrap() error {
	return e.Err
}

// Preloader fills the cache with a fixed asset list at install time.
type Preloader struct {
	cache   *Cache
	fetcher Fetcher
	paths   []string
	tracer  trace.Tracer
	logf    func(string, ...any)
}

// NewPreloader builds a preloader for paths. Nil logf uses log.Printf.
func NewPreloader(cache *Cache, fetcher Fetcher, paths []string, logf func(string, ...any)) *Preloader {
	if logf == nil {
		logf = log.Printf
	}
	return &Preloader{
		cache:   cache,
		fetcher: fetcher,
		paths:   append([]string(nil), paths...),
		tracer:  otel.Tracer(tracerName),
		logf:    logf,
	}
}

// Install opens the cache and stores every asset. Any failure fails the
// whole install; there is no partial success and no retry.
func (p *Preloader) Install(ctx context.Context) error {
	if p == nil || p.cache == nil {
		return fmt.Errorf("preloader is not configured")
	}
	ctx, span := p.tracer.Start(ctx, "offline.install", trace.WithAttributes(
		attribute.String("offline.cache", p.cache.Name()),
		attribute.Int("offline.assets", len(p.paths)),
	))
	defer span.End()

	existing, err := p.cache.Exists(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "check cache")
		return err
	}
	span.SetAttributes(attribute.Bool("offline.cache_existing", existing))
	if err := p.cache.Open(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "open cache")
		return err
	}
	if err := p.cache.AddAll(ctx, p.fetcher, p.paths); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "add all")
		return err
	}
	p.logf("install cache=%s assets=%d existing=%t", p.cache.Name(), len(p.paths), existing)
	return nil
}
