package domain

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Responder answers intercepted requests: cache, then network, then the
// offline placeholder.
type Responder struct {
	cache   *Cache
	fetcher Fetcher
	tracer  trace.Tracer
	logf    func(string, ...any)
}

// NewResponder builds a responder over cache and fetcher. Nil logf uses
// log.Printf.
func NewResponder(cache *Cache, fetcher Fetcher, logf func(string, ...any)) *Responder {
	if logf == nil {
		logf = log.Printf
	}
	return &Responder{
		cache:   cache,
		fetcher: fetcher,
		tracer:  otel.Tracer(tracerName),
		logf:    logf,
	}
}

// Respond resolves req.
//
// A cached entry is returned as stored, without revalidation. On a miss the
// network response is returned unchanged and is not written to the cache.
// Any network failure yields FallbackResponse. The only error Respond
// returns is a failed cache lookup.
func (r *Responder) Respond(ctx context.Context, req *http.Request) (Response, Source, error) {
	if r == nil || r.cache == nil {
		return Response{}, "", fmt.Errorf("responder is not configured")
	}
	if req == nil {
		return Response{}, "", fmt.Errorf("request is required")
	}
	ctx, span := r.tracer.Start(ctx, "offline.respond", trace.WithAttributes(
		attribute.String("http.request.method", req.Method),
		attribute.String("offline.request_key", RequestKey(req.URL)),
	))
	defer span.End()

	cached, found, err := r.cache.Match(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cache match")
		return Response{}, "", err
	}
	if found {
		span.SetAttributes(attribute.String("offline.source", string(SourceCache)))
		return cached, SourceCache, nil
	}

	if r.fetcher != nil {
		resp, err := r.fetcher.Fetch(ctx, req)
		if err == nil {
			span.SetAttributes(attribute.String("offline.source", string(SourceNetwork)))
			return resp, SourceNetwork, nil
		}
		r.logf("network fetch failed key=%s err=%v", RequestKey(req.URL), err)
	}

	span.SetAttributes(attribute.String("offline.source", string(SourceFallback)))
	return FallbackResponse(), SourceFallback, nil
}
