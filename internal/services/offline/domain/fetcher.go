package domain

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/http2"
)

// Fetcher performs network requests on behalf of the shim.
type Fetcher interface {
	Fetch(ctx context.Context, req *http.Request) (Response, error)
}

// NetworkFetcher sends requests to the origin web app.
//
// Requests are resolved against the origin by path and query only. There is
// no client timeout and no retry: a request ends when the origin answers or
// its context is done.
type NetworkFetcher struct {
	origin *url.URL
	client *http.Client
}

// NewOriginClient builds the HTTP client used to reach the origin. HTTPS
// origins negotiate HTTP/2. Redirects are returned to the caller, not
// followed.
func NewOriginClient() (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if err := http2.ConfigureTransport(transport); err != nil {
		return nil, fmt.Errorf("configure http2 transport: %w", err)
	}
	return &http.Client{Transport: transport, CheckRedirect: returnRedirect}, nil
}

func returnRedirect(*http.Request, []*http.Request) error {
	return http.ErrUseLastResponse
}

// NewNetworkFetcher validates origin and returns a fetcher bound to it.
// A nil client selects NewOriginClient. A caller's client is copied and
// never follows redirects.
func NewNetworkFetcher(origin string, client *http.Client) (*NetworkFetcher, error) {
	origin = strings.TrimSpace(origin)
	if origin == "" {
		return nil, fmt.Errorf("origin url is required")
	}
	parsed, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("parse origin url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("origin url scheme must be http or https, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("origin url host is required")
	}
	if client == nil {
		client, err = NewOriginClient()
		if err != nil {
			return nil, err
		}
	} else {
		copied := *client
		copied.CheckRedirect = returnRedirect
		client = &copied
	}
	return &NetworkFetcher{origin: parsed, client: client}, nil
}

// Origin returns the origin base URL.
func (f *NetworkFetcher) Origin() *url.URL {
	if f == nil || f.origin == nil {
		return nil
	}
	copied := *f.origin
	return &copied
}

// Fetch forwards req to the origin and buffers the response.
func (f *NetworkFetcher) Fetch(ctx context.Context, req *http.Request) (Response, error) {
	if f == nil || f.client == nil || f.origin == nil {
		return Response{}, fmt.Errorf("network fetcher is not configured")
	}
	if req == nil {
		return Response{}, fmt.Errorf("request is required")
	}

	target := f.resolve(req.URL)
	var body io.Reader
	if req.Body != nil && req.Body != http.NoBody && req.ContentLength != 0 {
		body = req.Body
	}
	outbound, err := http.NewRequestWithContext(ctx, req.Method, target.String(), body)
	if err != nil {
		return Response{}, fmt.Errorf("build origin request: %w", err)
	}
	outbound.Header = req.Header.Clone()
	if outbound.Header == nil {
		outbound.Header = http.Header{}
	}
	for _, key := range hopHeaders {
		outbound.Header.Del(key)
	}
	if body != nil {
		outbound.ContentLength = req.ContentLength
	}

	resp, err := f.client.Do(outbound)
	if err != nil {
		return Response{}, fmt.Errorf("fetch %s: %w", target.Redacted(), err)
	}
	out, err := readResponse(resp)
	if err != nil {
		return Response{}, fmt.Errorf("fetch %s: %w", target.Redacted(), err)
	}
	return out, nil
}

func (f *NetworkFetcher) resolve(u *url.URL) *url.URL {
	target := *f.origin
	base := strings.TrimRight(target.Path, "/")
	path := "/"
	rawQuery := ""
	if u != nil {
		if u.Path != "" {
			path = u.Path
		}
		rawQuery = u.RawQuery
	}
	target.Path = base + path
	target.RawPath = ""
	target.RawQuery = rawQuery
	target.Fragment = ""
	return &target
}

// NewGetRequest builds a GET request for a path relative to the origin.
func NewGetRequest(ctx context.Context, path string) (*http.Request, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
}
