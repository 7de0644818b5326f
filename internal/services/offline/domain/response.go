package domain

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/louisbranch/location-tracker/internal/services/offline/storage"
)

// Source records which step of the fallback chain produced a response.
type Source string

const (
	SourceCache    Source = "cache"
	SourceNetwork  Source = "network"
	SourceFallback Source = "fallback"
)

// hopHeaders are connection-scoped and never replayed to a client.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Response is a fully buffered HTTP response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Ok reports whether the status is in the 2xx range.
func (r Response) Ok() bool {
	return r.Status >= 200 && r.Status < 300
}

// WriteTo replays the response onto w.
func (r Response) WriteTo(w http.ResponseWriter) error {
	if w == nil {
		return fmt.Errorf("response writer is required")
	}
	header := w.Header()
	for key, values := range r.Header {
		header[key] = append([]string(nil), values...)
	}
	for _, key := range hopHeaders {
		header.Del(key)
	}
	status := r.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, err := io.Copy(w, bytes.NewReader(r.Body))
	return err
}

// FallbackResponse is the placeholder returned when a request cannot be
// answered from cache or network.
func FallbackResponse() Response {
	return Response{
		Status: http.StatusOK,
		Header: http.Header{"Content-Type": {"text/plain;charset=UTF-8"}},
		Body:   []byte(OfflineMessage),
	}
}

// RequestKey returns the cache identity of a request URL: its path plus
// query. Scheme, host and fragment do not take part in matching.
func RequestKey(u *url.URL) string {
	if u == nil {
		return "/"
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if u.RawQuery != "" {
		return path + "?" + u.RawQuery
	}
	return path
}

func readResponse(resp *http.Response) (Response, error) {
	defer func() {
		_ = resp.Body.Close()
	}()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("read response body: %w", err)
	}
	return Response{
		Status: resp.StatusCode,
		Header: resp.Header.Clone(),
		Body:   body,
	}, nil
}

func responseFromEntry(entry storage.Entry) Response {
	header := entry.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	return Response{
		Status: entry.Status,
		Header: header,
		Body:   entry.Body,
	}
}
