package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
)

const originPage = "<html>tracker</html>"

func newOrigin(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	if handler == nil {
		handler = originHandler()
	}
	origin := httptest.NewServer(handler)
	t.Cleanup(origin.Close)
	return origin
}

func originHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"locations":[]}`))
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(originPage))
	})
	mux.HandleFunc("/static/styles.css", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/css")
		_, _ = w.Write([]byte("body{}"))
	})
	mux.HandleFunc("/manifest.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"Location Tracker"}`))
	})
	return mux
}

func testRuntimeConfig(t *testing.T, origin *httptest.Server) RuntimeConfig {
	t.Helper()
	return RuntimeConfig{
		OriginURL:    origin.URL,
		OriginClient: origin.Client(),
		DBPath:       filepath.Join(t.TempDir(), "nested", "offline.db"),
	}.normalized()
}

func newTestService(t *testing.T, origin *httptest.Server) *service {
	t.Helper()
	svc, err := newService(context.Background(), testRuntimeConfig(t, origin))
	if err != nil {
		t.Fatalf("newService() error = %v", err)
	}
	t.Cleanup(svc.close)
	return svc
}
