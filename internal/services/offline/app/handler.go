package app

import (
	"log"
	"net/http"
	"strings"

	"github.com/louisbranch/location-tracker/internal/services/offline/domain"
	"github.com/louisbranch/location-tracker/internal/services/offline/platform/httpx"
	"github.com/louisbranch/location-tracker/internal/services/offline/platform/observability"
)

const (
	adminPrefix = "/_offline/"
	syncPath    = adminPrefix + "sync"
	statusPath  = adminPrefix + "status"
)

type handler struct {
	worker *domain.Worker
	syncs  *SyncManager
	admin  *http.ServeMux
}

// NewHandler builds the HTTP surface: admin routes under /_offline/ and the
// worker fetch listener for everything else. Fetch paths reach the worker
// as sent, without mux cleaning or redirects.
func NewHandler(worker *domain.Worker, syncs *SyncManager, logger *log.Logger) http.Handler {
	h := &handler{worker: worker, syncs: syncs, admin: http.NewServeMux()}
	h.admin.Handle(syncPath, httpx.RequireMethod(http.MethodPost)(http.HandlerFunc(h.registerSync)))
	h.admin.Handle(statusPath, httpx.RequireMethod(http.MethodGet)(http.HandlerFunc(h.status)))
	return httpx.Chain(http.HandlerFunc(h.route),
		httpx.RecoverPanic(),
		httpx.RequestID(),
		observability.RequestLogger(logger),
	)
}

func (h *handler) route(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, adminPrefix) {
		h.admin.ServeHTTP(w, r)
		return
	}
	h.fetch(w, r)
}

func (h *handler) fetch(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.worker.Fetch(r.Context(), r)
	if err != nil {
		log.Printf("fetch path=%s failed: %v", r.URL.Path, err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if !outcome.Handled {
		http.NotFound(w, r)
		return
	}
	if err := outcome.Response.WriteTo(w); err != nil {
		log.Printf("write response path=%s source=%s: %v", r.URL.Path, outcome.Source, err)
	}
}

type syncResponse struct {
	Tag     string   `json:"tag"`
	Pending []string `json:"pending"`
}

func (h *handler) registerSync(w http.ResponseWriter, r *http.Request) {
	if h.syncs == nil {
		_ = httpx.WriteJSONError(w, http.StatusServiceUnavailable, "background sync is not available")
		return
	}
	tag := strings.TrimSpace(r.FormValue("tag"))
	if err := h.syncs.Register(tag); err != nil {
		_ = httpx.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	_ = httpx.WriteJSON(w, http.StatusAccepted, syncResponse{Tag: tag, Pending: h.syncs.Pending()})
}

type statusResponse struct {
	Cache       string   `json:"cache"`
	Generations []string `json:"generations"`
	Keys        []string `json:"keys"`
	Online      bool     `json:"online"`
	SyncTags    []string `json:"sync_tags"`
	PendingSync []string `json:"pending_sync"`
}

func (h *handler) status(w http.ResponseWriter, r *http.Request) {
	cache := h.worker.Cache()
	keys, err := cache.Keys(r.Context())
	if err != nil {
		_ = httpx.WriteJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	generations, err := cache.Generations(r.Context())
	if err != nil {
		_ = httpx.WriteJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := statusResponse{
		Cache:       cache.Name(),
		Generations: generations,
		Keys:        keys,
		SyncTags:    h.worker.SyncTags(),
		PendingSync: []string{},
	}
	if h.syncs != nil {
		resp.Online = h.syncs.Online()
		resp.PendingSync = h.syncs.Pending()
	}
	_ = httpx.WriteJSON(w, http.StatusOK, resp)
}
