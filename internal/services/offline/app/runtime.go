package app

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/location-tracker/internal/services/offline/domain"
	offlinesqlite "github.com/louisbranch/location-tracker/internal/services/offline/storage/sqlite"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// RuntimeConfig controls offline service startup and probe behavior.
type RuntimeConfig struct {
	HTTPAddr      string
	HealthPort    int
	OriginURL     string
	DBPath        string
	ProbeInterval time.Duration
	// OriginClient overrides the HTTP client used to reach the origin.
	OriginClient *http.Client
}

const (
	defaultHTTPAddr   = "localhost:8095"
	defaultHealthPort = 8096
	defaultOfflineDB  = "data/offline.db"

	// HealthServiceNetwork reports origin reachability.
	HealthServiceNetwork = "offline.network"
)

type service struct {
	origin  string
	store   *offlinesqlite.Store
	worker  *domain.Worker
	syncs   *SyncManager
	health  *health.Server
	handler http.Handler
}

// Run installs the offline cache and serves traffic until ctx is done.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg = cfg.normalized()

	svc, err := newService(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.close()

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.HealthPort))
	if err != nil {
		return fmt.Errorf("listen on health port %d: %w", cfg.HealthPort, err)
	}
	defer listener.Close()

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	grpc_health_v1.RegisterHealthServer(grpcServer, svc.health)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- grpcServer.Serve(listener)
	}()
	defer func() {
		svc.health.Shutdown()
		grpcServer.GracefulStop()
		<-serveErr
	}()
	log.Printf("health server listening at %v", listener.Addr())

	server, err := NewServer(cfg.HTTPAddr, svc.handler)
	if err != nil {
		return err
	}
	defer server.Close()

	syncCtx, cancelSync := context.WithCancel(ctx)
	syncDone := make(chan struct{})
	go func() {
		defer close(syncDone)
		_ = svc.syncs.Run(syncCtx)
	}()
	defer func() {
		cancelSync()
		<-syncDone
	}()

	log.Printf("offline server listening addr=%s origin=%s", cfg.HTTPAddr, svc.origin)
	return server.ListenAndServe(ctx)
}

func (cfg RuntimeConfig) normalized() RuntimeConfig {
	if strings.TrimSpace(cfg.HTTPAddr) == "" {
		cfg.HTTPAddr = defaultHTTPAddr
	}
	if cfg.HealthPort <= 0 {
		cfg.HealthPort = defaultHealthPort
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = defaultOfflineDB
	}
	if cfg.ProbeInterval <= 0 {
		cfg.ProbeInterval = defaultProbeInterval
	}
	return cfg
}

// newService opens storage, builds the worker and dispatches install. An
// install failure aborts startup.
func newService(ctx context.Context, cfg RuntimeConfig) (*service, error) {
	if strings.TrimSpace(cfg.OriginURL) == "" {
		return nil, fmt.Errorf("origin url is required")
	}
	fetcher, err := domain.NewNetworkFetcher(cfg.OriginURL, cfg.OriginClient)
	if err != nil {
		return nil, fmt.Errorf("build origin fetcher: %w", err)
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create offline storage dir: %w", err)
		}
	}
	store, err := offlinesqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open offline sqlite store: %w", err)
	}
	svc := &service{origin: fetcher.Origin().Redacted(), store: store}

	cache, err := domain.NewCache(store, domain.CacheName)
	if err != nil {
		svc.close()
		return nil, err
	}
	worker, err := domain.NewWorker(domain.WorkerConfig{Cache: cache, Fetcher: fetcher})
	if err != nil {
		svc.close()
		return nil, err
	}
	if err := worker.Install(ctx); err != nil {
		svc.close()
		return nil, fmt.Errorf("install offline cache: %w", err)
	}
	svc.worker = worker

	svc.health = health.NewServer()
	svc.health.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	svc.health.SetServingStatus(HealthServiceNetwork, grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	syncs, err := NewSyncManager(SyncManagerConfig{
		Dispatcher: worker,
		Probe:      OriginProbe(fetcher),
		Interval:   cfg.ProbeInterval,
		OnStatus:   svc.setNetworkStatus,
	})
	if err != nil {
		svc.close()
		return nil, err
	}
	svc.syncs = syncs
	svc.handler = NewHandler(worker, syncs, log.Default())
	return svc, nil
}

func (s *service) setNetworkStatus(online bool) {
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if online {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(HealthServiceNetwork, status)
}

func (s *service) close() {
	if s == nil || s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		log.Printf("close offline sqlite store: %v", err)
	}
}
