// Package offline parses offline command flags and launches the offline
// cache runtime.
package offline

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	entrypoint "github.com/louisbranch/location-tracker/internal/platform/cmd"
	platformgrpc "github.com/louisbranch/location-tracker/internal/platform/grpc"
	offlineserver "github.com/louisbranch/location-tracker/internal/services/offline/app"
)

// Config holds offline command configuration.
type Config struct {
	HTTPAddr      string        `env:"LOCATION_TRACKER_OFFLINE_HTTP_ADDR" envDefault:"localhost:8095"`
	HealthPort    int           `env:"LOCATION_TRACKER_OFFLINE_HEALTH_PORT" envDefault:"8096"`
	OriginURL     string        `env:"LOCATION_TRACKER_OFFLINE_ORIGIN_URL" envDefault:"http://localhost:5002"`
	DBPath        string        `env:"LOCATION_TRACKER_OFFLINE_DB_PATH" envDefault:"data/offline.db"`
	ProbeInterval time.Duration `env:"LOCATION_TRACKER_OFFLINE_PROBE_INTERVAL" envDefault:"15s"`

	// Healthcheck makes the process query a running instance and exit.
	Healthcheck bool
}

const healthcheckTimeout = 3 * time.Second

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	fs.IntVar(&cfg.HealthPort, "health-port", cfg.HealthPort, "The health gRPC server port")
	fs.StringVar(&cfg.OriginURL, "origin-url", cfg.OriginURL, "Base URL of the location tracker web app")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The offline cache SQLite database path")
	fs.DurationVar(&cfg.ProbeInterval, "probe-interval", cfg.ProbeInterval, "Origin connectivity probe interval")
	fs.BoolVar(&cfg.Healthcheck, "healthcheck", false, "Check the health endpoint of a running instance and exit")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the offline cache runtime.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceOffline, func(ctx context.Context) error {
		return offlineserver.Run(ctx, offlineserver.RuntimeConfig{
			HTTPAddr:      cfg.HTTPAddr,
			HealthPort:    cfg.HealthPort,
			OriginURL:     cfg.OriginURL,
			DBPath:        cfg.DBPath,
			ProbeInterval: cfg.ProbeInterval,
		})
	})
}

// CheckHealth queries the gRPC health endpoint of a running instance on
// localhost.
func CheckHealth(ctx context.Context, cfg Config) error {
	ctx, cancel := context.WithTimeout(ctx, healthcheckTimeout)
	defer cancel()
	addr := fmt.Sprintf("localhost:%d", cfg.HealthPort)
	return platformgrpc.CheckHealth(ctx, addr, "", log.Printf)
}
