// Package main starts the offline cache service process lifecycle.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	offlinecmd "github.com/louisbranch/location-tracker/internal/cmd/offline"
	"github.com/louisbranch/location-tracker/internal/platform/config"
)

func main() {
	cfg, err := offlinecmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[OFFLINE] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Healthcheck {
		if err := offlinecmd.CheckHealth(ctx, cfg); err != nil {
			config.Exitf("healthcheck: %v", err)
		}
		return
	}

	if err := offlinecmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
