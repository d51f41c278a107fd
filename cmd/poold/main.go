// Package main is the entrypoint for poold, a demo server that loads
// configuration, builds a connection-pool Manager, and serves Prometheus
// metrics plus a JSON health endpoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joao-brasil/connpool/internal/config"
	"github.com/joao-brasil/connpool/internal/factory"
	"github.com/joao-brasil/connpool/internal/health"
	"github.com/joao-brasil/connpool/internal/pool"
	"github.com/joao-brasil/connpool/internal/registry"
)

var (
	serverConfigPath  = flag.String("config", "configs/server.yaml", "Path to server configuration file")
	targetsConfigPath = flag.String("targets", "configs/targets.yaml", "Path to targets configuration file")
)

func main() {
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[main] Starting poold")

	cfg, err := config.Load(*serverConfigPath, *targetsConfigPath)
	if err != nil {
		log.Fatalf("[main] Failed to load configuration: %v", err)
	}
	log.Printf("[main] Configuration loaded: %d targets, instance=%s", len(cfg.Targets), cfg.Server.InstanceID)

	mgr := pool.NewManager()
	for _, t := range cfg.Targets {
		poolCfg := pool.Config{
			Name:                       t.Name,
			PartitionCount:             t.PartitionCount,
			MinConnectionsPerPartition: t.MinConnectionsPerPartition,
			MaxConnectionsPerPartition: t.MaxConnectionsPerPartition,
			AcquireIncrement:           t.AcquireIncrement,
			IdleConnectionTestPeriod:   t.IdleConnectionTestPeriod,
			IdleMaxAge:                 t.IdleMaxAge,
			ConnectionTestStatement:    t.ConnectionTestStatement,
			ReleaseHelperThreadCount:   t.ReleaseHelperThreadCount,
			Factory:                    factory.New(t),
		}
		if err := mgr.Add(context.Background(), poolCfg); err != nil {
			log.Fatalf("[main] Failed to initialize pool %s: %v", t.Name, err)
		}
		log.Printf("[main]   pool %s ready (partitions=%d min=%d max=%d)",
			t.Name, t.PartitionCount, t.MinConnectionsPerPartition, t.MaxConnectionsPerPartition)
	}
	defer func() {
		log.Println("[main] Closing pool manager...")
		if err := mgr.Close(); err != nil {
			log.Printf("[main] Pool manager close error: %v", err)
		}
	}()

	var reg *registry.Registry
	if cfg.Registry.Addr != "" {
		reg, err = registry.New(context.Background(), cfg.Registry, cfg.Server.InstanceID)
		if err != nil {
			log.Fatalf("[main] Failed to initialize registry: %v", err)
		}
		for _, name := range mgr.Names() {
			p, _ := mgr.Pool(name)
			reg.Watch(name, p)
		}
		if err := reg.Start(context.Background()); err != nil {
			log.Fatalf("[main] Failed to start registry: %v", err)
		}
		defer reg.Stop()
		defer func() {
			shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := reg.Close(shutCtx); err != nil {
				log.Printf("[main] Registry close error: %v", err)
			}
		}()
		log.Println("[main] Registry ready (Redis connected)")
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler:      metricsMux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("[main] Metrics server listening on :%d/metrics", cfg.Server.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[main] Metrics server error: %v", err)
		}
	}()

	checker := health.NewChecker(cfg.Server.InstanceID, mgr)
	healthServer := checker.ServeHTTP(cfg.Server.HealthCheckPort)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	log.Println("[main] poold is ready. Waiting for shutdown signal...")
	sig := <-sigCh
	log.Printf("[main] Received signal %v, shutting down gracefully...", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("[main] Health server shutdown error: %v", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("[main] Metrics server shutdown error: %v", err)
	}

	log.Println("[main] Shutdown complete.")
}
