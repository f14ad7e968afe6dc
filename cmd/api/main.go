package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/automaxprocs/maxprocs"

	"blobscan/internal/api"
	"blobscan/internal/blobstore"
	"blobscan/internal/blobstore/memblob"
	"blobscan/internal/config"
	"blobscan/internal/ingest"
	"blobscan/internal/logger"
	"blobscan/internal/metrics"
	"blobscan/internal/queue/memqueue"
	"blobscan/internal/store/postgres"
	"blobscan/internal/telemetry"
)

const serviceType = "blobscan-api"

func main() {
	_, _ = maxprocs.Set()

	hostname, err := os.Hostname()
	if err != nil {
		log.Fatalf("failed to get hostname: %v", err)
	}

	var lg *logger.Logger
	traceIDFn := func(ctx context.Context) string { return telemetry.GetTraceID(ctx) }
	logEvents := logger.Events{
		Error: func(ctx context.Context, r logger.Record) {
			attrs := map[string]any{
				"error_message": r.Message,
				"error_time":    r.Time.UTC().Format(time.RFC3339),
				"trace_id":      traceIDFn(ctx),
			}
			for k, v := range r.Attributes {
				attrs[k] = v
			}
			payload, err := json.Marshal(attrs)
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to marshal error attributes: %v\n", err)
				return
			}
			fmt.Fprintf(os.Stderr, "Error event: %s, details: %s\n", r.Message, payload)
		},
	}

	svcName := fmt.Sprintf("BLOBSCAN-API-%s", hostname)
	lg = logger.NewWithMetadata(os.Stdout, logger.LevelInfo, svcName, traceIDFn, logEvents, map[string]any{
		"service":  svcName,
		"hostname": hostname,
		"app":      serviceType,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(serviceType, 5)
	if err != nil {
		lg.Error(ctx, "failed to load config", "error", err.Error())
		os.Exit(1)
	}

	tracer, shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:      cfg.OTelServiceName,
		ExporterEndpoint: cfg.OTelExporterEndpoint,
		Insecure:         cfg.OTelInsecure,
	})
	if err != nil {
		lg.Error(ctx, "failed to initialize telemetry", "error", err.Error())
		os.Exit(1)
	}
	defer shutdownTelemetry(ctx)

	st, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.DBMaxConns, tracer)
	if err != nil {
		lg.Error(ctx, "failed to connect to database", "error", err.Error())
		os.Exit(1)
	}
	defer st.Close()

	m := metrics.New("blobscan_api")
	go func() {
		if err := metrics.StartServer(":9090"); err != nil && err != http.ErrServerClosed {
			lg.Error(ctx, "metrics server error", "error", err.Error())
		}
	}()

	// The blob store and message queue are external collaborators the spec
	// treats as out of scope for this repo (§1); memblob/memqueue are the
	// reference in-memory adapters used to exercise the ports end to end.
	var blob blobstore.Store = memblob.New()
	q := memqueue.New(cfg.QueueMaxReceiveCount)

	ing := ingest.New(blob, q, st, lg, m)
	svc := api.New(st, ing)
	server := api.NewServer(svc, lg)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: server,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		<-sigCh
		lg.Info(ctx, "shutdown signal received")
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancelShutdown()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			lg.Error(ctx, "failed to shutdown http server", "error", err.Error())
		}
		cancel()
	}()

	lg.Info(ctx, "starting api server", "addr", cfg.HTTPAddr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		lg.Error(ctx, "api server failed", "error", err.Error())
		os.Exit(1)
	}

	lg.Info(ctx, "api server shutdown complete")
}
