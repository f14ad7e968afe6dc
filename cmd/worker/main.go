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

	"blobscan/internal/blobstore"
	"blobscan/internal/blobstore/memblob"
	"blobscan/internal/config"
	"blobscan/internal/detect"
	"blobscan/internal/logger"
	"blobscan/internal/metrics"
	"blobscan/internal/queue"
	"blobscan/internal/queue/memqueue"
	"blobscan/internal/store/postgres"
	"blobscan/internal/telemetry"
	"blobscan/internal/worker"
)

const serviceType = "blobscan-worker"

func main() {
	_, _ = maxprocs.Set()

	hostname, err := os.Hostname()
	if err != nil {
		log.Fatalf("failed to get hostname: %v", err)
	}

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

	svcName := fmt.Sprintf("BLOBSCAN-WORKER-%s", hostname)
	lg := logger.NewWithMetadata(os.Stdout, logger.LevelInfo, svcName, traceIDFn, logEvents, map[string]any{
		"service":  svcName,
		"hostname": hostname,
		"app":      serviceType,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(serviceType, 10)
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

	m := metrics.New("blobscan_worker")
	go func() {
		if err := metrics.StartServer(":9091"); err != nil && err != http.ErrServerClosed {
			lg.Error(ctx, "metrics server error", "error", err.Error())
		}
	}()

	// See cmd/api for why the blob store and queue are the in-memory
	// reference adapters rather than a production cloud client.
	var blob blobstore.Store = memblob.New()
	var q queue.Queue = memqueue.New(cfg.QueueMaxReceiveCount)

	fetcher := blobstore.NewFetcher(blob)
	scanner := detect.NewScanner()
	w := worker.New(q, fetcher, scanner, st, lg, m, cfg.WorkerConcurrency)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		<-sigCh
		lg.Info(ctx, "shutdown signal received")
		cancel()
	}()

	lg.Info(ctx, "starting worker", "concurrency", cfg.WorkerConcurrency)
	w.Run(ctx)
	lg.Info(ctx, "worker shutdown complete")
}
