// Package config loads the environment-bound configuration surface the
// spec names: database connection, queue tuning, blob size cap, telemetry
// endpoint, and HTTP bind address. There is no file-based configuration —
// every value is read from the environment once at startup.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the fully resolved configuration for either the API or the
// worker binary; unused fields for a given binary are simply ignored.
type Config struct {
	DatabaseURL string
	DBMaxConns  int32

	QueueMaxReceiveCount int
	QueueVisibilityTimeout time.Duration
	QueueWaitTime          time.Duration

	BlobMaxObjectBytes int64

	OTelExporterEndpoint string
	OTelServiceName      string
	OTelInsecure         bool

	HTTPAddr string

	WorkerConcurrency int
}

// Load binds environment variables via viper's AutomaticEnv and applies the
// documented defaults. serviceName seeds OTelServiceName before the
// OTEL_SERVICE_NAME override is applied.
func Load(serviceName string, defaultMaxConns int32) (Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("DB_MAX_CONNS", defaultMaxConns)
	v.SetDefault("QUEUE_MAX_RECEIVE_COUNT", 5)
	v.SetDefault("QUEUE_VISIBILITY_TIMEOUT", "300s")
	v.SetDefault("QUEUE_WAIT_TIME", "20s")
	v.SetDefault("BLOB_MAX_OBJECT_BYTES", int64(104857600))
	v.SetDefault("OTEL_SERVICE_NAME", serviceName)
	v.SetDefault("OTEL_INSECURE", true)
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("WORKER_CONCURRENCY", 1)

	dsn := v.GetString("DATABASE_URL")
	if dsn == "" {
		return Config{}, fmt.Errorf("config: DATABASE_URL is required")
	}

	visibility, err := time.ParseDuration(v.GetString("QUEUE_VISIBILITY_TIMEOUT"))
	if err != nil {
		return Config{}, fmt.Errorf("config: parsing QUEUE_VISIBILITY_TIMEOUT: %w", err)
	}
	waitTime, err := time.ParseDuration(v.GetString("QUEUE_WAIT_TIME"))
	if err != nil {
		return Config{}, fmt.Errorf("config: parsing QUEUE_WAIT_TIME: %w", err)
	}

	return Config{
		DatabaseURL:            dsn,
		DBMaxConns:             int32(v.GetInt("DB_MAX_CONNS")),
		QueueMaxReceiveCount:   v.GetInt("QUEUE_MAX_RECEIVE_COUNT"),
		QueueVisibilityTimeout: visibility,
		QueueWaitTime:          waitTime,
		BlobMaxObjectBytes:     v.GetInt64("BLOB_MAX_OBJECT_BYTES"),
		OTelExporterEndpoint:   v.GetString("OTEL_EXPORTER_ENDPOINT"),
		OTelServiceName:        v.GetString("OTEL_SERVICE_NAME"),
		OTelInsecure:           v.GetBool("OTEL_INSECURE"),
		HTTPAddr:               v.GetString("HTTP_ADDR"),
		WorkerConcurrency:      v.GetInt("WORKER_CONCURRENCY"),
	}, nil
}
