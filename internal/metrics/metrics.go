// Package metrics defines the Prometheus counters and histograms (A6) for
// queue throughput and detector hit rates, mirroring the teacher's
// promauto-registered metrics shape.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// WorkerMetrics defines the metrics operations the worker loop needs.
type WorkerMetrics interface {
	IncMessagesReceived()
	IncMessagesAcked()
	IncMessagesFailed(reason string)
	IncFindingsByDetector(detector string, n int)
	TrackMessageProcessing(f func() error) error
}

// IngestMetrics defines the metrics operations the ingestor needs.
type IngestMetrics interface {
	IncObjectsEnumerated(n int)
	IncObjectsEnqueued(n int)
	TrackScanRequest(f func() error) error
}

// Metrics implements both WorkerMetrics and IngestMetrics over one
// Prometheus registry.
type Metrics struct {
	MessagesReceived    prometheus.Counter
	MessagesAcked       prometheus.Counter
	MessagesFailed      *prometheus.CounterVec
	ActiveMessages      prometheus.Gauge
	MessageProcessTime  prometheus.Histogram
	FindingsByDetector  *prometheus.CounterVec

	ObjectsEnumerated prometheus.Counter
	ObjectsEnqueued   prometheus.Counter
	ActiveScanRequest prometheus.Gauge
	ScanRequestTime   prometheus.Histogram
}

var _ WorkerMetrics = (*Metrics)(nil)
var _ IngestMetrics = (*Metrics)(nil)

// New constructs and registers every metric under namespace.
func New(namespace string) *Metrics {
	return &Metrics{
		MessagesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Total number of queue messages received by the worker",
		}),
		MessagesAcked: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_acked_total",
			Help:      "Total number of queue messages acknowledged after successful processing",
		}),
		MessagesFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_failed_total",
			Help:      "Total number of messages that failed processing, labeled by failure reason",
		}, []string{"reason"}),
		ActiveMessages: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_messages",
			Help:      "Number of messages currently being processed across all worker loops",
		}),
		MessageProcessTime: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "message_process_duration_seconds",
			Help:      "Time taken to process a single queue message end to end",
			Buckets:   prometheus.DefBuckets,
		}),
		FindingsByDetector: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "findings_total",
			Help:      "Total number of findings detected in messages whose insert added at least one row, labeled by detector",
		}, []string{"detector"}),

		ObjectsEnumerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "objects_enumerated_total",
			Help:      "Total number of objects listed by the ingestor",
		}),
		ObjectsEnqueued: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "objects_enqueued_total",
			Help:      "Total number of queue messages successfully published by the ingestor",
		}),
		ActiveScanRequest: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_scan_requests",
			Help:      "Number of CreateScan requests currently in progress",
		}),
		ScanRequestTime: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_request_duration_seconds",
			Help:      "Time taken to complete a CreateScan request",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}
}

func (m *Metrics) IncMessagesReceived() { m.MessagesReceived.Inc() }
func (m *Metrics) IncMessagesAcked()    { m.MessagesAcked.Inc() }

func (m *Metrics) IncMessagesFailed(reason string) { m.MessagesFailed.WithLabelValues(reason).Inc() }

func (m *Metrics) IncFindingsByDetector(detector string, n int) {
	m.FindingsByDetector.WithLabelValues(detector).Add(float64(n))
}

// TrackMessageProcessing tracks the duration and in-flight count of a
// single message's processing.
func (m *Metrics) TrackMessageProcessing(f func() error) error {
	m.ActiveMessages.Inc()
	defer m.ActiveMessages.Dec()

	start := time.Now()
	err := f()
	m.MessageProcessTime.Observe(time.Since(start).Seconds())
	return err
}

func (m *Metrics) IncObjectsEnumerated(n int) { m.ObjectsEnumerated.Add(float64(n)) }
func (m *Metrics) IncObjectsEnqueued(n int)   { m.ObjectsEnqueued.Add(float64(n)) }

// TrackScanRequest tracks the duration and in-flight count of a CreateScan
// request.
func (m *Metrics) TrackScanRequest(f func() error) error {
	m.ActiveScanRequest.Inc()
	defer m.ActiveScanRequest.Dec()

	start := time.Now()
	err := f()
	m.ScanRequestTime.Observe(time.Since(start).Seconds())
	return err
}

// StartServer serves the registered metrics at /metrics on addr.
func StartServer(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}
