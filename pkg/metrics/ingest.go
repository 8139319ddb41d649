package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// IngestMetrics records per-stage outcomes for the media ingestion pipeline.
type IngestMetrics struct {
	stageDuration *prometheus.HistogramVec
	filesTotal    *prometheus.CounterVec
	batchesTotal  *prometheus.CounterVec
	bytesOut      prometheus.Counter
}

// NewIngestMetrics registers pipeline metrics on the provided registerer.
func NewIngestMetrics(reg prometheus.Registerer) *IngestMetrics {
	if reg == nil {
		return &IngestMetrics{}
	}
	stageDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ingest_stage_duration_seconds",
		Help:    "Duration of ingestion pipeline stages in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})
	filesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_files_total",
		Help: "Files processed by the ingestion pipeline, by outcome.",
	}, []string{"outcome"})
	batchesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_batches_total",
		Help: "Ingestion batches, by outcome.",
	}, []string{"outcome"})
	bytesOut := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ingest_uploaded_bytes_total",
		Help: "Bytes pushed to object storage after compression.",
	})
	reg.MustRegister(stageDuration, filesTotal, batchesTotal, bytesOut)
	return &IngestMetrics{
		stageDuration: stageDuration,
		filesTotal:    filesTotal,
		batchesTotal:  batchesTotal,
		bytesOut:      bytesOut,
	}
}

// ObserveStage records the duration of a pipeline stage (classify, convert, upload).
func (m *IngestMetrics) ObserveStage(stage string, duration time.Duration) {
	if m == nil || m.stageDuration == nil {
		return
	}
	m.stageDuration.WithLabelValues(normalizeLabel(stage)).Observe(duration.Seconds())
}

// IncFile counts one processed file by outcome (uploaded, skipped, failed, duplicate).
func (m *IngestMetrics) IncFile(outcome string) {
	if m == nil || m.filesTotal == nil {
		return
	}
	m.filesTotal.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncBatch counts one finished batch by outcome (succeeded, partial, failed).
func (m *IngestMetrics) IncBatch(outcome string) {
	if m == nil || m.batchesTotal == nil {
		return
	}
	m.batchesTotal.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// AddUploadedBytes counts bytes written to storage.
func (m *IngestMetrics) AddUploadedBytes(n int) {
	if m == nil || m.bytesOut == nil || n <= 0 {
		return
	}
	m.bytesOut.Add(float64(n))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
