package corpus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus metrics for corpus scans.
type Metrics struct {
	Documents     *prometheus.CounterVec
	DocumentBytes prometheus.Counter
	ScanDuration  prometheus.Histogram
}

// NewMetrics creates and registers all metrics with the provided registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	documents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "benscan_documents_total",
		Help: "Documents visited, by outcome",
	}, []string{"result"})

	documentBytes := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "benscan_document_bytes_total",
		Help: "Total bytes of documents handed to the scanner",
	})

	scanDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "benscan_scan_duration_seconds",
		Help:    "Time to load and scan one document",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
	})

	reg.MustRegister(documents, documentBytes, scanDuration)

	return &Metrics{
		Documents:     documents,
		DocumentBytes: documentBytes,
		ScanDuration:  scanDuration,
	}
}

func (m *Metrics) observe(size int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.DocumentBytes.Add(float64(size))
	m.ScanDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) count(result string) {
	if m == nil {
		return
	}
	m.Documents.WithLabelValues(result).Inc()
}
