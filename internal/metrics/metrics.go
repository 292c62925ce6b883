package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics captures ingest activity and HTTP request outcomes.
type Metrics interface {
	IncUploadsAccepted(mediaType string)
	IncUploadsRejected(reason string)
	IncBlobsDeduplicated()
	ObserveRequest(method, route, status string, durationSeconds float64)
}

// Noop implements Metrics without emitting anything.
type Noop struct{}

func (Noop) IncUploadsAccepted(string)                      {}
func (Noop) IncUploadsRejected(string)                      {}
func (Noop) IncBlobsDeduplicated()                          {}
func (Noop) ObserveRequest(string, string, string, float64) {}

// Prom implements Metrics backed by Prometheus collectors.
type Prom struct {
	uploadsAccepted   *prometheus.CounterVec
	uploadsRejected   *prometheus.CounterVec
	blobsDeduplicated prometheus.Counter
	httpRequests      *prometheus.CounterVec
	httpLatency       *prometheus.HistogramVec
	once              sync.Once
}

func NewProm(namespace string) *Prom {
	p := &Prom{
		uploadsAccepted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_accepted_total",
			Help:      "Accepted uploads by media type",
		}, []string{"media_type"}),
		uploadsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_rejected_total",
			Help:      "Rejected uploads by validation reason",
		}, []string{"reason"}),
		blobsDeduplicated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blobs_deduplicated_total",
			Help:      "Uploads whose payload already existed in the blob store",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method/route/status",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method/route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	p.register()
	return p
}

func (p *Prom) register() {
	p.once.Do(func() {
		prometheus.MustRegister(p.uploadsAccepted, p.uploadsRejected, p.blobsDeduplicated, p.httpRequests, p.httpLatency)
	})
}

func (p *Prom) IncUploadsAccepted(mediaType string) {
	p.uploadsAccepted.WithLabelValues(mediaType).Inc()
}

func (p *Prom) IncUploadsRejected(reason string) {
	p.uploadsRejected.WithLabelValues(reason).Inc()
}

func (p *Prom) IncBlobsDeduplicated() {
	p.blobsDeduplicated.Inc()
}

func (p *Prom) ObserveRequest(method, route, status string, durationSeconds float64) {
	p.httpRequests.WithLabelValues(method, route, status).Inc()
	p.httpLatency.WithLabelValues(method, route).Observe(durationSeconds)
}

// Handler returns an HTTP handler for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
