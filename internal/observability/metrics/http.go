package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPServerMetrics instruments the api process: request traffic, retrieval
// quality, analysis latency, and analysis-cache behavior. Everything lives in
// a private registry so tests can build isolated instances.
type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	retrievalRequestsTotal *prometheus.CounterVec
	retrievalHitTotal      *prometheus.CounterVec
	retrievalNoContext     *prometheus.CounterVec
	retrievedChunks        *prometheus.HistogramVec
	retrievalDuration      *prometheus.HistogramVec

	analysisTotal    *prometheus.CounterVec
	analysisDuration *prometheus.HistogramVec

	cacheHitsTotal      *prometheus.CounterVec
	cacheMissesTotal    *prometheus.CounterVec
	cacheSharedTotal    *prometheus.CounterVec
	cacheEvictionsTotal *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dins",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dins",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "dins",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	retrievalRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dins",
			Subsystem: "retrieval",
			Name:      "requests_total",
			Help:      "Total successful chat retrieval requests.",
		},
		[]string{"service"},
	)
	retrievalHitTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dins",
			Subsystem: "retrieval",
			Name:      "hit_total",
			Help:      "Total chat requests with at least one retrieved chunk.",
		},
		[]string{"service"},
	)
	retrievalNoContext := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dins",
			Subsystem: "retrieval",
			Name:      "no_context_total",
			Help:      "Total chat requests answered without retrieved chunks.",
		},
		[]string{"service"},
	)
	retrievedChunks := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dins",
			Subsystem: "retrieval",
			Name:      "retrieved_chunks",
			Help:      "Distribution of retrieved chunks per successful chat request.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service"},
	)
	retrievalDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dins",
			Subsystem: "retrieval",
			Name:      "duration_seconds",
			Help:      "Chat retrieval and synthesis duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	analysisTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dins",
			Subsystem: "analysis",
			Name:      "requests_total",
			Help:      "Total completed analyses by type and outcome.",
		},
		[]string{"service", "type", "status"},
	)
	analysisDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dins",
			Subsystem: "analysis",
			Name:      "duration_seconds",
			Help:      "Analysis duration in seconds by type.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"service", "type"},
	)
	cacheHitsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dins",
			Subsystem: "analysis_cache",
			Name:      "hits_total",
			Help:      "Total analysis requests served from cache.",
		},
		[]string{"service"},
	)
	cacheMissesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dins",
			Subsystem: "analysis_cache",
			Name:      "misses_total",
			Help:      "Total analysis requests that triggered a computation.",
		},
		[]string{"service"},
	)
	cacheSharedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dins",
			Subsystem: "analysis_cache",
			Name:      "shared_total",
			Help:      "Total analysis requests that joined an in-flight computation.",
		},
		[]string{"service"},
	)
	cacheEvictionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dins",
			Subsystem: "analysis_cache",
			Name:      "evictions_total",
			Help:      "Total cache entries evicted by document deletion.",
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		retrievalRequestsTotal,
		retrievalHitTotal,
		retrievalNoContext,
		retrievedChunks,
		retrievalDuration,
		analysisTotal,
		analysisDuration,
		cacheHitsTotal,
		cacheMissesTotal,
		cacheSharedTotal,
		cacheEvictionsTotal,
	)

	return &HTTPServerMetrics{
		registry:               registry,
		requestTotal:           requestTotal,
		requestDuration:        requestDuration,
		requestInFlight:        requestInFlight,
		retrievalRequestsTotal: retrievalRequestsTotal,
		retrievalHitTotal:      retrievalHitTotal,
		retrievalNoContext:     retrievalNoContext,
		retrievedChunks:        retrievedChunks,
		retrievalDuration:      retrievalDuration,
		analysisTotal:          analysisTotal,
		analysisDuration:       analysisDuration,
		cacheHitsTotal:         cacheHitsTotal,
		cacheMissesTotal:       cacheMissesTotal,
		cacheSharedTotal:       cacheSharedTotal,
		cacheEvictionsTotal:    cacheEvictionsTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/documents/"):
		return "/v1/documents/{document_id}"
	case strings.HasPrefix(path, "/api/insights/document/"):
		return "/api/insights/document/{document_id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordRetrieval(service string, chunksUsed int, duration time.Duration) {
	m.retrievalRequestsTotal.WithLabelValues(service).Inc()
	m.retrievedChunks.WithLabelValues(service).Observe(float64(chunksUsed))
	m.retrievalDuration.WithLabelValues(service).Observe(duration.Seconds())

	if chunksUsed > 0 {
		m.retrievalHitTotal.WithLabelValues(service).Inc()
		return
	}
	m.retrievalNoContext.WithLabelValues(service).Inc()
}

func (m *HTTPServerMetrics) RecordAnalysis(service, analysisType string, cached bool, duration time.Duration, err error) {
	status := "success"
	switch {
	case err != nil:
		status = "error"
	case cached:
		status = "cached"
	}
	m.analysisTotal.WithLabelValues(service, analysisType, status).Inc()
	if err == nil && !cached {
		m.analysisDuration.WithLabelValues(service, analysisType).Observe(duration.Seconds())
	}
}

func (m *HTTPServerMetrics) RecordCacheHit(service string)    { m.cacheHitsTotal.WithLabelValues(service).Inc() }
func (m *HTTPServerMetrics) RecordCacheMiss(service string)   { m.cacheMissesTotal.WithLabelValues(service).Inc() }
func (m *HTTPServerMetrics) RecordCacheShared(service string) { m.cacheSharedTotal.WithLabelValues(service).Inc() }

func (m *HTTPServerMetrics) RecordCacheEvictions(service string, count int) {
	if count <= 0 {
		return
	}
	m.cacheEvictionsTotal.WithLabelValues(service).Add(float64(count))
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
