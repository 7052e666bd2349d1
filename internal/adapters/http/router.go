package httpadapter

import (
	"net/http"
	"time"

	"github.com/kirillkom/doc-insight/internal/core/ports"
	"github.com/kirillkom/doc-insight/internal/observability/metrics"
)

const serviceName = "api"

type Router struct {
	ingest     ports.DocumentIngestor
	reader     ports.DocumentReader
	deleter    ports.DocumentDeleter
	chat       ports.ChatService
	validation ports.ValidationService
	insights   ports.InsightService

	metrics *metrics.HTTPServerMetrics
	options Options
}

type Options struct {
	DevMode        bool
	MaxUploadBytes int64

	RateLimitRPS   float64
	RateLimitBurst int
	MaxConcurrent  int
	QueueWait      time.Duration

	// Applied when a chat request omits similarityThreshold.
	DefaultSimilarityThreshold float64
}

type Services struct {
	Ingest     ports.DocumentIngestor
	Reader     ports.DocumentReader
	Deleter    ports.DocumentDeleter
	Chat       ports.ChatService
	Validation ports.ValidationService
	Insights   ports.InsightService
}

func NewRouter(services Services, serverMetrics *metrics.HTTPServerMetrics, options Options) *Router {
	if options.MaxUploadBytes <= 0 {
		options.MaxUploadBytes = 50 << 20
	}
	if options.QueueWait <= 0 {
		options.QueueWait = 100 * time.Millisecond
	}
	if options.DefaultSimilarityThreshold <= 0 {
		options.DefaultSimilarityThreshold = defaultSimilarityThreshold
	}
	return &Router{
		ingest:     services.Ingest,
		reader:     services.Reader,
		deleter:    services.Deleter,
		chat:       services.Chat,
		validation: services.Validation,
		insights:   services.Insights,
		metrics:    serverMetrics,
		options:    options,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", rt.healthz)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	mux.HandleFunc("POST /v1/documents", rt.uploadDocument)
	mux.HandleFunc("GET /v1/documents", rt.listDocuments)
	mux.HandleFunc("GET /v1/documents/{id}", rt.getDocument)
	mux.HandleFunc("DELETE /v1/documents/{id}", rt.deleteDocument)

	mux.HandleFunc("POST /api/chat", rt.chatAnswer)
	mux.HandleFunc("POST /api/contradictions/analyze/within", rt.analyzeWithin)
	mux.HandleFunc("POST /api/contradictions/analyze/across", rt.analyzeAcross)
	mux.HandleFunc("POST /api/contradictions/check-cache", rt.checkCache)
	mux.HandleFunc("POST /api/insights/document/{id}", rt.documentInsights)
	mux.HandleFunc("POST /api/insights/cross-document", rt.crossDocumentInsights)

	var handler http.Handler = mux
	if rt.options.MaxConcurrent > 0 {
		handler = backpressureMiddleware(handler, rt.options.MaxConcurrent, rt.options.QueueWait)
	}
	if rt.options.RateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.options.RateLimitRPS, rt.options.RateLimitBurst)
	}
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
