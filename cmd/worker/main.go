package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/doc-insight/internal/bootstrap"
	"github.com/kirillkom/doc-insight/internal/config"
	"github.com/kirillkom/doc-insight/internal/observability/logging"
	"github.com/kirillkom/doc-insight/internal/observability/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.NewJSONLogger("worker", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, nil)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: metricsMux(workerMetrics),
	}
	go func() {
		slog.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	slog.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeDocumentIngested(ctx, func(handlerCtx context.Context, documentID string) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, 10*time.Minute)
		defer cancel()

		workerMetrics.StartDocument()
		start := time.Now()

		if doc, lookupErr := app.Repo.GetByIDAny(processCtx, documentID); lookupErr == nil {
			workerMetrics.ObserveQueueLag("worker", start.Sub(doc.CreatedAt))
		}

		processErr := app.ProcessUC.ProcessByID(processCtx, documentID)
		workerMetrics.FinishDocument("worker", time.Since(start), processErr)

		if processErr == nil {
			if doc, lookupErr := app.Repo.GetByIDAny(processCtx, documentID); lookupErr == nil {
				workerMetrics.ObserveEmbeddedChunks("worker", doc.ChunkCount)
			}
		}
		return processErr
	})
	if err != nil {
		slog.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}

func metricsMux(workerMetrics *metrics.WorkerMetrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", workerMetrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}
