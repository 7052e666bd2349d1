package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/kirillkom/doc-insight/internal/adapters/http"
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
	slog.SetDefault(logging.NewJSONLogger("api", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverMetrics := metrics.NewHTTPServerMetrics("api")

	app, err := bootstrap.New(ctx, cfg, serverMetrics)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	router := httpadapter.NewRouter(httpadapter.Services{
		Ingest:     app.IngestUC,
		Reader:     app.Repo,
		Deleter:    app.DeleteUC,
		Chat:       app.ChatUC,
		Validation: app.ValidateUC,
		Insights:   app.InsightUC,
	}, serverMetrics, httpadapter.Options{
		DevMode:        cfg.DevMode(),
		MaxUploadBytes: cfg.MaxUploadBytes,
		RateLimitRPS:   cfg.APIRateLimitRPS,
		RateLimitBurst: cfg.APIRateLimitBurst,
		MaxConcurrent:  cfg.APIMaxConcurrent,

		DefaultSimilarityThreshold: cfg.ChatDefaultThreshold,
	})

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("api_listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("api_server_failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("api_shutdown_failed", "error", err)
	}
}
