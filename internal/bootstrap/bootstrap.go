package bootstrap

import (
	"context"
	"fmt"

	"github.com/kirillkom/doc-insight/internal/config"
	"github.com/kirillkom/doc-insight/internal/core/ports"
	"github.com/kirillkom/doc-insight/internal/core/usecase"
	"github.com/kirillkom/doc-insight/internal/infrastructure/analysiscache"
	"github.com/kirillkom/doc-insight/internal/infrastructure/chunking"
	"github.com/kirillkom/doc-insight/internal/infrastructure/extractor"
	"github.com/kirillkom/doc-insight/internal/infrastructure/extractor/pdfdoc"
	"github.com/kirillkom/doc-insight/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/doc-insight/internal/infrastructure/extractor/spreadsheet"
	"github.com/kirillkom/doc-insight/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/doc-insight/internal/infrastructure/queue/nats"
	"github.com/kirillkom/doc-insight/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/doc-insight/internal/infrastructure/resilience"
	"github.com/kirillkom/doc-insight/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/doc-insight/internal/observability/metrics"
)

// App wires every adapter and use case behind the inbound ports. Both the
// api and worker binaries build one App and pick the ports they need.
type App struct {
	Config config.Config

	Queue      ports.MessageQueue
	Repo       ports.DocumentRepository
	IngestUC   ports.DocumentIngestor
	ProcessUC  ports.DocumentProcessor
	DeleteUC   ports.DocumentDeleter
	ChatUC     ports.ChatService
	ValidateUC ports.ValidationService
	InsightUC  ports.InsightService

	closeFn func()
}

// cacheMetricsObserver bridges analysis-cache events onto the api metrics.
type cacheMetricsObserver struct {
	m *metrics.HTTPServerMetrics
}

func (o cacheMetricsObserver) Hit()     { o.m.RecordCacheHit("api") }
func (o cacheMetricsObserver) Miss()    { o.m.RecordCacheMiss("api") }
func (o cacheMetricsObserver) Shared()  { o.m.RecordCacheShared("api") }
func (o cacheMetricsObserver) Evicted(count int) {
	o.m.RecordCacheEvictions("api", count)
}

func New(ctx context.Context, cfg config.Config, serverMetrics *metrics.HTTPServerMetrics) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx, cfg.EmbeddingDim); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	chunkStore := postgres.NewChunkRepository(db)
	analysisStore := postgres.NewAnalysisRepository(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	llmClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, ollama.Options{
		RequestTimeout:   cfg.LLMTimeout(),
		RateRPS:          cfg.LLMRateRPS,
		RateBurst:        cfg.LLMRateBurst,
		EmbedBatchSize:   cfg.EmbedBatchSize,
		EmbedMaxParallel: cfg.EmbedMaxParallel,
		Executor:         executor,
	})
	generator := ollama.NewGenerator(llmClient)
	analyzer := ollama.NewAnalyzer(llmClient)
	insightGen := ollama.NewInsightsGenerator(llmClient)

	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	textExtractor := extractor.NewComposite(
		plaintext.NewExtractor(storage),
		pdfdoc.NewExtractor(storage),
		spreadsheet.NewExtractor(storage),
	)

	cacheOpts := []analysiscache.Option{}
	if serverMetrics != nil {
		cacheOpts = append(cacheOpts, analysiscache.WithObserver(cacheMetricsObserver{m: serverMetrics}))
	}
	cache := analysiscache.New(cfg.AnalysisCacheTTL(), cacheOpts...)

	ingestUC := usecase.NewIngestDocumentUseCase(repo, storage, queue)
	processUC := usecase.NewProcessDocumentUseCase(repo, textExtractor, chunker, llmClient, chunkStore)
	deleteUC := usecase.NewDeleteDocumentUseCase(repo, storage, analysisStore, cache)
	chatUC := usecase.NewChatUseCase(repo, chunkStore, llmClient, generator, cfg.ChatDefaultLimit, cfg.ChatMaxLimit)
	validateUC := usecase.NewValidationUseCase(repo, chunkStore, analyzer, cache, analysisStore, cfg.AnalysisMaxChunksPerDoc)
	insightUC := usecase.NewInsightUseCase(repo, chunkStore, insightGen, cache, analysisStore, cfg.AnalysisMaxChunksPerDoc)

	return &App{
		Config: cfg,

		Queue:      queue,
		Repo:       repo,
		IngestUC:   ingestUC,
		ProcessUC:  processUC,
		DeleteUC:   deleteUC,
		ChatUC:     chatUC,
		ValidateUC: validateUC,
		InsightUC:  insightUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
