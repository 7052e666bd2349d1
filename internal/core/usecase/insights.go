package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/doc-insight/internal/core/domain"
	"github.com/kirillkom/doc-insight/internal/core/ports"
)

type InsightUseCase struct {
	docs      ports.DocumentRepository
	chunks    ports.ChunkStore
	generator ports.InsightGenerator
	cache     ports.AnalysisCache
	results   ports.AnalysisStore

	maxExcerptsPerDoc int
	now               func() time.Time
}

func NewInsightUseCase(
	docs ports.DocumentRepository,
	chunks ports.ChunkStore,
	generator ports.InsightGenerator,
	cache ports.AnalysisCache,
	results ports.AnalysisStore,
	maxExcerptsPerDoc int,
) *InsightUseCase {
	if maxExcerptsPerDoc <= 0 {
		maxExcerptsPerDoc = 40
	}
	return &InsightUseCase{
		docs:              docs,
		chunks:            chunks,
		generator:         generator,
		cache:             cache,
		results:           results,
		maxExcerptsPerDoc: maxExcerptsPerDoc,
		now:               time.Now,
	}
}

func (uc *InsightUseCase) Generate(ctx context.Context, ownerID string, documentIDs []string, force bool) (*domain.AnalysisResult, error) {
	documentIDs = dedupeIDs(documentIDs, "")
	if len(documentIDs) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "generate insights", errors.New("documentIds must contain at least one document"))
	}

	fp := domain.NewFingerprint(domain.AnalysisInsights, documentIDs, nil)
	return uc.cache.GetOrCompute(ctx, ownerID, fp, documentIDs, force, func(computeCtx context.Context) (*domain.AnalysisResult, error) {
		if !force {
			persisted, err := uc.results.GetByFingerprint(computeCtx, ownerID, fp)
			if err != nil {
				slog.Warn("analysis_store_read_failed", "fingerprint", string(fp), "error", err)
			} else if persisted != nil {
				return persisted.WithCached(true), nil
			}
		}

		analysisDocs, chunksReviewed, err := loadAnalysisDocuments(computeCtx, uc.docs, uc.chunks, ownerID, documentIDs, uc.maxExcerptsPerDoc)
		if err != nil {
			return nil, err
		}

		insights, err := uc.generator.GenerateInsights(computeCtx, analysisDocs)
		if err != nil {
			return nil, fmt.Errorf("generate insights: %w", err)
		}
		domain.SortInsightsForDisplay(insights)

		result := &domain.AnalysisResult{
			Type:              domain.AnalysisInsights,
			Fingerprint:       fp,
			Contradictions:    []domain.Contradiction{},
			Gaps:              []domain.InformationGap{},
			Agreements:        []domain.Agreement{},
			KeyClaims:         []domain.KeyClaim{},
			Recommendations:   []domain.Recommendation{},
			Insights:          insights,
			DocumentsAnalyzed: sortedIDs(documentIDs),
			ChunksReviewed:    chunksReviewed,
			GeneratedAt:       uc.now().UTC(),
		}

		if err := uc.results.Save(computeCtx, ownerID, result); err != nil {
			slog.Warn("analysis_store_write_failed", "fingerprint", string(fp), "error", err)
		}
		return result, nil
	})
}
