package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/kirillkom/doc-insight/internal/core/domain"
	"github.com/kirillkom/doc-insight/internal/core/ports"
)

type ValidationUseCase struct {
	docs     ports.DocumentRepository
	chunks   ports.ChunkStore
	analyzer ports.ValidationAnalyzer
	cache    ports.AnalysisCache
	results  ports.AnalysisStore

	maxExcerptsPerDoc int
	now               func() time.Time
}

func NewValidationUseCase(
	docs ports.DocumentRepository,
	chunks ports.ChunkStore,
	analyzer ports.ValidationAnalyzer,
	cache ports.AnalysisCache,
	results ports.AnalysisStore,
	maxExcerptsPerDoc int,
) *ValidationUseCase {
	if maxExcerptsPerDoc <= 0 {
		maxExcerptsPerDoc = 40
	}
	return &ValidationUseCase{
		docs:              docs,
		chunks:            chunks,
		analyzer:          analyzer,
		cache:             cache,
		results:           results,
		maxExcerptsPerDoc: maxExcerptsPerDoc,
		now:               time.Now,
	}
}

func (uc *ValidationUseCase) AnalyzeWithin(ctx context.Context, ownerID, documentID string, force bool) (*domain.AnalysisResult, error) {
	if documentID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "analyze within", errors.New("documentId is required"))
	}
	fp := withinFingerprint(documentID)
	return uc.analyze(ctx, ownerID, domain.AnalysisWithin, fp, []string{documentID}, force)
}

func (uc *ValidationUseCase) AnalyzeAcross(ctx context.Context, ownerID, primaryID string, compareIDs []string, force bool) (*domain.AnalysisResult, error) {
	if primaryID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "analyze across", errors.New("primaryDocumentId is required"))
	}
	compareIDs = dedupeIDs(compareIDs, primaryID)
	if len(compareIDs) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "analyze across", errors.New("compareDocumentIds must contain at least one document"))
	}
	fp := acrossFingerprint(primaryID, compareIDs)
	return uc.analyze(ctx, ownerID, domain.AnalysisAcross, fp, append([]string{primaryID}, compareIDs...), force)
}

func (uc *ValidationUseCase) HasCached(ctx context.Context, ownerID string, analysisType domain.AnalysisType, primaryID string, compareIDs []string) (bool, error) {
	if primaryID == "" {
		return false, domain.WrapError(domain.ErrInvalidInput, "check cache", errors.New("documentId is required"))
	}

	var fp domain.Fingerprint
	switch analysisType {
	case domain.AnalysisWithin:
		fp = withinFingerprint(primaryID)
	case domain.AnalysisAcross:
		compareIDs = dedupeIDs(compareIDs, primaryID)
		if len(compareIDs) == 0 {
			return false, domain.WrapError(domain.ErrInvalidInput, "check cache", errors.New("compareDocumentIds must contain at least one document"))
		}
		fp = acrossFingerprint(primaryID, compareIDs)
	default:
		return false, domain.WrapError(domain.ErrInvalidInput, "check cache", fmt.Errorf("unknown validation type %q", analysisType))
	}

	if uc.cache.Contains(ownerID, fp) {
		return true, nil
	}
	return uc.results.HasFingerprint(ctx, ownerID, fp)
}

func (uc *ValidationUseCase) analyze(
	ctx context.Context,
	ownerID string,
	analysisType domain.AnalysisType,
	fp domain.Fingerprint,
	documentIDs []string,
	force bool,
) (*domain.AnalysisResult, error) {
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

		result, err := uc.analyzer.AnalyzeDocuments(computeCtx, analysisType, analysisDocs)
		if err != nil {
			return nil, fmt.Errorf("run %s analysis: %w", analysisType, err)
		}

		result.Type = analysisType
		result.Fingerprint = fp
		result.DocumentsAnalyzed = sortedIDs(documentIDs)
		result.ChunksReviewed = chunksReviewed
		result.GeneratedAt = uc.now().UTC()
		result.Cached = false

		if err := uc.results.Save(computeCtx, ownerID, result); err != nil {
			slog.Warn("analysis_store_write_failed", "fingerprint", string(fp), "error", err)
		}
		return result, nil
	})
}

func withinFingerprint(documentID string) domain.Fingerprint {
	return domain.NewFingerprint(domain.AnalysisWithin, []string{documentID}, nil)
}

func acrossFingerprint(primaryID string, compareIDs []string) domain.Fingerprint {
	ids := append([]string{primaryID}, compareIDs...)
	return domain.NewFingerprint(domain.AnalysisAcross, ids, map[string]string{"primary": primaryID})
}

// loadAnalysisDocuments resolves the reasoning context for an analysis:
// ownership is checked per document and only queryable documents are
// accepted. Excerpts keep chunk ordinal order, capped per document.
func loadAnalysisDocuments(
	ctx context.Context,
	docs ports.DocumentRepository,
	chunks ports.ChunkStore,
	ownerID string,
	documentIDs []string,
	maxExcerptsPerDoc int,
) ([]domain.AnalysisDocument, int, error) {
	byID := make(map[string]*domain.AnalysisDocument, len(documentIDs))
	ordered := make([]*domain.AnalysisDocument, 0, len(documentIDs))

	for _, id := range documentIDs {
		doc, err := docs.GetByID(ctx, ownerID, id)
		if err != nil {
			return nil, 0, fmt.Errorf("load document %s: %w", id, err)
		}
		if !doc.Queryable() {
			return nil, 0, domain.WrapError(domain.ErrInvalidInput, "load analysis documents",
				fmt.Errorf("document %s is not ready (status=%s)", id, doc.Status))
		}
		entry := &domain.AnalysisDocument{ID: doc.ID, Filename: doc.Filename}
		byID[id] = entry
		ordered = append(ordered, entry)
	}

	all, err := chunks.GetChunks(ctx, ownerID, documentIDs)
	if err != nil {
		return nil, 0, fmt.Errorf("load analysis chunks: %w", err)
	}

	reviewed := 0
	for _, chunk := range all {
		entry, ok := byID[chunk.DocumentID]
		if !ok || len(entry.Excerpts) >= maxExcerptsPerDoc {
			continue
		}
		entry.Excerpts = append(entry.Excerpts, chunk.Text)
		reviewed++
	}

	out := make([]domain.AnalysisDocument, 0, len(ordered))
	for _, entry := range ordered {
		out = append(out, *entry)
	}
	return out, reviewed, nil
}

func dedupeIDs(ids []string, exclude string) []string {
	seen := map[string]struct{}{exclude: {}}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func sortedIDs(ids []string) []string {
	out := make([]string, len(ids))
	copy(out, ids)
	sort.Strings(out)
	return out
}
