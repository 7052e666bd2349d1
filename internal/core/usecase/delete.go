package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/doc-insight/internal/core/ports"
)

// DeleteDocumentUseCase removes a document together with its chunks and
// evicts every cached analysis whose fingerprint includes it, so a later
// identical request recomputes instead of serving stale findings.
type DeleteDocumentUseCase struct {
	repo    ports.DocumentRepository
	storage ports.ObjectStorage
	results ports.AnalysisStore
	cache   ports.AnalysisCache
}

func NewDeleteDocumentUseCase(
	repo ports.DocumentRepository,
	storage ports.ObjectStorage,
	results ports.AnalysisStore,
	cache ports.AnalysisCache,
) *DeleteDocumentUseCase {
	return &DeleteDocumentUseCase{
		repo:    repo,
		storage: storage,
		results: results,
		cache:   cache,
	}
}

func (uc *DeleteDocumentUseCase) Delete(ctx context.Context, ownerID, documentID string) error {
	doc, err := uc.repo.GetByID(ctx, ownerID, documentID)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}

	if err := uc.repo.Delete(ctx, ownerID, documentID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	if err := uc.results.DeleteByDocument(ctx, documentID); err != nil {
		return fmt.Errorf("delete persisted analyses: %w", err)
	}
	evicted := uc.cache.InvalidateDocument(documentID)

	// The source file is not part of any queryability invariant; losing it
	// after metadata deletion only orphans bytes on disk.
	if err := uc.storage.Delete(ctx, doc.StoragePath); err != nil {
		slog.Warn("delete_source_file_failed", "document_id", documentID, "error", err)
	}

	slog.Info("document_deleted", "document_id", documentID, "evicted_fingerprints", evicted)
	return nil
}
