package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/doc-insight/internal/core/domain"
	"github.com/kirillkom/doc-insight/internal/core/ports"
)

type ProcessDocumentUseCase struct {
	repo      ports.DocumentRepository
	extractor ports.TextExtractor
	chunker   ports.Chunker
	embedder  ports.Embedder
	chunks    ports.ChunkStore
}

func NewProcessDocumentUseCase(
	repo ports.DocumentRepository,
	extractor ports.TextExtractor,
	chunker ports.Chunker,
	embedder ports.Embedder,
	chunks ports.ChunkStore,
) *ProcessDocumentUseCase {
	return &ProcessDocumentUseCase{
		repo:      repo,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		chunks:    chunks,
	}
}

func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, documentID string) error {
	if err := uc.repo.UpdateStatus(ctx, documentID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	chunkCount, err := uc.processPipeline(ctx, documentID)
	if err != nil {
		if failErr := uc.markFailed(ctx, documentID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.SetReady(ctx, documentID, chunkCount); err != nil {
		return fmt.Errorf("set status=ready: %w", err)
	}
	return nil
}

func (uc *ProcessDocumentUseCase) processPipeline(ctx context.Context, documentID string) (int, error) {
	doc, err := uc.repo.GetByIDAny(ctx, documentID)
	if err != nil {
		return 0, fmt.Errorf("fetch document by id: %w", err)
	}

	text, err := uc.extractor.Extract(ctx, doc)
	if err != nil {
		return 0, fmt.Errorf("extract text: %w", err)
	}
	if text == "" {
		return 0, domain.WrapError(domain.ErrInvalidInput, "extract text", errors.New("empty extracted text"))
	}

	spans := uc.chunker.Split(text)
	if len(spans) == 0 {
		return 0, domain.WrapError(domain.ErrInvalidInput, "chunk document", errors.New("chunking produced zero chunks"))
	}

	vectors, err := uc.embedder.Embed(ctx, spans)
	if err != nil {
		return 0, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(spans) {
		return 0, domain.WrapError(
			domain.ErrInvalidInput,
			"embed chunks",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(spans)),
		)
	}

	now := time.Now().UTC()
	chunks := make([]domain.Chunk, 0, len(spans))
	for i, span := range spans {
		chunks = append(chunks, domain.Chunk{
			ID:         uuid.NewString(),
			DocumentID: doc.ID,
			Index:      i,
			Text:       span,
			Embedding:  NormalizeVector(vectors[i]),
			CreatedAt:  now,
		})
	}

	// Atomic by contract: either every chunk of the document lands or none,
	// so the document is never partially queryable.
	if err := uc.chunks.PutChunks(ctx, doc.ID, chunks); err != nil {
		return 0, fmt.Errorf("store chunks: %w", err)
	}
	return len(chunks), nil
}

func (uc *ProcessDocumentUseCase) markFailed(ctx context.Context, documentID string, processErr error) error {
	if processErr == nil {
		return nil
	}
	return uc.repo.UpdateStatus(ctx, documentID, domain.StatusFailed, processErr.Error())
}
