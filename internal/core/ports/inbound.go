package ports

import (
	"context"
	"io"

	"github.com/kirillkom/doc-insight/internal/core/domain"
)

// DocumentIngestor is the inbound contract for document upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, ownerID, filename, mimeType string, size int64, body io.Reader) (*domain.Document, error)
}

// DocumentProcessor is the inbound contract for asynchronous document
// processing (extract, chunk, embed, store).
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}

// DocumentReader is the inbound read model for document metadata/state.
type DocumentReader interface {
	GetByID(ctx context.Context, ownerID, id string) (*domain.Document, error)
	List(ctx context.Context, ownerID string) ([]domain.Document, error)
}

// DocumentDeleter removes a document, its chunks and every cached analysis
// whose fingerprint includes it.
type DocumentDeleter interface {
	Delete(ctx context.Context, ownerID, id string) error
}

// ChatService answers a question from retrieved document chunks.
type ChatService interface {
	Answer(ctx context.Context, ownerID string, query domain.ChatQuery) (*domain.ChatAnswer, error)
}

// ValidationService runs within/across-document contradiction analysis.
type ValidationService interface {
	AnalyzeWithin(ctx context.Context, ownerID, documentID string, force bool) (*domain.AnalysisResult, error)
	AnalyzeAcross(ctx context.Context, ownerID, primaryID string, compareIDs []string, force bool) (*domain.AnalysisResult, error)
	HasCached(ctx context.Context, ownerID string, analysisType domain.AnalysisType, primaryID string, compareIDs []string) (bool, error)
}

// InsightService generates categorized insights over a document set.
type InsightService interface {
	Generate(ctx context.Context, ownerID string, documentIDs []string, force bool) (*domain.AnalysisResult, error)
}
