package ports

import (
	"context"
	"io"

	"github.com/kirillkom/doc-insight/internal/core/domain"
)

// DocumentRepository persists document state scoped to an owning user.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, ownerID, id string) (*domain.Document, error)
	GetByIDAny(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context, ownerID string) ([]domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	SetReady(ctx context.Context, id string, chunkCount int) error
	Delete(ctx context.Context, ownerID, id string) error
}

// ChunkStore persists embedded chunks. PutChunks is atomic per document: the
// document is never partially queryable. GetChunks with a nil documentIDs set
// returns chunks of every queryable document owned by ownerID; a non-nil set
// restricts to those documents.
type ChunkStore interface {
	PutChunks(ctx context.Context, documentID string, chunks []domain.Chunk) error
	GetChunks(ctx context.Context, ownerID string, documentIDs []string) ([]domain.Chunk, error)
}

// AnalysisStore persists computed analysis results so cache answers survive
// restarts. A fingerprint miss returns (nil, nil).
type AnalysisStore interface {
	Save(ctx context.Context, ownerID string, result *domain.AnalysisResult) error
	GetByFingerprint(ctx context.Context, ownerID string, fp domain.Fingerprint) (*domain.AnalysisResult, error)
	HasFingerprint(ctx context.Context, ownerID string, fp domain.Fingerprint) (bool, error)
	DeleteByDocument(ctx context.Context, documentID string) error
}

// ObjectStorage stores source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// MessageQueue publishes/consumes ingestion events.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, documentID string) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor extracts plain text from a stored document.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) (string, error)
}

// Embedder builds vectors for chunk batches and query text. Embed preserves
// input order and 1:1 cardinality; an empty input returns an empty result
// without a provider call.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Chunker splits text into semantically usable chunks.
type Chunker interface {
	Split(text string) []string
}

// AnswerGenerator composes the user-facing answer from retrieved chunks.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, question string, chunks []domain.RetrievedChunk) (string, error)
}

// ValidationAnalyzer runs LLM reasoning over pooled document excerpts and
// returns typed findings. Metadata fields (fingerprint, cached flag,
// timestamps) are owned by the caller.
type ValidationAnalyzer interface {
	AnalyzeDocuments(ctx context.Context, analysisType domain.AnalysisType, docs []domain.AnalysisDocument) (*domain.AnalysisResult, error)
}

// InsightGenerator discovers categorized patterns/anomalies/opportunities/
// risks over one or more documents.
type InsightGenerator interface {
	GenerateInsights(ctx context.Context, docs []domain.AnalysisDocument) ([]domain.Insight, error)
}

// AnalysisComputeFunc produces a result on a cache miss. It runs detached
// from the originating request so concurrent waiters can still benefit when
// the requester goes away.
type AnalysisComputeFunc func(ctx context.Context) (*domain.AnalysisResult, error)

// AnalysisCache guarantees at most one in-flight computation per owner and
// fingerprint. Entries are scoped to the owner so fingerprint-equal requests
// from different principals never share results. force bypasses the read
// path but still joins the single-flight for writes. A failed computation
// leaves the fingerprint absent.
type AnalysisCache interface {
	GetOrCompute(ctx context.Context, ownerID string, fp domain.Fingerprint, documentIDs []string, force bool, compute AnalysisComputeFunc) (*domain.AnalysisResult, error)
	Contains(ownerID string, fp domain.Fingerprint) bool
	InvalidateDocument(documentID string) int
}
