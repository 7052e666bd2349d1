package usecase

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/kirillkom/doc-insight/internal/core/domain"
)

func uploadedDoc(id, ownerID string) *domain.Document {
	return &domain.Document{
		ID:          id,
		OwnerID:     ownerID,
		Filename:    "report.txt",
		MimeType:    "text/plain",
		StoragePath: id + "_report.txt",
		Status:      domain.StatusUploaded,
	}
}

func TestProcessByIDHappyPath(t *testing.T) {
	repo := newFakeDocRepo(uploadedDoc("doc-1", "user-1"))
	chunks := &fakeChunkStore{}
	embedder := &fakeEmbedder{vectorFor: func(string) []float32 { return []float32{3, 4} }}
	uc := NewProcessDocumentUseCase(repo, &fakeExtractor{text: "some extracted text"},
		&fakeChunker{spans: []string{"first", "second", "third"}}, embedder, chunks)

	if err := uc.ProcessByID(context.Background(), "doc-1"); err != nil {
		t.Fatal(err)
	}

	doc, err := repo.GetByIDAny(context.Background(), "doc-1")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Status != domain.StatusReady {
		t.Fatalf("status = %s, want ready", doc.Status)
	}
	if doc.ChunkCount != 3 {
		t.Fatalf("chunkCount = %d, want 3", doc.ChunkCount)
	}
	if len(repo.statusUpdates) != 1 || repo.statusUpdates[0] != string(domain.StatusProcessing) {
		t.Fatalf("status updates = %v, want a single transition to processing", repo.statusUpdates)
	}

	if len(chunks.putDocIDs) != 1 || chunks.putDocIDs[0] != "doc-1" {
		t.Fatalf("putChunks calls = %v, want one for doc-1", chunks.putDocIDs)
	}
	if len(chunks.chunks) != 3 {
		t.Fatalf("stored %d chunks, want 3", len(chunks.chunks))
	}
	for i, chunk := range chunks.chunks {
		if chunk.Index != i {
			t.Fatalf("chunk %d has index %d, want contiguous from 0", i, chunk.Index)
		}
		if chunk.DocumentID != "doc-1" || chunk.ID == "" {
			t.Fatalf("chunk %d incomplete: %+v", i, chunk)
		}
		var norm float64
		for _, x := range chunk.Embedding {
			norm += float64(x) * float64(x)
		}
		if math.Abs(norm-1.0) > 1e-6 {
			t.Fatalf("chunk %d embedding not unit length: %v", i, norm)
		}
	}
}

func TestProcessByIDExtractionFailureMarksFailed(t *testing.T) {
	repo := newFakeDocRepo(uploadedDoc("doc-1", "user-1"))
	boom := errors.New("unreadable bytes")
	uc := NewProcessDocumentUseCase(repo, &fakeExtractor{err: boom},
		&fakeChunker{}, &fakeEmbedder{}, &fakeChunkStore{})

	err := uc.ProcessByID(context.Background(), "doc-1")
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want extraction error", err)
	}

	doc, getErr := repo.GetByIDAny(context.Background(), "doc-1")
	if getErr != nil {
		t.Fatal(getErr)
	}
	if doc.Status != domain.StatusFailed {
		t.Fatalf("status = %s, want failed", doc.Status)
	}
	if doc.Error == "" {
		t.Fatal("failure message must be recorded")
	}
}

func TestProcessByIDEmptyTextFails(t *testing.T) {
	repo := newFakeDocRepo(uploadedDoc("doc-1", "user-1"))
	uc := NewProcessDocumentUseCase(repo, &fakeExtractor{text: ""},
		&fakeChunker{}, &fakeEmbedder{}, &fakeChunkStore{})

	err := uc.ProcessByID(context.Background(), "doc-1")
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("got %v, want ErrInvalidInput", err)
	}
}

func TestProcessByIDVectorCardinalityMismatchFails(t *testing.T) {
	repo := newFakeDocRepo(uploadedDoc("doc-1", "user-1"))
	chunks := &fakeChunkStore{}
	// Two spans but a three-vector response is a provider contract breach.
	embedder := &fakeEmbedder{}
	uc := &ProcessDocumentUseCase{
		repo:      repo,
		extractor: &fakeExtractor{text: "text"},
		chunker:   &fakeChunker{spans: []string{"a", "b"}},
		embedder:  &mismatchedEmbedder{inner: embedder},
		chunks:    chunks,
	}

	err := uc.ProcessByID(context.Background(), "doc-1")
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("got %v, want ErrInvalidInput", err)
	}
	if len(chunks.putDocIDs) != 0 {
		t.Fatal("no chunks may be stored on cardinality mismatch")
	}
	doc, getErr := repo.GetByIDAny(context.Background(), "doc-1")
	if getErr != nil {
		t.Fatal(getErr)
	}
	if doc.Status != domain.StatusFailed {
		t.Fatalf("status = %s, want failed", doc.Status)
	}
}

func TestProcessByIDUnknownDocument(t *testing.T) {
	uc := NewProcessDocumentUseCase(newFakeDocRepo(), &fakeExtractor{},
		&fakeChunker{}, &fakeEmbedder{}, &fakeChunkStore{})

	err := uc.ProcessByID(context.Background(), "ghost")
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("got %v, want ErrDocumentNotFound", err)
	}
}

type mismatchedEmbedder struct {
	inner *fakeEmbedder
}

func (e *mismatchedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out, err := e.inner.Embed(ctx, append(texts, "extra"))
	return out, err
}

func (e *mismatchedEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.inner.EmbedQuery(ctx, text)
}
