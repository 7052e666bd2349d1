package usecase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/kirillkom/doc-insight/internal/core/domain"
)

type fakeDocRepo struct {
	mu   sync.Mutex
	docs map[string]*domain.Document

	statusUpdates []string
	readyCounts   map[string]int
	deleted       []string
}

func newFakeDocRepo(docs ...*domain.Document) *fakeDocRepo {
	repo := &fakeDocRepo{
		docs:        make(map[string]*domain.Document),
		readyCounts: make(map[string]int),
	}
	for _, doc := range docs {
		repo.docs[doc.ID] = doc
	}
	return repo
}

func (r *fakeDocRepo) Create(ctx context.Context, doc *domain.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.ID] = doc
	return nil
}

func (r *fakeDocRepo) GetByID(ctx context.Context, ownerID, id string) (*domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok || doc.OwnerID != ownerID {
		return nil, fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, id)
	}
	copied := *doc
	return &copied, nil
}

func (r *fakeDocRepo) GetByIDAny(ctx context.Context, id string) (*domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, id)
	}
	copied := *doc
	return &copied, nil
}

func (r *fakeDocRepo) List(ctx context.Context, ownerID string) ([]domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Document, 0, len(r.docs))
	for _, doc := range r.docs {
		if doc.OwnerID == ownerID {
			out = append(out, *doc)
		}
	}
	return out, nil
}

func (r *fakeDocRepo) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, id)
	}
	doc.Status = status
	doc.Error = errMessage
	r.statusUpdates = append(r.statusUpdates, string(status))
	return nil
}

func (r *fakeDocRepo) SetReady(ctx context.Context, id string, chunkCount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, id)
	}
	doc.Status = domain.StatusReady
	doc.ChunkCount = chunkCount
	r.readyCounts[id] = chunkCount
	return nil
}

func (r *fakeDocRepo) Delete(ctx context.Context, ownerID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok || doc.OwnerID != ownerID {
		return fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, id)
	}
	delete(r.docs, id)
	r.deleted = append(r.deleted, id)
	return nil
}

type fakeChunkStore struct {
	mu     sync.Mutex
	chunks []domain.Chunk

	putDocIDs []string
	putCounts []int
	getScopes [][]string
	getErr    error
}

func (s *fakeChunkStore) PutChunks(ctx context.Context, documentID string, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.chunks[:0]
	for _, chunk := range s.chunks {
		if chunk.DocumentID != documentID {
			kept = append(kept, chunk)
		}
	}
	s.chunks = append(kept, chunks...)
	s.putDocIDs = append(s.putDocIDs, documentID)
	s.putCounts = append(s.putCounts, len(chunks))
	return nil
}

func (s *fakeChunkStore) GetChunks(ctx context.Context, ownerID string, documentIDs []string) ([]domain.Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getScopes = append(s.getScopes, documentIDs)
	if s.getErr != nil {
		return nil, s.getErr
	}
	if documentIDs == nil {
		out := make([]domain.Chunk, len(s.chunks))
		copy(out, s.chunks)
		return out, nil
	}
	scope := make(map[string]struct{}, len(documentIDs))
	for _, id := range documentIDs {
		scope[id] = struct{}{}
	}
	var out []domain.Chunk
	for _, chunk := range s.chunks {
		if _, ok := scope[chunk.DocumentID]; ok {
			out = append(out, chunk)
		}
	}
	return out, nil
}

type fakeEmbedder struct {
	queryVector []float32
	queryErr    error
	batchErr    error
	vectorFor   func(text string) []float32

	queryCalls atomic.Int32
	batchCalls atomic.Int32
}

func (e *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.batchCalls.Add(1)
	if e.batchErr != nil {
		return nil, e.batchErr
	}
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		if e.vectorFor != nil {
			out = append(out, e.vectorFor(text))
			continue
		}
		out = append(out, []float32{1, 0})
	}
	return out, nil
}

func (e *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	e.queryCalls.Add(1)
	if e.queryErr != nil {
		return nil, e.queryErr
	}
	return e.queryVector, nil
}

type fakeAnswerGenerator struct {
	answer string
	err    error

	calls        atomic.Int32
	lastQuestion string
	lastChunks   []domain.RetrievedChunk
}

func (g *fakeAnswerGenerator) GenerateAnswer(ctx context.Context, question string, chunks []domain.RetrievedChunk) (string, error) {
	g.calls.Add(1)
	g.lastQuestion = question
	g.lastChunks = chunks
	if g.err != nil {
		return "", g.err
	}
	return g.answer, nil
}

type fakeAnalyzer struct {
	result  *domain.AnalysisResult
	err     error
	release chan struct{}

	calls    atomic.Int32
	lastType domain.AnalysisType
	lastDocs []domain.AnalysisDocument
}

func (a *fakeAnalyzer) AnalyzeDocuments(ctx context.Context, analysisType domain.AnalysisType, docs []domain.AnalysisDocument) (*domain.AnalysisResult, error) {
	a.calls.Add(1)
	a.lastType = analysisType
	a.lastDocs = docs
	if a.release != nil {
		<-a.release
	}
	if a.err != nil {
		return nil, a.err
	}
	copied := *a.result
	return &copied, nil
}

type fakeInsightGenerator struct {
	insights []domain.Insight
	err      error

	calls    atomic.Int32
	lastDocs []domain.AnalysisDocument
}

func (g *fakeInsightGenerator) GenerateInsights(ctx context.Context, docs []domain.AnalysisDocument) ([]domain.Insight, error) {
	g.calls.Add(1)
	g.lastDocs = docs
	if g.err != nil {
		return nil, g.err
	}
	out := make([]domain.Insight, len(g.insights))
	copy(out, g.insights)
	return out, nil
}

type fakeAnalysisStore struct {
	mu      sync.Mutex
	results map[string]*domain.AnalysisResult

	getErr      error
	saveErr     error
	deletedDocs []string
}

func newFakeAnalysisStore() *fakeAnalysisStore {
	return &fakeAnalysisStore{results: make(map[string]*domain.AnalysisResult)}
}

func (s *fakeAnalysisStore) key(ownerID string, fp domain.Fingerprint) string {
	return ownerID + "/" + string(fp)
}

func (s *fakeAnalysisStore) Save(ctx context.Context, ownerID string, result *domain.AnalysisResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	copied := *result
	s.results[s.key(ownerID, result.Fingerprint)] = &copied
	return nil
}

func (s *fakeAnalysisStore) GetByFingerprint(ctx context.Context, ownerID string, fp domain.Fingerprint) (*domain.AnalysisResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	result, ok := s.results[s.key(ownerID, fp)]
	if !ok {
		return nil, nil
	}
	copied := *result
	return &copied, nil
}

func (s *fakeAnalysisStore) HasFingerprint(ctx context.Context, ownerID string, fp domain.Fingerprint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.results[s.key(ownerID, fp)]
	return ok, nil
}

func (s *fakeAnalysisStore) DeleteByDocument(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletedDocs = append(s.deletedDocs, documentID)
	for key, result := range s.results {
		for _, id := range result.DocumentsAnalyzed {
			if id == documentID {
				delete(s.results, key)
				break
			}
		}
	}
	return nil
}

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte

	saveErr   error
	deleteErr error
	deleted   []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string][]byte)}
}

func (s *fakeStorage) Save(ctx context.Context, key string, data io.Reader) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	s.objects[key] = raw
	return nil
}

func (s *fakeStorage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s not found", key)
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func (s *fakeStorage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, key)
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.objects, key)
	return nil
}

type fakeQueue struct {
	mu         sync.Mutex
	published  []string
	publishErr error
}

func (q *fakeQueue) PublishDocumentIngested(ctx context.Context, documentID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.publishErr != nil {
		return q.publishErr
	}
	q.published = append(q.published, documentID)
	return nil
}

func (q *fakeQueue) SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error {
	return nil
}

type fakeExtractor struct {
	text string
	err  error
}

func (e *fakeExtractor) Extract(ctx context.Context, doc *domain.Document) (string, error) {
	if e.err != nil {
		return "", e.err
	}
	return e.text, nil
}

type fakeChunker struct {
	spans []string
}

func (c *fakeChunker) Split(text string) []string {
	return c.spans
}
