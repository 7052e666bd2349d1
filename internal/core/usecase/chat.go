package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/doc-insight/internal/core/domain"
	"github.com/kirillkom/doc-insight/internal/core/ports"
)

// InsufficientContextAnswer is returned verbatim when no chunk passes the
// similarity threshold. No LLM call is made in that case, so the engine never
// hallucinates an answer from empty context.
const InsufficientContextAnswer = "The selected documents do not contain enough information to answer this question."

type ChatUseCase struct {
	docs      ports.DocumentRepository
	chunks    ports.ChunkStore
	embedder  ports.Embedder
	generator ports.AnswerGenerator

	defaultLimit int
	maxLimit     int
}

func NewChatUseCase(
	docs ports.DocumentRepository,
	chunks ports.ChunkStore,
	embedder ports.Embedder,
	generator ports.AnswerGenerator,
	defaultLimit, maxLimit int,
) *ChatUseCase {
	if defaultLimit <= 0 {
		defaultLimit = 5
	}
	if maxLimit < defaultLimit {
		maxLimit = defaultLimit * 4
	}
	return &ChatUseCase{
		docs:         docs,
		chunks:       chunks,
		embedder:     embedder,
		generator:    generator,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}
}

func (uc *ChatUseCase) Answer(ctx context.Context, ownerID string, query domain.ChatQuery) (*domain.ChatAnswer, error) {
	if strings.TrimSpace(query.Question) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "chat answer", errors.New("question is required"))
	}
	if query.Threshold < 0 || query.Threshold > 1 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "chat answer", fmt.Errorf("similarity threshold %v outside [0,1]", query.Threshold))
	}

	limit := query.Limit
	if limit <= 0 {
		limit = uc.defaultLimit
	}
	if limit > uc.maxLimit {
		limit = uc.maxLimit
	}

	// An explicit empty scope is a user contract: never fall back to a
	// global search.
	if query.DocumentIDs != nil && len(query.DocumentIDs) == 0 {
		return uc.synthesize(ctx, query.Question, nil)
	}

	queryVector, err := uc.embedder.EmbedQuery(ctx, query.Question)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	queryVector = NormalizeVector(queryVector)

	candidates, err := uc.chunks.GetChunks(ctx, ownerID, query.DocumentIDs)
	if err != nil {
		return nil, fmt.Errorf("load candidate chunks: %w", err)
	}

	filenames, err := uc.filenameIndex(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	ranked := rankChunks(queryVector, candidates, filenames, limit, query.Threshold)
	return uc.synthesize(ctx, query.Question, ranked)
}

func (uc *ChatUseCase) synthesize(ctx context.Context, question string, ranked []domain.RetrievedChunk) (*domain.ChatAnswer, error) {
	if len(ranked) == 0 {
		return &domain.ChatAnswer{
			Answer:     InsufficientContextAnswer,
			Sources:    []domain.SourceAttribution{},
			ChunksUsed: 0,
		}, nil
	}

	answerText, err := uc.generator.GenerateAnswer(ctx, question, ranked)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	return &domain.ChatAnswer{
		Answer:     answerText,
		Sources:    groupSources(ranked),
		ChunksUsed: len(ranked),
	}, nil
}

// groupSources folds ranked chunks into per-document attributions, ordered by
// each document's first (best-ranked) appearance.
func groupSources(ranked []domain.RetrievedChunk) []domain.SourceAttribution {
	index := make(map[string]int, len(ranked))
	out := make([]domain.SourceAttribution, 0, len(ranked))
	for _, chunk := range ranked {
		pos, seen := index[chunk.DocumentID]
		if !seen {
			index[chunk.DocumentID] = len(out)
			out = append(out, domain.SourceAttribution{
				DocumentID:    chunk.DocumentID,
				Filename:      chunk.Filename,
				ChunksUsed:    1,
				TopSimilarity: chunk.Similarity,
			})
			continue
		}
		out[pos].ChunksUsed++
		if chunk.Similarity > out[pos].TopSimilarity {
			out[pos].TopSimilarity = chunk.Similarity
		}
	}
	return out
}

func (uc *ChatUseCase) filenameIndex(ctx context.Context, ownerID string) (map[string]string, error) {
	docs, err := uc.docs.List(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	out := make(map[string]string, len(docs))
	for _, doc := range docs {
		out[doc.ID] = doc.Filename
	}
	return out, nil
}
