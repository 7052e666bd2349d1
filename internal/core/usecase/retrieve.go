package usecase

import (
	"math"
	"sort"

	"github.com/kirillkom/doc-insight/internal/core/domain"
)

// NormalizeVector scales v to unit length. Chunk embeddings are normalized
// once at ingestion and the query vector once per retrieval, so similarity
// reduces to a dot product over potentially thousands of candidates.
func NormalizeVector(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := 1.0 / math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out
}

func dotProduct(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// rankChunks scores every candidate against a unit-length query vector,
// drops entries below threshold, sorts descending by similarity with ties
// broken by (documentID, chunkIndex) ascending, and truncates to limit.
func rankChunks(query []float32, candidates []domain.Chunk, filenames map[string]string, limit int, threshold float64) []domain.RetrievedChunk {
	if len(query) == 0 || len(candidates) == 0 {
		return nil
	}

	out := make([]domain.RetrievedChunk, 0, len(candidates))
	for _, chunk := range candidates {
		similarity := dotProduct(query, chunk.Embedding)
		if similarity < threshold {
			continue
		}
		out = append(out, domain.RetrievedChunk{
			DocumentID: chunk.DocumentID,
			Filename:   filenames[chunk.DocumentID],
			ChunkIndex: chunk.Index,
			Section:    chunk.Section,
			Text:       chunk.Text,
			Similarity: similarity,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		if out[i].DocumentID != out[j].DocumentID {
			return out[i].DocumentID < out[j].DocumentID
		}
		return out[i].ChunkIndex < out[j].ChunkIndex
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
