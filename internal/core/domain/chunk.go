package domain

import "time"

// Chunk is an immutable span of a document's text with its embedding vector.
// Chunk indices are contiguous from 0 within a document; re-ingestion creates
// a new document rather than mutating chunks.
type Chunk struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Index      int       `json:"index"`
	Text       string    `json:"text"`
	Section    string    `json:"section,omitempty"`
	Embedding  []float32 `json:"embedding"`
	CreatedAt  time.Time `json:"created_at"`
}

// RetrievedChunk is a chunk annotated with its similarity to a query vector.
type RetrievedChunk struct {
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename"`
	ChunkIndex int     `json:"chunk_index"`
	Section    string  `json:"section,omitempty"`
	Text       string  `json:"text"`
	Similarity float64 `json:"similarity"`
}
