package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/kirillkom/doc-insight/internal/core/domain"
)

// ChunkRepository stores embedded chunks. Embeddings are persisted as pgvector
// columns; vectors are expected to be unit-normalized before they get here.
type ChunkRepository struct {
	db *sql.DB
}

func NewChunkRepository(db *sql.DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

// PutChunks replaces the document's chunk set in one transaction, so a reader
// never observes a half-ingested document.
func (r *ChunkRepository) PutChunks(ctx context.Context, documentID string, chunks []domain.Chunk) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin chunks tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID); err != nil {
		return fmt.Errorf("clear previous chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO chunks (id, document_id, chunk_index, section, content, embedding, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`)
	if err != nil {
		return fmt.Errorf("prepare chunk insert: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		_, err := stmt.ExecContext(ctx,
			chunk.ID, documentID, chunk.Index, chunk.Section, chunk.Text,
			pgvector.NewVector(chunk.Embedding), chunk.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert chunk %d: %w", chunk.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit chunks tx: %w", err)
	}
	return nil
}

// GetChunks returns the chunks of the owner's queryable documents in
// (document_id, chunk_index) order. A nil documentIDs set means every
// queryable document; a non-nil set restricts to those ids.
func (r *ChunkRepository) GetChunks(ctx context.Context, ownerID string, documentIDs []string) ([]domain.Chunk, error) {
	query := `
SELECT c.id, c.document_id, c.chunk_index, c.section, c.content, c.embedding, c.created_at
FROM chunks c
JOIN documents d ON d.id = c.document_id
WHERE d.owner_id = $1 AND d.status = $2
`
	args := []any{ownerID, string(domain.StatusReady)}
	if documentIDs != nil {
		query += ` AND c.document_id = ANY($3)`
		args = append(args, pq.Array(documentIDs))
	}
	query += ` ORDER BY c.document_id, c.chunk_index`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk
	for rows.Next() {
		var chunk domain.Chunk
		var embedding pgvector.Vector
		err := rows.Scan(
			&chunk.ID, &chunk.DocumentID, &chunk.Index, &chunk.Section, &chunk.Text,
			&embedding, &chunk.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan chunk row: %w", err)
		}
		chunk.Embedding = embedding.Slice()
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return chunks, nil
}
