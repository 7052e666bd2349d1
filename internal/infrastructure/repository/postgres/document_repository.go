package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/doc-insight/internal/core/domain"
)

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the documents, chunks, and analyses tables. The vector
// dimension is fixed at table creation and must match the embedding model.
func (r *DocumentRepository) EnsureSchema(ctx context.Context, embeddingDim int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}

	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL,
	filename TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	size_bytes BIGINT NOT NULL DEFAULT 0,
	storage_path TEXT NOT NULL,
	status TEXT NOT NULL,
	chunk_count INTEGER NOT NULL DEFAULT 0,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_owner ON documents(owner_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);

CREATE TABLE IF NOT EXISTS chunks (
	id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	chunk_index INTEGER NOT NULL,
	section TEXT,
	content TEXT NOT NULL,
	embedding vector(%d) NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_chunks_document_ordinal ON chunks(document_id, chunk_index);

CREATE TABLE IF NOT EXISTS analyses (
	fingerprint TEXT NOT NULL,
	owner_id TEXT NOT NULL,
	analysis_type TEXT NOT NULL,
	document_ids TEXT[] NOT NULL,
	payload JSONB NOT NULL,
	generated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (owner_id, fingerprint)
);

CREATE INDEX IF NOT EXISTS idx_analyses_documents ON analyses USING GIN (document_ids);
`, embeddingDim)
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO documents (
	id, owner_id, filename, mime_type, size_bytes, storage_path, status, chunk_count, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`,
		doc.ID, doc.OwnerID, doc.Filename, doc.MimeType, doc.SizeBytes, doc.StoragePath,
		string(doc.Status), doc.ChunkCount, doc.Error, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

const documentColumns = `id, owner_id, filename, mime_type, size_bytes, storage_path, status, chunk_count, error_message, created_at, updated_at`

func (r *DocumentRepository) GetByID(ctx context.Context, ownerID, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+documentColumns+`
FROM documents
WHERE owner_id = $1 AND id = $2
`, ownerID, id)
	return scanDocument(row, id)
}

func (r *DocumentRepository) GetByIDAny(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+documentColumns+`
FROM documents
WHERE id = $1
`, id)
	return scanDocument(row, id)
}

func scanDocument(row *sql.Row, id string) (*domain.Document, error) {
	var doc domain.Document
	var status string

	err := row.Scan(
		&doc.ID, &doc.OwnerID, &doc.Filename, &doc.MimeType, &doc.SizeBytes, &doc.StoragePath,
		&status, &doc.ChunkCount, &doc.Error, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, id)
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	doc.Status = domain.DocumentStatus(status)
	return &doc, nil
}

func (r *DocumentRepository) List(ctx context.Context, ownerID string) ([]domain.Document, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+documentColumns+`
FROM documents
WHERE owner_id = $1
ORDER BY created_at DESC
`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		var doc domain.Document
		var status string
		err := rows.Scan(
			&doc.ID, &doc.OwnerID, &doc.Filename, &doc.MimeType, &doc.SizeBytes, &doc.StoragePath,
			&status, &doc.ChunkCount, &doc.Error, &doc.CreatedAt, &doc.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan document row: %w", err)
		}
		doc.Status = domain.DocumentStatus(status)
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE documents
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	return requireAffected(result, id)
}

func (r *DocumentRepository) SetReady(ctx context.Context, id string, chunkCount int) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE documents
SET status = $2, chunk_count = $3, error_message = '', updated_at = $4
WHERE id = $1
`, id, string(domain.StatusReady), chunkCount, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark document ready: %w", err)
	}
	return requireAffected(result, id)
}

func requireAffected(result sql.Result, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, id)
	}
	return nil
}

func (r *DocumentRepository) Delete(ctx context.Context, ownerID, id string) error {
	result, err := r.db.ExecContext(ctx, `
DELETE FROM documents
WHERE owner_id = $1 AND id = $2
`, ownerID, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return requireAffected(result, id)
}
