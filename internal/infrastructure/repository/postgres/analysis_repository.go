package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/kirillkom/doc-insight/internal/core/domain"
)

// AnalysisRepository persists finished analysis results keyed by fingerprint,
// so cache answers survive process restarts. The full typed result is stored
// as a JSONB payload; document ids are duplicated into an array column to
// support invalidation on document deletion.
type AnalysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

func (r *AnalysisRepository) Save(ctx context.Context, ownerID string, result *domain.AnalysisResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal analysis payload: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO analyses (fingerprint, owner_id, analysis_type, document_ids, payload, generated_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (owner_id, fingerprint) DO UPDATE
SET analysis_type = EXCLUDED.analysis_type,
    document_ids = EXCLUDED.document_ids,
    payload = EXCLUDED.payload,
    generated_at = EXCLUDED.generated_at
`,
		string(result.Fingerprint), ownerID, string(result.Type),
		pq.Array(result.DocumentsAnalyzed), payload, result.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert analysis: %w", err)
	}
	return nil
}

func (r *AnalysisRepository) GetByFingerprint(ctx context.Context, ownerID string, fp domain.Fingerprint) (*domain.AnalysisResult, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT payload
FROM analyses
WHERE owner_id = $1 AND fingerprint = $2
`, ownerID, string(fp))

	var payload []byte
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan analysis: %w", err)
	}

	var result domain.AnalysisResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("unmarshal analysis payload: %w", err)
	}
	return &result, nil
}

func (r *AnalysisRepository) HasFingerprint(ctx context.Context, ownerID string, fp domain.Fingerprint) (bool, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT EXISTS (
	SELECT 1 FROM analyses WHERE owner_id = $1 AND fingerprint = $2
)
`, ownerID, string(fp))

	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, fmt.Errorf("check analysis fingerprint: %w", err)
	}
	return exists, nil
}

func (r *AnalysisRepository) DeleteByDocument(ctx context.Context, documentID string) error {
	_, err := r.db.ExecContext(ctx, `
DELETE FROM analyses
WHERE $1 = ANY(document_ids)
`, documentID)
	if err != nil {
		return fmt.Errorf("delete analyses by document: %w", err)
	}
	return nil
}
