package domain

import "time"

type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "uploaded"
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusFailed     DocumentStatus = "failed"
)

type Document struct {
	ID          string         `json:"id"`
	OwnerID     string         `json:"owner_id"`
	Filename    string         `json:"filename"`
	MimeType    string         `json:"mime_type"`
	SizeBytes   int64          `json:"size_bytes"`
	StoragePath string         `json:"storage_path"`
	Status      DocumentStatus `json:"status"`
	ChunkCount  int            `json:"chunk_count"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Queryable reports whether the document may participate in retrieval or
// analysis. A document is queryable only after every chunk has been embedded
// and stored.
func (d *Document) Queryable() bool {
	return d != nil && d.Status == StatusReady
}
