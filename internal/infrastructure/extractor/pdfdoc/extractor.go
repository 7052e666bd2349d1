package pdfdoc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kirillkom/doc-insight/internal/core/domain"
	"github.com/kirillkom/doc-insight/internal/core/ports"
)

// Extractor pulls plain text out of PDF documents. The whole file is
// buffered in memory: the pdf reader needs random access and uploads are
// size-capped upstream.
type Extractor struct {
	storage ports.ObjectStorage
}

func NewExtractor(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

func (e *Extractor) Extract(ctx context.Context, doc *domain.Document) (string, error) {
	reader, err := e.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return "", fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read source document: %w", err)
	}

	pdfReader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", domain.WrapError(domain.ErrInvalidInput, "parse pdf",
			fmt.Errorf("file %s: %w", doc.Filename, err))
	}

	textReader, err := pdfReader.GetPlainText()
	if err != nil {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract pdf text",
			fmt.Errorf("file %s: %w", doc.Filename, err))
	}

	var builder strings.Builder
	if _, err := io.Copy(&builder, textReader); err != nil {
		return "", fmt.Errorf("collect pdf text: %w", err)
	}
	return strings.TrimSpace(builder.String()), nil
}
