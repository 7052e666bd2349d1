package extractor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kirillkom/doc-insight/internal/core/domain"
	"github.com/kirillkom/doc-insight/internal/core/ports"
)

// Composite routes a document to a format-specific extractor by MIME type,
// falling back to the filename extension when the client sent a generic type.
type Composite struct {
	plaintext   ports.TextExtractor
	pdf         ports.TextExtractor
	spreadsheet ports.TextExtractor
}

func NewComposite(plaintext, pdf, spreadsheet ports.TextExtractor) *Composite {
	return &Composite{
		plaintext:   plaintext,
		pdf:         pdf,
		spreadsheet: spreadsheet,
	}
}

func (c *Composite) Extract(ctx context.Context, doc *domain.Document) (string, error) {
	switch {
	case isPDF(doc):
		return c.pdf.Extract(ctx, doc)
	case isSpreadsheet(doc):
		return c.spreadsheet.Extract(ctx, doc)
	default:
		return c.plaintext.Extract(ctx, doc)
	}
}

func isPDF(doc *domain.Document) bool {
	if strings.Contains(doc.MimeType, "pdf") {
		return true
	}
	return strings.EqualFold(filepath.Ext(doc.Filename), ".pdf")
}

func isSpreadsheet(doc *domain.Document) bool {
	if strings.Contains(doc.MimeType, "spreadsheetml") {
		return true
	}
	return strings.EqualFold(filepath.Ext(doc.Filename), ".xlsx")
}

var _ ports.TextExtractor = (*Composite)(nil)

// SupportedMimeTypes lists the upload formats the pipeline accepts.
func SupportedMimeTypes() []string {
	return []string{
		"text/plain",
		"text/markdown",
		"text/csv",
		"application/json",
		"application/pdf",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	}
}

// ValidateUpload rejects formats no extractor can handle before anything is
// stored.
func ValidateUpload(filename, mimeType string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt", ".md", ".csv", ".json", ".pdf", ".xlsx":
		return nil
	}
	for _, supported := range SupportedMimeTypes() {
		if strings.HasPrefix(mimeType, supported) {
			return nil
		}
	}
	return domain.WrapError(domain.ErrInvalidInput, "validate upload",
		fmt.Errorf("unsupported document format: %s (%s)", filename, mimeType))
}
