package httpadapter

import "github.com/kirillkom/doc-insight/internal/core/domain"

// legacyContradiction is the old flat two-statement shape. It exists only at
// this boundary; business logic and storage deal exclusively in the
// structured multi-source form.
type legacyContradiction struct {
	Severity    string `json:"severity"`
	Description string `json:"description"`
	DocumentA   string `json:"documentA"`
	StatementA  string `json:"statementA"`
	DocumentB   string `json:"documentB"`
	StatementB  string `json:"statementB"`
}

// toLegacyContradictions projects structured contradictions onto the legacy
// shape. The first two sources become the A/B statement pair; a single-source
// finding leaves the B side empty rather than duplicating the A side.
func toLegacyContradictions(contradictions []domain.Contradiction) []legacyContradiction {
	out := make([]legacyContradiction, 0, len(contradictions))
	for _, c := range contradictions {
		legacy := legacyContradiction{
			Severity:    string(c.Severity),
			Description: c.Description,
		}
		if len(c.Sources) > 0 {
			legacy.DocumentA = c.Sources[0].DocumentName
			legacy.StatementA = c.Sources[0].Excerpt
		}
		if len(c.Sources) > 1 {
			legacy.DocumentB = c.Sources[1].DocumentName
			legacy.StatementB = c.Sources[1].Excerpt
		}
		out = append(out, legacy)
	}
	return out
}
