package ollama

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/kirillkom/doc-insight/internal/core/domain"
	"github.com/kirillkom/doc-insight/internal/core/ports"
)

// Generator implements answer synthesis over retrieved chunks.
type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

func (g *Generator) GenerateAnswer(ctx context.Context, question string, chunks []domain.RetrievedChunk) (string, error) {
	return g.client.generateText(ctx, buildAnswerPrompt(question, chunks))
}

// Analyzer implements contradiction/validation analysis: one JSON-mode
// generation per request, parsed into typed findings.
type Analyzer struct {
	client *Client
}

func NewAnalyzer(client *Client) *Analyzer {
	return &Analyzer{client: client}
}

type sourcePayload struct {
	DocumentID   string `json:"document_id"`
	DocumentName string `json:"document_name"`
	Location     string `json:"location"`
	Excerpt      string `json:"excerpt"`
}

type validationPayload struct {
	Comparable     *bool `json:"comparable"`
	Contradictions []struct {
		Severity    string          `json:"severity"`
		Confidence  string          `json:"confidence"`
		Description string          `json:"description"`
		Sources     []sourcePayload `json:"sources"`
	} `json:"contradictions"`
	Gaps []struct {
		Topic       string `json:"topic"`
		Description string `json:"description"`
	} `json:"gaps"`
	Agreements []struct {
		Description string          `json:"description"`
		Sources     []sourcePayload `json:"sources"`
	} `json:"agreements"`
	KeyClaims []struct {
		Claim      string        `json:"claim"`
		Confidence string        `json:"confidence"`
		Source     sourcePayload `json:"source"`
	} `json:"key_claims"`
	Recommendations []struct {
		Text     string `json:"text"`
		Priority string `json:"priority"`
	} `json:"recommendations"`
	Risk struct {
		Level   string `json:"level"`
		Summary string `json:"summary"`
	} `json:"risk"`
}

func (a *Analyzer) AnalyzeDocuments(ctx context.Context, analysisType domain.AnalysisType, docs []domain.AnalysisDocument) (*domain.AnalysisResult, error) {
	raw, err := a.client.generateJSON(ctx, buildValidationPrompt(analysisType, docs))
	if err != nil {
		return nil, err
	}

	var payload validationPayload
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &payload); err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "analyze: malformed model output", err)
	}

	result := &domain.AnalysisResult{
		Contradictions:  []domain.Contradiction{},
		Gaps:            []domain.InformationGap{},
		Agreements:      []domain.Agreement{},
		KeyClaims:       []domain.KeyClaim{},
		Recommendations: []domain.Recommendation{},
	}

	if payload.Comparable != nil && !*payload.Comparable {
		result.RiskAssessment = domain.RiskAssessment{
			Status:  domain.DocumentsNotComparable,
			Summary: "The documents cover unrelated subject matter and cannot be meaningfully compared.",
		}
		return result, nil
	}

	for _, c := range payload.Contradictions {
		result.Contradictions = append(result.Contradictions, domain.Contradiction{
			Severity:    normalizeSeverity(c.Severity),
			Confidence:  normalizeConfidence(c.Confidence),
			Description: c.Description,
			Sources:     mapSources(c.Sources, docs),
		})
	}
	for _, g := range payload.Gaps {
		result.Gaps = append(result.Gaps, domain.InformationGap{
			Topic:       g.Topic,
			Description: g.Description,
		})
	}
	for _, ag := range payload.Agreements {
		result.Agreements = append(result.Agreements, domain.Agreement{
			Description: ag.Description,
			Sources:     mapSources(ag.Sources, docs),
		})
	}
	for _, kc := range payload.KeyClaims {
		sources := mapSources([]sourcePayload{kc.Source}, docs)
		claim := domain.KeyClaim{
			Claim:      kc.Claim,
			Confidence: normalizeConfidence(kc.Confidence),
		}
		if len(sources) > 0 {
			claim.Source = sources[0]
		}
		result.KeyClaims = append(result.KeyClaims, claim)
	}
	for _, r := range payload.Recommendations {
		if strings.TrimSpace(r.Text) == "" {
			continue
		}
		result.Recommendations = append(result.Recommendations, domain.Recommendation{
			Text:     r.Text,
			Priority: normalizeSeverity(r.Priority),
		})
	}

	result.RiskAssessment = domain.RiskAssessment{
		Status:  domain.DocumentsComparable,
		Level:   normalizeSeverity(payload.Risk.Level),
		Summary: payload.Risk.Summary,
	}
	return result, nil
}

// InsightsGenerator implements cross-cutting insight extraction.
type InsightsGenerator struct {
	client *Client
}

func NewInsightsGenerator(client *Client) *InsightsGenerator {
	return &InsightsGenerator{client: client}
}

type insightsPayload struct {
	Insights []struct {
		Category    string   `json:"category"`
		Confidence  string   `json:"confidence"`
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Evidence    []string `json:"evidence"`
		Impact      string   `json:"impact"`
	} `json:"insights"`
}

func (g *InsightsGenerator) GenerateInsights(ctx context.Context, docs []domain.AnalysisDocument) ([]domain.Insight, error) {
	raw, err := g.client.generateJSON(ctx, buildInsightsPrompt(docs))
	if err != nil {
		return nil, err
	}

	var payload insightsPayload
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &payload); err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "insights: malformed model output", err)
	}

	insights := make([]domain.Insight, 0, len(payload.Insights))
	for _, item := range payload.Insights {
		if strings.TrimSpace(item.Title) == "" && strings.TrimSpace(item.Description) == "" {
			continue
		}
		evidence := item.Evidence
		if evidence == nil {
			evidence = []string{}
		}
		insights = append(insights, domain.Insight{
			Category:    normalizeInsightCategory(item.Category),
			Confidence:  normalizeConfidence(item.Confidence),
			Title:       item.Title,
			Description: item.Description,
			Evidence:    evidence,
			Impact:      item.Impact,
		})
	}
	return insights, nil
}

// mapSources drops references to documents that were not part of the request
// and backfills display names the model may have omitted.
func mapSources(sources []sourcePayload, docs []domain.AnalysisDocument) []domain.FindingSource {
	names := make(map[string]string, len(docs))
	for _, doc := range docs {
		names[doc.ID] = doc.Filename
	}

	out := make([]domain.FindingSource, 0, len(sources))
	for _, s := range sources {
		name, known := names[s.DocumentID]
		if !known {
			continue
		}
		if s.DocumentName == "" {
			s.DocumentName = name
		}
		out = append(out, domain.FindingSource{
			DocumentID:   s.DocumentID,
			DocumentName: s.DocumentName,
			Location:     s.Location,
			Excerpt:      s.Excerpt,
		})
	}
	return out
}

func normalizeSeverity(raw string) domain.Severity {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "high", "critical":
		return domain.SeverityHigh
	case "low":
		return domain.SeverityLow
	default:
		return domain.SeverityMedium
	}
}

func normalizeConfidence(raw string) domain.ConfidenceLevel {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "high":
		return domain.ConfidenceHigh
	case "low":
		return domain.ConfidenceLow
	default:
		return domain.ConfidenceMedium
	}
}

func normalizeInsightCategory(raw string) domain.InsightCategory {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "anomaly":
		return domain.InsightAnomaly
	case "opportunity":
		return domain.InsightOpportunity
	case "risk":
		return domain.InsightRisk
	default:
		return domain.InsightPattern
	}
}

var (
	_ ports.AnswerGenerator    = (*Generator)(nil)
	_ ports.ValidationAnalyzer = (*Analyzer)(nil)
	_ ports.InsightGenerator   = (*InsightsGenerator)(nil)
	_ ports.Embedder           = (*Client)(nil)
)
