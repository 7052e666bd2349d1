package ollama

import (
	"fmt"
	"strings"

	"github.com/kirillkom/doc-insight/internal/core/domain"
)

func buildAnswerPrompt(question string, chunks []domain.RetrievedChunk) string {
	var contextBuilder strings.Builder
	for idx, chunk := range chunks {
		contextBuilder.WriteString(fmt.Sprintf(
			"[%d] file=%s section=%s similarity=%.3f\n%s\n\n",
			idx+1,
			chunk.Filename,
			chunk.Section,
			chunk.Similarity,
			chunk.Text,
		))
	}

	return fmt.Sprintf(`Answer the user question only from the context below.
Cite facts, do not invent anything missing from the context.
If the context is insufficient, say it directly.

Question:
%s

Context:
%s
`, question, contextBuilder.String())
}

func buildValidationPrompt(analysisType domain.AnalysisType, docs []domain.AnalysisDocument) string {
	var task string
	switch analysisType {
	case domain.AnalysisAcross:
		task = `Compare the documents below against each other.
First decide whether they cover comparable subject matter. If they do not,
return {"comparable": false} and nothing else.
If they are comparable, find contradictions between documents, information
gaps, points of agreement, key claims, and recommendations, and assess
overall risk.`
	default:
		task = `Analyze the document below for internal contradictions,
information gaps, key claims, and recommendations, and assess overall risk.`
	}

	return task + `
Return a strict JSON object with keys:
comparable (boolean),
contradictions (array of {severity, confidence, description, sources}),
gaps (array of {topic, description}),
agreements (array of {description, sources}),
key_claims (array of {claim, confidence, source}),
recommendations (array of {text, priority}),
risk (object {level, summary}).
severity and priority are one of high, medium, low.
confidence is one of High, Medium, Low.
sources is an array of {document_id, document_name, location, excerpt};
source is a single such object. Use the document ids given below.
No markdown, no extra keys.

` + formatAnalysisDocuments(docs)
}

func buildInsightsPrompt(docs []domain.AnalysisDocument) string {
	return `You are an analyst extracting non-obvious insights from documents.
Find patterns, anomalies, opportunities, and risks a careful reader might miss.
Return a strict JSON object with key insights: an array of
{category, confidence, title, description, evidence, impact}.
category is one of pattern, anomaly, opportunity, risk.
confidence is one of High, Medium, Low.
evidence is an array of short verbatim excerpts from the documents.
No markdown, no extra keys.

` + formatAnalysisDocuments(docs)
}

func formatAnalysisDocuments(docs []domain.AnalysisDocument) string {
	var builder strings.Builder
	for idx, doc := range docs {
		builder.WriteString(fmt.Sprintf("=== Document %d: %s (id=%s) ===\n", idx+1, doc.Filename, doc.ID))
		for _, excerpt := range doc.Excerpts {
			builder.WriteString(excerpt)
			builder.WriteString("\n")
		}
		builder.WriteString("\n")
	}
	return builder.String()
}
