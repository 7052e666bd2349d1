package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/kirillkom/doc-insight/internal/core/domain"
	"github.com/kirillkom/doc-insight/internal/infrastructure/resilience"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := New(server.URL, "test-gen", "test-embed", Options{
		Executor: resilience.NewExecutor(resilience.Config{
			RetryMaxAttempts: 1,
			BreakerEnabled:   false,
		}),
	})
	return client, server
}

func TestEmbedRestoresProviderOrder(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req embeddingsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Input) != 3 {
			t.Fatalf("expected 3 inputs, got %d", len(req.Input))
		}
		// Answer out of order on purpose.
		resp := map[string]any{
			"data": []map[string]any{
				{"index": 2, "embedding": []float32{0.3}},
				{"index": 0, "embedding": []float32{0.1}},
				{"index": 1, "embedding": []float32{0.2}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))

	vectors, err := client.Embed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vectors) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vectors))
	}
	for i, want := range []float32{0.1, 0.2, 0.3} {
		if vectors[i][0] != want {
			t.Errorf("vector %d = %v, want first element %v", i, vectors[i], want)
		}
	}
}

func TestEmbedEmptyInputSkipsProvider(t *testing.T) {
	var calls atomic.Int64
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	vectors, err := client.Embed(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vectors) != 0 {
		t.Fatalf("expected empty result, got %d", len(vectors))
	}
	if calls.Load() != 0 {
		t.Errorf("expected no provider calls, got %d", calls.Load())
	}
}

func TestEmbedSplitsIntoBatches(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req embeddingsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Input) > 2 {
			t.Errorf("batch of %d exceeds configured size 2", len(req.Input))
		}
		data := make([]map[string]any, len(req.Input))
		for i, text := range req.Input {
			data[i] = map[string]any{
				"index":     i,
				"embedding": []float32{float32(len(text))},
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
	defer server.Close()

	client := New(server.URL, "test-gen", "test-embed", Options{
		EmbedBatchSize:   2,
		EmbedMaxParallel: 2,
		Executor: resilience.NewExecutor(resilience.Config{
			RetryMaxAttempts: 1,
			BreakerEnabled:   false,
		}),
	})

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vectors, err := client.Embed(context.Background(), texts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 batches, got %d", calls.Load())
	}
	for i, text := range texts {
		if vectors[i][0] != float32(len(text)) {
			t.Errorf("vector %d out of position: got %v", i, vectors[i])
		}
	}
}

func TestEmbedCardinalityMismatchFails(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"index": 0, "embedding": []float32{0.1}},
			},
		})
	}))

	if _, err := client.Embed(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("expected cardinality error")
	}
}

func TestEmbedUpstreamOutageIsTemporary(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))

	_, err := client.Embed(context.Background(), []string{"a"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Errorf("expected temporary failure, got %v", err)
	}
	if !strings.Contains(err.Error(), "overloaded") {
		t.Errorf("expected upstream body in error, got %v", err)
	}
}

func TestGenerateAnswerSendsContext(t *testing.T) {
	var prompt string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		prompt, _ = req["prompt"].(string)
		_ = json.NewEncoder(w).Encode(map[string]any{"response": "  the answer \n"})
	}))

	generator := NewGenerator(client)
	answer, err := generator.GenerateAnswer(context.Background(), "what is the deadline?", []domain.RetrievedChunk{
		{DocumentID: "d1", Filename: "contract.pdf", ChunkIndex: 0, Text: "Deadline is March 1.", Similarity: 0.91},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != "the answer" {
		t.Errorf("expected trimmed answer, got %q", answer)
	}
	if !strings.Contains(prompt, "what is the deadline?") {
		t.Error("prompt is missing the question")
	}
	if !strings.Contains(prompt, "Deadline is March 1.") {
		t.Error("prompt is missing the retrieved chunk text")
	}
	if !strings.Contains(prompt, "contract.pdf") {
		t.Error("prompt is missing the source filename")
	}
}

func TestBuildValidationPromptSelectsTaskPerMode(t *testing.T) {
	docs := []domain.AnalysisDocument{
		{ID: "d1", Filename: "plan-a.pdf", Excerpts: []string{"budget is 10"}},
		{ID: "d2", Filename: "plan-b.pdf", Excerpts: []string{"budget is 20"}},
	}

	across := buildValidationPrompt(domain.AnalysisAcross, docs)
	if !strings.Contains(across, "Compare the documents below against each other") {
		t.Error("across prompt is missing the comparison task")
	}
	if !strings.Contains(across, `{"comparable": false}`) {
		t.Error("across prompt is missing the not-comparable instruction")
	}

	within := buildValidationPrompt(domain.AnalysisWithin, docs[:1])
	if !strings.Contains(within, "internal contradictions") {
		t.Error("within prompt is missing the single-document task")
	}
	if strings.Contains(within, "Compare the documents below") {
		t.Error("within prompt must not carry the cross-document task")
	}
}

func TestAnalyzeDocumentsNotComparable(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["format"] != "json" {
			t.Error("expected JSON-mode generation")
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"response": `{"comparable": false}`})
	}))

	analyzer := NewAnalyzer(client)
	result, err := analyzer.AnalyzeDocuments(context.Background(), domain.AnalysisAcross, []domain.AnalysisDocument{
		{ID: "d1", Filename: "recipe.txt", Excerpts: []string{"flour"}},
		{ID: "d2", Filename: "lease.pdf", Excerpts: []string{"rent"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.NotComparable() {
		t.Fatal("expected not-comparable outcome")
	}
	if len(result.Contradictions) != 0 {
		t.Errorf("expected no contradictions, got %d", len(result.Contradictions))
	}
	if result.RiskAssessment.Summary == "" {
		t.Error("expected an explanatory summary")
	}
}

func TestAnalyzeDocumentsMapsFindings(t *testing.T) {
	modelOutput := `{
		"comparable": true,
		"contradictions": [{
			"severity": "HIGH",
			"confidence": "high",
			"description": "Budgets disagree",
			"sources": [
				{"document_id": "d1", "location": "p.2", "excerpt": "budget is 10"},
				{"document_id": "d2", "location": "p.5", "excerpt": "budget is 20"},
				{"document_id": "ghost", "location": "", "excerpt": "made up"}
			]
		}],
		"gaps": [{"topic": "timeline", "description": "No dates given"}],
		"key_claims": [{"claim": "Budget is fixed", "confidence": "Low", "source": {"document_id": "d1", "location": "p.1", "excerpt": "fixed budget"}}],
		"recommendations": [{"text": "Align the budgets", "priority": "high"}, {"text": "  "}],
		"risk": {"level": "medium", "summary": "Moderate divergence"}
	}`
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"response": modelOutput})
	}))

	analyzer := NewAnalyzer(client)
	result, err := analyzer.AnalyzeDocuments(context.Background(), domain.AnalysisAcross, []domain.AnalysisDocument{
		{ID: "d1", Filename: "plan-a.pdf", Excerpts: []string{"budget is 10"}},
		{ID: "d2", Filename: "plan-b.pdf", Excerpts: []string{"budget is 20"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RiskAssessment.Status != domain.DocumentsComparable {
		t.Errorf("expected comparable status, got %q", result.RiskAssessment.Status)
	}
	if len(result.Contradictions) != 1 {
		t.Fatalf("expected 1 contradiction, got %d", len(result.Contradictions))
	}
	c := result.Contradictions[0]
	if c.Severity != domain.SeverityHigh {
		t.Errorf("severity not normalized: %q", c.Severity)
	}
	if c.Confidence != domain.ConfidenceHigh {
		t.Errorf("confidence not normalized: %q", c.Confidence)
	}
	if len(c.Sources) != 2 {
		t.Fatalf("expected unknown document reference dropped, got %d sources", len(c.Sources))
	}
	if c.Sources[0].DocumentName != "plan-a.pdf" {
		t.Errorf("expected document name backfilled, got %q", c.Sources[0].DocumentName)
	}
	if len(result.Gaps) != 1 || result.Gaps[0].Topic != "timeline" {
		t.Errorf("gaps not mapped: %+v", result.Gaps)
	}
	if len(result.KeyClaims) != 1 || result.KeyClaims[0].Confidence != domain.ConfidenceLow {
		t.Errorf("key claims not mapped: %+v", result.KeyClaims)
	}
	if len(result.Recommendations) != 1 {
		t.Errorf("expected blank recommendation dropped, got %d", len(result.Recommendations))
	}
	if result.RiskAssessment.Level != domain.SeverityMedium {
		t.Errorf("risk level not normalized: %q", result.RiskAssessment.Level)
	}
}

func TestGenerateInsightsNormalizesCategories(t *testing.T) {
	modelOutput := `{"insights": [
		{"category": "Risk", "confidence": "HIGH", "title": "Single supplier", "description": "All parts from one vendor", "impact": "supply chain"},
		{"category": "unknown", "confidence": "", "title": "Recurring theme", "description": "Same phrasing in both docs"}
	]}`
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"response": modelOutput})
	}))

	generator := NewInsightsGenerator(client)
	insights, err := generator.GenerateInsights(context.Background(), []domain.AnalysisDocument{
		{ID: "d1", Filename: "a.txt", Excerpts: []string{"text"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(insights) != 2 {
		t.Fatalf("expected 2 insights, got %d", len(insights))
	}
	if insights[0].Category != domain.InsightRisk || insights[0].Confidence != domain.ConfidenceHigh {
		t.Errorf("first insight not normalized: %+v", insights[0])
	}
	if insights[1].Category != domain.InsightPattern || insights[1].Confidence != domain.ConfidenceMedium {
		t.Errorf("unknown category should default to pattern with medium confidence: %+v", insights[1])
	}
	if insights[1].Evidence == nil {
		t.Error("expected evidence initialized to empty slice")
	}
}

func TestExtractJSONObject(t *testing.T) {
	raw := "Here you go:\n```json\n{\"comparable\": true}\n```"
	got := extractJSONObject(raw)
	if got != `{"comparable": true}` {
		t.Errorf("got %q", got)
	}
}
