package httpadapter

import (
	"errors"
	"net/http"
	"time"

	"github.com/kirillkom/doc-insight/internal/core/domain"
)

type analyzeWithinRequest struct {
	DocumentID      string `json:"documentId"`
	ForceRegenerate bool   `json:"forceRegenerate"`
}

type analyzeAcrossRequest struct {
	PrimaryDocumentID  string   `json:"primaryDocumentId"`
	CompareDocumentIDs []string `json:"compareDocumentIds"`
	ForceRegenerate    bool     `json:"forceRegenerate"`
}

type checkCacheRequest struct {
	DocumentID         string   `json:"documentId"`
	ValidationType     string   `json:"validationType"`
	CompareDocumentIDs []string `json:"compareDocumentIds"`
}

type insightsRequest struct {
	DocumentIDs     []string `json:"documentIds"`
	ForceRegenerate bool     `json:"forceRegenerate"`
}

type documentInsightsRequest struct {
	ForceRegenerate bool `json:"forceRegenerate"`
}

// analysisResponse augments the structured result with the flat contradiction
// shape older UI clients still render.
type analysisResponse struct {
	*domain.AnalysisResult
	LegacyContradictions []legacyContradiction `json:"legacyContradictions"`
}

type insightsResponse struct {
	Insights          []domain.Insight `json:"insights"`
	DocumentsAnalyzed []string         `json:"documentsAnalyzed"`
	GeneratedAt       time.Time        `json:"generatedAt"`
	Cached            bool             `json:"cached"`
}

func (rt *Router) analyzeWithin(w http.ResponseWriter, r *http.Request) {
	ownerID, err := ownerFromRequest(r)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	var req analyzeWithinRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		rt.writeError(w, r, err)
		return
	}

	start := time.Now()
	result, err := rt.validation.AnalyzeWithin(r.Context(), ownerID, req.DocumentID, req.ForceRegenerate)
	rt.recordAnalysis(domain.AnalysisWithin, result, start, err)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAnalysisResponse(result))
}

func (rt *Router) analyzeAcross(w http.ResponseWriter, r *http.Request) {
	ownerID, err := ownerFromRequest(r)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	var req analyzeAcrossRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		rt.writeError(w, r, err)
		return
	}

	start := time.Now()
	result, err := rt.validation.AnalyzeAcross(r.Context(), ownerID, req.PrimaryDocumentID, req.CompareDocumentIDs, req.ForceRegenerate)
	rt.recordAnalysis(domain.AnalysisAcross, result, start, err)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAnalysisResponse(result))
}

func (rt *Router) checkCache(w http.ResponseWriter, r *http.Request) {
	ownerID, err := ownerFromRequest(r)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	var req checkCacheRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		rt.writeError(w, r, err)
		return
	}

	var analysisType domain.AnalysisType
	switch req.ValidationType {
	case "within", "":
		analysisType = domain.AnalysisWithin
	case "across":
		analysisType = domain.AnalysisAcross
	default:
		rt.writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "check cache",
			errors.New("validationType must be within or across")))
		return
	}

	hasCached, err := rt.validation.HasCached(r.Context(), ownerID, analysisType, req.DocumentID, req.CompareDocumentIDs)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"hasCached": hasCached})
}

func (rt *Router) documentInsights(w http.ResponseWriter, r *http.Request) {
	ownerID, err := ownerFromRequest(r)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	var req documentInsightsRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		rt.writeError(w, r, err)
		return
	}

	rt.generateInsights(w, r, ownerID, []string{r.PathValue("id")}, req.ForceRegenerate)
}

func (rt *Router) crossDocumentInsights(w http.ResponseWriter, r *http.Request) {
	ownerID, err := ownerFromRequest(r)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	var req insightsRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		rt.writeError(w, r, err)
		return
	}

	rt.generateInsights(w, r, ownerID, req.DocumentIDs, req.ForceRegenerate)
}

func (rt *Router) generateInsights(w http.ResponseWriter, r *http.Request, ownerID string, documentIDs []string, force bool) {
	start := time.Now()
	result, err := rt.insights.Generate(r.Context(), ownerID, documentIDs, force)
	rt.recordAnalysis(domain.AnalysisInsights, result, start, err)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	insights := result.Insights
	if insights == nil {
		insights = []domain.Insight{}
	}
	writeJSON(w, http.StatusOK, insightsResponse{
		Insights:          insights,
		DocumentsAnalyzed: result.DocumentsAnalyzed,
		GeneratedAt:       result.GeneratedAt,
		Cached:            result.Cached,
	})
}

func (rt *Router) recordAnalysis(analysisType domain.AnalysisType, result *domain.AnalysisResult, start time.Time, err error) {
	if rt.metrics == nil {
		return
	}
	cached := err == nil && result != nil && result.Cached
	rt.metrics.RecordAnalysis(serviceName, string(analysisType), cached, time.Since(start), err)
}

func newAnalysisResponse(result *domain.AnalysisResult) analysisResponse {
	return analysisResponse{
		AnalysisResult:       result,
		LegacyContradictions: toLegacyContradictions(result.Contradictions),
	}
}
