package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"
)

type AnalysisType string

const (
	AnalysisWithin   AnalysisType = "within"
	AnalysisAcross   AnalysisType = "across"
	AnalysisInsights AnalysisType = "insights"
)

// Fingerprint is the deterministic cache key for an analysis request:
// hash(sorted document-id set, analysis type, relevant parameters). Two
// fingerprint-equal requests receive the same cached result unless
// regeneration is forced.
type Fingerprint string

func NewFingerprint(analysisType AnalysisType, documentIDs []string, params map[string]string) Fingerprint {
	ids := make([]string, len(documentIDs))
	copy(ids, documentIDs)
	sort.Strings(ids)

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(string(analysisType))
	for _, id := range ids {
		b.WriteString("|doc=")
		b.WriteString(id)
	}
	for _, k := range keys {
		b.WriteString("|")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(params[k])
	}

	sum := sha256.Sum256([]byte(b.String()))
	return Fingerprint(hex.EncodeToString(sum[:]))
}

type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "High"
	ConfidenceMedium ConfidenceLevel = "Medium"
	ConfidenceLow    ConfidenceLevel = "Low"
)

// FindingSource pins a finding to a location inside a specific document.
type FindingSource struct {
	DocumentID   string `json:"document_id"`
	DocumentName string `json:"document_name"`
	Location     string `json:"location"`
	Excerpt      string `json:"excerpt"`
}

// Contradiction is the structured shape: one finding backed by one or more
// sources. The legacy single-claim/single-evidence view is derived by an
// adapter at the presentation boundary, never stored.
type Contradiction struct {
	Severity    Severity        `json:"severity"`
	Confidence  ConfidenceLevel `json:"confidence"`
	Description string          `json:"description"`
	Sources     []FindingSource `json:"sources"`
}

type InformationGap struct {
	Topic       string          `json:"topic"`
	Description string          `json:"description"`
	Sources     []FindingSource `json:"sources,omitempty"`
}

type Agreement struct {
	Description string          `json:"description"`
	Sources     []FindingSource `json:"sources"`
}

type KeyClaim struct {
	Claim      string          `json:"claim"`
	Confidence ConfidenceLevel `json:"confidence"`
	Source     FindingSource   `json:"source"`
}

type Recommendation struct {
	Text     string   `json:"text"`
	Priority Severity `json:"priority"`
}

type ComparabilityStatus string

const (
	// DocumentsComparable marks a normal analysis outcome.
	DocumentsComparable ComparabilityStatus = "comparable"
	// DocumentsNotComparable marks a valid outcome where the analyzed
	// documents cover unrelated subject matter. It is not an error and must
	// be rendered distinctly from "no issues found".
	DocumentsNotComparable ComparabilityStatus = "not_comparable"
)

type RiskAssessment struct {
	Status  ComparabilityStatus `json:"status"`
	Level   Severity            `json:"level,omitempty"`
	Summary string              `json:"summary"`
}

// AnalysisResult is the typed output of contradiction/validation analysis and
// insight generation. The Insights slice is populated only for
// AnalysisInsights results.
type AnalysisResult struct {
	Type              AnalysisType     `json:"type"`
	Fingerprint       Fingerprint      `json:"fingerprint"`
	Contradictions    []Contradiction  `json:"contradictions"`
	Gaps              []InformationGap `json:"gaps"`
	Agreements        []Agreement      `json:"agreements"`
	KeyClaims         []KeyClaim       `json:"key_claims"`
	Recommendations   []Recommendation `json:"recommendations"`
	RiskAssessment    RiskAssessment   `json:"risk_assessment"`
	Insights          []Insight        `json:"insights,omitempty"`
	DocumentsAnalyzed []string         `json:"documents_analyzed"`
	ChunksReviewed    int              `json:"chunks_reviewed"`
	GeneratedAt       time.Time        `json:"generated_at"`
	Cached            bool             `json:"cached"`
}

// WithCached returns a shallow copy carrying the given cached flag, so shared
// cache entries are never mutated by concurrent readers.
func (r *AnalysisResult) WithCached(cached bool) *AnalysisResult {
	if r == nil {
		return nil
	}
	out := *r
	out.Cached = cached
	return &out
}

// NotComparable reports whether the analyzer declined to decompose the
// documents into contradictions because they share no comparable subject.
func (r *AnalysisResult) NotComparable() bool {
	return r != nil && r.RiskAssessment.Status == DocumentsNotComparable
}
