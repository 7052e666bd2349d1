package domain

import "sort"

type InsightCategory string

const (
	InsightPattern     InsightCategory = "pattern"
	InsightAnomaly     InsightCategory = "anomaly"
	InsightOpportunity InsightCategory = "opportunity"
	InsightRisk        InsightCategory = "risk"
)

type Insight struct {
	Category    InsightCategory `json:"category"`
	Confidence  ConfidenceLevel `json:"confidence"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Evidence    []string        `json:"evidence"`
	Impact      string          `json:"impact"`
}

// Display order is a presentation contract: risk > opportunity > anomaly >
// pattern, then High > Medium > Low within a category. Clients rely on the
// API emitting insights already sorted.
var insightCategoryRank = map[InsightCategory]int{
	InsightRisk:        0,
	InsightOpportunity: 1,
	InsightAnomaly:     2,
	InsightPattern:     3,
}

var confidenceRank = map[ConfidenceLevel]int{
	ConfidenceHigh:   0,
	ConfidenceMedium: 1,
	ConfidenceLow:    2,
}

func SortInsightsForDisplay(insights []Insight) {
	sort.SliceStable(insights, func(i, j int) bool {
		ci, cj := insightCategoryRank[insights[i].Category], insightCategoryRank[insights[j].Category]
		if ci != cj {
			return ci < cj
		}
		return confidenceRank[insights[i].Confidence] < confidenceRank[insights[j].Confidence]
	})
}
