package httpadapter

import (
	"net/http"
	"time"

	"github.com/kirillkom/doc-insight/internal/core/domain"
)

type chatRequest struct {
	Question string `json:"question"`
	Limit    int    `json:"limit"`
	// A pointer keeps "absent" distinct from an explicit 0.0 threshold.
	SimilarityThreshold *float64 `json:"similarityThreshold"`
	// nil means every queryable document; [] is an explicit empty scope.
	SelectedDocumentIDs []string `json:"selectedDocumentIds"`
}

const defaultSimilarityThreshold = 0.25

func (rt *Router) chatAnswer(w http.ResponseWriter, r *http.Request) {
	ownerID, err := ownerFromRequest(r)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	var req chatRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		rt.writeError(w, r, err)
		return
	}

	threshold := rt.options.DefaultSimilarityThreshold
	if req.SimilarityThreshold != nil {
		threshold = *req.SimilarityThreshold
	}

	start := time.Now()
	answer, err := rt.chat.Answer(r.Context(), ownerID, domain.ChatQuery{
		Question:    req.Question,
		Limit:       req.Limit,
		Threshold:   threshold,
		DocumentIDs: req.SelectedDocumentIDs,
	})
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordRetrieval(serviceName, answer.ChunksUsed, time.Since(start))
	}
	writeJSON(w, http.StatusOK, answer)
}
