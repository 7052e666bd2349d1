package domain

// ChatQuery scopes a question to a set of documents. A nil DocumentIDs means
// every queryable document of the caller; an empty non-nil set is an explicit
// empty scope and yields no results.
type ChatQuery struct {
	Question    string
	Limit       int
	Threshold   float64
	DocumentIDs []string
}

// SourceAttribution summarizes how much of a single document backed an answer.
type SourceAttribution struct {
	DocumentID    string  `json:"document_id"`
	Filename      string  `json:"filename"`
	ChunksUsed    int     `json:"chunks_used"`
	TopSimilarity float64 `json:"top_similarity"`
}

// ChatAnswer is the synthesized response to a question, with per-document
// source attributions. ChunksUsed counts every retrieved chunk that fed the
// answer across all sources.
type ChatAnswer struct {
	Answer     string              `json:"answer"`
	Sources    []SourceAttribution `json:"sources"`
	ChunksUsed int                 `json:"chunks_used"`
}
