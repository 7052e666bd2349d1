package domain

// AnalysisDocument is the reasoning context handed to the LLM analyzer: a
// document's identity plus its chunk texts in ordinal order, capped by the
// caller.
type AnalysisDocument struct {
	ID       string
	Filename string
	Excerpts []string
}

func (d AnalysisDocument) ExcerptCount() int {
	return len(d.Excerpts)
}
