package chunking

import "strings"

// Splitter cuts text into overlapping spans. Paragraph boundaries are
// preferred cut points; a paragraph longer than the chunk size falls back to
// fixed rune windows so no input can produce an oversized chunk.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 900
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
	}
}

func (s *Splitter) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var out []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		chunk := strings.TrimSpace(current.String())
		if chunk != "" {
			out = append(out, chunk)
		}
		current.Reset()
		currentLen = 0
	}

	for _, paragraph := range strings.Split(text, "\n\n") {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}

		runes := []rune(paragraph)
		if len(runes) > s.ChunkSize {
			flush()
			out = append(out, s.splitWindow(runes)...)
			continue
		}

		if currentLen > 0 && currentLen+len(runes)+2 > s.ChunkSize {
			flush()
		}
		if currentLen > 0 {
			current.WriteString("\n\n")
			currentLen += 2
		}
		current.WriteString(paragraph)
		currentLen += len(runes)
	}
	flush()

	return out
}

func (s *Splitter) splitWindow(runes []rune) []string {
	step := s.ChunkSize - s.Overlap
	if step <= 0 {
		step = s.ChunkSize
	}

	out := make([]string, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + s.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			out = append(out, chunk)
		}
		if end == len(runes) {
			break
		}
	}
	return out
}
