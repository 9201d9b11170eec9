package speech

import "strings"

// SplitIntoChunks splits text into sentence-aligned chunks no longer than
// maxChars. Text at or under the limit is returned as a single chunk.
// Sentences are delimited on periods; a sentence longer than maxChars still
// becomes its own chunk rather than being split mid-sentence.
func SplitIntoChunks(text string, maxChars int) []string {
	if len(text) <= maxChars {
		return []string{text}
	}

	var chunks []string
	current := ""
	for _, sentence := range strings.Split(text, ".") {
		if len(current)+len(sentence) < maxChars {
			current += sentence + "."
		} else {
			if trimmed := strings.TrimSpace(current); trimmed != "" {
				chunks = append(chunks, trimmed)
			}
			current = sentence + "."
		}
	}
	if trimmed := strings.TrimSpace(current); trimmed != "" {
		chunks = append(chunks, trimmed)
	}

	return chunks
}
