package utils

// SplitText splits a long string into chunks of roughly chunkSize
// characters with an overlap to preserve context at the boundaries.
// Character-based on purpose: scraped documentation mixes prose, CLI
// output and config blocks, and a token-aware splitter buys little here.
func SplitText(text string, chunkSize int, overlap int) []string {
	if len(text) <= chunkSize {
		return []string{text}
	}

	step := chunkSize - overlap
	if step <= 0 {
		step = chunkSize
	}

	runes := []rune(text)
	totalLen := len(runes)

	var chunks []string
	for i := 0; i < totalLen; i += step {
		end := i + chunkSize
		if end > totalLen {
			end = totalLen
		}

		chunks = append(chunks, string(runes[i:end]))

		if end == totalLen {
			break
		}
	}

	return chunks
}
