package text

import "strings"

// Default chunk sizes. The provider accepts up to 10k characters per
// request; the first chunk is kept small so playback can start within a
// couple of seconds instead of waiting on a full-size synthesis.
const (
	DefaultFirstChunkSize = 1000
	DefaultMaxChunkSize   = 10000
)

// Chunk splits text into byte-bounded chunks for progressive synthesis.
// The first chunk is at most firstChunkSize bytes, the rest at most
// maxChunkSize. Each boundary snaps to the last sentence-ending punctuation
// inside the upper half of the window, then to the last whitespace, then
// hard-cuts at the bound as a final fallback. Chunks are trimmed; joining
// them with single spaces preserves the word sequence of the input.
func Chunk(text string, firstChunkSize, maxChunkSize int) []string {
	if firstChunkSize <= 0 {
		firstChunkSize = DefaultFirstChunkSize
	}
	if maxChunkSize <= 0 {
		maxChunkSize = DefaultMaxChunkSize
	}
	if len(text) <= firstChunkSize {
		return []string{text}
	}

	var chunks []string
	remaining := cutChunk(&chunks, text, firstChunkSize)

	for len(remaining) > 0 {
		if len(remaining) <= maxChunkSize {
			chunks = append(chunks, remaining)
			break
		}
		remaining = cutChunk(&chunks, remaining, maxChunkSize)
	}

	return chunks
}

// cutChunk appends the next chunk of at most limit bytes to chunks and
// returns the trimmed remainder. len(remaining) must exceed limit.
func cutChunk(chunks *[]string, remaining string, limit int) string {
	splitAt := -1
	for i := limit - 1; i >= limit/2; i-- {
		switch remaining[i] {
		case '.', '!', '?':
			splitAt = i + 1
		}
		if splitAt != -1 {
			break
		}
	}
	if splitAt == -1 {
		splitAt = strings.LastIndexByte(remaining[:limit+1], ' ')
	}
	if splitAt <= 0 {
		// No sentence or word boundary in the window: hard cut.
		splitAt = limit
	}

	*chunks = append(*chunks, strings.TrimSpace(remaining[:splitAt]))
	return strings.TrimSpace(remaining[splitAt:])
}
