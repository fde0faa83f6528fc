package speech

import (
	"strings"

	"github.com/readaloud/readaloud/internal/providers"
)

// MapWordTimestamps converts a chunk's character alignment into word
// timestamps on the global timeline. For each word it skips whitespace
// alignment characters, then consumes exactly the word's characters,
// taking the first character's start and the last character's end.
// wordOffset and timeOffset place the chunk after its predecessors.
//
// If the alignment runs out before the words do, the walk stops and the
// partial result is returned. Short alignments are a provider quirk, not
// a fatal error.
func MapWordTimestamps(alignment *providers.Alignment, words []string, wordOffset int, timeOffset float64) []WordTimestamp {
	if !alignment.Valid() || len(words) == 0 {
		return nil
	}

	timestamps := make([]WordTimestamp, 0, len(words))
	pos := 0
	total := len(alignment.Characters)

	for i, word := range words {
		for pos < total && strings.TrimSpace(alignment.Characters[pos]) == "" {
			pos++
		}

		need := len([]rune(word))
		if pos+need > total {
			break
		}

		start := alignment.StartTimes[pos]
		end := alignment.EndTimes[pos+need-1]
		pos += need

		timestamps = append(timestamps, WordTimestamp{
			Index: wordOffset + i,
			Start: start + timeOffset,
			End:   end + timeOffset,
		})
	}

	return timestamps
}
