package speech

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// CacheEntry is the durable record of one completed generation. Once
// persisted it is immutable; regeneration writes a fresh entry under a
// new audio ID.
type CacheEntry struct {
	CacheKey      string          `json:"cacheKey"`
	AudioID       string          `json:"audioId"`
	Chunks        []ChunkMeta     `json:"chunks"`
	Timestamps    []WordTimestamp `json:"timestamps"`
	TotalDuration float64         `json:"totalDuration"`

	// legacy marks entries loaded from the old single-file format whose
	// audio lives at {audioId}.mp3 instead of {audioId}_0.mp3.
	legacy bool
}

// ChunkMeta describes one chunk's position in the global timeline.
type ChunkMeta struct {
	Duration  float64 `json:"duration"`
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
	StartWord int     `json:"startWord"`
	EndWord   int     `json:"endWord"`
}

// WordTimestamp is one word's span in the global timeline. Index matches
// the word's position in the whitespace split of the full text.
type WordTimestamp struct {
	Index int     `json:"index"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// ChunkID returns the addressable ID of chunk i, used both as the audio
// file basename and in chunk retrieval URLs.
func (e *CacheEntry) ChunkID(i int) string {
	if e.legacy {
		return e.AudioID
	}
	return fmt.Sprintf("%s_%d", e.AudioID, i)
}

// Legacy reports whether the entry came from single-file metadata.
func (e *CacheEntry) Legacy() bool {
	return e.legacy
}

// Validate checks the timeline invariants of a completed entry.
func (e *CacheEntry) Validate() error {
	if e.CacheKey == "" {
		return fmt.Errorf("entry missing cache key")
	}
	if e.AudioID == "" {
		return fmt.Errorf("entry missing audio ID")
	}
	if len(e.Chunks) == 0 {
		return fmt.Errorf("entry has no chunks")
	}
	for i := 1; i < len(e.Chunks); i++ {
		prev, cur := e.Chunks[i-1], e.Chunks[i]
		if prev.EndTime != cur.StartTime {
			return fmt.Errorf("chunk %d not time-contiguous: %f != %f", i, prev.EndTime, cur.StartTime)
		}
		if prev.EndWord+1 != cur.StartWord {
			return fmt.Errorf("chunk %d not word-contiguous: %d+1 != %d", i, prev.EndWord, cur.StartWord)
		}
	}
	return nil
}

// decodeEntry parses metadata JSON, normalizing the legacy single-file
// shape (no chunks array) into one synthetic chunk so downstream code
// sees a single representation.
func decodeEntry(data []byte) (*CacheEntry, error) {
	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}
	if entry.AudioID == "" {
		return nil, fmt.Errorf("metadata missing audioId")
	}

	if len(entry.Chunks) == 0 {
		endWord := 0
		duration := entry.TotalDuration
		if n := len(entry.Timestamps); n > 0 {
			endWord = entry.Timestamps[n-1].Index
			// Old metadata sometimes omits totalDuration; the last
			// timestamp's end is the same value.
			if duration == 0 {
				duration = entry.Timestamps[n-1].End
			}
		}
		entry.Chunks = []ChunkMeta{{
			Duration:  duration,
			StartTime: 0,
			EndTime:   duration,
			StartWord: 0,
			EndWord:   endWord,
		}}
		entry.TotalDuration = duration
		entry.legacy = true
	}

	return &entry, nil
}

// CacheKey selects the cache key for a request: a caller-supplied stable
// identifier wins, otherwise a text hash. Identifier-based keys survive
// re-extraction with whitespace differences. Identifiers that are not
// filename-safe (URLs in particular) are hashed rather than stripped,
// since stripping would let distinct identifiers collide.
func CacheKey(id, text string) string {
	if id != "" {
		if filenameSafe(id) {
			return id
		}
		sum := sha256.Sum256([]byte(id))
		return "id-" + hex.EncodeToString(sum[:12])
	}
	if text == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(text))
	return "txt-" + hex.EncodeToString(sum[:12])
}

// filenameSafe reports whether the identifier can be used directly as a
// cache file basename.
func filenameSafe(id string) bool {
	if strings.HasPrefix(id, ".") || strings.HasSuffix(id, ".") {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '-', r == '_', r == '.':
		default:
			return false
		}
	}
	return true
}
