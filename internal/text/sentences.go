// Package text provides sentence splitting and chunking for speech synthesis.
package text

import (
	"regexp"
	"strconv"
	"strings"
)

// Patterns that must never produce a sentence break. Protected spans are
// swapped for NUL-delimited placeholder tokens before splitting and restored
// afterwards, so the split regex never sees their periods.
var (
	// Decimal numbers, including currency and percentages (2.5, $100.50, 3.14%).
	decimalRe = regexp.MustCompile(`(\d+)\.(\d+)`)

	// Common abbreviations, case-insensitive, original casing preserved.
	abbreviationRe = regexp.MustCompile(`(?i)\b(Mr|Mrs|Ms|Dr|Prof|Jr|Sr|Inc|Ltd|Corp|vs|etc|e\.g|i\.e|ca|approx|fig|vol|no|pp|St|Ave|Blvd|Rd)\.`)

	// Single capital-letter initials (A. B. C.).
	initialRe = regexp.MustCompile(`\b([A-Z])\.`)

	// A sentence: run of non-terminators, then terminator(s), then at most one
	// whitespace char; or a trailing fragment with no terminator.
	sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]+\s?|[^.!?]+$`)

	placeholderRe = regexp.MustCompile("\x00(\\d+)\x00")
)

// SplitSentences splits text into sentences without breaking on decimal
// numbers, common abbreviations, or single-letter initials. Each returned
// sentence keeps its terminating punctuation and at most one character of
// the whitespace that followed it, so concatenating the results reproduces
// the input text.
func SplitSentences(text string) []string {
	if text == "" {
		return nil
	}

	var placeholders []string
	protect := func(match string) string {
		placeholders = append(placeholders, match)
		return "\x00" + strconv.Itoa(len(placeholders)-1) + "\x00"
	}

	processed := decimalRe.ReplaceAllStringFunc(text, protect)
	processed = abbreviationRe.ReplaceAllStringFunc(processed, protect)
	processed = initialRe.ReplaceAllStringFunc(processed, protect)

	matches := sentenceRe.FindAllString(processed, -1)
	if matches == nil {
		matches = []string{processed}
	}

	restore := func(token string) string {
		idx, err := strconv.Atoi(token[1 : len(token)-1])
		if err != nil || idx >= len(placeholders) {
			return token
		}
		return placeholders[idx]
	}

	sentences := make([]string, 0, len(matches))
	for _, m := range matches {
		s := placeholderRe.ReplaceAllStringFunc(m, restore)
		if strings.TrimSpace(s) != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// Words splits text on whitespace runs. This is the word segmentation the
// whole pipeline shares: chunking, timestamp mapping, and markup generation
// must all agree on word indices.
func Words(text string) []string {
	return strings.Fields(text)
}
