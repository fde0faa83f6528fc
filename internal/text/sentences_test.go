package text

import (
	"strings"
	"testing"
)

func TestSplitSentences_Basic(t *testing.T) {
	text := "First sentence. Second sentence! Third sentence? Fourth."
	got := SplitSentences(text)
	if len(got) != 4 {
		t.Fatalf("expected 4 sentences, got %d: %#v", len(got), got)
	}
}

func TestSplitSentences_AbbreviationsAndDecimals(t *testing.T) {
	text := "Dr. Smith paid $2.5 million. It was a record. The deal closed Friday."
	got := SplitSentences(text)
	if len(got) != 3 {
		t.Fatalf("expected 3 sentences, got %d: %#v", len(got), got)
	}
	if !strings.Contains(got[0], "Dr. Smith") {
		t.Errorf("first sentence split at Dr.: %q", got[0])
	}
	if !strings.Contains(got[0], "$2.5 million") {
		t.Errorf("first sentence split at 2.5: %q", got[0])
	}
}

func TestSplitSentences_Initials(t *testing.T) {
	text := "A. Lincoln spoke first. Then B. Franklin replied."
	got := SplitSentences(text)
	if len(got) != 2 {
		t.Fatalf("expected 2 sentences, got %d: %#v", len(got), got)
	}
}

func TestSplitSentences_CaseInsensitiveAbbreviations(t *testing.T) {
	text := "See fig. 3 for details. The curve flattens, e.g. after noon."
	got := SplitSentences(text)
	if len(got) != 2 {
		t.Fatalf("expected 2 sentences, got %d: %#v", len(got), got)
	}
}

func TestSplitSentences_RoundTrip(t *testing.T) {
	cases := []string{
		"First sentence. Second sentence! Third?",
		"Mr. Jones bought 2.5 acres. Mrs. Jones disagreed.",
		"No punctuation at all",
		"Trailing fragment. without capital",
		"Multiple   spaces.  Between sentences.",
	}
	for _, input := range cases {
		got := SplitSentences(input)
		if joined := strings.Join(got, ""); joined != input {
			t.Errorf("round trip failed:\n input: %q\noutput: %q", input, joined)
		}
	}
}

func TestSplitSentences_Empty(t *testing.T) {
	if got := SplitSentences(""); got != nil {
		t.Fatalf("expected nil for empty input, got %#v", got)
	}
	if got := SplitSentences("   \t "); len(got) != 0 {
		t.Fatalf("expected no sentences for whitespace input, got %#v", got)
	}
}

func TestWords(t *testing.T) {
	got := Words("  one two\n three\t")
	if len(got) != 3 || got[0] != "one" || got[2] != "three" {
		t.Fatalf("unexpected words: %#v", got)
	}
}
