package text

import (
	"strings"
	"testing"
)

func TestChunk_ShortTextSingleChunk(t *testing.T) {
	text := "Dr. Smith paid $2.5 million. It was a record. The deal closed Friday."
	got := Chunk(text, 1000, 10000)
	if len(got) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(got))
	}
	if got[0] != text {
		t.Fatalf("single chunk should be the input text unchanged")
	}
}

func TestChunk_ProgressiveTwoChunks(t *testing.T) {
	// ~11k characters of sentences: small first chunk, remainder fits in
	// one full-size chunk.
	sentence := "The quick brown fox jumps over the lazy dog near the river bank. "
	text := strings.TrimSpace(strings.Repeat(sentence, 10800/len(sentence)+1))[:10800]

	got := Chunk(text, 1000, 10000)
	if len(got) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(got))
	}
	if len(got[0]) > 1000 {
		t.Errorf("first chunk exceeds bound: %d bytes", len(got[0]))
	}
	last := got[0][len(got[0])-1]
	if last != '.' && last != '!' && last != '?' && !strings.HasSuffix(got[0], "bank") {
		t.Errorf("first chunk does not end at a sentence or word boundary: ...%q", got[0][len(got[0])-10:])
	}
}

func TestChunk_BoundsRespected(t *testing.T) {
	sentence := "Something happened again and the crowd cheered loudly once more. "
	text := strings.Repeat(sentence, 500) // ~33k chars

	got := Chunk(text, 1000, 10000)
	if len(got) < 3 {
		t.Fatalf("expected at least 3 chunks, got %d", len(got))
	}
	if len(got[0]) > 1000 {
		t.Errorf("first chunk exceeds first bound: %d", len(got[0]))
	}
	for i, c := range got[1:] {
		if len(c) > 10000 {
			t.Errorf("chunk %d exceeds max bound: %d", i+1, len(c))
		}
	}
}

func TestChunk_WordCoverage(t *testing.T) {
	sentence := "Words must survive chunking without loss or duplication every time. "
	text := strings.TrimSpace(strings.Repeat(sentence, 300))

	got := Chunk(text, 1000, 10000)
	rejoined := strings.Join(got, " ")

	want := Words(text)
	have := Words(rejoined)
	if len(want) != len(have) {
		t.Fatalf("word count changed: %d -> %d", len(want), len(have))
	}
	for i := range want {
		if want[i] != have[i] {
			t.Fatalf("word %d changed: %q -> %q", i, want[i], have[i])
		}
	}
}

func TestChunk_HardCutFallback(t *testing.T) {
	// No punctuation, no whitespace: the only option is a hard cut.
	text := strings.Repeat("x", 2500)
	got := Chunk(text, 1000, 10000)
	if len(got) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(got))
	}
	if len(got[0]) != 1000 {
		t.Errorf("expected hard cut at 1000, got %d", len(got[0]))
	}
	if len(got[0])+len(got[1]) != 2500 {
		t.Errorf("hard cut lost bytes: %d + %d", len(got[0]), len(got[1]))
	}
}
