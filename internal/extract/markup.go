package extract

import (
	"fmt"
	"html"
	"strings"

	"github.com/readaloud/readaloud/internal/text"
)

// wrapSegments builds the playback markup: every sentence wrapped in a
// span carrying its global sentence index and starting global word
// index, so a player can highlight words against the audio timeline.
// Images become figures with optional captions.
func wrapSegments(segments []segment) string {
	sentenceIndex := 0
	wordIndex := 0

	var out []string
	for _, seg := range segments {
		if seg.isImage() {
			out = append(out, imageFigure(seg))
			continue
		}

		var spans []string
		for _, sentence := range text.SplitSentences(seg.text) {
			trimmed := strings.TrimSpace(sentence)
			if trimmed == "" {
				continue
			}
			spans = append(spans, fmt.Sprintf(`<span class="s" data-s="%d" data-start-word="%d">%s</span>`,
				sentenceIndex, wordIndex, html.EscapeString(trimmed)))
			sentenceIndex++
			wordIndex += len(text.Words(trimmed))
		}
		if len(spans) > 0 {
			out = append(out, "<p>"+strings.Join(spans, " ")+"</p>")
		}
	}

	return strings.Join(out, "\n")
}

func imageFigure(seg segment) string {
	caption := ""
	if seg.alt != "" {
		caption = fmt.Sprintf(`<figcaption>%s</figcaption>`, html.EscapeString(seg.alt))
	}
	return fmt.Sprintf(`<figure><img src="%s" alt="%s" loading="lazy" referrerpolicy="no-referrer"/>%s</figure>`,
		html.EscapeString(seg.src), html.EscapeString(seg.alt), caption)
}
