package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// segment is one extracted content element: a flushed block of text or
// an image reference.
type segment struct {
	text string // Whitespace-collapsed block text ("" for images)
	src  string // Absolute image URL
	alt  string
}

func (s segment) isImage() bool { return s.src != "" }

// contentCandidates are tried in order to locate the main article node.
var contentCandidates = []string{
	"article",
	"main",
	"[role=main]",
	".post-content",
	".article-body",
	".entry-content",
	".article-content",
	"#content",
	".content",
}

// noiseSelectors are removed from the content node before the walk.
var noiseSelectors = []string{
	"nav", "header", "footer", "aside", "form",
	"script", "style", "noscript", "iframe",
	".share", ".sharedaddy", ".related", ".comments", ".post-meta",
	".post-navigation", ".advertisement", ".adsbygoogle", ".newsletter",
}

// blockTags delimit flushed text segments during the walk.
var blockTags = map[string]bool{
	"p": true, "div": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"li": true, "blockquote": true, "pre": true,
	"tr": true, "dt": true, "dd": true,
	"section": true, "article": true, "header": true, "footer": true,
	"figcaption": true,
}

// findContent locates the main article node by candidate selectors,
// preferring the first with substantial text.
func findContent(doc *goquery.Document) *goquery.Selection {
	for _, sel := range contentCandidates {
		if n := doc.Find(sel).First(); n.Length() > 0 {
			if len(strings.TrimSpace(n.Text())) > 200 {
				return n
			}
		}
	}
	if n := doc.Find("body").First(); n.Length() > 0 {
		return n
	}
	return nil
}

// stripNoise removes navigation, boilerplate, and script noise in place.
func stripNoise(node *goquery.Selection) {
	for _, sel := range noiseSelectors {
		node.Find(sel).Each(func(_ int, s *goquery.Selection) { s.Remove() })
	}
}

// extractSegments walks the content tree, accumulating text into
// block-delimited segments and collecting image references with
// absolute URLs. Blocks collapsing to empty text are discarded.
func extractSegments(root *goquery.Selection, baseURL string) []segment {
	var segments []segment
	var current strings.Builder

	flush := func() {
		text := collapseWhitespace(current.String())
		if text != "" {
			segments = append(segments, segment{text: text})
		}
		current.Reset()
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			current.WriteString(n.Data)
		case html.ElementNode:
			tag := strings.ToLower(n.Data)
			if tag == "br" {
				current.WriteString(" ")
				return
			}
			if tag == "img" {
				flush()
				src := attr(n, "src")
				if src != "" && !strings.HasPrefix(src, "data:") {
					segments = append(segments, segment{
						src: resolveURL(src, baseURL),
						alt: attr(n, "alt"),
					})
				}
				return
			}
			if blockTags[tag] {
				flush()
			}
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				walk(c)
			}
			if blockTags[tag] {
				flush()
			}
		}
	}

	for _, n := range root.Nodes {
		walk(n)
	}
	flush()

	return segments
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

// resolveURL makes a possibly-relative reference absolute against base.
func resolveURL(src, base string) string {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return src
	}
	baseU, err := url.Parse(base)
	if err != nil {
		return src
	}
	ref, err := url.Parse(src)
	if err != nil {
		return src
	}
	return baseU.ResolveReference(ref).String()
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// sniffFailureReason inspects the full page text when no article content
// was found, to report why extraction likely failed.
func sniffFailureReason(doc *goquery.Document) *Error {
	pageText := strings.ToLower(doc.Find("body").Text())
	switch {
	case strings.Contains(pageText, "captcha") || strings.Contains(pageText, "robot"):
		return errExtractionFailed(ReasonCaptcha, "site requires CAPTCHA verification")
	case strings.Contains(pageText, "subscribe") && strings.Contains(pageText, "paywall"):
		return errExtractionFailed(ReasonPaywall, "article appears to be behind a paywall")
	case strings.Contains(pageText, "enable javascript") || strings.Contains(pageText, "javascript required"):
		return errExtractionFailed(ReasonJavaScript, "site requires JavaScript to display content")
	default:
		return errExtractionFailed(ReasonGeneric, "could not extract article content - site may require login or block automated access")
	}
}
