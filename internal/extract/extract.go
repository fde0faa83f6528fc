package extract

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultMinArticleLength filters out landing pages and sparse content.
const DefaultMinArticleLength = 500

// Article is the extraction result: plain text for synthesis and
// sentence-annotated markup for synchronized playback.
type Article struct {
	Title     string   `json:"title"`
	PlainText string   `json:"plainText"`
	Markup    string   `json:"markup"`
	Images    []string `json:"images,omitempty"`
}

// Config holds configuration for the extractor.
type Config struct {
	MinLength        int           // Minimum plain-text length (default 500)
	CacheSize        int           // Extraction cache entries (default 500)
	CacheTTL         time.Duration // Extraction cache TTL (default 24h)
	Fetcher          FetcherOptions
	NeynarAPIKey     string
	NeynarBaseURL    string        // Optional (tests)
	FxTwitterBaseURL string        // Optional (tests)
	SocialTimeout    time.Duration // Social API timeout (default 8s)
	Logger           *slog.Logger
}

// Extractor turns a URL into an Article. Social-post platforms route
// through dedicated APIs; everything else is generic HTML extraction.
// Results are cached by URL with a TTL, and concurrent extraction of
// the same URL is deduplicated.
type Extractor struct {
	fetcher   *Fetcher
	social    *http.Client
	minLength int
	logger    *slog.Logger

	neynarAPIKey     string
	neynarBaseURL    string
	fxTwitterBaseURL string

	cache *expirable.LRU[string, *Article]

	mu         sync.Mutex
	inProgress map[string]struct{}
}

// New creates an extractor.
func New(cfg Config) *Extractor {
	if cfg.MinLength <= 0 {
		cfg.MinLength = DefaultMinArticleLength
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 500
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 24 * time.Hour
	}
	if cfg.NeynarBaseURL == "" {
		cfg.NeynarBaseURL = DefaultNeynarBaseURL
	}
	if cfg.FxTwitterBaseURL == "" {
		cfg.FxTwitterBaseURL = DefaultFxTwitterBaseURL
	}
	if cfg.SocialTimeout <= 0 {
		cfg.SocialTimeout = 8 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Extractor{
		fetcher:          NewFetcher(cfg.Fetcher),
		social:           &http.Client{Timeout: cfg.SocialTimeout},
		minLength:        cfg.MinLength,
		logger:           cfg.Logger,
		neynarAPIKey:     cfg.NeynarAPIKey,
		neynarBaseURL:    cfg.NeynarBaseURL,
		fxTwitterBaseURL: cfg.FxTwitterBaseURL,
		cache:            expirable.NewLRU[string, *Article](cfg.CacheSize, nil, cfg.CacheTTL),
		inProgress:       make(map[string]struct{}),
	}
}

// Extract returns the article for a URL, from cache when fresh.
func (e *Extractor) Extract(ctx context.Context, rawURL string) (*Article, error) {
	if article, ok := e.cache.Get(rawURL); ok {
		e.logger.Debug("extraction cache hit", "url", rawURL)
		return article, nil
	}

	article, err := e.extract(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	e.cache.Add(rawURL, article)
	return article, nil
}

// ExtractPlainText returns only the synthesizable text for a URL.
func (e *Extractor) ExtractPlainText(ctx context.Context, rawURL string) (string, error) {
	article, err := e.Extract(ctx, rawURL)
	if err != nil {
		return "", err
	}
	return article.PlainText, nil
}

// Cached returns the cached article for a URL, if any.
func (e *Extractor) Cached(rawURL string) (*Article, bool) {
	return e.cache.Get(rawURL)
}

// WarmExtract extracts a URL in the background so a later request hits
// the cache. Duplicate warm requests for an in-flight URL are dropped,
// and failures are only logged.
func (e *Extractor) WarmExtract(rawURL string) {
	if e.cache.Contains(rawURL) {
		return
	}

	e.mu.Lock()
	if _, busy := e.inProgress[rawURL]; busy {
		e.mu.Unlock()
		return
	}
	e.inProgress[rawURL] = struct{}{}
	e.mu.Unlock()

	go func() {
		defer func() {
			e.mu.Lock()
			delete(e.inProgress, rawURL)
			e.mu.Unlock()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		if _, err := e.Extract(ctx, rawURL); err != nil {
			// Short or paywalled pages are expected; don't spam the log.
			if !IsKind(err, KindTooShort) {
				e.logger.Info("eager extraction failed", "url", rawURL, "error", err)
			}
			return
		}
		e.logger.Info("eager extracted", "url", rawURL)
	}()
}

// extract routes by URL shape and runs the appropriate extraction.
func (e *Extractor) extract(ctx context.Context, rawURL string) (*Article, error) {
	if isFarcasterURL(rawURL) {
		return e.extractFarcaster(ctx, rawURL)
	}
	if isTwitterURL(rawURL) {
		return e.extractTwitter(ctx, rawURL)
	}
	return e.extractGeneric(ctx, rawURL)
}

// extractGeneric fetches a page and runs readability-style extraction.
func (e *Extractor) extractGeneric(ctx context.Context, rawURL string) (*Article, error) {
	p, err := e.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	// Reject non-article content types before parsing. Missing or
	// unclear types are allowed through.
	ct := strings.ToLower(p.contentType)
	if ct != "" && !strings.Contains(ct, "text/html") && !strings.Contains(ct, "text/plain") {
		return nil, errUnsupportedContentType(p.contentType)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(p.body))
	if err != nil {
		return nil, errExtractionFailed(ReasonGeneric, "could not parse page HTML")
	}

	title := pageTitle(doc)
	ogType, _ := doc.Find(`meta[property="og:type"]`).First().Attr("content")

	content := findContent(doc)
	if content == nil || content.Length() == 0 {
		return nil, sniffFailureReason(doc)
	}
	stripNoise(content)

	segments := extractSegments(content, p.finalURL)

	var texts []string
	var images []string
	for _, seg := range segments {
		if seg.isImage() {
			images = append(images, seg.src)
			continue
		}
		texts = append(texts, seg.text)
	}
	plainText := strings.Join(texts, " ")

	if len(plainText) == 0 {
		return nil, sniffFailureReason(doc)
	}
	if len(plainText) < e.minLength {
		// Blocked or script-gated pages often render a short shell;
		// report the specific blocker over a generic length failure.
		if reason := sniffFailureReason(doc); reason.Reason != ReasonGeneric {
			return nil, reason
		}
		hint := ""
		if ogType != "" && ogType != "article" && !strings.HasPrefix(ogType, "article") {
			hint = ogType
		}
		return nil, errTooShort(len(plainText), e.minLength, hint)
	}

	return &Article{
		Title:     title,
		PlainText: plainText,
		Markup:    wrapSegments(segments),
		Images:    images,
	}, nil
}

func pageTitle(doc *goquery.Document) string {
	if t, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
		if t = strings.TrimSpace(t); t != "" {
			return t
		}
	}
	if t := strings.TrimSpace(doc.Find("h1").First().Text()); t != "" {
		return t
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}
