package speech

import (
	"context"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"
)

// DefaultMaxEagerTextLength caps pre-warm synthesis cost; longer
// articles still work on demand, they just skip the speculative pass.
const DefaultMaxEagerTextLength = 50000

// nonListenableDomains are hosts whose links never contain readable
// articles (social frontends, code hosting, media platforms).
var nonListenableDomains = []string{
	"x.com",
	"twitter.com",
	"youtube.com",
	"youtu.be",
	"github.com",
	"polymarket.com",
	"i.imgur.com",
	"i.redd.it",
	"pbs.twimg.com",
}

// nonListenableExtensions are file types speech generation should never
// be attempted on.
var nonListenableExtensions = []string{
	".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg", ".ico",
	".pdf", ".zip", ".tar", ".gz",
	".mp3", ".mp4", ".wav", ".ogg", ".webm", ".mov",
}

// ArticleSource provides plain text for a URL. Satisfied by
// extract.Extractor.
type ArticleSource interface {
	ExtractPlainText(ctx context.Context, rawURL string) (string, error)
}

// EagerConfig holds configuration for the pre-warm trigger.
type EagerConfig struct {
	MaxTextLength int           // Skip pre-warm above this many chars (default 50000)
	Timeout       time.Duration // Budget for one pre-warm pass (default 5m)
	Logger        *slog.Logger
}

// EagerTrigger speculatively generates audio for newly submitted links
// so the first playback request hits the cache. It is fire-and-forget:
// every failure is logged and swallowed, and the submission workflow
// never observes the outcome.
type EagerTrigger struct {
	generator *Generator
	source    ArticleSource
	maxText   int
	timeout   time.Duration
	logger    *slog.Logger
}

// NewEagerTrigger creates the pre-warm trigger.
func NewEagerTrigger(generator *Generator, source ArticleSource, cfg EagerConfig) *EagerTrigger {
	if cfg.MaxTextLength <= 0 {
		cfg.MaxTextLength = DefaultMaxEagerTextLength
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &EagerTrigger{
		generator: generator,
		source:    source,
		maxText:   cfg.MaxTextLength,
		timeout:   cfg.Timeout,
		logger:    cfg.Logger,
	}
}

// Warm starts a background pre-warm for a submitted link and returns
// immediately.
func (e *EagerTrigger) Warm(contentID, href string) {
	if ok, reason := Listenable(href); !ok {
		e.logger.Debug("skipping pre-warm", "id", contentID, "url", href, "reason", reason)
		return
	}
	go e.warm(contentID, href)
}

func (e *EagerTrigger) warm(contentID, href string) {
	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	plainText, err := e.source.ExtractPlainText(ctx, href)
	if err != nil {
		e.logger.Info("pre-warm extraction failed", "id", contentID, "url", href, "error", err)
		return
	}
	if len(plainText) > e.maxText {
		e.logger.Info("pre-warm skipped, text too long",
			"id", contentID, "length", len(plainText), "max", e.maxText)
		return
	}

	if _, err := e.generator.GetOrStart(ctx, contentID, plainText); err != nil {
		e.logger.Info("pre-warm generation failed", "id", contentID, "url", href, "error", err)
		return
	}

	e.logger.Info("pre-warm started", "id", contentID, "url", href)
}

// Listenable applies the URL predicates that gate speech generation:
// http(s) scheme, no blocked domain, no media/file extension. Returns
// the reason when not listenable.
func Listenable(href string) (bool, string) {
	u, err := url.Parse(href)
	if err != nil {
		return false, "unparseable URL"
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false, "non-http scheme"
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false, "missing host"
	}
	for _, d := range nonListenableDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return false, "blocked domain"
		}
	}
	if strings.HasPrefix(host, "nitter.") {
		return false, "blocked domain"
	}

	ext := strings.ToLower(path.Ext(u.Path))
	for _, blocked := range nonListenableExtensions {
		if ext == blocked {
			return false, "blocked extension"
		}
	}

	return true, ""
}
