package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		Fetcher: FetcherOptions{
			Timeout:    5 * time.Second,
			Delay:      time.Millisecond,
			Attempts:   1,
			RetryDelay: time.Millisecond,
		},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func articlePage() string {
	para := `<p>The quick brown fox jumps over the lazy dog near the quiet river bank.
		Every valley settlement kept detailed records of the seasonal harvest totals.</p>`
	return `<html><head>
		<title>Fallback Title</title>
		<meta property="og:title" content="Fox Chronicles"/>
		<meta property="og:type" content="article"/>
	</head><body>
	<nav>Home | About | Subscribe now</nav>
	<article>
		<h1>Fox Chronicles</h1>` +
		strings.Repeat(para, 4) +
		`<img src="/images/fox.jpg" alt="A fox"/>
	</article>
	<footer>All rights reserved</footer>
	</body></html>`
}

func TestExtractArticle(t *testing.T) {
	var fetches int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches++
		if r.Header.Get("User-Agent") == "" {
			t.Error("expected browser User-Agent header")
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, articlePage())
	}))
	defer server.Close()

	e := New(testConfig())
	article, err := e.Extract(context.Background(), server.URL+"/story")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if article.Title != "Fox Chronicles" {
		t.Errorf("expected og:title, got %q", article.Title)
	}
	if len(article.PlainText) < DefaultMinArticleLength {
		t.Errorf("plain text too short: %d chars", len(article.PlainText))
	}
	if !strings.Contains(article.PlainText, "quick brown fox") {
		t.Error("plain text missing article body")
	}
	if strings.Contains(article.PlainText, "Subscribe now") {
		t.Error("navigation noise leaked into plain text")
	}
	if strings.Contains(article.PlainText, "All rights reserved") {
		t.Error("footer noise leaked into plain text")
	}

	if !strings.Contains(article.Markup, `<span class="s" data-s="0" data-start-word="0">`) {
		t.Error("markup missing first sentence span")
	}
	// Second sentence starts after the 14 words of the first.
	if !strings.Contains(article.Markup, `data-s="1"`) {
		t.Error("markup missing second sentence span")
	}
	if !strings.Contains(article.Markup, `src="`+server.URL+`/images/fox.jpg"`) {
		t.Errorf("image URL not resolved to absolute, markup: %s", article.Markup)
	}
	if !strings.Contains(article.Markup, "<figcaption>A fox</figcaption>") {
		t.Error("image alt text not rendered as caption")
	}
	if len(article.Images) != 1 || article.Images[0] != server.URL+"/images/fox.jpg" {
		t.Errorf("unexpected images list: %v", article.Images)
	}

	// Second extraction serves from cache.
	if _, err := e.Extract(context.Background(), server.URL+"/story"); err != nil {
		t.Fatalf("cached Extract failed: %v", err)
	}
	if fetches != 1 {
		t.Errorf("expected 1 origin fetch, got %d", fetches)
	}
}

func TestExtractSentenceWordIndexes(t *testing.T) {
	segments := []segment{
		{text: "One two three. Four five."},
		{text: "Six seven eight nine."},
	}
	markup := wrapSegments(segments)

	for _, want := range []string{
		`data-s="0" data-start-word="0">One two three.`,
		`data-s="1" data-start-word="3">Four five.`,
		`data-s="2" data-start-word="5">Six seven eight nine.`,
	} {
		if !strings.Contains(markup, want) {
			t.Errorf("markup missing %q:\n%s", want, markup)
		}
	}
}

func TestExtractUnsupportedContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte{0x89, 0x50, 0x4e, 0x47})
	}))
	defer server.Close()

	e := New(testConfig())
	_, err := e.Extract(context.Background(), server.URL+"/photo.png")
	if !IsKind(err, KindUnsupportedContentType) {
		t.Fatalf("expected unsupported content type error, got %v", err)
	}
}

func TestExtractTooShortWithTypeHint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><head><meta property="og:type" content="website"/></head><body><article>`+
			strings.Repeat("<p>Welcome to our product homepage with features and pricing plans.</p>", 4)+
			`</article></body></html>`)
	}))
	defer server.Close()

	e := New(testConfig())
	_, err := e.Extract(context.Background(), server.URL)
	if !IsKind(err, KindTooShort) {
		t.Fatalf("expected too-short error, got %v", err)
	}
	if !strings.Contains(err.Error(), `og:type is "website"`) {
		t.Errorf("too-short error missing og:type hint: %v", err)
	}
}

func TestFetchRetriesTransientErrors(t *testing.T) {
	var fetches int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches++
		if fetches < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, articlePage())
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.Fetcher.Attempts = 3
	e := New(cfg)

	if _, err := e.Extract(context.Background(), server.URL); err != nil {
		t.Fatalf("Extract failed after retries: %v", err)
	}
	if fetches != 3 {
		t.Errorf("expected 3 fetches, got %d", fetches)
	}
}

func TestExtractAccessDenied(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	e := New(testConfig())
	_, err := e.Extract(context.Background(), server.URL)
	if !IsKind(err, KindAccessDenied) {
		t.Fatalf("expected access denied error, got %v", err)
	}
}

func TestExtractCaptchaDetection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body><div>Please complete the CAPTCHA to continue.</div></body></html>`)
	}))
	defer server.Close()

	e := New(testConfig())
	_, err := e.Extract(context.Background(), server.URL)

	var ee *Error
	if !errors.As(err, &ee) || ee.Kind != KindExtractionFailed {
		t.Fatalf("expected extraction failure, got %v", err)
	}
	if ee.Reason != ReasonCaptcha {
		t.Errorf("expected captcha reason, got %q", ee.Reason)
	}
}

func TestExtractFarcaster(t *testing.T) {
	castText := strings.Repeat("Long-form thoughts on protocol design and onchain social graphs. ", 3)

	neynar := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/farcaster/cast" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("api_key") != "test-neynar-key" {
			t.Errorf("missing api_key header")
		}
		if got := r.URL.Query().Get("identifier"); got != "https://warpcast.com/alice/0x1ab" {
			t.Errorf("unexpected identifier %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"cast":{"text":%q,"author":{"username":"alice","display_name":"Alice"}}}`, castText)
	}))
	defer neynar.Close()

	cfg := testConfig()
	cfg.MinLength = 50
	cfg.NeynarAPIKey = "test-neynar-key"
	cfg.NeynarBaseURL = neynar.URL
	e := New(cfg)

	article, err := e.Extract(context.Background(), "https://warpcast.com/alice/0x1ab")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if article.Title != "Alice on Farcaster" {
		t.Errorf("unexpected title %q", article.Title)
	}
	if article.PlainText != strings.TrimSpace(castText) {
		t.Errorf("unexpected plain text %q", article.PlainText)
	}
}

func TestExtractTweet(t *testing.T) {
	tweetText := strings.Repeat("A thread about distributed systems and why clocks lie to you. ", 2)

	fx := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bob/status/42" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"tweet":{"text":%q,"author":{"name":"Bob","screen_name":"bob"}}}`, tweetText)
	}))
	defer fx.Close()

	cfg := testConfig()
	cfg.MinLength = 50
	cfg.FxTwitterBaseURL = fx.URL
	e := New(cfg)

	article, err := e.Extract(context.Background(), "https://x.com/bob/status/42")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if article.Title != "Bob on X" {
		t.Errorf("unexpected title %q", article.Title)
	}
	if !strings.Contains(article.Markup, `<span class="s"`) {
		t.Error("post markup missing sentence spans")
	}
}

func TestExtractSocialTooShort(t *testing.T) {
	fx := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"tweet":{"text":"gm","author":{"name":"Bob","screen_name":"bob"}}}`)
	}))
	defer fx.Close()

	cfg := testConfig()
	cfg.FxTwitterBaseURL = fx.URL
	e := New(cfg)

	_, err := e.Extract(context.Background(), "https://x.com/bob/status/43")
	if !IsKind(err, KindTooShort) {
		t.Fatalf("expected too-short error, got %v", err)
	}
}

func TestWarmExtract(t *testing.T) {
	var fetches int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches++
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, articlePage())
	}))
	defer server.Close()

	e := New(testConfig())
	url := server.URL + "/warm"
	e.WarmExtract(url)
	e.WarmExtract(url) // deduplicated while in flight

	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, ok := e.Cached(url); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("warm extraction never populated the cache")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if fetches != 1 {
		t.Errorf("expected 1 origin fetch, got %d", fetches)
	}
}
