package speech

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/readaloud/readaloud/internal/providers"
)

func TestListenable(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"article", "https://example.com/great-article", true},
		{"article with query", "http://blog.example.org/post?id=7", true},
		{"twitter", "https://twitter.com/user/status/1", false},
		{"x subdomain", "https://mobile.x.com/user/status/1", false},
		{"nitter instance", "https://nitter.net/user/status/1", false},
		{"youtube", "https://youtube.com/watch?v=abc", false},
		{"github", "https://github.com/owner/repo", false},
		{"image", "https://example.com/photo.PNG", false},
		{"pdf", "https://example.com/paper.pdf", false},
		{"video", "https://example.com/clip.mp4", false},
		{"data url", "data:text/html,hello", false},
		{"relative", "/local/path", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := Listenable(tt.url)
			if got != tt.want {
				t.Errorf("Listenable(%q) = %v (%s), want %v", tt.url, got, reason, tt.want)
			}
		})
	}
}

type stubSource struct {
	text string
	err  error
}

func (s *stubSource) ExtractPlainText(context.Context, string) (string, error) {
	return s.text, s.err
}

func TestEagerWarm(t *testing.T) {
	mock := providers.NewMockTTSClient()
	gen, store := newTestGenerator(t, mock)
	trigger := NewEagerTrigger(gen, &stubSource{text: "A short article body."}, EagerConfig{})

	trigger.Warm("item-7", "https://example.com/article")

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := store.Get("item-7"); ok {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("pre-warm did not populate the cache")
}

func TestEagerWarmSwallowsFailures(t *testing.T) {
	mock := providers.NewMockTTSClient()
	gen, store := newTestGenerator(t, mock)

	// Extraction failure: logged, nothing generated, no panic.
	trigger := NewEagerTrigger(gen, &stubSource{err: fmt.Errorf("fetch failed")}, EagerConfig{})
	trigger.Warm("item-8", "https://example.com/broken")

	// Over-long text: skipped.
	long := NewEagerTrigger(gen, &stubSource{text: "word "}, EagerConfig{MaxTextLength: 3})
	long.Warm("item-9", "https://example.com/long")

	// Non-listenable URL: skipped before extraction.
	trigger.Warm("item-10", "https://twitter.com/user/status/1")

	time.Sleep(100 * time.Millisecond)
	for _, key := range []string{"item-8", "item-9", "item-10"} {
		if _, ok := store.Get(key); ok {
			t.Errorf("%s should not have been generated", key)
		}
	}
	if mock.RequestCount() != 0 {
		t.Errorf("no synthesis should have happened, got %d calls", mock.RequestCount())
	}
}
