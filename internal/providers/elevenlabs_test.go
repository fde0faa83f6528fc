package providers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestElevenLabsSynthesizeWithTimestamps(t *testing.T) {
	audio := []byte{0xFF, 0xF3, 0x01, 0x02, 0x03}

	var gotPath, gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("xi-api-key")

		var req elevenLabsTTSRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if req.Text == "" {
			t.Error("expected text in request body")
		}

		w.Header().Set("request-id", "req-123")
		json.NewEncoder(w).Encode(elevenLabsTTSResponse{
			AudioBase64: base64.StdEncoding.EncodeToString(audio),
			Alignment: Alignment{
				Characters: []string{"H", "i"},
				StartTimes: []float64{0.0, 0.1},
				EndTimes:   []float64{0.1, 0.25},
			},
		})
	}))
	defer server.Close()

	client := NewElevenLabsClient(ElevenLabsConfig{
		APIKey:  "test-key",
		Voice:   "voice-1",
		BaseURL: server.URL,
	})

	result, err := client.Synthesize(context.Background(), &SpeechRequest{Text: "Hi"})
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	if !strings.Contains(gotPath, "/text-to-speech/voice-1/with-timestamps") {
		t.Errorf("unexpected request path: %s", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("expected API key header, got %q", gotKey)
	}
	if !result.Success {
		t.Fatal("expected success")
	}
	if string(result.Audio) != string(audio) {
		t.Errorf("audio bytes mismatch")
	}
	if !result.Alignment.Valid() {
		t.Fatal("expected valid alignment")
	}
	if result.Alignment.Duration() != 0.25 {
		t.Errorf("expected duration 0.25, got %f", result.Alignment.Duration())
	}
	if result.RequestID != "req-123" {
		t.Errorf("expected request ID from header, got %q", result.RequestID)
	}
}

func TestElevenLabsRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"detail":{"status":"rate_limited","message":"slow down"}}`))
	}))
	defer server.Close()

	client := NewElevenLabsClient(ElevenLabsConfig{
		APIKey:  "test-key",
		Voice:   "voice-1",
		BaseURL: server.URL,
	})

	_, err := client.Synthesize(context.Background(), &SpeechRequest{Text: "Hi"})
	if err == nil {
		t.Fatal("expected error")
	}

	rle, ok := IsRateLimitError(err)
	if !ok {
		t.Fatalf("expected RateLimitError, got %T: %v", err, err)
	}
	if rle.RetryAfter != 7*time.Second {
		t.Errorf("expected retry after 7s, got %s", rle.RetryAfter)
	}

	status := client.limiter.Status()
	if status.Last429Time.IsZero() {
		t.Error("expected 429 recorded on limiter")
	}
	if !status.PausedUntil.After(time.Now()) {
		t.Error("expected limiter paused after 429")
	}

	// While paused, a new request must wait out the pause rather than
	// hit the provider again.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = client.Synthesize(ctx, &SpeechRequest{Text: "Hi again"})
	if err == nil {
		t.Fatal("expected error while limiter paused")
	}
	if _, ok := IsRateLimitError(err); ok {
		t.Error("paused request should not reach the provider")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded while paused, got %v", err)
	}
}

func TestElevenLabsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream broke"))
	}))
	defer server.Close()

	client := NewElevenLabsClient(ElevenLabsConfig{
		APIKey:  "test-key",
		Voice:   "voice-1",
		BaseURL: server.URL,
	})

	result, err := client.Synthesize(context.Background(), &SpeechRequest{Text: "Hi"})
	if err == nil {
		t.Fatal("expected error")
	}
	if result.Success {
		t.Error("expected failed result")
	}

	pe, ok := err.(*ProviderError)
	if !ok {
		t.Fatalf("expected ProviderError, got %T: %v", err, err)
	}
	if !pe.Transient() {
		t.Error("502 should be transient")
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		container  string
		sampleRate int
	}{
		{
			name:       "mp3 format",
			input:      "mp3_44100_128",
			container:  "mp3",
			sampleRate: 44100,
		},
		{
			name:       "pcm format maps to wav",
			input:      "pcm_16000",
			container:  "wav",
			sampleRate: 16000,
		},
		{
			name:       "legacy mp3",
			input:      "mp3",
			container:  "mp3",
			sampleRate: 0,
		},
		{
			name:       "empty defaults",
			input:      "",
			container:  "mp3",
			sampleRate: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			container, sampleRate := parseOutputFormat(tt.input)
			if container != tt.container {
				t.Fatalf("expected container=%q, got %q", tt.container, container)
			}
			if sampleRate != tt.sampleRate {
				t.Fatalf("expected sampleRate=%d, got %d", tt.sampleRate, sampleRate)
			}
		})
	}
}
