package providers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TTSProvider converts text to audio with character-level timing.
// Separate Synthesize calls are independent; callers sequence chunks and
// carry timing offsets themselves.
type TTSProvider interface {
	// Name returns the provider identifier (e.g., "elevenlabs").
	Name() string

	// Synthesize converts text to audio. The result carries the raw audio
	// bytes plus the provider's character alignment when available.
	Synthesize(ctx context.Context, req *SpeechRequest) (*SpeechResult, error)

	// HealthCheck verifies the provider is reachable and credentials are valid.
	HealthCheck(ctx context.Context) error

	// Rate limiting properties
	RequestsPerSecond() float64
	MaxRetries() int
	RetryDelayBase() time.Duration
}

// VoicesLister is implemented by providers that can enumerate their voices.
type VoicesLister interface {
	ListVoices(ctx context.Context) ([]Voice, error)
}

// SpeechRequest is a single synthesis request.
type SpeechRequest struct {
	// Required
	Text string `json:"text"`

	// Voice and format (use provider defaults if empty)
	Voice  string `json:"voice,omitempty"`
	Format string `json:"format,omitempty"`

	// PreviousRequestIDs enables prosody stitching across sequential chunks.
	PreviousRequestIDs []string `json:"previous_request_ids,omitempty"`

	// Request tracking
	RequestID string `json:"-"`
}

// Alignment is the character-level timing a provider returns alongside
// audio. The three slices are parallel: Characters[i] spans
// StartTimes[i]..EndTimes[i] seconds from the start of this audio.
type Alignment struct {
	Characters []string  `json:"characters"`
	StartTimes []float64 `json:"character_start_times_seconds"`
	EndTimes   []float64 `json:"character_end_times_seconds"`
}

// Duration returns the end time of the last aligned character in seconds.
func (a *Alignment) Duration() float64 {
	if a == nil || len(a.EndTimes) == 0 {
		return 0
	}
	return a.EndTimes[len(a.EndTimes)-1]
}

// Valid reports whether the three alignment slices are parallel and non-empty.
func (a *Alignment) Valid() bool {
	if a == nil || len(a.Characters) == 0 {
		return false
	}
	return len(a.Characters) == len(a.StartTimes) && len(a.Characters) == len(a.EndTimes)
}

// SpeechResult is the complete response from a synthesis call.
type SpeechResult struct {
	// Response content
	Success   bool       `json:"success"`
	Audio     []byte     `json:"-"`
	Alignment *Alignment `json:"alignment,omitempty"`

	// Audio properties
	Format     string `json:"format"`
	SampleRate int    `json:"sample_rate,omitempty"`

	// Cost and timing
	CharCount     int           `json:"char_count"`
	CostUSD       float64       `json:"cost_usd"`
	ExecutionTime time.Duration `json:"execution_time"`

	// Request tracking
	RequestID string `json:"request_id,omitempty"`

	// Error info
	ErrorMessage string `json:"error_message,omitempty"`
}

// Voice represents a selectable TTS voice.
type Voice struct {
	VoiceID     string `json:"voice_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// RateLimitError indicates the provider returned 429.
type RateLimitError struct {
	Message    string
	RetryAfter time.Duration
	StatusCode int
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s (retry after %s)", e.Message, e.RetryAfter)
	}
	return e.Message
}

// IsRateLimitError extracts a RateLimitError from err if present.
func IsRateLimitError(err error) (*RateLimitError, bool) {
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return rle, true
	}
	return nil, false
}

// ProviderError carries the HTTP status for non-429 provider failures so
// callers can distinguish transient (5xx) from permanent (4xx) errors.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// Transient reports whether a retry could plausibly succeed.
func (e *ProviderError) Transient() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// parseRetryAfter parses a Retry-After header value (seconds).
func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}

// parseOutputFormat extracts container format and sample rate from output_format.
// Examples: mp3_44100_128 -> (mp3, 44100), pcm_16000 -> (wav, 16000).
func parseOutputFormat(format string) (container string, sampleRate int) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		return "mp3", 0
	}

	parts := strings.Split(format, "_")
	container = parts[0]
	if container == "pcm" || container == "ulaw" || container == "alaw" {
		container = "wav"
	}

	if len(parts) >= 2 {
		if sr, err := strconv.Atoi(parts[1]); err == nil {
			sampleRate = sr
		}
	}

	return container, sampleRate
}
