package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	ElevenLabsName         = "elevenlabs"
	ElevenLabsAPIBaseURL   = "https://api.elevenlabs.io/v1"
	ElevenLabsDefaultModel = "eleven_turbo_v2_5" // 40k char limit, 50% cheaper than multilingual_v2
	ElevenLabsDefaultVoice = "JBFqnCBsd6RMkjVDRZzb"
)

// ElevenLabsConfig holds configuration for the ElevenLabs client.
type ElevenLabsConfig struct {
	APIKey     string
	Model      string  // e.g., "eleven_multilingual_v2", "eleven_turbo_v2_5", "eleven_flash_v2_5"
	Voice      string  // Default voice ID
	Format     string  // Output format: mp3_44100_128, mp3_22050_32, pcm_16000, etc.
	Stability  float64 // Voice stability (0.0-1.0, default: 0.5)
	Similarity float64 // Similarity boost (0.0-1.0, default: 0.75)
	Style      float64 // Style exaggeration (0.0-1.0, default: 0.0)
	Speed      float64 // Speaking speed (0.7-1.2, default: 1.0)
	Timeout    time.Duration
	RateLimit  float64 // Requests per second
	MaxRetries int     // Max retry attempts (default: 3)
	RetryDelay time.Duration
	BaseURL    string // Optional (tests)
}

// ElevenLabsClient implements TTSProvider using the ElevenLabs
// with-timestamps API, which returns character alignment alongside audio.
type ElevenLabsClient struct {
	apiKey     string
	model      string
	voice      string
	format     string
	stability  float64
	similarity float64
	style      float64
	speed      float64
	rateLimit  float64
	maxRetries int
	retryDelay time.Duration
	baseURL    string
	limiter    *Limiter
	client     *http.Client
}

// NewElevenLabsClient creates a new ElevenLabs client.
func NewElevenLabsClient(cfg ElevenLabsConfig) *ElevenLabsClient {
	if cfg.Model == "" {
		cfg.Model = ElevenLabsDefaultModel
	}
	if cfg.Voice == "" {
		cfg.Voice = ElevenLabsDefaultVoice
	}
	if cfg.Format == "" {
		cfg.Format = "mp3_44100_128"
	}
	if cfg.Stability == 0 {
		cfg.Stability = 0.5
	}
	if cfg.Similarity == 0 {
		cfg.Similarity = 0.75
	}
	if cfg.Speed == 0 {
		cfg.Speed = 1.0
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 300 * time.Second // TTS can be slow for long text
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 10.0 // ElevenLabs Pro plan: 10 concurrent requests
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = ElevenLabsAPIBaseURL
	}

	return &ElevenLabsClient{
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		voice:      cfg.Voice,
		format:     cfg.Format,
		stability:  cfg.Stability,
		similarity: cfg.Similarity,
		style:      cfg.Style,
		speed:      cfg.Speed,
		rateLimit:  cfg.RateLimit,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		baseURL:    cfg.BaseURL,
		limiter:    NewLimiter(cfg.RateLimit),
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Name returns the provider identifier.
func (c *ElevenLabsClient) Name() string {
	return ElevenLabsName
}

// RequestsPerSecond returns the rate limit.
func (c *ElevenLabsClient) RequestsPerSecond() float64 {
	return c.rateLimit
}

// MaxRetries returns the maximum retry attempts.
func (c *ElevenLabsClient) MaxRetries() int {
	return c.maxRetries
}

// RetryDelayBase returns the base delay for exponential backoff.
func (c *ElevenLabsClient) RetryDelayBase() time.Duration {
	return c.retryDelay
}

// HealthCheck verifies the ElevenLabs API is reachable and the API key is valid.
func (c *ElevenLabsClient) HealthCheck(ctx context.Context) error {
	// Use /user endpoint to verify API key
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/user", nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("health check request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("invalid API key")
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("health check failed with status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

// Synthesize converts text to audio with character timestamps.
func (c *ElevenLabsClient) Synthesize(ctx context.Context, req *SpeechRequest) (*SpeechResult, error) {
	start := time.Now()

	if req == nil || req.Text == "" {
		err := fmt.Errorf("text is required")
		return &SpeechResult{
			Success:       false,
			ErrorMessage:  err.Error(),
			ExecutionTime: time.Since(start),
		}, err
	}

	voice := req.Voice
	if voice == "" {
		voice = c.voice
	}
	format := req.Format
	if format == "" {
		format = c.format
	}

	ttsReq := elevenLabsTTSRequest{
		Text:    req.Text,
		ModelID: c.model,
		VoiceSettings: elevenLabsVoiceSettings{
			Stability:       c.stability,
			SimilarityBoost: c.similarity,
			Style:           c.style,
			Speed:           c.speed,
			UseSpeakerBoost: true,
		},
		PreviousRequestIDs: req.PreviousRequestIDs, // For prosody stitching
	}

	ttsResp, requestID, err := c.doRequest(ctx, voice, format, ttsReq)
	if err != nil {
		return &SpeechResult{
			Success:       false,
			ErrorMessage:  err.Error(),
			CharCount:     len(req.Text),
			ExecutionTime: time.Since(start),
		}, err
	}

	audio, err := base64.StdEncoding.DecodeString(ttsResp.AudioBase64)
	if err != nil {
		err = fmt.Errorf("failed to decode audio: %w", err)
		return &SpeechResult{
			Success:       false,
			ErrorMessage:  err.Error(),
			CharCount:     len(req.Text),
			ExecutionTime: time.Since(start),
		}, err
	}

	outputFormat, sampleRate := parseOutputFormat(format)

	// ElevenLabs pricing: ~$0.30 per 1000 characters for standard voices
	cost := float64(len(req.Text)) * 0.0003

	var alignment *Alignment
	if ttsResp.Alignment.Valid() {
		alignment = &ttsResp.Alignment
	}

	return &SpeechResult{
		Success:       true,
		Audio:         audio,
		Alignment:     alignment,
		Format:        outputFormat,
		SampleRate:    sampleRate,
		CostUSD:       cost,
		CharCount:     len(req.Text),
		ExecutionTime: time.Since(start),
		RequestID:     requestID, // For prosody stitching
	}, nil
}

// doRequest posts to the with-timestamps endpoint and decodes the JSON
// envelope. Returns the decoded response and the request ID for stitching.
func (c *ElevenLabsClient) doRequest(ctx context.Context, voiceID, format string, body elevenLabsTTSRequest) (*elevenLabsTTSResponse, string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, "", fmt.Errorf("rate limiter: %w", err)
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/text-to-speech/%s/with-timestamps?output_format=%s", c.baseURL, voiceID, format)
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp elevenLabsErrorResponse
		errMsg := string(respBody)
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Detail.Message != "" {
			errMsg = errResp.Detail.Message
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
			c.limiter.Record429(retryAfter)
			return nil, "", &RateLimitError{
				Message:    fmt.Sprintf("ElevenLabs rate limited: %s", errMsg),
				RetryAfter: retryAfter,
				StatusCode: resp.StatusCode,
			}
		}

		return nil, "", &ProviderError{
			Provider:   ElevenLabsName,
			StatusCode: resp.StatusCode,
			Message:    errMsg,
		}
	}

	var ttsResp elevenLabsTTSResponse
	if err := json.Unmarshal(respBody, &ttsResp); err != nil {
		return nil, "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if ttsResp.AudioBase64 == "" {
		return nil, "", fmt.Errorf("response missing audio")
	}

	// Extract request ID from response header for request stitching.
	// ElevenLabs returns this as "request-id" or "x-request-id" header.
	requestID := resp.Header.Get("request-id")
	if requestID == "" {
		requestID = resp.Header.Get("x-request-id")
	}

	return &ttsResp, requestID, nil
}

// ListVoices retrieves available voices from ElevenLabs.
func (c *ElevenLabsClient) ListVoices(ctx context.Context) ([]Voice, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to list voices (status %d): %s", resp.StatusCode, string(body))
	}

	var result elevenLabsVoicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	voices := make([]Voice, 0, len(result.Voices))
	for _, v := range result.Voices {
		description := v.Description
		if description == "" && len(v.Labels) > 0 {
			for key, val := range v.Labels {
				if description != "" {
					description += ", "
				}
				description += key + ": " + val
			}
		}

		voices = append(voices, Voice{
			VoiceID:     v.VoiceID,
			Name:        v.Name,
			Description: description,
		})
	}

	return voices, nil
}

// Model returns the model being used.
func (c *ElevenLabsClient) Model() string {
	return c.model
}

// Voice returns the default voice ID.
func (c *ElevenLabsClient) Voice() string {
	return c.voice
}

// Format returns the default output format.
func (c *ElevenLabsClient) Format() string {
	return c.format
}

// ElevenLabs API types

type elevenLabsTTSRequest struct {
	Text               string                  `json:"text"`
	ModelID            string                  `json:"model_id"`
	VoiceSettings      elevenLabsVoiceSettings `json:"voice_settings"`
	PreviousRequestIDs []string                `json:"previous_request_ids,omitempty"` // For request stitching
}

type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style,omitempty"`
	Speed           float64 `json:"speed,omitempty"`
	UseSpeakerBoost bool    `json:"use_speaker_boost,omitempty"`
}

type elevenLabsTTSResponse struct {
	AudioBase64 string    `json:"audio_base64"`
	Alignment   Alignment `json:"alignment"`
}

type elevenLabsErrorResponse struct {
	Detail struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"detail"`
}

type elevenLabsVoicesResponse struct {
	Voices []elevenLabsVoice `json:"voices"`
}

type elevenLabsVoice struct {
	VoiceID     string            `json:"voice_id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Category    string            `json:"category,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
}

// Verify interface
var _ TTSProvider = (*ElevenLabsClient)(nil)
var _ VoicesLister = (*ElevenLabsClient)(nil)
