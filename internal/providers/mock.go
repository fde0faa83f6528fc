package providers

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

const MockName = "mock"

// MockTTSClient is a TTSProvider for testing. It produces deterministic
// audio bytes and a synthetic character alignment, so timestamp mapping
// can be exercised without network access.
type MockTTSClient struct {
	// Configurable behavior
	Latency        time.Duration
	ShouldFail     bool
	FailAfter      int     // Fail after N requests (0 = never)
	SecondsPerChar float64 // Synthetic pacing for the alignment

	// Rate limiting
	RPS        float64
	Retries    int
	RetryDelay time.Duration

	// State
	requestCount atomic.Int64
}

// NewMockTTSClient creates a new mock TTS client with sensible defaults.
func NewMockTTSClient() *MockTTSClient {
	return &MockTTSClient{
		Latency:        time.Millisecond,
		SecondsPerChar: 0.05,
		RPS:            100,
		Retries:        3,
		RetryDelay:     time.Second,
	}
}

// Name returns the provider identifier.
func (c *MockTTSClient) Name() string {
	return MockName
}

// RequestsPerSecond returns the rate limit.
func (c *MockTTSClient) RequestsPerSecond() float64 {
	return c.RPS
}

// MaxRetries returns the maximum retry attempts.
func (c *MockTTSClient) MaxRetries() int {
	return c.Retries
}

// RetryDelayBase returns the base delay between retries.
func (c *MockTTSClient) RetryDelayBase() time.Duration {
	return c.RetryDelay
}

// HealthCheck always succeeds unless the mock is configured to fail.
func (c *MockTTSClient) HealthCheck(ctx context.Context) error {
	if c.ShouldFail {
		return fmt.Errorf("mock provider configured to fail")
	}
	return nil
}

// Synthesize produces fake audio and a synthetic alignment that paces
// every character at SecondsPerChar.
func (c *MockTTSClient) Synthesize(ctx context.Context, req *SpeechRequest) (*SpeechResult, error) {
	start := time.Now()
	count := c.requestCount.Add(1)

	result := &SpeechResult{
		RequestID: fmt.Sprintf("mock-%d", count),
		CharCount: len(req.Text),
		Format:    "mp3",
	}

	if c.ShouldFail {
		result.ErrorMessage = "mock provider configured to fail"
		result.ExecutionTime = time.Since(start)
		return result, fmt.Errorf("mock provider configured to fail")
	}
	if c.FailAfter > 0 && int(count) > c.FailAfter {
		result.ErrorMessage = fmt.Sprintf("mock provider failed after %d requests", c.FailAfter)
		result.ExecutionTime = time.Since(start)
		return result, fmt.Errorf("mock provider failed after %d requests", c.FailAfter)
	}

	// Simulate latency
	select {
	case <-time.After(c.Latency):
	case <-ctx.Done():
		result.ErrorMessage = ctx.Err().Error()
		result.ExecutionTime = time.Since(start)
		return result, ctx.Err()
	}

	pace := c.SecondsPerChar
	if pace <= 0 {
		pace = 0.05
	}

	runes := []rune(req.Text)
	alignment := &Alignment{
		Characters: make([]string, 0, len(runes)),
		StartTimes: make([]float64, 0, len(runes)),
		EndTimes:   make([]float64, 0, len(runes)),
	}
	for i, r := range runes {
		alignment.Characters = append(alignment.Characters, string(r))
		alignment.StartTimes = append(alignment.StartTimes, float64(i)*pace)
		alignment.EndTimes = append(alignment.EndTimes, float64(i+1)*pace)
	}

	result.Success = true
	result.Audio = []byte(fmt.Sprintf("MOCKAUDIO:%d:%d", count, len(req.Text)))
	result.Alignment = alignment
	result.CostUSD = 0.001
	result.ExecutionTime = time.Since(start)

	return result, nil
}

// RequestCount returns the number of requests made.
func (c *MockTTSClient) RequestCount() int64 {
	return c.requestCount.Load()
}

// Reset resets the request counter.
func (c *MockTTSClient) Reset() {
	c.requestCount.Store(0)
}

// Verify interface
var _ TTSProvider = (*MockTTSClient)(nil)
