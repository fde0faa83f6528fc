package providers

import (
	"context"
	"testing"
	"time"
)

func TestMockSynthesizeAlignment(t *testing.T) {
	client := NewMockTTSClient()
	client.SecondsPerChar = 0.1

	result, err := client.Synthesize(context.Background(), &SpeechRequest{Text: "abc"})
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if !result.Success {
		t.Fatal("expected success")
	}
	if len(result.Audio) == 0 {
		t.Fatal("expected audio bytes")
	}
	if !result.Alignment.Valid() {
		t.Fatal("expected valid alignment")
	}
	if len(result.Alignment.Characters) != 3 {
		t.Fatalf("expected 3 aligned characters, got %d", len(result.Alignment.Characters))
	}
	if result.Alignment.StartTimes[1] != 0.1 {
		t.Errorf("expected second char to start at 0.1, got %f", result.Alignment.StartTimes[1])
	}
	if result.Alignment.Duration() != 0.3 {
		t.Errorf("expected duration 0.3, got %f", result.Alignment.Duration())
	}
}

func TestMockFailAfter(t *testing.T) {
	client := NewMockTTSClient()
	client.FailAfter = 2

	for i := 0; i < 2; i++ {
		if _, err := client.Synthesize(context.Background(), &SpeechRequest{Text: "ok"}); err != nil {
			t.Fatalf("request %d should succeed: %v", i+1, err)
		}
	}
	if _, err := client.Synthesize(context.Background(), &SpeechRequest{Text: "ok"}); err == nil {
		t.Fatal("expected third request to fail")
	}
}

func TestRegistryFromConfig(t *testing.T) {
	cfg := RegistryConfig{
		TTSProviders: map[string]TTSProviderConfig{
			"elevenlabs": {
				Type:    "elevenlabs",
				APIKey:  "key-1",
				Voice:   "voice-1",
				Enabled: true,
			},
			"mock": {
				Type:    "mock",
				Enabled: true,
			},
			"disabled": {
				Type:    "elevenlabs",
				APIKey:  "key-2",
				Enabled: false,
			},
			"keyless": {
				Type:    "elevenlabs",
				Enabled: true,
			},
		},
	}

	registry := NewRegistryFromConfig(cfg)

	if !registry.Has("elevenlabs") {
		t.Error("expected elevenlabs to be registered")
	}
	if !registry.Has("mock") {
		t.Error("expected mock to be registered without an API key")
	}
	if registry.Has("disabled") {
		t.Error("disabled provider should not be registered")
	}
	if registry.Has("keyless") {
		t.Error("provider without API key should not be registered")
	}
}

func TestRegistryReload(t *testing.T) {
	registry := NewRegistryFromConfig(RegistryConfig{
		TTSProviders: map[string]TTSProviderConfig{
			"elevenlabs": {Type: "elevenlabs", APIKey: "key-1", Enabled: true},
		},
	})

	original, err := registry.Get("elevenlabs")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	// Same settings: provider instance survives the reload.
	registry.Reload(RegistryConfig{
		TTSProviders: map[string]TTSProviderConfig{
			"elevenlabs": {Type: "elevenlabs", APIKey: "key-1", Enabled: true},
		},
	})
	unchanged, _ := registry.Get("elevenlabs")
	if unchanged != original {
		t.Error("unchanged config should keep the same provider instance")
	}

	// Changed key: provider is recreated.
	registry.Reload(RegistryConfig{
		TTSProviders: map[string]TTSProviderConfig{
			"elevenlabs": {Type: "elevenlabs", APIKey: "key-2", Enabled: true},
		},
	})
	updated, _ := registry.Get("elevenlabs")
	if updated == original {
		t.Error("changed API key should recreate the provider")
	}

	// Removed from config: provider is unregistered.
	registry.Reload(RegistryConfig{})
	if registry.Has("elevenlabs") {
		t.Error("provider removed from config should be unregistered")
	}
}

func TestLimiterRecord429(t *testing.T) {
	limiter := NewLimiter(100)

	if !limiter.Allow() {
		t.Fatal("first request should be allowed")
	}

	limiter.Record429(time.Hour)
	if limiter.Allow() {
		t.Error("requests during a 429 pause should be rejected")
	}

	status := limiter.Status()
	if status.Last429Time.IsZero() {
		t.Error("expected 429 timestamp in status")
	}
	if status.TotalConsumed != 1 {
		t.Errorf("expected 1 consumed token, got %d", status.TotalConsumed)
	}
}
