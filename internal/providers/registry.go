package providers

import (
	"fmt"
	"log/slog"
	"sync"
)

// Registry holds references to TTS providers. It supports config-driven
// instantiation, hot-reload, and provides thread-safe access.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]TTSProvider
	logger    *slog.Logger
}

// NewRegistry creates a new empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]TTSProvider),
		logger:    slog.Default(),
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// Register registers a TTS provider by name.
func (r *Registry) Register(name string, provider TTSProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = provider
	if r.logger != nil {
		r.logger.Info("registered TTS provider", "name", name)
	}
}

// Unregister removes a TTS provider by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.providers, name)
	if r.logger != nil {
		r.logger.Info("unregistered TTS provider", "name", name)
	}
}

// Get returns a TTS provider by name.
func (r *Registry) Get(name string) (TTSProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	provider, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("TTS provider not found: %s", name)
	}
	return provider, nil
}

// Has checks if a TTS provider is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.providers[name]
	return ok
}

// List returns all registered provider names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}

// TTSProviders returns a map of all registered providers.
func (r *Registry) TTSProviders() map[string]TTSProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make(map[string]TTSProvider, len(r.providers))
	for name, provider := range r.providers {
		result[name] = provider
	}
	return result
}

// RegistryConfig defines the providers to instantiate from config.
// This mirrors the config.Config structure for provider setup.
type RegistryConfig struct {
	// TTSProviders maps provider names to their config
	TTSProviders map[string]TTSProviderConfig
}

// TTSProviderConfig matches config.TTSProviderCfg with resolved API key.
type TTSProviderConfig struct {
	Type      string  // "elevenlabs", "mock"
	Model     string  // Model name
	Voice     string  // Default voice ID
	Format    string  // Output format
	APIKey    string  // Resolved API key
	RateLimit float64 // Requests per second
	Enabled   bool
}

// NewRegistryFromConfig creates a registry with providers based on
// configuration. Only enabled providers with valid API keys will be
// registered (the mock provider needs no key).
func NewRegistryFromConfig(cfg RegistryConfig) *Registry {
	r := NewRegistry()
	for name, provCfg := range cfg.TTSProviders {
		if !configured(provCfg) {
			continue
		}
		provider := createTTSProvider(provCfg)
		if provider != nil {
			r.providers[name] = provider
		}
	}
	return r
}

// Reload updates the registry based on new configuration. Providers that
// are no longer configured will be unregistered, providers with changed
// settings will be re-registered.
func (r *Registry) Reload(cfg RegistryConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	want := make(map[string]bool)

	for name, provCfg := range cfg.TTSProviders {
		if !configured(provCfg) {
			continue
		}
		want[name] = true

		existing, hasExisting := r.providers[name]
		if !hasExisting || needsUpdate(existing, provCfg) {
			provider := createTTSProvider(provCfg)
			if provider != nil {
				r.providers[name] = provider
				if r.logger != nil {
					if hasExisting {
						r.logger.Info("updated TTS provider", "name", name, "type", provCfg.Type)
					} else {
						r.logger.Info("registered TTS provider", "name", name, "type", provCfg.Type)
					}
				}
			}
		}
	}

	for name := range r.providers {
		if !want[name] {
			delete(r.providers, name)
			if r.logger != nil {
				r.logger.Info("unregistered TTS provider", "name", name)
			}
		}
	}
}

func configured(cfg TTSProviderConfig) bool {
	if !cfg.Enabled {
		return false
	}
	// The mock provider is usable without credentials.
	return cfg.APIKey != "" || cfg.Type == "mock"
}

// createTTSProvider creates a TTS provider based on provider type.
func createTTSProvider(cfg TTSProviderConfig) TTSProvider {
	switch cfg.Type {
	case "elevenlabs":
		return NewElevenLabsClient(ElevenLabsConfig{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			Voice:     cfg.Voice,
			Format:    cfg.Format,
			RateLimit: cfg.RateLimit,
		})
	case "mock":
		return NewMockTTSClient()
	default:
		return nil
	}
}

// needsUpdate checks if a provider needs to be recreated.
func needsUpdate(provider TTSProvider, cfg TTSProviderConfig) bool {
	switch p := provider.(type) {
	case *ElevenLabsClient:
		model := cfg.Model
		if model == "" {
			model = ElevenLabsDefaultModel
		}
		voice := cfg.Voice
		if voice == "" {
			voice = ElevenLabsDefaultVoice
		}
		return p.apiKey != cfg.APIKey ||
			p.model != model ||
			p.voice != voice
	case *MockTTSClient:
		return false
	default:
		return true
	}
}
