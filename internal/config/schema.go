package config

// Config holds readaloud configuration.
// Stored at: ~/.readaloud/config.yaml
type Config struct {
	TTSProviders map[string]TTSProviderCfg `mapstructure:"tts_providers" yaml:"tts_providers"`
	Defaults     DefaultsCfg               `mapstructure:"defaults" yaml:"defaults"`
	Server       ServerCfg                 `mapstructure:"server" yaml:"server"`
	Extract      ExtractCfg                `mapstructure:"extract" yaml:"extract"`
	Speech       SpeechCfg                 `mapstructure:"speech" yaml:"speech"`
}

// TTSProviderCfg configures a speech synthesis provider.
type TTSProviderCfg struct {
	Type      string  `mapstructure:"type" yaml:"type"`             // "elevenlabs", "mock"
	Model     string  `mapstructure:"model" yaml:"model"`           // Model name
	Voice     string  `mapstructure:"voice" yaml:"voice"`           // Default voice ID
	Format    string  `mapstructure:"format" yaml:"format"`         // Output audio format
	APIKey    string  `mapstructure:"api_key" yaml:"api_key"`       // API key (supports ${ENV_VAR} syntax)
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"` // Requests per second
	Enabled   bool    `mapstructure:"enabled" yaml:"enabled"`
}

// DefaultsCfg specifies default selections.
type DefaultsCfg struct {
	TTSProvider string `mapstructure:"tts_provider" yaml:"tts_provider"` // Default synthesis provider
	Voice       string `mapstructure:"voice" yaml:"voice"`               // Default voice ID
}

// ServerCfg holds HTTP server configuration.
type ServerCfg struct {
	Port string `mapstructure:"port" yaml:"port"`
}

// ExtractCfg holds article extraction configuration.
type ExtractCfg struct {
	MinLength     int    `mapstructure:"min_length" yaml:"min_length"`           // Minimum article length in chars
	CacheSize     int    `mapstructure:"cache_size" yaml:"cache_size"`           // Extraction cache entries
	CacheTTLHours int    `mapstructure:"cache_ttl_hours" yaml:"cache_ttl_hours"` // Extraction cache TTL
	NeynarAPIKey  string `mapstructure:"neynar_api_key" yaml:"neynar_api_key"`   // Farcaster API key (supports ${ENV_VAR})
}

// SpeechCfg holds speech generation and cache configuration.
type SpeechCfg struct {
	FirstChunkSize     int   `mapstructure:"first_chunk_size" yaml:"first_chunk_size"`
	MaxChunkSize       int   `mapstructure:"max_chunk_size" yaml:"max_chunk_size"`
	CacheMaxEntries    int   `mapstructure:"cache_max_entries" yaml:"cache_max_entries"`
	CacheMaxBytes      int64 `mapstructure:"cache_max_bytes" yaml:"cache_max_bytes"`
	EagerMaxTextLength int   `mapstructure:"eager_max_text_length" yaml:"eager_max_text_length"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		TTSProviders: map[string]TTSProviderCfg{
			"elevenlabs": {
				Type:      "elevenlabs",
				Model:     "eleven_turbo_v2_5",
				Voice:     "JBFqnCBsd6RMkjVDRZzb",
				Format:    "mp3_44100_128",
				APIKey:    "${ELEVENLABS_API_KEY}",
				RateLimit: 10.0,
				Enabled:   true,
			},
		},
		Defaults: DefaultsCfg{
			TTSProvider: "elevenlabs",
			Voice:       "JBFqnCBsd6RMkjVDRZzb",
		},
		Server: ServerCfg{
			Port: "8484",
		},
		Extract: ExtractCfg{
			MinLength:     500,
			CacheSize:     500,
			CacheTTLHours: 24,
			NeynarAPIKey:  "${NEYNAR_API_KEY}",
		},
		Speech: SpeechCfg{
			FirstChunkSize:     1000,
			MaxChunkSize:       10000,
			CacheMaxEntries:    100,
			CacheMaxBytes:      50 * 1024 * 1024,
			EagerMaxTextLength: 50000,
		},
	}
}

// GetTTSProvider returns a TTS provider config by name.
func (c *Config) GetTTSProvider(name string) (TTSProviderCfg, bool) {
	cfg, ok := c.TTSProviders[name]
	return cfg, ok
}

// EnabledTTSProviders returns all enabled TTS providers.
func (c *Config) EnabledTTSProviders() map[string]TTSProviderCfg {
	result := make(map[string]TTSProviderCfg)
	for name, cfg := range c.TTSProviders {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}
