package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/readaloud/readaloud/internal/api"
	"github.com/readaloud/readaloud/internal/config"
	"github.com/readaloud/readaloud/internal/extract"
	"github.com/readaloud/readaloud/internal/home"
	"github.com/readaloud/readaloud/internal/providers"
	"github.com/readaloud/readaloud/internal/server/endpoints"
	"github.com/readaloud/readaloud/internal/speech"
	"github.com/readaloud/readaloud/internal/svcctx"
)

// Server is the main readaloud HTTP server. It owns the speech cache,
// the provider registry, and the article extractor, and exposes them
// through the endpoint registry.
type Server struct {
	httpServer *http.Server
	registry   *providers.Registry
	configMgr  *config.Manager
	home       *home.Dir
	logger     *slog.Logger

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu       sync.RWMutex
	running  bool
	services *svcctx.Services
}

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1)
	Host string
	// Port is the port to listen on (default: 8484)
	Port string
	// Home is the readaloud home directory (cache lives under it)
	Home *home.Dir
	// ConfigManager provides configuration with hot-reload support
	ConfigManager *config.Manager
	// Logger is the structured logger to use
	Logger *slog.Logger
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Home == nil {
		h, err := home.New("")
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		cfg.Home = h
	}
	if cfg.Port == "" {
		cfg.Port = "8484"
		if cfg.ConfigManager != nil && cfg.ConfigManager.Get().Server.Port != "" {
			cfg.Port = cfg.ConfigManager.Get().Server.Port
		}
	}

	registry := providers.NewRegistry()
	registry.SetLogger(cfg.Logger)

	s := &Server{
		registry:  registry,
		configMgr: cfg.ConfigManager,
		home:      cfg.Home,
		logger:    cfg.Logger,
	}

	// If config manager provided, set up providers and hot reload
	if cfg.ConfigManager != nil {
		registry.Reload(cfg.ConfigManager.Get().ToProviderRegistryConfig())

		cfg.ConfigManager.OnChange(func(c *config.Config) {
			registry.Reload(c.ToProviderRegistryConfig())
			s.rebindProvider(c)
			cfg.Logger.Info("provider registry reloaded from config")
		})
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All() {
		s.endpointRegistry.Register(ep)
	}

	// Set up HTTP server
	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)

	s.httpServer = &http.Server{
		Addr:        net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:     s.withServices(mux),
		ReadTimeout: 30 * time.Second,
		// Speech generation holds the first request open while the
		// provider synthesizes chunk 0.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Start initializes the speech cache and extractor, then serves HTTP.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	if err := s.home.EnsureExists(); err != nil {
		s.setNotRunning()
		return fmt.Errorf("failed to create home directory: %w", err)
	}

	cfg := config.DefaultConfig()
	if s.configMgr != nil {
		cfg = s.configMgr.Get()
	}

	store, err := speech.NewStore(speech.StoreConfig{
		Dir:        s.home.CachePath(),
		MaxEntries: cfg.Speech.CacheMaxEntries,
		MaxBytes:   cfg.Speech.CacheMaxBytes,
		Logger:     s.logger,
	})
	if err != nil {
		s.setNotRunning()
		return fmt.Errorf("failed to open speech cache: %w", err)
	}

	loaded, skipped := store.Reconcile()
	s.logger.Info("speech cache reconciled", "loaded", loaded, "skipped", skipped)

	extractor := extract.New(extract.Config{
		MinLength:    cfg.Extract.MinLength,
		CacheSize:    cfg.Extract.CacheSize,
		CacheTTL:     time.Duration(cfg.Extract.CacheTTLHours) * time.Hour,
		NeynarAPIKey: config.ResolveEnvVars(cfg.Extract.NeynarAPIKey),
		Logger:       s.logger,
	})

	services := &svcctx.Services{
		Registry:  s.registry,
		Store:     store,
		Extractor: extractor,
		Config:    s.configMgr,
		Logger:    s.logger,
		Home:      s.home,
	}
	s.bindProvider(services, cfg)

	s.mu.Lock()
	s.services = services
	s.mu.Unlock()

	// Start HTTP server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			s.setNotRunning()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// bindProvider wires the generator and eager trigger for the configured
// default provider. Without a configured provider the speech endpoints
// stay unavailable while extraction keeps working.
func (s *Server) bindProvider(services *svcctx.Services, cfg *config.Config) {
	provider, err := s.registry.Get(cfg.Defaults.TTSProvider)
	if err != nil {
		if services.Generator != nil {
			// In-flight generations and status queries must survive, so
			// the previously bound provider stays in place.
			s.logger.Warn("configured speech provider unavailable, keeping previous binding",
				"provider", cfg.Defaults.TTSProvider, "error", err)
			return
		}
		s.logger.Warn("no speech provider available", "provider", cfg.Defaults.TTSProvider, "error", err)
		services.Generator = nil
		services.Eager = nil
		return
	}

	if services.Generator != nil {
		// Swap the provider inside the live generator: rebuilding it
		// would drop the pending and in-flight generation maps.
		services.Generator.SetProvider(provider, cfg.Defaults.Voice)
	} else {
		services.Generator = speech.NewGenerator(services.Store, provider, speech.GeneratorConfig{
			FirstChunkSize: cfg.Speech.FirstChunkSize,
			MaxChunkSize:   cfg.Speech.MaxChunkSize,
			Voice:          cfg.Defaults.Voice,
			Logger:         s.logger,
		})
	}
	services.Eager = speech.NewEagerTrigger(services.Generator, services.Extractor, speech.EagerConfig{
		MaxTextLength: cfg.Speech.EagerMaxTextLength,
		Logger:        s.logger,
	})
	s.logger.Info("speech provider bound", "provider", provider.Name())
}

// rebindProvider rebinds the provider after a config reload. The
// generator instance is preserved across reloads.
func (s *Server) rebindProvider(cfg *config.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.services == nil {
		return
	}

	// Copy-on-write so in-flight requests keep a consistent view.
	services := *s.services
	s.bindProvider(&services, cfg)
	s.services = &services
}

// shutdown performs graceful shutdown of the HTTP server.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Registry returns the provider registry.
func (s *Server) Registry() *providers.Registry {
	return s.registry
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		services := s.services
		s.mu.RUnlock()

		ctx := r.Context()
		if services != nil {
			ctx = svcctx.WithServices(ctx, services)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireInit is middleware that ensures the speech pipeline is ready.
// Returns 503 Service Unavailable if the cache isn't reconciled yet or
// no synthesis provider is configured.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		ready := s.services != nil && s.services.Generator != nil
		s.mu.RUnlock()

		if !ready {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"speech pipeline not ready: no synthesis provider configured"}`))
			return
		}
		next(w, r)
	}
}
