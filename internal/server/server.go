package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/healthchain/medvision/internal/analyze"
	"github.com/healthchain/medvision/internal/api"
	"github.com/healthchain/medvision/internal/config"
	"github.com/healthchain/medvision/internal/modelhost"
	"github.com/healthchain/medvision/internal/providers"
	"github.com/healthchain/medvision/internal/rasterize"
	"github.com/healthchain/medvision/internal/report"
	"github.com/healthchain/medvision/internal/sanitize"
	"github.com/healthchain/medvision/internal/server/endpoints"
	"github.com/healthchain/medvision/internal/svcctx"
)

// Server is the medvision HTTP server. When the model host is managed it
// also owns the Ollama container lifecycle, starting it before serving and
// stopping it on shutdown.
type Server struct {
	httpServer *http.Server
	modelHost  *modelhost.DockerManager
	registry   *providers.Registry
	configMgr  *config.Manager
	logger     *slog.Logger

	// services holds all core services for context enrichment
	services *svcctx.Services

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu      sync.RWMutex
	running bool
}

// Config holds server configuration.
type Config struct {
	// ConfigManager provides configuration with hot-reload support
	ConfigManager *config.Manager
	// Logger is the structured logger to use
	Logger *slog.Logger
	// SwaggerSpecPath overrides the default swagger.json location
	SwaggerSpecPath string
	// ManagedModelHost overrides the model_host.managed config key when
	// non-nil
	ManagedModelHost *bool
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.ConfigManager == nil {
		return nil, errors.New("config manager is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	appCfg := cfg.ConfigManager.Get()

	// Vision client registry with hot reload from config
	registry := providers.NewRegistry()
	registry.SetLogger(cfg.Logger)
	registry.Reload(appCfg.ToClientConfig())
	if registry.Client() == nil {
		return nil, fmt.Errorf("failed to configure vision client %q", appCfg.Provider.Type)
	}
	cfg.ConfigManager.OnChange(func(c *config.Config) {
		registry.Reload(c.ToClientConfig())
	})

	s := &Server{
		registry:  registry,
		configMgr: cfg.ConfigManager,
		logger:    cfg.Logger,
	}

	// Managed Ollama container is opt-in
	managed := appCfg.ModelHost.Managed
	if cfg.ManagedModelHost != nil {
		managed = *cfg.ManagedModelHost
	}
	if managed {
		mh, err := modelhost.NewDockerManager(modelhost.DockerConfig{
			ContainerName: appCfg.ModelHost.ContainerName,
			Image:         appCfg.ModelHost.Image,
			HostPort:      appCfg.ModelHost.Port,
			DataPath:      config.ResolveEnvVars(appCfg.ModelHost.DataPath),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create model host manager: %w", err)
		}
		s.modelHost = mh
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All(endpoints.Config{
		ModelHost:       s.modelHost,
		SwaggerSpecPath: cfg.SwaggerSpecPath,
	}) {
		s.endpointRegistry.Register(ep)
	}

	// Set up HTTP server
	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)

	s.httpServer = &http.Server{
		Addr:    appCfg.ListenAddr(),
		Handler: s.withServices(mux),
		// Analysis responses wait on per-page model calls, so the write
		// timeout has to cover a whole multi-page document.
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 30 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Start starts the server, and the Ollama container when managed.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	if s.modelHost != nil {
		// Validate any existing container matches our config
		if err := s.modelHost.ValidateExisting(ctx); err != nil {
			s.setNotRunning()
			return fmt.Errorf("existing Ollama container incompatible: %w", err)
		}

		s.logger.Info("starting Ollama container")
		if err := s.modelHost.Start(ctx); err != nil {
			s.setNotRunning()
			return fmt.Errorf("failed to start Ollama: %w", err)
		}
		s.logger.Info("Ollama is ready", "url", s.modelHost.URL())
	}

	s.services = s.buildServices(s.configMgr.Get())

	// Rebuild the pipeline when analysis settings change
	s.configMgr.OnChange(func(c *config.Config) {
		svcs := s.buildServices(c)
		s.mu.Lock()
		s.services = svcs
		s.mu.Unlock()
	})

	// Watch for config file edits
	s.configMgr.WatchConfig()

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
			_ = s.shutdown()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// buildServices wires the analysis pipeline from the current configuration.
func (s *Server) buildServices(cfg *config.Config) *svcctx.Services {
	rasterizer := rasterize.New(rasterize.Config{
		DPI:    cfg.Rasterize.DPI,
		Logger: s.logger,
	})

	sanitizer, err := sanitize.New()
	if err != nil {
		// The schema is a compile-time constant; failure here is a bug.
		panic(fmt.Sprintf("sanitizer schema: %v", err))
	}

	pageAnalyzer := analyze.NewPageAnalyzer(analyze.PageAnalyzerConfig{
		Client:     s.registry,
		Sanitizer:  sanitizer,
		Attempts:   uint(cfg.Analysis.Attempts),
		RetryDelay: time.Duration(cfg.Analysis.RetryDelaySeconds) * time.Second,
		Logger:     s.logger,
	})

	return &svcctx.Services{
		Analyzer:      analyze.NewDocumentAnalyzer(rasterizer, pageAnalyzer, s.logger),
		Segregator:    report.NewSegregator(report.PolicyByName(cfg.Analysis.MergePolicy)),
		Registry:      s.registry,
		ConfigManager: s.configMgr,
		ModelHost:     s.modelHost,
		Logger:        s.logger,
	}
}

// shutdown performs graceful shutdown of the HTTP server and model host.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	if s.modelHost != nil {
		s.logger.Info("stopping Ollama container")
		if err := s.modelHost.Stop(shutdownCtx); err != nil {
			s.logger.Error("Ollama stop error", "error", err)
		}
		if err := s.modelHost.Close(); err != nil {
			s.logger.Error("model host close error", "error", err)
		}
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
		svcs := s.services
		s.mu.RUnlock()

		ctx := r.Context()
		if svcs != nil {
			ctx = svcctx.WithServices(ctx, svcs)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireInit is middleware that ensures the server is fully initialized.
// Returns 503 Service Unavailable until the analysis pipeline is built.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		ready := s.services != nil
		s.mu.RUnlock()

		if !ready {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"server not fully initialized"}`))
			return
		}
		next(w, r)
	}
}
