package providers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ClientConfig describes one vision backend, decoupled from the config
// package so the two don't import each other.
type ClientConfig struct {
	Type          string // "ollama", "openai", "mock"
	Model         string
	BaseURL       string
	APIKey        string
	Timeout       time.Duration
	Temperature   float64
	TopP          float64
	RepeatPenalty float64
	NumPredict    int
}

// NewClient constructs a VisionClient from its configuration.
func NewClient(cfg ClientConfig) (VisionClient, error) {
	switch cfg.Type {
	case OllamaClientName, "":
		return NewOllamaClient(OllamaConfig{
			BaseURL:       cfg.BaseURL,
			Model:         cfg.Model,
			Timeout:       cfg.Timeout,
			Temperature:   cfg.Temperature,
			TopP:          cfg.TopP,
			RepeatPenalty: cfg.RepeatPenalty,
			NumPredict:    cfg.NumPredict,
		}), nil
	case OpenAIClientName:
		return NewOpenAIClient(OpenAIConfig{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			BaseURL:     cfg.BaseURL,
			Timeout:     cfg.Timeout,
			Temperature: cfg.Temperature,
			TopP:        cfg.TopP,
			MaxTokens:   cfg.NumPredict,
		}), nil
	case MockClientName:
		return NewMockClient(""), nil
	default:
		return nil, fmt.Errorf("unsupported vision provider type: %s", cfg.Type)
	}
}

// Registry holds the active vision client and rebuilds it on config reload.
type Registry struct {
	mu     sync.RWMutex
	logger *slog.Logger
	client VisionClient
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{logger: slog.Default()}
}

// SetLogger sets the logger used for reload events.
func (r *Registry) SetLogger(logger *slog.Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// Reload replaces the active client from configuration. An invalid config
// keeps the previous client so a bad hot-reload doesn't kill the service.
func (r *Registry) Reload(cfg ClientConfig) {
	client, err := NewClient(cfg)
	if err != nil {
		r.logger.Error("failed to build vision client, keeping previous", "error", err)
		return
	}
	r.mu.Lock()
	r.client = client
	r.mu.Unlock()
	r.logger.Info("vision client configured", "provider", client.Name(), "model", cfg.Model)
}

// Client returns the active vision client, or nil if none configured.
func (r *Registry) Client() VisionClient {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.client
}

// Extract delegates to the active client so long-lived analyzers pick up
// hot-reloaded backends without rewiring.
func (r *Registry) Extract(ctx context.Context, prompt string, image []byte) (string, error) {
	client := r.Client()
	if client == nil {
		return "", fmt.Errorf("no vision client configured")
	}
	return client.Extract(ctx, prompt, image)
}

// Name returns the active client's identifier.
func (r *Registry) Name() string {
	if client := r.Client(); client != nil {
		return client.Name()
	}
	return "unconfigured"
}

var _ VisionClient = (*Registry)(nil)
