// Package svcctx provides service context for dependency injection via context.
// This package is separate from server to avoid import cycles with endpoints.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/healthchain/medvision/internal/analyze"
	"github.com/healthchain/medvision/internal/config"
	"github.com/healthchain/medvision/internal/modelhost"
	"github.com/healthchain/medvision/internal/providers"
	"github.com/healthchain/medvision/internal/report"
)

// Services holds all core services that flow through context.
// Components extract what they need via the individual extractors.
type Services struct {
	Analyzer      *analyze.DocumentAnalyzer
	Segregator    *report.Segregator
	Registry      *providers.Registry
	ConfigManager *config.Manager
	ModelHost     *modelhost.DockerManager
	Logger        *slog.Logger
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// AnalyzerFrom extracts the document analyzer from context.
func AnalyzerFrom(ctx context.Context) *analyze.DocumentAnalyzer {
	if s := ServicesFrom(ctx); s != nil {
		return s.Analyzer
	}
	return nil
}

// SegregatorFrom extracts the report segregator from context.
func SegregatorFrom(ctx context.Context) *report.Segregator {
	if s := ServicesFrom(ctx); s != nil {
		return s.Segregator
	}
	return nil
}

// RegistryFrom extracts the provider registry from context.
func RegistryFrom(ctx context.Context) *providers.Registry {
	if s := ServicesFrom(ctx); s != nil {
		return s.Registry
	}
	return nil
}

// ConfigManagerFrom extracts the config manager from context.
func ConfigManagerFrom(ctx context.Context) *config.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.ConfigManager
	}
	return nil
}

// ModelHostFrom extracts the managed model host from context.
func ModelHostFrom(ctx context.Context) *modelhost.DockerManager {
	if s := ServicesFrom(ctx); s != nil {
		return s.ModelHost
	}
	return nil
}

// LoggerFrom extracts the logger from context.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil {
		return s.Logger
	}
	return nil
}
