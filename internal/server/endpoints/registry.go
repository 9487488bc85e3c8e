package endpoints

import (
	"github.com/healthchain/medvision/internal/api"
	"github.com/healthchain/medvision/internal/modelhost"
)

// Config holds dependencies needed by some endpoints.
type Config struct {
	ModelHost       *modelhost.DockerManager
	SwaggerSpecPath string
}

// All returns all endpoint instances.
func All(cfg Config) []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&StatusEndpoint{ModelHost: cfg.ModelHost},

		// Analysis
		&AnalyzeEndpoint{},

		// Config
		&ConfigEndpoint{},

		// Service info
		&InfoEndpoint{},

		// Swagger/OpenAPI endpoints
		&SwaggerEndpoint{SpecPath: cfg.SwaggerSpecPath},
		&SwaggerUIEndpoint{},
	}
}
