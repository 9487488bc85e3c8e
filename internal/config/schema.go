package config

import (
	"github.com/healthchain/medvision/internal/providers"
	"github.com/healthchain/medvision/internal/rasterize"
)

// Config holds medvision configuration.
// Stored at: ./config.yaml or $HOME/.medvision/config.yaml
type Config struct {
	Server    ServerCfg    `mapstructure:"server" yaml:"server"`
	Provider  ProviderCfg  `mapstructure:"provider" yaml:"provider"`
	Rasterize RasterizeCfg `mapstructure:"rasterize" yaml:"rasterize"`
	Analysis  AnalysisCfg  `mapstructure:"analysis" yaml:"analysis"`
	ModelHost ModelHostCfg `mapstructure:"model_host" yaml:"model_host"`
}

// ServerCfg configures the HTTP listener.
type ServerCfg struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

// ProviderCfg configures the vision model backend.
type ProviderCfg struct {
	Type           string  `mapstructure:"type" yaml:"type"`         // "ollama", "openai", "mock"
	Model          string  `mapstructure:"model" yaml:"model"`       // Model name
	BaseURL        string  `mapstructure:"base_url" yaml:"base_url"` // Endpoint URL
	APIKey         string  `mapstructure:"api_key" yaml:"api_key"`   // API key (supports ${ENV_VAR} syntax)
	TimeoutSeconds int     `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	Temperature    float64 `mapstructure:"temperature" yaml:"temperature"`
	TopP           float64 `mapstructure:"top_p" yaml:"top_p"`
	RepeatPenalty  float64 `mapstructure:"repeat_penalty" yaml:"repeat_penalty"`
	NumPredict     int     `mapstructure:"num_predict" yaml:"num_predict"`
}

// RasterizeCfg configures PDF page rendering.
type RasterizeCfg struct {
	DPI int `mapstructure:"dpi" yaml:"dpi"`
}

// AnalysisCfg configures per-page analysis and report grouping.
type AnalysisCfg struct {
	Attempts          int    `mapstructure:"attempts" yaml:"attempts"`
	RetryDelaySeconds int    `mapstructure:"retry_delay_seconds" yaml:"retry_delay_seconds"`
	MergePolicy       string `mapstructure:"merge_policy" yaml:"merge_policy"` // "first_non_empty", "last_non_empty"
}

// ModelHostCfg holds Ollama container configuration.
type ModelHostCfg struct {
	// Managed controls whether the server starts and supervises its own
	// Ollama container instead of relying on an external endpoint.
	Managed bool `mapstructure:"managed" yaml:"managed"`
	// ContainerName is the Docker container name (default: medvision-ollama)
	ContainerName string `mapstructure:"container_name" yaml:"container_name"`
	// Image is the Docker image to use (default: ollama/ollama:latest)
	Image string `mapstructure:"image" yaml:"image"`
	// Port is the host port to bind (default: 11434)
	Port string `mapstructure:"port" yaml:"port"`
	// DataPath is mounted at /root/.ollama so model weights survive restarts.
	DataPath string `mapstructure:"data_path" yaml:"data_path"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerCfg{
			Host: "0.0.0.0",
			Port: 8000,
		},
		Provider: ProviderCfg{
			Type:           providers.OllamaClientName,
			Model:          providers.OllamaDefaultModel,
			BaseURL:        providers.OllamaDefaultURL,
			APIKey:         "${OPENAI_API_KEY}",
			TimeoutSeconds: 60,
			Temperature:    providers.DefaultTemperature,
			TopP:           providers.DefaultTopP,
			RepeatPenalty:  providers.DefaultRepeatPenalty,
			NumPredict:     providers.DefaultNumPredict,
		},
		Rasterize: RasterizeCfg{
			DPI: rasterize.DefaultDPI,
		},
		Analysis: AnalysisCfg{
			Attempts:          3,
			RetryDelaySeconds: 2,
			MergePolicy:       "first_non_empty",
		},
		ModelHost: ModelHostCfg{
			Managed:       false,
			ContainerName: "medvision-ollama",
			Image:         "ollama/ollama:latest",
			Port:          "11434",
			DataPath:      "$HOME/.medvision/ollama",
		},
	}
}
