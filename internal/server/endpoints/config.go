package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/healthchain/medvision/internal/api"
	"github.com/healthchain/medvision/internal/config"
	"github.com/healthchain/medvision/internal/svcctx"
)

// ConfigResponse is the effective server configuration with secrets redacted.
type ConfigResponse struct {
	Provider  config.ProviderCfg  `json:"provider"`
	Rasterize config.RasterizeCfg `json:"rasterize"`
	Analysis  config.AnalysisCfg  `json:"analysis"`
	ModelHost config.ModelHostCfg `json:"model_host"`
}

// ConfigEndpoint handles GET /api/config.
type ConfigEndpoint struct{}

var _ api.Endpoint = (*ConfigEndpoint)(nil)

func (e *ConfigEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/config", e.handler
}

func (e *ConfigEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary	Show effective configuration
//	@Tags		config
//	@Produce	json
//	@Success	200	{object}	ConfigResponse
//	@Failure	503	{object}	ErrorResponse
//	@Router		/api/config [get]
func (e *ConfigEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	mgr := svcctx.ConfigManagerFrom(r.Context())
	if mgr == nil {
		writeError(w, http.StatusServiceUnavailable, "config manager not initialized")
		return
	}

	cfg := mgr.Get()
	resp := ConfigResponse{
		Provider:  cfg.Provider,
		Rasterize: cfg.Rasterize,
		Analysis:  cfg.Analysis,
		ModelHost: cfg.ModelHost,
	}
	// Never leak resolved credentials
	if resp.Provider.APIKey != "" {
		resp.Provider.APIKey = "[redacted]"
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *ConfigEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show effective server config",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ConfigResponse
			if err := client.Get(cmd.Context(), "/api/config", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
