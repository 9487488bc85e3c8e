package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/healthchain/medvision/internal/api"
	"github.com/healthchain/medvision/internal/modelhost"
	"github.com/healthchain/medvision/internal/providers"
	"github.com/healthchain/medvision/internal/svcctx"
)

// HealthResponse is the response for health check endpoints.
type HealthResponse struct {
	Status string `json:"status"`
	Model  string `json:"model,omitempty"`
}

// HealthEndpoint handles GET /health.
type HealthEndpoint struct{}

func (e *HealthEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/health", e.handler
}

func (e *HealthEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary	Check server health
//	@Tags		health
//	@Produce	json
//	@Success	200	{object}	HealthResponse
//	@Router		/health [get]
func (e *HealthEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (e *HealthEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/health", &resp); err != nil {
				return err
			}
			fmt.Printf("Status: %s\n", resp.Status)
			return nil
		},
	}
}

// ReadyEndpoint handles GET /ready.
type ReadyEndpoint struct{}

func (e *ReadyEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/ready", e.handler
}

func (e *ReadyEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary	Check server readiness including the vision model endpoint
//	@Tags		health
//	@Produce	json
//	@Success	200	{object}	HealthResponse
//	@Failure	503	{object}	HealthResponse
//	@Router		/ready [get]
func (e *ReadyEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Model: "ok"}

	registry := svcctx.RegistryFrom(r.Context())
	if registry == nil {
		resp.Status = "degraded"
		resp.Model = "not_initialized"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	client := registry.Client()
	hc, ok := client.(providers.HealthChecker)
	if !ok {
		writeJSON(w, http.StatusOK, resp)
		return
	}
	if err := hc.Health(r.Context()); err != nil {
		resp.Status = "degraded"
		resp.Model = "unhealthy"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *ReadyEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "ready",
		Short: "Check server readiness (includes model endpoint)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/ready", &resp); err != nil {
				return err
			}
			fmt.Printf("Status: %s\n", resp.Status)
			if resp.Model != "" {
				fmt.Printf("Model:  %s\n", resp.Model)
			}
			return nil
		},
	}
}

// StatusResponse is the detailed status response.
type StatusResponse struct {
	Server   string          `json:"server"`
	Provider ProviderStatus  `json:"provider"`
	Ollama   ContainerStatus `json:"ollama"`
}

// ProviderStatus identifies the active vision backend.
type ProviderStatus struct {
	Name   string `json:"name"`
	Health string `json:"health"`
}

// ContainerStatus shows the managed Ollama container state.
type ContainerStatus struct {
	Container string `json:"container"`
	URL       string `json:"url,omitempty"`
}

// StatusEndpoint handles GET /status.
type StatusEndpoint struct {
	// ModelHost is set by server since the container manager predates Services
	ModelHost *modelhost.DockerManager
}

func (e *StatusEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/status", e.handler
}

func (e *StatusEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary	Get detailed server status
//	@Tags		health
//	@Produce	json
//	@Success	200	{object}	StatusResponse
//	@Router		/status [get]
func (e *StatusEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Server: "running",
	}

	registry := svcctx.RegistryFrom(r.Context())
	if registry != nil {
		client := registry.Client()
		if client != nil {
			resp.Provider.Name = client.Name()
			resp.Provider.Health = "unknown"
			if hc, ok := client.(providers.HealthChecker); ok {
				if err := hc.Health(r.Context()); err != nil {
					resp.Provider.Health = "unhealthy"
				} else {
					resp.Provider.Health = "healthy"
				}
			}
		}
	}

	if e.ModelHost != nil {
		status, err := e.ModelHost.Status(r.Context())
		if err != nil {
			resp.Ollama.Container = "error"
		} else {
			resp.Ollama.Container = string(status)
		}
		resp.Ollama.URL = e.ModelHost.URL()
	} else {
		resp.Ollama.Container = "unmanaged"
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *StatusEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Get detailed server status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp StatusResponse
			if err := client.Get(cmd.Context(), "/status", &resp); err != nil {
				return err
			}
			fmt.Printf("Server: %s\n", resp.Server)
			fmt.Printf("Provider:\n")
			fmt.Printf("  Name:   %s\n", resp.Provider.Name)
			fmt.Printf("  Health: %s\n", resp.Provider.Health)
			fmt.Printf("Ollama:\n")
			fmt.Printf("  Container: %s\n", resp.Ollama.Container)
			if resp.Ollama.URL != "" {
				fmt.Printf("  URL:       %s\n", resp.Ollama.URL)
			}
			return nil
		},
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
