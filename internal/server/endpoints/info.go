package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/healthchain/medvision/internal/api"
	"github.com/healthchain/medvision/version"
)

// InfoResponse describes the running service.
type InfoResponse struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Commit  string `json:"commit,omitempty"`
	Docs    string `json:"docs"`
}

// InfoEndpoint handles GET /.
type InfoEndpoint struct{}

var _ api.Endpoint = (*InfoEndpoint)(nil)

func (e *InfoEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/{$}", e.handler
}

func (e *InfoEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary	Service identification
//	@Tags		info
//	@Produce	json
//	@Success	200	{object}	InfoResponse
//	@Router		/ [get]
func (e *InfoEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, InfoResponse{
		Service: "medvision",
		Version: version.GitRelease,
		Commit:  version.GitCommit,
		Docs:    "/swagger",
	})
}

func (e *InfoEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show server identification",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp InfoResponse
			if err := client.Get(cmd.Context(), "/", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
