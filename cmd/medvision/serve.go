package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/healthchain/medvision/internal/config"
	"github.com/healthchain/medvision/internal/server"
)

var serveManagedHost bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the medvision server",
	Long: `Start the medvision HTTP server.

With model_host.managed enabled in config this also starts a local Ollama
container and stops it again on shutdown (Ctrl+C or SIGTERM).

The server provides:
  - POST /api/analyze - Analyze an uploaded medical report
  - /health           - Basic server health check
  - /ready            - Readiness check (includes the model endpoint)

Examples:
  medvision serve                          # Start on default port 8000
  medvision serve --config ./config.yaml   # Use a specific config file
  medvision serve --managed-model-host     # Also run a local Ollama container`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))

		cfgMgr, err := config.NewManager(cfgFile)
		if err != nil {
			return err
		}

		srvCfg := server.Config{
			ConfigManager: cfgMgr,
			Logger:        logger,
		}
		if cmd.Flags().Changed("managed-model-host") {
			srvCfg.ManagedModelHost = &serveManagedHost
		}

		srv, err := server.New(srvCfg)
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveManagedHost, "managed-model-host", false,
		"Start and manage a local Ollama container (overrides model_host.managed)")
	rootCmd.AddCommand(serveCmd)
}
