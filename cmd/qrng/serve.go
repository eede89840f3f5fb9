package main

import (
	"context"
	"fmt"

	"github.com/artpar/qrng/bootstrap"
	"github.com/spf13/cobra"
)

var (
	hotReload bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the qrng HTTP API.

The server will:
  - Load configuration from qrng.yaml (or --config)
  - Or load configuration from QRNG_* environment variables
  - Restore the persisted buffer when a store is configured
  - Warm the buffer up in the background, retrying with backoff
  - Serve draws under /v1 with health checks under /health

Environment variables (for Docker deployments):
  QRNG_PROVIDER_MODE     - remote or local (default: remote)
  QRNG_PROVIDER_URL      - Provider endpoint
  QRNG_CACHE_SIZE        - Buffered hex digits (default: 1000)
  QRNG_STORE_DRIVER      - none, memory, sqlite or bolt
  QRNG_SERVER_PORT       - Server port (default: 8080)
  QRNG_LOG_LEVEL         - Log level: debug, info, warn, error

Examples:
  qrng serve
  qrng serve --config /etc/qrng/config.yaml
  qrng serve --hot-reload=false`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&hotReload, "hot-reload", true, "enable hot reload of configuration")
}

func runServe(cmd *cobra.Command, args []string) error {
	app, err := bootstrap.New(context.Background(), bootstrap.Options{ConfigPath: cfgFile})
	if err != nil {
		return fmt.Errorf("error initializing: %w", err)
	}

	if hotReload {
		if err := app.WatchConfig(); err != nil {
			app.Logger.Warn().Err(err).Msg("config hot reload disabled")
		}
	}

	// Run (blocks until shutdown)
	return app.Run()
}
