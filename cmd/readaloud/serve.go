package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/readaloud/readaloud/internal/config"
	"github.com/readaloud/readaloud/internal/home"
	"github.com/readaloud/readaloud/internal/server"
)

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the readaloud server",
	Long: `Start the readaloud HTTP server.

The server reconciles the on-disk speech cache, registers synthesis
providers from configuration, and serves the listen/extract API.
Configuration is hot-reloaded when the config file changes.

Examples:
  readaloud serve                    # Start on default port 8484
  readaloud serve --port 3000        # Start on custom port
  readaloud serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))

		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		mgr, err := config.NewManager(cfgFile)
		if err != nil {
			return err
		}
		mgr.WatchConfig()

		srv, err := server.New(server.Config{
			Host:          serveHost,
			Port:          servePort,
			Home:          h,
			ConfigManager: mgr,
			Logger:        logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Host to bind to")
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (default from config)")

	rootCmd.AddCommand(serveCmd)
}
