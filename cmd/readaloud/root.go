package main

import (
	"github.com/spf13/cobra"

	"github.com/readaloud/readaloud/internal/api"
	"github.com/readaloud/readaloud/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
	serverURL    string
)

var rootCmd = &cobra.Command{
	Use:   "readaloud",
	Short: "Turn web articles into progressively streamed speech",
	Long: `Readaloud extracts readable text from web articles and social posts
and turns it into chunked speech audio with word-level timestamps.

The pipeline includes:
  - Readability-style article extraction (plus Farcaster and X posts)
  - Progressive chunked synthesis: a small first chunk for fast playback
  - Word timestamps mapped from provider character alignments
  - A durable audio cache with an in-memory LRU index`,
	Version: version.GitRelease,
}

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	return serverURL
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.readaloud/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "readaloud home directory (default: ~/.readaloud)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)
	rootCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:8484", "Server URL for commands that call a running server",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}
