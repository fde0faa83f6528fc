package main

import (
	"github.com/readaloud/readaloud/internal/api"
	"github.com/readaloud/readaloud/internal/server/endpoints"
)

func init() {
	// Endpoint-backed commands live under the api group
	registry := api.NewRegistry()
	for _, ep := range endpoints.All() {
		registry.Register(ep)
	}
	rootCmd.AddCommand(registry.BuildCommands(getServerURL))

	// Frequently used endpoints also get top-level commands
	rootCmd.AddCommand((&endpoints.ExtractEndpoint{}).Command(getServerURL))
	rootCmd.AddCommand((&endpoints.StatusEndpoint{}).Command(getServerURL))
}
