package endpoints

import (
	"github.com/readaloud/readaloud/internal/api"
)

// All returns all endpoint instances.
func All() []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&StatusEndpoint{},

		// Speech endpoints
		&ListenEndpoint{},
		&ListenStatusEndpoint{},
		&ListenAudioEndpoint{},
		&WarmEndpoint{},

		// Extraction endpoint
		&ExtractEndpoint{},
	}
}
