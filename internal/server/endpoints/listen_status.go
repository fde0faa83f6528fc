package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/readaloud/readaloud/internal/api"
	"github.com/readaloud/readaloud/internal/speech"
	"github.com/readaloud/readaloud/internal/svcctx"
)

// ListenStatusEndpoint handles GET /api/v1/listen/status/{audio_id}.
// Polled by players while chunks are still generating.
type ListenStatusEndpoint struct{}

func (e *ListenStatusEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/v1/listen/status/{audio_id}", e.handler
}

func (e *ListenStatusEndpoint) RequiresInit() bool { return true }

func (e *ListenStatusEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	audioID := r.PathValue("audio_id")
	if audioID == "" {
		writeError(w, http.StatusBadRequest, "missing audio_id")
		return
	}

	gen := svcctx.GeneratorFrom(r.Context())
	writeJSON(w, http.StatusOK, gen.GetStatus(audioID))
}

func (e *ListenStatusEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "listen-status <audio-id>",
		Short: "Get generation progress for an audio ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp speech.Status
			if err := client.Get(cmd.Context(), "/api/v1/listen/status/"+args[0], &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
