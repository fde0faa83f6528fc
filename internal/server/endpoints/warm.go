package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/readaloud/readaloud/internal/api"
	"github.com/readaloud/readaloud/internal/svcctx"
)

// WarmRequest pre-generates speech for a submitted link.
type WarmRequest struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// WarmResponse acknowledges the pre-warm request.
type WarmResponse struct {
	Accepted bool `json:"accepted"`
}

// WarmEndpoint handles POST /api/v1/listen/warm. The pre-warm is
// fire-and-forget: acceptance says nothing about whether generation
// will succeed.
type WarmEndpoint struct{}

func (e *WarmEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/v1/listen/warm", e.handler
}

func (e *WarmEndpoint) RequiresInit() bool { return true }

func (e *WarmEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req WarmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	if req.ID == "" {
		req.ID = req.URL
	}

	svcctx.EagerFrom(r.Context()).Warm(req.ID, req.URL)
	writeJSON(w, http.StatusAccepted, WarmResponse{Accepted: true})
}

func (e *WarmEndpoint) Command(getServerURL func() string) *cobra.Command {
	var (
		contentID string
		rawURL    string
	)

	cmd := &cobra.Command{
		Use:   "warm",
		Short: "Pre-generate speech for a link in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp WarmResponse
			req := WarmRequest{ID: contentID, URL: rawURL}
			if err := client.Post(cmd.Context(), "/api/v1/listen/warm", req, &resp); err != nil {
				return err
			}
			fmt.Println("Pre-warm accepted")
			return nil
		},
	}

	cmd.Flags().StringVar(&contentID, "id", "", "Content ID (cache key)")
	cmd.Flags().StringVar(&rawURL, "url", "", "Article URL")
	cmd.MarkFlagRequired("url")
	return cmd
}
