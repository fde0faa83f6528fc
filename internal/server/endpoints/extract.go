package endpoints

import (
	"encoding/json"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/readaloud/readaloud/internal/api"
	"github.com/readaloud/readaloud/internal/extract"
	"github.com/readaloud/readaloud/internal/svcctx"
)

// ExtractRequest asks for article extraction without speech generation.
type ExtractRequest struct {
	URL string `json:"url"`
}

// ExtractEndpoint handles POST /api/v1/extract.
type ExtractEndpoint struct{}

func (e *ExtractEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/v1/extract", e.handler
}

func (e *ExtractEndpoint) RequiresInit() bool { return false }

func (e *ExtractEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	extractor := svcctx.ExtractorFrom(r.Context())
	article, err := extractor.Extract(r.Context(), req.URL)
	if err != nil {
		writeExtractError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, article)
}

func (e *ExtractEndpoint) Command(getServerURL func() string) *cobra.Command {
	var rawURL string

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract an article (title, text, markup) without generating speech",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp extract.Article
			if err := client.Post(cmd.Context(), "/api/v1/extract", ExtractRequest{URL: rawURL}, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}

	cmd.Flags().StringVar(&rawURL, "url", "", "Article URL")
	cmd.MarkFlagRequired("url")
	return cmd
}
