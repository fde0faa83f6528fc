package endpoints

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/readaloud/readaloud/internal/api"
	"github.com/readaloud/readaloud/internal/extract"
	"github.com/readaloud/readaloud/internal/providers"
	"github.com/readaloud/readaloud/internal/speech"
	"github.com/readaloud/readaloud/internal/svcctx"
)

// ListenRequest asks for speech audio for a piece of content. Text is
// used directly when present; otherwise the URL is extracted first. With
// only an ID the request is a cache lookup.
type ListenRequest struct {
	ID   string `json:"id,omitempty"`
	URL  string `json:"url,omitempty"`
	Text string `json:"text,omitempty"`
}

// ListenResponse is the speech result, with article fields populated
// when the text came from extraction.
type ListenResponse struct {
	*speech.Result
	Title  string `json:"title,omitempty"`
	Markup string `json:"markup,omitempty"`
}

// ListenEndpoint handles POST /api/v1/listen.
type ListenEndpoint struct{}

func (e *ListenEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/v1/listen", e.handler
}

func (e *ListenEndpoint) RequiresInit() bool { return true }

func (e *ListenEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req ListenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	gen := svcctx.GeneratorFrom(r.Context())
	resp := ListenResponse{}

	if req.Text == "" && req.URL != "" {
		extractor := svcctx.ExtractorFrom(r.Context())
		article, err := extractor.Extract(r.Context(), req.URL)
		if err != nil {
			writeExtractError(w, err)
			return
		}
		req.Text = article.PlainText
		resp.Title = article.Title
		resp.Markup = article.Markup
		if req.ID == "" {
			req.ID = req.URL
		}
	}

	// Without text this is a cache lookup only.
	if req.Text == "" {
		result, ok := gen.GetCached(speech.CacheKey(req.ID, ""))
		if !ok {
			writeError(w, http.StatusNotFound, speech.ErrNoText.Error())
			return
		}
		resp.Result = result
		writeJSON(w, http.StatusOK, resp)
		return
	}

	result, err := gen.GetOrStart(r.Context(), req.ID, req.Text)
	if err != nil {
		if errors.Is(err, speech.ErrNoText) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeProviderAwareError(w, err)
		return
	}
	resp.Result = result

	if result.Status == "generating" {
		writeJSON(w, http.StatusAccepted, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *ListenEndpoint) Command(getServerURL func() string) *cobra.Command {
	var (
		contentID string
		rawURL    string
		text      string
	)

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Generate (or fetch cached) speech for an article",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ListenResponse
			req := ListenRequest{ID: contentID, URL: rawURL, Text: text}
			if err := client.Post(cmd.Context(), "/api/v1/listen", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}

	cmd.Flags().StringVar(&contentID, "id", "", "Content ID (cache key)")
	cmd.Flags().StringVar(&rawURL, "url", "", "Article URL to extract and read")
	cmd.Flags().StringVar(&text, "text", "", "Raw text to read")
	return cmd
}

// writeExtractError maps extraction failures onto the HTTP error
// contract: the content was reachable but not convertible, so the
// request itself is unprocessable.
func writeExtractError(w http.ResponseWriter, err error) {
	var ee *extract.Error
	if errors.As(err, &ee) {
		writeJSON(w, http.StatusUnprocessableEntity, ExtractErrorResponse{
			Error: ee.Message,
			Kind:  string(ee.Kind),
		})
		return
	}
	writeError(w, http.StatusBadGateway, "extraction failed: "+err.Error())
}

// writeProviderAwareError distinguishes synthesis-provider failures from
// local ones.
func writeProviderAwareError(w http.ResponseWriter, err error) {
	var pe *providers.ProviderError
	var rle *providers.RateLimitError
	if errors.As(err, &pe) || errors.As(err, &rle) {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

// ExtractErrorResponse carries the extraction failure taxonomy.
type ExtractErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
