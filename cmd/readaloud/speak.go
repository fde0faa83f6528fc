package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/readaloud/readaloud/internal/api"
	"github.com/readaloud/readaloud/internal/server/endpoints"
	"github.com/readaloud/readaloud/internal/speech"
)

var (
	speakID    string
	speakURL   string
	speakText  string
	speakEager bool
	speakWait  bool
)

var speakCmd = &cobra.Command{
	Use:   "speak",
	Short: "Generate speech for an article or text",
	Long: `Generate speech through the running server.

With --eager the request is fire-and-forget: the server pre-generates
audio in the background so a later playback request hits the cache.

Examples:
  readaloud speak --url https://example.com/story
  readaloud speak --text "Hello world" --id greeting
  readaloud speak --url https://example.com/story --eager`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := api.NewClient(getServerURL())

		if speakEager {
			if speakURL == "" {
				return fmt.Errorf("--eager requires --url")
			}
			req := endpoints.WarmRequest{ID: speakID, URL: speakURL}
			var resp endpoints.WarmResponse
			if err := client.Post(cmd.Context(), "/api/v1/listen/warm", req, &resp); err != nil {
				return err
			}
			fmt.Println("Pre-warm accepted")
			return nil
		}

		req := endpoints.ListenRequest{ID: speakID, URL: speakURL, Text: speakText}
		var resp endpoints.ListenResponse
		if err := client.Post(cmd.Context(), "/api/v1/listen", req, &resp); err != nil {
			return err
		}

		if speakWait && resp.Result != nil && resp.Status == "generating" {
			status := resp.Status
			for status == "generating" {
				time.Sleep(time.Second)
				var st speech.Status
				if err := client.Get(cmd.Context(), "/api/v1/listen/status/"+resp.AudioID, &st); err != nil {
					return err
				}
				status = st.Status
			}
			// Re-fetch for the final cached result with all chunks.
			if err := client.Post(cmd.Context(), "/api/v1/listen", req, &resp); err != nil {
				return err
			}
		}

		return api.Output(resp)
	},
}

func init() {
	speakCmd.Flags().StringVar(&speakID, "id", "", "Content ID (cache key)")
	speakCmd.Flags().StringVar(&speakURL, "url", "", "Article URL to extract and read")
	speakCmd.Flags().StringVar(&speakText, "text", "", "Raw text to read")
	speakCmd.Flags().BoolVar(&speakEager, "eager", false, "Pre-generate in the background instead of waiting")
	speakCmd.Flags().BoolVar(&speakWait, "wait", false, "Poll until all chunks are generated")

	rootCmd.AddCommand(speakCmd)
}
