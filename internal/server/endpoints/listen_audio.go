package endpoints

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/readaloud/readaloud/internal/api"
	"github.com/readaloud/readaloud/internal/svcctx"
)

// ListenAudioEndpoint handles GET /api/v1/listen/audio/{chunk_id}.
// Chunk IDs are "{audioId}_{index}", or a bare "{audioId}" for entries
// cached before chunked generation existed.
type ListenAudioEndpoint struct{}

func (e *ListenAudioEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/v1/listen/audio/{chunk_id}", e.handler
}

func (e *ListenAudioEndpoint) RequiresInit() bool { return true }

func (e *ListenAudioEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	chunkID := r.PathValue("chunk_id")
	if !validChunkID(chunkID) {
		writeError(w, http.StatusBadRequest, "invalid chunk id")
		return
	}

	store := svcctx.StoreFrom(r.Context())
	if !store.HasChunk(chunkID) {
		writeError(w, http.StatusNotFound, "audio chunk not found")
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	http.ServeFile(w, r, store.ChunkPath(chunkID))
}

// validChunkID rejects anything that could escape the cache directory.
func validChunkID(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return false
		}
	}
	return !strings.Contains(id, "..")
}

func (e *ListenAudioEndpoint) Command(getServerURL func() string) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "listen-audio <chunk-id>",
		Short: "Download an audio chunk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			data, _, err := client.GetBytes(cmd.Context(), "/api/v1/listen/audio/"+args[0])
			if err != nil {
				return err
			}

			path := outPath
			if path == "" {
				path = args[0] + ".mp3"
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("failed to write audio file: %w", err)
			}
			fmt.Printf("Wrote %d bytes to %s\n", len(data), path)
			return nil
		},
	}

	cmd.Flags().StringVar(&outPath, "out", "", "Output file (default: <chunk-id>.mp3)")
	return cmd
}
