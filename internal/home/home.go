package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the readaloud home directory.
	DefaultDirName = ".readaloud"

	// CacheDirName is the subdirectory for speech cache metadata and audio chunks.
	CacheDirName = "listen-cache"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"
)

// Dir represents the readaloud home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.readaloud).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// CachePath returns the path to the speech cache directory.
func (d *Dir) CachePath() string {
	return filepath.Join(d.path, CacheDirName)
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	if err := os.MkdirAll(d.CachePath(), 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	return nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}

// MetadataPath returns the path to the cache metadata file for a cache key.
func (d *Dir) MetadataPath(cacheKey string) string {
	return filepath.Join(d.CachePath(), cacheKey+".json")
}

// ChunkAudioPath returns the path to a chunk audio file.
// Chunk resource IDs are "{audioID}_{index}" for chunked entries and a bare
// "{audioID}" for legacy single-file entries; both map to "<id>.mp3".
func (d *Dir) ChunkAudioPath(chunkID string) string {
	return filepath.Join(d.CachePath(), chunkID+".mp3")
}

// ChunkFileName returns the chunk resource ID for an audioID and chunk index.
func ChunkFileName(audioID string, idx int) string {
	return fmt.Sprintf("%s_%d", audioID, idx)
}
