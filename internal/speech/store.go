package speech

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	DefaultMaxEntries = 100
	DefaultMaxBytes   = 50 * 1024 * 1024
)

// StoreConfig holds configuration for the cache store.
type StoreConfig struct {
	Dir        string // Cache directory (metadata + chunk audio files)
	MaxEntries int    // In-memory index entry bound
	MaxBytes   int64  // In-memory index metadata byte budget
	Logger     *slog.Logger
}

// Store is the durable cache: JSON metadata plus binary chunk files on
// disk, fronted by a bounded LRU index of metadata in memory. Disk is
// the source of truth; evicting an index entry never deletes files, and
// a Get for an evicted key reloads it from disk.
type Store struct {
	dir      string
	maxBytes int64
	logger   *slog.Logger

	mu         sync.Mutex
	index      *lru.Cache[string, *CacheEntry]
	sizes      map[string]int64
	totalBytes int64
}

// NewStore creates the store and its cache directory.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("cache directory is required")
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	s := &Store{
		dir:      cfg.Dir,
		maxBytes: cfg.MaxBytes,
		logger:   cfg.Logger,
		sizes:    make(map[string]int64),
	}

	// The eviction callback only runs inside index operations, which all
	// happen with s.mu held, so it mutates the accounting directly.
	index, err := lru.NewWithEvict(cfg.MaxEntries, func(key string, _ *CacheEntry) {
		s.totalBytes -= s.sizes[key]
		delete(s.sizes, key)
	})
	if err != nil {
		return nil, err
	}
	s.index = index

	return s, nil
}

// MetadataPath returns the metadata file path for a cache key.
func (s *Store) MetadataPath(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// ChunkPath returns the audio file path for a chunk ID.
func (s *Store) ChunkPath(chunkID string) string {
	return filepath.Join(s.dir, chunkID+".mp3")
}

// Get returns the entry for key, falling back to disk when the index has
// evicted it. Disk hits are verified (all chunk files present) and
// promoted back into the index.
func (s *Store) Get(key string) (*CacheEntry, bool) {
	s.mu.Lock()
	if entry, ok := s.index.Get(key); ok {
		s.mu.Unlock()
		return entry, true
	}
	s.mu.Unlock()

	entry, err := s.loadFromDisk(key)
	if err != nil {
		return nil, false
	}

	s.mu.Lock()
	s.track(key, entry)
	s.mu.Unlock()
	return entry, true
}

// Put persists the entry's metadata and indexes it. The chunk audio
// files must already be on disk (the orchestrator writes them as each
// chunk completes).
func (s *Store) Put(key string, entry *CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	path := s.MetadataPath(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	s.mu.Lock()
	s.track(key, entry)
	s.mu.Unlock()
	return nil
}

// WriteChunk persists one chunk's audio and returns its chunk ID.
func (s *Store) WriteChunk(audioID string, idx int, audio []byte) (string, error) {
	chunkID := fmt.Sprintf("%s_%d", audioID, idx)
	if err := os.WriteFile(s.ChunkPath(chunkID), audio, 0o644); err != nil {
		return "", fmt.Errorf("failed to write chunk %s: %w", chunkID, err)
	}
	return chunkID, nil
}

// HasChunk reports whether a chunk audio file exists.
func (s *Store) HasChunk(chunkID string) bool {
	_, err := os.Stat(s.ChunkPath(chunkID))
	return err == nil
}

// Reconcile scans the cache directory once at startup, loading every
// metadata file whose chunk audio files are all present. Incomplete or
// corrupted entries are skipped and logged, never deleted.
func (s *Store) Reconcile() (loaded, skipped int) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Warn("cache reconcile failed to read directory", "dir", s.dir, "error", err)
		return 0, 0
	}

	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		key := strings.TrimSuffix(name, ".json")

		entry, err := s.loadFromDisk(key)
		if err != nil {
			s.logger.Warn("skipping cache entry", "key", key, "error", err)
			skipped++
			continue
		}

		s.mu.Lock()
		s.track(key, entry)
		s.mu.Unlock()
		loaded++
	}

	s.logger.Info("cache reconciled", "loaded", loaded, "skipped", skipped)
	return loaded, skipped
}

// Len returns the number of indexed entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Len()
}

// StoreStats reports index occupancy for the status endpoint.
type StoreStats struct {
	Entries       int   `json:"entries"`
	MetadataBytes int64 `json:"metadata_bytes"`
}

// Stats returns current index occupancy.
func (s *Store) Stats() StoreStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StoreStats{Entries: s.index.Len(), MetadataBytes: s.totalBytes}
}

// loadFromDisk reads and verifies one entry's metadata.
func (s *Store) loadFromDisk(key string) (*CacheEntry, error) {
	data, err := os.ReadFile(s.MetadataPath(key))
	if err != nil {
		return nil, err
	}

	entry, err := decodeEntry(data)
	if err != nil {
		return nil, err
	}

	for i := range entry.Chunks {
		chunkID := entry.ChunkID(i)
		if !s.HasChunk(chunkID) {
			return nil, fmt.Errorf("missing chunk file %s", chunkID)
		}
	}

	return entry, nil
}

// track indexes an entry and enforces the metadata byte budget. Must be
// called with s.mu held. Entry cost is its JSON-encoded size, so the
// budget roughly matches the on-disk metadata footprint.
func (s *Store) track(key string, entry *CacheEntry) {
	size := int64(0)
	if data, err := json.Marshal(entry); err == nil {
		size = int64(len(data))
	}

	if prev, ok := s.sizes[key]; ok {
		s.totalBytes -= prev
	}
	s.sizes[key] = size
	s.totalBytes += size
	s.index.Add(key, entry)

	for s.totalBytes > s.maxBytes && s.index.Len() > 1 {
		if _, _, ok := s.index.RemoveOldest(); !ok {
			break
		}
	}
}
