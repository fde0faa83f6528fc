package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/readaloud/readaloud/internal/providers"
	"github.com/readaloud/readaloud/internal/text"
)

// ErrNoText is returned when a request has no cached entry and no text
// to synthesize.
var ErrNoText = errors.New("no cached audio and no text provided")

// GeneratorConfig holds configuration for the orchestrator.
type GeneratorConfig struct {
	FirstChunkSize int           // First chunk byte bound (default 1000)
	MaxChunkSize   int           // Subsequent chunk byte bound (default 10000)
	Voice          string        // Provider voice override
	ChunkTimeout   time.Duration // Per-chunk synthesis timeout (default 120s)
	Logger         *slog.Logger
}

// Generator drives chunked speech generation: first chunk synchronously
// for a fast partial response, remaining chunks sequentially in a
// detached background goroutine that outlives the request. At most one
// generation runs per cache key at a time.
type Generator struct {
	store        *Store
	provider     providers.TTSProvider
	firstSize    int
	maxSize      int
	voice        string
	chunkTimeout time.Duration
	logger       *slog.Logger

	mu       sync.Mutex
	pending  map[string]*pendingGeneration // audioID -> in-flight state
	inflight map[string]string             // cacheKey -> audioID
}

// pendingGeneration tracks one in-flight generation. Only the goroutine
// owning the audioID mutates it (under g.mu); readers take snapshots.
type pendingGeneration struct {
	cacheKey   string
	audioID    string
	completed  int
	total      int
	chunks     []ChunkMeta
	timestamps []WordTimestamp
	wordOffset int
	timeOffset float64
	estimated  float64

	// Recent provider request IDs, carried for prosody stitching.
	requestIDs []string
}

// Result is the caller-facing view of a generation, either complete
// (from cache) or partial (first chunk ready, background running).
type Result struct {
	AudioID       string          `json:"audioId"`
	CacheKey      string          `json:"cacheKey"`
	Chunks        []ChunkMeta     `json:"chunks"`
	ChunkIDs      []string        `json:"chunkIds"`
	Timestamps    []WordTimestamp `json:"timestamps"`
	TotalDuration float64         `json:"totalDuration"`
	Status        string          `json:"status"` // "complete" or "generating"
	Completed     int             `json:"completed,omitempty"`
	Total         int             `json:"total,omitempty"`
}

// Status is the polling view of an in-flight generation.
type Status struct {
	Status        string          `json:"status"` // "complete" or "generating"
	Completed     int             `json:"completed,omitempty"`
	Total         int             `json:"total,omitempty"`
	Chunks        []ChunkMeta     `json:"chunks,omitempty"`
	ChunkIDs      []string        `json:"chunkIds,omitempty"`
	Timestamps    []WordTimestamp `json:"timestamps,omitempty"`
	TotalDuration float64         `json:"totalDuration,omitempty"`
}

// NewGenerator creates the orchestrator.
func NewGenerator(store *Store, provider providers.TTSProvider, cfg GeneratorConfig) *Generator {
	if cfg.FirstChunkSize <= 0 {
		cfg.FirstChunkSize = text.DefaultFirstChunkSize
	}
	if cfg.MaxChunkSize <= 0 {
		cfg.MaxChunkSize = text.DefaultMaxChunkSize
	}
	if cfg.ChunkTimeout <= 0 {
		cfg.ChunkTimeout = 120 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Generator{
		store:        store,
		provider:     provider,
		firstSize:    cfg.FirstChunkSize,
		maxSize:      cfg.MaxChunkSize,
		voice:        cfg.Voice,
		chunkTimeout: cfg.ChunkTimeout,
		logger:       cfg.Logger,
		pending:      make(map[string]*pendingGeneration),
		inflight:     make(map[string]string),
	}
}

// SetProvider swaps the synthesis provider and voice. Pending and
// in-flight state is untouched: running generations pick up the new
// provider on their next chunk, and status queries keep answering for
// generations started under the old one.
func (g *Generator) SetProvider(provider providers.TTSProvider, voice string) {
	g.mu.Lock()
	g.provider = provider
	g.voice = voice
	g.mu.Unlock()
}

// GetOrStart returns cached audio for (id, fullText), or starts a new
// generation. On a cold start the first chunk is synthesized before
// returning; remaining chunks continue in the background. A concurrent
// request for an in-flight key gets the in-flight partial state instead
// of a duplicate generation.
func (g *Generator) GetOrStart(ctx context.Context, id, fullText string) (*Result, error) {
	key := CacheKey(id, fullText)
	if key == "" {
		return nil, ErrNoText
	}

	if entry, ok := g.store.Get(key); ok {
		return completeResult(entry), nil
	}

	if fullText == "" {
		return nil, ErrNoText
	}

	chunks := text.Chunk(fullText, g.firstSize, g.maxSize)

	// Claim the key before the first provider call so racing requests
	// observe the in-flight generation instead of starting their own.
	g.mu.Lock()
	if audioID, busy := g.inflight[key]; busy {
		if p, ok := g.pending[audioID]; ok {
			result := p.snapshotResult()
			g.mu.Unlock()
			return result, nil
		}
		// Generation just finished between the store lookup and here.
		g.mu.Unlock()
		if entry, ok := g.store.Get(key); ok {
			return completeResult(entry), nil
		}
		return nil, fmt.Errorf("generation for %s finished without a cache entry", key)
	}

	audioID := uuid.NewString()
	p := &pendingGeneration{
		cacheKey: key,
		audioID:  audioID,
		total:    len(chunks),
	}
	g.inflight[key] = audioID
	g.pending[audioID] = p
	g.mu.Unlock()

	entry, err := g.generateFirstChunk(ctx, p, chunks[0], fullText)
	if err != nil {
		g.abandon(p, err)
		return nil, err
	}

	if len(chunks) == 1 {
		if err := g.store.Put(key, entry); err != nil {
			err = fmt.Errorf("failed to persist %s: %w", key, err)
			g.abandon(p, err)
			return nil, err
		}
		g.finish(p)
		return completeResult(entry), nil
	}

	// Detached continuation: it must outlive this request, so it runs on
	// its own context.
	go g.continueGeneration(context.Background(), p, chunks)

	g.mu.Lock()
	result := p.snapshotResult()
	g.mu.Unlock()
	return result, nil
}

// GetCached returns the cached entry for a key without triggering
// generation.
func (g *Generator) GetCached(key string) (*Result, bool) {
	entry, ok := g.store.Get(key)
	if !ok {
		return nil, false
	}
	return completeResult(entry), true
}

// GetStatus reports progress for an audio ID. An unknown ID means the
// generation finished (or was single-chunk): status "complete".
func (g *Generator) GetStatus(audioID string) *Status {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.pending[audioID]
	if !ok {
		return &Status{Status: "complete"}
	}

	// Completed chunks carry real durations, so status reports the
	// accumulated timeline rather than the first-chunk extrapolation.
	return &Status{
		Status:        "generating",
		Completed:     p.completed,
		Total:         p.total,
		Chunks:        append([]ChunkMeta(nil), p.chunks...),
		ChunkIDs:      chunkIDs(p.audioID, len(p.chunks)),
		Timestamps:    append([]WordTimestamp(nil), p.timestamps...),
		TotalDuration: p.timeOffset,
	}
}

// generateFirstChunk synthesizes chunk 0, persists its audio, and seeds
// the pending state. On single-chunk texts the returned entry is final.
func (g *Generator) generateFirstChunk(ctx context.Context, p *pendingGeneration, chunkText, fullText string) (*CacheEntry, error) {
	chunk, timestamps, requestID, err := g.synthesizeChunk(ctx, chunkText, 0, 0, nil)
	if err != nil {
		return nil, err
	}

	audio := chunk.audio
	if _, err := g.store.WriteChunk(p.audioID, 0, audio); err != nil {
		return nil, err
	}

	meta := chunk.meta

	g.mu.Lock()
	p.completed = 1
	p.chunks = []ChunkMeta{meta}
	p.timestamps = timestamps
	p.wordOffset = meta.EndWord + 1
	p.timeOffset = meta.EndTime
	p.requestIDs = appendRequestID(nil, requestID)
	// Until later chunks report real durations, extrapolate the total
	// from the first chunk's pace.
	p.estimated = estimateTotalDuration(fullText, chunkText, meta.Duration)
	g.mu.Unlock()

	return &CacheEntry{
		CacheKey:      p.cacheKey,
		AudioID:       p.audioID,
		Chunks:        []ChunkMeta{meta},
		Timestamps:    timestamps,
		TotalDuration: meta.EndTime,
	}, nil
}

// continueGeneration synthesizes chunks 1..n-1 strictly in order,
// updating the pending state after each, and persists the final entry.
// Any failure abandons the generation: nothing is cached, and a later
// request retries from scratch.
func (g *Generator) continueGeneration(ctx context.Context, p *pendingGeneration, chunks []string) {
	for i := 1; i < len(chunks); i++ {
		g.mu.Lock()
		wordOffset := p.wordOffset
		timeOffset := p.timeOffset
		requestIDs := append([]string(nil), p.requestIDs...)
		g.mu.Unlock()

		chunk, timestamps, requestID, err := g.synthesizeChunk(ctx, chunks[i], wordOffset, timeOffset, requestIDs)
		if err != nil {
			g.logger.Error("background chunk generation failed",
				"key", p.cacheKey, "audio_id", p.audioID, "chunk", i, "error", err)
			g.abandon(p, err)
			return
		}

		if _, err := g.store.WriteChunk(p.audioID, i, chunk.audio); err != nil {
			g.logger.Error("background chunk write failed",
				"key", p.cacheKey, "audio_id", p.audioID, "chunk", i, "error", err)
			g.abandon(p, err)
			return
		}

		g.mu.Lock()
		p.completed = i + 1
		p.chunks = append(p.chunks, chunk.meta)
		p.timestamps = append(p.timestamps, timestamps...)
		p.wordOffset = chunk.meta.EndWord + 1
		p.timeOffset = chunk.meta.EndTime
		p.requestIDs = appendRequestID(p.requestIDs, requestID)
		g.mu.Unlock()
	}

	g.mu.Lock()
	entry := &CacheEntry{
		CacheKey:      p.cacheKey,
		AudioID:       p.audioID,
		Chunks:        append([]ChunkMeta(nil), p.chunks...),
		Timestamps:    append([]WordTimestamp(nil), p.timestamps...),
		TotalDuration: p.timeOffset,
	}
	g.mu.Unlock()

	if err := g.store.Put(p.cacheKey, entry); err != nil {
		g.logger.Error("failed to persist completed generation",
			"key", p.cacheKey, "audio_id", p.audioID, "error", err)
		g.abandon(p, err)
		return
	}

	g.finish(p)
	g.logger.Info("generation complete",
		"key", p.cacheKey, "audio_id", p.audioID,
		"chunks", len(entry.Chunks), "duration", entry.TotalDuration)
}

// synthesizedChunk pairs one chunk's audio with its timeline metadata.
type synthesizedChunk struct {
	audio []byte
	meta  ChunkMeta
}

// synthesizeChunk calls the provider for one chunk and maps its
// alignment into global word timestamps.
func (g *Generator) synthesizeChunk(ctx context.Context, chunkText string, wordOffset int, timeOffset float64, requestIDs []string) (*synthesizedChunk, []WordTimestamp, string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.chunkTimeout)
	defer cancel()

	g.mu.Lock()
	provider, voice := g.provider, g.voice
	g.mu.Unlock()

	result, err := provider.Synthesize(ctx, &providers.SpeechRequest{
		Text:               chunkText,
		Voice:              voice,
		PreviousRequestIDs: requestIDs,
	})
	if err != nil {
		return nil, nil, "", err
	}
	if !result.Alignment.Valid() {
		return nil, nil, "", fmt.Errorf("provider %s returned no alignment", provider.Name())
	}

	words := text.Words(chunkText)
	timestamps := MapWordTimestamps(result.Alignment, words, wordOffset, timeOffset)
	duration := result.Alignment.Duration()

	meta := ChunkMeta{
		Duration:  duration,
		StartTime: timeOffset,
		EndTime:   timeOffset + duration,
		StartWord: wordOffset,
		EndWord:   wordOffset + len(words) - 1,
	}

	return &synthesizedChunk{audio: result.Audio, meta: meta}, timestamps, result.RequestID, nil
}

// abandon drops an in-flight generation without caching anything.
// Already-written chunk files stay orphaned on disk; a later request
// regenerates under a fresh audio ID.
func (g *Generator) abandon(p *pendingGeneration, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.pending, p.audioID)
	if g.inflight[p.cacheKey] == p.audioID {
		delete(g.inflight, p.cacheKey)
	}
	g.logger.Warn("generation abandoned", "key", p.cacheKey, "audio_id", p.audioID, "error", err)
}

// finish removes the pending record after the entry has been persisted.
func (g *Generator) finish(p *pendingGeneration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.pending, p.audioID)
	if g.inflight[p.cacheKey] == p.audioID {
		delete(g.inflight, p.cacheKey)
	}
}

// snapshotResult copies the pending state into a caller-facing partial
// result. Must be called with g.mu held.
func (p *pendingGeneration) snapshotResult() *Result {
	return &Result{
		AudioID:       p.audioID,
		CacheKey:      p.cacheKey,
		Chunks:        append([]ChunkMeta(nil), p.chunks...),
		ChunkIDs:      chunkIDs(p.audioID, len(p.chunks)),
		Timestamps:    append([]WordTimestamp(nil), p.timestamps...),
		TotalDuration: p.estimated,
		Status:        "generating",
		Completed:     p.completed,
		Total:         p.total,
	}
}

func completeResult(entry *CacheEntry) *Result {
	ids := make([]string, len(entry.Chunks))
	for i := range entry.Chunks {
		ids[i] = entry.ChunkID(i)
	}
	return &Result{
		AudioID:       entry.AudioID,
		CacheKey:      entry.CacheKey,
		Chunks:        entry.Chunks,
		ChunkIDs:      ids,
		Timestamps:    entry.Timestamps,
		TotalDuration: entry.TotalDuration,
		Status:        "complete",
	}
}

func chunkIDs(audioID string, n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("%s_%d", audioID, i)
	}
	return ids
}

// estimateTotalDuration extrapolates the full text's duration from the
// first chunk's measured pace. Imprecise until generation completes.
func estimateTotalDuration(fullText, firstChunk string, firstDuration float64) float64 {
	if len(firstChunk) == 0 {
		return firstDuration
	}
	return float64(len(fullText)) / float64(len(firstChunk)) * firstDuration
}

// appendRequestID keeps the most recent provider request IDs (at most
// three, matching what the provider accepts for stitching).
func appendRequestID(ids []string, id string) []string {
	if id == "" {
		return ids
	}
	ids = append(ids, id)
	if len(ids) > 3 {
		ids = ids[len(ids)-3:]
	}
	return ids
}
