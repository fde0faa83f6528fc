package speech

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testEntry(key, audioID string) *CacheEntry {
	return &CacheEntry{
		CacheKey: key,
		AudioID:  audioID,
		Chunks: []ChunkMeta{
			{Duration: 2.0, StartTime: 0, EndTime: 2.0, StartWord: 0, EndWord: 4},
			{Duration: 3.0, StartTime: 2.0, EndTime: 5.0, StartWord: 5, EndWord: 9},
		},
		Timestamps: []WordTimestamp{
			{Index: 0, Start: 0, End: 0.5},
			{Index: 9, Start: 4.5, End: 5.0},
		},
		TotalDuration: 5.0,
	}
}

func newTestStore(t *testing.T, cfg StoreConfig) *Store {
	t.Helper()
	if cfg.Dir == "" {
		cfg.Dir = t.TempDir()
	}
	store, err := NewStore(cfg)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return store
}

// writeEntryWithChunks persists an entry plus fake audio for every chunk.
func writeEntryWithChunks(t *testing.T, store *Store, entry *CacheEntry) {
	t.Helper()
	for i := range entry.Chunks {
		if _, err := store.WriteChunk(entry.AudioID, i, []byte("audio")); err != nil {
			t.Fatalf("WriteChunk failed: %v", err)
		}
	}
	if err := store.Put(entry.CacheKey, entry); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
}

func TestStorePutGet(t *testing.T) {
	store := newTestStore(t, StoreConfig{})
	entry := testEntry("item-1", "audio-1")
	writeEntryWithChunks(t, store, entry)

	got, ok := store.Get("item-1")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got.AudioID != "audio-1" || len(got.Chunks) != 2 {
		t.Errorf("unexpected entry: %+v", got)
	}
	if got.ChunkID(1) != "audio-1_1" {
		t.Errorf("unexpected chunk ID: %s", got.ChunkID(1))
	}

	if _, ok := store.Get("absent"); ok {
		t.Error("expected miss for unknown key")
	}
}

func TestStoreReconcile(t *testing.T) {
	dir := t.TempDir()

	first := newTestStore(t, StoreConfig{Dir: dir})
	writeEntryWithChunks(t, first, testEntry("good", "audio-good"))

	// An entry whose chunk files are missing must be skipped.
	broken := testEntry("broken", "audio-broken")
	data, _ := json.Marshal(broken)
	if err := os.WriteFile(filepath.Join(dir, "broken.json"), data, 0o644); err != nil {
		t.Fatal(err)
	}
	// Corrupted metadata must be skipped too.
	if err := os.WriteFile(filepath.Join(dir, "corrupt.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	store := newTestStore(t, StoreConfig{Dir: dir})
	loaded, skipped := store.Reconcile()
	if loaded != 1 {
		t.Errorf("expected 1 loaded entry, got %d", loaded)
	}
	if skipped != 2 {
		t.Errorf("expected 2 skipped entries, got %d", skipped)
	}

	if _, ok := store.Get("good"); !ok {
		t.Error("expected reconciled entry to be available")
	}
}

func TestStoreLegacyFormat(t *testing.T) {
	dir := t.TempDir()

	// Old single-file entries have no chunks array and store audio at
	// {audioId}.mp3.
	legacy := map[string]any{
		"cacheKey": "old-item",
		"audioId":  "audio-old",
		"timestamps": []map[string]any{
			{"index": 0, "start": 0.0, "end": 0.4},
			{"index": 7, "start": 3.1, "end": 3.5},
		},
		"totalDuration": 3.5,
	}
	data, _ := json.Marshal(legacy)
	if err := os.WriteFile(filepath.Join(dir, "old-item.json"), data, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "audio-old.mp3"), []byte("audio"), 0o644); err != nil {
		t.Fatal(err)
	}

	store := newTestStore(t, StoreConfig{Dir: dir})
	entry, ok := store.Get("old-item")
	if !ok {
		t.Fatal("expected legacy entry to load")
	}
	if !entry.Legacy() {
		t.Error("expected legacy flag")
	}
	if len(entry.Chunks) != 1 {
		t.Fatalf("expected normalization to 1 chunk, got %d", len(entry.Chunks))
	}
	if entry.ChunkID(0) != "audio-old" {
		t.Errorf("legacy chunk ID should be the bare audio ID, got %s", entry.ChunkID(0))
	}
	if entry.Chunks[0].EndTime != 3.5 {
		t.Errorf("synthetic chunk should span the total duration, got %f", entry.Chunks[0].EndTime)
	}
	if entry.Chunks[0].EndWord != 7 {
		t.Errorf("synthetic chunk should end at the last timestamp index, got %d", entry.Chunks[0].EndWord)
	}
}

func TestStoreLegacyFormatMissingDuration(t *testing.T) {
	dir := t.TempDir()

	// Some old metadata omits totalDuration; the last timestamp's end
	// carries the same value.
	legacy := map[string]any{
		"cacheKey": "old-nodur",
		"audioId":  "audio-nodur",
		"timestamps": []map[string]any{
			{"index": 0, "start": 0.0, "end": 0.4},
			{"index": 5, "start": 2.2, "end": 2.9},
		},
	}
	data, _ := json.Marshal(legacy)
	if err := os.WriteFile(filepath.Join(dir, "old-nodur.json"), data, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "audio-nodur.mp3"), []byte("audio"), 0o644); err != nil {
		t.Fatal(err)
	}

	store := newTestStore(t, StoreConfig{Dir: dir})
	entry, ok := store.Get("old-nodur")
	if !ok {
		t.Fatal("expected legacy entry to load")
	}
	if entry.Chunks[0].Duration != 2.9 || entry.Chunks[0].EndTime != 2.9 {
		t.Errorf("synthetic chunk should derive duration from the last timestamp, got %+v", entry.Chunks[0])
	}
	if entry.TotalDuration != 2.9 {
		t.Errorf("entry total duration = %f, want 2.9", entry.TotalDuration)
	}
}

func TestStoreEvictionKeepsDisk(t *testing.T) {
	dir := t.TempDir()
	store := newTestStore(t, StoreConfig{Dir: dir, MaxEntries: 2})

	writeEntryWithChunks(t, store, testEntry("a", "audio-a"))
	writeEntryWithChunks(t, store, testEntry("b", "audio-b"))
	writeEntryWithChunks(t, store, testEntry("c", "audio-c"))

	if store.Len() != 2 {
		t.Fatalf("expected index bounded at 2 entries, got %d", store.Len())
	}

	// Eviction is index-only: files survive and the entry reloads.
	if _, err := os.Stat(filepath.Join(dir, "a.json")); err != nil {
		t.Fatalf("evicted entry's metadata file missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "audio-a_0.mp3")); err != nil {
		t.Fatalf("evicted entry's chunk file missing: %v", err)
	}
	if _, ok := store.Get("a"); !ok {
		t.Error("expected evicted entry to reload from disk")
	}
}

func TestStoreByteBudgetEviction(t *testing.T) {
	store := newTestStore(t, StoreConfig{MaxBytes: 600})

	for _, key := range []string{"k1", "k2", "k3", "k4"} {
		writeEntryWithChunks(t, store, testEntry(key, "audio-"+key))
	}

	stats := store.Stats()
	// The newest entry always stays, so the budget can be exceeded by at
	// most one entry's size.
	if stats.Entries >= 4 {
		t.Errorf("expected byte budget to evict entries, still have %d", stats.Entries)
	}
}

func TestCacheKeySelection(t *testing.T) {
	if got := CacheKey("item-42", "some text"); got != "item-42" {
		t.Errorf("caller ID should win: got %s", got)
	}

	h1 := CacheKey("", "some text")
	h2 := CacheKey("", "some text")
	if h1 == "" || h1 != h2 {
		t.Errorf("text hash should be stable: %s vs %s", h1, h2)
	}
	if h1 == CacheKey("", "other text") {
		t.Error("different texts should hash differently")
	}

	if got := CacheKey("../../etc/passwd", "x"); got == "../../etc/passwd" {
		t.Errorf("unsafe IDs must not be used verbatim: %s", got)
	}

	// URLs used as IDs are hashed, so two URLs that differ only in
	// unsafe characters cannot land on the same key.
	u1 := CacheKey("https://example.com/a/bc", "")
	u2 := CacheKey("https://example.com/ab/c", "")
	if u1 == u2 {
		t.Errorf("distinct URLs share a cache key: %s", u1)
	}
	if strings.ContainsAny(u1, "/:") {
		t.Errorf("URL-derived key should be filename safe, got %s", u1)
	}
	if u1 != CacheKey("https://example.com/a/bc", "different text") {
		t.Error("ID-derived key should not depend on the text")
	}

	if got := CacheKey("", ""); got != "" {
		t.Errorf("no ID and no text should produce no key, got %s", got)
	}
}
