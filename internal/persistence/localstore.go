package persistence

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/oracle-trader/runtime/pkg/types"
	"go.uber.org/zap"
)

const pendingFileName = "pending_uploads.json"

// LocalStorage is the on-disk fallback used when the telemetry uplink
// is unreachable: a flat retry queue of pending records plus a
// per-symbol bar cache, both silent-fail-to-empty on read errors.
// Grounded on persistence/local_storage.py.
type LocalStorage struct {
	log         *zap.Logger
	pendingFile string
	cacheDir    string
}

// NewLocalStorage returns a store rooted at baseDir, creating the
// cache subdirectory if needed.
func NewLocalStorage(log *zap.Logger, baseDir string) *LocalStorage {
	cacheDir := filepath.Join(baseDir, "cache")
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		log.Warn("failed to create cache directory", zap.Error(err))
	}
	return &LocalStorage{
		log:         log.Named("persistence.localstore"),
		pendingFile: filepath.Join(baseDir, pendingFileName),
		cacheDir:    cacheDir,
	}
}

// SavePending appends record onto the existing pending-upload queue
// and rewrites the file.
func (s *LocalStorage) SavePending(record json.RawMessage) error {
	pending := s.LoadPending()
	pending = append(pending, record)
	data, err := json.MarshalIndent(pending, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.pendingFile, data, 0o644); err != nil {
		s.log.Warn("failed to save pending upload", zap.Error(err))
		return err
	}
	return nil
}

// LoadPending returns the queued records, or an empty slice if the
// file is missing or unparseable.
func (s *LocalStorage) LoadPending() []json.RawMessage {
	data, err := os.ReadFile(s.pendingFile)
	if err != nil {
		return []json.RawMessage{}
	}
	var pending []json.RawMessage
	if err := json.Unmarshal(data, &pending); err != nil {
		s.log.Warn("failed to parse pending uploads, discarding", zap.Error(err))
		return []json.RawMessage{}
	}
	return pending
}

// PendingCount reports the retry queue depth, implementing
// health.PendingCounter.
func (s *LocalStorage) PendingCount() int {
	return len(s.LoadPending())
}

// ClearPending removes the retry queue file.
func (s *LocalStorage) ClearPending() {
	if err := os.Remove(s.pendingFile); err != nil && !os.IsNotExist(err) {
		s.log.Warn("failed to clear pending uploads", zap.Error(err))
	}
}

// CacheBars writes bars for symbol to its cache file, overwriting any
// prior cache for that symbol.
func (s *LocalStorage) CacheBars(symbol string, bars []types.Candle) error {
	data, err := json.MarshalIndent(bars, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.barsFile(symbol), data, 0o644); err != nil {
		s.log.Warn("failed to cache bars", zap.String("symbol", symbol), zap.Error(err))
		return err
	}
	return nil
}

// LoadCachedBars returns the cached bars for symbol, or an empty slice
// if none are cached or the cache is unparseable.
func (s *LocalStorage) LoadCachedBars(symbol string) []types.Candle {
	data, err := os.ReadFile(s.barsFile(symbol))
	if err != nil {
		return []types.Candle{}
	}
	var bars []types.Candle
	if err := json.Unmarshal(data, &bars); err != nil {
		s.log.Warn("failed to parse cached bars, discarding", zap.String("symbol", symbol), zap.Error(err))
		return []types.Candle{}
	}
	return bars
}

func (s *LocalStorage) barsFile(symbol string) string {
	return filepath.Join(s.cacheDir, symbol+"_bars.json")
}
