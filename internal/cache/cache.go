// Package cache is a time-boxed, per-provider store of the last raw vendor
// fetch. It exists to bound vendor call volume on repeated default-window
// syncs; losing it costs nothing but a refetch.
package cache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"timesync/internal/domain"
)

// DefaultTTL balances sync freshness against vendor quota pressure for a
// single-user deployment.
const DefaultTTL = 10 * time.Minute

// envelope is the on-disk shape: the raw payload plus its own fetch
// timestamp, so freshness never depends on file mtime.
type envelope struct {
	FetchedAt time.Time         `json:"fetched_at"`
	Payload   []json.RawMessage `json:"payload"`
}

// FileCache keeps one JSON file per provider under dir. All access goes
// through a single mutex and writes land via temp-file rename, so a reader
// never observes a half-written envelope.
type FileCache struct {
	mu  sync.Mutex
	dir string
	ttl time.Duration
	log *slog.Logger
	now func() time.Time
}

func New(dir string, ttl time.Duration, log *slog.Logger) *FileCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &FileCache{dir: dir, ttl: ttl, log: log, now: time.Now}
}

func (c *FileCache) path(provider domain.Source) string {
	return filepath.Join(c.dir, string(provider)+".json")
}

// Read returns the cached payload for the provider if a fresh, intact entry
// exists. A missing, corrupt, or expired file is a miss, never an error.
func (c *FileCache) Read(provider domain.Source) ([]json.RawMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.path(provider))
	if err != nil {
		return nil, false
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.log.Warn("discarding corrupt cache file",
			slog.String("provider", string(provider)),
			slog.String("error", err.Error()))
		return nil, false
	}
	if c.now().Sub(env.FetchedAt) >= c.ttl {
		return nil, false
	}
	return env.Payload, true
}

// Write replaces the provider's cache entry. The envelope is written to a
// temp file and renamed into place so concurrent readers see either the old
// or the new entry, never a mix.
func (c *FileCache) Write(provider domain.Source, payload []json.RawMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.dir, 0o700); err != nil {
		return fmt.Errorf("cache: creating %s: %w", c.dir, err)
	}
	data, err := json.Marshal(envelope{FetchedAt: c.now().UTC(), Payload: payload})
	if err != nil {
		return fmt.Errorf("cache: marshalling payload: %w", err)
	}

	path := c.path(provider)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("cache: writing temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("cache: renaming temp file: %w", err)
	}
	return nil
}
