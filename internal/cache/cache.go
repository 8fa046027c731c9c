// Package cache provides file-backed caching of HTTP responses.
package cache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
)

// Cache stores raw response bytes on disk, keyed by a hash of the request
// identity. Entries expire after a TTL measured in days; expired or corrupt
// entries are removed lazily when read.
type Cache struct {
	dir string
	ttl time.Duration
}

// entry is the on-disk representation of a cached response. Content is
// base64-encoded by the JSON codec.
type entry struct {
	Key       string    `json:"key"`
	Timestamp time.Time `json:"timestamp"`
	Content   []byte    `json:"content"`
}

// New creates a cache rooted at dir, creating the directory if needed.
func New(dir string, ttlDays int) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", dir, err)
	}
	return &Cache{
		dir: dir,
		ttl: time.Duration(ttlDays) * 24 * time.Hour,
	}, nil
}

// hashKey returns the MD5 hex digest of a cache key.
func hashKey(key string) string {
	sum := md5.Sum([]byte(key))
	return hex.EncodeToString(sum[:])
}

// path returns the file path for a cached key.
func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, hashKey(key)+".json")
}

func (c *Cache) expired(timestamp time.Time) bool {
	return time.Since(timestamp) > c.ttl
}

// Get returns the cached content for key, or nil if the entry is missing,
// expired, or unreadable. Expired and corrupt entries are deleted.
func (c *Cache) Get(key string) []byte {
	path := c.path(key)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil || e.Timestamp.IsZero() {
		log.WithField("key", key).Warn("Removing corrupt cache entry")
		_ = os.Remove(path)
		return nil
	}

	if c.expired(e.Timestamp) {
		_ = os.Remove(path)
		return nil
	}

	return e.Content
}

// Store writes content for key, overwriting any previous entry.
func (c *Cache) Store(key string, content []byte) error {
	data, err := json.Marshal(entry{
		Key:       key,
		Timestamp: time.Now(),
		Content:   content,
	})
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	if err := os.WriteFile(c.path(key), data, 0644); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// ClearExpired removes expired and unreadable entries, returning the count
// removed.
func (c *Cache) ClearExpired() int {
	return c.clear(false)
}

// ClearAll removes every entry, returning the count removed.
func (c *Cache) ClearAll() int {
	return c.clear(true)
}

func (c *Cache) clear(all bool) int {
	paths, err := filepath.Glob(filepath.Join(c.dir, "*.json"))
	if err != nil {
		return 0
	}

	count := 0
	for _, path := range paths {
		remove := all

		if !remove {
			data, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			var e entry
			if err := json.Unmarshal(data, &e); err != nil || e.Timestamp.IsZero() {
				// Invalid cache file, remove it
				remove = true
			} else {
				remove = c.expired(e.Timestamp)
			}
		}

		if remove {
			if err := os.Remove(path); err == nil {
				count++
			}
		}
	}

	log.WithField("count", count).Debug("Cleared cache files")
	return count
}
