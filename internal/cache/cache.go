// Package cache stores generated compositions on disk, keyed by note content
// and the settings that produced them.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dygy/sonigraph/internal/composition"
)

// FormatVersion changes whenever the stored layout or the generation
// algorithms change; entries written under another version are ignored.
const FormatVersion = "sonigraph-1"

// Cache manages cached compositions under one directory
type Cache struct {
	dir string
}

// Entry is one stored generation result
type Entry struct {
	Key         string                   `json:"key"`
	Version     int                      `json:"version"`
	CreatedAt   time.Time                `json:"created_at"`
	Composition *composition.Composition `json:"composition"`
	Strudel     string                   `json:"strudel,omitempty"`
}

// New creates the cache directory if needed
func New(dir string) (*Cache, error) {
	if dir == "" {
		return nil, fmt.Errorf("cache dir is empty")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Cache{dir: dir}, nil
}

// Dir returns the cache root
func (c *Cache) Dir() string {
	return c.dir
}

// Key derives a cache key from note text and a config fingerprint
func Key(text, fingerprint string) string {
	hash := sha256.New()
	hash.Write([]byte(text))
	hash.Write([]byte{0})
	hash.Write([]byte(fingerprint))
	return "note_" + hex.EncodeToString(hash.Sum(nil))[:16]
}

// Get returns the latest composition stored under key
func (c *Cache) Get(key string) (*composition.Composition, bool) {
	if !c.valid(key) {
		return nil, false
	}
	entries, err := c.History(key)
	if err != nil || len(entries) == 0 {
		return nil, false
	}
	latest := entries[len(entries)-1]
	if latest.Composition == nil {
		return nil, false
	}
	return latest.Composition, true
}

// valid reports whether the key directory was written by this format version
func (c *Cache) valid(key string) bool {
	data, err := os.ReadFile(filepath.Join(c.dir, key, ".version"))
	return err == nil && strings.TrimSpace(string(data)) == FormatVersion
}

// Put stores a new version of the composition and returns its version number.
// When code is non-empty it is also written as a .strudel file next to the JSON.
func (c *Cache) Put(key string, comp *composition.Composition, code string) (int, error) {
	cacheSubdir := filepath.Join(c.dir, key)

	if err := os.MkdirAll(cacheSubdir, 0755); err != nil {
		return 0, fmt.Errorf("create cache subdir: %w", err)
	}

	// Entries from another format version are discarded
	if !c.valid(key) {
		if err := removeOutputs(cacheSubdir); err != nil {
			return 0, err
		}
	}

	entries, _ := c.History(key)
	entry := &Entry{
		Key:         key,
		Version:     len(entries) + 1,
		CreatedAt:   time.Now(),
		Composition: comp,
		Strudel:     code,
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("marshal output: %w", err)
	}
	outputPath := filepath.Join(cacheSubdir, fmt.Sprintf("output_v%03d.json", entry.Version))
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return 0, fmt.Errorf("write output: %w", err)
	}

	if code != "" {
		strudelPath := filepath.Join(cacheSubdir, fmt.Sprintf("output_v%03d.strudel", entry.Version))
		if err := os.WriteFile(strudelPath, []byte(code), 0644); err != nil {
			return 0, fmt.Errorf("write strudel file: %w", err)
		}
		latestPath := filepath.Join(cacheSubdir, "output_latest.strudel")
		if err := os.WriteFile(latestPath, []byte(code), 0644); err != nil {
			return 0, fmt.Errorf("write latest: %w", err)
		}
	}

	versionPath := filepath.Join(cacheSubdir, ".version")
	if err := os.WriteFile(versionPath, []byte(FormatVersion), 0644); err != nil {
		return 0, fmt.Errorf("write cache version: %w", err)
	}

	return entry.Version, nil
}

// History returns every stored entry for key, sorted by version
func (c *Cache) History(key string) ([]*Entry, error) {
	cacheSubdir := filepath.Join(c.dir, key)

	dirEntries, err := os.ReadDir(cacheSubdir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read cache dir: %w", err)
	}

	var entries []*Entry
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || !strings.HasPrefix(name, "output_v") || !strings.HasSuffix(name, ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(cacheSubdir, name))
		if err != nil {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(data, &entry); err != nil {
			continue
		}
		entries = append(entries, &entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Version < entries[j].Version
	})
	return entries, nil
}

// Keys returns every key written by this format version, sorted
func (c *Cache) Keys() ([]string, error) {
	dirEntries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read cache dir: %w", err)
	}
	var keys []string
	for _, de := range dirEntries {
		if de.IsDir() && c.valid(de.Name()) {
			keys = append(keys, de.Name())
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Clear removes all cached compositions
func (c *Cache) Clear() error {
	return os.RemoveAll(c.dir)
}

// Size returns the total size in bytes and the number of cached keys
func (c *Cache) Size() (int64, int, error) {
	var totalSize int64
	var count int

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, 0, nil
		}
		return 0, 0, err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		count++

		files, _ := os.ReadDir(filepath.Join(c.dir, entry.Name()))
		for _, f := range files {
			if info, err := f.Info(); err == nil {
				totalSize += info.Size()
			}
		}
	}

	return totalSize, count, nil
}

func removeOutputs(dir string) error {
	files, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read cache dir: %w", err)
	}
	for _, f := range files {
		if strings.HasPrefix(f.Name(), "output_") {
			if err := os.Remove(filepath.Join(dir, f.Name())); err != nil {
				return fmt.Errorf("remove stale output: %w", err)
			}
		}
	}
	return nil
}
