// Package cache implements the Query Cache (C12): a content-addressed,
// TTL-bounded, capacity-bounded file cache, one JSON file per key under
// cache/<project>/<sha256>.json. Grounded on antfly-go's use of
// bytedance/sonic for JSON encode/decode (antfly/client.go) and on the
// write-then-replace file idiom used throughout pkg/config and
// pkg/rag/store.go, generalized here to an atomic
// temp-file-plus-rename write.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/ragpipe/ragpipe/internal/ragtypes"
)

// Entry is the on-disk cache entry shape.
type Entry struct {
	TS      float64          `json:"ts"`
	TTL     int              `json:"ttl"`
	Payload ragtypes.RunRecord `json:"payload"`
}

// Cache is a directory of per-key JSON files.
type Cache struct {
	Dir        string
	Disabled   bool
	MaxEntries int

	now func() time.Time
}

// New constructs a Cache rooted at dir for one project. A disabled
// cache makes Get always miss and Set a no-op.
func New(dir string, disabled bool, maxEntries int) *Cache {
	return &Cache{Dir: dir, Disabled: disabled, MaxEntries: maxEntries, now: time.Now}
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeQuery lowercases, strips non-alphanumerics, and collapses
// whitespace. The normalization is idempotent.
func NormalizeQuery(raw string) string {
	lower := strings.ToLower(raw)
	collapsed := nonAlnum.ReplaceAllString(lower, " ")
	return strings.Join(strings.Fields(collapsed), " ")
}

// KeyInput is the canonical-JSON input hashed to produce a cache key.
type KeyInput struct {
	Project         string `json:"project"`
	NormalizedQuery string `json:"normalized_query"`
	Intent          string `json:"intent"`
	TopK            int    `json:"top_k"`
	ContextMaxChars int    `json:"context_max_chars"`
	UseVector       bool   `json:"use_vector"`
	UseMemory       bool   `json:"use_memory"`
	UseRecent       bool   `json:"use_recent"`
}

// Key computes the SHA-256 hex digest of the canonical JSON encoding of
// in. Field order is fixed by canonicalJSON, independent of
// struct field order, so the key is stable across encodings.
func Key(in KeyInput) string {
	canonical := canonicalJSON(in)
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// canonicalJSON renders a KeyInput as a deterministic, sorted-key JSON
// object so the hash does not depend on struct field declaration order.
func canonicalJSON(in KeyInput) string {
	fields := map[string]string{
		"project":           quote(in.Project),
		"normalized_query":  quote(in.NormalizedQuery),
		"intent":            quote(in.Intent),
		"top_k":             strconv.Itoa(in.TopK),
		"context_max_chars": strconv.Itoa(in.ContextMaxChars),
		"use_vector":        strconv.FormatBool(in.UseVector),
		"use_memory":        strconv.FormatBool(in.UseMemory),
		"use_recent":        strconv.FormatBool(in.UseRecent),
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(quote(k))
		b.WriteByte(':')
		b.WriteString(fields[k])
	}
	b.WriteByte('}')
	return b.String()
}

func quote(s string) string {
	return strconv.Quote(s)
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.Dir, key+".json")
}

// Get returns the cached payload if present and unexpired. Stale or
// unreadable entries are removed and treated as a miss.
func (c *Cache) Get(key string) (ragtypes.RunRecord, bool) {
	if c.Disabled {
		return ragtypes.RunRecord{}, false
	}

	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return ragtypes.RunRecord{}, false
	}

	var entry Entry
	if err := sonic.Unmarshal(data, &entry); err != nil {
		_ = os.Remove(c.path(key))
		return ragtypes.RunRecord{}, false
	}

	age := c.now().Unix() - int64(entry.TS)
	if age > int64(entry.TTL) {
		_ = os.Remove(c.path(key))
		return ragtypes.RunRecord{}, false
	}

	return entry.Payload, true
}

// Set writes the entry atomically (temp file + rename), then prunes
// the directory to at most MaxEntries most-recently-modified files.
// A disabled cache is a no-op.
func (c *Cache) Set(key string, payload ragtypes.RunRecord, ttl int) error {
	if c.Disabled {
		return nil
	}
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return err
	}

	entry := Entry{TS: float64(c.now().Unix()), TTL: ttl, Payload: payload}
	data, err := sonic.Marshal(entry)
	if err != nil {
		return err
	}

	final := c.path(key)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, final); err != nil {
		return err
	}

	return c.prune()
}

// prune retains at most MaxEntries most-recently-modified files in the
// cache directory, deleting the oldest ones.
func (c *Cache) prune() error {
	if c.MaxEntries <= 0 {
		return nil
	}
	entries, err := os.ReadDir(c.Dir)
	if err != nil {
		return err
	}
	if len(entries) <= c.MaxEntries {
		return nil
	}

	type fileInfo struct {
		name    string
		modTime time.Time
	}
	var files []fileInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, fileInfo{name: e.Name(), modTime: info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].modTime.After(files[j].modTime) })

	for _, f := range files[min(len(files), c.MaxEntries):] {
		_ = os.Remove(filepath.Join(c.Dir, f.name))
	}
	return nil
}
