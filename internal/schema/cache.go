package schema

import (
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/zeebo/xxh3"
)

// cacheVersion is bumped whenever validation rules change, invalidating every
// stored verdict.
const cacheVersion = 1

// cachedSuffix marks an error message replayed from the validation cache.
const cachedSuffix = " (cached)"

// cacheRecord is the on-disk validation verdict for one schema path.
type cacheRecord struct {
	Version    int    `json:"version"`
	SchemaHash string `json:"schemaHash"`
	ConfigHash string `json:"configHash"`
	Valid      bool   `json:"valid"`
	Error      string `json:"error,omitempty"`
}

// validationCache persists verdicts in dir, one JSON file per schema path.
// Every failure is treated as a miss; the cache never affects correctness.
type validationCache struct {
	dir string
}

// defaultCacheDir returns <user cache dir>/groq-intel/validation, falling back
// to the system temp dir.
func defaultCacheDir() string {
	base, err := os.UserCacheDir()
	if err != nil || base == "" {
		base = os.TempDir()
	}
	return filepath.Join(base, "groq-intel", "validation")
}

// contentHash is the xxh3-128 hash of the raw schema bytes.
func contentHash(data []byte) string {
	sum := xxh3.Hash128(data).Bytes()
	return hex.EncodeToString(sum[:])
}

// configHash hashes only the limits that influence a verdict.
func configHash(cfg ValidationConfig) string {
	return strconv.FormatUint(xxh3.HashString(cfg.limitsKey()), 16)
}

// recordPath derives the cache file for a schema path from the hash of its
// absolute path.
func (c *validationCache) recordPath(schemaPath string) string {
	abs, err := filepath.Abs(schemaPath)
	if err != nil {
		abs = schemaPath
	}
	return filepath.Join(c.dir, strconv.FormatUint(xxh3.HashString(abs), 16)+".json")
}

// lookup returns the stored verdict when version and both hashes match.
func (c *validationCache) lookup(schemaPath, schemaHash, cfgHash string) (cacheRecord, bool) {
	data, err := os.ReadFile(c.recordPath(schemaPath))
	if err != nil {
		return cacheRecord{}, false
	}
	var rec cacheRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		slog.Debug("schema.cache_corrupt", "path", schemaPath, "err", err)
		return cacheRecord{}, false
	}
	if rec.Version != cacheVersion || rec.SchemaHash != schemaHash || rec.ConfigHash != cfgHash {
		return cacheRecord{}, false
	}
	return rec, true
}

// store writes a verdict. Concurrent writers race benignly: the rename makes
// the last writer win and readers never see a torn record.
func (c *validationCache) store(schemaPath string, rec cacheRecord) {
	rec.Version = cacheVersion
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		slog.Debug("schema.cache_write", "err", err)
		return
	}
	tmp, err := os.CreateTemp(c.dir, "record-*.tmp")
	if err != nil {
		slog.Debug("schema.cache_write", "err", err)
		return
	}
	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil || closeErr != nil {
		os.Remove(tmp.Name())
		return
	}
	if err := os.Rename(tmp.Name(), c.recordPath(schemaPath)); err != nil {
		os.Remove(tmp.Name())
		slog.Debug("schema.cache_write", "err", err)
	}
}
