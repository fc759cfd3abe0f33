package schema

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Loader loads schema files and holds the current snapshot. The snapshot is
// swapped atomically, so readers never observe a half-loaded schema.
type Loader struct {
	current atomic.Pointer[Schema]

	mu      sync.Mutex // guards config and lastErr
	config  ValidationConfig
	lastErr string
	cache   *validationCache
}

// Option configures a Loader.
type Option func(*Loader)

// WithCacheDir stores validation verdicts in dir instead of the user cache
// directory.
func WithCacheDir(dir string) Option {
	return func(l *Loader) {
		if dir != "" {
			l.cache = &validationCache{dir: dir}
		}
	}
}

// NewLoader creates a Loader with the given validation settings.
func NewLoader(cfg ValidationConfig, opts ...Option) *Loader {
	l := &Loader{config: cfg, cache: &validationCache{dir: defaultCacheDir()}}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Config returns the current validation settings.
func (l *Loader) Config() ValidationConfig {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.config
}

// UpdateConfig merges p into the current settings. It takes effect on the
// next load.
func (l *Loader) UpdateConfig(p ConfigPatch) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.config = p.Apply(l.config)
}

// LastValidationError returns the cause of the most recent failed load, or "".
func (l *Loader) LastValidationError() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr
}

// ClearValidationError forgets the last failure message.
func (l *Loader) ClearValidationError() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastErr = ""
}

// Clear drops the loaded schema.
func (l *Loader) Clear() {
	l.current.Store(nil)
}

// Schema returns the current snapshot, or nil when nothing is loaded.
func (l *Loader) Schema() *Schema {
	return l.current.Load()
}

// LoadFromPath reads, validates and resolves the schema at path. On any
// failure the previous schema is dropped, the cause is kept for
// LastValidationError, and false is returned.
func (l *Loader) LoadFromPath(ctx context.Context, path string) bool {
	start := time.Now()
	cfg := l.Config()

	s, err := l.load(ctx, path, cfg)
	l.mu.Lock()
	if err != nil {
		l.lastErr = err.Error()
	} else {
		l.lastErr = ""
	}
	l.mu.Unlock()

	if err != nil {
		l.current.Store(nil)
		slog.Warn("schema.load", "path", path, "err", err)
		return false
	}
	l.current.Store(s)
	slog.Info("schema.load", "path", path, "types", len(s.names), "elapsed", time.Since(start))
	return true
}

func (l *Loader) load(ctx context.Context, path string, cfg ValidationConfig) (*Schema, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read schema file: %w", err)
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid schema JSON: %w", err)
	}

	var rs *rawSchema
	if cfg.Enabled {
		rs, err = l.validate(path, data, raw, cfg)
	} else {
		rs, err = detectShape(raw)
	}
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return resolve(rs), nil
}

// validate runs the depth and structural checks, consulting and refreshing
// the verdict cache when caching is on.
func (l *Loader) validate(path string, data []byte, raw any, cfg ValidationConfig) (*rawSchema, error) {
	var schemaHash, cfgHash string
	if cfg.CacheValidation {
		schemaHash, cfgHash = contentHash(data), configHash(cfg)
		if rec, ok := l.cache.lookup(path, schemaHash, cfgHash); ok {
			slog.Debug("schema.cache_hit", "path", path, "valid", rec.Valid)
			if !rec.Valid {
				return nil, fmt.Errorf("%s%s", rec.Error, cachedSuffix)
			}
			return detectShape(raw)
		}
	}

	rs, err := runValidation(raw, cfg)
	if cfg.CacheValidation {
		rec := cacheRecord{SchemaHash: schemaHash, ConfigHash: cfgHash, Valid: err == nil}
		if err != nil {
			rec.Error = err.Error()
		}
		l.cache.store(path, rec)
	}
	return rs, err
}

func runValidation(raw any, cfg ValidationConfig) (*rawSchema, error) {
	if err := checkDepth(raw, cfg.MaxDepth); err != nil {
		return nil, err
	}
	rs, err := detectShape(raw)
	if err != nil {
		return nil, err
	}
	if err := checkStructure(rs, cfg); err != nil {
		return nil, err
	}
	return rs, nil
}

// IsLoaded reports whether a schema is currently loaded.
func (l *Loader) IsLoaded() bool {
	return l.Schema().IsLoaded()
}

// GetType looks a type up in the current snapshot.
func (l *Loader) GetType(name string) *Type {
	return l.Schema().GetType(name)
}

// GetField looks a field up in the current snapshot.
func (l *Loader) GetField(typeName, fieldName string) *Field {
	return l.Schema().GetField(typeName, fieldName)
}

// GetTypeNames lists type names in the current snapshot.
func (l *Loader) GetTypeNames() []string {
	return l.Schema().GetTypeNames()
}

// GetDocumentTypeNames lists document type names in the current snapshot.
func (l *Loader) GetDocumentTypeNames() []string {
	return l.Schema().GetDocumentTypeNames()
}

// GetFieldsForType lists a type's fields in the current snapshot.
func (l *Loader) GetFieldsForType(name string) []*Field {
	return l.Schema().GetFieldsForType(name)
}
