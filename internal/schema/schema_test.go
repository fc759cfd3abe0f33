package schema

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const blogSchema = `{
  "types": [
    {"name": "post", "type": "document", "title": "Post", "fields": [
      {"name": "title", "type": "string"},
      {"name": "author", "type": "reference", "to": [{"type": "author"}]},
      {"name": "categories", "type": "array", "of": [{"type": "reference", "to": [{"type": "category"}]}]},
      {"name": "tags", "type": "array", "of": [{"type": "string"}]},
      {"name": "seo", "type": "object", "fields": [
        {"name": "metaTitle", "type": "string"}
      ]},
      {"name": "blocks", "type": "array", "of": [
        {"name": "callout", "type": "object", "fields": [{"name": "tone", "type": "string"}]}
      ]}
    ]},
    {"name": "author", "type": "document", "fields": [
      {"name": "name", "type": "string"},
      {"name": "bio", "type": "text"}
    ]},
    {"name": "category", "type": "document", "fields": [
      {"name": "title", "type": "string"}
    ]}
  ]
}`

const compiledSchema = `[
  {"name": "movie", "type": "document", "attributes": {
    "title": {"type": "objectAttribute", "value": {"type": "string"}},
    "director": {"type": "objectAttribute", "value": {"type": "object", "attributes": {}, "dereferencesTo": "person"}},
    "cast": {"type": "objectAttribute", "value": {"type": "array", "of": {"type": "object", "attributes": {"_ref": {"type": "objectAttribute", "value": {"type": "string"}}}, "dereferencesTo": "person"}}},
    "poster": {"type": "objectAttribute", "value": {"type": "object", "attributes": {
      "url": {"type": "objectAttribute", "value": {"type": "string"}}
    }}}
  }},
  {"name": "person", "type": "document", "attributes": {
    "name": {"type": "objectAttribute", "value": {"type": "string"}}
  }}
]`

func writeSchema(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "schema.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestLoader(t *testing.T, cfg ValidationConfig) *Loader {
	t.Helper()
	return NewLoader(cfg, WithCacheDir(filepath.Join(t.TempDir(), "cache")))
}

func TestLoadDocumentStore(t *testing.T) {
	path := writeSchema(t, t.TempDir(), blogSchema)
	l := newTestLoader(t, DefaultValidationConfig())

	if !l.LoadFromPath(context.Background(), path) {
		t.Fatalf("load failed: %s", l.LastValidationError())
	}
	if !l.IsLoaded() {
		t.Fatal("expected loaded schema")
	}

	if diff := cmp.Diff([]string{"author", "category", "post"}, l.GetDocumentTypeNames()); diff != "" {
		t.Errorf("document types (-want +got):\n%s", diff)
	}

	author := l.GetField("post", "author")
	if author == nil || !author.IsReference {
		t.Fatalf("post.author = %+v, want reference", author)
	}
	if diff := cmp.Diff([]string{"author"}, author.ReferenceTargets); diff != "" {
		t.Errorf("author targets (-want +got):\n%s", diff)
	}

	cats := l.GetField("post", "categories")
	if cats == nil || !cats.IsArray {
		t.Fatalf("post.categories = %+v, want array", cats)
	}
	if diff := cmp.Diff([]string{"category"}, cats.ArrayOf); diff != "" {
		t.Errorf("categories element types (-want +got):\n%s", diff)
	}

	if tags := l.GetField("post", "tags"); tags == nil || tags.ArrayOf[0] != "string" {
		t.Errorf("post.tags = %+v, want array of string", tags)
	}

	seo := l.GetField("post", "seo")
	if seo == nil || seo.Type != "post.seo" {
		t.Fatalf("post.seo = %+v, want synthetic type post.seo", seo)
	}
	if l.GetField("post.seo", "metaTitle") == nil {
		t.Error("synthetic type post.seo lacks metaTitle")
	}
	if l.GetType("post.seo").IsDocument {
		t.Error("synthetic type must not be a document type")
	}

	blocks := l.GetField("post", "blocks")
	if diff := cmp.Diff([]string{"callout"}, blocks.ArrayOf); diff != "" {
		t.Errorf("blocks element types (-want +got):\n%s", diff)
	}
	if l.GetField("callout", "tone") == nil {
		t.Error("named inline array item should register its own type")
	}
}

func TestBuiltinFields(t *testing.T) {
	path := writeSchema(t, t.TempDir(), blogSchema)
	l := newTestLoader(t, DefaultValidationConfig())
	if !l.LoadFromPath(context.Background(), path) {
		t.Fatal(l.LastValidationError())
	}

	for _, name := range []string{"_id", "_type", "_createdAt", "_updatedAt", "_rev"} {
		if l.GetField("author", name) == nil {
			t.Errorf("author missing builtin %s", name)
		}
	}
	if l.GetField("post.seo", "_id") != nil {
		t.Error("object types must not receive builtin fields")
	}
}

func TestLoadCompiled(t *testing.T) {
	path := writeSchema(t, t.TempDir(), compiledSchema)
	l := newTestLoader(t, DefaultValidationConfig())
	if !l.LoadFromPath(context.Background(), path) {
		t.Fatalf("load failed: %s", l.LastValidationError())
	}

	director := l.GetField("movie", "director")
	if director == nil || !director.IsReference || director.ReferenceTargets[0] != "person" {
		t.Errorf("movie.director = %+v, want reference to person", director)
	}
	cast := l.GetField("movie", "cast")
	if cast == nil || !cast.IsArray {
		t.Fatalf("movie.cast = %+v, want array", cast)
	}
	if diff := cmp.Diff([]string{"person"}, cast.ArrayOf); diff != "" {
		t.Errorf("cast element types (-want +got):\n%s", diff)
	}
	if poster := l.GetField("movie", "poster"); poster == nil || poster.Type != "movie.poster" {
		t.Errorf("movie.poster = %+v, want synthetic type", poster)
	}
	if l.GetField("movie.poster", "url") == nil {
		t.Error("movie.poster lacks url")
	}
	if l.GetField("person", "_type") == nil {
		t.Error("person missing builtin _type")
	}
}

func TestLoadFailures(t *testing.T) {
	tests := []struct {
		name    string
		content string
		cfg     func(*ValidationConfig)
		want    []string
	}{
		{
			name:    "invalid json",
			content: `{"types": [`,
			want:    []string{"invalid schema JSON"},
		},
		{
			name:    "unrecognized",
			content: `{"foo": 1}`,
			want:    []string{"unrecognized schema format"},
		},
		{
			name:    "too many types",
			content: `{"types": [{"name": "a", "type": "document"}, {"name": "b", "type": "document"}, {"name": "c", "type": "document"}]}`,
			cfg:     func(c *ValidationConfig) { c.MaxTypes = 2 },
			want:    []string{"3", "2"},
		},
		{
			name:    "too many fields",
			content: `{"types": [{"name": "a", "type": "document", "fields": [{"name": "x", "type": "string"}, {"name": "y", "type": "string"}]}]}`,
			cfg:     func(c *ValidationConfig) { c.MaxFieldsPerType = 1 },
			want:    []string{`"a"`, "2", "1"},
		},
		{
			name:    "too deep",
			content: `{"types": [{"name": "a", "type": "document", "fields": [{"name": "x", "type": "object", "fields": [{"name": "y", "type": "string"}]}]}]}`,
			cfg:     func(c *ValidationConfig) { c.MaxDepth = 4 },
			want:    []string{"maximum nesting depth of 4"},
		},
		{
			name:    "missing name",
			content: `{"types": [{"type": "document"}]}`,
			want:    []string{`missing required "name"`},
		},
		{
			name:    "missing field type",
			content: `{"types": [{"name": "a", "type": "document", "fields": [{"name": "x"}]}]}`,
			want:    []string{`field "x" is missing required "type"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultValidationConfig()
			cfg.CacheValidation = false
			if tt.cfg != nil {
				tt.cfg(&cfg)
			}
			l := newTestLoader(t, cfg)
			path := writeSchema(t, t.TempDir(), tt.content)

			if l.LoadFromPath(context.Background(), path) {
				t.Fatal("expected load to fail")
			}
			msg := l.LastValidationError()
			for _, w := range tt.want {
				if !strings.Contains(msg, w) {
					t.Errorf("error %q does not contain %q", msg, w)
				}
			}
			if l.IsLoaded() {
				t.Error("failed load must leave no schema")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	l := newTestLoader(t, DefaultValidationConfig())
	if l.LoadFromPath(context.Background(), filepath.Join(t.TempDir(), "nope.json")) {
		t.Fatal("expected failure for missing file")
	}
	if !strings.Contains(l.LastValidationError(), "cannot read schema file") {
		t.Errorf("unexpected error: %s", l.LastValidationError())
	}
	l.ClearValidationError()
	if l.LastValidationError() != "" {
		t.Error("ClearValidationError should reset the message")
	}
}

func TestFailureDiscardsPreviousSchema(t *testing.T) {
	dir := t.TempDir()
	l := newTestLoader(t, DefaultValidationConfig())
	path := writeSchema(t, dir, blogSchema)
	if !l.LoadFromPath(context.Background(), path) {
		t.Fatal(l.LastValidationError())
	}

	writeSchema(t, dir, `not json`)
	if l.LoadFromPath(context.Background(), path) {
		t.Fatal("expected failure")
	}
	if l.IsLoaded() || l.GetType("post") != nil {
		t.Error("previous schema must be discarded after a failed load")
	}
}

func TestValidationDisabled(t *testing.T) {
	cfg := DefaultValidationConfig()
	cfg.Enabled = false
	cfg.MaxTypes = 1
	l := newTestLoader(t, cfg)
	path := writeSchema(t, t.TempDir(), blogSchema)
	if !l.LoadFromPath(context.Background(), path) {
		t.Fatalf("limits must not apply when validation is disabled: %s", l.LastValidationError())
	}
}

func TestCacheIdempotence(t *testing.T) {
	cfg := DefaultValidationConfig()
	cfg.MaxTypes = 2
	l := newTestLoader(t, cfg)
	path := writeSchema(t, t.TempDir(), blogSchema)

	first := l.LoadFromPath(context.Background(), path)
	firstErr := l.LastValidationError()
	second := l.LoadFromPath(context.Background(), path)
	secondErr := l.LastValidationError()

	if first || second {
		t.Fatalf("both loads should fail, got %v and %v", first, second)
	}
	if strings.Contains(firstErr, "cached") {
		t.Errorf("first error should come from validation, got %q", firstErr)
	}
	if !strings.Contains(secondErr, "cached") {
		t.Errorf("second error should be replayed from cache, got %q", secondErr)
	}
	if !strings.HasPrefix(secondErr, firstErr) {
		t.Errorf("cached error %q should carry original %q", secondErr, firstErr)
	}
}

func TestCacheValidVerdict(t *testing.T) {
	l := newTestLoader(t, DefaultValidationConfig())
	path := writeSchema(t, t.TempDir(), blogSchema)
	for i := 0; i < 2; i++ {
		if !l.LoadFromPath(context.Background(), path) {
			t.Fatalf("load %d failed: %s", i, l.LastValidationError())
		}
		if l.GetField("post", "author") == nil {
			t.Fatalf("load %d: schema not resolved", i)
		}
	}
}

func TestCacheInvalidatedByContent(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultValidationConfig()
	cfg.MaxTypes = 2
	l := newTestLoader(t, cfg)
	path := writeSchema(t, dir, blogSchema)

	if l.LoadFromPath(context.Background(), path) {
		t.Fatal("expected failure with three types")
	}
	writeSchema(t, dir, `{"types": [{"name": "a", "type": "document"}]}`)
	if !l.LoadFromPath(context.Background(), path) {
		t.Fatalf("stale verdict reused after content change: %s", l.LastValidationError())
	}
}

func TestCacheInvalidatedByConfig(t *testing.T) {
	l := newTestLoader(t, DefaultValidationConfig())
	path := writeSchema(t, t.TempDir(), blogSchema)

	if !l.LoadFromPath(context.Background(), path) {
		t.Fatal(l.LastValidationError())
	}

	maxTypes := 1
	l.UpdateConfig(ConfigPatch{MaxTypes: &maxTypes})
	if l.LoadFromPath(context.Background(), path) {
		t.Fatal("stale valid verdict reused after limit change")
	}
	if strings.Contains(l.LastValidationError(), "cached") {
		t.Errorf("expected fresh validation, got %q", l.LastValidationError())
	}

	maxDepth := 3
	maxTypes = 100
	l.UpdateConfig(ConfigPatch{MaxTypes: &maxTypes, MaxDepth: &maxDepth})
	if l.LoadFromPath(context.Background(), path) {
		t.Fatal("expected depth failure after lowering maxDepth")
	}
	if !strings.Contains(l.LastValidationError(), "nesting depth of 3") {
		t.Errorf("unexpected error %q", l.LastValidationError())
	}
}

func TestCorruptCacheIsMiss(t *testing.T) {
	cacheDir := filepath.Join(t.TempDir(), "cache")
	l := NewLoader(DefaultValidationConfig(), WithCacheDir(cacheDir))
	path := writeSchema(t, t.TempDir(), blogSchema)

	if !l.LoadFromPath(context.Background(), path) {
		t.Fatal(l.LastValidationError())
	}
	entries, err := os.ReadDir(cacheDir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one cache record, got %v (err %v)", entries, err)
	}
	record := filepath.Join(cacheDir, entries[0].Name())
	if err := os.WriteFile(record, []byte("{garbage"), 0o600); err != nil {
		t.Fatal(err)
	}
	if !l.LoadFromPath(context.Background(), path) {
		t.Fatalf("corrupt cache must fall through to validation: %s", l.LastValidationError())
	}
}

func TestUnwritableCacheIgnored(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	// A regular file where the cache directory should be makes every write fail.
	l := NewLoader(DefaultValidationConfig(), WithCacheDir(filepath.Join(blocker, "cache")))
	path := writeSchema(t, t.TempDir(), blogSchema)
	if !l.LoadFromPath(context.Background(), path) {
		t.Fatalf("cache write failure must not fail the load: %s", l.LastValidationError())
	}
}

func TestUpdateConfigMerges(t *testing.T) {
	l := newTestLoader(t, DefaultValidationConfig())
	off := false
	l.UpdateConfig(ConfigPatch{CacheValidation: &off})

	got := l.Config()
	want := DefaultValidationConfig()
	want.CacheValidation = false
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("config (-want +got):\n%s", diff)
	}
}

func TestConfigHashIgnoresToggles(t *testing.T) {
	a := DefaultValidationConfig()
	b := a
	b.Enabled = false
	b.CacheValidation = false
	if configHash(a) != configHash(b) {
		t.Error("enabled/cacheValidation must not change the config hash")
	}
	b.MaxFieldsPerType++
	if configHash(a) == configHash(b) {
		t.Error("limit change must change the config hash")
	}
}

func TestNilSchema(t *testing.T) {
	var s *Schema
	if s.IsLoaded() || s.GetType("post") != nil || s.GetField("post", "title") != nil {
		t.Error("nil schema should behave as empty")
	}
	if len(s.GetTypeNames()) != 0 || len(s.GetDocumentTypeNames()) != 0 || len(s.FindFields("x")) != 0 {
		t.Error("nil schema should list nothing")
	}
}

func TestFindFields(t *testing.T) {
	path := writeSchema(t, t.TempDir(), blogSchema)
	l := newTestLoader(t, DefaultValidationConfig())
	if !l.LoadFromPath(context.Background(), path) {
		t.Fatal(l.LastValidationError())
	}
	var owners []string
	for _, fo := range l.Schema().FindFields("title") {
		owners = append(owners, fo.Type.Name)
	}
	if diff := cmp.Diff([]string{"category", "post"}, owners); diff != "" {
		t.Errorf("owners of title (-want +got):\n%s", diff)
	}
}
