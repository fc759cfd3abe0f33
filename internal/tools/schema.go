package tools

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/DeusData/groq-intel/internal/workspace"
)

func (s *Server) handleLoadSchema(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	s.mu.Lock()
	prev := s.schemaPath
	s.mu.Unlock()

	path := getStringArg(args, "path")
	if path == "" {
		path = prev
	}
	if path == "" {
		return errResult("path is required (no schema path configured)"), nil
	}
	if abs, absErr := filepath.Abs(path); absErr == nil {
		path = abs
	}

	if err := s.svc.LoadSchema(ctx, path); err != nil {
		return errResult("load schema: " + err.Error()), nil
	}
	s.track(prev, path)

	loader := s.svc.Loader()
	return jsonResult(map[string]any{
		"loaded":        true,
		"path":          path,
		"types":         len(loader.GetTypeNames()),
		"documentTypes": nonNil(loader.GetDocumentTypeNames()),
	}), nil
}

// track moves the watch from prev to path.
func (s *Server) track(prev, path string) {
	s.mu.Lock()
	s.schemaPath = path
	s.mu.Unlock()

	if s.watcher == nil || prev == path {
		return
	}
	if prev != "" {
		s.watcher.Unwatch(prev)
	}
	s.watcher.Watch(path)
	slog.Info("tools.watch", "path", path, "prev", prev)
}

type typeSummary struct {
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	IsDocument bool   `json:"isDocument"`
	Title      string `json:"title,omitempty"`
	Fields     int    `json:"fields"`
}

func (s *Server) handleSchemaTypes(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	loader := s.svc.Loader()
	if !loader.IsLoaded() {
		msg := "no schema loaded"
		if last := loader.LastValidationError(); last != "" {
			msg += ": " + last
		}
		return errResult(msg), nil
	}

	if name := getStringArg(args, "type_name"); name != "" {
		t := loader.GetType(name)
		if t == nil {
			return errResult("unknown type: " + name), nil
		}
		fields := make([]*workspace.FieldReport, 0, len(t.Fields))
		for _, f := range t.SortedFields() {
			fields = append(fields, workspace.NewFieldReport(f))
		}
		return jsonResult(map[string]any{
			"name":        t.Name,
			"kind":        t.Kind,
			"isDocument":  t.IsDocument,
			"title":       t.Title,
			"description": t.Description,
			"fields":      fields,
		}), nil
	}

	names := loader.GetTypeNames()
	if getBoolArg(args, "documents_only") {
		names = loader.GetDocumentTypeNames()
	}
	types := make([]typeSummary, 0, len(names))
	for _, n := range names {
		t := loader.GetType(n)
		types = append(types, typeSummary{
			Name:       t.Name,
			Kind:       t.Kind,
			IsDocument: t.IsDocument,
			Title:      t.Title,
			Fields:     len(t.Fields),
		})
	}
	return jsonResult(map[string]any{
		"total": len(types),
		"types": types,
	}), nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
