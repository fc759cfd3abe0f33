// Package workspace wires the schema loader, the extension registry and the
// analysis engine into one service. It is constructed once and passed to the
// transports (MCP tools, CLI).
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.lsp.dev/protocol"
	"golang.org/x/sync/singleflight"

	"github.com/DeusData/groq-intel/internal/analysis"
	"github.com/DeusData/groq-intel/internal/extension"
	"github.com/DeusData/groq-intel/internal/extension/annotations"
	"github.com/DeusData/groq-intel/internal/groq"
	"github.com/DeusData/groq-intel/internal/schema"
	"github.com/DeusData/groq-intel/internal/syntax"
)

// DefaultExtensions are enabled when configuration does not say otherwise.
var DefaultExtensions = []string{annotations.ID}

// Options configures a Service.
type Options struct {
	Validation schema.ValidationConfig
	CacheDir   string
	// Extensions lists the ids to enable. Nil enables DefaultExtensions.
	Extensions []string
}

// Service answers analysis requests against the currently loaded schema.
type Service struct {
	loader     *schema.Loader
	extensions *extension.Registry
	loads      singleflight.Group
}

// New builds a Service with the built-in extensions registered and the
// requested ones enabled.
func New(opts Options) (*Service, error) {
	reg := extension.NewRegistry()
	if err := reg.Register(annotations.New()); err != nil {
		return nil, err
	}
	enabled := opts.Extensions
	if enabled == nil {
		enabled = DefaultExtensions
	}
	for _, id := range enabled {
		if err := reg.Enable(id, nil); err != nil {
			return nil, fmt.Errorf("enable extension: %w", err)
		}
	}

	var loaderOpts []schema.Option
	if opts.CacheDir != "" {
		loaderOpts = append(loaderOpts, schema.WithCacheDir(opts.CacheDir))
	}
	return &Service{
		loader:     schema.NewLoader(opts.Validation, loaderOpts...),
		extensions: reg,
	}, nil
}

// Loader returns the schema loader.
func (s *Service) Loader() *schema.Loader { return s.loader }

// Extensions returns the extension registry.
func (s *Service) Extensions() *extension.Registry { return s.extensions }

// LoadSchema loads the schema at path. Concurrent loads of one path share a
// single read and validation.
func (s *Service) LoadSchema(ctx context.Context, path string) error {
	_, err, shared := s.loads.Do(path, func() (any, error) {
		if !s.loader.LoadFromPath(ctx, path) {
			return nil, errors.New(s.loader.LastValidationError())
		}
		return nil, nil
	})
	if shared {
		slog.Debug("workspace.load_shared", "path", path)
	}
	return err
}

// document is one parsed and extracted query.
type document struct {
	source    string
	root      syntax.Node
	parseErrs groq.ParseErrors
	functions *analysis.FunctionRegistry
	schema    *schema.Schema
}

func (s *Service) open(source string) *document {
	root, err := groq.Parse(source)
	doc := &document{
		source:    source,
		root:      root,
		functions: analysis.NewFunctionRegistry(),
		schema:    s.loader.Schema(),
	}
	var perrs groq.ParseErrors
	if errors.As(err, &perrs) {
		doc.parseErrs = perrs
	}
	doc.functions.ExtractFromAST(root, doc.schema, source, s.extensions)
	return doc
}

// ParameterReport describes one function parameter.
type ParameterReport struct {
	Name         string          `json:"name"`
	Types        []string        `json:"types,omitempty"`
	Declared     bool            `json:"declared,omitempty"`
	DeclaredType string          `json:"declaredType,omitempty"`
	Range        *protocol.Range `json:"declaredRange,omitempty"`
}

// FunctionReport describes one user function.
type FunctionReport struct {
	Name       string            `json:"name"`
	Range      protocol.Range    `json:"range"`
	Parameters []ParameterReport `json:"parameters"`
	Calls      int               `json:"calls"`
}

// Report is the result of analysing a whole query document.
type Report struct {
	SchemaLoaded bool                  `json:"schemaLoaded"`
	Functions    []FunctionReport      `json:"functions"`
	Diagnostics  []protocol.Diagnostic `json:"diagnostics"`
	Elapsed      time.Duration         `json:"-"`
}

// Analyze parses source and reports its functions and diagnostics.
func (s *Service) Analyze(source string) *Report {
	start := time.Now()
	doc := s.open(source)

	rep := &Report{
		SchemaLoaded: doc.schema.IsLoaded(),
		Functions:    []FunctionReport{},
		Diagnostics:  syntaxDiagnostics(source, doc.parseErrs),
	}
	for _, def := range doc.functions.GetAllDefinitions() {
		fr := FunctionReport{
			Name:       def.Name,
			Range:      syntax.RangeOf(source, def.Node),
			Parameters: []ParameterReport{},
			Calls:      len(doc.functions.GetCallSites(def.Name)),
		}
		for i, p := range def.Parameters {
			pr := ParameterReport{
				Name:         p.Name,
				Types:        doc.functions.GetParameterType(def, i),
				DeclaredType: p.DeclaredType,
				Range:        p.DeclaredRange,
			}
			pr.Declared = s.extensions.ParameterType(def, p, i) != ""
			fr.Parameters = append(fr.Parameters, pr)
		}
		rep.Functions = append(rep.Functions, fr)
	}
	rep.Diagnostics = append(rep.Diagnostics, doc.functions.Diagnostics()...)
	rep.Elapsed = time.Since(start)
	slog.Debug("workspace.analyze", "bytes", len(source), "functions", len(rep.Functions),
		"diagnostics", len(rep.Diagnostics), "elapsed", rep.Elapsed)
	return rep
}

func syntaxDiagnostics(source string, errs groq.ParseErrors) []protocol.Diagnostic {
	out := make([]protocol.Diagnostic, 0, len(errs))
	for _, e := range errs {
		end := e.End
		if end < e.Pos {
			end = e.Pos
		}
		out = append(out, protocol.Diagnostic{
			Range:    syntax.SpanRange(source, e.Pos, end),
			Severity: protocol.DiagnosticSeverityError,
			Source:   analysis.DiagnosticSource,
			Message:  e.Msg,
		})
	}
	return out
}
