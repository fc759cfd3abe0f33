// Package extension is the single extension point of the analysis engine.
//
// An Extension implements any subset of a closed set of hooks. The Registry
// keeps extensions in registration order, each enabled or disabled, and hands
// the hooks of enabled extensions to the engine. The engine never looks at an
// extension's identity.
package extension

import (
	"fmt"
	"sync"

	"go.lsp.dev/protocol"

	"github.com/DeusData/groq-intel/internal/model"
	"github.com/DeusData/groq-intel/internal/schema"
)

// HookKind enumerates the hooks an extension may implement.
type HookKind int

const (
	// HookDefinitionExtracted may mutate a freshly built function definition.
	HookDefinitionExtracted HookKind = iota
	// HookParameterType may declare a parameter's type. First non-empty wins.
	HookParameterType
	// HookDiagnostics reports extra diagnostics for a document.
	HookDiagnostics
	// HookHoverContent contributes extra hover markdown.
	HookHoverContent
)

// AllHooks lists every hook kind.
var AllHooks = []HookKind{HookDefinitionExtracted, HookParameterType, HookDiagnostics, HookHoverContent}

func (k HookKind) String() string {
	switch k {
	case HookDefinitionExtracted:
		return "definition-extracted"
	case HookParameterType:
		return "parameter-type"
	case HookDiagnostics:
		return "diagnostics"
	case HookHoverContent:
		return "hover-content"
	}
	return fmt.Sprintf("HookKind(%d)", int(k))
}

// Hook signatures.
type (
	DefinitionExtractedFunc func(def *model.FunctionDefinition, source string, start int)
	ParameterTypeFunc       func(def *model.FunctionDefinition, param *model.FunctionParameter, index int) string
	DiagnosticsFunc         func(defs []*model.FunctionDefinition, s *schema.Schema, source string) []protocol.Diagnostic
	HoverContentFunc        func(ctx model.HoverContext) string
)

// Options are free-form settings passed to an extension when it is enabled.
type Options map[string]any

// Extension is a named bundle of hooks. Nil hook fields are not implemented.
type Extension struct {
	ID          string
	Description string

	DefinitionExtracted DefinitionExtractedFunc
	ParameterType       ParameterTypeFunc
	Diagnostics         DiagnosticsFunc
	HoverContent        HoverContentFunc

	// OnEnable, when set, receives the options given to Enable.
	OnEnable func(Options)
}

// Implements reports whether e provides the hook.
func (e *Extension) Implements(kind HookKind) bool {
	return e.hook(kind) != nil
}

// Binding pairs an enabled extension with one of its hooks. The typed
// accessor matching Kind returns the hook; the others return nil.
type Binding struct {
	Extension *Extension
	Kind      HookKind

	fn any
}

func (b Binding) DefinitionExtracted() DefinitionExtractedFunc {
	f, _ := b.fn.(DefinitionExtractedFunc)
	return f
}

func (b Binding) ParameterType() ParameterTypeFunc {
	f, _ := b.fn.(ParameterTypeFunc)
	return f
}

func (b Binding) Diagnostics() DiagnosticsFunc {
	f, _ := b.fn.(DiagnosticsFunc)
	return f
}

func (b Binding) HoverContent() HoverContentFunc {
	f, _ := b.fn.(HoverContentFunc)
	return f
}

// hook returns e's function for kind, or nil.
func (e *Extension) hook(kind HookKind) any {
	switch kind {
	case HookDefinitionExtracted:
		if e.DefinitionExtracted != nil {
			return e.DefinitionExtracted
		}
	case HookParameterType:
		if e.ParameterType != nil {
			return e.ParameterType
		}
	case HookDiagnostics:
		if e.Diagnostics != nil {
			return e.Diagnostics
		}
	case HookHoverContent:
		if e.HoverContent != nil {
			return e.HoverContent
		}
	}
	return nil
}

type entry struct {
	ext     *Extension
	enabled bool
	options Options
}

// Registry holds extensions by id. The zero value is ready to use, and a nil
// *Registry behaves as an empty one.
type Registry struct {
	mu      sync.RWMutex
	entries []*entry
	byID    map[string]*entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds ext in the disabled state.
func (r *Registry) Register(ext *Extension) error {
	if ext == nil || ext.ID == "" {
		return fmt.Errorf("extension: missing id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byID == nil {
		r.byID = make(map[string]*entry)
	}
	if _, dup := r.byID[ext.ID]; dup {
		return fmt.Errorf("extension %q already registered", ext.ID)
	}
	e := &entry{ext: ext}
	r.entries = append(r.entries, e)
	r.byID[ext.ID] = e
	return nil
}

// Enable turns an extension on, passing opts to its OnEnable callback.
func (r *Registry) Enable(id string, opts Options) error {
	if r == nil {
		return fmt.Errorf("extension %q is not registered", id)
	}
	r.mu.Lock()
	e, ok := r.byID[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("extension %q is not registered", id)
	}
	e.enabled = true
	e.options = opts
	onEnable := e.ext.OnEnable
	r.mu.Unlock()

	if onEnable != nil {
		onEnable(opts)
	}
	return nil
}

// Disable turns an extension off.
func (r *Registry) Disable(id string) error {
	if r == nil {
		return fmt.Errorf("extension %q is not registered", id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("extension %q is not registered", id)
	}
	e.enabled = false
	return nil
}

// IsEnabled reports whether id is registered and enabled.
func (r *Registry) IsEnabled(id string) bool {
	if r == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byID[id]
	return ok && e.enabled
}

// IDs returns every registered id in registration order.
func (r *Registry) IDs() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.ext.ID
	}
	return out
}

// Hooks returns the enabled extensions implementing kind paired with their
// hook, in registration order. The Run* helpers below are built on it.
func (r *Registry) Hooks(kind HookKind) []Binding {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Binding
	for _, e := range r.entries {
		if !e.enabled {
			continue
		}
		if fn := e.ext.hook(kind); fn != nil {
			out = append(out, Binding{Extension: e.ext, Kind: kind, fn: fn})
		}
	}
	return out
}

// RunDefinitionExtracted lets every enabled extension adjust def.
func (r *Registry) RunDefinitionExtracted(def *model.FunctionDefinition, source string, start int) {
	for _, b := range r.Hooks(HookDefinitionExtracted) {
		b.DefinitionExtracted()(def, source, start)
	}
}

// ParameterType returns the first non-empty declared type, or "".
func (r *Registry) ParameterType(def *model.FunctionDefinition, param *model.FunctionParameter, index int) string {
	for _, b := range r.Hooks(HookParameterType) {
		if t := b.ParameterType()(def, param, index); t != "" {
			return t
		}
	}
	return ""
}

// Diagnostics concatenates the diagnostics of every enabled extension.
func (r *Registry) Diagnostics(defs []*model.FunctionDefinition, s *schema.Schema, source string) []protocol.Diagnostic {
	var out []protocol.Diagnostic
	for _, b := range r.Hooks(HookDiagnostics) {
		out = append(out, b.Diagnostics()(defs, s, source)...)
	}
	return out
}

// HoverContent collects non-empty hover contributions in order.
func (r *Registry) HoverContent(ctx model.HoverContext) []string {
	var out []string
	for _, b := range r.Hooks(HookHoverContent) {
		if md := b.HoverContent()(ctx); md != "" {
			out = append(out, md)
		}
	}
	return out
}
