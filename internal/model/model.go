// Package model holds the user-defined function data shared by the function
// registry, the type context resolver and extensions.
package model

import (
	"go.lsp.dev/protocol"

	"github.com/DeusData/groq-intel/internal/schema"
	"github.com/DeusData/groq-intel/internal/syntax"
)

// FunctionParameter is one declared parameter of a user function.
type FunctionParameter struct {
	Name  string // including the leading '$'
	Index int

	// InferredTypes is the set of type names flowing in from call sites.
	InferredTypes map[string]struct{}

	// DeclaredType is set by extensions (e.g. a comment annotation) and
	// overrides inference.
	DeclaredType  string
	DeclaredRange *protocol.Range

	Node syntax.Node
}

// AddInferred records a type name reaching this parameter from a call site.
func (p *FunctionParameter) AddInferred(names ...string) {
	for _, n := range names {
		if n == "" {
			continue
		}
		if p.InferredTypes == nil {
			p.InferredTypes = make(map[string]struct{})
		}
		p.InferredTypes[n] = struct{}{}
	}
}

// FunctionDefinition is a `fn name(...) = body;` declaration.
type FunctionDefinition struct {
	Name       string // possibly namespaced, e.g. "ns::get"
	Parameters []*FunctionParameter
	Node       syntax.Node
	Body       syntax.Node
	Start      int // byte offset of the definition
}

// Parameter returns the parameter at index or nil.
func (d *FunctionDefinition) Parameter(index int) *FunctionParameter {
	if d == nil || index < 0 || index >= len(d.Parameters) {
		return nil
	}
	return d.Parameters[index]
}

// ParameterByName returns the named parameter ("$x") or nil.
func (d *FunctionDefinition) ParameterByName(name string) *FunctionParameter {
	if d == nil {
		return nil
	}
	for _, p := range d.Parameters {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// CallSite is one invocation of a known user function.
type CallSite struct {
	Name string
	Node syntax.Node
	// ArgumentTypes holds one inferred type list per argument position; an
	// empty list means unknown.
	ArgumentTypes [][]string
	Arguments     []syntax.Node
}

// HoverContext describes what a hover request points at.
type HoverContext struct {
	Text      string
	Function  *FunctionDefinition
	Parameter *FunctionParameter
	Schema    *schema.Schema
}
