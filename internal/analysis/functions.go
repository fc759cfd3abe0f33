// Package analysis is the schema-aware type inference engine: the function
// registry that propagates types through user-defined GROQ functions, and the
// type context resolver that decides which document type a node refers to.
package analysis

import (
	"sort"
	"strings"

	"github.com/DeusData/groq-intel/internal/extension"
	"github.com/DeusData/groq-intel/internal/model"
	"github.com/DeusData/groq-intel/internal/schema"
	"github.com/DeusData/groq-intel/internal/syntax"
)

// RecursiveCall is a direct self-call found inside a function body.
type RecursiveCall struct {
	Function string
	Call     syntax.Node
}

// FunctionRegistry indexes the user functions of one document. Each
// ExtractFromAST rebuilds it from scratch; use one registry per document.
type FunctionRegistry struct {
	defs       map[string]*model.FunctionDefinition
	order      []*model.FunctionDefinition
	duplicates []*model.FunctionDefinition
	calls      map[string][]*model.CallSite
	allCalls   []*model.CallSite
	recursive  []RecursiveCall

	schema     *schema.Schema
	extensions *extension.Registry
	source     string
}

// NewFunctionRegistry returns an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	r := &FunctionRegistry{}
	r.reset()
	return r
}

func (r *FunctionRegistry) reset() {
	r.defs = make(map[string]*model.FunctionDefinition)
	r.order = nil
	r.duplicates = nil
	r.calls = make(map[string][]*model.CallSite)
	r.allCalls = nil
	r.recursive = nil
}

// ExtractFromAST collects definitions, then call sites, then propagates the
// argument types of every call site into the callee's parameters. s and ext
// may be nil.
func (r *FunctionRegistry) ExtractFromAST(root syntax.Node, s *schema.Schema, source string, ext *extension.Registry) {
	r.reset()
	r.schema = s
	r.extensions = ext
	r.source = source
	if root == nil {
		return
	}

	syntax.Walk(root, func(n syntax.Node) bool {
		if n.Kind() == syntax.KindFunctionDefinition {
			r.addDefinition(n)
		}
		return true
	})

	syntax.Walk(root, func(n syntax.Node) bool {
		if n.Kind() == syntax.KindFunctionCall {
			r.addCallSite(n)
		}
		return true
	})

	for _, cs := range r.allCalls {
		def := r.defs[cs.Name]
		for i, types := range cs.ArgumentTypes {
			if p := def.Parameter(i); p != nil {
				p.AddInferred(types...)
			}
		}
	}
}

func (r *FunctionRegistry) addDefinition(n syntax.Node) {
	name := functionName(n.ChildByFieldName("name"))
	if name == "" {
		return
	}
	def := &model.FunctionDefinition{
		Name:  name,
		Node:  n,
		Body:  n.ChildByFieldName("body"),
		Start: n.StartByte(),
	}
	if params := n.ChildByFieldName("parameters"); params != nil {
		for _, p := range params.NamedChildren() {
			if p.Kind() != syntax.KindVariable {
				continue
			}
			def.Parameters = append(def.Parameters, &model.FunctionParameter{
				Name:  p.Text(),
				Index: len(def.Parameters),
				Node:  p,
			})
		}
	}

	if _, dup := r.defs[name]; dup {
		r.duplicates = append(r.duplicates, def)
		return
	}
	r.defs[name] = def
	r.order = append(r.order, def)
	r.extensions.RunDefinitionExtracted(def, r.source, def.Start)
}

func (r *FunctionRegistry) addCallSite(n syntax.Node) {
	name := functionName(n.ChildByFieldName("name"))
	if _, known := r.defs[name]; !known {
		return
	}
	cs := &model.CallSite{Name: name, Node: n}
	if args := n.ChildByFieldName("arguments"); args != nil {
		cs.Arguments = args.NamedChildren()
	}
	cs.ArgumentTypes = make([][]string, len(cs.Arguments))
	opts := ResolveOptions{Schema: r.schema, Functions: r}
	for i, arg := range cs.Arguments {
		cs.ArgumentTypes[i] = inferArgumentTypes(arg, opts)
	}
	r.calls[name] = append(r.calls[name], cs)
	r.allCalls = append(r.allCalls, cs)

	if enclosing := r.IsInsideFunctionBody(n); enclosing != nil && enclosing.Name == name {
		r.recursive = append(r.recursive, RecursiveCall{Function: name, Call: n})
	}
}

// functionName renders an identifier or namespaced identifier as "name" or
// "ns::name".
func functionName(n syntax.Node) string {
	if n == nil {
		return ""
	}
	if n.Kind() == syntax.KindNamespacedIdentifier {
		ns, name := n.ChildByFieldName("namespace"), n.ChildByFieldName("name")
		if ns == nil || name == nil || name.Kind() != syntax.KindIdentifier {
			return ""
		}
		return ns.Text() + "::" + name.Text()
	}
	if n.Kind() != syntax.KindIdentifier {
		return ""
	}
	return strings.TrimSpace(n.Text())
}

// GetDefinition returns the named function or nil.
func (r *FunctionRegistry) GetDefinition(name string) *model.FunctionDefinition {
	return r.defs[name]
}

// GetAllDefinitions returns every function in source order.
func (r *FunctionRegistry) GetAllDefinitions() []*model.FunctionDefinition {
	return append([]*model.FunctionDefinition(nil), r.order...)
}

// GetCallSites returns the calls of the named function in source order.
func (r *FunctionRegistry) GetCallSites(name string) []*model.CallSite {
	return append([]*model.CallSite(nil), r.calls[name]...)
}

// GetAllCallSites returns every call of a known function in source order.
func (r *FunctionRegistry) GetAllCallSites() []*model.CallSite {
	return append([]*model.CallSite(nil), r.allCalls...)
}

// RecursiveCalls returns the direct self-calls found during extraction.
func (r *FunctionRegistry) RecursiveCalls() []RecursiveCall {
	return append([]RecursiveCall(nil), r.recursive...)
}

// IsInsideFunctionBody returns the function whose definition encloses node,
// or nil. This is the one place that answers "which function am I in".
func (r *FunctionRegistry) IsInsideFunctionBody(node syntax.Node) *model.FunctionDefinition {
	if r == nil || node == nil {
		return nil
	}
	defNode := syntax.FindAncestor(node, syntax.KindFunctionDefinition)
	if defNode == nil {
		return nil
	}
	return r.defs[functionName(defNode.ChildByFieldName("name"))]
}

// GetParameterType returns the parameter's type names. A type declared by an
// extension wins outright; otherwise the inferred set is returned, sorted.
func (r *FunctionRegistry) GetParameterType(def *model.FunctionDefinition, index int) []string {
	p := def.Parameter(index)
	if p == nil {
		return nil
	}
	if declared := r.extensions.ParameterType(def, p, index); declared != "" {
		return []string{declared}
	}
	return sortedSet(p.InferredTypes)
}

// GetInferredParameterType returns the call-site-inferred types of a
// parameter, ignoring declarations.
func (r *FunctionRegistry) GetInferredParameterType(name string, index int) []string {
	p := r.defs[name].Parameter(index)
	if p == nil {
		return nil
	}
	return sortedSet(p.InferredTypes)
}

func sortedSet(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
