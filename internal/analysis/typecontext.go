package analysis

import (
	"sort"

	"github.com/DeusData/groq-intel/internal/model"
	"github.com/DeusData/groq-intel/internal/schema"
	"github.com/DeusData/groq-intel/internal/syntax"
)

// maxResolveDepth bounds the mutual recursion between context resolution and
// expression typing.
const maxResolveDepth = 32

// Strategy names reported in InferredContext.Strategy.
const (
	StrategyFilter     = "filter"
	StrategyText       = "text"
	StrategyFunction   = "function"
	StrategyStructural = "structural"
)

// InferredContext is what the resolver knows about a node.
type InferredContext struct {
	// Type is the pinned type, or nil when any document type is possible.
	Type *schema.Type
	// DocumentTypes lists every document type of the schema.
	DocumentTypes []string
	// Field is the field the node names, when it names one.
	Field *schema.Field
	// IsArray marks a node evaluated per element of an array.
	IsArray bool

	Function  *model.FunctionDefinition
	Parameter *model.FunctionParameter

	// Strategy names the strategy that pinned Type.
	Strategy string
}

// ResolveOptions carries the inputs of a resolution.
type ResolveOptions struct {
	Schema    *schema.Schema
	Functions *FunctionRegistry

	// Source and Cursor enable the text-pattern fallback. Supply them only for
	// queries the parser could not fully make sense of.
	Source string
	Cursor int

	depth int
}

// nested returns options for a recursive resolution. The text fallback only
// ever applies to the outermost request.
func (o ResolveOptions) nested() ResolveOptions {
	o.Source = ""
	o.Cursor = 0
	o.depth++
	return o
}

// resolution is a strategy's answer.
type resolution struct {
	typ       *schema.Type
	isArray   bool
	parameter *model.FunctionParameter
}

type strategy struct {
	name    string
	resolve func(node syntax.Node, opts ResolveOptions) resolution
}

// strategies is the priority chain. The first strategy pinning a type wins.
func strategies() []strategy {
	return []strategy{
		{StrategyFilter, explicitFilter},
		{StrategyText, textPattern},
		{StrategyFunction, functionBody},
		{StrategyStructural, structural},
	}
}

// ResolveTypeContext determines the type in scope at node. It never fails:
// when nothing can be pinned the context has a nil Type and the full list of
// document types.
func ResolveTypeContext(node syntax.Node, opts ResolveOptions) InferredContext {
	ctx := InferredContext{DocumentTypes: opts.Schema.GetDocumentTypeNames()}
	if opts.depth > maxResolveDepth {
		return ctx
	}
	ctx.Function = opts.Functions.IsInsideFunctionBody(node)

	if opts.Schema.IsLoaded() {
		for _, s := range strategies() {
			res := s.resolve(node, opts)
			if res.typ == nil {
				continue
			}
			ctx.Type = res.typ
			ctx.IsArray = res.isArray
			ctx.Parameter = res.parameter
			ctx.Strategy = s.name
			break
		}
	}

	attachField(&ctx, node, opts)
	if insideArraySubscript(node, ctx.Function != nil) {
		ctx.IsArray = true
	}
	return ctx
}

// attachField records the field a bare or member identifier names. Members
// are looked up on their base's type first.
func attachField(ctx *InferredContext, node syntax.Node, opts ResolveOptions) {
	if node == nil || node.Kind() != syntax.KindIdentifier || !opts.Schema.IsLoaded() {
		return
	}
	name := node.Text()
	if parent := node.Parent(); parent != nil && isMemberAccess(parent) && syntax.IsField(parent, "member", node) {
		if f := expressionType(parent.ChildByFieldName("base"), opts.nested()).Field(name); f != nil {
			ctx.Field = f
			return
		}
	}
	ctx.Field = ctx.Type.Field(name)
}

func isMemberAccess(n syntax.Node) bool {
	return n.Kind() == syntax.KindAccess || n.Kind() == syntax.KindDereference
}

// insideArraySubscript reports whether node sits in the index of a subscript
// over * or, inside a function body, over a variable.
func insideArraySubscript(node syntax.Node, inFunction bool) bool {
	if node == nil {
		return false
	}
	for cur := node; cur != nil; cur = cur.Parent() {
		parent := cur.Parent()
		if parent == nil || parent.Kind() != syntax.KindSubscript || !syntax.IsField(parent, "index", cur) {
			continue
		}
		switch base := parent.ChildByFieldName("base"); {
		case base == nil:
		case base.Kind() == syntax.KindEverything:
			return true
		case inFunction && base.Kind() == syntax.KindVariable:
			return true
		}
		return false
	}
	return false
}

// GetAvailableFields returns the pinned type's fields, or the union of the
// fields of every candidate document type, ordered by name.
func GetAvailableFields(ctx InferredContext, s *schema.Schema) []*schema.Field {
	if ctx.Type != nil {
		return ctx.Type.SortedFields()
	}
	seen := make(map[string]bool)
	var out []*schema.Field
	for _, name := range ctx.DocumentTypes {
		for _, f := range s.GetFieldsForType(name) {
			if seen[f.Name] {
				continue
			}
			seen[f.Name] = true
			out = append(out, f)
		}
	}
	sortFields(out)
	return out
}

// GetReferenceTargetFields returns the fields reachable through a reference
// field, across all its known targets, ordered by name.
func GetReferenceTargetFields(f *schema.Field, s *schema.Schema) []*schema.Field {
	if f == nil || !f.IsReference {
		return nil
	}
	seen := make(map[string]bool)
	var out []*schema.Field
	for _, target := range f.ReferenceTargets {
		for _, tf := range s.GetFieldsForType(target) {
			if seen[tf.Name] {
				continue
			}
			seen[tf.Name] = true
			out = append(out, tf)
		}
	}
	sortFields(out)
	return out
}

func sortFields(fields []*schema.Field) {
	sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })
}
