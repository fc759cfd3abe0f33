package analysis

import (
	"regexp"

	"github.com/DeusData/groq-intel/internal/model"
	"github.com/DeusData/groq-intel/internal/schema"
	"github.com/DeusData/groq-intel/internal/syntax"
)

// --- explicit filter ---

// explicitFilter finds a `_type == "X"` filter governing node: either the
// subscript whose index contains node, or the filtered base of the projection
// node sits in. The walk stops at the first projection over an unfiltered
// base, since fields there belong to that base's value and not to the outer
// document.
func explicitFilter(node syntax.Node, opts ResolveOptions) resolution {
	if node == nil {
		return resolution{}
	}
	for cur := node; cur != nil; cur = cur.Parent() {
		parent := cur.Parent()
		if parent == nil {
			break
		}
		switch parent.Kind() {
		case syntax.KindSubscript:
			if syntax.IsField(parent, "index", cur) {
				if t := documentType(opts.Schema, typeFilter(cur)); t != nil {
					return resolution{typ: t}
				}
			}
		case syntax.KindProjectionExpression:
			if syntax.IsField(parent, "projection", cur) {
				return resolution{typ: documentType(opts.Schema, baseFilter(parent))}
			}
		}
	}
	return resolution{}
}

// baseFilter returns the type named by the filter carried by a projection's
// base, looking through slices and through the left side of a pipe.
func baseFilter(pe syntax.Node) string {
	base := pe.ChildByFieldName("base")
	if base != nil && base.Kind() == syntax.KindFunctionCall {
		if pipe := pe.Parent(); pipe != nil && pipe.Kind() == syntax.KindPipe && syntax.IsField(pipe, "right", pe) {
			base = pipe.ChildByFieldName("left")
		}
	}
	for base != nil {
		switch base.Kind() {
		case syntax.KindSubscript:
			if name := typeFilter(base.ChildByFieldName("index")); name != "" {
				return name
			}
			base = base.ChildByFieldName("base")
		case syntax.KindPipe:
			base = base.ChildByFieldName("left")
		case syntax.KindParenthesized:
			base = base.ChildByFieldName("expression")
		default:
			return ""
		}
	}
	return ""
}

// typeFilter extracts X from `_type == "X"` in expr, searching through &&
// and parentheses.
func typeFilter(expr syntax.Node) string {
	if expr == nil {
		return ""
	}
	switch expr.Kind() {
	case syntax.KindComparison:
		op := expr.ChildByFieldName("operator")
		if op == nil || op.Kind() != "==" {
			return ""
		}
		left, right := expr.ChildByFieldName("left"), expr.ChildByFieldName("right")
		if isTypeAttribute(left) && isString(right) {
			return syntax.Unquote(right.Text())
		}
		if isTypeAttribute(right) && isString(left) {
			return syntax.Unquote(left.Text())
		}
	case syntax.KindAnd:
		if name := typeFilter(expr.ChildByFieldName("left")); name != "" {
			return name
		}
		return typeFilter(expr.ChildByFieldName("right"))
	case syntax.KindParenthesized:
		return typeFilter(expr.ChildByFieldName("expression"))
	}
	return ""
}

func isTypeAttribute(n syntax.Node) bool {
	return n != nil && n.Kind() == syntax.KindIdentifier && n.Text() == "_type"
}

func isString(n syntax.Node) bool {
	return n != nil && n.Kind() == syntax.KindString
}

func documentType(s *schema.Schema, name string) *schema.Type {
	if name == "" {
		return nil
	}
	if t := s.GetType(name); t != nil && t.IsDocument {
		return t
	}
	return nil
}

// --- text pattern ---

var (
	typeFilterRe      = regexp.MustCompile(`_type\s*==\s*["']([\w.-]+)["']`)
	arrayProjectionRe = regexp.MustCompile(`\b([A-Za-z_]\w*)\[\]\s*\{`)
)

// textPattern scans the source before the cursor. Of a `_type == "X"` literal
// and a `field[]{` array projection, the one closest to the cursor wins.
func textPattern(_ syntax.Node, opts ResolveOptions) resolution {
	if opts.Source == "" || opts.Cursor <= 0 {
		return resolution{}
	}
	prefix := opts.Source
	if opts.Cursor < len(prefix) {
		prefix = prefix[:opts.Cursor]
	}

	var best *schema.Type
	bestPos := -1
	for _, m := range typeFilterRe.FindAllStringSubmatchIndex(prefix, -1) {
		if t := documentType(opts.Schema, prefix[m[2]:m[3]]); t != nil && m[0] > bestPos {
			best, bestPos = t, m[0]
		}
	}
	for _, m := range arrayProjectionRe.FindAllStringSubmatchIndex(prefix, -1) {
		if m[0] <= bestPos {
			continue
		}
		for _, fo := range opts.Schema.FindFields(prefix[m[2]:m[3]]) {
			if !fo.Field.IsArray {
				continue
			}
			if t := opts.Schema.FirstKnownType(fo.Field.ArrayOf); t != nil {
				best, bestPos = t, m[0]
				break
			}
		}
	}
	return resolution{typ: best}
}

// --- function body ---

// functionBody maps node to a parameter of the enclosing function and uses
// the parameter's declared or inferred type. The walk stops at the first
// projection holding node: unless that projection's base roots at a
// parameter, the structural strategy types it.
func functionBody(node syntax.Node, opts ResolveOptions) resolution {
	def := opts.Functions.IsInsideFunctionBody(node)
	if def == nil {
		return resolution{}
	}
	for cur := node; cur != nil && !syntax.Same(cur, def.Node); cur = cur.Parent() {
		if parent := cur.Parent(); parent != nil && parent.Kind() == syntax.KindProjectionExpression &&
			syntax.IsField(parent, "projection", cur) {
			return parameterContext(def, parent.ChildByFieldName("base"), opts)
		}
		if v, _ := rootVariable(cur); v != nil {
			return parameterContext(def, cur, opts)
		}
	}
	return resolution{}
}

// parameterContext types n when it roots at a parameter of def.
func parameterContext(def *model.FunctionDefinition, n syntax.Node, opts ResolveOptions) resolution {
	v, subscripted := rootVariable(n)
	if v == nil {
		return resolution{}
	}
	p := def.ParameterByName(v.Text())
	if p == nil {
		return resolution{}
	}
	t := opts.Schema.FirstKnownType(opts.Functions.GetParameterType(def, p.Index))
	return resolution{typ: t, isArray: subscripted, parameter: p}
}

// rootVariable follows base links down to a variable, reporting whether a
// subscript was crossed.
func rootVariable(n syntax.Node) (syntax.Node, bool) {
	subscripted := false
	for n != nil {
		switch n.Kind() {
		case syntax.KindVariable:
			return n, subscripted
		case syntax.KindSubscript:
			subscripted = true
			n = n.ChildByFieldName("base")
		case syntax.KindAccess, syntax.KindDereference, syntax.KindProjectionExpression:
			n = n.ChildByFieldName("base")
		case syntax.KindParenthesized:
			n = n.ChildByFieldName("expression")
		default:
			return nil, false
		}
	}
	return nil, false
}

// --- structural ---

// structural types node by the value its enclosing projection projects:
// `field{...}`, `field->{...}` and `field[]{...}` resolve field on the
// enclosing type and follow it to its target or element type.
func structural(node syntax.Node, opts ResolveOptions) resolution {
	for cur := node; cur != nil; cur = cur.Parent() {
		parent := cur.Parent()
		if parent == nil {
			break
		}
		if parent.Kind() == syntax.KindProjectionExpression && syntax.IsField(parent, "projection", cur) {
			return resolution{typ: expressionType(parent.ChildByFieldName("base"), opts.nested())}
		}
	}
	return resolution{}
}

// expressionType returns the schema type an expression evaluates to, or nil.
// Arrays evaluate to their element type and references to their target.
func expressionType(n syntax.Node, opts ResolveOptions) *schema.Type {
	if n == nil || opts.depth > maxResolveDepth || !opts.Schema.IsLoaded() {
		return nil
	}
	switch n.Kind() {
	case syntax.KindIdentifier:
		return fieldTargetType(opts.Schema, lookupField(n, opts))
	case syntax.KindAccess, syntax.KindDereference:
		t := expressionType(n.ChildByFieldName("base"), opts.nested())
		if member := n.ChildByFieldName("member"); member != nil {
			return fieldTargetType(opts.Schema, t.Field(member.Text()))
		}
		return t
	case syntax.KindSubscript:
		return expressionType(n.ChildByFieldName("base"), opts.nested())
	case syntax.KindParenthesized:
		return expressionType(n.ChildByFieldName("expression"), opts.nested())
	case syntax.KindThis:
		return ResolveTypeContext(n, opts.nested()).Type
	case syntax.KindVariable:
		return functionBody(n, opts).typ
	}
	return nil
}

// fieldTargetType follows a field to the type its values have: the first
// known reference target, the first known array element type, or the named
// (possibly synthetic) object type. Dangling names yield nil.
func fieldTargetType(s *schema.Schema, f *schema.Field) *schema.Type {
	switch {
	case f == nil:
		return nil
	case f.IsReference:
		return s.FirstKnownType(f.ReferenceTargets)
	case f.IsArray:
		return s.FirstKnownType(f.ArrayOf)
	}
	return s.GetType(f.Type)
}
