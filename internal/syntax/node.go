// Package syntax defines the syntax-tree contract the analysis engine consumes.
//
// Any parser that can present its tree through Node can drive the engine: the
// hand-written GROQ parser in internal/groq and tree-sitter grammars (through
// FromTreeSitter) both do.
package syntax

// Node kinds of the GROQ syntax vocabulary.
const (
	KindSourceFile           = "source_file"
	KindFunctionDefinition   = "function_definition"
	KindParameterList        = "parameter_list"
	KindFunctionCall         = "function_call"
	KindArgumentList         = "argument_list"
	KindIdentifier           = "identifier"
	KindVariable             = "variable"
	KindNamespacedIdentifier = "namespaced_identifier"
	KindEverything           = "everything"
	KindThis                 = "this"
	KindParent               = "parent"
	KindSubscript            = "subscript_expression"
	KindRange                = "range_expression"
	KindProjection           = "projection"
	KindProjectionExpression = "projection_expression"
	KindPair                 = "pair"
	KindSpread               = "spread"
	KindAccess               = "access_expression"
	KindDereference          = "dereference_expression"
	KindComparison           = "comparison_expression"
	KindAnd                  = "and_expression"
	KindOr                   = "or_expression"
	KindNot                  = "not_expression"
	KindArithmetic           = "arithmetic_expression"
	KindPipe                 = "pipe_expression"
	KindOrdering             = "ordering"
	KindParenthesized        = "parenthesized_expression"
	KindArray                = "array"
	KindString               = "string"
	KindNumber               = "number"
	KindBoolean              = "boolean"
	KindNull                 = "null"
	KindError                = "ERROR"
)

// Node is one node of a parsed query. Implementations must return an untyped
// nil (not a nil pointer wrapped in the interface) for absent nodes.
type Node interface {
	// Kind is the node type tag, one of the Kind* constants.
	Kind() string
	// Text is the source text the node spans.
	Text() string
	StartByte() int
	EndByte() int
	Parent() Node
	ChildByFieldName(name string) Node
	NamedChildren() []Node
}

// WalkFunc is called for each node during traversal.
// Return false to skip children.
type WalkFunc func(node Node) bool

// Walk traverses the tree in depth-first order.
func Walk(node Node, fn WalkFunc) {
	if node == nil {
		return
	}
	if !fn(node) {
		return
	}
	for _, child := range node.NamedChildren() {
		Walk(child, fn)
	}
}

// Same reports whether a and b denote the same node. Adapters may hand out
// fresh wrapper values for one underlying node, so identity is kind plus span.
func Same(a, b Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Kind() == b.Kind() && a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte()
}

// Contains reports whether inner lies within outer's span.
func Contains(outer, inner Node) bool {
	if outer == nil || inner == nil {
		return false
	}
	return outer.StartByte() <= inner.StartByte() && inner.EndByte() <= outer.EndByte()
}

// FindAncestor returns the nearest strict ancestor of node whose kind is one of
// kinds, or nil.
func FindAncestor(node Node, kinds ...string) Node {
	if node == nil {
		return nil
	}
	for cur := node.Parent(); cur != nil; cur = cur.Parent() {
		for _, k := range kinds {
			if cur.Kind() == k {
				return cur
			}
		}
	}
	return nil
}

// IsField reports whether child is the node stored under field on parent.
func IsField(parent Node, field string, child Node) bool {
	if parent == nil || child == nil {
		return false
	}
	return Same(parent.ChildByFieldName(field), child)
}

// DescendantAt returns the deepest named node whose span covers offset.
// Ends are inclusive so a cursor sitting right after an identifier still
// lands on it.
func DescendantAt(root Node, offset int) Node {
	if root == nil || offset < root.StartByte() || offset > root.EndByte() {
		return nil
	}
	best := root
	for {
		var next Node
		for _, child := range best.NamedChildren() {
			if child.StartByte() <= offset && offset <= child.EndByte() {
				next = child
				// Prefer the child that starts at the offset over one ending there.
				if child.StartByte() == offset || offset < child.EndByte() {
					break
				}
			}
		}
		if next == nil {
			return best
		}
		best = next
	}
}

// Unquote strips the surrounding quotes of a string literal node's text.
func Unquote(text string) string {
	if len(text) >= 2 {
		first, last := text[0], text[len(text)-1]
		if (first == '"' || first == '\'') && first == last {
			return text[1 : len(text)-1]
		}
	}
	return text
}
