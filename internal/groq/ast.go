package groq

import (
	"fmt"
	"strings"

	"github.com/DeusData/groq-intel/internal/syntax"
)

// Node is a GROQ syntax tree node. It implements syntax.Node.
type Node struct {
	kind     string
	start    int
	end      int
	source   string
	parent   *Node
	children []*Node
	fields   map[string]*Node
}

var _ syntax.Node = (*Node)(nil)

func (n *Node) Kind() string   { return n.kind }
func (n *Node) StartByte() int { return n.start }
func (n *Node) EndByte() int   { return n.end }

func (n *Node) Text() string {
	return n.source[n.start:n.end]
}

func (n *Node) Parent() syntax.Node {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

func (n *Node) ChildByFieldName(name string) syntax.Node {
	if c, ok := n.fields[name]; ok && c != nil {
		return c
	}
	return nil
}

func (n *Node) NamedChildren() []syntax.Node {
	out := make([]syntax.Node, len(n.children))
	for i, c := range n.children {
		out[i] = c
	}
	return out
}

// SExpr renders the subtree in tree-sitter's s-expression style, with field
// names, which keeps parser tests readable.
func (n *Node) SExpr() string {
	var sb strings.Builder
	n.writeSExpr(&sb)
	return sb.String()
}

func (n *Node) writeSExpr(sb *strings.Builder) {
	sb.WriteString("(")
	sb.WriteString(n.kind)
	for _, c := range n.children {
		sb.WriteString(" ")
		if name := n.fieldNameOf(c); name != "" {
			sb.WriteString(name)
			sb.WriteString(": ")
		}
		c.writeSExpr(sb)
	}
	sb.WriteString(")")
}

func (n *Node) fieldNameOf(child *Node) string {
	for name, c := range n.fields {
		if c == child {
			return name
		}
	}
	return ""
}

// SyntaxError is a problem found while lexing or parsing.
type SyntaxError struct {
	Pos int
	End int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s at pos %d", e.Msg, e.Pos)
}

// ParseErrors collects every syntax error of one parse.
type ParseErrors []*SyntaxError

func (e ParseErrors) Error() string {
	switch len(e) {
	case 0:
		return "no errors"
	case 1:
		return e[0].Error()
	}
	return fmt.Sprintf("%s (and %d more errors)", e[0].Error(), len(e)-1)
}
