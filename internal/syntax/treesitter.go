package syntax

import (
	"fmt"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// tsNode presents a tree-sitter node through the Node contract.
type tsNode struct {
	n   *tree_sitter.Node
	src []byte
}

// FromTreeSitter wraps a tree-sitter node. source must be the exact bytes the
// tree was parsed from.
func FromTreeSitter(n *tree_sitter.Node, source []byte) Node {
	if n == nil {
		return nil
	}
	return &tsNode{n: n, src: source}
}

func (t *tsNode) Kind() string {
	if t.n.IsError() {
		return KindError
	}
	return t.n.Kind()
}

func (t *tsNode) Text() string {
	return string(t.src[t.n.StartByte():t.n.EndByte()])
}

func (t *tsNode) StartByte() int { return int(t.n.StartByte()) }
func (t *tsNode) EndByte() int   { return int(t.n.EndByte()) }

func (t *tsNode) Parent() Node {
	return FromTreeSitter(t.n.Parent(), t.src)
}

func (t *tsNode) ChildByFieldName(name string) Node {
	return FromTreeSitter(t.n.ChildByFieldName(name), t.src)
}

func (t *tsNode) NamedChildren() []Node {
	count := t.n.NamedChildCount()
	out := make([]Node, 0, count)
	for i := uint(0); i < count; i++ {
		if child := t.n.NamedChild(i); child != nil {
			out = append(out, &tsNode{n: child, src: t.src})
		}
	}
	return out
}

// TreeSitterParser parses query text with a tree-sitter grammar supplied by
// the host. Parsers are pooled via sync.Pool to avoid per-request allocation.
type TreeSitterParser struct {
	pool sync.Pool
}

// NewTreeSitterParser creates a pooled parser for language.
func NewTreeSitterParser(language *tree_sitter.Language) (*TreeSitterParser, error) {
	if language == nil {
		return nil, fmt.Errorf("nil tree-sitter language")
	}
	probe := tree_sitter.NewParser()
	if err := probe.SetLanguage(language); err != nil {
		probe.Close()
		return nil, fmt.Errorf("set language: %w", err)
	}
	p := &TreeSitterParser{}
	p.pool.New = func() any {
		tp := tree_sitter.NewParser()
		if err := tp.SetLanguage(language); err != nil {
			panic(fmt.Sprintf("set language: %v", err))
		}
		return tp
	}
	p.pool.Put(probe)
	return p, nil
}

// Tree owns a parsed tree-sitter tree. The caller must call Close when done.
type Tree struct {
	ts     *tree_sitter.Tree
	source []byte
}

// Root returns the root node.
func (t *Tree) Root() Node {
	return FromTreeSitter(t.ts.RootNode(), t.source)
}

// Close releases the underlying tree.
func (t *Tree) Close() {
	t.ts.Close()
}

// Parse parses source into a Tree.
func (p *TreeSitterParser) Parse(source []byte) (*Tree, error) {
	tp, _ := p.pool.Get().(*tree_sitter.Parser)
	if tp == nil {
		return nil, fmt.Errorf("failed to get tree-sitter parser")
	}
	ts := tp.Parse(source, nil)
	p.pool.Put(tp)
	if ts == nil {
		return nil, fmt.Errorf("tree-sitter parse failed")
	}
	return &Tree{ts: ts, source: source}, nil
}
