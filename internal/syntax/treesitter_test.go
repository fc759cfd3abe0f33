package syntax

import (
	"testing"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
)

func newJSParser(t *testing.T) *TreeSitterParser {
	t.Helper()
	p, err := NewTreeSitterParser(tree_sitter.NewLanguage(tree_sitter_javascript.Language()))
	if err != nil {
		t.Fatalf("NewTreeSitterParser: %v", err)
	}
	return p
}

func TestTreeSitterAdapter(t *testing.T) {
	p := newJSParser(t)
	source := []byte("author.name(post);")
	tree, err := p.Parse(source)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	defer tree.Close()

	root := tree.Root()
	if root.Kind() != "program" {
		t.Fatalf("expected program root, got %s", root.Kind())
	}

	var call Node
	Walk(root, func(n Node) bool {
		if n.Kind() == "call_expression" {
			call = n
			return false
		}
		return true
	})
	if call == nil {
		t.Fatal("call_expression not found")
	}
	fn := call.ChildByFieldName("function")
	if fn == nil || fn.Kind() != "member_expression" {
		t.Fatalf("expected member_expression callee, got %v", fn)
	}
	if fn.Text() != "author.name" {
		t.Errorf("callee text: got %q", fn.Text())
	}
	if !Same(fn.Parent(), call) {
		t.Error("callee parent should be the call node")
	}
	if call.ChildByFieldName("nonexistent") != nil {
		t.Error("missing field should be an untyped nil")
	}

	leaf := DescendantAt(root, 1)
	if leaf == nil || leaf.Text() != "author" {
		t.Errorf("DescendantAt(1): got %v", leaf)
	}
}

func TestTreeSitterParserReuse(t *testing.T) {
	p := newJSParser(t)
	for i := 0; i < 3; i++ {
		tree, err := p.Parse([]byte("x + 1;"))
		if err != nil {
			t.Fatalf("Parse #%d: %v", i, err)
		}
		if tree.Root().EndByte() != 6 {
			t.Errorf("Parse #%d: unexpected root span end %d", i, tree.Root().EndByte())
		}
		tree.Close()
	}
}

func TestNewTreeSitterParserNilLanguage(t *testing.T) {
	if _, err := NewTreeSitterParser(nil); err == nil {
		t.Fatal("expected error for nil language")
	}
}
