package groq

import (
	"errors"
	"strings"
	"testing"

	"github.com/DeusData/groq-intel/internal/syntax"
)

// --- Lexer tests ---

func TestLexBasicQuery(t *testing.T) {
	tokens, errs := Lex(`*[_type == "post" && defined(slug.current)]{title, author->}`)
	if len(errs) != 0 {
		t.Fatalf("lex errors: %v", errs)
	}

	expected := []TokenType{
		TokStar, TokLBracket, TokIdent, TokEQ, TokString, TokAnd, TokIdent, TokLParen,
		TokIdent, TokDot, TokIdent, TokRParen, TokRBracket, TokLBrace, TokIdent, TokComma,
		TokIdent, TokArrow, TokRBrace, TokEOF,
	}
	if len(tokens) != len(expected) {
		t.Fatalf("expected %d tokens, got %d", len(expected), len(tokens))
	}
	for i, tok := range tokens {
		if tok.Type != expected[i] {
			t.Errorf("token[%d]: expected type %d, got %d (%q)", i, expected[i], tok.Type, tok.Value)
		}
	}
}

func TestLexRangesAndSpread(t *testing.T) {
	tokens, _ := Lex(`[0..5] [0...5] {...}`)
	expected := []TokenType{
		TokLBracket, TokNumber, TokDotDot, TokNumber, TokRBracket,
		TokLBracket, TokNumber, TokEllipsis, TokNumber, TokRBracket,
		TokLBrace, TokEllipsis, TokRBrace, TokEOF,
	}
	if len(tokens) != len(expected) {
		t.Fatalf("expected %d tokens, got %d", len(expected), len(tokens))
	}
	for i, tok := range tokens {
		if tok.Type != expected[i] {
			t.Errorf("token[%d]: expected type %d, got %d (%q)", i, expected[i], tok.Type, tok.Value)
		}
	}
}

func TestLexSkipsComments(t *testing.T) {
	tokens, _ := Lex("// @param {author} $a\nfn ns::f($a) = $a;")
	if tokens[0].Type != TokIdent || tokens[0].Value != "fn" {
		t.Fatalf("expected comment to be skipped, first token %v", tokens[0])
	}
	if tokens[2].Type != TokScope {
		t.Errorf("expected '::' token, got %v", tokens[2])
	}
	if tokens[5].Type != TokVariable || tokens[5].Value != "$a" {
		t.Errorf("expected variable $a, got %v", tokens[5])
	}
}

func TestLexUnterminatedString(t *testing.T) {
	tokens, errs := Lex(`*[_type == "po`)
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %d", len(errs))
	}
	last := tokens[len(tokens)-2]
	if last.Type != TokString || last.Value != `"po` {
		t.Errorf("expected partial string token, got %v", last)
	}
}

// --- Parser tests ---

func mustParse(t *testing.T, src string) *Node {
	t.Helper()
	root, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	return root
}

func TestParseShapes(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "filter with nested dereference projection",
			src:  `*[_type == "post"]{ title, author->{ name } }`,
			want: "(source_file (projection_expression base: (subscript_expression base: (everything) index: (comparison_expression left: (identifier) right: (string))) projection: (projection (identifier) (projection_expression base: (dereference_expression base: (identifier)) projection: (projection (identifier))))))",
		},
		{
			name: "namespaced function definition",
			src:  `fn ns::f($a, $b) = $a->{ name };`,
			want: "(source_file (function_definition name: (namespaced_identifier namespace: (identifier) name: (identifier)) parameters: (parameter_list (variable) (variable)) body: (projection_expression base: (dereference_expression base: (variable)) projection: (projection (identifier)))))",
		},
		{
			name: "call with array traversal argument",
			src:  `f(author, tags[])`,
			want: "(source_file (function_call name: (identifier) arguments: (argument_list (identifier) (subscript_expression base: (identifier)))))",
		},
		{
			name: "pipe with ordering and slice",
			src:  `*[_type == "post"] | order(publishedAt desc)[0...10]`,
			want: "(source_file (pipe_expression left: (subscript_expression base: (everything) index: (comparison_expression left: (identifier) right: (string))) right: (subscript_expression base: (function_call name: (identifier) arguments: (argument_list (ordering expression: (identifier)))) index: (range_expression start: (number) end: (number)))))",
		},
		{
			name: "pairs and spread",
			src:  `*[_type == "post"]{ ..., "authorName": author->name, defined(x) => { x } }`,
			want: "(source_file (projection_expression base: (subscript_expression base: (everything) index: (comparison_expression left: (identifier) right: (string))) projection: (projection (spread) (pair key: (string) value: (dereference_expression base: (identifier) member: (identifier))) (pair key: (function_call name: (identifier) arguments: (argument_list (identifier))) value: (projection (identifier))))))",
		},
		{
			name: "boolean logic and precedence",
			src:  `!a && b || c > 1 + 2 * 3`,
			want: "(source_file (or_expression left: (and_expression left: (not_expression expression: (identifier)) right: (identifier)) right: (comparison_expression left: (identifier) right: (arithmetic_expression left: (number) right: (arithmetic_expression left: (number) right: (number))))))",
		},
		{
			name: "access chain and array literal",
			src:  `slug.current in ["a", 'b', $c]`,
			want: "(source_file (comparison_expression left: (access_expression base: (identifier) member: (identifier)) right: (array (string) (string) (variable))))",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := mustParse(t, tt.src)
			if got := root.SExpr(); got != tt.want {
				t.Errorf("\n got: %s\nwant: %s", got, tt.want)
			}
		})
	}
}

func TestParseOperatorField(t *testing.T) {
	root := mustParse(t, `_type != "post"`)
	cmp := root.NamedChildren()[0]
	op := cmp.ChildByFieldName("operator")
	if op == nil || op.Kind() != "!=" {
		t.Fatalf("expected operator '!=', got %v", op)
	}
	if len(cmp.NamedChildren()) != 2 {
		t.Errorf("operator must not be a named child, got %d children", len(cmp.NamedChildren()))
	}
}

func TestParseSpansAndParents(t *testing.T) {
	src := `fn ns::get($x) = $x.title; ns::get(@)`
	root := mustParse(t, src)
	var call syntax.Node
	syntax.Walk(root, func(n syntax.Node) bool {
		if n.Kind() == syntax.KindFunctionCall {
			call = n
		}
		return true
	})
	if call == nil {
		t.Fatal("function_call not found")
	}
	if call.Text() != "ns::get(@)" {
		t.Errorf("call text: got %q", call.Text())
	}
	name := call.ChildByFieldName("name")
	if name.Kind() != syntax.KindNamespacedIdentifier || name.Text() != "ns::get" {
		t.Errorf("call name: got %s %q", name.Kind(), name.Text())
	}
	if !syntax.Same(name.Parent(), call) {
		t.Error("name parent should be the call")
	}
	if root.Parent() != nil {
		t.Error("root parent should be an untyped nil")
	}
	if call.ChildByFieldName("body") != nil {
		t.Error("missing field should be an untyped nil")
	}
}

func TestParseIncompleteQuery(t *testing.T) {
	src := `*[_type == "post"]{ title, `
	root, err := Parse(src)
	if err == nil {
		t.Fatal("expected parse error")
	}
	var perrs ParseErrors
	if !errors.As(err, &perrs) || len(perrs) == 0 {
		t.Fatalf("expected ParseErrors, got %T", err)
	}
	if !strings.Contains(err.Error(), "expected '}'") {
		t.Errorf("unexpected error text: %v", err)
	}
	pe := root.NamedChildren()[0]
	if pe.Kind() != syntax.KindProjectionExpression {
		t.Fatalf("expected projection_expression, got %s", pe.Kind())
	}
	if pe.ChildByFieldName("projection") == nil {
		t.Error("expected a projection even when unterminated")
	}
	if root.EndByte() != len(src) {
		t.Errorf("root should span the whole source, ends at %d", root.EndByte())
	}
}

func TestParseRecoversFromGarbage(t *testing.T) {
	root, err := Parse(`*[_type == "post"] ) # {title}`)
	if err == nil {
		t.Fatal("expected errors")
	}
	var kinds []string
	for _, c := range root.NamedChildren() {
		kinds = append(kinds, c.Kind())
	}
	got := strings.Join(kinds, ",")
	if !strings.HasPrefix(got, "subscript_expression,ERROR,ERROR") {
		t.Errorf("unexpected recovery shape: %s", got)
	}
	if !strings.HasSuffix(got, ",ERROR,projection") {
		t.Errorf("expected parsing to resume at the projection, got %s", got)
	}
	children := root.NamedChildren()
	last := children[len(children)-1]
	if want := "(projection (identifier))"; last.(*Node).SExpr() != want {
		t.Errorf("last statement = %s, want %s", last.(*Node).SExpr(), want)
	}
}

func TestParseErrorLeafIsNotABase(t *testing.T) {
	root, err := Parse(`# [0].title`)
	if err == nil {
		t.Fatal("expected an error for '#'")
	}
	syntax.Walk(root, func(n syntax.Node) bool {
		if base := n.ChildByFieldName("base"); base != nil && base.Kind() == syntax.KindError {
			t.Errorf("%s has an ERROR base", n.Kind())
		}
		return true
	})
}

func TestParseTrailingMemberAccess(t *testing.T) {
	root, err := Parse(`*[_type == "post"]{ author. }`)
	if err == nil {
		t.Fatal("expected an error for the dangling '.'")
	}
	var access syntax.Node
	syntax.Walk(root, func(n syntax.Node) bool {
		if n.Kind() == syntax.KindAccess {
			access = n
		}
		return true
	})
	if access == nil {
		t.Fatal("expected an access_expression for the incomplete member")
	}
	if access.ChildByFieldName("base").Text() != "author" {
		t.Errorf("base: got %q", access.ChildByFieldName("base").Text())
	}
}
