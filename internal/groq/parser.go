package groq

import (
	"fmt"

	"github.com/DeusData/groq-intel/internal/syntax"
)

// Parser converts a token stream into a syntax tree.
type Parser struct {
	source string
	tokens []Token
	pos    int
	errs   ParseErrors
}

// Parse tokenizes and parses a GROQ query. It always returns a tree; when the
// query is malformed or incomplete the offending spans become ERROR nodes and
// the returned error is a ParseErrors listing every problem.
func Parse(source string) (*Node, error) {
	tokens, lexErrs := Lex(source)
	p := &Parser{source: source, tokens: tokens, errs: lexErrs}
	root := p.parseSourceFile()
	if len(p.errs) > 0 {
		return root, p.errs
	}
	return root, nil
}

func (p *Parser) peek() Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos]
}

func (p *Parser) peekAt(offset int) Token {
	if p.pos+offset >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+offset]
}

func (p *Parser) advance() Token {
	t := p.peek()
	if t.Type != TokEOF {
		p.pos++
	}
	return t
}

// prevEnd is the end offset of the last consumed token.
func (p *Parser) prevEnd() int {
	if p.pos == 0 {
		return 0
	}
	return p.tokens[p.pos-1].End
}

func (p *Parser) expect(typ TokenType, what string) bool {
	t := p.peek()
	if t.Type == typ {
		p.advance()
		return true
	}
	p.errorf(t, "expected %s, got %s", what, describe(t))
	return false
}

func (p *Parser) errorf(t Token, format string, args ...any) {
	p.errs = append(p.errs, &SyntaxError{Pos: t.Pos, End: t.End, Msg: fmt.Sprintf(format, args...)})
}

func describe(t Token) string {
	if t.Type == TokEOF {
		return "end of input"
	}
	return fmt.Sprintf("%q", t.Value)
}

// --- node construction ---

func (p *Parser) newNode(kind string, start, end int) *Node {
	return &Node{kind: kind, start: start, end: end, source: p.source}
}

func (p *Parser) leaf(kind string, t Token) *Node {
	return p.newNode(kind, t.Pos, t.End)
}

// finish extends n to cover everything consumed so far.
func (p *Parser) finish(n *Node) *Node {
	if end := p.prevEnd(); end > n.end {
		n.end = end
	}
	return n
}

func (n *Node) addChild(c *Node) {
	if c == nil {
		return
	}
	c.parent = n
	n.children = append(n.children, c)
	if c.end > n.end {
		n.end = c.end
	}
}

func (n *Node) setField(name string, c *Node) {
	if c == nil {
		return
	}
	n.addChild(c)
	if n.fields == nil {
		n.fields = make(map[string]*Node)
	}
	n.fields[name] = c
}

// setToken stores an anonymous token node (an operator, a sort direction)
// under a field without listing it among the named children.
func (p *Parser) setToken(n *Node, name string, t Token) {
	c := p.newNode(t.Value, t.Pos, t.End)
	c.parent = n
	if n.fields == nil {
		n.fields = make(map[string]*Node)
	}
	n.fields[name] = c
}

// missing records an error and returns a zero-width ERROR node at the next
// token without consuming it.
func (p *Parser) missing(what string) *Node {
	t := p.peek()
	p.errorf(t, "expected %s, got %s", what, describe(t))
	return p.newNode(syntax.KindError, t.Pos, t.Pos)
}

// skip consumes one token into an ERROR node.
func (p *Parser) skip(msg string) *Node {
	t := p.advance()
	p.errorf(t, "%s %s", msg, describe(t))
	return p.leaf(syntax.KindError, t)
}

// --- statements ---

func (p *Parser) parseSourceFile() *Node {
	root := p.newNode(syntax.KindSourceFile, 0, len(p.source))
	for p.peek().Type != TokEOF {
		before := p.pos
		switch {
		case p.isFunctionDefinition():
			root.addChild(p.parseFunctionDefinition())
		case p.peek().Type == TokSemicolon:
			p.advance()
		default:
			root.addChild(p.parseExpression())
		}
		if p.pos == before {
			root.addChild(p.skip("unexpected"))
		}
	}
	root.end = len(p.source)
	return root
}

func (p *Parser) isFunctionDefinition() bool {
	t := p.peek()
	return t.Type == TokIdent && t.Value == "fn" && p.peekAt(1).Type == TokIdent
}

// parseFunctionDefinition parses: fn name($a, $b) = body;
func (p *Parser) parseFunctionDefinition() *Node {
	fnTok := p.advance()
	def := p.leaf(syntax.KindFunctionDefinition, fnTok)
	def.setField("name", p.parseFunctionName())

	params := p.newNode(syntax.KindParameterList, p.peek().Pos, p.peek().Pos)
	if p.expect(TokLParen, "'('") {
		params.start = p.tokens[p.pos-1].Pos
		for p.peek().Type != TokRParen && p.peek().Type != TokEOF {
			if p.peek().Type == TokVariable {
				params.addChild(p.leaf(syntax.KindVariable, p.advance()))
			} else {
				params.addChild(p.skip("expected parameter, got"))
			}
			if p.peek().Type == TokComma {
				p.advance()
			} else if p.peek().Type != TokRParen {
				break
			}
		}
		p.expect(TokRParen, "')'")
		p.finish(params)
	}
	def.setField("parameters", params)

	if p.expect(TokAssign, "'='") {
		def.setField("body", p.parseExpression())
	}
	if p.peek().Type == TokSemicolon {
		p.advance()
	} else {
		p.errorf(p.peek(), "expected ';' after function definition, got %s", describe(p.peek()))
	}
	return p.finish(def)
}

func (p *Parser) parseFunctionName() *Node {
	t := p.peek()
	if t.Type != TokIdent {
		return p.missing("function name")
	}
	p.advance()
	ident := p.leaf(syntax.KindIdentifier, t)
	if p.peek().Type != TokScope {
		return ident
	}
	p.advance() // ::
	ns := p.newNode(syntax.KindNamespacedIdentifier, t.Pos, t.End)
	ns.setField("namespace", ident)
	if p.peek().Type == TokIdent {
		ns.setField("name", p.leaf(syntax.KindIdentifier, p.advance()))
	} else {
		ns.setField("name", p.missing("name after '::'"))
	}
	return p.finish(ns)
}

// --- expressions, lowest precedence first ---

func (p *Parser) parseExpression() *Node {
	return p.parsePipe()
}

func (p *Parser) parsePipe() *Node {
	left := p.parseOr()
	for p.peek().Type == TokPipe {
		p.advance()
		n := p.newNode(syntax.KindPipe, left.start, left.end)
		n.setField("left", left)
		n.setField("right", p.parsePostfix())
		left = p.finish(n)
	}
	return left
}

func (p *Parser) parseOr() *Node {
	left := p.parseAnd()
	for p.peek().Type == TokOr {
		left = p.binary(syntax.KindOr, left, p.parseAnd)
	}
	return left
}

func (p *Parser) parseAnd() *Node {
	left := p.parseNot()
	for p.peek().Type == TokAnd {
		left = p.binary(syntax.KindAnd, left, p.parseNot)
	}
	return left
}

// binary consumes the operator at the cursor and builds kind{left, operator, right}.
func (p *Parser) binary(kind string, left *Node, next func() *Node) *Node {
	op := p.advance()
	n := p.newNode(kind, left.start, left.end)
	n.setField("left", left)
	p.setToken(n, "operator", op)
	n.setField("right", next())
	return p.finish(n)
}

func (p *Parser) parseNot() *Node {
	if p.peek().Type != TokNot {
		return p.parseComparison()
	}
	op := p.advance()
	n := p.leaf(syntax.KindNot, op)
	n.setField("expression", p.parseNot())
	return p.finish(n)
}

func (p *Parser) isComparisonOperator(t Token) bool {
	switch t.Type {
	case TokEQ, TokNEQ, TokLT, TokLTE, TokGT, TokGTE:
		return true
	case TokIdent:
		return t.Value == "in" || t.Value == "match"
	}
	return false
}

func (p *Parser) parseComparison() *Node {
	left := p.parseAdditive()
	if p.isComparisonOperator(p.peek()) {
		return p.binary(syntax.KindComparison, left, p.parseAdditive)
	}
	return left
}

func (p *Parser) parseAdditive() *Node {
	left := p.parseMultiplicative()
	for p.peek().Type == TokPlus || p.peek().Type == TokMinus {
		left = p.binary(syntax.KindArithmetic, left, p.parseMultiplicative)
	}
	return left
}

func (p *Parser) parseMultiplicative() *Node {
	left := p.parsePower()
	for {
		switch p.peek().Type {
		case TokStar, TokSlash, TokPercent:
			left = p.binary(syntax.KindArithmetic, left, p.parsePower)
		default:
			return left
		}
	}
}

func (p *Parser) parsePower() *Node {
	left := p.parseUnary()
	if p.peek().Type == TokPower {
		return p.binary(syntax.KindArithmetic, left, p.parsePower)
	}
	return left
}

func (p *Parser) parseUnary() *Node {
	t := p.peek()
	if t.Type != TokMinus && t.Type != TokPlus {
		return p.parsePostfix()
	}
	p.advance()
	n := p.leaf(syntax.KindArithmetic, t)
	p.setToken(n, "operator", t)
	n.setField("right", p.parseUnary())
	return p.finish(n)
}

// parsePostfix parses a primary followed by any chain of subscripts, member
// access, dereferences and projections.
func (p *Parser) parsePostfix() *Node {
	expr := p.parsePrimary()
	if expr.kind == syntax.KindError {
		// Recovery resumes with the next token as a fresh expression.
		return expr
	}
	for {
		switch p.peek().Type {
		case TokLBracket:
			expr = p.parseSubscript(expr)
		case TokDot:
			p.advance()
			n := p.newNode(syntax.KindAccess, expr.start, expr.end)
			n.setField("base", expr)
			if p.peek().Type == TokIdent {
				n.setField("member", p.leaf(syntax.KindIdentifier, p.advance()))
			} else {
				p.errorf(p.peek(), "expected attribute name after '.', got %s", describe(p.peek()))
			}
			expr = p.finish(n)
		case TokArrow:
			p.advance()
			n := p.newNode(syntax.KindDereference, expr.start, expr.end)
			n.setField("base", expr)
			if p.peek().Type == TokIdent && p.peekAt(1).Type != TokLParen {
				n.setField("member", p.leaf(syntax.KindIdentifier, p.advance()))
			}
			expr = p.finish(n)
		case TokLBrace:
			n := p.newNode(syntax.KindProjectionExpression, expr.start, expr.end)
			n.setField("base", expr)
			n.setField("projection", p.parseProjection())
			expr = p.finish(n)
		default:
			return expr
		}
	}
}

// parseSubscript parses base[], base[filter], base[index] and base[a..b].
func (p *Parser) parseSubscript(base *Node) *Node {
	p.advance() // [
	n := p.newNode(syntax.KindSubscript, base.start, base.end)
	n.setField("base", base)
	if p.peek().Type == TokRBracket {
		p.advance()
		return p.finish(n)
	}
	index := p.parseExpression()
	if t := p.peek(); t.Type == TokDotDot || t.Type == TokEllipsis {
		p.advance()
		r := p.newNode(syntax.KindRange, index.start, index.end)
		r.setField("start", index)
		p.setToken(r, "operator", t)
		r.setField("end", p.parseExpression())
		index = p.finish(r)
	}
	n.setField("index", index)
	p.expect(TokRBracket, "']'")
	return p.finish(n)
}

func (p *Parser) parsePrimary() *Node {
	t := p.peek()
	switch t.Type {
	case TokStar:
		return p.leaf(syntax.KindEverything, p.advance())
	case TokAt:
		return p.leaf(syntax.KindThis, p.advance())
	case TokCaret:
		return p.leaf(syntax.KindParent, p.advance())
	case TokNumber:
		return p.leaf(syntax.KindNumber, p.advance())
	case TokString:
		return p.leaf(syntax.KindString, p.advance())
	case TokVariable:
		return p.leaf(syntax.KindVariable, p.advance())
	case TokLParen:
		p.advance()
		n := p.leaf(syntax.KindParenthesized, t)
		n.setField("expression", p.parseExpression())
		p.expect(TokRParen, "')'")
		return p.finish(n)
	case TokLBracket:
		return p.parseArray()
	case TokLBrace:
		return p.parseProjection()
	case TokIdent:
		return p.parseIdentifierExpression()
	case TokEOF, TokRParen, TokRBracket, TokRBrace, TokComma, TokSemicolon:
		return p.missing("expression")
	}
	return p.skip("unexpected")
}

func (p *Parser) parseIdentifierExpression() *Node {
	t := p.peek()
	switch t.Value {
	case "true", "false":
		return p.leaf(syntax.KindBoolean, p.advance())
	case "null":
		return p.leaf(syntax.KindNull, p.advance())
	}
	var name *Node
	if p.peekAt(1).Type == TokScope {
		name = p.parseFunctionName()
	} else {
		name = p.leaf(syntax.KindIdentifier, p.advance())
	}
	if p.peek().Type != TokLParen {
		return name
	}
	call := p.newNode(syntax.KindFunctionCall, name.start, name.end)
	call.setField("name", name)
	call.setField("arguments", p.parseArguments())
	return p.finish(call)
}

func (p *Parser) parseArguments() *Node {
	open := p.advance() // (
	args := p.leaf(syntax.KindArgumentList, open)
	for p.peek().Type != TokRParen && p.peek().Type != TokEOF {
		before := p.pos
		arg := p.parseExpression()
		if d := p.peek(); d.Type == TokIdent && (d.Value == "asc" || d.Value == "desc") {
			p.advance()
			o := p.newNode(syntax.KindOrdering, arg.start, arg.end)
			o.setField("expression", arg)
			p.setToken(o, "direction", d)
			arg = p.finish(o)
		}
		args.addChild(arg)
		if p.peek().Type == TokComma {
			p.advance()
			continue
		}
		if p.pos == before || p.peek().Type != TokRParen {
			break
		}
	}
	p.expect(TokRParen, "')'")
	return p.finish(args)
}

func (p *Parser) parseArray() *Node {
	open := p.advance() // [
	arr := p.leaf(syntax.KindArray, open)
	for p.peek().Type != TokRBracket && p.peek().Type != TokEOF {
		before := p.pos
		if p.peek().Type == TokEllipsis {
			arr.addChild(p.parseSpread())
		} else {
			arr.addChild(p.parseExpression())
		}
		if p.peek().Type == TokComma {
			p.advance()
			continue
		}
		if p.pos == before || p.peek().Type != TokRBracket {
			break
		}
	}
	p.expect(TokRBracket, "']'")
	return p.finish(arr)
}

// parseProjection parses { member, member, ... }.
func (p *Parser) parseProjection() *Node {
	open := p.advance() // {
	proj := p.leaf(syntax.KindProjection, open)
	for p.peek().Type != TokRBrace && p.peek().Type != TokEOF {
		before := p.pos
		proj.addChild(p.parseProjectionMember())
		if p.peek().Type == TokComma {
			p.advance()
			continue
		}
		if p.peek().Type == TokRBrace {
			break
		}
		if p.pos == before {
			proj.addChild(p.skip("unexpected"))
			continue
		}
		p.errorf(p.peek(), "expected ',' or '}', got %s", describe(p.peek()))
	}
	p.expect(TokRBrace, "'}'")
	return p.finish(proj)
}

func (p *Parser) parseProjectionMember() *Node {
	t := p.peek()
	if t.Type == TokEllipsis {
		return p.parseSpread()
	}
	if t.Type == TokString && p.peekAt(1).Type == TokColon {
		p.advance()
		p.advance() // :
		pair := p.leaf(syntax.KindPair, t)
		pair.setField("key", p.leaf(syntax.KindString, t))
		pair.setField("value", p.parseExpression())
		return p.finish(pair)
	}
	expr := p.parseExpression()
	if p.peek().Type == TokFatArrow {
		p.advance()
		pair := p.newNode(syntax.KindPair, expr.start, expr.end)
		pair.setField("key", expr)
		pair.setField("value", p.parseExpression())
		return p.finish(pair)
	}
	return expr
}

func (p *Parser) parseSpread() *Node {
	dots := p.advance() // ...
	n := p.leaf(syntax.KindSpread, dots)
	switch p.peek().Type {
	case TokComma, TokRBrace, TokRBracket, TokEOF:
	default:
		n.setField("expression", p.parseExpression())
	}
	return p.finish(n)
}
