package groq

import (
	"fmt"
	"unicode"
)

// TokenType classifies a lexer token.
type TokenType int

const (
	// Literals
	TokIdent    TokenType = iota // identifier or keyword
	TokVariable                  // $name
	TokString                    // "..." or '...'
	TokNumber                    // 12, 1.5, 2e3

	// Symbols
	TokLParen    // (
	TokRParen    // )
	TokLBracket  // [
	TokRBracket  // ]
	TokLBrace    // {
	TokRBrace    // }
	TokComma     // ,
	TokColon     // :
	TokSemicolon // ;
	TokDot       // .
	TokDotDot    // ..
	TokEllipsis  // ...
	TokArrow     // ->
	TokFatArrow  // =>
	TokAssign    // =
	TokEQ        // ==
	TokNEQ       // !=
	TokLT        // <
	TokLTE       // <=
	TokGT        // >
	TokGTE       // >=
	TokAnd       // &&
	TokOr        // ||
	TokNot       // !
	TokPlus      // +
	TokMinus     // -
	TokStar      // *
	TokSlash     // /
	TokPercent   // %
	TokPower     // **
	TokPipe      // |
	TokAt        // @
	TokCaret     // ^
	TokScope     // ::

	TokIllegal // unrecognised character
	TokEOF     // end of input
)

// Token is a single lexer token.
type Token struct {
	Type  TokenType
	Value string
	Pos   int // byte offset in the input
	End   int // byte offset just past the token
}

func (t Token) String() string {
	return fmt.Sprintf("Token(%d, %q, pos=%d)", t.Type, t.Value, t.Pos)
}

// singleCharTokens maps single-character symbols that never start a longer
// token to their token type.
var singleCharTokens = map[byte]TokenType{
	'(': TokLParen,
	')': TokRParen,
	'[': TokLBracket,
	']': TokRBracket,
	'{': TokLBrace,
	'}': TokRBrace,
	',': TokComma,
	';': TokSemicolon,
	'+': TokPlus,
	'/': TokSlash,
	'%': TokPercent,
	'@': TokAt,
	'^': TokCaret,
}

// twoCharTokens maps two-character operators to their token type.
var twoCharTokens = map[string]TokenType{
	"->": TokArrow,
	"=>": TokFatArrow,
	"==": TokEQ,
	"!=": TokNEQ,
	"<=": TokLTE,
	">=": TokGTE,
	"&&": TokAnd,
	"||": TokOr,
	"**": TokPower,
	"::": TokScope,
	"..": TokDotDot,
}

// fallbackTokens are the single-character forms of symbols that may also
// start a two-character operator.
var fallbackTokens = map[byte]TokenType{
	'-': TokMinus,
	'=': TokAssign,
	'<': TokLT,
	'>': TokGT,
	'!': TokNot,
	'*': TokStar,
	':': TokColon,
	'.': TokDot,
	'|': TokPipe,
}

// Lexer tokenizes a GROQ query string. It never stops at the first problem:
// illegal characters become TokIllegal tokens and an unterminated string runs
// to the end of input, so the parser can still build a best-effort tree.
type Lexer struct {
	input  string
	pos    int
	tokens []Token
	errs   []*SyntaxError
}

// Lex tokenizes the input string into a slice of tokens terminated by TokEOF.
func Lex(input string) ([]Token, []*SyntaxError) {
	l := &Lexer{input: input}
	l.tokenize()
	return l.tokens, l.errs
}

func (l *Lexer) tokenize() {
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if l.skipWhitespaceAndComments(ch) {
			continue
		}
		l.lexNextToken(ch)
	}
	l.tokens = append(l.tokens, Token{Type: TokEOF, Pos: l.pos, End: l.pos})
}

// skipWhitespaceAndComments skips whitespace and // comments.
// Returns true if something was skipped.
func (l *Lexer) skipWhitespaceAndComments(ch byte) bool {
	if unicode.IsSpace(rune(ch)) {
		l.pos++
		return true
	}
	if ch == '/' && l.pos+1 < len(l.input) && l.input[l.pos+1] == '/' {
		for l.pos < len(l.input) && l.input[l.pos] != '\n' {
			l.pos++
		}
		return true
	}
	return false
}

// lexNextToken dispatches a single token starting at l.pos.
func (l *Lexer) lexNextToken(ch byte) {
	if ch == '.' && l.hasPrefix("...") {
		l.emit(TokEllipsis, 3)
		return
	}
	if l.pos+1 < len(l.input) {
		if tok, ok := twoCharTokens[l.input[l.pos:l.pos+2]]; ok {
			l.emit(tok, 2)
			return
		}
	}
	if tok, ok := singleCharTokens[ch]; ok {
		l.emit(tok, 1)
		return
	}
	if tok, ok := fallbackTokens[ch]; ok {
		l.emit(tok, 1)
		return
	}

	switch {
	case ch == '"' || ch == '\'':
		l.lexString(ch)
	case ch == '$':
		l.lexVariable()
	case isDigit(ch):
		l.lexNumber()
	case isIdentStart(ch):
		l.lexIdent()
	default:
		l.errs = append(l.errs, &SyntaxError{Pos: l.pos, End: l.pos + 1, Msg: fmt.Sprintf("unexpected character %q", string(ch))})
		l.emit(TokIllegal, 1)
	}
}

func (l *Lexer) hasPrefix(s string) bool {
	return len(l.input)-l.pos >= len(s) && l.input[l.pos:l.pos+len(s)] == s
}

func (l *Lexer) emit(typ TokenType, width int) {
	l.tokens = append(l.tokens, Token{Type: typ, Value: l.input[l.pos : l.pos+width], Pos: l.pos, End: l.pos + width})
	l.pos += width
}

func (l *Lexer) lexString(quote byte) {
	start := l.pos
	l.pos++ // opening quote
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch == '\\' && l.pos+1 < len(l.input) {
			l.pos += 2
			continue
		}
		l.pos++
		if ch == quote {
			l.tokens = append(l.tokens, Token{Type: TokString, Value: l.input[start:l.pos], Pos: start, End: l.pos})
			return
		}
	}
	l.errs = append(l.errs, &SyntaxError{Pos: start, End: l.pos, Msg: "unterminated string"})
	l.tokens = append(l.tokens, Token{Type: TokString, Value: l.input[start:l.pos], Pos: start, End: l.pos})
}

func (l *Lexer) lexVariable() {
	start := l.pos
	l.pos++ // $
	for l.pos < len(l.input) && isIdentPart(l.input[l.pos]) {
		l.pos++
	}
	l.tokens = append(l.tokens, Token{Type: TokVariable, Value: l.input[start:l.pos], Pos: start, End: l.pos})
}

func (l *Lexer) lexNumber() {
	start := l.pos
	for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
		l.pos++
	}
	// Decimal point, but not a range operator (1..5).
	if l.pos+1 < len(l.input) && l.input[l.pos] == '.' && isDigit(l.input[l.pos+1]) {
		l.pos++
		for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
			l.pos++
		}
	}
	if l.pos < len(l.input) && (l.input[l.pos] == 'e' || l.input[l.pos] == 'E') {
		exp := l.pos + 1
		if exp < len(l.input) && (l.input[exp] == '+' || l.input[exp] == '-') {
			exp++
		}
		if exp < len(l.input) && isDigit(l.input[exp]) {
			l.pos = exp
			for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
				l.pos++
			}
		}
	}
	l.tokens = append(l.tokens, Token{Type: TokNumber, Value: l.input[start:l.pos], Pos: start, End: l.pos})
}

func (l *Lexer) lexIdent() {
	start := l.pos
	for l.pos < len(l.input) && isIdentPart(l.input[l.pos]) {
		l.pos++
	}
	l.tokens = append(l.tokens, Token{Type: TokIdent, Value: l.input[start:l.pos], Pos: start, End: l.pos})
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}
