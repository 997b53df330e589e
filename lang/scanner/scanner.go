// Package scanner implements the Jactl lexer: a restartable, lazy token
// sequence produced one rune at a time, in the spirit of go/scanner and of
// the teacher's own hand-written character-at-a-time scanner.
package scanner

import (
	"fmt"
	"strconv"
	"unicode"
	"unicode/utf8"

	"github.com/jactl-lang/jactl/lang/token"
)

// Scanner tokenizes one source file for the parser to consume. A Scanner
// holds no resolver or parser state; Scan can be called repeatedly until it
// returns token.EOF.
type Scanner struct {
	file *token.File
	src  []byte
	err  func(token.Position, string)

	cur         rune
	off         int // byte offset of cur
	roff        int // byte offset just after cur
	invalidByte byte

	// parenDepth tracks how many of (, [, { are currently open so that a
	// newline inside them is treated as whitespace rather than a statement
	// terminator.
	parenDepth int
	// afterContinuation is true when the previous significant token cannot
	// end a statement (a binary operator, comma, dot, etc.), so a newline
	// right after it is also whitespace.
	afterContinuation bool
	// lastSignificant is the token.Token value of the last token returned
	// (including a SEMI produced for a newline), used for the
	// regex-vs-division disambiguation in scanSlash.
	lastSignificant token.Token

	// pending holds tokens already produced by decomposing a single
	// interpolated string/pattern literal (STRING_BEGIN/EXPR_BEGIN/...)
	// that Scan has not yet returned to the caller.
	pending []pendingTok
}

type pendingTok struct {
	tok token.Token
	val token.Value
}

func (s *Scanner) push(tok token.Token, val token.Value) {
	s.pending = append(s.pending, pendingTok{tok, val})
}

// Init (re)initializes the scanner to tokenize file/src from the start.
func (s *Scanner) Init(file *token.File, src []byte, errHandler func(token.Position, string)) {
	s.file = file
	s.src = src
	s.err = errHandler
	s.cur = ' '
	s.off = 0
	s.roff = 0
	s.parenDepth = 0
	s.afterContinuation = true
	s.lastSignificant = token.ILLEGAL
	s.advance()
}

func (s *Scanner) error(off int, format string, args ...any) {
	if s.err != nil {
		s.err(s.file.Position(token.Pos(off)), fmt.Sprintf(format, args...))
	}
}

func (s *Scanner) peek() byte {
	if s.roff < len(s.src) {
		return s.src[s.roff]
	}
	return 0
}

func (s *Scanner) advance() {
	if s.roff >= len(s.src) {
		s.off = len(s.src)
		s.cur = -1
		return
	}
	s.off = s.roff
	s.invalidByte = 0
	r, w := rune(s.src[s.roff]), 1
	if r >= utf8.RuneSelf {
		r, w = utf8.DecodeRune(s.src[s.roff:])
		if r == utf8.RuneError && w == 1 {
			s.error(s.off, "illegal UTF-8 encoding")
			s.invalidByte = s.src[s.roff]
		}
	}
	s.roff += w
	s.cur = r
}

func (s *Scanner) advanceIf(b byte) bool {
	if s.cur == rune(b) {
		s.advance()
		return true
	}
	return false
}

func isLetter(r rune) bool {
	return r == '_' || 'a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' ||
		r >= utf8.RuneSelf && unicode.IsLetter(r)
}

func isDigit(r rune) bool {
	return '0' <= r && r <= '9'
}

func isWhitespace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\r'
}

// Scan returns the next token, filling tokVal with its position and any
// literal payload.
func (s *Scanner) Scan(tokVal *token.Value) token.Token {
	if len(s.pending) > 0 {
		p := s.pending[0]
		s.pending = s.pending[1:]
		*tokVal = p.val
		s.lastSignificant = p.tok
		s.afterContinuation = continuesExpression(p.tok)
		return p.tok
	}
	tok := s.scanOne(tokVal)
	s.lastSignificant = tok
	s.afterContinuation = continuesExpression(tok)
	return tok
}

// continuesExpression reports whether, after seeing tok, a following newline
// should be treated as whitespace rather than an implicit statement
// terminator: binary operators, opening brackets, commas and the like never
// validly end a statement.
func continuesExpression(tok token.Token) bool {
	switch tok {
	case token.PLUS, token.MINUS, token.STAR, token.SLASH, token.PERCENT, token.PERCENTPCT,
		token.STARSTAR, token.AMP, token.PIPE, token.CARET, token.LSHIFT, token.RSHIFT, token.URSHIFT,
		token.BANG, token.QUESTION, token.ELVIS, token.SAFE_DOT, token.SAFE_IDX, token.DOT, token.COMMA,
		token.COLON, token.LPAREN, token.LBRACE, token.LBRACK, token.ARROW,
		token.EQ, token.PLUSEQ, token.MINUSEQ, token.STAREQ, token.SLASHEQ, token.PCTEQ, token.AMPEQ,
		token.PIPEEQ, token.CARETEQ, token.LSHEQ, token.RSHEQ, token.URSHEQ, token.STAR2EQ, token.ELVISEQ,
		token.LT, token.GT, token.LE, token.GE, token.EQEQ, token.NEQ, token.CMP, token.SAME, token.NOTSAME,
		token.MATCH, token.NOTMATCH, token.AND, token.OR, token.NOT, token.IN, token.NOT_IN,
		token.IF, token.UNLESS, token.ELSE, token.WHILE, token.DO, token.UNTIL, token.FOR,
		token.EXTENDS, token.IMPLEMENTS, token.AS, token.INSTANCEOF:
		return true
	default:
		return false
	}
}

func (s *Scanner) scanOne(tokVal *token.Value) token.Token {
skipWs:
	for {
		switch {
		case isWhitespace(s.cur):
			s.advance()
		case s.cur == '\n':
			if s.parenDepth > 0 || s.afterContinuation {
				s.advance()
				continue
			}
			break skipWs
		default:
			break skipWs
		}
	}

	pos := token.Pos(s.off)
	start := s.off

	if s.cur == '\n' {
		s.advance()
		*tokVal = token.Value{Pos: pos, Raw: "\n"}
		return token.SEMI
	}

	switch {
	case s.cur == -1:
		*tokVal = token.Value{Pos: pos}
		return token.EOF

	case isLetter(s.cur):
		lit := s.scanIdent()
		*tokVal = token.Value{Pos: pos, Raw: lit}
		return token.Lookup(lit)

	case isDigit(s.cur) || (s.cur == '.' && isDigit(rune(s.peek()))):
		return s.scanNumber(pos, tokVal)

	case s.cur == '"' || s.cur == '\'':
		return s.scanQuotedString(pos, tokVal, byte(s.cur))

	case s.cur == '/':
		return s.scanSlash(pos, tokVal)

	case s.cur == '$':
		return s.scanDollar(pos, tokVal)
	}

	r := s.cur
	s.advance()
	switch r {
	case '+':
		if s.advanceIf('+') {
			return tok(tokVal, pos, "++", token.INC)
		}
		if s.advanceIf('=') {
			return tok(tokVal, pos, "+=", token.PLUSEQ)
		}
		return tok(tokVal, pos, "+", token.PLUS)
	case '-':
		if s.advanceIf('-') {
			return tok(tokVal, pos, "--", token.DEC)
		}
		if s.advanceIf('>') {
			return tok(tokVal, pos, "->", token.ARROW)
		}
		if s.advanceIf('=') {
			return tok(tokVal, pos, "-=", token.MINUSEQ)
		}
		return tok(tokVal, pos, "-", token.MINUS)
	case '*':
		if s.advanceIf('*') {
			if s.advanceIf('=') {
				return tok(tokVal, pos, "**=", token.STAR2EQ)
			}
			return tok(tokVal, pos, "**", token.STARSTAR)
		}
		if s.advanceIf('=') {
			return tok(tokVal, pos, "*=", token.STAREQ)
		}
		return tok(tokVal, pos, "*", token.STAR)
	case '%':
		if s.advanceIf('%') {
			return tok(tokVal, pos, "%%", token.PERCENTPCT)
		}
		if s.advanceIf('=') {
			return tok(tokVal, pos, "%=", token.PCTEQ)
		}
		return tok(tokVal, pos, "%", token.PERCENT)
	case '&':
		if s.advanceIf('=') {
			return tok(tokVal, pos, "&=", token.AMPEQ)
		}
		return tok(tokVal, pos, "&", token.AMP)
	case '|':
		if s.advanceIf('=') {
			return tok(tokVal, pos, "|=", token.PIPEEQ)
		}
		return tok(tokVal, pos, "|", token.PIPE)
	case '^':
		if s.advanceIf('=') {
			return tok(tokVal, pos, "^=", token.CARETEQ)
		}
		return tok(tokVal, pos, "^", token.CARET)
	case '~':
		return tok(tokVal, pos, "~", token.TILDE)
	case '!':
		if s.advanceIf('=') {
			if s.advanceIf('=') {
				return tok(tokVal, pos, "!==", token.NOTSAME)
			}
			return tok(tokVal, pos, "!=", token.NEQ)
		}
		if s.advanceIf('~') {
			return tok(tokVal, pos, "!~", token.NOTMATCH)
		}
		return tok(tokVal, pos, "!", token.BANG)
	case '?':
		if s.advanceIf(':') {
			if s.advanceIf('=') {
				return tok(tokVal, pos, "?:=", token.ELVISEQ)
			}
			return tok(tokVal, pos, "?:", token.ELVIS)
		}
		if s.advanceIf('.') {
			return tok(tokVal, pos, "?.", token.SAFE_DOT)
		}
		if s.advanceIf('[') {
			return tok(tokVal, pos, "?[", token.SAFE_IDX)
		}
		return tok(tokVal, pos, "?", token.QUESTION)
	case '.':
		return tok(tokVal, pos, ".", token.DOT)
	case ',':
		return tok(tokVal, pos, ",", token.COMMA)
	case ':':
		return tok(tokVal, pos, ":", token.COLON)
	case ';':
		return tok(tokVal, pos, ";", token.SEMI)
	case '(':
		s.parenDepth++
		return tok(tokVal, pos, "(", token.LPAREN)
	case ')':
		s.parenDepth--
		return tok(tokVal, pos, ")", token.RPAREN)
	case '{':
		s.parenDepth++
		return tok(tokVal, pos, "{", token.LBRACE)
	case '}':
		s.parenDepth--
		return tok(tokVal, pos, "}", token.RBRACE)
	case '[':
		s.parenDepth++
		return tok(tokVal, pos, "[", token.LBRACK)
	case ']':
		s.parenDepth--
		return tok(tokVal, pos, "]", token.RBRACK)
	case '=':
		if s.advanceIf('=') {
			if s.advanceIf('=') {
				return tok(tokVal, pos, "===", token.SAME)
			}
			return tok(tokVal, pos, "==", token.EQEQ)
		}
		if s.advanceIf('~') {
			return tok(tokVal, pos, "=~", token.MATCH)
		}
		return tok(tokVal, pos, "=", token.EQ)
	case '<':
		if s.advanceIf('<') {
			if s.advanceIf('=') {
				return tok(tokVal, pos, "<<=", token.LSHEQ)
			}
			return tok(tokVal, pos, "<<", token.LSHIFT)
		}
		if s.advanceIf('=') {
			if s.advanceIf('>') {
				return tok(tokVal, pos, "<=>", token.CMP)
			}
			return tok(tokVal, pos, "<=", token.LE)
		}
		return tok(tokVal, pos, "<", token.LT)
	case '>':
		if s.advanceIf('>') {
			if s.advanceIf('>') {
				if s.advanceIf('=') {
					return tok(tokVal, pos, ">>>=", token.URSHEQ)
				}
				return tok(tokVal, pos, ">>>", token.URSHIFT)
			}
			if s.advanceIf('=') {
				return tok(tokVal, pos, ">>=", token.RSHEQ)
			}
			return tok(tokVal, pos, ">>", token.RSHIFT)
		}
		if s.advanceIf('=') {
			return tok(tokVal, pos, ">=", token.GE)
		}
		return tok(tokVal, pos, ">", token.GT)
	default:
		if r == utf8.RuneError && s.invalidByte > 0 {
			r = rune(s.invalidByte)
			s.invalidByte = 0
		}
		s.error(start, "illegal character %#U", r)
		*tokVal = token.Value{Pos: pos, Raw: string(r)}
		return token.ILLEGAL
	}
}

func tok(v *token.Value, pos token.Pos, raw string, t token.Token) token.Token {
	*v = token.Value{Pos: pos, Raw: raw}
	return t
}

// scanDollar lexes a '$' appearing at statement/expression position, i.e.
// outside any string or pattern literal (string.go:78/252 handle '$'
// interpolation inline within those literals instead). Two forms are valid
// here, both reusing machinery the string-interpolation path already built:
// '$digit+' is a regex capture-variable reference (§4.5), tokenized as a
// single CAPTURE_VAR carrying its index in Value.Int; '${expr}' is an
// embedded-expression form (used by switch-pattern destructuring, e.g.
// "${a+2}") decomposed via the same EXPR_BEGIN/EXPR_END pushEmbeddedExpr
// sequence a "$name"/"${expr}" string substitution produces.
func (s *Scanner) scanDollar(pos token.Pos, tokVal *token.Value) token.Token {
	s.advance() // '$'
	if isDigit(s.cur) {
		start := s.off
		for isDigit(s.cur) {
			s.advance()
		}
		digits := string(s.src[start:s.off])
		n, _ := strconv.ParseInt(digits, 10, 64)
		*tokVal = token.Value{Pos: pos, Raw: "$" + digits, Int: n}
		return token.CAPTURE_VAR
	}
	if s.cur == '{' {
		s.advance()
		exprSrc := s.scanBalancedExpr('{', '}')
		s.pushEmbeddedExpr(exprSrc)
		return s.Scan(tokVal)
	}
	s.error(s.off-1, "illegal character '$'")
	*tokVal = token.Value{Pos: pos, Raw: "$"}
	return token.ILLEGAL
}

func (s *Scanner) scanIdent() string {
	start := s.off
	for isLetter(s.cur) || isDigit(s.cur) {
		s.advance()
	}
	return string(s.src[start:s.off])
}

// scanSlash disambiguates '/' as division, the start of a pattern string
// (regex literal), or the start of a '//' line comment. Per spec §4.1: a '/'
// preceded by a token that can end an expression (an identifier, literal,
// ')', ']', '}', ++/--) is division; otherwise it opens a pattern string. An
// empty pattern ("//" with nothing, i.e. immediately another '/' or a
// terminator) is a line comment.
func (s *Scanner) scanSlash(pos token.Pos, tokVal *token.Value) token.Token {
	if s.regexAllowedHere() && s.peek() == '/' {
		// "//" — empty pattern is defined as a line comment.
		s.advance() // consume second '/'
		s.advance()
		for s.cur != '\n' && s.cur != -1 {
			s.advance()
		}
		return s.Scan(tokVal)
	}
	if s.regexAllowedHere() {
		return s.scanPattern(pos, tokVal)
	}
	s.advance()
	if s.advanceIf('=') {
		return tok(tokVal, pos, "/=", token.SLASHEQ)
	}
	return tok(tokVal, pos, "/", token.SLASH)
}

// regexAllowedHere reports whether, in the current lexical context, a
// leading '/' should be treated as opening a pattern string rather than as
// the division operator.
func (s *Scanner) regexAllowedHere() bool {
	switch s.lastSignificant {
	case token.IDENT, token.INT_LIT, token.LONG_LIT, token.DOUBLE_LIT, token.DECIMAL_LIT,
		token.STRING_LIT, token.STRING_END, token.RPAREN, token.RBRACK, token.RBRACE,
		token.INC, token.DEC, token.THIS, token.TRUE, token.FALSE, token.NULL:
		return false
	default:
		return true
	}
}
