package scanner

import (
	"strings"

	"github.com/jactl-lang/jactl/lang/token"
)

// scanQuotedString lexes a single-quoted, double-quoted or triple-quoted
// string literal starting at the opening quote. Single-quoted strings never
// interpolate. Double- and triple-quoted strings may embed '$name' or
// '${expr}' substitutions, in which case the literal is decomposed into a
// STRING_BEGIN / EXPR_BEGIN ... EXPR_END / STRING_END token sequence instead
// of a single STRING_LIT, so the parser can build a StringInterp node
// directly from the flat token stream.
func (s *Scanner) scanQuotedString(pos token.Pos, tokVal *token.Value, quote byte) token.Token {
	triple := false
	if quote == '"' && s.peek() == '"' {
		// look one further: need a 3rd '"'
		save := *s
		s.advance()
		if s.cur == '"' {
			triple = true
		}
		*s = save
	}

	interpolates := quote == '"'

	s.advance() // opening quote
	if triple {
		s.advance()
		s.advance()
	}

	var chunk strings.Builder
	var parts []stringPart

	closeAndReturn := func() token.Token {
		return s.emitStringParts(pos, tokVal, parts, chunk.String())
	}

	for {
		if s.cur == -1 {
			s.error(s.off, "unterminated string literal")
			return closeAndReturn()
		}
		if triple {
			if s.cur == '"' {
				save := *s
				s.advance()
				if s.cur == '"' {
					s.advance()
					if s.cur == '"' {
						s.advance()
						return closeAndReturn()
					}
				}
				*s = save
			}
		} else {
			if rune(quote) == s.cur {
				s.advance()
				return closeAndReturn()
			}
			if s.cur == '\n' {
				s.error(s.off, "unterminated string literal")
				return closeAndReturn()
			}
		}

		if s.cur == '\\' {
			s.advance()
			chunk.WriteRune(s.scanEscape())
			continue
		}

		if interpolates && s.cur == '$' {
			parts = append(parts, stringPart{text: chunk.String()})
			chunk.Reset()
			s.advance()
			if s.cur == '{' {
				s.advance()
				exprSrc := s.scanBalancedExpr('{', '}')
				parts = append(parts, stringPart{expr: exprSrc})
			} else {
				start := s.off
				isCapture := isDigit(s.cur)
				for isLetter(s.cur) || isDigit(s.cur) || s.cur == '.' {
					s.advance()
				}
				lit := string(s.src[start:s.off])
				if isCapture {
					// A bare digit run after '$' is a capture-variable
					// reference (§4.5, e.g. "$1"), not a field-access chain;
					// keep the leading '$' so the nested scanner that
					// re-lexes this text in pushEmbeddedExpr tokenizes it as
					// CAPTURE_VAR instead of an INT_LIT.
					lit = "$" + lit
				}
				parts = append(parts, stringPart{expr: lit})
			}
			continue
		}

		chunk.WriteRune(s.cur)
		s.advance()
	}
}

type stringPart struct {
	text string // a literal chunk, valid when expr == ""
	expr string // raw source of an embedded '$' or '${}' expression
}

// scanEscape decodes the character following a backslash inside a
// double-quoted or single-quoted string.
func (s *Scanner) scanEscape() rune {
	r := s.cur
	s.advance()
	switch r {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	case '\\':
		return '\\'
	case '"':
		return '"'
	case '\'':
		return '\''
	case '$':
		return '$'
	case '/':
		return '/'
	default:
		return r
	}
}

// scanBalancedExpr consumes raw source text up to the matching close rune,
// tracking nesting of open/close and of quoted strings so that an embedded
// expression like ${m[']']} does not terminate early. It returns the
// embedded source, not including the delimiters.
func (s *Scanner) scanBalancedExpr(open, closeRune rune) string {
	start := s.off
	depth := 1
	for {
		if s.cur == -1 {
			s.error(s.off, "unterminated embedded expression")
			return string(s.src[start:s.off])
		}
		switch s.cur {
		case open:
			depth++
		case closeRune:
			depth--
			if depth == 0 {
				end := s.off
				s.advance()
				return string(s.src[start:end])
			}
		case '"', '\'':
			q := s.cur
			s.advance()
			for s.cur != q && s.cur != -1 {
				if s.cur == '\\' {
					s.advance()
				}
				s.advance()
			}
		}
		s.advance()
	}
}

// emitStringParts converts the accumulated parts (plus a trailing literal
// chunk) into either a single STRING_LIT token, or a STRING_BEGIN ...
// STRING_END sequence pushed onto the pending queue; it returns the first
// token of whichever it produced.
func (s *Scanner) emitStringParts(pos token.Pos, tokVal *token.Value, parts []stringPart, tail string) token.Token {
	if len(parts) == 0 {
		*tokVal = token.Value{Pos: pos, String: tail}
		return token.STRING_LIT
	}

	// parts strictly alternate {text, expr, text, expr, ...} starting with
	// a (possibly empty) literal chunk; tail is the final literal chunk
	// after the last expr, up to the closing delimiter.
	first := parts[0]
	*tokVal = token.Value{Pos: pos, String: first.text}
	firstTok := token.STRING_BEGIN

	for i := 1; i < len(parts); i += 2 {
		s.pushEmbeddedExpr(parts[i].expr)
		if i+1 < len(parts) {
			s.push(token.STRING_BEGIN, token.Value{Pos: pos, String: parts[i+1].text})
		}
	}
	s.push(token.STRING_END, token.Value{Pos: pos, String: tail})
	return firstTok
}

// pushEmbeddedExpr re-lexes src (the raw text of a $name or ${...}
// substitution) as an ordinary token stream wrapped in EXPR_BEGIN/EXPR_END,
// using a nested Scanner instance over the same token.File so positions
// stay meaningful.
func (s *Scanner) pushEmbeddedExpr(src string) {
	s.push(token.EXPR_BEGIN, token.Value{Pos: token.Pos(s.off)})
	var sub Scanner
	sub.Init(s.file, []byte(src), s.err)
	for {
		var v token.Value
		t := sub.Scan(&v)
		if t == token.EOF {
			break
		}
		s.push(t, v)
	}
	s.push(token.EXPR_END, token.Value{Pos: token.Pos(s.off)})
}

// scanPattern lexes a /pattern/ regex literal, which like a double-quoted
// string may interpolate and is decomposed the same way, followed by an
// optional REGEX_MODS token for trailing i/m/s/g/n/r modifier letters.
func (s *Scanner) scanPattern(pos token.Pos, tokVal *token.Value) token.Token {
	s.advance() // opening '/'

	var chunk strings.Builder
	var parts []stringPart

	for {
		if s.cur == -1 || s.cur == '\n' {
			s.error(s.off, "unterminated regex literal")
			break
		}
		if s.cur == '/' {
			s.advance()
			break
		}
		if s.cur == '\\' {
			chunk.WriteRune(s.cur)
			s.advance()
			if s.cur != -1 {
				chunk.WriteRune(s.cur)
				s.advance()
			}
			continue
		}
		if s.cur == '$' {
			parts = append(parts, stringPart{text: chunk.String()})
			chunk.Reset()
			s.advance()
			if s.cur == '{' {
				s.advance()
				exprSrc := s.scanBalancedExpr('{', '}')
				parts = append(parts, stringPart{expr: exprSrc})
			} else {
				start := s.off
				isCapture := isDigit(s.cur)
				for isLetter(s.cur) || isDigit(s.cur) || s.cur == '.' {
					s.advance()
				}
				lit := string(s.src[start:s.off])
				if isCapture {
					// A bare digit run after '$' is a capture-variable
					// reference (§4.5, e.g. "$1"), not a field-access chain;
					// keep the leading '$' so the nested scanner that
					// re-lexes this text in pushEmbeddedExpr tokenizes it as
					// CAPTURE_VAR instead of an INT_LIT.
					lit = "$" + lit
				}
				parts = append(parts, stringPart{expr: lit})
			}
			continue
		}
		chunk.WriteRune(s.cur)
		s.advance()
	}

	result := s.emitStringParts(pos, tokVal, parts, chunk.String())

	modStart := s.off
	for strings.ContainsRune("imsgnr", s.cur) {
		s.advance()
	}
	if s.off > modStart {
		s.push(token.REGEX_MODS, token.Value{Pos: token.Pos(modStart), Raw: string(s.src[modStart:s.off])})
	}
	return result
}
