package scanner

import (
	"strconv"
	"strings"

	"github.com/jactl-lang/jactl/lang/token"
)

// scanNumber lexes an integer, long, double or Decimal literal starting at
// the scanner's current position. Per spec §4.1: a bare digit sequence is
// INT_LIT (or LONG_LIT/DECIMAL_LIT/DOUBLE_LIT if it overflows an int32 or
// carries a decimal point/exponent), an 'L' suffix forces LONG_LIT, a 'D'
// suffix forces DOUBLE_LIT, and a decimal point with no 'D' suffix and no
// exponent produces a DECIMAL_LIT (arbitrary precision), never a double.
func (s *Scanner) scanNumber(pos token.Pos, tokVal *token.Value) token.Token {
	start := s.off

	if s.cur == '0' && (s.peek() == 'x' || s.peek() == 'X') {
		s.advance()
		s.advance()
		digStart := s.off
		for isHexDigit(s.cur) {
			s.advance()
		}
		lit := string(s.src[digStart:s.off])
		n, err := strconv.ParseInt(lit, 16, 64)
		if err != nil {
			s.error(start, "invalid hex literal: %s", err)
		}
		return s.finishIntLiteral(pos, tokVal, n, string(s.src[start:s.off]))
	}
	if s.cur == '0' && (s.peek() == 'b' || s.peek() == 'B') {
		s.advance()
		s.advance()
		digStart := s.off
		for s.cur == '0' || s.cur == '1' {
			s.advance()
		}
		lit := string(s.src[digStart:s.off])
		n, err := strconv.ParseInt(lit, 2, 64)
		if err != nil {
			s.error(start, "invalid binary literal: %s", err)
		}
		return s.finishIntLiteral(pos, tokVal, n, string(s.src[start:s.off]))
	}

	for isDigit(s.cur) {
		s.advance()
	}

	isFloat := false
	if s.cur == '.' && isDigit(rune(s.peek())) {
		isFloat = true
		s.advance()
		for isDigit(s.cur) {
			s.advance()
		}
	}
	if s.cur == 'e' || s.cur == 'E' {
		la := s.roff
		if la < len(s.src) && (s.src[la] == '+' || s.src[la] == '-') {
			la++
		}
		if la < len(s.src) && s.src[la] >= '0' && s.src[la] <= '9' {
			isFloat = true
			s.advance()
			if s.cur == '+' || s.cur == '-' {
				s.advance()
			}
			for isDigit(s.cur) {
				s.advance()
			}
		}
	}

	lit := string(s.src[start:s.off])

	switch {
	case s.cur == 'D' || s.cur == 'd':
		s.advance()
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			s.error(start, "invalid double literal: %s", err)
		}
		*tokVal = token.Value{Pos: pos, Raw: lit + "D", Double: f}
		return token.DOUBLE_LIT

	case s.cur == 'L' || s.cur == 'l':
		s.advance()
		if isFloat {
			s.error(start, "long literal cannot have a decimal point or exponent")
		}
		n, err := strconv.ParseInt(lit, 10, 64)
		if err != nil {
			s.error(start, "invalid long literal: %s", err)
		}
		*tokVal = token.Value{Pos: pos, Raw: lit + "L", Int: n}
		return token.LONG_LIT

	case isFloat:
		if strings.ContainsAny(lit, "eE") {
			f, err := strconv.ParseFloat(lit, 64)
			if err != nil {
				s.error(start, "invalid double literal: %s", err)
			}
			*tokVal = token.Value{Pos: pos, Raw: lit, Double: f}
			return token.DOUBLE_LIT
		}
		*tokVal = token.Value{Pos: pos, Raw: lit, String: lit}
		return token.DECIMAL_LIT

	default:
		n, err := strconv.ParseInt(lit, 10, 64)
		if err != nil {
			// overflows int64 range entirely; report and fall back to long
			s.error(start, "integer literal out of range: %s", lit)
		}
		return s.finishIntLiteral(pos, tokVal, n, lit)
	}
}

// finishIntLiteral classifies a parsed integer value n as INT_LIT if it fits
// in int32, LONG_LIT otherwise.
func (s *Scanner) finishIntLiteral(pos token.Pos, tokVal *token.Value, n int64, raw string) token.Token {
	if n >= -(1<<31) && n <= (1<<31-1) {
		*tokVal = token.Value{Pos: pos, Raw: raw, Int: n}
		return token.INT_LIT
	}
	*tokVal = token.Value{Pos: pos, Raw: raw, Int: n}
	return token.LONG_LIT
}

func isHexDigit(r rune) bool {
	return isDigit(r) || 'a' <= r && r <= 'f' || 'A' <= r && r <= 'F'
}
