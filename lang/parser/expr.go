package parser

import (
	"github.com/jactl-lang/jactl/lang/ast"
	"github.com/jactl-lang/jactl/lang/token"
)

// parseExpr parses a full expression, including the low-precedence
// 'and'/'or'/'not' operators, which per spec §4.2 bind looser than any
// assignment form, so they sit above parseAssignExpr in the descent.
func (p *parser) parseExpr() ast.Expr {
	return p.parseLogicalOr()
}

func (p *parser) parseLogicalOr() ast.Expr {
	x := p.parseLogicalAnd()
	for p.tok == token.OR {
		pos := p.val.Pos
		p.advance()
		y := p.parseLogicalAnd()
		x = &ast.Binop{Pos: pos, Op: token.OR, X: x, Y: y}
	}
	return x
}

func (p *parser) parseLogicalAnd() ast.Expr {
	x := p.parseLogicalNot()
	for p.tok == token.AND {
		pos := p.val.Pos
		p.advance()
		y := p.parseLogicalNot()
		x = &ast.Binop{Pos: pos, Op: token.AND, X: x, Y: y}
	}
	return x
}

func (p *parser) parseLogicalNot() ast.Expr {
	if p.tok == token.NOT {
		pos := p.val.Pos
		p.advance()
		x := p.parseLogicalNot()
		return &ast.Unop{Pos: pos, Op: token.NOT, X: x}
	}
	return p.parseAssignExpr()
}

// parseAssignExpr handles '=', compound-assignment, '?:=' and the
// parenthesized multi-assignment target-list form; everything else falls
// through to the ternary/elvis chain.
func (p *parser) parseAssignExpr() ast.Expr {
	if p.tok == token.LPAREN && p.looksLikeMultiAssignHead() {
		return p.parseMultiAssign()
	}

	x := p.parseTernary()
	switch {
	case p.tok.IsAssign():
		op := p.tok
		pos := p.val.Pos
		p.advance()
		val := p.parseAssignExpr()
		if op == token.ELVISEQ {
			return &ast.CondAssign{Pos: pos, Target: x, Value: val}
		}
		return &ast.Assign{Pos: pos, Op: op, Target: x, Value: val}
	}
	return x
}

// looksLikeMultiAssignHead performs bounded lookahead for "(a, b) =" without
// committing the parser state.
func (p *parser) looksLikeMultiAssignHead() bool {
	save := *p
	defer func() { *p = save }()

	if p.tok != token.LPAREN {
		return false
	}
	p.advance()
	if p.tok != token.IDENT {
		return false
	}
	p.advance()
	for p.tok == token.COMMA {
		p.advance()
		if p.tok != token.IDENT {
			return false
		}
		p.advance()
	}
	if p.tok != token.RPAREN {
		return false
	}
	p.advance()
	return p.tok == token.EQ
}

func (p *parser) parseMultiAssign() *ast.MultiAssign {
	pos := p.expect(token.LPAREN)
	var targets []ast.Expr
	for {
		ipos := p.val.Pos
		name := p.val.Raw
		p.expect(token.IDENT)
		targets = append(targets, &ast.Identifier{Pos: ipos, Name: name})
		if p.tok == token.COMMA {
			p.advance()
			continue
		}
		break
	}
	p.expect(token.RPAREN)
	p.expect(token.EQ)
	val := p.parseAssignExpr()
	return &ast.MultiAssign{Pos: pos, Targets: targets, Value: val}
}

// parseTernary handles "cond ? then : else" (right-associative) and the
// binary Elvis "a ?: b" (also right-associative), both lower precedence than
// any binary operator per the grammar.
func (p *parser) parseTernary() ast.Expr {
	x := p.parseElvis()
	if p.tok == token.QUESTION {
		pos := p.val.Pos
		p.advance()
		then := p.parseAssignExpr()
		p.expect(token.COLON)
		els := p.parseTernary()
		return &ast.Ternary{Pos: pos, Cond: x, Then: then, Else: els}
	}
	return x
}

func (p *parser) parseElvis() ast.Expr {
	x := p.parseBinaryExpr(1)
	if p.tok == token.ELVIS {
		pos := p.val.Pos
		p.advance()
		y := p.parseElvis() // right-associative
		return &ast.Elvis{Pos: pos, X: x, Y: y}
	}
	return x
}

// parseBinaryExpr implements operator-precedence climbing using
// token.Token.Precedence(); ** is right-associative, everything else left.
func (p *parser) parseBinaryExpr(minPrec int) ast.Expr {
	x := p.parseRegexOrUnary()
	for {
		prec := p.tok.Precedence()
		if prec < minPrec || prec == 0 {
			return x
		}
		op := p.tok
		pos := p.val.Pos
		p.advance()
		nextMin := prec + 1
		if op.RightAssociative() {
			nextMin = prec
		}
		y := p.parseBinaryExpr(nextMin)
		x = &ast.Binop{Pos: pos, Op: op, X: x, Y: y}
	}
}

// parseRegexOrUnary handles "subject =~ ..." / "subject !~ ...", "x
// instanceof Type", "x [not] in y" and "x as Type", all of which sit at the
// unary/comparison boundary, then falls through to plain unary parsing.
func (p *parser) parseRegexOrUnary() ast.Expr {
	x := p.parseUnary()
	for {
		switch p.tok {
		case token.MATCH, token.NOTMATCH:
			negate := p.tok == token.NOTMATCH
			pos := p.val.Pos
			p.advance()
			x = p.parseRegexRHS(pos, x, negate)
		case token.INSTANCEOF:
			pos := p.val.Pos
			p.advance()
			typeName := p.parseTypeName()
			x = &ast.InstanceOf{Pos: pos, X: x, TypeName: typeName}
		case token.IN:
			pos := p.val.Pos
			p.advance()
			y := p.parseUnary()
			x = &ast.In{Pos: pos, X: x, Y: y}
		case token.NOT_IN:
			pos := p.val.Pos
			p.advance()
			y := p.parseUnary()
			x = &ast.In{Pos: pos, X: x, Y: y, Negate: true}
		case token.AS:
			pos := p.val.Pos
			p.advance()
			typeName := p.parseTypeName()
			x = &ast.As{Pos: pos, X: x, TypeName: typeName}
		default:
			return x
		}
	}
}

// parseRegexRHS parses the pattern-string right-hand side of a '=~'/'!~'
// expression, distinguishing a bare match from an "s/pattern/repl/mods"
// substitution (the 's' prefix is a plain identifier token immediately
// followed, with no intervening whitespace requirement in this grammar, by
// a pattern string).
func (p *parser) parseRegexRHS(pos token.Pos, subject ast.Expr, negate bool) ast.Expr {
	if p.tok == token.IDENT && p.val.Raw == "s" {
		p.advance()
		pattern := p.parsePatternOperand()
		repl := p.parsePatternOperand()
		mods := p.consumeRegexMods()
		return &ast.RegexSubst{Pos: pos, Subject: subject, Pattern: pattern, Replacement: repl, Mods: mods}
	}
	pattern := p.parsePatternOperand()
	mods := p.consumeRegexMods()
	return &ast.RegexMatch{Pos: pos, Subject: subject, Pattern: pattern, Mods: mods, Negate: negate}
}

func (p *parser) parsePatternOperand() ast.Expr {
	return p.parseStringLike()
}

func (p *parser) consumeRegexMods() string {
	if p.tok == token.REGEX_MODS {
		mods := p.val.Raw
		p.advance()
		return mods
	}
	return ""
}

func (p *parser) parseUnary() ast.Expr {
	switch p.tok {
	case token.BANG, token.MINUS, token.PLUS, token.TILDE:
		op := p.tok
		pos := p.val.Pos
		p.advance()
		x := p.parseUnary()
		return &ast.Unop{Pos: pos, Op: op, X: x}
	case token.INC, token.DEC:
		op := p.tok
		pos := p.val.Pos
		p.advance()
		x := p.parseUnary()
		return &ast.Unop{Pos: pos, Op: op, X: x}
	case token.LPAREN:
		if cast, ok := p.tryParseCast(); ok {
			return cast
		}
	}
	return p.parsePostfix()
}

// tryParseCast attempts "(Type) expr"; it backtracks if what follows '(' is
// not a recognized type name immediately closed by ')'.
func (p *parser) tryParseCast() (ast.Expr, bool) {
	save := *p
	pos := p.val.Pos
	p.advance()
	if !p.looksLikeTypeStart() || p.tok == token.IDENT {
		// bare identifiers are ambiguous with a parenthesized expression
		// "(x)"; only primitive-type keywords unambiguously start a cast.
		*p = save
		return nil, false
	}
	typeName := p.parseTypeName()
	if p.tok != token.RPAREN {
		*p = save
		return nil, false
	}
	p.advance()
	x := p.parseUnary()
	return &ast.Cast{Pos: pos, TypeName: typeName, X: x}, true
}

func (p *parser) parsePostfix() ast.Expr {
	x := p.parsePrimary()
	for {
		switch p.tok {
		case token.DOT, token.SAFE_DOT:
			safe := p.tok == token.SAFE_DOT
			p.advance()
			name := p.val.Raw
			p.expect(token.IDENT)
			recv := x
			if p.tok == token.LPAREN {
				args, closure := p.parseCallArgs()
				x = &ast.MethodCall{Recv: recv, Safe: safe, Name: name, Args: args, TrailingClosure: closure}
			} else if tc := p.tryParseTrailingClosure(); tc != nil {
				x = &ast.MethodCall{Recv: recv, Safe: safe, Name: name, TrailingClosure: tc}
			} else {
				x = &ast.FieldAccess{Recv: recv, Safe: safe, Name: name}
			}
		case token.LBRACK, token.SAFE_IDX:
			safe := p.tok == token.SAFE_IDX
			p.advance()
			var idx, end ast.Expr
			if p.tok != token.COLON {
				idx = p.parseExpr()
			}
			if p.tok == token.COLON {
				p.advance()
				if p.tok != token.RBRACK {
					end = p.parseExpr()
				}
			}
			p.expect(token.RBRACK)
			x = &ast.Index{Recv: x, Safe: safe, Idx: idx, SliceEnd: end}
		case token.LPAREN:
			args, closure := p.parseCallArgs()
			x = &ast.Call{Func: x, Args: args, TrailingClosure: closure}
		case token.LBRACE:
			if closure := p.tryParseTrailingClosure(); closure != nil {
				x = &ast.Call{Func: x, TrailingClosure: closure}
				continue
			}
			return x
		case token.INC, token.DEC:
			op := p.tok
			pos := p.val.Pos
			p.advance()
			x = &ast.PostOp{Pos: pos, Op: op, X: x}
		default:
			return x
		}
	}
}

// parseCallArgs parses the parenthesized argument list of a call, plus an
// optional trailing closure literal (spec §4.2: a closure as the final
// argument may follow the closing ')').
func (p *parser) parseCallArgs() ([]ast.Arg, *ast.ClosureLit) {
	p.expect(token.LPAREN)
	var args []ast.Arg
	for p.tok != token.RPAREN {
		args = append(args, p.parseArg())
		if p.tok == token.COMMA {
			p.advance()
			continue
		}
		break
	}
	p.expect(token.RPAREN)
	closure := p.tryParseTrailingClosure()
	return args, closure
}

func (p *parser) parseArg() ast.Arg {
	if p.tok == token.IDENT {
		save := *p
		name := p.val.Raw
		p.advance()
		if p.tok == token.COLON {
			p.advance()
			return ast.Arg{Name: name, Value: p.parseAssignExpr()}
		}
		*p = save
	}
	return ast.Arg{Value: p.parseAssignExpr()}
}

func (p *parser) tryParseTrailingClosure() *ast.ClosureLit {
	if p.tok != token.LBRACE {
		return nil
	}
	return p.parseClosureLit()
}

// parseClosureLit parses "{ params -> body }"; if there is no "->" the
// closure takes an implicit single parameter named "it".
func (p *parser) parseClosureLit() *ast.ClosureLit {
	pos := p.expect(token.LBRACE)
	var params []ast.Param
	if p.hasArrowHead() {
		for p.tok != token.ARROW {
			ppos := p.val.Pos
			name := p.val.Raw
			p.expect(token.IDENT)
			params = append(params, ast.Param{Pos: ppos, Name: name, Type: "def"})
			if p.tok == token.COMMA {
				p.advance()
				continue
			}
			break
		}
		p.expect(token.ARROW)
	}
	body := &ast.Block{Lbrace: pos}
	p.skipStmtTerminators()
	for p.tok != token.RBRACE && p.tok != token.EOF {
		body.Stmts = append(body.Stmts, p.parseStmtRecover())
		p.skipStmtTerminators()
	}
	body.Rbrace = p.expect(token.RBRACE)
	return &ast.ClosureLit{Pos: pos, Rbrace: body.Rbrace, Params: params, Body: body}
}

// hasArrowHead performs bounded lookahead to check whether the closure body
// opens with a "name, name, ... ->" parameter list.
func (p *parser) hasArrowHead() bool {
	if p.tok != token.IDENT {
		return false
	}
	save := *p
	defer func() { *p = save }()
	for p.tok == token.IDENT {
		p.advance()
		if p.tok == token.COMMA {
			p.advance()
			continue
		}
		break
	}
	return p.tok == token.ARROW
}

func (p *parser) parsePrimary() ast.Expr {
	pos := p.val.Pos
	switch p.tok {
	case token.INT_LIT:
		v := p.val
		p.advance()
		return &ast.Literal{Pos: pos, Kind: token.INT_LIT, Raw: v.Raw, Int: v.Int}
	case token.LONG_LIT:
		v := p.val
		p.advance()
		return &ast.Literal{Pos: pos, Kind: token.LONG_LIT, Raw: v.Raw, Int: v.Int}
	case token.DOUBLE_LIT:
		v := p.val
		p.advance()
		return &ast.Literal{Pos: pos, Kind: token.DOUBLE_LIT, Raw: v.Raw, Float: v.Double}
	case token.DECIMAL_LIT:
		v := p.val
		p.advance()
		return &ast.Literal{Pos: pos, Kind: token.DECIMAL_LIT, Raw: v.Raw, Str: v.String}
	case token.TRUE, token.FALSE, token.NULL:
		kind := p.tok
		p.advance()
		return &ast.Literal{Pos: pos, Kind: kind}
	case token.STRING_LIT, token.STRING_BEGIN:
		return p.parseStringLike()
	case token.CAPTURE_VAR:
		idx := int(p.val.Int)
		p.advance()
		return &ast.CaptureVar{Pos: pos, Index: idx}
	case token.EXPR_BEGIN:
		// Standalone "${expr}" outside any string, e.g. a pinned-value
		// switch-pattern element like "${a+2}" (§3.2 patterns reuse the
		// full expression grammar). Reuses the same EXPR_BEGIN/EXPR_END
		// decomposition string interpolation produces, but unwrapped to a
		// plain parenthesized expression instead of a StringInterp part.
		p.advance()
		x := p.parseEmbeddedExprTokens()
		rparen := p.expect(token.EXPR_END)
		return &ast.Paren{Pos: pos, Rparen: rparen, X: x}
	case token.IDENT:
		name := p.val.Raw
		p.advance()
		return &ast.Identifier{Pos: pos, Name: name}
	case token.THIS:
		p.advance()
		return &ast.Identifier{Pos: pos, Name: "this"}
	case token.LPAREN:
		p.advance()
		x := p.parseExpr()
		rparen := p.expect(token.RPAREN)
		return &ast.Paren{Pos: pos, Rparen: rparen, X: x}
	case token.LBRACK:
		return p.parseListOrMapLit()
	case token.LBRACE:
		return p.parseClosureLit()
	case token.NEW:
		return p.parseNewInstance()
	case token.SWITCH:
		return p.parseSwitch()
	case token.DO:
		p.advance()
		return p.parseBlock()
	case token.BOOLEAN, token.BYTE, token.INT, token.LONG, token.DOUBLE, token.DECIMAL,
		token.STRING, token.LIST_T, token.MAP_T, token.VOID:
		name := p.tok.String()
		p.advance()
		return &ast.Identifier{Pos: pos, Name: name}
	default:
		p.errorExpected(pos, "expression")
		panic(errPanicMode)
	}
}

// parseStringLike builds a StringInterp node from a flat STRING_LIT or
// STRING_BEGIN/EXPR_BEGIN/.../STRING_END token run, re-parsing each embedded
// expression's nested token stream (already re-lexed and flattened in the
// scanner) via a sub-parser.
func (p *parser) parseStringLike() ast.Expr {
	pos := p.val.Pos
	if p.tok == token.STRING_LIT {
		s := p.val.String
		p.advance()
		return &ast.StringInterp{Pos: pos, End: p.val.Pos, Parts: []ast.StringPart{{Text: s}}}
	}

	var parts []ast.StringPart
	parts = append(parts, ast.StringPart{Text: p.val.String})
	p.expect(token.STRING_BEGIN)

	for p.tok == token.EXPR_BEGIN {
		p.advance()
		expr := p.parseEmbeddedExprTokens()
		p.expect(token.EXPR_END)
		parts = append(parts, ast.StringPart{Expr: expr})
		if p.tok == token.STRING_BEGIN {
			parts = append(parts, ast.StringPart{Text: p.val.String})
			p.advance()
		}
	}
	text := p.val.String
	endPos := p.val.Pos
	p.expect(token.STRING_END)
	parts = append(parts, ast.StringPart{Text: text})
	return &ast.StringInterp{Pos: pos, End: endPos, Parts: parts}
}

// parseEmbeddedExprTokens parses the token run between EXPR_BEGIN and
// EXPR_END as a single expression, using the same parser instance (the
// scanner already produced an independent, EOF-terminated-by-EXPR_END token
// run for it).
func (p *parser) parseEmbeddedExprTokens() ast.Expr {
	return p.parseExpr()
}

func (p *parser) parseListOrMapLit() ast.Expr {
	pos := p.expect(token.LBRACK)
	if p.tok == token.COLON {
		p.advance()
		rbrack := p.expect(token.RBRACK)
		return &ast.MapLit{Pos: pos, Rbrack: rbrack}
	}
	if p.tok == token.RBRACK {
		rbrack := p.expect(token.RBRACK)
		return &ast.ListLit{Pos: pos, Rbrack: rbrack}
	}

	first := p.parseAssignExpr()
	if p.tok == token.COLON {
		p.advance()
		val := p.parseAssignExpr()
		m := &ast.MapLit{Pos: pos, Entries: []ast.MapEntry{{Key: first, Value: val}}}
		for p.tok == token.COMMA {
			p.advance()
			k := p.parseAssignExpr()
			p.expect(token.COLON)
			v := p.parseAssignExpr()
			m.Entries = append(m.Entries, ast.MapEntry{Key: k, Value: v})
		}
		m.Rbrack = p.expect(token.RBRACK)
		return m
	}

	l := &ast.ListLit{Pos: pos, Elems: []ast.Expr{first}}
	for p.tok == token.COMMA {
		p.advance()
		l.Elems = append(l.Elems, p.parseAssignExpr())
	}
	l.Rbrack = p.expect(token.RBRACK)
	return l
}

// parseNewInstance parses "new Class(args)" and "new Class{field: value}".
func (p *parser) parseNewInstance() ast.Expr {
	pos := p.expect(token.NEW)
	className := p.parseDottedName()
	n := &ast.NewInstance{Pos: pos, ClassName: className}
	switch p.tok {
	case token.LPAREN:
		args, _ := p.parseCallArgs()
		n.Args = args
	case token.LBRACE:
		p.advance()
		n.Named = true
		for p.tok != token.RBRACE {
			name := p.val.Raw
			p.expect(token.IDENT)
			p.expect(token.COLON)
			val := p.parseAssignExpr()
			n.Args = append(n.Args, ast.Arg{Name: name, Value: val})
			if p.tok == token.COMMA {
				p.advance()
				continue
			}
			break
		}
		p.expect(token.RBRACE)
	}
	return n
}
