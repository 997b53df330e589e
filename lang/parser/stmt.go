package parser

import (
	"github.com/jactl-lang/jactl/lang/ast"
	"github.com/jactl-lang/jactl/lang/token"
)

// looksLikeTypeStart reports whether the current token can begin a type name
// in a declaration position (primitive types, 'var', 'def', or a class name
// via IDENT).
func (p *parser) looksLikeTypeStart() bool {
	switch p.tok {
	case token.VAR, token.DEF, token.BOOLEAN, token.BYTE, token.INT, token.LONG,
		token.DOUBLE, token.DECIMAL, token.STRING, token.LIST_T, token.MAP_T, token.IDENT:
		return true
	default:
		return false
	}
}

func (p *parser) parseStmt() ast.Stmt {
	var s ast.Stmt
	switch p.tok {
	case token.LBRACE:
		s = p.parseBlock()
	case token.IF, token.UNLESS:
		return p.parseIf()
	case token.WHILE:
		return p.parseWhile()
	case token.DO:
		return p.parseDoUntil()
	case token.FOR:
		return p.parseFor()
	case token.RETURN:
		s = p.parseReturn()
	case token.BREAK:
		s = p.parseBreakContinue(true)
	case token.CONTINUE:
		s = p.parseBreakContinue(false)
	case token.DIE:
		s = p.parseDie()
	case token.SWITCH:
		sw := p.parseSwitch()
		s = sw
	case token.CONST:
		s = p.parseConstDecl()
	case token.DEF, token.VAR, token.BOOLEAN, token.BYTE, token.INT, token.LONG,
		token.DOUBLE, token.DECIMAL, token.STRING, token.LIST_T, token.MAP_T:
		if decl, ok := p.tryParseFuncOrVarDecl(); ok {
			s = decl
			break
		}
		s = &ast.ExprStmt{X: p.parseExpr()}
	default:
		if p.looksLikeTypeStart() {
			if decl, ok := p.tryParseFuncOrVarDecl(); ok {
				s = decl
				break
			}
		}
		s = &ast.ExprStmt{X: p.parseExpr()}
	}
	return p.parseTrailingModifier(s)
}

// parseTrailingModifier wraps s in an If node when followed by a postfix
// "stmt if (cond)" or "stmt unless (cond)" modifier, per spec §4.2.
func (p *parser) parseTrailingModifier(s ast.Stmt) ast.Stmt {
	switch p.tok {
	case token.IF:
		p.advance()
		cond := p.parseExpr()
		return &ast.If{Cond: cond, Then: s}
	case token.UNLESS:
		p.advance()
		cond := p.parseExpr()
		return &ast.If{Cond: cond, UnlessCond: true, Then: s}
	}
	return s
}

func (p *parser) parseBlock() *ast.Block {
	lbrace := p.expect(token.LBRACE)
	b := &ast.Block{Lbrace: lbrace}
	p.skipStmtTerminators()
	for p.tok != token.RBRACE && p.tok != token.EOF {
		b.Stmts = append(b.Stmts, p.parseStmtRecover())
		p.skipStmtTerminators()
	}
	b.Rbrace = p.expect(token.RBRACE)
	return b
}

// parseStmtAsBody parses the body of a control-flow construct, which may be
// a braced block or a single statement (e.g. "if (c) return 1").
func (p *parser) parseStmtAsBody() ast.Stmt {
	if p.tok == token.LBRACE {
		return p.parseBlock()
	}
	return p.parseStmt()
}

// if/else if/else chains right-associate: parsing "else" recurses into
// parseIf again when it sees a following "if".
func (p *parser) parseIf() *ast.If {
	pos := p.val.Pos
	unless := p.tok == token.UNLESS
	p.advance()
	p.expect(token.LPAREN)
	cond := p.parseExpr()
	p.expect(token.RPAREN)
	then := p.parseStmtAsBody()
	n := &ast.If{Pos: pos, Cond: cond, UnlessCond: unless, Then: then}
	if p.tok == token.ELSE {
		p.advance()
		if p.tok == token.IF || p.tok == token.UNLESS {
			n.Else = p.parseIf()
		} else {
			n.Else = p.parseStmtAsBody()
		}
	}
	return n
}

func (p *parser) parseWhile() *ast.While {
	pos := p.expect(token.WHILE)
	p.expect(token.LPAREN)
	cond := p.parseExpr()
	p.expect(token.RPAREN)
	body := p.parseStmtAsBody()
	return &ast.While{Pos: pos, Cond: cond, Body: body}
}

func (p *parser) parseDoUntil() *ast.DoUntil {
	pos := p.expect(token.DO)
	body := p.parseStmtAsBody()
	until := false
	switch p.tok {
	case token.UNTIL:
		until = true
		p.advance()
	case token.WHILE:
		p.advance()
	default:
		p.errorExpected(p.val.Pos, "'while' or 'until'")
		panic(errPanicMode)
	}
	p.expect(token.LPAREN)
	cond := p.parseExpr()
	p.expect(token.RPAREN)
	return &ast.DoUntil{Pos: pos, Body: body, Cond: cond, Until: until}
}

// parseFor parses both the C-style "for (init; cond; update)" and the
// "for (x in iterable)" forms, distinguished by lookahead past the first
// identifier/type for the 'in' keyword.
func (p *parser) parseFor() ast.Stmt {
	pos := p.expect(token.FOR)
	p.expect(token.LPAREN)

	if p.isForInHead() {
		varName := p.val.Raw
		if p.looksLikeTypeStart() && p.tok != token.IDENT {
			p.advance() // consume a leading type keyword (e.g. "for (def x in ...)")
			varName = p.val.Raw
		}
		p.expect(token.IDENT)
		p.expect(token.IN)
		iterable := p.parseExpr()
		p.expect(token.RPAREN)
		body := p.parseStmtAsBody()
		return &ast.ForIn{Pos: pos, VarName: varName, Iterable: iterable, Body: body}
	}

	var init ast.Stmt
	if p.tok != token.SEMI {
		init = p.parseSimpleStmt()
	}
	p.expect(token.SEMI)
	var cond ast.Expr
	if p.tok != token.SEMI {
		cond = p.parseExpr()
	}
	p.expect(token.SEMI)
	var update ast.Stmt
	if p.tok != token.RPAREN {
		update = p.parseSimpleStmt()
	}
	p.expect(token.RPAREN)
	body := p.parseStmtAsBody()
	return &ast.For{Pos: pos, Init: init, Cond: cond, Update: update, Body: body}
}

// isForInHead performs bounded lookahead to distinguish "for (x in y)" from
// "for (init; cond; update)" without backtracking the whole parser: it peeks
// for an optional type keyword, an identifier, then 'in'.
func (p *parser) isForInHead() bool {
	save := *p
	defer func() { *p = save }()

	if p.looksLikeTypeStart() && p.tok != token.IDENT {
		p.advance()
	}
	if p.tok != token.IDENT {
		return false
	}
	p.advance()
	return p.tok == token.IN
}

// parseSimpleStmt parses the restricted statement forms valid in a for-loop
// header position: a var declaration or an expression statement.
func (p *parser) parseSimpleStmt() ast.Stmt {
	if p.looksLikeTypeStart() {
		if decl, ok := p.tryParseFuncOrVarDecl(); ok {
			return decl
		}
	}
	return &ast.ExprStmt{X: p.parseExpr()}
}

func (p *parser) parseReturn() *ast.Return {
	pos := p.expect(token.RETURN)
	n := &ast.Return{Pos: pos}
	if !p.atStmtEnd() {
		n.Value = p.parseExpr()
	}
	return n
}

func (p *parser) parseBreakContinue(isBreak bool) ast.Stmt {
	pos := p.val.Pos
	p.advance()
	label := ""
	if p.tok == token.IDENT && !p.atStmtEnd() {
		label = p.val.Raw
		p.advance()
	}
	if isBreak {
		return &ast.Break{Pos: pos, Label: label}
	}
	return &ast.Continue{Pos: pos, Label: label}
}

func (p *parser) parseDie() *ast.Die {
	pos := p.expect(token.DIE)
	return &ast.Die{Pos: pos, Value: p.parseExpr()}
}

func (p *parser) parseConstDecl() *ast.ConstDecl {
	pos := p.expect(token.CONST)
	name := p.val.Raw
	p.expect(token.IDENT)
	p.expect(token.EQ)
	init := p.parseExpr()
	return &ast.ConstDecl{Pos: pos, Name: name, Init: init}
}

// tryParseFuncOrVarDecl parses a leading type followed either by a function
// declaration "Type name(params) { ... }" or a variable declaration
// "Type name = init, name2 = init2". Both multi-variable declaration and
// multi-assignment accept parenthesized target lists (spec §4.2); that form
// is handled here as a VarDecl with a single synthetic name list built from
// the parenthesized identifiers when followed by '='.
func (p *parser) tryParseFuncOrVarDecl() (ast.Stmt, bool) {
	pos := p.val.Pos
	typeName := p.parseTypeName()

	if p.tok == token.LPAREN {
		// "Type (a, b) = expr" multi-variable declaration form.
		save := *p
		p.advance()
		var names []string
		ok := true
		for {
			if p.tok != token.IDENT {
				ok = false
				break
			}
			names = append(names, p.val.Raw)
			p.advance()
			if p.tok == token.COMMA {
				p.advance()
				continue
			}
			break
		}
		if ok && p.tok == token.RPAREN {
			p.advance()
			if p.tok == token.EQ {
				p.advance()
				init := p.parseExpr()
				inits := make([]ast.Expr, len(names))
				for i := range inits {
					inits[i] = init
				}
				return &ast.VarDecl{Pos: pos, Type: typeName, Names: names, Inits: inits}, true
			}
		}
		*p = save
	}

	if p.tok != token.IDENT {
		return nil, false
	}
	name := p.val.Raw
	nameEndState := *p
	p.advance()

	if p.tok == token.LPAREN {
		return p.parseFuncDeclAfterName(pos, typeName, name, false), true
	}

	*p = nameEndState
	return p.parseVarDeclAfterType(pos, typeName), true
}

func (p *parser) parseTypeName() string {
	switch p.tok {
	case token.VAR:
		p.advance()
		return "var"
	case token.DEF:
		p.advance()
		return "def"
	case token.BOOLEAN, token.BYTE, token.INT, token.LONG, token.DOUBLE, token.DECIMAL,
		token.STRING, token.LIST_T, token.MAP_T:
		name := p.tok.String()
		p.advance()
		return name
	default:
		return p.parseDottedName()
	}
}

func (p *parser) parseVarDeclAfterType(pos token.Pos, typeName string) *ast.VarDecl {
	decl := &ast.VarDecl{Pos: pos, Type: typeName}
	for {
		name := p.val.Raw
		p.expect(token.IDENT)
		decl.Names = append(decl.Names, name)
		var init ast.Expr
		if p.tok == token.EQ {
			p.advance()
			init = p.parseAssignExpr()
		}
		decl.Inits = append(decl.Inits, init)
		if p.tok == token.COMMA {
			p.advance()
			continue
		}
		break
	}
	return decl
}

func (p *parser) parseFuncDeclAfterName(pos token.Pos, returnType, name string, static bool) *ast.FuncDecl {
	params := p.parseParams()
	body := p.parseBlock()
	return &ast.FuncDecl{Pos: pos, ReturnType: returnType, Name: name, Params: params, Body: body, Static: static}
}

func (p *parser) parseParams() []ast.Param {
	p.expect(token.LPAREN)
	var params []ast.Param
	for p.tok != token.RPAREN {
		pos := p.val.Pos
		typeName := "def"
		if p.looksLikeTypeStart() {
			save := *p
			typeName = p.parseTypeName()
			if p.tok != token.IDENT {
				// it was actually the parameter name with implicit def type
				*p = save
				typeName = "def"
			}
		}
		name := p.val.Raw
		p.expect(token.IDENT)
		var def ast.Expr
		if p.tok == token.EQ {
			p.advance()
			def = p.parseAssignExpr()
		}
		params = append(params, ast.Param{Pos: pos, Name: name, Type: typeName, Default: def})
		if p.tok == token.COMMA {
			p.advance()
			continue
		}
		break
	}
	p.expect(token.RPAREN)
	return params
}

// parseClass parses a class declaration. Jactl classes have no user-written
// constructors (§3.5): the compiler synthesizes the positional and named
// constructors, so the parser only collects fields and method bodies.
func (p *parser) parseClass() *ast.ClassDecl {
	pos := p.expect(token.CLASS)
	name := p.val.Raw
	p.expect(token.IDENT)

	c := &ast.ClassDecl{Pos: pos, Name: name}
	if p.tok == token.EXTENDS {
		p.advance()
		c.Extends = p.parseDottedName()
	}
	if p.tok == token.IMPLEMENTS {
		p.advance()
		c.Implements = append(c.Implements, p.parseDottedName())
		for p.tok == token.COMMA {
			p.advance()
			c.Implements = append(c.Implements, p.parseDottedName())
		}
	}

	p.expect(token.LBRACE)
	p.skipStmtTerminators()
	for p.tok != token.RBRACE && p.tok != token.EOF {
		p.parseClassMember(c)
		p.skipStmtTerminators()
	}
	c.Rbrace = p.expect(token.RBRACE)
	return c
}

func (p *parser) parseClassMember(c *ast.ClassDecl) {
	static := false
	if p.tok == token.STATIC {
		static = true
		p.advance()
	}
	isConst := false
	if p.tok == token.CONST {
		isConst = true
		p.advance()
	}

	pos := p.val.Pos
	typeName := p.parseTypeName()
	name := p.val.Raw
	p.expect(token.IDENT)

	if !isConst && p.tok == token.LPAREN {
		fn := p.parseFuncDeclAfterName(pos, typeName, name, static)
		if static {
			c.Statics = append(c.Statics, fn)
		} else {
			c.Methods = append(c.Methods, fn)
		}
		return
	}

	var def ast.Expr
	if p.tok == token.EQ {
		p.advance()
		def = p.parseAssignExpr()
	}
	c.Fields = append(c.Fields, ast.Field{Pos: pos, Type: typeName, Name: name, Const: isConst, Static: static, Default: def})
	for p.tok == token.COMMA {
		p.advance()
		fpos := p.val.Pos
		fname := p.val.Raw
		p.expect(token.IDENT)
		var fdef ast.Expr
		if p.tok == token.EQ {
			p.advance()
			fdef = p.parseAssignExpr()
		}
		c.Fields = append(c.Fields, ast.Field{Pos: fpos, Type: typeName, Name: fname, Const: isConst, Static: static, Default: fdef})
	}
}

// parseSwitch parses "switch (subject) { pattern[, pattern] [if guard] -> body; ... ; default -> body }".
func (p *parser) parseSwitch() *ast.Switch {
	pos := p.expect(token.SWITCH)
	p.expect(token.LPAREN)
	subject := p.parseExpr()
	p.expect(token.RPAREN)
	p.expect(token.LBRACE)
	p.skipStmtTerminators()

	sw := &ast.Switch{Pos: pos, Subject: subject}
	for p.tok != token.RBRACE && p.tok != token.EOF {
		sw.Cases = append(sw.Cases, p.parseSwitchCase())
		p.skipStmtTerminators()
	}
	sw.Rbrace = p.expect(token.RBRACE)
	return sw
}

func (p *parser) parseSwitchCase() ast.SwitchCase {
	pos := p.val.Pos
	c := ast.SwitchCase{Pos: pos}
	if p.tok == token.DEFAULT {
		p.advance()
	} else {
		c.Patterns = append(c.Patterns, p.parseSwitchPattern())
		for p.tok == token.COMMA {
			p.advance()
			c.Patterns = append(c.Patterns, p.parseSwitchPattern())
		}
		if p.tok == token.IF {
			p.advance()
			c.Guard = p.parseExpr()
		}
	}
	p.expect(token.ARROW)
	if p.tok == token.LBRACE {
		c.Body = p.parseBlock()
	} else {
		c.Body = &ast.ExprStmt{X: p.parseExpr()}
	}
	return c
}

// parseSwitchPattern parses one switch-arm pattern: a literal, a type name,
// a regex (with modifiers), a wildcard ('_' or '*'), or a destructuring
// list/map pattern whose elements may themselves be binding identifiers,
// wildcards or nested patterns (§4.2). Patterns reuse the expression grammar
// for literals/lists/maps; the resolver later classifies identifiers inside
// them as binding variables rather than references.
func (p *parser) parseSwitchPattern() ast.Expr {
	return p.parseTernary()
}
