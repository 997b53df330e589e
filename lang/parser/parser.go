// Package parser implements Jactl's hand-written recursive-descent parser,
// producing the untyped AST consumed by lang/resolver.
package parser

import (
	"errors"
	"fmt"

	"github.com/jactl-lang/jactl/lang/ast"
	"github.com/jactl-lang/jactl/lang/scanner"
	"github.com/jactl-lang/jactl/lang/token"
)

// ParseScript parses one compilation unit (a script body, optionally
// preceded by a package declaration, imports and class declarations) from
// src, registering it in fset under name. The returned error, if non-nil, is
// a *token.ErrorList (via errorListErr, which implements Unwrap() []error).
func ParseScript(fset *token.FileSet, name string, src []byte) (*ast.Script, error) {
	var p parser
	file := fset.AddFile(name, src)
	p.init(file, src)
	sc := p.parseScript()
	sc.Name = name
	p.errors.Sort()
	return sc, p.errors.Err()
}

type parser struct {
	scanner scanner.Scanner
	errors  token.ErrorList
	file    *token.File

	tok token.Token
	val token.Value
}

func (p *parser) init(file *token.File, src []byte) {
	p.file = file
	p.scanner.Init(file, src, p.errors.Add)
	p.advance()
}

func (p *parser) advance() {
	p.tok = p.scanner.Scan(&p.val)
}

// errPanicMode is used with panic/recover to unwind to the nearest
// statement-synchronization point on a syntax error, so the parser can keep
// collecting further errors instead of stopping at the first one (§4.2
// error recovery).
var errPanicMode = errors.New("jactl: parser panic mode")

func (p *parser) error(pos token.Pos, format string, args ...any) {
	p.errors.Add(p.file.Position(pos), fmt.Sprintf(format, args...))
}

func (p *parser) errorExpected(pos token.Pos, what string) {
	msg := "expected " + what
	if pos == p.val.Pos {
		msg += ", found " + p.tok.GoString()
	}
	p.error(pos, msg)
}

// expect consumes the current token if it is tok, else records an error and
// enters panic mode.
func (p *parser) expect(tok token.Token) token.Pos {
	pos := p.val.Pos
	if p.tok != tok {
		p.errorExpected(pos, tok.GoString())
		panic(errPanicMode)
	}
	p.advance()
	return pos
}

func (p *parser) accept(tok token.Token) bool {
	if p.tok == tok {
		p.advance()
		return true
	}
	return false
}

// atStmtEnd reports whether the current token ends a statement: SEMI (which
// includes scanner-synthesized newlines), RBRACE, or EOF.
func (p *parser) atStmtEnd() bool {
	return p.tok == token.SEMI || p.tok == token.RBRACE || p.tok == token.EOF
}

// skipStmtTerminators consumes zero or more SEMI tokens, which lets blank
// lines and redundant ';' separate statements without empty-statement
// nodes.
func (p *parser) skipStmtTerminators() {
	for p.tok == token.SEMI {
		p.advance()
	}
}

// synchronize recovers from a panic-mode error by advancing to the next
// statement boundary: a SEMI not inside brackets (the scanner already
// suppresses those), or RBRACE/EOF.
func (p *parser) synchronize() {
	for p.tok != token.SEMI && p.tok != token.RBRACE && p.tok != token.EOF {
		p.advance()
	}
	p.skipStmtTerminators()
}

// parseScript parses an entire compilation unit.
func (p *parser) parseScript() *ast.Script {
	sc := &ast.Script{}
	p.skipStmtTerminators()

	if p.tok == token.IDENT && p.val.Raw == "package" {
		sc.Package = p.parsePackage()
		p.skipStmtTerminators()
	}
	for p.tok == token.IMPORT {
		sc.Imports = append(sc.Imports, p.parseImport())
		p.skipStmtTerminators()
	}

	body := &ast.Block{Lbrace: p.val.Pos}
	for p.tok != token.EOF {
		p.skipStmtTerminators()
		if p.tok == token.EOF {
			break
		}
		if p.tok == token.CLASS {
			sc.Classes = append(sc.Classes, p.parseClass())
			p.skipStmtTerminators()
			continue
		}
		body.Stmts = append(body.Stmts, p.parseStmtRecover())
		p.skipStmtTerminators()
	}
	body.Rbrace = p.val.Pos
	sc.Body = body
	sc.EOF = p.val.Pos
	return sc
}

func (p *parser) parsePackage() *ast.Package {
	pos := p.val.Pos
	p.advance() // 'package' identifier
	name := p.parseDottedName()
	return &ast.Package{Pos: pos, Name: name}
}

func (p *parser) parseDottedName() string {
	name := p.val.Raw
	p.expect(token.IDENT)
	for p.tok == token.DOT {
		p.advance()
		name += "." + p.val.Raw
		p.expect(token.IDENT)
	}
	return name
}

func (p *parser) parseImport() *ast.Import {
	pos := p.expect(token.IMPORT)
	im := &ast.Import{Pos: pos}
	if p.tok == token.STATIC {
		im.Static = true
		p.advance()
	}
	var parts []string
	parts = append(parts, p.val.Raw)
	p.expect(token.IDENT)
	for p.tok == token.DOT {
		p.advance()
		if p.tok == token.STAR {
			im.Star = true
			p.advance()
			break
		}
		parts = append(parts, p.val.Raw)
		p.expect(token.IDENT)
	}
	im.Path = parts
	if p.tok == token.AS {
		p.advance()
		im.Alias = p.val.Raw
		p.expect(token.IDENT)
	}
	return im
}

// parseStmtRecover parses one statement, recovering to the next statement
// boundary on a syntax error and returning an *ast.Bad placeholder so the
// caller can keep collecting further errors.
func (p *parser) parseStmtRecover() (s ast.Stmt) {
	start := p.val.Pos
	defer func() {
		if r := recover(); r != nil {
			if r != errPanicMode {
				panic(r)
			}
			p.synchronize()
			s = &ast.Bad{Pos: start, EndPos: p.val.Pos}
		}
	}()
	return p.parseStmt()
}
