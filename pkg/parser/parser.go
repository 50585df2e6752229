// Package parser provides a PostgreSQL parser for the statement forms the
// elaborator types: DDL (CREATE TABLE/DOMAIN/TYPE/VIEW, ALTER TABLE),
// CREATE FUNCTION with SQL bodies, and SELECT/INSERT/UPDATE/DELETE.
//
// Grammar overview:
//
//	script    → statement { ";" statement } [ ";" ]
//	statement → ddl | create_function | query | insert | update | delete
//	query     → [ with_clause ] select_body
//
// Statements the parser does not model (CREATE INDEX, COMMENT ON, GRANT, ...)
// are returned as *ast.Unsupported so callers can pass them through.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/sqltyper/pkg/ast"
	"github.com/leapstack-labs/sqltyper/pkg/token"
)

// Parser parses PostgreSQL statements.
type Parser struct {
	lexer  *Lexer
	token  token.Token // current token
	peek   token.Token // next token
	peek2  token.Token // token after next
	prev   token.Token // last consumed token
	errors []error

	// comment cursor for attaching leading comments to statements
	commentIdx int
}

// NewParser creates a new parser for the given SQL input.
func NewParser(sql string) *Parser {
	return newParser(NewLexer(sql))
}

func newParser(l *Lexer) *Parser {
	p := &Parser{lexer: l}
	p.nextToken()
	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses a script and returns its statements.
func Parse(sql string) ([]ast.Stmt, error) {
	return NewParser(sql).ParseScript()
}

// ParseStatement parses a single statement.
func ParseStatement(sql string) (ast.Stmt, error) {
	stmts, err := Parse(sql)
	if err != nil {
		return nil, err
	}
	if len(stmts) != 1 {
		return nil, &ParseError{Pos: token.Position{Line: 1, Column: 1}, Message: fmt.Sprintf("expected one statement, got %d", len(stmts))}
	}
	return stmts[0], nil
}

// ParseScript parses statements until EOF.
func (p *Parser) ParseScript() ([]ast.Stmt, error) {
	var stmts []ast.Stmt
	for {
		for p.match(token.SEMICOLON) {
		}
		if p.check(token.EOF) {
			break
		}
		start := p.token.Pos
		stmt := p.parseStatement()
		if len(p.errors) > 0 {
			return nil, p.errors[0]
		}
		p.attachComments(stmt, start)
		stmts = append(stmts, stmt)
		if !p.check(token.EOF) && !p.check(token.SEMICOLON) {
			p.addError(fmt.Sprintf(ErrUnexpectedToken, p.describe(p.token), "; or end of input"))
			return nil, p.errors[0]
		}
	}
	return stmts, nil
}

// attachComments assigns the comments that appear before start to stmt.
func (p *Parser) attachComments(stmt ast.Stmt, start token.Position) {
	info := nodeInfoOf(stmt)
	for p.commentIdx < len(p.lexer.Comments) {
		c := p.lexer.Comments[p.commentIdx]
		if c.Span.Start.Offset >= start.Offset {
			break
		}
		if info != nil {
			info.LeadingComments = append(info.LeadingComments, c)
		}
		p.commentIdx++
	}
}

func nodeInfoOf(stmt ast.Stmt) *ast.NodeInfo {
	switch s := stmt.(type) {
	case *ast.SelectStmt:
		return &s.NodeInfo
	case *ast.InsertStmt:
		return &s.NodeInfo
	case *ast.UpdateStmt:
		return &s.NodeInfo
	case *ast.DeleteStmt:
		return &s.NodeInfo
	case *ast.CreateFunction:
		return &s.NodeInfo
	case *ast.CreateTable:
		return &s.NodeInfo
	case *ast.CreateView:
		return &s.NodeInfo
	case *ast.CreateDomain:
		return &s.NodeInfo
	case *ast.CreateEnum:
		return &s.NodeInfo
	case *ast.AlterTable:
		return &s.NodeInfo
	case *ast.Unsupported:
		return &s.NodeInfo
	}
	return nil
}

// parseStatement dispatches on the leading keyword.
func (p *Parser) parseStatement() ast.Stmt {
	switch {
	case p.check(token.SELECT), p.check(token.WITH), p.check(token.LPAREN), p.token.Is("values"):
		return p.parseDMLOrQuery()
	case p.token.Is("insert"), p.token.Is("update"), p.token.Is("delete"):
		return p.parseDMLOrQuery()
	case p.check(token.CREATE):
		return p.parseCreate()
	case p.token.Is("alter"):
		start := p.token.Pos
		p.nextToken()
		if p.token.Is("table") || p.check(token.TABLE) {
			p.nextToken()
			p.matchIdent("only")
			if p.matchIdent("if") {
				p.expectIdent("exists")
			}
			name := p.parseQualifiedName()
			p.skipStatement()
			return &ast.AlterTable{NodeInfo: p.info(start), Name: name}
		}
		return p.parseUnsupported(start, "ALTER")
	case p.check(token.IDENT), p.check(token.DO):
		return p.parseUnsupported(p.token.Pos, strings.ToUpper(p.token.Literal))
	default:
		p.addError(fmt.Sprintf(ErrExpectedStatement, p.describe(p.token)))
		return nil
	}
}

// parseDMLOrQuery parses a query or data-modifying statement, including the
// shared WITH prefix.
func (p *Parser) parseDMLOrQuery() ast.Stmt {
	start := p.token.Pos
	var with *ast.WithClause
	if p.check(token.WITH) {
		with = p.parseWithClause()
	}
	switch {
	case p.token.Is("insert"):
		return p.parseInsert(start, with)
	case p.token.Is("update"):
		return p.parseUpdate(start, with)
	case p.token.Is("delete"):
		return p.parseDelete(start, with)
	}
	body := p.parseSelectBody()
	return &ast.SelectStmt{NodeInfo: p.info(start), With: with, Body: body}
}

// parseUnsupported consumes a statement the parser does not model.
func (p *Parser) parseUnsupported(start token.Position, keyword string) ast.Stmt {
	p.skipStatement()
	return &ast.Unsupported{NodeInfo: p.info(start), Keyword: keyword}
}

// skipStatement advances to the next top-level semicolon, honoring parentheses.
func (p *Parser) skipStatement() {
	depth := 0
	for !p.check(token.EOF) {
		switch p.token.Type {
		case token.LPAREN:
			depth++
		case token.RPAREN:
			depth--
		case token.SEMICOLON:
			if depth <= 0 {
				return
			}
		}
		p.nextToken()
	}
}

// ---------- Token helpers ----------

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	p.prev = p.token
	p.token = p.peek
	p.peek = p.peek2
	p.peek2 = p.lexer.NextToken()
	if p.token.Type == token.ILLEGAL {
		if len(p.token.Literal) == 1 {
			p.addError(fmt.Sprintf("unexpected character %q", p.token.Literal))
		} else {
			p.addError(p.token.Literal)
		}
	}
}

// check returns true if the current token is of the given type.
func (p *Parser) check(t token.TokenType) bool {
	return p.token.Type == t
}

// checkPeek returns true if the next token is of the given type.
func (p *Parser) checkPeek(t token.TokenType) bool {
	return p.peek.Type == t
}

// match consumes the current token if it matches the given type.
func (p *Parser) match(t token.TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	return false
}

// matchIdent consumes the current token if it is the non-reserved keyword kw.
func (p *Parser) matchIdent(kw string) bool {
	if p.token.Is(kw) {
		p.nextToken()
		return true
	}
	return false
}

// expect consumes the current token if it matches, otherwise records an error.
func (p *Parser) expect(t token.TokenType) bool {
	if p.match(t) {
		return true
	}
	p.addError(fmt.Sprintf(ErrUnexpectedToken, p.describe(p.token), t))
	return false
}

// expectIdent consumes the non-reserved keyword kw or records an error.
func (p *Parser) expectIdent(kw string) bool {
	if p.matchIdent(kw) {
		return true
	}
	p.addError(fmt.Sprintf(ErrUnexpectedToken, p.describe(p.token), strings.ToUpper(kw)))
	return false
}

// addError records a parse error at the current token. Only the first error
// is reported; later ones are usually cascades.
func (p *Parser) addError(msg string) {
	if len(p.errors) > 0 {
		return
	}
	p.errors = append(p.errors, &ParseError{Pos: p.token.Pos, Message: msg})
}

// failed reports whether an error has been recorded.
func (p *Parser) failed() bool {
	return len(p.errors) > 0
}

func (p *Parser) describe(t token.Token) string {
	switch t.Type {
	case token.EOF:
		return "end of input"
	case token.IDENT, token.NUMBER:
		return fmt.Sprintf("%q", t.Literal)
	case token.STRING:
		return "string literal"
	case token.OP:
		return t.Literal
	}
	return t.Type.String()
}

// info builds NodeInfo spanning from start to the end of the last consumed token.
func (p *Parser) info(start token.Position) ast.NodeInfo {
	return ast.NodeInfo{Span: token.Span{Start: start, End: p.prev.End}}
}

// parseIdent parses an identifier. Non-reserved keywords are identifiers.
func (p *Parser) parseIdent() string {
	if p.check(token.IDENT) {
		name := p.token.Literal
		p.nextToken()
		return name
	}
	p.addError(fmt.Sprintf(ErrUnexpectedToken, p.describe(p.token), "identifier"))
	return ""
}

// parseColumnLabel parses a name in a position where PostgreSQL also accepts
// reserved keywords (after AS, after a dot).
func (p *Parser) parseColumnLabel() string {
	if token.IsKeyword(p.token.Type) {
		name := p.token.Literal
		p.nextToken()
		return name
	}
	return p.parseIdent()
}

// parseIdentList parses ( ident, ... ).
func (p *Parser) parseIdentList() []string {
	if !p.expect(token.LPAREN) {
		return nil
	}
	var names []string
	for {
		names = append(names, p.parseIdent())
		if !p.match(token.COMMA) {
			break
		}
	}
	p.expect(token.RPAREN)
	return names
}

// parseQualifiedName parses name or schema.name.
func (p *Parser) parseQualifiedName() ast.QualifiedName {
	first := p.parseIdent()
	if p.match(token.DOT) {
		return ast.QualifiedName{Schema: first, Name: p.parseColumnLabel()}
	}
	return ast.QualifiedName{Name: first}
}

// parseInt parses an unsigned integer literal.
func (p *Parser) parseInt() int {
	if !p.check(token.NUMBER) {
		p.addError(fmt.Sprintf(ErrUnexpectedToken, p.describe(p.token), "integer"))
		return 0
	}
	n, err := strconv.Atoi(p.token.Literal)
	if err != nil {
		p.addError(ErrInvalidNumber)
	}
	p.nextToken()
	return n
}
