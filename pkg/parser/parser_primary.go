// Primary expression parsing.
//
// Grammar:
//
//	primary    → literal | param | column_ref | func_call | case_expr | cast_expr
//	           | "(" expr ")" | "(" expr { "," expr } ")" | "(" query ")"
//	           | [ NOT ] EXISTS "(" query ")" | ARRAY "[" exprs "]" | ARRAY "(" query ")"
//	           | ROW "(" exprs ")" | type_name string | DEFAULT
//	column_ref → ident [ "." ident [ "." ident ] ]
//	func_call  → name "(" [ DISTINCT ] ( "*" | exprs [ ORDER BY ... ] ) ")"
//	             [ FILTER "(" WHERE expr ")" ] [ OVER window ]
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/sqltyper/pkg/ast"
	"github.com/leapstack-labs/sqltyper/pkg/token"
)

// keywordFunctions are SQL value functions written without parentheses.
var keywordFunctions = map[string]bool{
	"current_date":      true,
	"current_time":      true,
	"current_timestamp": true,
	"localtime":         true,
	"localtimestamp":    true,
	"current_user":      true,
	"current_role":      true,
	"session_user":      true,
	"current_schema":    true,
	"current_catalog":   true,
	"user":              true,
}

// typedLiteralTypes are type names that may prefix a string constant.
var typedLiteralTypes = map[string]bool{
	"date":        true,
	"time":        true,
	"timestamp":   true,
	"timestamptz": true,
	"interval":    true,
	"uuid":        true,
	"json":        true,
	"jsonb":       true,
	"inet":        true,
	"numeric":     true,
	"int":         true,
	"integer":     true,
	"bigint":      true,
	"text":        true,
	"boolean":     true,
	"bool":        true,
	"bytea":       true,
}

// parsePrimary parses a primary expression.
func (p *Parser) parsePrimary() ast.Expr {
	start := p.token.Pos
	switch p.token.Type {
	case token.NUMBER:
		lit := p.token.Literal
		p.nextToken()
		kind := ast.LiteralInteger
		if strings.ContainsAny(lit, ".eE") {
			kind = ast.LiteralNumeric
		}
		return &ast.Literal{NodeInfo: p.info(start), Kind: kind, Value: lit}
	case token.STRING:
		lit := p.token.Literal
		p.nextToken()
		return &ast.Literal{NodeInfo: p.info(start), Kind: ast.LiteralString, Value: lit}
	case token.DOLLAR_STRING:
		lit := p.token.Literal
		p.nextToken()
		return &ast.Literal{NodeInfo: p.info(start), Kind: ast.LiteralString, Value: lit}
	case token.TRUE, token.FALSE:
		lit := p.token.Literal
		p.nextToken()
		return &ast.Literal{NodeInfo: p.info(start), Kind: ast.LiteralBool, Value: lit}
	case token.NULL:
		p.nextToken()
		return &ast.Literal{NodeInfo: p.info(start), Kind: ast.LiteralNull, Value: "null"}
	case token.PARAM:
		n, err := strconv.Atoi(p.token.Literal)
		if err != nil || n < 1 {
			p.addError(fmt.Sprintf(ErrInvalidParam, p.token.Literal))
			return nil
		}
		p.nextToken()
		return &ast.Param{NodeInfo: p.info(start), Index: n}
	case token.DEFAULT:
		p.nextToken()
		return &ast.DefaultExpr{NodeInfo: p.info(start)}
	case token.CASE:
		return p.parseCaseExpr()
	case token.CAST:
		return p.parseCastExpr()
	case token.ARRAY:
		return p.parseArrayExpr()
	case token.LPAREN:
		return p.parseParenExpr()
	case token.LEFT, token.RIGHT:
		if p.checkPeek(token.LPAREN) {
			name := p.token.Literal
			p.nextToken()
			return p.parseFuncCall(start, "", name)
		}
	case token.IDENT:
		return p.parseIdentifierExpr()
	}
	p.addError(fmt.Sprintf(ErrExpectedExpr, p.describe(p.token)))
	return nil
}

// parseIdentifierExpr parses an expression starting with an identifier:
// column references, function calls, typed literals, ROW(...) and EXISTS.
func (p *Parser) parseIdentifierExpr() ast.Expr {
	start := p.token.Pos
	tok := p.token

	if !tok.Quoted {
		switch {
		case tok.Literal == "exists" && p.checkPeek(token.LPAREN):
			p.nextToken()
			p.nextToken()
			q := p.parseQuery()
			p.expect(token.RPAREN)
			return &ast.ExistsExpr{NodeInfo: p.info(start), Query: q}
		case tok.Literal == "row" && p.checkPeek(token.LPAREN):
			p.nextToken()
			p.nextToken()
			var exprs []ast.Expr
			if !p.check(token.RPAREN) {
				exprs = p.parseExprList()
			}
			p.expect(token.RPAREN)
			return &ast.RowExpr{NodeInfo: p.info(start), Exprs: exprs}
		case keywordFunctions[tok.Literal] && !p.checkPeek(token.LPAREN):
			p.nextToken()
			return &ast.FuncCall{NodeInfo: p.info(start), Name: tok.Literal, Implicit: true}
		case typedLiteralTypes[tok.Literal] && p.peek.Type == token.STRING:
			p.nextToken()
			value := p.token.Literal
			vstart := p.token.Pos
			p.nextToken()
			lit := &ast.Literal{NodeInfo: p.info(vstart), Kind: ast.LiteralString, Value: value}
			typ := &ast.TypeName{NodeInfo: ast.NodeInfo{Span: tok.Span()}, Name: tok.Literal}
			return &ast.CastExpr{NodeInfo: p.info(start), Expr: lit, Type: typ}
		}
	}

	first := p.parseIdent()
	if p.check(token.LPAREN) {
		return p.parseFuncCall(start, "", first)
	}
	if !p.check(token.DOT) || p.checkPeek(token.STAR) {
		return &ast.ColumnRef{NodeInfo: p.info(start), Column: first}
	}
	p.nextToken() // .
	second := p.parseColumnLabel()
	if p.check(token.LPAREN) {
		return p.parseFuncCall(start, first, second)
	}
	if !p.check(token.DOT) || p.checkPeek(token.STAR) {
		return &ast.ColumnRef{NodeInfo: p.info(start), Table: first, Column: second}
	}
	p.nextToken() // .
	third := p.parseColumnLabel()
	return &ast.ColumnRef{NodeInfo: p.info(start), Schema: first, Table: second, Column: third}
}

// parseFuncCall parses the argument list and trailing clauses of a call.
// The current token is "(".
func (p *Parser) parseFuncCall(start token.Position, schema, name string) ast.Expr {
	call := &ast.FuncCall{Schema: schema, Name: strings.ToLower(name)}
	p.expect(token.LPAREN)

	if special, ok := p.parseSpecialCallArgs(call.Name); ok {
		call.Args = special
	} else {
		switch {
		case p.check(token.STAR):
			p.nextToken()
			call.Star = true
		case p.check(token.RPAREN):
		default:
			if p.match(token.DISTINCT) {
				call.Distinct = true
			} else {
				p.match(token.ALL)
			}
			call.Args = p.parseCallArgs()
			if p.check(token.ORDER) {
				call.OrderBy = p.parseOrderBy()
			}
		}
	}
	p.expect(token.RPAREN)

	if p.token.Is("within") && p.peek.Type == token.GROUP {
		p.nextToken()
		p.nextToken()
		p.expect(token.LPAREN)
		call.OrderBy = p.parseOrderBy()
		p.expect(token.RPAREN)
	}
	if p.token.Is("filter") && p.checkPeek(token.LPAREN) {
		p.nextToken()
		p.nextToken()
		p.expect(token.WHERE)
		call.Filter = p.parseExpression()
		p.expect(token.RPAREN)
	}
	if p.matchIdent("over") {
		call.Over = p.parseWindowSpec()
	}
	call.NodeInfo = p.info(start)
	return call
}

// parseCallArgs parses call arguments, dropping named-argument labels and
// VARIADIC markers.
func (p *Parser) parseCallArgs() []ast.Expr {
	var args []ast.Expr
	for {
		p.matchIdent("variadic")
		if p.check(token.IDENT) && p.peek.Type == token.OP && p.peek.Literal == "=>" {
			p.nextToken()
			p.nextToken()
		}
		args = append(args, p.parseExpression())
		if !p.match(token.COMMA) || p.failed() {
			return args
		}
	}
}

// parseSpecialCallArgs handles the keyword-argument forms of EXTRACT,
// POSITION, SUBSTRING, TRIM and OVERLAY. The field or mode keyword is passed
// as a string literal argument.
func (p *Parser) parseSpecialCallArgs(name string) ([]ast.Expr, bool) {
	switch name {
	case "extract":
		if !p.check(token.IDENT) && !p.check(token.STRING) || p.peek.Type != token.FROM {
			return nil, false
		}
		fstart := p.token.Pos
		field := p.token.Literal
		p.nextToken()
		p.expect(token.FROM)
		field = strings.ToLower(field)
		fieldLit := &ast.Literal{NodeInfo: ast.NodeInfo{Span: token.Span{Start: fstart, End: fstart}}, Kind: ast.LiteralString, Value: field}
		return []ast.Expr{fieldLit, p.parseExpression()}, true
	case "position":
		first := p.parseExpressionWithPrecedence(precedenceOther)
		if !p.match(token.IN) {
			args := []ast.Expr{first}
			if p.match(token.COMMA) {
				args = append(args, p.parseCallArgs()...)
			}
			return args, true
		}
		return []ast.Expr{first, p.parseExpression()}, true
	case "substring":
		first := p.parseExpression()
		if first == nil {
			return nil, true
		}
		args := []ast.Expr{first}
		switch {
		case p.match(token.COMMA):
			args = append(args, p.parseCallArgs()...)
		case p.match(token.FROM):
			args = append(args, p.parseExpression())
			if p.match(token.FOR) {
				args = append(args, p.parseExpression())
			}
		case p.match(token.FOR):
			one := &ast.Literal{NodeInfo: ast.NodeInfo{Span: first.GetSpan()}, Kind: ast.LiteralInteger, Value: "1"}
			args = append(args, one, p.parseExpression())
		}
		return args, true
	case "trim":
		var args []ast.Expr
		if p.token.Is("both") || p.token.Is("leading") || p.token.Is("trailing") {
			p.nextToken()
		}
		if p.match(token.FROM) {
			args = append(args, p.parseExpression())
		} else {
			first := p.parseExpression()
			if p.match(token.FROM) {
				args = append(args, p.parseExpression(), first)
			} else {
				args = append(args, first)
				if p.match(token.COMMA) {
					args = append(args, p.parseCallArgs()...)
				}
			}
		}
		return args, true
	}
	return nil, false
}
