// Special expression forms.
//
// Grammar:
//
//	case_expr  → CASE [ expr ] WHEN expr THEN expr { WHEN expr THEN expr } [ ELSE expr ] END
//	cast_expr  → CAST "(" expr AS type_name ")"
//	array_expr → ARRAY "[" [ exprs ] "]" | ARRAY "(" query ")"
//	type_name  → name [ "(" modifiers ")" ] { "[" [ number ] "]" } [ ARRAY [ "[" number "]" ] ]
//	window     → name | "(" [ name ] [ PARTITION BY exprs ] [ ORDER BY items ] [ frame ] ")"
package parser

import (
	"strings"

	"github.com/leapstack-labs/sqltyper/pkg/ast"
	"github.com/leapstack-labs/sqltyper/pkg/token"
)

// parseCaseExpr parses simple and searched CASE.
func (p *Parser) parseCaseExpr() ast.Expr {
	start := p.token.Pos
	p.nextToken() // CASE

	expr := &ast.CaseExpr{}
	if !p.check(token.WHEN) {
		expr.Operand = p.parseExpression()
	}
	for p.match(token.WHEN) {
		cond := p.parseExpression()
		p.expect(token.THEN)
		result := p.parseExpression()
		expr.Whens = append(expr.Whens, ast.WhenClause{Condition: cond, Result: result})
		if p.failed() {
			return nil
		}
	}
	if len(expr.Whens) == 0 {
		p.expect(token.WHEN)
		return nil
	}
	if p.match(token.ELSE) {
		expr.Else = p.parseExpression()
	}
	p.expect(token.END)
	expr.NodeInfo = p.info(start)
	return expr
}

// parseCastExpr parses CAST(expr AS type).
func (p *Parser) parseCastExpr() ast.Expr {
	start := p.token.Pos
	p.nextToken() // CAST
	p.expect(token.LPAREN)
	expr := p.parseExpression()
	p.expect(token.AS)
	typ := p.parseTypeName()
	p.expect(token.RPAREN)
	return &ast.CastExpr{NodeInfo: p.info(start), Expr: expr, Type: typ}
}

// parseArrayExpr parses ARRAY[...] and ARRAY(subquery).
func (p *Parser) parseArrayExpr() ast.Expr {
	start := p.token.Pos
	p.nextToken() // ARRAY
	if p.match(token.LPAREN) {
		q := p.parseQuery()
		p.expect(token.RPAREN)
		return &ast.ArraySubquery{NodeInfo: p.info(start), Query: q}
	}
	p.expect(token.LBRACKET)
	var elems []ast.Expr
	if !p.check(token.RBRACKET) {
		elems = p.parseExprList()
	}
	p.expect(token.RBRACKET)
	return &ast.ArrayExpr{NodeInfo: p.info(start), Elems: elems}
}

// parseParenExpr parses a parenthesized expression, row constructor or
// scalar subquery, and an optional trailing .field selection.
func (p *Parser) parseParenExpr() ast.Expr {
	start := p.token.Pos
	p.nextToken() // (

	var expr ast.Expr
	if p.check(token.SELECT) || p.check(token.WITH) {
		q := p.parseQuery()
		p.expect(token.RPAREN)
		expr = &ast.SubqueryExpr{NodeInfo: p.info(start), Query: q}
	} else {
		inner := p.parseExpression()
		if p.match(token.COMMA) {
			exprs := append([]ast.Expr{inner}, p.parseExprList()...)
			p.expect(token.RPAREN)
			return &ast.RowExpr{NodeInfo: p.info(start), Exprs: exprs}
		}
		p.expect(token.RPAREN)
		expr = &ast.ParenExpr{NodeInfo: p.info(start), Expr: inner}
	}

	for p.check(token.DOT) && !p.checkPeek(token.STAR) && !p.failed() {
		p.nextToken()
		field := p.parseColumnLabel()
		expr = &ast.FieldSelect{NodeInfo: p.info(start), Expr: expr, Field: field}
	}
	return expr
}

// parseWindowSpec parses the target of OVER.
func (p *Parser) parseWindowSpec() *ast.WindowSpec {
	spec := &ast.WindowSpec{}
	if p.check(token.IDENT) {
		spec.Name = p.parseIdent()
		return spec
	}
	p.expect(token.LPAREN)
	if p.check(token.IDENT) && !p.token.Is("partition") && !p.token.Is("rows") && !p.token.Is("range") && !p.token.Is("groups") {
		spec.Name = p.parseIdent()
	}
	if p.matchIdent("partition") {
		p.expect(token.BY)
		spec.PartitionBy = p.parseExprList()
	}
	if p.check(token.ORDER) {
		spec.OrderBy = p.parseOrderBy()
	}
	// Frame clauses do not affect typing.
	depth := 0
	for !p.failed() && !p.check(token.EOF) && (depth > 0 || !p.check(token.RPAREN)) {
		switch p.token.Type {
		case token.LPAREN:
			depth++
		case token.RPAREN:
			depth--
		}
		p.nextToken()
	}
	p.expect(token.RPAREN)
	return spec
}

// parseOrderBy parses ORDER BY item { , item }.
func (p *Parser) parseOrderBy() []ast.OrderByItem {
	p.expect(token.ORDER)
	p.expect(token.BY)
	var items []ast.OrderByItem
	for {
		item := ast.OrderByItem{Expr: p.parseExpression()}
		switch {
		case p.match(token.DESC):
			item.Desc = true
		case p.match(token.ASC):
		case p.match(token.USING):
			p.nextToken() // operator
		}
		if p.matchIdent("nulls") {
			first := p.token.Is("first")
			item.NullsFirst = &first
			p.nextToken()
		}
		items = append(items, item)
		if !p.match(token.COMMA) || p.failed() {
			return items
		}
	}
}

// multiWordTypes maps the first word of a multi-word type name to the words
// that may follow it.
var multiWordTypes = map[string][]string{
	"double":    {"precision"},
	"character": {"varying"},
	"char":      {"varying"},
	"bit":       {"varying"},
	"national":  {"character", "varying"},
}

// parseTypeName parses a type reference.
func (p *Parser) parseTypeName() *ast.TypeName {
	start := p.token.Pos
	typ := &ast.TypeName{}

	first := p.parseIdent()
	if p.match(token.DOT) {
		typ.Schema = first
		first = p.parseIdent()
	}
	words := []string{first}
	if follow, ok := multiWordTypes[first]; ok && typ.Schema == "" {
		for _, w := range follow {
			if !p.matchIdent(w) {
				break
			}
			words = append(words, w)
		}
	}
	typ.Name = strings.Join(words, " ")

	if p.match(token.LPAREN) {
		for !p.failed() {
			mod := p.token.Literal
			p.nextToken()
			typ.Modifiers = append(typ.Modifiers, mod)
			if !p.match(token.COMMA) {
				break
			}
		}
		p.expect(token.RPAREN)
	}

	if typ.Name == "timestamp" || typ.Name == "time" {
		if p.check(token.WITH) || p.token.Is("without") {
			with := p.check(token.WITH)
			p.nextToken()
			p.expectIdent("time")
			p.expectIdent("zone")
			if with {
				typ.Name += " with time zone"
			} else {
				typ.Name += " without time zone"
			}
		}
	}
	if typ.Name == "interval" {
		for p.token.Is("year") || p.token.Is("month") || p.token.Is("day") ||
			p.token.Is("hour") || p.token.Is("minute") || p.token.Is("second") || p.token.Is("to") {
			p.nextToken()
		}
	}

	for p.match(token.LBRACKET) {
		if p.check(token.NUMBER) {
			p.nextToken()
		}
		p.expect(token.RBRACKET)
		typ.ArrayDims++
	}
	if p.match(token.ARRAY) {
		if p.match(token.LBRACKET) {
			p.parseInt()
			p.expect(token.RBRACKET)
		}
		typ.ArrayDims++
	}

	typ.NodeInfo = p.info(start)
	return typ
}
