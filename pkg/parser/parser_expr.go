// Expression parsing using precedence climbing.
//
// Grammar (lowest to highest precedence):
//
//	expr       → or_expr
//	or_expr    → and_expr { OR and_expr }
//	and_expr   → not_expr { AND not_expr }
//	not_expr   → [ NOT ] is_expr
//	is_expr    → cmp_expr [ IS [ NOT ] ( NULL | TRUE | FALSE | UNKNOWN | DISTINCT FROM expr ) ]
//	cmp_expr   → in_expr { ( = | <> | < | > | <= | >= ) [ ANY | SOME | ALL ] in_expr }
//	in_expr    → other_expr [ [ NOT ] ( IN | BETWEEN | LIKE | ILIKE ) ... ]
//	other_expr → add_expr { ( || | -> | ->> | @> | ... ) add_expr }
//	add_expr   → mul_expr { ( + | - ) mul_expr }
//	mul_expr   → exp_expr { ( * | / | % ) exp_expr }
//	exp_expr   → unary { ^ unary }
//	unary      → [ - | + ] postfix
//	postfix    → primary { :: type | [ expr [ : expr ] ] }
package parser

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/sqltyper/pkg/ast"
	"github.com/leapstack-labs/sqltyper/pkg/token"
)

// Operator precedence levels.
const (
	precedenceNone       = 0
	precedenceOr         = 1
	precedenceAnd        = 2
	precedenceNot        = 3
	precedenceIs         = 4
	precedenceComparison = 5
	precedenceIn         = 6
	precedenceOther      = 7
	precedenceAddition   = 8
	precedenceMultiply   = 9
	precedenceExponent   = 10
	precedenceUnary      = 11
	precedencePostfix    = 12
)

// parseExpression parses a full expression.
func (p *Parser) parseExpression() ast.Expr {
	return p.parseExpressionWithPrecedence(precedenceOr)
}

// parseExpressionWithPrecedence implements precedence climbing.
func (p *Parser) parseExpressionWithPrecedence(minPrec int) ast.Expr {
	left := p.parsePrefixExpr()
	if left == nil {
		return nil
	}

	for !p.failed() {
		prec := p.infixPrecedence()
		if prec == precedenceNone || prec < minPrec {
			break
		}
		left = p.parseInfixExpr(left, prec)
		if left == nil {
			return nil
		}
	}

	return left
}

// parsePrefixExpr handles NOT and unary signs.
func (p *Parser) parsePrefixExpr() ast.Expr {
	start := p.token.Pos
	switch {
	case p.check(token.NOT):
		p.nextToken()
		expr := p.parseExpressionWithPrecedence(precedenceIs)
		return &ast.UnaryExpr{NodeInfo: p.info(start), Op: "NOT", Expr: expr}
	case p.check(token.MINUS), p.check(token.PLUS):
		op := p.token.Literal
		p.nextToken()
		expr := p.parseExpressionWithPrecedence(precedenceUnary)
		if lit, ok := expr.(*ast.Literal); ok && op == "-" && (lit.Kind == ast.LiteralInteger || lit.Kind == ast.LiteralNumeric) {
			lit.Value = "-" + lit.Value
			lit.Span.Start = start
			return lit
		}
		return &ast.UnaryExpr{NodeInfo: p.info(start), Op: op, Expr: expr}
	case p.check(token.OP) && (p.token.Literal == "~" || p.token.Literal == "@" || p.token.Literal == "|/"):
		op := p.token.Literal
		p.nextToken()
		expr := p.parseExpressionWithPrecedence(precedenceUnary)
		return &ast.UnaryExpr{NodeInfo: p.info(start), Op: op, Expr: expr}
	}
	return p.parsePostfixExpr()
}

// infixPrecedence returns the precedence of the current token as an infix
// operator, or precedenceNone.
func (p *Parser) infixPrecedence() int {
	switch p.token.Type {
	case token.OR:
		return precedenceOr
	case token.AND:
		return precedenceAnd
	case token.IS:
		return precedenceIs
	case token.EQ, token.NE, token.LT, token.GT, token.LE, token.GE:
		return precedenceComparison
	case token.IN, token.BETWEEN, token.LIKE, token.ILIKE:
		return precedenceIn
	case token.NOT:
		switch p.peek.Type {
		case token.IN, token.BETWEEN, token.LIKE, token.ILIKE:
			return precedenceIn
		}
		return precedenceNone
	case token.DPIPE, token.OP:
		return precedenceOther
	case token.PLUS, token.MINUS:
		return precedenceAddition
	case token.STAR, token.SLASH, token.PERCENT:
		return precedenceMultiply
	case token.CARET:
		return precedenceExponent
	}
	return precedenceNone
}

// parseInfixExpr parses the operator at the current token applied to left.
func (p *Parser) parseInfixExpr(left ast.Expr, prec int) ast.Expr {
	start := left.Pos()
	switch p.token.Type {
	case token.IS:
		return p.parseIsExpr(left)
	case token.NOT:
		p.nextToken()
		return p.parseNegatableInfix(left, true)
	case token.IN, token.BETWEEN, token.LIKE, token.ILIKE:
		return p.parseNegatableInfix(left, false)
	case token.OR, token.AND:
		op := strings.ToUpper(p.token.Literal)
		p.nextToken()
		right := p.parseExpressionWithPrecedence(prec + 1)
		return &ast.BinaryExpr{NodeInfo: p.info(start), Left: left, Op: op, Right: right}
	}

	op := p.token.Literal
	p.nextToken()
	if op == "!=" {
		op = "<>"
	}

	if p.check(token.ANY) || p.check(token.SOME) || p.check(token.ALL) {
		quant := "ANY"
		if p.check(token.ALL) {
			quant = "ALL"
		}
		p.nextToken()
		p.expect(token.LPAREN)
		var right ast.Expr
		if p.check(token.SELECT) || p.check(token.WITH) {
			qstart := p.token.Pos
			q := p.parseQuery()
			right = &ast.SubqueryExpr{NodeInfo: p.info(qstart), Query: q}
		} else {
			right = p.parseExpression()
		}
		p.expect(token.RPAREN)
		return &ast.QuantifiedExpr{NodeInfo: p.info(start), Left: left, Op: op, Quantifier: quant, Right: right}
	}

	right := p.parseExpressionWithPrecedence(prec + 1)
	if right == nil {
		return nil
	}
	return &ast.BinaryExpr{NodeInfo: p.info(start), Left: left, Op: op, Right: right}
}

// parseNegatableInfix parses [NOT] IN / BETWEEN / LIKE / ILIKE.
func (p *Parser) parseNegatableInfix(left ast.Expr, not bool) ast.Expr {
	start := left.Pos()
	switch p.token.Type {
	case token.IN:
		p.nextToken()
		p.expect(token.LPAREN)
		in := &ast.InExpr{Expr: left, Not: not}
		if p.check(token.SELECT) || p.check(token.WITH) {
			in.Query = p.parseQuery()
		} else {
			in.Values = p.parseExprList()
		}
		p.expect(token.RPAREN)
		in.NodeInfo = p.info(start)
		return in
	case token.BETWEEN:
		p.nextToken()
		p.matchIdent("symmetric")
		low := p.parseExpressionWithPrecedence(precedenceOther)
		p.expect(token.AND)
		high := p.parseExpressionWithPrecedence(precedenceOther)
		return &ast.BetweenExpr{NodeInfo: p.info(start), Expr: left, Not: not, Low: low, High: high}
	case token.LIKE, token.ILIKE:
		ilike := p.check(token.ILIKE)
		p.nextToken()
		pattern := p.parseExpressionWithPrecedence(precedenceOther)
		if p.matchIdent("escape") {
			p.parseExpressionWithPrecedence(precedenceOther)
		}
		return &ast.LikeExpr{NodeInfo: p.info(start), Expr: left, Not: not, ILike: ilike, Pattern: pattern}
	}
	p.addError(fmt.Sprintf(ErrUnexpectedToken, p.describe(p.token), "IN, BETWEEN or LIKE"))
	return nil
}

// parseIsExpr parses IS [NOT] NULL | TRUE | FALSE | UNKNOWN | DISTINCT FROM expr.
func (p *Parser) parseIsExpr(left ast.Expr) ast.Expr {
	start := left.Pos()
	p.nextToken() // IS
	not := p.match(token.NOT)
	is := &ast.IsExpr{Expr: left, Not: not}
	switch {
	case p.match(token.NULL):
		is.Test = "NULL"
	case p.match(token.TRUE):
		is.Test = "TRUE"
	case p.match(token.FALSE):
		is.Test = "FALSE"
	case p.matchIdent("unknown"):
		is.Test = "UNKNOWN"
	case p.match(token.DISTINCT):
		p.expect(token.FROM)
		is.Test = "DISTINCT"
		is.Other = p.parseExpressionWithPrecedence(precedenceComparison)
	default:
		p.addError(fmt.Sprintf(ErrUnexpectedToken, p.describe(p.token), "NULL, TRUE, FALSE or DISTINCT FROM"))
		return nil
	}
	is.NodeInfo = p.info(start)
	return is
}

// parsePostfixExpr parses a primary followed by casts and subscripts.
func (p *Parser) parsePostfixExpr() ast.Expr {
	expr := p.parsePrimary()
	for expr != nil && !p.failed() {
		start := expr.Pos()
		switch {
		case p.match(token.DCOLON):
			typ := p.parseTypeName()
			expr = &ast.CastExpr{NodeInfo: p.info(start), Expr: expr, Type: typ}
		case p.match(token.LBRACKET):
			sub := &ast.SubscriptExpr{Expr: expr}
			if !p.check(token.COLON) {
				sub.Index = p.parseExpression()
			}
			if p.match(token.COLON) {
				sub.Slice = true
				if !p.check(token.RBRACKET) {
					sub.Upper = p.parseExpression()
				}
			}
			p.expect(token.RBRACKET)
			sub.NodeInfo = p.info(start)
			expr = sub
		default:
			return expr
		}
	}
	return expr
}

// parseExprList parses expr { , expr }.
func (p *Parser) parseExprList() []ast.Expr {
	var exprs []ast.Expr
	for {
		exprs = append(exprs, p.parseExpression())
		if !p.match(token.COMMA) || p.failed() {
			break
		}
	}
	return exprs
}
