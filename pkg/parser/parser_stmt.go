// Query parsing.
//
// Grammar:
//
//	query       → [ with_clause ] select_body
//	with_clause → WITH [ RECURSIVE ] cte { "," cte }
//	cte         → name [ "(" names ")" ] AS [ [ NOT ] MATERIALIZED ] "(" statement ")"
//	select_body → set_operand { ( UNION | INTERSECT | EXCEPT ) [ ALL | DISTINCT ] set_operand }
//	              [ ORDER BY items ] [ LIMIT expr ] [ OFFSET expr ] [ FETCH ... ] [ FOR UPDATE ... ]
//	set_operand → select_core | "(" query ")"
//	select_core → SELECT [ DISTINCT [ ON "(" exprs ")" ] ] select_list [ FROM from_list ]
//	              [ WHERE expr ] [ GROUP BY exprs ] [ HAVING expr ] [ WINDOW ... ]
//	            | VALUES "(" exprs ")" { "," "(" exprs ")" }
package parser

import (
	"fmt"

	"github.com/leapstack-labs/sqltyper/pkg/ast"
	"github.com/leapstack-labs/sqltyper/pkg/token"
)

// parseQuery parses a SELECT statement (with optional WITH clause).
func (p *Parser) parseQuery() *ast.SelectStmt {
	start := p.token.Pos
	stmt := &ast.SelectStmt{}
	if p.check(token.WITH) {
		stmt.With = p.parseWithClause()
	}
	stmt.Body = p.parseSelectBody()
	stmt.NodeInfo = p.info(start)
	return stmt
}

// parseWithClause parses WITH [RECURSIVE] cte, ...
func (p *Parser) parseWithClause() *ast.WithClause {
	start := p.token.Pos
	p.expect(token.WITH)
	with := &ast.WithClause{Recursive: p.matchIdent("recursive")}
	for {
		with.CTEs = append(with.CTEs, p.parseCTE())
		if !p.match(token.COMMA) || p.failed() {
			break
		}
	}
	with.NodeInfo = p.info(start)
	return with
}

// parseCTE parses name [(cols)] AS [[NOT] MATERIALIZED] (statement).
func (p *Parser) parseCTE() *ast.CTE {
	start := p.token.Pos
	cte := &ast.CTE{Name: p.parseIdent()}
	if p.check(token.LPAREN) {
		cte.Columns = p.parseIdentList()
	}
	p.expect(token.AS)
	if p.match(token.NOT) {
		p.expectIdent("materialized")
	} else {
		p.matchIdent("materialized")
	}
	p.expect(token.LPAREN)
	cte.Query = p.parseDMLOrQuery()
	p.expect(token.RPAREN)
	cte.NodeInfo = p.info(start)
	return cte
}

// parseSelectBody parses a chain of set operations and the trailing
// ORDER BY / LIMIT / OFFSET / FETCH / locking clauses.
func (p *Parser) parseSelectBody() *ast.SelectBody {
	start := p.token.Pos
	body := p.parseSetChain()
	if body == nil {
		return nil
	}

	if p.check(token.ORDER) {
		body.OrderBy = p.parseOrderBy()
	}
	for !p.failed() {
		switch {
		case p.match(token.LIMIT):
			if !p.match(token.ALL) {
				body.Limit = p.parseExpression()
			}
		case p.match(token.OFFSET):
			body.Offset = p.parseExpression()
			_ = p.matchIdent("rows") || p.matchIdent("row")
		case p.match(token.FETCH):
			_ = p.matchIdent("first") || p.matchIdent("next")
			if !p.token.Is("row") && !p.token.Is("rows") {
				body.Limit = p.parseExpressionWithPrecedence(precedenceAddition)
			}
			_ = p.matchIdent("rows") || p.matchIdent("row")
			if !p.matchIdent("only") && p.match(token.WITH) {
				p.expectIdent("ties")
			}
		case p.check(token.FOR) && !p.checkPeek(token.EOF):
			p.parseLockingClause()
		default:
			body.NodeInfo = p.info(start)
			return body
		}
	}
	return body
}

// parseLockingClause skips FOR UPDATE / SHARE [OF ...] [NOWAIT | SKIP LOCKED].
func (p *Parser) parseLockingClause() {
	p.expect(token.FOR)
	for p.token.Is("update") || p.token.Is("share") || p.token.Is("no") || p.token.Is("key") {
		p.nextToken()
	}
	if p.matchIdent("of") {
		for {
			p.parseQualifiedName()
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	if !p.matchIdent("nowait") && p.matchIdent("skip") {
		p.expectIdent("locked")
	}
}

// parseSetChain parses set_operand { set_op set_operand }.
func (p *Parser) parseSetChain() *ast.SelectBody {
	start := p.token.Pos
	body := p.parseSetOperand()
	if body == nil {
		return nil
	}

	tail := body
	for tail.Right != nil {
		tail = tail.Right
	}

	var op ast.SetOpType
	switch p.token.Type {
	case token.UNION:
		op = ast.SetOpUnion
	case token.INTERSECT:
		op = ast.SetOpIntersect
	case token.EXCEPT:
		op = ast.SetOpExcept
	default:
		body.NodeInfo = p.info(start)
		return body
	}
	p.nextToken()
	tail.Op = op
	if p.match(token.ALL) {
		tail.All = true
	} else {
		p.match(token.DISTINCT)
	}
	tail.Right = p.parseSetChain()
	body.NodeInfo = p.info(start)
	return body
}

// parseSetOperand parses a select core or a parenthesized query. Clauses of a
// parenthesized operand that do not affect the result shape are dropped.
func (p *Parser) parseSetOperand() *ast.SelectBody {
	start := p.token.Pos
	if p.check(token.LPAREN) {
		p.nextToken()
		q := p.parseQuery()
		p.expect(token.RPAREN)
		if q == nil || q.Body == nil {
			return nil
		}
		if q.With != nil {
			p.addError("WITH inside a parenthesized set operand is not supported")
			return nil
		}
		return q.Body
	}
	core := p.parseSelectCore()
	if core == nil {
		return nil
	}
	return &ast.SelectBody{NodeInfo: p.info(start), Left: core}
}

// parseSelectCore parses a SELECT block or a VALUES list.
func (p *Parser) parseSelectCore() *ast.SelectCore {
	start := p.token.Pos
	core := &ast.SelectCore{}

	if p.matchIdent("values") {
		for {
			p.expect(token.LPAREN)
			core.Values = append(core.Values, p.parseExprList())
			p.expect(token.RPAREN)
			if !p.match(token.COMMA) || p.failed() {
				break
			}
		}
		core.NodeInfo = p.info(start)
		return core
	}

	if !p.expect(token.SELECT) {
		return nil
	}
	switch {
	case p.match(token.DISTINCT):
		core.Distinct = true
		if p.match(token.ON) {
			p.expect(token.LPAREN)
			core.DistinctOn = p.parseExprList()
			p.expect(token.RPAREN)
		}
	case p.match(token.ALL):
	}

	if !p.check(token.FROM) && !p.check(token.EOF) && !p.check(token.SEMICOLON) && !p.check(token.RPAREN) {
		core.Columns = p.parseSelectList()
	}
	if p.check(token.FROM) {
		core.From = p.parseFromClause()
	}
	if p.match(token.WHERE) {
		core.Where = p.parseExpression()
	}
	if p.match(token.GROUP) {
		p.expect(token.BY)
		if !p.match(token.ALL) {
			p.match(token.DISTINCT)
		}
		core.GroupBy = p.parseGroupingList()
	}
	if p.match(token.HAVING) {
		core.Having = p.parseExpression()
	}
	if p.match(token.WINDOW) {
		for {
			p.parseIdent()
			p.expect(token.AS)
			p.parseWindowSpec()
			if !p.match(token.COMMA) || p.failed() {
				break
			}
		}
	}
	core.NodeInfo = p.info(start)
	return core
}

// parseGroupingList parses GROUP BY items. ROLLUP, CUBE and GROUPING SETS
// contribute their member expressions.
func (p *Parser) parseGroupingList() []ast.Expr {
	var exprs []ast.Expr
	for {
		switch {
		case (p.token.Is("rollup") || p.token.Is("cube")) && p.checkPeek(token.LPAREN):
			p.nextToken()
			p.nextToken()
			exprs = append(exprs, p.parseExprList()...)
			p.expect(token.RPAREN)
		case p.token.Is("grouping") && p.peek.Is("sets"):
			p.nextToken()
			p.nextToken()
			p.expect(token.LPAREN)
			exprs = append(exprs, p.parseGroupingList()...)
			p.expect(token.RPAREN)
		case p.check(token.LPAREN) && p.checkPeek(token.RPAREN):
			p.nextToken()
			p.nextToken()
		default:
			exprs = append(exprs, p.parseExpression())
		}
		if !p.match(token.COMMA) || p.failed() {
			return exprs
		}
	}
}

// parseSelectList parses the select or RETURNING list.
func (p *Parser) parseSelectList() []ast.SelectItem {
	var items []ast.SelectItem
	for {
		items = append(items, p.parseSelectItem())
		if !p.match(token.COMMA) || p.failed() {
			return items
		}
	}
}

// parseSelectItem parses *, t.*, or expr [[AS] alias].
func (p *Parser) parseSelectItem() ast.SelectItem {
	start := p.token.Pos
	if p.match(token.STAR) {
		return ast.SelectItem{NodeInfo: p.info(start), Star: true}
	}
	if p.check(token.IDENT) && p.checkPeek(token.DOT) && p.peek2.Type == token.STAR {
		name := p.parseIdent()
		p.nextToken() // .
		p.nextToken() // *
		return ast.SelectItem{NodeInfo: p.info(start), TableStar: name}
	}

	item := ast.SelectItem{Expr: p.parseExpression()}
	if p.match(token.AS) {
		item.Alias = p.parseColumnLabel()
	} else if p.check(token.IDENT) {
		item.Alias = p.parseIdent()
	}
	item.NodeInfo = p.info(start)
	return item
}

// parseReturning parses an optional RETURNING list.
func (p *Parser) parseReturning() []ast.SelectItem {
	if !p.match(token.RETURNING) {
		return nil
	}
	return p.parseSelectList()
}

func (p *Parser) unexpected(expected string) {
	p.addError(fmt.Sprintf(ErrUnexpectedToken, p.describe(p.token), expected))
}
