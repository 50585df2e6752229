// Data-modifying statements.
//
// Grammar:
//
//	insert → INSERT INTO name [ AS alias ] [ "(" names ")" ]
//	         ( DEFAULT VALUES | VALUES row { "," row } | query )
//	         [ ON CONFLICT [ "(" names ")" | ON CONSTRAINT name ] [ WHERE expr ]
//	           DO ( NOTHING | UPDATE SET assignments [ WHERE expr ] ) ]
//	         [ RETURNING select_list ]
//	update → UPDATE [ ONLY ] name [ [ AS ] alias ] SET assignments [ FROM from_list ]
//	         [ WHERE expr ] [ RETURNING select_list ]
//	delete → DELETE FROM [ ONLY ] name [ [ AS ] alias ] [ USING from_list ]
//	         [ WHERE expr ] [ RETURNING select_list ]
package parser

import (
	"github.com/leapstack-labs/sqltyper/pkg/ast"
	"github.com/leapstack-labs/sqltyper/pkg/token"
)

// parseInsert parses INSERT. The current token is INSERT.
func (p *Parser) parseInsert(start token.Position, with *ast.WithClause) ast.Stmt {
	p.nextToken() // INSERT
	p.expect(token.INTO)
	stmt := &ast.InsertStmt{With: with, Table: p.parseQualifiedName()}
	if p.match(token.AS) {
		stmt.Alias = p.parseIdent()
	}
	if p.check(token.LPAREN) && !(p.peek.Type == token.SELECT || p.peek.Type == token.WITH) {
		stmt.Columns = p.parseIdentList()
	}
	if p.token.Is("overriding") {
		for !p.token.Is("value") && !p.check(token.EOF) {
			p.nextToken()
		}
		p.nextToken()
	}

	switch {
	case p.check(token.DEFAULT) && p.peek.Is("values"):
		p.nextToken()
		p.nextToken()
		stmt.DefaultValues = true
	case p.token.Is("values") && p.checkPeek(token.LPAREN):
		p.nextToken()
		for {
			p.expect(token.LPAREN)
			stmt.Values = append(stmt.Values, p.parseExprList())
			p.expect(token.RPAREN)
			if !p.match(token.COMMA) || p.failed() {
				break
			}
		}
	default:
		stmt.Query = p.parseQuery()
	}

	if p.check(token.ON) && p.peek.Is("conflict") {
		stmt.OnConflict = p.parseOnConflict()
	}
	stmt.Returning = p.parseReturning()
	stmt.NodeInfo = p.info(start)
	return stmt
}

// parseOnConflict parses ON CONFLICT ... DO NOTHING | DO UPDATE ...
func (p *Parser) parseOnConflict() *ast.OnConflict {
	start := p.token.Pos
	p.nextToken() // ON
	p.nextToken() // CONFLICT
	oc := &ast.OnConflict{}
	switch {
	case p.check(token.LPAREN):
		oc.Columns = p.parseIdentList()
		if p.match(token.WHERE) {
			p.parseExpression()
		}
	case p.match(token.ON):
		p.expect(token.CONSTRAINT)
		p.parseIdent()
	}
	p.expect(token.DO)
	if p.matchIdent("nothing") {
		oc.DoNothing = true
		oc.NodeInfo = p.info(start)
		return oc
	}
	p.expectIdent("update")
	p.expectIdent("set")
	oc.Set = p.parseAssignments()
	if p.match(token.WHERE) {
		oc.Where = p.parseExpression()
	}
	oc.NodeInfo = p.info(start)
	return oc
}

// parseAssignments parses col = expr { , col = expr }. A parenthesized column
// list assigned from a row constructor is expanded into single assignments.
func (p *Parser) parseAssignments() []ast.SetClause {
	var set []ast.SetClause
	for !p.failed() {
		start := p.token.Pos
		if p.check(token.LPAREN) {
			cols := p.parseIdentList()
			p.expect(token.EQ)
			p.matchIdent("row")
			value := p.parseExpression()
			row, ok := value.(*ast.RowExpr)
			if !ok || len(row.Exprs) != len(cols) {
				if paren, isParen := value.(*ast.ParenExpr); isParen && len(cols) == 1 {
					row = &ast.RowExpr{Exprs: []ast.Expr{paren.Expr}}
				} else {
					p.addError("multi-column assignment requires a row of matching length")
					return nil
				}
			}
			for i, col := range cols {
				set = append(set, ast.SetClause{NodeInfo: p.info(start), Column: col, Value: row.Exprs[i]})
			}
		} else {
			col := p.parseIdent()
			p.expect(token.EQ)
			set = append(set, ast.SetClause{Column: col, Value: p.parseExpression(), NodeInfo: p.info(start)})
		}
		if !p.match(token.COMMA) {
			break
		}
	}
	return set
}

// parseUpdate parses UPDATE. The current token is UPDATE.
func (p *Parser) parseUpdate(start token.Position, with *ast.WithClause) ast.Stmt {
	p.nextToken() // UPDATE
	p.matchIdent("only")
	stmt := &ast.UpdateStmt{With: with, Table: p.parseQualifiedName()}
	stmt.Alias, _ = p.parseTableAlias()
	p.expectIdent("set")
	stmt.Set = p.parseAssignments()
	if p.check(token.FROM) {
		stmt.From = p.parseFromClause()
	}
	if p.match(token.WHERE) {
		stmt.Where = p.parseExpression()
	}
	stmt.Returning = p.parseReturning()
	stmt.NodeInfo = p.info(start)
	return stmt
}

// parseDelete parses DELETE. The current token is DELETE.
func (p *Parser) parseDelete(start token.Position, with *ast.WithClause) ast.Stmt {
	p.nextToken() // DELETE
	p.expect(token.FROM)
	p.matchIdent("only")
	stmt := &ast.DeleteStmt{With: with, Table: p.parseQualifiedName()}
	stmt.Alias, _ = p.parseTableAlias()
	if p.match(token.USING) {
		stmt.Using = p.parseFromList()
	}
	if p.match(token.WHERE) {
		stmt.Where = p.parseExpression()
	}
	stmt.Returning = p.parseReturning()
	stmt.NodeInfo = p.info(start)
	return stmt
}
