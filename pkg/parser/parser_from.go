// FROM clause parsing.
//
// Grammar:
//
//	from_clause → FROM table_ref { ( "," table_ref | join ) }
//	join        → [ NATURAL ] [ INNER | LEFT [ OUTER ] | RIGHT [ OUTER ] | FULL [ OUTER ] | CROSS ]
//	              JOIN table_ref [ ON expr | USING "(" names ")" ]
//	table_ref   → [ LATERAL ] ( "(" query ")" | "(" from_list ")" | func_call | [ ONLY ] name [ "*" ] )
//	              [ [ AS ] alias [ "(" names ")" ] ]
package parser

import (
	"github.com/leapstack-labs/sqltyper/pkg/ast"
	"github.com/leapstack-labs/sqltyper/pkg/token"
)

// nonAliasWords are non-reserved keywords that may follow a table reference
// and therefore are never taken as a bare alias.
var nonAliasWords = map[string]bool{
	"set":         true,
	"tablesample": true,
	"values":      true,
}

// parseFromClause parses FROM and the following item list.
func (p *Parser) parseFromClause() *ast.FromClause {
	p.expect(token.FROM)
	return p.parseFromList()
}

// parseFromList parses table_ref { , table_ref | join }.
func (p *Parser) parseFromList() *ast.FromClause {
	start := p.token.Pos
	from := &ast.FromClause{Source: p.parseTableRef()}
	for !p.failed() {
		jstart := p.token.Pos
		if p.match(token.COMMA) {
			from.Joins = append(from.Joins, &ast.Join{Type: ast.JoinComma, Right: p.parseTableRef(), NodeInfo: p.info(jstart)})
			continue
		}
		join := p.parseJoin()
		if join == nil {
			break
		}
		from.Joins = append(from.Joins, join)
	}
	from.NodeInfo = p.info(start)
	return from
}

// parseJoin parses one JOIN clause, or returns nil if none follows.
func (p *Parser) parseJoin() *ast.Join {
	start := p.token.Pos
	join := &ast.Join{Type: ast.JoinInner}
	if p.match(token.NATURAL) {
		join.Natural = true
	}
	switch {
	case p.match(token.INNER):
	case p.match(token.LEFT):
		join.Type = ast.JoinLeft
		p.match(token.OUTER)
	case p.match(token.RIGHT):
		join.Type = ast.JoinRight
		p.match(token.OUTER)
	case p.match(token.FULL):
		join.Type = ast.JoinFull
		p.match(token.OUTER)
	case p.match(token.CROSS):
		join.Type = ast.JoinCross
	default:
		if !p.check(token.JOIN) {
			if join.Natural {
				p.unexpected("JOIN")
			}
			return nil
		}
	}
	p.expect(token.JOIN)
	join.Right = p.parseTableRef()

	switch {
	case p.match(token.ON):
		join.Condition = p.parseExpression()
	case p.check(token.USING):
		p.nextToken()
		join.Using = p.parseIdentList()
	}
	join.NodeInfo = p.info(start)
	return join
}

// parseTableRef parses a single FROM item.
func (p *Parser) parseTableRef() ast.TableRef {
	start := p.token.Pos
	lateral := p.match(token.LATERAL)

	switch {
	case p.check(token.LPAREN) && (p.peek.Type == token.SELECT || p.peek.Type == token.WITH || p.peek.Is("values")):
		p.nextToken()
		q := p.parseQuery()
		p.expect(token.RPAREN)
		dt := &ast.DerivedTable{Query: q, Lateral: lateral}
		dt.Alias, dt.ColumnAliases = p.parseTableAlias()
		dt.NodeInfo = p.info(start)
		return dt
	case p.check(token.LPAREN):
		p.nextToken()
		inner := p.parseFromList()
		p.expect(token.RPAREN)
		pt := &ast.ParenTable{From: inner}
		pt.Alias, _ = p.parseTableAlias()
		pt.NodeInfo = p.info(start)
		return pt
	case p.check(token.IDENT) && (p.checkPeek(token.LPAREN) || (p.checkPeek(token.DOT) && p.peek2.Type == token.IDENT && p.lookaheadCall())):
		expr := p.parseIdentifierExpr()
		call, _ := expr.(*ast.FuncCall)
		ft := &ast.FuncTable{Call: call, Lateral: lateral}
		if p.matchIdent("with") {
			p.expectIdent("ordinality")
		}
		ft.Alias, _ = p.parseTableAlias()
		ft.NodeInfo = p.info(start)
		return ft
	}

	p.matchIdent("only")
	tn := &ast.TableName{Name: p.parseQualifiedName()}
	p.match(token.STAR)
	tn.Alias, tn.ColumnAliases = p.parseTableAlias()
	tn.NodeInfo = p.info(start)
	return tn
}

// lookaheadCall reports whether schema.name is followed by "(". The parser
// keeps two tokens of lookahead, so this peeks at the lexer state directly.
func (p *Parser) lookaheadCall() bool {
	saved := *p.lexer
	saved.Comments = nil
	next := saved.NextToken()
	return next.Type == token.LPAREN
}

// parseTableAlias parses [AS] alias [(col, ...)].
func (p *Parser) parseTableAlias() (string, []string) {
	var alias string
	switch {
	case p.match(token.AS):
		alias = p.parseIdent()
	case p.check(token.IDENT) && (p.token.Quoted || !nonAliasWords[p.token.Literal]):
		alias = p.parseIdent()
	default:
		return "", nil
	}
	var cols []string
	if p.check(token.LPAREN) {
		cols = p.parseIdentList()
	}
	return alias, cols
}
