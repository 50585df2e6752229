// DDL and CREATE FUNCTION.
//
// Grammar:
//
//	create          → CREATE [ OR REPLACE ] [ TEMP | TEMPORARY | UNLOGGED ] create_body
//	create_table    → TABLE [ IF NOT EXISTS ] name "(" element { "," element } ")" [ INHERITS "(" names ")" ] ...
//	                | TABLE name AS query
//	element         → column_def | LIKE name { INCLUDING | EXCLUDING option } | table_constraint
//	column_def      → name type { [ CONSTRAINT name ] column_constraint }
//	create_domain   → DOMAIN name [ AS ] type { constraint }
//	create_enum     → TYPE name AS ENUM "(" [ string { "," string } ] ")"
//	create_view     → [ MATERIALIZED | RECURSIVE ] VIEW name [ "(" names ")" ] AS query
//	create_function → FUNCTION name "(" [ param { "," param } ] ")" [ RETURNS returns ] { option }
//	param           → [ IN | OUT | INOUT | VARIADIC ] [ name ] type [ ( DEFAULT | "=" ) expr ]
//	returns         → [ SETOF ] type | TABLE "(" column_def { "," column_def } ")"
package parser

import (
	"strings"

	"github.com/leapstack-labs/sqltyper/pkg/ast"
	"github.com/leapstack-labs/sqltyper/pkg/token"
)

// parseCreate dispatches CREATE statements.
func (p *Parser) parseCreate() ast.Stmt {
	start := p.token.Pos
	p.expect(token.CREATE)
	if p.match(token.OR) {
		p.expectIdent("replace")
	}
	for p.token.Is("temp") || p.token.Is("temporary") || p.token.Is("unlogged") || p.token.Is("global") || p.token.Is("local") {
		p.nextToken()
	}

	switch {
	case p.match(token.TABLE):
		return p.parseCreateTable(start)
	case p.matchIdent("domain"):
		return p.parseCreateDomain(start)
	case p.token.Is("type"):
		return p.parseCreateType(start)
	case p.token.Is("view"), p.token.Is("recursive") && p.peek.Is("view"),
		p.token.Is("materialized") && p.peek.Is("view"):
		for !p.token.Is("view") {
			p.nextToken()
		}
		p.nextToken()
		return p.parseCreateView(start)
	case p.token.Is("function"), p.token.Is("procedure"):
		p.nextToken()
		return p.parseCreateFunction(start)
	}
	keyword := "CREATE " + strings.ToUpper(p.token.Literal)
	return p.parseUnsupported(start, keyword)
}

// parseCreateTable parses the remainder of CREATE TABLE.
func (p *Parser) parseCreateTable(start token.Position) ast.Stmt {
	stmt := &ast.CreateTable{}
	if p.matchIdent("if") {
		p.expect(token.NOT)
		p.expectIdent("exists")
		stmt.IfNotExists = true
	}
	stmt.Name = p.parseQualifiedName()

	if p.match(token.AS) {
		stmt.AsQuery = p.parseQuery()
		p.skipStatement()
		stmt.NodeInfo = p.info(start)
		return stmt
	}
	if p.token.Is("partition") && p.peek.Is("of") {
		p.skipStatement()
		return &ast.Unsupported{NodeInfo: p.info(start), Keyword: "CREATE TABLE PARTITION OF"}
	}

	p.expect(token.LPAREN)
	if !p.check(token.RPAREN) {
		for !p.failed() {
			if el := p.parseTableElement(); el != nil {
				stmt.Elements = append(stmt.Elements, el)
			}
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	p.expect(token.RPAREN)

	if p.matchIdent("inherits") {
		p.expect(token.LPAREN)
		for !p.failed() {
			stmt.Inherits = append(stmt.Inherits, p.parseQualifiedName())
			if !p.match(token.COMMA) {
				break
			}
		}
		p.expect(token.RPAREN)
	}
	// Storage options, partitioning and tablespace do not affect typing.
	p.skipStatement()
	stmt.NodeInfo = p.info(start)
	return stmt
}

// parseTableElement parses a column definition, LIKE clause or table constraint.
func (p *Parser) parseTableElement() ast.TableElement {
	start := p.token.Pos
	switch {
	case p.match(token.LIKE):
		like := &ast.LikeClause{Table: p.parseQualifiedName()}
		for p.token.Is("including") || p.token.Is("excluding") {
			p.nextToken()
			p.nextToken()
		}
		like.NodeInfo = p.info(start)
		return like
	case p.check(token.CONSTRAINT), p.check(token.PRIMARY), p.check(token.UNIQUE), p.check(token.CHECK),
		p.check(token.FOREIGN), p.token.Is("exclude"):
		return p.parseTableConstraint()
	}

	col := &ast.ColumnDef{Name: p.parseIdent()}
	col.Type = p.parseTypeName()
	p.parseColumnConstraints(col)
	col.NodeInfo = p.info(start)
	return col
}

// parseColumnConstraints parses the inline constraints of a column.
func (p *Parser) parseColumnConstraints(col *ast.ColumnDef) {
	for !p.failed() {
		if p.match(token.CONSTRAINT) {
			p.parseIdent()
		}
		switch {
		case p.match(token.NOT):
			p.expect(token.NULL)
			col.NotNull = true
		case p.match(token.NULL):
		case p.match(token.PRIMARY):
			p.expectIdent("key")
			col.PrimaryKey = true
		case p.match(token.UNIQUE):
			if p.matchIdent("nulls") {
				p.match(token.NOT)
				p.matchIdent("distinct")
			}
		case p.match(token.DEFAULT):
			col.Default = p.parseExpressionWithPrecedence(precedenceIs)
		case p.match(token.CHECK):
			p.expect(token.LPAREN)
			p.parseExpression()
			p.expect(token.RPAREN)
		case p.match(token.REFERENCES):
			p.parseQualifiedName()
			if p.check(token.LPAREN) {
				p.parseIdentList()
			}
			p.skipReferenceOptions()
		case p.matchIdent("generated"):
			p.parseGenerated(col)
		case p.matchIdent("collate"):
			p.parseQualifiedName()
		case p.token.Is("deferrable") || p.token.Is("initially"):
			p.nextToken()
			p.nextToken()
		default:
			return
		}
	}
}

// parseGenerated parses GENERATED ALWAYS AS (expr) STORED and identity columns.
func (p *Parser) parseGenerated(col *ast.ColumnDef) {
	start := p.prev.Pos
	if !p.matchIdent("always") {
		p.expect(token.BY)
		p.expect(token.DEFAULT)
	}
	p.expect(token.AS)
	if p.matchIdent("identity") {
		if p.check(token.LPAREN) {
			p.skipParens()
		}
		col.NotNull = true
		col.Default = &ast.FuncCall{NodeInfo: p.info(start), Name: "nextval"}
		return
	}
	p.expect(token.LPAREN)
	col.Default = p.parseExpression()
	p.expect(token.RPAREN)
	p.matchIdent("stored")
}

// skipReferenceOptions skips ON DELETE/UPDATE actions, MATCH and deferral.
func (p *Parser) skipReferenceOptions() {
	for !p.failed() {
		switch {
		case p.check(token.ON) && (p.peek.Is("delete") || p.peek.Is("update")):
			p.nextToken()
			p.nextToken()
			switch {
			case p.matchIdent("set"):
				if !p.match(token.NULL) {
					p.match(token.DEFAULT)
				}
				if p.check(token.LPAREN) {
					p.skipParens()
				}
			case p.matchIdent("no"):
				p.expectIdent("action")
			default:
				p.nextToken() // CASCADE, RESTRICT
			}
		case p.matchIdent("match"):
			p.nextToken()
		case p.match(token.NOT) && p.token.Is("deferrable"):
			p.nextToken()
		case p.token.Is("deferrable") || p.token.Is("initially"):
			p.nextToken()
			if p.token.Is("deferred") || p.token.Is("immediate") {
				p.nextToken()
			}
		default:
			return
		}
	}
}

// skipParens skips a balanced parenthesized group.
func (p *Parser) skipParens() {
	depth := 0
	for !p.check(token.EOF) {
		switch p.token.Type {
		case token.LPAREN:
			depth++
		case token.RPAREN:
			depth--
		}
		p.nextToken()
		if depth == 0 {
			return
		}
	}
}

// parseTableConstraint parses a table-level constraint.
func (p *Parser) parseTableConstraint() ast.TableElement {
	start := p.token.Pos
	tc := &ast.TableConstraint{}
	if p.match(token.CONSTRAINT) {
		tc.Name = p.parseIdent()
	}
	switch {
	case p.match(token.PRIMARY):
		p.expectIdent("key")
		tc.Kind = "PRIMARY KEY"
		tc.PrimaryKey = p.parseIdentList()
	case p.match(token.UNIQUE):
		tc.Kind = "UNIQUE"
		if p.matchIdent("nulls") {
			p.match(token.NOT)
			p.matchIdent("distinct")
		}
		p.parseIdentList()
	case p.match(token.CHECK):
		tc.Kind = "CHECK"
		p.expect(token.LPAREN)
		p.parseExpression()
		p.expect(token.RPAREN)
	case p.match(token.FOREIGN):
		tc.Kind = "FOREIGN KEY"
		p.expectIdent("key")
		p.parseIdentList()
		p.expect(token.REFERENCES)
		p.parseQualifiedName()
		if p.check(token.LPAREN) {
			p.parseIdentList()
		}
		p.skipReferenceOptions()
	case p.matchIdent("exclude"):
		tc.Kind = "EXCLUDE"
		for !p.failed() && !p.check(token.COMMA) && !p.check(token.RPAREN) && !p.check(token.EOF) {
			if p.check(token.LPAREN) {
				p.skipParens()
				continue
			}
			p.nextToken()
		}
	default:
		p.unexpected("table constraint")
		return nil
	}
	for p.token.Is("deferrable") || p.token.Is("initially") || p.token.Is("deferred") || p.token.Is("immediate") {
		p.nextToken()
	}
	tc.NodeInfo = p.info(start)
	return tc
}

// parseCreateDomain parses the remainder of CREATE DOMAIN.
func (p *Parser) parseCreateDomain(start token.Position) ast.Stmt {
	stmt := &ast.CreateDomain{Name: p.parseQualifiedName()}
	p.match(token.AS)
	stmt.Type = p.parseTypeName()
	for !p.failed() {
		if p.match(token.CONSTRAINT) {
			p.parseIdent()
		}
		switch {
		case p.match(token.NOT):
			p.expect(token.NULL)
			stmt.NotNull = true
		case p.match(token.NULL):
		case p.match(token.DEFAULT):
			stmt.Default = p.parseExpressionWithPrecedence(precedenceIs)
		case p.match(token.CHECK):
			p.expect(token.LPAREN)
			p.parseExpression()
			p.expect(token.RPAREN)
		case p.matchIdent("collate"):
			p.parseQualifiedName()
		default:
			stmt.NodeInfo = p.info(start)
			return stmt
		}
	}
	return stmt
}

// parseCreateType parses CREATE TYPE. Only enums are modeled.
func (p *Parser) parseCreateType(start token.Position) ast.Stmt {
	p.nextToken() // TYPE
	name := p.parseQualifiedName()
	if !p.check(token.AS) || !p.peek.Is("enum") {
		return p.parseUnsupported(start, "CREATE TYPE")
	}
	p.nextToken()
	p.nextToken()
	stmt := &ast.CreateEnum{Name: name}
	p.expect(token.LPAREN)
	for p.check(token.STRING) {
		stmt.Labels = append(stmt.Labels, p.token.Literal)
		p.nextToken()
		if !p.match(token.COMMA) {
			break
		}
	}
	p.expect(token.RPAREN)
	stmt.NodeInfo = p.info(start)
	return stmt
}

// parseCreateView parses the remainder of CREATE VIEW.
func (p *Parser) parseCreateView(start token.Position) ast.Stmt {
	stmt := &ast.CreateView{Name: p.parseQualifiedName()}
	if p.check(token.LPAREN) {
		p.parseIdentList()
	}
	if p.match(token.WITH) {
		p.skipParens()
	}
	p.expect(token.AS)
	stmt.Query = p.parseQuery()
	p.skipStatement()
	stmt.NodeInfo = p.info(start)
	return stmt
}

// parseCreateFunction parses the remainder of CREATE FUNCTION.
func (p *Parser) parseCreateFunction(start token.Position) ast.Stmt {
	stmt := &ast.CreateFunction{Name: p.parseQualifiedName(), Language: "sql"}
	p.expect(token.LPAREN)
	if !p.check(token.RPAREN) {
		for !p.failed() {
			stmt.Params = append(stmt.Params, p.parseFuncParam())
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	p.expect(token.RPAREN)

	if p.matchIdent("returns") {
		stmt.Returns = p.parseReturnSpec()
	}

	var body token.Token
	for !p.failed() && !p.check(token.EOF) && !p.check(token.SEMICOLON) {
		switch {
		case p.match(token.AS):
			if !p.check(token.STRING) && !p.check(token.DOLLAR_STRING) {
				p.addError(ErrFunctionBody)
				return nil
			}
			body = p.token
			p.nextToken()
			if p.match(token.COMMA) { // C functions: AS 'obj', 'symbol'
				p.nextToken()
			}
		case p.matchIdent("language"):
			stmt.Language = strings.ToLower(p.token.Literal)
			p.nextToken()
		default:
			p.nextToken() // volatility, STRICT, SECURITY, COST, PARALLEL, SET ...
		}
	}
	stmt.NodeInfo = p.info(start)

	if body.Type == token.EOF {
		p.addError(ErrFunctionBody)
		return nil
	}
	stmt.BodySpan = body.Span()
	if stmt.Language == "sql" {
		stmts, err := parseBody(body)
		if err != nil {
			p.errors = append(p.errors, err)
			return nil
		}
		stmt.Body = stmts
	}
	return stmt
}

// parseBody parses the statements of a function body with positions
// relative to the enclosing file.
func parseBody(body token.Token) ([]ast.Stmt, error) {
	delim := 1
	if body.Type == token.DOLLAR_STRING {
		delim = (body.End.Offset - body.Pos.Offset - len(body.Literal)) / 2
	}
	base := token.Position{
		Line:   body.Pos.Line,
		Column: body.Pos.Column + delim,
		Offset: body.Pos.Offset + delim,
	}
	return newParser(newLexerAt(body.Literal, base)).ParseScript()
}

// parseFuncParam parses one parameter declaration.
func (p *Parser) parseFuncParam() *ast.FuncParam {
	start := p.token.Pos
	param := &ast.FuncParam{Mode: ast.ParamIn}
	switch {
	case p.match(token.IN):
		if p.matchIdent("out") {
			param.Mode = ast.ParamInOut
		}
	case p.token.Is("out") && p.peek.Type == token.IDENT:
		p.nextToken()
		param.Mode = ast.ParamOut
	case p.token.Is("inout") && p.peek.Type == token.IDENT:
		p.nextToken()
		param.Mode = ast.ParamInOut
	case p.token.Is("variadic") && p.peek.Type == token.IDENT:
		p.nextToken()
		param.Mode = ast.ParamVariadic
	}

	if p.hasParamName() {
		param.Name = p.parseIdent()
	}
	if !p.check(token.COMMA) && !p.check(token.RPAREN) {
		param.Type = p.parseTypeName()
	}
	if p.match(token.DEFAULT) || p.match(token.EQ) {
		param.Default = p.parseExpression()
	}
	param.NodeInfo = p.info(start)
	return param
}

// hasParamName reports whether the current identifier is a parameter name
// followed by its type, rather than the type itself.
func (p *Parser) hasParamName() bool {
	if !p.check(token.IDENT) {
		return false
	}
	if follow, ok := multiWordTypes[p.token.Literal]; ok && p.peek.Is(follow[0]) {
		return false
	}
	switch p.peek.Type {
	case token.IDENT:
		return true
	case token.COMMA, token.RPAREN, token.DEFAULT, token.EQ:
		// A lone word is a name only when the type is omitted and the word
		// is not a known type.
		return !isBuiltinTypeWord(p.token.Literal)
	}
	return false
}

// isBuiltinTypeWord reports whether word names a built-in type, used to
// disambiguate "f(integer)" from "f(untyped_name)".
func isBuiltinTypeWord(word string) bool {
	switch word {
	case "int", "int2", "int4", "int8", "integer", "smallint", "bigint", "real", "float", "float4", "float8",
		"numeric", "decimal", "text", "varchar", "char", "character", "bool", "boolean", "date", "time",
		"timestamp", "timestamptz", "interval", "uuid", "json", "jsonb", "bytea", "inet", "cidr", "money",
		"record", "anyelement", "anyarray", "oid", "name", "citext", "xml", "tsvector", "tsquery":
		return true
	}
	return false
}

// parseReturnSpec parses the RETURNS clause.
func (p *Parser) parseReturnSpec() *ast.ReturnSpec {
	start := p.token.Pos
	spec := &ast.ReturnSpec{}
	if p.match(token.TABLE) {
		spec.Kind = ast.ReturnsTable
		spec.SetOf = true
		p.expect(token.LPAREN)
		for !p.failed() {
			cstart := p.token.Pos
			col := &ast.ColumnDef{Name: p.parseIdent()}
			col.Type = p.parseTypeName()
			col.NodeInfo = p.info(cstart)
			spec.Columns = append(spec.Columns, col)
			if !p.match(token.COMMA) {
				break
			}
		}
		p.expect(token.RPAREN)
		spec.NodeInfo = p.info(start)
		return spec
	}

	spec.SetOf = p.matchIdent("setof")
	typ := p.parseTypeName()
	switch {
	case typ.Schema == "" && typ.Name == "record" && typ.ArrayDims == 0:
		spec.Kind = ast.ReturnsRecord
	case typ.Schema == "" && typ.Name == "void":
		spec.Kind = ast.ReturnsVoid
	default:
		spec.Kind = ast.ReturnsType
		spec.Type = typ
	}
	spec.NodeInfo = p.info(start)
	return spec
}
