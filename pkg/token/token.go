// Package token defines the token types for PostgreSQL parsing.
//
// Reserved keywords are token types of their own. Non-reserved keywords
// (VALUES, RETURNS, DOMAIN, ...) are lexed as IDENT so they stay usable as
// column and table names; the parser matches them by literal.
package token

import (
	"fmt"
	"strings"
)

// TokenType represents the type of a lexical token.
//
//nolint:revive // Accept stutter as token.TokenType is clear and widely used
type TokenType int32

//nolint:revive // token names are intentionally ALL_CAPS for SQL token conventions
const (
	// Special tokens
	EOF TokenType = iota
	ILLEGAL

	// Literals
	IDENT         // identifier or non-reserved keyword
	NUMBER        // 123, 45.67, 1e10
	STRING        // 'hello', E'hi\n'
	DOLLAR_STRING // $$body$$, $fn$body$fn$
	PARAM         // $1

	// Operators
	PLUS      // +
	MINUS     // -
	STAR      // *
	SLASH     // /
	PERCENT   // %
	CARET     // ^
	DPIPE     // ||
	EQ        // =
	NE        // != or <>
	LT        // <
	GT        // >
	LE        // <=
	GE        // >=
	OP        // any other operator, literal holds the spelling (->, @>, ~*, ...)
	DOT       // .
	COMMA     // ,
	SEMICOLON // ;
	COLON     // :
	DCOLON    // ::
	LPAREN    // (
	RPAREN    // )
	LBRACKET  // [
	RBRACKET  // ]

	// Reserved keywords (alphabetical)
	ALL
	AND
	ANY
	ARRAY
	AS
	ASC
	BETWEEN
	BY
	CASE
	CAST
	CHECK
	CONSTRAINT
	CREATE
	CROSS
	DEFAULT
	DESC
	DISTINCT
	DO
	ELSE
	END
	EXCEPT
	FALSE
	FETCH
	FOR
	FOREIGN
	FROM
	FULL
	GROUP
	HAVING
	ILIKE
	IN
	INNER
	INTERSECT
	INTO
	IS
	JOIN
	LATERAL
	LEFT
	LIKE
	LIMIT
	NATURAL
	NOT
	NULL
	OFFSET
	ON
	OR
	ORDER
	OUTER
	PRIMARY
	REFERENCES
	RETURNING
	RIGHT
	SELECT
	SOME
	TABLE
	THEN
	TRUE
	UNION
	UNIQUE
	USING
	WHEN
	WHERE
	WINDOW
	WITH
)

// String returns a human-readable representation of the token type.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TOKEN(%d)", t)
}

var tokenNames = map[TokenType]string{
	EOF:           "EOF",
	ILLEGAL:       "ILLEGAL",
	IDENT:         "IDENT",
	NUMBER:        "NUMBER",
	STRING:        "STRING",
	DOLLAR_STRING: "DOLLAR_STRING",
	PARAM:         "PARAM",

	PLUS:      "+",
	MINUS:     "-",
	STAR:      "*",
	SLASH:     "/",
	PERCENT:   "%",
	CARET:     "^",
	DPIPE:     "||",
	EQ:        "=",
	NE:        "<>",
	LT:        "<",
	GT:        ">",
	LE:        "<=",
	GE:        ">=",
	OP:        "OP",
	DOT:       ".",
	COMMA:     ",",
	SEMICOLON: ";",
	COLON:     ":",
	DCOLON:    "::",
	LPAREN:    "(",
	RPAREN:    ")",
	LBRACKET:  "[",
	RBRACKET:  "]",
}

// keywords maps lowercase reserved words to their token types.
var keywords = map[string]TokenType{}

func init() {
	for t := ALL; t <= WITH; t++ {
		name := reservedNames[t-ALL]
		keywords[strings.ToLower(name)] = t
		tokenNames[t] = name
	}
}

var reservedNames = [...]string{
	"ALL", "AND", "ANY", "ARRAY", "AS", "ASC", "BETWEEN", "BY", "CASE", "CAST",
	"CHECK", "CONSTRAINT", "CREATE", "CROSS", "DEFAULT", "DESC", "DISTINCT", "DO",
	"ELSE", "END", "EXCEPT", "FALSE", "FETCH", "FOR", "FOREIGN", "FROM", "FULL",
	"GROUP", "HAVING", "ILIKE", "IN", "INNER", "INTERSECT", "INTO", "IS", "JOIN",
	"LATERAL", "LEFT", "LIKE", "LIMIT", "NATURAL", "NOT", "NULL", "OFFSET", "ON",
	"OR", "ORDER", "OUTER", "PRIMARY", "REFERENCES", "RETURNING", "RIGHT",
	"SELECT", "SOME", "TABLE", "THEN", "TRUE", "UNION", "UNIQUE", "USING", "WHEN",
	"WHERE", "WINDOW", "WITH",
}

// LookupIdent returns the keyword token type for ident, or IDENT.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[strings.ToLower(ident)]; ok {
		return tok
	}
	return IDENT
}

// IsKeyword returns true if the token type is a reserved keyword.
func IsKeyword(t TokenType) bool {
	return t >= ALL && t <= WITH
}

// IsOperator returns true if the token type is an operator or punctuation.
func IsOperator(t TokenType) bool {
	return t >= PLUS && t <= RBRACKET
}

// Token represents a lexical token with position information.
type Token struct {
	Type    TokenType
	Literal string
	Pos     Position
	End     Position
	Quoted  bool // identifier was written in double quotes
}

// Span returns the source range covered by the token.
func (t Token) Span() Span {
	return Span{Start: t.Pos, End: t.End}
}

// Is reports whether the token is the unquoted non-reserved keyword kw.
func (t Token) Is(kw string) bool {
	return t.Type == IDENT && !t.Quoted && strings.EqualFold(t.Literal, kw)
}
