package ast

import "github.com/leapstack-labs/sqltyper/pkg/token"

// ---------- DDL ----------

// CreateTable is CREATE TABLE name (elements) [INHERITS (...)].
type CreateTable struct {
	NodeInfo
	Name        QualifiedName
	IfNotExists bool
	Elements    []TableElement
	Inherits    []QualifiedName
	AsQuery     *SelectStmt // CREATE TABLE ... AS query
}

func (*CreateTable) stmtNode() {}

// TableElement is one entry of a CREATE TABLE element list:
// *ColumnDef, *LikeClause or *TableConstraint.
type TableElement interface {
	Node
	tableElementNode()
}

// ColumnDef is a column definition with its inline constraints.
type ColumnDef struct {
	NodeInfo
	Name       string
	Type       *TypeName
	NotNull    bool
	PrimaryKey bool
	Default    Expr
}

func (*ColumnDef) tableElementNode() {}

// LikeClause is LIKE other_table [INCLUDING ...] inside CREATE TABLE.
type LikeClause struct {
	NodeInfo
	Table QualifiedName
}

func (*LikeClause) tableElementNode() {}

// TableConstraint is a table-level constraint. Only PRIMARY KEY column lists
// affect typing; other kinds are kept for completeness.
type TableConstraint struct {
	NodeInfo
	Name       string
	PrimaryKey []string
	Kind       string // PRIMARY KEY, UNIQUE, CHECK, FOREIGN KEY, EXCLUDE
}

func (*TableConstraint) tableElementNode() {}

// CreateDomain is CREATE DOMAIN name [AS] type [constraints].
type CreateDomain struct {
	NodeInfo
	Name    QualifiedName
	Type    *TypeName
	NotNull bool
	Default Expr
}

func (*CreateDomain) stmtNode() {}

// CreateEnum is CREATE TYPE name AS ENUM (labels).
type CreateEnum struct {
	NodeInfo
	Name   QualifiedName
	Labels []string
}

func (*CreateEnum) stmtNode() {}

// CreateView is CREATE [OR REPLACE] VIEW name AS query.
type CreateView struct {
	NodeInfo
	Name  QualifiedName
	Query *SelectStmt
}

func (*CreateView) stmtNode() {}

// AlterTable is ALTER TABLE; the action list is not retained.
type AlterTable struct {
	NodeInfo
	Name QualifiedName
}

func (*AlterTable) stmtNode() {}

// Unsupported is any statement the parser recognizes only by its leading
// keywords (CREATE INDEX, COMMENT ON, SET, BEGIN, ...). Its tokens are skipped.
type Unsupported struct {
	NodeInfo
	Keyword string
}

func (*Unsupported) stmtNode() {}

// ---------- CREATE FUNCTION ----------

// CreateFunction is CREATE [OR REPLACE] FUNCTION with a SQL body.
type CreateFunction struct {
	NodeInfo
	Name     QualifiedName
	Params   []*FuncParam
	Returns  *ReturnSpec
	Language string
	Body     []Stmt // parsed from the dollar-quoted body
	BodySpan token.Span
}

func (*CreateFunction) stmtNode() {}

// ParamMode is IN, OUT, INOUT or VARIADIC.
type ParamMode string

// Parameter modes.
const (
	ParamIn       ParamMode = "IN"
	ParamOut      ParamMode = "OUT"
	ParamInOut    ParamMode = "INOUT"
	ParamVariadic ParamMode = "VARIADIC"
)

// FuncParam is one declared function parameter. Name may be empty for
// positional-only parameters; Type may be nil when the type is to be inferred.
type FuncParam struct {
	NodeInfo
	Mode    ParamMode
	Name    string
	Type    *TypeName
	Default Expr
}

// ReturnKind classifies a RETURNS clause.
type ReturnKind int

// RETURNS clause forms.
const (
	ReturnsRecord ReturnKind = iota // RETURNS [SETOF] RECORD
	ReturnsType                     // RETURNS [SETOF] <type>
	ReturnsTable                    // RETURNS TABLE (...)
	ReturnsVoid                     // RETURNS void
)

// ReturnSpec is the RETURNS clause of a function.
type ReturnSpec struct {
	NodeInfo
	Kind    ReturnKind
	SetOf   bool
	Type    *TypeName    // ReturnsType
	Columns []*ColumnDef // ReturnsTable
}
