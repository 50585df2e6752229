package ast

// ---------- FROM items ----------

// FromClause is a FROM list: the first source followed by joins. Comma
// separated items are represented as JoinComma joins.
type FromClause struct {
	NodeInfo
	Source TableRef
	Joins  []*Join
}

// JoinType is the SQL keyword of a join.
type JoinType string

// Join types.
const (
	JoinComma JoinType = ","
	JoinInner JoinType = "INNER"
	JoinLeft  JoinType = "LEFT"
	JoinRight JoinType = "RIGHT"
	JoinFull  JoinType = "FULL"
	JoinCross JoinType = "CROSS"
)

// Join is one JOIN clause.
type Join struct {
	NodeInfo
	Type      JoinType
	Natural   bool
	Right     TableRef
	Condition Expr
	Using     []string
}

// TableName is a table, view or CTE reference.
type TableName struct {
	NodeInfo
	Name          QualifiedName
	Alias         string
	ColumnAliases []string
}

func (*TableName) tableRefNode() {}

// DerivedTable is a subquery in FROM, optionally LATERAL.
type DerivedTable struct {
	NodeInfo
	Query         *SelectStmt
	Lateral       bool
	Alias         string
	ColumnAliases []string
}

func (*DerivedTable) tableRefNode() {}

// FuncTable is a table-valued function call in FROM.
type FuncTable struct {
	NodeInfo
	Call    *FuncCall
	Lateral bool
	Alias   string
}

func (*FuncTable) tableRefNode() {}

// ParenTable is a parenthesized join tree in FROM.
type ParenTable struct {
	NodeInfo
	From  *FromClause
	Alias string
}

func (*ParenTable) tableRefNode() {}
