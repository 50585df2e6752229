package ast

// ---------- Queries ----------

// SelectStmt is a complete query with an optional WITH clause.
type SelectStmt struct {
	NodeInfo
	With *WithClause
	Body *SelectBody
}

func (*SelectStmt) stmtNode() {}

// WithClause is a WITH [RECURSIVE] clause.
type WithClause struct {
	NodeInfo
	Recursive bool
	CTEs      []*CTE
}

// CTE is one common table expression. The query may be a SELECT or a
// data-modifying statement with RETURNING.
type CTE struct {
	NodeInfo
	Name    string
	Columns []string
	Query   Stmt
}

// SetOpType is the set operation joining two select bodies.
type SetOpType string

// Set operations.
const (
	SetOpNone      SetOpType = ""
	SetOpUnion     SetOpType = "UNION"
	SetOpIntersect SetOpType = "INTERSECT"
	SetOpExcept    SetOpType = "EXCEPT"
)

// SelectBody is a select core optionally combined with another body.
type SelectBody struct {
	NodeInfo
	Left    *SelectCore
	Op      SetOpType
	All     bool
	Right   *SelectBody
	OrderBy []OrderByItem
	Limit   Expr
	Offset  Expr
}

// SelectCore is a single SELECT ... FROM ... WHERE ... block, or a VALUES list.
type SelectCore struct {
	NodeInfo
	Distinct   bool
	DistinctOn []Expr
	Columns    []SelectItem
	From       *FromClause
	Where      Expr
	GroupBy    []Expr
	Having     Expr
	Values     [][]Expr // VALUES (...), (...) used as a query
}

// SelectItem is one entry of a select or RETURNING list.
type SelectItem struct {
	NodeInfo
	Star      bool   // *
	TableStar string // t.*
	Expr      Expr
	Alias     string
}

// OrderByItem is one ORDER BY entry.
type OrderByItem struct {
	Expr       Expr
	Desc       bool
	NullsFirst *bool
}

// ---------- Data modification ----------

// InsertStmt is INSERT INTO ... VALUES/SELECT/DEFAULT VALUES.
type InsertStmt struct {
	NodeInfo
	With          *WithClause
	Table         QualifiedName
	Alias         string
	Columns       []string
	Values        [][]Expr // DEFAULT entries are *DefaultExpr
	Query         *SelectStmt
	DefaultValues bool
	OnConflict    *OnConflict
	Returning     []SelectItem
}

func (*InsertStmt) stmtNode() {}

// OnConflict is ON CONFLICT [(cols)] DO NOTHING | DO UPDATE SET ... [WHERE].
type OnConflict struct {
	NodeInfo
	Columns   []string
	DoNothing bool
	Set       []SetClause
	Where     Expr
}

// SetClause is col = expr in UPDATE or ON CONFLICT DO UPDATE.
// DEFAULT is a *DefaultExpr value.
type SetClause struct {
	NodeInfo
	Column string
	Value  Expr
}

// UpdateStmt is UPDATE ... SET ... [FROM ...] [WHERE ...] [RETURNING ...].
type UpdateStmt struct {
	NodeInfo
	With      *WithClause
	Table     QualifiedName
	Alias     string
	Set       []SetClause
	From      *FromClause
	Where     Expr
	Returning []SelectItem
}

func (*UpdateStmt) stmtNode() {}

// DeleteStmt is DELETE FROM ... [USING ...] [WHERE ...] [RETURNING ...].
type DeleteStmt struct {
	NodeInfo
	With      *WithClause
	Table     QualifiedName
	Alias     string
	Using     *FromClause
	Where     Expr
	Returning []SelectItem
}

func (*DeleteStmt) stmtNode() {}
