package ast

// ---------- Expressions ----------

// ColumnRef is a possibly qualified column reference. A bare name may also
// resolve to a function parameter or a whole-row reference.
type ColumnRef struct {
	NodeInfo
	Schema string
	Table  string
	Column string
}

func (*ColumnRef) exprNode() {}

// LiteralKind is the lexical class of a literal.
type LiteralKind int

// Literal kinds.
const (
	LiteralInteger LiteralKind = iota
	LiteralNumeric
	LiteralString
	LiteralBool
	LiteralNull
)

// Literal is a constant.
type Literal struct {
	NodeInfo
	Kind  LiteralKind
	Value string
}

func (*Literal) exprNode() {}

// Param is a positional parameter $n.
type Param struct {
	NodeInfo
	Index int
}

func (*Param) exprNode() {}

// BinaryExpr is a binary operator application. Op is the operator spelling
// ("=", "+", "||", "->>") or an upper-case keyword ("AND", "OR").
type BinaryExpr struct {
	NodeInfo
	Left  Expr
	Op    string
	Right Expr
}

func (*BinaryExpr) exprNode() {}

// UnaryExpr is a prefix operator application (NOT, -, +, ~).
type UnaryExpr struct {
	NodeInfo
	Op   string
	Expr Expr
}

func (*UnaryExpr) exprNode() {}

// QuantifiedExpr is expr op ANY|SOME|ALL (array).
type QuantifiedExpr struct {
	NodeInfo
	Left       Expr
	Op         string
	Quantifier string // ANY or ALL
	Right      Expr
}

func (*QuantifiedExpr) exprNode() {}

// FuncCall is a function or aggregate call.
type FuncCall struct {
	NodeInfo
	Schema   string
	Name     string // lower-cased
	Args     []Expr
	Star     bool // count(*)
	Distinct bool
	OrderBy  []OrderByItem // aggregate ORDER BY
	Filter   Expr
	Over     *WindowSpec
	Implicit bool // keyword form without parentheses (CURRENT_DATE)
}

func (*FuncCall) exprNode() {}

// WindowSpec is the OVER clause of a window call.
type WindowSpec struct {
	Name        string
	PartitionBy []Expr
	OrderBy     []OrderByItem
}

// CaseExpr is a simple (Operand != nil) or searched CASE.
type CaseExpr struct {
	NodeInfo
	Operand Expr
	Whens   []WhenClause
	Else    Expr
}

func (*CaseExpr) exprNode() {}

// WhenClause is WHEN cond THEN result.
type WhenClause struct {
	Condition Expr
	Result    Expr
}

// CastExpr is CAST(expr AS type), expr::type, or a typed literal (DATE '...').
type CastExpr struct {
	NodeInfo
	Expr Expr
	Type *TypeName
}

func (*CastExpr) exprNode() {}

// InExpr is expr [NOT] IN (list) or expr [NOT] IN (subquery).
type InExpr struct {
	NodeInfo
	Expr   Expr
	Not    bool
	Values []Expr
	Query  *SelectStmt
}

func (*InExpr) exprNode() {}

// BetweenExpr is expr [NOT] BETWEEN low AND high.
type BetweenExpr struct {
	NodeInfo
	Expr Expr
	Not  bool
	Low  Expr
	High Expr
}

func (*BetweenExpr) exprNode() {}

// IsExpr is expr IS [NOT] NULL|TRUE|FALSE|DISTINCT FROM other.
type IsExpr struct {
	NodeInfo
	Expr  Expr
	Not   bool
	Test  string // NULL, TRUE, FALSE, UNKNOWN, DISTINCT
	Other Expr   // IS DISTINCT FROM operand
}

func (*IsExpr) exprNode() {}

// LikeExpr is expr [NOT] LIKE|ILIKE pattern.
type LikeExpr struct {
	NodeInfo
	Expr    Expr
	Not     bool
	ILike   bool
	Pattern Expr
}

func (*LikeExpr) exprNode() {}

// ParenExpr is a parenthesized expression.
type ParenExpr struct {
	NodeInfo
	Expr Expr
}

func (*ParenExpr) exprNode() {}

// RowExpr is ROW(a, b) or (a, b).
type RowExpr struct {
	NodeInfo
	Exprs []Expr
}

func (*RowExpr) exprNode() {}

// ArrayExpr is ARRAY[a, b, ...].
type ArrayExpr struct {
	NodeInfo
	Elems []Expr
}

func (*ArrayExpr) exprNode() {}

// ArraySubquery is ARRAY(subquery).
type ArraySubquery struct {
	NodeInfo
	Query *SelectStmt
}

func (*ArraySubquery) exprNode() {}

// SubscriptExpr is expr[index] or expr[lower:upper].
type SubscriptExpr struct {
	NodeInfo
	Expr  Expr
	Index Expr
	Upper Expr
	Slice bool
}

func (*SubscriptExpr) exprNode() {}

// FieldSelect is (expr).field on a composite value.
type FieldSelect struct {
	NodeInfo
	Expr  Expr
	Field string
}

func (*FieldSelect) exprNode() {}

// SubqueryExpr is a scalar subquery.
type SubqueryExpr struct {
	NodeInfo
	Query *SelectStmt
}

func (*SubqueryExpr) exprNode() {}

// ExistsExpr is [NOT] EXISTS (subquery).
type ExistsExpr struct {
	NodeInfo
	Not   bool
	Query *SelectStmt
}

func (*ExistsExpr) exprNode() {}

// DefaultExpr is the DEFAULT keyword in a VALUES row or SET clause.
type DefaultExpr struct {
	NodeInfo
}

func (*DefaultExpr) exprNode() {}

// IsStringLiteral reports whether e is an untyped string constant, possibly
// parenthesized.
func IsStringLiteral(e Expr) bool {
	for {
		switch x := e.(type) {
		case *ParenExpr:
			e = x.Expr
		case *Literal:
			return x.Kind == LiteralString
		default:
			return false
		}
	}
}

// IsNullLiteral reports whether e is the NULL constant, possibly parenthesized.
func IsNullLiteral(e Expr) bool {
	for {
		switch x := e.(type) {
		case *ParenExpr:
			e = x.Expr
		case *Literal:
			return x.Kind == LiteralNull
		default:
			return false
		}
	}
}
