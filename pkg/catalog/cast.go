package catalog

import "github.com/leapstack-labs/sqltyper/pkg/types"

// CastContext specifies in which contexts a cast may be applied.
//
// Higher value CastContext can use lower value CastContexts.
type CastContext uint8

const (
	_ CastContext = iota
	// CastImplicit casts may be applied anywhere, including operator and
	// function argument matching.
	CastImplicit
	// CastAssignment casts may be applied implicitly when storing a value
	// into a column or function result.
	CastAssignment
	// CastExplicit casts need an explicit CAST or ::.
	CastExplicit
)

// String returns the context name.
func (c CastContext) String() string {
	switch c {
	case CastImplicit:
		return "implicit"
	case CastAssignment:
		return "assignment"
	case CastExplicit:
		return "explicit"
	default:
		return "none"
	}
}

// Allows reports whether a cast registered at c may be used in ctx.
func (c CastContext) Allows(ctx CastContext) bool {
	return c != 0 && c <= ctx
}

// Cast returns the context a built-in scalar cast from src to dst needs.
// Casts between identical names are implicit. Every scalar converts to
// the string types by assignment and back explicitly through text I/O.
func (c *Catalog) Cast(src, dst string) (CastContext, bool) {
	src, dst = types.CanonicalName(src), types.CanonicalName(dst)
	if src == dst {
		return CastImplicit, true
	}
	if ctx, ok := c.casts[castKey{src, dst}]; ok {
		return ctx, true
	}
	if isStringName(dst) && c.HasScalar(src) {
		return CastAssignment, true
	}
	if isStringName(src) && c.HasScalar(dst) {
		return CastExplicit, true
	}
	return 0, false
}

// CanCast reports whether src converts to dst within ctx.
func (c *Catalog) CanCast(src, dst string, ctx CastContext) bool {
	got, ok := c.Cast(src, dst)
	return ok && got.Allows(ctx)
}

func isStringName(name string) bool {
	switch name {
	case "text", "character varying", "character", "name":
		return true
	}
	return false
}

// postgresCasts mirrors pg_cast for the built-in scalars the catalog knows.
var postgresCasts = map[string]map[string]CastContext{
	"smallint": {
		"integer":          CastImplicit,
		"bigint":           CastImplicit,
		"real":             CastImplicit,
		"double precision": CastImplicit,
		"numeric":          CastImplicit,
		"money":            CastAssignment,
	},
	"integer": {
		"smallint":         CastAssignment,
		"bigint":           CastImplicit,
		"real":             CastImplicit,
		"double precision": CastImplicit,
		"numeric":          CastImplicit,
		"boolean":          CastExplicit,
		"oid":              CastImplicit,
		"money":            CastAssignment,
	},
	"bigint": {
		"smallint":         CastAssignment,
		"integer":          CastAssignment,
		"real":             CastImplicit,
		"double precision": CastImplicit,
		"numeric":          CastImplicit,
		"oid":              CastImplicit,
		"money":            CastAssignment,
	},
	"real": {
		"smallint":         CastAssignment,
		"integer":          CastAssignment,
		"bigint":           CastAssignment,
		"double precision": CastImplicit,
		"numeric":          CastAssignment,
	},
	"double precision": {
		"smallint": CastAssignment,
		"integer":  CastAssignment,
		"bigint":   CastAssignment,
		"real":     CastAssignment,
		"numeric":  CastAssignment,
	},
	"numeric": {
		"smallint":         CastAssignment,
		"integer":          CastAssignment,
		"bigint":           CastAssignment,
		"real":             CastImplicit,
		"double precision": CastImplicit,
		"money":            CastAssignment,
	},
	"money": {
		"numeric": CastAssignment,
	},
	"oid": {
		"integer": CastAssignment,
		"bigint":  CastAssignment,
	},
	"boolean": {
		"integer": CastExplicit,
	},
	"character": {
		"text":              CastImplicit,
		"character varying": CastImplicit,
		"name":              CastImplicit,
	},
	"character varying": {
		"text":      CastImplicit,
		"character": CastImplicit,
		"name":      CastImplicit,
	},
	"text": {
		"character":         CastImplicit,
		"character varying": CastImplicit,
		"name":              CastImplicit,
	},
	"name": {
		"text":              CastImplicit,
		"character":         CastAssignment,
		"character varying": CastAssignment,
	},
	"date": {
		"timestamp without time zone": CastImplicit,
		"timestamp with time zone":    CastImplicit,
	},
	"timestamp without time zone": {
		"date":                     CastAssignment,
		"time without time zone":   CastAssignment,
		"timestamp with time zone": CastImplicit,
	},
	"timestamp with time zone": {
		"date":                        CastAssignment,
		"time without time zone":      CastAssignment,
		"time with time zone":         CastAssignment,
		"timestamp without time zone": CastAssignment,
	},
	"time without time zone": {
		"interval":            CastImplicit,
		"time with time zone": CastImplicit,
	},
	"time with time zone": {
		"time without time zone": CastAssignment,
	},
	"interval": {
		"time without time zone": CastAssignment,
	},
	"json": {
		"jsonb": CastAssignment,
	},
	"jsonb": {
		"json":             CastAssignment,
		"boolean":          CastExplicit,
		"smallint":         CastExplicit,
		"integer":          CastExplicit,
		"bigint":           CastExplicit,
		"numeric":          CastExplicit,
		"real":             CastExplicit,
		"double precision": CastExplicit,
	},
	"cidr": {
		"inet": CastImplicit,
	},
	"inet": {
		"cidr": CastAssignment,
	},
}
