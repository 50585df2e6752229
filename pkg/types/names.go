package types

import (
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgtype"
)

// Common scalars.
var (
	SmallInt    = &Scalar{Name: "smallint"}
	Integer     = &Scalar{Name: "integer"}
	BigInt      = &Scalar{Name: "bigint"}
	Numeric     = &Scalar{Name: "numeric"}
	Real        = &Scalar{Name: "real"}
	Double      = &Scalar{Name: "double precision"}
	Text        = &Scalar{Name: "text"}
	VarChar     = &Scalar{Name: "character varying"}
	Char        = &Scalar{Name: "character"}
	Name        = &Scalar{Name: "name"}
	Boolean     = &Scalar{Name: "boolean"}
	Date        = &Scalar{Name: "date"}
	Time        = &Scalar{Name: "time without time zone"}
	TimeTZ      = &Scalar{Name: "time with time zone"}
	Timestamp   = &Scalar{Name: "timestamp without time zone"}
	TimestampTZ = &Scalar{Name: "timestamp with time zone"}
	Interval    = &Scalar{Name: "interval"}
	UUID        = &Scalar{Name: "uuid"}
	JSON        = &Scalar{Name: "json"}
	JSONB       = &Scalar{Name: "jsonb"}
	Bytea       = &Scalar{Name: "bytea"}
	Inet        = &Scalar{Name: "inet"}
	Cidr        = &Scalar{Name: "cidr"}
	Money       = &Scalar{Name: "money"}
	OIDType     = &Scalar{Name: "oid"}
)

// aliases maps alternative spellings to canonical names.
var aliases = map[string]string{
	"int":          "integer",
	"int4":         "integer",
	"serial":       "integer",
	"serial4":      "integer",
	"int8":         "bigint",
	"bigserial":    "bigint",
	"serial8":      "bigint",
	"int2":         "smallint",
	"smallserial":  "smallint",
	"serial2":      "smallint",
	"float4":       "real",
	"float8":       "double precision",
	"float":        "double precision",
	"decimal":      "numeric",
	"bool":         "boolean",
	"varchar":      "character varying",
	"char":         "character",
	"bpchar":       "character",
	"char varying": "character varying",
	"timestamp":    "timestamp without time zone",
	"timestamptz":  "timestamp with time zone",
	"time":         "time without time zone",
	"timetz":       "time with time zone",
	"varbit":       "bit varying",
}

// internalNames maps canonical names to PostgreSQL's internal type names,
// which is how pgtype registers them.
var internalNames = map[string]string{
	"integer":                     "int4",
	"bigint":                      "int8",
	"smallint":                    "int2",
	"real":                        "float4",
	"double precision":            "float8",
	"boolean":                     "bool",
	"character varying":           "varchar",
	"character":                   "bpchar",
	"timestamp without time zone": "timestamp",
	"timestamp with time zone":    "timestamptz",
	"time without time zone":      "time",
	"time with time zone":         "timetz",
	"bit varying":                 "varbit",
}

// CanonicalName returns the canonical spelling of a scalar type name:
// lower-cased, without a pg_catalog qualifier, with aliases resolved.
func CanonicalName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.TrimPrefix(n, "pg_catalog.")
	if c, ok := aliases[n]; ok {
		return c
	}
	return n
}

// InternalName returns PostgreSQL's internal name for a canonical scalar name.
func InternalName(canonical string) string {
	if n, ok := internalNames[canonical]; ok {
		return n
	}
	return canonical
}

// IsSerial reports whether name is a serial pseudo-type, which implies
// NOT NULL and a default.
func IsSerial(name string) bool {
	switch strings.ToLower(name) {
	case "serial", "serial4", "bigserial", "serial8", "smallserial", "serial2":
		return true
	}
	return false
}

// SameName compares two object names ignoring case and a public or
// pg_catalog schema qualifier.
func SameName(a, b string) bool {
	return unqualify(a) == unqualify(b)
}

func unqualify(name string) string {
	n := strings.ToLower(name)
	for _, schema := range []string{"public.", "pg_catalog."} {
		n = strings.TrimPrefix(n, schema)
	}
	return n
}

var (
	oidOnce sync.Once
	oidMap  *pgtype.Map
)

// OID returns the PostgreSQL type OID of a scalar or array type, looking
// through Nullable and domains. Enums and records have no fixed OID.
func OID(t Type) (uint32, bool) {
	oidOnce.Do(func() { oidMap = pgtype.NewMap() })

	t, _ = Unwrap(t)
	switch x := t.(type) {
	case *Scalar:
		return lookupOID(InternalName(x.Name))
	case *Domain:
		return lookupOID(InternalName(x.Base.Name))
	case *Array:
		elem, _ := Unwrap(x.Elem)
		if d, ok := elem.(*Domain); ok {
			elem = d.Base
		}
		if s, ok := elem.(*Scalar); ok {
			return lookupOID("_" + InternalName(s.Name))
		}
	}
	return 0, false
}

func lookupOID(name string) (uint32, bool) {
	pt, ok := oidMap.TypeForName(name)
	if !ok {
		return 0, false
	}
	return pt.OID, true
}
