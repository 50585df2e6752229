// Package types is the type model of the elaborator: scalars, domains, enums,
// arrays, nullable wrappers, records, the AnyScalar top type, Void and
// unification variables.
//
// Nullable never wraps Nullable or Void; construct nullable types with
// MakeNullable, which is idempotent.
package types

import (
	"fmt"
	"strings"
)

// Kind identifies the variant of a Type.
type Kind int

// Type variants.
const (
	KindScalar Kind = iota
	KindDomain
	KindEnum
	KindArray
	KindNullable
	KindRecord
	KindAnyScalar
	KindVoid
	KindVar
)

var kindNames = [...]string{
	KindScalar:    "scalar",
	KindDomain:    "domain",
	KindEnum:      "enum",
	KindArray:     "array",
	KindNullable:  "nullable",
	KindRecord:    "record",
	KindAnyScalar: "anyscalar",
	KindVoid:      "void",
	KindVar:       "var",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Type is a closed sum of the variants below.
type Type interface {
	Kind() Kind
	String() string
	isType()
}

// Scalar is a base type identified by its canonical catalog name.
type Scalar struct {
	Name string
}

// Domain is a named restriction of a scalar.
type Domain struct {
	Name string
	Base *Scalar
}

// Enum is a named enumerated type.
type Enum struct {
	Name   string
	Labels []string
}

// Array is a homogeneous array of Elem.
type Array struct {
	Elem Type
}

// Nullable marks Inner as possibly NULL.
type Nullable struct {
	Inner Type
}

// Field is one positional entry of a Record. Name is empty for unnamed
// expressions.
type Field struct {
	Name string
	Type Type
}

// Record is an ordered list of fields.
type Record struct {
	Fields []Field
}

// Var is a unification variable. Its binding lives in the elaborator state.
type Var struct {
	ID int
}

type anyScalar struct{}

type void struct{}

var (
	// AnyScalar is a scalar whose type is only known at run time.
	AnyScalar Type = anyScalar{}
	// Void is the type of statements that produce no rows.
	Void Type = void{}
)

func (*Scalar) Kind() Kind   { return KindScalar }
func (*Domain) Kind() Kind   { return KindDomain }
func (*Enum) Kind() Kind     { return KindEnum }
func (*Array) Kind() Kind    { return KindArray }
func (*Nullable) Kind() Kind { return KindNullable }
func (*Record) Kind() Kind   { return KindRecord }
func (anyScalar) Kind() Kind { return KindAnyScalar }
func (void) Kind() Kind      { return KindVoid }
func (*Var) Kind() Kind      { return KindVar }

func (*Scalar) isType()   {}
func (*Domain) isType()   {}
func (*Enum) isType()     {}
func (*Array) isType()    {}
func (*Nullable) isType() {}
func (*Record) isType()   {}
func (anyScalar) isType() {}
func (void) isType()      {}
func (*Var) isType()      {}

func (s *Scalar) String() string   { return s.Name }
func (d *Domain) String() string   { return d.Name }
func (e *Enum) String() string     { return e.Name }
func (a *Array) String() string    { return a.Elem.String() + "[]" }
func (n *Nullable) String() string { return "Nullable(" + n.Inner.String() + ")" }
func (anyScalar) String() string   { return "anyscalar" }
func (void) String() string        { return "void" }
func (v *Var) String() string      { return fmt.Sprintf("unknown#%d", v.ID) }

func (r *Record) String() string {
	var sb strings.Builder
	sb.WriteString("record(")
	for i, f := range r.Fields {
		if i > 0 {
			sb.WriteString(", ")
		}
		if f.Name != "" {
			sb.WriteString(f.Name)
			sb.WriteByte(' ')
		}
		sb.WriteString(f.Type.String())
	}
	sb.WriteByte(')')
	return sb.String()
}

// NewScalar returns the scalar with the canonical form of name.
func NewScalar(name string) *Scalar {
	return &Scalar{Name: CanonicalName(name)}
}

// NewArray returns an array of elem.
func NewArray(elem Type) *Array {
	return &Array{Elem: elem}
}

// NewRecord returns a record of the given fields.
func NewRecord(fields ...Field) *Record {
	return &Record{Fields: fields}
}

// MakeNullable wraps t in Nullable. Nullable and Void are returned unchanged.
func MakeNullable(t Type) Type {
	switch t.(type) {
	case *Nullable:
		return t
	case void:
		return t
	}
	return &Nullable{Inner: t}
}

// NullableIf wraps t in Nullable when cond holds.
func NullableIf(t Type, cond bool) Type {
	if cond {
		return MakeNullable(t)
	}
	return t
}

// Unwrap strips one Nullable layer and reports whether there was one.
func Unwrap(t Type) (Type, bool) {
	if n, ok := t.(*Nullable); ok {
		return n.Inner, true
	}
	return t, false
}

// IsNullable reports whether t is Nullable.
func IsNullable(t Type) bool {
	_, ok := t.(*Nullable)
	return ok
}

// Nullify wraps every field of r in Nullable.
func Nullify(r *Record) *Record {
	fields := make([]Field, len(r.Fields))
	for i, f := range r.Fields {
		fields[i] = Field{Name: f.Name, Type: MakeNullable(f.Type)}
	}
	return &Record{Fields: fields}
}

// Field returns the field called name, case-sensitively, and its position.
func (r *Record) Field(name string) (Field, int, bool) {
	for i, f := range r.Fields {
		if f.Name == name {
			return f, i, true
		}
	}
	return Field{}, -1, false
}

// BaseScalar returns the scalar underlying t: the scalar itself or a domain's
// base. Nullable wrappers are looked through.
func BaseScalar(t Type) (*Scalar, bool) {
	t, _ = Unwrap(t)
	switch x := t.(type) {
	case *Scalar:
		return x, true
	case *Domain:
		return x.Base, true
	}
	return nil, false
}

// IsScalarLike reports whether t is a single value: a scalar, domain, enum or
// AnyScalar, possibly nullable.
func IsScalarLike(t Type) bool {
	t, _ = Unwrap(t)
	switch t.(type) {
	case *Scalar, *Domain, *Enum, anyScalar:
		return true
	}
	return false
}

// Equal reports structural equality. Scalar, domain and enum names compare
// schema-qualification-insensitively.
func Equal(a, b Type) bool {
	switch x := a.(type) {
	case *Scalar:
		y, ok := b.(*Scalar)
		return ok && SameName(x.Name, y.Name)
	case *Domain:
		y, ok := b.(*Domain)
		return ok && SameName(x.Name, y.Name)
	case *Enum:
		y, ok := b.(*Enum)
		return ok && SameName(x.Name, y.Name)
	case *Array:
		y, ok := b.(*Array)
		return ok && Equal(x.Elem, y.Elem)
	case *Nullable:
		y, ok := b.(*Nullable)
		return ok && Equal(x.Inner, y.Inner)
	case *Record:
		y, ok := b.(*Record)
		if !ok || len(x.Fields) != len(y.Fields) {
			return false
		}
		for i := range x.Fields {
			if x.Fields[i].Name != y.Fields[i].Name || !Equal(x.Fields[i].Type, y.Fields[i].Type) {
				return false
			}
		}
		return true
	case *Var:
		y, ok := b.(*Var)
		return ok && x.ID == y.ID
	case anyScalar, void:
		return a == b
	}
	return false
}
