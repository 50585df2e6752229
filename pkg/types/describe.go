package types

// Descriptor is a serialization-friendly view of a Type for code generators.
// Nullability is folded into a flag instead of a wrapper node.
type Descriptor struct {
	Kind     string            `json:"kind" yaml:"kind"`
	Name     string            `json:"name,omitempty" yaml:"name,omitempty"`
	Nullable bool              `json:"nullable" yaml:"nullable"`
	OID      uint32            `json:"oid,omitempty" yaml:"oid,omitempty"`
	Base     *Descriptor       `json:"base,omitempty" yaml:"base,omitempty"`
	Elem     *Descriptor       `json:"elem,omitempty" yaml:"elem,omitempty"`
	Labels   []string          `json:"labels,omitempty" yaml:"labels,omitempty"`
	Fields   []FieldDescriptor `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// FieldDescriptor describes one record field.
type FieldDescriptor struct {
	Name string     `json:"name" yaml:"name"`
	Type Descriptor `json:"type" yaml:"type"`
}

// Describe converts t into a Descriptor.
func Describe(t Type) Descriptor {
	inner, nullable := Unwrap(t)
	d := Descriptor{Kind: inner.Kind().String(), Nullable: nullable}
	if oid, ok := OID(inner); ok {
		d.OID = oid
	}
	switch x := inner.(type) {
	case *Scalar:
		d.Name = x.Name
	case *Domain:
		d.Name = x.Name
		base := Describe(x.Base)
		d.Base = &base
	case *Enum:
		d.Name = x.Name
		d.Labels = x.Labels
	case *Array:
		elem := Describe(x.Elem)
		d.Elem = &elem
	case *Record:
		d.Fields = make([]FieldDescriptor, len(x.Fields))
		for i, f := range x.Fields {
			d.Fields[i] = FieldDescriptor{Name: f.Name, Type: Describe(f.Type)}
		}
	}
	return d
}
