// Package types describes named schema types independently of the parser that produced them.
package types

import (
	"sort"

	"github.com/vektah/gqlparser/v2/ast"
)

// Descriptor is one named type of a schema.
type Descriptor interface {
	Name() string
	Kind() ast.DefinitionKind
	// HasFieldMap reports whether resolvers can be attached to fields of this type.
	HasFieldMap() bool
	// Fields lists the fields in declaration order, nil for types without a field map.
	Fields() []FieldDescriptor
}

type FieldDescriptor struct {
	Name      string
	Type      string
	Arguments []string
}

// Source exposes the named types of a schema.
type Source interface {
	Types() []Descriptor
}

type named struct {
	def *ast.Definition
}

func (n named) Name() string             { return n.def.Name }
func (n named) Kind() ast.DefinitionKind { return n.def.Kind }

type fieldMap struct {
	named
}

func (fieldMap) HasFieldMap() bool { return true }

func (f fieldMap) Fields() []FieldDescriptor {
	out := make([]FieldDescriptor, 0, len(f.def.Fields))
	for _, field := range f.def.Fields {
		fd := FieldDescriptor{Name: field.Name}
		if field.Type != nil {
			fd.Type = field.Type.String()
		}
		for _, arg := range field.Arguments {
			fd.Arguments = append(fd.Arguments, arg.Name)
		}
		out = append(out, fd)
	}
	return out
}

type leaf struct {
	named
}

func (leaf) HasFieldMap() bool          { return false }
func (leaf) Fields() []FieldDescriptor { return nil }

type (
	ObjectType      struct{ fieldMap }
	InterfaceType   struct{ fieldMap }
	UnionType       struct{ leaf }
	ScalarType      struct{ leaf }
	EnumType        struct{ leaf }
	InputObjectType struct{ leaf }
)

// Members lists the possible types of the union.
func (u UnionType) Members() []string {
	return append([]string{}, u.def.Types...)
}

// Values lists the enum values in declaration order.
func (e EnumType) Values() []string {
	out := make([]string, 0, len(e.def.EnumValues))
	for _, v := range e.def.EnumValues {
		out = append(out, v.Name)
	}
	return out
}

// InputFields lists the input fields. Input objects take no resolvers, so they carry
// their fields outside of the field map.
func (i InputObjectType) InputFields() []FieldDescriptor {
	return fieldMap(i.leaf).Fields()
}

// FromDefinition wraps a parsed definition in its descriptor variant.
func FromDefinition(def *ast.Definition) Descriptor {
	n := named{def: def}
	switch def.Kind {
	case ast.Object:
		return ObjectType{fieldMap{n}}
	case ast.Interface:
		return InterfaceType{fieldMap{n}}
	case ast.Union:
		return UnionType{leaf{n}}
	case ast.Enum:
		return EnumType{leaf{n}}
	case ast.InputObject:
		return InputObjectType{leaf{n}}
	default:
		return ScalarType{leaf{n}}
	}
}

// Schema adapts a validated gqlparser schema.
type Schema struct {
	schema *ast.Schema
}

func NewSchema(s *ast.Schema) *Schema {
	return &Schema{schema: s}
}

// Types returns every type of the schema, built-ins and introspection types included, sorted by name.
func (s *Schema) Types() []Descriptor {
	if s == nil || s.schema == nil {
		return nil
	}

	names := make([]string, 0, len(s.schema.Types))
	for name := range s.schema.Types {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Descriptor, 0, len(names))
	for _, name := range names {
		out = append(out, FromDefinition(s.schema.Types[name]))
	}
	return out
}

// Lookup returns the descriptor for name, or nil.
func (s *Schema) Lookup(name string) Descriptor {
	if s == nil || s.schema == nil {
		return nil
	}
	def, ok := s.schema.Types[name]
	if !ok {
		return nil
	}
	return FromDefinition(def)
}
