// Package resolver wires resolver maps and fills their gaps from registered services.
package resolver

import (
	"sort"

	"github.com/graphql-go/graphql"
)

// FieldMap maps field names to resolvers for one type.
type FieldMap map[string]graphql.FieldResolveFn

// Map maps type names to their field resolvers.
type Map map[string]FieldMap

// MergeMaps deep-merges maps in order; for the same type and field the later map wins.
// Inputs are not modified.
func MergeMaps(maps ...Map) Map {
	out := Map{}
	for _, m := range maps {
		for typeName, fields := range m {
			if fields == nil {
				continue
			}
			merged, ok := out[typeName]
			if !ok {
				merged = FieldMap{}
				out[typeName] = merged
			}
			for field, fn := range fields {
				merged[field] = fn
			}
		}
	}
	return out
}

// TypeNames lists the types of m, sorted.
func (m Map) TypeNames() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the resolver for typeName.fieldName, or nil.
func (m Map) Get(typeName, fieldName string) graphql.FieldResolveFn {
	return m[typeName][fieldName]
}

// FieldNames lists the fields of f, sorted.
func (f FieldMap) FieldNames() []string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
