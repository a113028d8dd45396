package resolver

import (
	"strings"

	"github.com/platform-mesh/graphql-module-gateway/common"
	"github.com/platform-mesh/graphql-module-gateway/gateway/schema/types"
	"github.com/platform-mesh/graphql-module-gateway/gateway/services"
)

// MergeResolversWithServices returns explicit overlaid, type by type, with the service
// functions matching fields nobody resolved explicitly. Query and Mutation look in the
// registry root, every other type with a field map in its own namespace. Introspection
// types are skipped. Nil resolvers and empty types are not part of the result.
func MergeResolversWithServices(schema types.Source, explicit Map, registry *services.Registry) Map {
	out := Map{}
	for typeName, fields := range explicit {
		copyFields(out, typeName, fields)
	}

	for _, t := range schema.Types() {
		name := t.Name()
		if !t.HasFieldMap() || strings.HasPrefix(name, common.IntrospectionPrefix) {
			continue
		}

		var ns services.Namespace
		if registry != nil {
			ns = registry.Namespace(name)
		}
		if len(ns) == 0 {
			continue
		}

		fieldNames := make([]string, 0, len(t.Fields()))
		for _, f := range t.Fields() {
			fieldNames = append(fieldNames, f.Name)
		}

		copyFields(out, name, MapFieldsToService(fieldNames, explicit[name], ns))
	}

	return out
}

func copyFields(out Map, typeName string, fields FieldMap) {
	for field, fn := range fields {
		if fn == nil {
			continue
		}
		target, ok := out[typeName]
		if !ok {
			target = FieldMap{}
			out[typeName] = target
		}
		target[field] = fn
	}
}
