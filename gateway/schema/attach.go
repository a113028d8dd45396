package schema

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/graphql-go/graphql"
	"github.com/hashicorp/go-multierror"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/platform-mesh/graphql-module-gateway/common"
	"github.com/platform-mesh/graphql-module-gateway/gateway/resolver"
)

var ErrResolverAttachment = errors.New("resolver attachment failed")

// ResolverAttachmentError reports a resolver map that does not fit the schema.
type ResolverAttachmentError struct {
	TypeName string
	Field    string
	Reason   string
}

func (e *ResolverAttachmentError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("resolver for type %s: %s", e.TypeName, e.Reason)
	}
	return fmt.Sprintf("resolver for %s.%s: %s", e.TypeName, e.Field, e.Reason)
}

func (e *ResolverAttachmentError) Is(target error) bool {
	return target == ErrResolverAttachment
}

// ResolverValidationOptions controls how strictly resolvers must match the schema.
type ResolverValidationOptions struct {
	RequireResolversForArgs      bool
	RequireResolversForNonScalar bool
	RequireResolversForAllFields bool
	// AllowResolversNotInSchema accepts resolvers for types or fields the schema lacks.
	AllowResolversNotInSchema bool
}

type attacher struct {
	src        *ast.Schema
	exec       graphql.Schema
	validation ResolverValidationOptions
	inherit    bool
	errs       *multierror.Error
}

func (a *attacher) attach(resolvers resolver.Map) (resolver.Map, error) {
	if a.inherit {
		resolvers = a.inheritFromInterfaces(resolvers)
	}

	for _, typeName := range resolvers.TypeNames() {
		fields := resolvers[typeName]
		def := a.src.Types[typeName]
		if def == nil || def.BuiltIn {
			a.notInSchema(typeName, "", "type is not defined in the schema")
			continue
		}

		target := a.fieldDefinitions(typeName)
		if target == nil {
			a.fail(typeName, "", fmt.Sprintf("%s types cannot have field resolvers", strings.ToLower(string(def.Kind))))
			continue
		}

		for _, fieldName := range fields.FieldNames() {
			fd, ok := target[fieldName]
			if !ok {
				a.notInSchema(typeName, fieldName, "field is not defined in the schema")
				continue
			}
			if a.isSubscription(typeName) {
				fd.Subscribe = fields[fieldName]
				fd.Resolve = subscriptionPayload(fieldName)
				continue
			}
			fd.Resolve = fields[fieldName]
		}
	}

	a.requireResolvers(resolvers)

	if err := a.errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return resolvers, nil
}

// inheritFromInterfaces copies interface field resolvers to the implementing objects
// that have no resolver of their own for that field.
func (a *attacher) inheritFromInterfaces(resolvers resolver.Map) resolver.Map {
	out := resolver.MergeMaps(resolvers)
	for _, name := range sortedTypeNames(a.src) {
		def := a.src.Types[name]
		if def.Kind != ast.Object {
			continue
		}
		for _, iface := range def.Interfaces {
			for field, fn := range resolvers[iface] {
				if def.Fields.ForName(field) == nil || out.Get(name, field) != nil {
					continue
				}
				if out[name] == nil {
					out[name] = resolver.FieldMap{}
				}
				out[name][field] = fn
			}
		}
	}
	return out
}

func (a *attacher) requireResolvers(resolvers resolver.Map) {
	v := a.validation
	if !v.RequireResolversForArgs && !v.RequireResolversForNonScalar && !v.RequireResolversForAllFields {
		return
	}

	for _, name := range sortedTypeNames(a.src) {
		def := a.src.Types[name]
		if def.BuiltIn || def.Kind != ast.Object || strings.HasPrefix(name, common.IntrospectionPrefix) {
			continue
		}
		for _, f := range def.Fields {
			if strings.HasPrefix(f.Name, common.IntrospectionPrefix) || resolvers.Get(name, f.Name) != nil {
				continue
			}
			switch {
			case v.RequireResolversForAllFields:
				a.fail(name, f.Name, "resolver required for every field")
			case v.RequireResolversForArgs && len(f.Arguments) > 0:
				a.fail(name, f.Name, "resolver required for fields with arguments")
			case v.RequireResolversForNonScalar && !a.isLeaf(f.Type):
				a.fail(name, f.Name, "resolver required for non-scalar fields")
			}
		}
	}
}

func (a *attacher) fieldDefinitions(typeName string) graphql.FieldDefinitionMap {
	switch t := a.exec.Type(typeName).(type) {
	case *graphql.Object:
		return t.Fields()
	case *graphql.Interface:
		return t.Fields()
	}
	return nil
}

func (a *attacher) isSubscription(typeName string) bool {
	sub := a.exec.SubscriptionType()
	return sub != nil && sub.Name() == typeName
}

func (a *attacher) isLeaf(t *ast.Type) bool {
	for t.Elem != nil {
		t = t.Elem
	}
	def := a.src.Types[t.NamedType]
	return def != nil && (def.Kind == ast.Scalar || def.Kind == ast.Enum)
}

func (a *attacher) notInSchema(typeName, field, reason string) {
	if a.validation.AllowResolversNotInSchema {
		return
	}
	a.fail(typeName, field, reason)
}

func (a *attacher) fail(typeName, field, reason string) {
	a.errs = multierror.Append(a.errs, &ResolverAttachmentError{TypeName: typeName, Field: field, Reason: reason})
}

// subscriptionPayload resolves a subscription field from the event published by its
// Subscribe function: the field's own key when the event is a map holding it, else the event.
func subscriptionPayload(fieldName string) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		if m, ok := p.Source.(map[string]interface{}); ok {
			if v, found := m[fieldName]; found {
				return v, nil
			}
		}
		return p.Source, nil
	}
}

func sortedTypeNames(s *ast.Schema) []string {
	names := make([]string, 0, len(s.Types))
	for name := range s.Types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
