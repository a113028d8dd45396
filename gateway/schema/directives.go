package schema

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/graphql-go/graphql"
	"github.com/hashicorp/go-multierror"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/platform-mesh/graphql-module-gateway/common/auth"
	"github.com/platform-mesh/graphql-module-gateway/gateway/globalcontext"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("missing required role")
)

// DirectiveVisitor rewrites a field that carries a schema directive.
type DirectiveVisitor interface {
	VisitFieldDefinition(field *graphql.FieldDefinition, typeName string, args map[string]interface{}) error
}

// DirectiveVisitorFunc adapts a function to DirectiveVisitor.
type DirectiveVisitorFunc func(field *graphql.FieldDefinition, typeName string, args map[string]interface{}) error

func (f DirectiveVisitorFunc) VisitFieldDefinition(field *graphql.FieldDefinition, typeName string, args map[string]interface{}) error {
	return f(field, typeName, args)
}

// builtinDirectives backs the directives declared by the root type definitions.
func builtinDirectives() map[string]DirectiveVisitor {
	return map[string]DirectiveVisitor{
		"requireAuth": DirectiveVisitorFunc(requireAuth),
		"skipAuth":    DirectiveVisitorFunc(func(*graphql.FieldDefinition, string, map[string]interface{}) error { return nil }),
	}
}

// requireAuth rejects callers without a current user or, when roles are given,
// without one of them.
func requireAuth(field *graphql.FieldDefinition, _ string, args map[string]interface{}) error {
	roles := stringList(args["roles"])
	check := func(ctx context.Context) error {
		user := CurrentUser(ctx)
		if user == nil {
			return ErrUnauthenticated
		}
		if !user.HasAnyRole(roles...) {
			return fmt.Errorf("%w: one of %v", ErrForbidden, roles)
		}
		return nil
	}

	field.Resolve = guard(field.Resolve, check)
	if field.Subscribe != nil {
		field.Subscribe = guard(field.Subscribe, check)
	}
	return nil
}

func guard(next graphql.FieldResolveFn, check func(context.Context) error) graphql.FieldResolveFn {
	if next == nil {
		next = graphql.DefaultResolveFn
	}
	return func(p graphql.ResolveParams) (interface{}, error) {
		if err := check(p.Context); err != nil {
			return nil, err
		}
		return next(p)
	}
}

// CurrentUser returns the authenticated caller of the request in ctx, or nil.
func CurrentUser(ctx context.Context) *auth.CurrentUser {
	v, ok := globalcontext.Lookup(ctx, globalcontext.CurrentUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*auth.CurrentUser)
	return user
}

// applyDirectives runs visitors over every field annotated with their directive,
// in type and field declaration order.
func applyDirectives(src *ast.Schema, exec graphql.Schema, visitors map[string]DirectiveVisitor) error {
	var errs *multierror.Error
	for _, typeName := range sortedTypeNames(src) {
		def := src.Types[typeName]
		if def.BuiltIn || (def.Kind != ast.Object && def.Kind != ast.Interface) {
			continue
		}

		var fields graphql.FieldDefinitionMap
		switch t := exec.Type(typeName).(type) {
		case *graphql.Object:
			fields = t.Fields()
		case *graphql.Interface:
			fields = t.Fields()
		}

		for _, f := range def.Fields {
			fd, ok := fields[f.Name]
			if !ok {
				continue
			}
			for _, d := range f.Directives {
				visitor, ok := visitors[d.Name]
				if !ok {
					continue
				}
				if err := visitor.VisitFieldDefinition(fd, typeName, d.ArgumentMap(nil)); err != nil {
					errs = multierror.Append(errs, fmt.Errorf("@%s on %s.%s: %w", d.Name, typeName, f.Name, err))
				}
			}
		}
	}
	return errs.ErrorOrNil()
}

// mergeDirectives layers deprecated over the built-ins and current over both.
func mergeDirectives(deprecated, current map[string]DirectiveVisitor) map[string]DirectiveVisitor {
	out := builtinDirectives()
	for _, m := range []map[string]DirectiveVisitor{deprecated, current} {
		for name, v := range m {
			if v != nil {
				out[name] = v
			}
		}
	}
	return out
}

func directiveNames(m map[string]DirectiveVisitor) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func stringList(v interface{}) []string {
	items, ok := v.([]interface{})
	if !ok {
		if s, ok := v.(string); ok && s != "" {
			return []string{s}
		}
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
