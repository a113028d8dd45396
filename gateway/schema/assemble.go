// Package schema assembles the executable schema from feature fragments and services.
package schema

import (
	"github.com/graphql-go/graphql"
	"github.com/pkg/errors"

	"github.com/platform-mesh/graphql-module-gateway/common/logger"
	"github.com/platform-mesh/graphql-module-gateway/gateway/resolver"
	"github.com/platform-mesh/graphql-module-gateway/gateway/schema/typedefs"
	"github.com/platform-mesh/graphql-module-gateway/gateway/schema/types"
	"github.com/platform-mesh/graphql-module-gateway/gateway/services"
)

const defaultVersion = "dev"

type Options struct {
	ResolverValidation             ResolverValidationOptions
	InheritResolversFromInterfaces bool
	// AllowConflicts keeps the first of two conflicting type declarations.
	AllowConflicts bool
	// Scalars implement custom scalars by name. Unimplemented scalars pass values through.
	Scalars map[string]*graphql.Scalar
	// TypeResolvers override the default type resolution of interfaces and unions.
	TypeResolvers map[string]graphql.ResolveTypeFn
	Directives    map[string]DirectiveVisitor
	// Version is reported by Query.runtime.
	Version string
}

type Config struct {
	// Fragments are merged after the root fragment in slice order.
	Fragments []Fragment
	Services  []services.Module
	Options   Options
	// Deprecated: use Options.Directives, which wins on conflicts.
	SchemaDirectives map[string]DirectiveVisitor
	Log              *logger.Logger
}

// UnifiedSchema is immutable once assembled and safe to share between requests.
type UnifiedSchema struct {
	Schema    graphql.Schema
	TypeDefs  *typedefs.Document
	Resolvers resolver.Map
	Services  *services.Registry

	explicit resolver.Map
}

// Origin reports who backs typeName.fieldName: "explicit", "service:<module>",
// or "" when the field runs on the default resolver.
func (u *UnifiedSchema) Origin(typeName, fieldName string) string {
	if u.explicit.Get(typeName, fieldName) != nil {
		return "explicit"
	}
	if u.Resolvers.Get(typeName, fieldName) == nil {
		return ""
	}
	if owner := u.Services.Owner(typeName, fieldName); owner != "" {
		return "service:" + owner
	}
	return "inherited"
}

// Assemble merges the type definitions, builds the executable shell, wires explicit
// and service resolvers into it and applies the schema directives.
func Assemble(cfg Config) (*UnifiedSchema, error) {
	log := cfg.Log
	if log == nil {
		log = logger.NewNop()
	}
	opts := cfg.Options

	sources := make([]typedefs.Source, 0, len(cfg.Fragments))
	for _, f := range cfg.Fragments {
		sources = append(sources, f.source())
	}
	doc, err := typedefs.Merge(sources, typedefs.Options{AllowConflicts: opts.AllowConflicts, Log: log})
	if err != nil {
		return nil, errors.Wrap(err, "failed to merge type definitions")
	}

	scalars := rootScalars()
	for name, s := range opts.Scalars {
		scalars[name] = s
	}
	exec, err := newShellBuilder(doc.Schema, scalars, opts.TypeResolvers).build()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build schema")
	}

	explicit := []resolver.Map{rootResolvers(opts.Version)}
	for _, f := range cfg.Fragments {
		explicit = append(explicit, f.Resolvers)
	}

	explicitMap := resolver.MergeMaps(explicit...)
	registry := services.NewRegistryFromModules(log, cfg.Services...)
	resolvers := resolver.MergeResolversWithServices(types.NewSchema(doc.Schema), explicitMap, registry)

	a := &attacher{
		src:        doc.Schema,
		exec:       exec,
		validation: opts.ResolverValidation,
		inherit:    opts.InheritResolversFromInterfaces,
	}
	resolvers, err = a.attach(resolvers)
	if err != nil {
		return nil, errors.Wrap(err, "failed to attach resolvers")
	}

	if len(cfg.SchemaDirectives) > 0 {
		log.Warn().Strs("directives", directiveNames(cfg.SchemaDirectives)).Msg("SchemaDirectives is deprecated, use Options.Directives")
	}
	if err := applyDirectives(doc.Schema, exec, mergeDirectives(cfg.SchemaDirectives, opts.Directives)); err != nil {
		return nil, errors.Wrap(err, "failed to apply schema directives")
	}

	log.Info().
		Int("fragments", len(cfg.Fragments)).
		Int("services", len(cfg.Services)).
		Int("types", len(doc.Schema.Types)).
		Msg("schema assembled")

	return &UnifiedSchema{
		Schema:    exec,
		TypeDefs:  doc,
		Resolvers: resolvers,
		Services:  registry,
		explicit:  explicitMap,
	}, nil
}

// rootResolvers back the fields of the root type definitions.
func rootResolvers(version string) resolver.Map {
	if version == "" {
		version = defaultVersion
	}
	return resolver.Map{
		"Query": {
			"runtime": func(graphql.ResolveParams) (interface{}, error) {
				return map[string]interface{}{"version": version}, nil
			},
		},
		"Runtime": {
			"currentUser": func(p graphql.ResolveParams) (interface{}, error) {
				user := CurrentUser(p.Context)
				if user == nil {
					return nil, nil
				}
				return user.AsMap(), nil
			},
		},
	}
}
