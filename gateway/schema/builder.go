package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/graphql-go/graphql"
	"github.com/hashicorp/go-multierror"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/platform-mesh/graphql-module-gateway/common"
	"github.com/platform-mesh/graphql-module-gateway/gateway/schema/types"
)

const typeNameKey = "__typename"

// typeNamer lets resolved values of abstract types name their concrete type.
type typeNamer interface {
	TypeName() string
}

// shellBuilder turns a validated gqlparser schema into an executable schema
// without resolvers.
type shellBuilder struct {
	src           *ast.Schema
	registry      *types.Registry
	scalars       map[string]*graphql.Scalar
	typeResolvers map[string]graphql.ResolveTypeFn
	errs          *multierror.Error
}

func newShellBuilder(src *ast.Schema, scalars map[string]*graphql.Scalar, typeResolvers map[string]graphql.ResolveTypeFn) *shellBuilder {
	return &shellBuilder{
		src:           src,
		registry:      types.NewRegistry(),
		scalars:       scalars,
		typeResolvers: typeResolvers,
	}
}

func (b *shellBuilder) build() (graphql.Schema, error) {
	names := make([]string, 0, len(b.src.Types))
	for name, def := range b.src.Types {
		if def.BuiltIn {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	// every named type exists before any field thunk runs
	for _, name := range names {
		b.declare(b.src.Types[name])
	}

	cfg := graphql.SchemaConfig{
		Query:        b.rootObject(b.src.Query),
		Mutation:     b.rootObject(b.src.Mutation),
		Subscription: b.rootObject(b.src.Subscription),
		Directives:   append([]*graphql.Directive{}, graphql.SpecifiedDirectives...),
	}
	for _, name := range names {
		cfg.Types = append(cfg.Types, b.registry.Get(name))
	}
	cfg.Directives = append(cfg.Directives, b.directives()...)

	if err := b.errs.ErrorOrNil(); err != nil {
		return graphql.Schema{}, err
	}

	s, err := graphql.NewSchema(cfg)
	if err != nil {
		return graphql.Schema{}, err
	}
	// thunks report unknown references while the schema is assembled
	if err := b.errs.ErrorOrNil(); err != nil {
		return graphql.Schema{}, err
	}
	return s, nil
}

func (b *shellBuilder) rootObject(def *ast.Definition) *graphql.Object {
	if def == nil {
		return nil
	}
	return b.registry.Object(def.Name)
}

func (b *shellBuilder) declare(def *ast.Definition) {
	switch def.Kind {
	case ast.Scalar:
		if s, ok := b.scalars[def.Name]; ok {
			b.registry.Register(s)
			return
		}
		b.registry.Register(passthroughScalar(def.Name, def.Description))

	case ast.Enum:
		values := graphql.EnumValueConfigMap{}
		for _, v := range def.EnumValues {
			values[v.Name] = &graphql.EnumValueConfig{
				Value:             v.Name,
				Description:       v.Description,
				DeprecationReason: deprecationReason(v.Directives),
			}
		}
		b.registry.Register(graphql.NewEnum(graphql.EnumConfig{
			Name:        def.Name,
			Description: def.Description,
			Values:      values,
		}))

	case ast.Object:
		b.registry.Register(graphql.NewObject(graphql.ObjectConfig{
			Name:        def.Name,
			Description: def.Description,
			Fields:      graphql.FieldsThunk(func() graphql.Fields { return b.fields(def) }),
			Interfaces: graphql.InterfacesThunk(func() []*graphql.Interface {
				out := make([]*graphql.Interface, 0, len(def.Interfaces))
				for _, name := range def.Interfaces {
					if iface := b.registry.Interface(name); iface != nil {
						out = append(out, iface)
					} else {
						b.fail(fmt.Errorf("type %s implements unknown interface %s", def.Name, name))
					}
				}
				return out
			}),
		}))

	case ast.Interface:
		b.registry.Register(graphql.NewInterface(graphql.InterfaceConfig{
			Name:        def.Name,
			Description: def.Description,
			Fields:      graphql.FieldsThunk(func() graphql.Fields { return b.fields(def) }),
			ResolveType: b.resolveType(def),
		}))

	case ast.Union:
		b.registry.Register(graphql.NewUnion(graphql.UnionConfig{
			Name:        def.Name,
			Description: def.Description,
			Types: graphql.UnionTypesThunk(func() []*graphql.Object {
				out := make([]*graphql.Object, 0, len(def.Types))
				for _, name := range def.Types {
					if obj := b.registry.Object(name); obj != nil {
						out = append(out, obj)
					} else {
						b.fail(fmt.Errorf("union %s references unknown type %s", def.Name, name))
					}
				}
				return out
			}),
			ResolveType: b.resolveType(def),
		}))

	case ast.InputObject:
		b.registry.Register(graphql.NewInputObject(graphql.InputObjectConfig{
			Name:        def.Name,
			Description: def.Description,
			Fields: graphql.InputObjectConfigFieldMapThunk(func() graphql.InputObjectConfigFieldMap {
				out := graphql.InputObjectConfigFieldMap{}
				for _, f := range def.Fields {
					in, err := b.inputType(f.Type)
					if err != nil {
						b.fail(fmt.Errorf("%s.%s: %w", def.Name, f.Name, err))
						continue
					}
					out[f.Name] = &graphql.InputObjectFieldConfig{
						Type:         in,
						Description:  f.Description,
						DefaultValue: defaultValue(f.DefaultValue),
					}
				}
				return out
			}),
		}))
	}
}

func (b *shellBuilder) fields(def *ast.Definition) graphql.Fields {
	out := graphql.Fields{}
	for _, f := range def.Fields {
		// the parser adds __schema and __type to Query; graphql-go adds its own
		if strings.HasPrefix(f.Name, common.IntrospectionPrefix) {
			continue
		}
		t, err := b.outputType(f.Type)
		if err != nil {
			b.fail(fmt.Errorf("%s.%s: %w", def.Name, f.Name, err))
			continue
		}
		field := &graphql.Field{
			Name:              f.Name,
			Type:              t,
			Description:       f.Description,
			DeprecationReason: deprecationReason(f.Directives),
		}
		if len(f.Arguments) > 0 {
			field.Args = graphql.FieldConfigArgument{}
			for _, arg := range f.Arguments {
				in, err := b.inputType(arg.Type)
				if err != nil {
					b.fail(fmt.Errorf("%s.%s(%s): %w", def.Name, f.Name, arg.Name, err))
					continue
				}
				field.Args[arg.Name] = &graphql.ArgumentConfig{
					Type:         in,
					Description:  arg.Description,
					DefaultValue: defaultValue(arg.DefaultValue),
				}
			}
		}
		out[f.Name] = field
	}
	return out
}

func (b *shellBuilder) outputType(t *ast.Type) (graphql.Output, error) {
	var out graphql.Output
	if t.Elem != nil {
		elem, err := b.outputType(t.Elem)
		if err != nil {
			return nil, err
		}
		out = graphql.NewList(elem)
	} else {
		named, ok := b.registry.Output(t.NamedType)
		if !ok {
			return nil, fmt.Errorf("unknown output type %s", t.NamedType)
		}
		out = named
	}
	if t.NonNull {
		return graphql.NewNonNull(out), nil
	}
	return out, nil
}

func (b *shellBuilder) inputType(t *ast.Type) (graphql.Input, error) {
	var in graphql.Input
	if t.Elem != nil {
		elem, err := b.inputType(t.Elem)
		if err != nil {
			return nil, err
		}
		in = graphql.NewList(elem)
	} else {
		named, ok := b.registry.Input(t.NamedType)
		if !ok {
			return nil, fmt.Errorf("unknown input type %s", t.NamedType)
		}
		in = named
	}
	if t.NonNull {
		return graphql.NewNonNull(in), nil
	}
	return in, nil
}

// resolveType picks the concrete object for a value of an interface or union.
// Explicit type resolvers win; otherwise the value names its type through a
// "__typename" key or a TypeName method.
func (b *shellBuilder) resolveType(def *ast.Definition) graphql.ResolveTypeFn {
	if fn, ok := b.typeResolvers[def.Name]; ok && fn != nil {
		return fn
	}
	return func(p graphql.ResolveTypeParams) *graphql.Object {
		var name string
		switch v := p.Value.(type) {
		case map[string]interface{}:
			name, _ = v[typeNameKey].(string)
		case typeNamer:
			name = v.TypeName()
		}
		if name == "" {
			return nil
		}
		return b.registry.Object(name)
	}
}

func (b *shellBuilder) directives() []*graphql.Directive {
	names := make([]string, 0, len(b.src.Directives))
	for name, d := range b.src.Directives {
		if d.Position != nil && d.Position.Src != nil && d.Position.Src.BuiltIn {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]*graphql.Directive, 0, len(names))
	for _, name := range names {
		d := b.src.Directives[name]
		cfg := graphql.DirectiveConfig{
			Name:        d.Name,
			Description: d.Description,
			Args:        graphql.FieldConfigArgument{},
		}
		for _, loc := range d.Locations {
			cfg.Locations = append(cfg.Locations, string(loc))
		}
		for _, arg := range d.Arguments {
			in, err := b.inputType(arg.Type)
			if err != nil {
				b.fail(fmt.Errorf("@%s(%s): %w", d.Name, arg.Name, err))
				continue
			}
			cfg.Args[arg.Name] = &graphql.ArgumentConfig{
				Type:         in,
				Description:  arg.Description,
				DefaultValue: defaultValue(arg.DefaultValue),
			}
		}
		out = append(out, graphql.NewDirective(cfg))
	}
	return out
}

func (b *shellBuilder) fail(err error) {
	b.errs = multierror.Append(b.errs, err)
}

func deprecationReason(directives ast.DirectiveList) string {
	d := directives.ForName("deprecated")
	if d == nil {
		return ""
	}
	if arg := d.Arguments.ForName("reason"); arg != nil && arg.Value != nil {
		return arg.Value.Raw
	}
	return graphql.DefaultDeprecationReason
}

func defaultValue(v *ast.Value) interface{} {
	if v == nil {
		return nil
	}
	out, err := v.Value(nil)
	if err != nil {
		return nil
	}
	return normalizeNumbers(out)
}

// normalizeNumbers converts parsed int64 literals to int, the type graphql-go coerces Int to.
func normalizeNumbers(v interface{}) interface{} {
	switch t := v.(type) {
	case int64:
		return int(t)
	case []interface{}:
		for i := range t {
			t[i] = normalizeNumbers(t[i])
		}
	case map[string]interface{}:
		for k := range t {
			t[k] = normalizeNumbers(t[k])
		}
	}
	return v
}
