// Package services holds the functions feature modules export to back schema fields.
package services

import (
	"context"
	"sort"
	"sync"

	"github.com/graphql-go/graphql"

	"github.com/platform-mesh/graphql-module-gateway/common"
	"github.com/platform-mesh/graphql-module-gateway/common/logger"
)

// Env is what a service function sees of the resolver call besides its arguments.
type Env struct {
	Root    any
	Context context.Context
	Info    graphql.ResolveInfo
}

// Func is a service function backing one field.
type Func func(args map[string]any, env Env) (any, error)

// Namespace maps function names to functions for one type.
type Namespace map[string]Func

// Module is the export of one service module. Root functions serve Query and
// Mutation fields, Types[T] serves the fields of object type T.
type Module struct {
	Name  string
	Root  Namespace
	Types map[string]Namespace
}

// Registry is the merged view of all registered service modules:
// type name to function name to function.
type Registry struct {
	mu    sync.RWMutex
	log   *logger.Logger
	root  Namespace
	types map[string]Namespace
	owner map[string]string
}

func NewRegistry(log *logger.Logger) *Registry {
	if log == nil {
		log = logger.NewNop()
	}
	return &Registry{
		log:   log,
		root:  Namespace{},
		types: map[string]Namespace{},
		owner: map[string]string{},
	}
}

// rootNamespace is the internal key of the top-level namespace.
const rootNamespace = ""

// Register adds fn under typeName.fieldName. Registering an existing key replaces
// the previous function and logs a warning, so the last registration wins.
// An empty typeName, Query and Mutation all address the top-level namespace.
func (r *Registry) Register(module, typeName, fieldName string, fn Func) {
	if fn == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ns := r.namespaceFor(typeName)
	key := qualified(typeName, fieldName)
	if _, exists := ns[fieldName]; exists {
		r.log.Warn().
			Str("type", displayType(typeName)).
			Str("function", fieldName).
			Str("previous", r.owner[key]).
			Str("module", module).
			Msg("service function registered twice, last registration wins")
	}
	ns[fieldName] = fn
	r.owner[key] = module
}

// RegisterModule registers every function exported by m. Types are visited in
// name order so collisions inside one module resolve deterministically.
func (r *Registry) RegisterModule(m Module) {
	for _, name := range sortedKeys(m.Root) {
		r.Register(m.Name, rootNamespace, name, m.Root[name])
	}

	typeNames := make([]string, 0, len(m.Types))
	for t := range m.Types {
		typeNames = append(typeNames, t)
	}
	sort.Strings(typeNames)

	for _, t := range typeNames {
		for _, name := range sortedKeys(m.Types[t]) {
			r.Register(m.Name, t, name, m.Types[t][name])
		}
	}
}

// Root returns a copy of the top-level namespace.
func (r *Registry) Root() Namespace {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return copyNamespace(r.root)
}

// Namespace returns a copy of the functions registered for typeName, or nil.
func (r *Registry) Namespace(typeName string) Namespace {
	if isRoot(typeName) {
		return r.Root()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	ns, ok := r.types[typeName]
	if !ok {
		return nil
	}
	return copyNamespace(ns)
}

// Owner returns the module that registered typeName.fieldName.
func (r *Registry) Owner(typeName, fieldName string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.owner[qualified(typeName, fieldName)]
}

// TypeNames lists the non-root namespaces, sorted.
func (r *Registry) TypeNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.types))
	for t := range r.types {
		names = append(names, t)
	}
	sort.Strings(names)
	return names
}

// NewRegistryFromModules registers modules in order.
func NewRegistryFromModules(log *logger.Logger, modules ...Module) *Registry {
	r := NewRegistry(log)
	for _, m := range modules {
		r.RegisterModule(m)
	}
	return r
}

func (r *Registry) namespaceFor(typeName string) Namespace {
	if isRoot(typeName) {
		return r.root
	}
	ns, ok := r.types[typeName]
	if !ok {
		ns = Namespace{}
		r.types[typeName] = ns
	}
	return ns
}

func isRoot(typeName string) bool {
	return typeName == rootNamespace || typeName == common.QueryTypeName || typeName == common.MutationTypeName
}

func qualified(typeName, fieldName string) string {
	return displayType(typeName) + "." + fieldName
}

func displayType(typeName string) string {
	if isRoot(typeName) {
		return "<root>"
	}
	return typeName
}

func copyNamespace(ns Namespace) Namespace {
	out := make(Namespace, len(ns))
	for k, v := range ns {
		out[k] = v
	}
	return out
}

// Names lists the function names, sorted.
func (ns Namespace) Names() []string {
	return sortedKeys(ns)
}

func sortedKeys(ns Namespace) []string {
	keys := make([]string, 0, len(ns))
	for k := range ns {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
