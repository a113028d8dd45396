package types

import (
	"sort"
	"sync"

	"github.com/graphql-go/graphql"
)

// Registry holds the executable types built for a schema, keyed by type name.
type Registry struct {
	mu    sync.RWMutex
	types map[string]graphql.Type
}

func NewRegistry() *Registry {
	r := &Registry{types: make(map[string]graphql.Type)}
	for _, t := range []graphql.Type{graphql.String, graphql.Int, graphql.Float, graphql.Boolean, graphql.ID} {
		r.types[t.Name()] = t
	}
	return r
}

func (r *Registry) Register(t graphql.Type) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.types[t.Name()] = t
}

func (r *Registry) Get(name string) graphql.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.types[name]
}

// Output returns the named type if it may appear in output position.
func (r *Registry) Output(name string) (graphql.Output, bool) {
	out, ok := r.Get(name).(graphql.Output)
	if !ok {
		return nil, false
	}
	switch out.(type) {
	case *graphql.InputObject:
		return nil, false
	}
	return out, true
}

// Input returns the named type if it may appear in input position.
func (r *Registry) Input(name string) (graphql.Input, bool) {
	switch t := r.Get(name).(type) {
	case *graphql.Scalar:
		return t, true
	case *graphql.Enum:
		return t, true
	case *graphql.InputObject:
		return t, true
	}
	return nil, false
}

// Object returns the named object type, or nil.
func (r *Registry) Object(name string) *graphql.Object {
	obj, _ := r.Get(name).(*graphql.Object)
	return obj
}

// Interface returns the named interface type, or nil.
func (r *Registry) Interface(name string) *graphql.Interface {
	iface, _ := r.Get(name).(*graphql.Interface)
	return iface
}

// Names lists the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
