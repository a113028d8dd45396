// Package typedefs merges SDL fragments contributed by feature modules into one validated document.
package typedefs

import (
	"bytes"
	"errors"
	"fmt"
	"slices"

	"github.com/hashicorp/go-multierror"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/platform-mesh/graphql-module-gateway/common/logger"
)

var (
	ErrSchemaConflict = errors.New("schema conflict")
	ErrInvalidSchema  = errors.New("invalid schema")
)

// SchemaConflictError reports two incompatible declarations of the same name.
type SchemaConflictError struct {
	TypeName string
	Field    string
	Source   string
	Reason   string
}

func (e *SchemaConflictError) Error() string {
	target := e.TypeName
	if e.Field != "" {
		target += "." + e.Field
	}
	if e.Source != "" {
		return fmt.Sprintf("conflicting definition of %s in %s: %s", target, e.Source, e.Reason)
	}
	return fmt.Sprintf("conflicting definition of %s: %s", target, e.Reason)
}

func (e *SchemaConflictError) Is(target error) bool {
	return target == ErrSchemaConflict
}

// Source is one fragment. Document wins over SDL when both are set.
type Source struct {
	Name     string
	SDL      string
	Document *ast.SchemaDocument
}

type Options struct {
	// AllowConflicts keeps the first declaration instead of failing.
	AllowConflicts bool
	// OmitSchemaDefinition skips the generated schema { ... } block.
	OmitSchemaDefinition bool
	Log                  *logger.Logger
}

// Document is the merged result.
type Document struct {
	AST    *ast.SchemaDocument
	Schema *ast.Schema
	SDL    string
}

func (d *Document) String() string {
	return d.SDL
}

// Merge folds the root fragment and sources, in that order, into one document.
// Equal inputs produce byte-identical SDL.
func Merge(sources []Source, opts Options) (*Document, error) {
	log := opts.Log
	if log == nil {
		log = logger.NewNop()
	}

	m := &merger{
		opts:       opts,
		log:        log,
		types:      map[string]*ast.Definition{},
		directives: map[string]*ast.DirectiveDefinition{},
		operations: map[ast.Operation]string{},
	}

	all := append([]Source{{Name: RootName, SDL: RootTypeDefs}}, sources...)
	for _, src := range all {
		doc, err := parse(src)
		if err != nil {
			return nil, err
		}
		m.add(src.Name, doc)
	}

	if err := m.errs.ErrorOrNil(); err != nil {
		return nil, err
	}

	out := m.document()

	var buf bytes.Buffer
	formatter.NewFormatter(&buf).FormatSchemaDocument(out)
	sdl := buf.String()

	schema, err := gqlparser.LoadSchema(&ast.Source{Name: "merged", Input: sdl})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSchema, err)
	}

	return &Document{AST: out, Schema: schema, SDL: sdl}, nil
}

func parse(src Source) (*ast.SchemaDocument, error) {
	if src.Document != nil {
		return src.Document, nil
	}

	doc, err := parser.ParseSchema(&ast.Source{Name: src.Name, Input: src.SDL})
	if err != nil {
		return nil, fmt.Errorf("%w: fragment %s: %w", ErrInvalidSchema, src.Name, err)
	}
	return doc, nil
}

type merger struct {
	opts Options
	log  *logger.Logger
	errs *multierror.Error

	order      []string
	types      map[string]*ast.Definition
	dirOrder   []string
	directives map[string]*ast.DirectiveDefinition
	operations map[ast.Operation]string
}

func (m *merger) add(source string, doc *ast.SchemaDocument) {
	for _, d := range doc.Directives {
		m.addDirective(source, d)
	}
	for _, def := range doc.Definitions {
		m.addDefinition(source, def)
	}
	for _, ext := range doc.Extensions {
		m.addDefinition(source, ext)
	}
	for _, s := range append(slices.Clone(doc.Schema), doc.SchemaExtension...) {
		for _, op := range s.OperationTypes {
			m.addOperation(source, op)
		}
	}
}

func (m *merger) conflict(err *SchemaConflictError) {
	if m.opts.AllowConflicts {
		m.log.Warn().Str("type", err.TypeName).Str("field", err.Field).Str("fragment", err.Source).
			Str("reason", err.Reason).Msg("ignoring conflicting definition, keeping the first one")
		return
	}
	m.errs = multierror.Append(m.errs, err)
}

func (m *merger) addOperation(source string, op *ast.OperationTypeDefinition) {
	if existing, ok := m.operations[op.Operation]; ok && existing != op.Type {
		m.conflict(&SchemaConflictError{
			TypeName: "schema",
			Field:    string(op.Operation),
			Source:   source,
			Reason:   fmt.Sprintf("root type %s already set to %s", op.Type, existing),
		})
		return
	}
	m.operations[op.Operation] = op.Type
}

func (m *merger) addDirective(source string, d *ast.DirectiveDefinition) {
	existing, ok := m.directives[d.Name]
	if !ok {
		if d.Position == nil || d.Position.Src == nil {
			// the formatter reads the source of every directive definition
			c := *d
			c.Position = &ast.Position{Src: &ast.Source{Name: source}}
			d = &c
		}
		m.dirOrder = append(m.dirOrder, d.Name)
		m.directives[d.Name] = d
		return
	}

	if reason := directiveMismatch(existing, d); reason != "" {
		m.conflict(&SchemaConflictError{TypeName: "@" + d.Name, Source: source, Reason: reason})
	}
}

func directiveMismatch(a, b *ast.DirectiveDefinition) string {
	if !slices.Equal(a.Locations, b.Locations) {
		return "locations differ"
	}
	if a.IsRepeatable != b.IsRepeatable {
		return "repeatable differs"
	}
	if len(a.Arguments) != len(b.Arguments) {
		return "arguments differ"
	}
	for _, arg := range a.Arguments {
		other := b.Arguments.ForName(arg.Name)
		if other == nil || !sameType(arg.Type, other.Type) {
			return fmt.Sprintf("argument %s differs", arg.Name)
		}
	}
	return ""
}

func (m *merger) addDefinition(source string, def *ast.Definition) {
	existing, ok := m.types[def.Name]
	if !ok {
		m.order = append(m.order, def.Name)
		m.types[def.Name] = cloneDefinition(def)
		return
	}

	if existing.Kind != def.Kind {
		m.conflict(&SchemaConflictError{
			TypeName: def.Name,
			Source:   source,
			Reason:   fmt.Sprintf("declared as %s and %s", existing.Kind, def.Kind),
		})
		return
	}

	if existing.Description == "" {
		existing.Description = def.Description
	}

	for _, d := range def.Directives {
		if existing.Directives.ForName(d.Name) == nil {
			existing.Directives = append(existing.Directives, d)
		}
	}
	existing.Interfaces = appendUnique(existing.Interfaces, def.Interfaces...)
	existing.Types = appendUnique(existing.Types, def.Types...)

	for _, v := range def.EnumValues {
		if existing.EnumValues.ForName(v.Name) == nil {
			existing.EnumValues = append(existing.EnumValues, v)
		}
	}

	for _, f := range def.Fields {
		m.mergeField(source, existing, f)
	}
}

func (m *merger) mergeField(source string, owner *ast.Definition, f *ast.FieldDefinition) {
	existing := owner.Fields.ForName(f.Name)
	if existing == nil {
		owner.Fields = append(owner.Fields, cloneField(f))
		return
	}

	if !sameType(existing.Type, f.Type) {
		m.conflict(&SchemaConflictError{
			TypeName: owner.Name,
			Field:    f.Name,
			Source:   source,
			Reason:   fmt.Sprintf("type %s conflicts with %s", f.Type.String(), existing.Type.String()),
		})
		return
	}

	for _, arg := range f.Arguments {
		prev := existing.Arguments.ForName(arg.Name)
		if prev == nil {
			existing.Arguments = append(existing.Arguments, arg)
			continue
		}
		if !sameType(prev.Type, arg.Type) {
			m.conflict(&SchemaConflictError{
				TypeName: owner.Name,
				Field:    f.Name + "(" + arg.Name + ")",
				Source:   source,
				Reason:   fmt.Sprintf("argument type %s conflicts with %s", arg.Type.String(), prev.Type.String()),
			})
		}
	}

	if existing.Description == "" {
		existing.Description = f.Description
	}
	for _, d := range f.Directives {
		if existing.Directives.ForName(d.Name) == nil {
			existing.Directives = append(existing.Directives, d)
		}
	}
}

// document assembles the output in first-seen order.
func (m *merger) document() *ast.SchemaDocument {
	out := &ast.SchemaDocument{}

	for _, name := range m.dirOrder {
		out.Directives = append(out.Directives, m.directives[name])
	}

	for _, name := range m.order {
		def := m.types[name]
		if isEmptyRootStub(def) {
			continue
		}
		out.Definitions = append(out.Definitions, def)
	}

	if !m.opts.OmitSchemaDefinition {
		if s := m.schemaDefinition(out); s != nil {
			out.Schema = ast.SchemaDefinitionList{s}
		}
	}

	return out
}

func (m *merger) schemaDefinition(doc *ast.SchemaDocument) *ast.SchemaDefinition {
	defaults := []struct {
		op   ast.Operation
		name string
	}{
		{ast.Query, RootOperationTypes[0]},
		{ast.Mutation, RootOperationTypes[1]},
		{ast.Subscription, RootOperationTypes[2]},
	}

	s := &ast.SchemaDefinition{}
	for _, d := range defaults {
		name := d.name
		if declared, ok := m.operations[d.op]; ok {
			name = declared
		}
		if doc.Definitions.ForName(name) == nil {
			continue
		}
		s.OperationTypes = append(s.OperationTypes, &ast.OperationTypeDefinition{Operation: d.op, Type: name})
	}

	if len(s.OperationTypes) == 0 {
		return nil
	}
	return s
}

func isEmptyRootStub(def *ast.Definition) bool {
	return def.Kind == ast.Object && len(def.Fields) == 0 && slices.Contains(RootOperationTypes, def.Name)
}

// sameType compares two type references ignoring non-null wrappers.
func sameType(a, b *ast.Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.NamedType != b.NamedType {
		return false
	}
	if (a.Elem == nil) != (b.Elem == nil) {
		return false
	}
	if a.Elem != nil {
		return sameType(a.Elem, b.Elem)
	}
	return true
}

func cloneDefinition(def *ast.Definition) *ast.Definition {
	c := *def
	c.Directives = slices.Clone(def.Directives)
	c.Interfaces = slices.Clone(def.Interfaces)
	c.Types = slices.Clone(def.Types)
	c.EnumValues = slices.Clone(def.EnumValues)
	c.Fields = make(ast.FieldList, 0, len(def.Fields))
	for _, f := range def.Fields {
		c.Fields = append(c.Fields, cloneField(f))
	}
	return &c
}

func cloneField(f *ast.FieldDefinition) *ast.FieldDefinition {
	c := *f
	c.Arguments = slices.Clone(f.Arguments)
	c.Directives = slices.Clone(f.Directives)
	return &c
}

func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		if !slices.Contains(dst, v) {
			dst = append(dst, v)
		}
	}
	return dst
}
