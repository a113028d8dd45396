package types_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/platform-mesh/graphql-module-gateway/gateway/schema/types"
)

const testSDL = `
scalar JSON
interface Node { id: ID! }
type Post implements Node { id: ID! title(upper: Boolean, prefix: String): String }
union Result = Post
enum Status { DRAFT PUBLISHED }
input PostInput { title: String }
type Query { post(id: ID!): Post }
`

func loadSchema(t *testing.T) *types.Schema {
	t.Helper()
	s, err := gqlparser.LoadSchema(&ast.Source{Name: "test", Input: testSDL})
	require.NoError(t, err)
	return types.NewSchema(s)
}

func TestFromDefinition(t *testing.T) {
	s := loadSchema(t)

	tests := []struct {
		name        string
		kind        ast.DefinitionKind
		hasFieldMap bool
		fields      []string
	}{
		{name: "Post", kind: ast.Object, hasFieldMap: true, fields: []string{"id", "title"}},
		{name: "Node", kind: ast.Interface, hasFieldMap: true, fields: []string{"id"}},
		{name: "Result", kind: ast.Union},
		{name: "Status", kind: ast.Enum},
		{name: "PostInput", kind: ast.InputObject},
		{name: "JSON", kind: ast.Scalar},
		{name: "String", kind: ast.Scalar},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := s.Lookup(tt.name)
			require.NotNil(t, d)
			assert.Equal(t, tt.name, d.Name())
			assert.Equal(t, tt.kind, d.Kind())
			assert.Equal(t, tt.hasFieldMap, d.HasFieldMap())

			var names []string
			for _, f := range d.Fields() {
				names = append(names, f.Name)
			}
			assert.Equal(t, tt.fields, names)
		})
	}
}

func TestFieldDescriptor(t *testing.T) {
	post := loadSchema(t).Lookup("Post")
	require.NotNil(t, post)

	fields := post.Fields()
	require.Len(t, fields, 2)
	assert.Equal(t, types.FieldDescriptor{Name: "id", Type: "ID!"}, fields[0])
	assert.Equal(t, types.FieldDescriptor{Name: "title", Type: "String", Arguments: []string{"upper", "prefix"}}, fields[1])
}

func TestVariantAccessors(t *testing.T) {
	s := loadSchema(t)

	union, ok := s.Lookup("Result").(types.UnionType)
	require.True(t, ok)
	assert.Equal(t, []string{"Post"}, union.Members())

	enum, ok := s.Lookup("Status").(types.EnumType)
	require.True(t, ok)
	assert.Equal(t, []string{"DRAFT", "PUBLISHED"}, enum.Values())

	input, ok := s.Lookup("PostInput").(types.InputObjectType)
	require.True(t, ok)
	require.Len(t, input.InputFields(), 1)
	assert.Equal(t, "title", input.InputFields()[0].Name)
}

func TestSchema_Types(t *testing.T) {
	s := loadSchema(t)

	all := s.Types()
	require.NotEmpty(t, all)

	var names []string
	for _, d := range all {
		names = append(names, d.Name())
	}
	assert.IsIncreasing(t, names)
	assert.Contains(t, names, "Query")
	assert.Contains(t, names, "__Schema")

	var introspection int
	for _, n := range names {
		if strings.HasPrefix(n, "__") {
			introspection++
		}
	}
	assert.Positive(t, introspection)
}

func TestSchema_Nil(t *testing.T) {
	var s *types.Schema
	assert.Nil(t, s.Types())
	assert.Nil(t, s.Lookup("Query"))
	assert.Nil(t, loadSchema(t).Lookup("Missing"))
}
