package typedefs_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/platform-mesh/graphql-module-gateway/gateway/schema/typedefs"
)

const postsSDL = `
type Post {
  id: ID!
  title: String
  author: User
}

type User {
  id: ID!
  name: String
}

type Query {
  posts(limit: Int): [Post!]!
  post(id: ID!): Post
}

type Mutation {
  createPost(title: String!): Post
}
`

const usersSDL = `
type User {
  id: ID!
  email: String
}

extend type Query {
  me: User
}

type Query {
  users: [User]
}
`

// fieldNames skips the introspection fields the validator adds to Query.
func fieldNames(def *ast.Definition) []string {
	names := make([]string, 0, len(def.Fields))
	for _, f := range def.Fields {
		if strings.HasPrefix(f.Name, "__") {
			continue
		}
		names = append(names, f.Name)
	}
	return names
}

func TestMerge_RootFragmentOnly(t *testing.T) {
	doc, err := typedefs.Merge(nil, typedefs.Options{})
	require.NoError(t, err)

	query := doc.Schema.Types["Query"]
	require.NotNil(t, query)
	assert.Equal(t, []string{"runtime"}, fieldNames(query))
	assert.NotNil(t, query.Fields.ForName("__schema"))
	assert.NotContains(t, doc.SDL, "__schema")
	assert.NotNil(t, doc.Schema.Types["Runtime"])
	assert.NotNil(t, doc.Schema.Directives["requireAuth"])
	assert.NotNil(t, doc.Schema.Directives["skipAuth"])

	for _, scalar := range []string{"BigInt", "Date", "Time", "DateTime", "JSON", "JSONObject"} {
		def := doc.Schema.Types[scalar]
		require.NotNil(t, def, scalar)
		assert.Equal(t, ast.Scalar, def.Kind)
	}

	// empty root stubs are dropped
	assert.Nil(t, doc.Schema.Mutation)
	assert.Nil(t, doc.Schema.Subscription)
	assert.NotContains(t, doc.SDL, "type Mutation")
	assert.Contains(t, doc.SDL, "schema {")
}

func TestMerge_FragmentsAreUnioned(t *testing.T) {
	doc, err := typedefs.Merge([]typedefs.Source{
		{Name: "posts", SDL: postsSDL},
		{Name: "users", SDL: usersSDL},
	}, typedefs.Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"runtime", "posts", "post", "users", "me"}, fieldNames(doc.Schema.Types["Query"]))
	assert.Equal(t, []string{"id", "name", "email"}, fieldNames(doc.Schema.Types["User"]))
	assert.Equal(t, []string{"createPost"}, fieldNames(doc.Schema.Mutation))
	assert.Nil(t, doc.Schema.Subscription)
	assert.Same(t, doc.Schema.Types["Query"], doc.Schema.Query)
}

func TestMerge_FragmentOrderIsPreserved(t *testing.T) {
	doc, err := typedefs.Merge([]typedefs.Source{
		{Name: "users", SDL: usersSDL},
		{Name: "posts", SDL: postsSDL},
	}, typedefs.Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"runtime", "users", "me", "posts", "post"}, fieldNames(doc.Schema.Types["Query"]))
	assert.Equal(t, []string{"id", "email", "name"}, fieldNames(doc.Schema.Types["User"]))
}

func TestMerge_Idempotent(t *testing.T) {
	sources := []typedefs.Source{
		{Name: "posts", SDL: postsSDL},
		{Name: "users", SDL: usersSDL},
	}

	first, err := typedefs.Merge(sources, typedefs.Options{})
	require.NoError(t, err)
	second, err := typedefs.Merge(sources, typedefs.Options{})
	require.NoError(t, err)

	assert.Equal(t, first.SDL, second.SDL)
	assert.Equal(t, first.String(), second.String())
}

func TestMerge_ReparsesToTheSameDocument(t *testing.T) {
	first, err := typedefs.Merge([]typedefs.Source{{Name: "posts", SDL: postsSDL}}, typedefs.Options{})
	require.NoError(t, err)

	second, err := typedefs.Merge([]typedefs.Source{{Name: "merged", SDL: first.SDL}}, typedefs.Options{})
	require.NoError(t, err)

	assert.Equal(t, first.SDL, second.SDL)
}

func TestMerge_PreParsedDocument(t *testing.T) {
	doc, err := parser.ParseSchema(&ast.Source{Name: "posts", Input: postsSDL})
	require.NoError(t, err)

	merged, err := typedefs.Merge([]typedefs.Source{{Name: "posts", Document: doc}}, typedefs.Options{})
	require.NoError(t, err)
	assert.NotNil(t, merged.Schema.Types["Post"])
}

func TestMerge_Conflicts(t *testing.T) {
	tests := []struct {
		name          string
		sdl           string
		expectedType  string
		expectedField string
	}{
		{
			name:          "field_type",
			sdl:           `type Post { title: Int }`,
			expectedType:  "Post",
			expectedField: "title",
		},
		{
			name:         "kind",
			sdl:          `interface Post { id: ID! }`,
			expectedType: "Post",
		},
		{
			name:          "argument_type",
			sdl:           `type Query { posts(limit: String): [Post!]! }`,
			expectedType:  "Query",
			expectedField: "posts(limit)",
		},
		{
			name:          "list_versus_single",
			sdl:           `type Query { post(id: ID!): [Post] }`,
			expectedType:  "Query",
			expectedField: "post",
		},
		{
			name:         "directive",
			sdl:          `directive @skipAuth on OBJECT`,
			expectedType: "@skipAuth",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := typedefs.Merge([]typedefs.Source{
				{Name: "posts", SDL: postsSDL},
				{Name: "broken", SDL: tt.sdl},
			}, typedefs.Options{})
			require.Error(t, err)
			assert.ErrorIs(t, err, typedefs.ErrSchemaConflict)

			var conflict *typedefs.SchemaConflictError
			require.True(t, errors.As(err, &conflict))
			assert.Equal(t, tt.expectedType, conflict.TypeName)
			assert.Equal(t, tt.expectedField, conflict.Field)
			assert.Equal(t, "broken", conflict.Source)
		})
	}
}

func TestMerge_NonNullDifferenceIsCompatible(t *testing.T) {
	doc, err := typedefs.Merge([]typedefs.Source{
		{Name: "posts", SDL: postsSDL},
		{Name: "more", SDL: `type Post { title: String! }`},
	}, typedefs.Options{})
	require.NoError(t, err)

	// first declaration is kept
	assert.Equal(t, "String", doc.Schema.Types["Post"].Fields.ForName("title").Type.String())
}

func TestMerge_ConflictsAreAggregated(t *testing.T) {
	_, err := typedefs.Merge([]typedefs.Source{
		{Name: "posts", SDL: postsSDL},
		{Name: "broken", SDL: `type Post { title: Int id: String }`},
	}, typedefs.Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Post.title")
	assert.Contains(t, err.Error(), "Post.id")
}

func TestMerge_AllowConflicts(t *testing.T) {
	doc, err := typedefs.Merge([]typedefs.Source{
		{Name: "posts", SDL: postsSDL},
		{Name: "broken", SDL: `type Post { title: Int }`},
	}, typedefs.Options{AllowConflicts: true})
	require.NoError(t, err)
	assert.Equal(t, "String", doc.Schema.Types["Post"].Fields.ForName("title").Type.String())
}

func TestMerge_ExtensionWithoutBase(t *testing.T) {
	doc, err := typedefs.Merge([]typedefs.Source{
		{Name: "comments", SDL: `extend type Comment { body: String } type Query { comments: [Comment] }`},
	}, typedefs.Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"body"}, fieldNames(doc.Schema.Types["Comment"]))
}

func TestMerge_UnionsEnumsAndInterfaces(t *testing.T) {
	doc, err := typedefs.Merge([]typedefs.Source{
		{Name: "a", SDL: `
interface Node { id: ID! }
type Post implements Node { id: ID! }
union SearchResult = Post
enum Status { DRAFT }
type Query { search: [SearchResult] status: Status }`},
		{Name: "b", SDL: `
type Page implements Node { id: ID! }
union SearchResult = Page | Post
enum Status { PUBLISHED DRAFT }`},
	}, typedefs.Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"Post", "Page"}, doc.Schema.Types["SearchResult"].Types)
	status := doc.Schema.Types["Status"]
	require.Len(t, status.EnumValues, 2)
	assert.Equal(t, "DRAFT", status.EnumValues[0].Name)
	assert.Equal(t, "PUBLISHED", status.EnumValues[1].Name)
}

func TestMerge_OmitSchemaDefinition(t *testing.T) {
	doc, err := typedefs.Merge(nil, typedefs.Options{OmitSchemaDefinition: true})
	require.NoError(t, err)
	assert.NotContains(t, doc.SDL, "schema {")
	assert.NotNil(t, doc.Schema.Query)
}

func TestMerge_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		sdl  string
	}{
		{name: "syntax", sdl: `type {`},
		{name: "unknown_type", sdl: `type Query { thing: Missing }`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := typedefs.Merge([]typedefs.Source{{Name: tt.name, SDL: tt.sdl}}, typedefs.Options{})
			assert.ErrorIs(t, err, typedefs.ErrInvalidSchema)
		})
	}
}
