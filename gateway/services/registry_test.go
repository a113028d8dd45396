package services_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platform-mesh/graphql-module-gateway/common/logger"
	"github.com/platform-mesh/graphql-module-gateway/gateway/services"
)

func constant(v any) services.Func {
	return func(map[string]any, services.Env) (any, error) { return v, nil }
}

func call(t *testing.T, fn services.Func) any {
	t.Helper()
	require.NotNil(t, fn)
	v, err := fn(nil, services.Env{})
	require.NoError(t, err)
	return v
}

func TestRegistry_RootAndTypes(t *testing.T) {
	r := services.NewRegistryFromModules(nil, services.Module{
		Name: "posts",
		Root: services.Namespace{"posts": constant("all"), "createPost": constant("created")},
		Types: map[string]services.Namespace{
			"Post": {"author": constant("alice")},
		},
	})

	assert.Equal(t, []string{"createPost", "posts"}, r.Root().Names())
	assert.Equal(t, "all", call(t, r.Namespace("Query")["posts"]))
	assert.Equal(t, "created", call(t, r.Namespace("Mutation")["createPost"]))
	assert.Equal(t, "alice", call(t, r.Namespace("Post")["author"]))
	assert.Nil(t, r.Namespace("User"))
	assert.Equal(t, []string{"Post"}, r.TypeNames())
	assert.Equal(t, "posts", r.Owner("Post", "author"))
}

func TestRegistry_ReturnsCopies(t *testing.T) {
	r := services.NewRegistry(nil)
	r.Register("a", "Post", "title", constant("t"))

	ns := r.Namespace("Post")
	ns["title"] = nil
	delete(ns, "title")

	assert.Equal(t, "t", call(t, r.Namespace("Post")["title"]))
}

func TestRegistry_LastRegistrationWins(t *testing.T) {
	buf := &bytes.Buffer{}
	log, err := logger.New(logger.Config{Level: "warn", Output: buf, NoDefaultRedactions: true})
	require.NoError(t, err)

	r := services.NewRegistryFromModules(log,
		services.Module{Name: "first", Types: map[string]services.Namespace{"Post": {"title": constant("first")}}},
		services.Module{Name: "second", Types: map[string]services.Namespace{"Post": {"title": constant("second")}}},
	)

	assert.Equal(t, "second", call(t, r.Namespace("Post")["title"]))
	assert.Equal(t, "second", r.Owner("Post", "title"))
	assert.Contains(t, buf.String(), "last registration wins")
	assert.Contains(t, buf.String(), `"previous":"first"`)
}

func TestRegistry_NilFunctionIsIgnored(t *testing.T) {
	r := services.NewRegistry(nil)
	r.Register("a", "", "posts", nil)

	assert.Empty(t, r.Root())
}
