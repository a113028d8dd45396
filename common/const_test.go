package common

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstants(t *testing.T) {
	t.Run("root_type_names", func(t *testing.T) {
		assert.Equal(t, "Query", QueryTypeName)
		assert.Equal(t, "Mutation", MutationTypeName)
		assert.Equal(t, "Subscription", SubscriptionTypeName)
	})

	t.Run("introspection_prefix", func(t *testing.T) {
		assert.True(t, strings.HasPrefix("__Schema", IntrospectionPrefix))
		assert.False(t, strings.HasPrefix("_Entity", IntrospectionPrefix))
	})
}

func TestSchemaFileExtensions(t *testing.T) {
	for _, ext := range strings.Split(SchemaFileExtensions, ",") {
		assert.True(t, strings.HasPrefix(ext, "."))
		assert.NotContains(t, ext, " ")
	}
}
