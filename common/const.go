package common

import "time"

const (
	QueryTypeName        = "Query"
	MutationTypeName     = "Mutation"
	SubscriptionTypeName = "Subscription"

	// IntrospectionPrefix marks reserved introspection type names.
	IntrospectionPrefix = "__"

	// SchemaFileExtensions lists the file suffixes loaded as SDL fragments.
	SchemaFileExtensions = ".graphql,.graphqls,.gql"

	// Timeout constants for different test scenarios
	ShortTimeout = 100 * time.Millisecond // Short timeout for quick operations
	LongTimeout  = 2 * time.Second        // Longer timeout for file system operations
)
