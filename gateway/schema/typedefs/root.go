package typedefs

import "github.com/platform-mesh/graphql-module-gateway/common"

// RootName names the fragment every merge starts from.
const RootName = "root"

// RootTypeDefs holds the root operation stubs, the shared scalars and the auth directives.
// Feature fragments add their fields to Query, Mutation and Subscription.
const RootTypeDefs = `
scalar BigInt
scalar Date
scalar Time
scalar DateTime
scalar JSON
scalar JSONObject

directive @requireAuth(roles: [String]) on FIELD_DEFINITION
directive @skipAuth on FIELD_DEFINITION

type Runtime {
  version: String!
  currentUser: JSON
}

type Query {
  runtime: Runtime!
}

type Mutation

type Subscription
`

// RootOperationTypes are the object types dropped from the output when no fragment gave them fields.
var RootOperationTypes = []string{common.QueryTypeName, common.MutationTypeName, common.SubscriptionTypeName}
