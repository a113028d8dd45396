package cmd

import (
	"github.com/platform-mesh/graphql-module-gateway/common/config"
	"github.com/platform-mesh/graphql-module-gateway/common/logger"
	"github.com/platform-mesh/graphql-module-gateway/features/posts"
	"github.com/platform-mesh/graphql-module-gateway/gateway/globalcontext"
	"github.com/platform-mesh/graphql-module-gateway/gateway/manager"
	"github.com/platform-mesh/graphql-module-gateway/gateway/schema"
	"github.com/platform-mesh/graphql-module-gateway/gateway/services"
)

// version is set at build time with -ldflags "-X .../cmd.version=...".
var version = "dev"

// compiledIn lists the feature modules linked into the binary.
func compiledIn(log *logger.Logger, cfg config.Config) manager.Options {
	store := posts.NewStore()

	return manager.Options{
		Fragments: []schema.Fragment{posts.Fragment()},
		Services:  []services.Module{posts.Module(store)},
		SchemaOptions: schema.Options{
			Version: version,
		},
		Contribution: globalcontext.Static{
			manager.HTTPClientKey: manager.NewHTTPClient(log.ComponentLogger("upstream"), cfg.Auth.UserNameClaim),
		},
	}
}
