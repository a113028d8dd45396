package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/platform-mesh/graphql-module-gateway/common/config"
	"github.com/platform-mesh/graphql-module-gateway/common/logger"
)

var (
	appCfg config.Config
	v      *viper.Viper
	log    *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "graphql-module-gateway",
	Short: "GraphQL gateway serving one schema assembled from feature modules",
}

func init() {
	rootCmd.AddCommand(gatewayCmd)
	rootCmd.AddCommand(printCmd)

	v = config.NewViper()
	addFlags(rootCmd.PersistentFlags())
	if err := v.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		panic(err)
	}

	cobra.OnInitialize(func() {
		var err error
		appCfg, err = config.Load(v)
		if err != nil {
			panic("failed to load config: " + err.Error())
		}
		log, err = setupLogger(appCfg.Log)
		if err != nil {
			panic("failed to initialize logger: " + err.Error())
		}
	})
}

func addFlags(flags *pflag.FlagSet) {
	d := config.NewDefaultConfig()

	flags.String("log-level", d.Log.Level, "log level")
	flags.Bool("log-pretty", d.Log.Pretty, "human readable log output")
	flags.StringSlice("log-redact", nil, "additional dotted paths redacted from log records")

	flags.String("port", d.Gateway.Port, "port of the GraphQL endpoint")
	flags.String("schemas-dir", d.SchemasDir, "directory of additional SDL fragments")
	flags.Bool("watch-schemas", d.WatchSchemas, "reassemble the schema when the schemas directory changes")
	flags.Bool("local-development", d.LocalDevelopment, "accept requests without a bearer token")
	flags.Bool("safe-global-context", d.SafeGlobalContext, "publish context contributions to the process-wide slot")

	flags.String("auth-type", d.Auth.Type, "token decoder: none, hs256, jwks or unverified")
	flags.String("auth-jwks-url", d.Auth.JWKSURL, "JWKS endpoint used by the jwks decoder")
	flags.String("auth-namespace", d.Auth.Namespace, "claim namespace of app_metadata")
	flags.String("auth-user-name-claim", d.Auth.UserNameClaim, "claim forwarded upstream as X-Forwarded-User")
}

func setupLogger(cfg config.Log) (*logger.Logger, error) {
	loggerCfg := logger.DefaultConfig()
	loggerCfg.Name = "graphqlGateway"
	loggerCfg.Level = cfg.Level
	loggerCfg.Pretty = cfg.Pretty
	loggerCfg.Redact = cfg.Redact
	return logger.New(loggerCfg)
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}
