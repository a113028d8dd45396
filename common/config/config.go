package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Log       Log       `mapstructure:",squash"`
	Gateway   Gateway   `mapstructure:",squash"`
	Auth      Auth      `mapstructure:",squash"`
	Resolvers Resolvers `mapstructure:",squash"`

	// SchemasDir holds SDL-only fragments merged next to the compiled-in feature modules.
	SchemasDir   string `mapstructure:"schemas-dir"`
	WatchSchemas bool   `mapstructure:"watch-schemas"`
	// SafeGlobalContext switches the context slot to the process-wide global slot.
	// Only safe when the host runs one request per process at a time.
	SafeGlobalContext bool `mapstructure:"safe-global-context"`
	LocalDevelopment  bool `mapstructure:"local-development"`

	MetricsBindAddress string        `mapstructure:"metrics-bind-address"`
	HealthBindAddress  string        `mapstructure:"health-bind-address"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown-timeout"`
}

type Log struct {
	Level  string   `mapstructure:"log-level"`
	Pretty bool     `mapstructure:"log-pretty"`
	Redact []string `mapstructure:"log-redact"`
}

type Gateway struct {
	Port string `mapstructure:"port"`

	HandlerCfg HandlerCfg `mapstructure:",squash"`
	Cors       Cors       `mapstructure:",squash"`
}

type HandlerCfg struct {
	Pretty     bool `mapstructure:"gateway-handler-pretty"`
	Playground bool `mapstructure:"gateway-handler-playground"`
	GraphiQL   bool `mapstructure:"gateway-handler-graphiql"`
}

type Cors struct {
	Enabled        bool   `mapstructure:"cors-enabled"`
	AllowedOrigins string `mapstructure:"cors-allowed-origins"`
	AllowedHeaders string `mapstructure:"cors-allowed-headers"`
}

type Auth struct {
	// Type is one of none, hs256, jwks, unverified.
	Type      string `mapstructure:"auth-type"`
	Secret    string `mapstructure:"auth-secret"`
	JWKSURL   string `mapstructure:"auth-jwks-url"`
	Namespace string `mapstructure:"auth-namespace"`
	// UserNameClaim is forwarded upstream as X-Forwarded-User when set.
	UserNameClaim string `mapstructure:"auth-user-name-claim"`
}

type Resolvers struct {
	RequireForArgs                 bool `mapstructure:"resolvers-require-for-args"`
	RequireForNonScalar            bool `mapstructure:"resolvers-require-for-non-scalar"`
	RequireForAllFields            bool `mapstructure:"resolvers-require-for-all-fields"`
	AllowNotInSchema               bool `mapstructure:"resolvers-allow-not-in-schema"`
	InheritResolversFromInterfaces bool `mapstructure:"inherit-resolvers-from-interfaces"`
}

// NewDefaultConfig returns the configuration used when nothing is overridden.
func NewDefaultConfig() Config {
	return Config{
		Log: Log{
			Level: "info",
		},
		Gateway: Gateway{
			Port: "8080",
			HandlerCfg: HandlerCfg{
				Pretty:     true,
				Playground: false,
				GraphiQL:   true,
			},
			Cors: Cors{
				AllowedOrigins: "*",
				AllowedHeaders: "*",
			},
		},
		Auth: Auth{
			Type: "none",
		},
		MetricsBindAddress: ":9090",
		HealthBindAddress:  ":8081",
		ShutdownTimeout:    10 * time.Second,
	}
}

// SetDefaults registers every config key on v so env variables and flags can override them.
func SetDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("log-level", d.Log.Level)
	v.SetDefault("log-pretty", d.Log.Pretty)
	v.SetDefault("log-redact", []string{})

	v.SetDefault("port", d.Gateway.Port)
	v.SetDefault("gateway-handler-pretty", d.Gateway.HandlerCfg.Pretty)
	v.SetDefault("gateway-handler-playground", d.Gateway.HandlerCfg.Playground)
	v.SetDefault("gateway-handler-graphiql", d.Gateway.HandlerCfg.GraphiQL)
	v.SetDefault("cors-enabled", d.Gateway.Cors.Enabled)
	v.SetDefault("cors-allowed-origins", d.Gateway.Cors.AllowedOrigins)
	v.SetDefault("cors-allowed-headers", d.Gateway.Cors.AllowedHeaders)

	v.SetDefault("auth-type", d.Auth.Type)
	v.SetDefault("auth-secret", d.Auth.Secret)
	v.SetDefault("auth-jwks-url", d.Auth.JWKSURL)
	v.SetDefault("auth-namespace", d.Auth.Namespace)
	v.SetDefault("auth-user-name-claim", d.Auth.UserNameClaim)

	v.SetDefault("resolvers-require-for-args", d.Resolvers.RequireForArgs)
	v.SetDefault("resolvers-require-for-non-scalar", d.Resolvers.RequireForNonScalar)
	v.SetDefault("resolvers-require-for-all-fields", d.Resolvers.RequireForAllFields)
	v.SetDefault("resolvers-allow-not-in-schema", d.Resolvers.AllowNotInSchema)
	v.SetDefault("inherit-resolvers-from-interfaces", d.Resolvers.InheritResolversFromInterfaces)

	v.SetDefault("schemas-dir", d.SchemasDir)
	v.SetDefault("watch-schemas", d.WatchSchemas)
	v.SetDefault("safe-global-context", d.SafeGlobalContext)
	v.SetDefault("local-development", d.LocalDevelopment)

	v.SetDefault("metrics-bind-address", d.MetricsBindAddress)
	v.SetDefault("health-bind-address", d.HealthBindAddress)
	v.SetDefault("shutdown-timeout", d.ShutdownTimeout)
}

// NewViper returns a viper instance with defaults registered and
// environment lookups enabled (log-level is read from LOG_LEVEL).
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// Load decodes the current viper state into a Config.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
