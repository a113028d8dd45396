package manager

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/handler"
	"github.com/pkg/errors"

	"github.com/platform-mesh/graphql-module-gateway/common/auth"
	appConfig "github.com/platform-mesh/graphql-module-gateway/common/config"
	"github.com/platform-mesh/graphql-module-gateway/common/logger"
	"github.com/platform-mesh/graphql-module-gateway/common/watcher"
	"github.com/platform-mesh/graphql-module-gateway/gateway/globalcontext"
	"github.com/platform-mesh/graphql-module-gateway/gateway/schema"
	"github.com/platform-mesh/graphql-module-gateway/gateway/services"
)

const reloadDebounce = 200 * time.Millisecond

var ErrSchemaNotReady = errors.New("schema not assembled yet")

// Options are the compiled-in parts of the gateway.
type Options struct {
	Fragments     []schema.Fragment
	Services      []services.Module
	SchemaOptions schema.Options
	Contribution  globalcontext.Contribution
	// Decoder overrides the decoder built from the auth configuration.
	Decoder auth.Decoder
}

type Service struct {
	AppCfg appConfig.Config

	log            *logger.Logger
	opts           Options
	decoder        auth.Decoder
	mode           globalcontext.Mode
	contextHandler globalcontext.Handler

	mu      sync.RWMutex
	current *graphqlHandler
}

type graphqlHandler struct {
	unified *schema.UnifiedSchema
	handler http.Handler
}

// NewService assembles the schema once and fails when that is not possible.
func NewService(ctx context.Context, log *logger.Logger, appCfg appConfig.Config, opts Options) (*Service, error) {
	decoder := opts.Decoder
	if decoder == nil {
		var err error
		decoder, err = auth.NewDecoder(ctx, appCfg.Auth)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create token decoder")
		}
	}

	mode := globalcontext.ModeRequest
	if appCfg.SafeGlobalContext {
		mode = globalcontext.ModeGlobal
		log.Warn().Msg("global context slot enabled, concurrent requests will overwrite each other's context")
	}

	s := &Service{
		AppCfg:  appCfg,
		log:     log,
		opts:    opts,
		decoder: decoder,
		mode:    mode,
		contextHandler: globalcontext.NewHandler(opts.Contribution,
			globalcontext.WithMode(mode),
			globalcontext.WithLogger(log.ComponentLogger("context")),
		),
	}

	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Run watches the schema directory when configured and blocks until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	if !s.AppCfg.WatchSchemas || s.AppCfg.SchemasDir == "" {
		<-ctx.Done()
		return nil
	}

	w, err := watcher.NewSchemaDirWatcher(s, s.log.ComponentLogger("watcher"))
	if err != nil {
		return err
	}
	return w.Watch(ctx, s.AppCfg.SchemasDir, reloadDebounce)
}

// Reload reassembles the schema from the compiled-in fragments and the schema directory.
// The previous schema keeps serving when assembly fails.
func (s *Service) Reload() error {
	fragments := append([]schema.Fragment{}, s.opts.Fragments...)
	fromDir, err := schema.LoadDir(s.AppCfg.SchemasDir)
	if err != nil {
		return errors.Wrap(err, "failed to load schema directory")
	}
	fragments = append(fragments, fromDir...)

	unified, err := schema.Assemble(schema.Config{
		Fragments: fragments,
		Services:  s.opts.Services,
		Options:   s.schemaOptions(),
		Log:       s.log.ComponentLogger("schema"),
	})
	if err != nil {
		return err
	}

	h := s.createHandler(unified)

	s.mu.Lock()
	s.current = h
	s.mu.Unlock()

	s.log.Info().
		Str("endpoint", fmt.Sprintf("http://localhost:%s/graphql", s.AppCfg.Gateway.Port)).
		Int("fragments", len(fragments)).
		Msg("registered endpoint")
	return nil
}

func (s *Service) OnSchemaChanged(path string) {
	s.reload(path)
}

func (s *Service) OnSchemaDeleted(path string) {
	s.reload(path)
}

func (s *Service) reload(path string) {
	if err := s.Reload(); err != nil {
		s.log.Error().Err(err).Str("file", filepath.Base(path)).Msg("failed to reload schema, keeping the previous one")
	}
}

// Schema returns the schema currently served.
func (s *Service) Schema() (*schema.UnifiedSchema, error) {
	h := s.handler()
	if h == nil {
		return nil, ErrSchemaNotReady
	}
	return h.unified, nil
}

// Ready reports whether a schema is being served.
func (s *Service) Ready() bool {
	return s.handler() != nil
}

func (s *Service) handler() *graphqlHandler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Service) schemaOptions() schema.Options {
	opts := s.opts.SchemaOptions
	r := s.AppCfg.Resolvers
	opts.ResolverValidation.RequireResolversForArgs = opts.ResolverValidation.RequireResolversForArgs || r.RequireForArgs
	opts.ResolverValidation.RequireResolversForNonScalar = opts.ResolverValidation.RequireResolversForNonScalar || r.RequireForNonScalar
	opts.ResolverValidation.RequireResolversForAllFields = opts.ResolverValidation.RequireResolversForAllFields || r.RequireForAllFields
	opts.ResolverValidation.AllowResolversNotInSchema = opts.ResolverValidation.AllowResolversNotInSchema || r.AllowNotInSchema
	opts.InheritResolversFromInterfaces = opts.InheritResolversFromInterfaces || r.InheritResolversFromInterfaces
	return opts
}

func (s *Service) createHandler(unified *schema.UnifiedSchema) *graphqlHandler {
	exec := unified.Schema
	h := handler.New(&handler.Config{
		Schema:     &exec,
		Pretty:     s.AppCfg.Gateway.HandlerCfg.Pretty,
		Playground: s.AppCfg.Gateway.HandlerCfg.Playground,
		GraphiQL:   s.AppCfg.Gateway.HandlerCfg.GraphiQL,
	})
	return &graphqlHandler{
		unified: unified,
		handler: h,
	}
}

func (h *graphqlHandler) schema() *graphql.Schema {
	return &h.unified.Schema
}
