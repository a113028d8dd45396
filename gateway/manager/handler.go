package manager

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/graphql-go/graphql"

	"github.com/platform-mesh/graphql-module-gateway/common/auth"
	"github.com/platform-mesh/graphql-module-gateway/gateway/globalcontext"
)

const requestIDHeader = "X-Request-Id"

func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.handleCORS(w, r) {
		return
	}

	h := s.handler()
	if h == nil {
		http.Error(w, ErrSchemaNotReady.Error(), http.StatusServiceUnavailable)
		return
	}

	// the GraphiQL page itself needs no context
	if r.Method == http.MethodGet && r.URL.Query().Get("query") == "" {
		h.handler.ServeHTTP(w, r)
		return
	}

	token := getToken(r)
	user, ok := s.handleAuth(w, r, token)
	if !ok {
		return
	}

	r, ok = s.setContexts(w, r, token, user)
	if !ok {
		return
	}

	if strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		s.handleSubscription(w, r, h.schema())
	} else {
		h.handler.ServeHTTP(w, r)
	}
}

func (s *Service) handleCORS(w http.ResponseWriter, r *http.Request) bool {
	if s.AppCfg.Gateway.Cors.Enabled {
		w.Header().Set("Access-Control-Allow-Origin", s.AppCfg.Gateway.Cors.AllowedOrigins)
		w.Header().Set("Access-Control-Allow-Headers", s.AppCfg.Gateway.Cors.AllowedHeaders)
		// all graphql methods are cors safelisted, no allowed methods header needed

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return true
		}
	}
	return false
}

func getToken(r *http.Request) string {
	token := r.Header.Get("Authorization")
	token = strings.TrimPrefix(token, "Bearer ")
	token = strings.TrimPrefix(token, "bearer ")

	return token
}

// handleAuth decodes the bearer token into the current user. Anonymous requests pass
// unless a decoder is configured outside local development.
func (s *Service) handleAuth(w http.ResponseWriter, r *http.Request, token string) (*auth.CurrentUser, bool) {
	if s.decoder == nil {
		return nil, true
	}

	if token == "" {
		if s.AppCfg.LocalDevelopment {
			return nil, true
		}
		http.Error(w, "Authorization header is required", http.StatusUnauthorized)
		return nil, false
	}

	decoded, err := s.decoder.Decode(r.Context(), token)
	if err != nil {
		s.log.Debug().Err(err).Msg("rejected token")
		if errors.Is(err, auth.ErrInvalidToken) {
			http.Error(w, "Provided token is not valid", http.StatusUnauthorized)
		} else {
			http.Error(w, "error validating token", http.StatusInternalServerError)
		}
		return nil, false
	}

	return auth.NewCurrentUser(*decoded), true
}

// setContexts opens the request scope, resolves the context values and attaches them.
func (s *Service) setContexts(w http.ResponseWriter, r *http.Request, token string, user *auth.CurrentUser) (*http.Request, bool) {
	requestID := r.Header.Get(requestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set(requestIDHeader, requestID)

	transport := globalcontext.Values{
		globalcontext.RequestIDKey: requestID,
	}
	if token != "" {
		transport[globalcontext.TokenKey] = token
	}
	if user != nil {
		transport[globalcontext.CurrentUserKey] = user
	}

	ctx := globalcontext.WithScope(r.Context(), s.mode)
	values, err := s.contextHandler(ctx, globalcontext.Envelope{Context: transport, Request: r})
	if err != nil {
		s.log.Error().Err(err).Str("requestId", requestID).Msg("failed to resolve request context")
		http.Error(w, "failed to resolve request context", http.StatusInternalServerError)
		return nil, false
	}

	return r.WithContext(globalcontext.WithValues(ctx, values)), true
}

func (s *Service) handleSubscription(w http.ResponseWriter, r *http.Request, schema *graphql.Schema) {
	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	var params struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		http.Error(w, "Error parsing JSON request body", http.StatusBadRequest)
		return
	}

	flusher := http.NewResponseController(w)
	r.Body.Close()

	subscriptionParams := graphql.Params{
		Schema:         *schema,
		RequestString:  params.Query,
		VariableValues: params.Variables,
		OperationName:  params.OperationName,
		Context:        r.Context(),
	}

	subscriptionChannel := graphql.Subscribe(subscriptionParams)
	for res := range subscriptionChannel {
		if res == nil {
			continue
		}

		data, err := json.Marshal(res)
		if err != nil {
			s.log.Error().Err(err).Msg("Error marshalling subscription response")
			continue
		}

		fmt.Fprintf(w, "event: next\ndata: %s\n\n", data)
		flusher.Flush()
	}

	fmt.Fprint(w, "event: complete\n\n")
}
