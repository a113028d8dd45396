package manager

import (
	"context"
	"net/http"

	"github.com/golang-jwt/jwt/v5"

	"github.com/platform-mesh/graphql-module-gateway/common/logger"
	"github.com/platform-mesh/graphql-module-gateway/gateway/globalcontext"
)

const (
	forwardedUserHeader = "X-Forwarded-User"

	// HTTPClientKey is the context value holding the client built by NewHTTPClient.
	HTTPClientKey = "httpClient"
)

type roundTripper struct {
	userClaim string
	log       *logger.Logger
	base      http.RoundTripper
}

// NewRoundTripper forwards the caller of the GraphQL request to upstream APIs that
// service functions call with the resolver context: its request id, its bearer token
// and, when userNameClaim is set, the value of that claim.
func NewRoundTripper(log *logger.Logger, base http.RoundTripper, userNameClaim string) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &roundTripper{
		log:       log,
		base:      base,
		userClaim: userNameClaim,
	}
}

// NewHTTPClient returns a client for service functions built on NewRoundTripper.
func NewHTTPClient(log *logger.Logger, userNameClaim string) *http.Client {
	return &http.Client{Transport: NewRoundTripper(log, nil, userNameClaim)}
}

// HTTPClient returns the client published under HTTPClientKey, or http.DefaultClient.
func HTTPClient(ctx context.Context) *http.Client {
	if v, ok := globalcontext.Lookup(ctx, HTTPClientKey); ok {
		if c, ok := v.(*http.Client); ok {
			return c
		}
	}
	return http.DefaultClient
}

func (rt *roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	requestID, _ := lookupString(ctx, globalcontext.RequestIDKey)
	token, _ := lookupString(ctx, globalcontext.TokenKey)

	if requestID == "" && token == "" {
		rt.log.Debug().Msg("No request context found")
		return rt.base.RoundTrip(req)
	}

	// a RoundTripper must not modify the caller's request
	req = req.Clone(ctx)
	if requestID != "" {
		req.Header.Set(requestIDHeader, requestID)
	}
	if token == "" {
		return rt.base.RoundTrip(req)
	}
	if req.Header.Get("Authorization") == "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	if rt.userClaim == "" {
		return rt.base.RoundTrip(req)
	}

	claims := jwt.MapClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(token, claims)
	if err != nil {
		rt.log.Error().Err(err).Msg("Failed to parse token")
		return rt.base.RoundTrip(req)
	}

	userName, ok := claims[rt.userClaim].(string)
	if !ok {
		rt.log.Debug().Msg("User claim is missing or not a string")
		return rt.base.RoundTrip(req)
	}

	req.Header.Set(forwardedUserHeader, userName)
	return rt.base.RoundTrip(req)
}

func lookupString(ctx context.Context, key string) (string, bool) {
	v, ok := globalcontext.Lookup(ctx, key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
