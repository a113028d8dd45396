package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"
	jwxjwt "github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/platform-mesh/graphql-module-gateway/common/config"
)

const (
	TypeNone       = "none"
	TypeHS256      = "hs256"
	TypeJWKS       = "jwks"
	TypeUnverified = "unverified"
)

var (
	ErrInvalidToken    = errors.New("invalid token")
	ErrUnknownAuthType = errors.New("unknown auth type")
	ErrMissingSecret   = errors.New("auth-secret is required for hs256")
	ErrMissingJWKSURL  = errors.New("auth-jwks-url is required for jwks")
)

// Decoder turns a raw bearer token into a decoded Token.
type Decoder interface {
	Decode(ctx context.Context, raw string) (*Token, error)
}

// NewDecoder returns the decoder selected by cfg.Type, or nil for "none".
func NewDecoder(ctx context.Context, cfg config.Auth) (Decoder, error) {
	switch strings.ToLower(cfg.Type) {
	case "", TypeNone:
		return nil, nil
	case TypeHS256:
		if cfg.Secret == "" {
			return nil, ErrMissingSecret
		}
		return NewHMACDecoder([]byte(cfg.Secret), cfg.Namespace), nil
	case TypeJWKS:
		if cfg.JWKSURL == "" {
			return nil, ErrMissingJWKSURL
		}
		return NewJWKSDecoder(ctx, cfg.JWKSURL, cfg.Namespace)
	case TypeUnverified:
		return NewUnverifiedDecoder(cfg.Namespace), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownAuthType, cfg.Type)
}

type HMACDecoder struct {
	secret    []byte
	namespace string
	parser    *jwt.Parser
}

func NewHMACDecoder(secret []byte, namespace string) *HMACDecoder {
	return &HMACDecoder{
		secret:    secret,
		namespace: namespace,
		parser:    jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}
}

func (d *HMACDecoder) Decode(_ context.Context, raw string) (*Token, error) {
	claims := jwt.MapClaims{}
	_, err := d.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return d.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return &Token{Decoded: claims, Namespace: d.namespace}, nil
}

// JWKSDecoder verifies tokens against a remote key set that is cached and refreshed in the background.
type JWKSDecoder struct {
	cache     *jwk.Cache
	url       string
	namespace string
}

func NewJWKSDecoder(ctx context.Context, url, namespace string) (*JWKSDecoder, error) {
	cache := jwk.NewCache(ctx)
	if err := cache.Register(url, jwk.WithMinRefreshInterval(15*time.Minute)); err != nil {
		return nil, fmt.Errorf("failed to register jwks url: %w", err)
	}
	return &JWKSDecoder{cache: cache, url: url, namespace: namespace}, nil
}

func (d *JWKSDecoder) Decode(ctx context.Context, raw string) (*Token, error) {
	set, err := d.cache.Get(ctx, d.url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch jwks: %w", err)
	}

	tok, err := jwxjwt.Parse([]byte(raw), jwxjwt.WithKeySet(set), jwxjwt.WithValidate(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, err := tok.AsMap(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return &Token{Decoded: normalizeJWXClaims(claims), Namespace: d.namespace}, nil
}

// normalizeJWXClaims maps typed registered claims back to their wire form.
func normalizeJWXClaims(claims map[string]any) jwt.MapClaims {
	out := jwt.MapClaims{}
	for k, v := range claims {
		if t, ok := v.(time.Time); ok {
			out[k] = float64(t.Unix())
			continue
		}
		out[k] = v
	}
	return out
}

// UnverifiedDecoder only decodes the payload. Meant for local development.
type UnverifiedDecoder struct {
	namespace string
	parser    *jwt.Parser
}

func NewUnverifiedDecoder(namespace string) *UnverifiedDecoder {
	return &UnverifiedDecoder{namespace: namespace, parser: jwt.NewParser()}
}

func (d *UnverifiedDecoder) Decode(_ context.Context, raw string) (*Token, error) {
	claims := jwt.MapClaims{}
	if _, _, err := d.parser.ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return &Token{Decoded: claims, Namespace: d.namespace}, nil
}
