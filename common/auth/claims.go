// Package auth extracts application claims from decoded bearer tokens.
package auth

import (
	"reflect"

	"github.com/golang-jwt/jwt/v5"
)

const appMetadataClaim = "app_metadata"

// Token is a decoded JWT together with the optional claim namespace used by the issuer.
type Token struct {
	Decoded   jwt.MapClaims
	Namespace string
}

type Claims struct {
	AppMetadata map[string]any `json:"appMetadata"`
	Roles       []string       `json:"roles"`
}

// ParseJWT returns the app metadata and roles carried by the token.
// Metadata is read from "<namespace>/app_metadata" when a namespace is set.
// Roles are taken from the first present of decoded.roles, appMetadata.roles and
// appMetadata.authorization.roles.
func ParseJWT(token Token) Claims {
	metadata := appMetadata(token)
	return Claims{
		AppMetadata: metadata,
		Roles:       roles(token, metadata),
	}
}

func appMetadata(token Token) map[string]any {
	claim := appMetadataClaim
	if token.Namespace != "" {
		claim = token.Namespace + "/" + appMetadataClaim
	}

	if m, ok := asMap(token.Decoded[claim]); ok {
		return m
	}
	return map[string]any{}
}

func roles(token Token, metadata map[string]any) []string {
	candidates := []any{token.Decoded["roles"], metadata["roles"]}
	if authz, ok := asMap(metadata["authorization"]); ok {
		candidates = append(candidates, authz["roles"])
	}

	for _, c := range candidates {
		if present(c) {
			return toStrings(c)
		}
	}
	return []string{}
}

// present follows the truthiness claims usually carry: nil, false, zero and ""
// are absent, everything else (an empty list included) is present.
func present(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	}
	return true
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case jwt.MapClaims:
		return m, true
	}
	return nil, false
}

func toStrings(v any) []string {
	switch t := v.(type) {
	case []string:
		return append([]string{}, t...)
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, r := range t {
			if s, ok := r.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []string{}
	}
	out := make([]string, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		if s, ok := rv.Index(i).Interface().(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// CurrentUser is what the transport publishes as "currentUser" in the resolver context.
type CurrentUser struct {
	Subject     string         `json:"sub,omitempty"`
	AppMetadata map[string]any `json:"appMetadata"`
	Roles       []string       `json:"roles"`
	Claims      jwt.MapClaims  `json:"claims"`
}

func NewCurrentUser(token Token) *CurrentUser {
	claims := ParseJWT(token)
	sub, _ := token.Decoded.GetSubject()
	return &CurrentUser{
		Subject:     sub,
		AppMetadata: claims.AppMetadata,
		Roles:       claims.Roles,
		Claims:      token.Decoded,
	}
}

func (u *CurrentUser) GetRoles() []string {
	if u == nil {
		return nil
	}
	return u.Roles
}

// HasAnyRole reports whether the user holds one of roles. With no roles given
// any authenticated user matches.
func (u *CurrentUser) HasAnyRole(roles ...string) bool {
	if u == nil {
		return false
	}
	if len(roles) == 0 {
		return true
	}
	for _, want := range roles {
		for _, have := range u.Roles {
			if want == have {
				return true
			}
		}
	}
	return false
}

// AsMap renders the user the way it is exposed through the JSON scalar.
func (u *CurrentUser) AsMap() map[string]any {
	if u == nil {
		return nil
	}
	return map[string]any{
		"sub":         u.Subject,
		"appMetadata": u.AppMetadata,
		"roles":       u.Roles,
		"claims":      map[string]any(u.Claims),
	}
}
