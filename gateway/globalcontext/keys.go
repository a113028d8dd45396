package globalcontext

import (
	"context"
)

// Well-known keys the transport puts into the transport context.
const (
	CurrentUserKey = "currentUser"
	RequestIDKey   = "requestId"
	TokenKey       = "token"
)

type valuesCtxKey struct{}

// WithValues attaches resolved values to ctx so resolvers receive them explicitly.
func WithValues(ctx context.Context, v Values) context.Context {
	return context.WithValue(ctx, valuesCtxKey{}, v)
}

// ValuesFrom returns the values attached by WithValues.
func ValuesFrom(ctx context.Context) (Values, bool) {
	if ctx == nil {
		return nil, false
	}
	v, ok := ctx.Value(valuesCtxKey{}).(Values)
	return v, ok
}

// Lookup reads key from the explicitly attached values, then from the published slot.
func Lookup(ctx context.Context, key string) (any, bool) {
	if v, ok := ValuesFrom(ctx); ok {
		if value, found := v[key]; found {
			return value, true
		}
	}
	value, found := Current(ctx)[key]
	return value, found
}
