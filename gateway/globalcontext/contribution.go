// Package globalcontext builds the values every resolver sees for one request and
// publishes them to a slot that code without access to the resolver arguments can read.
package globalcontext

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/http"
)

// EventLoopFlagKey is forced to false in every resolved context.
const EventLoopFlagKey = "callbackWaitsForEmptyEventLoop"

var ErrUnsupportedContribution = errors.New("unsupported context contribution")

// Values is a resolved context.
type Values map[string]any

// Clone returns a shallow copy. Cloning nil yields an empty map.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	maps.Copy(out, v)
	return out
}

// Envelope is what the transport hands to the context handler.
type Envelope struct {
	Context Values
	// Request is nil outside HTTP.
	Request *http.Request
}

// Contribution is one of Static, Sync or Async.
type Contribution interface {
	contribution()
}

// Static contributes the same values to every request.
type Static Values

// Sync computes values from the envelope on every request.
type Sync func(ctx context.Context, env Envelope) (Values, error)

// Async starts a computation and delivers its outcome on the returned channel.
type Async func(ctx context.Context, env Envelope) <-chan Result

// Result is the outcome of an Async contribution.
type Result struct {
	Values Values
	Err    error
}

func (Static) contribution() {}
func (Sync) contribution()   {}
func (Async) contribution()  {}

// Resolved wraps an already computed value in a delivered Async result.
func Resolved(v Values, err error) <-chan Result {
	ch := make(chan Result, 1)
	ch <- Result{Values: v, Err: err}
	close(ch)
	return ch
}

// Evaluate runs c against env. Nothing is cached between calls.
// An Async contribution is awaited until it delivers or ctx is done.
func Evaluate(ctx context.Context, c Contribution, env Envelope) (Values, error) {
	switch c := c.(type) {
	case nil:
		return Values{}, nil
	case Static:
		return Values(c).Clone(), nil
	case Sync:
		if c == nil {
			return Values{}, nil
		}
		return c(ctx, env)
	case Async:
		if c == nil {
			return Values{}, nil
		}
		ch := c(ctx, env)
		if ch == nil {
			return nil, fmt.Errorf("%w: async contribution returned no channel", ErrUnsupportedContribution)
		}
		select {
		case res, ok := <-ch:
			if !ok {
				return nil, fmt.Errorf("%w: async contribution closed without a result", ErrUnsupportedContribution)
			}
			return res.Values, res.Err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedContribution, c)
	}
}
