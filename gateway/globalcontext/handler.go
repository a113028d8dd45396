package globalcontext

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/platform-mesh/graphql-module-gateway/common/logger"
)

var evaluations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "gateway",
	Subsystem: "context",
	Name:      "evaluations_total",
	Help:      "Context contributions evaluated per request",
}, []string{"outcome"})

// Handler resolves the context for one request: evaluate, merge, publish.
type Handler func(ctx context.Context, env Envelope) (Values, error)

type handlerOptions struct {
	slot Slot
	log  *logger.Logger
}

type HandlerOption func(*handlerOptions)

// WithSlot publishes into slot instead of the request scope.
func WithSlot(slot Slot) HandlerOption {
	return func(o *handlerOptions) {
		if slot != nil {
			o.slot = slot
		}
	}
}

// WithMode publishes into the slot backing mode.
func WithMode(mode Mode) HandlerOption {
	return WithSlot(SlotFor(mode))
}

func WithLogger(log *logger.Logger) HandlerOption {
	return func(o *handlerOptions) {
		if log != nil {
			o.log = log
		}
	}
}

// NewHandler returns a Handler evaluating c freshly on every call. Transport values
// form the base, contributed values override them and EventLoopFlagKey is always false.
// When evaluation fails nothing is published.
func NewHandler(c Contribution, opts ...HandlerOption) Handler {
	o := handlerOptions{slot: RequestSlot{}, log: logger.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	return func(ctx context.Context, env Envelope) (Values, error) {
		if ctx == nil {
			ctx = context.Background()
		}

		contributed, err := Evaluate(ctx, c, env)
		if err != nil {
			evaluations.WithLabelValues("error").Inc()
			o.log.Debug().Err(err).Msg("context contribution failed")
			return nil, err
		}

		resolved := env.Context.Clone()
		for k, v := range contributed {
			resolved[k] = v
		}
		resolved[EventLoopFlagKey] = false

		if _, ok := o.slot.(*GlobalSlot); ok {
			bindGlobal(ctx)
		}

		if !o.slot.Publish(ctx, resolved) {
			o.log.Debug().Msg("no request scope active, context not published")
		}
		evaluations.WithLabelValues("ok").Inc()
		return resolved, nil
	}
}
