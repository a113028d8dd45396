package resolver

import (
	"context"
	"time"

	"github.com/graphql-go/graphql"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/platform-mesh/graphql-module-gateway/gateway/services"
)

// MapFieldsToService fills the gaps of explicit with same-named functions of service.
// Fields are visited in the given order; an explicit resolver is never replaced and a
// field with neither stays unmapped. explicit is returned unchanged when nothing was
// added, otherwise a new map is returned.
func MapFieldsToService(fields []string, explicit FieldMap, service services.Namespace) FieldMap {
	var mapped FieldMap
	for _, field := range fields {
		if explicit[field] != nil {
			continue
		}
		fn, ok := service[field]
		if !ok || fn == nil {
			continue
		}
		if mapped == nil {
			mapped = make(FieldMap, len(explicit)+1)
			for k, v := range explicit {
				mapped[k] = v
			}
		}
		mapped[field] = ServiceResolver(fn)
	}

	if mapped == nil {
		return explicit
	}
	return mapped
}

// ServiceResolver adapts a service function to the resolver signature:
// arguments become the first parameter, source, context and info the environment.
func ServiceResolver(fn services.Func) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		typeName := ""
		if p.Info.ParentType != nil {
			typeName = p.Info.ParentType.Name()
		}
		field := p.Info.FieldName

		ctx := p.Context
		if ctx == nil {
			ctx = context.Background()
		}
		ctx, span := otel.Tracer("").Start(ctx, "ServiceResolver", trace.WithAttributes(
			attribute.String("type", typeName),
			attribute.String("field", field),
		))
		defer span.End()

		start := time.Now()
		result, err := fn(p.Args, services.Env{Root: p.Source, Context: ctx, Info: p.Info})
		serviceDuration.WithLabelValues(typeName, field).Observe(time.Since(start).Seconds())

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			serviceCalls.WithLabelValues(typeName, field, outcomeError).Inc()
			return nil, err
		}

		serviceCalls.WithLabelValues(typeName, field, outcomeOK).Inc()
		return result, nil
	}
}
