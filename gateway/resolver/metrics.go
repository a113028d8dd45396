package resolver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	serviceCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gateway",
		Subsystem: "service",
		Name:      "resolver_calls_total",
		Help:      "Service functions invoked through the resolver fallback",
	}, []string{"type", "field", "outcome"})

	serviceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gateway",
		Subsystem: "service",
		Name:      "resolver_duration_seconds",
		Help:      "Duration of service functions invoked through the resolver fallback",
		Buckets:   prometheus.DefBuckets,
	}, []string{"type", "field"})
)

const (
	outcomeOK    = "ok"
	outcomeError = "error"
)
