package resolver

import "github.com/prometheus/client_golang/prometheus"

func ServiceCallsCounter(typeName, field, outcome string) prometheus.Counter {
	return serviceCalls.WithLabelValues(typeName, field, outcome)
}
