package http_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gatewayhttp "github.com/platform-mesh/graphql-module-gateway/gateway/http"
)

func TestNewServer_RequiresGateway(t *testing.T) {
	_, err := gatewayhttp.NewServer(gatewayhttp.ServerConfig{Addr: ":0"})
	assert.Error(t, err)
}

func TestReadyHandler(t *testing.T) {
	tests := []struct {
		name     string
		ready    func() bool
		expected int
	}{
		{name: "nil_is_ready", ready: nil, expected: http.StatusOK},
		{name: "ready", ready: func() bool { return true }, expected: http.StatusOK},
		{name: "not_ready", ready: func() bool { return false }, expected: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			gatewayhttp.ReadyHandler(tt.ready).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			assert.Equal(t, tt.expected, w.Code)
		})
	}
}

func TestHealthHandler(t *testing.T) {
	w := httptest.NewRecorder()
	gatewayhttp.HealthHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, w.Code)
}
