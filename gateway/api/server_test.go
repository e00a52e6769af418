package api

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pushchain/ecu-vault/gateway/metrics"
)

func TestNewServer(t *testing.T) {
	logger := zerolog.New(zerolog.NewTestWriter(t))

	server := NewServer(Deps{}, logger, 9090)

	assert.NotNil(t, server.router)
	assert.Equal(t, ":9090", server.server.Addr)
	assert.Nil(t, server.Addr())
}

func TestServerStartStop(t *testing.T) {
	logger := zerolog.New(zerolog.NewTestWriter(t))
	server := NewServer(Deps{Metrics: metrics.New()}, logger, 0)

	require.NoError(t, server.Start())
	addr := server.Addr()
	require.NotNil(t, addr)

	resp, err := http.Get(fmt.Sprintf("http://%s/health", addr))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))

	require.NoError(t, server.Stop())

	_, err = http.Get(fmt.Sprintf("http://%s/health", addr))
	assert.Error(t, err)
}

func TestServerStartPortInUse(t *testing.T) {
	logger := zerolog.New(zerolog.NewTestWriter(t))
	first := NewServer(Deps{}, logger, 0)
	require.NoError(t, first.Start())
	defer first.Stop()

	second := NewServer(Deps{}, logger, first.Addr().(*net.TCPAddr).Port)

	err := second.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to bind")
}

func TestRoutesDisabledWithoutDeps(t *testing.T) {
	logger := zerolog.New(zerolog.NewTestWriter(t))
	server := NewServer(Deps{}, logger, 0)

	testCases := []struct {
		name           string
		method         string
		path           string
		expectedStatus int
	}{
		{"Health endpoint", http.MethodGet, "/health", http.StatusOK},
		{"Ledger routes absent", http.MethodGet, "/api/v1/messages/count", http.StatusNotFound},
		{"Metrics absent", http.MethodGet, "/metrics", http.StatusNotFound},
		{"Non-existent endpoint", http.MethodGet, "/api/v1/non-existent", http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			server.Handler().ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
			assert.Equal(t, tc.expectedStatus, w.Code)
		})
	}
}

func TestMetricsMiddleware(t *testing.T) {
	ts := newTestServer(t)
	ts.ledger.On("GetMessageCount", mock.Anything).Return(uint64(1), nil)

	ts.do(http.MethodGet, "/api/v1/messages/count", nil)
	ts.do(http.MethodGet, "/api/v1/messages/count", nil)

	w := ts.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(),
		`ecuvault_api_requests_total{code="200",route="/api/v1/messages/count"} 2`)
}
