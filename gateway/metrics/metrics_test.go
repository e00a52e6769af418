package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	m := New()
	other := New()

	m.DecryptionRequestsTotal.WithLabelValues("verify_message").Inc()
	m.DeliveriesTotal.WithLabelValues("verify_message", "DELIVERED").Add(2)
	m.PendingRequests.Set(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.DecryptionRequestsTotal.WithLabelValues("verify_message")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DeliveriesTotal.WithLabelValues("verify_message", "DELIVERED")))
	assert.Equal(t, 0.0, testutil.ToFloat64(other.PendingRequests))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "ecuvault_decryption_requests_pending 3")
	assert.Contains(t, string(body), `ecuvault_decryption_requests_total{callback="verify_message"} 1`)
}
