package provider_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/blastline/blastline/internal/config"
	"github.com/blastline/blastline/internal/provider"
)

func newTestGateway(baseURL string) *provider.Gateway {
	cfg := &config.ProviderConfig{
		BaseURL:   baseURL,
		AuthToken: "test-token",
		Timeout:   5,
		CircuitBreaker: config.CircuitBreakerConfig{
			MaxRequests:      3,
			Interval:         60,
			Timeout:          60,
			FailureRatio:     0.6,
			ConsecutiveFails: 3,
		},
	}
	return provider.NewGateway(cfg, zap.NewNop())
}

func TestGateway_Send_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/instances/7/messages", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var req provider.SendRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "+15550001", req.To)
		assert.NotEmpty(t, req.IdempotencyKey)

		_ = json.NewEncoder(w).Encode(map[string]string{"message_id": "pm-42"})
	}))
	defer server.Close()

	gw := newTestGateway(server.URL)

	id, err := gw.Send(context.Background(), 7, provider.SendRequest{
		To:             "+15550001",
		Content:        "hello",
		IdempotencyKey: "key-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "pm-42", id)
}

func TestGateway_Send_ServerErrorIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "provider exploded"})
	}))
	defer server.Close()

	gw := newTestGateway(server.URL)

	_, err := gw.Send(context.Background(), 7, provider.SendRequest{To: "+15550001"})
	require.Error(t, err)

	var pe *provider.Error
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, provider.CodeTimeout, pe.Code)
	assert.True(t, pe.Retryable)
	assert.True(t, provider.IsRetryable(err))
}

func TestGateway_Send_ClientErrorIsPermanent(t *testing.T) {
	tests := []struct {
		name         string
		body         map[string]string
		expectedCode string
	}{
		{
			name:         "generic rejection",
			body:         map[string]string{"error": "bad_request", "message": "malformed payload"},
			expectedCode: provider.CodeRejected,
		},
		{
			name:         "invalid recipient",
			body:         map[string]string{"error": "invalid_recipient", "message": "number not on network"},
			expectedCode: provider.CodeInvalidRecipient,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_ = json.NewEncoder(w).Encode(tt.body)
			}))
			defer server.Close()

			gw := newTestGateway(server.URL)

			_, err := gw.Send(context.Background(), 7, provider.SendRequest{To: "bogus"})
			require.Error(t, err)

			var pe *provider.Error
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.expectedCode, pe.Code)
			assert.False(t, pe.Retryable)
			assert.False(t, provider.IsRetryable(err))
		})
	}
}

func TestGateway_RateLimitedIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	gw := newTestGateway(server.URL)

	_, err := gw.Send(context.Background(), 7, provider.SendRequest{To: "+15550001"})
	require.Error(t, err)
	assert.Equal(t, provider.CodeTimeout, provider.ErrorCode(err))
	assert.True(t, provider.IsRetryable(err))
}

func TestGateway_BreakerOpensPerInstance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	gw := newTestGateway(server.URL)
	ctx := context.Background()

	// Trip instance 1's breaker with consecutive transport failures.
	for i := 0; i < 5; i++ {
		_, _ = gw.Send(ctx, 1, provider.SendRequest{To: "+15550001"})
	}
	assert.Equal(t, provider.BreakerOpen, gw.BreakerState(1))

	_, err := gw.Send(ctx, 1, provider.SendRequest{To: "+15550001"})
	require.Error(t, err)
	assert.Equal(t, provider.CodeUnavailable, provider.ErrorCode(err))
	assert.True(t, provider.IsRetryable(err))

	// Instance 2 never made a call; its breaker stays closed.
	assert.Equal(t, provider.BreakerClosed, gw.BreakerState(2))
}

func TestGateway_RejectionsDoNotTripBreaker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_recipient"})
	}))
	defer server.Close()

	gw := newTestGateway(server.URL)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := gw.Send(ctx, 1, provider.SendRequest{To: "bogus"})
		require.Error(t, err)
	}

	assert.Equal(t, provider.BreakerClosed, gw.BreakerState(1))
}

func TestGateway_CancelledCallsDoNotTripBreaker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"message_id": "pm-1"})
	}))
	defer server.Close()

	gw := newTestGateway(server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A pause or shutdown cancels a whole burst of in-flight sends; none of
	// them says anything about provider health.
	for i := 0; i < 10; i++ {
		_, err := gw.Send(ctx, 1, provider.SendRequest{To: "+15550001"})
		require.ErrorIs(t, err, context.Canceled)
	}

	assert.Equal(t, provider.BreakerClosed, gw.BreakerState(1))

	id, err := gw.Send(context.Background(), 1, provider.SendRequest{To: "+15550001"})
	require.NoError(t, err)
	assert.Equal(t, "pm-1", id)
}

func TestGateway_ConnectAndCredential(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/instances/3/connect":
			assert.Equal(t, "POST", r.Method)
			_ = json.NewEncoder(w).Encode(map[string]string{"pairing_code": "WXYZ-9876"})
		case "/instances/3/credential":
			assert.Equal(t, "GET", r.Method)
			_ = json.NewEncoder(w).Encode(map[string]string{})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	gw := newTestGateway(server.URL)
	ctx := context.Background()

	cred, err := gw.Connect(ctx, 3)
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.Equal(t, "WXYZ-9876", cred.PairingCode)

	// Empty credential response means "not ready yet", not an error.
	cred, err = gw.Credential(ctx, 3)
	require.NoError(t, err)
	assert.Nil(t, cred)
}

func TestGateway_NetworkFailureIsRetryable(t *testing.T) {
	// Closed immediately: every call fails at the transport level.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	gw := newTestGateway(server.URL)

	err := gw.Disconnect(context.Background(), 5)
	require.Error(t, err)
	assert.Equal(t, provider.CodeTimeout, provider.ErrorCode(err))
	assert.True(t, provider.IsRetryable(err))
}
