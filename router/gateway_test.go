package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chatforge/switchboard/types"
)

// =============================================================================
// 🧪 Gateway Tests
// =============================================================================

func TestHTTPRuntime_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/generate", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "conv-1", req.ConversationID)

		json.NewEncoder(w).Encode(generateResponse{Reply: "generated reply"})
	}))
	defer srv.Close()

	rt := NewHTTPRuntime(GatewayConfig{BaseURL: srv.URL, APIKey: "secret"}, zap.NewNop())

	reply, err := rt.Generate(context.Background(), types.InboundMessage{
		ConversationID: "conv-1",
		AccountID:      "acct-1",
		Content:        "hola",
		Direction:      types.DirectionInbound,
	})
	require.NoError(t, err)
	assert.Equal(t, "generated reply", reply)
}

func TestHTTPRuntime_GenerateUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	rt := NewHTTPRuntime(GatewayConfig{BaseURL: srv.URL}, zap.NewNop())

	_, err := rt.Generate(context.Background(), types.InboundMessage{
		ConversationID: "conv-1", AccountID: "acct-1", Direction: types.DirectionInbound,
	})
	require.Error(t, err)
	assert.Equal(t, types.ErrGenerationFailed, types.GetErrorCode(err))
	assert.True(t, types.IsRetryable(err))
}

func TestHTTPMessenger_Send(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)

		var req sendRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "a reply", req.Content)

		json.NewEncoder(w).Encode(types.DeliveryResult{
			MessageID:   "wamid.123",
			DeliveredAt: time.Now().UTC(),
		})
	}))
	defer srv.Close()

	m := NewHTTPMessenger(GatewayConfig{BaseURL: srv.URL}, zap.NewNop())

	res, err := m.Send(context.Background(), "conv-1", "acct-1", "a reply")
	require.NoError(t, err)
	assert.Equal(t, "wamid.123", res.MessageID)
}

func TestHTTPMessenger_SendUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	m := NewHTTPMessenger(GatewayConfig{BaseURL: srv.URL}, zap.NewNop())

	_, err := m.Send(context.Background(), "conv-1", "acct-1", "a reply")
	require.Error(t, err)
	assert.Equal(t, types.ErrDeliveryFailed, types.GetErrorCode(err))
}
