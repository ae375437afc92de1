package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/chatforge/switchboard/types"
)

// =============================================================================
// 🌉 HTTP Gateways
// =============================================================================

// GatewayConfig holds the settings shared by both HTTP gateway clients.
type GatewayConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

func newGatewayClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

func postJSON(ctx context.Context, client *http.Client, url, apiKey string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, snippet)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Agent runtime client
// -----------------------------------------------------------------------------

// HTTPRuntime calls the external reply generation service.
type HTTPRuntime struct {
	config GatewayConfig
	client *http.Client
	logger *zap.Logger
}

// NewHTTPRuntime creates a runtime client.
func NewHTTPRuntime(config GatewayConfig, logger *zap.Logger) *HTTPRuntime {
	return &HTTPRuntime{
		config: config,
		client: newGatewayClient(config.Timeout),
		logger: logger.With(zap.String("component", "runtime_gateway")),
	}
}

type generateRequest struct {
	ConversationID string `json:"conversation_id"`
	AccountID      string `json:"account_id"`
	Sender         string `json:"sender"`
	Content        string `json:"content"`
}

type generateResponse struct {
	Reply string `json:"reply"`
}

// Generate asks the runtime for a reply to msg.
func (r *HTTPRuntime) Generate(ctx context.Context, msg types.InboundMessage) (string, error) {
	var out generateResponse
	err := postJSON(ctx, r.client, r.config.BaseURL+"/v1/generate", r.config.APIKey, generateRequest{
		ConversationID: msg.ConversationID,
		AccountID:      msg.AccountID,
		Sender:         msg.Sender,
		Content:        msg.Content,
	}, &out)
	if err != nil {
		r.logger.Warn("reply generation failed",
			zap.String("conversation_id", msg.ConversationID), zap.Error(err))
		return "", types.NewError(types.ErrGenerationFailed, "agent runtime request failed").
			WithCause(err).WithRetryable(true)
	}
	return out.Reply, nil
}

// -----------------------------------------------------------------------------
// Delivery client
// -----------------------------------------------------------------------------

// HTTPMessenger calls the channel delivery service.
type HTTPMessenger struct {
	config GatewayConfig
	client *http.Client
	logger *zap.Logger
}

// NewHTTPMessenger creates a delivery client.
func NewHTTPMessenger(config GatewayConfig, logger *zap.Logger) *HTTPMessenger {
	return &HTTPMessenger{
		config: config,
		client: newGatewayClient(config.Timeout),
		logger: logger.With(zap.String("component", "delivery_gateway")),
	}
}

type sendRequest struct {
	ConversationID string `json:"conversation_id"`
	AccountID      string `json:"account_id"`
	Content        string `json:"content"`
}

// Send delivers content to the conversation's channel.
func (m *HTTPMessenger) Send(ctx context.Context, conversationID, accountID, content string) (*types.DeliveryResult, error) {
	var out types.DeliveryResult
	err := postJSON(ctx, m.client, m.config.BaseURL+"/v1/messages", m.config.APIKey, sendRequest{
		ConversationID: conversationID,
		AccountID:      accountID,
		Content:        content,
	}, &out)
	if err != nil {
		m.logger.Warn("delivery failed",
			zap.String("conversation_id", conversationID), zap.Error(err))
		return nil, types.NewError(types.ErrDeliveryFailed, "channel delivery request failed").
			WithCause(err).WithRetryable(true)
	}
	return &out, nil
}
