package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chatforge/switchboard/handover"
	"github.com/chatforge/switchboard/router"
	"github.com/chatforge/switchboard/types"
)

// =============================================================================
// 🧪 Handler Test Fixture
// =============================================================================

type fixture struct {
	accounts  *handover.MemoryAccountStore
	agents    *handover.MemoryAgentStore
	ledger    *handover.MemoryLedger
	engine    *handover.Engine
	evaluator *handover.Evaluator
	mux       *http.ServeMux
}

type stubRuntime struct{ reply string }

func (s stubRuntime) Generate(context.Context, types.InboundMessage) (string, error) {
	return s.reply, nil
}

type stubMessenger struct{}

func (stubMessenger) Send(_ context.Context, conversationID, _, _ string) (*types.DeliveryResult, error) {
	return &types.DeliveryResult{MessageID: "m-" + conversationID, DeliveredAt: time.Now().UTC()}, nil
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		accounts: handover.NewMemoryAccountStore(),
		agents:   handover.NewMemoryAgentStore(),
		ledger:   handover.NewMemoryLedger(),
		mux:      http.NewServeMux(),
	}
	logger := zap.NewNop()
	f.engine = handover.NewEngine(f.ledger, handover.NopNotifier{}, nil, 0, logger)
	f.evaluator = handover.NewEvaluator(f.accounts, f.agents, f.ledger, nil, logger)
	coordinator := handover.NewCoordinator(f.agents, f.accounts, f.ledger, f.engine, nil, 4, logger)
	processor := router.NewProcessor(f.evaluator, f.ledger, stubRuntime{reply: "bot says hi"}, stubMessenger{}, handover.NopNotifier{}, logger)

	NewAgentHandler(f.agents, coordinator, logger).Register(f.mux)
	NewConversationHandler(f.engine, f.evaluator, f.ledger, logger).Register(f.mux)
	NewMessageHandler(processor, logger).Register(f.mux)
	NewHealthHandler("test", map[string]Pinger{
		"database": func(context.Context) error { return nil },
	}, logger).Register(f.mux)

	ctx := context.Background()
	_, err := f.agents.Save(ctx, &handover.AgentConfig{AgentID: "agent-1", Name: "Support", IsActive: true})
	require.NoError(t, err)
	require.NoError(t, f.accounts.Save(ctx, &handover.Account{
		AccountID: "acct-1", Platform: "whatsapp", DefaultAgentID: "agent-1",
	}))
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	f.mux.ServeHTTP(rr, req)

	var resp Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return rr, resp
}

// =============================================================================
// 🧪 Agent Endpoints
// =============================================================================

func TestAgentStatus(t *testing.T) {
	f := newFixture(t)

	rr, resp := f.do(t, http.MethodGet, "/api/v1/agents/agent-1/status", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, resp.Success)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "agent-1", data["agent_id"])
	assert.Equal(t, true, data["is_active"])
}

func TestAgentStatus_NotFound(t *testing.T) {
	f := newFixture(t)

	rr, resp := f.do(t, http.MethodGet, "/api/v1/agents/nope/status", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, string(types.ErrNotFound), resp.Error.Code)
}

func TestAgentDeactivateAndActivate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// two bot-owned conversations for the agent's account
	_, err := f.ledger.Get(ctx, "conv-a", "acct-1")
	require.NoError(t, err)
	_, err = f.ledger.Get(ctx, "conv-b", "acct-1")
	require.NoError(t, err)

	rr, resp := f.do(t, http.MethodPost, "/api/v1/agents/agent-1/deactivate", `{"actor":"admin"}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	require.True(t, resp.Success)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(2), data["transferred_count"])
	agent := data["agent"].(map[string]interface{})
	assert.Equal(t, false, agent["is_active"])

	// conversations are now human-owned
	rec, err := f.ledger.Get(ctx, "conv-a", "")
	require.NoError(t, err)
	assert.Equal(t, handover.OwnerHuman, rec.Owner)

	rr, resp = f.do(t, http.MethodPost, "/api/v1/agents/agent-1/activate", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	agentData := resp.Data.(map[string]interface{})
	assert.Equal(t, true, agentData["is_active"])

	// reactivation did not steal the conversation back
	rec, err = f.ledger.Get(ctx, "conv-a", "")
	require.NoError(t, err)
	assert.Equal(t, handover.OwnerHuman, rec.Owner)
}

// =============================================================================
// 🧪 Conversation Endpoints
// =============================================================================

func TestHandover_ToHuman(t *testing.T) {
	f := newFixture(t)

	rr, resp := f.do(t, http.MethodPost, "/api/v1/conversations/conv-1/handover",
		`{"target":"human","account_id":"acct-1","operator":"maria","actor":"maria","reason":"vip customer"}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	require.True(t, resp.Success)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, true, data["applied"])
	ownership := data["ownership"].(map[string]interface{})
	assert.Equal(t, "human", ownership["owner"])
	assert.Equal(t, "maria", ownership["assigned_operator"])
}

func TestHandover_Idempotent(t *testing.T) {
	f := newFixture(t)

	_, resp := f.do(t, http.MethodPost, "/api/v1/conversations/conv-1/handover",
		`{"target":"human","operator":"maria"}`)
	require.True(t, resp.Success)

	rr, resp := f.do(t, http.MethodPost, "/api/v1/conversations/conv-1/handover",
		`{"target":"human","operator":"maria"}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, false, data["applied"])

	history, err := f.ledger.History(context.Background(), "conv-1")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestHandover_InvalidTarget(t *testing.T) {
	f := newFixture(t)

	rr, resp := f.do(t, http.MethodPost, "/api/v1/conversations/conv-1/handover",
		`{"target":"robot"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, string(types.ErrInvalidTarget), resp.Error.Code)

	// ownership is untouched
	rec, err := f.ledger.Get(context.Background(), "conv-1", "")
	require.NoError(t, err)
	assert.Equal(t, handover.OwnerBot, rec.Owner)
	history, err := f.ledger.History(context.Background(), "conv-1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestOwnership_UnknownConversationDefaultsToBot(t *testing.T) {
	f := newFixture(t)

	rr, resp := f.do(t, http.MethodGet, "/api/v1/conversations/conv-new/ownership", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "bot", data["owner"])
}

func TestEligibility(t *testing.T) {
	f := newFixture(t)

	rr, resp := f.do(t, http.MethodGet, "/api/v1/conversations/conv-1/eligibility?account_id=acct-1", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "eligible", data["disposition"])
}

func TestDebugView(t *testing.T) {
	f := newFixture(t)

	_, resp := f.do(t, http.MethodPost, "/api/v1/conversations/conv-1/handover",
		`{"target":"human","account_id":"acct-1","operator":"maria"}`)
	require.True(t, resp.Success)

	rr, resp := f.do(t, http.MethodGet, "/api/v1/conversations/conv-1/debug?account_id=acct-1", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, false, data["agent_would_reply"])

	decision := data["decision"].(map[string]interface{})
	assert.Equal(t, "human_owned", decision["disposition"])
	checks := decision["checks"].(map[string]interface{})
	assert.Equal(t, true, checks["agent_configured"])
	assert.Equal(t, true, checks["agent_active"])
	assert.Equal(t, false, checks["bot_owned"])

	history := data["history"].([]interface{})
	assert.Len(t, history, 1)
}

func TestHistoryEndpoint(t *testing.T) {
	f := newFixture(t)

	f.do(t, http.MethodPost, "/api/v1/conversations/conv-1/handover", `{"target":"human","operator":"maria"}`)
	f.do(t, http.MethodPost, "/api/v1/conversations/conv-1/handover", `{"target":"bot","actor":"maria"}`)

	rr, resp := f.do(t, http.MethodGet, "/api/v1/conversations/conv-1/history", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	data := resp.Data.(map[string]interface{})
	history := data["history"].([]interface{})
	require.Len(t, history, 2)
	first := history[0].(map[string]interface{})
	assert.Equal(t, "human", first["owner"])
}

// =============================================================================
// 🧪 Message Intake
// =============================================================================

func TestIntake_Replies(t *testing.T) {
	f := newFixture(t)

	rr, resp := f.do(t, http.MethodPost, "/api/v1/messages",
		`{"conversation_id":"conv-1","account_id":"acct-1","sender":"+521","content":"hola","direction":"inbound"}`)
	assert.Equal(t, http.StatusOK, rr.Code)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "replied", data["outcome"])
	assert.Equal(t, "bot says hi", data["reply"])
}

func TestIntake_HumanOwnedIsStill200(t *testing.T) {
	f := newFixture(t)

	f.do(t, http.MethodPost, "/api/v1/conversations/conv-1/handover",
		`{"target":"human","account_id":"acct-1","operator":"maria"}`)

	rr, resp := f.do(t, http.MethodPost, "/api/v1/messages",
		`{"conversation_id":"conv-1","account_id":"acct-1","sender":"+521","content":"hola","direction":"inbound"}`)
	assert.Equal(t, http.StatusOK, rr.Code, "silence is success, not failure")

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "human_owned", data["outcome"])
	assert.Nil(t, data["reply"])
}

func TestIntake_OutboundEcho(t *testing.T) {
	f := newFixture(t)

	rr, resp := f.do(t, http.MethodPost, "/api/v1/messages",
		`{"conversation_id":"conv-1","account_id":"acct-1","sender":"me","content":"echo","direction":"outbound"}`)
	assert.Equal(t, http.StatusOK, rr.Code)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "skipped_outbound", data["outcome"])
}

func TestIntake_MissingFields(t *testing.T) {
	f := newFixture(t)

	rr, resp := f.do(t, http.MethodPost, "/api/v1/messages",
		`{"account_id":"acct-1","direction":"inbound"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, string(types.ErrInvalidRequest), resp.Error.Code)
}

func TestIntake_DisabledWithoutRuntime(t *testing.T) {
	mux := http.NewServeMux()
	NewMessageHandler(nil, zap.NewNop()).Register(mux)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages",
		strings.NewReader(`{"conversation_id":"c","account_id":"a","direction":"inbound"}`))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

// =============================================================================
// 🧪 Health Endpoints
// =============================================================================

func TestHealthEndpoints(t *testing.T) {
	f := newFixture(t)

	rr, _ := f.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr, _ = f.do(t, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestReadyz_Degraded(t *testing.T) {
	mux := http.NewServeMux()
	NewHealthHandler("test", map[string]Pinger{
		"database": func(context.Context) error { return assert.AnError },
	}, zap.NewNop()).Register(mux)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body["status"])
}
