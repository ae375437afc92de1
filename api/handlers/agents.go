package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/chatforge/switchboard/handover"
	"github.com/chatforge/switchboard/types"
)

// =============================================================================
// 🤖 Agent Handlers
// =============================================================================

// AgentHandler serves the agent activation endpoints.
type AgentHandler struct {
	agents      handover.AgentStore
	coordinator *handover.Coordinator
	logger      *zap.Logger
}

// NewAgentHandler creates an agent handler.
func NewAgentHandler(agents handover.AgentStore, coordinator *handover.Coordinator, logger *zap.Logger) *AgentHandler {
	return &AgentHandler{
		agents:      agents,
		coordinator: coordinator,
		logger:      logger.With(zap.String("handler", "agents")),
	}
}

// Register mounts the agent routes on mux.
func (h *AgentHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/agents/{id}/status", h.Status)
	mux.HandleFunc("POST /api/v1/agents/{id}/deactivate", h.Deactivate)
	mux.HandleFunc("POST /api/v1/agents/{id}/activate", h.Activate)
}

// agentActionRequest is the optional body for activation changes.
type agentActionRequest struct {
	Actor  string `json:"actor,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// deactivateResponse reports the deactivation outcome including how many
// conversations moved to human operators.
type deactivateResponse struct {
	Agent            *handover.AgentConfig `json:"agent"`
	TransferredCount int                   `json:"transferred_count"`
}

// Status returns the agent's current configuration.
func (h *AgentHandler) Status(w http.ResponseWriter, r *http.Request) {
	agentID := r.PathValue("id")
	if agentID == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "agent id is required", h.logger)
		return
	}

	cfg, err := h.agents.Get(r.Context(), agentID)
	if errors.Is(err, handover.ErrNotFound) {
		WriteError(w, types.NewNotFoundError("agent not found"), h.logger)
		return
	}
	if err != nil {
		WriteFromError(w, err, h.logger)
		return
	}

	WriteSuccess(w, cfg)
}

// Deactivate disables the agent and sweeps its conversations to human
// ownership.
func (h *AgentHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	agentID := r.PathValue("id")
	if agentID == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "agent id is required", h.logger)
		return
	}

	req := h.decodeAction(r)

	cfg, transferred, err := h.coordinator.OnAgentDeactivated(r.Context(), agentID, req.Actor)
	if errors.Is(err, handover.ErrNotFound) {
		WriteError(w, types.NewNotFoundError("agent not found"), h.logger)
		return
	}
	if err != nil {
		// the deactivation itself may have succeeded; report the sweep
		// failure so the caller retries
		WriteFromError(w, err, h.logger)
		return
	}

	h.logger.Info("agent deactivated via API",
		zap.String("agent_id", agentID),
		zap.Int("transferred", transferred),
	)

	WriteSuccess(w, deactivateResponse{Agent: cfg, TransferredCount: transferred})
}

// Activate re-enables the agent. Conversations stay with their current
// owners.
func (h *AgentHandler) Activate(w http.ResponseWriter, r *http.Request) {
	agentID := r.PathValue("id")
	if agentID == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "agent id is required", h.logger)
		return
	}

	req := h.decodeAction(r)

	cfg, err := h.coordinator.OnAgentActivated(r.Context(), agentID, req.Actor)
	if errors.Is(err, handover.ErrNotFound) {
		WriteError(w, types.NewNotFoundError("agent not found"), h.logger)
		return
	}
	if err != nil {
		WriteFromError(w, err, h.logger)
		return
	}

	WriteSuccess(w, cfg)
}

// decodeAction tolerates an empty body; both fields are optional.
func (h *AgentHandler) decodeAction(r *http.Request) agentActionRequest {
	var req agentActionRequest
	if r.Body == nil || r.ContentLength == 0 {
		return req
	}
	// best effort; a malformed optional body is treated as empty
	_ = decodeLoose(r, &req)
	return req
}
