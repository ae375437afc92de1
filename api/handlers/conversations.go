package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/chatforge/switchboard/handover"
	"github.com/chatforge/switchboard/types"
)

// =============================================================================
// 💬 Conversation Handlers
// =============================================================================

// ConversationHandler serves the ownership endpoints.
type ConversationHandler struct {
	engine    *handover.Engine
	evaluator *handover.Evaluator
	ledger    handover.Ledger
	logger    *zap.Logger
}

// NewConversationHandler creates a conversation handler.
func NewConversationHandler(engine *handover.Engine, evaluator *handover.Evaluator, ledger handover.Ledger, logger *zap.Logger) *ConversationHandler {
	return &ConversationHandler{
		engine:    engine,
		evaluator: evaluator,
		ledger:    ledger,
		logger:    logger.With(zap.String("handler", "conversations")),
	}
}

// Register mounts the conversation routes on mux.
func (h *ConversationHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/conversations/{id}/handover", h.Handover)
	mux.HandleFunc("GET /api/v1/conversations/{id}/ownership", h.Ownership)
	mux.HandleFunc("GET /api/v1/conversations/{id}/history", h.History)
	mux.HandleFunc("GET /api/v1/conversations/{id}/eligibility", h.Eligibility)
	mux.HandleFunc("GET /api/v1/conversations/{id}/debug", h.Debug)
}

// handoverRequest is the body of POST .../handover.
type handoverRequest struct {
	Target    string `json:"target"`
	AccountID string `json:"account_id,omitempty"`
	Operator  string `json:"operator,omitempty"`
	Actor     string `json:"actor,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// handoverResponse reports the resulting ownership and whether the request
// changed anything.
type handoverResponse struct {
	Ownership *handover.ConversationOwnership `json:"ownership"`
	Applied   bool                            `json:"applied"`
}

// Handover transfers a conversation between bot and human ownership.
func (h *ConversationHandler) Handover(w http.ResponseWriter, r *http.Request) {
	conversationID := r.PathValue("id")
	if conversationID == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "conversation id is required", h.logger)
		return
	}

	var req handoverRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	target := handover.Owner(req.Target)
	if !target.Valid() {
		// reject before touching the ledger so a typo cannot change state
		WriteError(w, types.NewError(types.ErrInvalidTarget,
			"target must be \"bot\" or \"human\""), h.logger)
		return
	}

	rec, applied, err := h.engine.Transfer(r.Context(), handover.TransferRequest{
		ConversationID: conversationID,
		AccountID:      req.AccountID,
		Target:         target,
		Operator:       req.Operator,
		Actor:          req.Actor,
		Reason:         req.Reason,
	})
	if err != nil {
		WriteFromError(w, err, h.logger)
		return
	}

	WriteSuccess(w, handoverResponse{Ownership: rec, Applied: applied})
}

// Ownership returns the conversation's current ownership record.
func (h *ConversationHandler) Ownership(w http.ResponseWriter, r *http.Request) {
	conversationID := r.PathValue("id")
	if conversationID == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "conversation id is required", h.logger)
		return
	}

	rec, err := h.ledger.Get(r.Context(), conversationID, r.URL.Query().Get("account_id"))
	if err != nil {
		WriteFromError(w, err, h.logger)
		return
	}

	WriteSuccess(w, rec)
}

// History returns the conversation's transition log, oldest first.
func (h *ConversationHandler) History(w http.ResponseWriter, r *http.Request) {
	conversationID := r.PathValue("id")
	if conversationID == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "conversation id is required", h.logger)
		return
	}

	history, err := h.ledger.History(r.Context(), conversationID)
	if err != nil {
		WriteFromError(w, err, h.logger)
		return
	}

	WriteSuccess(w, map[string]interface{}{
		"conversation_id": conversationID,
		"history":         history,
	})
}

// Eligibility returns the bot eligibility decision for the conversation.
func (h *ConversationHandler) Eligibility(w http.ResponseWriter, r *http.Request) {
	conversationID := r.PathValue("id")
	if conversationID == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "conversation id is required", h.logger)
		return
	}

	decision, err := h.evaluator.Evaluate(r.Context(), conversationID, r.URL.Query().Get("account_id"))
	if err != nil {
		WriteFromError(w, err, h.logger)
		return
	}

	WriteSuccess(w, decision)
}

// debugResponse is the support view: the full decision with its per-check
// breakdown plus the raw ownership record.
type debugResponse struct {
	Decision        handover.Decision               `json:"decision"`
	AgentWouldReply bool                            `json:"agent_would_reply"`
	Ownership       *handover.ConversationOwnership `json:"ownership"`
	History         []handover.Transition           `json:"history"`
}

// Debug returns everything support needs to answer "why is the bot
// (not) responding here".
func (h *ConversationHandler) Debug(w http.ResponseWriter, r *http.Request) {
	conversationID := r.PathValue("id")
	if conversationID == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "conversation id is required", h.logger)
		return
	}
	accountID := r.URL.Query().Get("account_id")

	decision, err := h.evaluator.Evaluate(r.Context(), conversationID, accountID)
	if err != nil {
		WriteFromError(w, err, h.logger)
		return
	}

	rec, err := h.ledger.Get(r.Context(), conversationID, accountID)
	if err != nil {
		WriteFromError(w, err, h.logger)
		return
	}

	history, err := h.ledger.History(r.Context(), conversationID)
	if err != nil {
		WriteFromError(w, err, h.logger)
		return
	}

	WriteSuccess(w, debugResponse{
		Decision:        decision,
		AgentWouldReply: decision.WouldRespond(),
		Ownership:       rec,
		History:         history,
	})
}
