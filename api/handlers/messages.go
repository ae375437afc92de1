package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/chatforge/switchboard/router"
	"github.com/chatforge/switchboard/types"
)

// =============================================================================
// ✉️ Message Intake Handler
// =============================================================================

// MessageHandler feeds normalized inbound messages into the router
// pipeline.
type MessageHandler struct {
	processor *router.Processor
	logger    *zap.Logger
}

// NewMessageHandler creates a message handler. Pass a nil processor when no
// agent runtime is configured; the endpoint then reports itself disabled.
func NewMessageHandler(processor *router.Processor, logger *zap.Logger) *MessageHandler {
	return &MessageHandler{
		processor: processor,
		logger:    logger.With(zap.String("handler", "messages")),
	}
}

// Register mounts the intake route on mux.
func (h *MessageHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/messages", h.Intake)
}

// Intake processes one inbound message. Dispositions where the bot stays
// silent are successful responses, not errors; the webhook relays that feed
// this endpoint treat non-2xx as "redeliver", and redelivering a message
// the bot correctly ignored would loop forever.
func (h *MessageHandler) Intake(w http.ResponseWriter, r *http.Request) {
	if h.processor == nil {
		WriteErrorMessage(w, http.StatusServiceUnavailable, types.ErrInternalError,
			"message intake is disabled: no agent runtime configured", h.logger)
		return
	}

	var msg types.InboundMessage
	if err := DecodeJSONBody(w, r, &msg, h.logger); err != nil {
		return
	}

	result, err := h.processor.Process(r.Context(), msg)
	if err != nil {
		WriteFromError(w, err, h.logger)
		return
	}

	WriteSuccess(w, result)
}
