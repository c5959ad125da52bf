package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	generationsvc "github.com/ArsalanAyaz88/cashwave-lipsync-backend/internal/gateway/service/generation"
	"github.com/ArsalanAyaz88/cashwave-lipsync-backend/internal/syncapi"
)

const maxWebhookBody = 1 << 20

// WebhookHandler receives status callbacks from the sync API.
type WebhookHandler struct {
	svc    *generationsvc.Service
	secret string
	logger zerolog.Logger
}

func NewWebhookHandler(svc *generationsvc.Service, secret string, logger zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{svc: svc, secret: secret, logger: logger}
}

func (h *WebhookHandler) HandleSyncWebhook(w http.ResponseWriter, r *http.Request) {
	if h.secret == "" {
		http.Error(w, "webhooks are not configured", http.StatusNotFound)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "read body failed", http.StatusBadRequest)
		return
	}

	evt, err := syncapi.ParseEvent(h.secret, r.Header, body)
	if err != nil {
		switch {
		case errors.Is(err, syncapi.ErrInvalidSignature):
			h.logger.Warn().Msg("webhook with bad signature rejected")
			http.Error(w, "invalid signature", http.StatusUnauthorized)
		case errors.Is(err, syncapi.ErrStaleWebhook):
			h.logger.Warn().Msg("stale webhook rejected")
			http.Error(w, "stale delivery", http.StatusUnauthorized)
		default:
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
		return
	}

	if err := h.svc.ApplyWebhook(r.Context(), evt); err != nil {
		h.logger.Error().Err(err).Str("generation_id", evt.Generation.ID).Msg("apply webhook failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
