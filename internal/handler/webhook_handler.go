package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/blastline/blastline/internal/models"
)

const webhookProcessTimeout = 10 * time.Second

// ProviderWebhook ingests asynchronous provider events. The request is
// acknowledged with 202 before processing so a slow database can never back
// up into the provider's delivery pipeline; malformed bodies are the only
// rejection.
func (h *Handler) ProviderWebhook(w http.ResponseWriter, r *http.Request) {
	var event models.ProviderEvent
	if err := render.DecodeJSON(r.Body, &event); err != nil {
		h.sendError(w, r, http.StatusBadRequest, errorCodeInvalidBody, "Request body is not a valid provider event")
		return
	}

	if event.Type == "" {
		h.sendError(w, r, http.StatusBadRequest, errorCodeInvalidBody, "Provider event requires a type")
		return
	}
	// Delivery updates correlate by provider message id alone; some
	// providers omit instance_id on receipts.
	if event.Type == models.EventDeliveryUpdate {
		if event.ProviderMessageID == "" {
			h.sendError(w, r, http.StatusBadRequest, errorCodeInvalidBody, "Delivery update requires provider_message_id")
			return
		}
	} else if event.InstanceID <= 0 {
		h.sendError(w, r, http.StatusBadRequest, errorCodeInvalidBody, "Provider event requires instance_id")
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), webhookProcessTimeout)
		defer cancel()

		h.service.Instance.HandleProviderEvent(ctx, &event)
	}()

	h.logger.Debug("Provider event accepted",
		zap.String("type", string(event.Type)),
		zap.Int64("instanceID", event.InstanceID))

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, StatusResponse{Status: "accepted"})
}
