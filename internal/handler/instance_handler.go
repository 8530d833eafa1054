package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/blastline/blastline/internal/service"
)

// PairingResponse carries the credential a client needs to authorize the
// provider session.
type PairingResponse struct {
	InstanceID  int64  `json:"instance_id"`
	PairingCode string `json:"pairing_code"`
}

// ListInstances returns every instance with its persisted connection status.
func (h *Handler) ListInstances(w http.ResponseWriter, r *http.Request) {
	instances, err := h.service.Instance.List(r.Context())
	if err != nil {
		h.sendInternalError(w, r, "Failed to list instances", err)
		return
	}

	render.JSON(w, r, instances)
}

// ConnectInstance starts the pairing flow for a disconnected instance.
func (h *Handler) ConnectInstance(w http.ResponseWriter, r *http.Request) {
	instanceID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	err := h.service.Instance.Connect(r.Context(), instanceID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInstanceNotFound):
			h.sendError(w, r, http.StatusNotFound, errorCodeInstanceNotFound, "Instance not found")
		case errors.Is(err, service.ErrAlreadyConnected):
			h.sendError(w, r, http.StatusConflict, errorCodeAlreadyConnected, "Instance is already connected")
		case errors.Is(err, service.ErrInstanceBanned):
			h.sendError(w, r, http.StatusConflict, errorCodeInstanceBanned, "Instance is banned; delete and recreate it")
		default:
			h.sendInternalError(w, r, "Failed to connect instance", err)
		}
		return
	}

	render.JSON(w, r, StatusResponse{Status: "connecting"})
}

// DisconnectInstance tears down the instance's session. Idempotent.
func (h *Handler) DisconnectInstance(w http.ResponseWriter, r *http.Request) {
	instanceID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	err := h.service.Instance.Disconnect(r.Context(), instanceID)
	if err != nil {
		if errors.Is(err, service.ErrInstanceNotFound) {
			h.sendError(w, r, http.StatusNotFound, errorCodeInstanceNotFound, "Instance not found")
			return
		}
		h.sendInternalError(w, r, "Failed to disconnect instance", err)
		return
	}

	render.JSON(w, r, StatusResponse{Status: "disconnected"})
}

// GetPairingCredential returns the pairing code while the instance is
// connecting.
func (h *Handler) GetPairingCredential(w http.ResponseWriter, r *http.Request) {
	instanceID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	code, err := h.service.Instance.PairingCredential(r.Context(), instanceID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInstanceNotFound):
			h.sendError(w, r, http.StatusNotFound, errorCodeInstanceNotFound, "Instance not found")
		case errors.Is(err, service.ErrNotConnecting):
			h.sendError(w, r, http.StatusConflict, errorCodeNotConnecting, "Instance is not pairing")
		case errors.Is(err, service.ErrNotReady):
			h.sendError(w, r, http.StatusNotFound, errorCodePairingNotReady, "Pairing credential not available yet")
		default:
			h.sendInternalError(w, r, "Failed to fetch pairing credential", err)
		}
		return
	}

	render.JSON(w, r, PairingResponse{
		InstanceID:  instanceID,
		PairingCode: code,
	})
}

// DeleteInstance removes the instance after best-effort remote teardown.
func (h *Handler) DeleteInstance(w http.ResponseWriter, r *http.Request) {
	instanceID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	err := h.service.Instance.Delete(r.Context(), instanceID)
	if err != nil {
		if errors.Is(err, service.ErrInstanceNotFound) {
			h.sendError(w, r, http.StatusNotFound, errorCodeInstanceNotFound, "Instance not found")
			return
		}
		h.sendInternalError(w, r, "Failed to delete instance", err)
		return
	}

	render.JSON(w, r, StatusResponse{Status: "deleted"})
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.sendError(w, r, http.StatusBadRequest, errorCodeInvalidID, "Path id must be a positive integer")
		return 0, false
	}
	return id, true
}
