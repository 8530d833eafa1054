// Package handler provides HTTP request handlers for the application.
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/blastline/blastline/internal/middleware"
	"github.com/blastline/blastline/internal/service"
)

const (
	errorCodeInvalidID        = "INVALID_ID"
	errorCodeInvalidBody      = "INVALID_BODY"
	errorCodeInstanceNotFound = "INSTANCE_NOT_FOUND"
	errorCodeCampaignNotFound = "CAMPAIGN_NOT_FOUND"
	errorCodeAlreadyConnected = "ALREADY_CONNECTED"
	errorCodeInstanceBanned   = "INSTANCE_BANNED"
	errorCodeNotConnecting    = "NOT_CONNECTING"
	errorCodePairingNotReady  = "PAIRING_NOT_READY"
	errorCodeNotStartable     = "CAMPAIGN_NOT_STARTABLE"
	errorCodeNotPausable      = "CAMPAIGN_NOT_PAUSABLE"
)

// DispatchControl is the slice of the dispatcher the HTTP layer drives:
// campaign lifecycle endpoints start and stop runners without waiting for
// the next sweep.
type DispatchControl interface {
	StartCampaign(campaignID int64) error
	StopCampaign(campaignID int64)
}

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// StatusResponse acknowledges a lifecycle transition.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type Handler struct {
	service  *service.Service
	dispatch DispatchControl
	logger   *zap.Logger
}

func NewHandler(service *service.Service, dispatch DispatchControl, logger *zap.Logger) *Handler {
	return &Handler{
		service:  service,
		dispatch: dispatch,
		logger:   logger,
	}
}

// Routes registers every API route on r. Webhook authentication is wired by
// the caller so the token stays out of this package.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/health", h.HealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/instances", func(r chi.Router) {
			r.Get("/", h.ListInstances)
			r.Post("/{id}/connect", h.ConnectInstance)
			r.Post("/{id}/disconnect", h.DisconnectInstance)
			r.Get("/{id}/pairing", h.GetPairingCredential)
			r.Delete("/{id}", h.DeleteInstance)
		})

		r.Route("/campaigns", func(r chi.Router) {
			r.Get("/{id}", h.GetCampaign)
			r.Get("/{id}/messages", h.GetCampaignMessages)
			r.Post("/{id}/run", h.RunCampaign)
			r.Post("/{id}/pause", h.PauseCampaign)
			r.Post("/{id}/resume", h.ResumeCampaign)
			r.Post("/{id}/recompute", h.RecomputeCampaign)
		})
	})
}

// HealthCheck reports component health. Unhealthy returns 503 so load
// balancers drain the node; degraded stays 200 for monitoring to pick up.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := h.service.Health.GetHealth()

	if health.Status == service.HealthStatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	render.JSON(w, r, health)
}

func (h *Handler) sendError(w http.ResponseWriter, r *http.Request, statusCode int, errorCode, message string) {
	render.Status(r, statusCode)
	render.JSON(w, r, ErrorResponse{
		Error:     errorCode,
		Message:   message,
		Timestamp: time.Now(),
	})
}

func (h *Handler) sendInternalError(w http.ResponseWriter, r *http.Request, message string, err error) {
	h.logger.Error(message,
		zap.String("request_id", middleware.GetRequestID(r.Context())),
		zap.Error(err))
	h.sendError(w, r, http.StatusInternalServerError, middleware.ErrorCodeInternal, message)
}
