package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/blastline/blastline/internal/models"
	"github.com/blastline/blastline/internal/service"
)

const (
	defaultMessagesPage  = 1
	defaultMessagesLimit = 50
	maxMessagesLimit     = 200
)

// MessagesResponse pages through a campaign's ledger rows.
type MessagesResponse struct {
	CampaignID int64             `json:"campaign_id"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	Messages   []*models.Message `json:"messages"`
}

// GetCampaign returns the campaign with its aggregate counters.
func (h *Handler) GetCampaign(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	campaign, err := h.service.Campaign.Get(r.Context(), campaignID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.sendError(w, r, http.StatusNotFound, errorCodeCampaignNotFound, "Campaign not found")
			return
		}
		h.sendInternalError(w, r, "Failed to load campaign", err)
		return
	}

	render.JSON(w, r, campaign)
}

// GetCampaignMessages lists ledger rows in insertion order.
func (h *Handler) GetCampaignMessages(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	page := defaultMessagesPage
	limit := defaultMessagesLimit

	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v >= 1 {
		page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v >= 1 && v <= maxMessagesLimit {
		limit = v
	}

	messages, err := h.service.Campaign.Messages(r.Context(), campaignID, page, limit)
	if err != nil {
		h.sendInternalError(w, r, "Failed to list campaign messages", err)
		return
	}

	render.JSON(w, r, MessagesResponse{
		CampaignID: campaignID,
		Page:       page,
		Limit:      limit,
		Messages:   messages,
	})
}

// RunCampaign starts the campaign and its dispatch runner.
func (h *Handler) RunCampaign(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	err := h.service.Campaign.Run(r.Context(), campaignID)
	if err != nil {
		if errors.Is(err, service.ErrCampaignNotStartable) {
			h.sendError(w, r, http.StatusConflict, errorCodeNotStartable, "Campaign cannot be started from its current state")
			return
		}
		h.sendInternalError(w, r, "Failed to start campaign", err)
		return
	}

	h.startRunner(campaignID)
	render.JSON(w, r, StatusResponse{Status: "running"})
}

// PauseCampaign stops new claims; in-flight sends finish on their own.
func (h *Handler) PauseCampaign(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	err := h.service.Campaign.Pause(r.Context(), campaignID)
	if err != nil {
		if errors.Is(err, service.ErrCampaignNotPausable) {
			h.sendError(w, r, http.StatusConflict, errorCodeNotPausable, "Campaign is not running")
			return
		}
		h.sendInternalError(w, r, "Failed to pause campaign", err)
		return
	}

	h.dispatch.StopCampaign(campaignID)
	render.JSON(w, r, StatusResponse{Status: "paused"})
}

// ResumeCampaign re-enters the dispatch loop without re-materializing.
func (h *Handler) ResumeCampaign(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	err := h.service.Campaign.Resume(r.Context(), campaignID)
	if err != nil {
		if errors.Is(err, service.ErrCampaignNotStartable) {
			h.sendError(w, r, http.StatusConflict, errorCodeNotStartable, "Campaign cannot be resumed from its current state")
			return
		}
		h.sendInternalError(w, r, "Failed to resume campaign", err)
		return
	}

	h.startRunner(campaignID)
	render.JSON(w, r, StatusResponse{Status: "running"})
}

// RecomputeCampaign rebuilds the aggregate counters from the ledger.
func (h *Handler) RecomputeCampaign(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.Campaign.Recompute(r.Context(), campaignID); err != nil {
		h.sendInternalError(w, r, "Failed to recompute campaign counters", err)
		return
	}

	render.JSON(w, r, StatusResponse{Status: "recomputed"})
}

// startRunner nudges the dispatcher now instead of waiting for the sweep.
// A failure here is not a request failure: the sweep picks the campaign up.
func (h *Handler) startRunner(campaignID int64) {
	if err := h.dispatch.StartCampaign(campaignID); err != nil {
		h.logger.Warn("Dispatcher did not start campaign runner, sweep will retry",
			zap.Int64("campaignID", campaignID),
			zap.Error(err))
	}
}
