package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/blastline/blastline/internal/models"
	"github.com/blastline/blastline/internal/provider"
	"github.com/blastline/blastline/internal/repository"
	"github.com/blastline/blastline/internal/service"
)

// runner is the dispatch loop of one running campaign. It repeatedly picks
// an instance, claims the next pending row, waits out the instance's send
// gate and sends, until the ledger drains or the campaign leaves the running
// state.
type runner struct {
	campaignID int64
	d          *Dispatcher
	cancel     context.CancelFunc

	// sentPerInstance tracks this run's per-instance send cap. Only the
	// owning loop touches it.
	sentPerInstance map[int64]int
	rr              int
	stalled         bool
}

func (r *runner) run(ctx context.Context) {
	log := r.d.logger.With(zap.Int64("campaignID", r.campaignID))
	log.Info("Dispatch loop entered")

	for {
		if ctx.Err() != nil {
			return
		}

		campaign, err := r.d.repo.Campaign().GetByID(ctx, r.campaignID)
		if err != nil {
			log.Error("Failed to load campaign", zap.Error(err))
			if !sleepCtx(ctx, r.d.cfg.StalledWait()) {
				return
			}
			continue
		}
		if campaign.Status != models.CampaignStatusRunning {
			log.Info("Campaign left running state, loop exiting",
				zap.String("status", string(campaign.Status)))
			return
		}

		instanceID, ok := r.pickInstance(campaign)
		if !ok {
			// Not an error: a wait state. The campaign stays running and
			// makes progress again as soon as an instance reconnects or
			// frees cap.
			if !r.stalled {
				log.Warn("No connected instance under cap, campaign stalled")
				r.stalled = true
			}
			if !sleepCtx(ctx, r.d.cfg.StalledWait()) {
				return
			}
			continue
		}
		r.stalled = false

		msg, err := r.d.repo.Message().ClaimNext(ctx, r.campaignID, instanceID)
		if errors.Is(err, repository.ErrNoPendingMessages) {
			if r.finishOrWait(ctx, log) {
				return
			}
			continue
		}
		if err != nil {
			// A ledger that cannot be written is fatal for progress but
			// must leave the campaign running-but-stalled, never falsely
			// completed.
			log.Error("Failed to claim message", zap.Error(err))
			if !sleepCtx(ctx, r.d.cfg.StalledWait()) {
				return
			}
			continue
		}

		// The instance's send gate is reserved only with a claimed row in
		// hand, so an idle loop never advances the spacing shared with other
		// campaigns on the same instance.
		wait, ok := r.d.registry.ReserveSend(instanceID, campaign.SendDelay())
		if ok && wait > 0 && !sleepCtx(ctx, wait) {
			// The reserved slot never turned into a send; hand it back and
			// leave the claimed row for the sweep.
			r.d.registry.ReleaseSend(instanceID, campaign.SendDelay())
			return
		}

		r.dispatch(ctx, log, campaign, instanceID, msg)
	}
}

// pickInstance round-robins over the campaign's connected instances,
// skipping any that hit the per-run send cap.
func (r *runner) pickInstance(campaign *models.Campaign) (int64, bool) {
	connected := r.d.registry.Connected(campaign.InstanceIDs)
	if len(connected) == 0 {
		return 0, false
	}

	for i := 0; i < len(connected); i++ {
		candidate := connected[(r.rr+i)%len(connected)]
		if campaign.InstanceCap > 0 && r.sentPerInstance[candidate] >= campaign.InstanceCap {
			continue
		}
		r.rr = (r.rr + i + 1) % len(connected)
		return candidate, true
	}

	return 0, false
}

// dispatch performs one send attempt for a claimed row and records the
// outcome.
func (r *runner) dispatch(ctx context.Context, log *zap.Logger, campaign *models.Campaign, instanceID int64, msg *models.Message) {
	req := provider.SendRequest{
		To:             msg.PhoneNumber,
		Content:        msg.Content,
		IdempotencyKey: uuid.New().String(),
	}
	if campaign.MediaURL.Valid {
		req.MediaURL = campaign.MediaURL.String
	}

	providerMessageID, err := r.d.sender.Send(ctx, instanceID, req)
	if err == nil {
		if markErr := r.d.repo.Message().MarkSent(ctx, msg.ID, providerMessageID); markErr != nil {
			log.Error("Failed to mark message sent",
				zap.Int64("messageID", msg.ID),
				zap.Error(markErr))
			return
		}

		r.sentPerInstance[instanceID]++
		r.cacheProviderMessageID(ctx, providerMessageID, msg.ID)
		r.d.sink.MessageStatusChanged(campaign.ID, msg.ID, models.MessageStatusSent)

		log.Debug("Message sent",
			zap.Int64("messageID", msg.ID),
			zap.Int64("instanceID", instanceID),
			zap.String("providerMessageID", providerMessageID))
		return
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		// Shutdown or pause interrupted the send; the row stays in sending
		// and the sweep requeues it without burning an attempt.
		log.Info("Send interrupted, leaving row for requeue",
			zap.Int64("messageID", msg.ID))
		return
	}

	errorCode := provider.ErrorCode(err)
	// NotConnected past instance selection is the connecting race; treat
	// it as transient and let the row be re-picked.
	retryable := provider.IsRetryable(err)
	if errors.Is(err, service.ErrNotConnected) {
		errorCode = "NOT_CONNECTED"
		retryable = true
	}
	if errorCode == "" {
		errorCode = "SEND_FAILED"
	}

	if retryable && campaign.RetryEnabled && msg.Attempts < msg.MaxAttempts {
		nextAttemptAt := time.Now().Add(campaign.SendDelay())
		if retErr := r.d.repo.Message().ReturnToPending(ctx, msg.ID, errorCode, err.Error(), nextAttemptAt); retErr != nil {
			log.Error("Failed to return message to pending",
				zap.Int64("messageID", msg.ID),
				zap.Error(retErr))
			return
		}

		r.d.sink.MessageStatusChanged(campaign.ID, msg.ID, models.MessageStatusPending)
		log.Warn("Send failed, message queued for retry",
			zap.Int64("messageID", msg.ID),
			zap.Int("attempts", msg.Attempts),
			zap.Error(err))
		return
	}

	if failErr := r.d.repo.Message().MarkFailed(ctx, msg.ID, errorCode, err.Error()); failErr != nil {
		log.Error("Failed to mark message failed",
			zap.Int64("messageID", msg.ID),
			zap.Error(failErr))
		return
	}

	r.d.sink.MessageStatusChanged(campaign.ID, msg.ID, models.MessageStatusFailed)
	log.Warn("Message failed",
		zap.Int64("messageID", msg.ID),
		zap.Int("attempts", msg.Attempts),
		zap.Error(err))
}

// finishOrWait is reached when no pending row is due. It completes the
// campaign when no work remains at all, or idles briefly while in-flight
// sends and scheduled retries play out. Returns true when the loop should
// exit.
func (r *runner) finishOrWait(ctx context.Context, log *zap.Logger) bool {
	completed, err := r.d.repo.Campaign().CompleteIfDone(ctx, r.campaignID)
	if err != nil {
		log.Error("Failed to check campaign completion", zap.Error(err))
		return !sleepCtx(ctx, r.d.cfg.StalledWait())
	}

	if completed {
		log.Info("Campaign completed")
		r.d.sink.CampaignStatusChanged(r.campaignID, models.CampaignStatusCompleted)
		return true
	}

	return !sleepCtx(ctx, r.d.cfg.IdlePoll())
}

// cacheProviderMessageID stores the provider message id correlation so the
// webhook intake can resolve delivery updates by ledger primary key.
func (r *runner) cacheProviderMessageID(ctx context.Context, providerMessageID string, messageID int64) {
	if r.d.correlation == nil {
		return
	}
	r.d.correlation.Store(ctx, providerMessageID, messageID)
}

// sleepCtx waits d or until ctx is cancelled; it reports false on
// cancellation so callers can exit promptly without holding any claim.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
