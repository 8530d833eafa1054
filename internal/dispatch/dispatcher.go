// Package dispatch implements the campaign dispatch engine: one worker loop
// per running campaign, converting pending ledger rows into provider sends
// while respecting per-instance rate limits and recording every outcome
// durably. The engine is crash-recoverable: all claims go through the
// ledger's atomic conditional update, so a restart resumes pending rows and
// never double-sends.
package dispatch

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/blastline/blastline/internal/config"
	"github.com/blastline/blastline/internal/events"
	"github.com/blastline/blastline/internal/models"
	"github.com/blastline/blastline/internal/provider"
	"github.com/blastline/blastline/internal/registry"
	"github.com/blastline/blastline/internal/repository"
)

var (
	ErrDispatcherAlreadyRunning = errors.New("dispatcher is already running")
	ErrDispatcherNotRunning     = errors.New("dispatcher is not running")
)

// Sender delivers one message through a connected instance; implemented by
// the connection state machine.
type Sender interface {
	Send(ctx context.Context, instanceID int64, req provider.SendRequest) (string, error)
}

// CorrelationStore records which ledger row a provider message id belongs
// to, read back by the webhook intake when delivery updates arrive.
type CorrelationStore interface {
	Store(ctx context.Context, providerMessageID string, messageID int64)
}

// Dispatcher supervises the per-campaign runner loops. Runners are
// reconciled against the set of running campaigns by Sweep, which doubles
// as the crash-recovery path on startup.
type Dispatcher struct {
	cfg         *config.DispatchConfig
	repo        repository.Repository
	registry    *registry.Registry
	sender      Sender
	sink        events.Sink
	correlation CorrelationStore
	logger      *zap.Logger

	mu      sync.Mutex
	baseCtx context.Context
	running bool
	runners map[int64]*runner
	wg      sync.WaitGroup
}

func NewDispatcher(
	cfg *config.DispatchConfig,
	repo repository.Repository,
	reg *registry.Registry,
	sender Sender,
	sink events.Sink,
	correlation CorrelationStore,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		cfg:         cfg,
		repo:        repo,
		registry:    reg,
		sender:      sender,
		sink:        sink,
		correlation: correlation,
		logger:      logger,
		runners:     make(map[int64]*runner),
	}
}

// Start makes the dispatcher accept campaigns. Runner goroutines inherit
// ctx, so cancelling it stops every loop.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return ErrDispatcherAlreadyRunning
	}

	d.baseCtx = ctx
	d.running = true
	d.logger.Info("Dispatcher started")
	return nil
}

// Stop cancels all runner loops and waits for them to drain. In-flight
// sends finish; no new rows are claimed.
func (d *Dispatcher) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return ErrDispatcherNotRunning
	}
	d.running = false
	for _, r := range d.runners {
		r.cancel()
	}
	d.runners = make(map[int64]*runner)
	d.mu.Unlock()

	d.wg.Wait()
	d.logger.Info("Dispatcher stopped")
	return nil
}

// IsRunning reports whether the dispatcher accepts campaigns.
func (d *Dispatcher) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// ActiveCampaigns reports how many runner loops are live.
func (d *Dispatcher) ActiveCampaigns() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.runners)
}

// StartCampaign ensures a runner loop exists for the campaign.
func (d *Dispatcher) StartCampaign(campaignID int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return ErrDispatcherNotRunning
	}
	if _, exists := d.runners[campaignID]; exists {
		return nil
	}

	ctx, cancel := context.WithCancel(d.baseCtx)
	r := &runner{
		campaignID:      campaignID,
		d:               d,
		cancel:          cancel,
		sentPerInstance: make(map[int64]int),
	}
	d.runners[campaignID] = r

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer d.removeRunner(campaignID)
		r.run(ctx)
	}()

	d.logger.Info("Campaign runner started", zap.Int64("campaignID", campaignID))
	return nil
}

// StopCampaign cancels the campaign's runner promptly; the loop stops
// claiming new rows, an in-flight send is allowed to finish.
func (d *Dispatcher) StopCampaign(campaignID int64) {
	d.mu.Lock()
	r, ok := d.runners[campaignID]
	if ok {
		delete(d.runners, campaignID)
	}
	d.mu.Unlock()

	if ok {
		r.cancel()
	}
}

// Sweep reconciles runner loops with the set of running campaigns and
// requeues rows a crashed loop left in sending. Driven periodically by the
// scheduler; the first sweep after boot is what resumes campaigns that were
// running when the previous process died.
func (d *Dispatcher) Sweep(ctx context.Context) error {
	requeued, err := d.repo.Message().RequeueStuck(ctx, d.cfg.SendingTTL())
	if err != nil {
		d.logger.Error("Failed to requeue stuck messages", zap.Error(err))
	} else if requeued > 0 {
		d.logger.Warn("Requeued messages stuck in sending", zap.Int64("count", requeued))
	}

	campaigns, err := d.repo.Campaign().ListByStatus(ctx, models.CampaignStatusRunning)
	if err != nil {
		return err
	}

	for _, c := range campaigns {
		if err := d.StartCampaign(c.ID); err != nil {
			if errors.Is(err, ErrDispatcherNotRunning) {
				return err
			}
			d.logger.Error("Failed to start campaign runner",
				zap.Int64("campaignID", c.ID),
				zap.Error(err))
		}
	}

	return nil
}

func (d *Dispatcher) removeRunner(campaignID int64) {
	d.mu.Lock()
	delete(d.runners, campaignID)
	d.mu.Unlock()
}
