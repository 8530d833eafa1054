package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/blastline/blastline/internal/events"
	"github.com/blastline/blastline/internal/models"
	"github.com/blastline/blastline/internal/repository"
)

type campaignService struct {
	repo   repository.Repository
	sink   events.Sink
	logger *zap.Logger
}

func NewCampaignService(
	repo repository.Repository,
	sink events.Sink,
	logger *zap.Logger,
) CampaignService {
	return &campaignService{
		repo:   repo,
		sink:   sink,
		logger: logger,
	}
}

// Run implements CampaignService.
func (s *campaignService) Run(ctx context.Context, campaignID int64) error {
	started, err := s.repo.Campaign().MarkRunning(ctx, campaignID)
	if err != nil {
		return err
	}
	if !started {
		return ErrCampaignNotStartable
	}

	inserted, err := s.materialize(ctx, campaignID)
	if err != nil {
		// The campaign stays running-but-stalled; the sweep retries
		// materialization implicitly via the idempotent bulk insert when
		// Run is issued again.
		return fmt.Errorf("failed to materialize campaign %d: %w", campaignID, err)
	}

	s.logger.Info("Campaign started",
		zap.Int64("campaignID", campaignID),
		zap.Int64("materialized", inserted))

	s.sink.CampaignStatusChanged(campaignID, models.CampaignStatusRunning)
	return nil
}

// Pause implements CampaignService.
func (s *campaignService) Pause(ctx context.Context, campaignID int64) error {
	paused, err := s.repo.Campaign().MarkPaused(ctx, campaignID)
	if err != nil {
		return err
	}
	if !paused {
		return ErrCampaignNotPausable
	}

	s.logger.Info("Campaign paused", zap.Int64("campaignID", campaignID))
	s.sink.CampaignStatusChanged(campaignID, models.CampaignStatusPaused)
	return nil
}

// Resume implements CampaignService. Ledger rows survive a pause untouched,
// so resuming only re-enters the dispatch loop; nothing is re-materialized.
func (s *campaignService) Resume(ctx context.Context, campaignID int64) error {
	started, err := s.repo.Campaign().MarkRunning(ctx, campaignID)
	if err != nil {
		return err
	}
	if !started {
		return ErrCampaignNotStartable
	}

	if err := s.repo.Campaign().RecomputeCounters(ctx, campaignID); err != nil {
		s.logger.Error("Failed to recompute counters on resume",
			zap.Int64("campaignID", campaignID),
			zap.Error(err))
	}

	s.logger.Info("Campaign resumed", zap.Int64("campaignID", campaignID))
	s.sink.CampaignStatusChanged(campaignID, models.CampaignStatusRunning)
	return nil
}

// Recompute implements CampaignService.
func (s *campaignService) Recompute(ctx context.Context, campaignID int64) error {
	return s.repo.Campaign().RecomputeCounters(ctx, campaignID)
}

// Get implements CampaignService.
func (s *campaignService) Get(ctx context.Context, campaignID int64) (*models.Campaign, error) {
	return s.repo.Campaign().GetByID(ctx, campaignID)
}

// Messages implements CampaignService.
func (s *campaignService) Messages(ctx context.Context, campaignID int64, page, limit int) ([]*models.Message, error) {
	if page < 1 {
		page = 1
	}
	return s.repo.Message().ListByCampaign(ctx, campaignID, (page-1)*limit, limit)
}

// materialize creates ledger rows for every eligible contact not already
// present for this campaign. Contact phone and name are snapshotted and the
// template rendered once, so later contact edits cannot corrupt the run.
func (s *campaignService) materialize(ctx context.Context, campaignID int64) (int64, error) {
	campaign, err := s.repo.Campaign().GetByID(ctx, campaignID)
	if err != nil {
		return 0, err
	}

	contacts, err := s.repo.Contact().ListEligible(ctx, campaign.TenantID, campaign.TagFilter, campaign.DedupEnabled)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	rows := make([]*models.Message, 0, len(contacts))
	for _, contact := range contacts {
		rows = append(rows, &models.Message{
			CampaignID:    campaign.ID,
			ContactID:     contact.ID,
			PhoneNumber:   contact.PhoneNumber,
			ContactName:   contact.Name,
			Content:       RenderTemplate(campaign.Template, contact),
			Status:        models.MessageStatusPending,
			Attempts:      0,
			MaxAttempts:   campaign.MaxAttempts,
			NextAttemptAt: now,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	}

	inserted, err := s.repo.Message().BulkInsert(ctx, rows)
	if err != nil {
		return 0, err
	}

	if err := s.repo.Campaign().RecomputeCounters(ctx, campaignID); err != nil {
		return inserted, err
	}

	return inserted, nil
}

// RenderTemplate substitutes {{name}} and {{phone}} variables with the
// contact's snapshotted values.
func RenderTemplate(template string, contact *models.Contact) string {
	replacer := strings.NewReplacer(
		"{{name}}", contact.Name,
		"{{phone}}", contact.PhoneNumber,
	)
	return replacer.Replace(template)
}
