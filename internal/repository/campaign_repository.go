package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/blastline/blastline/internal/models"
)

type campaignRepository struct {
	db *sqlx.DB
}

func NewCampaignRepository(db *sqlx.DB) CampaignRepository {
	return &campaignRepository{
		db: db,
	}
}

const campaignColumns = `id, tenant_id, name, template, media_url, status,
	instance_ids, send_delay_ms, instance_cap, retry_enabled, max_attempts,
	tag_filter, dedup_enabled,
	total, sent, delivered, failed, pending,
	started_at, completed_at, created_at, updated_at`

// GetByID retrieves a campaign by id.
func (r *campaignRepository) GetByID(ctx context.Context, id int64) (*models.Campaign, error) {
	query := fmt.Sprintf(`SELECT %s FROM campaigns WHERE id = $1`, campaignColumns)

	var c models.Campaign
	if err := r.db.GetContext(ctx, &c, query, id); err != nil {
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}

	return &c, nil
}

// ListByStatus retrieves campaigns in the given status, oldest first.
func (r *campaignRepository) ListByStatus(ctx context.Context, status models.CampaignStatus) ([]*models.Campaign, error) {
	query := fmt.Sprintf(`SELECT %s FROM campaigns WHERE status = $1 ORDER BY id`, campaignColumns)

	var campaigns []*models.Campaign
	if err := r.db.SelectContext(ctx, &campaigns, query, status); err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}

	return campaigns, nil
}

// MarkRunning moves a startable campaign to running.
func (r *campaignRepository) MarkRunning(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE campaigns
		SET status = $2,
		    started_at = COALESCE(started_at, $3),
		    updated_at = $3
		WHERE id = $1 AND status IN ($4, $5, $6)
	`

	res, err := r.db.ExecContext(ctx, query, id, models.CampaignStatusRunning, time.Now(),
		models.CampaignStatusDraft, models.CampaignStatusScheduled, models.CampaignStatusPaused)
	if err != nil {
		return false, fmt.Errorf("failed to mark campaign running: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return affected == 1, nil
}

// MarkPaused moves a running campaign to paused.
func (r *campaignRepository) MarkPaused(ctx context.Context, id int64) (bool, error) {
	query := `UPDATE campaigns SET status = $2, updated_at = $3 WHERE id = $1 AND status = $4`

	res, err := r.db.ExecContext(ctx, query, id, models.CampaignStatusPaused, time.Now(), models.CampaignStatusRunning)
	if err != nil {
		return false, fmt.Errorf("failed to mark campaign paused: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return affected == 1, nil
}

// CompleteIfDone conditionally completes the campaign. The NOT EXISTS guard
// and the status check make the transition safe against a concurrent resume
// or a late materialization.
func (r *campaignRepository) CompleteIfDone(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE campaigns
		SET status = $2, completed_at = $3, updated_at = $3
		WHERE id = $1
		  AND status = $4
		  AND NOT EXISTS (
			SELECT 1 FROM campaign_messages
			WHERE campaign_id = $1 AND status IN ($5, $6)
		  )
	`

	res, err := r.db.ExecContext(ctx, query, id, models.CampaignStatusCompleted, time.Now(),
		models.CampaignStatusRunning, models.MessageStatusPending, models.MessageStatusSending)
	if err != nil {
		return false, fmt.Errorf("failed to complete campaign: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return affected == 1, nil
}

// RecomputeCounters rebuilds aggregates from the ledger. Rows that advanced
// past sent (delivered, read) still count as sent so that
// sent + failed + pending == total holds at every observation point.
func (r *campaignRepository) RecomputeCounters(ctx context.Context, id int64) error {
	query := `
		UPDATE campaigns SET
			total = agg.total,
			sent = agg.sent,
			delivered = agg.delivered,
			failed = agg.failed,
			pending = agg.pending,
			updated_at = $2
		FROM (
			SELECT
				COUNT(*) AS total,
				COUNT(*) FILTER (WHERE status IN ('sent', 'delivered', 'read')) AS sent,
				COUNT(*) FILTER (WHERE status IN ('delivered', 'read')) AS delivered,
				COUNT(*) FILTER (WHERE status = 'failed') AS failed,
				COUNT(*) FILTER (WHERE status IN ('pending', 'sending')) AS pending
			FROM campaign_messages
			WHERE campaign_id = $1
		) AS agg
		WHERE campaigns.id = $1
	`

	if _, err := r.db.ExecContext(ctx, query, id, time.Now()); err != nil {
		return fmt.Errorf("failed to recompute campaign counters: %w", err)
	}

	return nil
}
