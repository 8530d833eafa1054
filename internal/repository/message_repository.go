package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/blastline/blastline/internal/models"
)

type messageRepository struct {
	db *sqlx.DB
}

func NewMessageRepository(db *sqlx.DB) MessageRepository {
	return &messageRepository{
		db: db,
	}
}

const messageColumns = `id, campaign_id, contact_id, instance_id,
	phone_number, contact_name, content,
	status, attempts, max_attempts,
	provider_message_id, error_code, error_message,
	next_attempt_at, sent_at, delivered_at, failed_at, created_at, updated_at`

// BulkInsert materializes ledger rows. ON CONFLICT DO NOTHING enforces the
// (campaign_id, contact_id) uniqueness invariant, so duplicates from a
// re-run are skipped rather than fatal.
func (r *messageRepository) BulkInsert(ctx context.Context, rows []*models.Message) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO campaign_messages
			(campaign_id, contact_id, phone_number, contact_name, content,
			 status, attempts, max_attempts, next_attempt_at, created_at, updated_at)
		VALUES
			(:campaign_id, :contact_id, :phone_number, :contact_name, :content,
			 :status, :attempts, :max_attempts, :next_attempt_at, :created_at, :updated_at)
		ON CONFLICT (campaign_id, contact_id) DO NOTHING
	`

	res, err := r.db.NamedExecContext(ctx, query, rows)
	if err != nil {
		return 0, fmt.Errorf("failed to materialize ledger rows: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return inserted, nil
}

// ClaimNext performs the atomic pending -> sending claim. FOR UPDATE SKIP
// LOCKED plus the status predicate make the claim a conditional write: a
// row can be moved to sending by exactly one loop, surviving process
// restarts, and rows wait out next_attempt_at before being re-picked.
func (r *messageRepository) ClaimNext(ctx context.Context, campaignID, instanceID int64) (*models.Message, error) {
	query := fmt.Sprintf(`
		UPDATE campaign_messages
		SET status = $3,
		    attempts = attempts + 1,
		    instance_id = $2,
		    updated_at = $4
		WHERE id = (
			SELECT id FROM campaign_messages
			WHERE campaign_id = $1 AND status = $5 AND next_attempt_at <= $4
			ORDER BY id
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING %s
	`, messageColumns)

	var msg models.Message
	err := r.db.GetContext(ctx, &msg, query, campaignID, instanceID,
		models.MessageStatusSending, time.Now(), models.MessageStatusPending)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoPendingMessages
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim message: %w", err)
	}

	return &msg, nil
}

// MarkSent records a successful send. The campaign's sent/pending counters
// move in the same transaction as the row so aggregates never drift.
func (r *messageRepository) MarkSent(ctx context.Context, id int64, providerMessageID string) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		now := time.Now()

		res, err := tx.ExecContext(ctx, `
			UPDATE campaign_messages
			SET status = $2, provider_message_id = $3, sent_at = $4, updated_at = $4,
			    error_code = NULL, error_message = NULL
			WHERE id = $1 AND status = $5
		`, id, models.MessageStatusSent, providerMessageID, now, models.MessageStatusSending)
		if err != nil {
			return fmt.Errorf("failed to mark message sent: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}
		if affected == 0 {
			return nil
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE campaigns SET sent = sent + 1, pending = pending - 1, updated_at = $2
			WHERE id = (SELECT campaign_id FROM campaign_messages WHERE id = $1)
		`, id, now)
		if err != nil {
			return fmt.Errorf("failed to update campaign counters: %w", err)
		}

		return nil
	})
}

// MarkFailed records a terminal failure after exhausted attempts or a
// non-retryable rejection.
func (r *messageRepository) MarkFailed(ctx context.Context, id int64, errorCode, errorMessage string) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		now := time.Now()

		res, err := tx.ExecContext(ctx, `
			UPDATE campaign_messages
			SET status = $2, error_code = $3, error_message = $4, failed_at = $5, updated_at = $5
			WHERE id = $1 AND status = $6
		`, id, models.MessageStatusFailed, errorCode, errorMessage, now, models.MessageStatusSending)
		if err != nil {
			return fmt.Errorf("failed to mark message failed: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}
		if affected == 0 {
			return nil
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE campaigns SET failed = failed + 1, pending = pending - 1, updated_at = $2
			WHERE id = (SELECT campaign_id FROM campaign_messages WHERE id = $1)
		`, id, now)
		if err != nil {
			return fmt.Errorf("failed to update campaign counters: %w", err)
		}

		return nil
	})
}

// ReturnToPending puts a sending row back in line for a retry. The attempt
// stays counted; next_attempt_at enforces the inter-message delay before the
// row may be re-picked. Counters are untouched because pending covers both
// pending and sending rows.
func (r *messageRepository) ReturnToPending(ctx context.Context, id int64, errorCode, errorMessage string, nextAttemptAt time.Time) error {
	query := `
		UPDATE campaign_messages
		SET status = $2, error_code = $3, error_message = $4,
		    provider_message_id = NULL, next_attempt_at = $5, updated_at = $6
		WHERE id = $1 AND status = $7
	`

	_, err := r.db.ExecContext(ctx, query, id, models.MessageStatusPending,
		errorCode, errorMessage, nextAttemptAt, time.Now(), models.MessageStatusSending)
	if err != nil {
		return fmt.Errorf("failed to return message to pending: %w", err)
	}

	return nil
}

// MarkDelivered applies an asynchronous delivery update. A row qualifies
// only while it still holds the correlated provider message id in a sent (or
// delivered, for read receipts) state; anything else means the event is late
// or unmatched and is discarded by returning (nil, nil).
func (r *messageRepository) MarkDelivered(ctx context.Context, providerMessageID string, status models.MessageStatus) (*models.Message, error) {
	if status != models.MessageStatusDelivered && status != models.MessageStatusRead {
		return nil, fmt.Errorf("invalid delivery status %q", status)
	}

	var msg *models.Message
	err := r.inTx(ctx, func(tx *sqlx.Tx) error {
		var current models.Message
		err := tx.GetContext(ctx, &current, fmt.Sprintf(`
			SELECT %s FROM campaign_messages
			WHERE provider_message_id = $1
			FOR UPDATE
		`, messageColumns), providerMessageID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load message for delivery update: %w", err)
		}

		msg, err = r.deliverTx(ctx, tx, &current, status)
		return err
	})
	if err != nil {
		return nil, err
	}

	return msg, nil
}

// MarkDeliveredByID applies a delivery update to a row identified by primary
// key, typically resolved from the correlation cache. The provider message id
// is re-verified under the row lock so a stale cache entry can never deliver
// the wrong row.
func (r *messageRepository) MarkDeliveredByID(ctx context.Context, id int64, providerMessageID string, status models.MessageStatus) (*models.Message, error) {
	if status != models.MessageStatusDelivered && status != models.MessageStatusRead {
		return nil, fmt.Errorf("invalid delivery status %q", status)
	}

	var msg *models.Message
	err := r.inTx(ctx, func(tx *sqlx.Tx) error {
		var current models.Message
		err := tx.GetContext(ctx, &current, fmt.Sprintf(`
			SELECT %s FROM campaign_messages
			WHERE id = $1
			FOR UPDATE
		`, messageColumns), id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load message for delivery update: %w", err)
		}

		if !current.ProviderMessageID.Valid || current.ProviderMessageID.String != providerMessageID {
			return nil
		}

		msg, err = r.deliverTx(ctx, tx, &current, status)
		return err
	})
	if err != nil {
		return nil, err
	}

	return msg, nil
}

// deliverTx transitions a locked row for a delivery update, returning nil
// for rows no longer in a matching state so late events are discarded.
func (r *messageRepository) deliverTx(ctx context.Context, tx *sqlx.Tx, current *models.Message, status models.MessageStatus) (*models.Message, error) {
	now := time.Now()

	fromSent := current.Status == models.MessageStatusSent
	fromDelivered := current.Status == models.MessageStatusDelivered && status == models.MessageStatusRead
	if !fromSent && !fromDelivered {
		return nil, nil
	}

	_, err := tx.ExecContext(ctx, `
		UPDATE campaign_messages
		SET status = $2, delivered_at = COALESCE(delivered_at, $3), updated_at = $3
		WHERE id = $1
	`, current.ID, status, now)
	if err != nil {
		return nil, fmt.Errorf("failed to apply delivery update: %w", err)
	}

	// The delivered counter counts rows first confirmed, so a read receipt
	// on an already delivered row does not double count.
	if fromSent {
		_, err = tx.ExecContext(ctx, `
			UPDATE campaigns SET delivered = delivered + 1, updated_at = $2 WHERE id = $1
		`, current.CampaignID, now)
		if err != nil {
			return nil, fmt.Errorf("failed to update campaign counters: %w", err)
		}
	}

	current.Status = status
	return current, nil
}

// CountActive reports remaining work for the campaign.
func (r *messageRepository) CountActive(ctx context.Context, campaignID int64) (int64, int64, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = $2) AS pending,
			COUNT(*) FILTER (WHERE status = $3) AS sending
		FROM campaign_messages
		WHERE campaign_id = $1
	`

	var counts struct {
		Pending int64 `db:"pending"`
		Sending int64 `db:"sending"`
	}
	err := r.db.GetContext(ctx, &counts, query, campaignID,
		models.MessageStatusPending, models.MessageStatusSending)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count active messages: %w", err)
	}

	return counts.Pending, counts.Sending, nil
}

// RequeueStuck recovers rows a crashed loop left in sending. The attempt
// already counted at claim time stays counted.
func (r *messageRepository) RequeueStuck(ctx context.Context, olderThan time.Duration) (int64, error) {
	query := `
		UPDATE campaign_messages
		SET status = $1, next_attempt_at = $2, updated_at = $2
		WHERE status = $3 AND updated_at < $4
	`

	now := time.Now()
	res, err := r.db.ExecContext(ctx, query, models.MessageStatusPending, now,
		models.MessageStatusSending, now.Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("failed to requeue stuck messages: %w", err)
	}

	requeued, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return requeued, nil
}

// ListByCampaign retrieves ledger rows for display, in insertion order.
func (r *messageRepository) ListByCampaign(ctx context.Context, campaignID int64, offset, limit int) ([]*models.Message, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM campaign_messages
		WHERE campaign_id = $1
		ORDER BY id
		LIMIT $2 OFFSET $3
	`, messageColumns)

	var messages []*models.Message
	if err := r.db.SelectContext(ctx, &messages, query, campaignID, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list campaign messages: %w", err)
	}

	return messages, nil
}

func (r *messageRepository) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
