package repository

import (
	"context"
	"time"

	"github.com/blastline/blastline/internal/models"
)

// Repository interface defines all repository operations.
type Repository interface {
	// Ping checks database connectivity
	Ping() error

	// Instance returns the instance repository
	Instance() InstanceRepository

	// Campaign returns the campaign repository
	Campaign() CampaignRepository

	// Message returns the message ledger repository
	Message() MessageRepository

	// Contact returns the contact repository
	Contact() ContactRepository
}

// InstanceRepository persists the durable mirror of instance connection
// state. Transitions are driven exclusively by the connection state machine.
type InstanceRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Instance, error)
	List(ctx context.Context) ([]*models.Instance, error)
	SetStatus(ctx context.Context, id int64, status models.InstanceStatus) error
	SetPairingCode(ctx context.Context, id int64, code string) error
	SetIdentity(ctx context.Context, id int64, phoneNumber string) error
	Delete(ctx context.Context, id int64) error
}

// CampaignRepository persists campaigns and their aggregate counters.
type CampaignRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Campaign, error)
	ListByStatus(ctx context.Context, status models.CampaignStatus) ([]*models.Campaign, error)

	// MarkRunning moves a draft/scheduled/paused campaign to running.
	// Returns false when the campaign was not in a startable state.
	MarkRunning(ctx context.Context, id int64) (bool, error)

	// MarkPaused moves a running campaign to paused. Returns false when the
	// campaign was not running.
	MarkPaused(ctx context.Context, id int64) (bool, error)

	// CompleteIfDone moves a running campaign to completed only when no
	// pending or sending ledger rows remain. Returns true when the
	// transition happened.
	CompleteIfDone(ctx context.Context, id int64) (bool, error)

	// RecomputeCounters rebuilds the aggregate counters from ledger rows.
	RecomputeCounters(ctx context.Context, id int64) error
}

// MessageRepository is the message ledger: one durable row per
// (campaign, contact) pair and the source of truth for dispatch progress.
// Row transitions update the parent campaign's counters in the same
// transaction so aggregates never drift from rows.
type MessageRepository interface {
	// BulkInsert materializes ledger rows, silently skipping rows that
	// violate the (campaign_id, contact_id) uniqueness invariant so
	// re-running materialization is idempotent. Returns the number of rows
	// actually inserted.
	BulkInsert(ctx context.Context, rows []*models.Message) (int64, error)

	// ClaimNext atomically moves the oldest due pending row of the campaign
	// to sending, incrementing its attempt counter and recording the
	// instance it was assigned to. The claim is a single conditional update
	// so concurrent loops (or a crash-recovery restart racing the original
	// loop) can never double-claim a row. Returns ErrNoPendingMessages when
	// nothing is due.
	ClaimNext(ctx context.Context, campaignID, instanceID int64) (*models.Message, error)

	// MarkSent records a successful send and the provider message id.
	MarkSent(ctx context.Context, id int64, providerMessageID string) error

	// MarkFailed records a terminal failure.
	MarkFailed(ctx context.Context, id int64, errorCode, errorMessage string) error

	// ReturnToPending puts a sending row back in line for a later attempt,
	// not before nextAttemptAt.
	ReturnToPending(ctx context.Context, id int64, errorCode, errorMessage string, nextAttemptAt time.Time) error

	// MarkDelivered applies a provider delivery update correlated by
	// provider message id. Rows no longer in a matching state are left
	// untouched and (nil, nil) is returned so late events are discarded.
	MarkDelivered(ctx context.Context, providerMessageID string, status models.MessageStatus) (*models.Message, error)

	// MarkDeliveredByID is the primary-key variant of MarkDelivered, fed by
	// the correlation cache. The row must still carry providerMessageID;
	// a stale id reports (nil, nil) so callers fall back to MarkDelivered.
	MarkDeliveredByID(ctx context.Context, id int64, providerMessageID string, status models.MessageStatus) (*models.Message, error)

	// CountActive reports how many rows of the campaign are still pending
	// or sending.
	CountActive(ctx context.Context, campaignID int64) (pending int64, sending int64, err error)

	// RequeueStuck returns rows stuck in sending longer than olderThan back
	// to pending; used by the sweep to recover from crashes mid-send.
	RequeueStuck(ctx context.Context, olderThan time.Duration) (int64, error)

	ListByCampaign(ctx context.Context, campaignID int64, offset, limit int) ([]*models.Message, error)
}

// ContactRepository is read-only from the core's perspective; contacts are
// owned by the tenant CRUD layer.
type ContactRepository interface {
	// ListEligible returns active, non-blacklisted contacts of the tenant,
	// optionally narrowed to tags and deduplicated by phone number.
	ListEligible(ctx context.Context, tenantID int64, tagFilter []string, dedup bool) ([]*models.Contact, error)
}
