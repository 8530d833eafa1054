package service

import (
	"context"

	"github.com/blastline/blastline/internal/models"
	"github.com/blastline/blastline/internal/provider"
)

// InstanceService is the connection state machine: it owns every transition
// of an instance's connection status, consuming provider events and exposing
// connect/disconnect/send operations.
type InstanceService interface {
	// Connect starts pairing: disconnected -> connecting. Fails with
	// ErrAlreadyConnected when the instance is already connected and
	// ErrInstanceBanned for a banned instance.
	Connect(ctx context.Context, instanceID int64) error

	// Disconnect is idempotent: it tears down a live session when one
	// exists and always leaves local status disconnected, even when the
	// remote teardown fails (the error is still reported).
	Disconnect(ctx context.Context, instanceID int64) error

	// PairingCredential returns the credential needed to authorize the
	// session, valid only while connecting. Fetches on demand from the
	// provider when nothing is cached; ErrNotReady when the provider has
	// nothing yet.
	PairingCredential(ctx context.Context, instanceID int64) (string, error)

	// Send delivers one message through a connected instance and returns
	// the provider-assigned message id. ErrNotConnected otherwise.
	Send(ctx context.Context, instanceID int64, req provider.SendRequest) (string, error)

	// HandleProviderEvent is the single entry point for asynchronous
	// provider notifications. Events for unknown instances are logged and
	// discarded, never surfaced to the caller.
	HandleProviderEvent(ctx context.Context, event *models.ProviderEvent)

	// Delete performs best-effort teardown (disconnect, remove the remote
	// session) and then discards local state; local deletion is
	// authoritative and proceeds even when remote steps fail.
	Delete(ctx context.Context, instanceID int64) error

	// List returns all instances with their persisted connection status.
	List(ctx context.Context) ([]*models.Instance, error)
}

// CampaignService drives campaign lifecycle transitions and ledger
// materialization.
type CampaignService interface {
	// Run moves the campaign to running and materializes ledger rows for
	// all eligible contacts not already present. Materialization is
	// idempotent.
	Run(ctx context.Context, campaignID int64) error

	// Pause stops the campaign claiming new rows; in-flight sends finish.
	Pause(ctx context.Context, campaignID int64) error

	// Resume re-enters the dispatch loop without re-materializing rows.
	Resume(ctx context.Context, campaignID int64) error

	// Recompute rebuilds the campaign's aggregate counters from the ledger.
	Recompute(ctx context.Context, campaignID int64) error

	// Get returns the campaign with its last-committed aggregate counters.
	Get(ctx context.Context, campaignID int64) (*models.Campaign, error)

	// Messages pages through the campaign's ledger rows in insertion order.
	Messages(ctx context.Context, campaignID int64, page, limit int) ([]*models.Message, error)
}

// HealthService reports component health.
type HealthService interface {
	GetHealth() *HealthStatus
}
