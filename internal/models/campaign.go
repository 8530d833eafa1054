package models

import (
	"database/sql"
	"time"

	"github.com/lib/pq"
)

// CampaignStatus describes the lifecycle of a bulk-send job.
type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusScheduled CampaignStatus = "scheduled"
	CampaignStatusRunning   CampaignStatus = "running"
	CampaignStatusPaused    CampaignStatus = "paused"
	CampaignStatusCompleted CampaignStatus = "completed"
)

// Campaign is a configured bulk-send job targeting a contact set through one
// or more instances. Aggregate counters always equal the count of ledger rows
// in the corresponding state and are recomputable from the ledger.
type Campaign struct {
	ID       int64          `db:"id" json:"id"`
	TenantID int64          `db:"tenant_id" json:"tenant_id"`
	Name     string         `db:"name" json:"name"`
	Template string         `db:"template" json:"template"`
	MediaURL sql.NullString `db:"media_url" json:"media_url,omitempty"`
	Status   CampaignStatus `db:"status" json:"status"`

	// Send configuration.
	InstanceIDs  pq.Int64Array  `db:"instance_ids" json:"instance_ids"`
	SendDelayMs  int            `db:"send_delay_ms" json:"send_delay_ms"`
	InstanceCap  int            `db:"instance_cap" json:"instance_cap"`
	RetryEnabled bool           `db:"retry_enabled" json:"retry_enabled"`
	MaxAttempts  int            `db:"max_attempts" json:"max_attempts"`
	TagFilter    pq.StringArray `db:"tag_filter" json:"tag_filter,omitempty"`
	DedupEnabled bool           `db:"dedup_enabled" json:"dedup_enabled"`

	// Aggregate counters mirrored from the message ledger.
	Total     int `db:"total" json:"total"`
	Sent      int `db:"sent" json:"sent"`
	Delivered int `db:"delivered" json:"delivered"`
	Failed    int `db:"failed" json:"failed"`
	Pending   int `db:"pending" json:"pending"`

	StartedAt   sql.NullTime `db:"started_at" json:"started_at,omitempty"`
	CompletedAt sql.NullTime `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updated_at"`
}

// SendDelay returns the configured per-instance delay between sends.
func (c *Campaign) SendDelay() time.Duration {
	return time.Duration(c.SendDelayMs) * time.Millisecond
}
