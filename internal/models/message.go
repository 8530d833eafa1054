package models

import (
	"database/sql"
	"time"
)

// MessageStatus describes the dispatch state of a single ledger row.
type MessageStatus string

const (
	MessageStatusPending   MessageStatus = "pending"
	MessageStatusSending   MessageStatus = "sending"
	MessageStatusSent      MessageStatus = "sent"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusRead      MessageStatus = "read"
	MessageStatusFailed    MessageStatus = "failed"
)

// Message is one ledger row: the per-recipient unit of dispatch work and its
// outcome, unique per (campaign_id, contact_id). Phone and name are
// snapshotted at materialization so contact edits never corrupt a running
// campaign.
type Message struct {
	ID         int64         `db:"id" json:"id"`
	CampaignID int64         `db:"campaign_id" json:"campaign_id"`
	ContactID  int64         `db:"contact_id" json:"contact_id"`
	InstanceID sql.NullInt64 `db:"instance_id" json:"instance_id,omitempty"`

	PhoneNumber string `db:"phone_number" json:"phone_number"`
	ContactName string `db:"contact_name" json:"contact_name"`
	Content     string `db:"content" json:"content"`

	Status      MessageStatus `db:"status" json:"status"`
	Attempts    int           `db:"attempts" json:"attempts"`
	MaxAttempts int           `db:"max_attempts" json:"max_attempts"`

	ProviderMessageID sql.NullString `db:"provider_message_id" json:"provider_message_id,omitempty"`
	ErrorCode         sql.NullString `db:"error_code" json:"error_code,omitempty"`
	ErrorMessage      sql.NullString `db:"error_message" json:"error_message,omitempty"`

	NextAttemptAt time.Time    `db:"next_attempt_at" json:"next_attempt_at"`
	SentAt        sql.NullTime `db:"sent_at" json:"sent_at,omitempty"`
	DeliveredAt   sql.NullTime `db:"delivered_at" json:"delivered_at,omitempty"`
	FailedAt      sql.NullTime `db:"failed_at" json:"failed_at,omitempty"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time    `db:"updated_at" json:"updated_at"`
}
