// Package models defines data structures used throughout the application.
package models

import (
	"database/sql"
	"time"
)

// InstanceStatus describes the connection lifecycle of a messaging instance.
type InstanceStatus string

const (
	InstanceStatusDisconnected InstanceStatus = "disconnected"
	InstanceStatusConnecting   InstanceStatus = "connecting"
	InstanceStatusConnected    InstanceStatus = "connected"
	InstanceStatusBanned       InstanceStatus = "banned"
)

// Instance is one connected messaging account owned by a tenant. At most one
// live provider session exists per instance id; all status transitions go
// through the connection state machine.
type Instance struct {
	ID           int64          `db:"id" json:"id"`
	TenantID     int64          `db:"tenant_id" json:"tenant_id"`
	Name         string         `db:"name" json:"name"`
	Status       InstanceStatus `db:"status" json:"status"`
	PhoneNumber  sql.NullString `db:"phone_number" json:"phone_number,omitempty"`
	PairingCode  sql.NullString `db:"pairing_code" json:"pairing_code,omitempty"`
	LastActiveAt sql.NullTime   `db:"last_active_at" json:"last_active_at,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}
