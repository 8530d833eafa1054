package models

import (
	"time"

	"github.com/lib/pq"
)

// Contact is owned by the tenant CRUD layer; the dispatch engine only reads
// it and snapshots phone/name into ledger rows at materialization.
type Contact struct {
	ID          int64          `db:"id" json:"id"`
	TenantID    int64          `db:"tenant_id" json:"tenant_id"`
	PhoneNumber string         `db:"phone_number" json:"phone_number"`
	Name        string         `db:"name" json:"name"`
	Tags        pq.StringArray `db:"tags" json:"tags"`
	Blacklisted bool           `db:"blacklisted" json:"blacklisted"`
	Active      bool           `db:"active" json:"active"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}
