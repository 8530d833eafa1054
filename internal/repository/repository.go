// Package repository provides PostgreSQL persistence for instances,
// campaigns, the message ledger and contacts.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

// ErrNoPendingMessages signals an empty claim: no pending ledger row of the
// campaign is due yet.
var ErrNoPendingMessages = errors.New("no pending messages due")

// repositoryImpl is the concrete implementation of Repository interface.
type repositoryImpl struct {
	db       *sqlx.DB
	instance InstanceRepository
	campaign CampaignRepository
	message  MessageRepository
	contact  ContactRepository
}

// NewRepository creates a new repository instance.
func NewRepository(db *sqlx.DB) Repository {
	return &repositoryImpl{
		db:       db,
		instance: NewInstanceRepository(db),
		campaign: NewCampaignRepository(db),
		message:  NewMessageRepository(db),
		contact:  NewContactRepository(db),
	}
}

// Instance returns the instance repository.
func (r *repositoryImpl) Instance() InstanceRepository {
	return r.instance
}

// Campaign returns the campaign repository.
func (r *repositoryImpl) Campaign() CampaignRepository {
	return r.campaign
}

// Message returns the message ledger repository.
func (r *repositoryImpl) Message() MessageRepository {
	return r.message
}

// Contact returns the contact repository.
func (r *repositoryImpl) Contact() ContactRepository {
	return r.contact
}

// Ping checks if the database connection is healthy.
func (r *repositoryImpl) Ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	return r.db.PingContext(ctx)
}
