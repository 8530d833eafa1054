// Package service provides business logic implementation for the application.
package service

import "errors"

var (
	// ErrInstanceNotFound is returned for operations on unknown instances.
	ErrInstanceNotFound = errors.New("instance not found")

	// ErrAlreadyConnected is returned by Connect when the instance already
	// holds a live session.
	ErrAlreadyConnected = errors.New("instance is already connected")

	// ErrNotConnected is returned by Send when the instance is not in the
	// connected state.
	ErrNotConnected = errors.New("instance is not connected")

	// ErrInstanceBanned is returned by Connect for a banned instance; only
	// delete-and-recreate leaves the banned state.
	ErrInstanceBanned = errors.New("instance is banned")

	// ErrNotConnecting is returned when a pairing credential is requested
	// outside the connecting state.
	ErrNotConnecting = errors.New("instance is not connecting")

	// ErrNotReady is returned when the provider has not produced a pairing
	// credential yet.
	ErrNotReady = errors.New("pairing credential not ready")

	// ErrCampaignNotStartable is returned when run/resume is requested for
	// a campaign that is not in a startable state.
	ErrCampaignNotStartable = errors.New("campaign cannot be started")

	// ErrCampaignNotPausable is returned when pause is requested for a
	// campaign that is not running.
	ErrCampaignNotPausable = errors.New("campaign is not running")
)
