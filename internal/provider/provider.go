package provider

import "context"

// Credential is the pairing artifact (e.g. a scannable code) needed to
// authorize a new instance session.
type Credential struct {
	PairingCode string `json:"pairing_code"`
}

// SendRequest carries one outbound message to the provider.
type SendRequest struct {
	To             string `json:"to"`
	Content        string `json:"content"`
	MediaURL       string `json:"media_url,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// Adapter is the capability surface the core requires from a messaging
// provider. Implementations translate provider failures into *Error and
// never block longer than the context allows.
type Adapter interface {
	// Connect starts a provider session for the instance. The returned
	// credential may be nil when the provider produces it asynchronously.
	Connect(ctx context.Context, instanceID int64) (*Credential, error)

	// Disconnect tears down the live session, if any.
	Disconnect(ctx context.Context, instanceID int64) error

	// Credential fetches the current pairing credential. Returns a nil
	// credential without error when the provider has nothing yet.
	Credential(ctx context.Context, instanceID int64) (*Credential, error)

	// Send delivers one message and returns the provider-assigned message id
	// used to correlate later delivery events.
	Send(ctx context.Context, instanceID int64, req SendRequest) (string, error)

	// RemoveSession erases all provider-side state for the instance.
	RemoveSession(ctx context.Context, instanceID int64) error
}
