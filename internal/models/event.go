package models

// ProviderEventType enumerates the asynchronous notifications the provider
// delivers through the webhook intake.
type ProviderEventType string

const (
	EventCredentialUpdated ProviderEventType = "credential_updated"
	EventConnectionOpened  ProviderEventType = "connection_opened"
	EventConnectionClosed  ProviderEventType = "connection_closed"
	EventDeliveryUpdate    ProviderEventType = "delivery_update"
	EventBanned            ProviderEventType = "banned"
)

// ProviderEvent is the single typed inbound event dispatched through the
// connection state machine. Exactly which fields are set depends on Type.
type ProviderEvent struct {
	Type       ProviderEventType `json:"type"`
	InstanceID int64             `json:"instance_id"`

	// credential_updated
	PairingCode string `json:"pairing_code,omitempty"`

	// connection_opened
	PhoneNumber string `json:"phone_number,omitempty"`

	// delivery_update
	ProviderMessageID string `json:"provider_message_id,omitempty"`
	DeliveryStatus    string `json:"delivery_status,omitempty"` // delivered | read

	// connection_closed / banned
	Reason string `json:"reason,omitempty"`
}
