// Package events delivers instance and ledger transitions to an external
// real-time notification layer. Delivery is fire-and-forget; dispatch never
// blocks on the sink.
package events

import (
	"github.com/blastline/blastline/internal/models"
)

// Sink receives a notification for every instance status transition and
// every ledger row transition. Implementations must return promptly and
// swallow their own delivery failures.
type Sink interface {
	InstanceStatusChanged(instanceID int64, status models.InstanceStatus)
	MessageStatusChanged(campaignID, messageID int64, status models.MessageStatus)
	CampaignStatusChanged(campaignID int64, status models.CampaignStatus)
}

// NopSink discards all notifications.
type NopSink struct{}

func (NopSink) InstanceStatusChanged(int64, models.InstanceStatus)      {}
func (NopSink) MessageStatusChanged(int64, int64, models.MessageStatus) {}
func (NopSink) CampaignStatusChanged(int64, models.CampaignStatus)      {}
