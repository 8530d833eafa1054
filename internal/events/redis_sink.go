package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/blastline/blastline/internal/models"
)

const (
	channelInstances = "events:instances"
	channelMessages  = "events:messages"
	channelCampaigns = "events:campaigns"

	publishTimeout = 2 * time.Second
)

// RedisSink publishes transition events to Redis pub/sub channels, where the
// realtime notification layer relays them to connected clients.
type RedisSink struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisSink(client *redis.Client, logger *zap.Logger) *RedisSink {
	return &RedisSink{
		client: client,
		logger: logger,
	}
}

type instanceEvent struct {
	InstanceID int64                 `json:"instance_id"`
	Status     models.InstanceStatus `json:"status"`
	At         time.Time             `json:"at"`
}

type messageEvent struct {
	CampaignID int64                `json:"campaign_id"`
	MessageID  int64                `json:"message_id"`
	Status     models.MessageStatus `json:"status"`
	At         time.Time            `json:"at"`
}

type campaignEvent struct {
	CampaignID int64                 `json:"campaign_id"`
	Status     models.CampaignStatus `json:"status"`
	At         time.Time             `json:"at"`
}

// InstanceStatusChanged implements Sink.
func (s *RedisSink) InstanceStatusChanged(instanceID int64, status models.InstanceStatus) {
	s.publish(channelInstances, instanceEvent{InstanceID: instanceID, Status: status, At: time.Now()})
}

// MessageStatusChanged implements Sink.
func (s *RedisSink) MessageStatusChanged(campaignID, messageID int64, status models.MessageStatus) {
	s.publish(channelMessages, messageEvent{CampaignID: campaignID, MessageID: messageID, Status: status, At: time.Now()})
}

// CampaignStatusChanged implements Sink.
func (s *RedisSink) CampaignStatusChanged(campaignID int64, status models.CampaignStatus) {
	s.publish(channelCampaigns, campaignEvent{CampaignID: campaignID, Status: status, At: time.Now()})
}

// publish runs asynchronously so a slow or unreachable Redis never stalls a
// dispatch loop or a webhook handler.
func (s *RedisSink) publish(channel string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn("Failed to marshal sink event", zap.Error(err))
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		if err := s.client.Publish(ctx, channel, data).Err(); err != nil {
			s.logger.Warn("Failed to publish sink event",
				zap.String("channel", channel),
				zap.Error(err))
		}
	}()
}
