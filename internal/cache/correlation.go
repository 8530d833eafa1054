// Package cache holds small best-effort Redis caches. Nothing stored here is
// a source of truth; every lookup has a durable fallback in the repositories.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	messageKeyPrefix = "pmid:"
	messageTTL       = 24 * time.Hour
	opTimeout        = 2 * time.Second
)

// MessageCorrelation maps provider message ids to ledger row ids so a
// delivery update can reach its row by primary key instead of going through
// the provider_message_id index.
type MessageCorrelation struct {
	client *redis.Client
	logger *zap.Logger
}

func NewMessageCorrelation(client *redis.Client, logger *zap.Logger) *MessageCorrelation {
	return &MessageCorrelation{
		client: client,
		logger: logger,
	}
}

// Store records the correlation after a successful send. Failures are logged
// and swallowed; the indexed lookup covers missed writes.
func (c *MessageCorrelation) Store(ctx context.Context, providerMessageID string, messageID int64) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := c.client.Set(ctx, messageKeyPrefix+providerMessageID, messageID, messageTTL).Err(); err != nil {
		c.logger.Warn("Failed to cache provider message id",
			zap.String("providerMessageID", providerMessageID),
			zap.Error(err))
	}
}

// Lookup resolves a provider message id to a ledger row id. A miss, an
// expired entry or any Redis failure reports false.
func (c *MessageCorrelation) Lookup(ctx context.Context, providerMessageID string) (int64, bool) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	id, err := c.client.Get(ctx, messageKeyPrefix+providerMessageID).Int64()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Failed to look up provider message id",
				zap.String("providerMessageID", providerMessageID),
				zap.Error(err))
		}
		return 0, false
	}
	return id, true
}
