package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/blastline/blastline/internal/events"
	"github.com/blastline/blastline/internal/models"
	"github.com/blastline/blastline/internal/provider"
	"github.com/blastline/blastline/internal/registry"
	"github.com/blastline/blastline/internal/repository"
)

// MessageCorrelation resolves provider message ids to ledger row ids ahead
// of the indexed lookup. Implementations are best effort; a miss always
// falls back to the index.
type MessageCorrelation interface {
	Lookup(ctx context.Context, providerMessageID string) (int64, bool)
}

type instanceService struct {
	repo        repository.Repository
	registry    *registry.Registry
	adapter     provider.Adapter
	sink        events.Sink
	correlation MessageCorrelation
	logger      *zap.Logger
}

func NewInstanceService(
	repo repository.Repository,
	reg *registry.Registry,
	adapter provider.Adapter,
	sink events.Sink,
	correlation MessageCorrelation,
	logger *zap.Logger,
) InstanceService {
	return &instanceService{
		repo:        repo,
		registry:    reg,
		adapter:     adapter,
		sink:        sink,
		correlation: correlation,
		logger:      logger,
	}
}

// Connect implements InstanceService.
func (s *instanceService) Connect(ctx context.Context, instanceID int64) error {
	status, ok := s.registry.Status(instanceID)
	if !ok {
		return ErrInstanceNotFound
	}
	if status == models.InstanceStatusConnected {
		return ErrAlreadyConnected
	}
	if status == models.InstanceStatusBanned {
		return ErrInstanceBanned
	}

	// The transition is conditional on the observed status so two concurrent
	// Connect calls cannot both open a provider session.
	if !s.registry.SetStatusIf(instanceID, status, models.InstanceStatusConnecting) {
		current, _ := s.registry.Status(instanceID)
		switch current {
		case models.InstanceStatusConnected:
			return ErrAlreadyConnected
		case models.InstanceStatusBanned:
			return ErrInstanceBanned
		default:
			// A concurrent Connect won the race and is driving the pairing
			// flow; this call's goal state is already being reached.
			return nil
		}
	}
	s.persistTransition(ctx, instanceID, models.InstanceStatusConnecting)

	cred, err := s.adapter.Connect(ctx, instanceID)
	if err != nil {
		// A synchronous adapter failure must not leave the instance stuck
		// in connecting.
		s.transition(ctx, instanceID, models.InstanceStatusDisconnected)
		return err
	}

	if cred != nil && cred.PairingCode != "" {
		s.storePairingCode(ctx, instanceID, cred.PairingCode)
	}

	return nil
}

// Disconnect implements InstanceService.
func (s *instanceService) Disconnect(ctx context.Context, instanceID int64) error {
	status, ok := s.registry.Status(instanceID)
	if !ok {
		return ErrInstanceNotFound
	}

	if status == models.InstanceStatusDisconnected {
		// No live session: persisting the status is all there is to do.
		s.transition(ctx, instanceID, models.InstanceStatusDisconnected)
		return nil
	}

	err := s.adapter.Disconnect(ctx, instanceID)

	// Local state never stays inconsistent because of a remote failure:
	// force disconnected regardless and report the teardown error.
	s.transition(ctx, instanceID, models.InstanceStatusDisconnected)

	if err != nil {
		s.logger.Warn("Provider session teardown failed",
			zap.Int64("instanceID", instanceID),
			zap.Error(err))
		return err
	}

	return nil
}

// PairingCredential implements InstanceService.
func (s *instanceService) PairingCredential(ctx context.Context, instanceID int64) (string, error) {
	status, ok := s.registry.Status(instanceID)
	if !ok {
		return "", ErrInstanceNotFound
	}
	if status != models.InstanceStatusConnecting {
		return "", ErrNotConnecting
	}

	if code, ok := s.registry.PairingCode(instanceID); ok {
		return code, nil
	}

	cred, err := s.adapter.Credential(ctx, instanceID)
	if err != nil {
		return "", err
	}
	if cred == nil || cred.PairingCode == "" {
		return "", ErrNotReady
	}

	s.storePairingCode(ctx, instanceID, cred.PairingCode)
	return cred.PairingCode, nil
}

// Send implements InstanceService.
func (s *instanceService) Send(ctx context.Context, instanceID int64, req provider.SendRequest) (string, error) {
	status, ok := s.registry.Status(instanceID)
	if !ok {
		return "", ErrInstanceNotFound
	}
	if status != models.InstanceStatusConnected {
		return "", ErrNotConnected
	}

	return s.adapter.Send(ctx, instanceID, req)
}

// HandleProviderEvent implements InstanceService.
func (s *instanceService) HandleProviderEvent(ctx context.Context, event *models.ProviderEvent) {
	if event.Type == models.EventDeliveryUpdate {
		s.applyDeliveryUpdate(ctx, event)
		return
	}

	status, ok := s.registry.Status(event.InstanceID)
	if !ok {
		s.logger.Info("Discarding provider event for unknown instance",
			zap.Int64("instanceID", event.InstanceID),
			zap.String("type", string(event.Type)))
		return
	}

	switch event.Type {
	case models.EventCredentialUpdated:
		if status == models.InstanceStatusConnecting && event.PairingCode != "" {
			s.storePairingCode(ctx, event.InstanceID, event.PairingCode)
		}

	case models.EventConnectionOpened:
		if event.PhoneNumber != "" {
			s.registry.SetIdentity(event.InstanceID, event.PhoneNumber)
			if err := s.repo.Instance().SetIdentity(ctx, event.InstanceID, event.PhoneNumber); err != nil {
				s.logger.Error("Failed to persist instance identity",
					zap.Int64("instanceID", event.InstanceID),
					zap.Error(err))
			}
		}
		s.transition(ctx, event.InstanceID, models.InstanceStatusConnected)

	case models.EventConnectionClosed:
		s.transition(ctx, event.InstanceID, models.InstanceStatusDisconnected)

	case models.EventBanned:
		s.logger.Warn("Instance banned by provider",
			zap.Int64("instanceID", event.InstanceID),
			zap.String("reason", event.Reason))
		s.transition(ctx, event.InstanceID, models.InstanceStatusBanned)

	default:
		s.logger.Info("Discarding provider event of unknown type",
			zap.String("type", string(event.Type)))
	}
}

// Delete implements InstanceService.
func (s *instanceService) Delete(ctx context.Context, instanceID int64) error {
	if _, ok := s.registry.Status(instanceID); !ok {
		return ErrInstanceNotFound
	}

	// Best-effort remote cleanup; local deletion is authoritative.
	if err := s.Disconnect(ctx, instanceID); err != nil && !errors.Is(err, ErrInstanceNotFound) {
		s.logger.Warn("Disconnect during delete failed, continuing",
			zap.Int64("instanceID", instanceID),
			zap.Error(err))
	}

	if err := s.adapter.RemoveSession(ctx, instanceID); err != nil {
		s.logger.Warn("Remote session removal failed, continuing",
			zap.Int64("instanceID", instanceID),
			zap.Error(err))
	}

	if err := s.repo.Instance().Delete(ctx, instanceID); err != nil {
		return err
	}

	s.registry.Remove(instanceID)
	return nil
}

// applyDeliveryUpdate correlates a delivery event with its ledger row.
// Unmatched or late events (row re-sent under a new attempt, row not found)
// are discarded without error.
func (s *instanceService) applyDeliveryUpdate(ctx context.Context, event *models.ProviderEvent) {
	var status models.MessageStatus
	switch event.DeliveryStatus {
	case "delivered":
		status = models.MessageStatusDelivered
	case "read":
		status = models.MessageStatusRead
	default:
		s.logger.Info("Discarding delivery update with unknown status",
			zap.String("deliveryStatus", event.DeliveryStatus))
		return
	}

	var (
		msg *models.Message
		err error
	)
	// The correlation cache written at send time turns the lookup into a
	// primary key hit; a miss or a stale entry falls through to the indexed
	// query.
	if s.correlation != nil {
		if id, ok := s.correlation.Lookup(ctx, event.ProviderMessageID); ok {
			msg, err = s.repo.Message().MarkDeliveredByID(ctx, id, event.ProviderMessageID, status)
		}
	}
	if msg == nil && err == nil {
		msg, err = s.repo.Message().MarkDelivered(ctx, event.ProviderMessageID, status)
	}
	if err != nil {
		s.logger.Error("Failed to apply delivery update",
			zap.String("providerMessageID", event.ProviderMessageID),
			zap.Error(err))
		return
	}
	if msg == nil {
		s.logger.Debug("Discarding unmatched delivery update",
			zap.String("providerMessageID", event.ProviderMessageID))
		return
	}

	s.sink.MessageStatusChanged(msg.CampaignID, msg.ID, msg.Status)
}

// transition applies a status change to the registry, mirrors it to the
// database and notifies the event sink.
func (s *instanceService) transition(ctx context.Context, instanceID int64, status models.InstanceStatus) {
	s.registry.SetStatus(instanceID, status)
	s.persistTransition(ctx, instanceID, status)
}

// persistTransition mirrors an already-applied registry transition to the
// database and notifies the event sink.
func (s *instanceService) persistTransition(ctx context.Context, instanceID int64, status models.InstanceStatus) {
	if err := s.repo.Instance().SetStatus(ctx, instanceID, status); err != nil {
		s.logger.Error("Failed to persist instance status",
			zap.Int64("instanceID", instanceID),
			zap.String("status", string(status)),
			zap.Error(err))
	}

	s.sink.InstanceStatusChanged(instanceID, status)
}

func (s *instanceService) storePairingCode(ctx context.Context, instanceID int64, code string) {
	s.registry.SetPairingCode(instanceID, code)

	if err := s.repo.Instance().SetPairingCode(ctx, instanceID, code); err != nil {
		s.logger.Error("Failed to persist pairing code",
			zap.Int64("instanceID", instanceID),
			zap.Error(err))
	}
}

// List implements InstanceService.
func (s *instanceService) List(ctx context.Context) ([]*models.Instance, error) {
	return s.repo.Instance().List(ctx)
}

// SeedRegistry loads persisted instances into the in-memory registry at
// startup. Instances left connecting by a previous process are demoted to
// disconnected; the pairing flow must be restarted explicitly.
func SeedRegistry(ctx context.Context, repo repository.Repository, reg *registry.Registry, logger *zap.Logger) error {
	instances, err := repo.Instance().List(ctx)
	if err != nil {
		return err
	}

	for _, inst := range instances {
		if inst.Status == models.InstanceStatusConnecting {
			inst.Status = models.InstanceStatusDisconnected
			inst.PairingCode = sql.NullString{}
			if err := repo.Instance().SetStatus(ctx, inst.ID, inst.Status); err != nil {
				logger.Error("Failed to demote stale connecting instance",
					zap.Int64("instanceID", inst.ID),
					zap.Error(err))
			}
		}
		reg.Load(inst)
	}

	logger.Info("Instance registry seeded", zap.Int("instances", len(instances)))
	return nil
}
