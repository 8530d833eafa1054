package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/blastline/blastline/internal/models"
	"github.com/blastline/blastline/internal/provider"
	providermocks "github.com/blastline/blastline/internal/provider/mocks"
	"github.com/blastline/blastline/internal/registry"
	"github.com/blastline/blastline/internal/repository/mocks"
	"github.com/blastline/blastline/internal/service"
)

// recordingSink captures notifications for assertions.
type recordingSink struct {
	mu        sync.Mutex
	instance  []models.InstanceStatus
	message   []models.MessageStatus
	campaigns []models.CampaignStatus
}

func (s *recordingSink) InstanceStatusChanged(_ int64, status models.InstanceStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instance = append(s.instance, status)
}

func (s *recordingSink) MessageStatusChanged(_, _ int64, status models.MessageStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = append(s.message, status)
}

func (s *recordingSink) CampaignStatusChanged(_ int64, status models.CampaignStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.campaigns = append(s.campaigns, status)
}

func (s *recordingSink) instanceEvents() []models.InstanceStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.InstanceStatus(nil), s.instance...)
}

func (s *recordingSink) messageEvents() []models.MessageStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.MessageStatus(nil), s.message...)
}

// stubCorrelation serves scripted provider message id lookups.
type stubCorrelation struct {
	entries map[string]int64
}

func (s *stubCorrelation) Lookup(_ context.Context, providerMessageID string) (int64, bool) {
	if s == nil {
		return 0, false
	}
	id, ok := s.entries[providerMessageID]
	return id, ok
}

type instanceFixture struct {
	repo        *mocks.MockRepository
	instRepo    *mocks.MockInstanceRepository
	msgRepo     *mocks.MockMessageRepository
	adapter     *providermocks.MockAdapter
	registry    *registry.Registry
	sink        *recordingSink
	correlation *stubCorrelation
	svc         service.InstanceService
}

func newInstanceFixture(t *testing.T, status models.InstanceStatus) *instanceFixture {
	ctrl := gomock.NewController(t)

	f := &instanceFixture{
		repo:     mocks.NewMockRepository(ctrl),
		instRepo: mocks.NewMockInstanceRepository(ctrl),
		msgRepo:  mocks.NewMockMessageRepository(ctrl),
		adapter:  providermocks.NewMockAdapter(ctrl),
		registry: registry.New(),
		sink:     &recordingSink{},
		correlation: &stubCorrelation{
			entries: map[string]int64{},
		},
	}
	f.repo.EXPECT().Instance().Return(f.instRepo).AnyTimes()
	f.repo.EXPECT().Message().Return(f.msgRepo).AnyTimes()

	if status != "" {
		f.registry.Load(&models.Instance{ID: 1, Status: status})
	}

	f.svc = service.NewInstanceService(f.repo, f.registry, f.adapter, f.sink, f.correlation, zap.NewNop())
	return f
}

func TestInstanceService_Connect(t *testing.T) {
	t.Run("success caches pairing code", func(t *testing.T) {
		f := newInstanceFixture(t, models.InstanceStatusDisconnected)

		f.instRepo.EXPECT().SetStatus(gomock.Any(), int64(1), models.InstanceStatusConnecting).Return(nil)
		f.adapter.EXPECT().Connect(gomock.Any(), int64(1)).
			Return(&provider.Credential{PairingCode: "ABCD-1234"}, nil)
		f.instRepo.EXPECT().SetPairingCode(gomock.Any(), int64(1), "ABCD-1234").Return(nil)

		err := f.svc.Connect(context.Background(), 1)
		require.NoError(t, err)

		status, _ := f.registry.Status(1)
		assert.Equal(t, models.InstanceStatusConnecting, status)

		code, ok := f.registry.PairingCode(1)
		require.True(t, ok)
		assert.Equal(t, "ABCD-1234", code)

		assert.Equal(t, []models.InstanceStatus{models.InstanceStatusConnecting}, f.sink.instanceEvents())
	})

	t.Run("already connected", func(t *testing.T) {
		f := newInstanceFixture(t, models.InstanceStatusConnected)

		err := f.svc.Connect(context.Background(), 1)
		assert.ErrorIs(t, err, service.ErrAlreadyConnected)
	})

	t.Run("banned instance", func(t *testing.T) {
		f := newInstanceFixture(t, models.InstanceStatusBanned)

		err := f.svc.Connect(context.Background(), 1)
		assert.ErrorIs(t, err, service.ErrInstanceBanned)
	})

	t.Run("unknown instance", func(t *testing.T) {
		f := newInstanceFixture(t, "")

		err := f.svc.Connect(context.Background(), 1)
		assert.ErrorIs(t, err, service.ErrInstanceNotFound)
	})

	t.Run("adapter failure reverts to disconnected", func(t *testing.T) {
		f := newInstanceFixture(t, models.InstanceStatusDisconnected)

		f.instRepo.EXPECT().SetStatus(gomock.Any(), int64(1), models.InstanceStatusConnecting).Return(nil)
		f.adapter.EXPECT().Connect(gomock.Any(), int64(1)).
			Return(nil, provider.Timeout("provider down"))
		f.instRepo.EXPECT().SetStatus(gomock.Any(), int64(1), models.InstanceStatusDisconnected).Return(nil)

		err := f.svc.Connect(context.Background(), 1)
		require.Error(t, err)

		status, _ := f.registry.Status(1)
		assert.Equal(t, models.InstanceStatusDisconnected, status)
	})
}

func TestInstanceService_Disconnect(t *testing.T) {
	t.Run("idempotent when already disconnected", func(t *testing.T) {
		f := newInstanceFixture(t, models.InstanceStatusDisconnected)

		// No adapter teardown for a dead session, just the local mirror.
		f.instRepo.EXPECT().SetStatus(gomock.Any(), int64(1), models.InstanceStatusDisconnected).Return(nil)

		err := f.svc.Disconnect(context.Background(), 1)
		assert.NoError(t, err)
	})

	t.Run("remote failure still forces local disconnect", func(t *testing.T) {
		f := newInstanceFixture(t, models.InstanceStatusConnected)

		teardownErr := provider.Timeout("session hung")
		f.adapter.EXPECT().Disconnect(gomock.Any(), int64(1)).Return(teardownErr)
		f.instRepo.EXPECT().SetStatus(gomock.Any(), int64(1), models.InstanceStatusDisconnected).Return(nil)

		err := f.svc.Disconnect(context.Background(), 1)
		assert.ErrorIs(t, err, teardownErr)

		status, _ := f.registry.Status(1)
		assert.Equal(t, models.InstanceStatusDisconnected, status)
	})

	t.Run("tears down connecting session", func(t *testing.T) {
		f := newInstanceFixture(t, models.InstanceStatusConnecting)

		f.adapter.EXPECT().Disconnect(gomock.Any(), int64(1)).Return(nil)
		f.instRepo.EXPECT().SetStatus(gomock.Any(), int64(1), models.InstanceStatusDisconnected).Return(nil)

		err := f.svc.Disconnect(context.Background(), 1)
		assert.NoError(t, err)
	})
}

func TestInstanceService_PairingCredential(t *testing.T) {
	t.Run("returns cached code without provider call", func(t *testing.T) {
		f := newInstanceFixture(t, models.InstanceStatusConnecting)
		f.registry.SetPairingCode(1, "CACHED-1")

		code, err := f.svc.PairingCredential(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, "CACHED-1", code)
	})

	t.Run("fetches on demand and caches", func(t *testing.T) {
		f := newInstanceFixture(t, models.InstanceStatusConnecting)

		f.adapter.EXPECT().Credential(gomock.Any(), int64(1)).
			Return(&provider.Credential{PairingCode: "FRESH-2"}, nil)
		f.instRepo.EXPECT().SetPairingCode(gomock.Any(), int64(1), "FRESH-2").Return(nil)

		code, err := f.svc.PairingCredential(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, "FRESH-2", code)

		cached, ok := f.registry.PairingCode(1)
		require.True(t, ok)
		assert.Equal(t, "FRESH-2", cached)
	})

	t.Run("not ready", func(t *testing.T) {
		f := newInstanceFixture(t, models.InstanceStatusConnecting)

		f.adapter.EXPECT().Credential(gomock.Any(), int64(1)).Return(nil, nil)

		_, err := f.svc.PairingCredential(context.Background(), 1)
		assert.ErrorIs(t, err, service.ErrNotReady)
	})

	t.Run("invalid outside connecting", func(t *testing.T) {
		f := newInstanceFixture(t, models.InstanceStatusConnected)

		_, err := f.svc.PairingCredential(context.Background(), 1)
		assert.ErrorIs(t, err, service.ErrNotConnecting)
	})
}

func TestInstanceService_Send(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		f := newInstanceFixture(t, models.InstanceStatusConnected)

		req := provider.SendRequest{To: "+15550001", Content: "hi"}
		f.adapter.EXPECT().Send(gomock.Any(), int64(1), req).Return("pm-1", nil)

		id, err := f.svc.Send(context.Background(), 1, req)
		require.NoError(t, err)
		assert.Equal(t, "pm-1", id)
	})

	t.Run("rejected unless connected", func(t *testing.T) {
		for _, status := range []models.InstanceStatus{
			models.InstanceStatusDisconnected,
			models.InstanceStatusConnecting,
			models.InstanceStatusBanned,
		} {
			f := newInstanceFixture(t, status)

			_, err := f.svc.Send(context.Background(), 1, provider.SendRequest{To: "+15550001"})
			assert.ErrorIs(t, err, service.ErrNotConnected, "status %s", status)
		}
	})
}

func TestInstanceService_HandleProviderEvent(t *testing.T) {
	t.Run("connection opened binds identity", func(t *testing.T) {
		f := newInstanceFixture(t, models.InstanceStatusConnecting)

		f.instRepo.EXPECT().SetIdentity(gomock.Any(), int64(1), "+15550001").Return(nil)
		f.instRepo.EXPECT().SetStatus(gomock.Any(), int64(1), models.InstanceStatusConnected).Return(nil)

		f.svc.HandleProviderEvent(context.Background(), &models.ProviderEvent{
			Type:        models.EventConnectionOpened,
			InstanceID:  1,
			PhoneNumber: "+15550001",
		})

		status, _ := f.registry.Status(1)
		assert.Equal(t, models.InstanceStatusConnected, status)
		assert.Equal(t, []models.InstanceStatus{models.InstanceStatusConnected}, f.sink.instanceEvents())
	})

	t.Run("credential updated while connecting", func(t *testing.T) {
		f := newInstanceFixture(t, models.InstanceStatusConnecting)

		f.instRepo.EXPECT().SetPairingCode(gomock.Any(), int64(1), "PUSH-1").Return(nil)

		f.svc.HandleProviderEvent(context.Background(), &models.ProviderEvent{
			Type:        models.EventCredentialUpdated,
			InstanceID:  1,
			PairingCode: "PUSH-1",
		})

		code, ok := f.registry.PairingCode(1)
		require.True(t, ok)
		assert.Equal(t, "PUSH-1", code)
	})

	t.Run("credential updated outside connecting is ignored", func(t *testing.T) {
		f := newInstanceFixture(t, models.InstanceStatusConnected)

		f.svc.HandleProviderEvent(context.Background(), &models.ProviderEvent{
			Type:        models.EventCredentialUpdated,
			InstanceID:  1,
			PairingCode: "LATE-1",
		})

		_, ok := f.registry.PairingCode(1)
		assert.False(t, ok)
	})

	t.Run("connection closed", func(t *testing.T) {
		f := newInstanceFixture(t, models.InstanceStatusConnected)

		f.instRepo.EXPECT().SetStatus(gomock.Any(), int64(1), models.InstanceStatusDisconnected).Return(nil)

		f.svc.HandleProviderEvent(context.Background(), &models.ProviderEvent{
			Type:       models.EventConnectionClosed,
			InstanceID: 1,
		})

		status, _ := f.registry.Status(1)
		assert.Equal(t, models.InstanceStatusDisconnected, status)
	})

	t.Run("banned", func(t *testing.T) {
		f := newInstanceFixture(t, models.InstanceStatusConnected)

		f.instRepo.EXPECT().SetStatus(gomock.Any(), int64(1), models.InstanceStatusBanned).Return(nil)

		f.svc.HandleProviderEvent(context.Background(), &models.ProviderEvent{
			Type:       models.EventBanned,
			InstanceID: 1,
			Reason:     "spam reports",
		})

		status, _ := f.registry.Status(1)
		assert.Equal(t, models.InstanceStatusBanned, status)
	})

	t.Run("unknown instance is discarded", func(t *testing.T) {
		f := newInstanceFixture(t, "")

		// No repository or adapter expectations: nothing may happen.
		f.svc.HandleProviderEvent(context.Background(), &models.ProviderEvent{
			Type:       models.EventConnectionOpened,
			InstanceID: 42,
		})

		assert.Empty(t, f.sink.instanceEvents())
	})

	t.Run("delivery update marks row", func(t *testing.T) {
		f := newInstanceFixture(t, models.InstanceStatusConnected)

		f.msgRepo.EXPECT().MarkDelivered(gomock.Any(), "pm-9", models.MessageStatusDelivered).
			Return(&models.Message{ID: 5, CampaignID: 2, Status: models.MessageStatusDelivered}, nil)

		f.svc.HandleProviderEvent(context.Background(), &models.ProviderEvent{
			Type:              models.EventDeliveryUpdate,
			InstanceID:        1,
			ProviderMessageID: "pm-9",
			DeliveryStatus:    "delivered",
		})

		assert.Equal(t, []models.MessageStatus{models.MessageStatusDelivered}, f.sink.messageEvents())
	})

	t.Run("delivery update uses cached correlation", func(t *testing.T) {
		f := newInstanceFixture(t, models.InstanceStatusConnected)
		f.correlation.entries["pm-9"] = 5

		f.msgRepo.EXPECT().MarkDeliveredByID(gomock.Any(), int64(5), "pm-9", models.MessageStatusDelivered).
			Return(&models.Message{ID: 5, CampaignID: 2, Status: models.MessageStatusDelivered}, nil)

		f.svc.HandleProviderEvent(context.Background(), &models.ProviderEvent{
			Type:              models.EventDeliveryUpdate,
			ProviderMessageID: "pm-9",
			DeliveryStatus:    "delivered",
		})

		assert.Equal(t, []models.MessageStatus{models.MessageStatusDelivered}, f.sink.messageEvents())
	})

	t.Run("stale correlation falls back to the indexed lookup", func(t *testing.T) {
		f := newInstanceFixture(t, models.InstanceStatusConnected)
		f.correlation.entries["pm-9"] = 5

		gomock.InOrder(
			f.msgRepo.EXPECT().MarkDeliveredByID(gomock.Any(), int64(5), "pm-9", models.MessageStatusDelivered).
				Return(nil, nil),
			f.msgRepo.EXPECT().MarkDelivered(gomock.Any(), "pm-9", models.MessageStatusDelivered).
				Return(&models.Message{ID: 6, CampaignID: 2, Status: models.MessageStatusDelivered}, nil),
		)

		f.svc.HandleProviderEvent(context.Background(), &models.ProviderEvent{
			Type:              models.EventDeliveryUpdate,
			ProviderMessageID: "pm-9",
			DeliveryStatus:    "delivered",
		})

		assert.Equal(t, []models.MessageStatus{models.MessageStatusDelivered}, f.sink.messageEvents())
	})

	t.Run("unmatched delivery update is discarded", func(t *testing.T) {
		f := newInstanceFixture(t, models.InstanceStatusConnected)

		f.msgRepo.EXPECT().MarkDelivered(gomock.Any(), "pm-gone", models.MessageStatusRead).
			Return(nil, nil)

		f.svc.HandleProviderEvent(context.Background(), &models.ProviderEvent{
			Type:              models.EventDeliveryUpdate,
			InstanceID:        1,
			ProviderMessageID: "pm-gone",
			DeliveryStatus:    "read",
		})

		assert.Empty(t, f.sink.messageEvents())
	})
}

func TestInstanceService_Delete(t *testing.T) {
	t.Run("removes remote and local state", func(t *testing.T) {
		f := newInstanceFixture(t, models.InstanceStatusConnected)

		f.adapter.EXPECT().Disconnect(gomock.Any(), int64(1)).Return(nil)
		f.instRepo.EXPECT().SetStatus(gomock.Any(), int64(1), models.InstanceStatusDisconnected).Return(nil)
		f.adapter.EXPECT().RemoveSession(gomock.Any(), int64(1)).Return(nil)
		f.instRepo.EXPECT().Delete(gomock.Any(), int64(1)).Return(nil)

		err := f.svc.Delete(context.Background(), 1)
		require.NoError(t, err)

		_, ok := f.registry.Status(1)
		assert.False(t, ok)
	})

	t.Run("remote failures do not block deletion", func(t *testing.T) {
		f := newInstanceFixture(t, models.InstanceStatusConnected)

		f.adapter.EXPECT().Disconnect(gomock.Any(), int64(1)).Return(provider.Timeout("down"))
		f.instRepo.EXPECT().SetStatus(gomock.Any(), int64(1), models.InstanceStatusDisconnected).Return(nil)
		f.adapter.EXPECT().RemoveSession(gomock.Any(), int64(1)).Return(provider.Timeout("down"))
		f.instRepo.EXPECT().Delete(gomock.Any(), int64(1)).Return(nil)

		err := f.svc.Delete(context.Background(), 1)
		require.NoError(t, err)

		_, ok := f.registry.Status(1)
		assert.False(t, ok)
	})

	t.Run("database failure keeps instance", func(t *testing.T) {
		f := newInstanceFixture(t, models.InstanceStatusDisconnected)

		dbErr := errors.New("db down")
		f.instRepo.EXPECT().SetStatus(gomock.Any(), int64(1), models.InstanceStatusDisconnected).Return(nil)
		f.adapter.EXPECT().RemoveSession(gomock.Any(), int64(1)).Return(nil)
		f.instRepo.EXPECT().Delete(gomock.Any(), int64(1)).Return(dbErr)

		err := f.svc.Delete(context.Background(), 1)
		assert.ErrorIs(t, err, dbErr)

		_, ok := f.registry.Status(1)
		assert.True(t, ok)
	})
}

func TestSeedRegistry(t *testing.T) {
	ctrl := gomock.NewController(t)

	repo := mocks.NewMockRepository(ctrl)
	instRepo := mocks.NewMockInstanceRepository(ctrl)
	repo.EXPECT().Instance().Return(instRepo).AnyTimes()

	instRepo.EXPECT().List(gomock.Any()).Return([]*models.Instance{
		{ID: 1, Status: models.InstanceStatusConnected},
		{ID: 2, Status: models.InstanceStatusConnecting},
		{ID: 3, Status: models.InstanceStatusBanned},
	}, nil)
	// The stale connecting instance is demoted, not resumed.
	instRepo.EXPECT().SetStatus(gomock.Any(), int64(2), models.InstanceStatusDisconnected).Return(nil)

	reg := registry.New()
	err := service.SeedRegistry(context.Background(), repo, reg, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, map[int64]models.InstanceStatus{
		1: models.InstanceStatusConnected,
		2: models.InstanceStatusDisconnected,
		3: models.InstanceStatusBanned,
	}, reg.Snapshot())
}
