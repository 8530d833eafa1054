package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/blastline/blastline/internal/models"
	"github.com/blastline/blastline/internal/repository/mocks"
	"github.com/blastline/blastline/internal/service"
)

type campaignFixture struct {
	repo     *mocks.MockRepository
	campRepo *mocks.MockCampaignRepository
	msgRepo  *mocks.MockMessageRepository
	contacts *mocks.MockContactRepository
	sink     *recordingSink
	svc      service.CampaignService
}

func newCampaignFixture(t *testing.T) *campaignFixture {
	ctrl := gomock.NewController(t)

	f := &campaignFixture{
		repo:     mocks.NewMockRepository(ctrl),
		campRepo: mocks.NewMockCampaignRepository(ctrl),
		msgRepo:  mocks.NewMockMessageRepository(ctrl),
		contacts: mocks.NewMockContactRepository(ctrl),
		sink:     &recordingSink{},
	}
	f.repo.EXPECT().Campaign().Return(f.campRepo).AnyTimes()
	f.repo.EXPECT().Message().Return(f.msgRepo).AnyTimes()
	f.repo.EXPECT().Contact().Return(f.contacts).AnyTimes()

	f.svc = service.NewCampaignService(f.repo, f.sink, zap.NewNop())
	return f
}

func TestCampaignService_Run(t *testing.T) {
	campaign := &models.Campaign{
		ID:           1,
		TenantID:     10,
		Template:     "Hi {{name}}, your number is {{phone}}",
		Status:       models.CampaignStatusRunning,
		TagFilter:    []string{"vip"},
		DedupEnabled: true,
		MaxAttempts:  3,
	}
	contacts := []*models.Contact{
		{ID: 100, PhoneNumber: "+15550001", Name: "Ada"},
		{ID: 101, PhoneNumber: "+15550002", Name: "Grace"},
	}

	t.Run("materializes eligible contacts", func(t *testing.T) {
		f := newCampaignFixture(t)

		f.campRepo.EXPECT().MarkRunning(gomock.Any(), int64(1)).Return(true, nil)
		f.campRepo.EXPECT().GetByID(gomock.Any(), int64(1)).Return(campaign, nil)
		f.contacts.EXPECT().ListEligible(gomock.Any(), int64(10), []string{"vip"}, true).Return(contacts, nil)
		f.msgRepo.EXPECT().BulkInsert(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, rows []*models.Message) (int64, error) {
				require.Len(t, rows, 2)
				assert.Equal(t, "Hi Ada, your number is +15550001", rows[0].Content)
				assert.Equal(t, "+15550001", rows[0].PhoneNumber)
				assert.Equal(t, models.MessageStatusPending, rows[0].Status)
				assert.Equal(t, 3, rows[0].MaxAttempts)
				return 2, nil
			})
		f.campRepo.EXPECT().RecomputeCounters(gomock.Any(), int64(1)).Return(nil)

		err := f.svc.Run(context.Background(), 1)
		require.NoError(t, err)
	})

	t.Run("not startable", func(t *testing.T) {
		f := newCampaignFixture(t)

		f.campRepo.EXPECT().MarkRunning(gomock.Any(), int64(1)).Return(false, nil)

		err := f.svc.Run(context.Background(), 1)
		assert.ErrorIs(t, err, service.ErrCampaignNotStartable)
	})

	t.Run("re-run inserts nothing new", func(t *testing.T) {
		f := newCampaignFixture(t)

		f.campRepo.EXPECT().MarkRunning(gomock.Any(), int64(1)).Return(true, nil)
		f.campRepo.EXPECT().GetByID(gomock.Any(), int64(1)).Return(campaign, nil)
		f.contacts.EXPECT().ListEligible(gomock.Any(), int64(10), []string{"vip"}, true).Return(contacts, nil)
		// Rows already exist; the unique constraint swallows them.
		f.msgRepo.EXPECT().BulkInsert(gomock.Any(), gomock.Any()).Return(int64(0), nil)
		f.campRepo.EXPECT().RecomputeCounters(gomock.Any(), int64(1)).Return(nil)

		err := f.svc.Run(context.Background(), 1)
		require.NoError(t, err)
	})
}

func TestCampaignService_PauseResume(t *testing.T) {
	t.Run("pause", func(t *testing.T) {
		f := newCampaignFixture(t)

		f.campRepo.EXPECT().MarkPaused(gomock.Any(), int64(1)).Return(true, nil)

		err := f.svc.Pause(context.Background(), 1)
		require.NoError(t, err)
	})

	t.Run("pause rejected when not running", func(t *testing.T) {
		f := newCampaignFixture(t)

		f.campRepo.EXPECT().MarkPaused(gomock.Any(), int64(1)).Return(false, nil)

		err := f.svc.Pause(context.Background(), 1)
		assert.ErrorIs(t, err, service.ErrCampaignNotPausable)
	})

	t.Run("resume does not re-materialize", func(t *testing.T) {
		f := newCampaignFixture(t)

		f.campRepo.EXPECT().MarkRunning(gomock.Any(), int64(1)).Return(true, nil)
		f.campRepo.EXPECT().RecomputeCounters(gomock.Any(), int64(1)).Return(nil)
		// No ListEligible, no BulkInsert: the ledger carries over untouched.

		err := f.svc.Resume(context.Background(), 1)
		require.NoError(t, err)
	})
}

func TestCampaignService_Messages(t *testing.T) {
	f := newCampaignFixture(t)

	rows := []*models.Message{{ID: 1}, {ID: 2}}
	f.msgRepo.EXPECT().ListByCampaign(gomock.Any(), int64(1), 50, 50).Return(rows, nil)

	got, err := f.svc.Messages(context.Background(), 1, 2, 50)
	require.NoError(t, err)
	assert.Equal(t, rows, got)
}

func TestRenderTemplate(t *testing.T) {
	contact := &models.Contact{Name: "Ada", PhoneNumber: "+15550001"}

	tests := []struct {
		template string
		want     string
	}{
		{"Hi {{name}}", "Hi Ada"},
		{"{{phone}} {{phone}}", "+15550001 +15550001"},
		{"no variables", "no variables"},
		{"{{unknown}} stays", "{{unknown}} stays"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, service.RenderTemplate(tt.template, contact))
	}
}
