package registry_test

import (
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blastline/blastline/internal/models"
	"github.com/blastline/blastline/internal/registry"
)

func TestRegistry_LoadAndStatus(t *testing.T) {
	reg := registry.New()

	reg.Load(&models.Instance{
		ID:          1,
		Status:      models.InstanceStatusConnected,
		PhoneNumber: sql.NullString{String: "+15550001", Valid: true},
	})

	status, ok := reg.Status(1)
	require.True(t, ok)
	assert.Equal(t, models.InstanceStatusConnected, status)

	_, ok = reg.Status(99)
	assert.False(t, ok)
}

func TestRegistry_SetStatusClearsPairingCode(t *testing.T) {
	reg := registry.New()
	reg.Load(&models.Instance{ID: 1, Status: models.InstanceStatusDisconnected})

	reg.SetStatus(1, models.InstanceStatusConnecting)
	reg.SetPairingCode(1, "ABCD-1234")

	code, ok := reg.PairingCode(1)
	require.True(t, ok)
	assert.Equal(t, "ABCD-1234", code)

	// Leaving connecting invalidates the credential.
	reg.SetStatus(1, models.InstanceStatusConnected)
	_, ok = reg.PairingCode(1)
	assert.False(t, ok)
}

func TestRegistry_PairingCodeSurvivesWhileConnecting(t *testing.T) {
	reg := registry.New()
	reg.Load(&models.Instance{ID: 1, Status: models.InstanceStatusDisconnected})

	reg.SetStatus(1, models.InstanceStatusConnecting)
	reg.SetPairingCode(1, "ABCD-1234")
	reg.SetStatus(1, models.InstanceStatusConnecting)

	code, ok := reg.PairingCode(1)
	require.True(t, ok)
	assert.Equal(t, "ABCD-1234", code)
}

func TestRegistry_ConnectedPreservesOrder(t *testing.T) {
	reg := registry.New()
	reg.Load(&models.Instance{ID: 1, Status: models.InstanceStatusConnected})
	reg.Load(&models.Instance{ID: 2, Status: models.InstanceStatusDisconnected})
	reg.Load(&models.Instance{ID: 3, Status: models.InstanceStatusConnected})
	reg.Load(&models.Instance{ID: 4, Status: models.InstanceStatusBanned})

	connected := reg.Connected([]int64{4, 3, 2, 1})
	assert.Equal(t, []int64{3, 1}, connected)

	assert.Empty(t, reg.Connected([]int64{2, 4, 99}))
}

func TestRegistry_ReserveSendSpacing(t *testing.T) {
	reg := registry.New()
	reg.Load(&models.Instance{ID: 1, Status: models.InstanceStatusConnected})

	delay := 100 * time.Millisecond

	wait1, ok := reg.ReserveSend(1, delay)
	require.True(t, ok)
	assert.Zero(t, wait1)

	// Immediate second reservation must be pushed out by roughly one delay.
	wait2, ok := reg.ReserveSend(1, delay)
	require.True(t, ok)
	assert.Greater(t, wait2, 50*time.Millisecond)
	assert.LessOrEqual(t, wait2, delay)

	// And a third by roughly two.
	wait3, ok := reg.ReserveSend(1, delay)
	require.True(t, ok)
	assert.Greater(t, wait3, wait2)

	_, ok = reg.ReserveSend(99, delay)
	assert.False(t, ok)
}

func TestRegistry_ReserveSendConcurrent(t *testing.T) {
	reg := registry.New()
	reg.Load(&models.Instance{ID: 1, Status: models.InstanceStatusConnected})

	delay := 10 * time.Millisecond
	const reservations = 20

	var wg sync.WaitGroup
	waits := make([]time.Duration, reservations)
	for i := 0; i < reservations; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w, ok := reg.ReserveSend(1, delay)
			assert.True(t, ok)
			waits[i] = w
		}(i)
	}
	wg.Wait()

	// Every reservation got a distinct slot, so the largest wait covers all
	// the others.
	var max time.Duration
	for _, w := range waits {
		if w > max {
			max = w
		}
	}
	assert.GreaterOrEqual(t, max, time.Duration(reservations-2)*delay)
}

func TestRegistry_ReleaseSendRollsBackReservation(t *testing.T) {
	reg := registry.New()
	reg.Load(&models.Instance{ID: 1, Status: models.InstanceStatusConnected})

	delay := 500 * time.Millisecond

	// A reservation that never turns into a send is handed back: the next
	// caller gets the slot immediately instead of inheriting the spacing.
	wait, ok := reg.ReserveSend(1, delay)
	require.True(t, ok)
	assert.Zero(t, wait)
	reg.ReleaseSend(1, delay)

	wait, ok = reg.ReserveSend(1, delay)
	require.True(t, ok)
	assert.Zero(t, wait)
}

func TestRegistry_ReleaseSendOnlyDropsOneSlot(t *testing.T) {
	reg := registry.New()
	reg.Load(&models.Instance{ID: 1, Status: models.InstanceStatusConnected})

	delay := 500 * time.Millisecond

	// Two live reservations, then the second is rolled back: the spacing of
	// the first must survive.
	_, ok := reg.ReserveSend(1, delay)
	require.True(t, ok)
	_, ok = reg.ReserveSend(1, delay)
	require.True(t, ok)
	reg.ReleaseSend(1, delay)

	wait, ok := reg.ReserveSend(1, delay)
	require.True(t, ok)
	assert.Greater(t, wait, 250*time.Millisecond)
	assert.LessOrEqual(t, wait, delay)
}

func TestRegistry_SetStatusIf(t *testing.T) {
	reg := registry.New()
	reg.Load(&models.Instance{ID: 1, Status: models.InstanceStatusDisconnected})

	assert.False(t, reg.SetStatusIf(1, models.InstanceStatusConnected, models.InstanceStatusConnecting))
	assert.False(t, reg.SetStatusIf(99, models.InstanceStatusDisconnected, models.InstanceStatusConnecting))

	require.True(t, reg.SetStatusIf(1, models.InstanceStatusDisconnected, models.InstanceStatusConnecting))
	status, ok := reg.Status(1)
	require.True(t, ok)
	assert.Equal(t, models.InstanceStatusConnecting, status)
}

func TestRegistry_SetStatusIfSingleWinner(t *testing.T) {
	reg := registry.New()
	reg.Load(&models.Instance{ID: 1, Status: models.InstanceStatusDisconnected})

	const callers = 10
	var wg sync.WaitGroup
	wins := make([]bool, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			wins[i] = reg.SetStatusIf(1, models.InstanceStatusDisconnected, models.InstanceStatusConnecting)
		}(i)
	}
	wg.Wait()

	won := 0
	for _, w := range wins {
		if w {
			won++
		}
	}
	assert.Equal(t, 1, won)
}

func TestRegistry_RemoveAndSnapshot(t *testing.T) {
	reg := registry.New()
	reg.Load(&models.Instance{ID: 1, Status: models.InstanceStatusConnected})
	reg.Load(&models.Instance{ID: 2, Status: models.InstanceStatusBanned})

	snapshot := reg.Snapshot()
	assert.Equal(t, map[int64]models.InstanceStatus{
		1: models.InstanceStatusConnected,
		2: models.InstanceStatusBanned,
	}, snapshot)

	reg.Remove(1)
	_, ok := reg.Status(1)
	assert.False(t, ok)
	assert.Len(t, reg.Snapshot(), 1)
}
