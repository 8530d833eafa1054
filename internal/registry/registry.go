// Package registry holds the in-memory connection state for every messaging
// instance. It is the single shared view consulted by the connection state
// machine and all campaign dispatch loops; durable state lives in the
// instance repository and is mirrored here by the services.
package registry

import (
	"sync"
	"time"

	"github.com/blastline/blastline/internal/models"
)

type instanceState struct {
	status       models.InstanceStatus
	phoneNumber  string
	pairingCode  string
	lastActiveAt time.Time

	// nextSendAt is the earliest moment the next send through this instance
	// may happen. Shared by every campaign runner using the instance.
	nextSendAt time.Time
}

// Registry is a concurrency-safe map of instance id to connection state.
type Registry struct {
	mu        sync.RWMutex
	instances map[int64]*instanceState
}

func New() *Registry {
	return &Registry{
		instances: make(map[int64]*instanceState),
	}
}

// Load seeds the registry from a persisted instance, typically at startup.
func (r *Registry) Load(inst *models.Instance) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := &instanceState{status: inst.Status}
	if inst.PhoneNumber.Valid {
		st.phoneNumber = inst.PhoneNumber.String
	}
	if inst.PairingCode.Valid {
		st.pairingCode = inst.PairingCode.String
	}
	if inst.LastActiveAt.Valid {
		st.lastActiveAt = inst.LastActiveAt.Time
	}
	r.instances[inst.ID] = st
}

// Status returns the connection status, reporting false for unknown ids.
func (r *Registry) Status(id int64) (models.InstanceStatus, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st, ok := r.instances[id]
	if !ok {
		return "", false
	}
	return st.status, true
}

// SetStatus records a status transition, creating the entry when needed.
func (r *Registry) SetStatus(id int64, status models.InstanceStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.instances[id]
	if !ok {
		st = &instanceState{}
		r.instances[id] = st
	}
	st.status = status
	st.lastActiveAt = time.Now()
	if status != models.InstanceStatusConnecting {
		st.pairingCode = ""
	}
}

// SetStatusIf applies the transition only when the instance is still in
// from, so two state machine callers acting on the same observation cannot
// both proceed. Reports whether the transition happened; unknown ids report
// false.
func (r *Registry) SetStatusIf(id int64, from, to models.InstanceStatus) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.instances[id]
	if !ok || st.status != from {
		return false
	}
	st.status = to
	st.lastActiveAt = time.Now()
	if to != models.InstanceStatusConnecting {
		st.pairingCode = ""
	}
	return true
}

// SetPairingCode caches the pairing credential while connecting.
func (r *Registry) SetPairingCode(id int64, code string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if st, ok := r.instances[id]; ok {
		st.pairingCode = code
	}
}

// PairingCode returns the cached credential, empty when none is cached.
func (r *Registry) PairingCode(id int64) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st, ok := r.instances[id]
	if !ok {
		return "", false
	}
	return st.pairingCode, st.pairingCode != ""
}

// SetIdentity records the phone identity bound when the session opened.
func (r *Registry) SetIdentity(id int64, phoneNumber string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if st, ok := r.instances[id]; ok {
		st.phoneNumber = phoneNumber
	}
}

// Remove discards all in-memory state for the instance.
func (r *Registry) Remove(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.instances, id)
}

// Connected filters ids down to instances currently connected, preserving
// the input order so round-robin selection stays stable.
func (r *Registry) Connected(ids []int64) []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	connected := make([]int64, 0, len(ids))
	for _, id := range ids {
		if st, ok := r.instances[id]; ok && st.status == models.InstanceStatusConnected {
			connected = append(connected, id)
		}
	}
	return connected
}

// ReserveSend atomically claims the instance's next send slot under the
// given minimum delay between consecutive sends and returns how long the
// caller must wait before actually sending. Reservations from concurrent
// campaign runners are serialized here, so two runners sharing an instance
// can never violate its spacing. Returns false for unknown instances.
func (r *Registry) ReserveSend(id int64, delay time.Duration) (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.instances[id]
	if !ok {
		return 0, false
	}

	now := time.Now()
	var wait time.Duration
	if st.nextSendAt.After(now) {
		wait = st.nextSendAt.Sub(now)
		st.nextSendAt = st.nextSendAt.Add(delay)
	} else {
		st.nextSendAt = now.Add(delay)
	}
	return wait, true
}

// ReleaseSend rolls back a reservation that produced no send, handing the
// slot back to whoever reserves next. The delay must match the one passed to
// ReserveSend. Without the rollback an idle claim loop would keep pushing
// nextSendAt out and starve other campaigns sharing the instance.
func (r *Registry) ReleaseSend(id int64, delay time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if st, ok := r.instances[id]; ok {
		st.nextSendAt = st.nextSendAt.Add(-delay)
	}
}

// Snapshot returns the current status of every known instance.
func (r *Registry) Snapshot() map[int64]models.InstanceStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[int64]models.InstanceStatus, len(r.instances))
	for id, st := range r.instances {
		out[id] = st.status
	}
	return out
}
