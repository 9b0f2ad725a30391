package inventory

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/supplychain/procurement/internal/domain/inventory"
	"github.com/supplychain/procurement/internal/domain/shared"
)

// sessionEntry is a manual allocation in progress with the pool it was started against
type sessionEntry struct {
	id        uuid.UUID
	tenantID  uuid.UUID
	productID uuid.UUID
	session   *inventory.AllocationSession
	pool      []inventory.HarvestBatch
	createdAt time.Time
	updatedAt time.Time
}

// SessionStore keeps manual allocation sessions in memory.
// Entries are replaced wholesale because sessions are immutable values.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*sessionEntry
}

// NewSessionStore creates an empty SessionStore
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[uuid.UUID]*sessionEntry)}
}

func (s *SessionStore) put(e *sessionEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[e.id] = e
}

// get returns a copy of the entry visible to tenantID
func (s *SessionStore) get(tenantID, id uuid.UUID) (sessionEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[id]
	if !ok || e.tenantID != tenantID {
		return sessionEntry{}, fmt.Errorf("allocation session %s: %w", id, shared.ErrNotFound)
	}
	return *e, nil
}

// update applies fn to a copy of the entry under the write lock and stores the copy on success
func (s *SessionStore) update(tenantID, id uuid.UUID, now time.Time, fn func(e *sessionEntry) error) (sessionEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok || e.tenantID != tenantID {
		return sessionEntry{}, fmt.Errorf("allocation session %s: %w", id, shared.ErrNotFound)
	}
	updated := *e
	updated.pool = append([]inventory.HarvestBatch(nil), e.pool...)
	if err := fn(&updated); err != nil {
		return sessionEntry{}, err
	}
	updated.updatedAt = now
	s.sessions[id] = &updated
	return updated, nil
}

func (s *SessionStore) delete(tenantID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok || e.tenantID != tenantID {
		return fmt.Errorf("allocation session %s: %w", id, shared.ErrNotFound)
	}
	delete(s.sessions, id)
	return nil
}

// purgeIdle removes sessions last touched before cutoff and returns how many were removed
func (s *SessionStore) purgeIdle(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, e := range s.sessions {
		if e.updatedAt.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of open sessions
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (e sessionEntry) findBatch(batchID uuid.UUID) (inventory.HarvestBatch, bool) {
	for _, b := range e.pool {
		if b.ID == batchID {
			return b, true
		}
	}
	return inventory.HarvestBatch{}, false
}

func (e sessionEntry) toResponse() SessionResponse {
	return SessionResponse{
		ID:               e.id,
		ProductID:        e.productID,
		RequiredQuantity: e.session.Required(),
		RequiredUnit:     e.session.Unit(),
		Records:          e.session.Records(),
		TotalAllocated:   e.session.TotalAllocated(),
		Remaining:        e.session.Remaining(),
		CanFulfill:       e.session.CanFulfill(),
		Available:        ToBatchResponses(e.session.Available(e.pool)),
		CreatedAt:        e.createdAt,
		UpdatedAt:        e.updatedAt,
	}
}
