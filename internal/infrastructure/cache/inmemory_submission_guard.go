package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/supplychain/procurement/internal/domain/shared"
)

type lease struct {
	token     string
	expiresAt time.Time
}

// InMemorySubmissionGuard implements SubmissionGuard with a map of leases.
// It only serializes submissions inside one process.
type InMemorySubmissionGuard struct {
	mu        sync.Mutex
	leases    map[string]lease
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemorySubmissionGuard creates a guard and starts its expiry sweeper
func NewInMemorySubmissionGuard() *InMemorySubmissionGuard {
	return newInMemorySubmissionGuard(time.Now, time.Minute)
}

func newInMemorySubmissionGuard(now func() time.Time, sweepEvery time.Duration) *InMemorySubmissionGuard {
	g := &InMemorySubmissionGuard{
		leases:   make(map[string]lease),
		now:      now,
		stopChan: make(chan struct{}),
	}
	g.wg.Add(1)
	go g.cleanupLoop(sweepEvery)
	return g
}

// Acquire takes the lease unless an unexpired one exists
func (g *InMemorySubmissionGuard) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if l, ok := g.leases[key]; ok && now.Before(l.expiresAt) {
		return "", false, nil
	}
	token := uuid.NewString()
	g.leases[key] = lease{token: token, expiresAt: now.Add(ttl)}
	return token, true, nil
}

// Release drops the lease for key if token still owns it
func (g *InMemorySubmissionGuard) Release(ctx context.Context, key, token string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if l, ok := g.leases[key]; ok && l.token == token {
		delete(g.leases, key)
	}
	return nil
}

// Held reports whether an unexpired lease exists for key
func (g *InMemorySubmissionGuard) Held(ctx context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	l, ok := g.leases[key]
	return ok && g.now().Before(l.expiresAt), nil
}

// Close stops the sweeper. Safe to call multiple times.
func (g *InMemorySubmissionGuard) Close() error {
	g.closeOnce.Do(func() {
		close(g.stopChan)
		g.wg.Wait()
	})
	return nil
}

// Size returns the number of stored leases, expired ones included
func (g *InMemorySubmissionGuard) Size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.leases)
}

func (g *InMemorySubmissionGuard) cleanupLoop(every time.Duration) {
	defer g.wg.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-g.stopChan:
			return
		case <-ticker.C:
			g.cleanup()
		}
	}
}

func (g *InMemorySubmissionGuard) cleanup() {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for key, l := range g.leases {
		if !now.Before(l.expiresAt) {
			delete(g.leases, key)
		}
	}
}

var _ shared.SubmissionGuard = (*InMemorySubmissionGuard)(nil)
