package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type countingExpirer struct {
	mu      sync.Mutex
	calls   int
	maxIdle time.Duration
}

func (e *countingExpirer) ExpireIdleSessions(_ context.Context, maxIdle time.Duration) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	e.maxIdle = maxIdle
	return 1
}

func (e *countingExpirer) snapshot() (int, time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls, e.maxIdle
}

func TestSessionSweeper_SweepsOnInterval(t *testing.T) {
	expirer := &countingExpirer{}
	sweeper := NewSessionSweeper(SessionSweeperConfig{
		Interval: 10 * time.Millisecond,
		MaxIdle:  time.Hour,
	}, expirer, zaptest.NewLogger(t))

	require.NoError(t, sweeper.Start(context.Background()))
	require.NoError(t, sweeper.Start(context.Background()), "second start is a no-op")

	assert.Eventually(t, func() bool {
		calls, _ := expirer.snapshot()
		return calls >= 2
	}, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, sweeper.Stop(ctx))
	require.NoError(t, sweeper.Stop(ctx), "second stop is a no-op")

	calls, maxIdle := expirer.snapshot()
	assert.Equal(t, time.Hour, maxIdle)
	time.Sleep(30 * time.Millisecond)
	after, _ := expirer.snapshot()
	assert.Equal(t, calls, after, "no sweeps after stop")
}

func TestSessionSweeper_DisabledWithoutMaxIdle(t *testing.T) {
	expirer := &countingExpirer{}
	sweeper := NewSessionSweeper(SessionSweeperConfig{Interval: time.Millisecond}, expirer, nil)

	require.NoError(t, sweeper.Start(context.Background()))
	time.Sleep(10 * time.Millisecond)

	calls, _ := expirer.snapshot()
	assert.Zero(t, calls)
	assert.NoError(t, sweeper.Stop(context.Background()))
}

func TestSessionSweeper_RejectsNonPositiveInterval(t *testing.T) {
	sweeper := NewSessionSweeper(SessionSweeperConfig{MaxIdle: time.Hour}, &countingExpirer{}, nil)
	assert.ErrorIs(t, sweeper.Start(context.Background()), ErrInvalidInterval)
}

func TestSessionSweeper_SweepNow(t *testing.T) {
	expirer := &countingExpirer{}
	sweeper := NewSessionSweeper(SessionSweeperConfig{Interval: time.Hour, MaxIdle: 15 * time.Minute}, expirer, nil)

	assert.Equal(t, 1, sweeper.SweepNow(context.Background()))
	calls, maxIdle := expirer.snapshot()
	assert.Equal(t, 1, calls)
	assert.Equal(t, 15*time.Minute, maxIdle)
}
