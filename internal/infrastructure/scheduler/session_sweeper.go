// Package scheduler runs background maintenance on a fixed interval.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrInvalidInterval is returned when a sweeper is started without a positive interval
var ErrInvalidInterval = errors.New("scheduler: sweep interval must be positive")

// SessionExpirer discards manual allocation sessions idle for longer than maxIdle
type SessionExpirer interface {
	ExpireIdleSessions(ctx context.Context, maxIdle time.Duration) int
}

// SessionSweeperConfig holds the sweep cadence and the idle limit
type SessionSweeperConfig struct {
	Interval time.Duration
	// MaxIdle of zero disables the sweeper
	MaxIdle time.Duration
}

// SessionSweeper periodically expires idle allocation sessions
type SessionSweeper struct {
	config  SessionSweeperConfig
	expirer SessionExpirer
	logger  *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewSessionSweeper creates a sweeper; call Start to begin sweeping
func NewSessionSweeper(config SessionSweeperConfig, expirer SessionExpirer, logger *zap.Logger) *SessionSweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionSweeper{
		config:  config,
		expirer: expirer,
		logger:  logger.Named("session_sweeper"),
	}
}

// Start launches the sweep loop. It is a no-op when MaxIdle is zero or the loop is already running.
func (s *SessionSweeper) Start(ctx context.Context) error {
	if s.config.MaxIdle <= 0 {
		s.logger.Info("Session expiry disabled")
		return nil
	}
	if s.config.Interval <= 0 {
		return ErrInvalidInterval
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	s.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	go s.runLoop(ctx)

	s.logger.Info("Session sweeper started",
		zap.Duration("interval", s.config.Interval),
		zap.Duration("max_idle", s.config.MaxIdle),
	)
	return nil
}

// Stop ends the loop and waits for an in-flight sweep, bounded by ctx
func (s *SessionSweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Session sweeper stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SweepNow expires idle sessions immediately and returns how many were removed
func (s *SessionSweeper) SweepNow(ctx context.Context) int {
	return s.expirer.ExpireIdleSessions(ctx, s.config.MaxIdle)
}

func (s *SessionSweeper) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.SweepNow(ctx); removed > 0 {
				s.logger.Debug("Sweep finished", zap.Int("removed", removed))
			}
		}
	}
}
