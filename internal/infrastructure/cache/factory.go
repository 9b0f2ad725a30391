package cache

import (
	"fmt"

	"github.com/supplychain/procurement/internal/domain/shared"
	"github.com/supplychain/procurement/internal/infrastructure/config"
	"go.uber.org/zap"
)

// SubmissionGuardFactory creates submission guards based on configuration
type SubmissionGuardFactory struct {
	redisConfig           config.RedisConfig
	backend               string
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// SubmissionGuardFactoryOption is a functional option for configuring the factory
type SubmissionGuardFactoryOption func(*SubmissionGuardFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) SubmissionGuardFactoryOption {
	return func(f *SubmissionGuardFactory) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithInMemoryFallback controls whether an unreachable Redis falls back to the in-memory guard.
// Default is false: a configured redis backend must be reachable.
func WithInMemoryFallback(allow bool) SubmissionGuardFactoryOption {
	return func(f *SubmissionGuardFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewSubmissionGuardFactory creates a factory for the configured backend
func NewSubmissionGuardFactory(redisCfg config.RedisConfig, workflow config.WorkflowConfig, opts ...SubmissionGuardFactoryOption) *SubmissionGuardFactory {
	f := &SubmissionGuardFactory{
		redisConfig: redisCfg,
		backend:     workflow.GuardBackend,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateGuard returns the guard for the configured backend
func (f *SubmissionGuardFactory) CreateGuard() (shared.SubmissionGuard, error) {
	if f.backend != config.GuardBackendRedis {
		f.logger.Info("using in-memory submission guard")
		return NewInMemorySubmissionGuard(), nil
	}

	guard, err := NewRedisSubmissionGuard(RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err == nil {
		f.logger.Info("using Redis submission guard", zap.String("addr", f.redisConfig.Addr()))
		return guard, nil
	}
	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis submission guard unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory submission guard. "+
		"Submissions are only serialized within this process.",
		zap.Error(err),
	)
	return NewInMemorySubmissionGuard(), nil
}
