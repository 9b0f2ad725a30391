package logger

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

const defaultSlowQuery = 200 * time.Millisecond

// GormLogger writes gateway SQL traces to zap. Statement traces carry the
// request, tenant and order ids found on the query context.
type GormLogger struct {
	log         *zap.Logger
	level       gormlogger.LogLevel
	slowQuery   time.Duration
	logNotFound bool
}

// GormOption configures a GormLogger
type GormOption func(*GormLogger)

// SlowAfter marks statements slower than d as slow; zero disables the check
func SlowAfter(d time.Duration) GormOption {
	return func(l *GormLogger) { l.slowQuery = d }
}

// LogNotFound reports gorm.ErrRecordNotFound as a SQL error
func LogNotFound() GormOption {
	return func(l *GormLogger) { l.logNotFound = true }
}

// NewGormLogger creates a gorm logger that writes to z under the "gorm" name
func NewGormLogger(z *zap.Logger, level gormlogger.LogLevel, opts ...GormOption) *GormLogger {
	l := &GormLogger{
		log:       z.Named("gorm"),
		level:     level,
		slowQuery: defaultSlowQuery,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LogMode returns a copy at the given level
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	c := *l
	c.level = level
	return &c
}

func (l *GormLogger) Info(_ context.Context, msg string, data ...any) {
	l.printf(gormlogger.Info, zapcore.InfoLevel, msg, data)
}

func (l *GormLogger) Warn(_ context.Context, msg string, data ...any) {
	l.printf(gormlogger.Warn, zapcore.WarnLevel, msg, data)
}

func (l *GormLogger) Error(_ context.Context, msg string, data ...any) {
	l.printf(gormlogger.Error, zapcore.ErrorLevel, msg, data)
}

func (l *GormLogger) printf(min gormlogger.LogLevel, lvl zapcore.Level, msg string, data []any) {
	if l.level < min {
		return
	}
	l.log.Sugar().Logf(lvl, msg, data...)
}

// Trace logs one statement: failures at error, slow statements at warn and
// the rest at debug when the level is Info.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)

	switch {
	case err != nil && l.level >= gormlogger.Error:
		if errors.Is(err, gormlogger.ErrRecordNotFound) && !l.logNotFound {
			return
		}
		l.log.Error("Gateway query failed", append(statementFields(ctx, elapsed, fc), zap.Error(err))...)
	case l.slowQuery > 0 && elapsed > l.slowQuery && l.level >= gormlogger.Warn:
		l.log.Warn("Slow gateway query", append(statementFields(ctx, elapsed, fc), zap.Duration("threshold", l.slowQuery))...)
	case l.level >= gormlogger.Info:
		l.log.Debug("Gateway query", statementFields(ctx, elapsed, fc)...)
	}
}

func statementFields(ctx context.Context, elapsed time.Duration, fc func() (string, int64)) []zap.Field {
	sql, rows := fc()
	fields := []zap.Field{
		zap.String("sql", sql),
		zap.Int64("rows", rows),
		zap.Duration("elapsed", elapsed),
	}
	for key, value := range map[string]string{
		"request_id": GetRequestID(ctx),
		"tenant_id":  GetTenantID(ctx),
		"order_id":   GetOrderID(ctx),
	} {
		if value != "" {
			fields = append(fields, zap.String(key, value))
		}
	}
	return fields
}

// MapGormLogLevel maps an application log level to a gorm level. Debug and
// info both trace every statement; anything unknown logs warnings only.
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "error", "fatal":
		return gormlogger.Error
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}

var _ gormlogger.Interface = (*GormLogger)(nil)
