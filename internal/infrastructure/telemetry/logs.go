package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogsConfig enables OTLP export of zap records.
type LogsConfig struct {
	Enabled   bool
	Collector Collector
}

// LoggerProvider installs the OTLP log pipeline that BridgeLogger writes into.
type LoggerProvider struct {
	pipeline
	sdk    *sdklog.LoggerProvider
	config LogsConfig
}

// NewLoggerProvider returns a provider that bridges nothing when export is disabled.
func NewLoggerProvider(ctx context.Context, cfg LogsConfig, logger *zap.Logger) (*LoggerProvider, error) {
	if !cfg.Enabled {
		lp := &LoggerProvider{pipeline: newPipeline("logs", logger), config: cfg}
		lp.logger.Info("Log export disabled")
		return lp, nil
	}

	opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(cfg.Collector.Endpoint)}
	if cfg.Collector.Insecure {
		opts = append(opts, otlploggrpc.WithInsecure())
	}
	exporter, err := otlploggrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("telemetry: log exporter: %w", err)
	}

	lp, err := newLoggerProviderWithProcessor(cfg, sdklog.NewBatchProcessor(exporter), logger)
	if err != nil {
		return nil, err
	}
	global.SetLoggerProvider(lp.sdk)

	lp.logger.Info("Log export started", cfg.Collector.fields()...)
	return lp, nil
}

func newLoggerProviderWithProcessor(cfg LogsConfig, processor sdklog.Processor, logger *zap.Logger) (*LoggerProvider, error) {
	res, err := cfg.Collector.resource()
	if err != nil {
		return nil, err
	}
	cfg.Enabled = true
	lp := &LoggerProvider{
		pipeline: newPipeline("logs", logger),
		sdk:      sdklog.NewLoggerProvider(sdklog.WithResource(res), sdklog.WithProcessor(processor)),
		config:   cfg,
	}
	lp.shutdown = lp.sdk.Shutdown
	return lp, nil
}

// Shutdown flushes buffered records.
func (lp *LoggerProvider) Shutdown(ctx context.Context) error {
	return lp.stop(ctx)
}

func (lp *LoggerProvider) IsEnabled() bool {
	return lp.config.Enabled && lp.running()
}

// ForceFlush exports buffered records without stopping the pipeline.
func (lp *LoggerProvider) ForceFlush(ctx context.Context) error {
	if lp.sdk == nil {
		return nil
	}
	return lp.sdk.ForceFlush(ctx)
}

// NewZapOTELCore returns a core that forwards entries at or above level to the
// provider. It is a nop core when the provider is disabled.
func NewZapOTELCore(lp *LoggerProvider, name string, level zapcore.Level) zapcore.Core {
	if lp == nil || !lp.IsEnabled() {
		return zapcore.NewNopCore()
	}
	core := otelzap.NewCore(name, otelzap.WithLoggerProvider(lp.sdk))
	return &levelFilterCore{Core: core, minLevel: level}
}

type levelFilterCore struct {
	zapcore.Core
	minLevel zapcore.Level
}

func (c *levelFilterCore) Enabled(lvl zapcore.Level) bool {
	return lvl >= c.minLevel && c.Core.Enabled(lvl)
}

func (c *levelFilterCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(entry.Level) {
		return ce
	}
	return c.Core.Check(entry, ce)
}

func (c *levelFilterCore) With(fields []zapcore.Field) zapcore.Core {
	return &levelFilterCore{Core: c.Core.With(fields), minLevel: c.minLevel}
}

// BridgeLogger tees base into the provider. base is returned unchanged when
// the provider is disabled.
func BridgeLogger(base *zap.Logger, lp *LoggerProvider, name string, level zapcore.Level) *zap.Logger {
	if lp == nil || !lp.IsEnabled() {
		return base
	}
	otelCore := NewZapOTELCore(lp, name, level)
	return base.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, otelCore)
	}))
}
