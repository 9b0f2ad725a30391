package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

const defaultExportInterval = time.Minute

// MetricsConfig enables periodic metric export. A zero ExportInterval exports once a minute.
type MetricsConfig struct {
	Enabled        bool
	Collector      Collector
	ExportInterval time.Duration
}

// MeterProvider installs the OTLP metric pipeline as the global meter provider.
type MeterProvider struct {
	pipeline
	sdk    *sdkmetric.MeterProvider
	config MetricsConfig
}

// NewMeterProvider leaves the global no-op provider in place when metrics are disabled.
func NewMeterProvider(ctx context.Context, cfg MetricsConfig, logger *zap.Logger) (*MeterProvider, error) {
	mp := &MeterProvider{pipeline: newPipeline("metrics", logger), config: cfg}
	if !cfg.Enabled {
		mp.logger.Info("Metric export disabled")
		return mp, nil
	}

	interval := cfg.ExportInterval
	if interval <= 0 {
		interval = defaultExportInterval
	}
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.Collector.Endpoint)}
	if cfg.Collector.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("telemetry: metric exporter: %w", err)
	}
	res, err := cfg.Collector.resource()
	if err != nil {
		return nil, err
	}

	mp.sdk = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
	)
	mp.shutdown = mp.sdk.Shutdown
	otel.SetMeterProvider(mp.sdk)

	mp.logger.Info("Metric export started", cfg.Collector.fields(zap.Duration("export_interval", interval))...)
	return mp, nil
}

// Shutdown exports the last collection and stops the reader.
func (mp *MeterProvider) Shutdown(ctx context.Context) error {
	return mp.stop(ctx)
}

// Meter falls back to the global provider when export is disabled.
func (mp *MeterProvider) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	if mp.sdk == nil {
		return otel.GetMeterProvider().Meter(name, opts...)
	}
	return mp.sdk.Meter(name, opts...)
}

func (mp *MeterProvider) IsEnabled() bool {
	return mp.config.Enabled && mp.running()
}

func (mp *MeterProvider) GetConfig() MetricsConfig {
	return mp.config
}
