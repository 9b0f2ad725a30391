// Package telemetry exports procurement traces, metrics and logs over OTLP.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// Collector identifies the OTLP gRPC endpoint and the service reporting to it.
type Collector struct {
	Endpoint       string
	Insecure       bool
	ServiceName    string
	ServiceVersion string
}

func (c Collector) resource() (*resource.Resource, error) {
	version := c.ServiceVersion
	if version == "" {
		version = "dev"
	}
	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(c.ServiceName),
		semconv.ServiceVersion(version),
	))
	if err != nil {
		return nil, fmt.Errorf("telemetry: build resource: %w", err)
	}
	return res, nil
}

func (c Collector) fields(extra ...zap.Field) []zap.Field {
	return append([]zap.Field{
		zap.String("collector_endpoint", c.Endpoint),
		zap.String("service_name", c.ServiceName),
	}, extra...)
}

// pipeline owns the shutdown of one exported signal. A pipeline without a
// shutdown func was never started.
type pipeline struct {
	signal   string
	logger   *zap.Logger
	shutdown func(context.Context) error
}

func newPipeline(signal string, logger *zap.Logger) pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return pipeline{signal: signal, logger: logger}
}

func (p pipeline) running() bool {
	return p.shutdown != nil
}

func (p pipeline) stop(ctx context.Context) error {
	if p.shutdown == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := p.shutdown(ctx); err != nil {
		p.logger.Error("Telemetry pipeline did not stop cleanly", zap.String("signal", p.signal), zap.Error(err))
		return fmt.Errorf("telemetry: stop %s pipeline: %w", p.signal, err)
	}
	p.logger.Info("Telemetry pipeline stopped", zap.String("signal", p.signal))
	return nil
}
