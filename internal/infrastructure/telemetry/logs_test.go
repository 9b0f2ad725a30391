package telemetry

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type memoryLogExporter struct {
	mu      sync.Mutex
	records []sdklog.Record
}

func (e *memoryLogExporter) Export(_ context.Context, records []sdklog.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range records {
		e.records = append(e.records, r.Clone())
	}
	return nil
}

func (e *memoryLogExporter) Shutdown(context.Context) error   { return nil }
func (e *memoryLogExporter) ForceFlush(context.Context) error { return nil }

func (e *memoryLogExporter) bodies() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.records))
	for _, r := range e.records {
		out = append(out, r.Body().AsString())
	}
	return out
}

func newMemoryProvider(t *testing.T) (*LoggerProvider, *memoryLogExporter) {
	t.Helper()
	exp := &memoryLogExporter{}
	lp, err := newLoggerProviderWithProcessor(LogsConfig{Collector: Collector{ServiceName: "procurement-test", ServiceVersion: "test"}}, sdklog.NewSimpleProcessor(exp), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = lp.Shutdown(context.Background()) })
	return lp, exp
}

func TestNewLoggerProvider_Disabled(t *testing.T) {
	ctx := context.Background()
	lp, err := NewLoggerProvider(ctx, LogsConfig{Collector: Collector{Endpoint: "localhost:4317"}}, zap.NewNop())
	require.NoError(t, err)

	assert.False(t, lp.IsEnabled())
	assert.NoError(t, lp.ForceFlush(ctx))
	assert.NoError(t, lp.Shutdown(ctx))
}

func TestBridgeLogger_Disabled(t *testing.T) {
	base := zap.NewNop()
	assert.Same(t, base, BridgeLogger(base, nil, "procurement", zapcore.InfoLevel))
	assert.Same(t, base, BridgeLogger(base, &LoggerProvider{}, "procurement", zapcore.InfoLevel))
}

func TestBridgeLogger_ForwardsToBothCores(t *testing.T) {
	lp, exp := newMemoryProvider(t)
	baseCore, observed := observer.New(zapcore.DebugLevel)

	log := BridgeLogger(zap.New(baseCore), lp, "procurement", zapcore.InfoLevel)
	log.Debug("debug noise")
	log.Info("amendment proposed", zap.String("order_id", "PO-1"))
	log.Warn("allocation shortfall")
	require.NoError(t, lp.ForceFlush(context.Background()))

	assert.Equal(t, 3, observed.Len())
	assert.Equal(t, []string{"amendment proposed", "allocation shortfall"}, exp.bodies())
}

func TestBridgeLogger_SeverityAndAttributes(t *testing.T) {
	lp, exp := newMemoryProvider(t)

	log := BridgeLogger(zap.NewNop(), lp, "procurement", zapcore.DebugLevel).With(zap.String("tenant", "t-1"))
	log.Error("gateway failed", zap.Int("attempt", 2))
	require.NoError(t, lp.ForceFlush(context.Background()))

	exp.mu.Lock()
	defer exp.mu.Unlock()
	require.Len(t, exp.records, 1)
	r := exp.records[0]
	assert.Equal(t, otellog.SeverityError, r.Severity())

	attrs := map[string]otellog.Value{}
	r.WalkAttributes(func(kv otellog.KeyValue) bool {
		attrs[kv.Key] = kv.Value
		return true
	})
	assert.Equal(t, "t-1", attrs["tenant"].AsString())
	assert.Equal(t, int64(2), attrs["attempt"].AsInt64())
}

func TestLevelFilterCore(t *testing.T) {
	inner, _ := observer.New(zapcore.DebugLevel)
	core := &levelFilterCore{Core: inner, minLevel: zapcore.WarnLevel}

	assert.False(t, core.Enabled(zapcore.InfoLevel))
	assert.True(t, core.Enabled(zapcore.WarnLevel))

	child, ok := core.With([]zapcore.Field{zap.String("k", "v")}).(*levelFilterCore)
	require.True(t, ok)
	assert.Equal(t, zapcore.WarnLevel, child.minLevel)
}
