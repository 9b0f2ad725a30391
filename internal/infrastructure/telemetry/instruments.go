package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
var (
	AttrTenantID       = attribute.Key("tenant_id")
	AttrHTTPMethod     = attribute.Key("http.method")
	AttrHTTPStatusCode = attribute.Key("http.status_code")
	AttrHTTPRoute      = attribute.Key("http.route")
	AttrTransition     = attribute.Key("transition")
	AttrOutcome        = attribute.Key("outcome")
	AttrErrorCode      = attribute.Key("error_code")
	AttrPolicy         = attribute.Key("policy")
	AttrFulfilled      = attribute.Key("fulfilled")
	AttrEventType      = attribute.Key("event_type")
)

// Histogram bucket boundaries in seconds
var (
	HTTPDurationBuckets    = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	GatewayDurationBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}
)

// Instruments creates instruments on one meter and remembers the first failure,
// so a group of instruments is checked once with Err.
type Instruments struct {
	meter metric.Meter
	err   error
}

func NewInstruments(meter metric.Meter) *Instruments {
	return &Instruments{meter: meter}
}

// Err reports the first instrument that could not be created.
func (in *Instruments) Err() error {
	return in.err
}

func (in *Instruments) fail(name string, err error) {
	if in.err == nil {
		in.err = fmt.Errorf("telemetry: instrument %s: %w", name, err)
	}
}

// Counter counts occurrences. Unit follows UCUM annotations such as "{plans}".
func (in *Instruments) Counter(name, description, unit string) *Counter {
	c, err := in.meter.Int64Counter(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		in.fail(name, err)
	}
	return &Counter{counter: c}
}

// Histogram records seconds into the given bucket boundaries.
func (in *Instruments) Histogram(name, description string, buckets []float64) *Histogram {
	opts := []metric.Float64HistogramOption{metric.WithDescription(description), metric.WithUnit("s")}
	if len(buckets) > 0 {
		opts = append(opts, metric.WithExplicitBucketBoundaries(buckets...))
	}
	h, err := in.meter.Float64Histogram(name, opts...)
	if err != nil {
		in.fail(name, err)
	}
	return &Histogram{histogram: h}
}

// Gauge tracks a value that rises and falls, such as in-flight requests.
func (in *Instruments) Gauge(name, description, unit string) metric.Int64UpDownCounter {
	g, err := in.meter.Int64UpDownCounter(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		in.fail(name, err)
	}
	return g
}

type Counter struct {
	counter metric.Int64Counter
}

func (c *Counter) Add(ctx context.Context, n int64, attrs ...attribute.KeyValue) {
	c.counter.Add(ctx, n, metric.WithAttributes(attrs...))
}

func (c *Counter) Inc(ctx context.Context, attrs ...attribute.KeyValue) {
	c.Add(ctx, 1, attrs...)
}

type Histogram struct {
	histogram metric.Float64Histogram
}

func (h *Histogram) Record(ctx context.Context, seconds float64, attrs ...attribute.KeyValue) {
	h.histogram.Record(ctx, seconds, metric.WithAttributes(attrs...))
}

func (h *Histogram) RecordDuration(ctx context.Context, d time.Duration, attrs ...attribute.KeyValue) {
	h.Record(ctx, d.Seconds(), attrs...)
}
