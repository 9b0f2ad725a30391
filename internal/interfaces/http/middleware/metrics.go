package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/supplychain/procurement/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Meterer hands out meters. Both telemetry.MeterProvider and the otel SDK provider satisfy it.
type Meterer interface {
	Meter(name string, opts ...metric.MeterOption) metric.Meter
}

// HTTPMetricsConfig holds configuration for HTTP metrics middleware.
type HTTPMetricsConfig struct {
	MeterProvider Meterer
	Enabled       bool
}

type httpMetrics struct {
	requests *telemetry.Counter
	latency  *telemetry.Histogram
	inFlight metric.Int64UpDownCounter
}

func newHTTPMetrics(meter metric.Meter) (*httpMetrics, error) {
	in := telemetry.NewInstruments(meter)
	m := &httpMetrics{
		requests: in.Counter("http_server_request_total", "HTTP requests by route and status", "{request}"),
		latency:  in.Histogram("http_server_request_duration_seconds", "HTTP request latency by route", telemetry.HTTPDurationBuckets),
		inFlight: in.Gauge("http_server_active_requests", "HTTP requests being served", "{request}"),
	}
	return m, in.Err()
}

// HTTPMetrics returns a Gin middleware that counts requests by route and status,
// records latency by route and tracks in-flight requests.
// It is a pass-through when disabled or when instruments cannot be created.
func HTTPMetrics(cfg HTTPMetricsConfig) gin.HandlerFunc {
	if !cfg.Enabled || cfg.MeterProvider == nil {
		return passThrough
	}

	metrics, err := newHTTPMetrics(cfg.MeterProvider.Meter("http.server"))
	if err != nil {
		return passThrough
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()

		metrics.inFlight.Add(ctx, 1)
		c.Next()
		metrics.inFlight.Add(ctx, -1)

		routeAttrs := []attribute.KeyValue{
			telemetry.AttrHTTPMethod.String(c.Request.Method),
			telemetry.AttrHTTPRoute.String(routePattern(c)),
		}
		requestAttrs := append([]attribute.KeyValue{
			telemetry.AttrHTTPStatusCode.Int(c.Writer.Status()),
		}, routeAttrs...)
		if tenantID, ok := GetTenantUUID(c); ok {
			requestAttrs = append(requestAttrs, telemetry.AttrTenantID.String(tenantID.String()))
		}

		metrics.requests.Inc(ctx, requestAttrs...)
		metrics.latency.RecordDuration(ctx, time.Since(start), routeAttrs...)
	}
}

func passThrough(c *gin.Context) {
	c.Next()
}

// routePattern keeps label cardinality bounded by using the matched route, not the path
func routePattern(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unknown"
}
