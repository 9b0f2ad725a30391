// Package middleware provides HTTP middleware for the procurement API.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/supplychain/procurement/internal/infrastructure/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TraceIDHeader echoes the request's trace id to the caller
const TraceIDHeader = "X-Trace-ID"

// MaxRequestIDLength is the maximum accepted length of an incoming request ID
const MaxRequestIDLength = 128

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	ServiceName string
	Enabled     bool
}

// DefaultTracingConfig returns default tracing configuration.
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		ServiceName: "procurement",
		Enabled:     true,
	}
}

// TracingWithConfig returns the otelgin middleware followed by span enrichment.
// Spans are named "METHOD route", e.g. "POST /api/v1/orders/:id/accept".
// The returned chain is empty when tracing is disabled.
func TracingWithConfig(cfg TracingConfig) []gin.HandlerFunc {
	if !cfg.Enabled {
		return nil
	}
	return []gin.HandlerFunc{
		otelgin.Middleware(cfg.ServiceName),
		SpanEnricher(),
	}
}

// SpanEnricher adds request_id, tenant_id and company_id to the request span,
// echoes the trace id in TraceIDHeader and marks 4xx/5xx responses as failed.
// It must run after otelgin.
func SpanEnricher() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			c.Next()
			return
		}
		c.Header(TraceIDHeader, telemetry.TraceID(c.Request.Context()))

		if requestID := GetRequestID(c); requestID != "" {
			span.SetAttributes(attribute.String("request_id", requestID))
		}
		if tenantID := c.GetHeader(TenantHeader); isUUID(tenantID) {
			span.SetAttributes(attribute.String("tenant_id", tenantID))
		}
		if companyID := c.GetHeader(CompanyHeader); isUUID(companyID) {
			span.SetAttributes(attribute.String("company_id", companyID))
		}

		c.Next()

		status := c.Writer.Status()
		if status < http.StatusBadRequest {
			return
		}
		message := "Client Error"
		switch {
		case status >= http.StatusInternalServerError:
			message = "Internal Server Error"
		case status == http.StatusForbidden:
			message = "Forbidden"
		case status == http.StatusNotFound:
			message = "Not Found"
		case status == http.StatusConflict:
			message = "Conflict"
		}
		span.SetStatus(codes.Error, message)
		span.SetAttributes(attribute.Int("http.status_code", status))
	}
}
