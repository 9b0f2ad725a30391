package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTestTracer sets up a test tracer provider and returns the span recorder.
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	t.Cleanup(func() {
		_ = tp.Shutdown(t.Context())
		otel.SetTracerProvider(prev)
	})

	return sr
}

func tracedRouter(status int) *gin.Engine {
	router := gin.New()
	router.Use(RequestID())
	router.Use(TracingWithConfig(TracingConfig{Enabled: true, ServiceName: "test-service"})...)
	router.GET("/orders/:id", func(c *gin.Context) {
		c.Status(status)
	})
	return router
}

func findSpan(t *testing.T, sr *tracetest.SpanRecorder, name string) sdktrace.ReadOnlySpan {
	t.Helper()
	for _, span := range sr.Ended() {
		if span.Name() == name {
			return span
		}
	}
	require.FailNow(t, "span not found", name)
	return nil
}

func spanAttr(span sdktrace.ReadOnlySpan, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTracingWithConfig_Disabled(t *testing.T) {
	assert.Empty(t, TracingWithConfig(TracingConfig{Enabled: false}))
}

func TestTracingWithConfig_EnrichesSpan(t *testing.T) {
	sr := setupTestTracer(t)
	router := tracedRouter(http.StatusOK)
	tenantID := uuid.New()
	companyID := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/orders/42", nil)
	req.Header.Set(RequestIDHeader, "req-trace-1")
	req.Header.Set(TenantHeader, tenantID.String())
	req.Header.Set(CompanyHeader, companyID.String())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	span := findSpan(t, sr, "GET /orders/:id")
	assert.Equal(t, span.SpanContext().TraceID().String(), w.Header().Get(TraceIDHeader))

	v, ok := spanAttr(span, "request_id")
	require.True(t, ok)
	assert.Equal(t, "req-trace-1", v.AsString())
	v, ok = spanAttr(span, "tenant_id")
	require.True(t, ok)
	assert.Equal(t, tenantID.String(), v.AsString())
	v, ok = spanAttr(span, "company_id")
	require.True(t, ok)
	assert.Equal(t, companyID.String(), v.AsString())
	assert.NotEqual(t, codes.Error, span.Status().Code)
}

func TestTracingWithConfig_IgnoresMalformedViewerHeaders(t *testing.T) {
	sr := setupTestTracer(t)
	router := tracedRouter(http.StatusOK)

	req := httptest.NewRequest(http.MethodGet, "/orders/42", nil)
	req.Header.Set(TenantHeader, "not-a-uuid")
	router.ServeHTTP(httptest.NewRecorder(), req)

	_, ok := spanAttr(findSpan(t, sr, "GET /orders/:id"), "tenant_id")
	assert.False(t, ok)
}

func TestSpanEnricher_MarksErrors(t *testing.T) {
	tests := []struct {
		status  int
		message string
	}{
		{http.StatusUnprocessableEntity, "Client Error"},
		{http.StatusForbidden, "Forbidden"},
		{http.StatusNotFound, "Not Found"},
		{http.StatusConflict, "Conflict"},
		{http.StatusInternalServerError, "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			sr := setupTestTracer(t)
			router := tracedRouter(tt.status)

			router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/orders/42", nil))

			span := findSpan(t, sr, "GET /orders/:id")
			assert.Equal(t, codes.Error, span.Status().Code)
			if tt.status < http.StatusInternalServerError {
				// otelgin sets its own status for 5xx after the enricher returns
				assert.Equal(t, tt.message, span.Status().Description)
			}
			v, ok := spanAttr(span, "http.status_code")
			require.True(t, ok)
			assert.Equal(t, int64(tt.status), v.AsInt64())
		})
	}
}

func TestSpanEnricher_WithNoSpan(t *testing.T) {
	router := gin.New()
	router.Use(SpanEnricher())
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusTeapot)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Empty(t, w.Header().Get(TraceIDHeader))
}
