package logger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	for _, format := range []string{"json", "console", ""} {
		l, err := New(&Config{Level: "debug", Format: format, Output: "stderr"})
		require.NoError(t, err, format)
		assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
	}

	l, err := New(nil)
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))

	_, err = New(&Config{Format: "xml"})
	assert.ErrorContains(t, err, "unsupported log format")

	_, err = New(&Config{Output: filepath.Join(t.TempDir(), "missing", "app.log")})
	assert.Error(t, err)
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "procurement.log")
	l, err := New(&Config{Level: "info", Format: "json", Output: path, Name: "amendments"})
	require.NoError(t, err)

	l.Info("amendment proposed", zap.String("order_id", "po-1"))
	require.NoError(t, l.Sync())

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"logger":"amendments"`)
	assert.Contains(t, string(body), `"order_id":"po-1"`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("WARNING"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
}

func TestFromContext_Fallback(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))

	l := zap.NewExample()
	assert.Same(t, l, FromContext(WithContext(context.Background(), l)))
}

func TestL_InjectsContextFields(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	ctx := WithContext(context.Background(), zap.New(core))
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithTenantID(ctx, "tenant-1")
	ctx = WithCompanyID(ctx, "company-1")
	ctx = WithOrderID(ctx, "po-1")

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	ctx, span := tp.Tracer("test").Start(ctx, "op")
	defer span.End()

	L(ctx).With(zap.String("transition", "propose")).Info("transition applied")

	logs := recorded.All()
	require.Len(t, logs, 1)
	fields := logs[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "tenant-1", fields["tenant_id"])
	assert.Equal(t, "company-1", fields["company_id"])
	assert.Equal(t, "po-1", fields["order_id"])
	assert.Equal(t, "propose", fields["transition"])
	assert.Equal(t, span.SpanContext().TraceID().String(), fields["trace_id"])
	assert.NotEmpty(t, fields["span_id"])
}

func TestL_WithoutFields(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	WithLogger(context.Background(), zap.New(core)).Debug("plain")

	logs := recorded.All()
	require.Len(t, logs, 1)
	assert.Empty(t, logs[0].Context)
}

func TestAccessLog(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(zapcore.InfoLevel)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(GinRequestIDKey, "req-9")
		c.Next()
	})
	router.Use(AccessLog(zap.New(core), "/health"))
	router.GET("/orders/:id", func(c *gin.Context) {
		assert.Equal(t, "req-9", GetRequestID(c.Request.Context()))
		FromContext(c.Request.Context()).Info("loading order")
		c.Status(http.StatusOK)
	})
	router.GET("/broken", func(c *gin.Context) { c.Status(http.StatusBadGateway) })
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/orders/po-1?expand=actions", "/nowhere", "/broken", "/health"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("X-Company-ID", "company-1")
		router.ServeHTTP(httptest.NewRecorder(), req)
	}

	scoped := recorded.FilterMessage("loading order").All()
	require.Len(t, scoped, 1)
	assert.Equal(t, "req-9", scoped[0].ContextMap()["request_id"])

	logs := recorded.FilterMessage("HTTP Request").All()
	require.Len(t, logs, 3)
	assert.Equal(t, []zapcore.Level{zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel},
		[]zapcore.Level{logs[0].Level, logs[1].Level, logs[2].Level})

	first := logs[0].ContextMap()
	assert.Equal(t, "company-1", first["company_id"])
	assert.Equal(t, "req-9", first["request_id"])
	assert.Equal(t, "/orders/:id", first["route"])
	assert.Equal(t, "/orders/po-1", first["path"])
	assert.Equal(t, "expand=actions", first["query"])
	assert.NotContains(t, logs[1].ContextMap(), "route", "unmatched paths have no route")
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(zapcore.ErrorLevel)

	router := gin.New()
	router.Use(Recovery(zap.New(core)))
	router.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 1, recorded.FilterMessage("Panic recovered").Len())
}

func TestGetGinLogger_Missing(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.NotNil(t, GetGinLogger(c))
}
