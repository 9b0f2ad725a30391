package handler

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	inventoryapp "github.com/supplychain/procurement/internal/application/inventory"
	tradeapp "github.com/supplychain/procurement/internal/application/trade"
	"github.com/supplychain/procurement/internal/infrastructure/cache"
	"github.com/supplychain/procurement/internal/infrastructure/config"
	"github.com/supplychain/procurement/internal/infrastructure/persistence"
	"github.com/supplychain/procurement/internal/infrastructure/strategy"
	"github.com/supplychain/procurement/internal/interfaces/http/dto"
	"github.com/supplychain/procurement/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

type testServer struct {
	engine   *gin.Engine
	db       *persistence.Database
	tenantID uuid.UUID
}

// envelope mirrors dto.Response with the payload left raw for typed decoding
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := persistence.Open(&config.DatabaseConfig{Driver: persistence.DriverSQLite, Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate())
	t.Cleanup(func() { _ = db.Close() })

	guard := cache.NewInMemorySubmissionGuard()
	t.Cleanup(func() { _ = guard.Close() })

	policies, err := strategy.NewRegistryWithDefaults(strategy.Options{ProportionalScale: 3})
	require.NoError(t, err)

	orders := persistence.NewGormOrderGateway(db.DB)
	batches := persistence.NewGormBatchGateway(db.DB)

	allocationService := inventoryapp.NewAllocationService(batches, policies,
		inventoryapp.MassBalanceConfigFromSettings(0.01, 0.05), zap.NewNop())
	allocationService.SetBatchFinder(batches)

	amendmentService := tradeapp.NewAmendmentService(orders, guard, cache.NewOrderSnapshotCache(), zap.NewNop())
	amendmentService.SetOrderPlacer(orders)
	amendmentService.SetAllocationTrigger(allocationService)

	orderHandler := NewOrderHandler(amendmentService)
	allocationHandler := NewAllocationHandler(allocationService)
	systemHandler := NewSystemHandler("procurement", "test", db)

	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.GET("/health", systemHandler.Health)

	api := engine.Group("/api/v1")
	api.Use(middleware.Viewer(middleware.ViewerConfig{SkipPaths: []string{"/api/v1/ping"}}))
	api.GET("/ping", systemHandler.Ping)

	api.POST("/orders", orderHandler.PlaceOrder)
	api.GET("/orders/:id", orderHandler.GetOrder)
	api.PATCH("/orders/:id", orderHandler.EditOrder)
	api.GET("/orders/:id/actions", orderHandler.GetActions)
	api.POST("/orders/:id/amendments", orderHandler.ProposeAmendment)
	api.POST("/orders/:id/amendments/decision", orderHandler.DecideAmendment)
	api.POST("/orders/:id/accept", orderHandler.AcceptOrder)
	api.POST("/orders/:id/reject", orderHandler.RejectOrder)

	api.GET("/batches", allocationHandler.ListBatches)
	api.POST("/harvests", allocationHandler.DeclareHarvest)
	api.POST("/allocations/plan", allocationHandler.Plan)
	api.POST("/allocations/compare", allocationHandler.Compare)
	api.POST("/allocations/preview", allocationHandler.Preview)
	api.POST("/allocation-sessions", allocationHandler.CreateSession)
	api.GET("/allocation-sessions/:id", allocationHandler.GetSession)
	api.DELETE("/allocation-sessions/:id", allocationHandler.DeleteSession)
	api.POST("/allocation-sessions/:id/picks", allocationHandler.AddPick)
	api.DELETE("/allocation-sessions/:id/picks/:batch_id", allocationHandler.RemovePick)

	return &testServer{engine: engine, db: db, tenantID: uuid.New()}
}

// do sends body (marshalled unless it is already a string) as the given company
func (s *testServer) do(t *testing.T, method, path string, companyID uuid.UUID, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if companyID != uuid.Nil {
		req.Header.Set(middleware.TenantHeader, s.tenantID.String())
		req.Header.Set(middleware.CompanyHeader, companyID.String())
	}

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func decodeData[T any](t *testing.T, w *httptest.ResponseRecorder, status int) T {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	env := decode(t, w)
	require.True(t, env.Success)
	var data T
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data
}

func requireError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) *dto.ErrorInfo {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	env := decode(t, w)
	require.False(t, env.Success)
	require.NotNil(t, env.Error)
	require.Equal(t, code, env.Error.Code)
	return env.Error
}
