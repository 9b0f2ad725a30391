package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supplychain/procurement/internal/interfaces/http/dto"
)

func bodyLimitEngine(limit int64) *gin.Engine {
	engine := gin.New()
	engine.Use(RequestID(), BodyLimit(limit))
	engine.POST("/harvests", func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.String(http.StatusRequestEntityTooLarge, "limit %d", tooLarge.Limit)
			return
		}
		c.String(http.StatusOK, "%d", len(body))
	})
	return engine
}

func postHarvest(engine *gin.Engine, body string, declaredLength int64) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/harvests", strings.NewReader(body))
	req.ContentLength = declaredLength
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestBodyLimit(t *testing.T) {
	t.Run("body within limit reaches the handler", func(t *testing.T) {
		w := postHarvest(bodyLimitEngine(64), `{"batch_code":"HB-1"}`, 21)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "21", w.Body.String())
	})

	t.Run("declared length over limit is refused up front", func(t *testing.T) {
		w := postHarvest(bodyLimitEngine(16), strings.Repeat("x", 40), 40)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeRequestTooLarge, resp.Error.Code)
		assert.Equal(t, w.Header().Get(RequestIDHeader), resp.Error.RequestID)
	})

	t.Run("undeclared length fails while reading", func(t *testing.T) {
		w := postHarvest(bodyLimitEngine(16), strings.Repeat("x", 40), -1)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Equal(t, "limit 16", w.Body.String())
	})

	t.Run("non-positive limit disables the check", func(t *testing.T) {
		w := postHarvest(bodyLimitEngine(0), strings.Repeat("x", 4096), 4096)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "4096", w.Body.String())
	})
}
