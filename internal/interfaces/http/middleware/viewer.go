package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/supplychain/procurement/internal/infrastructure/logger"
	"github.com/supplychain/procurement/internal/interfaces/http/dto"
)

// Viewer headers and gin context keys
const (
	TenantHeader  = "X-Tenant-ID"
	CompanyHeader = "X-Company-ID"

	TenantIDKey  = "tenant_id"
	CompanyIDKey = "company_id"
)

// ViewerConfig holds configuration for the viewer middleware
type ViewerConfig struct {
	// SkipPaths don't require viewer headers (e.g. health checks)
	SkipPaths []string
}

// Viewer reads the viewer's tenant and company from headers. Both are required
// UUIDs; the request is rejected with 400 otherwise. The IDs are stored in the
// gin context and in the request context for logging.
func Viewer(cfg ViewerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skipPath := range cfg.SkipPaths {
			if path == skipPath || strings.HasPrefix(path, skipPath+"/") {
				c.Next()
				return
			}
		}

		tenantID, ok := requireUUIDHeader(c, TenantHeader)
		if !ok {
			return
		}
		companyID, ok := requireUUIDHeader(c, CompanyHeader)
		if !ok {
			return
		}

		c.Set(TenantIDKey, tenantID)
		c.Set(CompanyIDKey, companyID)

		ctx := logger.WithTenantID(c.Request.Context(), tenantID.String())
		ctx = logger.WithCompanyID(ctx, companyID.String())
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func requireUUIDHeader(c *gin.Context, header string) (uuid.UUID, bool) {
	raw := c.GetHeader(header)
	if raw == "" {
		abortBadRequest(c, header+" header is required")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		abortBadRequest(c, header+" header must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

func abortBadRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
		dto.ErrCodeBadRequest, message, GetRequestID(c),
	))
}

// GetTenantUUID retrieves the tenant ID stored by Viewer
func GetTenantUUID(c *gin.Context) (uuid.UUID, bool) {
	return uuidFromContext(c, TenantIDKey)
}

// GetCompanyUUID retrieves the viewer company ID stored by Viewer
func GetCompanyUUID(c *gin.Context) (uuid.UUID, bool) {
	return uuidFromContext(c, CompanyIDKey)
}

func uuidFromContext(c *gin.Context, key string) (uuid.UUID, bool) {
	v, exists := c.Get(key)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok && id != uuid.Nil
}

func isUUID(s string) bool {
	if s == "" || len(s) > 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}
