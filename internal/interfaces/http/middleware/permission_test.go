package middleware

import (
	"net/http"
	"testing"

	"github.com/consorcio/backend/internal/domain/identity"
	"github.com/consorcio/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRequirePermission(t *testing.T) {
	svc := newTestJWTService()
	router := gin.New()
	router.Use(JWTAuthMiddleware(jwtValidator{svc: svc}))
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	router.POST("/api/v1/uploads/sales", RequirePermission(identity.PermIntake), ok)
	router.GET("/api/v1/commissions", RequireAnyPermission(identity.PermCommissions, identity.PermDashboard), ok)
	router.GET("/api/v1/clients/:id/statement", RequirePermission(identity.PermClientInstallments), ok)

	tests := []struct {
		name   string
		role   identity.Role
		method string
		path   string
		want   int
	}{
		{"administrative runs intake", identity.RoleAdministrative, http.MethodPost, "/api/v1/uploads/sales", http.StatusOK},
		{"financial cannot run intake", identity.RoleFinancial, http.MethodPost, "/api/v1/uploads/sales", http.StatusForbidden},
		{"salesperson cannot run intake", identity.RoleSalesperson, http.MethodPost, "/api/v1/uploads/sales", http.StatusForbidden},
		{"any permission admits the dashboard role", identity.RoleSalesperson, http.MethodGet, "/api/v1/commissions", http.StatusOK},
		{"financial reads statements", identity.RoleFinancial, http.MethodGet, "/api/v1/clients/2/statement", http.StatusOK},
		{"manager cannot read statements", identity.RoleManager, http.MethodGet, "/api/v1/clients/2/statement", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(router, tt.method, tt.path, tokenFor(t, svc, "7", tt.role))
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusForbidden {
				assert.Equal(t, dto.ErrCodeForbidden, decodeError(t, rec).Code)
			}
		})
	}
}

func TestRequirePermission_WithoutClaims(t *testing.T) {
	router := gin.New()
	router.GET("/x", RequirePermission(identity.PermUsers), func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := serve(router, http.MethodGet, "/x", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireRole(t *testing.T) {
	svc := newTestJWTService()
	router := gin.New()
	router.Use(JWTAuthMiddleware(jwtValidator{svc: svc}))
	router.GET("/api/v1/system/info", RequireRole(identity.RoleMaster), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/api/v1/system/info", tokenFor(t, svc, "1", identity.RoleMaster)).Code)
	assert.Equal(t, http.StatusForbidden, serve(router, http.MethodGet, "/api/v1/system/info", tokenFor(t, svc, "2", identity.RoleAdministrative)).Code)
}
