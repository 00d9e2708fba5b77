package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/consorcio/backend/internal/domain/identity"
	"github.com/consorcio/backend/internal/domain/shared"
	"github.com/consorcio/backend/internal/infrastructure/auth"
	"github.com/consorcio/backend/internal/interfaces/http/handler"
	"github.com/consorcio/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	_ = middleware.SetupValidator()
}

// tokenRoles maps bearer tokens to roles
type tokenRoles map[string]identity.Role

func (t tokenRoles) ValidateAccessToken(_ context.Context, token string) (*auth.Claims, error) {
	role, ok := t[token]
	if !ok {
		return nil, shared.NewDomainError("TOKEN_INVALID", "Invalid token")
	}
	return &auth.Claims{UserID: "7", Username: string(role), Role: string(role), TokenType: auth.TokenTypeAccess}, nil
}

var tokens = tokenRoles{
	"master":     identity.RoleMaster,
	"financeiro": identity.RoleFinancial,
	"vendedor":   identity.RoleSalesperson,
}

func newTestEngine(t *testing.T, mutate func(*Config)) *gin.Engine {
	t.Helper()
	cfg := Config{
		TokenValidator: tokens,
		CORS:           middleware.DefaultCORSConfig(),
		MaxBodySize:    1 << 20,
		Tracing:        middleware.TracingConfig{Enabled: false},
	}
	if mutate != nil {
		mutate(&cfg)
	}
	engine, err := New(cfg, Handlers{
		System: handler.NewSystemHandler("consorcio", "test", map[string]handler.ReadinessCheck{
			"database": func(context.Context) error { return nil },
		}),
		Auth:         handler.NewAuthHandler(nil),
		Users:        handler.NewUserHandler(nil),
		Clients:      handler.NewClientHandler(nil),
		Rules:        handler.NewRuleHandler(nil),
		Uploads:      handler.NewUploadHandler(nil, 0),
		Installments: handler.NewInstallmentHandler(nil),
		Proposals:    handler.NewProposalHandler(nil),
		History:      handler.NewHistoryHandler(nil),
	})
	require.NoError(t, err)
	return engine
}

func call(engine *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())

	assert.Equal(t, "v1", r.apiVersion)
	assert.Equal(t, "/api/v1", r.BasePath())
	assert.Empty(t, r.registrars)
}

func TestRouterWithAPIVersion(t *testing.T) {
	r := NewRouter(gin.New(), WithAPIVersion("v2"))

	assert.Equal(t, "/api/v2", r.BasePath())
}

func TestRouterSetup_APIMiddlewareSkipsRootRoutes(t *testing.T) {
	engine := gin.New()
	engine.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r := NewRouter(engine, WithAPIMiddleware(func(c *gin.Context) {
		c.AbortWithStatus(http.StatusTeapot)
	}))
	r.Register(NewDomainGroup("test", "/test").GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	}))
	r.Setup()

	assert.Equal(t, http.StatusTeapot, call(engine, http.MethodGet, "/api/v1/test/ping", "", "").Code)
	assert.Equal(t, http.StatusOK, call(engine, http.MethodGet, "/health", "", "").Code)
}

func TestDomainGroup(t *testing.T) {
	t.Run("name and prefix", func(t *testing.T) {
		g := NewDomainGroup("rules", "/rules")
		assert.Equal(t, "rules", g.Name())
		assert.Equal(t, "/rules", g.Prefix())
	})

	t.Run("methods", func(t *testing.T) {
		engine := gin.New()
		ok := func(c *gin.Context) { c.String(http.StatusOK, c.Request.Method) }
		NewDomainGroup("test", "/test").
			GET("/items", ok).
			POST("/items", ok).
			PUT("/items/:id", ok).
			DELETE("/items/:id", ok).
			Handle(http.MethodPatch, "/items/:id", ok).
			RegisterRoutes(engine.Group("/api/v1"))

		for _, tc := range []struct{ method, path string }{
			{http.MethodGet, "/api/v1/test/items"},
			{http.MethodPost, "/api/v1/test/items"},
			{http.MethodPut, "/api/v1/test/items/1"},
			{http.MethodDelete, "/api/v1/test/items/1"},
			{http.MethodPatch, "/api/v1/test/items/1"},
		} {
			w := call(engine, tc.method, tc.path, "", "")
			assert.Equal(t, http.StatusOK, w.Code, tc.method)
			assert.Equal(t, tc.method, w.Body.String())
		}
	})

	t.Run("parent middleware runs before the subgroup guard", func(t *testing.T) {
		engine := gin.New()
		var order []string
		mark := func(name string) gin.HandlerFunc {
			return func(c *gin.Context) {
				order = append(order, name)
				c.Next()
			}
		}
		g := NewDomainGroup("parent", "/parent").Use(mark("parent"))
		g.Group("child", "/child").Use(mark("child")).GET("/x", func(c *gin.Context) {
			c.Status(http.StatusOK)
		})
		g.RegisterRoutes(engine.Group("/api/v1"))

		w := call(engine, http.MethodGet, "/api/v1/parent/child/x", "", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []string{"parent", "child"}, order)
	})
}

func TestNew_Probes(t *testing.T) {
	engine := newTestEngine(t, nil)

	w := call(engine, http.MethodGet, "/health", "", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	w = call(engine, http.MethodGet, "/health/ready", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNew_ReadinessFailure(t *testing.T) {
	engine, err := New(Config{TokenValidator: tokens, CORS: middleware.DefaultCORSConfig()}, Handlers{
		System: handler.NewSystemHandler("consorcio", "test", map[string]handler.ReadinessCheck{
			"cache": func(context.Context) error { return errors.New("connection refused") },
		}),
		Auth: handler.NewAuthHandler(nil), Users: handler.NewUserHandler(nil),
		Clients: handler.NewClientHandler(nil), Rules: handler.NewRuleHandler(nil),
		Uploads: handler.NewUploadHandler(nil, 0), Installments: handler.NewInstallmentHandler(nil),
		Proposals: handler.NewProposalHandler(nil), History: handler.NewHistoryHandler(nil),
	})
	require.NoError(t, err)

	w := call(engine, http.MethodGet, "/health/ready", "", "")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestNew_Metrics(t *testing.T) {
	t.Run("mounted", func(t *testing.T) {
		engine := newTestEngine(t, func(cfg *Config) {
			cfg.MetricsHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("consorcio_http_requests_total 1"))
			})
		})

		w := call(engine, http.MethodGet, "/metrics", "", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "consorcio_http_requests_total")
	})

	t.Run("disabled", func(t *testing.T) {
		engine := newTestEngine(t, nil)

		assert.Equal(t, http.StatusNotFound, call(engine, http.MethodGet, "/metrics", "", "").Code)
	})
}

func TestNew_Authentication(t *testing.T) {
	engine := newTestEngine(t, nil)

	assert.Equal(t, http.StatusUnauthorized, call(engine, http.MethodGet, "/api/v1/users", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, call(engine, http.MethodGet, "/api/v1/users", "forged", "").Code)

	// Login is public: an invalid body reaches the handler
	w := call(engine, http.MethodPost, "/api/v1/auth/login", "", "{")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNew_Permissions(t *testing.T) {
	engine := newTestEngine(t, nil)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"seller cannot manage users", http.MethodGet, "/api/v1/users", "vendedor", http.StatusForbidden},
		{"seller cannot read rules", http.MethodGet, "/api/v1/rules", "vendedor", http.StatusForbidden},
		{"seller cannot upload sales", http.MethodPost, "/api/v1/uploads/sales", "vendedor", http.StatusForbidden},
		{"financial cannot upload sales", http.MethodPost, "/api/v1/uploads/sales", "financeiro", http.StatusForbidden},
		{"financial cannot edit sales", http.MethodPost, "/api/v1/uploads/edits", "financeiro", http.StatusForbidden},
		{"seller cannot settle payouts", http.MethodPost, "/api/v1/settlement/payouts", "vendedor", http.StatusForbidden},
		{"seller cannot approve", http.MethodPost, "/api/v1/proposals/x/approve", "vendedor", http.StatusForbidden},
		{"financial cannot see proposals", http.MethodGet, "/api/v1/proposals", "financeiro", http.StatusForbidden},
		{"seller cannot see batch history", http.MethodGet, "/api/v1/batches", "vendedor", http.StatusForbidden},
		// Admitted requests stop at the malformed id, before any service call
		{"seller may submit", http.MethodPost, "/api/v1/proposals/x/submit", "vendedor", http.StatusBadRequest},
		{"master may approve", http.MethodPost, "/api/v1/proposals/x/approve", "master", http.StatusBadRequest},
		{"financial sees batch history", http.MethodGet, "/api/v1/batches/x", "financeiro", http.StatusBadRequest},
		{"financial settles client status", http.MethodPost, "/api/v1/settlement/client-status", "financeiro", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := ""
			if tt.method == http.MethodPost {
				body = "{}"
			}
			w := call(engine, tt.method, tt.path, tt.token, body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestNew_LoginRateLimit(t *testing.T) {
	engine := newTestEngine(t, func(cfg *Config) {
		cfg.LoginLimiter = middleware.NewRateLimiter(1, time.Minute)
	})

	first := call(engine, http.MethodPost, "/api/v1/auth/login", "", "{")
	second := call(engine, http.MethodPost, "/api/v1/auth/login", "", "{")

	assert.Equal(t, http.StatusBadRequest, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
}

func TestNew_BodyLimit(t *testing.T) {
	engine := newTestEngine(t, func(cfg *Config) {
		cfg.MaxBodySize = 8
	})

	w := call(engine, http.MethodPost, "/api/v1/auth/login", "", `{"username":"master","password":"secret"}`)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}
