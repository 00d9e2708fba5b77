package router

import (
	"net/http"

	"github.com/consorcio/backend/internal/domain/identity"
	"github.com/consorcio/backend/internal/infrastructure/logger"
	"github.com/consorcio/backend/internal/infrastructure/telemetry"
	"github.com/consorcio/backend/internal/interfaces/http/handler"
	"github.com/consorcio/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Config holds the engine-level settings
type Config struct {
	Logger         *zap.Logger
	TokenValidator middleware.TokenValidator
	CORS           middleware.CORSConfig
	TrustedProxies []string
	MaxBodySize    int64
	Tracing        middleware.TracingConfig
	HTTPMetrics    *telemetry.HTTPMetrics
	// MetricsHandler serves /metrics; the route is omitted when nil
	MetricsHandler http.Handler
	Profiling      bool
	// LoginLimiter throttles POST /auth/login per client IP when set
	LoginLimiter *middleware.RateLimiter
}

// Handlers are the HTTP handlers mounted by New
type Handlers struct {
	System       *handler.SystemHandler
	Auth         *handler.AuthHandler
	Users        *handler.UserHandler
	Clients      *handler.ClientHandler
	Rules        *handler.RuleHandler
	Uploads      *handler.UploadHandler
	Installments *handler.InstallmentHandler
	Proposals    *handler.ProposalHandler
	History      *handler.HistoryHandler
}

// staffRoles see the batch history of every operator
var staffRoles = []identity.Role{identity.RoleMaster, identity.RoleAdministrative, identity.RoleFinancial}

// New builds the gin engine with the global middleware chain and every route
func New(cfg Config, h Handlers) (*gin.Engine, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}
	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.Secure(),
		middleware.CORSWithConfig(cfg.CORS),
	)
	if cfg.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.MaxBodySize))
	}
	engine.Use(
		middleware.TracingWithConfig(cfg.Tracing),
		middleware.SpanErrorMarker(),
		middleware.HTTPMetrics(cfg.HTTPMetrics),
	)

	engine.GET("/health", h.System.Health)
	engine.GET("/health/ready", h.System.Ready)
	if cfg.MetricsHandler != nil {
		engine.GET("/metrics", gin.WrapH(cfg.MetricsHandler))
	}

	jwtCfg := middleware.DefaultJWTConfig(cfg.TokenValidator)
	jwtCfg.Logger = log
	permCfg := middleware.PermissionConfig{Logger: log}
	require := func(perms ...string) gin.HandlerFunc {
		return middleware.RequireAnyPermissionWithConfig(permCfg, perms...)
	}

	r := NewRouter(engine, WithAPIMiddleware(
		middleware.JWTAuthMiddlewareWithConfig(jwtCfg),
		middleware.TracingAttributeInjector(),
		middleware.Profiling(cfg.Profiling),
	))

	login := []gin.HandlerFunc{h.Auth.Login}
	if cfg.LoginLimiter != nil {
		login = append([]gin.HandlerFunc{middleware.RateLimit(cfg.LoginLimiter)}, login...)
	}
	r.Register(NewDomainGroup("auth", "/auth").
		POST("/login", login...).
		POST("/refresh", h.Auth.RefreshToken).
		POST("/logout", h.Auth.Logout).
		GET("/me", h.Auth.GetCurrentUser).
		PUT("/password", h.Auth.ChangePassword))

	r.Register(NewDomainGroup("system", "/system").
		GET("/info", h.System.GetSystemInfo))

	r.Register(NewDomainGroup("users", "/users").Use(require(identity.PermUsers)).
		GET("", h.Users.List).
		POST("", h.Users.Create).
		GET("/:id", h.Users.Get).
		PUT("/:id", h.Users.Update).
		DELETE("/:id", h.Users.Delete).
		POST("/:id/password", h.Users.ResetPassword))

	r.Register(NewDomainGroup("clients", "/clients").Use(require(identity.PermClients)).
		GET("", h.Clients.Search).
		PUT("", h.Clients.Upsert).
		GET("/:id", h.Clients.Get).
		GET("/:id/statement", h.Clients.Statement))

	r.Register(NewDomainGroup("rules", "/rules").Use(require(identity.PermRules)).
		GET("", h.Rules.List).
		PUT("", h.Rules.Upsert).
		POST("/import", h.Uploads.Rules).
		GET("/:product_type", h.Rules.Get).
		DELETE("/:product_type", h.Rules.Delete))

	uploads := NewDomainGroup("uploads", "/uploads")
	uploads.Group("intake", "").Use(require(identity.PermIntake)).
		POST("/sales", h.Uploads.Sales)
	uploads.Group("reconciliation", "").Use(require(identity.PermReconciliation)).
		POST("/statement", h.Uploads.Statement)
	uploads.Group("cancellation", "").Use(require(identity.PermCancellation)).
		POST("/cancellations", h.Uploads.Cancellations)
	uploads.Group("adjustments", "").Use(require(identity.PermAdjustments)).
		POST("/edits", h.Uploads.Edits).
		POST("/deletes", h.Uploads.Deletes)
	r.Register(uploads)

	r.Register(NewDomainGroup("installments", "/installments").Use(require(identity.PermDashboard)).
		GET("", h.Installments.List).
		GET("/export", h.Installments.Export).
		GET("/:id", h.Installments.Get))

	r.Register(NewDomainGroup("dashboard", "/dashboard").Use(require(identity.PermDashboard)).
		GET("/summary", h.Installments.Summary).
		GET("/alerts", h.Installments.Alerts))

	// Field roles get their own payouts; the service scopes the query
	r.Register(NewDomainGroup("commissions", "/commissions").Use(require(identity.PermDashboard)).
		GET("", h.Installments.Commissions))

	settlement := NewDomainGroup("settlement", "/settlement")
	settlement.Group("client_installments", "").Use(require(identity.PermClientInstallments)).
		POST("/client-status", h.Installments.SetClientStatus)
	settlement.Group("commissions", "").Use(require(identity.PermCommissions)).
		POST("/payouts", h.Installments.SettlePayouts)
	r.Register(settlement)

	proposals := NewDomainGroup("proposals", "/proposals").
		Use(require(identity.PermProposalSubmit, identity.PermProposalReview))
	proposals.
		GET("", h.Proposals.List).
		POST("", h.Proposals.Create).
		GET("/:id", h.Proposals.Get).
		PUT("/:id", h.Proposals.Update).
		POST("/:id/submit", h.Proposals.Submit)
	proposals.Group("review", "").Use(require(identity.PermProposalReview)).
		POST("/:id/reject", h.Proposals.Reject).
		POST("/:id/approve", h.Proposals.Approve)
	r.Register(proposals)

	r.Register(NewDomainGroup("batches", "/batches").
		Use(middleware.RequireRole(staffRoles...)).
		GET("", h.History.List).
		GET("/:id", h.History.Get).
		GET("/:id/log", h.History.LogDownload).
		GET("/:id/upload", h.History.UploadDownload))

	r.Setup()
	return engine, nil
}
