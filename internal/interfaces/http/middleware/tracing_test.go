package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/consorcio/backend/internal/domain/identity"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(t.Context())
	})
	return sr
}

func TestTracing(t *testing.T) {
	sr := setupTestTracer(t)
	svc := newTestJWTService()

	router := gin.New()
	router.Use(RequestID(), TracingWithConfig(DefaultTracingConfig()), SpanErrorMarker())
	router.Use(JWTAuthMiddleware(jwtValidator{svc: svc}), TracingAttributeInjector())
	router.GET("/api/v1/installments/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(router, http.MethodGet, "/api/v1/installments/x", tokenFor(t, svc, "30", identity.RoleSalesperson))
	serve(router, http.MethodGet, "/health", "")

	spans := sr.Ended()
	require.Len(t, spans, 1, "health probes are not traced")
	span := spans[0]
	assert.Contains(t, span.Name(), "/api/v1/installments/:id")
	assert.Equal(t, codes.Error, span.Status().Code)

	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range span.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, "30", attrs["user.id"].AsString())
	assert.Equal(t, "Vendedor", attrs["user.role"].AsString())
	assert.NotEmpty(t, attrs["request_id"].AsString())
}

func TestTracing_Disabled(t *testing.T) {
	sr := setupTestTracer(t)
	router := gin.New()
	router.Use(TracingWithConfig(TracingConfig{Enabled: false}))
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, sr.Ended())
}
