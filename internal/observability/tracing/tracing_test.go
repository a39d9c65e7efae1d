package tracing

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/estateloyalty/internal/observability/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecordingEngine(t *testing.T) (*gin.Engine, *tracetest.SpanRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	r := gin.New()
	r.Use(GinMiddleware())
	return r, recorder
}

func spanAttr(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, attr := range attrs {
		if string(attr.Key) == key {
			return attr.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestSafeAttributes(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("customer_id", "cust-1"),
		attribute.String("http.route", strings.Repeat("a", 400)),
		attribute.Int("http.status_code", 200),
	)
	require.Len(t, attrs, 2)
	assert.Len(t, attrs[0].Value.AsString(), maxAttributeLength)
	assert.Equal(t, int64(200), attrs[1].Value.AsInt64())
}

func TestSafeError(t *testing.T) {
	assert.Nil(t, SafeError(nil))
	assert.Equal(t, "boom", SafeError(errors.New(" boom ")).Error())
}

func TestClampRatio(t *testing.T) {
	assert.Equal(t, 0.0, clampRatio(-1))
	assert.Equal(t, 0.25, clampRatio(0.25))
	assert.Equal(t, 1.0, clampRatio(3))
}

func TestGinMiddlewareRecordsServerErrors(t *testing.T) {
	r, recorder := newRecordingEngine(t)
	r.GET("/api/sessions/:id/membership", func(c *gin.Context) {
		_ = c.Error(errors.New("spend unavailable"))
		c.Status(http.StatusServiceUnavailable)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sessions/abc/membership", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "HTTP GET /api/sessions/:id/membership", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestGinMiddlewareTagsSessionAndTier(t *testing.T) {
	r, recorder := newRecordingEngine(t)

	var seenSession string
	r.POST("/api/sessions/:id/membership/refresh", func(c *gin.Context) {
		seenSession = obscontext.SessionIDFromContext(c.Request.Context())
		c.Set("tier", "Gold")
		c.Status(http.StatusOK)
	})
	r.GET("/api/tiers", func(c *gin.Context) { c.Status(http.StatusOK) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/sessions/sess-9/membership/refresh", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/tiers", nil))

	assert.Equal(t, "sess-9", seenSession)

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	sessionID, ok := spanAttr(spans[0].Attributes(), "session.id")
	require.True(t, ok)
	assert.Equal(t, "sess-9", sessionID.AsString())
	tier, ok := spanAttr(spans[0].Attributes(), "membership.tier")
	require.True(t, ok)
	assert.Equal(t, "Gold", tier.AsString())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)

	_, ok = spanAttr(spans[1].Attributes(), "session.id")
	assert.False(t, ok)
}

func TestGinMiddlewareRateLimitIsNotAnError(t *testing.T) {
	r, recorder := newRecordingEngine(t)
	r.POST("/api/sessions/:id/membership/refresh", func(c *gin.Context) {
		c.Status(http.StatusTooManyRequests)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/sessions/sess-1/membership/refresh", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.NotEqual(t, codes.Error, spans[0].Status().Code)
	limited, ok := spanAttr(spans[0].Attributes(), "rate_limited")
	require.True(t, ok)
	assert.True(t, limited.AsBool())
}
