package middleware

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/fleetcost/backend/internal/infrastructure/logger"
	"github.com/fleetcost/backend/internal/testutil"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(logger.GinRequestIDKey))
	})

	t.Run("generated", func(t *testing.T) {
		w := testutil.PerformRequest(t, r, http.MethodGet, "/x", nil, nil)
		_, err := uuid.Parse(w.Body.String())
		require.NoError(t, err)
		assert.Equal(t, w.Body.String(), w.Header().Get(RequestIDHeader))
	})

	t.Run("propagated", func(t *testing.T) {
		w := testutil.PerformRequest(t, r, http.MethodGet, "/x", nil, map[string]string{RequestIDHeader: "trace-abc"})
		assert.Equal(t, "trace-abc", w.Body.String())
	})

	t.Run("oversized header replaced", func(t *testing.T) {
		long := strings.Repeat("a", MaxRequestIDLength+1)
		w := testutil.PerformRequest(t, r, http.MethodGet, "/x", nil, map[string]string{RequestIDHeader: long})
		assert.NotEqual(t, long, w.Body.String())
	})
}

func corsRouter(origins ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := DefaultCORSConfig()
	cfg.AllowOrigins = origins
	r := gin.New()
	r.Use(CORSWithConfig(cfg))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestCORS(t *testing.T) {
	t.Run("allowed origin", func(t *testing.T) {
		w := testutil.PerformRequest(t, corsRouter("https://ops.example.com"), http.MethodGet, "/x", nil,
			map[string]string{"Origin": "https://ops.example.com"})
		assert.Equal(t, "https://ops.example.com", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
		assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "Content-Disposition")
	})

	t.Run("unknown origin", func(t *testing.T) {
		w := testutil.PerformRequest(t, corsRouter("https://ops.example.com"), http.MethodGet, "/x", nil,
			map[string]string{"Origin": "https://evil.example.com"})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("wildcard omits credentials", func(t *testing.T) {
		w := testutil.PerformRequest(t, corsRouter("*"), http.MethodGet, "/x", nil,
			map[string]string{"Origin": "https://any.example.com"})
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("preflight", func(t *testing.T) {
		w := testutil.PerformRequest(t, corsRouter("https://ops.example.com"), http.MethodOptions, "/x", nil,
			map[string]string{"Origin": "https://ops.example.com"})
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
		assert.Equal(t, "43200", w.Header().Get("Access-Control-Max-Age"))
	})

	t.Run("preflight without configured origins", func(t *testing.T) {
		w := testutil.PerformRequest(t, corsRouter(), http.MethodOptions, "/x", nil,
			map[string]string{"Origin": "https://ops.example.com"})
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestSecureHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(SecureHeaders(365 * 24 * time.Hour))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := testutil.PerformRequest(t, r, http.MethodGet, "/x", nil, nil)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "max-age=31536000; includeSubDomains", w.Header().Get("Strict-Transport-Security"))
}

func TestTimeout_SetsDeadline(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Timeout(time.Minute))
	r.GET("/x", func(c *gin.Context) {
		_, ok := c.Request.Context().Deadline()
		assert.True(t, ok)
		c.Status(http.StatusOK)
	})
	assert.Equal(t, http.StatusOK, testutil.PerformRequest(t, r, http.MethodGet, "/x", nil, nil).Code)
}
