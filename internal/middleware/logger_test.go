package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerIncludesUserAndQuery(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Logger(zap.New(core)))
	r.GET("/cases", func(c *gin.Context) {
		c.Set(ContextKeyUserID, "6a1b2c3d-0000-4000-8000-000000000001")
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/cases?page=2", nil))

	entries := logs.All()
	require.Len(t, entries, 1)

	fields := entries[0].ContextMap()
	require.Equal(t, "/cases", fields["path"])
	require.Equal(t, int64(http.StatusOK), fields["status"])
	require.Equal(t, "page=2", fields["query"])
	require.Equal(t, "6a1b2c3d-0000-4000-8000-000000000001", fields["user_id"])
}

func TestLoggerOmitsUserWhenUnauthenticated(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Logger(zap.New(core)))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	entries := logs.All()
	require.Len(t, entries, 1)
	require.NotContains(t, entries[0].ContextMap(), "user_id")
	require.NotContains(t, entries[0].ContextMap(), "query")
}
