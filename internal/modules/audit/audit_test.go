package audit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/CJCR07/veridicus/internal/middleware"
)

func auditRouter(ownsCase CaseOwnership) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api")
	api.Use(func(c *gin.Context) {
		c.Set(middleware.ContextKeyUserID, "6a1b2c3d-0000-4000-8000-000000000001")
	})
	// No db behind the service: ownership is checked before any query.
	NewHandler(NewService(nil, zap.NewNop()), ownsCase).RegisterRoutes(api)
	return r
}

func TestListByCaseForeignCaseIsNotFound(t *testing.T) {
	r := auditRouter(func(caseID, userID string) (bool, error) { return false, nil })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/audit/case/41111111-2222-4333-8444-555555555555", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
	require.JSONEq(t, `{"error": "case not found"}`, w.Body.String())
}

func TestListByCaseRejectsMalformedID(t *testing.T) {
	r := auditRouter(func(caseID, userID string) (bool, error) {
		t.Fatal("ownership must not be consulted for a malformed id")
		return false, nil
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/audit/case/not-a-uuid", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.JSONEq(t, `{"error": "invalid case id"}`, w.Body.String())
}
