package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/ogurasousui/construction-api/internal/adapters/http/handler"
	"github.com/ogurasousui/construction-api/internal/adapters/http/middleware"
	"github.com/ogurasousui/construction-api/internal/platform/config"
	"github.com/ogurasousui/construction-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter() *gin.Engine {
	log := logger.NewNop()
	return New(Config{
		Health:    handler.NewHealthHandler(nil, log),
		Employees: handler.NewEmployeeHandler(nil, log),
		Projects:  handler.NewProjectHandler(nil, nil, log),
		Materials: handler.NewMaterialHandler(nil, log),
		Auth:      middleware.NewAuthenticator(config.AuthConfig{JWTSecret: "secret"}, log),
		CORS:      config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		Logger:    log,
	})
}

func TestRouter_PublicRoutes(t *testing.T) {
	t.Parallel()

	r := newTestRouter()
	for _, path := range []string{"/", "/healthcheck"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader), path)
	}
}

func TestRouter_APIRequiresToken(t *testing.T) {
	t.Parallel()

	r := newTestRouter()
	paths := []string{
		"/api/employees",
		"/api/projects",
		"/api/materials",
		"/api/materials/low-stock",
	}
	for _, path := range paths {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestRouter_PreflightSkipsAuth(t *testing.T) {
	t.Parallel()

	r := newTestRouter()
	req := httptest.NewRequest(http.MethodOptions, "/api/employees", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}
