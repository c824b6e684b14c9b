package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dayplan-api/internal/models"
	appErrors "github.com/noah-isme/dayplan-api/pkg/errors"
)

type validatorStub struct {
	claims *models.TokenClaims
}

func (v validatorStub) ValidateToken(token string) (*models.TokenClaims, error) {
	if token != "good" {
		return nil, appErrors.Wrap(errors.New("bad signature"), appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}
	return v.claims, nil
}

func newRouter(claims *models.TokenClaims) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/plans", JWT(validatorStub{claims: claims}), RequireScope(models.ScopePlansWrite), func(c *gin.Context) {
		c.String(http.StatusOK, ClaimsFromContext(c).ClientID)
	})
	return router
}

func serve(router http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/plans", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestJWTAndScope(t *testing.T) {
	router := newRouter(&models.TokenClaims{ClientID: "cli", Scopes: []models.Scope{models.ScopePlansWrite}})

	rec := serve(router, "Bearer good")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cli", rec.Body.String())

	assert.Equal(t, http.StatusUnauthorized, serve(router, "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, "Basic abc").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, "Bearer bad").Code)
}

func TestRequireScopeForbidsMissingScope(t *testing.T) {
	router := newRouter(&models.TokenClaims{ClientID: "cli", Scopes: []models.Scope{models.ScopeTaskListsWrite}})
	rec := serve(router, "Bearer good")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "plans:write")
}

type observerStub struct {
	paths []string
}

func (o *observerStub) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	o.paths = append(o.paths, path)
}

func TestMetricsUsesRouteTemplates(t *testing.T) {
	gin.SetMode(gin.TestMode)
	obs := &observerStub{}
	router := gin.New()
	router.Use(Metrics(obs))
	router.GET("/plans/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/plans/123", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/wp-admin", nil))
	assert.Equal(t, []string{"/plans/:id", "unmatched"}, obs.paths)
}

func TestResponseMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var meta map[string]interface{}
	router := gin.New()
	router.Use(WithResponseMeta())
	router.GET("/", func(c *gin.Context) {
		SetCacheHit(c, true)
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotNil(t, meta)
	assert.Equal(t, true, meta["cache_hit"])
	assert.Contains(t, meta, "processing_time_ms")

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, ExtractMeta(c))
}
