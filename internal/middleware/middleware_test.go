package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/harmony-timetable-api/internal/models"
	appErrors "github.com/noah-isme/harmony-timetable-api/pkg/errors"
)

type validatorStub struct{}

func (validatorStub) ValidateToken(token string) (*models.JWTClaims, error) {
	switch token {
	case "admin-token":
		return &models.JWTClaims{UserID: "u-admin", Role: models.RoleAdmin}, nil
	case "viewer-token":
		return &models.JWTClaims{UserID: "u-viewer", Role: models.RoleViewer}, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

type observerStub struct {
	paths    []string
	statuses []int
}

func (o *observerStub) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	o.paths = append(o.paths, path)
	o.statuses = append(o.statuses, status)
}

func newProtectedRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/manage", JWT(validatorStub{}), RBAC(ManageRoles...), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.GET("/optional", OptionalJWT(validatorStub{}), func(c *gin.Context) {
		if _, ok := c.Get(ContextUserKey); ok {
			c.Status(http.StatusOK)
			return
		}
		c.Status(http.StatusAccepted)
	})
	return router
}

func TestJWTAndRBAC(t *testing.T) {
	router := newProtectedRouter()

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{name: "missing header", header: "", want: http.StatusUnauthorized},
		{name: "malformed header", header: "Token admin-token", want: http.StatusUnauthorized},
		{name: "invalid token", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "role not allowed", header: "Bearer viewer-token", want: http.StatusForbidden},
		{name: "allowed", header: "Bearer admin-token", want: http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/manage", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestOptionalJWT(t *testing.T) {
	router := newProtectedRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/optional", nil))
	assert.Equal(t, http.StatusAccepted, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/optional", nil)
	req.Header.Set("Authorization", "Bearer viewer-token")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRBACWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/x", RBAC(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestFeatureGate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/off", FeatureGate(false, "scheduler"), func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/on", FeatureGate(true, "scheduler"), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/off", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "FEATURE_DISABLED")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/on", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsUsesRoutePattern(t *testing.T) {
	gin.SetMode(gin.TestMode)
	observer := &observerStub{}
	router := gin.New()
	router.Use(Metrics(observer))
	router.GET("/timetables/:id", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/timetables/abc", nil))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	require.Len(t, observer.paths, 2)
	assert.Equal(t, "/timetables/:id", observer.paths[0])
	assert.Equal(t, http.StatusTeapot, observer.statuses[0])
	assert.Equal(t, "unmatched", observer.paths[1])
}
