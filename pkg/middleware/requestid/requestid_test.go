package requestid

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Middleware())
	var seen string
	router.GET("/", func(c *gin.Context) {
		seen = Value(c)
		c.Status(http.StatusOK)
	})

	known := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(headerKey, known)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, known, seen)
	assert.Equal(t, known, w.Header().Get(headerKey))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(headerKey, "not a uuid")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	_, err := uuid.Parse(seen)
	assert.NoError(t, err)
}
