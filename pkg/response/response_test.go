package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/harmony-timetable-api/internal/models"
	appErrors "github.com/noah-isme/harmony-timetable-api/pkg/errors"
)

func newContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func TestJSONEnvelope(t *testing.T) {
	c, w := newContext()
	JSON(c, http.StatusOK, []string{"a"}, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 1}, map[string]interface{}{"count": 1})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	var env map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Contains(t, env, "data")
	assert.Contains(t, env, "pagination")
	assert.Contains(t, env, "meta")
	assert.NotContains(t, env, "error")
}

func TestErrorEnvelope(t *testing.T) {
	c, w := newContext()
	Error(c, appErrors.Clone(appErrors.ErrInfeasible, "insufficient rooms"))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"TIMETABLE_INFEASIBLE"`)
	assert.Contains(t, w.Body.String(), "insufficient rooms")
}

func TestAcceptedAndFile(t *testing.T) {
	c, w := newContext()
	Accepted(c, "/api/v1/timetables/jobs/1", gin.H{"jobId": "1"})
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "/api/v1/timetables/jobs/1", w.Header().Get("Location"))

	c, w = newContext()
	File(c, "timetable.csv", "text/csv", []byte("Day\n"))
	assert.Equal(t, `attachment; filename="timetable.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "Day\n", w.Body.String())
}
