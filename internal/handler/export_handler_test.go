package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/harmony-timetable-api/internal/service"
	appErrors "github.com/noah-isme/harmony-timetable-api/pkg/errors"
)

type exporterMock struct {
	format string
}

func (m *exporterMock) ExportTimetable(ctx context.Context, id, format string) (*service.ExportFile, error) {
	m.format = format
	if format == "docx" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
	return &service.ExportFile{Filename: "timetable_CSE_morning_v1.csv", ContentType: "text/csv", Data: []byte("Day,Period\n")}, nil
}

func (m *exporterMock) ExportProposal(ctx context.Context, proposalID, format string) (*service.ExportFile, error) {
	m.format = format
	return &service.ExportFile{Filename: "proposal_" + proposalID + ".xlsx", ContentType: "application/octet-stream", Data: []byte("PK")}, nil
}

func newExportRouter(mock *exporterMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewExportHandler(mock)
	router := gin.New()
	router.GET("/timetables/:id/export", handler.Timetable)
	router.GET("/proposals/:id/export", handler.Proposal)
	return router
}

func TestExportHandlerTimetable(t *testing.T) {
	mock := &exporterMock{}
	router := newExportRouter(mock)

	w := doJSON(router, http.MethodGet, "/timetables/tt-1/export?format=csv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "csv", mock.format)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="timetable_CSE_morning_v1.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "Day,Period\n", w.Body.String())

	w = doJSON(router, http.MethodGet, "/timetables/tt-1/export?format=docx", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportHandlerProposal(t *testing.T) {
	mock := &exporterMock{}
	router := newExportRouter(mock)

	w := doJSON(router, http.MethodGet, "/proposals/p-1/export?format=xlsx", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "xlsx", mock.format)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "proposal_p-1.xlsx")
}
