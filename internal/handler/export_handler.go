package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/harmony-timetable-api/internal/service"
	"github.com/noah-isme/harmony-timetable-api/pkg/response"
)

type timetableExporter interface {
	ExportTimetable(ctx context.Context, id, format string) (*service.ExportFile, error)
	ExportProposal(ctx context.Context, proposalID, format string) (*service.ExportFile, error)
}

// ExportHandler streams timetables as CSV, PDF or XLSX downloads.
type ExportHandler struct {
	service timetableExporter
}

// NewExportHandler constructs the handler.
func NewExportHandler(svc timetableExporter) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Timetable godoc
// @Summary Download a stored timetable
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "Timetable ID"
// @Param format query string false "csv, pdf or xlsx" default(csv)
// @Success 200 {file} file
// @Router /timetables/{id}/export [get]
func (h *ExportHandler) Timetable(c *gin.Context) {
	file, err := h.service.ExportTimetable(c.Request.Context(), c.Param("id"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.Filename, file.ContentType, file.Data)
}

// Proposal godoc
// @Summary Download a generated proposal
// @Tags Exports
// @Produce text/csv
// @Param id path string true "Proposal ID"
// @Param format query string false "csv, pdf or xlsx" default(csv)
// @Success 200 {file} file
// @Router /proposals/{id}/export [get]
func (h *ExportHandler) Proposal(c *gin.Context) {
	file, err := h.service.ExportProposal(c.Request.Context(), c.Param("id"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.Filename, file.ContentType, file.Data)
}
