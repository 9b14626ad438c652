package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/harmony-timetable-api/internal/models"
	appErrors "github.com/noah-isme/harmony-timetable-api/pkg/errors"
	"github.com/noah-isme/harmony-timetable-api/pkg/export"
)

var exportHeaders = []string{"Day", "Period", "Batch", "Subject", "Teacher", "Room"}

type storedTimetableReader interface {
	Get(ctx context.Context, id string) (*models.Timetable, error)
	GetSlots(ctx context.Context, id string) ([]models.TimetableSlot, error)
}

// ExportFile is a rendered document ready to be streamed.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders stored timetables and live proposals as CSV, PDF or XLSX.
type ExportService struct {
	timetables storedTimetableReader
	proposals  *ProposalStore
	renderers  map[export.Format]export.Renderer
	logger     *zap.Logger
}

// NewExportService constructs an ExportService. Nil renderers fall back to the
// package defaults.
func NewExportService(timetables storedTimetableReader, proposals *ProposalStore, logger *zap.Logger, renderers map[export.Format]export.Renderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	all := map[export.Format]export.Renderer{
		export.FormatCSV:  export.NewCSVExporter(export.WithBOM()),
		export.FormatPDF:  export.NewPDFExporter(),
		export.FormatXLSX: export.NewXLSXExporter(),
	}
	for format, renderer := range renderers {
		if renderer != nil {
			all[format] = renderer
		}
	}
	return &ExportService{timetables: timetables, proposals: proposals, renderers: all, logger: logger}
}

// exportRow is one lecture in week order.
type exportRow struct {
	Day       string
	DayIndex  int
	Slot      int
	BatchID   string
	BatchName string
	Subject   string
	Teacher   string
	Room      string
}

type exportLayout struct {
	title       string
	filename    string
	days        []string
	slotsPerDay int
	rows        []exportRow
}

// ExportTimetable renders a stored timetable version.
func (s *ExportService) ExportTimetable(ctx context.Context, id, rawFormat string) (*ExportFile, error) {
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	record, err := s.timetables.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	slots, err := s.timetables.GetSlots(ctx, id)
	if err != nil {
		return nil, err
	}

	layout := exportLayout{
		title:    fmt.Sprintf("Timetable %s %s v%d (%s)", record.Department, record.Shift, record.Version, record.Status),
		filename: fmt.Sprintf("timetable_%s_%s_v%d", record.Department, record.Shift, record.Version),
	}
	layout.days, layout.slotsPerDay = layoutFromMeta(record.Meta)
	for _, slot := range slots {
		layout.rows = append(layout.rows, exportRow{
			Day:       slot.Day,
			DayIndex:  slot.DayIndex,
			Slot:      slot.SlotIndex,
			BatchID:   slot.BatchID,
			BatchName: slot.BatchName,
			Subject:   slot.SubjectName,
			Teacher:   slot.TeacherName,
			Room:      slot.RoomID,
		})
	}
	return s.render(layout, format)
}

// ExportProposal renders a generated proposal that has not been saved yet.
func (s *ExportService) ExportProposal(ctx context.Context, proposalID, rawFormat string) (*ExportFile, error) {
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	proposal, ok := s.proposals.get(ctx, proposalID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "proposal not found or expired")
	}

	layout := exportLayout{
		title:       fmt.Sprintf("Proposal #%d %s %s (dissonance %d)", proposal.Rank, proposal.Department, proposal.Shift, proposal.Dissonance),
		filename:    "proposal_" + proposal.ProposalID,
		days:        proposal.Days,
		slotsPerDay: proposal.SlotsPerDay,
	}
	dayIndex := make(map[string]int, len(proposal.Days))
	for i, day := range proposal.Days {
		dayIndex[day] = i
	}
	for _, a := range proposal.Assignments {
		layout.rows = append(layout.rows, exportRow{
			Day:       a.Day,
			DayIndex:  dayIndex[a.Day],
			Slot:      a.SlotIndex,
			BatchID:   a.BatchID,
			BatchName: a.BatchName,
			Subject:   a.SubjectName,
			Teacher:   a.TeacherName,
			Room:      a.RoomID,
		})
	}
	return s.render(layout, format)
}

func (s *ExportService) render(layout exportLayout, format export.Format) (*ExportFile, error) {
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	data := buildTimetableDataset(layout)
	start := time.Now()
	payload, err := renderer.Render(data, layout.title)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	s.logger.Debug("timetable exported",
		zap.String("format", string(format)),
		zap.Int("rows", len(data.Rows)),
		zap.Duration("duration", time.Since(start)),
	)
	return &ExportFile{
		Filename:    sanitizeFilename(layout.filename) + "." + string(format),
		ContentType: format.ContentType(),
		Data:        payload,
	}, nil
}

// buildTimetableDataset produces flat rows in week order plus one day by
// period grid per batch.
func buildTimetableDataset(layout exportLayout) export.Dataset {
	rows := append([]exportRow(nil), layout.rows...)
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].DayIndex != rows[j].DayIndex {
			return rows[i].DayIndex < rows[j].DayIndex
		}
		if rows[i].Slot != rows[j].Slot {
			return rows[i].Slot < rows[j].Slot
		}
		return rows[i].BatchID < rows[j].BatchID
	})

	days := layout.days
	slotsPerDay := layout.slotsPerDay
	if len(days) == 0 {
		days = daysFromRows(rows)
	}
	for _, row := range rows {
		if row.Slot+1 > slotsPerDay {
			slotsPerDay = row.Slot + 1
		}
	}

	data := export.Dataset{Headers: exportHeaders}
	for _, row := range rows {
		data.Rows = append(data.Rows, map[string]string{
			"Day":     row.Day,
			"Period":  strconv.Itoa(row.Slot + 1),
			"Batch":   batchLabel(row),
			"Subject": row.Subject,
			"Teacher": row.Teacher,
			"Room":    row.Room,
		})
	}

	columns := make([]string, slotsPerDay)
	for i := range columns {
		columns[i] = fmt.Sprintf("P%d", i+1)
	}
	dayRow := make(map[string]int, len(days))
	for i, day := range days {
		dayRow[day] = i
	}

	grids := map[string]*export.Grid{}
	var order []string
	for _, row := range rows {
		grid, ok := grids[row.BatchID]
		if !ok {
			grid = &export.Grid{
				Name:      batchLabel(row),
				Title:     "Weekly timetable for " + batchLabel(row),
				Columns:   columns,
				RowLabels: days,
				Cells:     make([][]string, len(days)),
			}
			for i := range grid.Cells {
				grid.Cells[i] = make([]string, slotsPerDay)
			}
			grids[row.BatchID] = grid
			order = append(order, row.BatchID)
		}
		r, ok := dayRow[row.Day]
		if !ok {
			continue
		}
		grid.Cells[r][row.Slot] = fmt.Sprintf("%s\n%s\n%s", row.Subject, row.Teacher, row.Room)
	}
	sort.Strings(order)
	for _, id := range order {
		data.Grids = append(data.Grids, *grids[id])
	}
	return data
}

func batchLabel(row exportRow) string {
	if row.BatchName != "" && row.BatchName != "N/A" {
		return row.BatchName
	}
	return row.BatchID
}

func daysFromRows(rows []exportRow) []string {
	seen := map[string]bool{}
	var days []string
	for _, row := range rows {
		if !seen[row.Day] {
			seen[row.Day] = true
			days = append(days, row.Day)
		}
	}
	return days
}

// layoutFromMeta reads the week shape recorded when the timetable was saved.
func layoutFromMeta(meta []byte) ([]string, int) {
	var parsed struct {
		Days        []string `json:"days"`
		SlotsPerDay int      `json:"slotsPerDay"`
	}
	if len(meta) == 0 || json.Unmarshal(meta, &parsed) != nil {
		return nil, 0
	}
	return parsed.Days, parsed.SlotsPerDay
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
