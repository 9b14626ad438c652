package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"Day", "Slot", "Batch", "Subject"},
		Rows: []map[string]string{
			{"Day": "Mon", "Slot": "1", "Batch": "CSE-A", "Subject": "Algorithms"},
			{"Day": "Tue", "Slot": "2", "Batch": "CSE-B", "Subject": "Networks, Lab"},
		},
		Grids: []Grid{{
			Name:      "CSE-A",
			Title:     "CSE-A weekly grid",
			Columns:   []string{"Slot 1", "Slot 2"},
			RowLabels: []string{"Mon", "Tue"},
			Cells:     [][]string{{"Algorithms\nR101", ""}, {"", ""}},
		}},
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = ParseFormat("xlsx")
	require.NoError(t, err)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", f.ContentType())

	_, err = ParseFormat("docx")
	assert.Error(t, err)
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset(), "ignored")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Day,Slot,Batch,Subject", lines[0])
	assert.Equal(t, `Tue,2,CSE-B,"Networks, Lab"`, lines[2])

	_, err = NewCSVExporter().Render(Dataset{}, "")
	assert.Error(t, err)
}

func TestCSVExporterWithBOM(t *testing.T) {
	out, err := NewCSVExporter(WithBOM()).Render(sampleDataset(), "")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, utf8BOM))
	assert.True(t, strings.HasPrefix(string(out[len(utf8BOM):]), "Day,Slot,Batch,Subject\n"))
}

func TestPDFExporterRender(t *testing.T) {
	data := sampleDataset()
	for i := 0; i < 60; i++ {
		data.Rows = append(data.Rows, data.Rows[0])
	}
	out, err := NewPDFExporter().Render(data, "Timetable")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestXLSXExporterRender(t *testing.T) {
	data := sampleDataset()
	data.Grids = append(data.Grids, Grid{Name: "CSE-A", Columns: []string{"Slot 1"}, RowLabels: []string{"Mon"}})

	out, err := NewXLSXExporter().Render(data, "Department timetable")
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Timetable", "CSE-A", "CSE-A (2)"}, f.GetSheetList())

	header, err := f.GetCellValue("Timetable", "A2")
	require.NoError(t, err)
	assert.Equal(t, "Day", header)

	cell, err := f.GetCellValue("CSE-A", "B3")
	require.NoError(t, err)
	assert.Equal(t, "Algorithms\nR101", cell)

	empty, err := f.GetCellValue("CSE-A", "C4")
	require.NoError(t, err)
	assert.Equal(t, "-", empty)
}

func TestSanitizeSheetName(t *testing.T) {
	assert.Equal(t, "CSE-A-B", sanitizeSheetName("CSE/A:B"))
	assert.Equal(t, "Sheet", sanitizeSheetName(""))
	assert.Len(t, sanitizeSheetName(strings.Repeat("x", 40)), maxSheetName)
}
