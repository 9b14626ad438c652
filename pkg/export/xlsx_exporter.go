package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	defaultSheet = "Sheet1"
	flatSheet    = "Timetable"
	maxSheetName = 31
)

// XLSXExporter renders a flat sheet plus one sheet per grid.
type XLSXExporter struct{}

// NewXLSXExporter constructs a spreadsheet exporter.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

// Render implements Renderer.
func (e *XLSXExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("xlsx requires at least one header")
	}
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("xlsx header style: %w", err)
	}
	wrapStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		return nil, fmt.Errorf("xlsx cell style: %w", err)
	}

	if err := f.SetSheetName(defaultSheet, flatSheet); err != nil {
		return nil, fmt.Errorf("xlsx rename sheet: %w", err)
	}
	if err := writeFlatSheet(f, flatSheet, title, data, headerStyle); err != nil {
		return nil, err
	}

	used := map[string]int{flatSheet: 1}
	for _, grid := range data.Grids {
		name := uniqueSheetName(used, grid.Name)
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("xlsx sheet %s: %w", name, err)
		}
		if err := writeGridSheet(f, name, grid, headerStyle, wrapStyle); err != nil {
			return nil, err
		}
	}
	f.SetActiveSheet(0)

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func writeFlatSheet(f *excelize.File, sheet, title string, data Dataset, headerStyle int) error {
	row := 1
	if title != "" {
		if err := f.SetCellValue(sheet, cellName(0, row), title); err != nil {
			return fmt.Errorf("xlsx title: %w", err)
		}
		if len(data.Headers) > 1 {
			if err := f.MergeCell(sheet, cellName(0, row), cellName(len(data.Headers)-1, row)); err != nil {
				return fmt.Errorf("xlsx merge title: %w", err)
			}
		}
		row++
	}
	for i, header := range data.Headers {
		if err := f.SetCellValue(sheet, cellName(i, row), header); err != nil {
			return fmt.Errorf("xlsx header: %w", err)
		}
	}
	if err := f.SetCellStyle(sheet, cellName(0, row), cellName(len(data.Headers)-1, row), headerStyle); err != nil {
		return fmt.Errorf("xlsx header style: %w", err)
	}
	for _, record := range data.Rows {
		row++
		for i, header := range data.Headers {
			if err := f.SetCellValue(sheet, cellName(i, row), record[header]); err != nil {
				return fmt.Errorf("xlsx row: %w", err)
			}
		}
	}
	last := colName(len(data.Headers) - 1)
	return f.SetColWidth(sheet, "A", last, 18)
}

func writeGridSheet(f *excelize.File, sheet string, grid Grid, headerStyle, wrapStyle int) error {
	row := 1
	if grid.Title != "" {
		if err := f.SetCellValue(sheet, cellName(0, row), grid.Title); err != nil {
			return fmt.Errorf("xlsx grid title: %w", err)
		}
		row++
	}
	headerRow := row
	for i, column := range grid.Columns {
		if err := f.SetCellValue(sheet, cellName(i+1, row), column); err != nil {
			return fmt.Errorf("xlsx grid header: %w", err)
		}
	}
	if err := f.SetCellStyle(sheet, cellName(0, headerRow), cellName(len(grid.Columns), headerRow), headerStyle); err != nil {
		return fmt.Errorf("xlsx grid header style: %w", err)
	}

	for r, label := range grid.RowLabels {
		row++
		if err := f.SetCellValue(sheet, cellName(0, row), label); err != nil {
			return fmt.Errorf("xlsx grid label: %w", err)
		}
		if err := f.SetCellStyle(sheet, cellName(0, row), cellName(0, row), headerStyle); err != nil {
			return fmt.Errorf("xlsx grid label style: %w", err)
		}
		for c := range grid.Columns {
			value := "-"
			if r < len(grid.Cells) && c < len(grid.Cells[r]) && grid.Cells[r][c] != "" {
				value = grid.Cells[r][c]
			}
			if err := f.SetCellValue(sheet, cellName(c+1, row), value); err != nil {
				return fmt.Errorf("xlsx grid cell: %w", err)
			}
		}
	}
	if row > headerRow && len(grid.Columns) > 0 {
		if err := f.SetCellStyle(sheet, cellName(1, headerRow+1), cellName(len(grid.Columns), row), wrapStyle); err != nil {
			return fmt.Errorf("xlsx grid cell style: %w", err)
		}
	}
	if err := f.SetColWidth(sheet, "A", "A", 12); err != nil {
		return fmt.Errorf("xlsx grid width: %w", err)
	}
	if len(grid.Columns) > 0 {
		return f.SetColWidth(sheet, "B", colName(len(grid.Columns)), 26)
	}
	return nil
}

// uniqueSheetName trims to the spreadsheet limit and suffixes duplicates.
func uniqueSheetName(used map[string]int, raw string) string {
	name := sanitizeSheetName(raw)
	if used[name] == 0 {
		used[name] = 1
		return name
	}
	used[name]++
	suffix := fmt.Sprintf(" (%d)", used[name])
	base := []rune(name)
	if len(base)+len(suffix) > maxSheetName {
		base = base[:maxSheetName-len(suffix)]
	}
	candidate := string(base) + suffix
	used[candidate] = 1
	return candidate
}

func sanitizeSheetName(raw string) string {
	out := make([]rune, 0, len(raw))
	for _, r := range raw {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			out = append(out, '-')
		default:
			out = append(out, r)
		}
	}
	if len(out) > maxSheetName {
		out = out[:maxSheetName]
	}
	if len(out) == 0 {
		return "Sheet"
	}
	return string(out)
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cellName(col, row int) string {
	return fmt.Sprintf("%s%d", colName(col), row)
}
