package export

import "fmt"

// Format names a supported export encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
)

// ParseFormat normalises a user supplied format, defaulting to CSV.
func ParseFormat(raw string) (Format, error) {
	switch Format(raw) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatPDF:
		return FormatPDF, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unsupported export format %q", raw)
}

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/csv"
	}
}

// Dataset defines tabular export content. Grids are optional pivoted views
// that only spreadsheet output renders.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
	Grids   []Grid
}

// Grid is a labelled two-dimensional view, such as days by slots for one batch.
type Grid struct {
	Name      string
	Title     string
	Columns   []string
	RowLabels []string
	Cells     [][]string
}

// Renderer encodes a dataset into a document.
type Renderer interface {
	Render(data Dataset, title string) ([]byte, error)
}
