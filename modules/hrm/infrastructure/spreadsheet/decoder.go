package spreadsheet

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/go-faster/errors"
	"github.com/xuri/excelize/v2"

	"github.com/campus-hr/hrdesk/modules/hrm/domain/aggregates/employee"
)

const DefaultMaxRows = 5000

var (
	ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")
	ErrNoWorksheet       = errors.New("no worksheet found")
	ErrMultipleSheets    = errors.New("multiple worksheets found; please upload a file with a single sheet")
	ErrEmptyWorksheet    = errors.New("worksheet is empty")
	ErrNoDataRows        = errors.New("worksheet has a header row but no data rows")
	ErrTooManyRows       = errors.New("too many rows")
)

// Decoder turns an uploaded .xlsx, .xls or .csv file into rows keyed by the header row.
type Decoder struct {
	MaxRows int
}

func NewDecoder() *Decoder {
	return &Decoder{MaxRows: DefaultMaxRows}
}

// SupportedExtensions lists the accepted upload extensions.
func SupportedExtensions() []string {
	return []string{".xlsx", ".xlsm", ".xls", ".csv"}
}

// Decode reads the first worksheet. The first non-blank row is the header; fully blank data rows
// are skipped and short rows are padded with "" so every row carries every header.
func (d *Decoder) Decode(ctx context.Context, filename string, r io.Reader) ([]employee.RawRow, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read upload")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	grid, err := readGrid(filename, data)
	if err != nil {
		return nil, err
	}
	return d.toRows(grid)
}

func readGrid(filename string, data []byte) ([][]string, error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".xls":
		return readXLS(data)
	case ".xlsx", ".xlsm":
		return readXLSX(data)
	case ".csv":
		return readCSV(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

func readXLS(data []byte) ([][]string, error) {
	workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, errors.Wrap(err, "open xls")
	}
	if workbook.NumSheets() == 0 {
		return nil, ErrNoWorksheet
	}
	if workbook.NumSheets() > 1 {
		return nil, ErrMultipleSheets
	}
	return workbook.ReadAllCells(100000), nil
}

func readXLSX(data []byte) ([][]string, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "open xlsx")
	}
	defer func() { _ = file.Close() }()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoWorksheet
	}
	if len(sheets) > 1 {
		return nil, ErrMultipleSheets
	}
	sheetName := sheets[0]
	rows, err := file.GetRows(sheetName)
	if err != nil {
		return nil, errors.Wrapf(err, "read sheet %q", sheetName)
	}
	return rows, nil
}

func readCSV(data []byte) ([][]string, error) {
	br := stripUTF8BOM(bufio.NewReader(bytes.NewReader(data)))
	r := csv.NewReader(br)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "read csv")
	}
	return rows, nil
}

func stripUTF8BOM(r *bufio.Reader) *bufio.Reader {
	b, err := r.Peek(3)
	if err == nil && len(b) == 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		_, _ = r.Discard(3)
	}
	return r
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// uniqueHeaders trims headers and suffixes repeats as "Name_1", "Name_2".
func uniqueHeaders(raw []string) []string {
	seen := make(map[string]int, len(raw))
	out := make([]string, len(raw))
	for i, h := range raw {
		h = strings.TrimSpace(h)
		if h != "" {
			if n, ok := seen[h]; ok {
				seen[h] = n + 1
				h = fmt.Sprintf("%s_%d", h, n+1)
			} else {
				seen[h] = 0
			}
		}
		out[i] = h
	}
	return out
}

func (d *Decoder) toRows(grid [][]string) ([]employee.RawRow, error) {
	start := 0
	for start < len(grid) && blank(grid[start]) {
		start++
	}
	if start == len(grid) {
		return nil, ErrEmptyWorksheet
	}
	headers := uniqueHeaders(grid[start])

	var rows []employee.RawRow
	for _, cells := range grid[start+1:] {
		if blank(cells) {
			continue
		}
		if d.MaxRows > 0 && len(rows) == d.MaxRows {
			return nil, fmt.Errorf("%w: at most %d data rows are accepted", ErrTooManyRows, d.MaxRows)
		}
		row := make(employee.RawRow, len(headers))
		for i, h := range headers {
			row[i] = employee.Cell{Header: h}
			if i < len(cells) {
				row[i].Value = strings.TrimSpace(cells[i])
			}
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, ErrNoDataRows
	}
	return rows, nil
}
