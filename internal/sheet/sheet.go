// Package sheet reads and writes single-table xlsx workbooks.
package sheet

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ContentType is the MIME type of xlsx workbooks.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// DefaultSheet is the name of the sheet written by Encode.
const DefaultSheet = "Sheet1"

// ErrEmptyWorkbook is returned when the first sheet has no header row.
var ErrEmptyWorkbook = errors.New("workbook has no header row")

// Table is a header row plus data rows. Every row, the header included, is
// as wide as the widest row; cells keep their raw (unformatted) values.
type Table struct {
	Header []string
	Rows   [][]string

	// kinds records how each cell was stored in the source workbook.
	kinds [][]cellKind
}

type cellKind uint8

const (
	cellText cellKind = iota
	cellNumber
	cellBool
)

// Decode reads the first sheet of an xlsx workbook. Header cells that are
// blank, or missing above data, are named "Unnamed: N" after their
// zero-based column index.
func Decode(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("invalid xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyWorkbook
	}
	sheet := sheets[0]

	raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(raw) == 0 || isBlank(raw[0]) {
		return nil, ErrEmptyWorkbook
	}

	width := 0
	for _, row := range raw {
		width = max(width, len(row))
	}

	header := make([]string, width)
	for i := range header {
		if i < len(raw[0]) {
			header[i] = strings.TrimSpace(raw[0][i])
		}
		if header[i] == "" {
			header[i] = fmt.Sprintf("Unnamed: %d", i)
		}
	}

	t := &Table{
		Header: header,
		Rows:   make([][]string, 0, len(raw)-1),
		kinds:  make([][]cellKind, 0, len(raw)-1),
	}
	for i, row := range raw[1:] {
		padded := make([]string, width)
		copy(padded, row)

		kinds := make([]cellKind, width)
		for col, v := range row {
			if v == "" {
				continue
			}
			if kinds[col], err = kindOf(f, sheet, col+1, i+2); err != nil {
				return nil, err
			}
		}

		t.Rows = append(t.Rows, padded)
		t.kinds = append(t.kinds, kinds)
	}
	return t, nil
}

// kindOf returns how a cell is stored. Cells without a type attribute are
// numbers in SpreadsheetML.
func kindOf(f *excelize.File, sheet string, col, row int) (cellKind, error) {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return cellText, err
	}
	typ, err := f.GetCellType(sheet, name)
	if err != nil {
		return cellText, fmt.Errorf("cell %s type: %w", name, err)
	}
	switch typ {
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		return cellNumber, nil
	case excelize.CellTypeBool:
		return cellBool, nil
	default:
		return cellText, nil
	}
}

// Value returns cell (row, col) for writing back in its source type: nil
// when empty, float64 for numbers, bool for booleans, the text otherwise.
// Text that looks numeric, such as tracking numbers, stays text.
func (t *Table) Value(row, col int) any {
	s := t.Rows[row][col]
	if s == "" {
		return nil
	}
	if row >= len(t.kinds) {
		return s
	}
	switch t.kinds[row][col] {
	case cellNumber:
		if n, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(n) && !math.IsInf(n, 0) {
			return n
		}
	case cellBool:
		if b, err := strconv.ParseBool(s); err == nil {
			return b
		}
	}
	return s
}

// Column returns the index of the named header, or -1.
func (t *Table) Column(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// IsBlankRow reports whether every cell of row i is empty.
func (t *Table) IsBlankRow(i int) bool {
	return isBlank(t.Rows[i])
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Encode writes header and rows to a new workbook. Strings are stored as
// text and numeric values as numbers; empty strings leave the cell blank.
func Encode(header []string, rows [][]any) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := writeRow(f, 1, toAny(header)); err != nil {
		return nil, err
	}
	for i, row := range rows {
		if err := writeRow(f, i+2, row); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return bytes.Clone(buf.Bytes()), nil
}

func writeRow(f *excelize.File, rowNum int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = normalize(v)
	}
	if err := f.SetSheetRow(DefaultSheet, cell, &out); err != nil {
		return fmt.Errorf("write row %d: %w", rowNum, err)
	}
	return nil
}

func normalize(v any) any {
	if s, ok := v.(string); ok && s == "" {
		return nil
	}
	return v
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
