package core

// spreadsheet.go turns an uploaded workbook or delimited file into a header
// row plus data rows. Only the first sheet of a workbook is read.

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ImportExtensions lists the accepted spreadsheet file extensions.
var ImportExtensions = []string{".xlsx", ".xlsm", ".csv"}

// CheckImportFile rejects file names with an extension the importer cannot read.
func CheckImportFile(name string) error {
	ext := strings.ToLower(filepath.Ext(name))
	for _, ok := range ImportExtensions {
		if ext == ok {
			return nil
		}
	}
	if ext == "" {
		ext = "(none)"
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedFile, ext)
}

// HeaderIndex maps a lower-cased, cleaned header name to its column.
type HeaderIndex map[string]int

// MakeHeaderIndex indexes header cells; the first occurrence of a name wins.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := strings.ToLower(CleanCell(h))
		if key == "" {
			continue
		}
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	return idx
}

// Col returns the column of name, case-insensitively.
func (h HeaderIndex) Col(name string) (int, bool) {
	i, ok := h[strings.ToLower(CleanCell(name))]
	return i, ok
}

// CleanCell strips spreadsheet artifacts: surrounding whitespace, a formula
// wrapper (="...") and stray quotes.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, `="`) && strings.HasSuffix(s, `"`) && len(s) >= 3 {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}
	return strings.TrimSpace(strings.Trim(s, `"'`))
}

// SheetRow is one data row with its 1-based position in the sheet.
type SheetRow struct {
	Line  int
	Cells []string
}

// Sheet is a parsed first sheet.
type Sheet struct {
	Header []string
	Rows   []SheetRow
	index  HeaderIndex
}

// Missing returns the required columns not present in the header.
func (s *Sheet) Missing(required ...string) []string {
	var missing []string
	for _, name := range required {
		if _, ok := s.index.Col(name); !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// Value returns the cleaned cell of row under column name, "" if absent.
func (s *Sheet) Value(row SheetRow, name string) string {
	i, ok := s.index.Col(name)
	if !ok || i >= len(row.Cells) {
		return ""
	}
	return CleanCell(row.Cells[i])
}

// Record maps every non-empty header to the row's value.
func (s *Sheet) Record(row SheetRow) map[string]string {
	rec := make(map[string]string, len(s.Header))
	for i, h := range s.Header {
		h = CleanCell(h)
		if h == "" {
			continue
		}
		v := ""
		if i < len(row.Cells) {
			v = CleanCell(row.Cells[i])
		}
		rec[h] = v
	}
	return rec
}

// ParseSheet reads name/data as a workbook or CSV depending on the extension.
func ParseSheet(name string, data []byte) (*Sheet, error) {
	if err := CheckImportFile(name); err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: file is empty", ErrNoDataRows)
	}

	var (
		rows [][]string
		err  error
	)
	if strings.EqualFold(filepath.Ext(name), ".csv") {
		rows, err = readCSV(data)
	} else {
		rows, err = readWorkbook(data)
	}
	if err != nil {
		return nil, err
	}
	return newSheet(rows)
}

func newSheet(rows [][]string) (*Sheet, error) {
	headerAt := -1
	for i, r := range rows {
		if !blankRow(r) {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		return nil, fmt.Errorf("%w: no header row", ErrNoDataRows)
	}

	header := make([]string, len(rows[headerAt]))
	for i, h := range rows[headerAt] {
		header[i] = CleanCell(h)
	}

	sheet := &Sheet{Header: header, index: MakeHeaderIndex(header)}
	for i := headerAt + 1; i < len(rows); i++ {
		if blankRow(rows[i]) {
			continue
		}
		sheet.Rows = append(sheet.Rows, SheetRow{Line: i + 1, Cells: rows[i]})
	}
	return sheet, nil
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func readWorkbook(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSpreadsheet, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrInvalidSpreadsheet)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %q: %v", ErrInvalidSpreadsheet, sheets[0], err)
	}
	return rows, nil
}

// readCSV decodes UTF-8 (with or without BOM) and UTF-16 files, then splits
// on comma or semicolon, whichever dominates the first line.
func readCSV(data []byte) ([][]string, error) {
	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	if err != nil {
		return nil, fmt.Errorf("%w: decode text: %v", ErrInvalidSpreadsheet, err)
	}
	decoded = bytes.ToValidUTF8(decoded, []byte("�"))

	r := csv.NewReader(bytes.NewReader(decoded))
	r.Comma = sniffDelimiter(decoded)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSpreadsheet, err)
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		return ';'
	}
	return ','
}
