package core

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
)

// utf8BOM makes spreadsheet programs detect UTF-8 in the exported CSV.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ExportFileName returns danh-sach-nvl-YYYY-MM-DD.csv for the given day.
func ExportFileName(now time.Time) string {
	return "danh-sach-nvl-" + now.Format("2006-01-02") + ".csv"
}

// ExportCSV writes a BOM, the fixed header and one line per material, in order.
func ExportCSV(w io.Writer, rows []Material) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(MaterialColumns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, m := range rows {
		if err := cw.Write(m.Fields()); err != nil {
			return fmt.Errorf("write material %s: %w", m.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// TemplateFileName is the download name of the import template.
const TemplateFileName = "mau-nhap-nvl.xlsx"

const templateSheet = "NVL"

var templateExamples = [][]string{
	{"", "Ván ép phủ phim", "", "1220 x 2440 x 18 mm", "Hàng nhập khẩu"},
	{"", "Keo PVA", "", "Can 20 kg", ""},
}

// WriteImportTemplate writes an .xlsx with the header row and two example rows.
func WriteImportTemplate(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", templateSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	header := make([]any, len(MaterialColumns))
	for i, c := range MaterialColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(templateSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(MaterialColumns), 1)
	if err := f.SetCellStyle(templateSheet, "A1", last, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, ex := range templateExamples {
		row := make([]any, len(ex))
		for j, v := range ex {
			row[j] = v
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(templateSheet, cell, &row); err != nil {
			return fmt.Errorf("write example row: %w", err)
		}
	}

	widths := []float64{10, 30, 30, 28, 30}
	for i, wd := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(templateSheet, col, col, wd); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
