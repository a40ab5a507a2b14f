package core

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExportCSV(t *testing.T) {
	var buf bytes.Buffer
	rows := []Material{
		{ID: "NVL003", Name: "Ván, ép", Spec: "18mm", Image: "a.jpg"},
		{ID: "NVL001", Name: "Keo", Spec: "20kg", Note: `"PVA"`},
	}
	require.NoError(t, ExportCSV(&buf, rows))

	data := buf.Bytes()
	require.True(t, bytes.HasPrefix(data, utf8BOM))

	records, err := csv.NewReader(bytes.NewReader(data[len(utf8BOM):])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, MaterialColumns, records[0])
	assert.Equal(t, []string{"NVL003", "Ván, ép", "a.jpg", "18mm", ""}, records[1])
	assert.Equal(t, `"PVA"`, records[2][4])
}

func TestExportFileName(t *testing.T) {
	day := time.Date(2026, 3, 7, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "danh-sach-nvl-2026-03-07.csv", ExportFileName(day))
}

func TestWriteImportTemplate_RoundTripsThroughImporter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteImportTemplate(&buf))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{templateSheet}, f.GetSheetList())

	sheet, err := ParseSheet(TemplateFileName, buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, MaterialColumns, sheet.Header)
	assert.Empty(t, sheet.Missing(RequiredImportColumns...))

	valid, invalid := Candidates(sheet)
	assert.Len(t, valid, 2)
	assert.Empty(t, invalid)
}
