package core

import (
	"time"
)

// PreviewRows is how many data rows an import preview shows.
const PreviewRows = 5

const (
	maxErrorSamples     = 20
	maxDuplicateSamples = 10
)

// PreviewSummary contains the summary counts for an import preview.
type PreviewSummary struct {
	TotalRows       int `json:"totalRows"`
	ValidRows       int `json:"validRows"`
	InvalidRows     int `json:"invalidRows"`
	NewIDs          int `json:"newIds"`
	DuplicateInFile int `json:"duplicateInFile"`
}

// RowPreview is a data row keyed by header name.
type RowPreview struct {
	LineNumber int               `json:"lineNumber"`
	Values     map[string]string `json:"values"`
}

// ErrorPreview is a row that will be skipped on import.
type ErrorPreview struct {
	LineNumber int               `json:"lineNumber"`
	Values     map[string]string `json:"values"`
	Errors     []string          `json:"errors"`
}

// DuplicatePreview lists the lines sharing one explicit material id.
type DuplicatePreview struct {
	ID          string `json:"id"`
	LineNumbers []int  `json:"lineNumbers"`
}

// PreviewResponse is shown to the user before confirming an import. It does
// not influence what Import submits.
type PreviewResponse struct {
	FileName         string             `json:"fileName"`
	Header           []string           `json:"header"`
	Summary          PreviewSummary     `json:"summary"`
	Rows             []RowPreview       `json:"rows"`
	ErrorSamples     []ErrorPreview     `json:"errorSamples"`
	DuplicateSamples []DuplicatePreview `json:"duplicateSamples"`
	ProcessingTimeMs int64              `json:"processingTimeMs"`
}

// buildPreview summarizes a parsed sheet whose required columns are present.
func buildPreview(name string, sheet *Sheet) *PreviewResponse {
	start := time.Now()

	resp := &PreviewResponse{
		FileName:         name,
		Header:           sheet.Header,
		Rows:             []RowPreview{},
		ErrorSamples:     []ErrorPreview{},
		DuplicateSamples: []DuplicatePreview{},
	}

	idLines := make(map[string][]int)
	var idOrder []string

	for i, row := range sheet.Rows {
		resp.Summary.TotalRows++
		if i < PreviewRows {
			resp.Rows = append(resp.Rows, RowPreview{LineNumber: row.Line, Values: sheet.Record(row)})
		}

		cand := candidateFromRow(sheet, row)
		if errs := candidateErrors(cand); len(errs) > 0 {
			resp.Summary.InvalidRows++
			if len(resp.ErrorSamples) < maxErrorSamples {
				resp.ErrorSamples = append(resp.ErrorSamples, ErrorPreview{
					LineNumber: row.Line,
					Values:     sheet.Record(row),
					Errors:     errs,
				})
			}
			continue
		}

		resp.Summary.ValidRows++
		if cand.Material.ID == "" {
			resp.Summary.NewIDs++
			continue
		}
		if _, seen := idLines[cand.Material.ID]; !seen {
			idOrder = append(idOrder, cand.Material.ID)
		}
		idLines[cand.Material.ID] = append(idLines[cand.Material.ID], row.Line)
	}

	for _, id := range idOrder {
		lines := idLines[id]
		if len(lines) < 2 {
			continue
		}
		resp.Summary.DuplicateInFile++
		if len(resp.DuplicateSamples) < maxDuplicateSamples {
			resp.DuplicateSamples = append(resp.DuplicateSamples, DuplicatePreview{ID: id, LineNumbers: lines})
		}
	}

	resp.ProcessingTimeMs = time.Since(start).Milliseconds()
	return resp
}

func candidateFromRow(sheet *Sheet, row SheetRow) ImportCandidate {
	return ImportCandidate{
		Row: row.Line,
		Material: Material{
			ID:    sheet.Value(row, ColMaterialID),
			Name:  sheet.Value(row, ColMaterialName),
			Image: sheet.Value(row, ColMaterialImage),
			Spec:  sheet.Value(row, ColMaterialSpec),
			Note:  sheet.Value(row, ColMaterialNote),
		},
	}
}

func candidateErrors(c ImportCandidate) []string {
	var errs []string
	if c.Material.Name == "" {
		errs = append(errs, "required field "+ColMaterialName+" is empty")
	}
	if c.Material.Spec == "" {
		errs = append(errs, "required field "+ColMaterialSpec+" is empty")
	}
	return errs
}
