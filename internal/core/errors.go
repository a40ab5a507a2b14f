package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrMissingID          = errors.New("record id is required")
	ErrRecordNotFound     = errors.New("record not found")
	ErrFormClosed         = errors.New("form is not open")
	ErrSubmitInProgress   = errors.New("submit already in progress")
	ErrImageUpload        = errors.New("image upload failed")
	ErrNoFile             = errors.New("no file provided")
	ErrUnsupportedFile    = errors.New("unsupported file type")
	ErrFileTooLarge       = errors.New("file too large")
	ErrInvalidSpreadsheet = errors.New("invalid spreadsheet")
	ErrNoDataRows         = errors.New("no data rows")
	ErrNothingSelected    = errors.New("no records selected")
)

// FieldErrors maps a form field to its validation message.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return "required field missing: " + strings.Join(fields, ", ")
}

// MissingColumnsError lists required spreadsheet columns that are absent.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Columns, ", "))
}
