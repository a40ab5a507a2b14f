package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/JonMunkholm/nvl/internal/appsheet"
	"github.com/JonMunkholm/nvl/internal/images"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"nil error returns empty", nil, ""},
		{"field errors", FieldErrors{"name": "required"}, "VAL001"},
		{"missing columns", &MissingColumnsError{Columns: []string{ColMaterialSpec}}, "VAL002"},
		{"unsupported file", fmt.Errorf("import: %w: .pdf", ErrUnsupportedFile), "FILE001"},
		{"file too large", fmt.Errorf("%w: 20 bytes", ErrFileTooLarge), "FILE002"},
		{"bad workbook", fmt.Errorf("%w: zip: not a valid zip file", ErrInvalidSpreadsheet), "FILE003"},
		{"no rows", ErrNoDataRows, "FILE005"},
		{"invalid image wins over upload wrapper", fmt.Errorf("%w: %w", ErrImageUpload, &images.InvalidImageError{Problems: []string{"x"}}), "IMG001"},
		{"image upload", fmt.Errorf("%w: disk full", ErrImageUpload), "IMG002"},
		{"submit in progress", ErrSubmitInProgress, "FORM002"},
		{"form closed", ErrFormClosed, "FORM001"},
		{"limiter busy", ErrTooManyImports, "IMP001"},
		{"bulk delete wraps api error", fmt.Errorf("bulk delete: 1 of 2 failed: %w", &appsheet.APIError{StatusCode: 500}), "REC003"},
		{"nothing selected", ErrNothingSelected, "REC002"},
		{"not found", fmt.Errorf("open material NVL009: %w", ErrRecordNotFound), "REC001"},
		{"unknown column", fmt.Errorf("decode rows: %w: \"Màu\"", appsheet.ErrUnknownColumn), "API003"},
		{"access denied", &appsheet.APIError{StatusCode: 403, Message: "bad key"}, "API005"},
		{"table missing", &appsheet.APIError{StatusCode: 404}, "API006"},
		{"api error", &appsheet.APIError{StatusCode: 500}, "API002"},
		{"unreachable", errors.New("dial tcp 10.0.0.1:443: connect: connection refused"), "API001"},
		{"deadline", fmt.Errorf("list materials: %w", context.DeadlineExceeded), "API004"},
		{"client timeout", errors.New("Post \"x\": net/http: request canceled (Client.Timeout exceeded)"), "API004"},
		{"cancelled", fmt.Errorf("list: %w", context.Canceled), "REQ001"},
		{"rate limit", errors.New("rate limit exceeded"), "RATE001"},
		{"unknown error returns default", errors.New("some random internal error"), "ERR000"},
		{"case insensitive", errors.New("UNSUPPORTED FILE TYPE: .DOC"), "FILE001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError(%v) code = %q, want %q", tt.err, got.Code, tt.wantCode)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	got := FormatUserError(ErrUnsupportedFile)
	want := "Only .xlsx, .xlsm and .csv files can be imported (Code: FILE001). Save the sheet in one of these formats"
	if got != want {
		t.Errorf("FormatUserError() = %q, want %q", got, want)
	}
	if FormatUserError(nil) != "" {
		t.Error("FormatUserError(nil) should be empty")
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error is not user facing", nil, false},
		{"known error is user facing", ErrNoFile, true},
		{"unknown error is not user facing", errors.New("random internal error xyz"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUserFacing(tt.err); got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorNotice(t *testing.T) {
	n := ErrorNotice(ErrNothingSelected)
	if n.Level != NoticeError || n.Code != "REC002" || n.Message == "" {
		t.Errorf("ErrorNotice() = %+v", n)
	}
}

func TestNewUserError(t *testing.T) {
	if got := NewUserError(nil); got != nil {
		t.Errorf("NewUserError(nil) = %v, want nil", got)
	}

	techErr := fmt.Errorf("seed ids: %w", ErrTooManyImports)
	userErr := NewUserError(techErr)
	if userErr.Error() != "System is busy processing other imports" {
		t.Errorf("Error() = %q, want user message", userErr.Error())
	}
	if !errors.Is(userErr, ErrTooManyImports) {
		t.Error("Unwrap() should expose the original error")
	}
}
