package core

// error_messages.go maps technical errors to messages a warehouse clerk can
// act on. Each message carries a code that support can look up here.
//
// # Record Errors (REC001-REC099)
//
//	REC001 - Record not found            Patterns: "record not found"
//	REC002 - Nothing selected            Patterns: "no records selected"
//	REC003 - Bulk delete partly failed   Patterns: "bulk delete"
//
// # Form Errors (FORM001-FORM099)
//
//	FORM001 - Form closed                Patterns: "form is not open"
//	FORM002 - Save in progress           Patterns: "submit already in progress"
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Required field empty        Patterns: "required field"
//	VAL002 - Missing spreadsheet columns Patterns: "missing required columns"
//	VAL003 - Invalid number              Patterns: "invalid number"
//	VAL004 - Invalid date                Patterns: "invalid date"
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - Unsupported file type      Patterns: "unsupported file type"
//	FILE002 - File too large             Patterns: "file too large"
//	FILE003 - Unreadable spreadsheet     Patterns: "invalid spreadsheet"
//	FILE004 - No file                    Patterns: "no file provided"
//	FILE005 - No data rows               Patterns: "no data rows"
//
// # Image Errors (IMG001-IMG099)
//
//	IMG001 - Image rejected              Patterns: "invalid image"
//	IMG002 - Image upload failed         Patterns: "image upload failed"
//	IMG003 - Image missing               Patterns: "image not found"
//
// # Import Errors (IMP001-IMP099)
//
//	IMP001 - Import slots busy           Patterns: "too many concurrent imports"
//
// # Data Service Errors (API001-API099)
//
//	API001 - Service unreachable         Patterns: "connection refused", "no such host", "connection reset"
//	API002 - Request rejected            Patterns: "appsheet api error"
//	API003 - Unexpected column           Patterns: "unknown column"
//	API004 - Service timeout             Patterns: "context deadline exceeded", "timeout"
//	API005 - Access denied               Patterns: "status=401", "status=403"
//	API006 - Table not found             Patterns: "status=404"
//
// # Request Errors
//
//	REQ001 - Request cancelled           Patterns: "context canceled"
//	RATE001 - Rate limited               Patterns: "rate limit"
//
// # Default Error (ERR000)
//
// Fallback when no pattern matches. Check the application logs for the
// original error.
//
// # Pattern Matching
//
// Patterns are matched case-insensitively with strings.Contains and the first
// match wins, so wrapping errors (bulk delete, image upload) are listed before
// the transport errors they wrap.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns is scanned in order; the first pattern contained in the
// lower-cased error text wins.
var errorPatterns = []errorPattern{
	// Records
	{
		pattern: "bulk delete",
		msg: UserMessage{
			Message: "Some records could not be deleted",
			Action:  "Refresh the list and retry the remaining rows",
			Code:    "REC003",
		},
	},
	{
		pattern: "record not found",
		msg: UserMessage{
			Message: "The record no longer exists",
			Action:  "Refresh the list",
			Code:    "REC001",
		},
	},
	{
		pattern: "no records selected",
		msg: UserMessage{
			Message: "No records are selected",
			Action:  "Tick at least one row first",
			Code:    "REC002",
		},
	},

	// Form
	{
		pattern: "form is not open",
		msg: UserMessage{
			Message: "The form is no longer open",
			Action:  "Open the form again",
			Code:    "FORM001",
		},
	},
	{
		pattern: "submit already in progress",
		msg: UserMessage{
			Message: "Save is already in progress",
			Action:  "Wait for the current save to finish",
			Code:    "FORM002",
		},
	},

	// Images
	{
		pattern: "invalid image",
		msg: UserMessage{
			Message: "The image was rejected",
			Action:  "Use a JPEG, PNG, GIF or WebP image under 5 MB",
			Code:    "IMG001",
		},
	},
	{
		pattern: "image upload failed",
		msg: UserMessage{
			Message: "The image could not be uploaded",
			Action:  "Please try again; the form keeps your input",
			Code:    "IMG002",
		},
	},
	{
		pattern: "image not found",
		msg: UserMessage{
			Message: "The image no longer exists",
			Action:  "Upload the image again",
			Code:    "IMG003",
		},
	},

	// Files
	{
		pattern: "unsupported file type",
		msg: UserMessage{
			Message: "Only .xlsx, .xlsm and .csv files can be imported",
			Action:  "Save the sheet in one of these formats",
			Code:    "FILE001",
		},
	},
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum size",
			Action:  "Split the file into smaller parts",
			Code:    "FILE002",
		},
	},
	{
		pattern: "invalid spreadsheet",
		msg: UserMessage{
			Message: "The file could not be read as a spreadsheet",
			Action:  "Re-save it in Excel or start from the import template",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please choose a file",
			Code:    "FILE004",
		},
	},
	{
		pattern: "no data rows",
		msg: UserMessage{
			Message: "The file has no data rows",
			Action:  "Add rows below the header row",
			Code:    "FILE005",
		},
	},

	// Validation
	{
		pattern: "missing required columns",
		msg: UserMessage{
			Message: "The file is missing required columns",
			Action:  "Use the import template; Tên NVL and Quy cách are required",
			Code:    "VAL002",
		},
	},
	{
		pattern: "required field",
		msg: UserMessage{
			Message: "Required field is empty",
			Action:  "Fill in Tên NVL and Quy cách",
			Code:    "VAL001",
		},
	},
	{
		pattern: "invalid number",
		msg: UserMessage{
			Message: "A number has an unexpected format",
			Action:  "Check the numeric columns in AppSheet",
			Code:    "VAL003",
		},
	},
	{
		pattern: "invalid date",
		msg: UserMessage{
			Message: "A date has an unexpected format",
			Action:  "Check the date columns in AppSheet",
			Code:    "VAL004",
		},
	},

	// Import
	{
		pattern: "too many concurrent imports",
		msg: UserMessage{
			Message: "System is busy processing other imports",
			Action:  "Please wait a moment and try again",
			Code:    "IMP001",
		},
	},

	// Data service
	{
		pattern: "unknown column",
		msg: UserMessage{
			Message: "The data service returned a column this screen does not know",
			Action:  "Check the AppSheet table layout",
			Code:    "API003",
		},
	},
	{
		pattern: "status=401",
		msg: UserMessage{
			Message: "Access to the data service was denied",
			Action:  "Check the AppSheet access key",
			Code:    "API005",
		},
	},
	{
		pattern: "status=403",
		msg: UserMessage{
			Message: "Access to the data service was denied",
			Action:  "Check the AppSheet access key",
			Code:    "API005",
		},
	},
	{
		pattern: "status=404",
		msg: UserMessage{
			Message: "Table not found in the AppSheet app",
			Action:  "Check the table names in configuration",
			Code:    "API006",
		},
	},
	{
		pattern: "appsheet api error",
		msg: UserMessage{
			Message: "The data service rejected the request",
			Action:  "Please try again; contact support if it persists",
			Code:    "API002",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to reach the data service",
			Action:  "Please try again in a few moments",
			Code:    "API001",
		},
	},
	{
		pattern: "no such host",
		msg: UserMessage{
			Message: "Unable to reach the data service",
			Action:  "Please try again in a few moments",
			Code:    "API001",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "The connection to the data service was interrupted",
			Action:  "Please try again",
			Code:    "API001",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "The data service did not respond in time",
			Action:  "Please try again",
			Code:    "API004",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "The data service did not respond in time",
			Action:  "Please try again",
			Code:    "API004",
		},
	},

	// Requests
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "REQ001",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
// Example:
//
//	msg := MapError(fmt.Errorf("import: %w", ErrUnsupportedFile))
//	// msg.Code == "FILE001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError renders "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// ErrorNotice turns err into a screen notice.
func ErrorNotice(err error) Notice {
	msg := MapError(err)
	return Notice{Level: NoticeError, Message: msg.Message, Action: msg.Action, Code: msg.Code}
}

// UserError pairs a technical error (for logs) with its user message.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err; it returns nil for a nil error.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
