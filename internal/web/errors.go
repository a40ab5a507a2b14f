package web

// errors.go maps failures to responses. Screen actions answer JSON clients
// with an error body and everyone else with a redirect back to the screen
// carrying an error notice, so a failure never leaves a screen stuck.

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/nvl/internal/appsheet"
	"github.com/JonMunkholm/nvl/internal/core"
	"github.com/JonMunkholm/nvl/internal/images"
	"github.com/JonMunkholm/nvl/internal/logging"
	"github.com/JonMunkholm/nvl/internal/web/templates"
)

var errRateLimited = errors.New("rate limit exceeded")

// ErrorResponse represents the JSON structure for API error responses.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Action  string            `json:"action,omitempty"`
	Code    string            `json:"code"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// statusFor picks the HTTP status of an error.
func statusFor(err error) int {
	var (
		fields  core.FieldErrors
		missing *core.MissingColumnsError
		invalid *images.InvalidImageError
		apiErr  *appsheet.APIError
	)
	switch {
	case errors.Is(err, core.ErrRecordNotFound), errors.Is(err, images.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrSubmitInProgress):
		return http.StatusConflict
	case errors.Is(err, core.ErrTooManyImports):
		return http.StatusServiceUnavailable
	case errors.As(err, &fields), errors.As(err, &missing), errors.As(err, &invalid):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrNoFile), errors.Is(err, core.ErrUnsupportedFile),
		errors.Is(err, core.ErrInvalidSpreadsheet), errors.Is(err, core.ErrNoDataRows),
		errors.Is(err, core.ErrNothingSelected), errors.Is(err, core.ErrFormClosed),
		errors.Is(err, core.ErrMissingID), errors.Is(err, images.ErrPathTraversal):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// fail reports a failed screen action.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, n notifier, back string, err error) {
	status := statusFor(err)
	userMsg := core.MapError(err)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
	)

	if wantsJSON(r) {
		resp := toErrorResponse(userMsg)
		var fields core.FieldErrors
		if errors.As(err, &fields) {
			resp.Fields = fields
		}
		writeJSON(w, status, resp)
		return
	}
	n.Notify(errorNotice(err))
	http.Redirect(w, r, back, http.StatusSeeOther)
}

// errorNotice adds the offending columns, fields or image problems to the
// mapped notice.
func errorNotice(err error) core.Notice {
	notice := core.ErrorNotice(err)

	var (
		missing *core.MissingColumnsError
		fields  core.FieldErrors
		invalid *images.InvalidImageError
		detail  []string
	)
	switch {
	case errors.As(err, &missing):
		detail = missing.Columns
	case errors.As(err, &fields):
		for _, msg := range fields {
			detail = append(detail, msg)
		}
		sort.Strings(detail)
	case errors.As(err, &invalid):
		detail = invalid.Problems
	}
	if len(detail) > 0 {
		notice.Message += ": " + strings.Join(detail, "; ")
	}
	return notice
}

// respondError answers requests that have no screen to return to.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := core.MapError(err)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
		"request_id", middleware.GetReqID(r.Context()),
	)

	if wantsJSON(r) {
		respondErrorJSON(w, userMsg, statusCode)
		return
	}
	respondErrorHTML(w, r, userMsg, statusCode)
}

func toErrorResponse(msg core.UserMessage) ErrorResponse {
	return ErrorResponse{Error: msg.Message, Message: msg.Message, Action: msg.Action, Code: msg.Code}
}

// respondErrorJSON writes a JSON error response.
func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(toErrorResponse(msg))
}

// respondErrorHTML renders the error page.
func respondErrorHTML(w http.ResponseWriter, r *http.Request, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w)
}

// wantsJSON checks if the client prefers a JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	return strings.Contains(r.Header.Get("Content-Type"), "application/json")
}
