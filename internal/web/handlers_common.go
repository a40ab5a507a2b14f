package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/nvl/internal/core"
)

const (
	materialsPath = "/materials"
	packagesPath  = "/packages"

	// multipartMemory is kept in memory before spilling to temp files.
	multipartMemory = 8 << 20
	// formOverhead is allowed on top of a file size limit for the other parts.
	formOverhead = 1 << 20
)

// notifier queues a notice on a screen.
type notifier interface {
	Notify(core.Notice)
}

// ok reports a successful screen action: JSON clients get payload (or the
// notice when payload is nil), browsers get redirected back.
func (s *Server) ok(w http.ResponseWriter, r *http.Request, n notifier, back string, notice *core.Notice, payload any) {
	if wantsJSON(r) {
		switch {
		case payload != nil:
			writeJSON(w, http.StatusOK, payload)
		case notice != nil:
			writeJSON(w, http.StatusOK, notice)
		default:
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		}
		return
	}
	if notice != nil {
		n.Notify(*notice)
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}

func success(format string, args ...any) *core.Notice {
	return &core.Notice{Level: core.NoticeSuccess, Message: fmt.Sprintf(format, args...)}
}

func warning(msg string) *core.Notice {
	return &core.Notice{Level: core.NoticeWarning, Message: msg}
}

// parsePage reads a 1-based page number; ok is false when absent or invalid.
func parsePage(r *http.Request) (int, bool) {
	val := r.URL.Query().Get("page")
	if val == "" {
		return 0, false
	}
	n, err := strconv.Atoi(val)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// readUpload reads one multipart file field, bounded by limit bytes.
func readUpload(w http.ResponseWriter, r *http.Request, field string, limit int64) (string, []byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, limit+formOverhead)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return "", nil, fmt.Errorf("%w: limit is %d bytes", core.ErrFileTooLarge, limit)
		}
		return "", nil, fmt.Errorf("%w: %v", core.ErrNoFile, err)
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		return "", nil, fmt.Errorf("%w: field %q", core.ErrNoFile, field)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, fmt.Errorf("read upload: %w", err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return "", nil, fmt.Errorf("%w: %d bytes exceeds limit of %d", core.ErrFileTooLarge, len(data), limit)
	}
	return header.Filename, data, nil
}

// selectionJSON is the JSON body returned by selection endpoints.
type selectionJSON struct {
	Selected    []string `json:"selected"`
	Count       int      `json:"count"`
	AllSelected bool     `json:"allSelected"`
}

// pageJSON is the JSON form of a screen view.
type pageJSON[T any] struct {
	Items       []T               `json:"items"`
	Page        int               `json:"page"`
	PageCount   int               `json:"pageCount"`
	Total       int               `json:"total"`
	Query       string            `json:"query"`
	Filters     map[string]string `json:"filters,omitempty"`
	Selected    []string          `json:"selected"`
	AllSelected bool              `json:"allSelected"`
	Notices     []core.Notice     `json:"notices,omitempty"`
}

func newPageJSON[T any](v core.View[T], selected []string, notices []core.Notice) pageJSON[T] {
	if selected == nil {
		selected = []string{}
	}
	items := v.Page.Items
	if items == nil {
		items = []T{}
	}
	return pageJSON[T]{
		Items:       items,
		Page:        v.Page.Number,
		PageCount:   v.Page.PageCount,
		Total:       v.Page.Total,
		Query:       v.Criteria.Query,
		Filters:     v.Criteria.Equals,
		Selected:    selected,
		AllSelected: v.AllSelected,
		Notices:     notices,
	}
}
