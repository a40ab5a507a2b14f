// Package templates holds the server-rendered pages of the admin screens.
// Every page is a templ.Component; text and attribute values go through
// templ.EscapeString, link targets through templ.URL.
package templates

import (
	"context"
	"io"
	"net/url"
	"strconv"
	"time"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/nvl/internal/core"
)

// Pager holds the navigation links of a paginated list.
type Pager struct {
	Number    int
	PageCount int
	Total     int
	First     int
	Last      int
	PrevURL   string
	NextURL   string
}

// NewPager builds links to the neighbouring pages of p, keeping criteria.
func NewPager[T any](path string, c core.Criteria, p core.Page[T]) Pager {
	pg := Pager{Number: p.Number, PageCount: p.PageCount, Total: p.Total, First: p.First(), Last: p.Last()}
	if p.HasPrev() {
		pg.PrevURL = pageURL(path, c, p.Number-1)
	}
	if p.HasNext() {
		pg.NextURL = pageURL(path, c, p.Number+1)
	}
	return pg
}

func pageURL(path string, c core.Criteria, n int) string {
	q := url.Values{}
	q.Set("q", c.Query)
	for k, v := range c.Equals {
		q.Set(k, v)
	}
	q.Set("page", strconv.Itoa(n))
	return path + "?" + q.Encode()
}

// MaterialRow is one rendered material.
type MaterialRow struct {
	core.Material
	ImageURL string
	Selected bool
}

// FormParams describes the create/edit modal.
type FormParams struct {
	Open       bool
	Submitting bool
	IsNew      bool
	Draft      core.Draft
	Preview    string // data: URL of a pending file, or a resolved image URL
}

// MaterialsParams is everything the materials screen renders.
type MaterialsParams struct {
	Query         string
	Rows          []MaterialRow
	Pager         Pager
	SelectedCount int
	AllSelected   bool
	Loaded        bool
	LoadedAt      time.Time
	Notices       []core.Notice
	Form          FormParams
	Preview       *core.PreviewResponse
	MaxImageSize  int64
}

// PackageRow is one rendered package.
type PackageRow struct {
	core.Package
	Selected bool
}

// PackagesParams is everything the warehouse tag screen renders.
type PackagesParams struct {
	Criteria      core.Criteria
	Rows          []PackageRow
	Pager         Pager
	SelectedCount int
	AllSelected   bool
	Loaded        bool
	LoadedAt      time.Time
	Notices       []core.Notice
	GoodsGroups   []string
	Qualities     []string
	Warehouses    []string
}

// html writes markup and keeps the first error.
type html struct {
	ctx context.Context
	w   io.Writer
	err error
}

func newHTML(ctx context.Context, w io.Writer) *html {
	return &html{ctx: ctx, w: w}
}

// raw writes trusted markup.
func (h *html) raw(s string) {
	if h.err == nil {
		_, h.err = io.WriteString(h.w, s)
	}
}

// text writes escaped text.
func (h *html) text(s string) {
	h.raw(templ.EscapeString(s))
}

func (h *html) count(n int) {
	h.raw(strconv.Itoa(n))
}

// attr writes ` name="value"` with value escaped.
func (h *html) attr(name, value string) {
	h.raw(" " + name + `="` + templ.EscapeString(value) + `"`)
}

// href writes a link-like attribute; unsafe schemes are replaced by templ.
func (h *html) href(name, target string) {
	h.attr(name, string(templ.URL(target)))
}

// flag writes a boolean attribute when on.
func (h *html) flag(name string, on bool) {
	if on {
		h.raw(" " + name)
	}
}

func (h *html) render(c templ.Component) {
	if h.err == nil {
		h.err = c.Render(h.ctx, h.w)
	}
}

func noticeClass(level string) string {
	switch level {
	case core.NoticeSuccess:
		return "bg-green-50 text-green-800 border-green-300"
	case core.NoticeWarning:
		return "bg-yellow-50 text-yellow-800 border-yellow-300"
	case core.NoticeError:
		return "bg-red-50 text-red-800 border-red-300"
	}
	return "bg-blue-50 text-blue-800 border-blue-300"
}

func since(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Format("15:04:05")
}

func number(n core.Number) string {
	return strconv.FormatFloat(float64(n), 'f', -1, 64)
}
