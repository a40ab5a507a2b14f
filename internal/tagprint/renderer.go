// Package tagprint renders warehouse tags (Thẻ Kho) as a printable HTML
// document, one page per package.
package tagprint

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/JonMunkholm/nvl/internal/core"
	"github.com/JonMunkholm/nvl/internal/logging"
)

//go:embed tags.html
var tagFS embed.FS

var tagTemplate = template.Must(template.New("tags.html").ParseFS(tagFS, "tags.html"))

// DefaultSettleDelay is the pause before the print dialog opens.
const DefaultSettleDelay = 500 * time.Millisecond

// Options configures the letterhead and print timing.
type Options struct {
	CompanyName  string
	CompanyLines []string
	SettleDelay  time.Duration
}

// Summary reports one render.
type Summary struct {
	Pages           int
	BarcodeFailures int
}

// Renderer writes tag documents.
type Renderer struct {
	opts Options
}

// NewRenderer returns a renderer; a non-positive SettleDelay uses the default.
func NewRenderer(opts Options) *Renderer {
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = DefaultSettleDelay
	}
	return &Renderer{opts: opts}
}

type tagPage struct {
	Code       string
	Barcode    template.URL
	Date       string
	Quality    string
	GoodsGroup string
	Crew       string
	Warehouse  string
	Length     string
	Width      string
	Thickness  string
	Pieces     string
	Volume     string
}

type document struct {
	CompanyName  string
	CompanyLines []string
	SettleMillis int64
	Pages        []tagPage
	PrintedAt    string
}

// Render writes one page per package in order. A package whose code cannot
// be encoded is printed without its barcode.
func (r *Renderer) Render(ctx context.Context, w io.Writer, packages []core.Package) (Summary, error) {
	logger := logging.FromContext(ctx)

	doc := document{
		CompanyName:  r.opts.CompanyName,
		CompanyLines: r.opts.CompanyLines,
		SettleMillis: r.opts.SettleDelay.Milliseconds(),
		Pages:        make([]tagPage, 0, len(packages)),
		PrintedAt:    time.Now().Format("02/01/2006 15:04"),
	}

	var sum Summary
	for _, p := range packages {
		page := newPage(p)
		uri, err := Barcode(p.Code)
		if err != nil {
			sum.BarcodeFailures++
			logger.Warn("barcode generation failed", "package", p.ID, "code", p.Code, "error", err)
		} else {
			page.Barcode = template.URL(uri)
		}
		doc.Pages = append(doc.Pages, page)
	}
	sum.Pages = len(doc.Pages)

	if err := tagTemplate.Execute(w, doc); err != nil {
		return sum, fmt.Errorf("render tags: %w", err)
	}
	return sum, nil
}

func newPage(p core.Package) tagPage {
	return tagPage{
		Code:       p.Code,
		Date:       p.ReceivedDate.String(),
		Quality:    p.Quality,
		GoodsGroup: p.GoodsGroup,
		Crew:       p.Crew,
		Warehouse:  p.WarehouseCode,
		Length:     formatDim(p.Length),
		Width:      formatDim(p.Width),
		Thickness:  formatDim(p.Thickness),
		Pieces:     formatDim(p.Pieces),
		Volume:     fmt.Sprintf("%.4f", p.CubicMeters()),
	}
}

// formatDim prints whole numbers without decimals.
func formatDim(n core.Number) string {
	f := float64(n)
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}
