package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/nvl/internal/core"
)

const styles = `
  body { font-family: system-ui, sans-serif; margin: 0; background: #f8fafc; color: #0f172a; }
  nav { background: #1e293b; padding: 0.75rem 1.5rem; }
  nav a { color: #e2e8f0; margin-right: 1.5rem; text-decoration: none; font-weight: 600; }
  main { padding: 1.5rem; }
  table { width: 100%; border-collapse: collapse; background: #fff; }
  th, td { border-bottom: 1px solid #e2e8f0; padding: 0.5rem; text-align: left; vertical-align: middle; }
  th { background: #f1f5f9; }
  .notice { border: 1px solid; padding: 0.5rem 0.75rem; margin-bottom: 0.5rem; border-radius: 4px; }
  .toolbar { display: flex; gap: 0.5rem; align-items: center; flex-wrap: wrap; margin-bottom: 1rem; }
  .toolbar form { display: inline; }
  .modal { position: fixed; inset: 0; background: rgba(15, 23, 42, 0.5); display: flex; align-items: center; justify-content: center; }
  .modal-body { background: #fff; padding: 1.5rem; width: 32rem; border-radius: 6px; }
  .thumb { width: 48px; height: 48px; object-fit: cover; }
  .pager { margin-top: 1rem; display: flex; gap: 1rem; align-items: center; }
  button[disabled] { opacity: 0.5; }
`

// confirmSubmit asks before submitting; the question is read from data-confirm.
const confirmSubmit = `return confirm(this.dataset.confirm)`

// Layout wraps the page body passed as templ children.
func Layout(title string, notices []core.Notice) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTML(ctx, w)
		h.raw(`<!DOCTYPE html><html lang="vi"><head><meta charset="utf-8">`)
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1"><title>`)
		h.text(title)
		h.raw(`</title><style>` + styles + `</style></head><body>`)
		h.raw(`<nav><a href="/materials">Nguyên vật liệu</a><a href="/packages">Thẻ kho</a></nav><main>`)
		for _, n := range notices {
			h.raw(`<div`)
			h.attr("class", "notice "+noticeClass(n.Level))
			h.raw(` role="alert">`)
			h.text(n.Message)
			if n.Action != "" {
				h.raw(" ")
				h.text(n.Action)
			}
			if n.Code != "" {
				h.raw(` <small>(`)
				h.text(n.Code)
				h.raw(`)</small>`)
			}
			h.raw(`</div>`)
		}
		h.render(templ.GetChildren(ctx))
		h.raw(`</main></body></html>`)
		return h.err
	})
}

// page renders body inside the layout.
func page(title string, notices []core.Notice, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return Layout(title, notices).Render(templ.WithChildren(ctx, body), w)
	})
}

func pagerView(p Pager) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTML(ctx, w)
		h.raw(`<div class="pager">`)
		if p.PrevURL != "" {
			h.raw(`<a`)
			h.href("href", p.PrevURL)
			h.raw(`>&laquo; Trước</a>`)
		}
		h.raw(`<span>Trang `)
		h.count(p.Number)
		h.raw(` / `)
		h.count(p.PageCount)
		h.raw(` (`)
		h.count(p.First)
		h.raw(`-`)
		h.count(p.Last)
		h.raw(` / `)
		h.count(p.Total)
		h.raw(`)</span>`)
		if p.NextURL != "" {
			h.raw(`<a`)
			h.href("href", p.NextURL)
			h.raw(`>Sau &raquo;</a>`)
		}
		h.raw(`</div>`)
		return h.err
	})
}

// checkboxForm posts to action whenever the box is toggled.
func (h *html) checkboxForm(action string, checked bool) {
	h.raw(`<form method="post"`)
	h.href("action", action)
	h.raw(`><input type="checkbox"`)
	h.flag("checked", checked)
	h.raw(` onchange="this.form.submit()"></form>`)
}

// postButton is a single-button form.
func (h *html) postButton(action, label string) {
	h.raw(`<form method="post"`)
	h.href("action", action)
	h.raw(`><button type="submit">`)
	h.text(label)
	h.raw(`</button></form>`)
}
