package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/nvl/internal/core"
)

// ErrorAlert renders a standalone error page.
func ErrorAlert(message, action, code string) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTML(ctx, w)
		h.raw(`<div`)
		h.attr("class", "notice "+noticeClass(core.NoticeError))
		h.raw(` role="alert"><strong>`)
		h.text(message)
		h.raw(`</strong>`)
		if action != "" {
			h.raw(`<p>`)
			h.text(action)
			h.raw(`</p>`)
		}
		if code != "" {
			h.raw(`<p><small>Mã lỗi: `)
			h.text(code)
			h.raw(`</small></p>`)
		}
		h.raw(`</div>`)
		return h.err
	})
	return page("Lỗi", nil, body)
}
