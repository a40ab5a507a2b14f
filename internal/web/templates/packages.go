package templates

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/nvl/internal/core"
)

// PackagesPage renders the warehouse tag (Thẻ Kho) screen.
func PackagesPage(p PackagesParams) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTML(ctx, w)
		h.raw(`<h1>Thẻ kho</h1>`)
		packagesToolbar(h, p)
		packagesTable(h, p)
		h.render(pagerView(p.Pager))
		return h.err
	})
	return page("Thẻ kho", p.Notices, body)
}

func packagesToolbar(h *html, p PackagesParams) {
	h.raw(`<div class="toolbar"><form method="get" action="/packages"><input type="search" name="q"`)
	h.attr("value", p.Criteria.Query)
	h.raw(` placeholder="Tìm mã kiện">`)
	h.filterSelect(core.FilterGoodsGroup, "Nhóm hàng", p.GoodsGroups, p.Criteria.Equals[core.FilterGoodsGroup])
	h.filterSelect(core.FilterQuality, "Chất lượng", p.Qualities, p.Criteria.Equals[core.FilterQuality])
	h.filterSelect(core.FilterWarehouse, "Mã kho", p.Warehouses, p.Criteria.Equals[core.FilterWarehouse])
	h.raw(`<button type="submit">Lọc</button></form>`)
	h.postButton("/packages/refresh", "Làm mới")
	h.postButton("/packages/select-clear", "Bỏ chọn")
	h.raw(`<a href="/packages/print" target="_blank">In thẻ kho (`)
	if p.SelectedCount > 0 {
		h.count(p.SelectedCount)
		h.raw(` đã chọn`)
	} else {
		h.raw(`tất cả`)
	}
	h.raw(`)</a><small>Cập nhật: `)
	h.text(since(p.LoadedAt))
	h.raw(`</small></div>`)
}

func (h *html) filterSelect(name, placeholder string, options []string, current string) {
	h.raw(`<select`)
	h.attr("name", name)
	h.raw(`><option value="">`)
	h.text(placeholder)
	h.raw(`</option>`)
	for _, o := range options {
		h.raw(`<option`)
		h.attr("value", o)
		h.flag("selected", o == current)
		h.raw(`>`)
		h.text(o)
		h.raw(`</option>`)
	}
	h.raw(`</select>`)
}

func packagesTable(h *html, p PackagesParams) {
	h.raw(`<table><tr><th>`)
	h.checkboxForm("/packages/select-all", p.AllSelected)
	h.raw(`</th><th>Mã kiện</th><th>Ngày nhập</th><th>Nhóm hàng</th><th>Chất lượng</th><th>Tổ</th>`)
	h.raw(`<th>Dài x Rộng x Dày</th><th>Số thanh</th><th>Số khối</th><th>Mã kho</th></tr>`)
	for _, r := range p.Rows {
		h.raw(`<tr><td>`)
		h.checkboxForm("/packages/select/"+url.PathEscape(r.ID), r.Selected)
		for _, cell := range []string{
			r.Code,
			r.ReceivedDate.String(),
			r.GoodsGroup,
			r.Quality,
			r.Crew,
			number(r.Length) + " x " + number(r.Width) + " x " + number(r.Thickness),
			number(r.Pieces),
			fmt.Sprintf("%.4f", r.CubicMeters()),
			r.WarehouseCode,
		} {
			h.raw(`</td><td>`)
			h.text(cell)
		}
		h.raw(`</td></tr>`)
	}
	if len(p.Rows) == 0 {
		h.raw(`<tr><td colspan="10">`)
		if p.Loaded {
			h.raw(`Không có kiện nào.`)
		} else {
			h.raw(`Đang tải dữ liệu...`)
		}
		h.raw(`</td></tr>`)
	}
	h.raw(`</table>`)
}
