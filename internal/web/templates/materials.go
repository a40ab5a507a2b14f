package templates

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/a-h/templ"
)

const spreadsheetAccept = ".xlsx,.xlsm,.csv"

// MaterialsPage renders the materials (NVL) screen.
func MaterialsPage(p MaterialsParams) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTML(ctx, w)
		h.raw(`<h1>Danh sách nguyên vật liệu</h1>`)
		materialsToolbar(h, p)
		if p.Preview != nil {
			importPreview(h, p)
		}
		materialsTable(h, p)
		h.render(pagerView(p.Pager))
		if p.Form.Open {
			materialForm(h, p.Form)
		}
		return h.err
	})
	return page("Danh sách NVL", p.Notices, body)
}

func materialsToolbar(h *html, p MaterialsParams) {
	h.raw(`<div class="toolbar"><form method="get" action="/materials"><input type="search" name="q"`)
	h.attr("value", p.Query)
	h.raw(` placeholder="Tìm theo mã, tên, quy cách"><button type="submit">Tìm</button></form>`)
	h.postButton("/materials/form/open", "Thêm NVL")
	h.postButton("/materials/refresh", "Làm mới")
	h.raw(`<a href="/materials/export">Xuất CSV (`)
	h.count(p.SelectedCount)
	h.raw(`)</a>`)
	h.raw(`<form method="post" action="/materials/bulk-delete"`)
	h.attr("data-confirm", fmt.Sprintf("Xóa %d NVL đã chọn?", p.SelectedCount))
	h.attr("onsubmit", confirmSubmit)
	h.raw(`><button type="submit"`)
	h.flag("disabled", p.SelectedCount == 0)
	h.raw(`>Xóa đã chọn</button></form>`)
	h.postButton("/materials/select-clear", "Bỏ chọn")
	h.raw(`<a href="/materials/import/template">Tải file mẫu</a>`)
	h.raw(`<form method="post" action="/materials/import/preview" enctype="multipart/form-data"><input type="file" name="file"`)
	h.attr("accept", spreadsheetAccept)
	h.raw(`><button type="submit">Xem trước</button></form><small>Cập nhật: `)
	h.text(since(p.LoadedAt))
	h.raw(`</small></div>`)
}

func importPreview(h *html, p MaterialsParams) {
	pr := p.Preview
	h.raw(`<section><h2>Xem trước: `)
	h.text(pr.FileName)
	h.raw(`</h2><p>`)
	h.text(fmt.Sprintf("%d dòng, %d hợp lệ, %d thiếu dữ liệu.", pr.Summary.TotalRows, pr.Summary.ValidRows, pr.Summary.InvalidRows))
	h.raw(`</p><table><tr><th>Dòng</th>`)
	for _, col := range pr.Header {
		h.raw(`<th>`)
		h.text(col)
		h.raw(`</th>`)
	}
	h.raw(`</tr>`)
	for _, row := range pr.Rows {
		h.raw(`<tr><td>`)
		h.count(row.LineNumber)
		h.raw(`</td>`)
		for _, col := range pr.Header {
			h.raw(`<td>`)
			h.text(row.Values[col])
			h.raw(`</td>`)
		}
		h.raw(`</tr>`)
	}
	h.raw(`</table><form method="post" action="/materials/import" enctype="multipart/form-data"><input type="file" name="file"`)
	h.attr("accept", spreadsheetAccept)
	h.raw(` required><button type="submit">Nhập dữ liệu</button></form></section>`)
}

func materialsTable(h *html, p MaterialsParams) {
	h.raw(`<table><tr><th>`)
	h.checkboxForm("/materials/select-all", p.AllSelected)
	h.raw(`</th><th>Mã NVL</th><th>Tên NVL</th><th>Hình ảnh</th><th>Quy cách</th><th>Ghi chú</th><th></th></tr>`)
	for _, r := range p.Rows {
		id := url.PathEscape(r.ID)
		h.raw(`<tr><td>`)
		h.checkboxForm("/materials/select/"+id, r.Selected)
		h.raw(`</td><td>`)
		h.text(r.ID)
		h.raw(`</td><td>`)
		h.text(r.Name)
		h.raw(`</td><td>`)
		if r.ImageURL != "" {
			h.raw(`<img class="thumb"`)
			h.href("src", r.ImageURL)
			h.attr("alt", r.Name)
			h.raw(`>`)
		}
		h.raw(`</td><td>`)
		h.text(r.Spec)
		h.raw(`</td><td>`)
		h.text(r.Note)
		h.raw(`</td><td><form method="post" action="/materials/form/open"><input type="hidden" name="id"`)
		h.attr("value", r.ID)
		h.raw(`><button type="submit">Sửa</button></form><form method="post"`)
		h.href("action", "/materials/"+id+"/delete")
		h.attr("data-confirm", "Xóa "+r.ID+"?")
		h.attr("onsubmit", confirmSubmit)
		h.raw(`><button type="submit">Xóa</button></form></td></tr>`)
	}
	if len(p.Rows) == 0 {
		h.raw(`<tr><td colspan="7">`)
		if p.Loaded {
			h.raw(`Không có dữ liệu.`)
		} else {
			h.raw(`Đang tải dữ liệu...`)
		}
		h.raw(`</td></tr>`)
	}
	h.raw(`</table>`)
}

func materialForm(h *html, f FormParams) {
	h.raw(`<div class="modal"><div class="modal-body"><h2>`)
	if f.IsNew {
		h.raw(`Thêm NVL`)
	} else {
		h.raw(`Sửa NVL `)
		h.text(f.Draft.ID)
	}
	h.raw(`</h2>`)
	if f.Preview != "" {
		// Preview is either a data: URL built from the uploaded bytes or a
		// store URL; templ.URL would replace the former, so it is only escaped.
		h.raw(`<img`)
		h.attr("src", f.Preview)
		h.raw(` alt="preview" style="max-width: 100%; max-height: 12rem">`)
	}
	h.raw(`<form method="post" action="/materials/form/image" enctype="multipart/form-data">`)
	h.raw(`<input type="file" name="image" accept="image/*" onchange="this.form.submit()"></form>`)
	h.raw(`<form method="post" action="/materials/form/submit"><p><label>Tên NVL <input name="name"`)
	h.attr("value", f.Draft.Name)
	h.raw(` required></label></p><p><label>Quy cách <input name="spec"`)
	h.attr("value", f.Draft.Spec)
	h.raw(` required></label></p><p><label>Ghi chú <textarea name="note">`)
	h.text(f.Draft.Note)
	h.raw(`</textarea></label></p><button type="submit"`)
	h.flag("disabled", f.Submitting)
	h.raw(`>`)
	if f.Submitting {
		h.raw(`Đang lưu...`)
	} else {
		h.raw(`Lưu`)
	}
	h.raw(`</button></form><form method="post" action="/materials/form/cancel"><button type="submit"`)
	h.flag("disabled", f.Submitting)
	h.raw(`>Hủy</button></form></div></div>`)
}
