package web

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/nvl/internal/core"
	"github.com/JonMunkholm/nvl/internal/images"
	"github.com/JonMunkholm/nvl/internal/logging"
	"github.com/JonMunkholm/nvl/internal/web/templates"
)

// handleMaterials renders the materials screen. q and page update the
// session's criteria before rendering.
func (s *Server) handleMaterials(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ws := workspaceFrom(ctx)
	screen := ws.materials

	if q := r.URL.Query(); q.Has("q") {
		screen.SetQuery(q.Get("q"))
	}
	if n, ok := parsePage(r); ok {
		screen.SetPage(n)
	}
	if err := screen.Store().EnsureLoaded(ctx); err != nil {
		logging.FromContext(ctx).Warn("materials not loaded", "error", err)
		screen.Notify(errorNotice(err))
	}

	view := screen.View()
	notices := screen.Notices()

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, newPageJSON(view, screen.SelectedIDs(), notices))
		return
	}

	params := templates.MaterialsParams{
		Query:         view.Criteria.Query,
		Rows:          make([]templates.MaterialRow, 0, len(view.Page.Items)),
		Pager:         templates.NewPager(materialsPath, view.Criteria, view.Page),
		SelectedCount: view.SelectedCount,
		AllSelected:   view.AllSelected,
		Loaded:        view.Loaded,
		LoadedAt:      view.LoadedAt,
		Notices:       notices,
		Form:          formParams(screen.Form),
		Preview:       ws.importPreview(),
		MaxImageSize:  s.cfg.Images.MaxSize,
	}
	imgs := s.service.Images()
	for _, m := range view.Page.Items {
		params.Rows = append(params.Rows, templates.MaterialRow{
			Material: m,
			ImageURL: imgs.Resolve(m.Image),
			Selected: view.Selected[m.ID],
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	templates.MaterialsPage(params).Render(ctx, w)
}

func formParams(fc *core.FormController) templates.FormParams {
	state := fc.State()
	draft := fc.Draft()
	return templates.FormParams{
		Open:       state != core.FormClosed,
		Submitting: state == core.FormSubmitting,
		IsNew:      draft.IsNew(),
		Draft:      draft,
		// a data: URL of a sniffed image, or a resolved image reference
		Preview: fc.Preview(),
	}
}

func (s *Server) handleMaterialsRefresh(w http.ResponseWriter, r *http.Request) {
	screen := workspaceFrom(r.Context()).materials
	if err := screen.Refresh(r.Context()); err != nil {
		s.fail(w, r, screen, materialsPath, err)
		return
	}
	s.ok(w, r, screen, materialsPath, success("Reloaded %d materials", screen.Store().Len()), nil)
}

func (s *Server) handleMaterialSelect(w http.ResponseWriter, r *http.Request) {
	screen := workspaceFrom(r.Context()).materials
	screen.Toggle(chi.URLParam(r, "id"))
	s.ok(w, r, screen, materialsPath, nil, materialSelection(screen))
}

func (s *Server) handleMaterialsSelectAll(w http.ResponseWriter, r *http.Request) {
	screen := workspaceFrom(r.Context()).materials
	screen.ToggleAll()
	s.ok(w, r, screen, materialsPath, nil, materialSelection(screen))
}

func (s *Server) handleMaterialsSelectClear(w http.ResponseWriter, r *http.Request) {
	screen := workspaceFrom(r.Context()).materials
	screen.ClearSelection()
	s.ok(w, r, screen, materialsPath, nil, materialSelection(screen))
}

func materialSelection(screen *core.MaterialScreen) selectionJSON {
	v := screen.View()
	return selectionJSON{Selected: screen.SelectedIDs(), Count: v.SelectedCount, AllSelected: v.AllSelected}
}

func (s *Server) handleMaterialDelete(w http.ResponseWriter, r *http.Request) {
	screen := workspaceFrom(r.Context()).materials
	id := chi.URLParam(r, "id")

	if err := s.service.DeleteMaterial(r.Context(), screen, id); err != nil {
		s.fail(w, r, screen, materialsPath, err)
		return
	}
	s.ok(w, r, screen, materialsPath, success("Deleted %s", id), nil)
}

func (s *Server) handleMaterialsBulkDelete(w http.ResponseWriter, r *http.Request) {
	screen := workspaceFrom(r.Context()).materials

	n, err := s.service.BulkDeleteMaterials(r.Context(), screen)
	if err != nil {
		s.fail(w, r, screen, materialsPath, err)
		return
	}
	s.ok(w, r, screen, materialsPath, success("Deleted %d materials", n), nil)
}

// handleMaterialsExport downloads the selected materials as CSV.
func (s *Server) handleMaterialsExport(w http.ResponseWriter, r *http.Request) {
	screen := workspaceFrom(r.Context()).materials

	var buf bytes.Buffer
	n, err := s.service.ExportSelection(&buf, screen)
	if err != nil {
		s.fail(w, r, screen, materialsPath, err)
		return
	}

	logging.FromContext(r.Context()).Info("materials exported", "count", n)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+core.ExportFileName(time.Now())+`"`)
	w.Write(buf.Bytes())
}

func (s *Server) handleFormOpen(w http.ResponseWriter, r *http.Request) {
	screen := workspaceFrom(r.Context()).materials

	if err := s.service.OpenForm(screen, r.FormValue("id")); err != nil {
		s.fail(w, r, screen, materialsPath, err)
		return
	}
	s.ok(w, r, screen, materialsPath, nil, screen.Form.Draft().Material)
}

func (s *Server) handleFormImage(w http.ResponseWriter, r *http.Request) {
	screen := workspaceFrom(r.Context()).materials

	name, data, err := readUpload(w, r, "image", s.cfg.Images.MaxSize)
	if err != nil {
		s.fail(w, r, screen, materialsPath, err)
		return
	}
	f := images.NewFile(name, data)
	if err := screen.Form.SelectImage(f); err != nil {
		s.fail(w, r, screen, materialsPath, err)
		return
	}
	s.ok(w, r, screen, materialsPath, nil, map[string]any{"name": f.Name, "mime": f.MIME, "size": f.Size()})
}

func (s *Server) handleFormSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	screen := workspaceFrom(ctx).materials

	if err := screen.Form.SetFields(r.FormValue("name"), r.FormValue("spec"), r.FormValue("note")); err != nil {
		s.fail(w, r, screen, materialsPath, err)
		return
	}

	saved, err := screen.Form.Submit(ctx)
	if err != nil {
		s.fail(w, r, screen, materialsPath, err)
		return
	}
	s.ok(w, r, screen, materialsPath, success("Saved %s", saved.ID), saved)
}

func (s *Server) handleFormCancel(w http.ResponseWriter, r *http.Request) {
	screen := workspaceFrom(r.Context()).materials
	if err := screen.Form.Cancel(); err != nil {
		s.fail(w, r, screen, materialsPath, err)
		return
	}
	s.ok(w, r, screen, materialsPath, nil, nil)
}

// handleImportTemplate downloads the .xlsx import template.
func (s *Server) handleImportTemplate(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := core.WriteImportTemplate(&buf); err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+core.TemplateFileName+`"`)
	w.Write(buf.Bytes())
}

// handleImportPreview parses an upload and keeps the preview for the next render.
func (s *Server) handleImportPreview(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r.Context())

	name, data, err := readUpload(w, r, "file", s.cfg.Import.MaxFileSize)
	if err != nil {
		s.fail(w, r, ws.materials, materialsPath, err)
		return
	}
	preview, err := s.service.Importer().Preview(name, data)
	if err != nil {
		ws.setImportPreview(nil)
		s.fail(w, r, ws.materials, materialsPath, err)
		return
	}
	ws.setImportPreview(preview)
	s.ok(w, r, ws.materials, materialsPath, nil, preview)
}

// handleImport validates the upload again and submits it in batches.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r.Context())
	screen := ws.materials

	name, data, err := readUpload(w, r, "file", s.cfg.Import.MaxFileSize)
	if err != nil {
		s.fail(w, r, screen, materialsPath, err)
		return
	}

	ctx := r.Context()
	if s.cfg.Import.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Import.Timeout)
		defer cancel()
	}

	result, err := s.service.Importer().Import(ctx, name, data)
	if err != nil {
		s.fail(w, r, screen, materialsPath, err)
		return
	}
	ws.setImportPreview(nil)

	if msg := result.Warning(); msg != "" && !wantsJSON(r) {
		screen.Notify(*warning(msg))
	}
	notice := success("%s", result.Summary())
	if !result.Complete() {
		notice.Level = core.NoticeWarning
	}
	s.ok(w, r, screen, materialsPath, notice, result)
}
