package web

import (
	"bytes"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/nvl/internal/core"
	"github.com/JonMunkholm/nvl/internal/logging"
	"github.com/JonMunkholm/nvl/internal/web/templates"
)

var packageFilters = []string{core.FilterGoodsGroup, core.FilterQuality, core.FilterWarehouse}

// handlePackages renders the warehouse tag screen. q, page and the
// categorical filters update the session's criteria before rendering.
func (s *Server) handlePackages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	screen := workspaceFrom(ctx).packages

	q := r.URL.Query()
	if q.Has("q") {
		screen.SetQuery(q.Get("q"))
	}
	for _, key := range packageFilters {
		if q.Has(key) {
			screen.SetFilter(key, q.Get(key))
		}
	}
	if n, ok := parsePage(r); ok {
		screen.SetPage(n)
	}
	if err := screen.Store().EnsureLoaded(ctx); err != nil {
		logging.FromContext(ctx).Warn("packages not loaded", "error", err)
		screen.Notify(errorNotice(err))
	}

	view := screen.View()
	notices := screen.Notices()

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, newPageJSON(view, screen.SelectedIDs(), notices))
		return
	}

	all := screen.Store().Rows()
	params := templates.PackagesParams{
		Criteria:      view.Criteria,
		Rows:          make([]templates.PackageRow, 0, len(view.Page.Items)),
		Pager:         templates.NewPager(packagesPath, view.Criteria, view.Page),
		SelectedCount: view.SelectedCount,
		AllSelected:   view.AllSelected,
		Loaded:        view.Loaded,
		LoadedAt:      view.LoadedAt,
		Notices:       notices,
		GoodsGroups:   core.Distinct(all, core.PackageFields.Equals[core.FilterGoodsGroup]),
		Qualities:     core.Distinct(all, core.PackageFields.Equals[core.FilterQuality]),
		Warehouses:    core.Distinct(all, core.PackageFields.Equals[core.FilterWarehouse]),
	}
	for _, p := range view.Page.Items {
		params.Rows = append(params.Rows, templates.PackageRow{Package: p, Selected: view.Selected[p.ID]})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	templates.PackagesPage(params).Render(ctx, w)
}

func (s *Server) handlePackagesRefresh(w http.ResponseWriter, r *http.Request) {
	screen := workspaceFrom(r.Context()).packages
	if err := screen.Refresh(r.Context()); err != nil {
		s.fail(w, r, screen, packagesPath, err)
		return
	}
	s.ok(w, r, screen, packagesPath, success("Reloaded %d packages", screen.Store().Len()), nil)
}

func (s *Server) handlePackageSelect(w http.ResponseWriter, r *http.Request) {
	screen := workspaceFrom(r.Context()).packages
	screen.Toggle(chi.URLParam(r, "id"))
	s.ok(w, r, screen, packagesPath, nil, packageSelection(screen))
}

func (s *Server) handlePackagesSelectAll(w http.ResponseWriter, r *http.Request) {
	screen := workspaceFrom(r.Context()).packages
	screen.ToggleAll()
	s.ok(w, r, screen, packagesPath, nil, packageSelection(screen))
}

func (s *Server) handlePackagesSelectClear(w http.ResponseWriter, r *http.Request) {
	screen := workspaceFrom(r.Context()).packages
	screen.ClearSelection()
	s.ok(w, r, screen, packagesPath, nil, packageSelection(screen))
}

func packageSelection(screen *core.PackageScreen) selectionJSON {
	v := screen.View()
	return selectionJSON{Selected: screen.SelectedIDs(), Count: v.SelectedCount, AllSelected: v.AllSelected}
}

// handlePackagesPrint renders the tag document for the selected packages,
// or for the whole filtered view when nothing is selected.
func (s *Server) handlePackagesPrint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	screen := workspaceFrom(ctx).packages

	if err := screen.Store().EnsureLoaded(ctx); err != nil {
		s.fail(w, r, screen, packagesPath, err)
		return
	}
	targets := screen.PrintTargets()
	if len(targets) == 0 {
		s.fail(w, r, screen, packagesPath, core.ErrNothingSelected)
		return
	}

	var buf bytes.Buffer
	sum, err := s.tags.Render(ctx, &buf, targets)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	s.service.Metrics().TagsPrinted(sum.Pages, sum.BarcodeFailures)
	logging.FromContext(ctx).Info("tags rendered", "pages", sum.Pages, "barcode_failures", sum.BarcodeFailures)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}
