package web

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/nvl/internal/appsheet"
	"github.com/JonMunkholm/nvl/internal/appsheet/appsheettest"
	"github.com/JonMunkholm/nvl/internal/config"
	"github.com/JonMunkholm/nvl/internal/core"
	"github.com/JonMunkholm/nvl/internal/images"
	"github.com/JonMunkholm/nvl/internal/tagprint"
)

const (
	materialTable = "DSNVL"
	packageTable  = "Kiện"
)

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{RequestTimeout: 10 * time.Second},
		Import:   config.ImportConfig{MaxFileSize: 1 << 20, BatchSize: 25, Timeout: time.Minute},
		Images:   config.ImageConfig{MaxSize: images.DefaultMaxSize, PublicBaseURL: "/images"},
		Screen:   config.ScreenConfig{PageSize: 10, SessionTTL: time.Hour},
		Security: config.SecurityConfig{EnableCSP: true},
	}
}

type harness struct {
	t       *testing.T
	srv     *Server
	backend *appsheettest.Backend
	cookie  *http.Cookie
}

func newHarness(t *testing.T, cfg *config.Config) *harness {
	t.Helper()

	backend := appsheettest.New()
	backend.AddTable(materialTable, core.ColMaterialID,
		appsheettest.Row{"Mã NVL": "NVL001", "Tên NVL": "Ván ép", "Quy cách": "18mm"},
		appsheettest.Row{"Mã NVL": "NVL002", "Tên NVL": "Keo PVA", "Quy cách": "20kg"},
	)
	backend.AddTable(packageTable, "ID",
		appsheettest.Row{"ID": "1", "Mã kiện": "KX-001", "Nhóm hàng": "Gỗ thông", "Chất lượng": "AB", "Loại giao dịch": "Nhập", "Ngày nhập": "05/03/2024"},
		appsheettest.Row{"ID": "2", "Mã kiện": "KX-002", "Nhóm hàng": "Gỗ sồi", "Chất lượng": "A", "Loại giao dịch": "Nhập"},
		appsheettest.Row{"ID": "3", "Mã kiện": "KX-003", "Nhóm hàng": "Gỗ thông", "Chất lượng": "B", "Loại giao dịch": "Nhập"},
	)

	store, err := images.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	imgs := images.NewService(store, cfg.Images.MaxSize, cfg.Images.PublicBaseURL)

	reg := prometheus.NewRegistry()
	svc := core.NewService(backend, imgs, core.NewImportLimiter(1, time.Second), core.NewMetrics(reg), core.ServiceConfig{
		MaterialTable: materialTable,
		PackageTable:  packageTable,
		PageSize:      cfg.Screen.PageSize,
		Import:        core.ImporterConfig{BatchSize: cfg.Import.BatchSize, MaxFileSize: cfg.Import.MaxFileSize},
	})

	srv := NewServer(cfg, svc, tagprint.NewRenderer(tagprint.Options{CompanyName: "Xưởng gỗ"}), reg)
	t.Cleanup(srv.Close)
	return &harness{t: t, srv: srv, backend: backend}
}

// do sends a request carrying the harness session cookie.
func (h *harness) do(req *http.Request) *httptest.ResponseRecorder {
	h.t.Helper()
	if h.cookie != nil {
		req.AddCookie(h.cookie)
	}
	rec := httptest.NewRecorder()
	h.srv.Router().ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie {
			h.cookie = c
		}
	}
	return rec
}

func (h *harness) get(path string, asJSON bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if asJSON {
		req.Header.Set("Accept", "application/json")
	}
	return h.do(req)
}

func (h *harness) post(path string, form url.Values, asJSON bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if asJSON {
		req.Header.Set("Accept", "application/json")
	}
	return h.do(req)
}

func (h *harness) upload(path, field, name string, data []byte, asJSON bool) *httptest.ResponseRecorder {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, name)
	require.NoError(h.t, err)
	_, err = part.Write(data)
	require.NoError(h.t, err)
	require.NoError(h.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if asJSON {
		req.Header.Set("Accept", "application/json")
	}
	return h.do(req)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.Black)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestRootRedirectsAndSetsSession(t *testing.T) {
	h := newHarness(t, testConfig())
	rec := h.get("/", false)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, materialsPath, rec.Header().Get("Location"))
	require.NotNil(t, h.cookie)
	assert.True(t, h.cookie.HttpOnly)
}

func TestMaterialsScreen(t *testing.T) {
	h := newHarness(t, testConfig())

	rec := h.get("/materials", false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Ván ép")
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))

	rec = h.get("/materials?q=keo", true)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[pageJSON[core.Material]](t, rec)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, "NVL002", page.Items[0].ID)
	assert.Equal(t, "keo", page.Query)
}

func TestSelectionAndExport(t *testing.T) {
	h := newHarness(t, testConfig())
	h.get("/materials", false)

	rec := h.post("/materials/select/NVL002", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	sel := decode[selectionJSON](t, rec)
	assert.Equal(t, []string{"NVL002"}, sel.Selected)

	rec = h.get("/materials/export", false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "danh-sach-nvl-")
	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "\ufeffMã NVL,"))
	assert.Contains(t, body, "NVL002,Keo PVA")
	assert.NotContains(t, body, "NVL001")
}

func TestExportWithoutSelectionQueuesNotice(t *testing.T) {
	h := newHarness(t, testConfig())

	rec := h.get("/materials/export", false)
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	page := decode[pageJSON[core.Material]](t, h.get("/materials", true))
	require.Len(t, page.Notices, 1)
	assert.Equal(t, core.NoticeError, page.Notices[0].Level)
	assert.Equal(t, "REC002", page.Notices[0].Code)

	page = decode[pageJSON[core.Material]](t, h.get("/materials", true))
	assert.Empty(t, page.Notices, "notices are shown once")
}

func TestSessionsAreIsolated(t *testing.T) {
	a := newHarness(t, testConfig())
	a.get("/materials", false)
	a.post("/materials/select/NVL001", nil, true)

	// second browser on the same server
	b := &harness{t: t, srv: a.srv, backend: a.backend}
	page := decode[pageJSON[core.Material]](t, b.get("/materials", true))
	assert.Empty(t, page.Selected)
	assert.NotEqual(t, a.cookie.Value, b.cookie.Value)
}

func TestFormCreateWithImage(t *testing.T) {
	h := newHarness(t, testConfig())

	rec := h.post("/materials/form/open", nil, false)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = h.upload("/materials/form/image", "image", "keo.png", pngBytes(t), true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.post("/materials/form/submit", url.Values{"name": {"Đinh"}, "spec": {"5cm"}}, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	saved := decode[core.Material](t, rec)
	assert.Equal(t, "NVL003", saved.ID)
	require.True(t, strings.HasPrefix(saved.Image, "/images/nvl_"), saved.Image)

	assert.Len(t, h.backend.Rows(materialTable), 3)

	img := h.get(saved.Image, false)
	require.Equal(t, http.StatusOK, img.Code)
	assert.Equal(t, "image/png", img.Header().Get("Content-Type"))
}

func TestFormValidationKeepsModalOpen(t *testing.T) {
	h := newHarness(t, testConfig())
	h.get("/materials", false)
	h.post("/materials/form/open", url.Values{"id": {"NVL001"}}, false)

	rec := h.post("/materials/form/submit", url.Values{"name": {""}, "spec": {"18mm"}}, true)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "VAL001", resp.Code)
	assert.Contains(t, resp.Fields, "name")

	html := h.get("/materials", false).Body.String()
	assert.Contains(t, html, `class="modal"`)
	assert.Empty(t, h.backend.CallsFor(appsheet.ActionEdit))
}

func TestFormRejectsNonImage(t *testing.T) {
	h := newHarness(t, testConfig())
	h.post("/materials/form/open", nil, false)

	rec := h.upload("/materials/form/image", "image", "notes.txt", []byte("plain text"), true)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "IMG001", decode[ErrorResponse](t, rec).Code)
}

func TestDeleteAndBulkDelete(t *testing.T) {
	h := newHarness(t, testConfig())
	h.get("/materials", false)

	rec := h.post("/materials/NVL001/delete", nil, false)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Len(t, h.backend.Rows(materialTable), 1)

	h.post("/materials/select-all", nil, true)
	rec = h.post("/materials/bulk-delete", nil, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, h.backend.Rows(materialTable))

	page := decode[pageJSON[core.Material]](t, h.get("/materials", true))
	assert.Empty(t, page.Selected)
}

func TestImportFlow(t *testing.T) {
	h := newHarness(t, testConfig())
	csv := []byte("Tên NVL,Quy cách,Ghi chú\nSơn,5L,\n,1m,thiếu tên\nVít,3cm,\n")

	rec := h.upload("/materials/import/preview", "file", "nvl.csv", csv, false)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, h.get("/materials", false).Body.String(), "Xem trước: nvl.csv")

	rec = h.upload("/materials/import", "file", "nvl.csv", csv, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[core.ImportResult](t, rec)
	assert.Equal(t, 2, res.Processed)
	assert.Equal(t, []int{3}, res.InvalidRows)
	assert.Len(t, h.backend.Rows(materialTable), 4)

	assert.NotContains(t, h.get("/materials", false).Body.String(), "Xem trước:")
}

func TestImportOutlivesRequestTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.Server.RequestTimeout = 20 * time.Millisecond
	cfg.Import.BatchSize = 1
	h := newHarness(t, cfg)
	h.backend.FailWhen(func(c appsheettest.Call) error {
		if c.Action == appsheet.ActionAdd {
			time.Sleep(15 * time.Millisecond)
		}
		return nil
	})

	csv := []byte("Tên NVL,Quy cách\nA,1\nB,2\nC,3\nD,4\nE,5\nF,6\n")
	rec := h.upload("/materials/import", "file", "nvl.csv", csv, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	res := decode[core.ImportResult](t, rec)
	assert.Equal(t, 6, res.Processed)
	assert.Zero(t, res.Unsubmitted)
	assert.Len(t, h.backend.Rows(materialTable), 8)
}

func TestImportCutShortIsAWarning(t *testing.T) {
	cfg := testConfig()
	cfg.Import.BatchSize = 1
	cfg.Import.Timeout = 100 * time.Millisecond
	h := newHarness(t, cfg)
	h.backend.FailWhen(func(c appsheettest.Call) error {
		if c.Action == appsheet.ActionAdd {
			time.Sleep(60 * time.Millisecond)
		}
		return nil
	})

	csv := []byte("Tên NVL,Quy cách\nA,1\nB,2\nC,3\nD,4\nE,5\nF,6\n")
	rec := h.upload("/materials/import", "file", "nvl.csv", csv, false)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	page := decode[pageJSON[core.Material]](t, h.get("/materials", true))
	require.NotEmpty(t, page.Notices)
	last := page.Notices[len(page.Notices)-1]
	assert.Equal(t, core.NoticeWarning, last.Level)
	assert.Contains(t, last.Message, "were not sent")
}

func TestImportRejectsMissingColumns(t *testing.T) {
	h := newHarness(t, testConfig())
	rec := h.upload("/materials/import", "file", "nvl.csv", []byte("Tên NVL\nSơn\n"), true)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "VAL002", decode[ErrorResponse](t, rec).Code)
	assert.Empty(t, h.backend.CallsFor(appsheet.ActionAdd))
}

func TestImportTemplateDownload(t *testing.T) {
	h := newHarness(t, testConfig())
	rec := h.get("/materials/import/template", false)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), core.TemplateFileName)
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))
}

func TestPackagesFilterAndPrint(t *testing.T) {
	h := newHarness(t, testConfig())

	page := decode[pageJSON[core.Package]](t, h.get("/packages?group="+url.QueryEscape("Gỗ thông"), true))
	assert.Equal(t, 2, page.Total)

	rec := h.get("/packages/print", false)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Equal(t, 2, strings.Count(body, `<section class="tag">`))
	assert.Contains(t, body, "KX-003")
	assert.NotContains(t, body, "KX-002")

	h.post("/packages/select/3", nil, true)
	body = h.get("/packages/print", false).Body.String()
	assert.Equal(t, 1, strings.Count(body, `<section class="tag">`))

	metrics := h.get("/metrics", false).Body.String()
	assert.Contains(t, metrics, "nvl_tags_printed_total 3")
}

func TestPrintWithNothingToPrint(t *testing.T) {
	h := newHarness(t, testConfig())
	h.get("/packages?q=no-such-code", false)

	rec := h.get("/packages/print", false)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, packagesPath, rec.Header().Get("Location"))
}

func TestHealth(t *testing.T) {
	h := newHarness(t, testConfig())
	h.get("/materials", false)

	rec := h.get("/health", false)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[healthResponse](t, rec)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Stores[materialTable].Rows)
	require.NotNil(t, resp.Imports)
	assert.Equal(t, 1, resp.Imports.MaxConcurrent)
}

func TestRemoteFailureDegradesHealthButRendersScreen(t *testing.T) {
	h := newHarness(t, testConfig())
	h.backend.FailWhen(func(appsheettest.Call) error {
		return &appsheet.APIError{StatusCode: 500, Message: "down"}
	})

	rec := h.get("/materials", true)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[pageJSON[core.Material]](t, rec)
	require.Len(t, page.Notices, 1)
	assert.Equal(t, "API002", page.Notices[0].Code)

	assert.Equal(t, "degraded", decode[healthResponse](t, h.get("/health", false)).Status)
}

func TestUnknownImage(t *testing.T) {
	h := newHarness(t, testConfig())
	rec := h.get("/images/nvl_missing.png", false)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 2}
	h := newHarness(t, cfg)

	assert.Equal(t, http.StatusOK, h.get("/health", false).Code)
	assert.Equal(t, http.StatusOK, h.get("/health", false).Code)
	rec := h.get("/health", false)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestSessionSweep(t *testing.T) {
	ss := newSessionStore(time.Minute, false, func() *workspace { return &workspace{} })
	ws, created := ss.lookup("")
	require.True(t, created)

	again, created := ss.lookup(ws.id)
	assert.False(t, created)
	assert.Same(t, ws, again)

	_, created = ss.lookup("not-a-uuid")
	assert.True(t, created)

	assert.Equal(t, 2, ss.sweep(time.Now().Add(2*time.Minute)))
	assert.Zero(t, ss.len())
}

func TestSessionSweepDropsUnreturnedCookiesEarly(t *testing.T) {
	ss := newSessionStore(time.Hour, false, func() *workspace { return &workspace{} })

	kept, _ := ss.lookup("")
	ss.lookup(kept.id)
	for i := 0; i < 3; i++ {
		ss.lookup("") // client that never sends the cookie back
	}
	require.Equal(t, 4, ss.len())

	assert.Equal(t, 3, ss.sweep(time.Now().Add(unconfirmedTTL+time.Minute)))
	assert.Equal(t, 1, ss.len())

	assert.Equal(t, 1, ss.sweep(time.Now().Add(2*time.Hour)))
}
