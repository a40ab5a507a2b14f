package core

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/nvl/internal/appsheet"
	"github.com/JonMunkholm/nvl/internal/appsheet/appsheettest"
	"github.com/JonMunkholm/nvl/internal/images"
)

type formFixture struct {
	backend *appsheettest.Backend
	store   *Store[Material]
	images  *fakeImages
	form    *FormController
}

func newFormFixture(t *testing.T, rows ...appsheettest.Row) *formFixture {
	t.Helper()
	backend := newMaterialBackend(rows...)
	repo := NewMaterialRepo(backend, testMaterialTable)
	store := NewStore(testMaterialTable, repo.List)
	require.NoError(t, store.Refresh(context.Background()))
	imgs := &fakeImages{}
	return &formFixture{backend: backend, store: store, images: imgs, form: NewFormController(repo, store, imgs)}
}

func TestForm_CreateGeneratesIDFromFreshFetch(t *testing.T) {
	f := newFormFixture(t, materialRow("NVL001", "Ván", "18mm"))

	// a row added elsewhere after the store loaded
	f.backend.AddTable(testMaterialTable, ColMaterialID,
		materialRow("NVL001", "Ván", "18mm"),
		materialRow("NVL005", "Đinh", "5cm"),
	)

	require.NoError(t, f.form.Open(nil))
	assert.Equal(t, FormOpen, f.form.State())
	require.NoError(t, f.form.SetFields(" Keo ", "20kg", ""))

	saved, err := f.form.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "NVL006", saved.ID)
	assert.Equal(t, "Keo", saved.Name)
	assert.Equal(t, FormClosed, f.form.State())
	assert.Equal(t, Draft{}, f.form.Draft())

	assert.Contains(t, ids(f.store.Rows()), "NVL006", "store refreshed after save")
}

func TestForm_EditKeepsID(t *testing.T) {
	f := newFormFixture(t, materialRow("NVL003", "Ván", "18mm"))
	m := f.store.Rows()[0]

	require.NoError(t, f.form.Open(&m))
	assert.Equal(t, "Ván", f.form.Draft().Name)
	require.NoError(t, f.form.SetFields("Ván ép", "18mm", "ghi chú"))

	saved, err := f.form.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "NVL003", saved.ID)

	edits := f.backend.CallsFor(appsheet.ActionEdit)
	require.Len(t, edits, 1)
	assert.Equal(t, "NVL003", edits[0].Rows[0][ColMaterialID])
	assert.Empty(t, f.backend.CallsFor(appsheet.ActionAdd))
}

func TestForm_ValidationKeepsFormOpen(t *testing.T) {
	f := newFormFixture(t)
	require.NoError(t, f.form.Open(nil))
	require.NoError(t, f.form.SetFields("", "  ", "note"))

	_, err := f.form.Submit(context.Background())
	var fe FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe, "name")
	assert.Contains(t, fe, "spec")
	assert.Equal(t, FormOpen, f.form.State())
	assert.Equal(t, "note", f.form.Draft().Note)
	assert.Empty(t, f.backend.Calls()[1:], "no remote call after the initial load")
}

func TestForm_UploadFailureAbortsSubmit(t *testing.T) {
	f := newFormFixture(t)
	f.images.uploadErr = errBoom

	require.NoError(t, f.form.Open(nil))
	require.NoError(t, f.form.SetFields("Keo", "20kg", ""))
	require.NoError(t, f.form.SelectImage(images.File{Name: "keo.png", MIME: "image/png", Data: []byte("png")}))

	_, err := f.form.Submit(context.Background())
	require.ErrorIs(t, err, ErrImageUpload)
	assert.Equal(t, FormOpen, f.form.State())
	assert.NotNil(t, f.form.Draft().PendingImage)
	assert.Empty(t, f.backend.CallsFor(appsheet.ActionAdd))
}

func TestForm_PendingImageUploadedBeforeSave(t *testing.T) {
	f := newFormFixture(t)

	require.NoError(t, f.form.Open(nil))
	require.NoError(t, f.form.SetFields("Keo", "20kg", ""))
	require.NoError(t, f.form.SelectImage(images.File{Name: "keo.png", MIME: "image/png", Data: []byte("png")}))
	assert.True(t, strings.HasPrefix(f.form.Preview(), "data:image/png;base64,"))

	saved, err := f.form.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/images/keo.png", saved.Image)
	assert.Equal(t, 1, f.images.uploads)
}

func TestForm_SaveFailureKeepsUploadedImage(t *testing.T) {
	f := newFormFixture(t)
	f.backend.FailWhen(func(c appsheettest.Call) error {
		if c.Action == appsheet.ActionAdd {
			return errBoom
		}
		return nil
	})

	require.NoError(t, f.form.Open(nil))
	require.NoError(t, f.form.SetFields("Keo", "20kg", ""))
	require.NoError(t, f.form.SelectImage(images.File{Name: "keo.png", MIME: "image/png", Data: []byte("png")}))

	_, err := f.form.Submit(context.Background())
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, FormOpen, f.form.State())

	d := f.form.Draft()
	assert.Nil(t, d.PendingImage)
	assert.Equal(t, "/images/keo.png", d.Image)
	assert.Empty(t, d.ID)

	f.backend.FailWhen(nil)
	_, err = f.form.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, f.images.uploads, "image is not uploaded twice")
}

func TestForm_SelectImageRejectsInvalid(t *testing.T) {
	f := newFormFixture(t)
	require.NoError(t, f.form.Open(nil))

	err := f.form.SelectImage(images.File{Name: "empty.png"})
	var invalid *images.InvalidImageError
	require.ErrorAs(t, err, &invalid)
	assert.Nil(t, f.form.Draft().PendingImage)
}

func TestForm_PreviewResolvesStoredImage(t *testing.T) {
	f := newFormFixture(t)
	require.NoError(t, f.form.Open(&Material{ID: "NVL001", Image: "DSNVL_Images/a.jpg"}))
	assert.Equal(t, "https://cdn.test/DSNVL_Images/a.jpg", f.form.Preview())
}

func TestForm_StateGuards(t *testing.T) {
	f := newFormFixture(t)

	assert.ErrorIs(t, f.form.SetFields("a", "b", ""), ErrFormClosed)
	_, err := f.form.Submit(context.Background())
	assert.ErrorIs(t, err, ErrFormClosed)

	require.NoError(t, f.form.Open(nil))
	require.NoError(t, f.form.SetFields("Keo", "20kg", "x"))
	require.NoError(t, f.form.Cancel())
	assert.Equal(t, FormClosed, f.form.State())
	assert.Equal(t, Draft{}, f.form.Draft())
}

func TestForm_DoubleSubmitRejected(t *testing.T) {
	f := newFormFixture(t)
	release := make(chan struct{})
	entered := make(chan struct{})
	f.backend.FailWhen(func(c appsheettest.Call) error {
		if c.Action == appsheet.ActionAdd {
			close(entered)
			<-release
		}
		return nil
	})

	require.NoError(t, f.form.Open(nil))
	require.NoError(t, f.form.SetFields("Keo", "20kg", ""))

	done := make(chan error, 1)
	go func() {
		_, err := f.form.Submit(context.Background())
		done <- err
	}()
	<-entered

	assert.Equal(t, FormSubmitting, f.form.State())
	_, err := f.form.Submit(context.Background())
	assert.ErrorIs(t, err, ErrSubmitInProgress)
	assert.ErrorIs(t, f.form.Cancel(), ErrSubmitInProgress)
	assert.ErrorIs(t, f.form.Open(nil), ErrSubmitInProgress)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, FormClosed, f.form.State())
}
