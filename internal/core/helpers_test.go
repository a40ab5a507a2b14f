package core

import (
	"context"
	"errors"

	"github.com/JonMunkholm/nvl/internal/appsheet/appsheettest"
	"github.com/JonMunkholm/nvl/internal/images"
)

const (
	testMaterialTable = "DSNVL"
	testPackageTable  = "Kiện"
)

func materialRow(id, name, spec string) appsheettest.Row {
	return appsheettest.Row{
		ColMaterialID:    id,
		ColMaterialName:  name,
		ColMaterialImage: "",
		ColMaterialSpec:  spec,
		ColMaterialNote:  "",
	}
}

func newMaterialBackend(rows ...appsheettest.Row) *appsheettest.Backend {
	b := appsheettest.New()
	b.AddTable(testMaterialTable, ColMaterialID, rows...)
	return b
}

// fakeImages accepts any non-empty file and uploads to a predictable URL.
type fakeImages struct {
	uploads   int
	uploadErr error
}

func (f *fakeImages) Validate(file images.File) []string {
	if len(file.Data) == 0 {
		return []string{"file is empty"}
	}
	return nil
}

func (f *fakeImages) Upload(ctx context.Context, file images.File) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.uploads++
	return "/images/" + file.Name, nil
}

func (f *fakeImages) Resolve(ref string) string {
	if ref == "" {
		return ""
	}
	return "https://cdn.test/" + ref
}

// countingRefresher records refresh calls.
type countingRefresher struct {
	calls int
	err   error
}

func (r *countingRefresher) Refresh(ctx context.Context) error {
	r.calls++
	return r.err
}

var errBoom = errors.New("boom")
