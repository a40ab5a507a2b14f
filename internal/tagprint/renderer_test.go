package tagprint

import (
	"bytes"
	"context"
	"encoding/base64"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/nvl/internal/core"
)

func TestBarcode(t *testing.T) {
	uri, err := Barcode("KX-2024-001")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, "data:image/png;base64,"))
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, barHeight, img.Bounds().Dy())
	assert.Zero(t, img.Bounds().Dx()%barModule)
}

func TestBarcode_Empty(t *testing.T) {
	_, err := Barcode("  ")
	assert.ErrorIs(t, err, ErrEmptyCode)
}

func samplePackage(id, code string) core.Package {
	return core.Package{
		ID:            id,
		Code:          code,
		GoodsGroup:    "Gỗ thông",
		ReceivedDate:  core.Date{Time: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
		Quality:       "AB",
		Crew:          "Tổ 2",
		Length:        2000,
		Width:         100,
		Thickness:     25,
		Pieces:        40,
		WarehouseCode: "K1",
	}
}

func TestRender_OnePagePerPackage(t *testing.T) {
	r := NewRenderer(Options{CompanyName: "Công ty Gỗ Việt", CompanyLines: []string{"KCN Tân Uyên"}, SettleDelay: 750 * time.Millisecond})

	var buf bytes.Buffer
	sum, err := r.Render(context.Background(), &buf, []core.Package{
		samplePackage("1", "KX-001"),
		samplePackage("2", "KX-002"),
	})
	require.NoError(t, err)
	assert.Equal(t, Summary{Pages: 2}, sum)

	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, `<section class="tag">`))
	assert.Equal(t, 2, strings.Count(out, `src="data:image/png;base64,`))
	assert.Contains(t, out, "05/03/2024")
	assert.Contains(t, out, "0.2000") // 2000*100*25*40 mm³
	assert.Contains(t, out, "Công ty Gỗ Việt")
	assert.Contains(t, out, "window.print()")
	assert.Contains(t, out, "750")
}

func TestRender_MissingCodeStillPrints(t *testing.T) {
	r := NewRenderer(Options{})

	var buf bytes.Buffer
	sum, err := r.Render(context.Background(), &buf, []core.Package{
		samplePackage("1", ""),
		samplePackage("2", "KX-002"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Pages)
	assert.Equal(t, 1, sum.BarcodeFailures)
	assert.Equal(t, 1, strings.Count(buf.String(), "Không tạo được mã vạch"))
	assert.Contains(t, buf.String(), "500")
}

func TestRender_Empty(t *testing.T) {
	var buf bytes.Buffer
	sum, err := NewRenderer(Options{}).Render(context.Background(), &buf, nil)
	require.NoError(t, err)
	assert.Zero(t, sum.Pages)
	assert.Contains(t, buf.String(), "Không có kiện nào để in.")
}

func TestFormatDim(t *testing.T) {
	assert.Equal(t, "2000", formatDim(2000))
	assert.Equal(t, "2.5", formatDim(2.5))
}
