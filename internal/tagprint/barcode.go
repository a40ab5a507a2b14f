package tagprint

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image/png"
	"strings"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
)

// Barcode sizing. Each module is drawn barModule pixels wide.
const (
	barModule = 3
	barHeight = 80
)

// ErrEmptyCode is returned when a package has no code to encode.
var ErrEmptyCode = errors.New("empty barcode value")

// Barcode encodes code as a Code128 PNG and returns it as a data URI.
func Barcode(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", ErrEmptyCode
	}

	bc, err := code128.Encode(code)
	if err != nil {
		return "", fmt.Errorf("encode %q: %w", code, err)
	}
	scaled, err := barcode.Scale(bc, bc.Bounds().Dx()*barModule, barHeight)
	if err != nil {
		return "", fmt.Errorf("scale %q: %w", code, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return "", fmt.Errorf("png %q: %w", code, err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
