package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// MaterialIDPrefix prefixes every generated material identifier (NVL001).
const MaterialIDPrefix = "NVL"

// ReceivedTransaction is the transaction type of packages shown on the tag screen.
const ReceivedTransaction = "Nhập"

// Material column names as they appear in the remote table and in spreadsheets.
const (
	ColMaterialID    = "Mã NVL"
	ColMaterialName  = "Tên NVL"
	ColMaterialImage = "Hình ảnh"
	ColMaterialSpec  = "Quy cách"
	ColMaterialNote  = "Ghi chú"
)

// MaterialColumns is the fixed column order used by export and the import template.
var MaterialColumns = []string{
	ColMaterialID,
	ColMaterialName,
	ColMaterialImage,
	ColMaterialSpec,
	ColMaterialNote,
}

// Material is one row of the materials (NVL) table.
type Material struct {
	RowNumber string `json:"_RowNumber,omitempty"`
	RowID     string `json:"Row ID,omitempty"`

	ID    string `json:"Mã NVL"`
	Name  string `json:"Tên NVL"`
	Image string `json:"Hình ảnh"`
	Spec  string `json:"Quy cách"`
	Note  string `json:"Ghi chú"`
}

// Key returns the material identifier.
func (m Material) Key() string { return m.ID }

// Fields returns the material in MaterialColumns order.
func (m Material) Fields() []string {
	return []string{m.ID, m.Name, m.Image, m.Spec, m.Note}
}

// forWrite strips AppSheet row metadata before the record is sent back.
func (m Material) forWrite() Material {
	m.RowNumber = ""
	m.RowID = ""
	return m
}

// Package is one warehouse package (Kiện). Read-only.
type Package struct {
	RowNumber string `json:"_RowNumber,omitempty"`
	RowID     string `json:"Row ID,omitempty"`

	ID              string `json:"ID"`
	Code            string `json:"Mã kiện"`
	GoodsGroup      string `json:"Nhóm hàng"`
	ReceivedDate    Date   `json:"Ngày nhập"`
	Quality         string `json:"Chất lượng"`
	Crew            string `json:"Tổ"`
	Length          Number `json:"Dài"`
	Width           Number `json:"Rộng"`
	Thickness       Number `json:"Dày"`
	Pieces          Number `json:"Số thanh"`
	Volume          Number `json:"Số khối"`
	WarehouseCode   string `json:"Mã kho"`
	TransactionType string `json:"Loại giao dịch"`
}

// Key returns the package identifier.
func (p Package) Key() string { return p.ID }

// Received reports whether the package belongs to a receiving transaction.
func (p Package) Received() bool {
	return strings.EqualFold(strings.TrimSpace(p.TransactionType), ReceivedTransaction)
}

// CubicMeters returns the stored volume, or computes it from millimetre
// dimensions and piece count when the column is empty.
func (p Package) CubicMeters() float64 {
	if p.Volume != 0 {
		return float64(p.Volume)
	}
	return float64(p.Length) * float64(p.Width) * float64(p.Thickness) * float64(p.Pieces) / 1e9
}

// Number is a numeric AppSheet column. The API returns numbers either as JSON
// numbers or as locale-formatted strings ("1,25", "1.234,5").
type Number float64

// UnmarshalJSON accepts JSON numbers, numeric strings, empty strings and null.
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}

	if data[0] != '"' {
		f, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("invalid number %s: %w", data, err)
		}
		*n = Number(f)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	f, err := ParseNumber(s)
	if err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

// MarshalJSON writes the value as a plain JSON number.
func (n Number) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(float64(n), 'f', -1, 64)), nil
}

// groupedThousands matches dot-grouped integers such as "4.000" or
// "1.250.000". A leading zero group ("0.025") is a decimal, not a group.
var groupedThousands = regexp.MustCompile(`^-?[1-9]\d{0,2}(\.\d{3})+$`)

// ParseNumber parses a number formatted for vi-VN: comma decimal separator,
// dot thousand separators. Whichever separator comes last is the decimal
// one when both appear; a dot-only value is grouped when it has the shape
// of thousands groups. An empty string is zero.
func ParseNumber(s string) (float64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, " ", ""))
	if s == "" {
		return 0, nil
	}

	comma, dot := strings.LastIndex(s, ","), strings.LastIndex(s, ".")
	switch {
	case comma >= 0 && dot >= 0 && dot > comma:
		s = strings.ReplaceAll(s, ",", "")
	case comma >= 0:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	case groupedThousands.MatchString(s):
		s = strings.ReplaceAll(s, ".", "")
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return f, nil
}

// Date is a date column. AppSheet sends dates formatted for the request
// locale, so both day-first and ISO layouts are accepted.
type Date struct {
	time.Time
}

// DateLayout is the display layout for dates on screens and tags.
const DateLayout = "02/01/2006"

var dateLayouts = []string{
	"02/01/2006",
	"2/1/2006",
	"02/01/2006 15:04:05",
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// UnmarshalJSON parses a JSON string in any of the accepted layouts.
func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		d.Time = time.Time{}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid date %s: %w", data, err)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		d.Time = time.Time{}
		return nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t
			return nil
		}
	}
	return fmt.Errorf("invalid date %q", s)
}

// MarshalJSON writes the date in display layout, or "" when unset.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// String formats the date as dd/mm/yyyy.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// ImportCandidate is a spreadsheet row before validation.
type ImportCandidate struct {
	Row      int // 1-based sheet row, header included
	Material Material
}

// Valid reports whether both required fields are present.
func (c ImportCandidate) Valid() bool {
	return strings.TrimSpace(c.Material.Name) != "" && strings.TrimSpace(c.Material.Spec) != ""
}
