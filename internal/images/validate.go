// Package images validates, stores and resolves material images.
package images

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
)

// DefaultMaxSize is the largest accepted image when none is configured.
const DefaultMaxSize = 5 * 1024 * 1024

// File is an image selected by the user but not uploaded yet.
type File struct {
	Name string
	MIME string // sniffed from Data
	Data []byte
}

// NewFile wraps uploaded bytes and sniffs their MIME type.
func NewFile(name string, data []byte) File {
	mime, _ := DetectMIME(data)
	return File{Name: filepath.Base(name), MIME: mime, Data: data}
}

// Size returns the file size in bytes.
func (f File) Size() int64 { return int64(len(f.Data)) }

var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// isWebP reports whether data is a RIFF container tagged WEBP; the stdlib
// sniffer does not know that signature.
func isWebP(data []byte) bool {
	return len(data) >= 12 &&
		string(data[0:4]) == "RIFF" &&
		string(data[8:12]) == "WEBP"
}

// DetectMIME returns the image MIME type and true for accepted formats,
// ("", false) otherwise.
func DetectMIME(data []byte) (string, bool) {
	if isWebP(data) {
		return "image/webp", true
	}
	mime := http.DetectContentType(data)
	if allowedTypes[mime] {
		return mime, true
	}
	return "", false
}

// InvalidImageError carries every problem found by a Validator.
type InvalidImageError struct {
	Problems []string
}

func (e *InvalidImageError) Error() string {
	return "invalid image: " + strings.Join(e.Problems, "; ")
}

// Validator checks size and content type of a File.
type Validator struct {
	MaxSize int64
}

// Validate returns the list of problems, empty when the file is acceptable.
func (v Validator) Validate(f File) []string {
	maxSize := v.MaxSize
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	var problems []string
	if len(f.Data) == 0 {
		problems = append(problems, "file is empty")
	} else if f.Size() > maxSize {
		problems = append(problems, fmt.Sprintf("file is %s, limit is %s", humanSize(f.Size()), humanSize(maxSize)))
	}
	if _, ok := DetectMIME(f.Data); !ok && len(f.Data) > 0 {
		problems = append(problems, "only JPEG, PNG, GIF and WebP images are accepted")
	}
	return problems
}

// Check is Validate returning an *InvalidImageError.
func (v Validator) Check(f File) error {
	if problems := v.Validate(f); len(problems) > 0 {
		return &InvalidImageError{Problems: problems}
	}
	return nil
}

func humanSize(n int64) string {
	const mb = 1024 * 1024
	if n >= mb {
		return fmt.Sprintf("%.1f MB", float64(n)/mb)
	}
	return fmt.Sprintf("%d KB", (n+1023)/1024)
}
