//go:build !cgo

package ocr

import (
	"github.com/ironsheep/image-threshold/internal/imaging"
)

// Available reports whether Tesseract support is compiled in.
func Available() bool { return false }

// Recognize always fails without cgo.
func Recognize(buf *imaging.Buffer, language string) (*Result, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}
	return nil, ErrUnavailable
}

// Version returns an empty string without cgo.
func Version() string { return "" }
