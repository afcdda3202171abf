//go:build cgo

package ocr

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/otiai10/gosseract/v2"

	"github.com/ironsheep/image-threshold/internal/imaging"
)

// Available reports whether Tesseract support is compiled in.
func Available() bool { return true }

// Recognize runs Tesseract on buf and returns its text and word-level
// confidences.
//
// The buffer is handed to Tesseract as an in-memory PNG, so no temporary
// files are created. If word boxes cannot be extracted the full text is
// still returned with no words.
func Recognize(buf *imaging.Buffer, language string) (*Result, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}
	if language == "" {
		language = "eng"
	}

	var encoded bytes.Buffer
	if err := png.Encode(&encoded, buf.Gray()); err != nil {
		return nil, fmt.Errorf("failed to encode image for OCR: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(language); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetImageFromBytes(encoded.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return newResult(text, nil), nil
	}

	words := make([]Word, 0, len(boxes))
	for _, box := range boxes {
		words = append(words, Word{
			Text:       box.Word,
			Confidence: box.Confidence / 100.0,
			Bounds: imaging.Region{
				X1: box.Box.Min.X,
				Y1: box.Box.Min.Y,
				X2: box.Box.Max.X,
				Y2: box.Box.Max.Y,
			},
		})
	}
	return newResult(text, words), nil
}

// Version returns the linked Tesseract version.
func Version() string {
	return gosseract.Version()
}
