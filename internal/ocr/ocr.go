// Package ocr scores binarized images by running Tesseract OCR on them.
//
// Binarization is usually a preprocessing step for text recognition, and the
// mean word confidence Tesseract reports is a practical way to decide which
// thresholding method suits a given scan better.
//
// Recognition requires cgo and the Tesseract libraries:
//   - Ubuntu/Debian: apt-get install libtesseract-dev tesseract-ocr-eng
//   - macOS: brew install tesseract
//
// Without cgo, Recognize returns ErrUnavailable.
package ocr

import (
	"errors"
	"math"
	"strings"

	"github.com/ironsheep/image-threshold/internal/imaging"
)

// ErrUnavailable is returned when the binary was built without Tesseract.
var ErrUnavailable = errors.New("OCR unavailable: built without cgo/tesseract")

// Word is one recognized word with its confidence and location.
type Word struct {
	Text       string         `json:"text"`
	Confidence float64        `json:"confidence"` // 0.0 to 1.0
	Bounds     imaging.Region `json:"bounds"`
}

// Result is the text recognized in one image.
type Result struct {
	// FullText is the recognized text with its original line breaks.
	FullText string `json:"full_text"`

	// Words holds the non-empty words found at word level.
	Words []Word `json:"words"`

	// MeanConfidence is the average word confidence, 0 when no words were found.
	MeanConfidence float64 `json:"mean_confidence"`
}

// newResult drops empty words and computes the mean confidence.
func newResult(text string, words []Word) *Result {
	kept := make([]Word, 0, len(words))
	var sum float64
	for _, w := range words {
		if strings.TrimSpace(w.Text) == "" {
			continue
		}
		kept = append(kept, w)
		sum += w.Confidence
	}

	res := &Result{FullText: text, Words: kept}
	if len(kept) > 0 {
		res.MeanConfidence = math.Round(sum/float64(len(kept))*1000) / 1000
	}
	return res
}

// Comparison holds OCR results for the two binarization methods.
type Comparison struct {
	Global *Result `json:"global"`
	Local  *Result `json:"local"`

	// Preferred is "global", "local" or "tie" by mean confidence.
	Preferred string `json:"preferred"`
}

// Compare recognizes text in both binarized buffers and reports which one
// Tesseract reads with higher mean confidence.
func Compare(global, local *imaging.Buffer, language string) (*Comparison, error) {
	g, err := Recognize(global, language)
	if err != nil {
		return nil, err
	}
	l, err := Recognize(local, language)
	if err != nil {
		return nil, err
	}
	return &Comparison{Global: g, Local: l, Preferred: prefer(g, l)}, nil
}

func prefer(g, l *Result) string {
	switch {
	case g.MeanConfidence > l.MeanConfidence:
		return "global"
	case l.MeanConfidence > g.MeanConfidence:
		return "local"
	default:
		return "tie"
	}
}
