package imaging

import (
	"fmt"
	"math"
)

// CompareResult describes how closely two buffers of equal size agree.
type CompareResult struct {
	// Agreement is the fraction of samples that are equal (0.0 to 1.0).
	Agreement float64 `json:"agreement"`

	// PixelsDifferent is the number of samples that differ.
	PixelsDifferent int `json:"pixels_different"`

	// TotalPixels is the number of samples compared.
	TotalPixels int `json:"total_pixels"`

	// ForegroundA and ForegroundB count Foreground samples in each buffer.
	ForegroundA int `json:"foreground_a"`
	ForegroundB int `json:"foreground_b"`
}

// Compare counts the samples on which a and b differ.
func Compare(a, b *Buffer) (*CompareResult, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if !a.SameSize(b) {
		return nil, fmt.Errorf("%w: %dx%d vs %dx%d", ErrDimensionMismatch, a.Width, a.Height, b.Width, b.Height)
	}

	res := &CompareResult{TotalPixels: a.Len()}
	for i, va := range a.Pix {
		vb := b.Pix[i]
		if va != vb {
			res.PixelsDifferent++
		}
		if va == Foreground {
			res.ForegroundA++
		}
		if vb == Foreground {
			res.ForegroundB++
		}
	}

	agreement := 1.0 - float64(res.PixelsDifferent)/float64(res.TotalPixels)
	res.Agreement = math.Round(agreement*1000) / 1000
	return res, nil
}
