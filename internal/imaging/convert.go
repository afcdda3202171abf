package imaging

import (
	"errors"
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/disintegration/imaging"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// Conversion selects how color pixels are reduced to one gray sample.
type Conversion string

const (
	// Luma weights R, G and B by ITU-R BT.601 (0.299, 0.587, 0.114).
	Luma Conversion = "luma"

	// Lightness uses CIE L* (D65), scaled to 0-255.
	Lightness Conversion = "lightness"
)

// ErrUnknownConversion is returned for a conversion name that is not
// supported.
var ErrUnknownConversion = errors.New("unknown gray conversion")

// ParseConversion parses a conversion name. The empty string selects Luma.
func ParseConversion(s string) (Conversion, error) {
	switch c := Conversion(strings.ToLower(strings.TrimSpace(s))); c {
	case "":
		return Luma, nil
	case Luma, Lightness:
		return c, nil
	default:
		return "", fmt.Errorf("%w: %q (want luma or lightness)", ErrUnknownConversion, s)
	}
}

// ToGray reduces img to a grayscale buffer. Alpha is ignored.
func ToGray(img image.Image, conv Conversion) (*Buffer, error) {
	switch conv {
	case Luma, "":
		return lumaBuffer(img), nil
	case Lightness:
		return lightnessBuffer(img), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownConversion, conv)
	}
}

func lumaBuffer(img image.Image) *Buffer {
	// Grayscale yields NRGBA with R == G == B == luma.
	return firstChannel(imaging.Grayscale(img))
}

func lightnessBuffer(img image.Image) *Buffer {
	src := imaging.Clone(img)
	bounds := src.Bounds()
	buf := NewBuffer(bounds.Dx(), bounds.Dy())

	// L* per distinct RGB triple
	memo := make(map[[3]uint8]uint8)
	for y := 0; y < buf.Height; y++ {
		row := buf.Row(y)
		off := src.PixOffset(bounds.Min.X, bounds.Min.Y+y)
		for x := range row {
			p := src.Pix[off+x*4 : off+x*4+3]
			key := [3]uint8{p[0], p[1], p[2]}
			v, ok := memo[key]
			if !ok {
				v = lightness(key)
				memo[key] = v
			}
			row[x] = v
		}
	}
	return buf
}

func lightness(rgb [3]uint8) uint8 {
	c := colorful.Color{
		R: float64(rgb[0]) / 255,
		G: float64(rgb[1]) / 255,
		B: float64(rgb[2]) / 255,
	}
	l, _, _ := c.Lab()
	return uint8(math.Round(math.Max(0, math.Min(1, l)) * 255))
}

// firstChannel copies the R channel of an NRGBA image into a buffer.
func firstChannel(src *image.NRGBA) *Buffer {
	bounds := src.Bounds()
	buf := NewBuffer(bounds.Dx(), bounds.Dy())
	for y := 0; y < buf.Height; y++ {
		row := buf.Row(y)
		off := src.PixOffset(bounds.Min.X, bounds.Min.Y+y)
		for x := range row {
			row[x] = src.Pix[off+x*4]
		}
	}
	return buf
}
