package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Save writes a buffer to disk as an 8-bit grayscale image. The format is
// chosen from the file extension (png, jpg/jpeg, gif, tif/tiff, bmp).
//
// JPEG is lossy and will introduce intermediate values around edges, so a
// binary buffer saved as JPEG is no longer strictly binary on disk.
func Save(buf *Buffer, path string) error {
	if err := buf.Validate(); err != nil {
		return err
	}
	if err := imaging.Save(buf.Gray(), path); err != nil {
		return fmt.Errorf("failed to save image %s: %w", path, err)
	}
	return nil
}

// IsLossyPath reports whether saving to path would use a lossy encoder.
func IsLossyPath(path string) bool {
	f, err := imaging.FormatFromFilename(path)
	return err == nil && f == imaging.JPEG
}

// EncodedImage is a buffer encoded as base64 PNG for transport.
type EncodedImage struct {
	// Width of the image in pixels.
	Width int `json:"width"`

	// Height of the image in pixels.
	Height int `json:"height"`

	// ImageBase64 is the grayscale PNG encoded as base64.
	ImageBase64 string `json:"image_base64"`

	// MimeType is always "image/png".
	MimeType string `json:"mime_type"`
}

// EncodePNGBase64 encodes a buffer as a base64 grayscale PNG.
func EncodePNGBase64(buf *Buffer) (*EncodedImage, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	if err := imaging.Encode(&out, buf.Gray(), imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return &EncodedImage{
		Width:       buf.Width,
		Height:      buf.Height,
		ImageBase64: base64.StdEncoding.EncodeToString(out.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// Region is a rectangle in pixel coordinates. (X1,Y1) is inclusive and
// (X2,Y2) is exclusive.
type Region struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Rect converts the region to an image.Rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X1, r.Y1, r.X2, r.Y2)
}

// Crop extracts a rectangular region from a buffer into a new buffer.
func Crop(buf *Buffer, r Region) (*Buffer, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}
	if r.X1 < 0 || r.Y1 < 0 || r.X2 > buf.Width || r.Y2 > buf.Height {
		return nil, fmt.Errorf("crop region (%d,%d)-(%d,%d) outside image bounds (0,0)-(%d,%d)",
			r.X1, r.Y1, r.X2, r.Y2, buf.Width, buf.Height)
	}
	if r.X1 >= r.X2 || r.Y1 >= r.Y2 {
		return nil, fmt.Errorf("invalid crop region: x1 must be < x2, y1 must be < y2")
	}

	return firstChannel(imaging.Crop(buf.Gray(), r.Rect())), nil
}
