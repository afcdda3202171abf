package imaging

import (
	"errors"
	"fmt"
	"image"
)

// Sample values used in binary output buffers.
const (
	Background uint8 = 0
	Foreground uint8 = 255
)

var (
	// ErrEmptyImage is returned when a buffer has no pixels or malformed dimensions.
	ErrEmptyImage = errors.New("image buffer is empty")

	// ErrDimensionMismatch is returned when two buffers that must share
	// dimensions do not.
	ErrDimensionMismatch = errors.New("image dimensions do not match")
)

// Buffer is a single-plane 8-bit grayscale image.
//
// Samples are stored row-major with a stride equal to Width, so the sample at
// (x, y) lives at Pix[y*Width+x]. Thresholding operations never modify the
// buffer they read from; they allocate a new Buffer for their output.
type Buffer struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewBuffer allocates a zeroed buffer of the given size.
func NewBuffer(width, height int) *Buffer {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Buffer{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height),
	}
}

// BufferFromSamples builds a buffer from row-major samples. The slice is
// copied so the caller may reuse it.
func BufferFromSamples(width, height int, samples []uint8) (*Buffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrEmptyImage, width, height)
	}
	if len(samples) != width*height {
		return nil, fmt.Errorf("%w: got %d samples for %dx%d", ErrEmptyImage, len(samples), width, height)
	}
	b := NewBuffer(width, height)
	copy(b.Pix, samples)
	return b, nil
}

// Validate reports ErrEmptyImage for buffers that cannot be processed.
func (b *Buffer) Validate() error {
	if b == nil {
		return fmt.Errorf("%w: nil buffer", ErrEmptyImage)
	}
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrEmptyImage, b.Width, b.Height)
	}
	if len(b.Pix) != b.Width*b.Height {
		return fmt.Errorf("%w: %d samples for %dx%d", ErrEmptyImage, len(b.Pix), b.Width, b.Height)
	}
	return nil
}

// At returns the sample at (x, y). Coordinates must be in range.
func (b *Buffer) At(x, y int) uint8 {
	return b.Pix[y*b.Width+x]
}

// Set stores a sample at (x, y). Coordinates must be in range.
func (b *Buffer) Set(x, y int, v uint8) {
	b.Pix[y*b.Width+x] = v
}

// Row returns the samples of row y without copying.
func (b *Buffer) Row(y int) []uint8 {
	return b.Pix[y*b.Width : (y+1)*b.Width]
}

// Len returns the number of samples.
func (b *Buffer) Len() int {
	return len(b.Pix)
}

// SameSize reports whether two buffers share dimensions.
func (b *Buffer) SameSize(o *Buffer) bool {
	return b.Width == o.Width && b.Height == o.Height
}

// Clone returns a deep copy.
func (b *Buffer) Clone() *Buffer {
	c := NewBuffer(b.Width, b.Height)
	copy(c.Pix, b.Pix)
	return c
}

// IsBinary reports whether every sample is Background or Foreground.
func (b *Buffer) IsBinary() bool {
	for _, v := range b.Pix {
		if v != Background && v != Foreground {
			return false
		}
	}
	return true
}

// Gray wraps the buffer as an *image.Gray sharing the same pixel slice.
func (b *Buffer) Gray() *image.Gray {
	return &image.Gray{
		Pix:    b.Pix,
		Stride: b.Width,
		Rect:   image.Rect(0, 0, b.Width, b.Height),
	}
}
