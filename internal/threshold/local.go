package threshold

import (
	"errors"
	"fmt"

	"github.com/anthonynsimon/bild/parallel"

	"github.com/ironsheep/image-threshold/internal/imaging"
)

// MaxWindowSide is the largest accepted neighborhood side. It keeps window
// sums within int64.
const MaxWindowSide = 1<<16 - 1

// ErrInvalidWindow is returned for a neighborhood with a side smaller than 1
// or larger than MaxWindowSide.
var ErrInvalidWindow = errors.New("invalid neighborhood window")

// LocalOptions configures the local mean threshold.
type LocalOptions struct {
	// WindowWidth and WindowHeight are the neighborhood size in pixels.
	// Even values are rounded up to the next odd value.
	WindowWidth  int `json:"window_width"`
	WindowHeight int `json:"window_height"`
}

// Window is an odd-sized neighborhood centred on a pixel.
type Window struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// PadX is the number of columns the window reaches left or right of its centre.
func (w Window) PadX() int { return w.Width / 2 }

// PadY is the number of rows the window reaches above or below its centre.
func (w Window) PadY() int { return w.Height / 2 }

// Area is the number of samples in the window.
func (w Window) Area() int { return w.Width * w.Height }

// NewWindow validates a neighborhood size and rounds even sides up to the
// next odd value so that the window has a centre pixel.
func NewWindow(width, height int) (Window, error) {
	if width < 1 || height < 1 {
		return Window{}, fmt.Errorf("%w: %dx%d, both sides must be >= 1", ErrInvalidWindow, width, height)
	}
	if width > MaxWindowSide || height > MaxWindowSide {
		return Window{}, fmt.Errorf("%w: %dx%d, sides must be <= %d", ErrInvalidWindow, width, height, MaxWindowSide)
	}
	if width%2 == 0 {
		width++
	}
	if height%2 == 0 {
		height++
	}
	return Window{Width: width, Height: height}, nil
}

// LocalResult is the output of Local.
type LocalResult struct {
	// Image is the binarized output, same dimensions as the input.
	Image *imaging.Buffer `json:"-"`

	// Window is the effective (odd) neighborhood that was used.
	Window Window `json:"window"`
}

// Local binarizes each pixel against the mean of the window centred on it.
//
// Windows that reach past the border see copies of the nearest edge pixel
// rather than zeros, as if the image were padded by replicating its edges.
// A pixel becomes 255 when it is strictly greater than its window mean and 0
// otherwise; ties go to 0.
//
// Window sums come from a summed-area table over the image, so neither time
// nor memory depends on the window size. The mean is compared unrounded.
// Output rows are split across goroutines; each writes its own rows only.
func Local(buf *imaging.Buffer, opts LocalOptions) (*LocalResult, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}
	win, err := NewWindow(opts.WindowWidth, opts.WindowHeight)
	if err != nil {
		return nil, err
	}

	sat := newSummedArea(buf, win)
	out := imaging.NewBuffer(buf.Width, buf.Height)
	parallel.Line(buf.Height, func(start, end int) {
		for y := start; y < end; y++ {
			src := buf.Row(y)
			dst := out.Row(y)
			for x, v := range src {
				if float64(v) > sat.mean(x, y) {
					dst[x] = imaging.Foreground
				}
			}
		}
	})

	return &LocalResult{Image: out, Window: win}, nil
}

// summedArea holds prefix sums of the image. sums[r*stride+c] is the sum of
// all samples in rows < r and columns < c.
type summedArea struct {
	sums          []int64
	stride        int
	width, height int
	win           Window
	area          float64
}

func newSummedArea(buf *imaging.Buffer, win Window) *summedArea {
	stride := buf.Width + 1
	sums := make([]int64, stride*(buf.Height+1))
	for y := 0; y < buf.Height; y++ {
		var rowSum int64
		above := sums[y*stride : (y+1)*stride]
		cur := sums[(y+1)*stride : (y+2)*stride]
		for x, v := range buf.Row(y) {
			rowSum += int64(v)
			cur[x+1] = above[x+1] + rowSum
		}
	}

	return &summedArea{
		sums:   sums,
		stride: stride,
		width:  buf.Width,
		height: buf.Height,
		win:    win,
		area:   float64(win.Area()),
	}
}

// rect returns the sum of columns x0..x1 and rows y0..y1, inclusive.
func (s *summedArea) rect(x0, y0, x1, y1 int) int64 {
	x1++
	y1++
	return s.sums[y1*s.stride+x1] - s.sums[y0*s.stride+x1] - s.sums[y1*s.stride+x0] + s.sums[y0*s.stride+x0]
}

// span is the extent of a window along one axis, clamped to the image.
// before and after count the positions that hang over each end; under
// border replication they repeat the first and last sample.
type span struct {
	lo, hi        int
	before, after int
}

func clampSpan(centre, reach, n int) span {
	sp := span{lo: centre - reach, hi: centre + reach}
	if sp.lo < 0 {
		sp.before = -sp.lo
		sp.lo = 0
	}
	if sp.hi > n-1 {
		sp.after = sp.hi - (n - 1)
		sp.hi = n - 1
	}
	return sp
}

// band sums the window's columns over rows y0..y1, weighting the edge
// columns by their overhang.
func (s *summedArea) band(cols span, y0, y1 int) int64 {
	sum := s.rect(cols.lo, y0, cols.hi, y1)
	if cols.before > 0 {
		sum += int64(cols.before) * s.rect(0, y0, 0, y1)
	}
	if cols.after > 0 {
		last := s.width - 1
		sum += int64(cols.after) * s.rect(last, y0, last, y1)
	}
	return sum
}

// mean returns the average of the window centred on (x, y) as if the image
// were padded by replicating its border. Only the image itself is summed,
// so memory does not grow with the window.
func (s *summedArea) mean(x, y int) float64 {
	cols := clampSpan(x, s.win.PadX(), s.width)
	rows := clampSpan(y, s.win.PadY(), s.height)

	sum := s.band(cols, rows.lo, rows.hi)
	if rows.before > 0 {
		sum += int64(rows.before) * s.band(cols, 0, 0)
	}
	if rows.after > 0 {
		last := s.height - 1
		sum += int64(rows.after) * s.band(cols, last, last)
	}
	return float64(sum) / s.area
}
