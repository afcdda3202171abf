package threshold

import (
	"errors"
	"fmt"
	"math"

	"github.com/ironsheep/image-threshold/internal/imaging"
)

// DefaultMaxIterations bounds the global refinement loop when
// GlobalOptions.MaxIterations is not set.
const DefaultMaxIterations = 1000

var (
	// ErrInvalidEpsilon is returned for a NaN convergence tolerance.
	ErrInvalidEpsilon = errors.New("invalid epsilon")

	// ErrNotConverged is returned when the global threshold is still moving
	// by more than epsilon after the maximum number of iterations.
	ErrNotConverged = errors.New("global threshold did not converge")
)

// GlobalOptions configures the iterative global threshold.
type GlobalOptions struct {
	// Epsilon is the convergence tolerance in intensity units. Values <= 0
	// are accepted but may never converge; MaxIterations bounds the loop.
	Epsilon float64 `json:"epsilon"`

	// MaxIterations caps the number of refinement steps. Zero or negative
	// selects DefaultMaxIterations.
	MaxIterations int `json:"max_iterations"`
}

func (o GlobalOptions) validate() error {
	if math.IsNaN(o.Epsilon) {
		return fmt.Errorf("%w: NaN", ErrInvalidEpsilon)
	}
	return nil
}

// GlobalResult is the output of Global.
type GlobalResult struct {
	// Image is the binarized output, same dimensions as the input.
	Image *imaging.Buffer `json:"-"`

	// Initial is the starting threshold (the median intensity).
	Initial float64 `json:"initial"`

	// Threshold is the value pixels were compared against: the estimate
	// computed in the terminating iteration.
	Threshold float64 `json:"threshold"`

	// Iterations is the number of refinement steps performed.
	Iterations int `json:"iterations"`
}

// refinement is the state carried from one refinement step to the next.
type refinement struct {
	tau       float64 // estimate the step started from
	next      float64 // estimate the step produced
	iteration int
}

// step splits the histogram at r.tau and averages the two class means.
func (r refinement) step(h *imaging.Histogram) refinement {
	mu0, mu1 := h.SplitMeans(r.tau)
	return refinement{
		tau:       r.tau,
		next:      (mu0 + mu1) / 2,
		iteration: r.iteration + 1,
	}
}

func (r refinement) converged(epsilon float64) bool {
	return math.Abs(r.tau-r.next) <= epsilon
}

// advance starts the next step from the estimate this step produced.
func (r refinement) advance() refinement {
	return refinement{tau: r.next, iteration: r.iteration}
}

// GlobalThreshold computes the iterative mean-split threshold of buf.
//
// The estimate starts at the median intensity. Each step splits the pixels
// into those <= tau and those > tau and sets the new estimate to the average
// of the two class means (an empty class counts as 0). Refinement stops when
// an estimate moves by no more than opts.Epsilon. The returned threshold is
// the estimate computed in that last step, not the one it was compared to.
//
// # Errors
//
//   - imaging.ErrEmptyImage if buf is nil or has no pixels
//   - ErrInvalidEpsilon if opts.Epsilon is NaN
//   - ErrNotConverged if the loop runs out of iterations
func GlobalThreshold(buf *imaging.Buffer, opts GlobalOptions) (*GlobalResult, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	maxIter := opts.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}

	hist := imaging.NewHistogram(buf)
	initial := hist.Median()

	r := refinement{tau: initial}
	for {
		r = r.step(hist)
		if r.converged(opts.Epsilon) {
			break
		}
		if r.iteration >= maxIter {
			return nil, fmt.Errorf("%w after %d iterations (tau=%.4f, next=%.4f, epsilon=%g)",
				ErrNotConverged, r.iteration, r.tau, r.next, opts.Epsilon)
		}
		r = r.advance()
	}

	return &GlobalResult{
		Initial:    initial,
		Threshold:  r.next,
		Iterations: r.iteration,
	}, nil
}

// Global binarizes buf against its iterative global threshold. Pixels
// strictly above the threshold become 255, all others 0.
func Global(buf *imaging.Buffer, opts GlobalOptions) (*GlobalResult, error) {
	res, err := GlobalThreshold(buf, opts)
	if err != nil {
		return nil, err
	}
	res.Image = Binarize(buf, res.Threshold)
	return res, nil
}

// Binarize returns a new buffer with 255 where buf > t and 0 elsewhere.
func Binarize(buf *imaging.Buffer, t float64) *imaging.Buffer {
	out := imaging.NewBuffer(buf.Width, buf.Height)
	for i, v := range buf.Pix {
		if float64(v) > t {
			out.Pix[i] = imaging.Foreground
		}
	}
	return out
}
