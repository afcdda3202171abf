package threshold

import (
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/image-threshold/internal/imaging"
)

// Comparison holds the output of both methods for one input buffer.
type Comparison struct {
	Global *GlobalResult `json:"global"`
	Local  *LocalResult  `json:"local"`

	// Agreement measures how many pixels the two binary images share.
	Agreement *imaging.CompareResult `json:"agreement"`

	// GlobalComponents and LocalComponents count the foreground regions of
	// each output, ignoring specks below SpeckleSize pixels.
	GlobalComponents *imaging.ComponentStats `json:"global_components"`
	LocalComponents  *imaging.ComponentStats `json:"local_components"`
}

// SpeckleSize is the smallest foreground region counted as a component.
const SpeckleSize = 3

// Both runs Global and Local on buf concurrently and compares the results.
// The buffer and both option sets are checked before either method starts;
// after that the first error from either method is returned.
func Both(buf *imaging.Buffer, gopts GlobalOptions, lopts LocalOptions) (*Comparison, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}
	if err := gopts.validate(); err != nil {
		return nil, err
	}
	if _, err := NewWindow(lopts.WindowWidth, lopts.WindowHeight); err != nil {
		return nil, err
	}

	var (
		g  errgroup.Group
		gr *GlobalResult
		lr *LocalResult
	)
	g.Go(func() error {
		var err error
		gr, err = Global(buf, gopts)
		return err
	})
	g.Go(func() error {
		var err error
		lr, err = Local(buf, lopts)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	agreement, err := imaging.Compare(gr.Image, lr.Image)
	if err != nil {
		return nil, err
	}
	gc, err := imaging.Components(gr.Image, SpeckleSize)
	if err != nil {
		return nil, err
	}
	lc, err := imaging.Components(lr.Image, SpeckleSize)
	if err != nil {
		return nil, err
	}
	return &Comparison{
		Global:           gr,
		Local:            lr,
		Agreement:        agreement,
		GlobalComponents: gc,
		LocalComponents:  lc,
	}, nil
}
